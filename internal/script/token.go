package script

import "fmt"

type tokKind uint8

const (
	tokEOF tokKind = iota
	tokInvalid
	tokIdent
	tokInt
	tokString

	// ключевые слова
	tokModule
	tokVar
	tokFunc
	tokClass
	tokEvent
	tokProp
	tokReturn
	tokThis
	tokTrue
	tokFalse
	tokAttach

	// пунктуация
	tokLParen
	tokRParen
	tokLBrace
	tokRBrace
	tokColon
	tokSemicolon
	tokComma
	tokDot
	tokAssign
	tokPlus
	tokMinus
	tokEq
	tokNe
)

var keywords = map[string]tokKind{
	"module": tokModule,
	"var":    tokVar,
	"func":   tokFunc,
	"class":  tokClass,
	"event":  tokEvent,
	"prop":   tokProp,
	"return": tokReturn,
	"this":   tokThis,
	"true":   tokTrue,
	"false":  tokFalse,
	"attach": tokAttach,
}

var tokNames = [...]string{
	tokEOF:       "end of file",
	tokInvalid:   "invalid token",
	tokIdent:     "identifier",
	tokInt:       "integer",
	tokString:    "string",
	tokModule:    "'module'",
	tokVar:       "'var'",
	tokFunc:      "'func'",
	tokClass:     "'class'",
	tokEvent:     "'event'",
	tokProp:      "'prop'",
	tokReturn:    "'return'",
	tokThis:      "'this'",
	tokTrue:      "'true'",
	tokFalse:     "'false'",
	tokAttach:    "'attach'",
	tokLParen:    "'('",
	tokRParen:    "')'",
	tokLBrace:    "'{'",
	tokRBrace:    "'}'",
	tokColon:     "':'",
	tokSemicolon: "';'",
	tokComma:     "','",
	tokDot:       "'.'",
	tokAssign:    "'='",
	tokPlus:      "'+'",
	tokMinus:     "'-'",
	tokEq:        "'=='",
	tokNe:        "'!='",
}

func (k tokKind) String() string {
	if int(k) < len(tokNames) && tokNames[k] != "" {
		return tokNames[k]
	}
	return fmt.Sprintf("token(%d)", k)
}

// token positions are fragment-local byte offsets.
type token struct {
	kind  tokKind
	text  string
	start uint32
	end   uint32
}
