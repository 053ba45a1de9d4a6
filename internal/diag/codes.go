package diag

import (
	"fmt"
)

type Code uint16

const (
	// Неизвестная ошибка - на первое время
	UnknownCode Code = 0

	// Ресурсы и манифест
	ResInfo          Code = 1000
	ResUnreadable    Code = 1001
	ResMalformed     Code = 1002
	ResUnknownKind   Code = 1003
	ResDuplicateName Code = 1004
	ResMissingField  Code = 1005

	// Синтаксис скриптов
	SynInfo               Code = 2000
	SynUnexpectedToken    Code = 2001
	SynUnknownChar        Code = 2002
	SynUnterminatedString Code = 2003
	SynExpectIdentifier   Code = 2004
	SynExpectType         Code = 2005
	SynExpectExpression   Code = 2006
	SynUnclosedBlock      Code = 2007
	SynBadNumber          Code = 2008

	// Семантика (ошибки движка при Rebuild)
	SemaInfo            Code = 3000
	SemaError           Code = 3001
	SemaUndefinedName   Code = 3002
	SemaUnknownType     Code = 3003
	SemaDuplicateDecl   Code = 3004
	SemaNoMember        Code = 3005
	SemaTypeMismatch    Code = 3006
	SemaArityMismatch   Code = 3007
	SemaNotCallable     Code = 3008
	SemaMissingReturn   Code = 3009
	SemaBadAttach       Code = 3010
	SemaNotAssignable   Code = 3011
	SemaThisOutsideType Code = 3012
	SemaBaseCycle       Code = 3013

	// Прекомпиляция ресурсов
	PreInfo               Code = 4000
	PreMissingClassName   Code = 4001
	PreDuplicateClassName Code = 4002
	PreUnknownStyle       Code = 4003
	PreUnknownBaseType    Code = 4004
	PreUnknownEvent       Code = 4005
	PreUnknownProperty    Code = 4006
	PreAssemblyFailed     Code = 4007

	// Проект
	PrjInfo           Code = 5000
	PrjMetadataImport Code = 5001
	PrjMetadataExport Code = 5002
)

var (
	codeDescription = map[Code]string{
		UnknownCode:           "Unknown error",
		ResInfo:               "Resource information",
		ResUnreadable:         "Resource file cannot be read",
		ResMalformed:          "Resource payload is malformed",
		ResUnknownKind:        "Unknown resource kind",
		ResDuplicateName:      "Duplicate resource name",
		ResMissingField:       "Required resource field is missing",
		SynInfo:               "Syntax information",
		SynUnexpectedToken:    "Unexpected token",
		SynUnknownChar:        "Unknown character",
		SynUnterminatedString: "Unterminated string",
		SynExpectIdentifier:   "Expected identifier",
		SynExpectType:         "Expected type",
		SynExpectExpression:   "Expected expression",
		SynUnclosedBlock:      "Unclosed block",
		SynBadNumber:          "Malformed number",
		SemaInfo:              "Semantic information",
		SemaError:             "Semantic error",
		SemaUndefinedName:     "Undefined name",
		SemaUnknownType:       "Unknown type",
		SemaDuplicateDecl:     "Duplicate declaration",
		SemaNoMember:          "No such member",
		SemaTypeMismatch:      "Type mismatch",
		SemaArityMismatch:     "Wrong number of arguments",
		SemaNotCallable:       "Expression is not callable",
		SemaMissingReturn:     "Missing return",
		SemaBadAttach:         "Invalid event attachment",
		SemaNotAssignable:     "Expression is not assignable",
		SemaThisOutsideType:   "'this' outside of a class",
		SemaBaseCycle:         "Cyclic class inheritance",
		PreInfo:               "Precompile information",
		PreMissingClassName:   "Instance class name is missing",
		PreDuplicateClassName: "Instance class name is not unique",
		PreUnknownStyle:       "Unknown instance style",
		PreUnknownBaseType:    "Unknown instance base type",
		PreUnknownEvent:       "Unknown event",
		PreUnknownProperty:    "Unknown property",
		PreAssemblyFailed:     "Assembly generation failed",
		PrjInfo:               "Project information",
		PrjMetadataImport:     "Metadata import failed",
		PrjMetadataExport:     "Metadata export failed",
	}
)

func (c Code) ID() string {
	switch ic := int(c); {
	case ic >= 1000 && ic < 2000:
		return fmt.Sprintf("RES%04d", ic)
	case ic >= 2000 && ic < 3000:
		return fmt.Sprintf("SYN%04d", ic)
	case ic >= 3000 && ic < 4000:
		return fmt.Sprintf("SEM%04d", ic)
	case ic >= 4000 && ic < 5000:
		return fmt.Sprintf("PRE%04d", ic)
	case ic >= 5000 && ic < 6000:
		return fmt.Sprintf("PRJ%04d", ic)
	}
	return "E0000"
}

func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[UnknownCode]
	}
	return desc
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}
