package script

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"fortio.org/safecast"

	"rescomp/internal/diag"
)

type lexer struct {
	src  []byte
	off  int
	errs []Error
	pos  func(start, end uint32) Error
}

func (lx *lexer) offset(i int) uint32 {
	v, err := safecast.Conv[uint32](i)
	if err != nil {
		panic(fmt.Errorf("script offset overflow: %w", err))
	}
	return v
}

func (lx *lexer) fail(code diag.Code, start, end int, format string, args ...any) {
	e := lx.pos(lx.offset(start), lx.offset(end))
	e.Code = code
	e.Message = fmt.Sprintf(format, args...)
	lx.errs = append(lx.errs, e)
}

func (lx *lexer) skipTrivia() {
	for lx.off < len(lx.src) {
		c := lx.src[lx.off]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			lx.off++
		case c == '/' && lx.off+1 < len(lx.src) && lx.src[lx.off+1] == '/':
			for lx.off < len(lx.src) && lx.src[lx.off] != '\n' {
				lx.off++
			}
		default:
			return
		}
	}
}

func (lx *lexer) next() token {
	lx.skipTrivia()
	start := lx.off
	if lx.off >= len(lx.src) {
		return token{kind: tokEOF, start: lx.offset(start), end: lx.offset(start)}
	}
	r, size := utf8.DecodeRune(lx.src[lx.off:])
	switch {
	case r == '_' || unicode.IsLetter(r):
		for lx.off < len(lx.src) {
			r, size = utf8.DecodeRune(lx.src[lx.off:])
			if r != '_' && !unicode.IsLetter(r) && !unicode.IsDigit(r) {
				break
			}
			lx.off += size
		}
		text := string(lx.src[start:lx.off])
		kind := tokIdent
		if kw, ok := keywords[text]; ok {
			kind = kw
		}
		return lx.tok(kind, start, text)
	case r >= '0' && r <= '9':
		for lx.off < len(lx.src) && isWordByte(lx.src[lx.off]) {
			lx.off++
		}
		text := string(lx.src[start:lx.off])
		if _, err := strconv.ParseInt(text, 10, 64); err != nil {
			lx.fail(diag.SynBadNumber, start, lx.off, "malformed integer literal %q", text)
			return lx.tok(tokInvalid, start, text)
		}
		return lx.tok(tokInt, start, text)
	case r == '"':
		return lx.scanString(start)
	}

	lx.off += size
	two := func(second byte, kind, single tokKind) token {
		if lx.off < len(lx.src) && lx.src[lx.off] == second {
			lx.off++
			return lx.tok(kind, start, string(lx.src[start:lx.off]))
		}
		return lx.tok(single, start, string(lx.src[start:lx.off]))
	}
	switch r {
	case '(':
		return lx.tok(tokLParen, start, "(")
	case ')':
		return lx.tok(tokRParen, start, ")")
	case '{':
		return lx.tok(tokLBrace, start, "{")
	case '}':
		return lx.tok(tokRBrace, start, "}")
	case ':':
		return lx.tok(tokColon, start, ":")
	case ';':
		return lx.tok(tokSemicolon, start, ";")
	case ',':
		return lx.tok(tokComma, start, ",")
	case '.':
		return lx.tok(tokDot, start, ".")
	case '+':
		return lx.tok(tokPlus, start, "+")
	case '-':
		return lx.tok(tokMinus, start, "-")
	case '=':
		return two('=', tokEq, tokAssign)
	case '!':
		if lx.off < len(lx.src) && lx.src[lx.off] == '=' {
			lx.off++
			return lx.tok(tokNe, start, "!=")
		}
	}
	lx.fail(diag.SynUnknownChar, start, lx.off, "unknown character %q", r)
	return lx.tok(tokInvalid, start, string(r))
}

func (lx *lexer) tok(kind tokKind, start int, text string) token {
	return token{kind: kind, text: text, start: lx.offset(start), end: lx.offset(lx.off)}
}

func (lx *lexer) scanString(start int) token {
	lx.off++ // открывающая кавычка
	var sb strings.Builder
	for lx.off < len(lx.src) {
		c := lx.src[lx.off]
		switch c {
		case '"':
			lx.off++
			return lx.tok(tokString, start, sb.String())
		case '\n':
			lx.fail(diag.SynUnterminatedString, start, lx.off, "unterminated string literal")
			return lx.tok(tokInvalid, start, sb.String())
		case '\\':
			if lx.off+1 < len(lx.src) {
				lx.off++
				switch e := lx.src[lx.off]; e {
				case 'n':
					sb.WriteByte('\n')
				case 't':
					sb.WriteByte('\t')
				default:
					sb.WriteByte(e)
				}
				lx.off++
				continue
			}
		}
		sb.WriteByte(c)
		lx.off++
	}
	lx.fail(diag.SynUnterminatedString, start, lx.off, "unterminated string literal")
	return lx.tok(tokInvalid, start, sb.String())
}

func isWordByte(b byte) bool {
	return b == '_' || (b >= '0' && b <= '9') || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}
