package sandbox

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

type tokenKind int

const (
	tokIdent tokenKind = iota
	tokNumber
	tokString
	tokNewline
	tokAssign // =
	tokDot
	tokComma
	tokLParen
	tokRParen
	tokLBracket
	tokRBracket
	tokAmp  // &
	tokPipe // |
	tokEq   // ==
	tokNe   // !=
	tokGt
	tokGe
	tokLt
	tokLe
	tokEOF
)

type token struct {
	kind tokenKind
	text string
	num  float64
	line int
}

func (t token) String() string {
	switch t.kind {
	case tokNewline:
		return "newline"
	case tokEOF:
		return "end of input"
	default:
		return fmt.Sprintf("%q", t.text)
	}
}

// lex tokenizes a snippet. Comments run to end of line. Blank lines are
// dropped; every other line is terminated by a newline token.
func lex(code string) ([]token, error) {
	var toks []token
	line := 0
	for _, raw := range strings.Split(code, "\n") {
		line++
		if i := strings.IndexByte(raw, '#'); i >= 0 {
			raw = raw[:i]
		}
		if strings.TrimSpace(raw) == "" {
			continue
		}
		lineToks, err := lexLine(raw, line)
		if err != nil {
			return nil, err
		}
		toks = append(toks, lineToks...)
		toks = append(toks, token{kind: tokNewline, line: line})
	}
	toks = append(toks, token{kind: tokEOF, line: line})
	return toks, nil
}

func lexLine(raw string, line int) ([]token, error) {
	var toks []token
	rs := []rune(raw)
	i := 0
	for i < len(rs) {
		r := rs[i]
		switch {
		case r == ' ' || r == '\t' || r == '\r':
			i++
		case r == '\'' || r == '"':
			quote := r
			j := i + 1
			for j < len(rs) && rs[j] != quote {
				j++
			}
			if j >= len(rs) {
				return nil, fmt.Errorf("line %d: unterminated string literal", line)
			}
			toks = append(toks, token{kind: tokString, text: string(rs[i+1 : j]), line: line})
			i = j + 1
		case unicode.IsDigit(r) || (r == '-' && i+1 < len(rs) && unicode.IsDigit(rs[i+1]) && startsValue(toks)):
			j := i + 1
			for j < len(rs) && (unicode.IsDigit(rs[j]) || rs[j] == '.') {
				j++
			}
			text := string(rs[i:j])
			num, err := strconv.ParseFloat(text, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: bad number literal %q", line, text)
			}
			toks = append(toks, token{kind: tokNumber, text: text, num: num, line: line})
			i = j
		case unicode.IsLetter(r) || r == '_':
			j := i + 1
			for j < len(rs) && (unicode.IsLetter(rs[j]) || unicode.IsDigit(rs[j]) || rs[j] == '_') {
				j++
			}
			toks = append(toks, token{kind: tokIdent, text: string(rs[i:j]), line: line})
			i = j
		default:
			two := ""
			if i+1 < len(rs) {
				two = string(rs[i : i+2])
			}
			switch {
			case two == "==":
				toks = append(toks, token{kind: tokEq, text: two, line: line})
				i += 2
			case two == "!=":
				toks = append(toks, token{kind: tokNe, text: two, line: line})
				i += 2
			case two == ">=":
				toks = append(toks, token{kind: tokGe, text: two, line: line})
				i += 2
			case two == "<=":
				toks = append(toks, token{kind: tokLe, text: two, line: line})
				i += 2
			default:
				kind, ok := singleCharToken(r)
				if !ok {
					return nil, fmt.Errorf("line %d: unexpected character %q", line, string(r))
				}
				toks = append(toks, token{kind: kind, text: string(r), line: line})
				i++
			}
		}
	}
	return toks, nil
}

func singleCharToken(r rune) (tokenKind, bool) {
	switch r {
	case '=':
		return tokAssign, true
	case '.':
		return tokDot, true
	case ',':
		return tokComma, true
	case '(':
		return tokLParen, true
	case ')':
		return tokRParen, true
	case '[':
		return tokLBracket, true
	case ']':
		return tokRBracket, true
	case '&':
		return tokAmp, true
	case '|':
		return tokPipe, true
	case '>':
		return tokGt, true
	case '<':
		return tokLt, true
	}
	return 0, false
}

// startsValue reports whether a '-' at the current position begins a
// negative number literal rather than a subtraction (which the grammar
// does not have).
func startsValue(toks []token) bool {
	if len(toks) == 0 {
		return true
	}
	switch toks[len(toks)-1].kind {
	case tokAssign, tokComma, tokLParen, tokLBracket, tokAmp, tokPipe,
		tokEq, tokNe, tokGt, tokGe, tokLt, tokLe:
		return true
	}
	return false
}
