package sandbox

import "fmt"

// The snippet grammar is a closed subset of the pandas idiom. Each line is
// a single assignment of a frame expression to a variable:
//
//	NAME = expr
//	expr    := NAME trailer*
//	trailer := .copy() | .head(scalar) | .tail(scalar)
//	         | .sort_values(cols [, ascending=...])
//	         | [ mask ] | [ [ 'col', ... ] ]
//	mask    := and ( '|' and )*
//	and     := cmp ( '&' cmp )*
//	cmp     := '(' mask ')' | NAME['col'] OP scalar
//	scalar  := NUMBER | STRING | True | False | None
//	         | len(NAME) | abs(scalar) | round(scalar)
//	         | NAME['col'].min() | .max() | .sum()
//
// Anything outside this grammar is a parse error; the interpreter never
// sees it. That property, not the denylist, is the safety boundary.
//
// head and tail take a non-negative count only; the negative "all but n"
// form is rejected at evaluation time.

type program struct {
	stmts []assignStmt
}

type assignStmt struct {
	target string
	expr   frameExpr
	line   int
}

type frameExpr interface{ frameNode() }

type varRef struct {
	name string
	line int
}

type methodCall struct {
	recv      frameExpr
	method    string
	cols      []string  // sort_values columns
	ascending []bool    // sort_values ascending flags
	n         scalarExpr // head/tail argument
	line      int
}

type maskIndex struct {
	recv frameExpr
	mask maskExpr
	line int
}

type selectIndex struct {
	recv frameExpr
	cols []string
	line int
}

func (varRef) frameNode()      {}
func (methodCall) frameNode()  {}
func (maskIndex) frameNode()   {}
func (selectIndex) frameNode() {}

type maskExpr interface{ maskNode() }

type maskBinary struct {
	op          string // "&" or "|"
	left, right maskExpr
}

type maskCompare struct {
	series seriesRef
	op     string // == != > >= < <=
	value  scalarExpr
	line   int
}

func (maskBinary) maskNode()  {}
func (maskCompare) maskNode() {}

type seriesRef struct {
	base   string
	column string
	line   int
}

type scalarExpr interface{ scalarNode() }

type litScalar struct {
	kind string // "number", "string", "bool", "none"
	num  float64
	str  string
	b    bool
}

type lenCall struct {
	arg  string
	line int
}

type unaryCall struct {
	fn  string // "abs" or "round"
	arg scalarExpr
}

type aggCall struct {
	series seriesRef
	fn     string // min, max, sum
	line   int
}

func (litScalar) scalarNode() {}
func (lenCall) scalarNode()   {}
func (unaryCall) scalarNode() {}
func (aggCall) scalarNode()   {}

type parser struct {
	toks []token
	pos  int
}

// parse turns a stripped snippet into a program.
func parse(code string) (*program, error) {
	toks, err := lex(code)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	prog := &program{}
	for !p.at(tokEOF) {
		stmt, err := p.parseAssign()
		if err != nil {
			return nil, err
		}
		prog.stmts = append(prog.stmts, stmt)
		if p.at(tokNewline) {
			p.next()
		}
	}
	if len(prog.stmts) == 0 {
		return nil, fmt.Errorf("snippet contains no statements")
	}
	return prog, nil
}

func (p *parser) parseAssign() (assignStmt, error) {
	tok := p.peek()
	if tok.kind != tokIdent {
		return assignStmt{}, fmt.Errorf("line %d: expected assignment target, got %s", tok.line, tok)
	}
	target := tok.text
	p.next()
	if !p.at(tokAssign) {
		return assignStmt{}, fmt.Errorf("line %d: expected '=' after %q", tok.line, target)
	}
	p.next()
	expr, err := p.parseFrameExpr()
	if err != nil {
		return assignStmt{}, err
	}
	if !p.at(tokNewline) && !p.at(tokEOF) {
		return assignStmt{}, fmt.Errorf("line %d: unexpected %s after expression", p.peek().line, p.peek())
	}
	return assignStmt{target: target, expr: expr, line: tok.line}, nil
}

func (p *parser) parseFrameExpr() (frameExpr, error) {
	tok := p.peek()
	if tok.kind != tokIdent {
		return nil, fmt.Errorf("line %d: expected a variable name, got %s", tok.line, tok)
	}
	var expr frameExpr = varRef{name: tok.text, line: tok.line}
	p.next()

	for {
		switch p.peek().kind {
		case tokDot:
			p.next()
			call, err := p.parseMethod(expr)
			if err != nil {
				return nil, err
			}
			expr = call
		case tokLBracket:
			p.next()
			idx, err := p.parseIndex(expr)
			if err != nil {
				return nil, err
			}
			expr = idx
		default:
			return expr, nil
		}
	}
}

func (p *parser) parseMethod(recv frameExpr) (frameExpr, error) {
	tok := p.peek()
	if tok.kind != tokIdent {
		return nil, fmt.Errorf("line %d: expected method name, got %s", tok.line, tok)
	}
	method := tok.text
	p.next()
	if !p.at(tokLParen) {
		return nil, fmt.Errorf("line %d: expected '(' after .%s", tok.line, method)
	}
	p.next()

	call := methodCall{recv: recv, method: method, line: tok.line}
	switch method {
	case "copy":
		// no arguments
	case "head", "tail":
		n, err := p.parseScalar()
		if err != nil {
			return nil, err
		}
		call.n = n
	case "sort_values":
		cols, asc, err := p.parseSortArgs()
		if err != nil {
			return nil, err
		}
		call.cols = cols
		call.ascending = asc
	default:
		return nil, fmt.Errorf("line %d: unsupported method .%s", tok.line, method)
	}

	if !p.at(tokRParen) {
		return nil, fmt.Errorf("line %d: expected ')' closing .%s", tok.line, method)
	}
	p.next()
	return call, nil
}

func (p *parser) parseSortArgs() ([]string, []bool, error) {
	cols, err := p.parseStringOrList()
	if err != nil {
		return nil, nil, err
	}
	var asc []bool
	for p.at(tokComma) {
		p.next()
		kw := p.peek()
		if kw.kind != tokIdent {
			return nil, nil, fmt.Errorf("line %d: expected keyword argument, got %s", kw.line, kw)
		}
		p.next()
		if !p.at(tokAssign) {
			return nil, nil, fmt.Errorf("line %d: expected '=' after %q", kw.line, kw.text)
		}
		p.next()
		switch kw.text {
		case "ascending":
			asc, err = p.parseBoolOrList()
			if err != nil {
				return nil, nil, err
			}
		default:
			return nil, nil, fmt.Errorf("line %d: unsupported sort_values argument %q", kw.line, kw.text)
		}
	}
	return cols, asc, nil
}

func (p *parser) parseStringOrList() ([]string, error) {
	tok := p.peek()
	switch tok.kind {
	case tokString:
		p.next()
		return []string{tok.text}, nil
	case tokLBracket:
		p.next()
		var out []string
		for {
			s := p.peek()
			if s.kind != tokString {
				return nil, fmt.Errorf("line %d: expected column name string, got %s", s.line, s)
			}
			out = append(out, s.text)
			p.next()
			if p.at(tokComma) {
				p.next()
				continue
			}
			break
		}
		if !p.at(tokRBracket) {
			return nil, fmt.Errorf("line %d: expected ']' closing column list", tok.line)
		}
		p.next()
		return out, nil
	}
	return nil, fmt.Errorf("line %d: expected column name or list, got %s", tok.line, tok)
}

func (p *parser) parseBoolOrList() ([]bool, error) {
	tok := p.peek()
	switch {
	case tok.kind == tokIdent && (tok.text == "True" || tok.text == "False"):
		p.next()
		return []bool{tok.text == "True"}, nil
	case tok.kind == tokLBracket:
		p.next()
		var out []bool
		for {
			b := p.peek()
			if b.kind != tokIdent || (b.text != "True" && b.text != "False") {
				return nil, fmt.Errorf("line %d: expected True or False, got %s", b.line, b)
			}
			out = append(out, b.text == "True")
			p.next()
			if p.at(tokComma) {
				p.next()
				continue
			}
			break
		}
		if !p.at(tokRBracket) {
			return nil, fmt.Errorf("line %d: expected ']' closing ascending list", tok.line)
		}
		p.next()
		return out, nil
	}
	return nil, fmt.Errorf("line %d: expected True/False or list, got %s", tok.line, tok)
}

// parseIndex handles the two forms of df[...]: a column selection when the
// inner expression is a string list, a boolean mask otherwise.
func (p *parser) parseIndex(recv frameExpr) (frameExpr, error) {
	tok := p.peek()
	if tok.kind == tokLBracket {
		cols, err := p.parseStringOrList()
		if err != nil {
			return nil, err
		}
		if !p.at(tokRBracket) {
			return nil, fmt.Errorf("line %d: expected ']' closing selection", tok.line)
		}
		p.next()
		return selectIndex{recv: recv, cols: cols, line: tok.line}, nil
	}

	mask, err := p.parseMaskOr()
	if err != nil {
		return nil, err
	}
	if !p.at(tokRBracket) {
		return nil, fmt.Errorf("line %d: expected ']' closing mask", tok.line)
	}
	p.next()
	return maskIndex{recv: recv, mask: mask, line: tok.line}, nil
}

func (p *parser) parseMaskOr() (maskExpr, error) {
	left, err := p.parseMaskAnd()
	if err != nil {
		return nil, err
	}
	for p.at(tokPipe) {
		p.next()
		right, err := p.parseMaskAnd()
		if err != nil {
			return nil, err
		}
		left = maskBinary{op: "|", left: left, right: right}
	}
	return left, nil
}

func (p *parser) parseMaskAnd() (maskExpr, error) {
	left, err := p.parseMaskCmp()
	if err != nil {
		return nil, err
	}
	for p.at(tokAmp) {
		p.next()
		right, err := p.parseMaskCmp()
		if err != nil {
			return nil, err
		}
		left = maskBinary{op: "&", left: left, right: right}
	}
	return left, nil
}

func (p *parser) parseMaskCmp() (maskExpr, error) {
	if p.at(tokLParen) {
		p.next()
		inner, err := p.parseMaskOr()
		if err != nil {
			return nil, err
		}
		if !p.at(tokRParen) {
			return nil, fmt.Errorf("line %d: expected ')' closing mask group", p.peek().line)
		}
		p.next()
		return inner, nil
	}

	series, err := p.parseSeriesRef()
	if err != nil {
		return nil, err
	}

	opTok := p.peek()
	var op string
	switch opTok.kind {
	case tokEq:
		op = "=="
	case tokNe:
		op = "!="
	case tokGt:
		op = ">"
	case tokGe:
		op = ">="
	case tokLt:
		op = "<"
	case tokLe:
		op = "<="
	default:
		return nil, fmt.Errorf("line %d: expected comparison operator, got %s", opTok.line, opTok)
	}
	p.next()

	value, err := p.parseScalar()
	if err != nil {
		return nil, err
	}
	return maskCompare{series: series, op: op, value: value, line: opTok.line}, nil
}

func (p *parser) parseSeriesRef() (seriesRef, error) {
	tok := p.peek()
	if tok.kind != tokIdent {
		return seriesRef{}, fmt.Errorf("line %d: expected frame name, got %s", tok.line, tok)
	}
	base := tok.text
	p.next()
	if !p.at(tokLBracket) {
		return seriesRef{}, fmt.Errorf("line %d: expected '[' after %q", tok.line, base)
	}
	p.next()
	col := p.peek()
	if col.kind != tokString {
		return seriesRef{}, fmt.Errorf("line %d: expected column name string, got %s", col.line, col)
	}
	p.next()
	if !p.at(tokRBracket) {
		return seriesRef{}, fmt.Errorf("line %d: expected ']' after column name", col.line)
	}
	p.next()
	return seriesRef{base: base, column: col.text, line: tok.line}, nil
}

func (p *parser) parseScalar() (scalarExpr, error) {
	tok := p.peek()
	switch tok.kind {
	case tokNumber:
		p.next()
		return litScalar{kind: "number", num: tok.num}, nil
	case tokString:
		p.next()
		return litScalar{kind: "string", str: tok.text}, nil
	case tokIdent:
		switch tok.text {
		case "True", "False":
			p.next()
			return litScalar{kind: "bool", b: tok.text == "True"}, nil
		case "None":
			p.next()
			return litScalar{kind: "none"}, nil
		case "len":
			p.next()
			if !p.at(tokLParen) {
				return nil, fmt.Errorf("line %d: expected '(' after len", tok.line)
			}
			p.next()
			arg := p.peek()
			if arg.kind != tokIdent {
				return nil, fmt.Errorf("line %d: len() takes a frame name", arg.line)
			}
			p.next()
			if !p.at(tokRParen) {
				return nil, fmt.Errorf("line %d: expected ')' closing len", tok.line)
			}
			p.next()
			return lenCall{arg: arg.text, line: tok.line}, nil
		case "abs", "round":
			fn := tok.text
			p.next()
			if !p.at(tokLParen) {
				return nil, fmt.Errorf("line %d: expected '(' after %s", tok.line, fn)
			}
			p.next()
			inner, err := p.parseScalar()
			if err != nil {
				return nil, err
			}
			if !p.at(tokRParen) {
				return nil, fmt.Errorf("line %d: expected ')' closing %s", tok.line, fn)
			}
			p.next()
			return unaryCall{fn: fn, arg: inner}, nil
		default:
			// A series aggregate: NAME['col'].min()/.max()/.sum()
			series, err := p.parseSeriesRef()
			if err != nil {
				return nil, err
			}
			if !p.at(tokDot) {
				return nil, fmt.Errorf("line %d: expected aggregate call on series", tok.line)
			}
			p.next()
			fnTok := p.peek()
			if fnTok.kind != tokIdent {
				return nil, fmt.Errorf("line %d: expected aggregate name, got %s", fnTok.line, fnTok)
			}
			switch fnTok.text {
			case "min", "max", "sum":
			default:
				return nil, fmt.Errorf("line %d: unsupported aggregate .%s", fnTok.line, fnTok.text)
			}
			p.next()
			if !p.at(tokLParen) {
				return nil, fmt.Errorf("line %d: expected '(' after .%s", fnTok.line, fnTok.text)
			}
			p.next()
			if !p.at(tokRParen) {
				return nil, fmt.Errorf("line %d: aggregate .%s takes no arguments", fnTok.line, fnTok.text)
			}
			p.next()
			return aggCall{series: series, fn: fnTok.text, line: fnTok.line}, nil
		}
	}
	return nil, fmt.Errorf("line %d: expected scalar value, got %s", tok.line, tok)
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) at(kind tokenKind) bool { return p.toks[p.pos].kind == kind }

func (p *parser) next() {
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
}
