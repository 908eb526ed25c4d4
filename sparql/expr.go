package sparql

import "github.com/PLATOONProject/Awudima-FQP/rdf"

// parseFilterExpr parses a FILTER's parenthesized or bare constraint
// expression into a FilterExpr tree, using ordinary precedence climbing:
// || binds loosest, then &&, then the relational operators, then unary !,
// then primary terms and calls.
func (p *parser) parseFilterExpr() (*rdf.FilterExpr, error) {
	return p.parseOr()
}

func (p *parser) parseOr() (*rdf.FilterExpr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.atPunct("||") {
		p.advance()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = rdf.Binary(rdf.OpOr, left, right)
	}
	return left, nil
}

func (p *parser) parseAnd() (*rdf.FilterExpr, error) {
	left, err := p.parseRelational()
	if err != nil {
		return nil, err
	}
	for p.atPunct("&&") {
		p.advance()
		right, err := p.parseRelational()
		if err != nil {
			return nil, err
		}
		left = rdf.Binary(rdf.OpAnd, left, right)
	}
	return left, nil
}

var relOps = map[string]rdf.FilterOp{
	"=": rdf.OpEq, "!=": rdf.OpNeq, "<": rdf.OpLt, "<=": rdf.OpLte, ">": rdf.OpGt, ">=": rdf.OpGte,
}

func (p *parser) parseRelational() (*rdf.FilterExpr, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	if p.tok.kind == tokPunct {
		if op, ok := relOps[p.tok.text]; ok {
			p.advance()
			right, err := p.parseAdditive()
			if err != nil {
				return nil, err
			}
			return rdf.Binary(op, left, right), nil
		}
	}
	return left, nil
}

func (p *parser) parseAdditive() (*rdf.FilterExpr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.atPunct("+") || p.atPunct("-") {
		op := rdf.OpPlus
		if p.tok.text == "-" {
			op = rdf.OpMinus
		}
		p.advance()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = rdf.Binary(op, left, right)
	}
	return left, nil
}

func (p *parser) parseUnary() (*rdf.FilterExpr, error) {
	if p.atPunct("!") {
		p.advance()
		arg, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return rdf.Unary(rdf.OpNot, arg), nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (*rdf.FilterExpr, error) {
	if p.atPunct("(") {
		p.advance()
		expr, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if err := p.expectPunct(")"); err != nil {
			return nil, err
		}
		return expr, nil
	}

	if p.tok.kind == tokKeyword && p.tok.text != "" {
		name := p.tok.text
		p.advance()
		if p.atPunct("(") {
			p.advance()
			var args []*rdf.FilterExpr
			for !p.atPunct(")") {
				arg, err := p.parseOr()
				if err != nil {
					return nil, err
				}
				args = append(args, arg)
				if p.atPunct(",") {
					p.advance()
				}
			}
			p.advance() // ")"
			return rdf.Call(name, args...), nil
		}
		return nil, parseErrorf(p.lex.pos, "expected function call after %s", name)
	}

	term, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	return rdf.Leaf(term), nil
}
