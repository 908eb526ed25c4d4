package sparql

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/PLATOONProject/Awudima-FQP/rdf"
)

// ParseError reports a malformed query. It is surfaced by the HTTP layer as
// a 200 response carrying an error field rather than an HTTP error status.
type ParseError struct {
	Pos     int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("sparql parse error at position %d: %s", e.Pos, e.Message)
}

func parseErrorf(pos int, format string, args ...interface{}) error {
	return &ParseError{Pos: pos, Message: fmt.Sprintf(format, args...)}
}

// parser is a recursive-descent parser over the token stream produced by
// lexer. It holds one token of lookahead.
type parser struct {
	lex    *lexer
	tok    token
	prefixes map[string]string
}

// Parse parses a complete SPARQL query and returns its algebra tree rooted
// at a Project node.
func Parse(query string) (*rdf.AlgebraNode, error) {
	p := &parser{lex: newLexer(query), prefixes: make(map[string]string)}
	p.advance()
	return p.parseQuery()
}

func (p *parser) advance() {
	p.tok = p.lex.next()
}

func (p *parser) atKeyword(kw string) bool {
	return p.tok.kind == tokKeyword && p.tok.text == kw
}

func (p *parser) expectKeyword(kw string) error {
	if !p.atKeyword(kw) {
		return parseErrorf(p.lex.pos, "expected %s, found %q", kw, p.tok.text)
	}
	p.advance()
	return nil
}

func (p *parser) expectPunct(s string) error {
	if p.tok.kind != tokPunct || p.tok.text != s {
		return parseErrorf(p.lex.pos, "expected %q, found %q", s, p.tok.text)
	}
	p.advance()
	return nil
}

func (p *parser) atPunct(s string) bool {
	return p.tok.kind == tokPunct && p.tok.text == s
}

func (p *parser) parseQuery() (*rdf.AlgebraNode, error) {
	for p.atKeyword("PREFIX") {
		p.advance()
		if p.tok.kind != tokPrefixedName && p.tok.kind != tokKeyword {
			return nil, parseErrorf(p.lex.pos, "expected prefix label")
		}
		label := strings.TrimSuffix(p.tok.text, ":")
		p.advance()
		if p.tok.kind != tokIRI {
			return nil, parseErrorf(p.lex.pos, "expected IRI after PREFIX %s:", label)
		}
		p.prefixes[label] = p.tok.text
		p.advance()
	}

	switch {
	case p.atKeyword("SELECT"):
		return p.parseSelect()
	case p.atKeyword("CONSTRUCT"):
		return p.parseConstruct()
	case p.atKeyword("ASK"):
		return p.parseAsk()
	default:
		return nil, parseErrorf(p.lex.pos, "expected SELECT, CONSTRUCT, or ASK, found %q", p.tok.text)
	}
}

func (p *parser) parseSelect() (*rdf.AlgebraNode, error) {
	p.advance() // SELECT
	distinct := false
	if p.atKeyword("DISTINCT") {
		distinct = true
		p.advance()
	}
	if p.atKeyword("REDUCED") {
		p.advance()
	}

	var vars []string
	star := false
	if p.atPunct("*") {
		star = true
		p.advance()
	} else {
		for p.tok.kind == tokVar {
			vars = append(vars, p.tok.text)
			p.advance()
		}
	}

	for p.atKeyword("FROM") {
		p.advance()
		if p.atKeyword("NAMED") {
			p.advance()
		}
		if p.tok.kind == tokIRI {
			p.advance()
		}
	}

	if err := p.expectKeyword("WHERE"); err != nil {
		return nil, err
	}
	body, err := p.parseGroupGraphPattern()
	if err != nil {
		return nil, err
	}

	mods, err := p.parseSolutionModifiers()
	if err != nil {
		return nil, err
	}
	mods.Form = rdf.FormSelect
	mods.Distinct = distinct

	if star {
		vars = allBodyVars(body)
	}
	return rdf.ProjectOf(vars, body, mods), nil
}

func (p *parser) parseConstruct() (*rdf.AlgebraNode, error) {
	p.advance() // CONSTRUCT
	if err := p.expectPunct("{"); err != nil {
		return nil, err
	}
	template, err := p.parseTriplesBlock()
	if err != nil {
		return nil, err
	}
	if err := p.expectPunct("}"); err != nil {
		return nil, err
	}
	if err := p.expectKeyword("WHERE"); err != nil {
		return nil, err
	}
	body, err := p.parseGroupGraphPattern()
	if err != nil {
		return nil, err
	}
	mods, err := p.parseSolutionModifiers()
	if err != nil {
		return nil, err
	}
	mods.Form = rdf.FormConstruct
	mods.ConstructTemplate = template
	return rdf.ProjectOf(allBodyVars(body), body, mods), nil
}

func (p *parser) parseAsk() (*rdf.AlgebraNode, error) {
	p.advance() // ASK
	if err := p.expectKeyword("WHERE"); err != nil {
		return nil, err
	}
	body, err := p.parseGroupGraphPattern()
	if err != nil {
		return nil, err
	}
	return rdf.ProjectOf(nil, body, rdf.Modifiers{Form: rdf.FormAsk}), nil
}

func (p *parser) parseSolutionModifiers() (rdf.Modifiers, error) {
	var mods rdf.Modifiers
	for {
		switch {
		case p.atKeyword("LIMIT"):
			p.advance()
			n, err := p.parseIntLiteral()
			if err != nil {
				return mods, err
			}
			mods.Limit = &n
		case p.atKeyword("OFFSET"):
			p.advance()
			n, err := p.parseIntLiteral()
			if err != nil {
				return mods, err
			}
			mods.Offset = &n
		case p.atKeyword("ORDER"):
			p.advance()
			if err := p.expectKeyword("BY"); err != nil {
				return mods, err
			}
			for p.tok.kind == tokVar || p.atKeyword("ASC") || p.atKeyword("DESC") {
				if p.atKeyword("ASC") || p.atKeyword("DESC") {
					p.advance()
					if err := p.expectPunct("("); err == nil {
						for !p.atPunct(")") && p.tok.kind != tokEOF {
							p.advance()
						}
						p.advance()
					}
					continue
				}
				p.advance()
			}
		default:
			return mods, nil
		}
	}
}

func (p *parser) parseIntLiteral() (int, error) {
	if p.tok.kind != tokNumber {
		return 0, parseErrorf(p.lex.pos, "expected integer, found %q", p.tok.text)
	}
	n, err := strconv.Atoi(p.tok.text)
	if err != nil {
		return 0, parseErrorf(p.lex.pos, "invalid integer %q", p.tok.text)
	}
	p.advance()
	return n, nil
}

// parseGroupGraphPattern parses a { ... } group: a sequence of triples,
// FILTER clauses, OPTIONAL blocks, and UNION branches. It returns a single
// algebra node combining everything found, via Join for sequential pieces
// and Union for "{...} UNION {...}" chains.
func (p *parser) parseGroupGraphPattern() (*rdf.AlgebraNode, error) {
	if err := p.expectPunct("{"); err != nil {
		return nil, err
	}

	var triples []rdf.TriplePattern
	var filters []*rdf.FilterExpr
	var nodes []*rdf.AlgebraNode

	flushBgp := func() {
		if len(triples) > 0 || len(filters) > 0 {
			nodes = append(nodes, rdf.Bgp(triples, filters))
			triples = nil
			filters = nil
		}
	}

	for !p.atPunct("}") {
		switch {
		case p.atKeyword("FILTER"):
			p.advance()
			expr, err := p.parseFilterExpr()
			if err != nil {
				return nil, err
			}
			filters = append(filters, expr)

		case p.atKeyword("OPTIONAL"):
			p.advance()
			flushBgp()
			optChild, err := p.parseGroupGraphPattern()
			if err != nil {
				return nil, err
			}
			left := combineJoin(nodes)
			nodes = []*rdf.AlgebraNode{rdf.OptionalOf(left, optChild)}

		case p.atPunct("{"):
			flushBgp()
			branch, err := p.parseGroupGraphPattern()
			if err != nil {
				return nil, err
			}
			if p.atKeyword("UNION") {
				var branches = []*rdf.AlgebraNode{branch}
				for p.atKeyword("UNION") {
					p.advance()
					next, err := p.parseGroupGraphPattern()
					if err != nil {
						return nil, err
					}
					branches = append(branches, next)
				}
				nodes = append(nodes, rdf.UnionOf(branches...))
			} else {
				nodes = append(nodes, branch)
			}

		case p.atPunct("."):
			p.advance()

		default:
			tp, err := p.parseTriple()
			if err != nil {
				return nil, err
			}
			triples = append(triples, tp)
			if p.atPunct(".") {
				p.advance()
			}
		}
	}
	flushBgp()
	if err := p.expectPunct("}"); err != nil {
		return nil, err
	}
	return combineJoin(nodes), nil
}

func combineJoin(nodes []*rdf.AlgebraNode) *rdf.AlgebraNode {
	switch len(nodes) {
	case 0:
		return rdf.Bgp(nil, nil)
	case 1:
		return nodes[0]
	default:
		return rdf.JoinOf(nodes...)
	}
}

// parseTriplesBlock parses a sequence of "s p o ." triples, used by
// CONSTRUCT's template block (which has no FILTER/OPTIONAL/UNION).
func (p *parser) parseTriplesBlock() ([]rdf.TriplePattern, error) {
	var triples []rdf.TriplePattern
	for !p.atPunct("}") && p.tok.kind != tokEOF {
		tp, err := p.parseTriple()
		if err != nil {
			return nil, err
		}
		triples = append(triples, tp)
		if p.atPunct(".") {
			p.advance()
		}
	}
	return triples, nil
}

func (p *parser) parseTriple() (rdf.TriplePattern, error) {
	s, err := p.parseTerm()
	if err != nil {
		return rdf.TriplePattern{}, err
	}
	var pred rdf.Term
	if p.tok.kind == tokA {
		pred = rdf.IRI(rdf.RDFType)
		p.advance()
	} else {
		pred, err = p.parseTerm()
		if err != nil {
			return rdf.TriplePattern{}, err
		}
	}
	o, err := p.parseTerm()
	if err != nil {
		return rdf.TriplePattern{}, err
	}
	return rdf.TriplePattern{Subject: s, Predicate: pred, Object: o}, nil
}

func (p *parser) parseTerm() (rdf.Term, error) {
	switch p.tok.kind {
	case tokVar:
		v := rdf.Var(p.tok.text)
		p.advance()
		return v, nil
	case tokIRI:
		t := rdf.IRI(p.tok.text)
		p.advance()
		return t, nil
	case tokPrefixedName:
		iri, err := p.expandPrefixedName(p.tok.text)
		if err != nil {
			return rdf.Term{}, err
		}
		p.advance()
		return rdf.IRI(iri), nil
	case tokA:
		p.advance()
		return rdf.IRI(rdf.RDFType), nil
	case tokString:
		tok := p.tok
		p.advance()
		switch {
		case tok.datatype != "":
			dt := tok.datatype
			if strings.Contains(dt, ":") && !strings.HasPrefix(dt, "http") {
				expanded, err := p.expandPrefixedName(dt)
				if err == nil {
					dt = expanded
				}
			}
			return rdf.TypedLiteral(tok.text, dt), nil
		case tok.lang != "":
			return rdf.LangLiteral(tok.text, tok.lang), nil
		default:
			return rdf.Literal(tok.text), nil
		}
	case tokNumber:
		lit := rdf.TypedLiteral(p.tok.text, "http://www.w3.org/2001/XMLSchema#decimal")
		p.advance()
		return lit, nil
	case tokPunct:
		if p.tok.text == "[" {
			// anonymous blank node "[]" used as a term placeholder: rare in
			// federated queries, treated as a fresh unconstrained variable.
			p.advance()
			if err := p.expectPunct("]"); err != nil {
				return rdf.Term{}, err
			}
			return rdf.Var("_anon"), nil
		}
	}
	return rdf.Term{}, parseErrorf(p.lex.pos, "expected a term, found %q", p.tok.text)
}

func (p *parser) expandPrefixedName(name string) (string, error) {
	parts := strings.SplitN(name, ":", 2)
	if len(parts) != 2 {
		return "", parseErrorf(p.lex.pos, "malformed prefixed name %q", name)
	}
	base, ok := p.prefixes[parts[0]]
	if !ok {
		return "", parseErrorf(p.lex.pos, "undeclared prefix %q", parts[0])
	}
	return base + parts[1], nil
}

func allBodyVars(n *rdf.AlgebraNode) []string {
	seen := make(map[string]bool)
	var vars []string
	for _, tp := range rdf.AllTriples(n) {
		for _, v := range tp.Variables() {
			if !seen[v] {
				seen[v] = true
				vars = append(vars, v)
			}
		}
	}
	return vars
}
