package translate

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/PLATOONProject/Awudima-FQP/catalog"
	"github.com/PLATOONProject/Awudima-FQP/decompose"
	"github.com/PLATOONProject/Awudima-FQP/exec"
	"github.com/PLATOONProject/Awudima-FQP/rdf"
)

// SPARQL translates a decomposed leaf service bound for a SPARQL-endpoint
// data source into query text, mirroring how the decomposer's Service
// already carries everything a SELECT needs: triples, filters, and the
// variables to project.
type SPARQL struct{}

// Translate builds a `SELECT ... WHERE { triples FILTER(...) }` query text
// over svc's triples and filters, projecting exactly vars.
func (SPARQL) Translate(svc *decompose.Service, fed *catalog.Federation, vars []string) (*exec.Service, error) {
	return &exec.Service{
		DataSource:  string(svc.DataSource),
		BackendKind: string(catalog.SPARQLEndpoint),
		QueryText:   buildSelect(svc, vars, nil),
		Template:    templateFor(vars),
		Vars:        vars,
	}, nil
}

// Rebind returns a bind-hash-join inner closure: for each outer binding,
// the join variable's value replaces that variable as a constant term in
// the query text (or, if absent, the query falls back to its unbound form
// and relies on the execution-side hash probe to discard mismatches).
func (SPARQL) Rebind(svc *decompose.Service, fed *catalog.Federation, vars []string, bindVar string) func(ctx context.Context, outer rdf.Binding) (*exec.Plan, error) {
	return func(ctx context.Context, outer rdf.Binding) (*exec.Plan, error) {
		val, ok := outer[bindVar]
		if !ok {
			s, err := (SPARQL{}).Translate(svc, fed, vars)
			if err != nil {
				return nil, err
			}
			return exec.Leaf(s), nil
		}
		svc2 := &exec.Service{
			DataSource:  string(svc.DataSource),
			BackendKind: string(catalog.SPARQLEndpoint),
			QueryText:   buildSelect(svc, vars, map[string]rdf.BoundValue{bindVar: val}),
			Template:    templateFor(vars),
			Vars:        vars,
		}
		return exec.Leaf(svc2), nil
	}
}

// buildSelect renders svc's triples and filters as a SPARQL SELECT body.
// When bound is non-nil, the named variables are rewritten to the literal
// term their bound value denotes instead of left free, folding a
// bind-hash-join outer value directly into the inner query text.
func buildSelect(svc *decompose.Service, vars []string, bound map[string]rdf.BoundValue) string {
	var b strings.Builder
	b.WriteString("SELECT ")
	for _, v := range vars {
		b.WriteString("?")
		b.WriteString(v)
		b.WriteString(" ")
	}
	b.WriteString("WHERE { ")
	for _, t := range svc.Triples {
		b.WriteString(termText(t.Subject, bound))
		b.WriteString(" ")
		b.WriteString(termText(t.Predicate, bound))
		b.WriteString(" ")
		b.WriteString(termText(t.Object, bound))
		b.WriteString(" . ")
	}
	for _, f := range svc.Filters {
		b.WriteString("FILTER(")
		b.WriteString(exprText(f))
		b.WriteString(") ")
	}
	b.WriteString("}")
	return b.String()
}

func termText(t rdf.Term, bound map[string]rdf.BoundValue) string {
	if t.IsVariable() {
		if val, ok := bound[t.Value]; ok {
			return boundValueText(val)
		}
		return "?" + t.Value
	}
	return t.String()
}

func boundValueText(v rdf.BoundValue) string {
	switch v.Type {
	case rdf.BoundURI:
		return "<" + v.Value + ">"
	case rdf.BoundBNode:
		return "_:" + v.Value
	default:
		switch {
		case v.Datatype != "":
			return strconv.Quote(v.Value) + "^^<" + v.Datatype + ">"
		case v.Lang != "":
			return strconv.Quote(v.Value) + "@" + v.Lang
		default:
			return strconv.Quote(v.Value)
		}
	}
}

func exprText(f *rdf.FilterExpr) string {
	switch f.Op {
	case rdf.OpTerm:
		return f.Term.String()
	case rdf.OpCall:
		args := make([]string, len(f.Args))
		for i, a := range f.Args {
			args[i] = exprText(a)
		}
		return fmt.Sprintf("%s(%s)", f.Name, strings.Join(args, ", "))
	case rdf.OpNot:
		return "!" + exprText(f.Args[0])
	default:
		return fmt.Sprintf("(%s %s %s)", exprText(f.Args[0]), f.Op, exprText(f.Args[1]))
	}
}

func templateFor(vars []string) rdf.ResultTemplate {
	sorted := append([]string(nil), vars...)
	sort.Strings(sorted)
	tmpl := rdf.ResultTemplate{Variables: make([]rdf.VariableTemplate, len(sorted))}
	for i, v := range sorted {
		tmpl.Variables[i] = rdf.VariableTemplate{Name: v, Type: rdf.BoundURI}
	}
	return tmpl
}
