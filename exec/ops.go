package exec

import (
	"context"

	"github.com/PLATOONProject/Awudima-FQP/rdf"
)

// runUnion forwards tuples from both inputs with no ordering guarantee,
// closing out only once both inputs have closed.
func runUnion(ctx context.Context, left, right Queue, out Queue) {
	defer out.Close()
	leftOpen, rightOpen := true, true
	for leftOpen || rightOpen {
		var leftCh, rightCh Queue
		if leftOpen {
			leftCh = left
		}
		if rightOpen {
			rightCh = right
		}
		select {
		case <-ctx.Done():
			return
		case item, ok := <-leftCh:
			if !ok {
				leftOpen = false
				continue
			}
			if !out.Send(ctx, item) {
				return
			}
		case item, ok := <-rightCh:
			if !ok {
				rightOpen = false
				continue
			}
			if !out.Send(ctx, item) {
				return
			}
		}
	}
}

// runFilter evaluates expr over each binding from in, forwarding only
// matches.
func runFilter(ctx context.Context, in Queue, out Queue, expr *rdf.FilterExpr) {
	defer out.Close()
	for item := range in {
		if item.Err != nil {
			if !out.Send(ctx, item) {
				return
			}
			continue
		}
		ok, err := evalFilter(expr, item.Binding)
		if err != nil {
			if !out.Send(ctx, Item{Err: err}) {
				return
			}
			continue
		}
		if !ok {
			continue
		}
		if !out.Send(ctx, item) {
			return
		}
	}
}

// runProject restricts each binding to vars.
func runProject(ctx context.Context, in Queue, out Queue, vars []string) {
	defer out.Close()
	for item := range in {
		if item.Err != nil {
			if !out.Send(ctx, item) {
				return
			}
			continue
		}
		projected := Item{Binding: item.Binding.Project(vars)}
		if !out.Send(ctx, projected) {
			return
		}
	}
}

// runDistinct deduplicates bindings by tuple equality. Output set equals
// input set; output cardinality never exceeds input cardinality.
func runDistinct(ctx context.Context, in Queue, out Queue) {
	defer out.Close()
	seen := make(map[string]bool)
	for item := range in {
		if item.Err != nil {
			if !out.Send(ctx, item) {
				return
			}
			continue
		}
		key := item.Binding.TupleKey()
		if seen[key] {
			continue
		}
		seen[key] = true
		if !out.Send(ctx, item) {
			return
		}
	}
}

// runLimit passes through at most n tuples in arrival order, then drains
// and discards the rest of in so its producer is not blocked forever. An
// n of zero yields EOF immediately and drains in in the background.
func runLimit(ctx context.Context, in Queue, out Queue, n int) {
	defer out.Close()
	if n <= 0 {
		go in.Drain()
		return
	}
	count := 0
	for item := range in {
		if item.Err != nil {
			if !out.Send(ctx, item) {
				go in.Drain()
				return
			}
			continue
		}
		if !out.Send(ctx, item) {
			go in.Drain()
			return
		}
		count++
		if count >= n {
			go in.Drain()
			return
		}
	}
}

// runOffset drops the first n tuples, forwarding the rest.
func runOffset(ctx context.Context, in Queue, out Queue, n int) {
	defer out.Close()
	skipped := 0
	for item := range in {
		if item.Err != nil {
			if !out.Send(ctx, item) {
				return
			}
			continue
		}
		if skipped < n {
			skipped++
			continue
		}
		if !out.Send(ctx, item) {
			return
		}
	}
}

// AskResult is the terminal value an ASK query form produces: whether any
// binding reached the root.
type AskResult struct {
	Matched bool
}

// RunAsk consumes in until the first binding (or EOF), reporting whether
// any row was seen, then drains the rest so the producer isn't stuck.
func RunAsk(in Queue) AskResult {
	for item := range in {
		if item.Err != nil {
			continue
		}
		go in.Drain()
		return AskResult{Matched: true}
	}
	return AskResult{Matched: false}
}

// ConstructTriple is one instantiated triple produced by a CONSTRUCT
// template against a binding.
type ConstructTriple struct {
	Subject, Predicate, Object rdf.Term
}

// RunConstruct instantiates template against every binding from in,
// skipping a triple whose pattern references a variable the binding
// doesn't have.
func RunConstruct(ctx context.Context, in Queue, out chan ConstructTriple, template []rdf.TriplePattern) {
	defer close(out)
	for item := range in {
		if item.Err != nil {
			continue
		}
		for _, tp := range template {
			s, ok1 := instantiate(tp.Subject, item.Binding)
			p, ok2 := instantiate(tp.Predicate, item.Binding)
			o, ok3 := instantiate(tp.Object, item.Binding)
			if !ok1 || !ok2 || !ok3 {
				continue
			}
			select {
			case out <- ConstructTriple{Subject: s, Predicate: p, Object: o}:
			case <-ctx.Done():
				return
			}
		}
	}
}

func instantiate(t rdf.Term, b rdf.Binding) (rdf.Term, bool) {
	if !t.IsVariable() {
		return t, true
	}
	val, ok := b[t.Value]
	if !ok {
		return rdf.Term{}, false
	}
	switch val.Type {
	case rdf.BoundURI:
		return rdf.IRI(val.Value), true
	case rdf.BoundBNode:
		return rdf.BlankNode(val.Value), true
	default:
		if val.Datatype != "" {
			return rdf.TypedLiteral(val.Value, val.Datatype), true
		}
		if val.Lang != "" {
			return rdf.LangLiteral(val.Value, val.Lang), true
		}
		return rdf.Literal(val.Value), true
	}
}
