package exec

import (
	"context"
	"fmt"

	"github.com/PLATOONProject/Awudima-FQP/batch"
	"github.com/PLATOONProject/Awudima-FQP/internal"
	"github.com/PLATOONProject/Awudima-FQP/rdf"
)

// joinKey builds a comparable key for a binding over the given join
// variables, using internal.ToArray so keys of any arity stay hashable
// without reflection at every probe.
func joinKey(b rdf.Binding, vars []string) interface{} {
	parts := make([]interface{}, len(vars))
	for i, v := range vars {
		val, ok := b[v]
		if !ok {
			parts[i] = nil
			continue
		}
		parts[i] = fmt.Sprintf("%s\x1e%s\x1e%s\x1e%s", val.Type, val.Value, val.Datatype, val.Lang)
	}
	return internal.ToArray(parts)
}

// sharedVars returns the variables common to both sides of a join, which
// become the join key.
func sharedVars(left, right []string) []string {
	inLeft := make(map[string]bool, len(left))
	for _, v := range left {
		inLeft[v] = true
	}
	var shared []string
	for _, v := range right {
		if inLeft[v] {
			shared = append(shared, v)
		}
	}
	return shared
}

// runSymmetricHashJoin implements the two-sided hash join: tuples from
// either side probe the other side's table as they arrive and are
// inserted into their own, so results stream out as soon as both sides
// have seen a matching key. EOF on one side doesn't stop consumption of
// the other; EOF propagates downstream only once both sides are done.
func runSymmetricHashJoin(ctx context.Context, left, right Queue, out Queue, joinVars []string, optional bool) {
	defer out.Close()

	leftTable := make(map[interface{}][]rdf.Binding)
	rightTable := make(map[interface{}][]rdf.Binding)
	leftMatched := make(map[interface{}]map[int]bool)

	leftOpen, rightOpen := true, true
	leftSeenForKey := func(k interface{}, idx int) {
		if leftMatched[k] == nil {
			leftMatched[k] = make(map[int]bool)
		}
		leftMatched[k][idx] = true
	}

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
			if item.Err != nil {
				out.Send(ctx, item)
				continue
			}
			k := joinKey(item.Binding, joinVars)
			idx := len(leftTable[k])
			leftTable[k] = append(leftTable[k], item.Binding)
			matched := false
			for _, rb := range rightTable[k] {
				if !out.Send(ctx, Item{Binding: item.Binding.Merge(rb)}) {
					return
				}
				matched = true
			}
			if matched {
				leftSeenForKey(k, idx)
			}
		case item, ok := <-rightCh:
			if !ok {
				rightOpen = false
				continue
			}
			if item.Err != nil {
				out.Send(ctx, item)
				continue
			}
			k := joinKey(item.Binding, joinVars)
			rightTable[k] = append(rightTable[k], item.Binding)
			for idx, lb := range leftTable[k] {
				if !out.Send(ctx, Item{Binding: lb.Merge(item.Binding)}) {
					return
				}
				leftSeenForKey(k, idx)
			}
		}
	}
	if optional {
		emitUnmatchedLeft(ctx, leftTable, leftMatched, out)
	}
}

func emitUnmatchedLeft(ctx context.Context, leftTable map[interface{}][]rdf.Binding, matched map[interface{}]map[int]bool, out Queue) {
	for k, bindings := range leftTable {
		for idx, b := range bindings {
			if matched[k] != nil && matched[k][idx] {
				continue
			}
			if !out.Send(ctx, Item{Binding: b}) {
				return
			}
		}
	}
	// Guard against calling this twice (once per side closing in the
	// optional case): clear the table so a second call is a no-op.
	for k := range leftTable {
		delete(leftTable, k)
	}
}

// BindProbe instantiates and executes the inner subtree of a bind-hash
// join for one distinct outer binding, streaming its results into out.
// Engine.bindProbe builds one from the join's Right child and its
// Rebinder; runBindHashJoin only drives it.
type BindProbe func(ctx context.Context, outerKey rdf.Binding, out Queue)

// runBindHashJoin drains the outer side, accumulating distinct bindings
// over the join variables, then for each distinct key invokes probe to
// instantiate and run the inner subtree, merging its results with the
// outer binding(s) that produced the key.
func runBindHashJoin(ctx context.Context, outer Queue, out Queue, joinVars []string, probe BindProbe, optional bool, concurrency int) {
	defer out.Close()

	// Every probe this call spawns shares one batching context, so a SQL
	// backend wrapper can fold concurrently issued single-key probes into
	// one combined query instead of issuing one round trip per key.
	if !batch.HasBatching(ctx) {
		ctx = batch.WithBatching(ctx)
	}

	type group struct {
		key      interface{}
		outerRow rdf.Binding
		outers   []rdf.Binding
	}
	groups := make(map[interface{}]*group)
	var order []interface{}

	for item := range outer {
		if item.Err != nil {
			out.Send(ctx, item)
			continue
		}
		k := joinKey(item.Binding, joinVars)
		g, ok := groups[k]
		if !ok {
			g = &group{key: k, outerRow: item.Binding}
			groups[k] = g
			order = append(order, k)
		}
		g.outers = append(g.outers, item.Binding)
	}

	sem := makeSemaphore(maxInt(1, concurrency))
	for _, k := range order {
		select {
		case <-ctx.Done():
			return
		default:
		}
		g := groups[k]
		sem.acquire()
		inner := NewQueue(16)
		go func(g *group) {
			defer sem.release()
			probe(ctx, g.outerRow, inner)
		}(g)

		matched := false
		for item := range inner {
			if item.Err != nil {
				out.Send(ctx, item)
				continue
			}
			for _, ob := range g.outers {
				if !ob.Compatible(item.Binding) {
					continue
				}
				matched = true
				if !out.Send(ctx, Item{Binding: ob.Merge(item.Binding)}) {
					return
				}
			}
		}
		if optional && !matched {
			for _, ob := range g.outers {
				if !out.Send(ctx, Item{Binding: ob}) {
					return
				}
			}
		}
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
