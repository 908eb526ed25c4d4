package exec

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PLATOONProject/Awudima-FQP/rdf"
)

func uriVal(v string) rdf.BoundValue { return rdf.BoundValue{Type: rdf.BoundURI, Value: v} }

func collect(t *testing.T, q Queue) []rdf.Binding {
	t.Helper()
	var out []rdf.Binding
	timeout := time.After(2 * time.Second)
	for {
		select {
		case item, ok := <-q:
			if !ok {
				return out
			}
			require.NoError(t, item.Err)
			out = append(out, item.Binding)
		case <-timeout:
			t.Fatal("timed out waiting for queue")
		}
	}
}

func feed(q Queue, bindings ...rdf.Binding) {
	go func() {
		for _, b := range bindings {
			q <- Item{Binding: b}
		}
		q.Close()
	}()
}

func TestSymmetricHashJoinEmitsOnBothSides(t *testing.T) {
	left := NewQueue(4)
	right := NewQueue(4)
	out := NewQueue(4)

	feed(left, rdf.Binding{"x": uriVal("1"), "a": uriVal("A")})
	feed(right, rdf.Binding{"x": uriVal("1"), "b": uriVal("B")})

	runSymmetricHashJoin(context.Background(), left, right, out, []string{"x"}, false)

	rows := collect(t, out)
	require.Len(t, rows, 1)
	assert.Equal(t, "A", rows[0]["a"].Value)
	assert.Equal(t, "B", rows[0]["b"].Value)
}

func TestSymmetricHashJoinOptionalPreservesUnmatchedLeft(t *testing.T) {
	left := NewQueue(4)
	right := NewQueue(4)
	out := NewQueue(4)

	feed(left, rdf.Binding{"x": uriVal("1")}, rdf.Binding{"x": uriVal("2")})
	feed(right, rdf.Binding{"x": uriVal("1"), "o": uriVal("yes")})

	runSymmetricHashJoin(context.Background(), left, right, out, []string{"x"}, true)

	rows := collect(t, out)
	require.Len(t, rows, 2)
	sawUnmatched := false
	for _, r := range rows {
		if r["x"].Value == "2" {
			_, hasO := r["o"]
			assert.False(t, hasO)
			sawUnmatched = true
		}
	}
	assert.True(t, sawUnmatched)
}

func TestRunDistinctDropsDuplicates(t *testing.T) {
	in := NewQueue(4)
	out := NewQueue(4)
	feed(in, rdf.Binding{"x": uriVal("1")}, rdf.Binding{"x": uriVal("1")}, rdf.Binding{"x": uriVal("2")})

	runDistinct(context.Background(), in, out)

	rows := collect(t, out)
	assert.Len(t, rows, 2)
}

func TestRunLimitZeroClosesImmediately(t *testing.T) {
	in := NewQueue(4)
	out := NewQueue(4)
	feed(in, rdf.Binding{"x": uriVal("1")})

	runLimit(context.Background(), in, out, 0)

	rows := collect(t, out)
	assert.Empty(t, rows)
}

func TestRunLimitStopsAtN(t *testing.T) {
	in := NewQueue(8)
	out := NewQueue(8)
	feed(in, rdf.Binding{"x": uriVal("1")}, rdf.Binding{"x": uriVal("2")}, rdf.Binding{"x": uriVal("3")})

	runLimit(context.Background(), in, out, 2)

	rows := collect(t, out)
	assert.Len(t, rows, 2)
}

func TestRunProjectRestrictsVars(t *testing.T) {
	in := NewQueue(4)
	out := NewQueue(4)
	feed(in, rdf.Binding{"x": uriVal("1"), "y": uriVal("2")})

	runProject(context.Background(), in, out, []string{"x"})

	rows := collect(t, out)
	require.Len(t, rows, 1)
	_, hasY := rows[0]["y"]
	assert.False(t, hasY)
}

func TestBindHashJoinDistinctKeyProbing(t *testing.T) {
	outer := NewQueue(4)
	out := NewQueue(4)
	feed(outer, rdf.Binding{"x": uriVal("1")}, rdf.Binding{"x": uriVal("1")}, rdf.Binding{"x": uriVal("2")})

	var probedKeys []string
	probe := func(ctx context.Context, outerBinding rdf.Binding, pout Queue) {
		defer pout.Close()
		probedKeys = append(probedKeys, outerBinding["x"].Value)
		pout <- Item{Binding: rdf.Binding{"x": outerBinding["x"], "z": uriVal("matched-" + outerBinding["x"].Value)}}
	}

	runBindHashJoin(context.Background(), outer, out, []string{"x"}, probe, false, 4)

	rows := collect(t, out)
	assert.Len(t, rows, 3)
	assert.ElementsMatch(t, []string{"1", "2"}, probedKeys)
}

func TestEvalFilterNumericComparison(t *testing.T) {
	expr := rdf.Binary(rdf.OpGte, rdf.Leaf(rdf.Var("t")), rdf.Leaf(rdf.TypedLiteral("5", "xsd:integer")))
	b := rdf.Binding{"t": {Type: rdf.BoundLiteral, Value: "7"}}
	ok, err := evalFilter(expr, b)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEvalFilterUnboundVariableIsFalse(t *testing.T) {
	expr := rdf.Binary(rdf.OpEq, rdf.Leaf(rdf.Var("missing")), rdf.Leaf(rdf.Literal("x")))
	ok, err := evalFilter(expr, rdf.Binding{})
	require.NoError(t, err)
	assert.False(t, ok)
}
