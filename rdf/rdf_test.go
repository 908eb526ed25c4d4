package rdf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTermString(t *testing.T) {
	assert.Equal(t, "<http://ex.org/C>", IRI("http://ex.org/C").String())
	assert.Equal(t, "?s", Var("s").String())
	assert.Equal(t, "_:b0", BlankNode("b0").String())
	assert.Equal(t, `"2021-06-07T17:35:19Z"^^<http://www.w3.org/2001/XMLSchema#dateTime>`,
		TypedLiteral("2021-06-07T17:35:19Z", "http://www.w3.org/2001/XMLSchema#dateTime").String())
}

func TestIsConstant(t *testing.T) {
	require.True(t, IRI("http://ex.org/C").IsConstant())
	require.False(t, Var("s").IsConstant())
}

func TestTriplePatternSelectivity(t *testing.T) {
	highSubject := TriplePattern{Subject: IRI("http://ex.org/1"), Predicate: Var("p"), Object: Var("o")}
	assert.True(t, highSubject.HighSelective(), "constant subject alone should be high-selective")

	allVars := TriplePattern{Subject: Var("s"), Predicate: Var("p"), Object: Var("o")}
	assert.False(t, allVars.HighSelective())

	twoConstants := TriplePattern{Subject: Var("s"), Predicate: IRI("http://ex.org/p"), Object: IRI("http://ex.org/o")}
	assert.True(t, twoConstants.HighSelective())
}

func TestFilterFreeVariables(t *testing.T) {
	expr := Binary(OpAnd,
		Binary(OpGte, Leaf(Var("t")), Leaf(TypedLiteral("2021-06-07T17:35:19Z", "xsd:dateTime"))),
		Binary(OpLte, Leaf(Var("t")), Leaf(Var("bound"))),
	)
	assert.ElementsMatch(t, []string{"t", "bound"}, expr.FreeVariables())

	assert.True(t, expr.SubsetOf(map[string]bool{"t": true, "bound": true, "extra": true}))
	assert.False(t, expr.SubsetOf(map[string]bool{"t": true}))
}

func TestBindingProjectAndCompatible(t *testing.T) {
	b := Binding{
		"s": {Type: BoundURI, Value: "http://ex.org/1"},
		"o": {Type: BoundLiteral, Value: "42"},
	}
	projected := b.Project([]string{"s"})
	assert.Len(t, projected, 1)
	_, hasO := projected["o"]
	assert.False(t, hasO)

	other := Binding{"s": {Type: BoundURI, Value: "http://ex.org/1"}, "p": {Type: BoundLiteral, Value: "x"}}
	assert.True(t, b.Compatible(other))

	conflicting := Binding{"s": {Type: BoundURI, Value: "http://ex.org/2"}}
	assert.False(t, b.Compatible(conflicting))
}

func TestBindingKeyStable(t *testing.T) {
	b1 := Binding{"s": {Type: BoundURI, Value: "http://ex.org/1"}}
	b2 := Binding{"s": {Type: BoundURI, Value: "http://ex.org/1"}}
	assert.Equal(t, b1.Key([]string{"s"}), b2.Key([]string{"s"}))

	b3 := Binding{"s": {Type: BoundURI, Value: "http://ex.org/2"}}
	assert.NotEqual(t, b1.Key([]string{"s"}), b3.Key([]string{"s"}))
}
