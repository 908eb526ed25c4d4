package backend

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/PLATOONProject/Awudima-FQP/rdf"
)

func TestRowToBindingSkipsNullAndMissing(t *testing.T) {
	tmpl := rdf.ResultTemplate{Variables: []rdf.VariableTemplate{
		{Name: "s", Type: rdf.BoundURI},
		{Name: "o", Type: rdf.BoundLiteral},
		{Name: "missing", Type: rdf.BoundLiteral},
	}}
	row := map[string]string{"s": "http://ex.org/1", "o": "null"}

	b := rowToBinding(row, tmpl, "src1")

	assert.Contains(t, b, "s")
	assert.NotContains(t, b, "o")
	assert.NotContains(t, b, "missing")
	assert.Equal(t, []string{"src1"}, b["s"].Source)
}

func TestRowToBindingBNodePrefix(t *testing.T) {
	tmpl := rdf.ResultTemplate{Variables: []rdf.VariableTemplate{{Name: "b", Type: rdf.BoundBNode}}}
	b := rowToBinding(map[string]string{"b": "_:n1"}, tmpl, "src1")
	assert.Equal(t, "n1", b["b"].Value)
}
