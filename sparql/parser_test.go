package sparql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PLATOONProject/Awudima-FQP/rdf"
)

func TestParseSimpleSelect(t *testing.T) {
	q := `PREFIX foaf: <http://xmlns.com/foaf/0.1/>
	SELECT ?name WHERE { ?p foaf:name ?name . }`

	root, err := Parse(q)
	require.NoError(t, err)
	assert.Equal(t, rdf.AlgebraProject, root.Kind)
	assert.Equal(t, []string{"name"}, root.ProjectVars)
	assert.Equal(t, rdf.FormSelect, root.Modifiers.Form)

	triples := rdf.AllTriples(root)
	require.Len(t, triples, 1)
	assert.True(t, triples[0].Subject.IsVariable())
	assert.Equal(t, "http://xmlns.com/foaf/0.1/name", triples[0].Predicate.Value)
}

func TestParseSelectStarExpandsVars(t *testing.T) {
	root, err := Parse(`SELECT * WHERE { ?s <http://ex.org/p> ?o . }`)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"s", "o"}, root.ProjectVars)
}

func TestParseCrossSourceJoin(t *testing.T) {
	root, err := Parse(`SELECT ?x ?y WHERE { ?x <http://ex.org/p1> ?y . ?y <http://ex.org/p2> ?z . }`)
	require.NoError(t, err)
	triples := rdf.AllTriples(root)
	assert.Len(t, triples, 2)
}

func TestParseUnionOverCoveringSources(t *testing.T) {
	root, err := Parse(`SELECT ?s WHERE { { ?s <http://ex.org/p> ?o . } UNION { ?s <http://ex.org/q> ?o . } }`)
	require.NoError(t, err)
	body := root.Child
	require.Equal(t, rdf.AlgebraUnion, body.Kind)
	assert.Len(t, body.Children, 2)
}

func TestParseOptionalPreserved(t *testing.T) {
	root, err := Parse(`SELECT ?s ?o WHERE { ?s <http://ex.org/p> ?x . OPTIONAL { ?x <http://ex.org/q> ?o . } }`)
	require.NoError(t, err)
	body := root.Child
	require.Equal(t, rdf.AlgebraOptional, body.Kind)
	assert.NotNil(t, body.Child)
	assert.NotNil(t, body.OptionalChild)
}

func TestParseFilterPushdown(t *testing.T) {
	root, err := Parse(`SELECT ?s WHERE { ?s <http://ex.org/age> ?age . FILTER(?age > 18) }`)
	require.NoError(t, err)
	filters := rdf.AllFilters(root)
	require.Len(t, filters, 1)
	assert.Equal(t, rdf.OpGt, filters[0].Op)
	assert.ElementsMatch(t, []string{"age"}, filters[0].FreeVariables())
}

func TestParseLimitOffset(t *testing.T) {
	root, err := Parse(`SELECT ?s WHERE { ?s <http://ex.org/p> ?o . } LIMIT 10 OFFSET 5`)
	require.NoError(t, err)
	require.NotNil(t, root.Modifiers.Limit)
	require.NotNil(t, root.Modifiers.Offset)
	assert.Equal(t, 10, *root.Modifiers.Limit)
	assert.Equal(t, 5, *root.Modifiers.Offset)
}

func TestParseTypeShorthand(t *testing.T) {
	root, err := Parse(`SELECT ?s WHERE { ?s a <http://ex.org/Person> . }`)
	require.NoError(t, err)
	triples := rdf.AllTriples(root)
	require.Len(t, triples, 1)
	assert.True(t, rdf.IsTypePredicate(triples[0].Predicate))
}

func TestParseAsk(t *testing.T) {
	root, err := Parse(`ASK WHERE { ?s <http://ex.org/p> ?o . }`)
	require.NoError(t, err)
	assert.Equal(t, rdf.FormAsk, root.Modifiers.Form)
}

func TestParseConstruct(t *testing.T) {
	root, err := Parse(`CONSTRUCT { ?s <http://ex.org/knows> ?o . } WHERE { ?s <http://ex.org/p> ?o . }`)
	require.NoError(t, err)
	assert.Equal(t, rdf.FormConstruct, root.Modifiers.Form)
	require.Len(t, root.Modifiers.ConstructTemplate, 1)
}

func TestParseMalformedQueryReturnsParseError(t *testing.T) {
	_, err := Parse(`SELECT ?s WHERE { ?s <http://ex.org/p> }`)
	require.Error(t, err)
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
}

func TestParseDistinct(t *testing.T) {
	root, err := Parse(`SELECT DISTINCT ?s WHERE { ?s <http://ex.org/p> ?o . }`)
	require.NoError(t, err)
	assert.True(t, root.Modifiers.Distinct)
}
