package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMoleculeMergeUnionsPredicatesAndSources(t *testing.T) {
	a := newMolecule("http://ex.org/City")
	a.Predicates["http://ex.org/name"] = &Predicate{ID: "http://ex.org/name", Cardinality: 10}
	a.DataSources["sql1"] = true
	a.PredicateSources["sql1"] = map[PredicateID]bool{"http://ex.org/name": true}

	b := newMolecule("http://ex.org/City")
	b.Predicates["http://ex.org/country"] = &Predicate{ID: "http://ex.org/country", Cardinality: 5}
	b.DataSources["sparql1"] = true
	b.PredicateSources["sparql1"] = map[PredicateID]bool{"http://ex.org/country": true}

	merged := a.Merge(b)

	assert.True(t, merged.HasPredicate("http://ex.org/name"))
	assert.True(t, merged.HasPredicate("http://ex.org/country"))
	assert.True(t, merged.DataSources["sql1"])
	assert.True(t, merged.DataSources["sparql1"])
	assert.True(t, merged.CoversPredicates("sql1", []PredicateID{"http://ex.org/name"}))
	assert.False(t, merged.CoversPredicates("sql1", []PredicateID{"http://ex.org/country"}))
}

func TestMoleculeMergePanicsOnMismatchedID(t *testing.T) {
	a := newMolecule("http://ex.org/City")
	b := newMolecule("http://ex.org/Country")
	assert.Panics(t, func() { a.Merge(b) })
}

func TestFederationAddMoleculeMergesOnDuplicateID(t *testing.T) {
	fed := New("fed1", "Test", "")
	m1 := newMolecule("http://ex.org/City")
	m1.Predicates["http://ex.org/name"] = &Predicate{ID: "http://ex.org/name"}
	fed.AddMolecule(m1)

	m2 := newMolecule("http://ex.org/City")
	m2.Predicates["http://ex.org/pop"] = &Predicate{ID: "http://ex.org/pop"}
	fed.AddMolecule(m2)

	got, ok := fed.Molecule("http://ex.org/City")
	require.True(t, ok)
	assert.True(t, got.HasPredicate("http://ex.org/name"))
	assert.True(t, got.HasPredicate("http://ex.org/pop"))
}

func TestPredicateIndex(t *testing.T) {
	fed := New("fed1", "Test", "")
	city := newMolecule("http://ex.org/City")
	city.Predicates["http://ex.org/name"] = &Predicate{ID: "http://ex.org/name"}
	fed.AddMolecule(city)

	country := newMolecule("http://ex.org/Country")
	country.Predicates["http://ex.org/name"] = &Predicate{ID: "http://ex.org/name"}
	fed.AddMolecule(country)

	mts := fed.MoleculesForPredicate("http://ex.org/name")
	assert.ElementsMatch(t, []MtID{"http://ex.org/City", "http://ex.org/Country"}, mts)

	// Adding a new molecule invalidates the cached index.
	temp := newMolecule("http://ex.org/Temp")
	temp.Predicates["http://ex.org/name"] = &Predicate{ID: "http://ex.org/name"}
	fed.AddMolecule(temp)
	assert.Len(t, fed.MoleculesForPredicate("http://ex.org/name"), 3)
}

func TestValidateCatchesBadPredicateSource(t *testing.T) {
	fed := New("fed1", "Test", "")
	m := newMolecule("http://ex.org/City")
	m.PredicateSources["sql1"] = map[PredicateID]bool{"http://ex.org/name": true}
	fed.AddMolecule(m)

	err := fed.Validate()
	require.Error(t, err)
	verr, ok := err.(*ValidationError)
	require.True(t, ok)
	assert.NotEmpty(t, verr.Problems)
}

func TestLoadJSONRoundTrip(t *testing.T) {
	doc := []byte(`{
		"fedId": "fed1",
		"name": "Test Federation",
		"desc": "",
		"sources": {
			"sql1": {"id": "sql1", "url": "tcp(127.0.0.1:3306)/db", "kind": "mySQL"},
			"sparql1": {"id": "sparql1", "url": "http://example.org/sparql", "kind": "sparqlEndpoint"}
		},
		"rdfmts": [
			{
				"mt_id": "http://ex.org/City",
				"predicates": [
					{"pred_id": "http://ex.org/name", "cardinality": 100}
				],
				"datasources": ["sql1"],
				"predicate_sources": {"sql1": ["http://ex.org/name"]}
			}
		]
	}`)

	fed, err := LoadJSON(doc)
	require.NoError(t, err)
	assert.Equal(t, "fed1", fed.FedID)

	src, ok := fed.Source("sql1")
	require.True(t, ok)
	assert.Equal(t, SQLMySQL, src.Kind)

	mol, ok := fed.Molecule("http://ex.org/City")
	require.True(t, ok)
	assert.True(t, mol.HasPredicate("http://ex.org/name"))
	assert.True(t, mol.CoversPredicates("sql1", []PredicateID{"http://ex.org/name"}))

	out, err := fed.MarshalJSON()
	require.NoError(t, err)

	fed2, err := LoadJSON(out)
	require.NoError(t, err)
	assert.Equal(t, fed.FedID, fed2.FedID)
	_, ok = fed2.Molecule("http://ex.org/City")
	assert.True(t, ok)
}

func TestLoadJSONRejectsUnknownKind(t *testing.T) {
	_, err := LoadJSON([]byte(`{"fedId":"f","sources":{"s1":{"id":"s1","kind":"carrier-pigeon"}},"rdfmts":[]}`))
	require.Error(t, err)
	var cfgErr *ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestLoadJSONRejectsMissingFedID(t *testing.T) {
	_, err := LoadJSON([]byte(`{"sources":{},"rdfmts":[]}`))
	require.Error(t, err)
}
