package decompose

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PLATOONProject/Awudima-FQP/catalog"
	"github.com/PLATOONProject/Awudima-FQP/rdf"
	"github.com/PLATOONProject/Awudima-FQP/sparql"
)

// buildFederation constructs a small catalog via JSON loading so the test
// exercises the same path production configs go through.
func buildFederation(t *testing.T, jsonDoc string) *catalog.Federation {
	t.Helper()
	fed, err := catalog.LoadJSON([]byte(jsonDoc))
	require.NoError(t, err)
	return fed
}

const endpointPassthroughCatalog = `{
  "fedId": "f1", "name": "f1", "desc": "",
  "sources": {
    "E": {"id": "E", "url": "http://e.example/sparql", "kind": "sparqlEndpoint"}
  },
  "rdfmts": [
    {
      "mt_id": "http://ex.org/C",
      "predicates": [{"pred_id": "http://ex.org/p"}],
      "datasources": ["E"],
      "predicate_sources": {"E": ["http://ex.org/p"]}
    }
  ]
}`

func TestDecomposeEndpointPassthrough(t *testing.T) {
	fed := buildFederation(t, endpointPassthroughCatalog)
	root, err := sparql.Parse(`SELECT ?s ?o WHERE { ?s a <http://ex.org/C> . ?s <http://ex.org/p> ?o . }`)
	require.NoError(t, err)

	d, err := Decompose(root, fed, "")
	require.NoError(t, err)
	require.Equal(t, NodeService, d.Root.Kind)
	assert.Equal(t, catalog.DataSourceID("E"), d.Root.Service.DataSource)
	assert.Equal(t, "s", d.Root.Service.RootVar)
}

const crossSourceCatalog = `{
  "fedId": "f1", "name": "f1", "desc": "",
  "sources": {
    "E1": {"id": "E1", "url": "http://e1.example/sparql", "kind": "sparqlEndpoint"},
    "E2": {"id": "E2", "url": "jdbc://e2", "kind": "mySQL"}
  },
  "rdfmts": [
    {
      "mt_id": "http://ex.org/Country",
      "predicates": [{"pred_id": "http://ex.org/name"}],
      "datasources": ["E1"],
      "predicate_sources": {"E1": ["http://ex.org/name"]}
    },
    {
      "mt_id": "http://ex.org/City",
      "predicates": [
        {"pred_id": "http://ex.org/name"},
        {"pred_id": "http://ex.org/country", "ranges": ["http://ex.org/Country"]}
      ],
      "datasources": ["E2"],
      "predicate_sources": {"E2": ["http://ex.org/name", "http://ex.org/country"]}
    }
  ]
}`

const dualSourceCatalog = `{
  "fedId": "f1", "name": "f1", "desc": "",
  "sources": {
    "E1": {"id": "E1", "url": "http://e1.example/sparql", "kind": "sparqlEndpoint"},
    "E2": {"id": "E2", "url": "jdbc://e2", "kind": "mySQL"}
  },
  "rdfmts": [
    {
      "mt_id": "http://ex.org/C",
      "predicates": [{"pred_id": "http://ex.org/p"}],
      "datasources": ["E1", "E2"],
      "predicate_sources": {"E1": ["http://ex.org/p"], "E2": ["http://ex.org/p"]}
    }
  ]
}`

func TestDecomposeCollectionScopeHintRestrictsSource(t *testing.T) {
	fed := buildFederation(t, dualSourceCatalog)
	root, err := sparql.Parse(`SELECT ?s ?o WHERE { ?s a <http://ex.org/C> . ?s <http://ex.org/p> ?o . }`)
	require.NoError(t, err)

	all, err := Decompose(root, fed, "")
	require.NoError(t, err)
	require.Equal(t, NodeUnion, all.Root.Kind)
	require.Len(t, all.Root.Children, 2)

	scoped, err := Decompose(root, fed, "E2")
	require.NoError(t, err)
	require.Equal(t, NodeService, scoped.Root.Kind)
	assert.Equal(t, catalog.DataSourceID("E2"), scoped.Root.Service.DataSource)
}

func TestDecomposeCrossSourceJoin(t *testing.T) {
	fed := buildFederation(t, crossSourceCatalog)
	root, err := sparql.Parse(`SELECT ?cn ?cy WHERE {
		?x a <http://ex.org/City> ; <http://ex.org/name> ?cn ; <http://ex.org/country> ?y .
		?y a <http://ex.org/Country> ; <http://ex.org/name> ?cy .
	}`)
	require.NoError(t, err)

	d, err := Decompose(root, fed, "")
	require.NoError(t, err)
	require.Equal(t, NodeJoin, d.Root.Kind)
	require.Len(t, d.Root.Children, 2)

	var sawCity, sawCountry bool
	for _, c := range d.Root.Children {
		require.Equal(t, NodeService, c.Kind)
		switch c.Service.DataSource {
		case "E2":
			sawCity = true
		case "E1":
			sawCountry = true
		}
	}
	assert.True(t, sawCity)
	assert.True(t, sawCountry)
}

const unionCatalog = `{
  "fedId": "f1", "name": "f1", "desc": "",
  "sources": {
    "S1": {"id": "S1", "url": "http://s1.example/sparql", "kind": "sparqlEndpoint"},
    "S2": {"id": "S2", "url": "http://s2.example/sparql", "kind": "sparqlEndpoint"}
  },
  "rdfmts": [
    {
      "mt_id": "http://ex.org/C",
      "datasources": ["S1", "S2"],
      "predicate_sources": {"S1": [], "S2": []}
    }
  ]
}`

func TestDecomposeUnionOverCoveringSources(t *testing.T) {
	fed := buildFederation(t, unionCatalog)
	root, err := sparql.Parse(`SELECT ?s WHERE { ?s a <http://ex.org/C> . }`)
	require.NoError(t, err)

	d, err := Decompose(root, fed, "")
	require.NoError(t, err)
	require.Equal(t, NodeUnion, d.Root.Kind)
	assert.Len(t, d.Root.Children, 2)
}

func TestDecomposeOptionalPreservesChildWhenOptionalSideEmpty(t *testing.T) {
	fed := buildFederation(t, endpointPassthroughCatalog)
	root, err := sparql.Parse(`SELECT ?s ?o WHERE {
		?s a <http://ex.org/C> .
		OPTIONAL { ?s <http://ex.org/unknownPredicate> ?o . }
	}`)
	require.NoError(t, err)

	d, err := Decompose(root, fed, "")
	require.NoError(t, err)
	assert.Equal(t, NodeService, d.Root.Kind)
}

func TestDecomposeOptionalKeepsBothSidesWhenBothResolve(t *testing.T) {
	fed := buildFederation(t, endpointPassthroughCatalog)
	root, err := sparql.Parse(`SELECT ?s ?o WHERE {
		?s a <http://ex.org/C> .
		OPTIONAL { ?s <http://ex.org/p> ?o . }
	}`)
	require.NoError(t, err)

	d, err := Decompose(root, fed, "")
	require.NoError(t, err)
	require.Equal(t, NodeOptional, d.Root.Kind)
}

func TestDecomposeUnknownTypeYieldsRootError(t *testing.T) {
	fed := buildFederation(t, endpointPassthroughCatalog)
	root, err := sparql.Parse(`SELECT ?s WHERE { ?s a <http://ex.org/NoSuchClass> . }`)
	require.NoError(t, err)

	_, err = Decompose(root, fed, "")
	require.Error(t, err)
	var de *DecompositionError
	require.ErrorAs(t, err, &de)
}

func TestDecomposeFilterAttachedToSingleStar(t *testing.T) {
	fed := buildFederation(t, endpointPassthroughCatalog)
	root, err := sparql.Parse(`SELECT ?s ?o WHERE {
		?s a <http://ex.org/C> ; <http://ex.org/p> ?o .
		FILTER(?o > "10"^^<http://www.w3.org/2001/XMLSchema#integer>)
	}`)
	require.NoError(t, err)

	d, err := Decompose(root, fed, "")
	require.NoError(t, err)
	require.Equal(t, NodeService, d.Root.Kind)
	assert.Len(t, d.Root.Service.Filters, 1)
	assert.Empty(t, d.Root.Filters)
}

func TestDecomposeFilterBubblesWhenUnbound(t *testing.T) {
	fed := buildFederation(t, endpointPassthroughCatalog)
	root, err := sparql.Parse(`SELECT ?s ?o WHERE {
		?s a <http://ex.org/C> ; <http://ex.org/p> ?o .
		FILTER(?neverBound > "1"^^<http://www.w3.org/2001/XMLSchema#integer>)
	}`)
	require.NoError(t, err)

	d, err := Decompose(root, fed, "")
	require.NoError(t, err)
	assert.Len(t, d.Root.Filters, 1)
}

func TestCrossStarPruningRestrictsRange(t *testing.T) {
	fed := buildFederation(t, crossSourceCatalog)
	triples := []rdf.TriplePattern{
		{Subject: rdf.Var("x"), Predicate: rdf.IRI("http://ex.org/country"), Object: rdf.Var("y")},
	}
	stars := formStars(append(triples, rdf.TriplePattern{
		Subject: rdf.Var("y"), Predicate: rdf.IRI(rdf.RDFType), Object: rdf.IRI("http://ex.org/Country"),
	}))
	// star 0 is keyed "?x"; its only constant predicate is the edge
	// predicate, and the test sets its candidates to "all molecules" by hand
	// instead of matching them.
	stars[0].candidates = allMoleculeIDs(fed)
	matchMolecules(fed, stars[1])
	pruneCrossStarCandidates(fed, stars)
	assert.Contains(t, stars[1].candidates, catalog.MtID("http://ex.org/Country"))
}
