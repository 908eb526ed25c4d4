package translate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PLATOONProject/Awudima-FQP/catalog"
	"github.com/PLATOONProject/Awudima-FQP/decompose"
	"github.com/PLATOONProject/Awudima-FQP/rdf"
)

const sparqlCatalogJSON = `{
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

func TestSPARQLTranslateBuildsSelect(t *testing.T) {
	fed, err := catalog.LoadJSON([]byte(sparqlCatalogJSON))
	require.NoError(t, err)

	svc := &decompose.Service{
		RootVar:    "s",
		DataSource: "E",
		Triples: []rdf.TriplePattern{
			{Subject: rdf.Var("s"), Predicate: rdf.IRI("http://ex.org/p"), Object: rdf.Var("o")},
		},
		ProducedVars: []string{"s", "o"},
	}

	out, err := (Translator{}).Translate(svc, fed, []string{"s", "o"})
	require.NoError(t, err)
	assert.Contains(t, out.QueryText, "SELECT ?s ?o WHERE")
	assert.Contains(t, out.QueryText, "<http://ex.org/p>")
	assert.Equal(t, "sparqlEndpoint", out.BackendKind)
}

func TestSPARQLRebindSubstitutesBoundValue(t *testing.T) {
	fed, err := catalog.LoadJSON([]byte(sparqlCatalogJSON))
	require.NoError(t, err)

	svc := &decompose.Service{
		RootVar:    "s",
		DataSource: "E",
		Triples: []rdf.TriplePattern{
			{Subject: rdf.Var("s"), Predicate: rdf.IRI("http://ex.org/p"), Object: rdf.Var("o")},
		},
		ProducedVars: []string{"s", "o"},
	}

	rebind := (Translator{}).Rebind(svc, fed, []string{"s", "o"}, "s")
	plan, err := rebind(nil, rdf.Binding{"s": rdf.BoundValue{Type: rdf.BoundURI, Value: "http://ex.org/inst/1"}})
	require.NoError(t, err)
	require.True(t, plan.IsLeaf)
	assert.Contains(t, plan.Service.QueryText, "<http://ex.org/inst/1>")
}

const mongoCatalogJSON = `{
  "fedId": "f1", "name": "f1", "desc": "",
  "sources": {
    "M": {
      "id": "M", "url": "mongodb://m", "kind": "mongoDB-JSONLD-flat",
      "params": {
        "prefixes": {"ex": "http://ex.org/"},
        "predicates": {
          "http://ex.org/name": {"field": "name"},
          "http://ex.org/measuredAt": {"field": "measuredAt", "type": "http://www.w3.org/2001/XMLSchema#dateTime"}
        }
      }
    }
  },
  "rdfmts": [
    {
      "mt_id": "http://ex.org/C",
      "predicates": [{"pred_id": "http://ex.org/name"}],
      "datasources": ["M"],
      "predicate_sources": {"M": ["http://ex.org/name"]}
    }
  ]
}`

func TestMongoTranslateBuildsPipeline(t *testing.T) {
	fed, err := catalog.LoadJSON([]byte(mongoCatalogJSON))
	require.NoError(t, err)

	svc := &decompose.Service{
		RootVar:    "s",
		DataSource: "M",
		Molecules:  []catalog.MtID{"http://ex.org/C"},
		Triples: []rdf.TriplePattern{
			{Subject: rdf.Var("s"), Predicate: rdf.IRI("http://ex.org/name"), Object: rdf.Var("n")},
		},
		ProducedVars: []string{"s", "n"},
	}

	out, err := (Translator{}).Translate(svc, fed, []string{"s", "n"})
	require.NoError(t, err)
	require.Len(t, out.Pipeline, 3)

	unwind, ok := out.Pipeline[0]["$unwind"].(string)
	require.True(t, ok)
	assert.Equal(t, "$@graph", unwind)

	match, ok := out.Pipeline[1]["$match"].(map[string]interface{})
	require.True(t, ok)
	typeMatch, ok := match["@graph.@type"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, []interface{}{"ex:C"}, typeMatch["$in"])

	project, ok := out.Pipeline[2]["$project"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "$@graph.@id", project["s"])
	assert.Equal(t, "$@graph.name", project["n"])
}

func TestMongoTranslateCastsDateFilter(t *testing.T) {
	fed, err := catalog.LoadJSON([]byte(mongoCatalogJSON))
	require.NoError(t, err)

	svc := &decompose.Service{
		RootVar:    "s",
		DataSource: "M",
		Molecules:  []catalog.MtID{"http://ex.org/C"},
		Triples: []rdf.TriplePattern{
			{Subject: rdf.Var("s"), Predicate: rdf.IRI("http://ex.org/measuredAt"), Object: rdf.Var("t")},
		},
		Filters: []*rdf.FilterExpr{
			rdf.Binary(rdf.OpGt, rdf.Leaf(rdf.Var("t")), rdf.Leaf(rdf.TypedLiteral("2021-06-07T00:00:00Z", "http://www.w3.org/2001/XMLSchema#dateTime"))),
		},
		ProducedVars: []string{"s", "t"},
	}

	out, err := (Translator{}).Translate(svc, fed, []string{"s", "t"})
	require.NoError(t, err)
	require.Len(t, out.Pipeline, 5)

	addFields, ok := out.Pipeline[2]["$addFields"].(map[string]interface{})
	require.True(t, ok)
	cast, ok := addFields["cmp_t"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "$@graph.measuredAt", cast["$toDate"])

	match, ok := out.Pipeline[3]["$match"].(map[string]interface{})
	require.True(t, ok)
	expr, ok := match["$expr"].(map[string]interface{})
	require.True(t, ok)
	gt, ok := expr["$gt"].([]interface{})
	require.True(t, ok)
	assert.Equal(t, "$cmp_t", gt[0])
}
