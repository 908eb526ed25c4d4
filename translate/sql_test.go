package translate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PLATOONProject/Awudima-FQP/catalog"
	"github.com/PLATOONProject/Awudima-FQP/decompose"
	"github.com/PLATOONProject/Awudima-FQP/rdf"
)

func buildSQLFederation(t *testing.T) *catalog.Federation {
	t.Helper()
	fed := catalog.New("f1", "f1", "")
	fed.AddSource(&catalog.DataSource{ID: "D", URL: "jdbc://d", Kind: catalog.SQLMySQL})

	nameTM := &catalog.TripleMap{
		ID:            "TM_name",
		DataSource:    "D",
		LogicalSource: catalog.LogicalSource{TableName: "names"},
		SubjectMap: catalog.SubjectMap{
			TermMap:  catalog.TermMap{Kind: catalog.TermTemplate, Template: "http://ex.org/person/{id}"},
			RDFTypes: []string{"http://ex.org/Person"},
		},
		PredicateObjectMaps: []catalog.PredicateObjectMap{
			{Predicate: "http://ex.org/name", Object: catalog.ObjectMap{Term: &catalog.TermMap{Kind: catalog.TermReference, Reference: "full_name"}}},
		},
	}
	ageTM := &catalog.TripleMap{
		ID:            "TM_age",
		DataSource:    "D",
		LogicalSource: catalog.LogicalSource{TableName: "ages"},
		SubjectMap: catalog.SubjectMap{
			TermMap:  catalog.TermMap{Kind: catalog.TermTemplate, Template: "http://ex.org/person/{id}"},
			RDFTypes: []string{"http://ex.org/Person"},
		},
		PredicateObjectMaps: []catalog.PredicateObjectMap{
			{Predicate: "http://ex.org/age", Object: catalog.ObjectMap{Term: &catalog.TermMap{Kind: catalog.TermReference, Reference: "years"}}},
		},
	}
	fed.Mappings.Add(nameTM)
	fed.Mappings.Add(ageTM)

	m := &catalog.Molecule{
		MtID:        "http://ex.org/Person",
		Predicates:  map[catalog.PredicateID]*catalog.Predicate{"http://ex.org/name": {ID: "http://ex.org/name"}, "http://ex.org/age": {ID: "http://ex.org/age"}},
		DataSources: map[catalog.DataSourceID]bool{"D": true},
		PredicateSources: map[catalog.DataSourceID]map[catalog.PredicateID]bool{
			"D": {"http://ex.org/name": true, "http://ex.org/age": true},
		},
		MappingIDs: map[catalog.DataSourceID]map[catalog.TripleMapID]map[string]bool{
			"D": {"TM_name": {}, "TM_age": {}},
		},
	}
	fed.AddMolecule(m)
	return fed
}

func TestSQLTranslateUnionsAcrossTripleMaps(t *testing.T) {
	fed := buildSQLFederation(t)

	svc := &decompose.Service{
		RootVar:    "s",
		DataSource: "D",
		Molecules:  []catalog.MtID{"http://ex.org/Person"},
		Predicates: []catalog.PredicateID{"http://ex.org/name", "http://ex.org/age"},
		Triples: []rdf.TriplePattern{
			{Subject: rdf.Var("s"), Predicate: rdf.IRI("http://ex.org/name"), Object: rdf.Var("n")},
			{Subject: rdf.Var("s"), Predicate: rdf.IRI("http://ex.org/age"), Object: rdf.Var("a")},
		},
		ProducedVars: []string{"s", "n", "a"},
	}

	out, err := (Translator{}).Translate(svc, fed, []string{"s", "n", "a"})
	require.NoError(t, err)
	assert.Contains(t, out.QueryText, "UNION")
	assert.Contains(t, out.QueryText, "LEFT JOIN")
	assert.Contains(t, out.QueryText, "names.full_name AS n")
	assert.Contains(t, out.QueryText, "ages.years AS a")
}

func TestSQLTranslateConstantSubjectBindsReverseTemplate(t *testing.T) {
	fed := buildSQLFederation(t)

	svc := &decompose.Service{
		RootVar:    "",
		DataSource: "D",
		Molecules:  []catalog.MtID{"http://ex.org/Person"},
		Predicates: []catalog.PredicateID{"http://ex.org/name"},
		Triples: []rdf.TriplePattern{
			{Subject: rdf.IRI("http://ex.org/person/42"), Predicate: rdf.IRI("http://ex.org/name"), Object: rdf.Var("n")},
		},
		ProducedVars: []string{"n"},
	}

	out, err := (Translator{}).Translate(svc, fed, []string{"n"})
	require.NoError(t, err)
	assert.Contains(t, out.QueryText, "names.id = '42'")
}

func TestSQLTranslateBindsRDFType(t *testing.T) {
	fed := buildSQLFederation(t)

	svc := &decompose.Service{
		RootVar:    "s",
		DataSource: "D",
		Molecules:  []catalog.MtID{"http://ex.org/Person"},
		Predicates: nil,
		Triples: []rdf.TriplePattern{
			{Subject: rdf.Var("s"), Predicate: rdf.IRI(rdf.RDFType), Object: rdf.Var("t")},
		},
		ProducedVars: []string{"s", "t"},
	}

	out, err := (Translator{}).Translate(svc, fed, []string{"s", "t"})
	require.NoError(t, err)
	assert.Contains(t, out.QueryText, "'http://ex.org/Person' AS t")
}
