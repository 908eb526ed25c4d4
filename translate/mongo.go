package translate

import (
	"context"
	"sort"
	"strings"

	"github.com/PLATOONProject/Awudima-FQP/catalog"
	"github.com/PLATOONProject/Awudima-FQP/decompose"
	"github.com/PLATOONProject/Awudima-FQP/exec"
	"github.com/PLATOONProject/Awudima-FQP/rdf"
)

// xsdDateTime is the XSD datatype IRI that triggers a $toDate cast before a
// filter's comparator is applied: Mongo stores JSON-LD-flat dates as plain
// strings, so a lexical comparison would sort them wrong.
const xsdDateTime = "http://www.w3.org/2001/XMLSchema#dateTime"

// mongoCollection is a JSON-LD-flat collection's catalog description: the
// compact-prefix dictionary used to render @type values, and the
// predicate-IRI -> field dictionary the collection's documents were
// flattened against.
type mongoCollection struct {
	prefixes   map[string]string
	predicates map[string]mongoField
}

type mongoField struct {
	name     string
	datatype string
}

// Mongo translates a decomposed leaf service bound for a JSON-LD-flat
// MongoDB collection into an aggregation pipeline over documents shaped
// {"@context": ..., "@graph": [{"@id", "@type", <field>: value, ...}]}:
// unwind the @graph array, match on the molecule's @type and any constant
// predicates, cast-and-compare date filters, then project the matched
// fields to their SPARQL variable names.
type Mongo struct{}

// Translate implements perKindTranslator.
func (Mongo) Translate(svc *decompose.Service, fed *catalog.Federation, vars []string) (*exec.Service, error) {
	coll, ok := mongoCollectionOf(fed, svc.DataSource)
	if !ok {
		return nil, translationErrorf("translate: no JSON-LD-flat catalog entry for data source %s", svc.DataSource)
	}
	pipeline := buildMongoPipeline(svc, fed, coll, vars, nil)
	return &exec.Service{
		DataSource:  string(svc.DataSource),
		BackendKind: string(catalog.MongoJSONLDFlat),
		Pipeline:    pipeline,
		Template:    templateFor(vars),
		Vars:        vars,
	}, nil
}

// Rebind folds the outer binding's value for bindVar into the @match
// stage as an extra equality condition on bindVar's field.
func (Mongo) Rebind(svc *decompose.Service, fed *catalog.Federation, vars []string, bindVar string) func(ctx context.Context, outer rdf.Binding) (*exec.Plan, error) {
	return func(ctx context.Context, outer rdf.Binding) (*exec.Plan, error) {
		coll, ok := mongoCollectionOf(fed, svc.DataSource)
		if !ok {
			return nil, translationErrorf("translate: no JSON-LD-flat catalog entry for data source %s", svc.DataSource)
		}
		var bound map[string]string
		if val, ok := outer[bindVar]; ok {
			bound = map[string]string{bindVar: val.Value}
		}
		pipeline := buildMongoPipeline(svc, fed, coll, vars, bound)
		return exec.Leaf(&exec.Service{
			DataSource:  string(svc.DataSource),
			BackendKind: string(catalog.MongoJSONLDFlat),
			Pipeline:    pipeline,
			Template:    templateFor(vars),
			Vars:        vars,
		}), nil
	}
}

// mongoCollectionOf reads a JSON-LD-flat data source's Params: a
// "prefixes" compact-prefix -> namespace-IRI dictionary, and a
// "predicates" predicate-IRI -> {"field", "type"} dictionary (type is an
// XSD datatype IRI for literal-valued fields, or "@id" for URI-valued
// ones).
func mongoCollectionOf(fed *catalog.Federation, ds catalog.DataSourceID) (*mongoCollection, bool) {
	src, ok := fed.Source(ds)
	if !ok {
		return nil, false
	}
	coll := &mongoCollection{prefixes: map[string]string{}, predicates: map[string]mongoField{}}
	if src.Params == nil {
		return coll, true
	}
	if raw, ok := src.Params["prefixes"].(map[string]interface{}); ok {
		for prefix, ns := range raw {
			if s, ok := ns.(string); ok {
				coll.prefixes[prefix] = s
			}
		}
	}
	if raw, ok := src.Params["predicates"].(map[string]interface{}); ok {
		for pred, v := range raw {
			entry, ok := v.(map[string]interface{})
			if !ok {
				continue
			}
			field := mongoField{}
			if s, ok := entry["field"].(string); ok {
				field.name = s
			}
			if s, ok := entry["type"].(string); ok {
				field.datatype = s
			}
			if field.name != "" {
				coll.predicates[pred] = field
			}
		}
	}
	return coll, true
}

// buildMongoPipeline assembles the variable->document-path bindings
// implied by svc's triples, then emits the stage sequence spec.md §4.3.3
// documents: $unwind the @graph array, $match on @type plus any constant
// predicates/bound values (with null/empty guards for the predicates that
// must resolve to a variable), a cast+compare pair of stages per filter,
// and a final $project restricting the output to vars.
func buildMongoPipeline(svc *decompose.Service, fed *catalog.Federation, coll *mongoCollection, vars []string, bound map[string]string) []map[string]interface{} {
	varPath := map[string]string{}
	if svc.RootVar != "" {
		varPath[svc.RootVar] = "@graph.@id"
	}

	var nullGuards []interface{}
	var match bson
	match = append(match, bsonEntry{"@graph.@type", map[string]interface{}{"$in": prefixedTypeForms(svc.Molecules, coll.prefixes)}})

	if svc.RootVar == "" && len(svc.Triples) > 0 {
		match = append(match, bsonEntry{"@graph.@id", svc.Triples[0].Subject.Value})
	}

	for _, t := range svc.Triples {
		if rdf.IsTypePredicate(t.Predicate) || !t.Predicate.IsConstant() {
			continue
		}
		field, ok := coll.predicates[t.Predicate.Value]
		if !ok {
			continue
		}
		path := "@graph." + field.name
		switch {
		case t.Object.IsVariable():
			varPath[t.Object.Value] = path
			nullGuards = append(nullGuards,
				map[string]interface{}{"$ne": []interface{}{"$" + path, nil}},
				map[string]interface{}{"$ne": []interface{}{"$" + path, ""}},
			)
		default:
			match = append(match, bsonEntry{path, t.Object.Value})
		}
	}
	for v, val := range bound {
		if path, ok := varPath[v]; ok {
			match = append(match, bsonEntry{path, val})
		}
	}
	if len(nullGuards) > 0 {
		match = append(match, bsonEntry{"$expr", map[string]interface{}{"$and": nullGuards}})
	}

	pipeline := []map[string]interface{}{
		{"$unwind": "$@graph"},
		{"$match": match.toMap()},
	}

	for _, f := range svc.Filters {
		if stages, ok := compileMongoFilter(varPath, coll, f); ok {
			pipeline = append(pipeline, stages...)
		}
	}

	sortedVars := append([]string(nil), vars...)
	sort.Strings(sortedVars)
	project := map[string]interface{}{"_id": 0}
	for _, v := range sortedVars {
		path, ok := varPath[v]
		if !ok {
			continue
		}
		project[v] = "$" + path
	}
	pipeline = append(pipeline, map[string]interface{}{"$project": project})
	return pipeline
}

// prefixedTypeForms renders svc's candidate molecule IRIs in the
// compact-prefixed form the collection's @type values use (e.g.
// "http://ex.org/Sensor" -> "ex:Sensor"), falling back to the bare IRI
// when no configured prefix covers it.
func prefixedTypeForms(molecules []catalog.MtID, prefixes map[string]string) []interface{} {
	seen := map[string]bool{}
	var out []string
	for _, mt := range molecules {
		iri := string(mt)
		form := iri
		for prefix, ns := range prefixes {
			if strings.HasPrefix(iri, ns) {
				local := strings.TrimPrefix(iri, ns)
				if !strings.ContainsAny(local, "/#") {
					form = prefix + ":" + local
					break
				}
			}
		}
		if !seen[form] {
			seen[form] = true
			out = append(out, form)
		}
	}
	sort.Strings(out)
	vals := make([]interface{}, len(out))
	for i, s := range out {
		vals[i] = s
	}
	return vals
}

// compileMongoFilter compiles a comparison/boolean filter expression into
// $addFields/$match stages: a comparison becomes a cast-then-compare pair
// ($toDate when either side carries the xsd:dateTime datatype, a plain
// field reference otherwise), and && / || recurse and combine the
// resulting $expr conditions. Filters this can't express (anything beyond
// comparisons and their boolean combination) are simply skipped here,
// since the physical plan always re-evaluates every filter against the
// fetched bindings regardless of what the translator pushed down.
func compileMongoFilter(varPath map[string]string, coll *mongoCollection, f *rdf.FilterExpr) ([]map[string]interface{}, bool) {
	switch f.Op {
	case rdf.OpAnd, rdf.OpOr:
		leftStages, ok1 := compileMongoFilter(varPath, coll, f.Args[0])
		rightStages, ok2 := compileMongoFilter(varPath, coll, f.Args[1])
		if !ok1 || !ok2 {
			return nil, false
		}
		leftExpr, ok1 := lastMatchExpr(leftStages)
		rightExpr, ok2 := lastMatchExpr(rightStages)
		if !ok1 || !ok2 {
			return nil, false
		}
		op := "$and"
		if f.Op == rdf.OpOr {
			op = "$or"
		}
		stages := append(leftStages[:len(leftStages)-1], rightStages[:len(rightStages)-1]...)
		stages = append(stages, map[string]interface{}{"$match": map[string]interface{}{
			"$expr": map[string]interface{}{op: []interface{}{leftExpr, rightExpr}},
		}})
		return stages, true

	case rdf.OpEq, rdf.OpNeq, rdf.OpLt, rdf.OpLte, rdf.OpGt, rdf.OpGte:
		return compileMongoComparison(varPath, coll, f)

	default:
		return nil, false
	}
}

func lastMatchExpr(stages []map[string]interface{}) (interface{}, bool) {
	if len(stages) == 0 {
		return nil, false
	}
	m, ok := stages[len(stages)-1]["$match"].(map[string]interface{})
	if !ok {
		return nil, false
	}
	expr, ok := m["$expr"]
	return expr, ok
}

func compileMongoComparison(varPath map[string]string, coll *mongoCollection, f *rdf.FilterExpr) ([]map[string]interface{}, bool) {
	left, right := f.Args[0], f.Args[1]
	if left.Op != rdf.OpTerm || right.Op != rdf.OpTerm {
		return nil, false
	}

	var variable, constant rdf.Term
	op := f.Op
	switch {
	case left.Term.IsVariable() && !right.Term.IsVariable():
		variable, constant = left.Term, right.Term
	case right.Term.IsVariable() && !left.Term.IsVariable():
		variable, constant = right.Term, left.Term
		op = flipComparison(op)
	default:
		return nil, false
	}

	path, ok := varPath[variable.Value]
	if !ok {
		return nil, false
	}
	mongoOp, ok := mongoCompareOp[op]
	if !ok {
		return nil, false
	}

	needsDate := constant.Datatype == xsdDateTime || fieldDatatype(coll, path) == xsdDateTime
	alias := "cmp_" + variable.Value
	var castExpr, constExpr interface{}
	if needsDate {
		castExpr = map[string]interface{}{"$toDate": "$" + path}
		constExpr = map[string]interface{}{"$toDate": constant.Value}
	} else {
		castExpr = "$" + path
		constExpr = constant.Value
	}

	stages := []map[string]interface{}{
		{"$addFields": map[string]interface{}{alias: castExpr}},
		{"$match": map[string]interface{}{"$expr": map[string]interface{}{mongoOp: []interface{}{"$" + alias, constExpr}}}},
	}
	return stages, true
}

func fieldDatatype(coll *mongoCollection, path string) string {
	name := strings.TrimPrefix(path, "@graph.")
	for _, field := range coll.predicates {
		if field.name == name {
			return field.datatype
		}
	}
	return ""
}

func flipComparison(op rdf.FilterOp) rdf.FilterOp {
	switch op {
	case rdf.OpLt:
		return rdf.OpGt
	case rdf.OpLte:
		return rdf.OpGte
	case rdf.OpGt:
		return rdf.OpLt
	case rdf.OpGte:
		return rdf.OpLte
	default:
		return op
	}
}

var mongoCompareOp = map[rdf.FilterOp]string{
	rdf.OpEq:  "$eq",
	rdf.OpNeq: "$ne",
	rdf.OpLt:  "$lt",
	rdf.OpLte: "$lte",
	rdf.OpGt:  "$gt",
	rdf.OpGte: "$gte",
}

// bson is an ordered list of top-level $match keys, kept insertion-ordered
// (rather than a plain map) so pipeline construction stays deterministic
// across calls for the same service.
type bson []bsonEntry

type bsonEntry struct {
	key string
	val interface{}
}

func (b bson) toMap() map[string]interface{} {
	out := make(map[string]interface{}, len(b))
	for _, e := range b {
		out[e.key] = e.val
	}
	return out
}
