// Package catalog implements the federation + data-source + RDF-MT registry:
// an immutable-after-build index of data sources and RDF Molecule Templates
// (RDF-MTs) that the decomposer, planner, and translators all borrow from
// for the lifetime of a query.
package catalog

// DataSourceID identifies a DataSource within a Federation.
type DataSourceID string

// MtID identifies a Molecule (RDF-MT) within a Federation.
type MtID string

// PredicateID identifies a Predicate, generally the full predicate IRI.
type PredicateID string

// DataSourceKind enumerates every backend kind the catalog can describe.
// Only SPARQLEndpoint, SQLMySQL/SQLPostgres/SQLServer, and MongoJSONLDFlat
// are exercised by translate/backend in this implementation; the remaining
// values exist so that plan construction and the catalog's JSON shape stay
// symmetric with the full original system.
type DataSourceKind string

const (
	SPARQLEndpoint  DataSourceKind = "sparqlEndpoint"
	SQLMySQL        DataSourceKind = "mySQL"
	SQLPostgres     DataSourceKind = "postgreSQL"
	SQLServer       DataSourceKind = "sqlServer"
	MongoGeneric    DataSourceKind = "mongoDB"
	MongoJSONLDFlat DataSourceKind = "mongoDB-JSONLD-flat"
	Neo4j           DataSourceKind = "neo4j"
	TabularFile     DataSourceKind = "tabularFile"
	JSONFile        DataSourceKind = "jsonFile"
	XMLFile         DataSourceKind = "xmlFile"
	REST            DataSourceKind = "rest"
)

// IsSQL reports whether kind is one of the SQL dialects.
func (k DataSourceKind) IsSQL() bool {
	switch k {
	case SQLMySQL, SQLPostgres, SQLServer:
		return true
	default:
		return false
	}
}

// DataSource describes one backend in a federation.
type DataSource struct {
	ID  DataSourceID `json:"id"`
	URL string       `json:"url"`
	Kind DataSourceKind `json:"kind"`
	// Params carries driver-specific configuration: database name,
	// credentials, JSON-LD prefix/predicate dictionaries per collection,
	// etc.
	Params map[string]interface{} `json:"params,omitempty"`

	// MappingPaths names RML mapping documents or inline JSON mapping
	// descriptions to parse at catalog-build time. Parsing those documents
	// into TripleMaps happens via an external RML-document parser; this
	// field only records where they came from.
	MappingPaths []string `json:"mapping_paths,omitempty"`
	MappingsType string   `json:"mappings_type,omitempty"` // "RML file" | "JSON"

	// TripleMapIDs lists the TripleMaps (in the Federation's Mappings
	// arena) that this data source's mappings produced.
	TripleMapIDs []TripleMapID `json:"-"`

	TypingPredicate  string `json:"typing_predicate,omitempty"`
	LabelingProperty string `json:"labeling_property,omitempty"`
}

// Predicate describes one predicate known to a Molecule: its label,
// cardinality, and the set of ranges (either a datatype URI or another
// molecule's MtID) its object can take.
type Predicate struct {
	ID          PredicateID `json:"id"`
	Label       string      `json:"label,omitempty"`
	Cardinality int64       `json:"cardinality,omitempty"`
	// Ranges holds XSD datatype URIs and/or MtIDs. A range reference must
	// resolve to one or the other.
	Ranges map[string]bool `json:"ranges,omitempty"`
}

// RmlSourceRef names one (data source, triple map) pair that contributes a
// predicate's values.
type RmlSourceRef struct {
	DataSource DataSourceID
	TripleMap  TripleMapID
}

// Molecule is an RDF-MT: the catalog's abstract description of a class
//.
type Molecule struct {
	MtID        MtID     `json:"mt_id"`
	Label       string   `json:"label,omitempty"`
	Cardinality int64    `json:"cardinality,omitempty"`
	SubclassOf  []MtID   `json:"subclass_of,omitempty"`

	Predicates map[PredicateID]*Predicate `json:"predicates"`

	DataSources map[DataSourceID]bool `json:"datasources"`
	// PredicateSources maps a data source to the subset of Predicates it
	// serves. Invariant: PredicateSources[d] ⊆ Predicates for every d.
	PredicateSources map[DataSourceID]map[PredicateID]bool `json:"predicate_sources"`
	// PredicateRMLSources maps a predicate to the RML (data source, triple
	// map) pairs that produce it.
	PredicateRMLSources map[PredicateID]map[RmlSourceRef]bool `json:"-"`

	InstancePrefixes []string `json:"instance_prefixes,omitempty"`

	// MappingIDs maps data source -> triple map -> set of rdf:type IRIs
	// that triple map asserts for this molecule.
	MappingIDs map[DataSourceID]map[TripleMapID]map[string]bool `json:"-"`
}

// newMolecule returns an empty, fully-initialized Molecule for id.
func newMolecule(id MtID) *Molecule {
	return &Molecule{
		MtID:                id,
		Predicates:          make(map[PredicateID]*Predicate),
		DataSources:         make(map[DataSourceID]bool),
		PredicateSources:    make(map[DataSourceID]map[PredicateID]bool),
		PredicateRMLSources: make(map[PredicateID]map[RmlSourceRef]bool),
		MappingIDs:          make(map[DataSourceID]map[TripleMapID]map[string]bool),
	}
}

// HasPredicate reports whether the molecule's predicate set contains pid.
func (m *Molecule) HasPredicate(pid PredicateID) bool {
	_, ok := m.Predicates[pid]
	return ok
}

// CoversPredicates reports whether ds serves every predicate in preds for
// this molecule: the predicate set must be a subset of the source's
// predicate set for that molecule.
func (m *Molecule) CoversPredicates(ds DataSourceID, preds []PredicateID) bool {
	served, ok := m.PredicateSources[ds]
	if !ok {
		return len(preds) == 0
	}
	for _, p := range preds {
		if !served[p] {
			return false
		}
	}
	return true
}

// Merge returns a new Molecule combining m and other, which must share an
// MtID: union of predicates, data sources, mapping ids, and instance
// prefixes; numeric cardinalities additive; subclass_of unioned.
func (m *Molecule) Merge(other *Molecule) *Molecule {
	if other == nil {
		return m
	}
	if m.MtID != other.MtID {
		panic("catalog: cannot merge molecules with different mt_id")
	}

	out := newMolecule(m.MtID)
	out.Label = m.Label
	if out.Label == "" {
		out.Label = other.Label
	}
	out.Cardinality = m.Cardinality + other.Cardinality

	out.SubclassOf = unionStringLike(m.SubclassOf, other.SubclassOf)
	out.InstancePrefixes = unionStringLike(m.InstancePrefixes, other.InstancePrefixes)

	for _, src := range []*Molecule{m, other} {
		for pid, pred := range src.Predicates {
			out.mergePredicate(pid, pred)
		}
		for ds := range src.DataSources {
			out.DataSources[ds] = true
		}
		for ds, preds := range src.PredicateSources {
			dst, ok := out.PredicateSources[ds]
			if !ok {
				dst = make(map[PredicateID]bool)
				out.PredicateSources[ds] = dst
			}
			for p := range preds {
				dst[p] = true
			}
		}
		for pid, refs := range src.PredicateRMLSources {
			dst, ok := out.PredicateRMLSources[pid]
			if !ok {
				dst = make(map[RmlSourceRef]bool)
				out.PredicateRMLSources[pid] = dst
			}
			for r := range refs {
				dst[r] = true
			}
		}
		for ds, tms := range src.MappingIDs {
			dstDs, ok := out.MappingIDs[ds]
			if !ok {
				dstDs = make(map[TripleMapID]map[string]bool)
				out.MappingIDs[ds] = dstDs
			}
			for tm, types := range tms {
				dstTm, ok := dstDs[tm]
				if !ok {
					dstTm = make(map[string]bool)
					dstDs[tm] = dstTm
				}
				for t := range types {
					dstTm[t] = true
				}
			}
		}
	}

	return out
}

func (m *Molecule) mergePredicate(pid PredicateID, pred *Predicate) {
	existing, ok := m.Predicates[pid]
	if !ok {
		cp := *pred
		cp.Ranges = make(map[string]bool, len(pred.Ranges))
		for r := range pred.Ranges {
			cp.Ranges[r] = true
		}
		m.Predicates[pid] = &cp
		return
	}
	existing.Cardinality += pred.Cardinality
	if existing.Ranges == nil {
		existing.Ranges = make(map[string]bool)
	}
	for r := range pred.Ranges {
		existing.Ranges[r] = true
	}
}

func unionStringLike[T ~string](a, b []T) []T {
	seen := make(map[T]bool, len(a)+len(b))
	var out []T
	for _, s := range a {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	for _, s := range b {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
