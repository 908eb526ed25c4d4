package catalog

// TripleMapID identifies a TripleMap within a Federation's mapping arena.
// Reference-object maps point to their parent by this id; mappings are
// represented as an arena keyed by a stable TripleMapID rather than a Go
// pointer cycle.
type TripleMapID string

// LogicalSource is an RML logical source: a table name, a SQL sub-select
// (rml:query), or a file with an iterator expression (used by the Mongo
// JSON-LD-flat profile's collection name).
type LogicalSource struct {
	TableName string `json:"tableName,omitempty"`
	Query     string `json:"query,omitempty"`
	// Iterator is the RML iterator (e.g. an XPath/JSONPath expression) used
	// against a file-backed or document-backed source. For the Mongo
	// JSON-LD-flat profile this names the collection.
	Iterator string `json:"iterator,omitempty"`
	// FileName is set when the logical source is a file; translate.SQL
	// hashes this deterministically into a synthetic table name when no
	// tableName/query is present.
	FileName string `json:"fileName,omitempty"`
}

// TermMapKind tags how a TermMap produces a term.
type TermMapKind int

const (
	TermTemplate TermMapKind = iota
	TermConstant
	TermReference
)

// TermMap is an RML term map: a template, a constant, or a column/field
// reference.
type TermMap struct {
	Kind     TermMapKind
	Template string // e.g. "http://ex.org/city/{id}"
	Constant string
	Reference string
}

// ReferenceObjectMap joins to another TripleMap by column-equality pairs
//.
type ReferenceObjectMap struct {
	ParentTripleMap TripleMapID
	JoinConditions  []JoinCondition
}

// JoinCondition is one child_column = parent_column pair of a
// reference-object map join.
type JoinCondition struct {
	Child  string
	Parent string
}

// ObjectMap is either a TermMap or a ReferenceObjectMap. Exactly one of
// Term/Reference is non-nil.
type ObjectMap struct {
	Term      *TermMap
	Reference *ReferenceObjectMap
}

// PredicateObjectMap is one RML predicate-object map: a constant predicate
// paired with an object map.
type PredicateObjectMap struct {
	Predicate PredicateID
	Object    ObjectMap
}

// SubjectMap is an RML subject map: a template/constant/reference term map
// plus the rdf:type values it asserts.
type SubjectMap struct {
	TermMap
	RDFTypes []string
}

// TripleMap is one RML rule: a logical source, subject map, and
// predicate-object maps.
type TripleMap struct {
	ID                  TripleMapID
	DataSource          DataSourceID
	LogicalSource       LogicalSource
	SubjectMap          SubjectMap
	PredicateObjectMaps []PredicateObjectMap
}

// MappingSet is the arena of TripleMaps for a Federation, indexed by
// TripleMapID.
type MappingSet struct {
	TripleMaps map[TripleMapID]*TripleMap
}

// NewMappingSet returns an empty MappingSet.
func NewMappingSet() *MappingSet {
	return &MappingSet{TripleMaps: make(map[TripleMapID]*TripleMap)}
}

// Add registers tm in the arena, keyed by its ID.
func (s *MappingSet) Add(tm *TripleMap) {
	s.TripleMaps[tm.ID] = tm
}

// Get looks up a TripleMap by id.
func (s *MappingSet) Get(id TripleMapID) (*TripleMap, bool) {
	tm, ok := s.TripleMaps[id]
	return tm, ok
}

// Covers reports whether tm asserts a triple for every predicate in preds,
// either as a constant rdf:type (when RDFType is in preds) or as a
// predicate-object map.
func (tm *TripleMap) Covers(preds []PredicateID) bool {
	have := make(map[PredicateID]bool, len(tm.PredicateObjectMaps))
	for _, pom := range tm.PredicateObjectMaps {
		have[pom.Predicate] = true
	}
	for _, p := range preds {
		if !have[p] {
			return false
		}
	}
	return true
}

// CoveredPredicates returns the subset of preds that tm has a
// predicate-object map for.
func (tm *TripleMap) CoveredPredicates(preds []PredicateID) []PredicateID {
	have := make(map[PredicateID]bool, len(tm.PredicateObjectMaps))
	for _, pom := range tm.PredicateObjectMaps {
		have[pom.Predicate] = true
	}
	var out []PredicateID
	for _, p := range preds {
		if have[p] {
			out = append(out, p)
		}
	}
	return out
}
