package decompose

import (
	"sort"

	"github.com/PLATOONProject/Awudima-FQP/catalog"
	"github.com/PLATOONProject/Awudima-FQP/rdf"
)

// star is the decomposer's working representation of one SSQ: every triple
// of a BGP sharing the same subject term, plus the molecule candidates that
// have survived matching and cross-star pruning.
type star struct {
	key      string // subject term's partition key: "?var" or the constant's canonical string
	rootVar  string // empty when the subject is constant rather than a variable
	triples  []rdf.TriplePattern

	constPreds []catalog.PredicateID // constant, non-rdf:type predicates
	typeHints  []string              // constant object IRIs of rdf:type triples
	// unboundType is true when the star's only triples are rdf:type with a
	// variable object: the Python decomposer this behavior is grounded on
	// treats this as "every molecule is a candidate" rather than failing.
	unboundType bool

	candidates []catalog.MtID
}

// formStars partitions a BGP's triples by subject term, in first-seen
// order for determinism.
func formStars(triples []rdf.TriplePattern) []*star {
	index := make(map[string]int)
	var stars []*star
	for _, t := range triples {
		key := subjectKey(t.Subject)
		idx, ok := index[key]
		if !ok {
			idx = len(stars)
			index[key] = idx
			rootVar := ""
			if t.Subject.IsVariable() {
				rootVar = t.Subject.Value
			}
			stars = append(stars, &star{key: key, rootVar: rootVar})
		}
		s := stars[idx]
		s.triples = append(s.triples, t)

		switch {
		case rdf.IsTypePredicate(t.Predicate) && t.Object.IsConstant():
			s.typeHints = append(s.typeHints, t.Object.Value)
		case t.Predicate.IsConstant():
			s.constPreds = append(s.constPreds, catalog.PredicateID(t.Predicate.Value))
		}
	}
	for _, s := range stars {
		s.unboundType = len(s.typeHints) == 0 && len(s.constPreds) == 0 &&
			hasOnlyVariableObjectTypeTriples(s.triples)
	}
	return stars
}

func hasOnlyVariableObjectTypeTriples(triples []rdf.TriplePattern) bool {
	sawTypeTriple := false
	for _, t := range triples {
		if rdf.IsTypePredicate(t.Predicate) && t.Object.IsVariable() {
			sawTypeTriple = true
			continue
		}
		if t.Predicate.IsConstant() {
			return false
		}
	}
	return sawTypeTriple
}

func subjectKey(t rdf.Term) string {
	if t.IsVariable() {
		return "?" + t.Value
	}
	return t.String()
}

// producedVars returns the distinct variables appearing anywhere in the
// star's triples.
func (s *star) producedVars() []string {
	seen := make(map[string]bool)
	var vars []string
	for _, t := range s.triples {
		for _, v := range t.Variables() {
			if !seen[v] {
				seen[v] = true
				vars = append(vars, v)
			}
		}
	}
	return vars
}

func allMoleculeIDs(fed *catalog.Federation) []catalog.MtID {
	ids := make([]catalog.MtID, 0, len(fed.Molecules))
	for id := range fed.Molecules {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// matchMolecules fills in s.candidates: type-statement intersection takes
// priority over predicate-index intersection (an unknown type leaves no
// candidates), and an unbound-type star (the only constant is a
// variable-object rdf:type triple) matches every molecule.
func matchMolecules(fed *catalog.Federation, s *star) {
	switch {
	case len(s.typeHints) > 0:
		s.candidates, _ = matchByType(fed, s.typeHints)

	case s.unboundType:
		s.candidates = allMoleculeIDs(fed)

	case len(s.constPreds) > 0:
		s.candidates = matchByPredicates(fed, s.constPreds)

	default:
		// No constant predicates at all: every molecule is a trivial
		// candidate (the testable property that an SSQ with zero constant
		// predicates is covered by any source).
		s.candidates = allMoleculeIDs(fed)
	}
}

func matchByType(fed *catalog.Federation, hints []string) (candidates []catalog.MtID, unknown bool) {
	var intersection []catalog.MtID
	for i, hint := range hints {
		if _, ok := fed.Molecule(catalog.MtID(hint)); !ok {
			return nil, true
		}
		matches := moleculesOfType(fed, catalog.MtID(hint))
		if i == 0 {
			intersection = matches
			continue
		}
		intersection = intersectMtIDs(intersection, matches)
	}
	return intersection, false
}

// moleculesOfType returns every molecule that is target or a (transitive)
// subclass of target, since an rdf:type triple for a superclass also
// matches instances of its subclasses.
func moleculesOfType(fed *catalog.Federation, target catalog.MtID) []catalog.MtID {
	var out []catalog.MtID
	for _, id := range allMoleculeIDs(fed) {
		m, _ := fed.Molecule(id)
		if isSubclassOrSelf(fed, m, target, make(map[catalog.MtID]bool)) {
			out = append(out, id)
		}
	}
	return out
}

func isSubclassOrSelf(fed *catalog.Federation, m *catalog.Molecule, target catalog.MtID, seen map[catalog.MtID]bool) bool {
	if m == nil || seen[m.MtID] {
		return false
	}
	seen[m.MtID] = true
	if m.MtID == target {
		return true
	}
	for _, parent := range m.SubclassOf {
		pm, ok := fed.Molecule(parent)
		if !ok {
			continue
		}
		if isSubclassOrSelf(fed, pm, target, seen) {
			return true
		}
	}
	return false
}

func matchByPredicates(fed *catalog.Federation, preds []catalog.PredicateID) []catalog.MtID {
	var candidates []catalog.MtID
	for i, pid := range preds {
		ids := append([]catalog.MtID(nil), fed.MoleculesForPredicate(pid)...)
		if i == 0 {
			candidates = ids
			continue
		}
		candidates = intersectMtIDs(candidates, ids)
	}
	return candidates
}

func intersectMtIDs(a, b []catalog.MtID) []catalog.MtID {
	inB := make(map[catalog.MtID]bool, len(b))
	for _, id := range b {
		inB[id] = true
	}
	var out []catalog.MtID
	for _, id := range a {
		if inB[id] {
			out = append(out, id)
		}
	}
	return out
}
