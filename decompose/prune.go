package decompose

import "github.com/PLATOONProject/Awudima-FQP/catalog"

// edge is a subject-object link in the star-connection graph: triple t of
// star `from`, with a constant predicate, whose object variable equals
// star `to`'s root variable.
type edge struct {
	from, to int
	pred     catalog.PredicateID
}

// pruneCrossStarCandidates restricts each star's candidate molecules using
// the ranges declared by the connecting predicate of every subject-object
// edge, in a single pass over the star-connection graph (not a fix-point
// iteration): for star `a` linked to star `b`, the predicate's declared
// ranges across `a`'s current candidates are intersected with `b`'s
// candidates; a restriction is applied only when that intersection is
// non-empty, otherwise `b`'s candidate set is left as-is (soundness over
// selectivity — an unresolvable range must not make a satisfiable query
// empty).
func pruneCrossStarCandidates(fed *catalog.Federation, stars []*star) {
	rootIndex := make(map[string]int, len(stars))
	for i, s := range stars {
		if s.rootVar != "" {
			rootIndex[s.rootVar] = i
		}
	}

	var edges []edge
	for i, s := range stars {
		for _, t := range s.triples {
			if !t.Predicate.IsConstant() || !t.Object.IsVariable() {
				continue
			}
			j, ok := rootIndex[t.Object.Value]
			if !ok || j == i {
				continue
			}
			edges = append(edges, edge{from: i, to: j, pred: catalog.PredicateID(t.Predicate.Value)})
		}
	}

	for _, e := range edges {
		a, b := stars[e.from], stars[e.to]
		rangeSet := make(map[catalog.MtID]bool)
		for _, mtID := range a.candidates {
			m, ok := fed.Molecule(mtID)
			if !ok {
				continue
			}
			pred, ok := m.Predicates[e.pred]
			if !ok {
				continue
			}
			for r := range pred.Ranges {
				if _, isMolecule := fed.Molecule(catalog.MtID(r)); isMolecule {
					rangeSet[catalog.MtID(r)] = true
				}
			}
		}
		if len(rangeSet) == 0 {
			continue
		}
		var restricted []catalog.MtID
		for _, c := range b.candidates {
			if rangeSet[c] {
				restricted = append(restricted, c)
			}
		}
		if len(restricted) > 0 {
			b.candidates = restricted
		}
	}
}
