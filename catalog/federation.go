package catalog

import (
	"sort"
	"sync"

	"github.com/samsarahq/go/oops"
)

// Federation is the registry of data sources and RDF-MTs for one
// configured federation. It is built once and is immutable, and therefore
// safely concurrently readable without locks, for the lifetime of every
// query planned against it.
type Federation struct {
	FedID string
	Name  string
	Desc  string

	Sources   map[DataSourceID]*DataSource
	Molecules map[MtID]*Molecule
	Mappings  *MappingSet

	// predicateIndex maps a predicate to the molecules that declare it.
	// Derived from Molecules; rebuilt by reindex whenever the catalog is
	// mutated: the predicate-to-molecule index is derivable from the
	// molecules and must stay consistent after any mutation.
	mu             sync.RWMutex
	predicateIndex map[PredicateID][]MtID
}

// New returns an empty Federation ready to be populated by AddSource /
// AddMolecule, or via Load.
func New(fedID, name, desc string) *Federation {
	return &Federation{
		FedID:     fedID,
		Name:      name,
		Desc:      desc,
		Sources:   make(map[DataSourceID]*DataSource),
		Molecules: make(map[MtID]*Molecule),
		Mappings:  NewMappingSet(),
	}
}

// AddSource registers a data source.
func (f *Federation) AddSource(ds *DataSource) {
	f.Sources[ds.ID] = ds
}

// AddMolecule registers a molecule, merging it into any existing molecule
// with the same MtID.
func (f *Federation) AddMolecule(m *Molecule) {
	if existing, ok := f.Molecules[m.MtID]; ok {
		f.Molecules[m.MtID] = existing.Merge(m)
	} else {
		f.Molecules[m.MtID] = m
	}
	f.invalidateIndex()
}

func (f *Federation) invalidateIndex() {
	f.mu.Lock()
	f.predicateIndex = nil
	f.mu.Unlock()
}

// reindex rebuilds the predicate -> molecules index from Molecules.
func (f *Federation) reindex() map[PredicateID][]MtID {
	idx := make(map[PredicateID][]MtID)
	mtIDs := make([]MtID, 0, len(f.Molecules))
	for id := range f.Molecules {
		mtIDs = append(mtIDs, id)
	}
	sort.Slice(mtIDs, func(i, j int) bool { return mtIDs[i] < mtIDs[j] })

	for _, mtID := range mtIDs {
		m := f.Molecules[mtID]
		predIDs := make([]PredicateID, 0, len(m.Predicates))
		for pid := range m.Predicates {
			predIDs = append(predIDs, pid)
		}
		sort.Slice(predIDs, func(i, j int) bool { return predIDs[i] < predIDs[j] })
		for _, pid := range predIDs {
			idx[pid] = append(idx[pid], mtID)
		}
	}
	return idx
}

// PredicateIndex returns the (lazily rebuilt, then cached) predicate ->
// molecules index.
func (f *Federation) PredicateIndex() map[PredicateID][]MtID {
	f.mu.RLock()
	if f.predicateIndex != nil {
		idx := f.predicateIndex
		f.mu.RUnlock()
		return idx
	}
	f.mu.RUnlock()

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.predicateIndex == nil {
		f.predicateIndex = f.reindex()
	}
	return f.predicateIndex
}

// Molecule looks up a molecule by id.
func (f *Federation) Molecule(id MtID) (*Molecule, bool) {
	m, ok := f.Molecules[id]
	return m, ok
}

// Source looks up a data source by id.
func (f *Federation) Source(id DataSourceID) (*DataSource, bool) {
	ds, ok := f.Sources[id]
	return ds, ok
}

// MoleculesForPredicate returns the molecules that declare predicate pid,
// in a stable (sorted) order.
func (f *Federation) MoleculesForPredicate(pid PredicateID) []MtID {
	return f.PredicateIndex()[pid]
}

// ValidationError aggregates every catalog invariant violation found by
// Validate, so /configure can report all of them at once instead of
// failing on the first.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	msg := "catalog: invalid federation:"
	for _, p := range e.Problems {
		msg += "\n  - " + p
	}
	return msg
}

// Validate checks the catalog invariants:
//   - for every molecule m and data source d in m.datasources,
//     m.predicate_sources[d] ⊆ m.predicates
//   - every range reference names a known mt_id or looks like a datatype URI
func (f *Federation) Validate() error {
	var problems []string

	mtIDs := make([]MtID, 0, len(f.Molecules))
	for id := range f.Molecules {
		mtIDs = append(mtIDs, id)
	}
	sort.Slice(mtIDs, func(i, j int) bool { return mtIDs[i] < mtIDs[j] })

	for _, mtID := range mtIDs {
		m := f.Molecules[mtID]
		for ds, preds := range m.PredicateSources {
			if _, ok := f.Sources[ds]; !ok {
				problems = append(problems, oops.Errorf("molecule %s: predicate_sources references unknown data source %s", mtID, ds).Error())
			}
			for pid := range preds {
				if !m.HasPredicate(pid) {
					problems = append(problems, oops.Errorf("molecule %s: predicate_sources[%s] contains %s, not in predicates", mtID, ds, pid).Error())
				}
			}
		}
		for pid, pred := range m.Predicates {
			for rng := range pred.Ranges {
				if _, ok := f.Molecules[MtID(rng)]; ok {
					continue
				}
				if looksLikeDatatypeURI(rng) {
					continue
				}
				problems = append(problems, oops.Errorf("molecule %s predicate %s: range %q is neither a known mt_id nor a datatype URI", mtID, pid, rng).Error())
			}
		}
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

func looksLikeDatatypeURI(s string) bool {
	const xsdPrefix = "http://www.w3.org/2001/XMLSchema#"
	if len(s) > len(xsdPrefix) && s[:len(xsdPrefix)] == xsdPrefix {
		return true
	}
	// Accept any absolute IRI as a plausible datatype reference; the
	// decomposer only uses ranges for cross-star pruning and treats an
	// unresolvable range conservatively (keeps both candidate sets), so
	// erring towards acceptance here matches the decomposer's
	// soundness-over-selectivity tie-break of keeping the original
	// candidate set when a range can't be resolved.
	for _, r := range s {
		if r == ':' {
			return true
		}
	}
	return false
}
