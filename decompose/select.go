package decompose

import (
	"sort"

	"github.com/PLATOONProject/Awudima-FQP/catalog"
	"github.com/PLATOONProject/Awudima-FQP/rdf"
)

// selectDataSources enumerates, per surviving candidate molecule, the data
// sources that cover the star's constant predicates, and returns the Node
// for that star: a single Service, a Union of Services when more than one
// source covers it, or NodeEmpty when none does.
//
// collection, when non-empty, narrows the candidate set to that single data
// source id -- a request's optional scope hint overriding the normal
// full_matches selection across every covering source.
func selectDataSources(fed *catalog.Federation, s *star, collection string) *Node {
	bySource := make(map[catalog.DataSourceID][]catalog.MtID)
	for _, mtID := range s.candidates {
		m, ok := fed.Molecule(mtID)
		if !ok {
			continue
		}
		for ds := range m.DataSources {
			if collection != "" && string(ds) != collection {
				continue
			}
			if m.CoversPredicates(ds, s.constPreds) {
				bySource[ds] = append(bySource[ds], mtID)
			}
		}
	}
	if len(bySource) == 0 {
		return &Node{Kind: NodeEmpty}
	}

	dsIDs := make([]catalog.DataSourceID, 0, len(bySource))
	for ds := range bySource {
		dsIDs = append(dsIDs, ds)
	}
	sort.Slice(dsIDs, func(i, j int) bool { return dsIDs[i] < dsIDs[j] })

	services := make([]*Node, 0, len(dsIDs))
	for _, ds := range dsIDs {
		mtIDs := append([]catalog.MtID(nil), bySource[ds]...)
		sort.Slice(mtIDs, func(i, j int) bool { return mtIDs[i] < mtIDs[j] })
		services = append(services, &Node{
			Kind: NodeService,
			Service: &Service{
				RootVar:      s.rootVar,
				DataSource:   ds,
				Molecules:    mtIDs,
				Triples:      s.triples,
				TypeHints:    s.typeHints,
				Predicates:   s.constPreds,
				ProducedVars: s.producedVars(),
			},
		})
	}
	if len(services) == 1 {
		return services[0]
	}
	return &Node{Kind: NodeUnion, Children: services}
}

// placeFilters attaches each filter to the single star whose produced
// variables are a superset of the filter's free variables, or bubbles it
// (returned) when no single star covers it (ambiguous across stars, or the
// filter references a variable the BGP never binds).
func placeFilters(stars []*star, starNodes []*Node, filters []*rdf.FilterExpr) []*rdf.FilterExpr {
	var bubbled []*rdf.FilterExpr
	for _, f := range filters {
		free := f.FreeVariables()
		match := -1
		for i, s := range stars {
			if containsAll(s.producedVars(), free) {
				if match != -1 {
					match = -2 // more than one star covers it: ambiguous
					break
				}
				match = i
			}
		}
		if match >= 0 {
			attachFilter(starNodes[match], f)
			continue
		}
		bubbled = append(bubbled, f)
	}
	return bubbled
}

func attachFilter(n *Node, f *rdf.FilterExpr) {
	switch n.Kind {
	case NodeService:
		n.Service.Filters = append(n.Service.Filters, f)
	case NodeUnion:
		// A Union over services for the same star: the filter applies to
		// every branch regardless of which source answers it.
		for _, c := range n.Children {
			attachFilter(c, f)
		}
	}
}

func containsAll(haystack, needles []string) bool {
	set := make(map[string]bool, len(haystack))
	for _, v := range haystack {
		set[v] = true
	}
	for _, n := range needles {
		if !set[n] {
			return false
		}
	}
	return true
}
