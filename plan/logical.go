// Package plan turns a decomposed query into a physical operator tree: a
// logical pass that merges same-backend services and shapes a bushy join
// tree, followed by a physical pass that chooses join algorithms per the
// selectivity heuristic and wraps the tree with the query's solution
// modifiers.
package plan

import (
	"sort"

	"github.com/PLATOONProject/Awudima-FQP/catalog"
	"github.com/PLATOONProject/Awudima-FQP/decompose"
	"github.com/PLATOONProject/Awudima-FQP/rdf"
)

// LogicalPlan is the decomposed tree after same-backend service merging and
// bushy-tree join assembly, still expressed in decompose.Node terms (the
// physical planner is what turns it into an exec.Plan with concrete
// operator choices).
type LogicalPlan struct {
	Root        *decompose.Node
	ProjectVars []string
	Modifiers   rdf.Modifiers
}

// BuildLogicalPlan merges same-backend SSQs, assembles the bushy join tree,
// and re-attaches filters at the lowest node whose produced variables
// cover them.
func BuildLogicalPlan(d *decompose.Decomposition) (*LogicalPlan, error) {
	return &LogicalPlan{
		Root:        optimize(d.Root),
		ProjectVars: d.ProjectVars,
		Modifiers:   d.Modifiers,
	}, nil
}

func optimize(n *decompose.Node) *decompose.Node {
	if n == nil {
		return n
	}
	switch n.Kind {
	case decompose.NodeJoin:
		children := make([]*decompose.Node, len(n.Children))
		for i, c := range n.Children {
			children[i] = optimize(c)
		}
		children = mergeSameBackend(children)
		merged := assembleBushy(children)
		merged.Filters = append(merged.Filters, n.Filters...)
		pushDownFilters(merged)
		return merged

	case decompose.NodeUnion:
		children := make([]*decompose.Node, len(n.Children))
		for i, c := range n.Children {
			children[i] = optimize(c)
		}
		return &decompose.Node{Kind: decompose.NodeUnion, Children: children, Filters: n.Filters}

	case decompose.NodeOptional:
		return &decompose.Node{
			Kind:          decompose.NodeOptional,
			Child:         optimize(n.Child),
			OptionalChild: optimize(n.OptionalChild),
			Filters:       n.Filters,
		}

	default:
		return n
	}
}

// mergeSameBackend merges sibling services sharing a data source and at
// least one variable into a single combined service, repeating until no
// further merge applies.
func mergeSameBackend(nodes []*decompose.Node) []*decompose.Node {
	for {
		merged := false
		for i := 0; i < len(nodes) && !merged; i++ {
			for j := i + 1; j < len(nodes); j++ {
				a, b := nodes[i], nodes[j]
				if a.Kind != decompose.NodeService || b.Kind != decompose.NodeService {
					continue
				}
				if a.Service.DataSource != b.Service.DataSource {
					continue
				}
				if !sharesVariable(a.Service.ProducedVars, b.Service.ProducedVars) {
					continue
				}
				combined := &decompose.Node{Kind: decompose.NodeService, Service: mergeServices(a.Service, b.Service)}
				next := make([]*decompose.Node, 0, len(nodes)-1)
				next = append(next, nodes[:i]...)
				next = append(next, combined)
				next = append(next, nodes[i+1:j]...)
				next = append(next, nodes[j+1:]...)
				nodes = next
				merged = true
				break
			}
		}
		if !merged {
			return nodes
		}
	}
}

func mergeServices(a, b *decompose.Service) *decompose.Service {
	return &decompose.Service{
		RootVar:      a.RootVar,
		DataSource:   a.DataSource,
		Molecules:    unionMtIDs(a.Molecules, b.Molecules),
		Triples:      append(append([]rdf.TriplePattern{}, a.Triples...), b.Triples...),
		TypeHints:    append(append([]string{}, a.TypeHints...), b.TypeHints...),
		Predicates:   append(append([]catalog.PredicateID{}, a.Predicates...), b.Predicates...),
		Filters:      append(append([]*rdf.FilterExpr{}, a.Filters...), b.Filters...),
		ProducedVars: unionVars(a.ProducedVars, b.ProducedVars),
	}
}

func unionMtIDs(a, b []catalog.MtID) []catalog.MtID {
	seen := make(map[catalog.MtID]bool, len(a)+len(b))
	var out []catalog.MtID
	for _, id := range append(append([]catalog.MtID{}, a...), b...) {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

func unionVars(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	var out []string
	for _, v := range append(append([]string{}, a...), b...) {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

func sharesVariable(a, b []string) bool {
	set := make(map[string]bool, len(a))
	for _, v := range a {
		set[v] = true
	}
	for _, v := range b {
		if set[v] {
			return true
		}
	}
	return false
}

// assembleBushy repeatedly joins the two smallest-estimated-cardinality
// subtrees (tie-broken by lexicographic SSQ-root-variable order) until one
// tree remains, minimizing the resulting join tree's maximum height.
func assembleBushy(nodes []*decompose.Node) *decompose.Node {
	type item struct {
		node *decompose.Node
		card int64
		key  string
	}
	items := make([]item, len(nodes))
	for i, n := range nodes {
		card, key := estimateCardinality(n)
		items[i] = item{node: n, card: card, key: key}
	}

	for len(items) > 1 {
		sort.Slice(items, func(i, j int) bool {
			if items[i].card != items[j].card {
				return items[i].card < items[j].card
			}
			return items[i].key < items[j].key
		})
		left, right := items[0], items[1]
		combined := &decompose.Node{Kind: decompose.NodeJoin, Children: []*decompose.Node{left.node, right.node}}
		card, _ := estimateCardinality(combined)
		key := left.key
		if right.key < key {
			key = right.key
		}
		items = append(items[2:], item{node: combined, card: card, key: key})
	}
	return items[0].node
}

// estimateCardinality returns a coarse cardinality surrogate (not a real
// cost model — the system only distinguishes high/low selectivity) and the
// node's tie-break key.
func estimateCardinality(n *decompose.Node) (int64, string) {
	switch n.Kind {
	case decompose.NodeService:
		card := int64(100)
		for _, t := range n.Service.Triples {
			if t.HighSelective() {
				card /= 10
			} else {
				card *= 10
			}
			if card < 1 {
				card = 1
			}
		}
		return card, n.Service.RootVar

	case decompose.NodeUnion:
		var total int64
		key := ""
		for i, c := range n.Children {
			card, k := estimateCardinality(c)
			total += card
			if i == 0 || k < key {
				key = k
			}
		}
		return total, key

	case decompose.NodeJoin:
		var min int64 = -1
		key := ""
		for i, c := range n.Children {
			card, k := estimateCardinality(c)
			if min == -1 || card < min {
				min = card
			}
			if i == 0 || k < key {
				key = k
			}
		}
		if min == -1 {
			min = 0
		}
		return min, key

	case decompose.NodeOptional:
		return estimateCardinality(n.Child)

	case decompose.NodeUnit:
		return 1, ""

	default: // NodeEmpty
		return 0, ""
	}
}

// pushDownFilters re-attaches each of n's filters to the lowest child
// subtree whose produced variables cover it, leaving only genuinely
// cross-child filters at n.
func pushDownFilters(n *decompose.Node) {
	if n == nil || n.Kind != decompose.NodeJoin {
		return
	}
	var remaining []*rdf.FilterExpr
	for _, f := range n.Filters {
		pushed := false
		for _, c := range n.Children {
			if containsAll(producedVarsOf(c), f.FreeVariables()) {
				attachFilter(c, f)
				pushed = true
				break
			}
		}
		if !pushed {
			remaining = append(remaining, f)
		}
	}
	n.Filters = remaining
	for _, c := range n.Children {
		pushDownFilters(c)
	}
}

func attachFilter(n *decompose.Node, f *rdf.FilterExpr) {
	switch n.Kind {
	case decompose.NodeService:
		n.Service.Filters = append(n.Service.Filters, f)
	case decompose.NodeUnion:
		for _, c := range n.Children {
			attachFilter(c, f)
		}
	default:
		n.Filters = append(n.Filters, f)
	}
}

func producedVarsOf(n *decompose.Node) []string {
	switch n.Kind {
	case decompose.NodeService:
		return n.Service.ProducedVars
	case decompose.NodeUnion, decompose.NodeJoin:
		var out []string
		for _, c := range n.Children {
			out = unionVars(out, producedVarsOf(c))
		}
		return out
	case decompose.NodeOptional:
		return unionVars(producedVarsOf(n.Child), producedVarsOf(n.OptionalChild))
	default:
		return nil
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
