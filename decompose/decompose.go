// Package decompose groups a parsed SPARQL algebra tree's basic graph
// patterns into star-shaped sub-queries (SSQs), matches each against the
// federation's RDF Molecule Templates, prunes candidates using cross-star
// predicate-range consistency, and selects the data source(s) that will
// serve each star.
package decompose

import (
	"fmt"

	"github.com/PLATOONProject/Awudima-FQP/catalog"
	"github.com/PLATOONProject/Awudima-FQP/rdf"
)

// DecompositionError reports an unknown rdf:type or an SSQ no data source
// covers. A branch that fails this way yields an empty result (and
// contributes nothing to an enclosing Union); it only aborts the whole
// query when the failing branch is the decomposition's root.
type DecompositionError struct {
	msg string
}

func (e *DecompositionError) Error() string { return e.msg }

func decompositionErrorf(format string, args ...interface{}) error {
	return &DecompositionError{msg: fmt.Sprintf(format, args...)}
}

// NodeKind tags the variant held by a Node.
type NodeKind int

const (
	NodeService NodeKind = iota
	NodeUnion
	NodeJoin
	NodeOptional
	// NodeEmpty marks a branch that provably produces zero bindings: an
	// unresolvable type, or an SSQ no data source covers. It behaves as the
	// identity for Union and the annihilator for Join under ordinary
	// execution, with no special-casing needed downstream.
	NodeEmpty
	// NodeUnit marks a zero-triple-pattern BGP: the single row with no
	// variables bound (spec.md §8's "zero triple patterns -> empty binding
	// for SELECT *"). It is the identity element for Join, the opposite of
	// NodeEmpty.
	NodeUnit
)

// Service is one star-shaped sub-query bound to a single data source and
// molecule set.
type Service struct {
	RootVar      string
	DataSource   catalog.DataSourceID
	Molecules    []catalog.MtID
	Triples      []rdf.TriplePattern
	TypeHints    []string
	Predicates   []catalog.PredicateID
	Filters      []*rdf.FilterExpr
	ProducedVars []string
}

// Node is the decomposed-query tree: a tagged union mirroring rdf.AlgebraNode
// but with Bgp subtrees replaced by their SSQ decomposition.
type Node struct {
	Kind NodeKind

	Service *Service

	Children []*Node // Union, Join

	Child         *Node // Optional
	OptionalChild *Node

	// Filters holds filters that couldn't be attached to a single child
	// service because their free variables span more than one star; they
	// are evaluated once this node's bindings are produced.
	Filters []*rdf.FilterExpr
}

// Decomposition is the top-level result: a decomposed tree plus the
// projection/query-form modifiers stripped off the original algebra's
// Project wrapper.
type Decomposition struct {
	Root        *Node
	ProjectVars []string
	Modifiers   rdf.Modifiers
}

// Decompose turns a parsed algebra tree into a Decomposition against fed. It
// returns a DecompositionError only when the root itself resolves to
// NodeEmpty; empty branches nested inside a Union or Join are represented
// in the tree (as NodeEmpty) rather than raised as errors, since ordinary
// join/union execution already gives them the right semantics.
//
// collection, when non-empty, restricts data-source selection to that one
// source id -- the /sparql endpoint's optional scope hint, threaded here as
// an explicit parameter rather than read from request-local state.
func Decompose(algebra *rdf.AlgebraNode, fed *catalog.Federation, collection string) (*Decomposition, error) {
	d := &Decomposition{}
	body := algebra
	if algebra.Kind == rdf.AlgebraProject {
		d.ProjectVars = algebra.ProjectVars
		d.Modifiers = algebra.Modifiers
		body = algebra.Child
	}

	root, err := decomposeNode(body, fed, collection)
	if err != nil {
		return nil, err
	}
	if root.Kind == NodeEmpty {
		return nil, decompositionErrorf("decomposition root is unsatisfiable")
	}
	d.Root = root
	return d, nil
}

func decomposeNode(n *rdf.AlgebraNode, fed *catalog.Federation, collection string) (*Node, error) {
	if n == nil {
		return &Node{Kind: NodeEmpty}, nil
	}
	switch n.Kind {
	case rdf.AlgebraBgp:
		return decomposeBgp(n, fed, collection)

	case rdf.AlgebraUnion:
		children := make([]*Node, 0, len(n.Children))
		for _, c := range n.Children {
			dn, err := decomposeNode(c, fed, collection)
			if err != nil {
				return nil, err
			}
			if dn.Kind == NodeEmpty {
				continue // contributes no bindings to the union
			}
			children = append(children, dn)
		}
		if len(children) == 0 {
			return &Node{Kind: NodeEmpty}, nil
		}
		if len(children) == 1 {
			return children[0], nil
		}
		return &Node{Kind: NodeUnion, Children: children}, nil

	case rdf.AlgebraJoin:
		children := make([]*Node, 0, len(n.Children))
		for _, c := range n.Children {
			dn, err := decomposeNode(c, fed, collection)
			if err != nil {
				return nil, err
			}
			if dn.Kind == NodeEmpty {
				return &Node{Kind: NodeEmpty}, nil // one unsatisfiable conjunct empties the whole join
			}
			if dn.Kind == NodeUnit {
				continue // the empty-binding row is Join's identity
			}
			children = append(children, dn)
		}
		if len(children) == 0 {
			return &Node{Kind: NodeUnit}, nil
		}
		if len(children) == 1 {
			return children[0], nil
		}
		return &Node{Kind: NodeJoin, Children: children}, nil

	case rdf.AlgebraOptional:
		left, err := decomposeNode(n.Child, fed, collection)
		if err != nil {
			return nil, err
		}
		right, err := decomposeNode(n.OptionalChild, fed, collection)
		if err != nil {
			return nil, err
		}
		if right.Kind == NodeEmpty {
			return left, nil // Optional(A, empty) == A
		}
		return &Node{Kind: NodeOptional, Child: left, OptionalChild: right}, nil

	case rdf.AlgebraProject:
		// A nested Project (subquery) is decomposed as its child; its own
		// projection/modifiers are not part of this node's responsibility.
		return decomposeNode(n.Child, fed, collection)

	default:
		return &Node{Kind: NodeEmpty}, nil
	}
}

// decomposeBgp groups a Bgp's triples into SSQs, matches and prunes
// molecule candidates, selects data sources, and places filters.
func decomposeBgp(n *rdf.AlgebraNode, fed *catalog.Federation, collection string) (*Node, error) {
	stars := formStars(n.Triples)
	if len(stars) == 0 {
		return &Node{Kind: NodeUnit}, nil
	}

	for _, s := range stars {
		matchMolecules(fed, s)
	}
	pruneCrossStarCandidates(fed, stars)

	starNodes := make([]*Node, len(stars))
	for i, s := range stars {
		starNodes[i] = selectDataSources(fed, s, collection)
	}

	bubbled := placeFilters(stars, starNodes, n.Filters)

	nonEmpty := make([]*Node, 0, len(starNodes))
	anyEmpty := false
	for _, sn := range starNodes {
		if sn.Kind == NodeEmpty {
			anyEmpty = true
			continue
		}
		nonEmpty = append(nonEmpty, sn)
	}
	if anyEmpty {
		// A conjunctive BGP where any star is unsatisfiable is itself
		// unsatisfiable: the whole BGP produces zero bindings.
		return &Node{Kind: NodeEmpty}, nil
	}

	var combined *Node
	switch len(nonEmpty) {
	case 0:
		return &Node{Kind: NodeEmpty}, nil
	case 1:
		combined = nonEmpty[0]
	default:
		combined = &Node{Kind: NodeJoin, Children: nonEmpty}
	}

	combined.Filters = append(combined.Filters, bubbled...)
	return combined, nil
}
