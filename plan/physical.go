package plan

import (
	"context"
	"sort"

	"github.com/PLATOONProject/Awudima-FQP/catalog"
	"github.com/PLATOONProject/Awudima-FQP/decompose"
	"github.com/PLATOONProject/Awudima-FQP/exec"
	"github.com/PLATOONProject/Awudima-FQP/rdf"
)

// bindJoinInnerLimit is applied to a bind-hash join's inner leaf so a
// single probe can't run away against a backend with no other limit.
const bindJoinInnerLimit = 10000

// ServiceTranslator turns a decomposed leaf service into something the
// execution engine can run: query text (or a Mongo pipeline) plus a
// result template, and a per-outer-binding rebind closure for use as a
// bind-hash join inner. The translate package supplies the concrete
// implementation; plan only depends on this interface so the two packages
// don't import each other.
type ServiceTranslator interface {
	Translate(svc *decompose.Service, fed *catalog.Federation, vars []string) (*exec.Service, error)
	Rebind(svc *decompose.Service, fed *catalog.Federation, vars []string, bindVar string) func(ctx context.Context, outer rdf.Binding) (*exec.Plan, error)
}

// BuildPhysicalPlan chooses join algorithms over the logical plan's bushy
// tree and wraps the result with the query's solution modifiers.
func BuildPhysicalPlan(l *LogicalPlan, fed *catalog.Federation, tr ServiceTranslator) (*exec.Plan, error) {
	root, err := buildNode(l.Root, fed, tr)
	if err != nil {
		return nil, err
	}

	if len(l.ProjectVars) > 0 {
		root = exec.ProjectPlan(root, l.ProjectVars)
	}
	if l.Modifiers.Distinct {
		root = exec.DistinctPlan(root)
	}
	if l.Modifiers.Offset != nil && *l.Modifiers.Offset > 0 {
		root = exec.OffsetPlan(root, *l.Modifiers.Offset)
	}
	if l.Modifiers.Limit != nil && *l.Modifiers.Limit > 0 {
		root = exec.LimitPlan(root, *l.Modifiers.Limit)
	}
	switch l.Modifiers.Form {
	case rdf.FormConstruct:
		root = &exec.Plan{Op: exec.OpConstruct, Left: root, Form: rdf.FormConstruct, Template: l.Modifiers.ConstructTemplate, ProducedVars: root.ProducedVars}
	case rdf.FormAsk:
		root = &exec.Plan{Op: exec.OpAsk, Left: root, Form: rdf.FormAsk, ProducedVars: root.ProducedVars}
	}
	return root, nil
}

func buildNode(n *decompose.Node, fed *catalog.Federation, tr ServiceTranslator) (*exec.Plan, error) {
	switch n.Kind {
	case decompose.NodeService:
		return buildLeaf(n.Service, fed, tr)

	case decompose.NodeUnion:
		return buildUnion(n.Children, fed, tr)

	case decompose.NodeJoin:
		return buildJoin(n, fed, tr, false)

	case decompose.NodeOptional:
		left, err := buildNode(n.Child, fed, tr)
		if err != nil {
			return nil, err
		}
		right, err := buildNode(n.OptionalChild, fed, tr)
		if err != nil {
			return nil, err
		}
		return wrapJoin(left, right, n.Child, n.OptionalChild, fed, tr, true)

	case decompose.NodeUnit:
		return buildUnit(n)

	default: // NodeEmpty: callers only reach here for a non-root empty branch already filtered by decompose
		return nil, nil
	}
}

// buildUnit compiles the zero-triple-pattern placeholder into a leaf whose
// backend emits exactly one binding with no variables bound, per spec.md
// §8's "zero triple patterns -> empty binding for SELECT *" boundary
// behavior.
func buildUnit(n *decompose.Node) (*exec.Plan, error) {
	p := exec.Leaf(&exec.Service{DataSource: "unit", BackendKind: "unit"})
	for _, f := range n.Filters {
		p = exec.FilterPlan(p, f)
	}
	return p, nil
}

func buildLeaf(svc *decompose.Service, fed *catalog.Federation, tr ServiceTranslator) (*exec.Plan, error) {
	vars := append([]string(nil), svc.ProducedVars...)
	sort.Strings(vars)
	translated, err := tr.Translate(svc, fed, vars)
	if err != nil {
		return nil, err
	}
	p := exec.Leaf(translated)
	for _, f := range svc.Filters {
		p = exec.FilterPlan(p, f)
	}
	return p, nil
}

func buildUnion(children []*decompose.Node, fed *catalog.Federation, tr ServiceTranslator) (*exec.Plan, error) {
	plans := make([]*exec.Plan, 0, len(children))
	for _, c := range children {
		p, err := buildNode(c, fed, tr)
		if err != nil {
			return nil, err
		}
		if p != nil {
			plans = append(plans, p)
		}
	}
	if len(plans) == 0 {
		return nil, nil
	}
	root := plans[0]
	for _, p := range plans[1:] {
		root = exec.UnionPlan(root, p)
	}
	return root, nil
}

// buildJoin assembles a decompose.NodeJoin's children (already shaped as a
// binary bushy tree by the logical planner, but tolerant of more than two
// for a join node the logical pass left untouched) pairwise, applying the
// join node's own filters as they attach.
func buildJoin(n *decompose.Node, fed *catalog.Federation, tr ServiceTranslator, leftOuter bool) (*exec.Plan, error) {
	children := n.Children
	if len(children) == 0 {
		return nil, nil
	}
	root, err := buildNode(children[0], fed, tr)
	if err != nil {
		return nil, err
	}
	rootLogical := children[0]
	for i := 1; i < len(children); i++ {
		right, err := buildNode(children[i], fed, tr)
		if err != nil {
			return nil, err
		}
		root, err = wrapJoin(root, right, rootLogical, children[i], fed, tr, leftOuter)
		if err != nil {
			return nil, err
		}
	}
	for _, f := range n.Filters {
		root = exec.FilterPlan(root, f)
	}
	return root, nil
}

// wrapJoin picks the join algorithm per the selectivity heuristic: prefer a
// bind-hash join driven by whichever side is a single constant-subject
// service leaf, fall back to symmetric when both sides are low-selective
// SPARQL-endpoint leaves, use a bind-hash join with the more selective side
// as the outer when exactly one side is high-selective, and a symmetric
// join in every other case.
func wrapJoin(left, right *exec.Plan, leftLogical, rightLogical *decompose.Node, fed *catalog.Federation, tr ServiceTranslator, leftOuter bool) (*exec.Plan, error) {
	if right == nil {
		return left, nil
	}
	if left == nil {
		return right, nil
	}

	joinVar, ok := sharedVar(left.ProducedVars, right.ProducedVars)

	switch {
	case ok && isConstantSubjectLeaf(rightLogical):
		return bindHashJoin(left, right, rightLogical, fed, tr, joinVar, leftOuter)

	case ok && isConstantSubjectLeaf(leftLogical) && !leftOuter:
		return bindHashJoin(right, left, leftLogical, fed, tr, joinVar, false)

	case isSparqlEndpointLeaf(leftLogical, fed) && isSparqlEndpointLeaf(rightLogical, fed) &&
		!isHighSelective(leftLogical) && !isHighSelective(rightLogical):
		p := exec.Join(exec.OpSymmetricHashJoin, left, right)
		p.LeftOuter = leftOuter
		return p, nil

	case ok && isHighSelective(rightLogical) && !isHighSelective(leftLogical):
		return bindHashJoin(left, right, rightLogical, fed, tr, joinVar, leftOuter)

	case ok && isHighSelective(leftLogical) && !isHighSelective(rightLogical) && !leftOuter:
		return bindHashJoin(right, left, leftLogical, fed, tr, joinVar, false)

	default:
		p := exec.Join(exec.OpSymmetricHashJoin, left, right)
		p.LeftOuter = leftOuter
		return p, nil
	}
}

func bindHashJoin(outer, inner *exec.Plan, innerLogical *decompose.Node, fed *catalog.Federation, tr ServiceTranslator, bindVar string, leftOuter bool) (*exec.Plan, error) {
	innerService := onlyLeafService(innerLogical)
	p := exec.Join(exec.OpBindHashJoin, outer, inner)
	p.LeftOuter = leftOuter
	if innerService != nil {
		vars := append([]string(nil), innerService.ProducedVars...)
		sort.Strings(vars)
		p.Right.Rebinder = tr.Rebind(innerService, fed, vars, bindVar)
		if p.Right.IsLeaf && p.Right.Service != nil {
			p.Right.Service.Limit = bindJoinInnerLimit
		}
	}
	return p, nil
}

// onlyLeafService returns the single decompose.Service at n when n (or its
// sole descendant chain) is exactly one leaf, so the bind-hash join can
// build a rebind closure for it; nil when the subtree isn't a bare leaf
// (e.g. already a Union, which can't be rebound as a unit here).
func onlyLeafService(n *decompose.Node) *decompose.Service {
	if n.Kind == decompose.NodeService {
		return n.Service
	}
	return nil
}

func isConstantSubjectLeaf(n *decompose.Node) bool {
	if n.Kind != decompose.NodeService {
		return false
	}
	for _, t := range n.Service.Triples {
		if t.Subject.IsVariable() {
			return false
		}
	}
	return len(n.Service.Triples) > 0
}

func isSparqlEndpointLeaf(n *decompose.Node, fed *catalog.Federation) bool {
	if n.Kind != decompose.NodeService {
		return false
	}
	src, ok := fed.Source(n.Service.DataSource)
	return ok && src.Kind == catalog.SPARQLEndpoint
}

func isHighSelective(n *decompose.Node) bool {
	if n.Kind != decompose.NodeService {
		return false
	}
	for _, t := range n.Service.Triples {
		if t.HighSelective() {
			return true
		}
	}
	return false
}

func sharedVar(a, b []string) (string, bool) {
	set := make(map[string]bool, len(a))
	for _, v := range a {
		set[v] = true
	}
	for _, v := range b {
		if set[v] {
			return v, true
		}
	}
	return "", false
}
