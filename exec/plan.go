package exec

import (
	"context"

	"github.com/PLATOONProject/Awudima-FQP/rdf"
)

// OpKind tags the algorithm an Inner plan node runs, replacing what would
// otherwise be a class hierarchy with one operator per kind.
type OpKind int

const (
	OpSymmetricHashJoin OpKind = iota
	OpBindHashJoin
	OpUnion
	OpFilter
	OpProject
	OpDistinct
	OpLimit
	OpOffset
	OpConstruct
	OpAsk
)

func (k OpKind) String() string {
	switch k {
	case OpSymmetricHashJoin:
		return "SymmetricHashJoin"
	case OpBindHashJoin:
		return "BindHashJoin"
	case OpUnion:
		return "Union"
	case OpFilter:
		return "Filter"
	case OpProject:
		return "Project"
	case OpDistinct:
		return "Distinct"
	case OpLimit:
		return "Limit"
	case OpOffset:
		return "Offset"
	case OpConstruct:
		return "Construct"
	case OpAsk:
		return "Ask"
	default:
		return "Unknown"
	}
}

// Service describes one leaf: a single translated query bound for one
// data source, plus everything a backend wrapper needs to execute it and
// shape its output into bindings.
type Service struct {
	DataSource   string
	BackendKind  string // mirrors catalog.DataSourceKind as a string to keep exec decoupled from catalog
	QueryText    string
	Pipeline     []map[string]interface{} // set instead of QueryText for Mongo aggregation leaves
	Template     rdf.ResultTemplate
	Vars         []string
	Limit        int
	Offset       int
	JoinKeyVars  []string // for a bind-join inner: variables substituted into QueryText/Pipeline before execution
	BoundBinding rdf.Binding

	// BindColumn/BindValue identify, for a SQL bind-join inner probe, the
	// projected column holding the join key and the single value this
	// particular probe was instantiated for. The SQL wrapper's batcher uses
	// these to combine concurrent single-value probes sharing the same
	// QueryTemplate into one "IN (...)" query and regroup the rows.
	BindColumn   string
	BindValue    string
	QueryTemplate string // QueryText with BindValue's placeholder token left in, for batching
}

// Plan is the physical operator tree: either a Leaf wrapping a Service, or
// an Inner node naming an OpKind and its children. ProducedVars names
// every variable the node can produce; Vars is the projection list of an
// OpProject node.
type Plan struct {
	IsLeaf bool

	// Leaf fields.
	Service *Service

	// Inner fields.
	Op     OpKind
	Left   *Plan
	Right  *Plan
	Filter *rdf.FilterExpr   // OpFilter
	Vars   []string          // OpProject
	N      int               // OpLimit / OpOffset
	Form   rdf.QueryForm     // OpConstruct / OpAsk
	Template []rdf.TriplePattern // OpConstruct

	ProducedVars []string

	// LeftOuter marks a join node (symmetric or bind) as implementing
	// OPTIONAL semantics: every left tuple survives, extended with right
	// matches when present.
	LeftOuter bool

	// Rebinder, when set on the Right child of an OpBindHashJoin node,
	// reconstructs that subtree with outer's values folded into its leaf
	// service's query text/pipeline for one probe of the bind-hash join.
	// When nil, the Right child runs unmodified for every probe.
	Rebinder func(ctx context.Context, outer rdf.Binding) (*Plan, error)
}

// Leaf builds a leaf plan node around svc.
func Leaf(svc *Service) *Plan {
	return &Plan{IsLeaf: true, Service: svc, ProducedVars: svc.Vars}
}

// Join builds an Inner join node (symmetric or bind) over left and right.
func Join(op OpKind, left, right *Plan) *Plan {
	return &Plan{Op: op, Left: left, Right: right, ProducedVars: unionVars(left.ProducedVars, right.ProducedVars)}
}

// UnionPlan builds an Inner Union node.
func UnionPlan(left, right *Plan) *Plan {
	return &Plan{Op: OpUnion, Left: left, Right: right, ProducedVars: unionVars(left.ProducedVars, right.ProducedVars)}
}

// OptionalPlan builds a left-outer join node over left/right, using op as
// the join algorithm (OpSymmetricHashJoin when both sides are low-selective,
// OpBindHashJoin otherwise).
func OptionalPlan(op OpKind, left, right *Plan) *Plan {
	return &Plan{Op: op, Left: left, Right: right, LeftOuter: true, ProducedVars: unionVars(left.ProducedVars, right.ProducedVars)}
}

// FilterPlan wraps child with a Filter node.
func FilterPlan(child *Plan, expr *rdf.FilterExpr) *Plan {
	return &Plan{Op: OpFilter, Left: child, Filter: expr, ProducedVars: child.ProducedVars}
}

// ProjectPlan wraps child restricting its output to vars.
func ProjectPlan(child *Plan, vars []string) *Plan {
	return &Plan{Op: OpProject, Left: child, Vars: vars, ProducedVars: vars}
}

// DistinctPlan wraps child with tuple-equality deduplication.
func DistinctPlan(child *Plan) *Plan {
	return &Plan{Op: OpDistinct, Left: child, ProducedVars: child.ProducedVars}
}

// LimitPlan wraps child, passing through at most n tuples.
func LimitPlan(child *Plan, n int) *Plan {
	return &Plan{Op: OpLimit, Left: child, N: n, ProducedVars: child.ProducedVars}
}

// OffsetPlan wraps child, dropping the first n tuples.
func OffsetPlan(child *Plan, n int) *Plan {
	return &Plan{Op: OpOffset, Left: child, N: n, ProducedVars: child.ProducedVars}
}

func unionVars(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	var out []string
	for _, v := range a {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	for _, v := range b {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}
