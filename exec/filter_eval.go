package exec

import (
	"strconv"
	"time"

	"github.com/samsarahq/go/oops"

	"github.com/PLATOONProject/Awudima-FQP/rdf"
)

// evalFilter evaluates expr against b, used by the engine's post-fetch
// Filter operator for whatever a translator couldn't push into the
// backend's own query language.
func evalFilter(expr *rdf.FilterExpr, b rdf.Binding) (bool, error) {
	v, err := evalExpr(expr, b)
	if err != nil {
		return false, err
	}
	truth, ok := v.(bool)
	if !ok {
		return false, oops.Errorf("filter expression did not evaluate to a boolean")
	}
	return truth, nil
}

// evalExpr evaluates expr to either a bool (comparison/logical results) or
// a resolvedValue (term leaves), resolving variables against b.
func evalExpr(expr *rdf.FilterExpr, b rdf.Binding) (interface{}, error) {
	switch expr.Op {
	case rdf.OpTerm:
		return resolveLeaf(expr.Term, b)
	case rdf.OpAnd:
		left, err := evalBool(expr.Args[0], b)
		if err != nil {
			return nil, err
		}
		if !left {
			return false, nil
		}
		return evalBool(expr.Args[1], b)
	case rdf.OpOr:
		left, err := evalBool(expr.Args[0], b)
		if err != nil {
			return nil, err
		}
		if left {
			return true, nil
		}
		return evalBool(expr.Args[1], b)
	case rdf.OpNot:
		v, err := evalBool(expr.Args[0], b)
		if err != nil {
			return nil, err
		}
		return !v, nil
	case rdf.OpEq, rdf.OpNeq, rdf.OpLt, rdf.OpLte, rdf.OpGt, rdf.OpGte:
		left, err := evalExpr(expr.Args[0], b)
		if err != nil {
			return nil, err
		}
		right, err := evalExpr(expr.Args[1], b)
		if err != nil {
			return nil, err
		}
		return compare(expr.Op, left, right)
	case rdf.OpPlus, rdf.OpMinus:
		return nil, oops.Errorf("arithmetic filter operators are not evaluated post-fetch")
	case rdf.OpCall:
		return nil, oops.Errorf("unsupported filter function %q", expr.Name)
	default:
		return nil, oops.Errorf("unknown filter operator %q", expr.Op)
	}
}

func evalBool(expr *rdf.FilterExpr, b rdf.Binding) (bool, error) {
	v, err := evalExpr(expr, b)
	if err != nil {
		return false, err
	}
	truth, ok := v.(bool)
	if !ok {
		return false, oops.Errorf("expected boolean operand")
	}
	return truth, nil
}

// resolvedValue carries a leaf value for comparison.
type resolvedValue struct {
	term  rdf.Term
	bound bool
}

func resolveLeaf(t rdf.Term, b rdf.Binding) (interface{}, error) {
	if !t.IsVariable() {
		return resolvedValue{term: t, bound: true}, nil
	}
	val, ok := b[t.Value]
	if !ok {
		return resolvedValue{bound: false}, nil
	}
	var term rdf.Term
	switch val.Type {
	case rdf.BoundURI:
		term = rdf.IRI(val.Value)
	case rdf.BoundBNode:
		term = rdf.BlankNode(val.Value)
	default:
		if val.Datatype != "" {
			term = rdf.TypedLiteral(val.Value, val.Datatype)
		} else {
			term = rdf.Literal(val.Value)
		}
	}
	return resolvedValue{term: term, bound: true}, nil
}

func compare(op rdf.FilterOp, left, right interface{}) (bool, error) {
	lv, lok := left.(resolvedValue)
	rv, rok := right.(resolvedValue)
	if !lok || !rok {
		return false, oops.Errorf("comparison operands must be terms")
	}
	if !lv.bound || !rv.bound {
		return false, nil
	}

	ls, rs := lv.term.Value, rv.term.Value

	if lf, lerr := strconv.ParseFloat(ls, 64); lerr == nil {
		if rf, rerr := strconv.ParseFloat(rs, 64); rerr == nil {
			return numericCompare(op, lf, rf), nil
		}
	}
	if lt, lerr := time.Parse(time.RFC3339, ls); lerr == nil {
		if rt, rerr := time.Parse(time.RFC3339, rs); rerr == nil {
			return timeCompare(op, lt, rt), nil
		}
	}
	return stringCompare(op, ls, rs), nil
}

func numericCompare(op rdf.FilterOp, l, r float64) bool {
	switch op {
	case rdf.OpEq:
		return l == r
	case rdf.OpNeq:
		return l != r
	case rdf.OpLt:
		return l < r
	case rdf.OpLte:
		return l <= r
	case rdf.OpGt:
		return l > r
	case rdf.OpGte:
		return l >= r
	default:
		return false
	}
}

func timeCompare(op rdf.FilterOp, l, r time.Time) bool {
	switch op {
	case rdf.OpEq:
		return l.Equal(r)
	case rdf.OpNeq:
		return !l.Equal(r)
	case rdf.OpLt:
		return l.Before(r)
	case rdf.OpLte:
		return l.Before(r) || l.Equal(r)
	case rdf.OpGt:
		return l.After(r)
	case rdf.OpGte:
		return l.After(r) || l.Equal(r)
	default:
		return false
	}
}

func stringCompare(op rdf.FilterOp, l, r string) bool {
	switch op {
	case rdf.OpEq:
		return l == r
	case rdf.OpNeq:
		return l != r
	case rdf.OpLt:
		return l < r
	case rdf.OpLte:
		return l <= r
	case rdf.OpGt:
		return l > r
	case rdf.OpGte:
		return l >= r
	default:
		return false
	}
}
