package rdf

// FilterOp names a binary/unary operator or a SPARQL built-in function
// symbol that can appear in a FilterExpr.
type FilterOp string

const (
	OpEq         FilterOp = "="
	OpNeq        FilterOp = "!="
	OpLt         FilterOp = "<"
	OpLte        FilterOp = "<="
	OpGt         FilterOp = ">"
	OpGte        FilterOp = ">="
	OpAnd        FilterOp = "&&"
	OpOr         FilterOp = "||"
	OpNot        FilterOp = "!"
	OpPlus       FilterOp = "+"
	OpMinus      FilterOp = "-"
	OpCall       FilterOp = "call" // function call; Name holds the function symbol
	OpTerm       FilterOp = "term" // a leaf term (constant or variable)
)

// FilterExpr is a node in a SPARQL FILTER expression tree: a binary/unary
// operator over Args, a function call (Op == OpCall, Name == function
// symbol, Args == arguments), or a leaf term (Op == OpTerm, Term set).
type FilterExpr struct {
	Op   FilterOp
	Name string // function symbol, only meaningful when Op == OpCall
	Args []*FilterExpr
	Term Term // only meaningful when Op == OpTerm
}

// Leaf constructs a leaf FilterExpr wrapping a constant or variable term.
func Leaf(t Term) *FilterExpr { return &FilterExpr{Op: OpTerm, Term: t} }

// Binary constructs a binary operator node.
func Binary(op FilterOp, left, right *FilterExpr) *FilterExpr {
	return &FilterExpr{Op: op, Args: []*FilterExpr{left, right}}
}

// Unary constructs a unary operator node.
func Unary(op FilterOp, arg *FilterExpr) *FilterExpr {
	return &FilterExpr{Op: op, Args: []*FilterExpr{arg}}
}

// Call constructs a function-call node.
func Call(name string, args ...*FilterExpr) *FilterExpr {
	return &FilterExpr{Op: OpCall, Name: name, Args: args}
}

// FreeVariables returns the distinct variable names referenced anywhere in
// the expression tree.
func (f *FilterExpr) FreeVariables() []string {
	var vars []string
	seen := make(map[string]bool)
	var walk func(*FilterExpr)
	walk = func(e *FilterExpr) {
		if e == nil {
			return
		}
		if e.Op == OpTerm && e.Term.IsVariable() && !seen[e.Term.Value] {
			seen[e.Term.Value] = true
			vars = append(vars, e.Term.Value)
		}
		for _, arg := range e.Args {
			walk(arg)
		}
	}
	walk(f)
	return vars
}

// SubsetOf reports whether every free variable of f is present in vars.
// Used by the decomposer to decide whether a filter can be attached to a
// single SSQ: a filter may be pushed to a leaf only when its free
// variables are a subset of the leaf's produced variables.
func (f *FilterExpr) SubsetOf(vars map[string]bool) bool {
	for _, v := range f.FreeVariables() {
		if !vars[v] {
			return false
		}
	}
	return true
}
