package rdf

// TriplePattern is a (subject, predicate, object) triple where any position
// may be a variable.
type TriplePattern struct {
	Subject   Term
	Predicate Term
	Object    Term
}

// Variables returns the distinct variable names appearing in t, in
// subject/predicate/object order.
func (t TriplePattern) Variables() []string {
	var vars []string
	seen := make(map[string]bool)
	add := func(term Term) {
		if term.IsVariable() && !seen[term.Value] {
			seen[term.Value] = true
			vars = append(vars, term.Value)
		}
	}
	add(t.Subject)
	add(t.Predicate)
	add(t.Object)
	return vars
}

// ConstantPercentage is the fraction of the triple's three term positions
// that are constant. This feeds a coarse boolean high/low-selective split,
// not a true cardinality estimate.
func (t TriplePattern) ConstantPercentage() float64 {
	constants := 0
	for _, term := range []Term{t.Subject, t.Predicate, t.Object} {
		if term.IsConstant() {
			constants++
		}
	}
	return float64(constants) / 3
}

// HighSelective reports whether this triple pattern is "high-selective":
// constant-percentage > 0.5, or the subject is constant.
func (t TriplePattern) HighSelective() bool {
	return t.ConstantPercentage() > 0.5 || t.Subject.IsConstant()
}
