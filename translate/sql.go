package translate

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/PLATOONProject/Awudima-FQP/catalog"
	"github.com/PLATOONProject/Awudima-FQP/decompose"
	"github.com/PLATOONProject/Awudima-FQP/exec"
	"github.com/PLATOONProject/Awudima-FQP/rdf"
)

// SQL translates a decomposed leaf service bound for a relational data
// source by walking the RML triple maps that produced its molecules:
// each star's subject-map template names the driving table and the
// columns its variables resolve to, and each constant predicate pulls in
// either a plain column reference (a TermReference object map) or a
// sub-select joined on the reference-object map's join conditions. When
// no single triple map covers every constant predicate the star needs,
// the maps that together cover it are folded in via LEFT JOIN; when more
// than one triple map covers the star on its own, each is compiled
// separately and the results combined with UNION.
type SQL struct{}

// compiled holds the per-variable column binding discovered while walking
// one triple map, plus the FROM/JOIN clauses and extra WHERE predicates
// (constant-subject scoping, rdf:type contradictions) accumulated along
// the way.
type compiled struct {
	table   string
	varCol  map[string]string // SPARQL variable -> "table.column" (or a literal for a constant rdf:type projection)
	joins   []string
	where   []string
	nextIdx int
}

// Translate compiles svc's triples into a SQL SELECT DISTINCT query (or a
// UNION of several, one per covering triple map) against the triple
// map(s) backing svc's molecules.
func (SQL) Translate(svc *decompose.Service, fed *catalog.Federation, vars []string) (*exec.Service, error) {
	query, err := translateStar(fed, svc, vars, nil)
	if err != nil {
		return nil, err
	}
	return &exec.Service{
		DataSource:  string(svc.DataSource),
		BackendKind: string(mustSourceKind(fed, svc.DataSource)),
		QueryText:   query,
		Template:    templateFor(vars),
		Vars:        vars,
	}, nil
}

// Rebind folds the outer binding's value for bindVar into the SQL text as
// a literal equality predicate. When svc resolves to exactly one triple
// map, BindColumn/BindValue/QueryTemplate are also populated so the
// backend wrapper's batcher can fold many concurrent probes sharing the
// same QueryTemplate into one "IN (...)" query; a star that needed a
// UNION or LEFT JOIN across several triple maps skips batching and just
// runs its own query per probe.
func (SQL) Rebind(svc *decompose.Service, fed *catalog.Federation, vars []string, bindVar string) func(ctx context.Context, outer rdf.Binding) (*exec.Plan, error) {
	return func(ctx context.Context, outer rdf.Binding) (*exec.Plan, error) {
		val, haveVal := outer[bindVar]
		var bound map[string]string
		if haveVal {
			bound = map[string]string{bindVar: quoteSQL(val.Value)}
		}
		queryText, err := translateStar(fed, svc, vars, bound)
		if err != nil {
			return nil, err
		}

		var col, queryTemplate, bindValue string
		if haveVal {
			if maps, err := coveringTripleMaps(fed, svc); err == nil && len(maps) == 1 {
				if c, err := compileTripleMap(fed, svc, maps[0]); err == nil {
					if bc, ok := c.varCol[bindVar]; ok {
						col = bc
						bindValue = val.Value
						queryTemplate = renderSelect(c, vars, svc.Filters, map[string]string{bindVar: "$BIND_VALUES$"})
					}
				}
			}
		}

		return exec.Leaf(&exec.Service{
			DataSource:    string(svc.DataSource),
			BackendKind:   string(mustSourceKind(fed, svc.DataSource)),
			QueryText:     queryText,
			QueryTemplate: queryTemplate,
			BindColumn:    col,
			BindValue:     bindValue,
			Template:      templateFor(vars),
			Vars:          vars,
		}), nil
	}
}

func mustSourceKind(fed *catalog.Federation, ds catalog.DataSourceID) catalog.DataSourceKind {
	if src, ok := fed.Source(ds); ok {
		return src.Kind
	}
	return catalog.SQLMySQL
}

// coveringTripleMaps returns every triple map, deduplicated by id,
// backing any of svc.Molecules on svc.DataSource, sorted by id so the
// UNION/LEFT-JOIN choice below stays deterministic across calls.
func coveringTripleMaps(fed *catalog.Federation, svc *decompose.Service) ([]*catalog.TripleMap, error) {
	seen := map[catalog.TripleMapID]bool{}
	var out []*catalog.TripleMap
	for _, mtID := range svc.Molecules {
		m, ok := fed.Molecule(mtID)
		if !ok {
			continue
		}
		for tmID := range m.MappingIDs[svc.DataSource] {
			if seen[tmID] {
				continue
			}
			tm, ok := fed.Mappings.Get(tmID)
			if !ok {
				continue
			}
			seen[tmID] = true
			out = append(out, tm)
		}
	}
	if len(out) == 0 {
		return nil, translationErrorf("translate: no triple map found for service on data source %s", svc.DataSource)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// translateStar compiles svc against every triple map covering svc's
// molecules on svc's data source. Triple maps that alone cover every
// constant predicate the star requires are each compiled independently
// and UNIONed together; when none does alone, each partially-covering map
// is LEFT JOINed against whichever other covering map supplies its
// missing predicates, and those per-map queries are UNIONed instead.
func translateStar(fed *catalog.Federation, svc *decompose.Service, vars []string, bound map[string]string) (string, error) {
	maps, err := coveringTripleMaps(fed, svc)
	if err != nil {
		return "", err
	}

	var full, partial []*catalog.TripleMap
	for _, tm := range maps {
		switch {
		case tm.Covers(svc.Predicates):
			full = append(full, tm)
		case len(tm.CoveredPredicates(svc.Predicates)) > 0:
			partial = append(partial, tm)
		}
	}

	base := full
	joinMissing := false
	switch {
	case len(full) > 0:
		// at least one triple map covers every required predicate alone.
	case len(partial) > 0:
		base = partial
		joinMissing = true
	default:
		// No triple map matches any required predicate (e.g. the star has
		// none, or data didn't line up with the catalog); fall back to the
		// first so a query still compiles.
		base = maps[:1]
	}

	var selects []string
	for _, tm := range base {
		c, err := compileTripleMap(fed, svc, tm)
		if err != nil {
			return "", err
		}
		if joinMissing {
			joinMissingPredicates(fed, svc, c, tm, maps)
		}
		selects = append(selects, renderSelect(c, vars, svc.Filters, bound))
	}
	sort.Strings(selects)
	return strings.Join(selects, " UNION "), nil
}

// compileTripleMap builds the column bindings for one triple map: the
// subject binding (direct for a variable subject, reverse-matched against
// the subject map for a constant one), every predicate-object map's
// column/join, and the rdf:type special case.
func compileTripleMap(fed *catalog.Federation, svc *decompose.Service, tm *catalog.TripleMap) (*compiled, error) {
	c := &compiled{table: tableName(tm), varCol: map[string]string{}}
	if svc.RootVar != "" {
		c.varCol[svc.RootVar] = subjectColumn(tm, c.table)
	} else if pred, ok := reverseMatchSubject(svc, tm, c.table); ok {
		c.where = append(c.where, pred)
	} else {
		c.where = append(c.where, "1=0")
	}
	for _, pom := range tm.PredicateObjectMaps {
		bindObjectMap(c, fed, svc, pom)
	}
	bindRDFType(c, svc, tm)
	return c, nil
}

// joinMissingPredicates LEFT JOINs, for each of tm's predicates missing
// from svc's required set, whichever other covering triple map supplies
// it, matched on the two triple maps' shared subject column.
func joinMissingPredicates(fed *catalog.Federation, svc *decompose.Service, c *compiled, tm *catalog.TripleMap, allMaps []*catalog.TripleMap) {
	for _, pid := range missingPredicates(tm, svc.Predicates) {
		donor := findDonor(allMaps, tm, pid)
		if donor == nil {
			continue
		}
		alias := fmt.Sprintf("j%d", c.nextIdx)
		c.nextIdx++
		donorTable := tableName(donor) + " AS " + alias
		onExpr := fmt.Sprintf("%s = %s.%s", subjectColumn(tm, c.table), alias, subjectColumnRef(donor))
		c.joins = append(c.joins, fmt.Sprintf("LEFT JOIN %s ON %s", donorTable, onExpr))
		for _, pom := range donor.PredicateObjectMaps {
			if pom.Predicate == pid {
				bindObjectMapOn(c, fed, svc, pom, alias)
			}
		}
	}
}

func missingPredicates(tm *catalog.TripleMap, preds []catalog.PredicateID) []catalog.PredicateID {
	covered := map[catalog.PredicateID]bool{}
	for _, p := range tm.CoveredPredicates(preds) {
		covered[p] = true
	}
	var out []catalog.PredicateID
	for _, p := range preds {
		if !covered[p] {
			out = append(out, p)
		}
	}
	return out
}

func findDonor(allMaps []*catalog.TripleMap, self *catalog.TripleMap, pid catalog.PredicateID) *catalog.TripleMap {
	for _, tm := range allMaps {
		if tm.ID == self.ID {
			continue
		}
		if len(tm.CoveredPredicates([]catalog.PredicateID{pid})) > 0 {
			return tm
		}
	}
	return nil
}

func tableName(tm *catalog.TripleMap) string {
	switch {
	case tm.LogicalSource.TableName != "":
		return tm.LogicalSource.TableName
	case tm.LogicalSource.Query != "":
		return "(" + tm.LogicalSource.Query + ")"
	default:
		return "t_" + string(tm.ID)
	}
}

func subjectColumn(tm *catalog.TripleMap, table string) string {
	if tm.SubjectMap.Kind == catalog.TermReference {
		return table + "." + tm.SubjectMap.Reference
	}
	return table + "." + templateLeadColumn(tm.SubjectMap.Template)
}

// templateLeadColumn extracts the first {column} reference from an RML
// template string, the common case for a single-column subject template.
func templateLeadColumn(tmpl string) string {
	start := strings.IndexByte(tmpl, '{')
	end := strings.IndexByte(tmpl, '}')
	if start < 0 || end < 0 || end < start {
		return tmpl
	}
	return tmpl[start+1 : end]
}

// templateAffixes splits an RML template string around its first {column}
// placeholder into the literal text before and after it.
func templateAffixes(tmpl string) (prefix, suffix string, ok bool) {
	start := strings.IndexByte(tmpl, '{')
	end := strings.IndexByte(tmpl, '}')
	if start < 0 || end < 0 || end < start {
		return "", "", false
	}
	return tmpl[:start], tmpl[end+1:], true
}

// reverseMatchSubject reverse-matches svc's constant subject term against
// tm's subject map, producing the WHERE predicate that scopes a query to
// that one instance: a template "prefix{col}suffix" yields "col = value"
// when the constant subject's IRI fits the template's literal
// prefix/suffix, a constant subject map is a literal yes/no, and a plain
// reference column is compared to the subject term directly. Anything
// that can't be reversed this way reports ok=false so the caller adds a
// contradiction predicate instead of leaving the query unconstrained.
func reverseMatchSubject(svc *decompose.Service, tm *catalog.TripleMap, table string) (string, bool) {
	if len(svc.Triples) == 0 {
		return "", false
	}
	subject := svc.Triples[0].Subject
	if subject.IsVariable() {
		return "", false
	}

	switch tm.SubjectMap.Kind {
	case catalog.TermConstant:
		if tm.SubjectMap.Constant == subject.Value {
			return "1=1", true
		}
		return "", false

	case catalog.TermTemplate:
		prefix, suffix, ok := templateAffixes(tm.SubjectMap.Template)
		if !ok || !strings.HasPrefix(subject.Value, prefix) || !strings.HasSuffix(subject.Value, suffix) {
			return "", false
		}
		if len(subject.Value) < len(prefix)+len(suffix) {
			return "", false
		}
		value := subject.Value[len(prefix) : len(subject.Value)-len(suffix)]
		col := table + "." + templateLeadColumn(tm.SubjectMap.Template)
		return fmt.Sprintf("%s = '%s'", col, strings.ReplaceAll(value, "'", "''")), true

	case catalog.TermReference:
		col := table + "." + tm.SubjectMap.Reference
		return fmt.Sprintf("%s = %s", col, quoteSQL(subject.Value)), true

	default:
		return "", false
	}
}

// bindRDFType handles the rdf:type predicate, which isn't carried as a
// predicate-object map: a variable object projects tm's subject map
// rdf:type assertions as a constant comma-joined string column, and a
// constant object that tm's subject map doesn't assert adds a
// contradiction predicate so this triple map contributes no rows for it.
func bindRDFType(c *compiled, svc *decompose.Service, tm *catalog.TripleMap) {
	for _, t := range svc.Triples {
		if !rdf.IsTypePredicate(t.Predicate) {
			continue
		}
		if t.Object.IsVariable() {
			c.varCol[t.Object.Value] = quoteSQL(strings.Join(tm.SubjectMap.RDFTypes, ","))
			continue
		}
		if !containsString(tm.SubjectMap.RDFTypes, t.Object.Value) {
			c.where = append(c.where, "1=0")
		}
	}
}

func containsString(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// bindObjectMap resolves one predicate-object map against svc's star,
// recording the object variable's column when the star's triples
// reference it, on c's own lead table.
func bindObjectMap(c *compiled, fed *catalog.Federation, svc *decompose.Service, pom catalog.PredicateObjectMap) {
	bindObjectMapOn(c, fed, svc, pom, c.table)
}

// bindObjectMapOn is bindObjectMap against an explicit table/alias,
// letting a triple map's predicate-object maps be bound against a LEFT
// JOINed donor's alias instead of c's own lead table.
func bindObjectMapOn(c *compiled, fed *catalog.Federation, svc *decompose.Service, pom catalog.PredicateObjectMap, table string) {
	objVar := objectVariable(svc, pom.Predicate)
	if objVar == "" {
		return
	}
	switch {
	case pom.Object.Term != nil && pom.Object.Term.Kind == catalog.TermReference:
		c.varCol[objVar] = table + "." + pom.Object.Term.Reference

	case pom.Object.Reference != nil:
		parent, ok := fed.Mappings.Get(pom.Object.Reference.ParentTripleMap)
		if !ok {
			return
		}
		alias := fmt.Sprintf("j%d", c.nextIdx)
		c.nextIdx++
		parentTable := tableName(parent) + " AS " + alias
		var onParts []string
		for _, jc := range pom.Object.Reference.JoinConditions {
			onParts = append(onParts, fmt.Sprintf("%s.%s = %s.%s", table, jc.Child, alias, jc.Parent))
		}
		c.joins = append(c.joins, fmt.Sprintf("JOIN %s ON %s", parentTable, strings.Join(onParts, " AND ")))
		c.varCol[objVar] = alias + "." + subjectColumnRef(parent)
	}
}

func subjectColumnRef(tm *catalog.TripleMap) string {
	if tm.SubjectMap.Kind == catalog.TermReference {
		return tm.SubjectMap.Reference
	}
	return templateLeadColumn(tm.SubjectMap.Template)
}

func objectVariable(svc *decompose.Service, pred catalog.PredicateID) string {
	for _, t := range svc.Triples {
		if t.Predicate.IsConstant() && catalog.PredicateID(t.Predicate.Value) == pred && t.Object.IsVariable() {
			return t.Object.Value
		}
	}
	return ""
}

// renderSelect emits "SELECT DISTINCT col AS var, ... FROM table joins
// WHERE where". overrides substitutes a literal SQL fragment in place of
// a variable's column for the equality side of a bind-hash join probe.
func renderSelect(c *compiled, vars []string, filters []*rdf.FilterExpr, overrides map[string]string) string {
	sorted := append([]string(nil), vars...)
	sort.Strings(sorted)

	var cols []string
	for _, v := range sorted {
		col, ok := c.varCol[v]
		if !ok {
			continue
		}
		cols = append(cols, fmt.Sprintf("%s AS %s", col, v))
	}

	var b strings.Builder
	b.WriteString("SELECT DISTINCT ")
	b.WriteString(strings.Join(cols, ", "))
	b.WriteString(" FROM ")
	b.WriteString(c.table)
	for _, j := range c.joins {
		b.WriteString(" ")
		b.WriteString(j)
	}

	var where []string
	where = append(where, c.where...)
	for v, lit := range overrides {
		if col, ok := c.varCol[v]; ok {
			where = append(where, fmt.Sprintf("%s = %s", col, lit))
		}
	}
	for _, f := range filters {
		where = append(where, sqlExprText(c, f))
	}
	sort.Strings(where) // deterministic text for QueryTemplate/QueryText diffing
	if len(where) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(where, " AND "))
	}
	return b.String()
}

func sqlExprText(c *compiled, f *rdf.FilterExpr) string {
	switch f.Op {
	case rdf.OpTerm:
		if f.Term.IsVariable() {
			if col, ok := c.varCol[f.Term.Value]; ok {
				return col
			}
			return f.Term.Value
		}
		return sqlLiteral(f.Term)
	case rdf.OpNot:
		return "NOT (" + sqlExprText(c, f.Args[0]) + ")"
	case rdf.OpAnd:
		return fmt.Sprintf("(%s AND %s)", sqlExprText(c, f.Args[0]), sqlExprText(c, f.Args[1]))
	case rdf.OpOr:
		return fmt.Sprintf("(%s OR %s)", sqlExprText(c, f.Args[0]), sqlExprText(c, f.Args[1]))
	case rdf.OpEq:
		return fmt.Sprintf("(%s = %s)", sqlExprText(c, f.Args[0]), sqlExprText(c, f.Args[1]))
	case rdf.OpNeq:
		return fmt.Sprintf("(%s <> %s)", sqlExprText(c, f.Args[0]), sqlExprText(c, f.Args[1]))
	default:
		return fmt.Sprintf("(%s %s %s)", sqlExprText(c, f.Args[0]), f.Op, sqlExprText(c, f.Args[1]))
	}
}

func sqlLiteral(t rdf.Term) string {
	switch t.Kind {
	case rdf.KindIRI:
		return quoteSQL(t.Value)
	default:
		return quoteSQL(t.Value)
	}
}

func quoteSQL(v string) string {
	if _, err := strconv.ParseFloat(v, 64); err == nil {
		return v
	}
	return "'" + strings.ReplaceAll(v, "'", "''") + "'"
}
