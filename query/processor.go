// Package query wires the parser, decomposer, planner, translators, and
// execution engine into the single entry point the HTTP surface calls:
// text in, a result (bindings, status, error) out.
package query

import (
	"context"
	"errors"
	"time"

	"github.com/samsarahq/go/oops"

	"github.com/PLATOONProject/Awudima-FQP/catalog"
	"github.com/PLATOONProject/Awudima-FQP/decompose"
	"github.com/PLATOONProject/Awudima-FQP/exec"
	"github.com/PLATOONProject/Awudima-FQP/logger"
	"github.com/PLATOONProject/Awudima-FQP/plan"
	"github.com/PLATOONProject/Awudima-FQP/rdf"
	"github.com/PLATOONProject/Awudima-FQP/sparql"
	"github.com/PLATOONProject/Awudima-FQP/translate"
)

// Processor runs a SPARQL query text against one federation's catalog,
// end to end: parse -> decompose -> plan -> translate -> execute.
type Processor struct {
	Federation *catalog.Federation
	Engine     *exec.Engine
	Translator translate.Translator
	// Timeout bounds one query's wall-clock execution; zero means no
	// timeout beyond the request's own context.
	Timeout time.Duration
	Log     logger.Logger
}

// NewProcessor returns a Processor wired against fed and backends, using a
// default per-query concurrency of 16 backend-facing goroutines.
func NewProcessor(fed *catalog.Federation, backends map[string]exec.Backend, log logger.Logger) *Processor {
	if log == nil {
		log = logger.New()
	}
	return &Processor{
		Federation: fed,
		Engine:     exec.NewEngine(backends, log),
		Translator: translate.Translator{},
		Timeout:    30 * time.Second,
		Log:        log,
	}
}

// Response is everything a caller (the HTTP surface, or a test) needs to
// render a result: the projected variables, the query form, the bindings
// the engine produced (or the ASK/CONSTRUCT-shaped equivalents), and the
// overall status/error per spec.md §7's "All results retrieved" /
// "partial results" / "interrupted" taxonomy.
type Response struct {
	Vars     []string
	Form     rdf.QueryForm
	Bindings []rdf.Binding
	Ask      *exec.AskResult
	Triples  []exec.ConstructTriple
	Status   exec.Status
	Err      error
}

// Execute runs query against p's federation and returns a Response. A
// ParseError or catalog ConfigError is returned directly (the caller
// reports it as a top-level error, not a partial result); a
// DecompositionError at the query's root is absorbed into a zero-binding,
// Finished Response per spec.md §8's boundary behavior rather than
// surfaced as an error.
//
// collection is the /sparql request's optional scope hint, passed straight
// through to the decomposer as an explicit parameter.
func (p *Processor) Execute(ctx context.Context, queryText, collection string) (*Response, error) {
	algebra, err := sparql.Parse(queryText)
	if err != nil {
		return nil, err
	}

	decomposition, err := decompose.Decompose(algebra, p.Federation, collection)
	if err != nil {
		var decompErr *decompose.DecompositionError
		if errors.As(err, &decompErr) {
			return &Response{
				Vars:   algebra.ProjectVars,
				Form:   formOf(algebra.Modifiers.Form),
				Status: exec.StatusFinished,
			}, nil
		}
		return nil, oops.Wrapf(err, "decomposing query")
	}

	logical, err := plan.BuildLogicalPlan(decomposition)
	if err != nil {
		return nil, oops.Wrapf(err, "building logical plan")
	}

	physical, err := plan.BuildPhysicalPlan(logical, p.Federation, p.Translator)
	if err != nil {
		return nil, oops.Wrapf(err, "building physical plan")
	}

	vars := decomposition.ProjectVars
	form := formOf(decomposition.Modifiers.Form)

	if physical == nil {
		return &Response{Vars: vars, Form: form, Status: exec.StatusFinished}, nil
	}

	runCtx := ctx
	if p.Timeout > 0 {
		var cancelTimeout context.CancelFunc
		runCtx, cancelTimeout = context.WithTimeout(ctx, p.Timeout)
		defer cancelTimeout()
	}
	out, g, cancel, err := p.Engine.RunWithTimeout(runCtx, physical, 0)
	if err != nil {
		return nil, oops.Wrapf(err, "launching execution engine")
	}
	defer cancel()

	result := exec.Collect(runCtx, out)
	_ = g.Wait()
	if runCtx.Err() != nil {
		result.Status = exec.StatusInterrupted
		if result.Err == nil {
			result.Err = runCtx.Err()
		}
	}

	resp := &Response{Vars: vars, Form: form, Bindings: result.Bindings, Status: result.Status, Err: result.Err}

	switch form {
	case rdf.FormAsk:
		resp.Ask = &exec.AskResult{Matched: len(result.Bindings) > 0}
	case rdf.FormConstruct:
		resp.Triples = constructFrom(result.Bindings, physical)
	}
	return resp, nil
}

func formOf(f rdf.QueryForm) rdf.QueryForm {
	if f == "" {
		return rdf.FormSelect
	}
	return f
}

// constructFrom re-applies the CONSTRUCT template to already-collected
// bindings, mirroring exec.RunConstruct but over a slice rather than a
// queue since the bindings have already been gathered by Collect.
func constructFrom(bindings []rdf.Binding, physical *exec.Plan) []exec.ConstructTriple {
	tmpl := physical.Template
	if tmpl == nil {
		return nil
	}
	in := exec.NewQueue(len(bindings) + 1)
	go func() {
		for _, b := range bindings {
			in <- exec.Item{Binding: b}
		}
		in.Close()
	}()
	out := make(chan exec.ConstructTriple, len(bindings)*len(tmpl)+1)
	exec.RunConstruct(context.Background(), in, out, tmpl)
	var triples []exec.ConstructTriple
	for t := range out {
		triples = append(triples, t)
	}
	return triples
}
