// Package translate compiles a decomposed leaf service into the concrete
// query text (or aggregation pipeline) its data source kind expects: a
// SPARQL SELECT for endpoint sources, RML-driven SQL for relational
// sources, or a JSON-LD-flat Mongo aggregation pipeline.
package translate

import (
	"context"
	"fmt"

	"github.com/PLATOONProject/Awudima-FQP/catalog"
	"github.com/PLATOONProject/Awudima-FQP/decompose"
	"github.com/PLATOONProject/Awudima-FQP/exec"
	"github.com/PLATOONProject/Awudima-FQP/rdf"
)

// TranslationError reports that no triple-map (or collection, for the
// JSON-LD-flat profile) covers a required predicate of an SSQ. The SSQ
// compiles to an empty result; the caller reports it via the response's
// error field alongside whatever partial results other branches produced.
type TranslationError struct {
	msg string
}

func (e *TranslationError) Error() string { return e.msg }

func translationErrorf(format string, args ...interface{}) error {
	return &TranslationError{msg: fmt.Sprintf(format, args...)}
}

// perKindTranslator is the narrow shape SPARQL/SQL/Mongo each implement.
type perKindTranslator interface {
	Translate(svc *decompose.Service, fed *catalog.Federation, vars []string) (*exec.Service, error)
	Rebind(svc *decompose.Service, fed *catalog.Federation, vars []string, bindVar string) func(ctx context.Context, outer rdf.Binding) (*exec.Plan, error)
}

// Translator dispatches to the right per-kind translator by the target
// data source's kind, implementing plan.ServiceTranslator.
type Translator struct{}

func (Translator) pick(fed *catalog.Federation, ds catalog.DataSourceID) (perKindTranslator, error) {
	src, ok := fed.Source(ds)
	if !ok {
		return nil, fmt.Errorf("translate: unknown data source %s", ds)
	}
	switch {
	case src.Kind == catalog.SPARQLEndpoint:
		return SPARQL{}, nil
	case src.Kind.IsSQL():
		return SQL{}, nil
	case src.Kind == catalog.MongoJSONLDFlat:
		return Mongo{}, nil
	default:
		return nil, fmt.Errorf("translate: unsupported data source kind %q", src.Kind)
	}
}

// Translate implements plan.ServiceTranslator.
func (t Translator) Translate(svc *decompose.Service, fed *catalog.Federation, vars []string) (*exec.Service, error) {
	inner, err := t.pick(fed, svc.DataSource)
	if err != nil {
		return nil, err
	}
	return inner.Translate(svc, fed, vars)
}

// Rebind implements plan.ServiceTranslator.
func (t Translator) Rebind(svc *decompose.Service, fed *catalog.Federation, vars []string, bindVar string) func(ctx context.Context, outer rdf.Binding) (*exec.Plan, error) {
	inner, err := t.pick(fed, svc.DataSource)
	if err != nil {
		return func(ctx context.Context, outer rdf.Binding) (*exec.Plan, error) {
			return nil, err
		}
	}
	return inner.Rebind(svc, fed, vars, bindVar)
}
