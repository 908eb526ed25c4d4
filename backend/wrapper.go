// Package backend executes translated per-source queries against live
// data sources and streams the results back as bindings. Each wrapper
// implements exec.Backend: given a Service (query text or pipeline, a
// result template, and pagination bounds) it drives pagination, maps rows
// into bindings per the template, and closes the output queue exactly
// once.
package backend

import (
	"net/url"
	"strings"

	"github.com/samsarahq/go/oops"

	"github.com/PLATOONProject/Awudima-FQP/rdf"
)

// BackendError reports a connection, auth, or query failure against a
// live data source. A wrapper that hits one sends it as the final Item on
// its output queue and closes immediately; upstream operators keep
// whatever bindings they already produced and the request is reported as
// interrupted rather than failed outright.
type BackendError struct {
	cause error
}

func (e *BackendError) Error() string { return "backend: " + e.cause.Error() }
func (e *BackendError) Unwrap() error { return e.cause }

// WrapBackendError tags err as a BackendError, attaching source as
// context the way every wrapper's oops.Wrapf call already does.
func WrapBackendError(err error, source string) error {
	return &BackendError{cause: oops.Wrapf(err, "data source %s", source)}
}

// rowToBinding maps one raw row (already keyed by variable name, values as
// strings) into an rdf.Binding per tmpl, skipping variables whose raw
// value is missing, the literal string "null", or empty — the same
// "guard against missing values" rule the JSON-LD-flat and SQL
// translators both compile into their queries, applied here again as a
// backstop for wrappers that can't push it down.
func rowToBinding(row map[string]string, tmpl rdf.ResultTemplate, source string) rdf.Binding {
	b := make(rdf.Binding, len(tmpl.Variables))
	for _, vt := range tmpl.Variables {
		raw, ok := row[vt.Name]
		if !ok || raw == "null" || raw == "" {
			continue
		}
		val := rdf.BoundValue{Type: vt.Type, Datatype: vt.Datatype, Lang: vt.Lang, Source: []string{source}}
		switch vt.Type {
		case rdf.BoundURI:
			val.Value = percentEncodeURI(raw)
		case rdf.BoundBNode:
			val.Value = strings.TrimPrefix(raw, "_:")
		default:
			val.Value = raw
		}
		b[vt.Name] = val
	}
	return b
}

// percentEncodeURI returns an absolute URI unchanged and percent-encodes
// any other value as a URL path, so that values arriving as raw
// identifiers rather than full IRIs come out escaped.
func percentEncodeURI(raw string) string {
	if u, err := url.Parse(raw); err == nil && u.IsAbs() {
		return raw
	}
	return (&url.URL{Path: raw}).String()
}
