// Package httpapi is the thin HTTP surface spec.md §6 describes: three
// endpoints (/sparql, /configure, /inspect) wrapping the query package's
// Processor and the catalog's Federation JSON load/marshal. It is
// deliberately the only layer in this module that knows about HTTP;
// everything it calls is otherwise usable as a library.
package httpapi

import (
	"github.com/PLATOONProject/Awudima-FQP/rdf"
)

// sparqlJSONResult is the wire shape spec.md §6 names for /sparql:
//
//	{ head: {vars}, results: {bindings}, message, query, error? }
type sparqlJSONResult struct {
	Head struct {
		Vars []string `json:"vars"`
	} `json:"head"`
	Results struct {
		Bindings []map[string]bindingValueJSON `json:"bindings"`
	} `json:"results"`
	Boolean *bool  `json:"boolean,omitempty"` // set instead of Results for ASK
	Message string `json:"message"`
	Query   string `json:"query"`
	Error   string `json:"error,omitempty"`
}

type bindingValueJSON struct {
	Type     string   `json:"type"`
	Value    string   `json:"value"`
	Datatype string   `json:"datatype,omitempty"`
	Lang     string   `json:"xml:lang,omitempty"`
	Source   []string `json:"source,omitempty"`
}

func bindingToJSON(b rdf.Binding) map[string]bindingValueJSON {
	out := make(map[string]bindingValueJSON, len(b))
	for v, val := range b {
		out[v] = bindingValueJSON{
			Type:     string(val.Type),
			Value:    val.Value,
			Datatype: val.Datatype,
			Lang:     val.Lang,
			Source:   val.Source,
		}
	}
	return out
}

// configureResponse is the wire shape for /configure: {status, federation}.
type configureResponse struct {
	Status     string      `json:"status"`
	Federation interface{} `json:"federation,omitempty"`
	Error      string      `json:"error,omitempty"`
}

// inspectResponse is the wire shape for /inspect: {federation} or
// {federation: null}.
type inspectResponse struct {
	Federation interface{} `json:"federation"`
}
