package httpapi

import (
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samsarahq/go/oops"

	"github.com/PLATOONProject/Awudima-FQP/catalog"
	"github.com/PLATOONProject/Awudima-FQP/exec"
	"github.com/PLATOONProject/Awudima-FQP/logger"
	"github.com/PLATOONProject/Awudima-FQP/query"
	"github.com/PLATOONProject/Awudima-FQP/rdf"
)

// Handler serves the three paths spec.md §6 names, delegating query
// execution to query.Processor and catalog load/marshal to
// catalog.LoadJSON/Federation.MarshalJSON. The federation it plans
// against can be hot-swapped via /configure; every other field is fixed
// at construction (one backend per catalog data source, keyed by
// catalog.DataSourceID, per the module's "backend connection pooling is an
// external collaborator" Non-goal).
type Handler struct {
	mu               sync.RWMutex
	fed              *catalog.Federation
	backends         map[string]exec.Backend
	timeout          time.Duration
	queueCapacity    int
	concurrencyLimit int
	log              logger.Logger
}

// New returns a Handler that plans against fed using backends (keyed by
// catalog.DataSourceID string, matching exec.Service.DataSource). timeout
// bounds one query's execution; zero keeps query.NewProcessor's default
// of 30 seconds.
func New(fed *catalog.Federation, backends map[string]exec.Backend, timeout time.Duration, log logger.Logger) *Handler {
	if log == nil {
		log = logger.New()
	}
	return &Handler{fed: fed, backends: backends, timeout: timeout, log: log}
}

// WithConcurrency sets the per-query backend-facing goroutine limit and
// operator queue depth every Processor this Handler builds will use.
func (h *Handler) WithConcurrency(queueCapacity, concurrencyLimit int) *Handler {
	h.queueCapacity = queueCapacity
	h.concurrencyLimit = concurrencyLimit
	return h
}

func (h *Handler) federation() *catalog.Federation {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.fed
}

func (h *Handler) setFederation(fed *catalog.Federation) {
	h.mu.Lock()
	h.fed = fed
	h.mu.Unlock()
}

func (h *Handler) processor() *query.Processor {
	p := query.NewProcessor(h.federation(), h.backends, h.log)
	if h.timeout > 0 {
		p.Timeout = h.timeout
	}
	if h.queueCapacity > 0 {
		p.Engine.QueueCapacity = h.queueCapacity
	}
	if h.concurrencyLimit > 0 {
		p.Engine.Concurrency = h.concurrencyLimit
	}
	return p
}

// ServeHTTP routes to the three named endpoints. Unknown paths get a
// plain 404; every recognized path accepts both GET (query-string
// parameters) and POST (JSON body) per spec.md §6.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/sparql":
		h.serveSparql(w, r)
	case "/configure":
		h.serveConfigure(w, r)
	case "/inspect":
		h.serveInspect(w, r)
	default:
		http.NotFound(w, r)
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

type sparqlRequestParams struct {
	Query      string `json:"query"`
	Collection string `json:"collection"`
}

func parseSparqlRequest(r *http.Request) (sparqlRequestParams, error) {
	if r.Method == http.MethodGet {
		q := r.URL.Query()
		return sparqlRequestParams{Query: q.Get("query"), Collection: q.Get("collection")}, nil
	}
	if r.Body == nil {
		return sparqlRequestParams{}, oops.Errorf("request must include a query")
	}
	defer r.Body.Close()

	ct := r.Header.Get("Content-Type")
	if ct == "application/x-www-form-urlencoded" {
		if err := r.ParseForm(); err != nil {
			return sparqlRequestParams{}, oops.Wrapf(err, "parsing form body")
		}
		return sparqlRequestParams{Query: r.FormValue("query"), Collection: r.FormValue("collection")}, nil
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		return sparqlRequestParams{}, oops.Wrapf(err, "reading request body")
	}
	if len(body) == 0 {
		return sparqlRequestParams{}, oops.Errorf("request must include a query")
	}
	var params sparqlRequestParams
	if err := json.Unmarshal(body, &params); err != nil {
		return sparqlRequestParams{}, oops.Wrapf(err, "decoding JSON body")
	}
	return params, nil
}

// serveSparql implements the /sparql endpoint: parse, plan, execute, and
// shape the result (or any error) into the SPARQL-JSON-like response
// spec.md §6 defines.
func (h *Handler) serveSparql(w http.ResponseWriter, r *http.Request) {
	params, err := parseSparqlRequest(r)
	if err != nil {
		writeJSON(w, http.StatusOK, sparqlJSONResult{Message: "interrupted", Error: err.Error()})
		return
	}
	if params.Query == "" {
		writeJSON(w, http.StatusOK, sparqlJSONResult{Message: "interrupted", Error: "missing required parameter \"query\""})
		return
	}

	queryID := uuid.NewString()
	h.log.Info("httpapi: executing query", "queryId", queryID, "collection", params.Collection)

	p := h.processor()
	resp, err := p.Execute(r.Context(), params.Query, params.Collection)
	if err != nil {
		// A ParseError or catalog ConfigError means the query never ran;
		// report it the same way a query that was cut off mid-flight is
		// reported, since the response shape has no separate "never started"
		// state.
		h.log.Warn("httpapi: query failed", "queryId", queryID, "error", err)
		writeJSON(w, http.StatusOK, sparqlJSONResult{Query: params.Query, Message: "interrupted", Error: err.Error()})
		return
	}

	result := sparqlJSONResult{Query: params.Query, Message: resp.Status.Message()}
	result.Head.Vars = resp.Vars
	if resp.Err != nil {
		result.Error = resp.Err.Error()
	}

	switch resp.Form {
	case rdf.FormAsk:
		matched := resp.Ask != nil && resp.Ask.Matched
		result.Boolean = &matched
	case rdf.FormConstruct:
		result.Results.Bindings = constructBindings(resp.Triples)
	default:
		result.Results.Bindings = make([]map[string]bindingValueJSON, 0, len(resp.Bindings))
		for _, b := range resp.Bindings {
			result.Results.Bindings = append(result.Results.Bindings, bindingToJSON(b))
		}
	}

	h.log.Info("httpapi: query finished", "queryId", queryID, "status", resp.Status.Message(), "rows", len(resp.Bindings))
	writeJSON(w, http.StatusOK, result)
}

// constructBindings reshapes CONSTRUCT's instantiated triples into the
// same {var: value} binding shape SELECT uses, with fixed variable names
// subject/predicate/object, so the response stays one uniform shape.
func constructBindings(triples []exec.ConstructTriple) []map[string]bindingValueJSON {
	out := make([]map[string]bindingValueJSON, 0, len(triples))
	for _, t := range triples {
		out = append(out, map[string]bindingValueJSON{
			"subject":   termToJSON(t.Subject),
			"predicate": termToJSON(t.Predicate),
			"object":    termToJSON(t.Object),
		})
	}
	return out
}

func termToJSON(t rdf.Term) bindingValueJSON {
	switch t.Kind {
	case rdf.KindIRI:
		return bindingValueJSON{Type: "uri", Value: t.Value}
	case rdf.KindBlankNode:
		return bindingValueJSON{Type: "bnode", Value: t.Value}
	default:
		return bindingValueJSON{Type: "literal", Value: t.Value, Datatype: t.Datatype, Lang: t.Lang}
	}
}

// serveConfigure implements /configure: decode a federation JSON (inline
// body or uploaded file) and swap it in as the federation future /sparql
// and /inspect calls use.
func (h *Handler) serveConfigure(w http.ResponseWriter, r *http.Request) {
	data, err := configureBody(r)
	if err != nil {
		writeJSON(w, http.StatusOK, configureResponse{Status: "error", Error: err.Error()})
		return
	}

	fed, err := catalog.LoadJSON(data)
	if err != nil {
		h.log.Warn("httpapi: configure failed", "error", err)
		writeJSON(w, http.StatusOK, configureResponse{Status: "error", Error: err.Error()})
		return
	}

	h.setFederation(fed)
	h.log.Info("httpapi: federation configured", "fedId", fed.FedID, "sources", len(fed.Sources), "molecules", len(fed.Molecules))
	writeJSON(w, http.StatusOK, configureResponse{Status: "ok", Federation: fed})
}

func configureBody(r *http.Request) ([]byte, error) {
	defer r.Body.Close()

	if mf, _, err := r.FormFile("federation"); err == nil {
		defer mf.Close()
		return io.ReadAll(mf)
	}

	if v := r.FormValue("federation"); v != "" {
		return []byte(v), nil
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, oops.Wrapf(err, "reading request body")
	}
	if len(body) == 0 {
		return nil, oops.Errorf("configure requires a federation body")
	}
	return body, nil
}

// serveInspect implements /inspect: report the currently configured
// federation, or {federation: null} when none has been loaded.
func (h *Handler) serveInspect(w http.ResponseWriter, r *http.Request) {
	fed := h.federation()
	if fed == nil {
		writeJSON(w, http.StatusOK, inspectResponse{Federation: nil})
		return
	}
	writeJSON(w, http.StatusOK, inspectResponse{Federation: fed})
}
