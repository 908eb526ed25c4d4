package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/samsarahq/go/oops"

	"github.com/PLATOONProject/Awudima-FQP/exec"
	"github.com/PLATOONProject/Awudima-FQP/logger"
	"github.com/PLATOONProject/Awudima-FQP/rdf"
)

// SPARQLWrapper executes a Service's query text against a SPARQL endpoint
// over HTTP, paginating with LIMIT/OFFSET windows and mapping the
// standard SPARQL-JSON result shape into bindings. No SPARQL client
// library appears anywhere in the reference pack this implementation was
// grounded on, so this wrapper is a direct net/http + encoding/json
// client rather than an adaptation of a third-party SPARQL client.
type SPARQLWrapper struct {
	Endpoint   string
	HTTPClient *http.Client
	PageSize   int
	Log        logger.Logger
}

// NewSPARQLWrapper returns a wrapper with a default page size of 1000 and
// http.DefaultClient when client is nil.
func NewSPARQLWrapper(endpoint string, client *http.Client, log logger.Logger) *SPARQLWrapper {
	if client == nil {
		client = http.DefaultClient
	}
	if log == nil {
		log = logger.New()
	}
	return &SPARQLWrapper{Endpoint: endpoint, HTTPClient: client, PageSize: 1000, Log: log}
}

type sparqlJSONResponse struct {
	Head struct {
		Vars []string `json:"vars"`
	} `json:"head"`
	Results struct {
		Bindings []map[string]sparqlJSONValue `json:"bindings"`
	} `json:"results"`
}

type sparqlJSONValue struct {
	Type     string `json:"type"`
	Value    string `json:"value"`
	Datatype string `json:"datatype,omitempty"`
	Lang     string `json:"xml:lang,omitempty"`
}

// Execute implements exec.Backend.
func (w *SPARQLWrapper) Execute(ctx context.Context, svc *exec.Service, out exec.Queue) {
	defer out.Close()

	limit := svc.Limit
	if limit <= 0 {
		limit = w.PageSize
	}
	pageSize := limit
	if pageSize > w.PageSize {
		pageSize = w.PageSize
	}

	offset := svc.Offset
	for {
		page, err := w.fetchPage(ctx, svc.QueryText, pageSize, offset)
		if err != nil {
			w.Log.Error("backend: sparql query failed", "endpoint", w.Endpoint, "error", err)
			out.Send(ctx, exec.Item{Err: WrapBackendError(err, w.Endpoint)})
			return
		}
		for _, row := range page {
			b := sparqlRowToBinding(row, svc.Template, svc.DataSource)
			if !out.Send(ctx, exec.Item{Binding: b}) {
				return
			}
		}
		if len(page) < pageSize || (svc.Limit > 0 && offset+len(page) >= svc.Offset+svc.Limit) {
			return
		}
		offset += len(page)
		select {
		case <-ctx.Done():
			return
		default:
		}
	}
}

func (w *SPARQLWrapper) fetchPage(ctx context.Context, query string, limit, offset int) ([]map[string]sparqlJSONValue, error) {
	windowed := fmt.Sprintf("%s LIMIT %d OFFSET %d", strings.TrimRight(query, "; \n\t"), limit, offset)

	form := url.Values{"query": {windowed}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.Endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, oops.Wrapf(err, "building sparql request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/sparql-results+json")

	resp, err := w.HTTPClient.Do(req)
	if err != nil {
		return nil, oops.Wrapf(err, "executing sparql request")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, oops.Errorf("sparql endpoint returned %d: %s", resp.StatusCode, string(body))
	}

	var parsed sparqlJSONResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, oops.Wrapf(err, "decoding sparql-json response")
	}
	return parsed.Results.Bindings, nil
}

func sparqlRowToBinding(row map[string]sparqlJSONValue, tmpl rdf.ResultTemplate, source string) rdf.Binding {
	raw := make(map[string]string, len(row))
	for k, v := range row {
		raw[k] = v.Value
	}
	b := rowToBinding(raw, tmpl, source)
	for k, v := range row {
		val, ok := b[k]
		if !ok {
			continue
		}
		switch v.Type {
		case "uri":
			val.Type = rdf.BoundURI
		case "bnode":
			val.Type = rdf.BoundBNode
		default:
			val.Type = rdf.BoundLiteral
			if v.Datatype != "" {
				val.Datatype = v.Datatype
			}
			if v.Lang != "" {
				val.Lang = v.Lang
			}
		}
		b[k] = val
	}
	return b
}
