// Command fqp runs the federated query processor's HTTP server: it loads a
// federation catalog and the ambient server config, wires one backend
// wrapper per catalog data source, and serves /sparql, /configure, and
// /inspect until killed.
package main

import (
	"database/sql"
	"flag"
	"net/http"
	"os"

	"github.com/PLATOONProject/Awudima-FQP/backend"
	"github.com/PLATOONProject/Awudima-FQP/catalog"
	"github.com/PLATOONProject/Awudima-FQP/config"
	"github.com/PLATOONProject/Awudima-FQP/exec"
	"github.com/PLATOONProject/Awudima-FQP/httpapi"
	"github.com/PLATOONProject/Awudima-FQP/logger"
)

func main() {
	configPath := flag.String("config", "", "path to the ambient server config YAML (optional)")
	flag.Parse()

	log := logger.New()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fatal(log, "loading server config", err)
	}

	fedPath := os.Getenv("CONFIG_FILE")
	if fedPath == "" {
		fedPath = "/data/federation.json"
	}
	fed, err := loadFederation(fedPath)
	if err != nil {
		log.Warn("cmd/fqp: starting with no federation configured", "configFile", fedPath, "error", err)
		fed = nil
	}

	backends := map[string]exec.Backend{
		"unit": backend.UnitBackend{},
	}
	if fed != nil {
		wireBackends(fed, backends, log)
	}

	h := httpapi.New(fed, backends, cfg.Query.Timeout, log).
		WithConcurrency(cfg.Query.QueueCapacity, cfg.Concurrency.Limit)

	log.Info("cmd/fqp: listening", "addr", cfg.Server.Addr)
	if err := http.ListenAndServe(cfg.Server.Addr, h); err != nil {
		fatal(log, "serving http", err)
	}
}

func fatal(log logger.Logger, msg string, err error) {
	log.Error("cmd/fqp: "+msg, "error", err)
	os.Exit(1)
}

// loadFederation reads and parses the federation catalog JSON at path.
func loadFederation(path string) (*catalog.Federation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return catalog.LoadJSON(data)
}

// wireBackends constructs one backend wrapper per data source in fed,
// keyed by the data source's id (matching exec.Service.DataSource). Each
// catalog data source gets its own connection, per the catalog's
// "backends are per data source" model; connection pooling itself (beyond
// database/sql's own pool) is left to the driver, per spec.md's "backend
// connection pooling" non-goal.
//
// MongoDB sources are skipped: no Mongo driver appears in the retrieval
// pack this module was grounded on (see backend.DocumentStore's doc
// comment and DESIGN.md), so there is no real github.com/... client to
// construct one from. Queries touching a Mongo-only star report "no
// backend registered" rather than a fabricated connection.
func wireBackends(fed *catalog.Federation, backends map[string]exec.Backend, log logger.Logger) {
	for id, src := range fed.Sources {
		switch {
		case src.Kind == catalog.SPARQLEndpoint:
			backends[string(id)] = backend.NewSPARQLWrapper(src.URL, nil, log)

		case src.Kind.IsSQL():
			db, err := sql.Open("mysql", src.URL)
			if err != nil {
				log.Error("cmd/fqp: failed to open sql data source", "dataSource", id, "error", err)
				continue
			}
			backends[string(id)] = backend.NewSQLWrapper(db, log)

		case src.Kind == catalog.MongoJSONLDFlat || src.Kind == catalog.MongoGeneric:
			log.Warn("cmd/fqp: no Mongo driver available, leaving data source unregistered", "dataSource", id)

		default:
			log.Warn("cmd/fqp: unsupported data source kind, leaving unregistered", "dataSource", id, "kind", src.Kind)
		}
	}
}
