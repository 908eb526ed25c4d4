package catalog

import (
	"encoding/json"
	"fmt"

	"github.com/samsarahq/go/oops"
)

// ConfigError wraps a malformed or unreadable federation configuration.
// The HTTP surface maps this to its own error response shape, distinct
// from a query-time failure.
type ConfigError struct {
	cause error
}

func (e *ConfigError) Error() string { return "catalog: config error: " + e.cause.Error() }
func (e *ConfigError) Unwrap() error { return e.cause }

func configErrorf(format string, args ...interface{}) error {
	return &ConfigError{cause: oops.Errorf(format, args...)}
}

// rawFederation mirrors the on-disk federation config JSON shape:
// {fedId, name, desc, sources: {id: DataSource...}, rdfmts: [Molecule...]}.
type rawFederation struct {
	FedID string                    `json:"fedId"`
	Name  string                    `json:"name"`
	Desc  string                    `json:"desc"`
	Sources map[string]rawSource    `json:"sources"`
	RdfMTs  []rawMolecule           `json:"rdfmts"`
}

type rawSource struct {
	ID               string                 `json:"id"`
	URL              string                 `json:"url"`
	Kind             string                 `json:"kind"`
	Params           map[string]interface{} `json:"params,omitempty"`
	MappingPaths     []string               `json:"mapping_paths,omitempty"`
	MappingsType     string                 `json:"mappings_type,omitempty"`
	TypingPredicate  string                 `json:"typing_predicate,omitempty"`
	LabelingProperty string                 `json:"labeling_property,omitempty"`
}

type rawPredicate struct {
	ID          string          `json:"pred_id"`
	Label       string          `json:"label,omitempty"`
	Cardinality int64           `json:"cardinality,omitempty"`
	Ranges      []string        `json:"ranges,omitempty"`
}

type rawMolecule struct {
	MtID             string                       `json:"mt_id"`
	Label            string                       `json:"label,omitempty"`
	Cardinality      int64                        `json:"cardinality,omitempty"`
	SubclassOf       []string                     `json:"subclass_of,omitempty"`
	Predicates       []rawPredicate               `json:"predicates"`
	DataSources      []string                     `json:"datasources"`
	PredicateSources map[string][]string          `json:"predicate_sources"`
	InstancePrefixes []string                     `json:"instance_prefixes,omitempty"`
}

// kindByJSON maps the wire string for DataSource.kind to the DataSourceKind
// constants. The wire vocabulary follows the federation config shape used
// by every source kind the catalog can describe, even the kinds this
// implementation's translators don't yet compile queries for.
var kindByJSON = map[string]DataSourceKind{
	"sparqlEndpoint":      SPARQLEndpoint,
	"mySQL":                SQLMySQL,
	"postgreSQL":           SQLPostgres,
	"sqlServer":            SQLServer,
	"mongoDB":              MongoGeneric,
	"mongoDB-JSONLD-flat":  MongoJSONLDFlat,
	"neo4j":                Neo4j,
	"tabularFile":          TabularFile,
	"jsonFile":             JSONFile,
	"xmlFile":              XMLFile,
	"rest":                 REST,
}

// LoadJSON parses a federation config document per the wire shape
// {fedId, name, desc, sources, rdfmts} into a Federation.
//
// Parsing RML mapping documents referenced by a source's mapping_paths is
// left to an external RML-document parser; LoadJSON only records the
// paths on the resulting DataSource so that a caller can populate
// Federation.Mappings separately before planning any query.
func LoadJSON(data []byte) (*Federation, error) {
	var raw rawFederation
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, configErrorf("malformed federation JSON: %w", err)
	}
	if raw.FedID == "" {
		return nil, configErrorf("federation JSON missing fedId")
	}

	fed := New(raw.FedID, raw.Name, raw.Desc)

	for id, rs := range raw.Sources {
		kind, ok := kindByJSON[rs.Kind]
		if !ok {
			return nil, configErrorf("source %s: unknown kind %q", id, rs.Kind)
		}
		ds := &DataSource{
			ID:               DataSourceID(id),
			URL:              rs.URL,
			Kind:             kind,
			Params:           rs.Params,
			MappingPaths:     rs.MappingPaths,
			MappingsType:     rs.MappingsType,
			TypingPredicate:  rs.TypingPredicate,
			LabelingProperty: rs.LabelingProperty,
		}
		fed.AddSource(ds)
	}

	for _, rm := range raw.RdfMTs {
		if rm.MtID == "" {
			return nil, configErrorf("rdfmts entry missing mt_id")
		}
		m := newMolecule(MtID(rm.MtID))
		m.Label = rm.Label
		m.Cardinality = rm.Cardinality
		for _, s := range rm.SubclassOf {
			m.SubclassOf = append(m.SubclassOf, MtID(s))
		}
		m.InstancePrefixes = rm.InstancePrefixes

		for _, rp := range rm.Predicates {
			if rp.ID == "" {
				return nil, configErrorf("molecule %s: predicate missing pred_id", rm.MtID)
			}
			pred := &Predicate{
				ID:          PredicateID(rp.ID),
				Label:       rp.Label,
				Cardinality: rp.Cardinality,
			}
			if len(rp.Ranges) > 0 {
				pred.Ranges = make(map[string]bool, len(rp.Ranges))
				for _, r := range rp.Ranges {
					pred.Ranges[r] = true
				}
			}
			m.Predicates[pred.ID] = pred
		}

		for _, ds := range rm.DataSources {
			m.DataSources[DataSourceID(ds)] = true
		}
		for ds, preds := range rm.PredicateSources {
			set := make(map[PredicateID]bool, len(preds))
			for _, p := range preds {
				set[PredicateID(p)] = true
			}
			m.PredicateSources[DataSourceID(ds)] = set
		}

		fed.AddMolecule(m)
	}

	if err := fed.Validate(); err != nil {
		return nil, &ConfigError{cause: err}
	}
	return fed, nil
}

// MarshalJSON renders fed back to the wire shape LoadJSON accepts, used by
// the /inspect endpoint.
func (f *Federation) MarshalJSON() ([]byte, error) {
	raw := rawFederation{
		FedID:   f.FedID,
		Name:    f.Name,
		Desc:    f.Desc,
		Sources: make(map[string]rawSource, len(f.Sources)),
	}

	jsonByKind := make(map[DataSourceKind]string, len(kindByJSON))
	for k, v := range kindByJSON {
		jsonByKind[v] = k
	}

	for id, ds := range f.Sources {
		raw.Sources[string(id)] = rawSource{
			ID:               string(ds.ID),
			URL:              ds.URL,
			Kind:             jsonByKind[ds.Kind],
			Params:           ds.Params,
			MappingPaths:     ds.MappingPaths,
			MappingsType:     ds.MappingsType,
			TypingPredicate:  ds.TypingPredicate,
			LabelingProperty: ds.LabelingProperty,
		}
	}

	for _, m := range f.Molecules {
		rm := rawMolecule{
			MtID:             string(m.MtID),
			Label:            m.Label,
			Cardinality:      m.Cardinality,
			PredicateSources: make(map[string][]string, len(m.PredicateSources)),
		}
		for _, s := range m.SubclassOf {
			rm.SubclassOf = append(rm.SubclassOf, string(s))
		}
		rm.InstancePrefixes = m.InstancePrefixes
		for pid, pred := range m.Predicates {
			rp := rawPredicate{ID: string(pid), Label: pred.Label, Cardinality: pred.Cardinality}
			for r := range pred.Ranges {
				rp.Ranges = append(rp.Ranges, r)
			}
			rm.Predicates = append(rm.Predicates, rp)
		}
		for ds := range m.DataSources {
			rm.DataSources = append(rm.DataSources, string(ds))
		}
		for ds, preds := range m.PredicateSources {
			var list []string
			for p := range preds {
				list = append(list, string(p))
			}
			rm.PredicateSources[string(ds)] = list
		}
		raw.RdfMTs = append(raw.RdfMTs, rm)
	}

	return json.Marshal(raw)
}

// String implements fmt.Stringer for debug logging.
func (f *Federation) String() string {
	return fmt.Sprintf("Federation{fedId=%s, sources=%d, molecules=%d}", f.FedID, len(f.Sources), len(f.Molecules))
}
