package backend

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	"github.com/samsarahq/go/oops"

	"github.com/PLATOONProject/Awudima-FQP/batch"
	"github.com/PLATOONProject/Awudima-FQP/exec"
	"github.com/PLATOONProject/Awudima-FQP/logger"
)

// SQLWrapper executes an RML-generated SQL query against a relational
// source through database/sql, paginating with LIMIT/OFFSET and mapping
// rows into bindings per the service's result template.
//
// When a query was produced as a bind-hash-join inner probe, concurrent
// single-value invocations sharing the same QueryTemplate are combined by
// a batch.Func into one "WHERE col IN (...)" query, matching the
// reference pack's pattern for folding many independent fetches into a
// single RPC.
type SQLWrapper struct {
	DB       *sql.DB
	PageSize int
	Log      logger.Logger

	batcher *batch.Func
}

// NewSQLWrapper returns a wrapper over db, an already-opened connection
// pool (pooling itself is a backend-connection-management concern handled
// by the caller, per the catalog's "backend connections are pooled per
// data source" policy).
func NewSQLWrapper(db *sql.DB, log logger.Logger) *SQLWrapper {
	if log == nil {
		log = logger.New()
	}
	w := &SQLWrapper{DB: db, PageSize: 1000, Log: log}
	w.batcher = &batch.Func{
		Many:        w.executeBatch,
		Shard:       func(arg interface{}) interface{} { return arg.(*exec.Service).QueryTemplate },
		MaxSize:     200,
		MaxDuration: batch.DefaultMaxDuration,
	}
	return w
}

// Execute implements exec.Backend.
func (w *SQLWrapper) Execute(ctx context.Context, svc *exec.Service, out exec.Queue) {
	defer out.Close()

	if svc.BindColumn != "" && svc.QueryTemplate != "" && batch.HasBatching(ctx) {
		rows, err := w.batcher.Invoke(ctx, svc)
		if err != nil {
			out.Send(ctx, exec.Item{Err: WrapBackendError(err, svc.DataSource)})
			return
		}
		for _, row := range rows.([]map[string]string) {
			if !out.Send(ctx, exec.Item{Binding: rowToBinding(row, svc.Template, svc.DataSource)}) {
				return
			}
		}
		return
	}

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
		query := fmt.Sprintf("%s LIMIT %d OFFSET %d", strings.TrimRight(svc.QueryText, "; \n\t"), pageSize, offset)
		rows, err := w.query(ctx, query)
		if err != nil {
			w.Log.Error("backend: sql query failed", "error", err)
			out.Send(ctx, exec.Item{Err: WrapBackendError(err, svc.DataSource)})
			return
		}
		for _, row := range rows {
			if !out.Send(ctx, exec.Item{Binding: rowToBinding(row, svc.Template, svc.DataSource)}) {
				return
			}
		}
		if len(rows) < pageSize || (svc.Limit > 0 && offset+len(rows) >= svc.Offset+svc.Limit) {
			return
		}
		offset += len(rows)
		select {
		case <-ctx.Done():
			return
		default:
		}
	}
}

// executeBatch implements batch.ManyFunc: it builds one combined query
// substituting a comma-separated, quoted value list for each service's
// BindValue, executes it once, and regroups rows by BindColumn so each
// caller gets back only the rows matching its own bind value.
func (w *SQLWrapper) executeBatch(ctx context.Context, args []interface{}) ([]interface{}, error) {
	svcs := make([]*exec.Service, len(args))
	values := make([]string, len(args))
	for i, a := range args {
		svcs[i] = a.(*exec.Service)
		values[i] = svcs[i].BindValue
	}

	var quoted []string
	for _, v := range values {
		quoted = append(quoted, "'"+strings.ReplaceAll(v, "'", "''")+"'")
	}
	combined := strings.Replace(svcs[0].QueryTemplate, "$BIND_VALUES$", strings.Join(quoted, ","), 1)

	rows, err := w.query(ctx, combined)
	if err != nil {
		return nil, err
	}

	byValue := make(map[string][]map[string]string)
	for _, row := range rows {
		byValue[row[svcs[0].BindColumn]] = append(byValue[row[svcs[0].BindColumn]], row)
	}

	results := make([]interface{}, len(args))
	for i, svc := range svcs {
		results[i] = byValue[svc.BindValue]
	}
	return results, nil
}

func (w *SQLWrapper) query(ctx context.Context, query string) ([]map[string]string, error) {
	rows, err := w.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, oops.Wrapf(err, "executing sql query %q", query)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, oops.Wrapf(err, "reading sql columns")
	}

	var out []map[string]string
	for rows.Next() {
		raw := make([]sql.NullString, len(cols))
		ptrs := make([]interface{}, len(cols))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, oops.Wrapf(err, "scanning sql row")
		}
		row := make(map[string]string, len(cols))
		for i, c := range cols {
			if raw[i].Valid {
				row[c] = raw[i].String
			}
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
