package backend

import (
	"context"

	"github.com/PLATOONProject/Awudima-FQP/exec"
	"github.com/PLATOONProject/Awudima-FQP/logger"
)

// DocumentStore is the narrow slice of a MongoDB driver this wrapper
// needs: run an aggregation pipeline against one collection and stream
// back decoded documents. No MongoDB driver appears in the reference
// pack this implementation was grounded on, so rather than fabricate a
// dependency this wrapper is expressed against a small interface; wiring
// a real driver (e.g. go.mongodb.org/mongo-driver) means implementing
// this interface over its Collection.Aggregate, with no change to
// MongoWrapper itself.
type DocumentStore interface {
	Aggregate(ctx context.Context, collection string, pipeline []map[string]interface{}) (DocumentCursor, error)
}

// DocumentCursor iterates decoded aggregation results.
type DocumentCursor interface {
	Next(ctx context.Context) bool
	Decode() (map[string]interface{}, error)
	Err() error
	Close(ctx context.Context) error
}

// MongoWrapper runs a JSON-LD-flat aggregation pipeline (built by
// translate.Mongo) against one collection and maps each output document
// into a binding per the service's result template.
type MongoWrapper struct {
	Store      DocumentStore
	Collection string
	Log        logger.Logger
}

// NewMongoWrapper returns a wrapper over an already-connected store.
func NewMongoWrapper(store DocumentStore, collection string, log logger.Logger) *MongoWrapper {
	if log == nil {
		log = logger.New()
	}
	return &MongoWrapper{Store: store, Collection: collection, Log: log}
}

// Execute implements exec.Backend.
func (w *MongoWrapper) Execute(ctx context.Context, svc *exec.Service, out exec.Queue) {
	defer out.Close()

	cursor, err := w.Store.Aggregate(ctx, w.Collection, svc.Pipeline)
	if err != nil {
		w.Log.Error("backend: mongo aggregate failed", "collection", w.Collection, "error", err)
		out.Send(ctx, exec.Item{Err: WrapBackendError(err, w.Collection)})
		return
	}
	defer cursor.Close(ctx)

	emitted := 0
	for cursor.Next(ctx) {
		doc, err := cursor.Decode()
		if err != nil {
			out.Send(ctx, exec.Item{Err: WrapBackendError(err, w.Collection)})
			return
		}
		row := make(map[string]string, len(doc))
		for k, v := range doc {
			if s, ok := v.(string); ok {
				row[k] = s
			}
		}
		if !out.Send(ctx, exec.Item{Binding: rowToBinding(row, svc.Template, svc.DataSource)}) {
			return
		}
		emitted++
		if svc.Limit > 0 && emitted >= svc.Limit {
			return
		}
	}
	if err := cursor.Err(); err != nil {
		out.Send(ctx, exec.Item{Err: WrapBackendError(err, w.Collection)})
	}
}
