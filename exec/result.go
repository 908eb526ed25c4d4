package exec

import (
	"context"
	"errors"

	"github.com/PLATOONProject/Awudima-FQP/rdf"
)

// CancellationError marks a task-tree's early termination (e.g. after a
// satisfied Limit signals its ancestors to stop producing). It is never
// surfaced as a request-level failure: Collect treats it as ordinary
// completion rather than as the BackendError that would flip the status
// to interrupted.
type CancellationError struct {
	cause error
}

func (e *CancellationError) Error() string { return "exec: cancelled: " + e.cause.Error() }
func (e *CancellationError) Unwrap() error { return e.cause }

// Cancelled wraps ctx.Err() as a CancellationError, for operators that
// want to report why they stopped early without that reason counting as
// a backend failure.
func Cancelled(ctx context.Context) error {
	return &CancellationError{cause: ctx.Err()}
}

// Result collects everything a request handler needs to answer a query:
// the bindings the root queue delivered, the overall status, and the
// first non-cancellation error seen (if any), suitable for the "message"
// / "error" fields of the HTTP response shape.
type Result struct {
	Bindings []rdf.Binding
	Status   Status
	Err      error
}

// Collect drains q to completion (or until ctx is done), returning every
// binding it saw plus a Status reflecting whether the stream finished
// cleanly, a BackendError truncated it (partial/interrupted), or ctx was
// cancelled first.
func Collect(ctx context.Context, q Queue) Result {
	var res Result
	for {
		select {
		case item, ok := <-q:
			if !ok {
				if res.Err != nil {
					res.Status = StatusPartial
				} else {
					res.Status = StatusFinished
				}
				return res
			}
			if item.Err != nil {
				var cancelErr *CancellationError
				if errors.As(item.Err, &cancelErr) {
					continue
				}
				if res.Err == nil {
					res.Err = item.Err
				}
				continue
			}
			res.Bindings = append(res.Bindings, item.Binding)
		case <-ctx.Done():
			res.Status = StatusInterrupted
			if res.Err == nil {
				res.Err = ctx.Err()
			}
			go q.Drain()
			return res
		}
	}
}
