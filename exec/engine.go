package exec

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/PLATOONProject/Awudima-FQP/logger"
	"github.com/PLATOONProject/Awudima-FQP/rdf"
)

// Backend executes one leaf Service, streaming result bindings onto out
// and closing out exactly once when the backend is done or has failed.
// Implementations live in the backend package; exec only depends on this
// narrow interface so the two packages don't import each other.
type Backend interface {
	Execute(ctx context.Context, svc *Service, out Queue)
}

// Status summarizes how a query's task tree finished, mirroring the
// message field the HTTP surface reports.
type Status int

const (
	StatusFinished Status = iota
	StatusPartial
	StatusInterrupted
)

func (s Status) Message() string {
	switch s {
	case StatusFinished:
		return "All results retrieved"
	case StatusPartial:
		return "partial results"
	case StatusInterrupted:
		return "interrupted"
	default:
		return "unknown"
	}
}

// Engine runs physical plans against a fixed set of backends, one per
// catalog data source (keyed by catalog.DataSourceID string, matching
// Service.DataSource), with bounded overall concurrency for backend-facing
// goroutines.
type Engine struct {
	Backends    map[string]Backend
	Concurrency int
	// QueueCapacity is the bounded channel depth used for every operator's
	// output queue. Zero means the default of 64.
	QueueCapacity int
	Log           logger.Logger
}

// NewEngine returns an Engine with a default concurrency of 16, a default
// queue capacity of 64, and logger.New() if log is nil.
func NewEngine(backends map[string]Backend, log logger.Logger) *Engine {
	if log == nil {
		log = logger.New()
	}
	return &Engine{Backends: backends, Concurrency: 16, QueueCapacity: 64, Log: log}
}

func (e *Engine) queueCap() int {
	if e.QueueCapacity <= 0 {
		return 64
	}
	return e.QueueCapacity
}

// Run launches plan's operator tree and returns the root output queue.
// Every task observes ctx for cancellation, including an optional
// wall-clock timeout the caller may have already attached to ctx.
// Errors from leaves surface as Items with a non-nil Err rather than as
// Go errors from Run itself; Run's own error is reserved for a plan that
// is structurally invalid.
func (e *Engine) Run(ctx context.Context, plan *Plan) (Queue, *errgroup.Group, error) {
	ctx = WithConcurrencyLimiter(ctx, maxIntArg(e.Concurrency))
	g, gctx := errgroup.WithContext(ctx)
	out, err := e.launch(gctx, g, plan)
	if err != nil {
		return nil, nil, err
	}
	return out, g, nil
}

func maxIntArg(n int) int {
	if n <= 0 {
		return 16
	}
	return n
}

func (e *Engine) launch(ctx context.Context, g *errgroup.Group, plan *Plan) (Queue, error) {
	if plan.IsLeaf {
		return e.launchLeaf(ctx, g, plan.Service)
	}

	switch plan.Op {
	case OpSymmetricHashJoin:
		left, err := e.launch(ctx, g, plan.Left)
		if err != nil {
			return nil, err
		}
		right, err := e.launch(ctx, g, plan.Right)
		if err != nil {
			return nil, err
		}
		out := NewQueue(e.queueCap())
		joinVars := sharedVars(plan.Left.ProducedVars, plan.Right.ProducedVars)
		g.Go(func() error {
			AcquireGoroutineToken(ctx)
			defer ReleaseGoroutineToken(ctx)
			runSymmetricHashJoin(ctx, left, right, out, joinVars, plan.LeftOuter)
			return nil
		})
		return out, nil

	case OpBindHashJoin:
		left, err := e.launch(ctx, g, plan.Left)
		if err != nil {
			return nil, err
		}
		out := NewQueue(e.queueCap())
		joinVars := sharedVars(plan.Left.ProducedVars, plan.Right.ProducedVars)
		inner := plan.Right
		g.Go(func() error {
			AcquireGoroutineToken(ctx)
			defer ReleaseGoroutineToken(ctx)
			runBindHashJoin(ctx, left, out, joinVars, e.bindProbe(g, inner), plan.LeftOuter, e.Concurrency)
			return nil
		})
		return out, nil

	case OpUnion:
		left, err := e.launch(ctx, g, plan.Left)
		if err != nil {
			return nil, err
		}
		right, err := e.launch(ctx, g, plan.Right)
		if err != nil {
			return nil, err
		}
		out := NewQueue(e.queueCap())
		g.Go(func() error {
			runUnion(ctx, left, right, out)
			return nil
		})
		return out, nil

	case OpFilter:
		in, err := e.launch(ctx, g, plan.Left)
		if err != nil {
			return nil, err
		}
		out := NewQueue(e.queueCap())
		g.Go(func() error {
			runFilter(ctx, in, out, plan.Filter)
			return nil
		})
		return out, nil

	case OpProject:
		in, err := e.launch(ctx, g, plan.Left)
		if err != nil {
			return nil, err
		}
		out := NewQueue(e.queueCap())
		g.Go(func() error {
			runProject(ctx, in, out, plan.Vars)
			return nil
		})
		return out, nil

	case OpDistinct:
		in, err := e.launch(ctx, g, plan.Left)
		if err != nil {
			return nil, err
		}
		out := NewQueue(e.queueCap())
		g.Go(func() error {
			runDistinct(ctx, in, out)
			return nil
		})
		return out, nil

	case OpLimit:
		in, err := e.launch(ctx, g, plan.Left)
		if err != nil {
			return nil, err
		}
		out := NewQueue(e.queueCap())
		g.Go(func() error {
			runLimit(ctx, in, out, plan.N)
			return nil
		})
		return out, nil

	case OpOffset:
		in, err := e.launch(ctx, g, plan.Left)
		if err != nil {
			return nil, err
		}
		out := NewQueue(e.queueCap())
		g.Go(func() error {
			runOffset(ctx, in, out, plan.N)
			return nil
		})
		return out, nil

	default:
		in, err := e.launch(ctx, g, plan.Left)
		if err != nil {
			return nil, err
		}
		return in, nil
	}
}

// bindProbe closes over inner's plan shape so runBindHashJoin can
// instantiate it once per distinct outer key. When inner.Rebinder is set
// (the usual case: inner is a service leaf whose query text/pipeline
// needs the outer binding's values substituted in, per the translate
// layer), it is called to produce a fresh subtree for this probe;
// otherwise inner runs as-is.
func (e *Engine) bindProbe(g *errgroup.Group, inner *Plan) BindProbe {
	return func(ctx context.Context, outerBinding rdf.Binding, out Queue) {
		defer out.Close()

		p := inner
		if inner.Rebinder != nil {
			rebound, err := inner.Rebinder(ctx, outerBinding)
			if err != nil {
				out.Send(ctx, Item{Err: err})
				return
			}
			p = rebound
		}

		innerOut, err := e.launch(ctx, g, p)
		if err != nil {
			out.Send(ctx, Item{Err: err})
			return
		}
		for item := range innerOut {
			if !out.Send(ctx, item) {
				return
			}
		}
	}
}

// RunWithTimeout is a convenience wrapper around Run that cancels the
// run's context after d if d > 0; the returned CancelFunc cancels it
// earlier.
func (e *Engine) RunWithTimeout(ctx context.Context, plan *Plan, d time.Duration) (Queue, *errgroup.Group, context.CancelFunc, error) {
	var cancel context.CancelFunc
	if d > 0 {
		ctx, cancel = context.WithTimeout(ctx, d)
	} else {
		ctx, cancel = context.WithCancel(ctx)
	}
	out, g, err := e.Run(ctx, plan)
	if err != nil {
		cancel()
		return nil, nil, nil, err
	}
	return out, g, cancel, nil
}

func (e *Engine) launchLeaf(ctx context.Context, g *errgroup.Group, svc *Service) (Queue, error) {
	backend, ok := e.Backends[svc.DataSource]
	if !ok {
		out := NewQueue(1)
		g.Go(func() error {
			defer out.Close()
			e.Log.Warn("exec: no backend registered for data source", "dataSource", svc.DataSource, "kind", svc.BackendKind)
			return nil
		})
		return out, nil
	}
	out := NewQueue(e.queueCap())
	g.Go(func() error {
		AcquireGoroutineToken(ctx)
		defer ReleaseGoroutineToken(ctx)
		backend.Execute(ctx, svc, out)
		return nil
	})
	return out, nil
}
