// Package pool runs asynchronous work under a fixed concurrency limit.
//
// A Pool pulls tasks lazily from an iter.Seq: the sequence is advanced only
// once a slot is free, so a producer never materialises its backlog and any
// state it keeps (a running byte budget, say) is touched from one goroutine
// only. Tasks start in producer order and may finish in any order. A failing
// or panicking task never stops its siblings or the pool.
package pool

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// DefaultLimit is the concurrency used when none is configured.
const DefaultLimit = 5

// Task is one unit of work.
type Task func(ctx context.Context) error

// Result summarises a Run.
type Result struct {
	Started   int
	Succeeded int
	Failed    int

	// Err joins every task error, in completion order.
	Err error
}

// Pool executes tasks with at most Limit in flight.
type Pool struct {
	limit int
	name  string
	log   zerolog.Logger
}

// Option configures a Pool.
type Option func(*Pool)

// WithLogger sets the logger used for task failures.
func WithLogger(log zerolog.Logger) Option {
	return func(p *Pool) { p.log = log }
}

// WithName labels log lines from this pool.
func WithName(name string) Option {
	return func(p *Pool) { p.name = name }
}

// New creates a pool. limit must be positive.
func New(limit int, opts ...Option) (*Pool, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("pool: limit must be positive, got %d", limit)
	}
	p := &Pool{limit: limit, name: "pool", log: zerolog.Nop()}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Limit returns the configured concurrency limit.
func (p *Pool) Limit() int {
	return p.limit
}

// Run pulls tasks from seq until it is exhausted and returns once every
// started task has settled. The next task is pulled only after a slot has
// been acquired. If ctx is cancelled no further tasks are pulled; tasks
// already running see the cancelled ctx.
func (p *Pool) Run(ctx context.Context, seq iter.Seq[Task]) Result {
	var (
		g         errgroup.Group
		sem       = semaphore.NewWeighted(int64(p.limit))
		started   int
		succeeded atomic.Int64
		failed    atomic.Int64
		mu        sync.Mutex
		errs      []error
	)

	next, stop := iter.Pull(seq)
	defer stop()

	for {
		if ctx.Err() != nil {
			p.log.Warn().Str("pool", p.name).Int("started", started).Msg("context cancelled, not starting further tasks")
			break
		}
		if err := sem.Acquire(ctx, 1); err != nil {
			p.log.Warn().Str("pool", p.name).Int("started", started).Err(err).Msg("gave up waiting for a free slot")
			break
		}

		task, ok := next()
		if !ok {
			sem.Release(1)
			break
		}
		started++
		n := started

		g.Go(func() error {
			defer sem.Release(1)
			if err := runTask(ctx, task); err != nil {
				failed.Add(1)
				p.log.Debug().Str("pool", p.name).Int("task", n).Err(err).Msg("task failed")
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
				return nil
			}
			succeeded.Add(1)
			return nil
		})
	}

	// Tasks never return errors to the group; Wait only synchronises.
	_ = g.Wait()

	return Result{
		Started:   started,
		Succeeded: int(succeeded.Load()),
		Failed:    int(failed.Load()),
		Err:       errors.Join(errs...),
	}
}

func runTask(ctx context.Context, task Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panicked: %v", r)
		}
	}()
	return task(ctx)
}

// Each adapts a slice to a task sequence, one task per element.
// Elements are bound lazily as the pool advances.
func Each[T any](items []T, fn func(context.Context, T) error) iter.Seq[Task] {
	return func(yield func(Task) bool) {
		for _, item := range items {
			task := func(ctx context.Context) error { return fn(ctx, item) }
			if !yield(task) {
				return
			}
		}
	}
}
