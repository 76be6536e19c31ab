// Package dispatch runs blocking work on background goroutines and hands
// each result back to the goroutine that owns shared state.
//
// Work submitted to a Loop runs concurrently under a per-task timeout.
// Its result is captured as a value when the work finishes and queued;
// the callback runs only when the owning goroutine calls Drain or Wait.
// A result whose owner context is already done is discarded without
// running its callback.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// DefaultTimeout bounds a task that was submitted without its own limit.
const DefaultTimeout = 30 * time.Second

type completion struct {
	owner   context.Context
	name    string
	deliver func()
}

// Loop queues background results for serial delivery.
type Loop struct {
	mu      sync.Mutex
	ready   []completion
	pending int
	signal  chan struct{}

	timeout time.Duration
	logger  *slog.Logger
}

// Option configures a Loop.
type Option func(*Loop)

// WithTimeout sets the default per-task timeout.
func WithTimeout(d time.Duration) Option {
	return func(l *Loop) { l.timeout = d }
}

// WithLogger sets the logger used for discarded results.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loop) { l.logger = logger }
}

// NewLoop creates an empty Loop.
func NewLoop(opts ...Option) *Loop {
	l := &Loop{
		signal:  make(chan struct{}, 1),
		timeout: DefaultTimeout,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Task is one unit of background work.
type Task[T any] struct {
	// Name identifies the task in logs.
	Name string
	// Timeout overrides the loop default when positive.
	Timeout time.Duration
	// Run does the work. It must not touch state owned by the loop's
	// owner goroutine.
	Run func(ctx context.Context) (T, error)
	// Done receives the result on the owner goroutine.
	Done func(T, error)
}

// Submit starts task in the background. owner scopes both the work and
// the delivery of its result.
func Submit[T any](l *Loop, owner context.Context, task Task[T]) {
	timeout := task.Timeout
	if timeout <= 0 {
		timeout = l.timeout
	}

	l.mu.Lock()
	l.pending++
	l.mu.Unlock()

	go func() {
		ctx, cancel := context.WithTimeout(owner, timeout)
		value, err := run(ctx, task)
		cancel()

		l.enqueue(completion{
			owner: owner,
			name:  task.Name,
			deliver: func() {
				if task.Done != nil {
					task.Done(value, err)
				}
			},
		})
	}()
}

// ErrTaskPanicked wraps a panic raised by a task's Run.
var ErrTaskPanicked = errors.New("task panicked")

// run calls task.Run and turns a panic into an error, so the result is
// still delivered and Wait does not hang on it.
func run[T any](ctx context.Context, task Task[T]) (value T, err error) {
	defer func() {
		if p := recover(); p != nil {
			var zero T
			value, err = zero, fmt.Errorf("%w: %s: %v", ErrTaskPanicked, task.Name, p)
		}
	}()
	return task.Run(ctx)
}

func (l *Loop) enqueue(c completion) {
	l.mu.Lock()
	l.ready = append(l.ready, c)
	l.mu.Unlock()

	select {
	case l.signal <- struct{}{}:
	default:
	}
}

// Pending returns the number of submitted tasks not yet delivered.
func (l *Loop) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.pending
}

// Drain delivers every finished result on the calling goroutine without
// blocking and returns how many callbacks ran.
func (l *Loop) Drain() int {
	l.mu.Lock()
	batch := l.ready
	l.ready = nil
	l.pending -= len(batch)
	l.mu.Unlock()

	ran := 0
	for _, c := range batch {
		if err := c.owner.Err(); err != nil {
			l.logger.Debug("discarding result for finished owner", "task", c.name, "reason", err)
			continue
		}
		c.deliver()
		ran++
	}
	return ran
}

// Wait delivers results as they finish until nothing is pending or ctx
// is done.
func (l *Loop) Wait(ctx context.Context) error {
	for {
		l.Drain()
		if l.Pending() == 0 {
			return nil
		}
		select {
		case <-l.signal:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
