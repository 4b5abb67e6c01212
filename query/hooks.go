package query

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/giygas/drugdb/metrics"
	"github.com/giygas/drugdb/result"
)

// Query describes a read of a whole collection
type Query[T any] struct {
	Key   Key
	Fetch func(ctx context.Context) result.Result[T]
	// ErrorMessage prefixes the failure notification, none is sent when empty
	ErrorMessage string
}

// ItemQuery describes a read of one item of a resource
type ItemQuery[T any] struct {
	Resource     string
	Fetch        func(ctx context.Context, id int) result.Result[T]
	ErrorMessage string
}

func erase[T any](fetch func(ctx context.Context) result.Result[T]) loader {
	return func(ctx context.Context) (any, result.Outcome, error) {
		r := fetch(ctx)
		return r.Value, r.Outcome, r.Cause
	}
}

func toState[T any](s snapshot) State[T] {
	state := State[T]{
		Key:       s.key,
		Status:    s.status,
		Err:       s.err,
		Degraded:  s.degraded,
		Cause:     s.cause,
		UpdatedAt: s.updatedAt,
		Stale:     s.stale,
	}
	if v, ok := s.data.(T); ok {
		state.Data = v
	}
	return state
}

// UseCollection reads q through the cache
func UseCollection[T any](ctx context.Context, c *Client, q Query[T]) State[T] {
	return toState[T](c.fetch(ctx, q.Key, erase(q.Fetch), q.ErrorMessage))
}

// UseItem reads item id through the cache. An id <= 0 means no item is
// selected: the idle state is returned and nothing is fetched.
func UseItem[T any](ctx context.Context, c *Client, id int, q ItemQuery[T]) State[T] {
	if id <= 0 {
		return State[T]{Key: Key{Resource: q.Resource}, Status: StatusIdle}
	}
	fetch := func(ctx context.Context) result.Result[T] {
		return q.Fetch(ctx, id)
	}
	return toState[T](c.fetch(ctx, ItemKey(q.Resource, id), erase(fetch), q.ErrorMessage))
}

// Subscribe calls fn with the state of key every time it changes, until
// the returned function is called
func Subscribe[T any](c *Client, key Key, fn func(State[T])) (unsubscribe func()) {
	return c.subscribe(key, func(s snapshot) {
		fn(toState[T](s))
	})
}

// Peek returns the cached state of key without fetching
func Peek[T any](c *Client, key Key) (State[T], bool) {
	s, ok := c.peek(key)
	if !ok {
		return State[T]{Key: key}, false
	}
	return toState[T](s), true
}

// MutationOptions configure what happens after a mutation
type MutationOptions[P, R any] struct {
	// Invalidates lists the keys made stale by a successful mutation
	Invalidates func(payload P, res R) []Key
	// SuccessMessage is sent to the notifier on success
	SuccessMessage string
	// ErrorMessage prefixes the failure notification
	ErrorMessage string
}

// Mutation runs a write against the API. Mutations are never retried and
// never coalesced: every call runs to completion and invalidates on its own.
type Mutation[P, R any] struct {
	client  *Client
	name    string
	fn      func(ctx context.Context, payload P) (R, error)
	opts    MutationOptions[P, R]
	pending atomic.Int64
}

func NewMutation[P, R any](c *Client, name string, fn func(ctx context.Context, payload P) (R, error), opts MutationOptions[P, R]) *Mutation[P, R] {
	return &Mutation[P, R]{client: c, name: name, fn: fn, opts: opts}
}

// Mutate runs the mutation. On failure the cache is left untouched.
func (m *Mutation[P, R]) Mutate(ctx context.Context, payload P) (R, error) {
	var zero R
	if m.client.isClosed() {
		return zero, ErrClosed
	}

	m.pending.Add(1)
	defer m.pending.Add(-1)

	res, err := m.fn(ctx, payload)
	notifier := m.client.opts.Notifier
	if err != nil {
		metrics.MutationTotals.WithLabelValues(m.name, "error").Inc()
		if notifier != nil && m.opts.ErrorMessage != "" {
			notifier.Failure(fmt.Sprintf("%s: %s", m.opts.ErrorMessage, err.Error()), err)
		}
		return zero, err
	}

	metrics.MutationTotals.WithLabelValues(m.name, "ok").Inc()
	if m.opts.Invalidates != nil {
		m.client.Invalidate(m.opts.Invalidates(payload, res)...)
	}
	if notifier != nil && m.opts.SuccessMessage != "" {
		notifier.Success(m.opts.SuccessMessage)
	}
	return res, nil
}

// IsPending reports whether a call is in flight
func (m *Mutation[P, R]) IsPending() bool {
	return m.pending.Load() > 0
}

func (m *Mutation[P, R]) Name() string {
	return m.name
}
