// Package query caches reads from the drug API per logical key, runs at most
// one request per key at a time and invalidates cached entries after
// mutations succeed.
//
// A Client is created once at startup, shared by every consumer and torn
// down with Close on shutdown.
package query

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/giygas/drugdb/interfaces"
	"github.com/giygas/drugdb/logging"
	"github.com/giygas/drugdb/metrics"
	"github.com/giygas/drugdb/result"
	"golang.org/x/sync/singleflight"
)

// ErrClosed is returned by every operation after Close
var ErrClosed = errors.New("query client closed")

type Status int

const (
	StatusIdle Status = iota
	StatusPending
	StatusSuccess
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusPending:
		return "pending"
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	default:
		return "status(" + strconv.Itoa(int(s)) + ")"
	}
}

// Key identifies a cached query: a resource name plus its parameters
type Key struct {
	Resource string
	Params   string
}

func CollectionKey(resource string) Key {
	return Key{Resource: resource}
}

func ItemKey(resource string, id int) Key {
	return Key{Resource: resource, Params: strconv.Itoa(id)}
}

func (k Key) String() string {
	if k.Params == "" {
		return k.Resource
	}
	return k.Resource + "/" + k.Params
}

// State is what a consumer sees of a query. Data keeps the last successful
// value even when a later fetch failed.
type State[T any] struct {
	Key       Key
	Data      T
	Status    Status
	Err       error
	Degraded  bool
	Cause     error
	UpdatedAt time.Time
	Stale     bool
}

func (s State[T]) IsIdle() bool    { return s.Status == StatusIdle }
func (s State[T]) IsLoading() bool { return s.Status == StatusPending }
func (s State[T]) IsError() bool   { return s.Status == StatusError }
func (s State[T]) HasData() bool   { return !s.UpdatedAt.IsZero() }

// Options configure a Client
type Options struct {
	// StaleTime is how long a successful value is served without a new
	// request. Zero means every read goes to the API, concurrent reads of
	// one key still share a request.
	StaleTime time.Duration
	// GCTime is how long an entry without subscribers survives after its
	// last read
	GCTime time.Duration
	// RetryDelay is the pause before retrying a failed read
	RetryDelay time.Duration
	// Retries is the number of automatic retries of a failed read
	Retries int
	// Notifier receives read and mutation notifications, may be nil
	Notifier interfaces.Notifier
}

func DefaultOptions() Options {
	return Options{
		GCTime:     5 * time.Minute,
		RetryDelay: time.Second,
		Retries:    1,
	}
}

type loader func(ctx context.Context) (any, result.Outcome, error)

type subscriber struct {
	fn     func(snapshot)
	active atomic.Bool
}

type entry struct {
	key         Key
	data        any
	hasData     bool
	status      Status
	err         error
	degraded    bool
	cause       error
	updatedAt   time.Time
	lastAccess  time.Time
	invalidated bool
	generation  uint64
	fetching    bool
	refetch     func()
	subscribers map[uint64]*subscriber
}

type snapshot struct {
	key       Key
	data      any
	status    Status
	err       error
	degraded  bool
	cause     error
	updatedAt time.Time
	stale     bool
}

// Client is the query cache
type Client struct {
	opts Options

	mu        sync.Mutex
	entries   map[Key]*entry
	closed    bool
	nextSubID uint64

	group  singleflight.Group
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	now    func() time.Time
}

// New creates a query client. Requests it issues run on its own lifecycle
// context, cancelled by Close.
func New(opts Options) *Client {
	if opts.Retries < 0 {
		opts.Retries = 0
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		opts:    opts,
		entries: make(map[Key]*entry),
		ctx:     ctx,
		cancel:  cancel,
		now:     time.Now,
	}
}

// Close cancels in-flight requests, waits for background refetches and
// drops every entry. It is safe to call more than once.
func (c *Client) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.cancel()
	for _, e := range c.entries {
		for _, sub := range e.subscribers {
			sub.active.Store(false)
		}
	}
	c.entries = make(map[Key]*entry)
	c.mu.Unlock()

	c.wg.Wait()
	metrics.CacheEntries.Set(0)
	logging.Info("Query client closed")
}

func (c *Client) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Len returns the number of cached entries
func (c *Client) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Client) entryLocked(key Key) *entry {
	e, ok := c.entries[key]
	if !ok {
		e = &entry{key: key, subscribers: make(map[uint64]*subscriber)}
		c.entries[key] = e
		metrics.CacheEntries.Set(float64(len(c.entries)))
	}
	return e
}

func (c *Client) isFreshLocked(e *entry, now time.Time) bool {
	return e.hasData &&
		e.status == StatusSuccess &&
		!e.invalidated &&
		!e.degraded &&
		now.Sub(e.updatedAt) < c.opts.StaleTime
}

func (c *Client) snapshotLocked(e *entry, now time.Time) snapshot {
	return snapshot{
		key:       e.key,
		data:      e.data,
		status:    e.status,
		err:       e.err,
		degraded:  e.degraded,
		cause:     e.cause,
		updatedAt: e.updatedAt,
		stale:     e.hasData && !c.isFreshLocked(e, now),
	}
}

func (e *entry) activeSubscribers() []*subscriber {
	subs := make([]*subscriber, 0, len(e.subscribers))
	for _, s := range e.subscribers {
		subs = append(subs, s)
	}
	return subs
}

func publish(subs []*subscriber, s snapshot) {
	for _, sub := range subs {
		if sub.active.Load() {
			sub.fn(s)
		}
	}
}

// fetch serves key from the cache when fresh, otherwise joins or starts the
// single request for key. A caller whose ctx ends stops waiting; the request
// still completes and updates the cache.
func (c *Client) fetch(ctx context.Context, key Key, load loader, errorMessage string) snapshot {
	now := c.now()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return snapshot{key: key, status: StatusError, err: ErrClosed}
	}
	e := c.entryLocked(key)
	e.lastAccess = now
	if c.isFreshLocked(e, now) {
		s := c.snapshotLocked(e, now)
		c.mu.Unlock()
		metrics.CacheLookups.WithLabelValues(key.Resource, "hit").Inc()
		return s
	}
	e.refetch = func() {
		_, _, _ = c.group.Do(key.String(), func() (any, error) {
			return c.load(key, load, errorMessage), nil
		})
	}
	c.mu.Unlock()

	ch := c.group.DoChan(key.String(), func() (any, error) {
		return c.load(key, load, errorMessage), nil
	})

	select {
	case <-ctx.Done():
		return snapshot{key: key, status: StatusError, err: ctx.Err()}
	case res := <-ch:
		lookup := "miss"
		if res.Shared {
			lookup = "shared"
		}
		metrics.CacheLookups.WithLabelValues(key.Resource, lookup).Inc()
		return res.Val.(snapshot)
	}
}

// load runs one request for key, with retries, and stores its outcome.
// An invalidation that lands while the request is in flight leaves the
// stored value stale.
func (c *Client) load(key Key, load loader, errorMessage string) snapshot {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return snapshot{key: key, status: StatusError, err: ErrClosed}
	}
	e := c.entryLocked(key)
	generation := e.generation
	e.fetching = true
	if !e.hasData {
		e.status = StatusPending
	}
	subs := e.activeSubscribers()
	s := c.snapshotLocked(e, c.now())
	c.mu.Unlock()
	publish(subs, s)

	start := time.Now()
	value, outcome, err := c.run(key, load)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return snapshot{key: key, status: StatusError, err: ErrClosed}
	}
	e = c.entryLocked(key)
	e.fetching = false
	now := c.now()
	if outcome == result.OutcomeFailed {
		e.status = StatusError
		e.err = err
	} else {
		e.data = value
		e.hasData = true
		e.status = StatusSuccess
		e.err = nil
		e.degraded = outcome == result.OutcomeDegraded
		e.cause = err
		e.updatedAt = now
		e.invalidated = e.generation != generation
	}
	subs = e.activeSubscribers()
	s = c.snapshotLocked(e, now)
	c.mu.Unlock()

	logging.Debug("Query loaded", "key", key.String(), "outcome", outcome.String(), "duration", time.Since(start))
	publish(subs, s)

	if outcome == result.OutcomeFailed && errorMessage != "" && c.opts.Notifier != nil {
		c.opts.Notifier.Failure(fmt.Sprintf("%s: %s", errorMessage, err.Error()), err)
	}
	return s
}

// run calls load, retrying failed reads after RetryDelay
func (c *Client) run(key Key, load loader) (any, result.Outcome, error) {
	value, outcome, err := load(c.ctx)

	for attempt := 0; outcome == result.OutcomeFailed && attempt < c.opts.Retries; attempt++ {
		logging.Warn("Query failed, retrying", "key", key.String(), "attempt", attempt+1, "error", err)

		timer := time.NewTimer(c.opts.RetryDelay)
		select {
		case <-c.ctx.Done():
			timer.Stop()
			return nil, result.OutcomeFailed, ErrClosed
		case <-timer.C:
		}
		value, outcome, err = load(c.ctx)
	}
	return value, outcome, err
}

// Invalidate marks keys stale so the next read fetches again. Entries that
// have subscribers are fetched again in the background.
func (c *Client) Invalidate(keys ...Key) {
	c.mu.Lock()
	var refetches []func()
	for _, key := range keys {
		e, ok := c.entries[key]
		if !ok {
			continue
		}
		if r := c.invalidateLocked(e); r != nil {
			refetches = append(refetches, r)
		}
	}
	c.mu.Unlock()

	c.background(refetches)
}

// InvalidateResource marks every key of resource stale
func (c *Client) InvalidateResource(resource string) {
	c.mu.Lock()
	var refetches []func()
	for key, e := range c.entries {
		if key.Resource != resource {
			continue
		}
		if r := c.invalidateLocked(e); r != nil {
			refetches = append(refetches, r)
		}
	}
	c.mu.Unlock()

	c.background(refetches)
}

func (c *Client) invalidateLocked(e *entry) func() {
	e.invalidated = true
	e.generation++
	metrics.CacheInvalidations.WithLabelValues(e.key.Resource).Inc()
	logging.Debug("Query invalidated", "key", e.key.String())

	if len(e.subscribers) > 0 && e.refetch != nil {
		return e.refetch
	}
	return nil
}

func (c *Client) background(fns []func()) {
	if len(fns) == 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	for _, fn := range fns {
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			fn()
		}()
	}
}

// Prune drops entries that have no subscribers, are not being fetched and
// were last read more than GCTime ago. It returns how many were dropped.
func (c *Client) Prune() int {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, e := range c.entries {
		if len(e.subscribers) > 0 || e.fetching {
			continue
		}
		if now.Sub(e.lastAccess) < c.opts.GCTime {
			continue
		}
		delete(c.entries, key)
		removed++
	}
	metrics.CacheEntries.Set(float64(len(c.entries)))
	return removed
}

func (c *Client) subscribe(key Key, fn func(snapshot)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return func() {}
	}

	e := c.entryLocked(key)
	e.lastAccess = c.now()
	c.nextSubID++
	id := c.nextSubID
	sub := &subscriber{fn: fn}
	sub.active.Store(true)
	e.subscribers[id] = sub

	var once sync.Once
	return func() {
		once.Do(func() {
			sub.active.Store(false)
			c.mu.Lock()
			defer c.mu.Unlock()
			if cur, ok := c.entries[key]; ok {
				delete(cur.subscribers, id)
				cur.lastAccess = c.now()
			}
		})
	}
}

func (c *Client) peek(key Key) (snapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok || !e.hasData {
		return snapshot{}, false
	}
	return c.snapshotLocked(e, c.now()), true
}
