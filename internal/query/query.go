// Package query is the process-wide query cache shared by every page and
// list: keyed entries with a stale time, one in-flight fetch per key,
// prefetch for server-rendered pages, prefix invalidation, and a dehydrated
// snapshot that is embedded into the initial page payload.
package query

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bwise1/bookgroups/pkg/logger"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Key identifies a cache entry, e.g. {"recruitDetail", "12"}.
type Key []string

func (k Key) String() string {
	return strings.Join(k, "/")
}

// HasPrefix reports whether k starts with every element of prefix.
func (k Key) HasPrefix(prefix Key) bool {
	if len(prefix) > len(k) {
		return false
	}
	for i := range prefix {
		if k[i] != prefix[i] {
			return false
		}
	}
	return true
}

type Status string

const (
	StatusPending Status = "pending"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// State is the cached result of one key.
type State struct {
	Data      interface{} `json:"data,omitempty"`
	Error     string      `json:"error,omitempty"`
	Status    Status      `json:"status"`
	UpdatedAt time.Time   `json:"dataUpdatedAt"`
}

type entry struct {
	key   Key
	state State
}

type Client struct {
	mu       sync.RWMutex
	entries  map[string]*entry
	gens     map[string]uint64
	inflight map[string]Key
	hooks    []func(Key)

	flight    singleflight.Group
	staleTime time.Duration
	now       func() time.Time
}

// NewClient returns an empty cache; entries younger than staleTime are served
// without refetching. A zero staleTime refetches on every Fetch.
func NewClient(staleTime time.Duration) *Client {
	return &Client{
		entries:   make(map[string]*entry),
		gens:      make(map[string]uint64),
		inflight:  make(map[string]Key),
		staleTime: staleTime,
		now:       time.Now,
	}
}

// Fetch returns the cached value for key when it is fresh, otherwise runs fn.
// Concurrent callers for the same key share a single call to fn.
func Fetch[T any](ctx context.Context, c *Client, key Key, fn func(context.Context) (T, error)) (T, error) {
	if v, ok := GetQueryData[T](c, key); ok && c.isFresh(key) {
		return v, nil
	}

	id := key.String()
	v, err, _ := c.flight.Do(id, func() (interface{}, error) {
		gen := c.begin(key)
		data, err := fn(ctx)
		c.finish(key, gen, data, err)
		return data, err
	})

	var zero T
	if v == nil {
		return zero, err
	}
	data, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("query %s: cached %T is not %T", id, v, zero)
	}
	return data, err
}

// Do runs fn once for concurrent callers of the same key and returns the
// shared result without caching it.
func Do[T any](ctx context.Context, c *Client, key Key, fn func(context.Context) (T, error)) (T, error) {
	id := "do:" + key.String()
	v, err, _ := c.flight.Do(id, func() (interface{}, error) {
		return fn(ctx)
	})

	var zero T
	if v == nil {
		return zero, err
	}
	data, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("query %s: shared %T is not %T", id, v, zero)
	}
	return data, err
}

// Prefetch warms key before first render. Failures are recorded in the
// entry's state rather than returned, so the page can render an error state.
func Prefetch[T any](ctx context.Context, c *Client, key Key, fn func(context.Context) (T, error)) {
	if _, err := Fetch(ctx, c, key, fn); err != nil {
		logger.FromContext(ctx).Warn("prefetch failed", zap.String("key", key.String()), zap.Error(err))
	}
}

// GetQueryData returns the last successful value for key.
func GetQueryData[T any](c *Client, key Key) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var zero T
	e, ok := c.entries[key.String()]
	if !ok || e.state.Data == nil {
		return zero, false
	}
	v, ok := e.state.Data.(T)
	return v, ok
}

// UpdateQueryData atomically replaces the value for key with fn's result.
// fn receives the current value (ok is false when none is cached) and
// returns the new value plus whether to store it.
func UpdateQueryData[T any](c *Client, key Key, fn func(old T, ok bool) (T, bool)) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := key.String()
	var old T
	var found bool
	if e, ok := c.entries[id]; ok && e.state.Data != nil {
		old, found = e.state.Data.(T)
	}

	next, store := fn(old, found)
	if !store {
		return old, false
	}
	c.entries[id] = &entry{key: key, state: State{Data: next, Status: StatusSuccess, UpdatedAt: c.now()}}
	return next, true
}

// SetQueryData stores data for key as a successful result.
func (c *Client) SetQueryData(key Key, data interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key.String()] = &entry{key: key, state: State{Data: data, Status: StatusSuccess, UpdatedAt: c.now()}}
}

// GetState returns the full state of key, including failures.
func (c *Client) GetState(key Key) (State, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key.String()]
	if !ok {
		return State{}, false
	}
	return e.state, true
}

// OnInvalidate registers fn to be called with every key removed by Invalidate.
func (c *Client) OnInvalidate(fn func(Key)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hooks = append(c.hooks, fn)
}

// Invalidate drops every entry whose key starts with prefix. Fetches already
// in flight for those keys still return to their callers but are not cached.
func (c *Client) Invalidate(prefix Key) []Key {
	c.mu.Lock()
	var removed []Key
	for id, e := range c.entries {
		if e.key.HasPrefix(prefix) {
			delete(c.entries, id)
			removed = append(removed, e.key)
		}
	}
	for id, k := range c.inflight {
		if k.HasPrefix(prefix) {
			c.gens[id]++
		}
	}
	hooks := append([]func(Key){}, c.hooks...)
	c.mu.Unlock()

	sort.Slice(removed, func(i, j int) bool { return removed[i].String() < removed[j].String() })
	for _, k := range removed {
		for _, hook := range hooks {
			hook(k)
		}
	}
	return removed
}

// RemoveOlderThan drops entries last updated more than age ago, except those
// with a fetch in flight. It returns the number of entries removed.
func (c *Client) RemoveOlderThan(age time.Duration) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	cutoff := c.now().Add(-age)
	for id, e := range c.entries {
		if _, busy := c.inflight[id]; busy {
			continue
		}
		if e.state.UpdatedAt.Before(cutoff) {
			delete(c.entries, id)
			delete(c.gens, id)
			n++
		}
	}
	return n
}

// Len returns the number of cached entries.
func (c *Client) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *Client) isFresh(key Key) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key.String()]
	if !ok || e.state.Status != StatusSuccess {
		return false
	}
	return c.now().Sub(e.state.UpdatedAt) < c.staleTime
}

func (c *Client) begin(key Key) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := key.String()
	c.inflight[id] = key
	return c.gens[id]
}

func (c *Client) finish(key Key, gen uint64, data interface{}, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := key.String()
	delete(c.inflight, id)
	if c.gens[id] != gen {
		return
	}

	if err != nil {
		st := State{Status: StatusError, Error: err.Error(), UpdatedAt: c.now()}
		if prev, ok := c.entries[id]; ok {
			st.Data = prev.state.Data
		}
		c.entries[id] = &entry{key: key, state: st}
		return
	}
	c.entries[id] = &entry{key: key, state: State{Data: data, Status: StatusSuccess, UpdatedAt: c.now()}}
}
