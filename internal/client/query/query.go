package query

import (
	"context"
	"errors"
	"reflect"
	"sync"

	"github.com/dmitrijs2005/flightschool-cms/internal/client/client"
)

// Status is one of four mutually exclusive query states.
type Status int

const (
	StatusLoading Status = iota
	StatusSuccess
	StatusEmpty
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusSuccess:
		return "success"
	case StatusEmpty:
		return "empty"
	case StatusError:
		return "error"
	}
	return "unknown"
}

// State is an immutable snapshot of a query. Data is the zero value until
// a load succeeds; after a failure Err is set and Data is cleared.
type State[T any] struct {
	Data      T
	IsLoading bool
	Err       *client.CMSError
	Status    Status
}

// Query is one consumer's view of a cache entry.
type Query[T any] struct {
	cache *Cache
	key   Key
	fetch func(ctx context.Context) (T, error)

	mu     sync.Mutex
	state  State[T]
	seq    uint64
	closed bool
}

// New creates a query for key backed by fetch.
func New[T any](c *Cache, key Key, fetch func(ctx context.Context) (T, error)) *Query[T] {
	return &Query[T]{cache: c, key: key, fetch: fetch}
}

func (q *Query[T]) Key() Key {
	return q.key
}

// Load reads through the cache and returns the resulting state.
func (q *Query[T]) Load(ctx context.Context) State[T] {
	return q.load(ctx, false)
}

// Refetch skips the staleness check but shares any fetch in flight.
func (q *Query[T]) Refetch(ctx context.Context) State[T] {
	return q.load(ctx, true)
}

// State returns the latest snapshot.
func (q *Query[T]) State() State[T] {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.state
}

// Close detaches the query; results of loads still in flight are dropped.
func (q *Query[T]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
}

func (q *Query[T]) load(ctx context.Context, force bool) State[T] {
	q.mu.Lock()
	if q.closed {
		defer q.mu.Unlock()
		return q.state
	}
	q.seq++
	seq := q.seq
	q.state.IsLoading = true
	q.mu.Unlock()

	v, err := q.cache.Get(ctx, q.key, func(ctx context.Context) (any, error) {
		data, err := q.fetch(ctx)
		if err != nil {
			return nil, err
		}
		return data, nil
	}, force)

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed || seq != q.seq {
		return q.state
	}

	switch {
	case err != nil && ctx.Err() != nil && errors.Is(err, ctx.Err()):
		q.state.IsLoading = false
	case err != nil:
		q.state = State[T]{Err: client.AsCMSError(err), Status: StatusError}
	default:
		data, _ := v.(T)
		status := StatusSuccess
		if isEmpty(data) {
			status = StatusEmpty
		}
		q.state = State[T]{Data: data, Status: status}
	}
	return q.state
}

// isEmpty reports whether v is an empty collection.
func isEmpty(v any) bool {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() == 0
	case reflect.Pointer, reflect.Interface:
		return rv.IsNil()
	case reflect.Invalid:
		return true
	}
	return false
}
