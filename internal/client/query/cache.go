package query

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/dmitrijs2005/flightschool-cms/internal/client/client"
	"github.com/dmitrijs2005/flightschool-cms/internal/client/models"
	"github.com/dmitrijs2005/flightschool-cms/internal/logging"
	"github.com/sethvargo/go-retry"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultStaleTime  = 5 * time.Minute
	DefaultCacheTime  = 10 * time.Minute
	DefaultRetries    = 2
	DefaultRetryDelay = time.Second
)

// Fetcher loads the value of one cache entry.
type Fetcher func(ctx context.Context) (any, error)

type entry struct {
	data      any
	fetchedAt time.Time
}

// Cache is safe for concurrent use.
type Cache struct {
	staleTime  time.Duration
	cacheTime  time.Duration
	retries    uint64
	retryDelay time.Duration
	now        func() time.Time
	log        logging.Logger

	group singleflight.Group

	mu         sync.Mutex
	entries    map[Key]*entry
	epochs     map[models.Kind]uint64
	generation uint64
}

type Option func(*Cache)

// WithStaleTime sets how long fetched data is served without a new fetch.
func WithStaleTime(d time.Duration) Option {
	return func(c *Cache) { c.staleTime = d }
}

// WithCacheTime sets how long unused data is retained before Sweep evicts it.
func WithCacheTime(d time.Duration) Option {
	return func(c *Cache) { c.cacheTime = d }
}

// WithRetry sets the number of additional attempts after a failed fetch and
// the constant pause between them.
func WithRetry(retries uint64, delay time.Duration) Option {
	return func(c *Cache) {
		c.retries = retries
		c.retryDelay = delay
	}
}

func WithLogger(l logging.Logger) Option {
	return func(c *Cache) { c.log = l }
}

func withClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

func NewCache(opts ...Option) *Cache {
	c := &Cache{
		staleTime:  DefaultStaleTime,
		cacheTime:  DefaultCacheTime,
		retries:    DefaultRetries,
		retryDelay: DefaultRetryDelay,
		now:        time.Now,
		log:        logging.Discard(),
		entries:    make(map[Key]*entry),
		epochs:     make(map[models.Kind]uint64),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.cacheTime < c.staleTime {
		c.cacheTime = c.staleTime
	}
	if c.retryDelay <= 0 {
		c.retryDelay = time.Millisecond
	}
	return c
}

// Get returns the value of key, fetching it when there is no fresh entry.
// With force set the staleness check is skipped, but a fetch already in
// flight for the key is still shared.
//
// The fetch runs detached from ctx: a caller that gives up receives
// ctx.Err() while other callers waiting on the same fetch are unaffected.
func (c *Cache) Get(ctx context.Context, key Key, fetch Fetcher, force bool) (any, error) {
	c.mu.Lock()
	if e, ok := c.entries[key]; ok && !force && c.now().Sub(e.fetchedAt) < c.staleTime {
		c.mu.Unlock()
		c.log.Debug(ctx, "cache hit", "key", key.String())
		return e.data, nil
	}
	epoch, generation := c.epochs[key.Kind], c.generation
	c.mu.Unlock()

	detached := context.WithoutCancel(ctx)
	flight := fmt.Sprintf("%s#%d.%d", key, generation, epoch)

	ch := c.group.DoChan(flight, func() (any, error) {
		data, err := c.fetchWithRetry(detached, key, fetch)
		if err != nil {
			return nil, err
		}
		c.store(key, epoch, generation, data)
		return data, nil
	})

	select {
	case res := <-ch:
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// store keeps data unless the kind was invalidated after the fetch started.
func (c *Cache) store(key Key, epoch, generation uint64, data any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.epochs[key.Kind] != epoch || c.generation != generation {
		return
	}
	c.entries[key] = &entry{data: data, fetchedAt: c.now()}
}

func (c *Cache) fetchWithRetry(ctx context.Context, key Key, fetch Fetcher) (any, error) {
	var (
		out     any
		attempt int
	)
	backoff := retry.WithMaxRetries(c.retries, retry.NewConstant(c.retryDelay))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		v, err := fetch(ctx)
		if err == nil {
			out = v
			return nil
		}
		if !retryable(err) {
			return err
		}
		c.log.Warn(ctx, "fetch failed", "key", key.String(), "attempt", attempt, "error", err)
		return retry.RetryableError(err)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// retryable rejects client errors other than timeouts and rate limiting;
// repeating them cannot change the answer.
func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var cmsErr *client.CMSError
	if !errors.As(err, &cmsErr) {
		return true
	}
	if cmsErr.Status >= http.StatusBadRequest && cmsErr.Status < http.StatusInternalServerError {
		return cmsErr.Transient()
	}
	return true
}

// Peek returns the cached value of key regardless of its age.
func (c *Cache) Peek(key Key) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	return e.data, true
}

// InvalidateKind drops every entry of kind, filtered or not. Fetches of the
// kind that are already in flight will not repopulate the cache.
func (c *Cache) InvalidateKind(kind models.Kind) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.epochs[kind]++
	for key := range c.entries {
		if key.Kind == kind {
			delete(c.entries, key)
		}
	}
}

// Clear drops every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	c.entries = make(map[Key]*entry)
}

// Sweep evicts entries older than the retention threshold and returns how
// many were removed.
func (c *Cache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	removed := 0
	for key, e := range c.entries {
		if now.Sub(e.fetchedAt) >= c.cacheTime {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// Run sweeps the cache every interval until ctx is done.
func (c *Cache) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := c.Sweep(); n > 0 {
				c.log.Debug(ctx, "cache sweep", "evicted", n)
			}
		}
	}
}

// Len reports the number of cached entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
