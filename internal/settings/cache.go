// Package settings caches the per-document settings requested from the
// client.
package settings

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"formatls/internal/config"

	"github.com/tliron/commonlog"
	"golang.org/x/sync/singleflight"
)

var log = commonlog.GetLogger("formatls.settings")

// Fetcher pulls the raw settings object for a document from the client.
type Fetcher interface {
	Fetch(ctx context.Context, uri string) (any, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, uri string) (any, error)

func (f FetcherFunc) Fetch(ctx context.Context, uri string) (any, error) {
	return f(ctx, uri)
}

// Cache resolves settings per document URI. Without a Fetcher it serves the
// settings last pushed by the client to every document.
type Cache struct {
	group singleflight.Group

	mu         sync.Mutex
	fetcher    Fetcher
	generation uint64
	resolved   map[string]*config.Settings
	global     *config.Settings

	// pending maps a uri to the token of the fetch whose result may be
	// stored. Forget and invalidation drop the token, orphaning the fetch.
	pending map[string]uint64
	tokens  uint64

	// OnFetch is called before every round-trip to the client.
	OnFetch func(uri string)
}

func NewCache(fetcher Fetcher) *Cache {
	return &Cache{
		fetcher:  fetcher,
		resolved: make(map[string]*config.Settings),
		pending:  make(map[string]uint64),
	}
}

// SetFetcher switches the cache to pull mode, or back to push mode for nil.
func (c *Cache) SetFetcher(fetcher Fetcher) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fetcher = fetcher
	c.invalidateLocked()
}

// Get returns the settings for uri. Concurrent calls for the same uri share
// a single fetch.
func (c *Cache) Get(ctx context.Context, uri string) (*config.Settings, error) {
	c.mu.Lock()
	if c.fetcher == nil {
		global := c.global
		c.mu.Unlock()
		if global == nil {
			return config.Parse(nil)
		}
		return global, nil
	}
	if s, ok := c.resolved[uri]; ok {
		c.mu.Unlock()
		return s, nil
	}
	token, ok := c.pending[uri]
	if !ok {
		c.tokens++
		token = c.tokens
		c.pending[uri] = token
	}
	fetcher := c.fetcher
	c.mu.Unlock()

	// Keys carry the token so a fetch orphaned by Forget or an invalidation
	// is never joined by later callers.
	key := strconv.FormatUint(token, 10) + "|" + uri
	v, err, _ := c.group.Do(key, func() (any, error) {
		if c.OnFetch != nil {
			c.OnFetch(uri)
		}
		raw, err := fetcher.Fetch(ctx, uri)
		var s *config.Settings
		if err == nil {
			s, err = config.Parse(raw)
			if err != nil {
				err = fmt.Errorf("failed to parse settings for %s: %w", uri, err)
			}
		} else {
			err = fmt.Errorf("failed to fetch settings for %s: %w", uri, err)
		}

		c.mu.Lock()
		if c.pending[uri] == token {
			delete(c.pending, uri)
			if err == nil {
				c.resolved[uri] = s
			}
		}
		c.mu.Unlock()
		return s, err
	})
	if err != nil {
		return nil, err
	}
	return v.(*config.Settings), nil
}

// SetGlobal stores settings pushed by the client and drops every cached
// entry.
func (c *Cache) SetGlobal(raw any) error {
	s, err := config.Parse(raw)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.global = s
	c.invalidateLocked()
	return nil
}

// Invalidate drops all resolved and pending entries. The client does not say
// which documents a configuration change affects.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidateLocked()
}

func (c *Cache) invalidateLocked() {
	c.generation++
	c.resolved = make(map[string]*config.Settings)
	c.pending = make(map[string]uint64)
	log.Debugf("settings cache invalidated (generation %d)", c.generation)
}

// Forget drops the entry for a closed document. A fetch still in flight
// for it completes for its callers but is not stored.
func (c *Cache) Forget(uri string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.resolved, uri)
	delete(c.pending, uri)
}

// Len returns the number of resolved entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.resolved)
}
