package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("formatls.engine")

// Handle is a cached engine together with the options it was loaded with.
type Handle struct {
	Engine  Engine
	Options LoadOptions

	supportDone chan struct{}
	support     SupportInfo
	supportErr  error
}

func newHandle(e Engine, opts LoadOptions) *Handle {
	h := &Handle{
		Engine:      e,
		Options:     opts,
		supportDone: make(chan struct{}),
	}
	go func() {
		defer close(h.supportDone)
		h.support, h.supportErr = e.SupportInfo(context.Background())
	}()
	return h
}

// SupportInfo waits for the support info computed when the engine was
// loaded.
func (h *Handle) SupportInfo(ctx context.Context) (SupportInfo, error) {
	select {
	case <-h.supportDone:
		return h.support, h.supportErr
	case <-ctx.Done():
		return SupportInfo{}, ctx.Err()
	}
}

// Cache keeps one engine handle per document.
type Cache struct {
	provider Provider

	mu      sync.Mutex
	entries map[string]*Handle

	// OnLoad is called after every provider call with "loaded",
	// "not_found" or "error".
	OnLoad func(result string)
}

func NewCache(provider Provider) *Cache {
	return &Cache{
		provider: provider,
		entries:  make(map[string]*Handle),
	}
}

// Load returns the engine for key, reloading it when opts differ from the
// options of the cached handle. warm reports whether key had an entry
// before the call. A nil handle with a nil error means no engine is
// available.
func (c *Cache) Load(ctx context.Context, key string, target Target, opts LoadOptions) (h *Handle, warm bool, err error) {
	c.mu.Lock()
	cached, ok := c.entries[key]
	c.mu.Unlock()
	warm = ok
	if warm && cached.Options == opts {
		return cached, true, nil
	}

	e, err := c.provider.Load(ctx, target, opts)
	switch {
	case errors.Is(err, ErrNotFound):
		c.observe("not_found")
		log.Infof("no engine for %s: %v", target.URI, err)
		return nil, warm, nil
	case err != nil:
		c.observe("error")
		return nil, warm, fmt.Errorf("failed to load engine for %s: %w", target.URI, err)
	}
	c.observe("loaded")
	log.Debugf("loaded %s engine for %s", e.Name(), target.URI)

	h = newHandle(e, opts)
	c.mu.Lock()
	c.entries[key] = h
	c.mu.Unlock()
	return h, warm, nil
}

func (c *Cache) observe(result string) {
	if c.OnLoad != nil {
		c.OnLoad(result)
	}
}

// Delete drops the handle for key.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Clear drops every handle.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*Handle)
}

// Len returns the number of cached handles.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
