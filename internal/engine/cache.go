package engine

import (
	"context"
	"sync"
)

// CachedHandle wraps a Handle and memoizes Source and Title reads.
// Several probes evaluate the same rendered document within a cell;
// without the cache each one would pull the full serialized DOM over
// the wire again. Navigation drops the cached state.
//
// Failed reads are not cached, so a transient driver error on one probe
// does not poison the reads of the probes after it.
type CachedHandle struct {
	Handle

	mu        sync.Mutex
	source    string
	sourceSet bool
	title     string
	titleSet  bool
}

// compile-time interface check
var _ Handle = (*CachedHandle)(nil)

// NewCachedHandle wraps a handle with read memoization.
func NewCachedHandle(h Handle) *CachedHandle {
	return &CachedHandle{Handle: h}
}

// Navigate loads the URL and invalidates the cached document state.
func (c *CachedHandle) Navigate(ctx context.Context, url string) error {
	c.mu.Lock()
	c.sourceSet = false
	c.titleSet = false
	c.mu.Unlock()

	return c.Handle.Navigate(ctx, url)
}

// Source returns the serialized DOM, fetching it at most once per
// navigation.
func (c *CachedHandle) Source(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sourceSet {
		return c.source, nil
	}

	source, err := c.Handle.Source(ctx)
	if err != nil {
		return "", err
	}
	c.source = source
	c.sourceSet = true
	return source, nil
}

// Title returns the page title, fetching it at most once per navigation.
func (c *CachedHandle) Title(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.titleSet {
		return c.title, nil
	}

	title, err := c.Handle.Title(ctx)
	if err != nil {
		return "", err
	}
	c.title = title
	c.titleSet = true
	return title, nil
}
