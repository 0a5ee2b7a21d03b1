package sitekit

import (
	"context"
	"sync"
	"time"
)

// Snapshot is one loaded and built state of a site project.
type Snapshot struct {
	Project  *Project
	Manifest *Manifest
	LoadedAt time.Time
}

// Loader loads a project from disk and builds it.
type Loader func(ctx context.Context) (*Snapshot, error)

// ProjectLoader returns a Loader that reads the project in dir, layered on
// base, and builds it with opts.
func ProjectLoader(dir string, base *Library, opts ...BuildOption) Loader {
	return func(ctx context.Context) (*Snapshot, error) {
		p, err := LoadProject(ctx, dir, base)
		if err != nil {
			return nil, err
		}
		m, err := p.Build(ctx, opts...)
		if err != nil {
			return nil, err
		}
		return &Snapshot{Project: p, Manifest: m, LoadedAt: time.Now()}, nil
	}
}

// ManifestCache keeps the latest built snapshot of a project in memory and
// rebuilds it when it is older than the TTL or has been invalidated.
type ManifestCache struct {
	mu       sync.RWMutex
	snap     *Snapshot
	fetched  time.Time
	ttl      time.Duration
	load     Loader
	onReload func(*Snapshot)
}

// NewManifestCache creates a ManifestCache backed by load. A zero ttl keeps a
// snapshot until it is invalidated.
func NewManifestCache(load Loader, ttl time.Duration) *ManifestCache {
	return &ManifestCache{load: load, ttl: ttl}
}

// OnReload registers fn to be called, under the cache lock, with every
// freshly built snapshot.
func (c *ManifestCache) OnReload(fn func(*Snapshot)) {
	c.mu.Lock()
	c.onReload = fn
	c.mu.Unlock()
}

func (c *ManifestCache) valid() bool {
	if c.snap == nil {
		return false
	}
	return c.ttl <= 0 || time.Since(c.fetched) < c.ttl
}

// Invalidate clears the cache so the next read triggers a rebuild.
func (c *ManifestCache) Invalidate() {
	c.mu.Lock()
	c.snap = nil
	c.mu.Unlock()
}

func (c *ManifestCache) reload(ctx context.Context) error {
	if c.valid() {
		return nil
	}
	snap, err := c.load(ctx)
	if err != nil {
		return err
	}
	c.snap = snap
	c.fetched = time.Now()
	if c.onReload != nil {
		c.onReload(snap)
	}
	return nil
}

// Get returns the cached snapshot after ensuring it is fresh. It tries a read
// lock first and only takes the write lock when a rebuild is needed.
func (c *ManifestCache) Get(ctx context.Context) (*Snapshot, error) {
	c.mu.RLock()
	if c.valid() {
		snap := c.snap
		c.mu.RUnlock()
		return snap, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.reload(ctx); err != nil {
		return nil, err
	}
	return c.snap, nil
}

// Lookup returns the accepted page served at path from the current snapshot.
func (c *ManifestCache) Lookup(ctx context.Context, path string) (*Snapshot, *PageModule, error) {
	snap, err := c.Get(ctx)
	if err != nil {
		return nil, nil, err
	}
	mod, ok := snap.Manifest.Lookup(path)
	if !ok {
		return snap, nil, nil
	}
	return snap, mod, nil
}
