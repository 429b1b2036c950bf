package cache

import (
	"sync"
	"sync/atomic"

	"concretize/internal/harvest"
	"concretize/internal/meta"
)

// Pools adapts a DiskCache to harvest.Cache. Modules must be registered
// with Track before harvesting; untracked modules always miss.
type Pools struct {
	disk *DiskCache

	mu      sync.RWMutex
	digests map[*meta.Module]Digest

	hits, misses atomic.Int64
	errMu        sync.Mutex
	errs         []error
}

var _ harvest.Cache = (*Pools)(nil)

// NewPools wraps disk.
func NewPools(disk *DiskCache) *Pools {
	return &Pools{disk: disk, digests: make(map[*meta.Module]Digest)}
}

// Track records the content digest of mod.
func (p *Pools) Track(mod *meta.Module, d Digest) {
	p.mu.Lock()
	p.digests[mod] = d
	p.mu.Unlock()
}

func (p *Pools) digest(mod *meta.Module) (Digest, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	d, ok := p.digests[mod]
	return d, ok && !d.IsZero()
}

// Load implements harvest.Cache. Read errors count as misses and are kept
// for Errors.
func (p *Pools) Load(mod *meta.Module) (*harvest.Pool, bool) {
	d, ok := p.digest(mod)
	if !ok {
		p.misses.Add(1)
		return nil, false
	}
	var payload Payload
	found, err := p.disk.Get(d, &payload)
	if err != nil {
		p.record(err)
	}
	if !found || err != nil {
		p.misses.Add(1)
		return nil, false
	}
	pool := harvest.NewPool()
	for _, t := range payload.Types {
		pool.Add(t)
	}
	p.hits.Add(1)
	return pool, true
}

// Store implements harvest.Cache.
func (p *Pools) Store(mod *meta.Module, pool *harvest.Pool) {
	d, ok := p.digest(mod)
	if !ok {
		return
	}
	if err := p.disk.Put(d, &Payload{Module: mod.Name, Types: pool.Types()}); err != nil {
		p.record(err)
	}
}

func (p *Pools) record(err error) {
	p.errMu.Lock()
	p.errs = append(p.errs, err)
	p.errMu.Unlock()
}

// Counts returns cache hits and misses so far.
func (p *Pools) Counts() (hits, misses int64) {
	return p.hits.Load(), p.misses.Load()
}

// Errors returns the I/O errors swallowed so far.
func (p *Pools) Errors() []error {
	p.errMu.Lock()
	defer p.errMu.Unlock()
	return append([]error(nil), p.errs...)
}
