// File: history/cache.go
// Package history provides the reference per-reader history cache: bounded
// keep-last storage per instance.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package history

import (
	"sync"

	"github.com/momentics/hioload-shm/api"
)

// Record is one stored sample with the writer info it arrived under.
type Record struct {
	Info     api.WriterInfo
	Sample   *api.Sample
	Instance uint64
}

// Cache stores the most recent Depth samples per instance. Stored samples
// carry one cache-owned reference; Take transfers that reference to the
// caller, and eviction releases it.
type Cache struct {
	mu        sync.Mutex
	depth     int
	instances map[uint64][]Record
	order     []uint64 // instance FIFO for Take
	evicted   uint64
}

var _ api.HistoryCache = (*Cache)(nil)

// NewCache creates a cache keeping the last depth samples per instance.
func NewCache(depth int) *Cache {
	if depth < 1 {
		depth = 1
	}
	return &Cache{
		depth:     depth,
		instances: make(map[uint64][]Record),
	}
}

// Store commits one sample under ref's instance. Returns false when an
// older sample was evicted to make room.
func (c *Cache) Store(info api.WriterInfo, s *api.Sample, ref api.InstanceRef) bool {
	s.Retain()
	rec := Record{Info: info, Sample: s, Instance: ref.Handle()}

	c.mu.Lock()
	defer c.mu.Unlock()
	list := c.instances[rec.Instance]
	evict := len(list) >= c.depth
	if evict {
		list[0].Sample.Release()
		list = list[1:]
		c.evicted++
	}
	c.instances[rec.Instance] = append(list, rec)
	c.order = append(c.order, rec.Instance)
	return !evict
}

// Take removes and returns the oldest stored record in arrival order. The
// caller receives the cache's sample reference and must release it.
func (c *Cache) Take() (Record, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for len(c.order) > 0 {
		inst := c.order[0]
		c.order = c.order[1:]
		list := c.instances[inst]
		if len(list) == 0 {
			// Arrival entry survived an eviction; skip it.
			continue
		}
		rec := list[0]
		if len(list) == 1 {
			delete(c.instances, inst)
		} else {
			c.instances[inst] = list[1:]
		}
		return rec, true
	}
	return Record{}, false
}

// Len returns the number of stored samples.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, list := range c.instances {
		n += len(list)
	}
	return n
}

// Evicted reports how many samples were displaced by depth pressure.
func (c *Cache) Evicted() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.evicted
}

// Drain releases every stored sample.
func (c *Cache) Drain() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for inst, list := range c.instances {
		for _, rec := range list {
			rec.Sample.Release()
		}
		delete(c.instances, inst)
	}
	c.order = nil
}
