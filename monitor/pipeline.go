// File: monitor/pipeline.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// The receive pipeline: drain every chunk currently queued on one reader's
// endpoint, translate each into a sample, and commit it to the reader's
// history cache. Runs to completion before returning to the listener; a
// per-chunk failure skips that chunk only.

package monitor

import (
	"errors"

	"github.com/momentics/hioload-shm/api"
)

// drain processes rb's endpoint until it reports no data. The executing
// goroutine is marked awake in the liveness tracker for the whole drain.
func (m *Monitor) drain(rb *readerBinding) {
	m.deps.Liveness.Awake()
	defer m.deps.Liveness.Asleep()

	for {
		m.takeMu.Lock()
		c, err := rb.endpoint.TakeChunk()
		m.takeMu.Unlock()
		if err != nil {
			if errors.Is(err, api.ErrNoData) {
				m.stats.drains.Add(1)
				return
			}
			m.stats.takeErrors.Add(1)
			m.log.Warn("monitor: take failed, ending drain",
				"reader", rb.reader.ID(), "err", err)
			return
		}
		m.stats.takes.Add(1)

		hdr := c.Header()
		w, ok := m.deps.Index.LookupWriter(hdr.Writer)
		if !ok {
			// Two distinct outcomes: a co-located writer whose data reaches
			// the reader through the in-process path is expected; an
			// identity nobody discovered is not.
			if m.deps.Index.IsLocalWriter(hdr.Writer) {
				m.stats.skippedLocal.Add(1)
				m.log.Debug("monitor: chunk from local writer, skipping",
					"reader", rb.reader.ID(), "writer", hdr.Writer)
			} else {
				m.stats.skippedUnknown.Add(1)
				m.log.Warn("monitor: chunk from unknown writer, skipping",
					"reader", rb.reader.ID(), "writer", hdr.Writer)
			}
			c.Release()
			continue
		}

		// The sample takes over the chunk reference from here on.
		s := api.NewSample(c)

		ref, err := m.deps.Instances.ResolveInstance(s)
		if err != nil {
			m.stats.keyFailures.Add(1)
			m.log.Warn("monitor: instance key resolution failed, skipping",
				"reader", rb.reader.ID(), "writer", hdr.Writer,
				"key", hdr.KeyHash, "err", err)
			s.Release()
			continue
		}

		info := api.WriterInfo{
			GUID:   w.GUID,
			QoS:    w.QoS,
			Status: s.Status,
		}

		// Ordering, duplicate handling and eviction are the cache's
		// responsibility; the outcome is not inspected here.
		_ = rb.cache.Store(info, s, ref)
		m.stats.stores.Add(1)

		ref.Release()
		s.Release()
	}
}
