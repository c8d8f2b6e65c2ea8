// File: monitor/stats.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package monitor

import (
	"sync/atomic"

	"github.com/momentics/hioload-shm/control"
)

type counters struct {
	takes           atomic.Uint64
	stores          atomic.Uint64
	drains          atomic.Uint64
	takeErrors      atomic.Uint64
	skippedLocal    atomic.Uint64
	skippedUnknown  atomic.Uint64
	keyFailures     atomic.Uint64
	wakeInvocations atomic.Uint64
}

// Stats is a point-in-time snapshot of the monitor's pipeline counters.
type Stats struct {
	AttachedReaders      int
	Takes                uint64
	Stores               uint64
	Drains               uint64
	TakeErrors           uint64
	SkippedLocalWriter   uint64
	SkippedUnknownWriter uint64
	KeyResolveFailures   uint64
	WakeInvocations      uint64
	WakeDiscarded        uint64
}

// Stats snapshots the monitor counters.
func (m *Monitor) Stats() Stats {
	return Stats{
		AttachedReaders:      int(m.attached.Load()),
		Takes:                m.stats.takes.Load(),
		Stores:               m.stats.stores.Load(),
		Drains:               m.stats.drains.Load(),
		TakeErrors:           m.stats.takeErrors.Load(),
		SkippedLocalWriter:   m.stats.skippedLocal.Load(),
		SkippedUnknownWriter: m.stats.skippedUnknown.Load(),
		KeyResolveFailures:   m.stats.keyFailures.Load(),
		WakeInvocations:      m.stats.wakeInvocations.Load(),
		WakeDiscarded:        m.wake.discarded.Load(),
	}
}

// RegisterProbes publishes the monitor's counters under the "monitor" probe.
func (m *Monitor) RegisterProbes(p *control.Probes) {
	p.Register("monitor", func() any { return m.Stats() })
}
