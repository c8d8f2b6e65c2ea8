// control/probes.go
// Author: momentics <momentics@gmail.com>
//
// Runtime debug probe registry for internal inspection. Components register
// named snapshot functions; DumpState evaluates them all.

package control

import "sync"

// Probes holds registered probe functions.
type Probes struct {
	mu     sync.RWMutex
	probes map[string]func() any
}

// NewProbes creates an empty probe registry.
func NewProbes() *Probes {
	return &Probes{probes: make(map[string]func() any)}
}

// Register inserts a named debug hook, replacing any previous one.
func (p *Probes) Register(name string, fn func() any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.probes[name] = fn
}

// Unregister removes a named hook.
func (p *Probes) Unregister(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.probes, name)
}

// DumpState returns the output of all probes.
func (p *Probes) DumpState() map[string]any {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make(map[string]any, len(p.probes))
	for k, fn := range p.probes {
		out[k] = fn()
	}
	return out
}
