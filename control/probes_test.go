// File: control/probes_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package control_test

import (
	"testing"

	"github.com/momentics/hioload-shm/control"
)

func TestProbes_DumpState(t *testing.T) {
	p := control.NewProbes()
	calls := 0
	p.Register("bridge", func() any {
		calls++
		return calls
	})

	out := p.DumpState()
	if out["bridge"] != 1 {
		t.Fatalf("dump = %v", out)
	}
	// Each dump re-evaluates the probe; snapshots are point-in-time.
	out = p.DumpState()
	if out["bridge"] != 2 {
		t.Fatalf("second dump = %v", out)
	}

	p.Unregister("bridge")
	if out := p.DumpState(); len(out) != 0 {
		t.Fatalf("dump after unregister = %v", out)
	}
}
