// File: liveness/tracker_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package liveness_test

import (
	"sync"
	"testing"

	"github.com/momentics/hioload-shm/liveness"
)

func TestTracker_AwakeAsleepPairing(t *testing.T) {
	tr := liveness.NewTracker()
	if tr.AwakeCount() != 0 {
		t.Fatalf("fresh tracker awake = %d", tr.AwakeCount())
	}
	tr.Awake()
	if tr.AwakeCount() != 1 {
		t.Fatalf("awake = %d, want 1", tr.AwakeCount())
	}
	tr.Asleep()
	if tr.AwakeCount() != 0 {
		t.Fatalf("awake = %d after asleep, want 0", tr.AwakeCount())
	}
	if tr.Wakes() != 1 {
		t.Fatalf("wakes = %d, want 1", tr.Wakes())
	}
}

func TestTracker_ConcurrentDrains(t *testing.T) {
	tr := liveness.NewTracker()
	var wg sync.WaitGroup
	const n = 32
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				tr.Awake()
				tr.Asleep()
			}
		}()
	}
	wg.Wait()
	if tr.AwakeCount() != 0 {
		t.Fatalf("awake = %d after all drains, want 0", tr.AwakeCount())
	}
	if tr.Wakes() != n*100 {
		t.Fatalf("wakes = %d, want %d", tr.Wakes(), n*100)
	}
	if got := tr.ActiveThreads(); len(got) != 0 {
		t.Fatalf("active threads = %v, want none", got)
	}
}

func TestTracker_UnbalancedAsleepPanics(t *testing.T) {
	tr := liveness.NewTracker()
	defer func() {
		if recover() == nil {
			t.Fatal("unbalanced Asleep did not panic")
		}
	}()
	tr.Asleep()
}
