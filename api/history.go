// File: api/history.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

// HistoryCache is the per-reader store the receive pipeline commits into.
// Store's outcome (duplicate rejection, eviction) is the cache's own
// business; the pipeline does not inspect it. An implementation that keeps
// the sample past the call must take its own sample reference.
type HistoryCache interface {
	Store(info WriterInfo, s *Sample, ref InstanceRef) bool
}

// LivenessTracker marks the calling goroutine awake for the duration of a
// drain so the middleware's liveness machinery can see progress. Awake and
// Asleep calls are strictly paired.
type LivenessTracker interface {
	Awake()
	Asleep()
}
