// File: api/endpoint.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Subscriber endpoint and event source contracts. An endpoint is both the
// take-side of a transport channel and an event source the listener can
// multiplex on.

package api

// EventSource is anything the listener can wait on. Bind installs the wake
// hook the source must invoke once per readiness edge; Bind(nil) removes it.
// A source must tolerate Bind being called concurrently with its own edges.
type EventSource interface {
	Bind(hook func())
}

// SubscriberEndpoint is the receive side of one reader's shared-memory
// channel. TakeChunk returns ErrNoData when nothing is queued; any other
// error means the endpoint is unusable.
type SubscriberEndpoint interface {
	EventSource
	TakeChunk() (Chunk, error)
}

// Reader is the minimal surface the monitor needs from a middleware reader:
// a stable identity, the endpoint to drain, and the cache to store into.
type Reader interface {
	ID() string
	Endpoint() SubscriberEndpoint
	Cache() HistoryCache
}
