// Package api
// Author: momentics <momentics@gmail.com>
//
// Common error values used across the hioload-shm library.

package api

import "fmt"

var (
	// ErrNoData is the "nothing queued" result of SubscriberEndpoint.TakeChunk.
	ErrNoData = fmt.Errorf("no data available")
	// ErrResourceExhausted maps the listener's source-table capacity limit.
	ErrResourceExhausted = fmt.Errorf("resource exhausted")
	// ErrAlreadyAttached rejects a second attach of the same reader.
	ErrAlreadyAttached = fmt.Errorf("reader already attached")
	// ErrNotAttached rejects detach of a reader that was never attached.
	ErrNotAttached = fmt.Errorf("reader not attached")
	// ErrMonitorStopped rejects operations on a closed monitor.
	ErrMonitorStopped = fmt.Errorf("monitor is stopped")
	// ErrQuiesceTimeout reports a teardown that could not drain in-flight callbacks.
	ErrQuiesceTimeout = fmt.Errorf("callback quiesce timeout")
	// ErrListenerClosed rejects attach/detach on a closed listener.
	ErrListenerClosed = fmt.Errorf("listener is closed")
	// ErrTransportClosed rejects loans and publishes on a closed transport.
	ErrTransportClosed = fmt.Errorf("transport is closed")
	// ErrChunkTooLarge reports a payload that exceeds the chunk geometry.
	ErrChunkTooLarge = fmt.Errorf("payload exceeds chunk capacity")
	// ErrBadHeader reports a chunk whose header block failed validation.
	ErrBadHeader = fmt.Errorf("malformed chunk header")
	// ErrInvalidArgument reports a caller-side misuse.
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)
