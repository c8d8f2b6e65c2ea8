// File: api/writer.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Remote-writer entity index contract and the per-sample writer-info record
// the pipeline hands to the history cache.

package api

// Reliability is the delivery QoS a writer was matched with.
type Reliability uint8

const (
	BestEffort Reliability = iota
	Reliable
)

// WriterQoS is the subset of writer QoS the cache-store path consumes.
type WriterQoS struct {
	Reliability       Reliability
	OwnershipStrength int32
}

// RemoteWriter is one discovered remote writer: identity plus matched QoS.
type RemoteWriter struct {
	GUID GUID
	QoS  WriterQoS
}

// WriterInfo is the ephemeral record built per taken chunk and consumed
// immediately by HistoryCache.Store.
type WriterInfo struct {
	GUID   GUID
	QoS    WriterQoS
	Status StatusFlags
}

// EntityIndex resolves writer identities carried in chunk headers.
// LookupWriter reports remote writers; IsLocalWriter distinguishes the
// expected skip (co-located writer whose data arrives in-process) from an
// entirely unknown identity.
type EntityIndex interface {
	LookupWriter(g GUID) (RemoteWriter, bool)
	IsLocalWriter(g GUID) bool
}
