// File: api/instance.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

// InstanceRef is one counted reference to a stable instance identity.
// Release must be called exactly once per acquired reference.
type InstanceRef interface {
	Handle() uint64
	Release()
}

// InstanceRegistry maps a sample's key to a stable instance identity,
// acquiring one reference per successful resolution.
type InstanceRegistry interface {
	ResolveInstance(s *Sample) (InstanceRef, error)
}
