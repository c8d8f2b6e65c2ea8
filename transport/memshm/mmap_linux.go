//go:build linux
// +build linux

// File: transport/memshm/mmap_linux.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Linux arena backing: anonymous shared mapping, so the arena lives outside
// the Go heap the way a real shared-memory segment would.

package memshm

import "golang.org/x/sys/unix"

func mapArena(size int) ([]byte, func(), error) {
	mem, err := unix.Mmap(-1, 0, size,
		unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_ANONYMOUS|unix.MAP_SHARED)
	if err != nil {
		// Kernel refused the mapping; the heap still gives correct behavior.
		mem = make([]byte, size)
		return mem, func() {}, nil
	}
	return mem, func() { _ = unix.Munmap(mem) }, nil
}
