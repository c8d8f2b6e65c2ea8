//go:build linux
// +build linux

// File: liveness/tracker_linux.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package liveness

import "golang.org/x/sys/unix"

// threadID returns the kernel thread id of the calling goroutine's current
// OS thread. The goroutine is not pinned, so the id is advisory.
func threadID() int {
	return unix.Gettid()
}
