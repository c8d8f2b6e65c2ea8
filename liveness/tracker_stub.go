//go:build !linux
// +build !linux

// File: liveness/tracker_stub.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package liveness

func threadID() int {
	return 0
}
