// Package control
// Author: momentics <momentics@gmail.com>
//
// Configuration and debug introspection layer for the shared-memory bridge.
// Part of hioload-shm high-load architecture core.
//
// Provides:
//   - File/env configuration loading with validation
//   - Debug probe registration and state export
package control
