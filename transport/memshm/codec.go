// File: transport/memshm/codec.go
// Package memshm implements the in-process zero-copy chunk transport used as
// the reference shared-memory system behind the monitor.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Fixed binary chunk-header layout, encoded at the head of every chunk:
//
//	offset 0  magic      uint32
//	offset 4  version    uint8
//	offset 5  data kind  uint8
//	offset 6  (reserved) 2 bytes
//	offset 8  status     uint32
//	offset 12 payload    uint32 (length)
//	offset 16 key hash   uint64
//	offset 24 timestamp  int64 (unix nanos)
//	offset 32 writer     16 bytes
//	offset 48 (reserved) 16 bytes
//
// All multi-byte fields big-endian.

package memshm

import (
	"encoding/binary"

	"github.com/momentics/hioload-shm/api"
)

// HeaderSize is the fixed chunk header block length.
const HeaderSize = 64

const (
	headerMagic   = 0x53484D43 // "SHMC"
	headerVersion = 1
)

// encodeHeader writes hdr and payloadLen into the chunk head.
func encodeHeader(dst []byte, hdr api.ChunkHeader, payloadLen int) error {
	if len(dst) < HeaderSize {
		return api.ErrBadHeader
	}
	if payloadLen < 0 || payloadLen > len(dst)-HeaderSize {
		return api.ErrChunkTooLarge
	}
	binary.BigEndian.PutUint32(dst[0:], headerMagic)
	dst[4] = headerVersion
	dst[5] = byte(hdr.Kind)
	dst[6] = 0
	dst[7] = 0
	binary.BigEndian.PutUint32(dst[8:], uint32(hdr.Status))
	binary.BigEndian.PutUint32(dst[12:], uint32(payloadLen))
	binary.BigEndian.PutUint64(dst[16:], hdr.KeyHash)
	binary.BigEndian.PutUint64(dst[24:], uint64(hdr.Timestamp))
	copy(dst[32:48], hdr.Writer[:])
	for i := 48; i < HeaderSize; i++ {
		dst[i] = 0
	}
	return nil
}

// decodeHeader parses and validates the chunk head, returning the header and
// the payload length.
func decodeHeader(src []byte) (api.ChunkHeader, int, error) {
	if len(src) < HeaderSize {
		return api.ChunkHeader{}, 0, api.ErrBadHeader
	}
	if binary.BigEndian.Uint32(src[0:]) != headerMagic || src[4] != headerVersion {
		return api.ChunkHeader{}, 0, api.ErrBadHeader
	}
	payloadLen := int(binary.BigEndian.Uint32(src[12:]))
	if payloadLen > len(src)-HeaderSize {
		return api.ChunkHeader{}, 0, api.ErrBadHeader
	}
	hdr := api.ChunkHeader{
		Kind:      api.DataKind(src[5]),
		Status:    api.StatusFlags(binary.BigEndian.Uint32(src[8:])),
		KeyHash:   binary.BigEndian.Uint64(src[16:]),
		Timestamp: int64(binary.BigEndian.Uint64(src[24:])),
	}
	copy(hdr.Writer[:], src[32:48])
	return hdr, payloadLen, nil
}
