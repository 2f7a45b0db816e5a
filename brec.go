// Package brec implements the runtime of a binary record framing framework:
// fixed-size blocks and variable-size payloads packed into self-describing
// packets, a resynchronizing stream reader, and a slotted storage file.
//
// Sub-packages:
//
//   - block: per-type block codec (write/read/zero-copy referred view).
//   - payload: variable-size payload header and codec.
//   - packet: packet assembly, the resynchronizing stream reader, and the
//     rule engine.
//   - storage: the slotted, append-only storage file.
//   - storage/filelock: the advisory lock guarding concurrent writers.
//   - observer: a filesystem-watch-driven wake signal for tailing readers.
//
// This package holds what all of those share: the little-endian scalar
// codec, CRC32 computation, ByteBlock, and the error taxonomy.
package brec

import (
	"encoding/binary"
	"hash/crc32"
)

// CRC32 computes the IEEE CRC32 (bit-reversed polynomial, initial value and
// final XOR both 0xFFFFFFFF — i.e. Go's default crc32.IEEETable) over b.
func CRC32(b []byte) uint32 {
	return crc32.ChecksumIEEE(b)
}

// PutUint16 appends the little-endian encoding of v to dst.
func PutUint16(dst []byte, v uint16) []byte {
	var buf [2]byte
	binary.LittleEndian.PutUint16(buf[:], v)

	return append(dst, buf[:]...)
}

// PutUint32 appends the little-endian encoding of v to dst.
func PutUint32(dst []byte, v uint32) []byte {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)

	return append(dst, buf[:]...)
}

// PutUint64 appends the little-endian encoding of v to dst.
func PutUint64(dst []byte, v uint64) []byte {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)

	return append(dst, buf[:]...)
}

// PutUint128 appends the little-endian encoding of the 128-bit value held in
// lo/hi (lo is the least-significant 64 bits) to dst, matching the layout a
// Rust u128 would produce on a little-endian target.
func PutUint128(dst []byte, lo, hi uint64) []byte {
	dst = PutUint64(dst, lo)
	dst = PutUint64(dst, hi)

	return dst
}

// Uint16 decodes a little-endian uint16 from the front of b.
func Uint16(b []byte) uint16 {
	return binary.LittleEndian.Uint16(b)
}

// Uint32 decodes a little-endian uint32 from the front of b.
func Uint32(b []byte) uint32 {
	return binary.LittleEndian.Uint32(b)
}

// Uint64 decodes a little-endian uint64 from the front of b.
func Uint64(b []byte) uint64 {
	return binary.LittleEndian.Uint64(b)
}

// Uint128 decodes a little-endian 128-bit value from the front of b,
// returning (lo, hi) with lo holding the least-significant 64 bits.
func Uint128(b []byte) (lo, hi uint64) {
	return binary.LittleEndian.Uint64(b[:8]), binary.LittleEndian.Uint64(b[8:16])
}
