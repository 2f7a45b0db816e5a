// Package storage implements the slotted, append-only storage file: packets
// are grouped into fixed-capacity slots, each with a CRC-protected offset
// table, and a Writer/Reader pair coordinate concurrent access via an
// advisory file lock.
package storage

import (
	"github.com/brecio/brec"
)

// DefaultSlotCapacity is the default number of packets a slot holds before
// it is sealed and a new slot is appended.
const DefaultSlotCapacity = 100

// SlotHeader is the CRC-protected preface of a slot: an offset table
// (capacity entries), a free-entry index (capacity means "full"), the
// cumulative byte width of packet data written so far, and a CRC over all
// of the above.
type SlotHeader struct {
	Capacity  int
	Offsets   []uint64
	FreeIndex uint32
	Width     uint64
}

// NewSlotHeader returns an empty slot header with the given capacity.
func NewSlotHeader(capacity int) SlotHeader {
	return SlotHeader{Capacity: capacity, Offsets: make([]uint64, capacity)}
}

// Size returns the encoded size of a slot header of this capacity:
// capacity*8 (table) + 4 (free index) + 8 (width) + 4 (crc).
func (h SlotHeader) Size() int {
	return h.Capacity*8 + 4 + 8 + 4
}

// IsFull reports whether every table entry is occupied.
func (h SlotHeader) IsFull() bool {
	return int(h.FreeIndex) >= h.Capacity
}

// Count returns the number of occupied entries.
func (h SlotHeader) Count() int {
	return int(h.FreeIndex)
}

// Span returns the byte range, relative to the end of this header, that
// entry i's packet occupies.
func (h SlotHeader) Span(i int) (start, end uint64) {
	start = h.Offsets[i]

	if i+1 < h.Count() {
		end = h.Offsets[i+1]
	} else {
		end = h.Width
	}

	return start, end
}

// Encode appends the wire form of h, including its CRC, to dst.
func (h SlotHeader) Encode(dst []byte) []byte {
	start := len(dst)

	for _, off := range h.Offsets {
		dst = brec.PutUint64(dst, off)
	}

	dst = brec.PutUint32(dst, h.FreeIndex)
	dst = brec.PutUint64(dst, h.Width)

	crc := brec.CRC32(dst[start:len(dst)])
	dst = brec.PutUint32(dst, crc)

	return dst
}

// DecodeSlotHeader parses and CRC-verifies a slot header of the given
// capacity from buf.
func DecodeSlotHeader(buf []byte, capacity int) (SlotHeader, error) {
	h := NewSlotHeader(capacity)
	size := h.Size()

	if len(buf) < size {
		return SlotHeader{}, brec.NotEnoughData(size - len(buf))
	}

	body := buf[:size-4]
	crc := brec.Uint32(buf[size-4 : size])

	if brec.CRC32(body) != crc {
		return SlotHeader{}, brec.ErrCrcMismatch
	}

	for i := 0; i < capacity; i++ {
		h.Offsets[i] = brec.Uint64(buf[i*8 : i*8+8])
	}

	h.FreeIndex = brec.Uint32(buf[capacity*8 : capacity*8+4])
	h.Width = brec.Uint64(buf[capacity*8+4 : capacity*8+12])

	return h, nil
}

// AnchoredSlot pairs a slot header with its absolute byte offset in the
// storage file, letting a reader locate packets by global index without
// rescanning from the start.
type AnchoredSlot struct {
	Header SlotHeader
	Offset uint64
}

// PacketOffset returns the absolute file offset of entry i's packet bytes
// within this anchored slot.
func (a AnchoredSlot) PacketOffset(i int) uint64 {
	start, _ := a.Header.Span(i)

	return a.Offset + uint64(a.Header.Size()) + start
}

// PacketSize returns the byte length of entry i's packet within this slot.
func (a AnchoredSlot) PacketSize(i int) uint64 {
	start, end := a.Header.Span(i)

	return end - start
}

// EndOffset returns the absolute file offset immediately after this slot
// (header plus occupied packet bytes), i.e. where the next slot, if any,
// begins.
func (a AnchoredSlot) EndOffset() uint64 {
	return a.Offset + uint64(a.Header.Size()) + a.Header.Width
}
