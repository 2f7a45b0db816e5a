package storage

import (
	"bytes"
	"os"

	"github.com/brecio/brec"
	"github.com/brecio/brec/block"
	"github.com/brecio/brec/packet"
)

// Reader provides random and sequential access to the packets stored in a
// slotted storage file. A Reader does not hold the advisory lock: multiple
// readers may coexist with each other and with a single Writer.
type Reader struct {
	file  *os.File
	reg   *block.Registry
	opts  Options
	rules *packet.Rules

	slots []AnchoredSlot
}

// OpenReader opens the storage file at path read-only and scans its slots.
// reg dispatches block signatures encountered while decoding packets.
func OpenReader(path string, opts Options, reg *block.Registry) (*Reader, error) {
	opts = opts.withDefaults()

	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	slots, err := scanSlots(file, 0, opts.SlotCapacity)
	if err != nil {
		_ = file.Close()

		return nil, err
	}

	return &Reader{
		file:  file,
		reg:   reg,
		opts:  opts,
		rules: packet.NewRules(),
		slots: slots,
	}, nil
}

// Close closes the underlying file.
func (r *Reader) Close() error {
	return r.file.Close()
}

// AddRule registers a rule used by Filtered/RangeFiltered; see
// packet.Rules.Add*.
func (r *Reader) AddRule(kind packet.RuleKind, fn any) error {
	switch kind {
	case packet.KindFilterByBlocks:
		f, ok := fn.(packet.BlocksFilterFunc)
		if !ok {
			return brec.ErrInvalidPacketReaderLogic
		}

		return r.rules.AddFilterByBlocks(f)
	case packet.KindFilterByPayload:
		f, ok := fn.(packet.PayloadFilterFunc)
		if !ok {
			return brec.ErrInvalidPacketReaderLogic
		}

		return r.rules.AddFilterByPayload(f)
	case packet.KindFilter:
		f, ok := fn.(packet.FilterFunc)
		if !ok {
			return brec.ErrInvalidPacketReaderLogic
		}

		return r.rules.AddFilter(f)
	default:
		return brec.ErrInvalidPacketReaderLogic
	}
}

// RemoveRule clears the rule registered for kind, if any.
func (r *Reader) RemoveRule(kind packet.RuleKind) {
	r.rules.Remove(kind)
}

// Reload rescans the storage file for slots written since the last Open or
// Reload, starting at the known non-full tail slot (or right after the last
// known slot when that one is full). Slots already seen full are not read
// again. The tail slot's free index must never regress relative to what was
// last observed, since that can only mean the file was truncated and
// overwritten underneath this Reader; a regression surfaces as a
// DamagedSlotError wrapping ErrSlotRegressed. Reload does not report how
// many packets became visible.
func (r *Reader) Reload() error {
	var fromOffset uint64

	var prevTail *AnchoredSlot

	known := r.slots
	if n := len(known); n > 0 && known[n-1].Header.IsFull() {
		fromOffset = known[n-1].EndOffset()
	} else if n > 0 {
		fromOffset = known[n-1].Offset
		prevTail = &known[n-1]
		known = known[:n-1]
	}

	fresh, err := scanSlots(r.file, fromOffset, r.opts.SlotCapacity)
	if err != nil {
		return err
	}

	if prevTail != nil && len(fresh) > 0 {
		if fresh[0].Header.Count() < prevTail.Header.Count() {
			return &brec.DamagedSlotError{
				SlotIndex: len(known),
				Cause:     brec.ErrSlotRegressed,
			}
		}
	}

	r.slots = append(known, fresh...)

	return nil
}

// Count returns the total number of packets currently known across all
// slots.
func (r *Reader) Count() int {
	total := 0

	for _, s := range r.slots {
		total += s.Header.Count()
	}

	return total
}

// locate maps a global packet index to its slot and entry, or reports it
// out of range.
func (r *Reader) locate(index int) (AnchoredSlot, int, bool) {
	remaining := index

	for _, s := range r.slots {
		count := s.Header.Count()
		if remaining < count {
			return s, remaining, true
		}

		remaining -= count
	}

	return AnchoredSlot{}, 0, false
}

func (r *Reader) readAt(slot AnchoredSlot, entry int) ([]byte, error) {
	size := slot.PacketSize(entry)
	buf := make([]byte, size)

	if _, err := r.file.ReadAt(buf, int64(slot.PacketOffset(entry))); err != nil {
		return nil, err
	}

	return buf, nil
}

// Nth decodes the packet at global index i, or returns AccessSlotError if i
// is out of range.
func (r *Reader) Nth(i int) (packet.Packet, error) {
	slot, entry, ok := r.locate(i)
	if !ok {
		return packet.Packet{}, &brec.AccessSlotError{Index: i}
	}

	buf, err := r.readAt(slot, entry)
	if err != nil {
		return packet.Packet{}, err
	}

	return decodePacket(buf, r.reg)
}

// NthFiltered runs the look-in fast-reject path over the packet at global
// index i using the registered rules, without committing to a full decode
// if it is rejected.
func (r *Reader) NthFiltered(i int) (packet.LookInStatus, bool, error) {
	slot, entry, ok := r.locate(i)
	if !ok {
		return packet.LookInStatus{}, false, nil
	}

	buf, err := r.readAt(slot, entry)
	if err != nil {
		return packet.LookInStatus{}, false, err
	}

	status, err := packet.LookIn(buf, r.reg, r.rules.BlocksFilter(), r.rules.PayloadFilter(), r.rules.Filter())

	return status, true, err
}

func decodePacket(buf []byte, reg *block.Registry) (packet.Packet, error) {
	hdr, err := packet.ReadHeader(bytes.NewReader(buf))
	if err != nil {
		return packet.Packet{}, err
	}

	p, _, err := packet.ReadBody(buf[packet.HeaderSize:], hdr, reg, nil)

	return p, err
}

// Iter returns a sequence over every packet currently known, in storage
// order. Iteration stops early, with the offending error surfaced via a
// final yielded error, if a packet fails to decode.
func (r *Reader) Iter() func(yield func(packet.Packet, error) bool) {
	return func(yield func(packet.Packet, error) bool) {
		for i := 0; i < r.Count(); i++ {
			p, err := r.Nth(i)
			if !yield(p, err) {
				return
			}

			if err != nil {
				return
			}
		}
	}
}

// Filtered returns a sequence over every packet accepted by the registered
// rules, in storage order.
func (r *Reader) Filtered() func(yield func(packet.Packet, error) bool) {
	return func(yield func(packet.Packet, error) bool) {
		for i := 0; i < r.Count(); i++ {
			status, ok, err := r.NthFiltered(i)
			if !ok {
				return
			}

			if err != nil {
				yield(packet.Packet{}, err)

				return
			}

			switch status.Kind {
			case packet.Accepted:
				if !yield(status.Packet, nil) {
					return
				}
			case packet.Denied:
				continue
			case packet.LookInNotEnoughData:
				yield(packet.Packet{}, brec.NotEnoughData(status.Needed))

				return
			}
		}
	}
}

// Range returns a sequence over the len packets starting at global index
// from, in storage order.
func (r *Reader) Range(from, length int) func(yield func(packet.Packet, error) bool) {
	return func(yield func(packet.Packet, error) bool) {
		for i := 0; i < length; i++ {
			p, err := r.Nth(from + i)
			if !yield(p, err) {
				return
			}

			if err != nil {
				return
			}
		}
	}
}

// RangeFiltered returns a sequence over at most length packets accepted by
// the registered rules, scanning forward from global index from.
func (r *Reader) RangeFiltered(from, length int) func(yield func(packet.Packet, error) bool) {
	return func(yield func(packet.Packet, error) bool) {
		yielded := 0
		i := from

		for yielded < length {
			status, ok, err := r.NthFiltered(i)
			if !ok {
				return
			}

			i++

			if err != nil {
				yield(packet.Packet{}, err)

				return
			}

			switch status.Kind {
			case packet.Accepted:
				yielded++

				if !yield(status.Packet, nil) {
					return
				}
			case packet.Denied:
				continue
			case packet.LookInNotEnoughData:
				yield(packet.Packet{}, brec.NotEnoughData(status.Needed))

				return
			}
		}
	}
}
