package storage

import (
	"errors"
	"io"

	"github.com/brecio/brec"
)

// scanSlots reads slot headers starting at fromOffset until it reaches a
// non-full (tail) slot, end of file, or a trailing partial slot header,
// returning every slot it found. A
// slot whose header fails its CRC check is reported as a DamagedSlotError;
// scanning stops there; slots found before it are still returned.
func scanSlots(f io.ReadSeeker, fromOffset uint64, capacity int) ([]AnchoredSlot, error) {
	headerSize := NewSlotHeader(capacity).Size()

	var slots []AnchoredSlot

	offset := fromOffset

	for {
		if _, err := f.Seek(int64(offset), io.SeekStart); err != nil {
			return slots, err
		}

		buf := make([]byte, headerSize)

		_, err := io.ReadFull(f, buf)
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			// End of file, or not enough data for a whole slot header
			// (e.g. one still being written): nothing more to scan.
			return slots, nil
		}

		if err != nil {
			return slots, err
		}

		hdr, err := DecodeSlotHeader(buf, capacity)
		if err != nil {
			return slots, &brec.DamagedSlotError{SlotIndex: len(slots), Cause: err}
		}

		anchored := AnchoredSlot{Header: hdr, Offset: offset}
		slots = append(slots, anchored)

		if !hdr.IsFull() {
			return slots, nil
		}

		offset = anchored.EndOffset()
	}
}
