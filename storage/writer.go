package storage

import (
	"bytes"
	"os"

	"github.com/brecio/brec"
	"github.com/brecio/brec/packet"
	"github.com/brecio/brec/storage/filelock"
)

// Writer appends packets to a slotted storage file, holding an exclusive
// advisory lock on it for its entire lifetime.
type Writer struct {
	file    *os.File
	lock    *filelock.Lock
	opts    Options
	slots   []AnchoredSlot
	freeLoc FreeSlotLocator
}

// OpenWriter opens (creating if necessary) the storage file at path,
// acquires its advisory lock per opts.LockTimeout/LockInterval, and scans
// any existing slots so Insert knows where to append.
func OpenWriter(path string, opts Options) (*Writer, error) {
	opts = opts.withDefaults()

	lock, err := filelock.Acquire(path, opts.LockTimeout, opts.LockInterval)
	if err != nil {
		return nil, err
	}

	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		_ = lock.Close()

		return nil, err
	}

	slots, err := scanSlots(file, 0, opts.SlotCapacity)
	if err != nil {
		_ = file.Close()
		_ = lock.Close()

		return nil, err
	}

	return &Writer{
		file:    file,
		lock:    lock,
		opts:    opts,
		slots:   slots,
		freeLoc: locate(slots),
	}, nil
}

// Close releases the writer's lock and closes the underlying file.
func (w *Writer) Close() error {
	closeErr := w.file.Close()
	lockErr := w.lock.Close()

	if closeErr != nil {
		return closeErr
	}

	return lockErr
}

// Insert serializes p and appends it to the current free slot, creating a
// new slot first if the current one is full. On any failure the slot
// header on disk is left unmodified: the header is only rewritten after
// the packet bytes have been written. Neither write is synced; call Sync
// for durability.
func (w *Writer) Insert(p packet.Packet) error {
	var buf bytes.Buffer

	if _, err := packet.Write(&buf, p); err != nil {
		return err
	}

	if w.opts.MaxPacketSize > 0 && uint64(buf.Len()) > w.opts.MaxPacketSize {
		return brec.ErrPacketTooLarge
	}

	if w.freeLoc.NeedsNewSlot(len(w.slots)) {
		if err := w.appendEmptySlot(); err != nil {
			return err
		}
	}

	slot := &w.slots[w.freeLoc.SlotIndex]

	packetOffset := slot.EndOffset()

	if _, err := w.file.WriteAt(buf.Bytes(), int64(packetOffset)); err != nil {
		return err
	}

	slot.Header.Offsets[w.freeLoc.EntryIndex] = slot.Header.Width
	slot.Header.Width += uint64(buf.Len())
	slot.Header.FreeIndex++

	if err := w.rewriteSlotHeader(*slot); err != nil {
		return err
	}

	w.freeLoc = locate(w.slots)

	return nil
}

func (w *Writer) appendEmptySlot() error {
	var offset uint64
	if n := len(w.slots); n > 0 {
		offset = w.slots[n-1].EndOffset()
	}

	hdr := NewSlotHeader(w.opts.SlotCapacity)

	if err := w.writeSlotHeaderAt(hdr, offset); err != nil {
		return err
	}

	w.slots = append(w.slots, AnchoredSlot{Header: hdr, Offset: offset})

	return nil
}

func (w *Writer) rewriteSlotHeader(slot AnchoredSlot) error {
	return w.writeSlotHeaderAt(slot.Header, slot.Offset)
}

func (w *Writer) writeSlotHeaderAt(hdr SlotHeader, offset uint64) error {
	encoded := hdr.Encode(make([]byte, 0, hdr.Size()))

	_, err := w.file.WriteAt(encoded, int64(offset))

	return err
}

// Sync flushes the file to stable storage.
func (w *Writer) Sync() error {
	return w.file.Sync()
}
