package storage

import (
	"time"

	"github.com/brecio/brec/packet"
)

// Options configures a Writer or Reader.
type Options struct {
	// SlotCapacity is the number of packets per slot. Defaults to
	// DefaultSlotCapacity.
	SlotCapacity int

	// MaxPacketSize bounds a single packet's size; 0 disables the check.
	// Writer.Insert rejects a larger packet with ErrPacketTooLarge; Reader
	// does not check it. See the packet package's DefaultMaxPacketSize doc
	// for why this exists.
	MaxPacketSize uint64

	// LockTimeout is how long OpenWriter waits for the advisory lock
	// before failing with ErrTimeoutToWaitLockedFile. Zero means fail
	// immediately on contention (ErrFileIsLocked).
	LockTimeout time.Duration

	// LockInterval is the polling interval used while waiting for the
	// lock. Defaults to 10ms.
	LockInterval time.Duration
}

// DefaultOptions returns the default Options.
func DefaultOptions() Options {
	return Options{
		SlotCapacity:  DefaultSlotCapacity,
		MaxPacketSize: packet.DefaultMaxPacketSize,
		LockInterval:  10 * time.Millisecond,
	}
}

func (o Options) withDefaults() Options {
	if o.SlotCapacity <= 0 {
		o.SlotCapacity = DefaultSlotCapacity
	}

	if o.LockInterval <= 0 {
		o.LockInterval = 10 * time.Millisecond
	}

	return o
}
