package storage

// FreeSlotLocator tracks where the next Insert should land: the index of
// the current tail slot and the next free entry within it, or
// (len(slots), 0) once the tail slot is full (or no slot exists yet),
// meaning a new slot must be appended.
type FreeSlotLocator struct {
	SlotIndex  int
	EntryIndex int
}

// locate derives a FreeSlotLocator from a freshly scanned slot list.
func locate(slots []AnchoredSlot) FreeSlotLocator {
	if len(slots) == 0 {
		return FreeSlotLocator{SlotIndex: 0, EntryIndex: 0}
	}

	last := slots[len(slots)-1]
	if last.Header.IsFull() {
		return FreeSlotLocator{SlotIndex: len(slots), EntryIndex: 0}
	}

	return FreeSlotLocator{SlotIndex: len(slots) - 1, EntryIndex: last.Header.Count()}
}

// NeedsNewSlot reports whether the locator points past the end of the
// known slots, meaning the next Insert must append a new, empty slot.
func (l FreeSlotLocator) NeedsNewSlot(slotCount int) bool {
	return l.SlotIndex >= slotCount
}
