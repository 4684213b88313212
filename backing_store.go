// backing_store.go - disk-backed swap store

package main

import (
	"fmt"
	"os"
	"sync"
)

// BackingStore is a fixed-size slot array laid over a single file, the
// disk-resident analogue of the physical frame array. Slot i occupies
// bytes [i*pageSize, (i+1)*pageSize). All operations serialize on mu,
// the same single-lock-per-subsystem idiom CoprocessorManager uses in
// coprocessor_manager.go.
type BackingStore struct {
	mu sync.Mutex
	file *os.File
	pageSize int
	maxSlots int
	free []bool // free[i] == true means slot i is available
}

// OpenBackingStore creates (or truncates) the swap file at path and
// pre-sizes it to maxSlots*pageSize, matching "pre-sized at
// construction" contract. An advisory exclusive lock is taken on unix
// platforms so two simulator instances never share one swap file.
func OpenBackingStore(path string, maxSlots, pageSize int) (*BackingStore, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("backing store: open %s: %w", path, err)
	}
	if err := lockBackingFile(f); err != nil {
		f.Close()
		return nil, fmt.Errorf("backing store: lock %s: %w", path, err)
	}
	size := int64(maxSlots) * int64(pageSize)
	if err := f.Truncate(size); err != nil {
		f.Close()
		return nil, fmt.Errorf("backing store: truncate %s: %w", path, err)
	}
	free := make([]bool, maxSlots)
	for i := range free {
		free[i] = true
	}
	return &BackingStore{file: f, pageSize: pageSize, maxSlots: maxSlots, free: free}, nil
}

// Close releases the backing file.
func (b *BackingStore) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.file.Close()
}

// AllocateSlot returns a free slot index, or ok=false if the store is
// full (BackingStoreExhausted at the call site).
func (b *BackingStore) AllocateSlot() (slot uint32, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, isFree := range b.free {
		if isFree {
			b.free[i] = false
			return uint32(i), true
		}
	}
	return 0, false
}

// FreeSlot returns a slot to the pool. Safe to call on an already-free slot.
func (b *BackingStore) FreeSlot(slot uint32) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if int(slot) < len(b.free) {
		b.free[slot] = true
	}
}

// WritePage writes exactly pageSize bytes of page content to slot.
func (b *BackingStore) WritePage(slot uint32, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if int(slot) >= b.maxSlots {
		return fmt.Errorf("backing store: slot %d out of range", slot)
	}
	if len(data) != b.pageSize {
		return fmt.Errorf("backing store: write page: want %d bytes, got %d", b.pageSize, len(data))
	}
	off := int64(slot) * int64(b.pageSize)
	if _, err := b.file.WriteAt(data, off); err != nil {
		return fmt.Errorf("backing store: write slot %d: %w", slot, err)
	}
	return nil
}

// ReadPage reads pageSize bytes from slot into buf. buf must be at least
// pageSize long.
func (b *BackingStore) ReadPage(slot uint32, buf []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if int(slot) >= b.maxSlots {
		return fmt.Errorf("backing store: slot %d out of range", slot)
	}
	if len(buf) < b.pageSize {
		return fmt.Errorf("backing store: read page: buffer too small")
	}
	off := int64(slot) * int64(b.pageSize)
	if _, err := b.file.ReadAt(buf[:b.pageSize], off); err != nil {
		return fmt.Errorf("backing store: read slot %d: %w", slot, err)
	}
	return nil
}

// PageSize reports the configured page size in bytes.
func (b *BackingStore) PageSize() int {
	return b.pageSize
}
