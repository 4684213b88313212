// pagetable.go - page table entries, physical frames, process address spaces

package main

// PTEFlags bundles the per-entry flag bits: present, dirty, referenced,
// and valid.
type PTEFlags struct {
	Present bool
	Dirty bool
	Referenced bool
	Valid bool
}

// PageTableEntry maps one virtual page to a physical frame, when present.
type PageTableEntry struct {
	FrameNumber uint32
	Flags PTEFlags
}

// Frame describes one physical frame slot in the global frame array.
type Frame struct {
	OwnerPID ProcessID
	PageNumber uint32
	AllocOrder uint64
	IsFree bool
	HasOwner bool // false until a page is mapped into this frame, and again once the frame is freed
}

// ProcessMemorySpace is one process's virtual address space: a growable
// page table, a map from evicted-dirty pages to their backing slot, and
// simple bookkeeping the memory manager consults on every fault.
type ProcessMemorySpace struct {
	PID ProcessID
	PageTable []PageTableEntry
	PageToSlot map[uint32]uint32
	AllocatedPages int
	MaxPages int
	NextSymbolAddr uint16 // next free virtual address, stride 2
	SymbolTableCount int
}

func newProcessMemorySpace(pid ProcessID, maxPages int) *ProcessMemorySpace {
	return &ProcessMemorySpace{
		PID: pid,
		PageTable: make([]PageTableEntry, 0, maxPages),
		PageToSlot: make(map[uint32]uint32),
		MaxPages: maxPages,
	}
}

// ensurePage grows the page table so index page is addressable, leaving
// new entries zero-valued (not Present).
func (s *ProcessMemorySpace) ensurePage(page uint32) {
	for uint32(len(s.PageTable)) <= page {
		s.PageTable = append(s.PageTable, PageTableEntry{})
	}
}
