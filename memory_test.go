package main

import (
	"path/filepath"
	"testing"
)

func newTestMemoryManager(t *testing.T, totalMem, pageSize, maxVirtPages int) *MemoryManager {
	t.Helper()
	path := filepath.Join(t.TempDir(), "swap.dat")
	bs, err := OpenBackingStore(path, 8, pageSize)
	if err != nil {
		t.Fatalf("OpenBackingStore: %v", err)
	}
	t.Cleanup(func() { bs.Close() })
	return NewMemoryManager(totalMem, pageSize, maxVirtPages, bs)
}

func TestMemoryByteWordRoundTrip(t *testing.T) {
	m := newTestMemoryManager(t, 64, 16, 8)
	pid := ProcessID(1)
	m.CreateProcessSpace(pid, 32)

	if !m.WriteByte(pid, 0, 0xAB) {
		t.Fatalf("WriteByte: want ok")
	}
	got, ok := m.ReadByte(pid, 0)
	if !ok || got != 0xAB {
		t.Fatalf("ReadByte: got (%d, %v), want (0xAB, true)", got, ok)
	}

	if !m.WriteWord(pid, 4, 0x1234) {
		t.Fatalf("WriteWord: want ok")
	}
	word, ok := m.ReadWord(pid, 4)
	if !ok || word != 0x1234 {
		t.Fatalf("ReadWord: got (%#x, %v), want (0x1234, true)", word, ok)
	}

	if m.Snapshot().Faults == 0 {
		t.Fatalf("expected at least one page fault from first touch")
	}
}

func TestMemoryUnknownPidFails(t *testing.T) {
	m := newTestMemoryManager(t, 64, 16, 8)
	if _, ok := m.ReadByte(ProcessID(99), 0); ok {
		t.Fatalf("ReadByte on unknown pid: want false")
	}
}

func TestMemorySegfaultBeyondMaxPages(t *testing.T) {
	m := newTestMemoryManager(t, 64, 16, 8)
	pid := ProcessID(1)
	m.CreateProcessSpace(pid, 16) // 1 page cap
	if m.WriteByte(pid, 16, 1) {
		t.Fatalf("WriteByte at page 1 beyond cap: want false")
	}
	if m.Snapshot().Segfaults == 0 {
		t.Fatalf("expected a recorded segfault")
	}
}

func TestMemoryFIFOEvictionSwapsOut(t *testing.T) {
	// 4 physical frames; one process spans 6 pages, forcing eviction.
	m := newTestMemoryManager(t, 64, 16, 8)
	pid := ProcessID(1)
	m.CreateProcessSpace(pid, 96)

	for page := 0; page < 6; page++ {
		vaddr := uint32(page * 16)
		if !m.WriteByte(pid, vaddr, byte(page+1)) {
			t.Fatalf("WriteByte page %d: want ok", page)
		}
	}

	st := m.Snapshot()
	if st.Faults != 6 {
		t.Fatalf("Faults: got %d, want 6", st.Faults)
	}
	if st.SwapsOut == 0 {
		t.Fatalf("expected at least one eviction to write back a dirty page")
	}

	// Re-touching an evicted early page should swap it back in.
	if _, ok := m.ReadByte(pid, 0); !ok {
		t.Fatalf("ReadByte page 0 after eviction: want ok")
	}
	if m.Snapshot().SwapsIn == 0 {
		t.Fatalf("expected a swap-in when re-touching an evicted page")
	}
}

func TestMemoryGetVarAddressCap(t *testing.T) {
	m := newTestMemoryManager(t, 4096, 16, 256)
	pid := ProcessID(1)
	m.CreateProcessSpace(pid, 4096)
	symtab := make(map[string]uint16)

	for i := 0; i < symbolTableCap; i++ {
		name := string(rune('a' + i))
		if _, ok := m.GetVarAddress(pid, symtab, name); !ok {
			t.Fatalf("GetVarAddress %d: want ok before cap", i)
		}
	}
	if _, ok := m.GetVarAddress(pid, symtab, "overflow"); ok {
		t.Fatalf("GetVarAddress beyond cap: want false")
	}

	// A name already allocated keeps returning its address past the cap.
	first, ok := m.GetVarAddress(pid, symtab, "a")
	if !ok || first != 0 {
		t.Fatalf("GetVarAddress re-resolve: got (%d, %v), want (0, true)", first, ok)
	}
}

func TestMemoryDestroyProcessSpaceFreesFrames(t *testing.T) {
	m := newTestMemoryManager(t, 64, 16, 8)
	pid := ProcessID(1)
	m.CreateProcessSpace(pid, 64)
	for page := 0; page < 4; page++ {
		m.WriteByte(pid, uint32(page*16), 1)
	}
	if free := m.Snapshot(); free.Faults != 4 {
		t.Fatalf("Faults: got %d, want 4", free.Faults)
	}

	m.DestroyProcessSpace(pid)
	if m.Snapshot().FreeFrames != 4 {
		t.Fatalf("FreeFrames after destroy: got %d, want 4", m.Snapshot().FreeFrames)
	}
}
