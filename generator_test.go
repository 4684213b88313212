package main

import (
	"math/rand"
	"testing"
)

func TestRandPow2Range(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 100; i++ {
		v := randPow2Range(rng, 64, 1024)
		if v < 64 || v > 1024 || !isPowerOfTwo(v) {
			t.Fatalf("randPow2Range: got %d, want a power of two in [64, 1024]", v)
		}
	}
	if v := randPow2Range(rng, 64, 64); v != 64 {
		t.Fatalf("randPow2Range degenerate range: got %d, want 64", v)
	}
}

func TestGenBlockRespectsForDepthCap(t *testing.T) {
	g := &ProcessGenerator{rng: rand.New(rand.NewSource(2))}
	var maxDepthSeen int
	var walk func(prog []Instruction, depth int)
	walk = func(prog []Instruction, depth int) {
		if depth > maxDepthSeen {
			maxDepthSeen = depth
		}
		for _, ins := range prog {
			if ins.Kind == InstrFor {
				walk(ins.Body, depth+1)
			}
		}
	}
	for i := 0; i < 20; i++ {
		prog := g.genBlock(30, 0)
		walk(prog, 0)
	}
	if maxDepthSeen > maxForDepth {
		t.Fatalf("genBlock: observed For nesting depth %d, want <= %d", maxDepthSeen, maxForDepth)
	}
}

func TestGeneratorSkipsOnInsufficientMemory(t *testing.T) {
	m := newTestMemoryManager(t, 64, 16, 4) // max 4 virtual pages per process
	clock := NewClock()
	sched := NewScheduler(1, SchedFCFS, 0, 0, m, clock)
	pids := newPidAllocator()
	cfg := GeneratorConfig{BatchProcessFreq: 1, MinIns: 1, MaxIns: 1, MinMemPerProc: 1 << 20, MaxMemPerProc: 1 << 20}
	g := NewProcessGenerator(cfg, sched, m, clock, pids, 42)

	g.generateOne() // should skip silently: 1<<20 bytes can't fit in 4 pages
	if len(sched.ready) != 0 {
		t.Fatalf("generateOne admitted a process despite insufficient memory")
	}
}
