// generator.go - background process generator
//
// Grounded on audio_chip.go's periodic sample-generation goroutine: a
// ticker-gated loop that, every so many ticks, synthesizes new state
// and hands it off downstream (there, an audio sample; here, a whole
// process admitted to the scheduler).

package main

import (
	"fmt"
	"math/rand"
	"sync/atomic"
	"time"
)

// GeneratorConfig mirrors the batch-process-freq / min-ins / max-ins /
// mem bounds / delays-per-exec configuration keys.
type GeneratorConfig struct {
	BatchProcessFreq uint64
	MinIns, MaxIns   int
	MinMemPerProc    int
	MaxMemPerProc    int
	DelaysPerExec    uint32
}

// ProcessGenerator is the dedicated background task: at each tick
// divisible by BatchProcessFreq, it tries to synthesize and admit one
// new process.
type ProcessGenerator struct {
	cfg   GeneratorConfig
	sched *Scheduler
	mem   *MemoryManager
	clock *Clock
	pids  *pidAllocator

	running atomic.Bool
	stopCh  chan struct{}
	doneCh  chan struct{}

	rng *rand.Rand
}

// NewProcessGenerator builds a generator; it does not start until
// Start is called (backing "scheduler-start"/"scheduler-stop").
func NewProcessGenerator(cfg GeneratorConfig, sched *Scheduler, mem *MemoryManager, clock *Clock, pids *pidAllocator, seed int64) *ProcessGenerator {
	return &ProcessGenerator{cfg: cfg, sched: sched, mem: mem, clock: clock, pids: pids, rng: rand.New(rand.NewSource(seed))}
}

// Start begins the generation loop; it is idempotent-on-error — it is
// an error to call Start while already running.
func (g *ProcessGenerator) Start() error {
	if !g.running.CompareAndSwap(false, true) {
		return newErr(ErrAlreadyRunning, "scheduler-start", "")
	}
	g.stopCh = make(chan struct{})
	g.doneCh = make(chan struct{})
	go g.run()
	return nil
}

// Stop halts the generation loop.
func (g *ProcessGenerator) Stop() error {
	if !g.running.CompareAndSwap(true, false) {
		return newErr(ErrAlreadyStopped, "scheduler-stop", "")
	}
	close(g.stopCh)
	<-g.doneCh
	return nil
}

// IsRunning reports whether the generator is currently active.
func (g *ProcessGenerator) IsRunning() bool { return g.running.Load() }

func (g *ProcessGenerator) run() {
	defer close(g.doneCh)
	ticker := time.NewTicker(time.Millisecond)
	defer ticker.Stop()
	var lastTick uint64
	for {
		select {
		case <-g.stopCh:
			return
		case <-ticker.C:
		}
		now := g.clock.Now()
		if now == lastTick {
			continue
		}
		lastTick = now
		if g.cfg.BatchProcessFreq == 0 || now%g.cfg.BatchProcessFreq != 0 {
			continue
		}
		g.generateOne()
	}
}

// generateOne synthesizes and submits one process, or silently skips
// the cycle on admission failure.
func (g *ProcessGenerator) generateOne() {
	bytes := randPow2Range(g.rng, g.cfg.MinMemPerProc, g.cfg.MaxMemPerProc)
	if !g.mem.CanAllocateProcess(bytes) {
		return
	}
	id := g.pids.next()
	name := fmt.Sprintf("p%d", id)
	prog := g.randomProgram()

	g.mem.CreateProcessSpace(id, bytes)
	p := NewProcess(id, name, prog, g.mem, g.clock)
	g.sched.AddProcess(p)
}

// randomProgram samples roughly MinIns..MaxIns instructions, uniformly
// from {Print, Declare, Add, Sub, Sleep, For}, with For nesting capped
// at maxForDepth and a fixed repeat count of 5.
func (g *ProcessGenerator) randomProgram() []Instruction {
	target := g.cfg.MinIns
	if g.cfg.MaxIns > g.cfg.MinIns {
		target += g.rng.Intn(g.cfg.MaxIns - g.cfg.MinIns + 1)
	}
	return g.genBlock(target, 0)
}

const genForRepeats = 5

// genBlock builds a flat sequence of roughly n logical instructions at
// the given nesting depth, charging each For's body by its repeat
// count against the remaining budget.
func (g *ProcessGenerator) genBlock(n, depth int) []Instruction {
	var out []Instruction
	remaining := n
	for remaining > 0 {
		kind := g.rng.Intn(6) // Print, Declare, Add, Sub, Sleep, For
		if kind == 5 && depth >= maxForDepth {
			kind = g.rng.Intn(5)
		}
		switch kind {
		case 0:
			name := fmt.Sprintf("v%d", g.rng.Intn(8))
			out = append(out, Instruction{Kind: InstrPrint, Message: "Value from: " + name, HasPrintVar: true, PrintVar: nameOperand(name)})
			remaining--
		case 1:
			name := fmt.Sprintf("v%d", g.rng.Intn(8))
			out = append(out, Instruction{Kind: InstrDeclare, DeclareName: name, DeclareValue: uint16(g.rng.Intn(100))})
			remaining--
		case 2, 3:
			dest := fmt.Sprintf("v%d", g.rng.Intn(8))
			k := InstrAdd
			if kind == 3 {
				k = InstrSub
			}
			out = append(out, Instruction{Kind: k, Dest: dest, Op2: litOperand(uint16(g.rng.Intn(50))), Op3: litOperand(uint16(g.rng.Intn(50)))})
			remaining--
		case 4:
			out = append(out, Instruction{Kind: InstrSleep, SleepTicks: uint16(1 + g.rng.Intn(5))})
			remaining--
		case 5:
			bodyBudget := remaining
			if bodyBudget > 3 {
				bodyBudget = 1 + g.rng.Intn(3)
			}
			body := g.genBlock(bodyBudget, depth+1)
			out = append(out, Instruction{Kind: InstrFor, Body: body, Repeats: genForRepeats})
			remaining -= bodyBudget * genForRepeats
		}
	}
	return out
}

// randPow2Range draws a uniformly random power-of-two in [lo, hi],
// both already validated as powers of two in [64, 65536] by config.go.
func randPow2Range(rng *rand.Rand, lo, hi int) int {
	if lo >= hi {
		return lo
	}
	var choices []int
	for v := lo; v <= hi; v *= 2 {
		choices = append(choices, v)
	}
	return choices[rng.Intn(len(choices))]
}
