// process.go - process identity, program counter, and the execute()
// quantum-slicing contract. Grounded on
// cpu_m68k_runner.go's StartExecution/execDone pattern: a small
// execution-state struct guarded by its own mutex, plus atomics for the
// fields a status reporter reads without taking any lock.

package main

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// ProcessID is a 16-bit, monotonically issued, never-reused identifier.
type ProcessID uint16

// ProcessState is one of the four lifecycle states a process moves through.
type ProcessState int32

const (
	StateReady ProcessState = iota
	StateRunning
	StateWaiting
	StateFinished
)

func (s ProcessState) String() string {
	switch s {
	case StateReady:
		return "Ready"
	case StateRunning:
		return "Running"
	case StateWaiting:
		return "Waiting"
	case StateFinished:
		return "Finished"
	default:
		return "Unknown"
	}
}

// noCore is the sentinel assignedCore value meaning "not on any core".
const noCore = -1

// execOutcome is what execute() observed when it returned control to
// the worker, so the worker's classification step doesn't have to
// re-derive it from raw state.
type execOutcome int

const (
	outcomeFinished execOutcome = iota
	outcomeWaiting
	outcomePreempted
)

// Process holds one simulated process: its program, program counter,
// symbol table, and a non-owning handle to the MemoryManager it
// executes against.
type Process struct {
	ID ProcessID
	Name string

	Program []Instruction // flat, already For-unrolled
	Symtab map[string]uint16

	pc atomic.Uint32
	state atomic.Int32
	assignedCore atomic.Int32
	sleepUntilTick atomic.Uint64
	ticksExecuted uint64 // only touched by the one worker holding this process

	logMu sync.Mutex
	log []string

	startTime time.Time
	endTime time.Time
	started bool

	mem *MemoryManager
	clock *Clock

	// bytecode execution mode, set by EnableBytecode
	bytecode bool
	codeBase uint32
	strTable *stringTable
	instrCount int
}

// NewProcess creates a process bound to mem/clock with prog as its
// (not yet unrolled) program.
func NewProcess(id ProcessID, name string, prog []Instruction, mem *MemoryManager, clock *Clock) *Process {
	p := &Process{
		ID: id,
		Name: name,
		Program: expandFor(prog),
		Symtab: make(map[string]uint16),
		mem: mem,
		clock: clock,
	}
	p.assignedCore.Store(noCore)
	p.state.Store(int32(StateReady))
	return p
}

// State returns the current lifecycle state. Lock-free, so a status
// reporter never contends with the worker that owns this process.
func (p *Process) State() ProcessState { return ProcessState(p.state.Load()) }

func (p *Process) setState(s ProcessState) { p.state.Store(int32(s)) }

// AssignedCore returns the core id the process is running on, or -1.
func (p *Process) AssignedCore() int { return int(p.assignedCore.Load()) }

// PC returns the current program-counter index.
func (p *Process) PC() uint32 { return p.pc.Load() }

// SleepUntil returns the tick at which a Waiting process should wake.
func (p *Process) SleepUntil() uint64 { return p.sleepUntilTick.Load() }

func (p *Process) sleepUntil(delta uint64) {
	p.sleepUntilTick.Store(p.clock.Now() + delta)
	p.setState(StateWaiting)
}

// Log returns a snapshot of the print log under its own lock.
func (p *Process) Log() []string {
	p.logMu.Lock()
	defer p.logMu.Unlock()
	out := make([]string, len(p.log))
	copy(out, p.log)
	return out
}

func (p *Process) appendLog(line string) {
	p.logMu.Lock()
	p.log = append(p.log, line)
	p.logMu.Unlock()
}

func (p *Process) logError(msg string) {
	p.appendLog("error: " + msg)
}

// Finished reports whether the program counter has reached the end of
// the (unrolled) program.
func (p *Process) Finished() bool {
	return int(p.pc.Load()) >= len(p.Program)
}

// Execute advances the process by at most quantum ticks (0 = run to
// completion or to the next Waiting transition), charging delay+1
// ticks per instruction issued. It returns the outcome the calling
// worker should classify the process into.
func (p *Process) Execute(coreID int, quantum uint32, delay uint32) execOutcome {
	if !p.started {
		p.startTime = time.Now()
		p.started = true
	}
	p.assignedCore.Store(int32(coreID))
	p.ticksExecuted = 0
	runIndefinitely := quantum == 0

	var lastTick uint64
	if p.clock != nil {
		lastTick = p.clock.Now()
	}

	for {
		if p.State() == StateWaiting {
			return outcomeWaiting
		}
		if p.Finished() {
			p.endTime = time.Now()
			p.setState(StateFinished)
			return outcomeFinished
		}

		// Busy-wait for a tick edge. Acceptable for a simulator; a
		// condition variable signaled by the clock would avoid the
		// spin but is not required for correctness here.
		for p.clock != nil {
			now := p.clock.Now()
			if now > lastTick {
				lastTick = now
				break
			}
			time.Sleep(time.Millisecond)
		}

		p.ticksExecuted++
		if p.ticksExecuted%uint64(delay+1) == 0 {
			ins := &p.Program[p.pc.Load()]
			if p.bytecode {
				ins = p.fetchInstruction(p.pc.Load())
			}
			execute(p, ins)
			if p.clock != nil {
				p.clock.MarkActive()
			}
			p.pc.Add(1)
		}

		if p.Finished() {
			p.endTime = time.Now()
			p.setState(StateFinished)
			return outcomeFinished
		}
		if p.State() == StateWaiting {
			return outcomeWaiting
		}
		if !runIndefinitely && p.ticksExecuted >= uint64(quantum) {
			return outcomePreempted
		}
	}
}

// Summary is the per-process text used by process-smi and screen -ls.
func (p *Process) Summary() string {
	return fmt.Sprintf("%s (pid %d): %d/%d instructions, state=%s, core=%d",
		p.Name, p.ID, p.pc.Load(), len(p.Program), p.State(), p.AssignedCore())
}
