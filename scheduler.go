// scheduler.go - multi-core FCFS/Round-Robin scheduler
//
// Grounded on coprocessor_manager.go: a manager owning worker lifecycle
// (start/stop with a done channel per worker), and the ticket/queue
// locking discipline of "one named lock per queue, never held across a
// wait". One global ready queue is used rather than per-core queues.

package main

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// SchedType selects the scheduling discipline. FCFS is modeled as RR
// with quantum=0.
type SchedType int

const (
	SchedFCFS SchedType = iota
	SchedRR
)

func (t SchedType) String() string {
	if t == SchedFCFS {
		return "fcfs"
	}
	return "rr"
}

// Scheduler owns the ready/waiting/finished queues, one worker goroutine
// per configured core, and the admission sweep goroutine that wakes
// sleepers.
type Scheduler struct {
	numCores  int
	schedType SchedType
	quantum   uint32
	delay     uint32

	mem   *MemoryManager
	clock *Clock

	readyMu    sync.Mutex
	readyCond  *sync.Cond
	ready      []*Process
	waitingMu  sync.Mutex
	waiting    []*Process
	runningMu  sync.Mutex
	runningSet []*Process
	finishedMu sync.Mutex
	finished   []*Process

	running atomic.Bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// NewScheduler builds a scheduler for numCores cores of the given type.
// quantum is ignored (treated as 0/unbounded) when schedType is FCFS.
func NewScheduler(numCores int, schedType SchedType, quantum, delay uint32, mem *MemoryManager, clock *Clock) *Scheduler {
	s := &Scheduler{
		numCores:  numCores,
		schedType: schedType,
		quantum:   quantum,
		delay:     delay,
		mem:       mem,
		clock:     clock,
	}
	s.readyCond = sync.NewCond(&s.readyMu)
	return s
}

// effectiveQuantum returns the quantum workers should pass to
// Process.Execute: unbounded for FCFS, the configured quantum for RR.
func (s *Scheduler) effectiveQuantum() uint32 {
	if s.schedType == SchedFCFS {
		return 0
	}
	return s.quantum
}

// Start launches the per-core worker goroutines and the admission
// sweep goroutine.
func (s *Scheduler) Start() {
	if !s.running.CompareAndSwap(false, true) {
		return
	}
	s.stopCh = make(chan struct{})
	s.wg.Add(s.numCores + 1)
	for core := 0; core < s.numCores; core++ {
		go s.workerLoop(core)
	}
	go s.admissionLoop()
}

// Stop signals every goroutine to exit at its next blocking point and
// waits for them to join.
func (s *Scheduler) Stop() {
	if !s.running.CompareAndSwap(true, false) {
		return
	}
	close(s.stopCh)
	s.readyMu.Lock()
	s.readyCond.Broadcast()
	s.readyMu.Unlock()
	s.wg.Wait()
}

// IsRunning reports whether the scheduler's goroutines are active.
func (s *Scheduler) IsRunning() bool { return s.running.Load() }

// AddProcess unrolls For-instructions (already done in NewProcess),
// marks p Ready, and pushes it to the tail of the ready queue.
func (s *Scheduler) AddProcess(p *Process) {
	p.setState(StateReady)
	s.readyMu.Lock()
	s.ready = append(s.ready, p)
	s.readyCond.Signal()
	s.readyMu.Unlock()
}

func (s *Scheduler) popReady() *Process {
	s.readyMu.Lock()
	defer s.readyMu.Unlock()
	if !s.running.Load() {
		return nil
	}
	for len(s.ready) == 0 {
		if !s.running.Load() {
			return nil
		}
		s.readyCond.Wait()
		if !s.running.Load() {
			return nil
		}
	}
	p := s.ready[0]
	s.ready = s.ready[1:]
	return p
}

func (s *Scheduler) pushReady(p *Process) {
	s.readyMu.Lock()
	s.ready = append(s.ready, p)
	s.readyCond.Signal()
	s.readyMu.Unlock()
}

func (s *Scheduler) pushWaiting(p *Process) {
	s.waitingMu.Lock()
	s.waiting = append(s.waiting, p)
	s.waitingMu.Unlock()
}

func (s *Scheduler) pushFinished(p *Process) {
	s.finishedMu.Lock()
	s.finished = append(s.finished, p)
	s.finishedMu.Unlock()
}

// workerLoop is the per-core execution loop.
func (s *Scheduler) workerLoop(coreID int) {
	defer s.wg.Done()
	for {
		p := s.popReady()
		if p == nil {
			return // shutdown
		}
		p.setState(StateRunning)
		s.addRunning(p)
		outcome := p.Execute(coreID, s.effectiveQuantum(), s.delay)
		p.assignedCore.Store(int32(noCore))
		s.removeRunning(p)

		switch outcome {
		case outcomeFinished:
			p.setState(StateFinished)
			s.pushFinished(p)
		case outcomeWaiting:
			s.pushWaiting(p)
		case outcomePreempted:
			p.setState(StateReady)
			s.pushReady(p)
		}
	}
}

// admissionLoop periodically moves woken sleepers from waiting to ready.
func (s *Scheduler) admissionLoop() {
	defer s.wg.Done()
	ticker := time.NewTicker(2 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.sweepWaiting()
		}
	}
}

func (s *Scheduler) sweepWaiting() {
	now := s.clock.Now()
	s.waitingMu.Lock()
	var stillWaiting []*Process
	var woken []*Process
	for _, p := range s.waiting {
		if now >= p.SleepUntil() {
			woken = append(woken, p)
		} else {
			stillWaiting = append(stillWaiting, p)
		}
	}
	s.waiting = stillWaiting
	s.waitingMu.Unlock()

	for _, p := range woken {
		p.setState(StateReady)
		s.pushReady(p)
	}
}

func (s *Scheduler) addRunning(p *Process) {
	s.runningMu.Lock()
	s.runningSet = append(s.runningSet, p)
	s.runningMu.Unlock()
}

func (s *Scheduler) removeRunning(p *Process) {
	s.runningMu.Lock()
	for i, q := range s.runningSet {
		if q == p {
			s.runningSet = append(s.runningSet[:i], s.runningSet[i+1:]...)
			break
		}
	}
	s.runningMu.Unlock()
}

// Finished returns a snapshot of the finished list.
func (s *Scheduler) Finished() []*Process {
	s.finishedMu.Lock()
	defer s.finishedMu.Unlock()
	out := make([]*Process, len(s.finished))
	copy(out, s.finished)
	return out
}

// Running returns every process currently assigned to a core: exactly
// one worker holds each, with its assigned core set.
func (s *Scheduler) Running() []*Process {
	s.runningMu.Lock()
	defer s.runningMu.Unlock()
	out := make([]*Process, len(s.runningSet))
	copy(out, s.runningSet)
	return out
}

// Status is an atomic snapshot of scheduler utilization.
type Status struct {
	CoresUsed      int
	CoresAvailable int
	NumCores       int
	Utilization    float64
	Running        []*Process
	Finished       []*Process
}

// GetStatus takes the utilization snapshot used by "smi" and "screen -ls".
func (s *Scheduler) GetStatus() Status {
	running := s.Running()
	coresUsed := 0
	for _, p := range running {
		if p.AssignedCore() >= 0 {
			coresUsed++
		}
	}
	return Status{
		CoresUsed:      coresUsed,
		CoresAvailable: s.numCores - coresUsed,
		NumCores:       s.numCores,
		Utilization:    float64(coresUsed) / float64(s.numCores) * 100,
		Running:        running,
		Finished:       s.Finished(),
	}
}

// GetStatusString renders Status as the human-readable utilization
// report, built with plain fmt formatting rather than a templating
// library, matching this codebase's console/report output elsewhere.
func (s *Scheduler) GetStatusString() string {
	st := s.GetStatus()
	var b []byte
	b = append(b, fmt.Sprintf("CPU utilization: %.2f%%\n", st.Utilization)...)
	b = append(b, fmt.Sprintf("Cores used: %d\n", st.CoresUsed)...)
	b = append(b, fmt.Sprintf("Cores available: %d\n", st.CoresAvailable)...)
	b = append(b, "\nRunning processes:\n"...)
	for _, p := range st.Running {
		b = append(b, fmt.Sprintf("%s\n", p.Summary())...)
	}
	b = append(b, "\nFinished processes:\n"...)
	for _, p := range st.Finished {
		b = append(b, fmt.Sprintf("%s\n", p.Summary())...)
	}
	return string(b)
}
