package main

import (
	"testing"
	"time"
)

func waitForFinished(t *testing.T, s *Scheduler, want int, timeout time.Duration) []*Process {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if f := s.Finished(); len(f) >= want {
			return f
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d finished processes, got %d", want, len(s.Finished()))
	return nil
}

func TestSchedulerFCFSRunsAllToCompletion(t *testing.T) {
	m := newTestMemoryManager(t, 4096, 16, 256)
	clock := NewClock()
	clock.Start()
	defer clock.Stop()

	s := NewScheduler(2, SchedFCFS, 0, 0, m, clock)
	s.Start()
	defer s.Stop()

	for i := 1; i <= 3; i++ {
		pid := ProcessID(i)
		m.CreateProcessSpace(pid, 64)
		prog := []Instruction{
			{Kind: InstrDeclare, DeclareName: "x", DeclareValue: uint16(i)},
			{Kind: InstrPrint, Message: "hi"},
		}
		p := NewProcess(pid, "p", prog, m, clock)
		s.AddProcess(p)
	}

	finished := waitForFinished(t, s, 3, 5*time.Second)
	if len(finished) != 3 {
		t.Fatalf("finished count: got %d, want 3", len(finished))
	}
	for _, p := range finished {
		if p.State() != StateFinished {
			t.Errorf("process %d state: got %v, want Finished", p.ID, p.State())
		}
		if !p.Finished() {
			t.Errorf("process %d: pc did not reach program end", p.ID)
		}
	}
}

func TestSchedulerRRPreemptsLongProcess(t *testing.T) {
	m := newTestMemoryManager(t, 4096, 16, 256)
	clock := NewClock()
	clock.Start()
	defer clock.Stop()

	// quantum=2: a 6-instruction program should require multiple
	// dispatch cycles, each capped at 2 ticks of execution.
	s := NewScheduler(1, SchedRR, 2, 0, m, clock)
	s.Start()
	defer s.Stop()

	pid := ProcessID(1)
	m.CreateProcessSpace(pid, 64)
	var prog []Instruction
	for i := 0; i < 6; i++ {
		prog = append(prog, Instruction{Kind: InstrPrint, Message: "tick"})
	}
	p := NewProcess(pid, "long", prog, m, clock)
	s.AddProcess(p)

	finished := waitForFinished(t, s, 1, 5*time.Second)
	if len(finished) != 1 {
		t.Fatalf("finished count: got %d, want 1", len(finished))
	}
	if len(finished[0].Log()) != 6 {
		t.Fatalf("print log length: got %d, want 6", len(finished[0].Log()))
	}
}

func TestSchedulerStatusReflectsCoreUsage(t *testing.T) {
	m := newTestMemoryManager(t, 4096, 16, 256)
	clock := NewClock()
	clock.Start()
	defer clock.Stop()

	s := NewScheduler(2, SchedFCFS, 0, 0, m, clock)
	s.Start()
	defer s.Stop()

	status := s.GetStatus()
	if status.NumCores != 2 {
		t.Fatalf("NumCores: got %d, want 2", status.NumCores)
	}
	if status.CoresUsed != 0 {
		t.Fatalf("CoresUsed with no work: got %d, want 0", status.CoresUsed)
	}
}
