// system.go - top-level orchestrator binding config, clock, memory,
// scheduler, generator, and sessions into the single entry point the
// shell drives. Grounded on aphelios.cpp's ApheliOS: a thin struct that
// owns every subsystem, a command dispatcher (process_command), and a
// current-session pointer switched by "screen -r"/"screen -S".

package main

import (
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
	"time"
)

// pidAllocator hands out ProcessIDs shared by the background generator
// and user-created ("screen -S") processes, so the two sources can
// never collide.
type pidAllocator struct {
	next_ atomic.Uint32
}

func newPidAllocator() *pidAllocator {
	a := &pidAllocator{}
	a.next_.Store(1)
	return a
}

func (a *pidAllocator) next() ProcessID {
	return ProcessID(a.next_.Add(1) - 1)
}

// System is the root object: one per running simulator. Exactly one
// goroutine (the shell's read loop) calls ProcessCommand at a time, so
// System itself needs no lock beyond what its subsystems already hold.
type System struct {
	cfg *Config

	clock *Clock
	backing *BackingStore
	mem *MemoryManager
	sched *Scheduler
	gen *ProcessGenerator
	pids *pidAllocator

	sessions *SessionManager
	current *Session

	initialized bool
	logPath string
}

// NewSystem builds an uninitialized System; Initialize must be called
// before any other command is accepted.
func NewSystem() *System {
	s := &System{
		pids: newPidAllocator(),
		sessions: newSessionManager(),
		logPath: "logs/csopesy-log.txt",
	}
	main := newSession("pts", nil)
	s.sessions.sessions["pts"] = main
	s.current = main
	return s
}

// Initialize loads configPath and wires up every subsystem. It is an
// error to call Initialize twice.
func (s *System) Initialize(configPath string) error {
	if s.initialized {
		return newErr(ErrAlreadyInitialized, "initialize", "")
	}
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return err
	}
	s.cfg = cfg

	s.clock = NewClock()
	s.clock.Start()

	maxSlots := cfg.MaxOverallMem / cfg.MemPerFrame
	if maxSlots < 1 {
		maxSlots = 1
	}
	backing, err := OpenBackingStore("csopesy-backing-store.dat", maxSlots*4, cfg.MemPerFrame)
	if err != nil {
		return err
	}
	s.backing = backing

	maxVirtPages := cfg.MaxMemPerProc / cfg.MemPerFrame
	if maxVirtPages < 1 {
		maxVirtPages = 1
	}
	s.mem = NewMemoryManager(cfg.MaxOverallMem, cfg.MemPerFrame, maxVirtPages, backing)

	s.sched = NewScheduler(cfg.NumCPU, cfg.Scheduler, cfg.QuantumCycles, cfg.DelaysPerExec, s.mem, s.clock)
	s.sched.Start()

	genCfg := GeneratorConfig{
		BatchProcessFreq: cfg.BatchProcessFreq,
		MinIns: cfg.MinIns,
		MaxIns: cfg.MaxIns,
		MinMemPerProc: cfg.MinMemPerProc,
		MaxMemPerProc: cfg.MaxMemPerProc,
		DelaysPerExec: cfg.DelaysPerExec,
	}
	s.gen = NewProcessGenerator(genCfg, s.sched, s.mem, s.clock, s.pids, time.Now().UnixNano())

	s.initialized = true
	return nil
}

// ProcessCommand parses and executes one line of shell input, returning
// the text to print. Grounded on ApheliOS::process_command's trim +
// lowercase-dispatch structure, minus the FTXUI-only branches (marquee,
// smi table rendering) this port leaves out entirely.
func (s *System) ProcessCommand(raw string) string {
	command := strings.TrimSpace(raw)
	if command == "" {
		return ""
	}
	lower := strings.ToLower(command)

	switch {
	case lower == "exit":
		if s.current.Name == "pts" {
			return "[exiting]"
		}
		s.switchSession("pts")
		return "[screen is terminating]"
	case lower == "clear":
		s.current.Clear()
		return ""
	case lower == "initialize":
		if err := s.Initialize("config.txt"); err != nil {
			return err.Error()
		}
		return "initialized"
	case strings.HasPrefix(lower, "screen"):
		return s.handleScreenCmd(command)
	case lower == "scheduler-start":
		return s.handleSchedulerStart()
	case lower == "scheduler-stop":
		return s.handleSchedulerStop()
	case lower == "report-util":
		return s.handleReportUtil()
	case lower == "smi":
		return s.handleSMI()
	case lower == "process-smi":
		return s.handleProcessSMI()
	default:
		return fmt.Sprintf("%s: command not found", command)
	}
}

// handleScreenCmd parses the "screen" sub-command family: -S (create),
// -r (resume/attach), -ls (list), and the supplemented -c (explicit
// instruction string), grounded on ApheliOS::handle_screen_cmd's
// split-filter-drop(1) argument pipeline.
func (s *System) handleScreenCmd(input string) string {
	fields := strings.Fields(input)
	if len(fields) < 2 {
		return "usage: screen -S|-r|-ls|-c <name> ..."
	}
	args := fields[1:]
	if !s.initialized {
		return newErr(ErrNotInitialized, "screen", "").Error()
	}

	switch args[0] {
	case "-S":
		if len(args) < 3 {
			return "usage: screen -S <name> <process-memory-size>"
		}
		return s.createScreen(args[1], args[2])
	case "-r":
		if len(args) < 2 {
			return "usage: screen -r <name>"
		}
		return s.resumeScreen(args[1])
	case "-ls":
		return s.sched.GetStatusString()
	case "-c":
		if len(args) < 4 {
			return "usage: screen -c <name> <process-memory-size> \"<instructions>\""
		}
		rest := strings.Join(args[3:], " ")
		rest = strings.TrimSpace(rest)
		if len(rest) >= 2 && rest[0] == '"' && rest[len(rest)-1] == '"' {
			rest = rest[1 : len(rest)-1]
		}
		return s.createScreenWithProgram(args[1], args[2], rest)
	default:
		return fmt.Sprintf("screen: unrecognized option %q", args[0])
	}
}

func (s *System) createScreen(name, memArg string) string {
	if _, ok := s.sessions.get(name); ok {
		return fmt.Sprintf("screen: session %q already exists", name)
	}
	bytes, err := strconv.Atoi(memArg)
	if err != nil {
		return newErr(ErrAdmissionInvalidMemorySize, "screen -S", memArg).Error()
	}
	if !isPowerOfTwo(bytes) || bytes < 64 || bytes > 65536 {
		return newErr(ErrAdmissionInvalidMemorySize, "screen -S", memArg).Error()
	}
	if !s.mem.CanAllocateProcess(bytes) {
		return newErr(ErrAdmissionInsufficientMemory, "screen -S", name).Error()
	}

	id := s.pids.next()
	s.mem.CreateProcessSpace(id, bytes)
	p := NewProcess(id, name, nil, s.mem, s.clock)
	s.sched.AddProcess(p)

	sess := s.sessions.create(name, p)
	s.current = sess
	sess.Printf("Process name: %s\n", name)
	sess.Printf("Current time: %s\n", sess.CreatedAt.Format("01/02/2006, 03:04:05 PM"))
	return sess.Output()
}

// createScreenWithProgram implements the "screen -c" variant: the user
// supplies the program text directly instead of letting the generator
// synthesize one.
func (s *System) createScreenWithProgram(name, memArg, programText string) string {
	if _, ok := s.sessions.get(name); ok {
		return fmt.Sprintf("screen: session %q already exists", name)
	}
	bytes, err := strconv.Atoi(memArg)
	if err != nil || !isPowerOfTwo(bytes) || bytes < 64 || bytes > 65536 {
		return newErr(ErrAdmissionInvalidMemorySize, "screen -c", memArg).Error()
	}
	if !s.mem.CanAllocateProcess(bytes) {
		return newErr(ErrAdmissionInsufficientMemory, "screen -c", name).Error()
	}
	prog, perr := parseProgramString(programText)
	if perr != nil {
		return perr.Error()
	}

	id := s.pids.next()
	s.mem.CreateProcessSpace(id, bytes)
	p := NewProcess(id, name, prog, s.mem, s.clock)
	s.sched.AddProcess(p)

	sess := s.sessions.create(name, p)
	s.current = sess
	sess.Printf("Process name: %s\n", name)
	sess.Printf("Current time: %s\n", sess.CreatedAt.Format("01/02/2006, 03:04:05 PM"))
	return sess.Output()
}

func (s *System) resumeScreen(name string) string {
	sess, ok := s.sessions.get(name)
	if !ok {
		return fmt.Sprintf("screen: no session named %q", name)
	}
	s.switchSession(name)
	if sess.Output() == "" {
		sess.Printf("Process name: %s\n", sess.Process.Name)
		sess.Printf("Current time: %s\n", sess.CreatedAt.Format("01/02/2006, 03:04:05 PM"))
	}
	return sess.Output()
}

func (s *System) switchSession(name string) {
	if sess, ok := s.sessions.get(name); ok {
		s.current = sess
	}
}

func (s *System) handleSchedulerStart() string {
	if !s.initialized {
		return newErr(ErrNotInitialized, "scheduler-start", "").Error()
	}
	if err := s.gen.Start(); err != nil {
		return err.Error()
	}
	return "scheduler started"
}

func (s *System) handleSchedulerStop() string {
	if !s.initialized {
		return newErr(ErrNotInitialized, "scheduler-stop", "").Error()
	}
	if err := s.gen.Stop(); err != nil {
		return err.Error()
	}
	return "scheduler stopped"
}

func (s *System) handleReportUtil() string {
	if !s.initialized {
		return newErr(ErrNotInitialized, "report-util", "").Error()
	}
	report := s.sched.GetStatusString()
	if err := writeFile(s.logPath, report); err != nil {
		return err.Error()
	}
	return fmt.Sprintf("Utilization report saved to %s", s.logPath)
}

// handleSMI renders the same fields the fake-nvidia-smi table in the
// original shell shows, as plain text: the FTXUI grid rendering is out
// of scope here, not the underlying utilization numbers.
func (s *System) handleSMI() string {
	if !s.initialized {
		return newErr(ErrNotInitialized, "smi", "").Error()
	}
	st := s.sched.GetStatus()
	mem := s.mem.Snapshot()
	return fmt.Sprintf("cores: %d/%d in use (%.1f%%)\nframes: %d free, %d page faults, %d swap-ins, %d swap-outs\n",
		st.CoresUsed, st.NumCores, st.Utilization, mem.FreeFrames, mem.Faults, mem.SwapsIn, mem.SwapsOut)
}

// handleProcessSMI reports the attached process's status and, per the
// original process-smi command, saves the same text to
// logs/process_smi_<name>.txt.
func (s *System) handleProcessSMI() string {
	if s.current.Process == nil {
		return "no active process in this screen"
	}
	p := s.current.Process
	out := fmt.Sprintf("%s\nLogs:\n%s\n", p.Summary(), strings.Join(p.Log(), "\n"))
	path := fmt.Sprintf("logs/process_smi_%s.txt", p.Name)
	if err := writeFile(path, out); err != nil {
		return out + err.Error()
	}
	return out
}
