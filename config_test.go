package main

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTempConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.txt")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}

const validConfigBody = `
# a comment
num-cpu 4
scheduler rr
quantum-cycles 5
batch-process-freq 1
min-ins 1
max-ins 10
delays-per-exec 0
max-overall-mem 16384
mem-per-frame 16
min-mem-per-proc 64
max-mem-per-proc 1024
`

func TestLoadConfigValid(t *testing.T) {
	path := writeTempConfig(t, validConfigBody)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.NumCPU != 4 || cfg.Scheduler != SchedRR || cfg.QuantumCycles != 5 {
		t.Fatalf("LoadConfig: got %+v", cfg)
	}
	if cfg.MaxOverallMem != 16384 || cfg.MemPerFrame != 16 {
		t.Fatalf("LoadConfig memory fields: got %+v", cfg)
	}
}

func TestLoadConfigFileNotFound(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.txt"))
	serr, ok := err.(*SimError)
	if !ok || serr.Kind != ErrConfigFileNotFound {
		t.Fatalf("LoadConfig missing file: got %v, want ErrConfigFileNotFound", err)
	}
}

func TestLoadConfigMissingParameter(t *testing.T) {
	path := writeTempConfig(t, "num-cpu 4\n")
	_, err := LoadConfig(path)
	serr, ok := err.(*SimError)
	if !ok || serr.Kind != ErrConfigMissingParameter {
		t.Fatalf("LoadConfig missing param: got %v, want ErrConfigMissingParameter", err)
	}
}

func TestLoadConfigInvalidScheduler(t *testing.T) {
	body := validConfigBody
	path := writeTempConfig(t, replaceLine(body, "scheduler rr", "scheduler bogus"))
	_, err := LoadConfig(path)
	serr, ok := err.(*SimError)
	if !ok || serr.Kind != ErrConfigInvalidValue {
		t.Fatalf("LoadConfig invalid scheduler: got %v, want ErrConfigInvalidValue", err)
	}
}

func TestLoadConfigNonPowerOfTwoMem(t *testing.T) {
	body := replaceLine(validConfigBody, "min-mem-per-proc 64", "min-mem-per-proc 100")
	path := writeTempConfig(t, body)
	_, err := LoadConfig(path)
	serr, ok := err.(*SimError)
	if !ok || serr.Kind != ErrConfigInvalidValue {
		t.Fatalf("LoadConfig non-power-of-two mem: got %v, want ErrConfigInvalidValue", err)
	}
}

func replaceLine(body, from, to string) string {
	out := ""
	for _, line := range splitLines(body) {
		if line == from {
			out += to + "\n"
		} else {
			out += line + "\n"
		}
	}
	return out
}

func splitLines(s string) []string {
	var lines []string
	start := 0
	for i, r := range s {
		if r == '\n' {
			lines = append(lines, s[start:i])
			start = i + 1
		}
	}
	if start < len(s) {
		lines = append(lines, s[start:])
	}
	return lines
}

func TestIsPowerOfTwo(t *testing.T) {
	cases := []struct {
		v int
		want bool
	}{
		{1, true}, {2, true}, {64, true}, {65536, true},
		{0, false}, {3, false}, {100, false}, {-4, false},
	}
	for _, c := range cases {
		if got := isPowerOfTwo(c.v); got != c.want {
			t.Errorf("isPowerOfTwo(%d): got %v, want %v", c.v, got, c.want)
		}
	}
}
