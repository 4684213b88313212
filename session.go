// session.go - named UI-level binding from a name to one process
// and its output buffer.

package main

import (
	"bytes"
	"fmt"
	"sync"
	"time"
)

// Session is a named binding to a Process plus the buffered text the
// "screen" commands have produced for it. Sessions hold a strong
// reference to their Process for the lifetime of the session.
type Session struct {
	Name string
	CreatedAt time.Time
	Process *Process

	mu sync.Mutex
	out bytes.Buffer
}

func newSession(name string, p *Process) *Session {
	return &Session{Name: name, CreatedAt: time.Now(), Process: p}
}

// Printf appends formatted text to the session's output buffer.
func (s *Session) Printf(format string, args ...any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(&s.out, format, args...)
}

// Output returns a copy of the session's accumulated output.
func (s *Session) Output() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.out.String()
}

// Clear empties the session's output buffer ("clear" command).
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.out.Reset()
}

// SessionManager owns every named session, keyed by name.
type SessionManager struct {
	mu sync.Mutex
	sessions map[string]*Session
}

func newSessionManager() *SessionManager {
	return &SessionManager{sessions: make(map[string]*Session)}
}

func (m *SessionManager) create(name string, p *Process) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := newSession(name, p)
	m.sessions[name] = s
	return s
}

func (m *SessionManager) get(name string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[name]
	return s, ok
}

func (m *SessionManager) names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.sessions))
	for n := range m.sessions {
		out = append(out, n)
	}
	return out
}
