package assistant

import (
	"errors"
	"strings"
	"sync"
	"time"
)

// ErrCycleInProgress is returned when a cycle is requested while
// another is still running. Cycles never queue; the caller retries.
var ErrCycleInProgress = errors.New("assistant: analysis cycle already in progress")

// cycleState serializes analysis cycles across the scheduler, the
// reviewer bot's /check and the CLI.
type cycleState struct {
	mu          sync.Mutex
	running     bool
	runs        int
	lastSuccess time.Time
	lastError   string
}

func (s *cycleState) Start() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return false
	}
	s.running = true
	return true
}

func (s *cycleState) EndSuccess(now time.Time) {
	s.mu.Lock()
	s.running = false
	s.runs++
	s.lastError = ""
	s.lastSuccess = now
	s.mu.Unlock()
}

func (s *cycleState) EndFailure(err error) {
	s.mu.Lock()
	s.running = false
	s.runs++
	if err != nil {
		s.lastError = strings.TrimSpace(err.Error())
	}
	s.mu.Unlock()
}

func (s *cycleState) Snapshot() (runs int, lastSuccess time.Time, lastError string, running bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runs, s.lastSuccess, s.lastError, s.running
}
