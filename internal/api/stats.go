package api

import (
	"sync"
	"time"
)

// Stats tracks request counts for the process lifetime.
type Stats struct {
	mu          sync.Mutex
	turns       int64
	failures    int64
	lastRequest time.Time
}

// NewStats creates an empty stats tracker.
func NewStats() *Stats {
	return &Stats{}
}

// RecordTurn counts one successful conversational turn.
func (s *Stats) RecordTurn() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns++
	s.lastRequest = time.Now()
}

// RecordFailure counts one failed turn.
func (s *Stats) RecordFailure() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures++
	s.lastRequest = time.Now()
}

// Snapshot is a copy-safe view of the stats.
type Snapshot struct {
	Turns       int64     `json:"turns"`
	Failures    int64     `json:"failures"`
	LastRequest time.Time `json:"last_request,omitzero"`
}

// Snapshot returns the current counters.
func (s *Stats) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		Turns:       s.turns,
		Failures:    s.failures,
		LastRequest: s.lastRequest,
	}
}
