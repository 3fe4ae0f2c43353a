// Package traffic keeps a sliding window of relay outcomes for the health endpoint.
package traffic

import (
	"sync"
	"time"
)

// Outcome classifies a finished /weather request.
type Outcome int

const (
	// Success is a 2xx payload relayed from the provider.
	Success Outcome = iota
	// UpstreamError is an error status reported by the provider (bad location, invalid key).
	UpstreamError
	// InternalError is a relay-side failure: network, timeout, malformed payload.
	InternalError
)

// retention bounds memory; windows longer than this see at most retention worth of data.
const retention = 5 * time.Minute

var defaultTracker = NewTracker()

// Record adds an outcome to the process-wide tracker.
func Record(o Outcome) {
	defaultTracker.Record(o)
}

// Counts returns the process-wide counts within window.
func Counts(window time.Duration) Snapshot {
	return defaultTracker.Counts(window)
}

// Reset clears the process-wide tracker. For tests only.
func Reset() {
	defaultTracker.Reset()
}

// Snapshot is the number of outcomes of each kind inside a window.
type Snapshot struct {
	Success       int
	UpstreamError int
	InternalError int
}

// Total returns the number of outcomes in the snapshot.
func (s Snapshot) Total() int {
	return s.Success + s.UpstreamError + s.InternalError
}

// InternalErrorPct returns the share of internal errors as a percentage, 0 when empty.
// Upstream-reported errors count as handled traffic: the relay worked, the caller asked badly.
func (s Snapshot) InternalErrorPct() float64 {
	total := s.Total()
	if total == 0 {
		return 0
	}
	return float64(s.InternalError) * 100 / float64(total)
}

type event struct {
	at      time.Time
	outcome Outcome
}

// Tracker keeps timestamped outcomes in arrival order.
type Tracker struct {
	mu     sync.Mutex
	events []event
	now    func() time.Time
}

// NewTracker returns an empty tracker using the wall clock.
func NewTracker() *Tracker {
	return &Tracker{now: time.Now}
}

// Record appends an outcome and prunes entries older than the retention period.
func (t *Tracker) Record(o Outcome) {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.now()
	t.events = append(t.events, event{at: now, outcome: o})
	t.pruneLocked(now)
}

// Counts returns outcome counts for events not older than window.
func (t *Tracker) Counts(window time.Duration) Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	cutoff := t.now().Add(-window)
	var s Snapshot
	for i := len(t.events) - 1; i >= 0; i-- {
		ev := t.events[i]
		if ev.at.Before(cutoff) {
			break
		}
		switch ev.outcome {
		case Success:
			s.Success++
		case UpstreamError:
			s.UpstreamError++
		case InternalError:
			s.InternalError++
		}
	}
	return s
}

// Reset clears all recorded outcomes.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events = nil
}

// pruneLocked drops events older than retention. Must be called with mu held.
func (t *Tracker) pruneLocked(now time.Time) {
	cutoff := now.Add(-retention)
	i := 0
	for ; i < len(t.events) && t.events[i].at.Before(cutoff); i++ {
	}
	if i > 0 {
		t.events = append(t.events[:0], t.events[i:]...)
	}
}
