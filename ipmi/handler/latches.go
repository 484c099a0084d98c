package handler

import (
	"sync"
)

// DeassertionLatches tracks, per sensor path and alarm property, whether the
// threshold is currently asserted. An entry exists only once an assertion
// has been observed: a deassertion with no prior assertion is not recorded,
// and lookups never create entries.
type DeassertionLatches struct {
	mu      sync.Mutex
	latches map[string]map[string]bool
}

func NewDeassertionLatches() *DeassertionLatches {
	return &DeassertionLatches{
		latches: make(map[string]map[string]bool),
	}
}

// Assert records an alarm assertion, creating the latch if needed.
func (l *DeassertionLatches) Assert(path, alarm string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	byAlarm, ok := l.latches[path]
	if !ok {
		byAlarm = make(map[string]bool)
		l.latches[path] = byAlarm
	}
	byAlarm[alarm] = true
}

// Deassert records an alarm returning to normal. It reports whether a latch
// existed; without a prior assertion nothing is recorded.
func (l *DeassertionLatches) Deassert(path, alarm string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	byAlarm, ok := l.latches[path]
	if !ok {
		return false
	}
	if _, ok := byAlarm[alarm]; !ok {
		return false
	}
	byAlarm[alarm] = false
	return true
}

// Latched reports the current latch value and whether a latch exists.
func (l *DeassertionLatches) Latched(path, alarm string) (asserted, ok bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	byAlarm, found := l.latches[path]
	if !found {
		return false, false
	}
	asserted, ok = byAlarm[alarm]
	return asserted, ok
}
