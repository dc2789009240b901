// Package telemetry tracks the freshness of asynchronously updated streams.
//
// A Tracker keeps exactly one sample per stream: the most recent value and
// the time it arrived. Transport callbacks write through Record while the
// refresh loop reads; liveness is never stored and is recomputed from the
// sample age on every query, so a stream that stops publishing goes stale
// on its own.
package telemetry

import (
	"sync"
	"time"

	"github.com/rileyhilliard/dronestatus/internal/clock"
)

// StreamID names an independent telemetry stream.
type StreamID string

// Well-known streams rendered by the dashboard.
const (
	StreamBattery  StreamID = "battery"
	StreamPosition StreamID = "position"
)

// Sample is the last value received on a stream.
type Sample struct {
	Value      any
	ReceivedAt time.Time
	// Seen is false while the stream still holds its startup placeholder.
	Seen bool
}

// Age returns how old the sample is at now. Unseen samples have no age and
// report ok=false.
func (s Sample) Age(now time.Time) (age time.Duration, ok bool) {
	if !s.Seen {
		return 0, false
	}
	return now.Sub(s.ReceivedAt), true
}

// Tracker holds the latest sample for each stream.
type Tracker struct {
	mu      sync.RWMutex
	clock   clock.Clock
	samples map[StreamID]Sample
}

// NewTracker creates a tracker whose streams start with the given placeholder
// values. The placeholders are what gets rendered until real data arrives.
func NewTracker(c clock.Clock, placeholders map[StreamID]any) *Tracker {
	if c == nil {
		c = clock.Real()
	}
	samples := make(map[StreamID]Sample, len(placeholders))
	for id, v := range placeholders {
		samples[id] = Sample{Value: v}
	}
	return &Tracker{
		clock:   c,
		samples: samples,
	}
}

// Record stores value as the newest sample for id, stamped with the current
// time. Calls for the same stream are applied in the order they are made.
func (t *Tracker) Record(id StreamID, value any) {
	now := t.clock.Now()
	t.mu.Lock()
	t.samples[id] = Sample{Value: value, ReceivedAt: now, Seen: true}
	t.mu.Unlock()
}

// Sample returns the current sample for id.
func (t *Tracker) Sample(id StreamID) (Sample, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s, ok := t.samples[id]
	return s, ok
}

// IsLive reports whether id received a sample within timeout of now.
func (t *Tracker) IsLive(id StreamID, timeout time.Duration) bool {
	return t.IsLiveAt(id, timeout, t.clock.Now())
}

// IsLiveAt is IsLive evaluated at an explicit instant, so one render tick can
// judge every stream against the same now.
func (t *Tracker) IsLiveAt(id StreamID, timeout time.Duration, now time.Time) bool {
	s, ok := t.Sample(id)
	if !ok {
		return false
	}
	age, seen := s.Age(now)
	return seen && age <= timeout
}

// Snapshot copies every sample under one lock acquisition.
func (t *Tracker) Snapshot() map[StreamID]Sample {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[StreamID]Sample, len(t.samples))
	for id, s := range t.samples {
		out[id] = s
	}
	return out
}

// Value returns the sample value for id as T. It returns the zero T when the
// stream is unknown or holds a value of another type.
func Value[T any](t *Tracker, id StreamID) T {
	var zero T
	s, ok := t.Sample(id)
	if !ok {
		return zero
	}
	v, ok := s.Value.(T)
	if !ok {
		return zero
	}
	return v
}
