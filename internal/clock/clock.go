// Package clock provides an injectable time source so every periodic loop
// and timestamp in the node can be driven deterministically under test,
// matching spec.md §9's "no global mutable state" design note.
package clock

import "time"

// Clock abstracts the monotonic-ms and wall-clock-epoch sources spec.md §2
// calls out as leaf components.
type Clock interface {
	// NowMs returns milliseconds since the Unix epoch, used for every
	// last_seen_ms / timestamp_ms / ts_ms field on the wire and in events.
	NowMs() int64
	// Now returns the underlying time.Time, used for ticker scheduling.
	Now() time.Time
}

// Real is the production clock, backed by time.Now.
type Real struct{}

// NowMs implements Clock.
func (Real) NowMs() int64 { return time.Now().UnixMilli() }

// Now implements Clock.
func (Real) Now() time.Time { return time.Now() }

// Fake is a manually-advanced clock for deterministic tests.
type Fake struct {
	t time.Time
}

// NewFake returns a Fake clock starting at t.
func NewFake(t time.Time) *Fake { return &Fake{t: t} }

// NowMs implements Clock.
func (f *Fake) NowMs() int64 { return f.t.UnixMilli() }

// Now implements Clock.
func (f *Fake) Now() time.Time { return f.t }

// Advance moves the fake clock forward by d.
func (f *Fake) Advance(d time.Duration) { f.t = f.t.Add(d) }

// Set moves the fake clock to an absolute time.
func (f *Fake) Set(t time.Time) { f.t = t }
