// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package servertiming

import (
	"fmt"
	"time"
)

// FullPrecision renders durations with as many digits as needed to represent
// the value exactly. Any negative precision behaves the same way.
const FullPrecision = -1

// groups may nest exactly one level below the top-level ledger
const maxGroupDepth = 1

// A Timing is an ordered ledger of metrics for one logical request. Metrics
// render into the Server-Timing header value in insertion order.
//
// The zero value is not usable; create ledgers with New. A Timing holds no
// locks and must not be mutated concurrently.
type Timing struct {
	precision int
	now       func() time.Time
	depth     int
	entries   []*entry
}

// An Option configures a ledger at construction time.
type Option func(*Timing)

// WithPrecision fixes the number of digits rendered after the decimal point
// of every duration. The default is FullPrecision.
func WithPrecision(digits int) Option {
	return func(t *Timing) {
		t.precision = digits
	}
}

// WithClock replaces the wall clock read at Start, End, and render time.
// Intended for tests.
func WithClock(now func() time.Time) Option {
	return func(t *Timing) {
		t.now = now
	}
}

// New returns an empty top-level ledger.
func New(opts ...Option) *Timing {
	t := &Timing{
		precision: FullPrecision,
		now:       time.Now,
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

// Add appends a metric without starting a timer. Without options the metric
// is a bare note; WithDuration records an externally measured value.
func (t *Timing) Add(label string, opts ...EntryOption) error {
	e, err := newEntry(label, opts)
	if err != nil {
		return err
	}

	t.entries = append(t.entries, e)

	return nil
}

// Start appends a metric and starts its timer.
func (t *Timing) Start(label string, opts ...EntryOption) error {
	e, err := newEntry(label, opts)
	if err != nil {
		return err
	}

	e.startedAt = t.now()
	t.entries = append(t.entries, e)

	return nil
}

// End stops the timer of the first unfinished metric with the given label.
// When every metric with that label is already finished, the first one is
// re-stamped with the current clock reading. End fails with ErrNotStarted
// when the label is absent entirely, leaving the ledger unmodified.
func (t *Timing) End(label string) error {
	if err := validateLabel(label); err != nil {
		return err
	}

	var fallback *entry

	for _, e := range t.entries {
		if e.group != nil || e.label != label {
			continue
		}

		if e.endedAt.IsZero() {
			e.endedAt = t.now()

			return nil
		}

		if fallback == nil {
			fallback = e
		}
	}

	if fallback != nil {
		fallback.endedAt = t.now()

		return nil
	}

	return fmt.Errorf("%w: %q", ErrNotStarted, label)
}

// Track times op under the given label. The metric is ended on every exit
// path, and op's error is returned unchanged after the timer has stopped.
func (t *Timing) Track(label string, op func() error, opts ...EntryOption) error {
	if err := t.Start(label, opts...); err != nil {
		return err
	}

	// Start just appended the metric, so End cannot miss.
	defer func() { _ = t.End(label) }()

	return op()
}

// Group appends a nested ledger and returns it for further mutation. The
// group renders as a single fragment at this ledger's current position.
// Nesting is capped at one level: calling Group on a group fails with
// ErrNested.
func (t *Timing) Group() (*Timing, error) {
	if t.depth >= maxGroupDepth {
		return nil, ErrNested
	}

	g := &Timing{
		precision: t.precision,
		now:       t.now,
		depth:     t.depth + 1,
	}

	t.entries = append(t.entries, &entry{group: g})

	return g, nil
}
