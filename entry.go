// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package servertiming

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/net/http/httpguts"
)

// entry is one element of a ledger: either a single metric or, when group is
// non-nil, a nested ledger rendered as one collapsed fragment.
type entry struct {
	label string
	desc  string

	// explicit, pre-computed duration, supplied instead of being measured
	dur    time.Duration
	hasDur bool

	startedAt time.Time
	endedAt   time.Time

	group *Timing
}

// An EntryOption annotates a single metric at Add, Start, or Track time.
type EntryOption func(*entry)

// WithDescription attaches a free-text description, rendered as the desc
// parameter of the metric. Descriptions must not contain a double quote.
func WithDescription(desc string) EntryOption {
	return func(e *entry) {
		e.desc = desc
	}
}

// WithDuration supplies an externally measured duration, rendered verbatim as
// the dur parameter. The metric is never started or ended by the ledger.
func WithDuration(dur time.Duration) EntryOption {
	return func(e *entry) {
		e.dur = dur
		e.hasDur = true
	}
}

// newEntry normalizes label and options into an entry, enforcing the wire
// format's validity rules before the entry ever enters a ledger.
func newEntry(label string, opts []EntryOption) (*entry, error) {
	e := &entry{label: label}

	for _, opt := range opts {
		opt(e)
	}

	if err := validateLabel(e.label); err != nil {
		return nil, err
	}

	if strings.Contains(e.desc, `"`) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDescription, e.desc)
	}

	return e, nil
}

// validateLabel enforces the token production of RFC 9110: visible ASCII
// excluding delimiters, whitespace, and quotes.
func validateLabel(label string) error {
	if !httpguts.ValidHeaderFieldName(label) {
		return fmt.Errorf("%w: %q", ErrInvalidLabel, label)
	}

	return nil
}
