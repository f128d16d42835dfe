// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package servertiming

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// HeaderKey is the response header field the rendered value belongs under.
//
// ref: https://developer.mozilla.org/en-US/docs/Web/HTTP/Headers/Server-Timing
const HeaderKey = "Server-Timing"

// String renders the full header value: one fragment per metric, joined by
// ", ". Rendering reads the clock for metrics that are still running but
// never mutates the ledger, so repeated calls on a running metric report
// increasing durations.
func (t *Timing) String() string {
	return strings.Join(t.Values(), ", ")
}

// Values renders one header-value fragment per top-level metric. A group
// collapses to a single fragment; empty groups are omitted.
func (t *Timing) Values() []string {
	now := t.now()
	values := make([]string, 0, len(t.entries))

	for _, e := range t.entries {
		if e.group != nil {
			if fragment := e.group.String(); fragment != "" {
				values = append(values, fragment)
			}

			continue
		}

		values = append(values, e.render(now, t.precision))
	}

	return values
}

// Headers returns the rendered value as an http.Header holding the single
// Server-Timing field, for callers that merge header collections. An empty
// ledger yields an empty collection.
func (t *Timing) Headers() http.Header {
	h := http.Header{}
	t.SetHeaders(h)

	return h
}

// SetHeaders writes the rendered value into h under HeaderKey. Nothing is
// written for an empty ledger.
func (t *Timing) SetHeaders(h http.Header) {
	if value := t.String(); value != "" {
		h.Set(HeaderKey, value)
	}
}

// A RawMetric is one metric exposed for programmatic consumption instead of
// header formatting.
type RawMetric struct {
	// Name is the label, with the description appended in parentheses when
	// one is set.
	Name string

	// Dur is the explicit or elapsed duration in milliseconds. It is zero
	// and meaningless when Timed is false.
	Dur float64

	// Timed is false for bare notes carrying no duration.
	Timed bool
}

// Raw exposes the ledger's metrics untransformed. Nested groups are omitted;
// call Raw on the group itself to read its metrics.
func (t *Timing) Raw() []RawMetric {
	now := t.now()
	raw := make([]RawMetric, 0, len(t.entries))

	for _, e := range t.entries {
		if e.group != nil {
			continue
		}

		name := e.label
		if e.desc != "" {
			name += " (" + e.desc + ")"
		}

		m := RawMetric{Name: name}

		switch {
		case e.hasDur:
			m.Dur = durationMillis(e.dur)
			m.Timed = true
		case !e.startedAt.IsZero():
			m.Dur = durationMillis(e.elapsed(now))
			m.Timed = true
		}

		raw = append(raw, m)
	}

	return raw
}

// render produces the metric's header-value fragment:
//
//	token [ ";desc=" quoted-string ] [ ";dur=" number ]
func (e *entry) render(now time.Time, precision int) string {
	var sb strings.Builder

	sb.WriteString(e.label)

	if e.desc != "" {
		sb.WriteString(`;desc="`)
		sb.WriteString(e.desc)
		sb.WriteString(`"`)
	}

	switch {
	case e.hasDur:
		sb.WriteString(";dur=")
		sb.WriteString(formatDuration(e.dur, precision))
	case !e.startedAt.IsZero():
		sb.WriteString(";dur=")
		sb.WriteString(formatDuration(e.elapsed(now), precision))
	}

	return sb.String()
}

// elapsed reports the time the metric has been running, against now while the
// metric is unfinished.
func (e *entry) elapsed(now time.Time) time.Duration {
	end := e.endedAt
	if end.IsZero() {
		end = now
	}

	return end.Sub(e.startedAt)
}

func formatDuration(d time.Duration, precision int) string {
	return strconv.FormatFloat(durationMillis(d), 'f', precision, 64)
}

func durationMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
