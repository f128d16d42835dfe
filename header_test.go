// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package servertiming

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderNoteAndExplicitDuration(t *testing.T) {
	t.Parallel()

	timing := New()

	require.NoError(t, timing.Add("miss"))
	require.NoError(t, timing.Add("db", WithDuration(53*time.Millisecond)))

	assert.Equal(t, "miss, db;dur=53", timing.String())
}

func TestRenderDescription(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	timing := New(WithClock(clock.Now))

	require.NoError(t, timing.Start("foo", WithDescription("Foo Service")))
	clock.advance(42 * time.Millisecond)
	require.NoError(t, timing.End("foo"))

	assert.Equal(t, `foo;desc="Foo Service";dur=42`, timing.String())
}

func TestRenderFractionalExplicitDuration(t *testing.T) {
	t.Parallel()

	timing := New()

	require.NoError(t, timing.Add("app", WithDuration(47200*time.Microsecond)))

	assert.Equal(t, "app;dur=47.2", timing.String())
}

func TestRenderPrecision(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		precision int
		dur       time.Duration
		want      string
	}{
		{"full precision", FullPrecision, 1500 * time.Microsecond, "db;dur=1.5"},
		{"zero digits", 0, 1500 * time.Microsecond, "db;dur=2"},
		{"two digits", 2, 1500 * time.Microsecond, "db;dur=1.50"},
		{"three digits", 3, 1234567 * time.Nanosecond, "db;dur=1.235"},
	}

	for _, tst := range tests {
		t.Run(tst.name, func(t *testing.T) {
			t.Parallel()

			timing := New(WithPrecision(tst.precision))
			require.NoError(t, timing.Add("db", WithDuration(tst.dur)))

			assert.Equal(t, tst.want, timing.String())
		})
	}
}

// TestRenderRunningMetric checks that reading the header before End reflects
// elapsed-so-far time and never stops the metric.
func TestRenderRunningMetric(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	timing := New(WithClock(clock.Now))

	require.NoError(t, timing.Start("foo"))

	clock.advance(10 * time.Millisecond)

	first := timing.String()

	clock.advance(10 * time.Millisecond)

	second := timing.String()

	if first != "foo;dur=10" {
		t.Errorf("Expected first read foo;dur=10, got %q", first)
	}

	if second != "foo;dur=20" {
		t.Errorf("Expected second read foo;dur=20, got %q", second)
	}

	assert.True(t, timing.entries[0].endedAt.IsZero(), "render must not stop a running metric")

	// End still freezes the value afterwards
	clock.advance(10 * time.Millisecond)
	require.NoError(t, timing.End("foo"))
	clock.advance(time.Hour)
	assert.Equal(t, "foo;dur=30", timing.String())
}

func TestRenderRunningMetricRealClock(t *testing.T) {
	t.Parallel()

	timing := New()

	require.NoError(t, timing.Start("foo"))

	time.Sleep(5 * time.Millisecond)
	require.NoError(t, timing.End("foo"))

	durPattern := regexp.MustCompile(`^foo;dur=\d+(\.\d+)?$`)
	value := timing.String()

	if !durPattern.MatchString(value) {
		t.Fatalf("Rendered value %q does not match %v", value, durPattern)
	}
}

func TestRenderGroup(t *testing.T) {
	t.Parallel()

	timing := New()
	require.NoError(t, timing.Add("edge", WithDuration(2*time.Millisecond)))

	group, err := timing.Group()
	require.NoError(t, err)

	require.NoError(t, group.Add("miss"))
	require.NoError(t, group.Add("db", WithDuration(53*time.Millisecond)))
	require.NoError(t, group.Add("app", WithDuration(47200*time.Microsecond)))

	// the group collapses into a single fragment at its list position
	assert.Equal(t, "edge;dur=2, miss, db;dur=53, app;dur=47.2", timing.String())
	assert.Equal(t, []string{"edge;dur=2", "miss, db;dur=53, app;dur=47.2"}, timing.Values())
}

func TestRenderEmptyGroupOmitted(t *testing.T) {
	t.Parallel()

	timing := New()
	require.NoError(t, timing.Add("a"))

	_, err := timing.Group()
	require.NoError(t, err)

	require.NoError(t, timing.Add("b"))

	assert.Equal(t, "a, b", timing.String())
}

func TestHeaders(t *testing.T) {
	t.Parallel()

	timing := New()

	assert.Empty(t, timing.Headers(), "empty ledger yields no header")

	require.NoError(t, timing.Add("db", WithDuration(53*time.Millisecond)))

	h := timing.Headers()
	assert.Equal(t, "db;dur=53", h.Get(HeaderKey))
}

func TestRaw(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	timing := New(WithClock(clock.Now))

	require.NoError(t, timing.Add("miss"))
	require.NoError(t, timing.Add("db", WithDescription("Primary DB"), WithDuration(53*time.Millisecond)))
	require.NoError(t, timing.Start("app"))
	clock.advance(10 * time.Millisecond)

	raw := timing.Raw()
	require.Len(t, raw, 3)

	assert.Equal(t, RawMetric{Name: "miss"}, raw[0])
	assert.Equal(t, RawMetric{Name: "db (Primary DB)", Dur: 53, Timed: true}, raw[1])
	assert.Equal(t, RawMetric{Name: "app", Dur: 10, Timed: true}, raw[2])
}

func TestRenderIsStateIdempotent(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	timing := New(WithClock(clock.Now))

	require.NoError(t, timing.Start("foo"))
	clock.advance(7 * time.Millisecond)
	require.NoError(t, timing.End("foo"))
	require.NoError(t, timing.Add("miss"))

	first := timing.String()
	second := timing.String()

	assert.Equal(t, first, second, "repeated reads of settled state must agree")
	assert.Equal(t, "foo;dur=7, miss", first)
}
