package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// fakeClock drives the aggregator's time source in tests
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestAggregator(totalItems int) (*ProgressAggregator, *fakeClock) {
	clock := &fakeClock{t: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	agg := NewProgressAggregator(totalItems)
	agg.now = clock.now
	return agg, clock
}

func TestProgressAggregator_ByteFraction(t *testing.T) {
	agg, _ := newTestAggregator(1)

	agg.ObserveBytes(1, 250, 1000, 0, 0)
	assert.InDelta(t, 0.25, agg.Snapshot().Percent, 1e-9)

	agg.ObserveBytes(1, 1000, 1000, 0, 0)
	assert.InDelta(t, 1.0, agg.Snapshot().Percent, 1e-9)
}

func TestProgressAggregator_FragmentFallback(t *testing.T) {
	agg, _ := newTestAggregator(1)

	// No byte totals, fragments known.
	agg.ObserveBytes(1, 0, 0, 3, 10)
	assert.InDelta(t, 0.3, agg.Snapshot().Percent, 1e-9)
}

func TestProgressAggregator_UnknownExtentPlaceholder(t *testing.T) {
	agg, _ := newTestAggregator(1)

	agg.ObserveBytes(1, 12345, 0, 0, 0)
	assert.InDelta(t, 0.5, agg.Snapshot().Percent, 1e-9)
}

func TestProgressAggregator_FractionNeverRegresses(t *testing.T) {
	agg, _ := newTestAggregator(1)

	agg.ObserveBytes(1, 800, 1000, 0, 0)
	assert.InDelta(t, 0.8, agg.Snapshot().Percent, 1e-9)

	// A lower reading (restarted fragment) must not move the bar backwards.
	agg.ObserveBytes(1, 100, 1000, 0, 0)
	assert.InDelta(t, 0.8, agg.Snapshot().Percent, 1e-9)
}

func TestProgressAggregator_MultiItemPercent(t *testing.T) {
	agg, _ := newTestAggregator(4)

	agg.ItemFinished(1)
	agg.ObserveBytes(2, 500, 1000, 0, 0)

	// 1 of 4 settled plus half of the current item.
	assert.InDelta(t, (1.0+0.5)/4.0, agg.Snapshot().Percent, 1e-9)
}

func TestProgressAggregator_FailedItemsSettle(t *testing.T) {
	agg, _ := newTestAggregator(5)

	agg.ItemFinished(1)
	agg.ItemFinished(2)
	agg.ItemFailed(3)
	agg.ItemFinished(4)
	agg.ItemFinished(5)

	// A session that is done with every item reads full, failures included.
	assert.InDelta(t, 1.0, agg.Snapshot().Percent, 1e-9)
}

func TestProgressAggregator_CancelledItemsDoNotSettle(t *testing.T) {
	agg, _ := newTestAggregator(2)

	agg.ItemFinished(1)
	agg.ObserveBytes(2, 900, 1000, 0, 0)
	agg.ItemAbandoned(2)

	assert.InDelta(t, 0.5, agg.Snapshot().Percent, 1e-9)
}

func TestProgressAggregator_SpeedThrottled(t *testing.T) {
	agg, clock := newTestAggregator(1)

	agg.ObserveBytes(1, 0, 10000, 0, 0)

	// Samples inside the throttle window leave the speed untouched.
	clock.advance(200 * time.Millisecond)
	agg.ObserveBytes(1, 1000, 10000, 0, 0)
	assert.Zero(t, agg.Snapshot().SpeedBps)

	// After a full second the sample is taken.
	clock.advance(time.Second)
	agg.ObserveBytes(1, 2400, 10000, 0, 0)
	assert.InDelta(t, 2000, agg.Snapshot().SpeedBps, 1)
}

func TestProgressAggregator_InterleavedItemsKeepSpeedSane(t *testing.T) {
	agg, clock := newTestAggregator(2)

	// Two concurrent items report interleaved byte counts. Samples are kept
	// per item, so the small item's counts never read as a negative delta
	// against the large item's.
	agg.ObserveBytes(1, 0, 100000, 0, 0)
	agg.ObserveBytes(2, 0, 1000, 0, 0)

	clock.advance(time.Second)
	agg.ObserveBytes(1, 50000, 100000, 0, 0)
	assert.InDelta(t, 50000, agg.Snapshot().SpeedBps, 1)

	agg.ObserveBytes(2, 500, 1000, 0, 0)
	assert.GreaterOrEqual(t, agg.Snapshot().SpeedBps, 0.0)

	clock.advance(time.Second)
	agg.ObserveBytes(2, 1000, 1000, 0, 0)
	assert.GreaterOrEqual(t, agg.Snapshot().SpeedBps, 0.0)
}

func TestProgressAggregator_ETA(t *testing.T) {
	agg, clock := newTestAggregator(1)

	agg.ObserveBytes(1, 0, 10000, 0, 0)
	clock.advance(time.Second)
	agg.ObserveBytes(1, 1000, 10000, 0, 0)

	snap := agg.Snapshot()
	assert.InDelta(t, 1000, snap.SpeedBps, 1)
	assert.Equal(t, int64(9), snap.ETASeconds)
}

func TestProgressAggregator_ETAUnknownWithoutTotal(t *testing.T) {
	agg, clock := newTestAggregator(1)

	agg.ObserveBytes(1, 0, 0, 0, 0)
	clock.advance(time.Second)
	agg.ObserveBytes(1, 5000, 0, 0, 0)

	assert.Equal(t, int64(-1), agg.Snapshot().ETASeconds)
}

func TestProgressAggregator_PercentClamped(t *testing.T) {
	agg, _ := newTestAggregator(1)

	agg.ObserveBytes(1, 1500, 1000, 0, 0)
	assert.InDelta(t, 1.0, agg.Snapshot().Percent, 1e-9)
}

func TestProgressAggregator_ZeroItems(t *testing.T) {
	agg, _ := newTestAggregator(0)
	assert.Zero(t, agg.Snapshot().Percent)
}

func TestFormatETA(t *testing.T) {
	tests := []struct {
		seconds int64
		want    string
	}{
		{-1, ""},
		{0, "0s"},
		{45, "45s"},
		{60, "1m 0s"},
		{185, "3m 5s"},
		{3600, "1h 0m"},
		{7265, "2h 1m"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatETA(tt.seconds))
	}
}

func TestFormatSpeed(t *testing.T) {
	assert.Equal(t, "512 B/s", FormatSpeed(512))
	assert.Equal(t, "2.0 KB/s", FormatSpeed(2048))
	assert.Equal(t, "1.5 MB/s", FormatSpeed(1.5*1024*1024))
}
