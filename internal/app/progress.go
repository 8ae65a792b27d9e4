package app

import (
	"fmt"
	"sync"
	"time"
)

// unknownExtentFraction is reported while an item is in flight but the
// backend gives neither byte totals nor fragment counts
const unknownExtentFraction = 0.5

// speedSampleInterval throttles speed recalculation so noisy instantaneous
// rates don't reach the display
const speedSampleInterval = time.Second

// Snapshot is one coherent progress view handed to the caller
type Snapshot struct {
	Percent    float64 `json:"percent"` // 0..1 across the whole session
	SpeedBps   float64 `json:"speed_bps"`
	ETASeconds int64   `json:"eta_seconds"` // -1 when unknown
}

// byteSample is the last speed sample taken for one item
type byteSample struct {
	at    time.Time
	bytes int64
}

// ProgressAggregator folds per-item byte and fragment events into overall
// percentage, throughput and ETA. It is fed exclusively by the coordinator's
// collector and knows nothing about retries or platforms. Snapshot reads may
// come from any goroutine.
//
// Completed and failed items both settle: the overall percent counts items
// the session is done with, so a finished session with failures still ends
// at 1.0. Cancelled items never settle and leave the bar where it was.
type ProgressAggregator struct {
	mu sync.Mutex

	totalItems      int
	settledItems    int
	currentFraction float64

	// Byte samples are keyed by item index so interleaved progress from
	// concurrent workers can't produce negative rates.
	samples    map[int]byteSample
	speedBps   float64
	etaSeconds int64

	now func() time.Time // test hook
}

// NewProgressAggregator creates an aggregator for a session of totalItems
func NewProgressAggregator(totalItems int) *ProgressAggregator {
	return &ProgressAggregator{
		totalItems: totalItems,
		samples:    make(map[int]byteSample),
		etaSeconds: -1,
		now:        time.Now,
	}
}

// ObserveBytes records a byte/fragment progress event for the item at
// itemIndex. The reported fraction never regresses within one item's
// lifetime.
func (p *ProgressAggregator) ObserveBytes(itemIndex int, downloaded, total int64, fragIndex, fragCount int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	fraction := unknownExtentFraction
	switch {
	case total > 0:
		fraction = float64(downloaded) / float64(total)
	case fragCount > 0:
		fraction = float64(fragIndex) / float64(fragCount)
	}
	if fraction > 1 {
		fraction = 1
	}
	if fraction > p.currentFraction {
		p.currentFraction = fraction
	}

	now := p.now()
	sample, ok := p.samples[itemIndex]
	if !ok {
		p.samples[itemIndex] = byteSample{at: now, bytes: downloaded}
		return
	}

	elapsed := now.Sub(sample.at)
	if elapsed >= speedSampleInterval {
		p.speedBps = float64(downloaded-sample.bytes) / elapsed.Seconds()
		p.samples[itemIndex] = byteSample{at: now, bytes: downloaded}
	}

	if p.speedBps > 0 && total > 0 {
		p.etaSeconds = int64(float64(total-downloaded) / p.speedBps)
	} else {
		p.etaSeconds = -1
	}
}

// ItemFinished settles a completed item and resets per-item state. The
// settled count never regresses.
func (p *ProgressAggregator) ItemFinished(itemIndex int) {
	p.settle(itemIndex, true)
}

// ItemFailed settles a failed item. The item is done being worked on, so it
// advances the bar like a completed one.
func (p *ProgressAggregator) ItemFailed(itemIndex int) {
	p.settle(itemIndex, true)
}

// ItemAbandoned resets per-item state without settling the item (cancelled
// mid flight)
func (p *ProgressAggregator) ItemAbandoned(itemIndex int) {
	p.settle(itemIndex, false)
}

func (p *ProgressAggregator) settle(itemIndex int, counts bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if counts {
		p.settledItems++
	}
	p.currentFraction = 0
	delete(p.samples, itemIndex)
	p.etaSeconds = -1
}

// Snapshot returns the current aggregate view
func (p *ProgressAggregator) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()

	total := p.totalItems
	if total < 1 {
		total = 1
	}
	percent := (float64(p.settledItems) + p.currentFraction) / float64(total)
	if percent > 1 {
		percent = 1
	}

	return Snapshot{
		Percent:    percent,
		SpeedBps:   p.speedBps,
		ETASeconds: p.etaSeconds,
	}
}

// FormatETA renders an ETA in a compact human form
func FormatETA(seconds int64) string {
	if seconds < 0 {
		return ""
	}
	switch {
	case seconds < 60:
		return fmt.Sprintf("%ds", seconds)
	case seconds < 3600:
		return fmt.Sprintf("%dm %ds", seconds/60, seconds%60)
	default:
		return fmt.Sprintf("%dh %dm", seconds/3600, (seconds%3600)/60)
	}
}

// FormatSpeed renders a byte rate for display
func FormatSpeed(bps float64) string {
	switch {
	case bps >= 1<<20:
		return fmt.Sprintf("%.1f MB/s", bps/(1<<20))
	case bps >= 1<<10:
		return fmt.Sprintf("%.1f KB/s", bps/(1<<10))
	default:
		return fmt.Sprintf("%.0f B/s", bps)
	}
}
