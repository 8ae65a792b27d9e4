package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rxvxrsx/revgrab/internal/domain"
)

// workerMsg is what workers send to the coordinator's single collector.
// Workers never mutate shared counters or the aggregator directly.
type workerMsg struct {
	item     *domain.DownloadItem
	progress *domain.ProgressUpdate
	done     bool
	outcome  Outcome
	skipped  bool // cancelled before the worker ever started the item
}

// Coordinator downloads a session's items with a bounded worker pool,
// honoring global cancellation and the per-item timeout. Items are submitted
// in index order; completion order across workers is unspecified.
type Coordinator struct {
	backend domain.MediaBackend
	cfg     domain.EngineConfig
	backoff Backoff
	bus     *EventBus
	logger  *zap.Logger
}

// NewCoordinator creates a coordinator
func NewCoordinator(backend domain.MediaBackend, cfg domain.EngineConfig, bus *EventBus, logger *zap.Logger) *Coordinator {
	return &Coordinator{
		backend: backend,
		cfg:     cfg,
		backoff: Backoff{Base: cfg.BackoffBase, Cap: cfg.BackoffCap},
		bus:     bus,
		logger:  logger,
	}
}

// Run downloads all items in the session and blocks until every submitted
// item reached a terminal state or cancellation was observed. It returns the
// aggregator it fed so the caller can take a final snapshot.
func (c *Coordinator) Run(ctx context.Context, session *domain.DownloadSession, opts domain.DownloadOptions) *ProgressAggregator {
	items := session.Items
	agg := NewProgressAggregator(len(items))
	if len(items) == 0 {
		return agg
	}

	workers := c.cfg.Concurrency
	if workers < 1 {
		workers = 1
	}
	if workers > 10 {
		workers = 10
	}
	// A single item or concurrency 1 runs strictly sequentially in index
	// order through one worker.
	if len(items) == 1 {
		workers = 1
	}
	if workers > 1 {
		c.bus.Log(LevelInfo, fmt.Sprintf("Starting %d concurrent downloads...", workers))
	}

	itemCh := make(chan *domain.DownloadItem)
	msgCh := make(chan workerMsg, 64)

	// Feeder: submission order is index order. Cancellation stops feeding so
	// queued items never leave Pending.
	go func() {
		defer close(itemCh)
		for _, item := range items {
			select {
			case itemCh <- item:
			case <-ctx.Done():
				return
			}
		}
	}()

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range itemCh {
				c.runItem(ctx, item, opts, len(items), msgCh)
			}
		}()
	}

	go func() {
		wg.Wait()
		close(msgCh)
	}()

	c.collect(session, agg, msgCh)
	return agg
}

// runItem is one unit of work: a single item pushed through the retry
// executor under the per-item deadline
func (c *Coordinator) runItem(ctx context.Context, item *domain.DownloadItem, opts domain.DownloadOptions, total int, msgCh chan<- workerMsg) {
	// Checked before the item starts; a cancelled session leaves queued
	// items untouched.
	if ctx.Err() != nil {
		msgCh <- workerMsg{item: item, done: true, skipped: true}
		return
	}

	itemCtx, cancel := context.WithTimeout(ctx, c.cfg.ItemTimeout)
	defer cancel()

	item.MarkDownloading()
	c.bus.Log(LevelDownload, fmt.Sprintf("Downloading [%d/%d]: %s", item.Index, total, domain.Truncate(item.Title, 30)))

	var filePath string
	executor := NewRetryExecutor(c.cfg.MaxAttempts, c.backoff)
	executor.Observer = func(attempt int, delay time.Duration, err error) {
		item.MarkRetrying()
		if domain.ClassifyError(err) == domain.FailureRateLimited {
			c.bus.Log(LevelWarning, fmt.Sprintf("Retry %d in %s (403 Forbidden)", attempt+1, delay))
		} else {
			c.bus.Log(LevelWarning, fmt.Sprintf("Retry %d in %s...", attempt+1, delay))
		}
	}

	outcome := executor.Execute(itemCtx, func(ctx context.Context) error {
		item.MarkDownloading()
		path, err := c.backend.Download(ctx, item.URL, opts, func(u domain.ProgressUpdate) {
			upd := u
			msgCh <- workerMsg{item: item, progress: &upd}
		})
		if err != nil {
			item.RecordAttemptFailure()
			c.logger.Warn("download attempt failed",
				zap.Int("item", item.Index),
				zap.String("url", item.URL),
				zap.Error(err))
			return err
		}
		filePath = path
		return nil
	})

	switch {
	case outcome.Err == nil:
		item.MarkCompleted(filePath)
	case outcome.Cancelled():
		item.MarkCancelled()
	case outcome.Kind == domain.FailureTimeout:
		item.MarkFailed(fmt.Errorf("download timed out after %s", c.cfg.ItemTimeout))
	default:
		item.MarkFailed(outcome.Err)
	}

	msgCh <- workerMsg{item: item, done: true, outcome: outcome}
}

// collect is the single consumer of worker messages. It owns the completed
// and failed counters and is the only writer to the aggregator, so progress
// computed from multiple workers stays race free.
func (c *Coordinator) collect(session *domain.DownloadSession, agg *ProgressAggregator, msgCh <-chan workerMsg) {
	completed, failed := 0, 0
	total := len(session.Items)
	lastBytes := make(map[int]int64)
	itemTotals := make(map[int]int64)

	for msg := range msgCh {
		if msg.progress != nil {
			u := msg.progress
			if u.Phase == domain.PhaseFinished {
				continue
			}
			agg.ObserveBytes(msg.item.Index, u.DownloadedBytes, u.TotalBytes, u.FragmentIndex, u.FragmentCount)

			// Best-effort session byte accounting; not every backend
			// reports bytes.
			if delta := u.DownloadedBytes - lastBytes[msg.item.Index]; delta > 0 {
				session.DownloadedBytes += delta
				lastBytes[msg.item.Index] = u.DownloadedBytes
			}
			if u.TotalBytes > 0 && itemTotals[msg.item.Index] == 0 {
				itemTotals[msg.item.Index] = u.TotalBytes
				session.TotalBytes += u.TotalBytes
			}

			c.bus.Progress(agg.Snapshot())
			continue
		}
		if !msg.done || msg.skipped {
			continue
		}

		switch msg.item.Status {
		case domain.StatusCompleted:
			completed++
			agg.ItemFinished(msg.item.Index)
			c.bus.Log(LevelSuccess, fmt.Sprintf("[%d] %s (%d/%d)",
				msg.item.Index, domain.Truncate(msg.item.Title, 30), completed+failed, total))
		case domain.StatusCancelled:
			agg.ItemAbandoned(msg.item.Index)
		default:
			failed++
			agg.ItemFailed(msg.item.Index)
			c.bus.Log(LevelError, fmt.Sprintf("[%d] failed: %s (%d/%d)",
				msg.item.Index, msg.item.ErrorMessage, completed+failed, total))
		}
		c.bus.Progress(agg.Snapshot())
	}
}
