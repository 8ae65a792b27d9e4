package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/rxvxrsx/revgrab/internal/domain"
)

// DiskChecker reports whether the download target has at least minFree
// megabytes available
type DiskChecker interface {
	HasFreeSpace(path string, minFreeMB int64) bool
}

// ResultRecorder receives the final result of every finished session.
// Implementations persist history or surface notifications; the engine
// itself keeps no state between sessions.
type ResultRecorder interface {
	RecordResult(session *domain.DownloadSession, result domain.SessionResult)
}

// SessionController drives one download session end to end: precondition
// checks, URL resolution, item construction, coordination, finalization and
// cancellation. At most one session is active per controller.
type SessionController struct {
	backend   domain.MediaBackend
	cfg       domain.EngineConfig
	disk      DiskChecker
	recorders []ResultRecorder
	bus       *EventBus
	logger    *zap.Logger

	startLimiter *rate.Limiter

	mu         sync.Mutex
	active     *activeSession
	lastResult *domain.SessionResult
}

type activeSession struct {
	session *domain.DownloadSession
	cancel  context.CancelFunc
	done    chan struct{}
	result  domain.SessionResult
}

// NewSessionController creates a controller
func NewSessionController(
	backend domain.MediaBackend,
	cfg domain.EngineConfig,
	disk DiskChecker,
	bus *EventBus,
	logger *zap.Logger,
	recorders ...ResultRecorder,
) *SessionController {
	spacing := cfg.StartSpacing
	if spacing <= 0 {
		spacing = time.Nanosecond
	}
	return &SessionController{
		backend:      backend,
		cfg:          cfg,
		disk:         disk,
		recorders:    recorders,
		bus:          bus,
		logger:       logger,
		startLimiter: rate.NewLimiter(rate.Every(spacing), 1),
	}
}

// Events exposes the controller's event stream
func (sc *SessionController) Events() *EventBus {
	return sc.bus
}

// StartSession validates preconditions, resolves the URL and launches the
// download in the background. It returns the new session's ID, or a
// precondition error before any item is attempted.
func (sc *SessionController) StartSession(url string, opts domain.DownloadOptions) (string, error) {
	if url == "" || !domain.ValidateURL(url) {
		return "", domain.ErrInvalidURL
	}
	if domain.IsDRMPlatform(url) {
		sc.bus.Log(LevelError, "DRM platform - Not supported")
		return "", domain.ErrDRMUnsupported
	}
	// Callers that don't pick a destination get the configured one, so the
	// disk check and the backend agree on where bytes land.
	if opts.OutputDir == "" {
		opts.OutputDir = sc.cfg.DownloadDir
	}
	if sc.disk != nil && !sc.disk.HasFreeSpace(opts.OutputDir, sc.cfg.MinFreeMB) {
		sc.bus.Log(LevelError, fmt.Sprintf("Insufficient disk space (need %dMB+)", sc.cfg.MinFreeMB))
		return "", domain.ErrInsufficientDiskSpace
	}

	sc.mu.Lock()
	if sc.active != nil {
		sc.mu.Unlock()
		return "", domain.ErrAlreadyDownloading
	}
	// Guard against accidental double-triggers: session starts must be at
	// least StartSpacing apart.
	if !sc.startLimiter.Allow() {
		sc.mu.Unlock()
		sc.bus.Log(LevelWarning, fmt.Sprintf("Please wait %s between downloads", sc.cfg.StartSpacing))
		return "", domain.ErrTooSoon
	}

	session := domain.NewSession(url)
	ctx, cancel := context.WithCancel(context.Background())
	active := &activeSession{
		session: session,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	sc.active = active
	sc.mu.Unlock()

	platform := domain.DetectPlatform(url)
	if platform == "" {
		platform = "Unknown"
	}
	sc.bus.Log(LevelDownload, fmt.Sprintf("[%s] Starting download...", platform))

	go sc.run(ctx, active, opts)

	return session.ID, nil
}

// run executes the session lifecycle in the background
func (sc *SessionController) run(ctx context.Context, active *activeSession, opts domain.DownloadOptions) {
	session := active.session
	defer func() {
		result := session.Finalize()
		active.result = result
		sc.report(session, result)

		sc.mu.Lock()
		sc.active = nil
		sc.lastResult = &result
		sc.mu.Unlock()
		close(active.done)
	}()

	items, err := sc.resolveItems(ctx, session.URL, opts)
	if err != nil {
		if ctx.Err() != nil {
			session.Cancel()
			return
		}
		sc.bus.Log(LevelError, fmt.Sprintf("Resolve failed: %s", domain.TruncateError(err)))
		sc.logger.Error("metadata resolution failed", zap.String("url", session.URL), zap.Error(err))

		// An unresolvable URL counts as one failed item so the session
		// outcome reflects the failure.
		item := domain.NewItem(session.URL, 1, "")
		item.MarkFailed(err)
		session.Items = []*domain.DownloadItem{item}
		return
	}
	session.Items = items

	sc.bus.Log(LevelInfo, fmt.Sprintf("Resolved %d item(s) | Concurrency: %d", len(items), sc.cfg.Concurrency))

	coordinator := NewCoordinator(sc.backend, sc.cfg, sc.bus, sc.logger)
	agg := coordinator.Run(ctx, session, opts)
	sc.bus.Progress(agg.Snapshot())
}

// resolveItems resolves the URL into the session's item list. Resolution is
// itself retryable with the same backoff policy as downloads.
func (sc *SessionController) resolveItems(ctx context.Context, url string, opts domain.DownloadOptions) ([]*domain.DownloadItem, error) {
	limit := opts.PlaylistLimit
	if limit <= 0 {
		limit = sc.cfg.PlaylistLimit
	}
	resolveCap := sc.cfg.ResolveCap
	if resolveCap <= 0 {
		resolveCap = 500
	}

	var meta *domain.Metadata
	executor := NewRetryExecutor(sc.cfg.MaxAttempts, Backoff{Base: sc.cfg.BackoffBase, Cap: sc.cfg.BackoffCap})
	executor.Observer = func(attempt int, delay time.Duration, err error) {
		sc.bus.Log(LevelWarning, fmt.Sprintf("Retrying preview in %s...", delay))
	}
	outcome := executor.Execute(ctx, func(ctx context.Context) error {
		m, err := sc.backend.Resolve(ctx, url, domain.ResolveOptions{PlaylistEnd: resolveCap})
		if err != nil {
			return err
		}
		meta = m
		return nil
	})
	if outcome.Err != nil {
		return nil, outcome.Err
	}

	// A true playlist needs more than one resolved entry. A single entry,
	// even under a playlist-shaped URL or the backend's playlist type tag,
	// is deliberately kept as a single item.
	isPlaylist := opts.Playlist && len(meta.Entries) > 1
	if !isPlaylist && len(meta.Entries) == 1 && domain.IsPlaylistURL(url) {
		sc.bus.Log(LevelInfo, "Playlist URL resolved to a single item")
	}

	var items []*domain.DownloadItem
	if isPlaylist && len(meta.Entries) > 0 {
		entries := meta.Entries
		if len(entries) > limit {
			entries = entries[:limit]
		}
		for i, entry := range entries {
			title := entry.Title
			if title == "" {
				title = fmt.Sprintf("Item %d", i+1)
			}
			items = append(items, domain.NewItem(entry.URL, i+1, title))
		}
	} else {
		title := meta.Title
		if title == "" && len(meta.Entries) == 1 {
			title = meta.Entries[0].Title
		}
		itemURL := url
		if len(meta.Entries) == 1 && meta.Entries[0].URL != "" {
			itemURL = meta.Entries[0].URL
		}
		items = append(items, domain.NewItem(itemURL, 1, title))
	}

	if len(items) == 0 {
		return nil, domain.ErrNoItems
	}
	return items, nil
}

// report logs the final summary and hands the result to every recorder
func (sc *SessionController) report(session *domain.DownloadSession, result domain.SessionResult) {
	switch result.Outcome {
	case domain.OutcomeAllSucceeded:
		sc.bus.Log(LevelSuccess, fmt.Sprintf("Complete: %d item(s) in %.1fs",
			result.Completed, result.Duration.Seconds()))
	case domain.OutcomeCancelled:
		sc.bus.Log(LevelWarning, "Download cancelled")
	default:
		sc.bus.Log(LevelWarning, fmt.Sprintf("Completed: %d, Failed: %d",
			result.Completed, result.Failed))
	}

	sc.logger.Info("session finished",
		zap.String("session_id", session.ID),
		zap.String("outcome", string(result.Outcome)),
		zap.Int("completed", result.Completed),
		zap.Int("failed", result.Failed),
		zap.Duration("duration", result.Duration))

	for _, r := range sc.recorders {
		r.RecordResult(session, result)
	}
}

// Cancel sets the session's cancellation signal. It is idempotent and
// synchronously interrupts in-flight backend subprocesses through context
// cancellation; queued items are never handed to a worker afterwards.
func (sc *SessionController) Cancel() {
	sc.mu.Lock()
	active := sc.active
	sc.mu.Unlock()
	if active == nil {
		return
	}

	if !active.session.IsCancelled() {
		sc.bus.Log(LevelWarning, "Cancelling download...")
	}
	active.session.Cancel()
	active.cancel()
}

// Current returns the active session, or nil
func (sc *SessionController) Current() *domain.DownloadSession {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if sc.active == nil {
		return nil
	}
	return sc.active.session
}

// Wait blocks until the session with the given ID finishes and returns its
// result. Results of already-finished sessions are returned immediately; an
// unknown ID returns false.
func (sc *SessionController) Wait(sessionID string) (domain.SessionResult, bool) {
	sc.mu.Lock()
	active := sc.active
	last := sc.lastResult
	sc.mu.Unlock()

	if active != nil && active.session.ID == sessionID {
		<-active.done
		return active.result, true
	}
	if last != nil && last.SessionID == sessionID {
		return *last, true
	}
	return domain.SessionResult{}, false
}
