package domain

import (
	"sync"
	"time"
)

// SessionOutcome classifies how a session ended
type SessionOutcome string

const (
	OutcomeAllSucceeded   SessionOutcome = "all_succeeded"
	OutcomePartialFailure SessionOutcome = "partial_failure"
	OutcomeAllFailed      SessionOutcome = "all_failed"
	OutcomeCancelled      SessionOutcome = "cancelled"
)

// DownloadSession represents one user-initiated download run covering one or
// many items. A session owns its items exclusively and is discarded once the
// final result has been reported; at most one session is active per engine.
type DownloadSession struct {
	ID              string          `json:"session_id"`
	URL             string          `json:"url"`
	Items           []*DownloadItem `json:"items"`
	StartTime       time.Time       `json:"start_time"`
	EndTime         *time.Time      `json:"end_time,omitempty"`
	TotalBytes      int64           `json:"total_bytes"`
	DownloadedBytes int64           `json:"downloaded_bytes"`

	mu        sync.Mutex
	cancelled bool
}

// NewSession creates a session whose ID is derived from its creation time
func NewSession(url string) *DownloadSession {
	return &DownloadSession{
		ID:        time.Now().Format("20060102_150405"),
		URL:       url,
		StartTime: time.Now(),
	}
}

// CompletedCount returns the number of completed items
func (s *DownloadSession) CompletedCount() int {
	n := 0
	for _, item := range s.Items {
		if item.Status == StatusCompleted {
			n++
		}
	}
	return n
}

// FailedCount returns the number of failed items
func (s *DownloadSession) FailedCount() int {
	n := 0
	for _, item := range s.Items {
		if item.Status == StatusFailed {
			n++
		}
	}
	return n
}

// Progress returns completed items over total items, 0 for an empty session
func (s *DownloadSession) Progress() float64 {
	if len(s.Items) == 0 {
		return 0
	}
	return float64(s.CompletedCount()) / float64(len(s.Items))
}

// Cancel marks the session cancelled. The flag is monotonic: once set it
// never clears, and repeated calls are no-ops.
func (s *DownloadSession) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelled = true
}

// IsCancelled reports whether the session was cancelled
func (s *DownloadSession) IsCancelled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancelled
}

// Finalize stamps the end time and computes the session outcome
func (s *DownloadSession) Finalize() SessionResult {
	now := time.Now()
	s.EndTime = &now

	completed := s.CompletedCount()
	failed := s.FailedCount()

	outcome := OutcomeAllSucceeded
	switch {
	case s.IsCancelled():
		outcome = OutcomeCancelled
	case len(s.Items) > 0 && completed == 0 && failed > 0:
		outcome = OutcomeAllFailed
	case failed > 0:
		outcome = OutcomePartialFailure
	}

	return SessionResult{
		SessionID: s.ID,
		URL:       s.URL,
		Completed: completed,
		Failed:    failed,
		Duration:  now.Sub(s.StartTime),
		Outcome:   outcome,
	}
}

// SessionResult is the final summary reported to the caller
type SessionResult struct {
	SessionID string         `json:"session_id"`
	URL       string         `json:"url"`
	Completed int            `json:"completed"`
	Failed    int            `json:"failed"`
	Duration  time.Duration  `json:"duration"`
	Outcome   SessionOutcome `json:"outcome"`
}
