package domain

import (
	"time"

	"github.com/google/uuid"
)

// ItemStatus represents the current status of a download item
type ItemStatus string

const (
	StatusPending     ItemStatus = "pending"
	StatusDownloading ItemStatus = "downloading"
	StatusCompleted   ItemStatus = "completed"
	StatusFailed      ItemStatus = "failed"
	StatusRetrying    ItemStatus = "retrying"
	StatusCancelled   ItemStatus = "cancelled"
)

// DownloadItem represents a single downloadable unit within a session.
// Index is the item's stable position in its session (1-based, resolution
// order). Exactly one worker owns an item for the duration of an attempt.
type DownloadItem struct {
	ID           string     `json:"id"`
	URL          string     `json:"url"`
	Index        int        `json:"index"`
	Title        string     `json:"title,omitempty"`
	Status       ItemStatus `json:"status"`
	RetryCount   int        `json:"retry_count"`
	ErrorMessage string     `json:"error_message,omitempty"`
	StartTime    *time.Time `json:"start_time,omitempty"`
	EndTime      *time.Time `json:"end_time,omitempty"`
	FilePath     string     `json:"file_path,omitempty"`
}

// NewItem creates a pending download item
func NewItem(url string, index int, title string) *DownloadItem {
	return &DownloadItem{
		ID:     uuid.New().String(),
		URL:    url,
		Index:  index,
		Title:  title,
		Status: StatusPending,
	}
}

// MarkDownloading marks the item as downloading and stamps its start time.
// The start time is only stamped once so retries keep the original.
func (i *DownloadItem) MarkDownloading() {
	if i.IsTerminal() {
		return
	}
	i.Status = StatusDownloading
	if i.StartTime == nil {
		now := time.Now()
		i.StartTime = &now
	}
}

// MarkRetrying marks the item as waiting for its next attempt
func (i *DownloadItem) MarkRetrying() {
	if i.IsTerminal() {
		return
	}
	i.Status = StatusRetrying
}

// RecordAttemptFailure bumps the retry counter after a failed attempt
func (i *DownloadItem) RecordAttemptFailure() {
	i.RetryCount++
}

// MarkCompleted marks the item as completed
func (i *DownloadItem) MarkCompleted(filePath string) {
	if i.IsTerminal() {
		return
	}
	i.Status = StatusCompleted
	i.FilePath = filePath
	now := time.Now()
	i.EndTime = &now
}

// MarkFailed marks the item as failed with a display-truncated reason
func (i *DownloadItem) MarkFailed(err error) {
	if i.IsTerminal() {
		return
	}
	i.Status = StatusFailed
	if err != nil {
		i.ErrorMessage = TruncateError(err)
	}
	now := time.Now()
	i.EndTime = &now
}

// MarkCancelled marks the item as cancelled. Cancelled is terminal but does
// not count as a failure.
func (i *DownloadItem) MarkCancelled() {
	if i.IsTerminal() {
		return
	}
	i.Status = StatusCancelled
	now := time.Now()
	i.EndTime = &now
}

// IsTerminal checks if the item reached a terminal state
func (i *DownloadItem) IsTerminal() bool {
	return i.Status == StatusCompleted || i.Status == StatusFailed || i.Status == StatusCancelled
}

// Duration returns how long the item spent downloading, zero if unknown
func (i *DownloadItem) Duration() time.Duration {
	if i.StartTime == nil || i.EndTime == nil {
		return 0
	}
	return i.EndTime.Sub(*i.StartTime)
}
