package infrastructure

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/rxvxrsx/revgrab/internal/domain"
)

// SessionRecord is the persisted form of a finished session
type SessionRecord struct {
	SessionID string    `gorm:"primaryKey" json:"session_id"`
	URL       string    `gorm:"index" json:"url"`
	Platform  string    `json:"platform"`
	Outcome   string    `gorm:"index" json:"outcome"`
	Completed int       `json:"completed"`
	Failed    int       `json:"failed"`
	Duration  float64   `json:"duration_seconds"`
	CreatedAt time.Time `json:"created_at"`
	Items     []ItemRecord `gorm:"foreignKey:SessionID;references:SessionID" json:"items,omitempty"`
}

// ItemRecord is the persisted form of one item within a session
type ItemRecord struct {
	ID           string `gorm:"primaryKey" json:"id"`
	SessionID    string `gorm:"index" json:"session_id"`
	URL          string `json:"url"`
	ItemIndex    int    `json:"index"`
	Title        string `json:"title"`
	Status       string `json:"status"`
	RetryCount   int    `json:"retry_count"`
	ErrorMessage string `json:"error,omitempty"`
	FilePath     string `json:"file_path,omitempty"`
}

// SQLiteHistoryStore persists finished sessions for later inspection. It is
// write-behind: a failed insert never disturbs the session that produced it.
type SQLiteHistoryStore struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewSQLiteHistoryStore opens (and migrates) the history database
func NewSQLiteHistoryStore(dbPath string, zl *zap.Logger) (*SQLiteHistoryStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.AutoMigrate(&SessionRecord{}, &ItemRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &SQLiteHistoryStore{db: db, logger: zl}, nil
}

// RecordResult implements app.ResultRecorder
func (s *SQLiteHistoryStore) RecordResult(session *domain.DownloadSession, result domain.SessionResult) {
	record := SessionRecord{
		SessionID: result.SessionID,
		URL:       result.URL,
		Platform:  domain.DetectPlatform(result.URL),
		Outcome:   string(result.Outcome),
		Completed: result.Completed,
		Failed:    result.Failed,
		Duration:  result.Duration.Seconds(),
		CreatedAt: session.StartTime,
	}
	for _, item := range session.Items {
		record.Items = append(record.Items, ItemRecord{
			ID:           item.ID,
			SessionID:    result.SessionID,
			URL:          item.URL,
			ItemIndex:    item.Index,
			Title:        item.Title,
			Status:       string(item.Status),
			RetryCount:   item.RetryCount,
			ErrorMessage: item.ErrorMessage,
			FilePath:     item.FilePath,
		})
	}

	if err := s.db.Create(&record).Error; err != nil {
		s.logger.Error("failed to record session history",
			zap.String("session_id", result.SessionID),
			zap.Error(err))
	}
}

// Recent returns the most recent sessions, newest first
func (s *SQLiteHistoryStore) Recent(limit int) ([]SessionRecord, error) {
	if limit < 1 {
		limit = 20
	}
	var records []SessionRecord
	err := s.db.Order("created_at DESC").Limit(limit).Find(&records).Error
	return records, err
}

// Get returns one session with its items
func (s *SQLiteHistoryStore) Get(sessionID string) (*SessionRecord, error) {
	var record SessionRecord
	err := s.db.Preload("Items").First(&record, "session_id = ?", sessionID).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// CountByOutcome returns how many sessions finished with the given outcome
func (s *SQLiteHistoryStore) CountByOutcome(outcome domain.SessionOutcome) (int64, error) {
	var count int64
	err := s.db.Model(&SessionRecord{}).Where("outcome = ?", string(outcome)).Count(&count).Error
	return count, err
}
