package infrastructure

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rxvxrsx/revgrab/internal/domain"
)

func newTestStore(t *testing.T) *SQLiteHistoryStore {
	t.Helper()
	store, err := NewSQLiteHistoryStore(filepath.Join(t.TempDir(), "history.db"), testLogger())
	require.NoError(t, err)
	return store
}

func finishedSession(id string) (*domain.DownloadSession, domain.SessionResult) {
	session := domain.NewSession("https://youtube.com/playlist?list=PLabc")
	session.ID = id
	session.Items = []*domain.DownloadItem{
		domain.NewItem("https://youtube.com/watch?v=1", 1, "One"),
		domain.NewItem("https://youtube.com/watch?v=2", 2, "Two"),
	}
	session.Items[0].MarkCompleted("/tmp/one.mp4")
	session.Items[1].MarkFailed(errors.New("boom"))
	return session, session.Finalize()
}

func TestSQLiteHistoryStore_RecordAndGet(t *testing.T) {
	store := newTestStore(t)

	session, result := finishedSession("20260829_120000")
	store.RecordResult(session, result)

	record, err := store.Get("20260829_120000")
	require.NoError(t, err)
	assert.Equal(t, "https://youtube.com/playlist?list=PLabc", record.URL)
	assert.Equal(t, "YouTube", record.Platform)
	assert.Equal(t, string(domain.OutcomePartialFailure), record.Outcome)
	assert.Equal(t, 1, record.Completed)
	assert.Equal(t, 1, record.Failed)

	require.Len(t, record.Items, 2)
	assert.Equal(t, string(domain.StatusCompleted), record.Items[0].Status)
	assert.Equal(t, "/tmp/one.mp4", record.Items[0].FilePath)
	assert.Equal(t, string(domain.StatusFailed), record.Items[1].Status)
	assert.Equal(t, "boom", record.Items[1].ErrorMessage)
}

func TestSQLiteHistoryStore_RecentOrderedNewestFirst(t *testing.T) {
	store := newTestStore(t)

	for i, id := range []string{"20260829_100000", "20260829_110000", "20260829_120000"} {
		session, result := finishedSession(id)
		session.StartTime = time.Date(2026, 8, 29, 10+i, 0, 0, 0, time.UTC)
		store.RecordResult(session, result)
	}

	records, err := store.Recent(2)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "20260829_120000", records[0].SessionID)
	assert.Equal(t, "20260829_110000", records[1].SessionID)
}

func TestSQLiteHistoryStore_GetUnknownSession(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Get("nope")
	assert.Error(t, err)
}

func TestSQLiteHistoryStore_CountByOutcome(t *testing.T) {
	store := newTestStore(t)

	session, result := finishedSession("20260829_120000")
	store.RecordResult(session, result)

	count, err := store.CountByOutcome(domain.OutcomePartialFailure)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	count, err = store.CountByOutcome(domain.OutcomeCancelled)
	require.NoError(t, err)
	assert.Zero(t, count)
}
