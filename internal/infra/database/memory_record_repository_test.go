package database

import (
	"context"
	"testing"
	"time"

	"enforcement_watch_bot/internal/domain/record"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func storedRecord(key, org string, date time.Time, runID string) *record.EnforcementRecord {
	return &record.EnforcementRecord{
		IdentityKey:    key,
		Organisation:   org,
		ActionDate:     date,
		Summary:        org + " summary",
		PageURL:        "https://ico.org.uk/action-weve-taken/enforcement/" + key + "/",
		FirstSeenRunID: runID,
	}
}

func TestUpsertInsertsAndGetByKeyReads(t *testing.T) {
	repo := NewInMemoryRecordRepository()
	rec := storedRecord("k1", "Alpha", time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC), "run-1")

	require.NoError(t, repo.Upsert(context.Background(), rec))

	got, err := repo.GetByKey(context.Background(), "k1")
	require.NoError(t, err)
	assert.Equal(t, "Alpha", got.Organisation)
	assert.Equal(t, "run-1", got.FirstSeenRunID)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestUpsertRefreshesDisplayFieldsOnly(t *testing.T) {
	repo := NewInMemoryRecordRepository()
	date := time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Upsert(context.Background(), storedRecord("k1", "Alpha", date, "run-1")))

	first, err := repo.GetByKey(context.Background(), "k1")
	require.NoError(t, err)

	revised := storedRecord("k1", "Alpha Ltd", date, "run-2")
	revised.Summary = "revised wording"
	require.NoError(t, repo.Upsert(context.Background(), revised))

	got, err := repo.GetByKey(context.Background(), "k1")
	require.NoError(t, err)
	assert.Equal(t, "Alpha Ltd", got.Organisation)
	assert.Equal(t, "revised wording", got.Summary)
	// Identity bookkeeping is owned by the first run that stored the record.
	assert.Equal(t, "run-1", got.FirstSeenRunID)
	assert.Equal(t, first.CreatedAt, got.CreatedAt)
	// The caller's record reflects the preserved values too.
	assert.Equal(t, "run-1", revised.FirstSeenRunID)
}

func TestGetByKeyNotFound(t *testing.T) {
	repo := NewInMemoryRecordRepository()
	_, err := repo.GetByKey(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrRecordNotFound)
}

func TestKnownKeys(t *testing.T) {
	repo := NewInMemoryRecordRepository()
	date := time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Upsert(context.Background(), storedRecord("k1", "Alpha", date, "run-1")))
	require.NoError(t, repo.Upsert(context.Background(), storedRecord("k2", "Bravo", date, "run-1")))

	keys, err := repo.KnownKeys(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]struct{}{"k1": {}, "k2": {}}, keys)
}

func TestListRecentOrdersByActionDate(t *testing.T) {
	repo := NewInMemoryRecordRepository()
	require.NoError(t, repo.Upsert(context.Background(), storedRecord("old", "Old Org", time.Date(2019, 5, 1, 0, 0, 0, 0, time.UTC), "run-1")))
	require.NoError(t, repo.Upsert(context.Background(), storedRecord("new", "New Org", time.Date(2021, 5, 1, 0, 0, 0, 0, time.UTC), "run-1")))
	require.NoError(t, repo.Upsert(context.Background(), storedRecord("mid", "Mid Org", time.Date(2020, 5, 1, 0, 0, 0, 0, time.UTC), "run-1")))

	recent, err := repo.ListRecent(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "new", recent[0].IdentityKey)
	assert.Equal(t, "mid", recent[1].IdentityKey)
}

func TestListRecentReturnsCopies(t *testing.T) {
	repo := NewInMemoryRecordRepository()
	date := time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Upsert(context.Background(), storedRecord("k1", "Alpha", date, "run-1")))

	recent, err := repo.ListRecent(context.Background(), 1)
	require.NoError(t, err)
	recent[0].Organisation = "Mutated"

	got, err := repo.GetByKey(context.Background(), "k1")
	require.NoError(t, err)
	assert.Equal(t, "Alpha", got.Organisation)
}
