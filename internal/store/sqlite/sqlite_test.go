package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/nulzo/model-relay/internal/store"
	"github.com/nulzo/model-relay/internal/store/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newRepo(t *testing.T) store.Repository {
	t.Helper()
	repo, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "relay.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func entry(id, exposed string, status int, streamed bool, at time.Time) *model.RequestLog {
	return &model.RequestLog{
		ID:             id,
		Backend:        "deepseek",
		Endpoint:       "https://api.deepseek.com/v1/chat/completions",
		RequestedModel: exposed,
		ExposedModel:   exposed,
		UpstreamModel:  "deepseek-chat",
		SelectReason:   "exact_match",
		ResponseMode:   "buffered",
		IsStreamed:     streamed,
		StatusCode:     status,
		LatencyMS:      120,
		CreatedAt:      at,
	}
}

func TestRequests_LogAndGet(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, repo.Requests().Log(ctx, entry("req-1", "gpt-4", 200, true, now)))

	got, err := repo.Requests().GetByID(ctx, "req-1")
	require.NoError(t, err)
	assert.Equal(t, "deepseek", got.Backend)
	assert.Equal(t, "deepseek-chat", got.UpstreamModel)
	assert.True(t, got.IsStreamed)
	assert.WithinDuration(t, now, got.CreatedAt, time.Second)

	_, err = repo.Requests().GetByID(ctx, "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestRequests_GetRecentNewestFirst(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	base := time.Now().Add(-time.Hour)

	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, repo.Requests().Log(ctx, entry(id, "gpt-4", 200, false, base.Add(time.Duration(i)*time.Minute))))
	}

	logs, err := repo.Requests().GetRecent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, "c", logs[0].ID)
	assert.Equal(t, "b", logs[1].ID)
}

func TestRequests_DailyStatsPerModel(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, repo.Requests().Log(ctx, entry("1", "gpt-4", 200, true, now)))
	require.NoError(t, repo.Requests().Log(ctx, entry("2", "gpt-4", 429, false, now)))
	require.NoError(t, repo.Requests().Log(ctx, entry("3", "kimi", 200, true, now)))
	require.NoError(t, repo.Requests().Log(ctx, entry("old", "gpt-4", 200, false, now.AddDate(0, 0, -30))))

	stats, err := repo.Requests().GetDailyStats(ctx, 7)
	require.NoError(t, err)
	require.Len(t, stats, 2)

	assert.Equal(t, now.UTC().Format("2006-01-02"), stats[0].Date)
	assert.Equal(t, "gpt-4", stats[0].Model)
	assert.Equal(t, 2, stats[0].TotalRequests)
	assert.Equal(t, 1, stats[0].StreamedRequests)
	assert.Equal(t, 1, stats[0].ErrorCount)
	assert.InDelta(t, 120.0, stats[0].AverageLatency, 0.001)

	assert.Equal(t, "kimi", stats[1].Model)
	assert.Equal(t, 1, stats[1].TotalRequests)
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := repo.WithTx(ctx, func(tx store.Repository) error {
		require.NoError(t, tx.Requests().Log(ctx, entry("tx-1", "gpt-4", 200, false, time.Now())))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = repo.Requests().GetByID(ctx, "tx-1")
	assert.ErrorIs(t, err, sql.ErrNoRows)

	require.NoError(t, repo.WithTx(ctx, func(tx store.Repository) error {
		return tx.Requests().Log(ctx, entry("tx-2", "gpt-4", 200, false, time.Now()))
	}))
	_, err = repo.Requests().GetByID(ctx, "tx-2")
	assert.NoError(t, err)
}

func TestNewSQLiteStorage_ReopenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "relay.db")

	first, err := NewSQLiteStorage(path, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := NewSQLiteStorage(path, zap.NewNop())
	require.NoError(t, err)
	assert.NoError(t, second.Close())
}
