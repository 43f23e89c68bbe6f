package store

import (
	"context"

	"github.com/nulzo/model-relay/internal/store/model"
)

// Repository is the journal's data layer.
type Repository interface {
	Requests() RequestRepository

	// WithTx runs fn against a repository bound to one transaction.
	WithTx(ctx context.Context, fn func(repo Repository) error) error

	Close() error
}

type RequestRepository interface {
	// Log stores a completed request.
	Log(ctx context.Context, log *model.RequestLog) error
	// GetByID returns one journal entry by request id.
	GetByID(ctx context.Context, id string) (*model.RequestLog, error)
	// GetRecent returns the last limit entries, newest first.
	GetRecent(ctx context.Context, limit int) ([]model.RequestLog, error)
	// GetDailyStats aggregates the last days per day and exposed model.
	GetDailyStats(ctx context.Context, days int) ([]model.DailyStats, error)
}
