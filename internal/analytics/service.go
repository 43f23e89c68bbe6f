package analytics

import (
	"context"

	"github.com/nulzo/model-relay/internal/store"
	"github.com/nulzo/model-relay/internal/store/model"
)

const (
	DefaultDays = 7
	MaxDays     = 365
)

type Service interface {
	GetUsageOverview(ctx context.Context, days int) ([]model.DailyStats, error)
	GetRecent(ctx context.Context, limit int) ([]model.RequestLog, error)
}

type service struct {
	repo store.Repository
}

func NewService(repo store.Repository) Service {
	return &service{repo: repo}
}

func (s *service) GetUsageOverview(ctx context.Context, days int) ([]model.DailyStats, error) {
	switch {
	case days <= 0:
		days = DefaultDays
	case days > MaxDays:
		days = MaxDays
	}
	return s.repo.Requests().GetDailyStats(ctx, days)
}

func (s *service) GetRecent(ctx context.Context, limit int) ([]model.RequestLog, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	return s.repo.Requests().GetRecent(ctx, limit)
}
