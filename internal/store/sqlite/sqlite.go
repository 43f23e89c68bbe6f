package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/nulzo/model-relay/internal/store"
	"github.com/nulzo/model-relay/internal/store/model"
)

// DB is satisfied by *sqlx.DB and *sqlx.Tx.
type DB interface {
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	NamedExecContext(ctx context.Context, query string, arg interface{}) (sql.Result, error)
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

type SqliteRepository struct {
	db       *sqlx.DB // for starting transactions
	executor DB
}

func NewSqliteRepository(db *sqlx.DB) *SqliteRepository {
	return &SqliteRepository{
		db:       db,
		executor: db,
	}
}

func (r *SqliteRepository) Close() error {
	return r.db.Close()
}

func (r *SqliteRepository) WithTx(ctx context.Context, fn func(repo store.Repository) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}

	txRepo := &SqliteRepository{
		db:       r.db,
		executor: tx,
	}

	if err := fn(txRepo); err != nil {
		_ = tx.Rollback()
		return err
	}

	return tx.Commit()
}

func (r *SqliteRepository) Requests() store.RequestRepository {
	return &requestRepo{db: r.executor}
}

type requestRepo struct {
	db DB
}

func (r *requestRepo) Log(ctx context.Context, log *model.RequestLog) error {
	query := `
	INSERT INTO request_logs (
		id, backend, endpoint, requested_model, exposed_model, upstream_model,
		select_reason, response_mode, is_streamed, status_code, latency_ms,
		error_message, ip_address, user_agent, created_at
	) VALUES (
		:id, :backend, :endpoint, :requested_model, :exposed_model, :upstream_model,
		:select_reason, :response_mode, :is_streamed, :status_code, :latency_ms,
		:error_message, :ip_address, :user_agent, :created_at
	)`
	row := *log
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now()
	}
	row.CreatedAt = row.CreatedAt.UTC().Truncate(time.Millisecond)

	if _, err := r.db.NamedExecContext(ctx, query, &row); err != nil {
		return fmt.Errorf("insert request log %s: %w", log.ID, err)
	}
	return nil
}

func (r *requestRepo) GetByID(ctx context.Context, id string) (*model.RequestLog, error) {
	var log model.RequestLog
	if err := r.db.GetContext(ctx, &log, `SELECT * FROM request_logs WHERE id = ?`, id); err != nil {
		return nil, err
	}
	return &log, nil
}

func (r *requestRepo) GetRecent(ctx context.Context, limit int) ([]model.RequestLog, error) {
	var logs []model.RequestLog
	query := `SELECT * FROM request_logs ORDER BY created_at DESC LIMIT ?`
	err := r.db.SelectContext(ctx, &logs, query, limit)
	return logs, err
}

func (r *requestRepo) GetDailyStats(ctx context.Context, days int) ([]model.DailyStats, error) {
	stats := []model.DailyStats{}
	query := `
		SELECT
			DATE(created_at) AS date,
			exposed_model AS model,
			COUNT(*) AS total_requests,
			SUM(CASE WHEN is_streamed THEN 1 ELSE 0 END) AS streamed_requests,
			SUM(CASE WHEN status_code >= 400 THEN 1 ELSE 0 END) AS error_count,
			AVG(latency_ms) AS avg_latency
		FROM request_logs
		WHERE created_at >= DATE('now', ?)
		GROUP BY date, model
		ORDER BY date DESC, model ASC
	`
	// sqlite offsets look like '-7 days'
	err := r.db.SelectContext(ctx, &stats, query, fmt.Sprintf("-%d days", days))
	return stats, err
}
