package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisRecorder pushes entries onto a capped redis list, newest first.
type RedisRecorder struct {
	client  redis.UniversalClient
	key     string
	maxLen  int64
	timeout time.Duration
	logger  *zap.Logger
}

type RedisOptions struct {
	Key     string
	MaxLen  int64
	Timeout time.Duration
}

func NewRedisRecorder(client redis.UniversalClient, opts RedisOptions, logger *zap.Logger) *RedisRecorder {
	if opts.Key == "" {
		opts.Key = "relay:audit"
	}
	if opts.MaxLen <= 0 {
		opts.MaxLen = 10000
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 250 * time.Millisecond
	}
	return &RedisRecorder{
		client:  client,
		key:     opts.Key,
		maxLen:  opts.MaxLen,
		timeout: opts.Timeout,
		logger:  logger,
	}
}

func (r *RedisRecorder) Record(ctx context.Context, e Entry) {
	data, err := json.Marshal(e)
	if err != nil {
		r.logger.Debug("audit entry not serializable", zap.String("event", e.Event), zap.Error(err))
		return
	}

	// detached from the request so a client disconnect does not drop the trace
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
	defer cancel()

	pipe := r.client.Pipeline()
	pipe.LPush(ctx, r.key, data)
	pipe.LTrim(ctx, r.key, 0, r.maxLen-1)
	if _, err := pipe.Exec(ctx); err != nil {
		r.logger.Debug("audit push to redis failed", zap.String("key", r.key), zap.Error(err))
	}
}

func (r *RedisRecorder) Close() error {
	return r.client.Close()
}
