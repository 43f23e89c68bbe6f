package analytics

import (
	"context"
	"sync"
	"time"

	"github.com/nulzo/model-relay/internal/store"
	"github.com/nulzo/model-relay/internal/store/model"
	"go.uber.org/zap"
)

// Ingestor persists journal entries off the request path.
type Ingestor interface {
	Log(log *model.RequestLog)
	Start(ctx context.Context)
	// Stop flushes what is buffered and waits for the worker.
	Stop()
}

type IngestorOptions struct {
	Buffer    int
	BatchSize int
	FlushTime time.Duration
}

func (o IngestorOptions) withDefaults() IngestorOptions {
	if o.Buffer <= 0 {
		o.Buffer = 10000
	}
	if o.BatchSize <= 0 {
		o.BatchSize = 50
	}
	if o.FlushTime <= 0 {
		o.FlushTime = 5 * time.Second
	}
	return o
}

type ingestor struct {
	logger    *zap.Logger
	repo      store.Repository
	logChan   chan *model.RequestLog
	batchSize int
	flushTime time.Duration

	stopOnce sync.Once
	wg       sync.WaitGroup
	mu       sync.RWMutex
	stopped  bool
}

func NewIngestor(logger *zap.Logger, repo store.Repository, opts IngestorOptions) Ingestor {
	opts = opts.withDefaults()
	return &ingestor{
		logger:    logger,
		repo:      repo,
		logChan:   make(chan *model.RequestLog, opts.Buffer),
		batchSize: opts.BatchSize,
		flushTime: opts.FlushTime,
	}
}

// Log never blocks; entries are dropped when the buffer is full.
func (i *ingestor) Log(log *model.RequestLog) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	if i.stopped {
		return
	}

	select {
	case i.logChan <- log:
	default:
		i.logger.Warn("Journal buffer full, dropping entry", zap.String("request_id", log.ID))
	}
}

func (i *ingestor) Start(ctx context.Context) {
	i.wg.Add(1)
	go i.worker(ctx)
}

func (i *ingestor) Stop() {
	i.stopOnce.Do(func() {
		i.mu.Lock()
		i.stopped = true
		close(i.logChan)
		i.mu.Unlock()
	})
	i.wg.Wait()
}

func (i *ingestor) worker(ctx context.Context) {
	defer i.wg.Done()

	batch := make([]*model.RequestLog, 0, i.batchSize)
	ticker := time.NewTicker(i.flushTime)
	defer ticker.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		wctx := context.WithoutCancel(ctx)
		err := i.repo.WithTx(wctx, func(tx store.Repository) error {
			for _, log := range batch {
				if err := tx.Requests().Log(wctx, log); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			i.logger.Error("Failed to persist journal batch", zap.Int("entries", len(batch)), zap.Error(err))
		}
		batch = batch[:0]
	}

	// After cancellation the worker keeps draining until Stop closes the
	// channel, so requests finishing during server shutdown are persisted.
	done := ctx.Done()
	for {
		select {
		case log, ok := <-i.logChan:
			if !ok {
				flush()
				return
			}
			batch = append(batch, log)
			if len(batch) >= i.batchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-done:
			flush()
			done = nil
		}
	}
}
