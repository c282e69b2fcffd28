package processor

import (
	"context"
	"time"

	"github.com/nguyentantai21042004/voice-merge/internal/ai"
	"github.com/nguyentantai21042004/voice-merge/internal/config"
	"github.com/nguyentantai21042004/voice-merge/internal/logger"
	"github.com/nguyentantai21042004/voice-merge/internal/metrics"
	"github.com/nguyentantai21042004/voice-merge/internal/queue"
	"github.com/nguyentantai21042004/voice-merge/internal/session"
)

type implProcessor struct {
	queue   *queue.Queue
	session *session.Session
	client  ai.Client
	metrics *metrics.Metrics
	logger  logger.Logger

	delay time.Duration
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a new Processor instance
func New(cfg *config.Config, q *queue.Queue, sess *session.Session, client ai.Client, m *metrics.Metrics, log logger.Logger) Processor {
	return &implProcessor{
		queue:   q,
		session: sess,
		client:  client,
		metrics: m,
		logger:  log,
		delay:   cfg.Batch.InterFileDelay,
		sleep:   sleepContext,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
