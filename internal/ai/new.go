package ai

import (
	"github.com/nguyentantai21042004/voice-merge/internal/logger"
	"github.com/nguyentantai21042004/voice-merge/internal/metrics"
	"github.com/nguyentantai21042004/voice-merge/internal/retry"
)

// Models names the remote model used for each operation.
type Models struct {
	Transcribe string
	Summarize  string
}

type implClient struct {
	backend Backend
	models  Models
	policy  retry.Policy
	metrics *metrics.Metrics
	logger  logger.Logger
}

// New creates a Client over backend. Both operations share the same retry
// policy but retry independently.
func New(backend Backend, models Models, policy retry.Policy, m *metrics.Metrics, log logger.Logger) Client {
	return &implClient{
		backend: backend,
		models:  models,
		policy:  policy,
		metrics: m,
		logger:  log,
	}
}
