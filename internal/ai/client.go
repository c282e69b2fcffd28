package ai

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/nguyentantai21042004/voice-merge/internal/metrics"
	"github.com/nguyentantai21042004/voice-merge/internal/retry"
)

// ErrMissingAPIKey is returned when the credential env var is empty.
var ErrMissingAPIKey = errors.New("missing API key")

// KeyFunc resolves the API credential. Backends call it on every request.
type KeyFunc func() (string, error)

// EnvKey reads the credential from the named environment variable at call time.
func EnvKey(name string) KeyFunc {
	return func() (string, error) {
		key := os.Getenv(name)
		if key == "" {
			return "", fmt.Errorf("%w: %s is not set", ErrMissingAPIKey, name)
		}
		return key, nil
	}
}

// Transcribe sends the audio with the fixed transcription instruction.
func (c *implClient) Transcribe(ctx context.Context, audio Audio) (string, error) {
	start := time.Now()
	text, err := retry.Do(ctx, c.retryPolicy(ctx, metrics.OpTranscribe), func(ctx context.Context) (string, error) {
		return c.backend.GenerateFromAudio(ctx, c.models.Transcribe, transcribePrompt, audio)
	})
	c.metrics.ObserveCall(metrics.OpTranscribe, err, time.Since(start))
	if err != nil {
		return "", fmt.Errorf("transcribe %s: %w", audio.Name, err)
	}

	if text == "" {
		c.logger.Warn(ctx, "Model returned no text for %s", audio.Name)
		return TranscriptionFallback, nil
	}
	return text, nil
}

// Summarize asks the summary model for a summary of text.
func (c *implClient) Summarize(ctx context.Context, text string) (string, error) {
	prompt := summaryPrompt + "\n\n" + text

	start := time.Now()
	summary, err := retry.Do(ctx, c.retryPolicy(ctx, metrics.OpSummarize), func(ctx context.Context) (string, error) {
		return c.backend.GenerateFromText(ctx, c.models.Summarize, prompt)
	})
	c.metrics.ObserveCall(metrics.OpSummarize, err, time.Since(start))
	if err != nil {
		return "", fmt.Errorf("summarize: %w", err)
	}

	if summary == "" {
		c.logger.Warn(ctx, "Model returned no summary text")
		return SummaryFallback, nil
	}
	return summary, nil
}

func (c *implClient) retryPolicy(ctx context.Context, operation string) retry.Policy {
	p := c.policy
	next := p.OnRetry
	p.OnRetry = func(attempt int, delay time.Duration, err error) {
		c.logger.Warn(ctx, "%s rate limited, retrying in %s (attempt %d/%d): %v",
			operation, delay, attempt, p.MaxAttempts, err)
		c.metrics.ObserveRetry(operation)
		if next != nil {
			next(attempt, delay, err)
		}
	}
	return p
}
