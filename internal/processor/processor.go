package processor

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/nguyentantai21042004/voice-merge/internal/ai"
	"github.com/nguyentantai21042004/voice-merge/internal/queue"
)

// TranscribeAll transcribes every queued file in order and builds the
// combined document. The first unrecoverable error aborts the rest of the
// batch; sections already written stay in the document.
func (p *implProcessor) TranscribeAll(ctx context.Context) error {
	run, err := p.StartBatch()
	if err != nil {
		return err
	}
	return run(ctx)
}

// StartBatch claims the session for a batch over the files queued right now.
// Files removed from the queue afterwards are still transcribed by this run.
func (p *implProcessor) StartBatch() (Run, error) {
	unpin := p.queue.Pin()
	entries := p.queue.List()
	if len(entries) == 0 {
		unpin()
		return nil, ErrNoFiles
	}
	if err := p.session.BeginBatch(len(entries)); err != nil {
		unpin()
		return nil, err
	}

	return func(ctx context.Context) error {
		defer unpin()
		return p.batch(ctx, entries)
	}, nil
}

func (p *implProcessor) batch(ctx context.Context, entries []queue.Entry) error {
	startTime := time.Now()
	p.logger.Info(ctx, "========================================")
	p.logger.Info(ctx, "Starting batch: %d files", len(entries))
	p.logger.Info(ctx, "========================================")

	err := p.runBatch(ctx, entries)
	duration := time.Since(startTime)
	p.metrics.ObserveBatch(err, duration)

	if err != nil {
		p.logger.Error(ctx, "Batch aborted after %s: %v", duration, err)
		p.session.End(batchMessage(err))
		return fmt.Errorf("transcribe batch: %w", err)
	}

	p.session.End("")
	p.logger.Info(ctx, "Batch completed: %d files in %s", len(entries), duration)
	return nil
}

func (p *implProcessor) runBatch(ctx context.Context, entries []queue.Entry) error {
	var doc strings.Builder

	for i, entry := range entries {
		audio, err := encode(entry)
		if err != nil {
			return err
		}

		header := Header(entry.Name)
		p.session.SetText(doc.String() + header + placeholder)

		p.logger.Info(ctx, "[%d/%d] Transcribing: %s (%s, %d bytes)",
			i+1, len(entries), entry.Name, entry.MIMEType, len(audio.Data))

		text, err := p.client.Transcribe(ctx, audio)
		if err != nil {
			return err
		}

		doc.WriteString(header)
		doc.WriteString(text)
		doc.WriteString("\n\n")
		p.session.SetText(doc.String())
		p.session.Advance(i + 1)
		p.metrics.BatchFiles.Inc()

		// Pause between files, not after the last, to stay under the quota.
		if i < len(entries)-1 {
			if err := p.sleep(ctx, p.delay); err != nil {
				return err
			}
		}
	}

	return nil
}

// encode loads the entry's bytes for upload. The provider SDK base64-encodes
// them on the wire.
func encode(entry queue.Entry) (ai.Audio, error) {
	data, err := os.ReadFile(entry.Path)
	if err != nil {
		return ai.Audio{}, fmt.Errorf("read %s: %w", entry.Name, err)
	}
	return ai.Audio{
		Name:     entry.Name,
		MIMEType: entry.MIMEType,
		Data:     data,
	}, nil
}

// Summarize asks for a summary of the document as it currently reads,
// including any user edits. An empty document is a no-op.
func (p *implProcessor) Summarize(ctx context.Context) error {
	run, err := p.StartSummary()
	if err != nil {
		return err
	}
	return run(ctx)
}

// StartSummary claims the session for a summary of the current document.
// Edits are blocked from BeginSummary on, so the returned text is what the
// run summarizes.
func (p *implProcessor) StartSummary() (Run, error) {
	text, err := p.session.BeginSummary()
	if err != nil {
		return nil, err
	}

	return func(ctx context.Context) error {
		return p.summarize(ctx, text)
	}, nil
}

func (p *implProcessor) summarize(ctx context.Context, text string) error {
	p.logger.Info(ctx, "Summarizing document (%d chars)", len(text))

	summary, err := p.client.Summarize(ctx, text)
	if err != nil {
		p.logger.Error(ctx, "Summary failed: %v", err)
		p.session.End(summaryMessage(err))
		return fmt.Errorf("summarize document: %w", err)
	}

	p.session.SetSummary(summary)
	p.session.End("")
	p.logger.Info(ctx, "Summary ready (%d chars)", len(summary))
	return nil
}
