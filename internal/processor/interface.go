package processor

import "context"

// Processor drives the transcription session: a sequential batch over the
// queued files and on-demand summaries of the resulting document.
type Processor interface {
	TranscribeAll(ctx context.Context) error
	Summarize(ctx context.Context) error

	// StartBatch and StartSummary claim the session synchronously and return
	// the remaining work, so callers can report ErrBusy before going async.
	StartBatch() (Run, error)
	StartSummary() (Run, error)
}

// Run is the part of a batch or summary that talks to the remote model.
type Run func(ctx context.Context) error
