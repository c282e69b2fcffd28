package ai

import "context"

// Audio is one audio payload bound for a transcription model.
type Audio struct {
	Name     string
	MIMEType string
	Data     []byte
}

// Client turns audio into text and text into summaries using hosted models.
type Client interface {
	Transcribe(ctx context.Context, audio Audio) (string, error)
	Summarize(ctx context.Context, text string) (string, error)
}

// Backend is a single provider SDK. It makes exactly one remote call per
// method; retries are layered on top by Client.
type Backend interface {
	GenerateFromAudio(ctx context.Context, model, prompt string, audio Audio) (string, error)
	GenerateFromText(ctx context.Context, model, prompt string) (string, error)
}
