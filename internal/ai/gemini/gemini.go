// Package gemini implements ai.Backend on the Google Gen AI SDK.
package gemini

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"

	"github.com/nguyentantai21042004/voice-merge/internal/ai"
	"github.com/nguyentantai21042004/voice-merge/internal/retry"
)

type Backend struct {
	key     ai.KeyFunc
	baseURL string
}

// New creates a Gemini backend. baseURL may be empty to use the public endpoint.
func New(key ai.KeyFunc, baseURL string) *Backend {
	return &Backend{key: key, baseURL: baseURL}
}

// GenerateFromAudio sends the audio inline, followed by the instruction.
func (b *Backend) GenerateFromAudio(ctx context.Context, model, prompt string, audio ai.Audio) (string, error) {
	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromBytes(audio.Data, audio.MIMEType),
			genai.NewPartFromText(prompt),
		}, genai.RoleUser),
	}
	return b.generate(ctx, model, contents)
}

func (b *Backend) GenerateFromText(ctx context.Context, model, prompt string) (string, error) {
	return b.generate(ctx, model, genai.Text(prompt))
}

// generate creates a client for this call only so the credential is read
// fresh every time.
func (b *Backend) generate(ctx context.Context, model string, contents []*genai.Content) (string, error) {
	key, err := b.key()
	if err != nil {
		return "", err
	}

	cfg := &genai.ClientConfig{
		APIKey:  key,
		Backend: genai.BackendGeminiAPI,
	}
	if b.baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: b.baseURL}
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return "", fmt.Errorf("create client: %w", err)
	}

	result, err := client.Models.GenerateContent(ctx, model, contents, nil)
	if err != nil {
		return "", classify(fmt.Errorf("generate content: %w", err))
	}

	return responseText(result), nil
}

func responseText(result *genai.GenerateContentResponse) string {
	if result == nil || len(result.Candidates) == 0 || result.Candidates[0].Content == nil {
		return ""
	}

	var text string
	for _, part := range result.Candidates[0].Content.Parts {
		if part != nil && part.Text != "" {
			text += part.Text
		}
	}
	return text
}

// classify marks structured quota responses so retry recognises them even
// when the message text changes.
func classify(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) && isQuota(apiErr) {
		return &retry.RateLimitError{Err: err}
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil && isQuota(*apiErrPtr) {
		return &retry.RateLimitError{Err: err}
	}
	return err
}

func isQuota(e genai.APIError) bool {
	return e.Code == 429 || e.Status == "RESOURCE_EXHAUSTED"
}
