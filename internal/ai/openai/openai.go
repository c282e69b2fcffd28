// Package openai implements ai.Backend on OpenAI-compatible audio and chat APIs.
package openai

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/nguyentantai21042004/voice-merge/internal/ai"
	"github.com/nguyentantai21042004/voice-merge/internal/retry"
)

type Backend struct {
	key     ai.KeyFunc
	baseURL string
}

// New creates an OpenAI backend. baseURL may point at any compatible gateway.
func New(key ai.KeyFunc, baseURL string) *Backend {
	return &Backend{key: key, baseURL: baseURL}
}

func (b *Backend) client() (*goopenai.Client, error) {
	key, err := b.key()
	if err != nil {
		return nil, err
	}
	cfg := goopenai.DefaultConfig(key)
	if b.baseURL != "" {
		cfg.BaseURL = b.baseURL
	}
	return goopenai.NewClientWithConfig(cfg), nil
}

// GenerateFromAudio uploads the audio to the transcription endpoint. The
// instruction goes in as the prompt hint.
func (b *Backend) GenerateFromAudio(ctx context.Context, model, prompt string, audio ai.Audio) (string, error) {
	client, err := b.client()
	if err != nil {
		return "", err
	}

	resp, err := client.CreateTranscription(ctx, goopenai.AudioRequest{
		Model:    model,
		FilePath: audio.Name,
		Reader:   bytes.NewReader(audio.Data),
		Prompt:   prompt,
	})
	if err != nil {
		return "", classify(fmt.Errorf("create transcription: %w", err))
	}
	return resp.Text, nil
}

func (b *Backend) GenerateFromText(ctx context.Context, model, prompt string) (string, error) {
	client, err := b.client()
	if err != nil {
		return "", err
	}

	resp, err := client.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model: model,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", classify(fmt.Errorf("create chat completion: %w", err))
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}

func classify(err error) error {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == http.StatusTooManyRequests {
		return &retry.RateLimitError{Err: err}
	}
	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode == http.StatusTooManyRequests {
		return &retry.RateLimitError{Err: err}
	}
	return err
}
