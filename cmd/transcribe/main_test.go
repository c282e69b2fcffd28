package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nguyentantai21042004/voice-merge/internal/ai"
	"github.com/nguyentantai21042004/voice-merge/internal/clipboard"
	"github.com/nguyentantai21042004/voice-merge/internal/config"
	"github.com/nguyentantai21042004/voice-merge/internal/logger"
	"github.com/nguyentantai21042004/voice-merge/internal/metrics"
	"github.com/nguyentantai21042004/voice-merge/internal/preview"
	"github.com/nguyentantai21042004/voice-merge/internal/processor"
	"github.com/nguyentantai21042004/voice-merge/internal/queue"
	"github.com/nguyentantai21042004/voice-merge/internal/session"
)

type stubClient struct {
	transcribeErr error
	summaryErr    error
}

func (c *stubClient) Transcribe(ctx context.Context, audio ai.Audio) (string, error) {
	if c.transcribeErr != nil {
		return "", c.transcribeErr
	}
	return "metin " + audio.Name, nil
}

func (c *stubClient) Summarize(ctx context.Context, text string) (string, error) {
	if c.summaryErr != nil {
		return "", c.summaryErr
	}
	return "özet", nil
}

func newTestApp(t *testing.T, client ai.Client, logs, stdout io.Writer) *app {
	t.Helper()

	cfg := config.Default()
	cfg.Batch.InterFileDelay = 0
	log := logger.NewWithWriter(logs, "info")
	m := metrics.New()
	q := queue.New(preview.NewRegistry("/preview/", nil), log)
	sess := session.New()

	return &app{
		cfg:       cfg,
		log:       log,
		metrics:   m,
		queue:     q,
		session:   sess,
		processor: processor.New(cfg, q, sess, client, m, log),
		clipboard: &clipboard.Memory{},
		stdout:    stdout,
	}
}

func audioFile(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte("ID3"), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRunOnce(t *testing.T) {
	tests := []struct {
		name       string
		client     *stubClient
		summary    bool
		wantErr    bool
		wantOut    []string
		wantErrors int
	}{
		{
			name:    "success with summary",
			client:  &stubClient{},
			summary: true,
			wantOut: []string{"--- DOSYA: a.mp3 ---\nmetin a.mp3", "özet"},
		},
		{
			name:       "batch failure keeps partial document",
			client:     &stubClient{transcribeErr: errors.New("unsupported audio")},
			wantErr:    true,
			wantOut:    []string{"--- DOSYA: a.mp3 ---\nİşleniyor..."},
			wantErrors: 1,
		},
		{
			name:       "summary failure exits non-zero",
			client:     &stubClient{summaryErr: errors.New("connection reset")},
			summary:    true,
			wantErr:    true,
			wantOut:    []string{"metin a.mp3"},
			wantErrors: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var logs, stdout bytes.Buffer
			a := newTestApp(t, tt.client, &logs, &stdout)

			err := a.runOnce(context.Background(), options{
				summary: tt.summary,
				files:   []string{audioFile(t, "a.mp3")},
			})
			if (err != nil) != tt.wantErr {
				t.Fatalf("runOnce() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, errRunFailed) {
				t.Errorf("runOnce() error = %v, want errRunFailed", err)
			}

			for _, s := range tt.wantOut {
				if !strings.Contains(stdout.String(), s) {
					t.Errorf("stdout missing %q:\n%s", s, stdout.String())
				}
			}
			if strings.Contains(stdout.String(), "[INFO]") || strings.Contains(stdout.String(), "[ERROR]") {
				t.Errorf("log lines leaked into the document:\n%s", stdout.String())
			}
			if got := strings.Count(logs.String(), "[ERROR]"); got != tt.wantErrors {
				t.Errorf("logged %d errors, want %d:\n%s", got, tt.wantErrors, logs.String())
			}
		})
	}
}

func TestNewAppLogsToStderr(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	stdout := os.Stdout
	os.Stdout = w
	t.Cleanup(func() { os.Stdout = stdout })

	a, err := newApp(config.Default())
	if err != nil {
		t.Fatalf("newApp() error = %v", err)
	}
	a.log.Error(context.Background(), "only on stderr")

	os.Stdout = stdout
	w.Close()
	got, _ := io.ReadAll(r)
	if len(got) != 0 {
		t.Errorf("logger wrote to stdout: %q", got)
	}
}
