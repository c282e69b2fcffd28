package watcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nguyentantai21042004/voice-merge/internal/logger"
)

func TestWatcherHandsOverAudioFiles(t *testing.T) {
	dir := t.TempDir()
	got := make(chan string, 4)

	w, err := New(dir, func(ctx context.Context, path string) error {
		got <- path
		return nil
	}, logger.Nop(), 0)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer w.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Start(ctx) }()

	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	audio := filepath.Join(dir, "kayıt.mp3")
	if err := os.WriteFile(audio, []byte("ID3"), 0644); err != nil {
		t.Fatal(err)
	}

	select {
	case path := <-got:
		if path != audio {
			t.Errorf("handler got %q, want %q", path, audio)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for audio file")
	}

	select {
	case path := <-got:
		t.Errorf("unexpected extra file %q", path)
	case <-time.After(200 * time.Millisecond):
	}

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Start() error = %v, want context.Canceled", err)
	}
}

func TestNewMissingDir(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "missing"), nil, logger.Nop(), 0)
	if err == nil {
		t.Error("New() should fail for a missing directory")
	}
}
