// Package clipboard writes text to the system clipboard.
package clipboard

import (
	"fmt"

	"github.com/atotto/clipboard"
)

// Writer is a write-only clipboard.
type Writer interface {
	WriteAll(text string) error
}

type systemClipboard struct{}

// New returns the system clipboard. On Linux this needs xclip, xsel or
// wl-clipboard on PATH.
func New() Writer {
	return systemClipboard{}
}

func (systemClipboard) WriteAll(text string) error {
	if clipboard.Unsupported {
		return fmt.Errorf("clipboard: no clipboard utility available")
	}
	if err := clipboard.WriteAll(text); err != nil {
		return fmt.Errorf("clipboard: %w", err)
	}
	return nil
}

// Memory is an in-process clipboard for headless runs and tests.
type Memory struct {
	Text string
}

func (m *Memory) WriteAll(text string) error {
	m.Text = text
	return nil
}
