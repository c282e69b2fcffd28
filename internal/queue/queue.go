// Package queue holds the ordered list of audio files waiting for a batch
// run. Every entry owns a preview reference that is released when the entry
// is removed or the queue is closed.
package queue

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/google/uuid"

	"github.com/nguyentantai21042004/voice-merge/internal/logger"
	"github.com/nguyentantai21042004/voice-merge/internal/preview"
)

// ErrNotFound is returned when removing an id that is not queued.
var ErrNotFound = errors.New("file not queued")

// Entry is one queued audio file.
type Entry struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	Path     string         `json:"-"`
	MIMEType string         `json:"mimeType"`
	Preview  preview.Handle `json:"preview"`

	// owned files were written by us (uploads) and are deleted on release.
	owned bool
}

type Queue struct {
	mu          sync.Mutex
	entries     []Entry
	previews    *preview.Registry
	logger      logger.Logger
	subscribers []func(n int)

	// While pinned, owned files of removed entries stay on disk until the
	// last pin is released.
	pins   int
	doomed []string
}

// New creates an empty queue.
func New(previews *preview.Registry, log logger.Logger) *Queue {
	return &Queue{
		previews: previews,
		logger:   log,
	}
}

// Subscribe registers fn to receive the queue length after every change.
// Callbacks run after the queue lock is released.
func (q *Queue) Subscribe(fn func(n int)) {
	q.mu.Lock()
	q.subscribers = append(q.subscribers, fn)
	q.mu.Unlock()
}

// Add queues a file that belongs to someone else, such as a file dropped
// into the watched folder.
func (q *Queue) Add(name, path string) (Entry, error) {
	return q.add(name, path, false)
}

// AddOwned queues a file the caller handed over, such as an upload. The file
// is deleted when the entry is removed.
func (q *Queue) AddOwned(name, path string) (Entry, error) {
	return q.add(name, path, true)
}

func (q *Queue) add(name, path string, owned bool) (Entry, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Entry{}, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return Entry{}, fmt.Errorf("%s is a directory", path)
	}

	mimeType := MIMEType(path)
	e := Entry{
		ID:       uuid.NewString(),
		Name:     name,
		Path:     path,
		MIMEType: mimeType,
		Preview:  q.previews.Acquire(path, mimeType),
		owned:    owned,
	}

	q.mu.Lock()
	q.entries = append(q.entries, e)
	n := len(q.entries)
	q.mu.Unlock()

	q.logger.Debug(context.Background(), "Queued %s (%s) as %s", name, mimeType, e.ID)
	q.changed(n)
	return e, nil
}

// Remove releases the entry's preview and drops exactly that entry. The
// order of the remaining entries is preserved.
func (q *Queue) Remove(id string) error {
	q.mu.Lock()
	idx := -1
	for i, e := range q.entries {
		if e.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		q.mu.Unlock()
		return ErrNotFound
	}

	e := q.entries[idx]
	q.entries = append(q.entries[:idx:idx], q.entries[idx+1:]...)
	n := len(q.entries)
	q.mu.Unlock()

	q.release(e)
	q.changed(n)
	return nil
}

// List returns a snapshot of the queue in order.
func (q *Queue) List() []Entry {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]Entry, len(q.entries))
	copy(out, q.entries)
	return out
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// Close releases every entry and empties the queue.
func (q *Queue) Close() {
	q.mu.Lock()
	entries := q.entries
	q.entries = nil
	q.mu.Unlock()

	for _, e := range entries {
		q.release(e)
	}
	q.changed(0)
}

// Pin keeps the files of the current entries readable until the returned
// func is called, even if their entries are removed meanwhile. A batch run
// pins the queue for its whole length.
func (q *Queue) Pin() (unpin func()) {
	q.mu.Lock()
	q.pins++
	q.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			q.mu.Lock()
			q.pins--
			var paths []string
			if q.pins == 0 {
				paths, q.doomed = q.doomed, nil
			}
			q.mu.Unlock()

			for _, path := range paths {
				q.removeFile(path)
			}
		})
	}
}

func (q *Queue) release(e Entry) {
	q.previews.Release(e.Preview.ID)
	if !e.owned {
		return
	}

	q.mu.Lock()
	if q.pins > 0 {
		q.doomed = append(q.doomed, e.Path)
		q.mu.Unlock()
		return
	}
	q.mu.Unlock()
	q.removeFile(e.Path)
}

func (q *Queue) removeFile(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		q.logger.Warn(context.Background(), "Failed to remove uploaded file %s: %v", path, err)
	}
}

func (q *Queue) changed(n int) {
	q.mu.Lock()
	subs := make([]func(int), len(q.subscribers))
	copy(subs, q.subscribers)
	q.mu.Unlock()

	for _, fn := range subs {
		fn(n)
	}
}
