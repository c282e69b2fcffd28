// Package session holds the single in-memory transcription session: the
// combined document, the optional summary, the busy flag and the last
// user-facing error. At most one batch or summary run is in flight.
package session

import (
	"errors"
	"sync"
)

var (
	// ErrBusy is returned when a run is already in flight.
	ErrBusy = errors.New("session is busy")
	// ErrEmptyDocument is returned when a summary is requested for an empty document.
	ErrEmptyDocument = errors.New("document is empty")
)

// State is a snapshot of the session.
type State struct {
	Text         string `json:"text"`
	Summary      string `json:"summary,omitempty"`
	IsProcessing bool   `json:"isProcessing"`
	Error        string `json:"error,omitempty"`

	// Batch progress: files finished out of the files in this run.
	Done  int `json:"done"`
	Total int `json:"total"`
}

type Session struct {
	mu          sync.Mutex
	state       State
	subscribers map[int]func(State)
	nextSub     int
}

func New() *Session {
	return &Session{subscribers: make(map[int]func(State))}
}

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Subscribe registers fn to receive every new state. The returned func
// unsubscribes. fn runs on the goroutine that made the change, after the
// session lock is released.
func (s *Session) Subscribe(fn func(State)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subscribers[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subscribers, id)
		s.mu.Unlock()
	}
}

// BeginBatch starts a batch run over total files. The document, summary and
// error from any previous run are cleared.
func (s *Session) BeginBatch(total int) error {
	return s.update(func(st *State) error {
		if st.IsProcessing {
			return ErrBusy
		}
		*st = State{IsProcessing: true, Total: total}
		return nil
	})
}

// BeginSummary starts a summary run and returns the document to summarize.
// The document is left alone. A busy session wins over an empty document.
func (s *Session) BeginSummary() (string, error) {
	var text string
	err := s.update(func(st *State) error {
		if st.IsProcessing {
			return ErrBusy
		}
		if st.Text == "" {
			return ErrEmptyDocument
		}
		st.IsProcessing = true
		st.Error = ""
		text = st.Text
		return nil
	})
	return text, err
}

// SetText publishes the document as written by the running batch.
func (s *Session) SetText(text string) {
	_ = s.update(func(st *State) error {
		st.Text = text
		return nil
	})
}

// Advance records that done files of the current batch are finished.
func (s *Session) Advance(done int) {
	_ = s.update(func(st *State) error {
		st.Done = done
		return nil
	})
}

func (s *Session) SetSummary(summary string) {
	_ = s.update(func(st *State) error {
		st.Summary = summary
		return nil
	})
}

// End finishes the current run. errMsg is the user-facing message, empty on
// success.
func (s *Session) End(errMsg string) {
	_ = s.update(func(st *State) error {
		st.IsProcessing = false
		st.Error = errMsg
		return nil
	})
}

// Edit replaces the document with the user's text verbatim. Edits are
// rejected while a run is writing to the document.
func (s *Session) Edit(text string) error {
	return s.update(func(st *State) error {
		if st.IsProcessing {
			return ErrBusy
		}
		st.Text = text
		return nil
	})
}

// DiscardSummary drops the summary so a new one can be requested.
func (s *Session) DiscardSummary() {
	_ = s.update(func(st *State) error {
		st.Summary = ""
		return nil
	})
}

func (s *Session) update(fn func(st *State) error) error {
	s.mu.Lock()
	if err := fn(&s.state); err != nil {
		s.mu.Unlock()
		return err
	}
	snapshot := s.state
	subs := make([]func(State), 0, len(s.subscribers))
	for _, sub := range s.subscribers {
		subs = append(subs, sub)
	}
	s.mu.Unlock()

	for _, sub := range subs {
		sub(snapshot)
	}
	return nil
}
