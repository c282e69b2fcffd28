// Package server exposes the transcription session to a local browser UI:
// a JSON API for the file queue and document, audio previews, a websocket
// state stream and Prometheus metrics.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nguyentantai21042004/voice-merge/internal/clipboard"
	"github.com/nguyentantai21042004/voice-merge/internal/config"
	"github.com/nguyentantai21042004/voice-merge/internal/logger"
	"github.com/nguyentantai21042004/voice-merge/internal/metrics"
	"github.com/nguyentantai21042004/voice-merge/internal/preview"
	"github.com/nguyentantai21042004/voice-merge/internal/processor"
	"github.com/nguyentantai21042004/voice-merge/internal/queue"
	"github.com/nguyentantai21042004/voice-merge/internal/session"
)

// PreviewPrefix is the URL prefix of audio preview references.
const PreviewPrefix = "/preview/"

// Deps are the session components the server drives.
type Deps struct {
	Queue     *queue.Queue
	Previews  *preview.Registry
	Session   *session.Session
	Processor processor.Processor
	Clipboard clipboard.Writer
	Metrics   *metrics.Metrics
	Logger    logger.Logger
}

type Server struct {
	deps      Deps
	logger    logger.Logger
	uploadDir string

	httpServer *http.Server
	upgrader   websocket.Upgrader
	hub        *hub

	// ctx bounds background runs; cancelled on Shutdown.
	ctx    context.Context
	cancel context.CancelFunc
	runs   sync.WaitGroup
}

// New creates the server and its upload directory under cfg.Paths.Temp.
func New(cfg *config.Config, deps Deps) (*Server, error) {
	if err := os.MkdirAll(cfg.Paths.Temp, 0755); err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	uploadDir, err := os.MkdirTemp(cfg.Paths.Temp, "voice-merge-*")
	if err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		deps:      deps,
		logger:    deps.Logger,
		uploadDir: uploadDir,
		upgrader: websocket.Upgrader{
			// The UI is served from localhost by whatever dev server the user runs.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		hub:    newHub(),
		ctx:    ctx,
		cancel: cancel,
	}

	deps.Session.Subscribe(func(session.State) { s.hub.broadcast(s.snapshot()) })
	deps.Queue.Subscribe(func(int) { s.hub.broadcast(s.snapshot()) })

	s.httpServer = &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.setupRoutes(mux)
	return s.logRequests(mux)
}

// ListenAndServe blocks until the server stops. It returns nil after Shutdown.
func (s *Server) ListenAndServe() error {
	s.logger.Info(s.ctx, "Local UI listening on http://%s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests, aborts any run in flight, releases
// every preview and removes uploaded files.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)

	s.cancel()
	s.runs.Wait()
	s.hub.closeAll()

	s.deps.Queue.Close()
	s.deps.Previews.Close()
	if rmErr := os.RemoveAll(s.uploadDir); rmErr != nil {
		s.logger.Warn(ctx, "Failed to remove upload dir %s: %v", s.uploadDir, rmErr)
	}
	return err
}

// runInBackground starts a session run that outlives the request.
func (s *Server) runInBackground(name string, fn processor.Run) {
	s.runs.Add(1)
	go func() {
		defer s.runs.Done()
		if err := fn(s.ctx); err != nil {
			s.logger.Warn(s.ctx, "%s finished with error: %v", name, err)
		}
	}()
}

type stateResponse struct {
	session.State
	Files []queue.Entry `json:"files"`
}

func (s *Server) snapshot() stateResponse {
	files := s.deps.Queue.List()
	if files == nil {
		files = []queue.Entry{}
	}
	return stateResponse{State: s.deps.Session.Snapshot(), Files: files}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug(r.Context(), "%s %s (%s)", r.Method, r.URL.Path, time.Since(start))
	})
}
