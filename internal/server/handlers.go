package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"

	"github.com/nguyentantai21042004/voice-merge/internal/export"
	"github.com/nguyentantai21042004/voice-merge/internal/preview"
	"github.com/nguyentantai21042004/voice-merge/internal/processor"
	"github.com/nguyentantai21042004/voice-merge/internal/queue"
	"github.com/nguyentantai21042004/voice-merge/internal/session"
)

const maxUploadMemory = 32 << 20

func (s *Server) setupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/state", s.handleState)
	mux.HandleFunc("POST /api/files", s.handleUpload)
	mux.HandleFunc("DELETE /api/files/{id}", s.handleRemoveFile)
	mux.HandleFunc("POST /api/transcribe", s.handleTranscribe)
	mux.HandleFunc("PUT /api/document", s.handleEditDocument)
	mux.HandleFunc("POST /api/summary", s.handleSummarize)
	mux.HandleFunc("DELETE /api/summary", s.handleDiscardSummary)
	mux.HandleFunc("POST /api/clipboard", s.handleClipboard)
	mux.HandleFunc("GET /api/export", s.handleExport)
	mux.HandleFunc("GET "+PreviewPrefix+"{id}", s.handlePreview)
	mux.HandleFunc("GET /ws", s.handleWebSocket)
	mux.Handle("GET /metrics", s.deps.Metrics.Handler())
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.snapshot())
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("parse upload: %w", err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		writeError(w, http.StatusBadRequest, errors.New("no files in upload"))
		return
	}

	added := make([]queue.Entry, 0, len(files))
	for _, fh := range files {
		entry, err := s.storeUpload(fh)
		if err != nil {
			s.logger.Error(r.Context(), "Failed to store upload %s: %v", fh.Filename, err)
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		added = append(added, entry)
	}

	s.logger.Info(r.Context(), "Queued %d uploaded files", len(added))
	writeJSON(w, http.StatusCreated, added)
}

func (s *Server) storeUpload(fh *multipart.FileHeader) (queue.Entry, error) {
	name := filepath.Base(fh.Filename)

	src, err := fh.Open()
	if err != nil {
		return queue.Entry{}, fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	dst, err := os.CreateTemp(s.uploadDir, "upload-*"+filepath.Ext(name))
	if err != nil {
		return queue.Entry{}, fmt.Errorf("create upload file: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(dst.Name())
		return queue.Entry{}, fmt.Errorf("write upload file: %w", err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(dst.Name())
		return queue.Entry{}, fmt.Errorf("close upload file: %w", err)
	}

	entry, err := s.deps.Queue.AddOwned(name, dst.Name())
	if err != nil {
		os.Remove(dst.Name())
		return queue.Entry{}, err
	}
	return entry, nil
}

func (s *Server) handleRemoveFile(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Queue.Remove(r.PathValue("id")); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	src, err := s.deps.Previews.Open(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}

	f, err := os.Open(src.Path)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	w.Header().Set("Content-Type", src.MIMEType)
	http.ServeContent(w, r, filepath.Base(src.Path), info.ModTime(), f)
}

func (s *Server) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	run, err := s.deps.Processor.StartBatch()
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	s.runInBackground("transcription batch", run)
	writeJSON(w, http.StatusAccepted, s.snapshot())
}

type documentRequest struct {
	Text string `json:"text"`
}

func (s *Server) handleEditDocument(w http.ResponseWriter, r *http.Request) {
	var req documentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode document: %w", err))
		return
	}

	if err := s.deps.Session.Edit(req.Text); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, s.snapshot())
}

func (s *Server) handleSummarize(w http.ResponseWriter, r *http.Request) {
	run, err := s.deps.Processor.StartSummary()
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	s.runInBackground("summary", run)
	writeJSON(w, http.StatusAccepted, s.snapshot())
}

func (s *Server) handleDiscardSummary(w http.ResponseWriter, r *http.Request) {
	s.deps.Session.DiscardSummary()
	writeJSON(w, http.StatusOK, s.snapshot())
}

type clipboardRequest struct {
	Target string `json:"target"`
}

func (s *Server) handleClipboard(w http.ResponseWriter, r *http.Request) {
	var req clipboardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode clipboard request: %w", err))
		return
	}

	st := s.deps.Session.Snapshot()
	var text string
	switch req.Target {
	case "document":
		text = st.Text
	case "summary":
		text = st.Summary
	default:
		writeError(w, http.StatusBadRequest, fmt.Errorf("unknown clipboard target %q", req.Target))
		return
	}

	if err := s.deps.Clipboard.WriteAll(text); err != nil {
		s.logger.Error(r.Context(), "Clipboard write failed: %v", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	st := s.deps.Session.Snapshot()
	doc := export.Document{Title: "Transkripsiyon", Text: st.Text, Summary: st.Summary}
	filename := "transkripsiyon." + string(format)

	if format != export.FormatDocx {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
		if err := export.Render(w, format, doc); err != nil {
			s.logger.Error(r.Context(), "Export failed: %v", err)
		}
		return
	}

	// godocx writes to a path, so stage the file in the upload dir.
	tmp, err := os.CreateTemp(s.uploadDir, "export-*.docx")
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	tmp.Close()
	defer os.Remove(tmp.Name())

	if err := export.Write(tmp.Name(), doc); err != nil {
		s.logger.Error(r.Context(), "Export failed: %v", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.wordprocessingml.document")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	http.ServeFile(w, r, tmp.Name())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, queue.ErrNotFound), errors.Is(err, preview.ErrRevoked):
		return http.StatusNotFound
	case errors.Is(err, session.ErrBusy):
		return http.StatusConflict
	case errors.Is(err, processor.ErrNoFiles), errors.Is(err, processor.ErrEmptyDocument):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
