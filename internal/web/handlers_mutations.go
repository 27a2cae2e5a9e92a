package web

import (
	"io"
	"log/slog"
	"mime"
	"net/http"

	"github.com/JonMunkholm/catalogconsole/internal/logging"
)

// handleSaveEdit submits the edit form of the open product.
func (s *Server) handleSaveEdit(w http.ResponseWriter, r *http.Request) {
	sess, r := s.consoleSession(w, r)
	in, err := readFormInput(w, r)
	if err != nil {
		s.finish(w, r, sess, err)
		return
	}

	saved, err := sess.Console.SaveEdit(r.Context(), in)
	if err == nil {
		logging.WithFields(r.Context(), "product_id", saved.ID).Info("product updated")
	}
	s.finish(w, r, sess, err)
}

// handleCreate submits the create form.
func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	sess, r := s.consoleSession(w, r)
	in, err := readFormInput(w, r)
	if err != nil {
		s.finish(w, r, sess, err)
		return
	}

	created, err := sess.Console.Create(r.Context(), in)
	if err == nil {
		logging.WithFields(r.Context(), "product_id", created.ID).Info("product created")
	}
	s.finish(w, r, sess, err)
}

// handleExportCSV downloads the current projection as CSV.
func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	sess, r := s.consoleSession(w, r)

	filename, body, err := sess.Console.ExportCSV()
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	w.Header().Set("Cache-Control", "no-store")
	if _, err := io.WriteString(w, body); err != nil {
		slog.Error("write csv export", "error", err)
	}
}
