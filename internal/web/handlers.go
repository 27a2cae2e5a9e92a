package web

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/catalogconsole/internal/core"
	"github.com/JonMunkholm/catalogconsole/internal/web/templates"
)

// handleConsole renders the product console.
func (s *Server) handleConsole(w http.ResponseWriter, r *http.Request) {
	sess, r := s.consoleSession(w, r)
	w.Header().Set("Cache-Control", "no-store")

	if wantsJSON(r) {
		s.writeView(w, sess)
		return
	}

	page := templates.ConsolePage(templates.PageData{
		View:      sess.Console.View(),
		Alerts:    sess.Alerts(),
		PageSizes: s.cfg.Console.PageSizes,
		Busy:      sess.Console.Busy(),
	})
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := page.Render(r.Context(), w); err != nil {
		slog.Error("render console", "error", err)
	}
}

// handleSearch sets the title filter for the current page.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	sess, r := s.consoleSession(w, r)
	if err := parseForm(w, r); err != nil {
		s.finish(w, r, sess, core.ErrBadRequest)
		return
	}
	sess.Console.SetSearch(r.FormValue("q"))
	s.finish(w, r, sess, nil)
}

// handleSort toggles the sort column, or sets it outright when dir is given.
func (s *Server) handleSort(w http.ResponseWriter, r *http.Request) {
	sess, r := s.consoleSession(w, r)
	if err := parseForm(w, r); err != nil {
		s.finish(w, r, sess, core.ErrBadRequest)
		return
	}

	field := core.ParseSortField(chi.URLParam(r, "field"))
	if dir := r.FormValue("dir"); dir != "" {
		sess.Console.SetSort(field, core.ParseSortDir(dir))
	} else {
		sess.Console.ToggleSort(field)
	}
	s.finish(w, r, sess, nil)
}

// handlePage moves to the next or previous page.
func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	var move func(*core.Console, *http.Request) (bool, error)
	switch chi.URLParam(r, "direction") {
	case "next":
		move = func(c *core.Console, r *http.Request) (bool, error) { return c.NextPage(r.Context()) }
	case "prev":
		move = func(c *core.Console, r *http.Request) (bool, error) { return c.PrevPage(r.Context()) }
	default:
		http.NotFound(w, r)
		return
	}

	sess, r := s.consoleSession(w, r)
	moved, err := move(sess.Console, r)
	if err == nil && !moved {
		slog.Debug("page unchanged", "direction", chi.URLParam(r, "direction"))
	}
	s.finish(w, r, sess, err)
}

// handlePageSize changes the page size and returns to page 1.
func (s *Server) handlePageSize(w http.ResponseWriter, r *http.Request) {
	sess, r := s.consoleSession(w, r)
	if err := parseForm(w, r); err != nil {
		s.finish(w, r, sess, core.ErrBadRequest)
		return
	}

	size, err := s.parsePageSize(r.FormValue("size"))
	if err == nil {
		err = sess.Console.SetPageSize(r.Context(), size)
	}
	s.finish(w, r, sess, err)
}

// handleReload re-fetches the current page.
func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	sess, r := s.consoleSession(w, r)
	s.finish(w, r, sess, sess.Console.Reload(r.Context()))
}

// handleOpenDetail opens a product from the current page.
func (s *Server) handleOpenDetail(w http.ResponseWriter, r *http.Request) {
	sess, r := s.consoleSession(w, r)
	id, err := parseProductID(strings.TrimSpace(chi.URLParam(r, "id")))
	if err == nil {
		err = sess.Console.OpenDetail(id)
	}
	s.finish(w, r, sess, err)
}

// handleCloseDetail closes the open product.
func (s *Server) handleCloseDetail(w http.ResponseWriter, r *http.Request) {
	sess, r := s.consoleSession(w, r)
	s.finish(w, r, sess, sess.Console.CloseDetail())
}

// handleBeginEdit switches the open product to its edit form.
func (s *Server) handleBeginEdit(w http.ResponseWriter, r *http.Request) {
	sess, r := s.consoleSession(w, r)
	s.finish(w, r, sess, sess.Console.BeginEdit())
}

// handleCancelEdit discards the edit form.
func (s *Server) handleCancelEdit(w http.ResponseWriter, r *http.Request) {
	sess, r := s.consoleSession(w, r)
	s.finish(w, r, sess, sess.Console.CancelEdit())
}

// handleOpenCreate opens the create form.
func (s *Server) handleOpenCreate(w http.ResponseWriter, r *http.Request) {
	sess, r := s.consoleSession(w, r)
	s.finish(w, r, sess, sess.Console.OpenCreate())
}

// handleCancelCreate closes the create form.
func (s *Server) handleCancelCreate(w http.ResponseWriter, r *http.Request) {
	sess, r := s.consoleSession(w, r)
	s.finish(w, r, sess, sess.Console.CancelCreate())
}
