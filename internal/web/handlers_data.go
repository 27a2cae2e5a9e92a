package web

import (
	"context"
	"net/http"
	"time"

	"github.com/JonMunkholm/catalogconsole/internal/core"
)

// readyTimeout bounds the catalog ping behind /readyz.
const readyTimeout = 3 * time.Second

// ViewResponse is the JSON form of a console view.
type ViewResponse struct {
	Page       int             `json:"page"`
	PageSize   int             `json:"pageSize"`
	Search     string          `json:"search"`
	SortField  core.SortField  `json:"sortField"`
	SortDir    core.SortDir    `json:"sortDir"`
	Items      []core.Product  `json:"items"`
	Fetched    int             `json:"fetched"`
	CanPrev    bool            `json:"canPrev"`
	CanNext    bool            `json:"canNext"`
	Selected   *core.Product   `json:"selected,omitempty"`
	Categories []core.Category `json:"categories"`
	Edit       EditorResponse  `json:"edit"`
	Create     EditorResponse  `json:"create"`
	Busy       bool            `json:"busy"`
	Alerts     []AlertResponse `json:"alerts"`
}

// EditorResponse is the JSON form of an editor.
type EditorResponse struct {
	State       string        `json:"state"`
	TargetID    int           `json:"targetId,omitempty"`
	Form        *FormResponse `json:"form,omitempty"`
	Field       string        `json:"field,omitempty"`
	FieldError  string        `json:"fieldError,omitempty"`
	SubmitError string        `json:"submitError,omitempty"`
}

// FormResponse echoes the entered form values.
type FormResponse struct {
	Title       string `json:"title"`
	Price       string `json:"price"`
	Description string `json:"description"`
	CategoryID  string `json:"categoryId"`
	Images      string `json:"images"`
}

// AlertResponse is the JSON form of an alert.
type AlertResponse struct {
	Level   core.AlertLevel `json:"level"`
	Message string          `json:"message"`
	Code    string          `json:"code,omitempty"`
}

func newViewResponse(v core.View, alerts []core.Alert, busy bool) ViewResponse {
	resp := ViewResponse{
		Page:       v.State.Page,
		PageSize:   v.State.PageSize,
		Search:     v.State.Search,
		SortField:  v.State.SortField,
		SortDir:    v.State.SortDir,
		Items:      v.Projection,
		Fetched:    len(v.State.Items),
		CanPrev:    v.CanPrev,
		CanNext:    v.CanNext,
		Selected:   v.State.Selected,
		Categories: v.State.Categories,
		Edit:       newEditorResponse(v.Edit),
		Create:     newEditorResponse(v.Create),
		Busy:       busy,
		Alerts:     make([]AlertResponse, 0, len(alerts)),
	}
	if resp.Items == nil {
		resp.Items = []core.Product{}
	}
	if resp.Categories == nil {
		resp.Categories = []core.Category{}
	}
	for _, a := range alerts {
		resp.Alerts = append(resp.Alerts, AlertResponse{Level: a.Level, Message: a.Message, Code: a.Code})
	}
	return resp
}

func newEditorResponse(ev core.EditorView) EditorResponse {
	resp := EditorResponse{State: ev.State.String(), TargetID: ev.TargetID}
	if ev.State != core.Viewing {
		resp.Form = &FormResponse{
			Title:       ev.Form.Title,
			Price:       ev.Form.Price,
			Description: ev.Form.Description,
			CategoryID:  ev.Form.CategoryID,
			Images:      ev.Form.Images,
		}
	}
	if ev.FieldError != nil {
		resp.Field = ev.FieldError.Field
		resp.FieldError = ev.FieldError.Message
	}
	if ev.SubmitError != nil {
		resp.SubmitError = core.MapError(ev.SubmitError).Message
	}
	return resp
}

// writeView writes the session's view as JSON and drains its alerts.
func (s *Server) writeView(w http.ResponseWriter, sess *Session) {
	writeJSON(w, http.StatusOK, newViewResponse(sess.Console.View(), sess.Alerts(), sess.Console.Busy()))
}

// handleAPIView returns the session's view as JSON.
func (s *Server) handleAPIView(w http.ResponseWriter, r *http.Request) {
	sess, r := s.consoleSession(w, r)
	w.Header().Set("Cache-Control", "no-store")
	s.writeView(w, sess)
}

// handleAPICategories returns the category reference data.
func (s *Server) handleAPICategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.data.ListCategories(r.Context())
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	if cats == nil {
		cats = []core.Category{}
	}
	writeJSON(w, http.StatusOK, cats)
}

// categoryInvalidator is implemented by cached catalogs.
type categoryInvalidator interface {
	Invalidate(ctx context.Context) error
}

// handleRefreshCategories drops the cached category list and reloads it.
func (s *Server) handleRefreshCategories(w http.ResponseWriter, r *http.Request) {
	if inv, ok := s.data.(categoryInvalidator); ok {
		if err := inv.Invalidate(r.Context()); err != nil {
			respondError(w, r, err, http.StatusInternalServerError)
			return
		}
	}
	s.handleAPICategories(w, r)
}

// handleHealth reports that the process is up.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReady reports whether the catalog API answers.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.pinger == nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	if err := s.pinger.Ping(ctx); err != nil {
		msg := core.MapError(err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "unavailable",
			"code":   msg.Code,
			"error":  msg.Message,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
