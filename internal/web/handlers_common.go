package web

// This file contains shared utilities and helper functions used across handlers.

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/JonMunkholm/catalogconsole/internal/core"
	"github.com/JonMunkholm/catalogconsole/internal/logging"
)

// maxFormBytes bounds form and JSON request bodies.
const maxFormBytes = 64 << 10

// consolePath is where browser actions land after a POST.
const consolePath = "/products"

// consoleSession returns the request's session with its first page loaded,
// and the request with the session id attached to its logger.
func (s *Server) consoleSession(w http.ResponseWriter, r *http.Request) (*Session, *http.Request) {
	sess := s.sessions.Get(w, r)
	r = r.WithContext(logging.WithSession(r.Context(), sess.ID))
	if err := sess.ensureLoaded(r.Context()); err != nil {
		// The console has already raised an alert for the user.
		logging.FromContext(r.Context()).Debug("initial load failed", "error", err)
	}
	return sess, r
}

// finish answers a console transition. Browser form posts are redirected back
// to the console with the outcome flashed as an alert; JSON clients get the
// new view or an error response.
func (s *Server) finish(w http.ResponseWriter, r *http.Request, sess *Session, err error) {
	if err != nil && (wantsJSON(r) || errors.Is(err, core.ErrBusy)) {
		respondError(w, r, err, statusFor(err))
		return
	}

	if err != nil && !alerted(err) {
		um := core.MapError(err)
		logging.FromContext(r.Context()).Warn("console action rejected",
			"path", r.URL.Path,
			"error", err,
			"code", um.Code,
		)
		sess.Notify(core.Alert{Level: core.AlertWarning, Message: um.Message, Code: um.Code})
	}

	if wantsJSON(r) {
		s.writeView(w, sess)
		return
	}
	http.Redirect(w, r, consolePath, http.StatusSeeOther)
}

// alerted reports whether the console already told the user about err.
func alerted(err error) bool {
	var (
		ne *core.NetworkError
		de *core.DataShapeError
		ve core.ValidationError
	)
	return errors.As(err, &ne) || errors.As(err, &de) || errors.As(err, &ve)
}

// parseForm reads a bounded urlencoded or multipart form body.
func parseForm(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		return r.ParseMultipartForm(maxFormBytes)
	}
	return r.ParseForm()
}

// formRequest is the JSON shape of the product form.
type formRequest struct {
	Title       flexString `json:"title"`
	Price       flexString `json:"price"`
	Description flexString `json:"description"`
	CategoryID  flexString `json:"categoryId"`
	Images      flexString `json:"images"`
}

// flexString accepts a JSON string, number or array of strings. Arrays are
// joined one value per line, the way the form's images field is entered.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*f = flexString(n.String())
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*f = flexString(strings.Join(list, "\n"))
		return nil
	}
	return fmt.Errorf("unsupported value %s", data)
}

// readFormInput extracts the product form from a form post or a JSON body.
func readFormInput(w http.ResponseWriter, r *http.Request) (core.FormInput, error) {
	if strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		var req formRequest
		dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxFormBytes))
		if err := dec.Decode(&req); err != nil {
			return core.FormInput{}, fmt.Errorf("%w: %v", core.ErrBadRequest, err)
		}
		return core.FormInput{
			Title:       string(req.Title),
			Price:       string(req.Price),
			Description: string(req.Description),
			CategoryID:  string(req.CategoryID),
			Images:      string(req.Images),
		}, nil
	}

	if err := parseForm(w, r); err != nil {
		return core.FormInput{}, fmt.Errorf("%w: %v", core.ErrBadRequest, err)
	}
	return core.FormInput{
		Title:       r.PostFormValue(core.FieldTitle),
		Price:       r.PostFormValue(core.FieldPrice),
		Description: r.PostFormValue(core.FieldDescription),
		CategoryID:  r.PostFormValue(core.FieldCategoryID),
		Images:      r.PostFormValue(core.FieldImages),
	}, nil
}

// parsePageSize parses a requested page size, bounded by the configured max.
func (s *Server) parsePageSize(raw string) (int, error) {
	size, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || size < 1 || size > s.cfg.Console.MaxPageSize {
		return 0, fmt.Errorf("%w: %q", core.ErrInvalidPageSize, raw)
	}
	return size, nil
}

// parseProductID parses a product id path parameter.
func parseProductID(raw string) (int, error) {
	id, err := strconv.Atoi(raw)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("%w: %q", core.ErrNotFound, raw)
	}
	return id, nil
}
