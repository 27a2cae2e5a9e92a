package web

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/JonMunkholm/catalogconsole/internal/core"
)

// SessionCookie is the cookie carrying the session id.
const SessionCookie = "catalog_session"

// maxAlerts bounds the alerts kept between two renders.
const maxAlerts = 5

var activeSessions = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "console_active_sessions",
	Help: "Number of live console sessions",
})

// Session is one browser's console.
type Session struct {
	ID        string
	Console   *core.Console
	presenter *sessionPresenter
	loaded    atomic.Bool
	lastSeen  time.Time // guarded by SessionStore.mu
}

// ensureLoaded runs the console's initial fetch once. A failed first load
// is not retried here; the user retries with reload.
func (s *Session) ensureLoaded(ctx context.Context) error {
	if s.loaded.Load() {
		return nil
	}
	err := s.Console.Init(ctx)
	if errors.Is(err, core.ErrBusy) {
		return nil
	}
	s.loaded.Store(true)
	return err
}

// Alerts drains the alerts raised since the last call.
func (s *Session) Alerts() []core.Alert {
	return s.presenter.drain()
}

// Notify adds an alert raised outside the console.
func (s *Session) Notify(a core.Alert) {
	s.presenter.OnAlert(a)
}

// sessionPresenter collects console notifications for the next render.
type sessionPresenter struct {
	mu     sync.Mutex
	alerts []core.Alert
	logger *slog.Logger
}

func (p *sessionPresenter) OnProjectionChanged(items []core.Product) {
	p.logger.Debug("projection changed", "count", len(items))
}

func (p *sessionPresenter) OnValidationFailed(flow core.Flow, field, message string) {
	p.logger.Debug("validation failed", "flow", flow, "field", field, "message", message)
}

func (p *sessionPresenter) OnSubmitStateChanged(flow core.Flow, state core.SubmitState) {
	p.logger.Debug("submit state", "flow", flow, "state", state.String())
}

func (p *sessionPresenter) OnAlert(a core.Alert) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.alerts = append(p.alerts, a)
	if len(p.alerts) > maxAlerts {
		p.alerts = p.alerts[len(p.alerts)-maxAlerts:]
	}
}

func (p *sessionPresenter) drain() []core.Alert {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := p.alerts
	p.alerts = nil
	return out
}

// SessionOptions configures a SessionStore.
type SessionOptions struct {
	TTL          time.Duration
	PageSize     int
	CookieSecure bool
}

// SessionStore maps cookie ids to sessions. Idle sessions expire after TTL.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]*Session
	data     core.DataAccess
	opts     SessionOptions
	now      func() time.Time
}

// NewSessionStore returns an empty store whose consoles read from data.
func NewSessionStore(data core.DataAccess, opts SessionOptions) *SessionStore {
	if opts.TTL <= 0 {
		opts.TTL = 30 * time.Minute
	}
	return &SessionStore{
		sessions: make(map[string]*Session),
		data:     data,
		opts:     opts,
		now:      time.Now,
	}
}

// Get returns the request's session, creating one (and setting the cookie)
// when the request has none or its session expired.
func (st *SessionStore) Get(w http.ResponseWriter, r *http.Request) *Session {
	if c, err := r.Cookie(SessionCookie); err == nil {
		if sess := st.lookup(c.Value); sess != nil {
			return sess
		}
	}

	sess := st.create()
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    sess.ID,
		Path:     "/",
		MaxAge:   int(st.opts.TTL.Seconds()),
		HttpOnly: true,
		Secure:   st.opts.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	return sess
}

func (st *SessionStore) lookup(id string) *Session {
	if _, err := uuid.Parse(id); err != nil {
		return nil
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	sess, ok := st.sessions[id]
	if !ok {
		return nil
	}
	now := st.now()
	if now.Sub(sess.lastSeen) > st.opts.TTL {
		st.remove(id)
		return nil
	}
	sess.lastSeen = now
	return sess
}

func (st *SessionStore) create() *Session {
	id := uuid.NewString()
	logger := slog.Default().With("session", id[:8])
	p := &sessionPresenter{logger: logger}

	sess := &Session{
		ID:        id,
		presenter: p,
		Console: core.NewConsole(st.data, p, core.ConsoleOptions{
			PageSize: st.opts.PageSize,
			Logger:   logger,
		}),
	}

	st.mu.Lock()
	sess.lastSeen = st.now()
	st.sessions[id] = sess
	st.mu.Unlock()

	activeSessions.Inc()
	logger.Debug("session created")
	return sess
}

// remove deletes id; callers hold st.mu.
func (st *SessionStore) remove(id string) {
	if _, ok := st.sessions[id]; ok {
		delete(st.sessions, id)
		activeSessions.Dec()
	}
}

// Len returns the number of live sessions.
func (st *SessionStore) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}

// Sweep drops expired sessions and returns how many were removed.
func (st *SessionStore) Sweep() int {
	st.mu.Lock()
	defer st.mu.Unlock()

	now := st.now()
	removed := 0
	for id, sess := range st.sessions {
		if now.Sub(sess.lastSeen) > st.opts.TTL {
			st.remove(id)
			removed++
		}
	}
	return removed
}

// RunJanitor sweeps every interval until ctx is done.
func (st *SessionStore) RunJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := st.Sweep(); n > 0 {
				slog.Debug("expired sessions removed", "count", n, "remaining", st.Len())
			}
		}
	}
}
