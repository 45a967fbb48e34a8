// Package http serves the local console: the client route table behind the
// navigation guard, the session endpoints and the reminder inbox.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"shdrug/client/internal/clients"
	"shdrug/client/internal/config"
	"shdrug/client/internal/db"
	"shdrug/client/internal/jobs"
	"shdrug/client/internal/logging"
	"shdrug/client/internal/metrics"
	"shdrug/client/internal/notify"
	"shdrug/client/internal/router"
	"shdrug/client/internal/session"
)

// Sessions is the session store as the console uses it.
type Sessions interface {
	session.Provider
	SetRefreshToken(ctx context.Context, token string) error
}

type Authenticator interface {
	Login(ctx context.Context, username, password string) (*clients.LoginResponse, error)
}

// Reminders is the part of the reminder poller the console exposes.
type Reminders interface {
	State() jobs.PollerState
	Snapshot() []clients.Reminder
	Refresh(ctx context.Context)
	TestNotification(ctx context.Context) error
}

// Archive is the persisted notification history, when one is configured.
type Archive interface {
	ListNotifications(ctx context.Context, profile string, limit int) ([]db.NotificationRecord, error)
}

type Deps struct {
	Sessions  Sessions
	Auth      Authenticator
	Guard     *router.Guard
	History   *router.History
	Inbox     *notify.Inbox
	Reminders Reminders
	Archive   Archive
	Metrics   *metrics.Metrics
	Logger    *slog.Logger
}

type Server struct {
	cfg       config.Config
	sessions  Sessions
	auth      Authenticator
	guard     *router.Guard
	history   *router.History
	inbox     *notify.Inbox
	reminders Reminders
	archive   Archive
	metrics   *metrics.Metrics
	logger    *slog.Logger
	validate  *validator.Validate
}

func NewServer(cfg config.Config, deps Deps) (*Server, error) {
	if deps.Sessions == nil {
		return nil, errors.New("session store is required")
	}
	if deps.Auth == nil {
		return nil, errors.New("auth api is required")
	}
	guard := deps.Guard
	if guard == nil {
		guard = router.NewGuard(nil, deps.Logger, deps.Metrics)
	}
	history := deps.History
	if history == nil {
		history = router.NewHistory(guard.Table())
	}
	inbox := deps.Inbox
	if inbox == nil {
		inbox = notify.NewInbox(0)
	}
	logger := deps.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	return &Server{
		cfg:       cfg,
		sessions:  deps.Sessions,
		auth:      deps.Auth,
		guard:     guard,
		history:   history,
		inbox:     inbox,
		reminders: deps.Reminders,
		archive:   deps.Archive,
		metrics:   deps.Metrics,
		logger:    logger.With("component", "console"),
		validate:  validator.New(),
	}, nil
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", s.metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/session", s.handleSession)
		r.Post("/session/login", s.handleLogin)
		r.Post("/session/logout", s.handleLogout)
		r.Get("/location", s.handleLocation)
		r.Get("/notifications", s.handleNotifications)
		r.Post("/notifications/test", s.handleTestNotification)
		r.Get("/notifications/history", s.handleNotificationHistory)
		r.Get("/reminders/today", s.handleTodayReminders)
	})

	for _, route := range s.guard.Table().Routes() {
		r.Get(route.Path, s.handleNavigate)
	}
	r.NotFound(s.handleNavigate)
	return r
}

type navigateResponse struct {
	Route  string            `json:"route"`
	Path   string            `json:"path"`
	Params map[string]string `json:"params,omitempty"`
	Query  url.Values        `json:"query,omitempty"`
}

// handleNavigate plays one page transition. The origin is the Referer, the
// same way a browser reports where the user came from.
func (s *Server) handleNavigate(w http.ResponseWriter, r *http.Request) {
	table := s.guard.Table()
	to := table.Resolve(r.URL.RequestURI())

	var from router.Location
	if ref := r.Referer(); ref != "" {
		if u, err := url.Parse(ref); err == nil {
			from = table.Resolve(u.RequestURI())
		}
	}

	d := s.guard.Check(r.Context(), s.sessions, to, from)
	target := d.Target(to)
	if !d.Allow {
		s.history.Push(target)
		http.Redirect(w, r, target.FullPath(), http.StatusFound)
		return
	}
	if target.Name == "" {
		writeError(w, http.StatusNotFound, "not_found")
		return
	}
	s.history.Push(target)
	writeJSON(w, http.StatusOK, navigateResponse{
		Route:  target.Name,
		Path:   target.Path,
		Params: target.Params,
		Query:  target.Query,
	})
}

type sessionResponse struct {
	Authenticated bool          `json:"authenticated"`
	User          *session.User `json:"user,omitempty"`
	RoleLabel     string        `json:"role_label"`
	Approved      bool          `json:"approved"`
	Home          string        `json:"home,omitempty"`
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	current := s.sessions.Current(r.Context())
	if current == nil {
		writeJSON(w, http.StatusOK, sessionResponse{RoleLabel: router.RoleLabel("")})
		return
	}
	user := current.User
	writeJSON(w, http.StatusOK, sessionResponse{
		Authenticated: true,
		User:          &user,
		RoleLabel:     router.RoleLabel(user.Role),
		Approved:      router.IsApprovedRole(user.Role),
		Home:          router.HomeFor(user.Role),
	})
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	User     session.User `json:"user"`
	Redirect string       `json:"redirect"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "username_and_password_required")
		return
	}

	resp, err := s.auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		s.writeBackendError(w, err)
		return
	}
	if resp.AccessToken == "" || (resp.User.Username == "" && resp.User.ID == 0) {
		writeError(w, http.StatusBadGateway, "invalid_login_response")
		return
	}
	if err := s.sessions.SetAuth(r.Context(), resp.AccessToken, resp.User); err != nil {
		s.logger.Error("store session failed", "error", err)
		writeError(w, http.StatusInternalServerError, "session_store_failed")
		return
	}
	if resp.RefreshToken != "" {
		if err := s.sessions.SetRefreshToken(r.Context(), resp.RefreshToken); err != nil {
			s.logger.Warn("store refresh token failed", "error", err)
		}
	}

	home := router.HomeFor(resp.User.Role)
	s.history.Navigate(home)
	s.logger.Info("signed in", "username", resp.User.Username, "role", resp.User.Role)
	writeJSON(w, http.StatusOK, loginResponse{User: resp.User, Redirect: home})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.ClearAuth(r.Context()); err != nil {
		s.logger.Error("clear session failed", "error", err)
		writeError(w, http.StatusInternalServerError, "session_store_failed")
		return
	}
	s.history.Navigate(clients.LoginPath)
	writeJSON(w, http.StatusOK, map[string]string{"status": "signed_out", "redirect": clients.LoginPath})
}

func (s *Server) handleLocation(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"current": s.history.Current(),
		"history": s.history.Entries(),
	})
}

func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request) {
	limit, ok := limitParam(w, r)
	if !ok {
		return
	}
	items := s.inbox.Recent(limit)
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "total": s.inbox.Len()})
}

func (s *Server) handleNotificationHistory(w http.ResponseWriter, r *http.Request) {
	if s.archive == nil {
		writeError(w, http.StatusServiceUnavailable, "history_disabled")
		return
	}
	limit, ok := limitParam(w, r)
	if !ok {
		return
	}
	records, err := s.archive.ListNotifications(r.Context(), s.cfg.StorageProfile, limit)
	if err != nil {
		s.logger.Error("list notification history failed", "error", err)
		writeError(w, http.StatusInternalServerError, "history_unavailable")
		return
	}
	if records == nil {
		records = []db.NotificationRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": records})
}

func limitParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 20, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		writeError(w, http.StatusBadRequest, "invalid_limit")
		return 0, false
	}
	return limit, true
}

func (s *Server) handleTestNotification(w http.ResponseWriter, r *http.Request) {
	if s.reminders == nil {
		writeError(w, http.StatusServiceUnavailable, "reminders_disabled")
		return
	}
	if err := s.reminders.TestNotification(r.Context()); err != nil {
		s.logger.Warn("test notification failed", "error", err)
		writeError(w, http.StatusBadGateway, "notification_failed")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "sent"})
}

func (s *Server) handleTodayReminders(w http.ResponseWriter, r *http.Request) {
	if s.reminders == nil {
		writeError(w, http.StatusServiceUnavailable, "reminders_disabled")
		return
	}
	if refresh, _ := strconv.ParseBool(r.URL.Query().Get("refresh")); refresh {
		s.reminders.Refresh(r.Context())
	}
	items := s.reminders.Snapshot()
	if items == nil {
		items = []clients.Reminder{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"state": s.reminders.State().String(),
		"items": items,
		"total": len(items),
	})
}

// writeBackendError passes a backend rejection through with its message.
func (s *Server) writeBackendError(w http.ResponseWriter, err error) {
	var reqErr *clients.RequestError
	if errors.As(err, &reqErr) {
		status := reqErr.Status
		if status < 400 || status > 599 {
			status = http.StatusBadGateway
		}
		writeJSON(w, status, map[string]string{"error": "backend_error", "message": reqErr.Message})
		return
	}
	s.logger.Warn("backend unreachable", "error", err)
	writeError(w, http.StatusBadGateway, "backend_unreachable")
}

func decodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}
