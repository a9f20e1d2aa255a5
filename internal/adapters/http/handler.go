package httpadapter

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/PabloGalante/assistant-chat/internal/app/conversation"
	"github.com/PabloGalante/assistant-chat/internal/app/identity"
	"github.com/PabloGalante/assistant-chat/internal/app/sessions"
	"github.com/PabloGalante/assistant-chat/internal/domain"
	"github.com/PabloGalante/assistant-chat/internal/observability"
	"github.com/PabloGalante/assistant-chat/internal/render"
)

// DefaultMaxUpload bounds multipart bodies on /chat and message sends.
const DefaultMaxUpload = 10 << 20

type Deps struct {
	Conversation *conversation.Service
	Sessions     *sessions.Manager
	Completion   domain.CompletionClient
	Resolver     *identity.Resolver
	// Accounts is optional; without it the /accounts routes answer 404.
	Accounts *identity.Accounts
}

type Options struct {
	ChatRateLimit float64 // requests per second per client, 0 disables
	ChatRateBurst int
	CodeStyle     string
	MaxUpload     int64
}

type Server struct {
	conv       *conversation.Service
	sessions   *sessions.Manager
	completion domain.CompletionClient
	resolver   *identity.Resolver
	accounts   *identity.Accounts

	codeStyle string
	maxUpload int64
}

func NewServer(d Deps, opts Options) http.Handler {
	if opts.CodeStyle == "" {
		opts.CodeStyle = render.DefaultStyle
	}
	if opts.MaxUpload <= 0 {
		opts.MaxUpload = DefaultMaxUpload
	}

	s := &Server{
		conv:       d.Conversation,
		sessions:   d.Sessions,
		completion: d.Completion,
		resolver:   d.Resolver,
		accounts:   d.Accounts,
		codeStyle:  opts.CodeStyle,
		maxUpload:  opts.MaxUpload,
	}

	limited := func(h http.HandlerFunc) http.Handler { return h }
	if opts.ChatRateLimit > 0 {
		limiter := newClientLimiter(opts.ChatRateLimit, opts.ChatRateBurst)
		limited = func(h http.HandlerFunc) http.Handler { return withRateLimit(limiter, h) }
	}

	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/code.css", s.handleStylesheet)

	// /chat → stateless completion proxy (POST)
	mux.Handle("/chat", limited(s.handleChat))

	// /sessions         → GET: owner's sessions
	// /sessions/resolve → POST: start or continue a chat
	mux.HandleFunc("/sessions", s.handleSessions)
	mux.HandleFunc("/sessions/resolve", s.handleResolve)

	// /sessions/{id}          → PATCH: rename, DELETE: delete
	// /sessions/{id}/messages → GET: transcript, POST: send
	// /sessions/{id}/voice    → POST: listen once and send
	mux.Handle("/sessions/", s.sessionRoutes(limited))

	mux.HandleFunc("/history", s.handleHistory)

	mux.HandleFunc("/accounts/signup", s.handleSignUp)
	mux.HandleFunc("/accounts/login", s.handleLogin)
	mux.HandleFunc("/accounts/logout", s.handleLogout)

	return chainMiddlewares(mux, withLogging, withCORS, withRequestID)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStylesheet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	w.Header().Set("Content-Type", "text/css; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	if err := render.Stylesheet(w, s.codeStyle); err != nil {
		logger(r).Error("writing stylesheet failed", "error", err)
	}
}

// sessionRoutes dispatches /sessions/{id} and its sub-resources.
func (s *Server) sessionRoutes(limited func(http.HandlerFunc) http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/sessions/"), "/")
		parts := strings.Split(path, "/")
		id := domain.SessionID(parts[0])
		if id == "" || len(parts) > 2 {
			notFound(w)
			return
		}

		if len(parts) == 1 {
			switch r.Method {
			case http.MethodPatch:
				s.handleRename(w, r, id)
			case http.MethodDelete:
				s.handleDelete(w, r, id)
			default:
				methodNotAllowed(w)
			}
			return
		}

		switch {
		case parts[1] == "messages" && r.Method == http.MethodGet:
			s.handleTranscript(w, r, id)
		case parts[1] == "messages" && r.Method == http.MethodPost:
			limited(func(w http.ResponseWriter, r *http.Request) { s.handleSend(w, r, id) }).ServeHTTP(w, r)
		case parts[1] == "voice" && r.Method == http.MethodPost:
			s.handleVoice(w, r, id)
		case parts[1] == "messages" || parts[1] == "voice":
			methodNotAllowed(w)
		default:
			notFound(w)
		}
	})
}

// ─────────────────────────────────────────────
// HTTP Helpers
// ─────────────────────────────────────────────

func logger(r *http.Request) *slog.Logger {
	return observability.LoggerFromContext(r.Context()).With("path", r.URL.Path)
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func badRequest(w http.ResponseWriter, msg string) {
	writeError(w, http.StatusBadRequest, msg)
}

func notFound(w http.ResponseWriter) {
	writeError(w, http.StatusNotFound, "not found")
}

func internalError(w http.ResponseWriter, r *http.Request, err error) {
	logger(r).Error("request failed", "error", err)
	writeError(w, http.StatusInternalServerError, "internal server error")
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

// statusFor maps sentinel errors onto HTTP statuses.
func statusFor(err error) (int, string, bool) {
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		return http.StatusNotFound, "session not found", true
	case errors.Is(err, domain.ErrSendInFlight):
		return http.StatusConflict, err.Error(), true
	case errors.Is(err, conversation.ErrEmptyMessage):
		return http.StatusBadRequest, "message is required", true
	case errors.Is(err, domain.ErrVoiceUnavailable):
		return http.StatusNotImplemented, err.Error(), true
	case errors.Is(err, domain.ErrAccountExists):
		return http.StatusConflict, err.Error(), true
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized, err.Error(), true
	case errors.Is(err, identity.ErrMissingCredentials):
		return http.StatusBadRequest, err.Error(), true
	default:
		return 0, "", false
	}
}

func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	if status, msg, ok := statusFor(err); ok {
		writeError(w, status, msg)
		return
	}
	internalError(w, r, err)
}
