package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"citizenconnect/webclient/internal/apiclient"
	"citizenconnect/webclient/internal/audit"
	"citizenconnect/webclient/internal/config"
	"citizenconnect/webclient/internal/domain"
	"citizenconnect/webclient/internal/notify"
	"citizenconnect/webclient/internal/routes"
	"citizenconnect/webclient/internal/store"
)

type AuditLogger interface {
	Record(e audit.Event) error
}

type Deps struct {
	Store   *store.Store
	API     *apiclient.Client
	Routes  *routes.Table
	History *routes.History
	Toasts  *notify.Queue
	Audit   AuditLogger
	Logger  *slog.Logger
}

type Server struct {
	httpServer *http.Server
}

func New(cfg config.HTTPConfig, deps Deps) *Server {
	handler := NewHandler(deps)

	return &Server{
		httpServer: &http.Server{
			Addr:         cfg.Addr,
			Handler:      loggingMiddleware(deps.Logger, handler),
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  60 * time.Second,
		},
	}
}

type handler struct {
	Deps
	loaders map[string]pageLoader
}

func NewHandler(deps Deps) http.Handler {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Toasts == nil {
		deps.Toasts = notify.NewQueue(0)
	}
	if deps.History == nil {
		deps.History = routes.NewHistory()
	}
	h := &handler{Deps: deps}
	h.loaders = h.pageLoaders()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("GET /readyz", func(w http.ResponseWriter, _ *http.Request) {
		if deps.Store == nil || deps.API == nil || deps.Routes == nil {
			writeError(w, http.StatusServiceUnavailable, "client not wired")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	})
	mux.HandleFunc("GET /v1/info", func(w http.ResponseWriter, _ *http.Request) {
		info := map[string]string{
			"service": "citizenconnect-webclient",
			"version": "0.1.0",
		}
		if deps.API != nil {
			info["api"] = deps.API.BaseURL()
		}
		writeJSON(w, http.StatusOK, info)
	})

	h.registerActionHandlers(mux)
	h.registerFileHandlers(mux)
	mux.HandleFunc("GET /", h.servePage)

	return mux
}

func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (h *handler) viewer() (routes.Viewer, *domain.User) {
	auth := h.Store.Snapshot().Auth
	v := routes.Viewer{Authenticated: auth.IsAuthenticated}
	if auth.User != nil {
		v.Role = auth.User.Role
	}
	return v, auth.User
}

// fail reports err the way the user sees it: a 401 sends the viewer to the
// forced location, a server rejection becomes an error toast with the
// server's message, anything else becomes the generic toast.
func (h *handler) fail(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	if redirect, ok := h.History.TakeRedirect(); ok || errors.Is(err, apiclient.ErrUnauthorized) {
		if redirect == "" {
			redirect = routes.LoginPath
		}
		h.record(r, nil, audit.ActionForcedLogout, r.URL.Path, audit.OutcomeSuccess, err.Error())
		writeAction(w, http.StatusUnauthorized, actionResult{Redirect: redirect, Toasts: h.Toasts.Drain()})
		return
	}

	h.toastError(err, fallback)
	h.Logger.Warn("action failed", "path", r.URL.Path, "request_id", requestIDFromContext(r.Context()), "error", err)
	writeAction(w, statusFor(err), actionResult{Toasts: h.Toasts.Drain()})
}

func (h *handler) record(r *http.Request, user *domain.User, action audit.Action, target, outcome, detail string) {
	if h.Audit == nil {
		return
	}
	e := audit.Event{
		RequestID: requestIDFromContext(r.Context()),
		Action:    action,
		Target:    target,
		Outcome:   outcome,
		Detail:    strings.TrimSpace(strings.Join([]string{"ip=" + clientIP(r), detail}, " ")),
	}
	if user != nil {
		e.Actor = user.Email
		e.Role = string(user.Role)
	}
	if err := h.Audit.Record(e); err != nil {
		h.Logger.Error("record activity failed", "action", string(action), "error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(statusCode int) {
	r.status = statusCode
	r.ResponseWriter.WriteHeader(statusCode)
}

// loggingMiddleware assigns the request id, hands it to outgoing API calls
// and logs one line per request.
func loggingMiddleware(logger *slog.Logger, next http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		reqID := strings.TrimSpace(r.Header.Get(apiclient.RequestIDHeader))
		if reqID == "" {
			reqID = uuid.NewString()
		}
		w.Header().Set(apiclient.RequestIDHeader, reqID)
		r = r.WithContext(apiclient.ContextWithRequestID(r.Context(), reqID))
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.Info("request completed",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"request_id", reqID,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

func requestIDFromContext(ctx context.Context) string {
	return apiclient.RequestIDFromContext(ctx)
}

func clientIP(r *http.Request) string {
	if fwd := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); fwd != "" {
		parts := strings.Split(fwd, ",")
		return strings.TrimSpace(parts[0])
	}
	if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
		return realIP
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil {
		return host
	}
	return r.RemoteAddr
}
