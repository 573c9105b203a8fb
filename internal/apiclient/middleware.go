package apiclient

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
)

type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

type DoerFunc func(req *http.Request) (*http.Response, error)

func (f DoerFunc) Do(req *http.Request) (*http.Response, error) { return f(req) }

// Middleware decorates a Doer. The first middleware passed to New is the
// outermost.
type Middleware func(next Doer) Doer

type TokenSource interface {
	Token() string
}

type SessionClearer interface {
	Clear() error
}

type Navigator interface {
	Navigate(path string)
}

const RequestIDHeader = "X-Request-Id"

func WithBearer(tokens TokenSource) Middleware {
	return func(next Doer) Doer {
		return DoerFunc(func(req *http.Request) (*http.Response, error) {
			if tokens != nil {
				if token := tokens.Token(); token != "" {
					req.Header.Set("Authorization", "Bearer "+token)
				}
			}
			return next.Do(req)
		})
	}
}

// WithUnauthorized clears the session and forces navigation to loginPath on
// every 401, whatever the request was. The response is returned unchanged so
// the caller still sees the failure.
func WithUnauthorized(clearer SessionClearer, nav Navigator, loginPath string, logger *slog.Logger) Middleware {
	return func(next Doer) Doer {
		return DoerFunc(func(req *http.Request) (*http.Response, error) {
			resp, err := next.Do(req)
			if err != nil || resp.StatusCode != http.StatusUnauthorized {
				return resp, err
			}
			if clearer != nil {
				if clearErr := clearer.Clear(); clearErr != nil && logger != nil {
					logger.Error("clear session failed", "error", clearErr)
				}
			}
			if nav != nil {
				nav.Navigate(loginPath)
			}
			return resp, nil
		})
	}
}

type requestIDKey struct{}

func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// WithRequestID tags each request with the id carried by its context, or a
// fresh one. A header set by the caller is kept.
func WithRequestID() Middleware {
	return func(next Doer) Doer {
		return DoerFunc(func(req *http.Request) (*http.Response, error) {
			if req.Header.Get(RequestIDHeader) == "" {
				id := RequestIDFromContext(req.Context())
				if id == "" {
					id = uuid.NewString()
				}
				req.Header.Set(RequestIDHeader, id)
			}
			return next.Do(req)
		})
	}
}

func WithLogging(logger *slog.Logger) Middleware {
	return func(next Doer) Doer {
		if logger == nil {
			return next
		}
		return DoerFunc(func(req *http.Request) (*http.Response, error) {
			start := time.Now()
			resp, err := next.Do(req)
			attrs := []any{
				"method", req.Method,
				"path", req.URL.Path,
				"request_id", req.Header.Get(RequestIDHeader),
				"duration_ms", time.Since(start).Milliseconds(),
			}
			if err != nil {
				logger.Warn("api request failed", append(attrs, "error", err)...)
				return resp, err
			}
			logger.Info("api request", append(attrs, "status", resp.StatusCode)...)
			return resp, nil
		})
	}
}
