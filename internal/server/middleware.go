package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/playshare/internal/models"
	"github.com/desertthunder/playshare/internal/shared"
)

type viewerKey struct{}

// SessionStore resolves bearer tokens into sessions.
type SessionStore interface {
	Get(ctx context.Context, token string) (*models.Session, error)
}

// statusRecorder captures the status code written by the wrapped handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// Logging logs one line per request with its method, path, status and duration.
func Logging(logger *log.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			level := log.InfoLevel
			if rec.status >= http.StatusInternalServerError {
				level = log.ErrorLevel
			}
			logger.Log(level, "request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", rec.status,
				"duration", time.Since(start),
			)
		})
	}
}

// Recover turns a panicking handler into a 500 response.
func Recover(logger *log.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if v := recover(); v != nil {
					logger.Error("handler panicked", "path", r.URL.Path, "panic", v)
					writeError(w, logger, errors.New("internal error"))
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// Authenticate resolves an "Authorization: Bearer" header into the viewer's user id.
//
// Requests without the header pass through anonymously. A header carrying an unknown or expired
// token is rejected with 401.
func Authenticate(sessions SessionStore, logger *log.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				next.ServeHTTP(w, r)
				return
			}

			scheme, token, ok := strings.Cut(header, " ")
			if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
				writeError(w, logger, shared.ErrNotAuthenticated)
				return
			}

			session, err := sessions.Get(r.Context(), token)
			if errors.Is(err, shared.ErrSessionNotFound) {
				err = shared.ErrNotAuthenticated
			}
			if err != nil {
				writeError(w, logger, err)
				return
			}

			ctx := context.WithValue(r.Context(), viewerKey{}, session.UserID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Viewer returns the authenticated user id of the request, or "" when anonymous.
func Viewer(ctx context.Context) string {
	id, _ := ctx.Value(viewerKey{}).(string)
	return id
}

// requireViewer rejects anonymous requests.
func requireViewer(logger *log.Logger, next func(w http.ResponseWriter, r *http.Request, viewer string)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		viewer := Viewer(r.Context())
		if viewer == "" {
			writeError(w, logger, shared.ErrNotAuthenticated)
			return
		}
		next(w, r, viewer)
	}
}
