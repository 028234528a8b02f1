package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

type accessLogKey struct{}

// accessLog collects fields that inner handlers learn during the request.
type accessLog struct {
	adminID string
}

// annotateAdmin records the authenticated admin on the access log line of
// the current request, if Logger is in the chain.
func annotateAdmin(ctx context.Context, adminID string) {
	if al, ok := ctx.Value(accessLogKey{}).(*accessLog); ok {
		al.adminID = adminID
	}
}

// Logger writes one access-log line per request. Client errors are logged
// at WARN and server errors at ERROR, so repeated 401 and 423 answers from
// the login route stand out.
func Logger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
			al := &accessLog{}

			next.ServeHTTP(ww, r.WithContext(context.WithValue(r.Context(), accessLogKey{}, al)))

			level := slog.LevelInfo
			switch {
			case ww.status >= 500:
				level = slog.LevelError
			case ww.status >= 400:
				level = slog.LevelWarn
			}

			attrs := []slog.Attr{
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.status),
				slog.Float64("duration_ms", float64(time.Since(start).Microseconds())/1000.0),
				slog.Int("bytes", ww.bytes),
				slog.String("request_id", GetRequestID(r.Context())),
				slog.String("remote_addr", r.RemoteAddr),
				slog.String("user_agent", r.UserAgent()),
			}
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if pattern := rctx.RoutePattern(); pattern != "" {
					attrs = append(attrs, slog.String("route", pattern))
				}
			}
			if al.adminID != "" {
				attrs = append(attrs, slog.String("admin_id", al.adminID))
			}

			logger.LogAttrs(r.Context(), level, "request", attrs...)
		})
	}
}

// responseWriter records the status and size of a response. Only the first
// WriteHeader counts.
type responseWriter struct {
	http.ResponseWriter
	status      int
	bytes       int
	wroteHeader bool
}

func (w *responseWriter) WriteHeader(code int) {
	if w.wroteHeader {
		return
	}
	w.wroteHeader = true
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *responseWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	n, err := w.ResponseWriter.Write(b)
	w.bytes += n
	return n, err
}

// Unwrap exposes the underlying writer to http.ResponseController.
func (w *responseWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
