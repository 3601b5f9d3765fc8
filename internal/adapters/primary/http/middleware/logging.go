package middleware

import (
	"bufio"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/hpos/callcenter-backend/internal/infrastructure/logging"
)

// statusRecorder captures the status code and byte count for the access log.
// Hijack stays visible because the websocket route upgrades through this
// wrapper; a hijacked request is logged as a protocol switch.
type statusRecorder struct {
	http.ResponseWriter
	status   int
	bytes    int64
	hijacked bool
}

func (rec *statusRecorder) WriteHeader(code int) {
	rec.status = code
	rec.ResponseWriter.WriteHeader(code)
}

func (rec *statusRecorder) Write(b []byte) (int, error) {
	n, err := rec.ResponseWriter.Write(b)
	rec.bytes += int64(n)
	return n, err
}

func (rec *statusRecorder) Flush() {
	if f, ok := rec.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (rec *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := rec.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("underlying writer does not support hijacking")
	}
	rec.hijacked = true
	return hj.Hijack()
}

// RequestLogger emits one structured access-log line per request, levelled
// by status code.
func RequestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	access := &logging.HTTPRequestLogger{Logger: logger}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			status := rec.status
			if rec.hijacked {
				status = http.StatusSwitchingProtocols
			}

			// Carry the request ID into the logging context so the handler
			// stamps it on the line.
			ctx := logging.WithRequestID(r.Context(), GetRequestID(r.Context()))

			access.LogRequest(
				ctx,
				r.Method,
				r.URL.Path,
				status,
				time.Since(start),
				rec.bytes,
				getClientIP(r),
				r.UserAgent(),
			)
		})
	}
}

// RecoveryLogger converts handler panics into a 500 response. The panic and
// its stack trace are logged; the process keeps serving.
func RecoveryLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if v := recover(); v != nil {
					logging.LogPanic(logger.With(
						"request_id", GetRequestID(r.Context()),
						"method", r.Method,
						"path", r.URL.Path,
					), v)

					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_, _ = w.Write([]byte(`{"error":"Internal server error","code":"INTERNAL_ERROR"}`))
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
