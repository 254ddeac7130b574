package logger

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

const slowRequestThreshold = 100 * time.Millisecond

type responseRecorder struct {
	http.ResponseWriter
	statusCode int
	size       int
}

func (r *responseRecorder) WriteHeader(statusCode int) {
	if r.statusCode == 0 {
		r.statusCode = statusCode
	}
	r.ResponseWriter.WriteHeader(statusCode)
}

func (r *responseRecorder) Write(b []byte) (int, error) {
	if r.statusCode == 0 {
		r.statusCode = http.StatusOK
	}
	size, err := r.ResponseWriter.Write(b)
	r.size += size
	return size, err
}

// MiddlewareLogging пишет строку access-лога на запрос. Если выше по цепочке
// в контекст положен логгер запроса (request_id), используется он.
func MiddlewareLogging(base *zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			recorder := &responseRecorder{ResponseWriter: w}

			log := requestLogger(r, base)
			log.Debug().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Msg("request started")

			next.ServeHTTP(recorder, r)

			if recorder.statusCode == 0 {
				recorder.statusCode = http.StatusOK
			}
			duration := time.Since(start)

			var event *zerolog.Event
			switch {
			case recorder.statusCode >= 500:
				event = log.Error().Str("error_type", "server_error")
			case recorder.statusCode >= 400:
				event = log.Warn().Str("error_type", "client_error")
			default:
				event = log.Info()
			}

			if duration > slowRequestThreshold {
				event = event.Bool("slow", true)
			}

			event.
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", recorder.statusCode).
				Dur("duration_ms", duration).
				Int("bytes", recorder.size).
				Str("ip", r.RemoteAddr).
				Msg("request completed")
		})
	}
}

func requestLogger(r *http.Request, base *zerolog.Logger) *zerolog.Logger {
	if l := zerolog.Ctx(r.Context()); l.GetLevel() != zerolog.Disabled {
		return l
	}
	return base
}
