package requestid

import (
	"net/http"

	"shortlink/internal/http/httputils"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const maxIncomingIDLength = 128

// MiddlewareRequestID присваивает запросу id (берет X-Request-ID клиента, если он
// разумной длины) и кладет в контекст логгер с полем request_id.
func MiddlewareRequestID(log *zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(httputils.HeaderRequestID)
			if id == "" || len(id) > maxIncomingIDLength {
				id = uuid.NewString()
			}
			w.Header().Set(httputils.HeaderRequestID, id)

			reqLog := log.With().Str("request_id", id).Logger()
			next.ServeHTTP(w, r.WithContext(reqLog.WithContext(r.Context())))
		})
	}
}
