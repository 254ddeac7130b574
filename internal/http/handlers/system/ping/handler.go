package ping

import (
	"context"
	"net/http"

	"shortlink/internal/http/httputils"

	"github.com/rs/zerolog"
)

type Service interface {
	PingDataBase(ctx context.Context) error
}

func HandlerPing(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.PingDataBase(r.Context()); err != nil {
			zerolog.Ctx(r.Context()).Error().Err(err).Msg("Database ping failed")
			httputils.WriteTextError(w, http.StatusServiceUnavailable, "Database unavailable")
			return
		}
		w.Header().Set(httputils.HeaderContentType, httputils.MIMETextPlain)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}
}
