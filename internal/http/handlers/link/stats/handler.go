package stats

import (
	"context"
	"net/http"

	"shortlink/internal/domain/models"
	"shortlink/internal/http/dto"
	"shortlink/internal/http/httputils"

	"github.com/gorilla/mux"
)

type ServiceLinkStats interface {
	Stats(ctx context.Context, code string) (models.LinkStats, error)
}

// HandlerStats - GET /stats/{code}
func HandlerStats(svc ServiceLinkStats) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := svc.Stats(r.Context(), mux.Vars(r)["code"])
		if err != nil {
			httputils.WriteJSONServiceError(w, r, err)
			return
		}
		httputils.WriteJSONResponse(w, http.StatusOK, dto.StatsResponseFromDomain(stats))
	}
}
