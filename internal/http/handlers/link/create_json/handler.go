package create_json

import (
	"context"
	"encoding/json"
	"net/http"

	"shortlink/internal/domain/models"
	"shortlink/internal/http/dto"
	"shortlink/internal/http/httputils"
)

const maxBodyBytes = 1 << 16

type ServiceLinkCreator interface {
	Create(ctx context.Context, req models.CreateRequest) (models.CreateResult, error)
	GetShortURL(shortCode string) string
}

// HandlerCreateLinkJSON - POST /api/links
func HandlerCreateLinkJSON(svc ServiceLinkCreator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req dto.CreateLinkRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
			httputils.WriteJSONError(w, http.StatusBadRequest, httputils.MsgInvalidRequest)
			return
		}

		res, err := svc.Create(ctx, req.ToDomain())
		if err != nil {
			httputils.WriteJSONServiceError(w, r, err)
			return
		}

		resp := dto.CreateLinkResponseFromDomain(res, svc.GetShortURL(res.ShortCode))
		httputils.WriteJSONResponse(w, http.StatusCreated, resp)
	}
}
