package create_form

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"shortlink/internal/domain/models"
	"shortlink/internal/http/dto"
	"shortlink/internal/http/httputils"
)

const maxBodyBytes = 1 << 16

type ServiceLinkCreator interface {
	Create(ctx context.Context, req models.CreateRequest) (models.CreateResult, error)
	GetShortURL(shortCode string) string
}

// HandlerCreateLinkForm - POST /create, поля original_url, custom_alias, expiry_days.
// Пустые необязательные поля считаются отсутствующими.
func HandlerCreateLinkForm(svc ServiceLinkCreator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		if err := r.ParseForm(); err != nil {
			httputils.WriteJSONError(w, http.StatusBadRequest, httputils.MsgInvalidRequest)
			return
		}

		req := models.CreateRequest{
			OriginalURL: r.PostFormValue("original_url"),
		}

		if alias := strings.TrimSpace(r.PostFormValue("custom_alias")); alias != "" {
			req.CustomAlias = &alias
		}

		if raw := strings.TrimSpace(r.PostFormValue("expiry_days")); raw != "" {
			days, err := strconv.Atoi(raw)
			if err != nil {
				httputils.WriteJSONError(w, http.StatusBadRequest, "expiry_days must be an integer")
				return
			}
			req.ExpiryDays = &days
		}

		res, err := svc.Create(ctx, req)
		if err != nil {
			httputils.WriteJSONServiceError(w, r, err)
			return
		}

		resp := dto.CreateLinkResponseFromDomain(res, svc.GetShortURL(res.ShortCode))
		httputils.WriteJSONResponse(w, http.StatusCreated, resp)
	}
}
