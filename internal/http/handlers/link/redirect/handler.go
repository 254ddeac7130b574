package redirect

import (
	"context"
	"net/http"
	"time"

	"shortlink/internal/http/httputils"

	"github.com/gorilla/mux"
)

type ServiceLinkResolver interface {
	Resolve(ctx context.Context, code string, now time.Time) (string, error)
}

// HandlerRedirect - GET /{code}. Неизвестная, выключенная и истекшая ссылки
// неразличимы для клиента: 404.
func HandlerRedirect(svc ServiceLinkResolver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := mux.Vars(r)["code"]

		target, err := svc.Resolve(r.Context(), code, time.Now())
		if err != nil {
			httputils.WriteTextServiceError(w, r, err)
			return
		}
		httputils.WriteRedirect(w, r, target)
	}
}
