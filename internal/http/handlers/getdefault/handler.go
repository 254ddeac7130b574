package getdefault

import (
	"net/http"

	"shortlink/internal/http/httputils"
)

const index = `shortlink

POST /api/links     {"original_url": "...", "custom_alias": "...", "expiry_days": 7}
POST /create        form: original_url, custom_alias, expiry_days
GET  /stats/{code}  usage statistics
GET  /{code}        redirect
GET  /ping          storage health
`

func HandlerGetDefault() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(httputils.HeaderContentType, httputils.MIMETextPlain)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(index))
	}
}
