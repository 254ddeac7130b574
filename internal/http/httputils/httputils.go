package httputils

import (
	"encoding/json"
	"errors"
	"net/http"

	"shortlink/internal/domain/models"

	"github.com/rs/zerolog"
)

// MIME: https://developer.mozilla.org/en-US/docs/Web/HTTP/Guides/MIME_types/Common_types

const (
	HeaderContentType     = "Content-Type"
	HeaderContentEncoding = "Content-Encoding"
	HeaderAcceptEncoding  = "Accept-Encoding"
	HeaderContentLength   = "Content-Length"
	HeaderRequestID       = "X-Request-ID"
	HeaderVary            = "Vary"

	MIMEApplicationJSON = "application/json"
	MIMETextHTML        = "text/html"
	MIMETextPlain       = "text/plain"
	MIMEForm            = "application/x-www-form-urlencoded"

	EncodingGzip = "gzip"
)

const (
	MsgInvalidRequest     = "invalid request body"
	MsgLinkNotFound       = "invalid or expired short URL"
	MsgUnavailable        = "service temporarily unavailable"
	MsgInternal           = "internal server error"
	MsgCodeSpaceExhausted = "could not allocate a short code, try again later"
)

func WriteTextError(w http.ResponseWriter, status int, message string) {
	w.Header().Set(HeaderContentType, MIMETextPlain)
	w.WriteHeader(status)
	_, _ = w.Write([]byte(message))
}

func WriteJSONError(w http.ResponseWriter, status int, message string) {
	WriteJSONResponse(w, status, struct {
		Error string `json:"error"`
	}{Error: message})
}

func WriteJSONResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set(HeaderContentType, MIMEApplicationJSON)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func WriteRedirect(w http.ResponseWriter, r *http.Request, location string) {
	http.Redirect(w, r, location, http.StatusFound)
}

// WriteJSONServiceError отвечает JSON ошибкой; 5xx дополнительно пишутся в лог запроса
func WriteJSONServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := StatusFromError(err)
	logServiceError(r, status, err)
	WriteJSONError(w, status, msg)
}

// WriteTextServiceError - то же для текстовых ответов
func WriteTextServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := StatusFromError(err)
	logServiceError(r, status, err)
	WriteTextError(w, status, msg)
}

func logServiceError(r *http.Request, status int, err error) {
	if status < http.StatusInternalServerError {
		return
	}
	zerolog.Ctx(r.Context()).Error().
		Err(err).
		Int("status", status).
		Str("path", r.URL.Path).
		Msg("request failed")
}

// StatusFromError переводит доменную ошибку в HTTP статус и текст для клиента.
// Текст 5xx ошибок никогда не содержит внутренних деталей.
func StatusFromError(err error) (int, string) {
	switch {
	case errors.Is(err, models.ErrInvalidURL),
		errors.Is(err, models.ErrInvalidAlias):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, models.ErrAliasTaken):
		return http.StatusConflict, models.ErrAliasTaken.Error()
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound, MsgLinkNotFound
	case errors.Is(err, models.ErrGenerationExhausted):
		return http.StatusServiceUnavailable, MsgCodeSpaceExhausted
	case errors.Is(err, models.ErrStoreUnavailable):
		return http.StatusServiceUnavailable, MsgUnavailable
	default:
		return http.StatusInternalServerError, MsgInternal
	}
}
