package logger

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestMiddlewareLogging(t *testing.T) {
	tests := []struct {
		name          string
		status        int
		expectedLevel string
	}{
		{name: "успешный запрос", status: http.StatusFound, expectedLevel: `"level":"info"`},
		{name: "ошибка клиента", status: http.StatusNotFound, expectedLevel: `"level":"warn"`},
		{name: "ошибка сервера", status: http.StatusServiceUnavailable, expectedLevel: `"level":"error"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			log := zerolog.New(&buf).Level(zerolog.InfoLevel)

			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte("body"))
			})

			rr := httptest.NewRecorder()
			MiddlewareLogging(&log)(next).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/abc123", nil))

			out := buf.String()
			assert.Equal(t, tt.status, rr.Code)
			assert.Contains(t, out, tt.expectedLevel)
			assert.Contains(t, out, `"path":"/abc123"`)
			assert.Contains(t, out, `"bytes":4`)
			assert.Contains(t, out, `"message":"request completed"`)
		})
	}
}

func TestMiddlewareLogging_UsesRequestLogger(t *testing.T) {
	var baseBuf, reqBuf bytes.Buffer
	base := zerolog.New(&baseBuf)
	reqLog := zerolog.New(&reqBuf).With().Str("request_id", "r-1").Logger()

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(reqLog.WithContext(req.Context()))

	MiddlewareLogging(&base)(next).ServeHTTP(httptest.NewRecorder(), req)

	assert.Empty(t, baseBuf.String())
	assert.Contains(t, reqBuf.String(), `"request_id":"r-1"`)
	assert.Contains(t, reqBuf.String(), `"status":200`)
}
