package server

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"shortlink/internal/config"
	"shortlink/internal/http/dto"
	"shortlink/internal/mocks"
	"shortlink/internal/repository/inmemory"
	"shortlink/internal/services/codegen"
	"shortlink/internal/services/url_shortener"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const testBaseURL = "http://short.test"

func newTestServer(t *testing.T) *Server {
	t.Helper()

	log := zerolog.Nop()
	gen, err := codegen.New("", 6, 10)
	require.NoError(t, err)

	svc := url_shortener.NewServiceURLShortener(inmemory.NewStorage(), gen, &log, url_shortener.Options{
		BaseURL:       testBaseURL,
		MaxExpiryDays: 365,
	})

	srv, err := NewServer(&log, config.Config{ServerAddress: "localhost:0", BaseURL: testBaseURL}, svc)
	require.NoError(t, err)
	return srv
}

func do(t *testing.T, h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func createJSON(t *testing.T, h http.Handler, body string) (*httptest.ResponseRecorder, dto.CreateLinkResponse) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/links", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := do(t, h, req)

	var resp dto.CreateLinkResponse
	if rr.Code == http.StatusCreated {
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	}
	return rr, resp
}

func TestNewServer_Validation(t *testing.T) {
	log := zerolog.Nop()
	ctrl := gomock.NewController(t)
	svc := mocks.NewMockLinkService(ctrl)

	_, err := NewServer(&log, config.Config{}, svc)
	assert.Error(t, err)

	_, err = NewServer(nil, config.Config{ServerAddress: "localhost:0"}, svc)
	assert.Error(t, err)

	_, err = NewServer(&log, config.Config{ServerAddress: "localhost:0"}, nil)
	assert.Error(t, err)
}

func TestServer_CreateRedirectStats(t *testing.T) {
	h := newTestServer(t).Handler()

	rr, created := createJSON(t, h, `{"original_url":"https://example.com/docs?page=2"}`)
	require.Equal(t, http.StatusCreated, rr.Code)
	require.Len(t, created.ShortCode, 6)
	assert.Equal(t, testBaseURL+"/"+created.ShortCode, created.ShortURL)
	assert.Nil(t, created.ExpiresAt)
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))

	for i := 0; i < 3; i++ {
		rr = do(t, h, httptest.NewRequest(http.MethodGet, "/"+created.ShortCode, nil))
		require.Equal(t, http.StatusFound, rr.Code)
		assert.Equal(t, "https://example.com/docs?page=2", rr.Header().Get("Location"))
	}

	rr = do(t, h, httptest.NewRequest(http.MethodGet, "/stats/"+created.ShortCode, nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var stats dto.StatsResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &stats))
	assert.Equal(t, "https://example.com/docs?page=2", stats.OriginalURL)
	assert.EqualValues(t, 3, stats.TotalClicks)

	var perDay int64
	for _, n := range stats.ClicksByDate {
		perDay += n
	}
	assert.EqualValues(t, 3, perDay)
}

func TestServer_CustomAlias(t *testing.T) {
	h := newTestServer(t).Handler()

	rr, created := createJSON(t, h, `{"original_url":"https://example.com","custom_alias":"my-alias","expiry_days":7}`)
	require.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, "my-alias", created.ShortCode)
	require.NotNil(t, created.ExpiresAt)

	rr, _ = createJSON(t, h, `{"original_url":"https://other.example.com","custom_alias":"my-alias"}`)
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr, _ = createJSON(t, h, `{"original_url":"https://example.com","custom_alias":"bad alias!"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr, _ = createJSON(t, h, `{"original_url":"https://example.com","custom_alias":"stats"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(t, h, httptest.NewRequest(http.MethodGet, "/my-alias", nil))
	assert.Equal(t, http.StatusFound, rr.Code)
	assert.Equal(t, "https://example.com", rr.Header().Get("Location"))
}

func TestServer_CreateForm(t *testing.T) {
	h := newTestServer(t).Handler()

	form := url.Values{"original_url": {"https://example.com/form"}, "custom_alias": {""}}
	req := httptest.NewRequest(http.MethodPost, "/create", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := do(t, h, req)
	require.Equal(t, http.StatusCreated, rr.Code)

	var created dto.CreateLinkResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &created))

	rr = do(t, h, httptest.NewRequest(http.MethodGet, "/"+created.ShortCode, nil))
	assert.Equal(t, http.StatusFound, rr.Code)
	assert.Equal(t, "https://example.com/form", rr.Header().Get("Location"))
}

func TestServer_Errors(t *testing.T) {
	h := newTestServer(t).Handler()

	tests := []struct {
		name         string
		method       string
		target       string
		body         string
		expectedCode int
	}{
		{name: "неизвестный код", method: http.MethodGet, target: "/nope00", expectedCode: http.StatusNotFound},
		{name: "статистика неизвестного кода", method: http.MethodGet, target: "/stats/nope00", expectedCode: http.StatusNotFound},
		{name: "невалидный URL", method: http.MethodPost, target: "/api/links", body: `{"original_url":"not a url"}`, expectedCode: http.StatusBadRequest},
		{name: "javascript схема", method: http.MethodPost, target: "/api/links", body: `{"original_url":"javascript:alert(1)"}`, expectedCode: http.StatusBadRequest},
		{name: "неподдерживаемый метод", method: http.MethodDelete, target: "/api/links", expectedCode: http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, h, httptest.NewRequest(tt.method, tt.target, strings.NewReader(tt.body)))
			assert.Equal(t, tt.expectedCode, rr.Code)
		})
	}
}

func TestServer_PingAndIndex(t *testing.T) {
	h := newTestServer(t).Handler()

	rr := do(t, h, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "OK", rr.Body.String())

	rr = do(t, h, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "/api/links")
}

func TestServer_GzipStats(t *testing.T) {
	h := newTestServer(t).Handler()

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write([]byte(`{"original_url":"https://example.com/gz"}`))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/links", &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Content-Encoding", "gzip")
	req.Header.Set("Accept-Encoding", "gzip")
	rr := do(t, h, req)
	require.Equal(t, http.StatusCreated, rr.Code)
	require.Equal(t, "gzip", rr.Header().Get("Content-Encoding"))

	zr, err := gzip.NewReader(rr.Body)
	require.NoError(t, err)
	body, err := io.ReadAll(zr)
	require.NoError(t, err)

	var created dto.CreateLinkResponse
	require.NoError(t, json.Unmarshal(body, &created))
	assert.Equal(t, testBaseURL+"/"+created.ShortCode, created.ShortURL)
}
