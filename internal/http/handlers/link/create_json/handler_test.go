package create_json

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"shortlink/internal/domain/models"
	"shortlink/internal/mocks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestHandlerCreateLinkJSON(t *testing.T) {
	alias := "my-link"
	days := 7
	expires := time.Date(2024, 3, 17, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name         string
		body         string
		setupMock    func(m *mocks.MockLinkService)
		expectedCode int
		expectedBody string
	}{
		{
			name: "успешное создание со сгенерированным кодом",
			body: `{"original_url":"https://example.com"}`,
			setupMock: func(m *mocks.MockLinkService) {
				m.EXPECT().
					Create(gomock.Any(), models.CreateRequest{OriginalURL: "https://example.com"}).
					Return(models.CreateResult{ShortCode: "abc123"}, nil)
				m.EXPECT().GetShortURL("abc123").Return("http://localhost:8080/abc123")
			},
			expectedCode: http.StatusCreated,
			expectedBody: `{"short_code":"abc123","short_url":"http://localhost:8080/abc123","expires_at":null}`,
		},
		{
			name: "алиас и срок жизни",
			body: `{"original_url":"https://example.com","custom_alias":"my-link","expiry_days":7}`,
			setupMock: func(m *mocks.MockLinkService) {
				m.EXPECT().
					Create(gomock.Any(), models.CreateRequest{
						OriginalURL: "https://example.com",
						CustomAlias: &alias,
						ExpiryDays:  &days,
					}).
					Return(models.CreateResult{ShortCode: alias, ExpiresAt: &expires}, nil)
				m.EXPECT().GetShortURL(alias).Return("http://localhost:8080/my-link")
			},
			expectedCode: http.StatusCreated,
			expectedBody: `{"short_code":"my-link","short_url":"http://localhost:8080/my-link","expires_at":"2024-03-17T12:00:00Z"}`,
		},
		{
			name:         "пустое тело",
			body:         "",
			setupMock:    func(m *mocks.MockLinkService) {},
			expectedCode: http.StatusBadRequest,
			expectedBody: `{"error":"invalid request body"}`,
		},
		{
			name:         "битый JSON",
			body:         `{"original_url":`,
			setupMock:    func(m *mocks.MockLinkService) {},
			expectedCode: http.StatusBadRequest,
			expectedBody: `{"error":"invalid request body"}`,
		},
		{
			name: "невалидный URL",
			body: `{"original_url":"ftp://example.com"}`,
			setupMock: func(m *mocks.MockLinkService) {
				m.EXPECT().Create(gomock.Any(), gomock.Any()).Return(models.CreateResult{}, models.ErrInvalidURL)
			},
			expectedCode: http.StatusBadRequest,
			expectedBody: `{"error":"invalid url"}`,
		},
		{
			name: "невалидный алиас",
			body: `{"original_url":"https://example.com","custom_alias":"a b"}`,
			setupMock: func(m *mocks.MockLinkService) {
				m.EXPECT().Create(gomock.Any(), gomock.Any()).Return(models.CreateResult{}, models.ErrAliasInvalidCharacters)
			},
			expectedCode: http.StatusBadRequest,
			expectedBody: `{"error":"invalid alias: alias contains invalid characters"}`,
		},
		{
			name: "алиас занят",
			body: `{"original_url":"https://example.com","custom_alias":"taken"}`,
			setupMock: func(m *mocks.MockLinkService) {
				m.EXPECT().Create(gomock.Any(), gomock.Any()).Return(models.CreateResult{}, models.ErrAliasTaken)
			},
			expectedCode: http.StatusConflict,
			expectedBody: `{"error":"alias already taken"}`,
		},
		{
			name: "пространство кодов исчерпано",
			body: `{"original_url":"https://example.com"}`,
			setupMock: func(m *mocks.MockLinkService) {
				m.EXPECT().Create(gomock.Any(), gomock.Any()).Return(models.CreateResult{}, models.ErrGenerationExhausted)
			},
			expectedCode: http.StatusServiceUnavailable,
			expectedBody: `{"error":"could not allocate a short code, try again later"}`,
		},
		{
			name: "хранилище недоступно",
			body: `{"original_url":"https://example.com"}`,
			setupMock: func(m *mocks.MockLinkService) {
				m.EXPECT().Create(gomock.Any(), gomock.Any()).
					Return(models.CreateResult{}, fmt.Errorf("%w: connection refused", models.ErrStoreUnavailable))
			},
			expectedCode: http.StatusServiceUnavailable,
			expectedBody: `{"error":"service temporarily unavailable"}`,
		},
		{
			name: "неизвестная ошибка не раскрывается клиенту",
			body: `{"original_url":"https://example.com"}`,
			setupMock: func(m *mocks.MockLinkService) {
				m.EXPECT().Create(gomock.Any(), gomock.Any()).Return(models.CreateResult{}, errors.New("secret details"))
			},
			expectedCode: http.StatusInternalServerError,
			expectedBody: `{"error":"internal server error"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			svc := mocks.NewMockLinkService(ctrl)
			tt.setupMock(svc)

			req := httptest.NewRequest(http.MethodPost, "/api/links", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			rr := httptest.NewRecorder()

			HandlerCreateLinkJSON(svc).ServeHTTP(rr, req)

			require.Equal(t, tt.expectedCode, rr.Code)
			assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
			assert.JSONEq(t, tt.expectedBody, rr.Body.String())
		})
	}
}
