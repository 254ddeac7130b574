package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"shortlink/internal/config"
	"shortlink/internal/domain/models"
	"shortlink/internal/http/handlers/getdefault"
	"shortlink/internal/http/handlers/link/create_form"
	"shortlink/internal/http/handlers/link/create_json"
	"shortlink/internal/http/handlers/link/redirect"
	"shortlink/internal/http/handlers/link/stats"
	"shortlink/internal/http/handlers/middlewares/compressor"
	"shortlink/internal/http/handlers/middlewares/logger"
	"shortlink/internal/http/handlers/middlewares/requestid"
	"shortlink/internal/http/handlers/system/ping"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

//go:generate mockgen -source=server.go -destination=../../mocks/mock_link_service.go -package=mocks
type LinkService interface {
	Create(ctx context.Context, req models.CreateRequest) (models.CreateResult, error)
	GetShortURL(shortCode string) string
	Resolve(ctx context.Context, code string, now time.Time) (string, error)
	Stats(ctx context.Context, code string) (models.LinkStats, error)
	PingDataBase(ctx context.Context) error
}

type Server struct {
	httpServer *http.Server
	router     *mux.Router
	log        *zerolog.Logger
	svc        LinkService
	cfg        config.Config
}

func NewServer(log *zerolog.Logger, cfg config.Config, svc LinkService) (*Server, error) {
	if cfg.ServerAddress == "" {
		return nil, errors.New("server address cannot be empty")
	}
	if log == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if svc == nil {
		return nil, errors.New("service cannot be nil")
	}

	s := &Server{
		router: mux.NewRouter(),
		cfg:    cfg,
		log:    log,
		svc:    svc,
	}

	s.httpServer = &http.Server{
		Addr:              cfg.ServerAddress,
		Handler:           s.router,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	s.setupRoutes()
	return s, nil
}

func (s *Server) setupRoutes() {
	s.router.Use(requestid.MiddlewareRequestID(s.log))
	s.router.Use(logger.MiddlewareLogging(s.log))
	s.router.Use(compressor.MiddlewareCompressing())

	s.router.HandleFunc("/ping", ping.HandlerPing(s.svc)).Methods(http.MethodGet)
	s.router.HandleFunc("/api/links", create_json.HandlerCreateLinkJSON(s.svc)).Methods(http.MethodPost) // 201
	s.router.HandleFunc("/create", create_form.HandlerCreateLinkForm(s.svc)).Methods(http.MethodPost)    // 201
	s.router.HandleFunc("/stats/{code}", stats.HandlerStats(s.svc)).Methods(http.MethodGet)               // 200, 404
	s.router.HandleFunc("/", getdefault.HandlerGetDefault()).Methods(http.MethodGet)                      // 200

	// последним: иначе перехватит /ping и /create
	s.router.HandleFunc("/{code:[A-Za-z0-9_-]+}", redirect.HandlerRedirect(s.svc)).Methods(http.MethodGet) // 302, 404
}

// Handler отдает роутер со всеми middleware, нужен для httptest
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start(ctx context.Context) error {
	s.log.Info().Str("address", s.cfg.ServerAddress).Msg("Starting server")
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down server")
	return s.httpServer.Shutdown(ctx)
}
