package url_shortener

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"shortlink/internal/domain/models"
	"shortlink/internal/services/alias"
	"shortlink/internal/services/codegen"

	"github.com/rs/zerolog"
)

/*
LinkStore - хранилище коротких ссылок. Уникальность short_code обеспечивает
само хранилище: Insert возвращает models.ErrConflict на дубликат.
*/

//go:generate mockgen -source=url_shortener.go -destination=../../mocks/mock_link_store.go -package=mocks
type LinkStore interface {
	Insert(ctx context.Context, link models.ShortLink) (models.ShortLink, error)
	FindByCode(ctx context.Context, code string) (models.ShortLink, error)
	RecordAccess(ctx context.Context, code string, when time.Time) error
	GetStats(ctx context.Context, code string) (models.LinkStats, error)
	Ping(ctx context.Context) error
}

const (
	maxURLLength         = 2048
	defaultAccessTimeout = 5 * time.Second
)

type Options struct {
	BaseURL           string
	DefaultExpiryDays int // 0 - без срока
	MaxExpiryDays     int // 0 - без ограничения
	AccessTimeout     time.Duration
}

// URLShortener реализует создание и разрешение коротких ссылок
type URLShortener struct {
	storage LinkStore
	codes   *codegen.Generator
	aliases *alias.Validator
	log     *zerolog.Logger

	baseURL           string
	defaultExpiryDays int
	maxExpiryDays     int
	accessTimeout     time.Duration

	now func() time.Time
}

// NewServiceURLShortener создает новый экземпляр сервиса
func NewServiceURLShortener(storage LinkStore, codes *codegen.Generator, log *zerolog.Logger, opts Options) *URLShortener {
	if log == nil {
		nop := zerolog.Nop()
		log = &nop
	}
	if opts.AccessTimeout <= 0 {
		opts.AccessTimeout = defaultAccessTimeout
	}

	return &URLShortener{
		storage:           storage,
		codes:             codes,
		aliases:           alias.NewValidator(storage),
		log:               log,
		baseURL:           strings.TrimRight(opts.BaseURL, "/"),
		defaultExpiryDays: opts.DefaultExpiryDays,
		maxExpiryDays:     opts.MaxExpiryDays,
		accessTimeout:     opts.AccessTimeout,
		now:               time.Now,
	}
}

// GetShortURL возвращает полный короткий URL
func (s *URLShortener) GetShortURL(shortCode string) string {
	return fmt.Sprintf("%s/%s", s.baseURL, shortCode)
}

// Create проверяет запрос, выделяет код и сохраняет ссылку
func (s *URLShortener) Create(ctx context.Context, req models.CreateRequest) (models.CreateResult, error) {
	req.OriginalURL = strings.TrimSpace(req.OriginalURL)
	if err := validateURL(req.OriginalURL); err != nil {
		return models.CreateResult{}, err
	}

	now := s.now().UTC()
	link := models.ShortLink{
		OriginalURL:  req.OriginalURL,
		CreatedAt:    now,
		IsActive:     true,
		ExpiresAt:    s.expiresAt(now, req.ExpiryDays),
		ClicksByDate: map[string]int64{},
	}

	var (
		created models.ShortLink
		err     error
	)
	if req.CustomAlias != nil {
		created, err = s.createWithAlias(ctx, link, *req.CustomAlias)
	} else {
		created, err = s.createGenerated(ctx, link)
	}
	if err != nil {
		return models.CreateResult{}, err
	}

	s.log.Debug().
		Str("short_code", created.ShortCode).
		Int64("id", created.ID).
		Bool("custom", created.CustomAlias != nil).
		Msg("short link created")

	return models.CreateResult{
		ShortCode: created.ShortCode,
		ExpiresAt: created.ExpiresAt,
	}, nil
}

func (s *URLShortener) createWithAlias(ctx context.Context, link models.ShortLink, customAlias string) (models.ShortLink, error) {
	if err := s.aliases.Validate(ctx, customAlias); err != nil {
		if errors.Is(err, models.ErrInvalidAlias) || errors.Is(err, models.ErrAliasTaken) {
			return models.ShortLink{}, err
		}
		return models.ShortLink{}, storeError("validate alias", err)
	}

	link.ShortCode = customAlias
	link.CustomAlias = &customAlias

	// хранилище - окончательный арбитр: алиас мог занять параллельный запрос
	created, err := s.storage.Insert(ctx, link)
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			return models.ShortLink{}, models.ErrAliasTaken
		}
		return models.ShortLink{}, storeError("insert link", err)
	}
	return created, nil
}

func (s *URLShortener) createGenerated(ctx context.Context, link models.ShortLink) (models.ShortLink, error) {
	var created models.ShortLink

	claim := func(ctx context.Context, code string) (bool, error) {
		if alias.IsReserved(code) {
			// такой код перекрыт маршрутом и недостижим
			return false, nil
		}
		link.ShortCode = code

		var err error
		created, err = s.storage.Insert(ctx, link)
		switch {
		case err == nil:
			return true, nil
		case errors.Is(err, models.ErrConflict):
			s.log.Debug().Str("short_code", code).Msg("short code collision, redrawing")
			return false, nil
		default:
			return false, storeError("insert link", err)
		}
	}

	if _, err := s.codes.Generate(ctx, claim); err != nil {
		if errors.Is(err, models.ErrGenerationExhausted) {
			s.log.Warn().Err(err).Msg("short code space looks saturated")
		}
		return models.ShortLink{}, err
	}
	return created, nil
}

func (s *URLShortener) expiresAt(now time.Time, expiryDays *int) *time.Time {
	days := s.defaultExpiryDays
	if expiryDays != nil {
		days = *expiryDays
	}
	if days <= 0 {
		return nil
	}
	if s.maxExpiryDays > 0 && days > s.maxExpiryDays {
		days = s.maxExpiryDays
	}

	expires := now.Add(time.Duration(days) * 24 * time.Hour)
	return &expires
}

// Resolve возвращает исходный URL и засчитывает переход. Для неизвестной,
// выключенной и истекшей ссылки - models.ErrNotFound.
func (s *URLShortener) Resolve(ctx context.Context, code string, now time.Time) (string, error) {
	if code == "" {
		return "", models.ErrNotFound
	}

	link, err := s.storage.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return "", models.ErrNotFound
		}
		return "", storeError("find link", err)
	}

	if !link.Resolvable(now) {
		return "", models.ErrNotFound
	}

	// кэш мог отдать устаревший IsActive: решает UPDATE в хранилище
	if err := s.recordAccess(ctx, code, now); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return "", models.ErrNotFound
		}
		s.log.Error().
			Err(err).
			Str("short_code", code).
			Msg("failed to record access")
	}
	return link.OriginalURL, nil
}

// recordAccess доводит запись до конца, даже если клиент уже отвалился
func (s *URLShortener) recordAccess(ctx context.Context, code string, when time.Time) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.accessTimeout)
	defer cancel()

	return s.storage.RecordAccess(ctx, code, when.UTC())
}

// Stats отдает статистику по коду, в том числе для выключенных и истекших ссылок
func (s *URLShortener) Stats(ctx context.Context, code string) (models.LinkStats, error) {
	if code == "" {
		return models.LinkStats{}, models.ErrNotFound
	}

	stats, err := s.storage.GetStats(ctx, code)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.LinkStats{}, models.ErrNotFound
		}
		return models.LinkStats{}, storeError("get stats", err)
	}
	return stats, nil
}

// PingDataBase проверяет соединение с хранилищем
func (s *URLShortener) PingDataBase(ctx context.Context) error {
	if err := s.storage.Ping(ctx); err != nil {
		return storeError("ping", err)
	}
	return nil
}

func validateURL(raw string) error {
	if raw == "" || len(raw) > maxURLLength {
		return models.ErrInvalidURL
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrInvalidURL, err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("%w: scheme and host are required", models.ErrInvalidURL)
	}
	return nil
}

func storeError(op string, err error) error {
	if errors.Is(err, models.ErrStoreUnavailable) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, models.ErrStoreUnavailable, err)
}
