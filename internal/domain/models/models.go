package models

import (
	"errors"
	"fmt"
	"time"
)

// DateLayout - формат ключей в ClicksByDate
const DateLayout = time.DateOnly

type (
	// ShortLink - единственная сущность сервиса
	ShortLink struct {
		ID             int64            `json:"id"`
		OriginalURL    string           `json:"original_url"`
		ShortCode      string           `json:"short_code"` // aBcD12, регистр важен
		CreatedAt      time.Time        `json:"created_at"`
		LastAccessedAt *time.Time       `json:"last_accessed_at,omitempty"`
		AccessCount    int64            `json:"access_count"`
		IsActive       bool             `json:"is_active"` // soft delete
		CustomAlias    *string          `json:"custom_alias,omitempty"`
		ExpiresAt      *time.Time       `json:"expires_at,omitempty"`
		ClicksByDate   map[string]int64 `json:"clicks_by_date"`
	}

	// LinkStats - публичная статистика по ссылке
	LinkStats struct {
		OriginalURL  string
		CreatedAt    time.Time
		AccessCount  int64
		ClicksByDate map[string]int64
	}

	CreateRequest struct {
		OriginalURL string
		CustomAlias *string
		ExpiryDays  *int
	}

	CreateResult struct {
		ShortCode string
		ExpiresAt *time.Time
	}
)

// IsExpired - срок жизни ссылки истек к моменту now
func (l ShortLink) IsExpired(now time.Time) bool {
	return l.ExpiresAt != nil && !l.ExpiresAt.After(now)
}

// Resolvable - ссылку можно отдать редиректом в момент now
func (l ShortLink) Resolvable(now time.Time) bool {
	return l.IsActive && !l.IsExpired(now)
}

// Stats - публичная статистика ссылки
func (l ShortLink) Stats() LinkStats {
	return LinkStats{
		OriginalURL:  l.OriginalURL,
		CreatedAt:    l.CreatedAt,
		AccessCount:  l.AccessCount,
		ClicksByDate: CopyClicks(l.ClicksByDate),
	}
}

// DayKey возвращает ключ ClicksByDate для t
func DayKey(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

// CopyClicks возвращает копию m, никогда не nil
func CopyClicks(m map[string]int64) map[string]int64 {
	out := make(map[string]int64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

var (
	ErrInvalidURL             = errors.New("invalid url")
	ErrInvalidAlias           = errors.New("invalid alias")
	ErrAliasEmpty             = fmt.Errorf("%w: alias is empty", ErrInvalidAlias)
	ErrAliasInvalidCharacters = fmt.Errorf("%w: alias contains invalid characters", ErrInvalidAlias)
	ErrAliasTaken             = errors.New("alias already taken")
	ErrGenerationExhausted    = errors.New("short code generation exhausted")
	ErrNotFound               = errors.New("short link not found")
	ErrStoreUnavailable       = errors.New("store unavailable")
	ErrInvalidPagination      = errors.New("invalid pagination params")

	// ErrConflict - нарушение уникальности short_code на уровне хранилища
	ErrConflict = errors.New("short code already exists")
)
