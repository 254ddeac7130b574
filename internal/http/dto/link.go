package dto

import (
	"time"

	"shortlink/internal/domain/models"
)

// Request
type (
	CreateLinkRequest struct {
		OriginalURL string  `json:"original_url"`
		CustomAlias *string `json:"custom_alias,omitempty"`
		ExpiryDays  *int    `json:"expiry_days,omitempty"`
	}
)

// Response
type (
	CreateLinkResponse struct {
		ShortCode string     `json:"short_code"`
		ShortURL  string     `json:"short_url"`
		ExpiresAt *time.Time `json:"expires_at"`
	}

	StatsResponse struct {
		OriginalURL  string           `json:"original_url"`
		CreatedAt    time.Time        `json:"created_at"`
		TotalClicks  int64            `json:"total_clicks"`
		ClicksByDate map[string]int64 `json:"clicks_by_date"`
	}
)

// Request → Domain
func (r CreateLinkRequest) ToDomain() models.CreateRequest {
	return models.CreateRequest{
		OriginalURL: r.OriginalURL,
		CustomAlias: r.CustomAlias,
		ExpiryDays:  r.ExpiryDays,
	}
}

// Domain → Response
func CreateLinkResponseFromDomain(res models.CreateResult, shortURL string) CreateLinkResponse {
	return CreateLinkResponse{
		ShortCode: res.ShortCode,
		ShortURL:  shortURL,
		ExpiresAt: res.ExpiresAt,
	}
}

func StatsResponseFromDomain(stats models.LinkStats) StatsResponse {
	clicks := stats.ClicksByDate
	if clicks == nil {
		clicks = map[string]int64{}
	}
	return StatsResponse{
		OriginalURL:  stats.OriginalURL,
		CreatedAt:    stats.CreatedAt,
		TotalClicks:  stats.AccessCount,
		ClicksByDate: clicks,
	}
}
