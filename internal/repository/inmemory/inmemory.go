package inmemory

import (
	"context"
	"sort"
	"sync"
	"time"

	"shortlink/internal/domain/models"
)

const initLastID = 0

// InmemoryStorage держит ссылки в map под одним мьютексом: вставка и
// обновление счетчиков атомарны относительно друг друга.
type InmemoryStorage struct {
	mu     sync.RWMutex
	data   map[string]*models.ShortLink
	lastID int64
}

func NewStorage() *InmemoryStorage {
	return &InmemoryStorage{
		data:   make(map[string]*models.ShortLink),
		lastID: initLastID,
	}
}

// Insert кладет ссылку, если short_code свободен, иначе models.ErrConflict.
// Счетчики и clicks_by_date переносятся как есть (нужно для импорта).
func (m *InmemoryStorage) Insert(ctx context.Context, link models.ShortLink) (models.ShortLink, error) {
	if err := ctx.Err(); err != nil {
		return models.ShortLink{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.data[link.ShortCode]; exists {
		return models.ShortLink{}, models.ErrConflict
	}

	m.lastID++
	stored := clone(link)
	stored.ID = m.lastID
	m.data[link.ShortCode] = &stored

	return clone(stored), nil
}

func (m *InmemoryStorage) FindByCode(ctx context.Context, code string) (models.ShortLink, error) {
	if err := ctx.Err(); err != nil {
		return models.ShortLink{}, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	link, exists := m.data[code]
	if !exists {
		return models.ShortLink{}, models.ErrNotFound
	}
	return clone(*link), nil
}

func (m *InmemoryStorage) RecordAccess(ctx context.Context, code string, when time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	link, exists := m.data[code]
	if !exists || !link.IsActive {
		return models.ErrNotFound
	}

	when = when.UTC()
	link.AccessCount++
	link.LastAccessedAt = &when
	if link.ClicksByDate == nil {
		link.ClicksByDate = make(map[string]int64)
	}
	link.ClicksByDate[models.DayKey(when)]++
	return nil
}

func (m *InmemoryStorage) GetStats(ctx context.Context, code string) (models.LinkStats, error) {
	link, err := m.FindByCode(ctx, code)
	if err != nil {
		return models.LinkStats{}, err
	}
	return link.Stats(), nil
}

// List отдает ссылки в порядке создания
func (m *InmemoryStorage) List(ctx context.Context, limit, offset int) ([]models.ShortLink, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 || offset < 0 {
		return nil, models.ErrInvalidPagination
	}

	m.mu.RLock()
	links := make([]models.ShortLink, 0, len(m.data))
	for _, link := range m.data {
		links = append(links, clone(*link))
	}
	m.mu.RUnlock()

	sort.Slice(links, func(i, j int) bool {
		return links[i].ID < links[j].ID
	})

	start := min(offset, len(links))
	end := min(start+limit, len(links))
	return links[start:end], nil
}

func (m *InmemoryStorage) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (m *InmemoryStorage) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.data = make(map[string]*models.ShortLink)
	m.lastID = initLastID
	return nil
}

func clone(link models.ShortLink) models.ShortLink {
	out := link
	if link.LastAccessedAt != nil {
		t := *link.LastAccessedAt
		out.LastAccessedAt = &t
	}
	if link.ExpiresAt != nil {
		t := *link.ExpiresAt
		out.ExpiresAt = &t
	}
	if link.CustomAlias != nil {
		a := *link.CustomAlias
		out.CustomAlias = &a
	}
	out.ClicksByDate = models.CopyClicks(link.ClicksByDate)
	return out
}
