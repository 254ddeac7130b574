// Package sqlite хранит ссылки в локальном файле SQLite (modernc, без cgo)
// или в удаленной базе libsql, если путь - libsql:// или wss:// URL.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"shortlink/internal/domain/models"
	"shortlink/internal/repository/txmanager"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const (
	storageBusyTimeout = 5 * time.Second
	storagePingTimeout = 5 * time.Second

	timeLayout = time.RFC3339Nano
)

const linkColumns = `id, original_url, short_code, created_at, last_accessed_at,
	access_count, is_active, custom_alias, expires_at`

type SQLiteStorage struct {
	db *sql.DB
	tm *txmanager.SQLTxManager
}

func NewStorage(ctx context.Context, path string) (*SQLiteStorage, error) {
	remote := isRemote(path)

	driverName := "sqlite"
	if remote {
		driverName = "libsql"
	}

	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if !remote {
		if err := initLocal(ctx, db); err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	ctxPing, cancel := context.WithTimeout(ctx, storagePingTimeout)
	defer cancel()

	if err := db.PingContext(ctxPing); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return &SQLiteStorage{
		db: db,
		tm: txmanager.NewSQLTxManager(db, sql.LevelDefault),
	}, nil
}

func isRemote(path string) bool {
	return strings.HasPrefix(path, "libsql://") || strings.HasPrefix(path, "wss://")
}

// initLocal держит одно соединение: все записи идут через него по очереди,
// а внутри WithinTx можно использовать только транзакцию.
func initLocal(ctx context.Context, db *sql.DB) error {
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		fmt.Sprintf("PRAGMA busy_timeout = %d", storageBusyTimeout.Milliseconds()),
		"PRAGMA journal_mode = WAL",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			return fmt.Errorf("failed to apply %q: %w", p, err)
		}
	}
	return nil
}

func (s *SQLiteStorage) Insert(ctx context.Context, link models.ShortLink) (models.ShortLink, error) {
	err := s.tm.WithinTx(ctx, func(ctx context.Context) error {
		q := s.tm.Querier(ctx)

		err := q.QueryRowContext(ctx, `
			INSERT INTO short_links (original_url, short_code, created_at, last_accessed_at,
				access_count, is_active, custom_alias, expires_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (short_code) DO NOTHING
			RETURNING id`,
			link.OriginalURL,
			link.ShortCode,
			formatTime(link.CreatedAt),
			formatNullTime(link.LastAccessedAt),
			link.AccessCount,
			boolToInt(link.IsActive),
			nullString(link.CustomAlias),
			formatNullTime(link.ExpiresAt),
		).Scan(&link.ID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) || isUniqueViolation(err) {
				return models.ErrConflict
			}
			return fmt.Errorf("failed to insert link: %w", err)
		}

		for day, clicks := range link.ClicksByDate {
			if _, err := q.ExecContext(ctx,
				"INSERT INTO short_link_daily_clicks (link_id, day, clicks) VALUES (?, ?, ?)",
				link.ID, day, clicks,
			); err != nil {
				return fmt.Errorf("failed to insert daily clicks: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			return models.ShortLink{}, models.ErrConflict
		}
		return models.ShortLink{}, unavailable(err)
	}

	link.ClicksByDate = models.CopyClicks(link.ClicksByDate)
	return link, nil
}

// FindByCode читает строку и дневную статистику в одной транзакции,
// иначе между ними может проскочить RecordAccess
func (s *SQLiteStorage) FindByCode(ctx context.Context, code string) (models.ShortLink, error) {
	var link models.ShortLink

	err := s.tm.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		link, err = scanLink(s.tm.Querier(ctx).QueryRowContext(ctx,
			"SELECT "+linkColumns+" FROM short_links WHERE short_code = ?",
			code,
		))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return models.ErrNotFound
			}
			return fmt.Errorf("failed to get link: %w", err)
		}

		link.ClicksByDate, err = s.loadClicks(ctx, link.ID)
		return err
	})
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ShortLink{}, models.ErrNotFound
		}
		return models.ShortLink{}, unavailable(err)
	}
	return link, nil
}

// RecordAccess обновляет счетчик и дневную статистику одной транзакцией
func (s *SQLiteStorage) RecordAccess(ctx context.Context, code string, when time.Time) error {
	when = when.UTC()

	err := s.tm.WithinTx(ctx, func(ctx context.Context) error {
		q := s.tm.Querier(ctx)

		var linkID int64
		err := q.QueryRowContext(ctx, `
			UPDATE short_links
			SET access_count = access_count + 1, last_accessed_at = ?
			WHERE short_code = ? AND is_active = 1
			RETURNING id`,
			formatTime(when), code,
		).Scan(&linkID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return models.ErrNotFound
			}
			return fmt.Errorf("failed to update access count: %w", err)
		}

		if _, err := q.ExecContext(ctx, `
			INSERT INTO short_link_daily_clicks (link_id, day, clicks)
			VALUES (?, ?, 1)
			ON CONFLICT (link_id, day) DO UPDATE SET clicks = clicks + 1`,
			linkID, models.DayKey(when),
		); err != nil {
			return fmt.Errorf("failed to update daily clicks: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNotFound
		}
		return unavailable(err)
	}
	return nil
}

func (s *SQLiteStorage) GetStats(ctx context.Context, code string) (models.LinkStats, error) {
	link, err := s.FindByCode(ctx, code)
	if err != nil {
		return models.LinkStats{}, err
	}
	return link.Stats(), nil
}

// List отдает ссылки в порядке id вместе с дневной статистикой
func (s *SQLiteStorage) List(ctx context.Context, limit, offset int) ([]models.ShortLink, error) {
	if limit <= 0 || offset < 0 {
		return nil, models.ErrInvalidPagination
	}

	var links []models.ShortLink
	err := s.tm.WithinTx(ctx, func(ctx context.Context) error {
		q := s.tm.Querier(ctx)

		rows, err := q.QueryContext(ctx,
			"SELECT "+linkColumns+" FROM short_links ORDER BY id LIMIT ? OFFSET ?",
			limit, offset,
		)
		if err != nil {
			return fmt.Errorf("failed to query links: %w", err)
		}

		for rows.Next() {
			link, err := scanLink(rows)
			if err != nil {
				_ = rows.Close()
				return fmt.Errorf("failed to scan link: %w", err)
			}
			links = append(links, link)
		}
		if err := rows.Err(); err != nil {
			_ = rows.Close()
			return fmt.Errorf("rows iteration error: %w", err)
		}
		// соединение одно: закрываем курсор до следующих запросов
		_ = rows.Close()

		for i := range links {
			links[i].ClicksByDate, err = s.loadClicks(ctx, links[i].ID)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, unavailable(err)
	}
	return links, nil
}

func (s *SQLiteStorage) loadClicks(ctx context.Context, linkID int64) (map[string]int64, error) {
	rows, err := s.tm.Querier(ctx).QueryContext(ctx,
		"SELECT day, clicks FROM short_link_daily_clicks WHERE link_id = ?",
		linkID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily clicks: %w", err)
	}
	defer rows.Close()

	clicks := make(map[string]int64)
	for rows.Next() {
		var (
			day   string
			count int64
		)
		if err := rows.Scan(&day, &count); err != nil {
			return nil, fmt.Errorf("failed to scan daily clicks: %w", err)
		}
		clicks[day] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return clicks, nil
}

func (s *SQLiteStorage) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, storagePingTimeout)
	defer cancel()

	if err := s.db.PingContext(ctx); err != nil {
		return unavailable(fmt.Errorf("database ping failed: %w", err))
	}
	return nil
}

func (s *SQLiteStorage) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close database connection: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLink(row rowScanner) (models.ShortLink, error) {
	var (
		link         models.ShortLink
		createdAt    string
		lastAccessed sql.NullString
		customAlias  sql.NullString
		expiresAt    sql.NullString
	)
	if err := row.Scan(
		&link.ID,
		&link.OriginalURL,
		&link.ShortCode,
		&createdAt,
		&lastAccessed,
		&link.AccessCount,
		&link.IsActive,
		&customAlias,
		&expiresAt,
	); err != nil {
		return models.ShortLink{}, err
	}

	var err error
	if link.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
		return models.ShortLink{}, fmt.Errorf("bad created_at %q: %w", createdAt, err)
	}
	if link.LastAccessedAt, err = parseNullTime(lastAccessed); err != nil {
		return models.ShortLink{}, err
	}
	if link.ExpiresAt, err = parseNullTime(expiresAt); err != nil {
		return models.ShortLink{}, err
	}
	if customAlias.Valid {
		link.CustomAlias = &customAlias.String
	}
	return link, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func formatNullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func parseNullTime(v sql.NullString) (*time.Time, error) {
	if !v.Valid {
		return nil, nil
	}
	t, err := time.Parse(timeLayout, v.String)
	if err != nil {
		return nil, fmt.Errorf("bad timestamp %q: %w", v.String, err)
	}
	return &t, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func isUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		code := sqliteErr.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	// libsql возвращает только текст ошибки
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %w", models.ErrStoreUnavailable, err)
}
