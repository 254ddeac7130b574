package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"shortlink/internal/domain/models"
	"shortlink/internal/repository/txmanager"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
)

const (
	storageMaxOpenConnections     = 5
	storageMaxIdleConnections     = 2
	storageConnectionsMaxIdleTime = 2 * time.Minute
	storageConnectionsLifetime    = 30 * time.Minute
	storagePingTimeout            = 5 * time.Second
)

const (
	pgErrCodeUniqueViolation = "23505"
)

const linkColumns = `id, original_url, short_code, created_at, last_accessed_at,
	access_count, is_active, custom_alias, expires_at`

type PostgresStorage struct {
	db     *sql.DB
	tm     *txmanager.SQLTxManager
	readTm *txmanager.SQLTxManager
}

func NewStorage(ctx context.Context, dsn string) (*PostgresStorage, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	initConnectionPools(db)

	ctxPing, cancel := context.WithTimeout(ctx, storagePingTimeout)
	defer cancel()

	if err := db.PingContext(ctxPing); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := createTables(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	// запись: построчная блокировка UPDATE уже сериализует счетчики одного кода;
	// чтение строки и дневной статистики должно видеть один снимок
	return &PostgresStorage{
		db:     db,
		tm:     txmanager.NewSQLTxManager(db, sql.LevelReadCommitted),
		readTm: txmanager.NewSQLTxManager(db, sql.LevelRepeatableRead),
	}, nil
}

func initConnectionPools(db *sql.DB) {
	db.SetMaxOpenConns(storageMaxOpenConnections)
	db.SetMaxIdleConns(storageMaxIdleConnections)
	db.SetConnMaxIdleTime(storageConnectionsMaxIdleTime)
	db.SetConnMaxLifetime(storageConnectionsLifetime)
}

func createTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS short_links (
			id               BIGSERIAL PRIMARY KEY,
			original_url     TEXT        NOT NULL,
			short_code       VARCHAR(64) NOT NULL UNIQUE,
			created_at       TIMESTAMPTZ NOT NULL,
			last_accessed_at TIMESTAMPTZ,
			access_count     BIGINT      NOT NULL DEFAULT 0,
			is_active        BOOLEAN     NOT NULL DEFAULT TRUE,
			custom_alias     VARCHAR(64),
			expires_at       TIMESTAMPTZ
		)`)
	if err != nil {
		return fmt.Errorf("failed to create short_links: %w", err)
	}

	_, err = db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS short_link_daily_clicks (
			link_id BIGINT NOT NULL REFERENCES short_links(id),
			day     DATE   NOT NULL,
			clicks  BIGINT NOT NULL DEFAULT 0,
			PRIMARY KEY (link_id, day)
		)`)
	if err != nil {
		return fmt.Errorf("failed to create short_link_daily_clicks: %w", err)
	}
	return nil
}

func (p *PostgresStorage) Insert(ctx context.Context, link models.ShortLink) (models.ShortLink, error) {
	err := p.tm.WithinTx(ctx, func(ctx context.Context) error {
		q := p.tm.Querier(ctx)

		err := q.QueryRowContext(ctx, `
			INSERT INTO short_links (original_url, short_code, created_at, last_accessed_at,
				access_count, is_active, custom_alias, expires_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (short_code) DO NOTHING
			RETURNING id`,
			link.OriginalURL,
			link.ShortCode,
			link.CreatedAt.UTC(),
			nullTime(link.LastAccessedAt),
			link.AccessCount,
			link.IsActive,
			nullString(link.CustomAlias),
			nullTime(link.ExpiresAt),
		).Scan(&link.ID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) || isUniqueViolation(err) {
				return models.ErrConflict
			}
			return fmt.Errorf("failed to insert link: %w", err)
		}

		for key, clicks := range link.ClicksByDate {
			day, err := time.Parse(models.DateLayout, key)
			if err != nil {
				return fmt.Errorf("bad clicks day %q: %w", key, err)
			}
			if _, err := q.ExecContext(ctx,
				"INSERT INTO short_link_daily_clicks (link_id, day, clicks) VALUES ($1, $2, $3)",
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

func (p *PostgresStorage) FindByCode(ctx context.Context, code string) (models.ShortLink, error) {
	var link models.ShortLink

	err := p.readTm.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		link, err = scanLink(p.readTm.Querier(ctx).QueryRowContext(ctx,
			"SELECT "+linkColumns+" FROM short_links WHERE short_code = $1",
			code,
		))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return models.ErrNotFound
			}
			return fmt.Errorf("failed to get link: %w", err)
		}

		link.ClicksByDate, err = p.loadClicks(ctx, link.ID)
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
func (p *PostgresStorage) RecordAccess(ctx context.Context, code string, when time.Time) error {
	when = when.UTC()

	err := p.tm.WithinTx(ctx, func(ctx context.Context) error {
		q := p.tm.Querier(ctx)

		var linkID int64
		err := q.QueryRowContext(ctx, `
			UPDATE short_links
			SET access_count = access_count + 1, last_accessed_at = $1
			WHERE short_code = $2 AND is_active
			RETURNING id`,
			when, code,
		).Scan(&linkID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return models.ErrNotFound
			}
			return fmt.Errorf("failed to update access count: %w", err)
		}

		if _, err := q.ExecContext(ctx, `
			INSERT INTO short_link_daily_clicks (link_id, day, clicks)
			VALUES ($1, $2, 1)
			ON CONFLICT (link_id, day)
			DO UPDATE SET clicks = short_link_daily_clicks.clicks + 1`,
			linkID, when.Truncate(24*time.Hour),
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

func (p *PostgresStorage) GetStats(ctx context.Context, code string) (models.LinkStats, error) {
	link, err := p.FindByCode(ctx, code)
	if err != nil {
		return models.LinkStats{}, err
	}
	return link.Stats(), nil
}

func (p *PostgresStorage) List(ctx context.Context, limit, offset int) ([]models.ShortLink, error) {
	if limit <= 0 || offset < 0 {
		return nil, models.ErrInvalidPagination
	}

	var links []models.ShortLink
	err := p.readTm.WithinTx(ctx, func(ctx context.Context) error {
		rows, err := p.readTm.Querier(ctx).QueryContext(ctx,
			"SELECT "+linkColumns+" FROM short_links ORDER BY id LIMIT $1 OFFSET $2",
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
		// в транзакции одно соединение: курсор закрывается до следующих запросов
		_ = rows.Close()

		for i := range links {
			links[i].ClicksByDate, err = p.loadClicks(ctx, links[i].ID)
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

func (p *PostgresStorage) loadClicks(ctx context.Context, linkID int64) (map[string]int64, error) {
	rows, err := p.readTm.Querier(ctx).QueryContext(ctx,
		"SELECT day, clicks FROM short_link_daily_clicks WHERE link_id = $1",
		linkID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily clicks: %w", err)
	}
	defer rows.Close()

	clicks := make(map[string]int64)
	for rows.Next() {
		var (
			day   time.Time
			count int64
		)
		if err := rows.Scan(&day, &count); err != nil {
			return nil, fmt.Errorf("failed to scan daily clicks: %w", err)
		}
		clicks[day.Format(models.DateLayout)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return clicks, nil
}

func (p *PostgresStorage) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, storagePingTimeout)
	defer cancel()

	if err := p.db.PingContext(ctx); err != nil {
		return unavailable(fmt.Errorf("database ping failed: %w", err))
	}
	return nil
}

func (p *PostgresStorage) Close() error {
	if err := p.db.Close(); err != nil {
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
		lastAccessed sql.NullTime
		customAlias  sql.NullString
		expiresAt    sql.NullTime
	)
	if err := row.Scan(
		&link.ID,
		&link.OriginalURL,
		&link.ShortCode,
		&link.CreatedAt,
		&lastAccessed,
		&link.AccessCount,
		&link.IsActive,
		&customAlias,
		&expiresAt,
	); err != nil {
		return models.ShortLink{}, err
	}

	link.CreatedAt = link.CreatedAt.UTC()
	if lastAccessed.Valid {
		t := lastAccessed.Time.UTC()
		link.LastAccessedAt = &t
	}
	if expiresAt.Valid {
		t := expiresAt.Time.UTC()
		link.ExpiresAt = &t
	}
	if customAlias.Valid {
		link.CustomAlias = &customAlias.String
	}
	return link, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgErrCodeUniqueViolation
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %w", models.ErrStoreUnavailable, err)
}
