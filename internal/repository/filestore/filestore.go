// Package filestore читает и пишет снимки ссылок в формате JSON lines.
// Через него memory-хранилище переживает перезапуск, а linkctl делает
// экспорт и импорт.
package filestore

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"shortlink/internal/domain/models"

	"github.com/rs/zerolog"
)

const listPageSize = 500

var (
	ErrInvalidPath = errors.New("invalid file path")
	ErrCreateDir   = errors.New("failed to create directory")
	ErrCreateFile  = errors.New("failed to create file")
	ErrOpenFile    = errors.New("failed to open file")
	ErrReadLink    = errors.New("failed to read link from file")
	ErrSetLink     = errors.New("failed to set link in storage")
	ErrListLinks   = errors.New("failed to list links")
	ErrWriteLink   = errors.New("failed to write link")
)

// Storage - ограниченный интерфейс хранилища для filestore
type Storage interface {
	Insert(ctx context.Context, link models.ShortLink) (models.ShortLink, error)
	List(ctx context.Context, limit, offset int) ([]models.ShortLink, error)
}

// ImportResult - итог загрузки снимка
type ImportResult struct {
	Loaded  int
	Skipped int
}

// Load загружает ссылки из файла. Отсутствующий файл создается пустым.
func Load(ctx context.Context, log zerolog.Logger, filePath string, storage Storage) (ImportResult, error) {
	if err := ctx.Err(); err != nil {
		return ImportResult{}, err
	}

	if filePath == "" {
		log.Info().Msg("No file path provided - using empty storage")
		return ImportResult{}, nil
	}

	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return ImportResult{}, logAndWrapError(log, err, ErrInvalidPath, "get absolute path")
	}

	if _, err := os.Stat(absPath); os.IsNotExist(err) {
		if err := os.MkdirAll(filepath.Dir(absPath), 0755); err != nil {
			return ImportResult{}, logAndWrapError(log, err, ErrCreateDir, "create directory")
		}

		file, err := os.Create(absPath)
		if err != nil {
			return ImportResult{}, logAndWrapError(log, err, ErrCreateFile, "create file")
		}
		_ = file.Close()

		log.Info().Str("path", absPath).Msg("Snapshot file created as empty")
		return ImportResult{}, nil
	}

	file, err := os.Open(absPath)
	if err != nil {
		return ImportResult{}, logAndWrapError(log, err, ErrOpenFile, "open file")
	}
	defer file.Close()

	res, err := Import(ctx, log, file, storage)
	if err != nil {
		return res, err
	}

	log.Info().
		Int("loaded", res.Loaded).
		Int("skipped", res.Skipped).
		Str("path", absPath).
		Msg("Snapshot loaded")
	return res, nil
}

// Save перезаписывает файл полным снимком хранилища
func Save(ctx context.Context, log zerolog.Logger, filePath string, storage Storage) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if filePath == "" {
		return ErrInvalidPath
	}

	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return logAndWrapError(log, err, ErrInvalidPath, "get absolute path")
	}

	if err := os.MkdirAll(filepath.Dir(absPath), 0755); err != nil {
		return logAndWrapError(log, err, ErrCreateDir, "create directory structure")
	}

	// пишем во временный файл, чтобы не оставить обрезанный снимок
	tmp, err := os.CreateTemp(filepath.Dir(absPath), filepath.Base(absPath)+".*.tmp")
	if err != nil {
		return logAndWrapError(log, err, ErrCreateFile, "create temp file")
	}
	defer os.Remove(tmp.Name())

	count, err := Export(ctx, tmp, storage)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return logAndWrapError(log, err, ErrWriteLink, "write snapshot")
	}

	if err := os.Rename(tmp.Name(), absPath); err != nil {
		return logAndWrapError(log, err, ErrCreateFile, "replace snapshot")
	}

	log.Info().Int("count", count).Str("path", absPath).Msg("Snapshot saved")
	return nil
}

// Import читает JSON lines из r. Битые строки и занятые коды пропускаются.
func Import(ctx context.Context, log zerolog.Logger, r io.Reader, storage Storage) (ImportResult, error) {
	var res ImportResult

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		data := scanner.Bytes()
		if len(data) == 0 {
			continue
		}

		var link models.ShortLink
		if err := json.Unmarshal(data, &link); err != nil {
			log.Warn().Err(err).Msg("Failed to unmarshal link, skipping line")
			res.Skipped++
			continue
		}
		if link.ShortCode == "" || link.OriginalURL == "" {
			log.Warn().Msg("Link without short_code or original_url, skipping line")
			res.Skipped++
			continue
		}
		if link.ClicksByDate == nil {
			link.ClicksByDate = map[string]int64{}
		}

		_, err := storage.Insert(ctx, link)
		switch {
		case err == nil:
			res.Loaded++
		case errors.Is(err, models.ErrConflict):
			log.Info().Str("short_code", link.ShortCode).Msg("Skipping duplicate short code")
			res.Skipped++
		default:
			return res, logAndWrapError(log, err, ErrSetLink, "set link in storage")
		}
	}

	if err := scanner.Err(); err != nil {
		return res, logAndWrapError(log, err, ErrReadLink, "read file")
	}
	return res, nil
}

// Export пишет все ссылки хранилища в w, по одной JSON-строке
func Export(ctx context.Context, w io.Writer, storage Storage) (int, error) {
	writer := bufio.NewWriter(w)
	enc := json.NewEncoder(writer)

	count := 0
	for offset := 0; ; offset += listPageSize {
		links, err := storage.List(ctx, listPageSize, offset)
		if err != nil {
			return count, fmt.Errorf("%w: %w", ErrListLinks, err)
		}

		for _, link := range links {
			if err := enc.Encode(link); err != nil {
				return count, fmt.Errorf("%w: %w", ErrWriteLink, err)
			}
			count++
		}

		if len(links) < listPageSize {
			break
		}
	}

	if err := writer.Flush(); err != nil {
		return count, fmt.Errorf("%w: %w", ErrWriteLink, err)
	}
	return count, nil
}

func logAndWrapError(log zerolog.Logger, err error, wrapErr error, context string) error {
	log.Error().Err(err).Str("context", context).Msg(wrapErr.Error())
	return fmt.Errorf("%w: %v", wrapErr, err)
}
