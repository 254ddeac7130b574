package filestore

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"shortlink/internal/domain/models"
	"shortlink/internal/repository/inmemory"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var created = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

func seed(t *testing.T, storage *inmemory.InmemoryStorage, codes ...string) {
	t.Helper()
	for _, code := range codes {
		_, err := storage.Insert(context.Background(), models.ShortLink{
			OriginalURL:  "https://example.com/" + code,
			ShortCode:    code,
			CreatedAt:    created,
			IsActive:     true,
			ClicksByDate: map[string]int64{},
		})
		require.NoError(t, err)
	}
}

func TestSaveAndLoad(t *testing.T) {
	ctx := context.Background()
	log := zerolog.Nop()
	path := filepath.Join(t.TempDir(), "nested", "links.json")

	source := inmemory.NewStorage()
	seed(t, source, "c1", "c2")
	require.NoError(t, source.RecordAccess(ctx, "c2", created))

	require.NoError(t, Save(ctx, log, path, source))

	target := inmemory.NewStorage()
	res, err := Load(ctx, log, path, target)
	require.NoError(t, err)
	assert.Equal(t, ImportResult{Loaded: 2}, res)

	got, err := target.FindByCode(ctx, "c2")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/c2", got.OriginalURL)
	assert.Equal(t, int64(1), got.AccessCount)
	assert.Equal(t, map[string]int64{"2024-03-10": 1}, got.ClicksByDate)
	require.NotNil(t, got.LastAccessedAt)
	assert.True(t, created.Equal(*got.LastAccessedAt))
}

func TestLoad_MissingFileIsCreated(t *testing.T) {
	path := filepath.Join(t.TempDir(), "links.json")

	res, err := Load(context.Background(), zerolog.Nop(), path, inmemory.NewStorage())
	require.NoError(t, err)
	assert.Zero(t, res.Loaded)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Zero(t, info.Size())
}

func TestLoad_EmptyPath(t *testing.T) {
	res, err := Load(context.Background(), zerolog.Nop(), "", inmemory.NewStorage())
	require.NoError(t, err)
	assert.Equal(t, ImportResult{}, res)
}

func TestSave_EmptyPath(t *testing.T) {
	err := Save(context.Background(), zerolog.Nop(), "", inmemory.NewStorage())
	assert.ErrorIs(t, err, ErrInvalidPath)
}

func TestImport_SkipsBrokenAndDuplicates(t *testing.T) {
	storage := inmemory.NewStorage()
	seed(t, storage, "taken")

	input := strings.Join([]string{
		`{"short_code":"fresh","original_url":"https://fresh.example","created_at":"2024-03-10T12:00:00Z","is_active":true}`,
		`not json`,
		``,
		`{"short_code":"","original_url":"https://nocode.example"}`,
		`{"short_code":"taken","original_url":"https://other.example","is_active":true}`,
	}, "\n")

	res, err := Import(context.Background(), zerolog.Nop(), strings.NewReader(input), storage)
	require.NoError(t, err)
	assert.Equal(t, ImportResult{Loaded: 1, Skipped: 3}, res)

	got, err := storage.FindByCode(context.Background(), "fresh")
	require.NoError(t, err)
	assert.NotNil(t, got.ClicksByDate)

	taken, err := storage.FindByCode(context.Background(), "taken")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/taken", taken.OriginalURL)
}

func TestExport_Pages(t *testing.T) {
	storage := inmemory.NewStorage()
	codes := make([]string, listPageSize+3)
	for i := range codes {
		codes[i] = fmt.Sprintf("code%d", i)
	}
	seed(t, storage, codes...)

	var buf bytes.Buffer
	count, err := Export(context.Background(), &buf, storage)
	require.NoError(t, err)
	assert.Equal(t, len(codes), count)
	assert.Equal(t, len(codes), strings.Count(buf.String(), "\n"))
}
