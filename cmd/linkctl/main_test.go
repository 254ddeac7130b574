package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const snapshot = `{"id":1,"original_url":"https://example.com/a","short_code":"aaaa11","created_at":"2024-03-10T12:00:00Z","access_count":2,"is_active":true,"clicks_by_date":{"2024-03-10":2}}
not json
{"id":2,"original_url":"https://example.com/b","short_code":"promo","created_at":"2024-03-10T12:00:00Z","access_count":0,"is_active":true,"custom_alias":"promo","clicks_by_date":{}}
`

func TestRun_ImportThenExport(t *testing.T) {
	t.Setenv("STORAGE", "sqlite")
	t.Setenv("DATABASE_PATH", filepath.Join(t.TempDir(), "urls.db"))
	t.Setenv("LOG_LEVEL", "error")

	require.NoError(t, run([]string{"import"}, strings.NewReader(snapshot), &bytes.Buffer{}))

	var out bytes.Buffer
	require.NoError(t, run([]string{"export"}, nil, &out))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"short_code":"aaaa11"`)
	assert.Contains(t, lines[0], `"access_count":2`)
	assert.Contains(t, lines[1], `"short_code":"promo"`)
}

func TestRun_ExportToFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("STORAGE", "sqlite")
	t.Setenv("DATABASE_PATH", filepath.Join(dir, "urls.db"))
	t.Setenv("LOG_LEVEL", "error")

	require.NoError(t, run([]string{"import"}, strings.NewReader(snapshot), &bytes.Buffer{}))

	path := filepath.Join(dir, "out.jsonl")
	require.NoError(t, run([]string{"export", "-file", path}, nil, &bytes.Buffer{}))

	var in bytes.Buffer
	t.Setenv("DATABASE_PATH", filepath.Join(dir, "copy.db"))
	require.NoError(t, run([]string{"import", "-file", path}, nil, &bytes.Buffer{}))
	require.NoError(t, run([]string{"export"}, nil, &in))
	assert.Equal(t, 2, strings.Count(in.String(), "\n"))
}

func TestRun_Usage(t *testing.T) {
	t.Setenv("STORAGE", "memory")

	assert.Error(t, run(nil, nil, &bytes.Buffer{}))
	assert.Error(t, run([]string{"drop"}, nil, &bytes.Buffer{}))
}
