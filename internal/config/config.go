package config

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

const (
	envServerAddress     = "SERVER_ADDRESS"
	envBaseURL           = "BASE_URL"
	envStorage           = "STORAGE"
	envDatabasePath      = "DATABASE_PATH"
	envDatabaseDSN       = "DATABASE_DSN"
	envFileStoragePath   = "FILE_STORAGE_PATH"
	envRedisURL          = "REDIS_URL"
	envCacheTTL          = "CACHE_TTL"
	envCodeLength        = "CODE_LENGTH"
	envCodeAlphabet      = "CODE_ALPHABET"
	envMaxRetries        = "MAX_GENERATION_RETRIES"
	envDefaultExpiryDays = "DEFAULT_EXPIRY_DAYS"
	envMaxExpiryDays     = "MAX_EXPIRY_DAYS"
	envLogLevel          = "LOG_LEVEL"
)

const (
	defaultServerAddress = "localhost:8080"
	defaultBaseURL       = "http://localhost:8080"
	defaultStorage       = StorageSQLite
	defaultDatabasePath  = "urls.db"
	defaultCacheTTL      = time.Hour
	defaultCodeLength    = 6
	defaultMaxRetries    = 10
	defaultMaxExpiryDays = 365
	defaultLogLevel      = "info"
	defaultEnvFile       = ".env"
)

const (
	StorageSQLite   = "sqlite"
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	ServerAddress string
	BaseURL       string

	Storage         string
	DatabasePath    string // путь к файлу SQLite или libsql:// URL
	DatabaseDSN     string
	FileStoragePath string // снимок для memory

	RedisURL string
	CacheTTL time.Duration

	CodeLength        int
	CodeAlphabet      string // пусто - A-Z a-z 0-9
	MaxRetries        int
	DefaultExpiryDays int
	MaxExpiryDays     int

	LogLevel zerolog.Level
}

// NewConfig читает флаги процесса, окружение и .env
func NewConfig() (*Config, error) {
	return Load(os.Args[0], os.Args[1:])
}

// Load собирает конфиг: значения по умолчанию, затем флаги, затем окружение.
// Переменные из envFiles (по умолчанию .env) не перекрывают уже заданные.
func Load(name string, args []string, envFiles ...string) (*Config, error) {
	if err := loadEnvFiles(envFiles); err != nil {
		return nil, err
	}

	cfg := &Config{
		ServerAddress: defaultServerAddress,
		BaseURL:       defaultBaseURL,
		Storage:       defaultStorage,
		DatabasePath:  defaultDatabasePath,
		CacheTTL:      defaultCacheTTL,
		CodeLength:    defaultCodeLength,
		MaxRetries:    defaultMaxRetries,
		MaxExpiryDays: defaultMaxExpiryDays,
	}
	logLevel := defaultLogLevel

	fset := flag.NewFlagSet(name, flag.ContinueOnError)
	fset.StringVar(&cfg.ServerAddress, "server-address", cfg.ServerAddress, "Server address")
	fset.StringVar(&cfg.BaseURL, "base-url", cfg.BaseURL, "Base URL")
	fset.StringVar(&cfg.Storage, "storage", cfg.Storage, "Storage backend: sqlite, postgres or memory")
	fset.StringVar(&cfg.DatabasePath, "database-path", cfg.DatabasePath, "SQLite file path or libsql:// URL")
	fset.StringVar(&cfg.DatabaseDSN, "database-dsn", cfg.DatabaseDSN, "PostgreSQL DSN")
	fset.StringVar(&cfg.FileStoragePath, "file-storage-path", cfg.FileStoragePath, "Snapshot file for memory storage")
	fset.StringVar(&cfg.RedisURL, "redis-url", cfg.RedisURL, "Redis URL, empty disables cache")
	fset.DurationVar(&cfg.CacheTTL, "cache-ttl", cfg.CacheTTL, "Cache entry TTL")
	fset.IntVar(&cfg.CodeLength, "code-length", cfg.CodeLength, "Generated short code length")
	fset.StringVar(&cfg.CodeAlphabet, "code-alphabet", cfg.CodeAlphabet, "Generated short code alphabet")
	fset.IntVar(&cfg.MaxRetries, "max-retries", cfg.MaxRetries, "Max short code generation attempts")
	fset.IntVar(&cfg.DefaultExpiryDays, "default-expiry-days", cfg.DefaultExpiryDays, "Default link lifetime in days, 0 - forever")
	fset.IntVar(&cfg.MaxExpiryDays, "max-expiry-days", cfg.MaxExpiryDays, "Max link lifetime in days, 0 - unlimited")
	fset.StringVar(&logLevel, "log-level", logLevel, "Log level")
	if err := fset.Parse(args); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	applyEnv(envServerAddress, &cfg.ServerAddress)
	applyEnv(envBaseURL, &cfg.BaseURL)
	applyEnv(envStorage, &cfg.Storage)
	applyEnv(envDatabasePath, &cfg.DatabasePath)
	applyEnv(envDatabaseDSN, &cfg.DatabaseDSN)
	applyEnv(envFileStoragePath, &cfg.FileStoragePath)
	applyEnv(envRedisURL, &cfg.RedisURL)
	applyEnv(envCodeAlphabet, &cfg.CodeAlphabet)
	applyEnv(envLogLevel, &logLevel)

	var errs []error
	errs = append(errs,
		applyEnvDuration(envCacheTTL, &cfg.CacheTTL),
		applyEnvInt(envCodeLength, &cfg.CodeLength),
		applyEnvInt(envMaxRetries, &cfg.MaxRetries),
		applyEnvInt(envDefaultExpiryDays, &cfg.DefaultExpiryDays),
		applyEnvInt(envMaxExpiryDays, &cfg.MaxExpiryDays),
	)

	level, err := zerolog.ParseLevel(strings.ToLower(logLevel))
	if err != nil {
		errs = append(errs, fmt.Errorf("log level %q: %w", logLevel, err))
	}
	cfg.LogLevel = level

	cfg.normalizeServerAddress()
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	errs = append(errs, cfg.validate())
	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var errs []error

	switch c.Storage {
	case StorageSQLite:
		if c.DatabasePath == "" {
			errs = append(errs, errors.New("sqlite storage needs a database path"))
		}
	case StoragePostgres:
		if c.DatabaseDSN == "" {
			errs = append(errs, errors.New("postgres storage needs a database DSN"))
		}
	case StorageMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown storage %q", c.Storage))
	}

	if c.DefaultExpiryDays < 0 {
		errs = append(errs, errors.New("default expiry days must not be negative"))
	}
	if c.MaxExpiryDays < 0 {
		errs = append(errs, errors.New("max expiry days must not be negative"))
	}
	if c.CacheTTL < 0 {
		errs = append(errs, errors.New("cache ttl must not be negative"))
	}
	return errors.Join(errs...)
}

func (c *Config) normalizeServerAddress() {
	if strings.HasPrefix(c.ServerAddress, ":") {
		c.ServerAddress = "localhost" + c.ServerAddress
	}
}

func loadEnvFiles(files []string) error {
	if len(files) == 0 {
		files = []string{defaultEnvFile}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return nil
}

func applyEnv(key string, target *string) {
	if val, ok := os.LookupEnv(key); ok {
		*target = val
	}
}

func applyEnvDuration(key string, target *time.Duration) error {
	val, ok := os.LookupEnv(key)
	if !ok {
		return nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*target = d
	return nil
}

func applyEnvInt(key string, target *int) error {
	val, ok := os.LookupEnv(key)
	if !ok {
		return nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*target = n
	return nil
}
