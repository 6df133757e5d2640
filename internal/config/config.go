package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

const (
	DefaultDir  = ".wird"
	DefaultPath = DefaultDir + "/config.yaml"
)

const (
	BackendSQLite = "sqlite"
	BackendFile   = "file"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

type Config struct {
	Storage   Storage   `yaml:"storage"`
	Snapshot  Snapshot  `yaml:"snapshot"`
	Retention Retention `yaml:"retention"`
	Web       Web       `yaml:"web"`
	Logging   Logging   `yaml:"logging"`
}

type Storage struct {
	Backend     string `yaml:"backend" env:"WIRD_STORAGE_BACKEND"`
	SQLitePath  string `yaml:"sqlite_path" env:"WIRD_SQLITE_PATH"`
	FilePath    string `yaml:"file_path" env:"WIRD_FILE_PATH"`
	RedisAddr   string `yaml:"redis_addr" env:"WIRD_REDIS_ADDR"`
	RedisPrefix string `yaml:"redis_prefix" env:"WIRD_REDIS_PREFIX"`
}

type Snapshot struct {
	Path string `yaml:"path" env:"WIRD_SNAPSHOT_PATH"`
	// Auto exports a snapshot after every write to the sqlite backend.
	Auto bool `yaml:"auto" env:"WIRD_SNAPSHOT_AUTO"`
}

type Retention struct {
	Months int `yaml:"months" env:"WIRD_RETENTION_MONTHS"`
}

type Web struct {
	Port string `yaml:"port" env:"WIRD_WEB_PORT"`
}

type Logging struct {
	Level       string `yaml:"level" env:"WIRD_LOG_LEVEL"`
	Development bool   `yaml:"development" env:"WIRD_LOG_DEVELOPMENT"`
}

func Default() Config {
	return Config{
		Storage: Storage{
			Backend:     BackendSQLite,
			SQLitePath:  filepath.Join(DefaultDir, "wird.db"),
			FilePath:    filepath.Join(DefaultDir, "store.json"),
			RedisAddr:   "localhost:6379",
			RedisPrefix: "wird:",
		},
		Snapshot: Snapshot{
			Path: filepath.Join(DefaultDir, "snapshot.jsonl"),
			Auto: true,
		},
		Retention: Retention{Months: 3},
		Web:       Web{Port: "8000"},
		Logging:   Logging{Level: "info"},
	}
}

// Load reads path over the defaults and then applies environment overrides.
// A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()

	b, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.Storage.Backend {
	case BackendSQLite, BackendFile, BackendRedis, BackendMemory:
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	if c.Retention.Months <= 0 {
		return fmt.Errorf("retention months must be positive, got %d", c.Retention.Months)
	}
	return nil
}

// Write stores cfg as YAML at path, creating parent directories.
func Write(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	b, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return os.WriteFile(path, b, 0644)
}
