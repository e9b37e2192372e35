package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Backend selects the remote document store.
type Backend string

const (
	BackendMemory    Backend = "memory"
	BackendFirestore Backend = "firestore"
	BackendRedis     Backend = "redis"
)

// Config captures the shoplist client settings.
type Config struct {
	Backend Backend

	ProjectID       string
	CredentialsFile string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	UsersCollection      string
	ShareCodesCollection string

	CachePath string
	LogFile   string
	LogLevel  string

	WriteTimeout time.Duration
	ReadTimeout  time.Duration
}

const (
	defaultConfigPath           = "~/.config/shoplist/config.toml"
	defaultCachePath            = "~/.local/share/shoplist/cache.db"
	defaultLogFile              = "~/.local/share/shoplist/shoplist.log"
	defaultLogLevel             = "info"
	defaultRedisAddr            = "127.0.0.1:6379"
	defaultUsersCollection      = "users"
	defaultShareCodesCollection = "shareCodes"
	defaultTimeoutSeconds       = 10
)

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		Backend:              BackendMemory,
		RedisAddr:            defaultRedisAddr,
		UsersCollection:      defaultUsersCollection,
		ShareCodesCollection: defaultShareCodesCollection,
		CachePath:            mustExpand(defaultCachePath),
		LogFile:              mustExpand(defaultLogFile),
		LogLevel:             defaultLogLevel,
		WriteTimeout:         defaultTimeoutSeconds * time.Second,
		ReadTimeout:          defaultTimeoutSeconds * time.Second,
	}
}

// Load locates and parses the config, falling back to defaults when missing.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Default()

	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var raw struct {
		Backend              string `toml:"backend"`
		ProjectID            string `toml:"project_id"`
		CredentialsFile      string `toml:"credentials_file"`
		RedisAddr            string `toml:"redis_addr"`
		RedisPassword        string `toml:"redis_password"`
		RedisDB              int    `toml:"redis_db"`
		UsersCollection      string `toml:"users_collection"`
		ShareCodesCollection string `toml:"share_codes_collection"`
		CachePath            string `toml:"cache_path"`
		LogFile              string `toml:"log_file"`
		LogLevel             string `toml:"log_level"`
		WriteTimeoutSeconds  int    `toml:"write_timeout_seconds"`
		ReadTimeoutSeconds   int    `toml:"read_timeout_seconds"`
	}
	if err := toml.Unmarshal(bytes, &raw); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	if backend := strings.ToLower(strings.TrimSpace(raw.Backend)); backend != "" {
		cfg.Backend = Backend(backend)
	}
	switch cfg.Backend {
	case BackendMemory, BackendFirestore, BackendRedis:
	default:
		return Config{}, fmt.Errorf("parse config: unknown backend %q", raw.Backend)
	}

	cfg.ProjectID = strings.TrimSpace(raw.ProjectID)
	if cfg.Backend == BackendFirestore && cfg.ProjectID == "" {
		return Config{}, errors.New("parse config: project_id is required for the firestore backend")
	}
	if creds := strings.TrimSpace(raw.CredentialsFile); creds != "" {
		cfg.CredentialsFile = mustExpand(creds)
	}

	cfg.RedisAddr = orDefault(raw.RedisAddr, defaultRedisAddr)
	cfg.RedisPassword = raw.RedisPassword
	cfg.RedisDB = raw.RedisDB

	cfg.UsersCollection = orDefault(raw.UsersCollection, defaultUsersCollection)
	cfg.ShareCodesCollection = orDefault(raw.ShareCodesCollection, defaultShareCodesCollection)

	cfg.CachePath = mustExpand(orDefault(raw.CachePath, defaultCachePath))
	cfg.LogFile = mustExpand(orDefault(raw.LogFile, defaultLogFile))
	cfg.LogLevel = strings.ToLower(orDefault(raw.LogLevel, defaultLogLevel))

	cfg.WriteTimeout = secondsOrDefault(raw.WriteTimeoutSeconds)
	cfg.ReadTimeout = secondsOrDefault(raw.ReadTimeoutSeconds)

	return cfg, nil
}

func orDefault(value, fallback string) string {
	if trimmed := strings.TrimSpace(value); trimmed != "" {
		return trimmed
	}
	return fallback
}

func secondsOrDefault(seconds int) time.Duration {
	if seconds <= 0 {
		seconds = defaultTimeoutSeconds
	}
	return time.Duration(seconds) * time.Second
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
