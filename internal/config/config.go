// Package config loads tendril settings from a YAML or JSON file overlaid with
// TENDRIL_* environment variables.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to every environment override, e.g. TENDRIL_REDIS_ADDR.
const EnvPrefix = "TENDRIL_"

// Store backends.
const (
	StoreMemory = "memory"
	StoreFile   = "file"
	StoreRedis  = "redis"
	StoreSQLite = "sqlite"
)

// Config holds every setting the CLI and server read.
type Config struct {
	Store         string      `mapstructure:"store"`
	Dir           string      `mapstructure:"dir"`
	SQLitePath    string      `mapstructure:"sqlite_path"`
	Redis         RedisConfig `mapstructure:"redis"`
	Author        string      `mapstructure:"author"`
	Avatar        string      `mapstructure:"avatar"`
	IndentCap     int         `mapstructure:"indent_cap"`
	MaxInputSize  int         `mapstructure:"max_input_size"`
	LogLevel      string      `mapstructure:"log_level"`
	LogJSON       bool        `mapstructure:"log_json"`
	Listen        string      `mapstructure:"listen"`
	ReplyRate     float64     `mapstructure:"reply_rate"` // replies per second on serve, 0 disables
	ReplyBurst    int         `mapstructure:"reply_burst"`
	EncryptionKey string      `mapstructure:"encryption_key"` // base64, 32 bytes
	Redact        []string    `mapstructure:"redact"`
}

// RedisConfig configures the Redis store, locker and commit stream.
type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Prefix   string        `mapstructure:"prefix"`
	TTL      time.Duration `mapstructure:"ttl"`
	Stream   string        `mapstructure:"stream"` // empty disables the commit stream
}

// keys lists every setting that may be overridden from the environment.
var keys = []string{
	"store", "dir", "sqlite_path", "author", "avatar", "indent_cap", "max_input_size",
	"log_level", "log_json", "listen", "reply_rate", "reply_burst", "encryption_key", "redact",
	"redis.addr", "redis.password", "redis.db", "redis.prefix", "redis.ttl", "redis.stream",
}

// Default returns the settings used when nothing is configured.
func Default() Config {
	return Config{
		Store:      StoreFile,
		Dir:        ".tendril/threads",
		SQLitePath: ".tendril/threads.db",
		Redis: RedisConfig{
			Addr:   "localhost:6379",
			Prefix: "tendril:thread:",
		},
		Author:       "You",
		IndentCap:    0,
		MaxInputSize: 4096,
		LogLevel:     "info",
		Listen:       ":8080",
		ReplyBurst:   10,
	}
}

// Load reads path (may be empty or missing), applies environment overrides and validates the result.
func Load(path string) (Config, error) {
	raw, err := readFile(path)
	if err != nil {
		return Config{}, err
	}
	overlayEnv(raw, os.LookupEnv)

	cfg := Default()
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
		Result: &cfg,
	})
	if err != nil {
		return Config{}, err
	}
	if err := decoder.Decode(raw); err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks value ranges and the store backend.
func (c Config) Validate() error {
	var errs []error
	switch c.Store {
	case StoreMemory, StoreFile, StoreRedis, StoreSQLite:
	default:
		errs = append(errs, fmt.Errorf("unknown store %q (want memory, file, sqlite or redis)", c.Store))
	}
	if c.IndentCap < 0 {
		errs = append(errs, fmt.Errorf("indent_cap must not be negative, got %d", c.IndentCap))
	}
	if c.MaxInputSize <= 0 {
		errs = append(errs, fmt.Errorf("max_input_size must be positive, got %d", c.MaxInputSize))
	}
	if c.ReplyRate < 0 {
		errs = append(errs, fmt.Errorf("reply_rate must not be negative, got %g", c.ReplyRate))
	}
	if c.Store == StoreFile && c.Dir == "" {
		errs = append(errs, errors.New("dir is required for the file store"))
	}
	if c.Store == StoreSQLite && c.SQLitePath == "" {
		errs = append(errs, errors.New("sqlite_path is required for the sqlite store"))
	}
	return errors.Join(errs...)
}

// LoadDotEnv exports the variables of each existing dotenv file that are not
// already set, so TENDRIL_* keys can live in a local .env. Missing files are skipped.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

func readFile(path string) (map[string]any, error) {
	raw := make(map[string]any)
	if path == "" {
		return raw, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return raw, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if strings.ToLower(filepath.Ext(path)) == ".json" {
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	} else if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if raw == nil {
		raw = make(map[string]any)
	}
	return raw, nil
}

func overlayEnv(raw map[string]any, lookup func(string) (string, bool)) {
	for _, key := range keys {
		name := EnvPrefix + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		val, ok := lookup(name)
		if !ok {
			continue
		}
		set(raw, strings.Split(key, "."), val)
	}
}

func set(m map[string]any, path []string, val string) {
	if len(path) == 1 {
		m[path[0]] = val
		return
	}
	child, ok := m[path[0]].(map[string]any)
	if !ok {
		child = make(map[string]any)
		m[path[0]] = child
	}
	set(child, path[1:], val)
}
