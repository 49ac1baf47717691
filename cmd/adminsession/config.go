package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/AdguardTeam/golibs/logutil/slogutil"
	"github.com/BurntSushi/toml"
	"github.com/honjaopseoye/adminsession"
	"github.com/honjaopseoye/adminsession/token"
)

// Storage back ends.
const (
	backendBolt   = "bolt"
	backendRedis  = "redis"
	backendMemory = "memory"
)

// Environment variables that override the file.
const (
	envAPIURL      = "ADMINSESSION_API_URL"
	envBackend     = "ADMINSESSION_STORAGE"
	envBoltPath    = "ADMINSESSION_DB_PATH"
	envRedisAddr   = "ADMINSESSION_REDIS_ADDR"
	envRedisPass   = "ADMINSESSION_REDIS_PASSWORD"
	envVerbose     = "ADMINSESSION_VERBOSE"
	envPassword    = "ADMINSESSION_PASSWORD"
	envDevTokenKey = "ADMINSESSION_DEV_KEY"
)

// fileConfig is the on-disk TOML configuration.
type fileConfig struct {
	API     apiConfig     `toml:"api"`
	Storage storageConfig `toml:"storage"`
	Verify  verifyConfig  `toml:"verify"`
	Audit   auditConfig   `toml:"audit"`
	Metrics metricsConfig `toml:"metrics"`
	Log     logConfig     `toml:"log"`
	Serve   serveConfig   `toml:"serve"`
}

type apiConfig struct {
	BaseURL string   `toml:"base_url"`
	Timeout duration `toml:"timeout"`
}

type storageConfig struct {
	Backend         string `toml:"backend"`
	Path            string `toml:"path"`
	RedisAddr       string `toml:"redis_addr"`
	RedisPassword   string `toml:"redis_password"`
	RedisDB         int    `toml:"redis_db"`
	KeyPrefix       string `toml:"key_prefix"`
	ExpireWithToken bool   `toml:"expire_with_token"`
}

type verifyConfig struct {
	Enabled bool   `toml:"enabled"`
	Method  string `toml:"method"`
	KeyFile string `toml:"key_file"`
}

type auditConfig struct {
	Enabled    bool   `toml:"enabled"`
	Path       string `toml:"path"`
	BufferSize int    `toml:"buffer_size"`
}

type metricsConfig struct {
	Enabled           bool `toml:"enabled"`
	LatencyHistograms bool `toml:"latency_histograms"`
}

type logConfig struct {
	Verbose bool   `toml:"verbose"`
	Format  string `toml:"format"`
}

type serveConfig struct {
	Addr string `toml:"addr"`
}

// duration is a time.Duration written as a string like "30s".
type duration struct {
	time.Duration
}

// UnmarshalText implements the encoding.TextUnmarshaler interface for
// *duration.
func (d *duration) UnmarshalText(b []byte) (err error) {
	d.Duration, err = time.ParseDuration(string(b))

	return err
}

// defaultFileConfig returns the configuration used for missing fields.
func defaultFileConfig() (c *fileConfig) {
	return &fileConfig{
		API: apiConfig{
			BaseURL: "http://localhost:8080",
			Timeout: duration{Duration: 30 * time.Second},
		},
		Storage: storageConfig{
			Backend:   backendBolt,
			Path:      defaultBoltPath(),
			KeyPrefix: adminsession.DefaultKeyPrefix,
		},
		Verify: verifyConfig{
			Method: string(token.MethodEd25519),
		},
		Audit: auditConfig{
			BufferSize: 256,
		},
		Log: logConfig{
			Format: "default",
		},
		Serve: serveConfig{
			Addr: "127.0.0.1:3000",
		},
	}
}

// defaultBoltPath returns ~/.adminsession/session.db, or a path in the
// working directory if the home directory is unknown.
func defaultBoltPath() (p string) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "session.db"
	}

	return filepath.Join(home, ".adminsession", "session.db")
}

// loadConfig reads the file at path over the defaults and applies the
// environment.  An empty path skips the file.
func loadConfig(path string) (c *fileConfig, err error) {
	c = defaultFileConfig()

	if path != "" {
		var md toml.MetaData
		md, err = toml.DecodeFile(path, c)
		if err != nil {
			return nil, fmt.Errorf("decoding %s: %w", path, err)
		}

		if undec := md.Undecoded(); len(undec) > 0 {
			return nil, fmt.Errorf("decoding %s: unknown key %q", path, undec[0].String())
		}
	}

	c.applyEnv()

	if err = c.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return c, nil
}

// applyEnv overrides fields from the environment.
func (c *fileConfig) applyEnv() {
	if v := os.Getenv(envAPIURL); v != "" {
		c.API.BaseURL = v
	}
	if v := os.Getenv(envBackend); v != "" {
		c.Storage.Backend = v
	}
	if v := os.Getenv(envBoltPath); v != "" {
		c.Storage.Path = v
	}
	if v := os.Getenv(envRedisAddr); v != "" {
		c.Storage.RedisAddr = v
	}
	if v := os.Getenv(envRedisPass); v != "" {
		c.Storage.RedisPassword = v
	}
	if v, err := strconv.ParseBool(os.Getenv(envVerbose)); err == nil {
		c.Log.Verbose = v
	}
}

func (c *fileConfig) validate() (err error) {
	if c.API.BaseURL == "" {
		return errors.New("api.base_url must not be empty")
	}
	if c.API.Timeout.Duration < 0 {
		return errors.New("api.timeout must be >= 0")
	}

	switch c.Storage.Backend {
	case backendBolt:
		if c.Storage.Path == "" {
			return errors.New("storage.path is required for bolt")
		}
	case backendRedis:
		if c.Storage.RedisAddr == "" {
			return errors.New("storage.redis_addr is required for redis")
		}
	case backendMemory:
		// Nothing to check.
	default:
		return fmt.Errorf("storage.backend: unsupported value %q", c.Storage.Backend)
	}

	if c.Verify.Enabled && c.Verify.KeyFile == "" {
		return errors.New("verify.key_file is required when verify is enabled")
	}

	switch strings.ToLower(c.Log.Format) {
	case "", "default", "json", "text":
	default:
		return fmt.Errorf("log.format: unsupported value %q", c.Log.Format)
	}

	return nil
}

// managerConfig maps the file onto the manager configuration.
func (c *fileConfig) managerConfig() (cfg adminsession.Config, err error) {
	cfg = adminsession.DefaultConfig()

	cfg.Storage.KeyPrefix = c.Storage.KeyPrefix
	cfg.Storage.ExpireWithToken = c.Storage.ExpireWithToken

	if c.Verify.Enabled {
		var key []byte
		key, err = os.ReadFile(c.Verify.KeyFile)
		if err != nil {
			return adminsession.Config{}, fmt.Errorf("reading verify key: %w", err)
		}

		cfg.Verify = adminsession.VerifyConfig{
			Enabled:       true,
			SigningMethod: token.SigningMethod(strings.ToLower(c.Verify.Method)),
			Key:           key,
		}
	}

	cfg.Audit.Enabled = c.Audit.Enabled
	cfg.Audit.BufferSize = c.Audit.BufferSize

	cfg.Metrics.Enabled = c.Metrics.Enabled
	cfg.Metrics.EnableLatencyHistograms = c.Metrics.Enabled && c.Metrics.LatencyHistograms

	return cfg, cfg.Validate()
}

// newLogger returns the logger described by c.
func (c *logConfig) newLogger() (l *slog.Logger) {
	lvl := slog.LevelInfo
	if c.Verbose {
		lvl = slog.LevelDebug
	}

	format := slogutil.FormatDefault
	switch strings.ToLower(c.Format) {
	case "json":
		format = slogutil.FormatJSON
	case "text":
		format = slogutil.FormatText
	}

	return slogutil.New(&slogutil.Config{
		Output:       os.Stderr,
		Format:       format,
		Level:        lvl,
		AddTimestamp: true,
	})
}
