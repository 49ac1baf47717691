package adminsession

import (
	"errors"
	"maps"
	"strings"
	"time"

	"github.com/honjaopseoye/adminsession/token"
)

// Config is the complete manager configuration.  Start from [DefaultConfig]
// and override what differs.
type Config struct {
	Storage  StorageConfig
	Identity IdentityConfig
	Verify   VerifyConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
}

/*
====================================
STORAGE CONFIG
====================================
*/

// StorageConfig controls how the session is persisted.
type StorageConfig struct {
	// KeyPrefix namespaces the token and identity keys.
	KeyPrefix string

	// ExpireWithToken gives stored entries a TTL equal to the remaining token
	// lifetime on back ends that support it.
	ExpireWithToken bool

	// WriteTimeout bounds the storage write inside Login.  Zero disables the
	// bound.
	WriteTimeout time.Duration
}

/*
====================================
IDENTITY CONFIG
====================================
*/

// IdentityConfig controls how an [Identity] is derived from token claims.
type IdentityConfig struct {
	// RoleNames maps a role marker to the display name shown in the shell.
	RoleNames map[token.Role]string

	// FallbackName is used for roles missing from RoleNames.
	FallbackName string
}

/*
====================================
VERIFY CONFIG
====================================
*/

// VerifyConfig enables signature checks of restored tokens.  When disabled the
// client trusts the payload, since the backend re-authorizes every request.
type VerifyConfig struct {
	Enabled       bool
	SigningMethod token.SigningMethod

	// Key is the HS256 secret or the Ed25519 public key (raw or PEM).
	Key []byte

	// Keys selects the Ed25519 verification key by the token's kid header.
	Keys map[string][]byte
}

/*
====================================
AUDIT CONFIG
====================================
*/

// AuditConfig controls the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

/*
====================================
METRICS CONFIG
====================================
*/

// MetricsConfig toggles counters and the storage-write latency histogram.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// Default values.
const (
	DefaultKeyPrefix    = "adminsession:"
	DefaultFallbackName = "사용자"
)

// DefaultConfig returns the configuration used when [Builder.WithConfig] is
// not called.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		Storage: StorageConfig{
			KeyPrefix:       DefaultKeyPrefix,
			ExpireWithToken: false,
			WriteTimeout:    5 * time.Second,
		},
		Identity: IdentityConfig{
			RoleNames: map[token.Role]string{
				token.RoleAdmin: "관리자",
			},
			FallbackName: DefaultFallbackName,
		},
		Verify: VerifyConfig{
			Enabled:       false,
			SigningMethod: token.MethodEd25519,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Identity.RoleNames = maps.Clone(cfg.Identity.RoleNames)
	out.Verify.Key = cloneBytes(cfg.Verify.Key)
	if cfg.Verify.Keys != nil {
		out.Verify.Keys = make(map[string][]byte, len(cfg.Verify.Keys))
		for kid, k := range cfg.Verify.Keys {
			out.Verify.Keys[kid] = cloneBytes(k)
		}
	}

	return out
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}

	return append([]byte(nil), b...)
}

// Validate reports the first problem found in c.
func (c *Config) Validate() error {
	// Storage
	if strings.TrimSpace(c.Storage.KeyPrefix) == "" {
		return errors.New("Storage KeyPrefix must not be empty")
	}
	if c.Storage.WriteTimeout < 0 {
		return errors.New("Storage WriteTimeout must be >= 0")
	}

	// Identity
	if c.Identity.FallbackName == "" {
		return errors.New("Identity FallbackName must not be empty")
	}

	// Verify
	if c.Verify.Enabled {
		switch c.Verify.SigningMethod {
		case token.MethodEd25519:
			if len(c.Verify.Key) == 0 && len(c.Verify.Keys) == 0 {
				return errors.New("Verify ed25519 requires Key or Keys")
			}
		case token.MethodHS256:
			if len(c.Verify.Key) == 0 {
				return errors.New("Verify hs256 requires Key")
			}
			if len(c.Verify.Keys) > 0 {
				return errors.New("Verify Keys is only supported for ed25519")
			}
		default:
			return errors.New("unsupported Verify SigningMethod")
		}
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when Audit is enabled")
	}

	// Metrics
	if c.Metrics.EnableLatencyHistograms && !c.Metrics.Enabled {
		return errors.New("Metrics EnableLatencyHistograms requires Metrics Enabled")
	}

	return nil
}

// tokenConfig maps VerifyConfig onto the token package's key material.
func (c VerifyConfig) tokenConfig() token.Config {
	cfg := token.Config{
		SigningMethod: c.SigningMethod,
		VerifyKeys:    c.Keys,
	}
	if c.SigningMethod == token.MethodHS256 {
		cfg.PrivateKey = c.Key
	} else {
		cfg.PublicKey = c.Key
	}

	return cfg
}
