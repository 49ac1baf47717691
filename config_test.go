package adminsession

import (
	"testing"
	"time"

	"github.com/honjaopseoye/adminsession/token"
)

func TestDefaultConfigValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config must validate: %v", err)
	}
}

func TestConfigValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "empty key prefix", mutate: func(c *Config) { c.Storage.KeyPrefix = " " }},
		{name: "negative write timeout", mutate: func(c *Config) { c.Storage.WriteTimeout = -time.Second }},
		{name: "empty fallback name", mutate: func(c *Config) { c.Identity.FallbackName = "" }},
		{name: "verify without key", mutate: func(c *Config) { c.Verify.Enabled = true }},
		{name: "verify hs256 without key", mutate: func(c *Config) {
			c.Verify = VerifyConfig{Enabled: true, SigningMethod: token.MethodHS256}
		}},
		{name: "verify hs256 with key set", mutate: func(c *Config) {
			c.Verify = VerifyConfig{
				Enabled:       true,
				SigningMethod: token.MethodHS256,
				Key:           []byte("k"),
				Keys:          map[string][]byte{"a": []byte("k")},
			}
		}},
		{name: "verify unknown method", mutate: func(c *Config) {
			c.Verify = VerifyConfig{Enabled: true, SigningMethod: "rs256", Key: []byte("k")}
		}},
		{name: "audit without buffer", mutate: func(c *Config) {
			c.Audit.Enabled = true
			c.Audit.BufferSize = 0
		}},
		{name: "histograms without metrics", mutate: func(c *Config) {
			c.Metrics.EnableLatencyHistograms = true
		}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestCloneConfigDeepCopies(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Verify.Key = []byte("secret")
	cfg.Verify.Keys = map[string][]byte{"k1": []byte("pub")}

	clone := cloneConfig(cfg)
	cfg.Identity.RoleNames[token.RoleAdmin] = "changed"
	cfg.Verify.Key[0] = 'X'
	cfg.Verify.Keys["k1"][0] = 'X'

	if clone.Identity.RoleNames[token.RoleAdmin] != "관리자" {
		t.Fatal("role names must not be shared")
	}
	if string(clone.Verify.Key) != "secret" {
		t.Fatal("verify key must not be shared")
	}
	if string(clone.Verify.Keys["k1"]) != "pub" {
		t.Fatal("verify key set must not be shared")
	}
}
