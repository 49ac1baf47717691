package adminsession

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/AdguardTeam/golibs/logutil/slogutil"
	internalaudit "github.com/honjaopseoye/adminsession/internal/audit"
	internalmetrics "github.com/honjaopseoye/adminsession/internal/metrics"
	"github.com/honjaopseoye/adminsession/token"
)

// Verifier checks the signature of a restored token.  [*token.Manager]
// implements it.
type Verifier interface {
	Verify(tok string) (*token.Claims, error)
}

// Builder assembles a [Manager].  A Builder can be used for one Build call.
type Builder struct {
	config    Config
	storage   Storage
	verifier  Verifier
	logger    *slog.Logger
	auditSink AuditSink
	now       func() time.Time

	built bool
}

// New returns a builder holding [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithStorage sets the persisted storage.  It is required.
func (b *Builder) WithStorage(s Storage) *Builder {
	b.storage = s
	return b
}

// WithVerifier sets a signature verifier and takes precedence over
// Config.Verify.
func (b *Builder) WithVerifier(v Verifier) *Builder {
	b.verifier = v
	return b
}

// WithLogger sets the logger.  The default discards everything.
func (b *Builder) WithLogger(l *slog.Logger) *Builder {
	b.logger = l
	return b
}

// WithAuditSink sets the audit sink used when Config.Audit is enabled.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithClock overrides the clock used for expiry checks.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// WithMetricsEnabled toggles counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the storage-write latency histogram.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and returns a manager in
// [PhaseInitializing].
func (b *Builder) Build() (*Manager, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if b.storage == nil {
		return nil, errors.New("storage required")
	}

	verifier := b.verifier
	if verifier == nil && cfg.Verify.Enabled {
		tm, err := token.NewManager(cfg.Verify.tokenConfig())
		if err != nil {
			return nil, fmt.Errorf("verifier: %w", err)
		}
		verifier = tm
	}

	logger := b.logger
	if logger == nil {
		logger = slogutil.NewDiscardLogger()
	}

	now := b.now
	if now == nil {
		now = time.Now
	}

	m := &Manager{
		config:      cfg,
		storage:     b.storage,
		verifier:    verifier,
		logger:      logger,
		now:         now,
		tokenKey:    cfg.Storage.KeyPrefix + keyToken,
		identityKey: cfg.Storage.KeyPrefix + keyIdentity,
		state:       initialState(),
	}

	m.audit = internalaudit.NewDispatcher(internalaudit.Config{
		Logger:     logger.With(slogutil.KeyPrefix, "audit"),
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
	}, b.auditSink)
	m.metrics = internalmetrics.New(internalmetrics.Config{
		Enabled:                 cfg.Metrics.Enabled,
		EnableLatencyHistograms: cfg.Metrics.EnableLatencyHistograms,
	})

	b.built = true

	return m, nil
}
