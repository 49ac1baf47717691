package adminsession

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/AdguardTeam/golibs/logutil/slogutil"
	internalaudit "github.com/honjaopseoye/adminsession/internal/audit"
	internalmetrics "github.com/honjaopseoye/adminsession/internal/metrics"
	"github.com/honjaopseoye/adminsession/store"
	"github.com/honjaopseoye/adminsession/token"
)

// Manager owns the session state machine.  All methods are safe for
// concurrent use; state transitions are serialized, including the storage
// I/O they perform, so memory and storage never disagree after a method
// returns.
type Manager struct {
	config   Config
	storage  Storage
	verifier Verifier
	logger   *slog.Logger
	audit    *internalaudit.Dispatcher
	metrics  *internalmetrics.Metrics
	now      func() time.Time

	tokenKey    string
	identityKey string

	// mu protects state and serializes storage writes.
	mu    sync.Mutex
	state State
}

// Close stops the audit dispatcher after flushing it.  The manager must not
// be used afterwards.
func (m *Manager) Close() {
	if m == nil {
		return
	}

	m.audit.Close()
}

// State returns a snapshot of the current session.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.state.clone()
}

// IsExpired reports whether tok is expired according to the manager's clock.
// Tokens that cannot be decoded are expired.
func (m *Manager) IsExpired(tok string) bool {
	return token.IsExpired(tok, m.now())
}

// Bootstrap restores the session from storage.  It never fails: unreadable,
// malformed or expired data is purged and the manager becomes
// unauthenticated.  Each call re-reads storage.
func (m *Manager) Bootstrap(ctx context.Context) State {
	m.mu.Lock()
	defer m.mu.Unlock()

	tok, rawIdentity, err := m.load(ctx)
	if err != nil {
		// The stored data may be fine; a later call can still restore it.
		m.logger.WarnContext(ctx, "reading session storage", slogutil.KeyError, err)
		m.metricInc(MetricBootstrapReadError)
		m.state = unauthenticatedState()

		return m.state.clone()
	}

	if tok == "" || rawIdentity == "" {
		m.logger.DebugContext(ctx, "no stored session")
		m.metricInc(MetricBootstrapEmpty)
		m.state = unauthenticatedState()

		return m.state.clone()
	}

	var id *Identity
	if err = json.Unmarshal([]byte(rawIdentity), &id); err != nil || id == nil {
		m.purgeLocked(ctx, ReasonInvalidIdentity)

		return m.state.clone()
	}

	claims, err := token.Decode(tok)
	if err != nil {
		m.purgeLocked(ctx, ReasonMalformedToken)

		return m.state.clone()
	}

	now := m.now()
	if claims.Expired(now) {
		m.purgeLocked(ctx, ReasonExpiredToken)

		return m.state.clone()
	}

	if m.verifier != nil {
		if _, err = m.verifier.Verify(tok); err != nil {
			m.logger.WarnContext(ctx, "stored token failed verification", slogutil.KeyError, err)
			m.purgeLocked(ctx, ReasonInvalidSignature)

			return m.state.clone()
		}
	}

	m.state = authenticatedState(tok, *id, claims.Expiry())
	m.metricInc(MetricBootstrapRestored)
	m.emitAudit(ctx, auditEventSessionRestored, m.state, "", nil)
	m.logger.InfoContext(
		ctx,
		"session restored",
		"session_id", m.state.SessionID,
		"user_id", id.ID,
		"expires_in", claims.Expiry().Sub(now).Truncate(time.Second),
	)

	return m.state.clone()
}

// load reads both entries.  Absent entries are returned as empty strings.
func (m *Manager) load(ctx context.Context) (tok, rawIdentity string, err error) {
	tok, err = m.get(ctx, m.tokenKey)
	if err != nil {
		return "", "", err
	}

	rawIdentity, err = m.get(ctx, m.identityKey)
	if err != nil {
		return "", "", err
	}

	return tok, rawIdentity, nil
}

func (m *Manager) get(ctx context.Context, key string) (string, error) {
	v, err := m.storage.Get(ctx, key)
	if errors.Is(err, store.ErrNotFound) {
		return "", nil
	}

	return v, err
}

// purgeLocked deletes both entries and resets memory.  m.mu must be held.
func (m *Manager) purgeLocked(ctx context.Context, reason string) {
	if err := m.storage.Delete(ctx, m.tokenKey, m.identityKey); err != nil {
		m.logger.WarnContext(ctx, "purging stored session", "reason", reason, slogutil.KeyError, err)
	}

	m.state = unauthenticatedState()
	m.metricInc(MetricBootstrapPurged)
	m.emitAudit(ctx, auditEventSessionPurged, m.state, reason, nil)
	m.logger.InfoContext(ctx, "stored session purged", "reason", reason)
}

// Login records a session for tok and identity.  Both are trusted as given.
// The two storage entries are written together; if that fails the error wraps
// [ErrStorageWrite], storage is cleared on a best-effort basis and the manager
// is left unauthenticated.
func (m *Manager) Login(ctx context.Context, tok string, identity Identity) error {
	if strings.TrimSpace(tok) == "" {
		m.metricInc(MetricLoginFailure)
		m.emitAudit(ctx, auditEventLoginFailure, State{}, "", ErrInvalidToken)

		return ErrInvalidToken
	}

	rawIdentity, err := json.Marshal(identity)
	if err != nil {
		return fmt.Errorf("encoding identity: %w", err)
	}

	var exp time.Time
	if claims, decErr := token.Decode(tok); decErr == nil && claims.ExpiresAt != 0 {
		exp = claims.Expiry()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	entries := map[string]string{
		m.tokenKey:    tok,
		m.identityKey: string(rawIdentity),
	}

	err = m.put(ctx, entries, m.storageTTL(exp))
	if err != nil {
		if delErr := m.storage.Delete(ctx, m.tokenKey, m.identityKey); delErr != nil {
			m.logger.WarnContext(ctx, "rolling back session write", slogutil.KeyError, delErr)
		}

		err = fmt.Errorf("%w: %v", ErrStorageWrite, err)
		m.state = unauthenticatedState()
		m.metricInc(MetricLoginFailure)
		m.emitAudit(ctx, auditEventLoginFailure, State{Identity: &identity}, "", err)
		m.logger.ErrorContext(ctx, "persisting session", "user_id", identity.ID, slogutil.KeyError, err)

		return err
	}

	m.state = authenticatedState(tok, identity, exp)
	m.metricInc(MetricLoginSuccess)
	m.emitAudit(ctx, auditEventLoginSuccess, m.state, "", nil)
	m.logger.InfoContext(ctx, "logged in", "session_id", m.state.SessionID, "user_id", identity.ID)

	return nil
}

// put writes entries with the configured write timeout and records its
// latency.
func (m *Manager) put(ctx context.Context, entries map[string]string, ttl time.Duration) error {
	if m.config.Storage.WriteTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.config.Storage.WriteTimeout)
		defer cancel()
	}

	start := time.Now()
	err := m.storage.Put(ctx, entries, ttl)
	m.metricObserve(MetricStorageWriteLatency, time.Since(start))

	return err
}

// storageTTL returns the TTL for stored entries.  Zero means none.
func (m *Manager) storageTTL(exp time.Time) time.Duration {
	if !m.config.Storage.ExpireWithToken || exp.IsZero() {
		return 0
	}

	ttl := exp.Sub(m.now())
	if ttl <= 0 {
		return 0
	}

	return ttl
}

// LoginWithToken derives the identity from tok and records the session.  A
// leading "Bearer " is removed.  Tokens that cannot be decoded produce an
// error wrapping [ErrMalformedToken].
func (m *Manager) LoginWithToken(ctx context.Context, tok string) (Identity, error) {
	tok = token.StripBearer(tok)

	claims, err := token.Decode(tok)
	if err != nil {
		err = fmt.Errorf("%w: %v", ErrMalformedToken, err)
		m.metricInc(MetricLoginFailure)
		m.emitAudit(ctx, auditEventLoginFailure, State{}, "", err)

		return Identity{}, err
	}

	id := IdentityFromClaims(claims, m.config.Identity)
	if err = m.Login(ctx, tok, id); err != nil {
		return Identity{}, err
	}

	return id, nil
}

// Logout removes the stored session and resets memory.  Memory is always
// cleared; a storage failure is returned wrapped in [ErrStorageDelete].
// Logging out without a session is not an error.
func (m *Manager) Logout(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	prev := m.state
	err := m.clearLocked(ctx)

	m.metricInc(MetricLogout)
	m.emitAudit(ctx, auditEventLogout, prev, "", err)
	if err != nil {
		m.logger.WarnContext(ctx, "clearing stored session", slogutil.KeyError, err)
	} else {
		m.logger.InfoContext(ctx, "logged out", "session_id", prev.SessionID)
	}

	return err
}

// Invalidate ends the session because the backend or a local check rejected
// it.  It has the same effect as [Manager.Logout] and records reason.
func (m *Manager) Invalidate(ctx context.Context, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.invalidateLocked(ctx, reason)
}

// InvalidateToken is [Manager.Invalidate] for the session holding tok.  It
// does nothing and reports false when that session has already ended or was
// replaced by another login, so a late rejection of an old token cannot end a
// newer session.
func (m *Manager) InvalidateToken(ctx context.Context, tok, reason string) (ended bool, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state.Phase != PhaseAuthenticated || m.state.Token != tok {
		m.logger.DebugContext(ctx, "ignoring rejection of a replaced token", "reason", reason)

		return false, nil
	}

	return true, m.invalidateLocked(ctx, reason)
}

func (m *Manager) invalidateLocked(ctx context.Context, reason string) error {
	prev := m.state
	err := m.clearLocked(ctx)

	m.metricInc(MetricInvalidated)
	m.emitAudit(ctx, auditEventSessionInvalidated, prev, reason, err)
	m.logger.InfoContext(ctx, "session invalidated", "session_id", prev.SessionID, "reason", reason)
	if err != nil {
		m.logger.WarnContext(ctx, "clearing stored session", slogutil.KeyError, err)
	}

	return err
}

// clearLocked resets memory and deletes both entries.  m.mu must be held.
func (m *Manager) clearLocked(ctx context.Context) error {
	m.state = unauthenticatedState()

	if err := m.storage.Delete(ctx, m.tokenKey, m.identityKey); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageDelete, err)
	}

	return nil
}

// Authorization returns the bearer token for an outgoing request.  The token
// is re-checked for expiry on every call; an expired session is invalidated
// and [ErrExpiredToken] returned.
func (m *Manager) Authorization(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.state.Phase {
	case PhaseInitializing:
		return "", ErrManagerNotReady
	case PhaseUnauthenticated:
		return "", ErrNotAuthenticated
	}

	tok := m.state.Token
	if token.IsExpired(tok, m.now()) {
		m.metricInc(MetricExpiredOnAccess)
		_ = m.invalidateLocked(ctx, ReasonExpiredToken)

		return "", ErrExpiredToken
	}

	return tok, nil
}
