package adminsession

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

const (
	auditEventSessionRestored    = "session_restored"
	auditEventSessionPurged      = "session_purged"
	auditEventLoginSuccess       = "login_success"
	auditEventLoginFailure       = "login_failure"
	auditEventLogout             = "logout"
	auditEventSessionInvalidated = "session_invalidated"
)

// Reasons recorded with purge and invalidation events.
const (
	ReasonInvalidIdentity  = "invalid_identity"
	ReasonMalformedToken   = "malformed_token"
	ReasonExpiredToken     = "expired_token"
	ReasonInvalidSignature = "invalid_signature"
	ReasonUnauthorized     = "unauthorized"
)

// AuditErrorCode is the stable error label stored in [AuditEvent.Error].
type AuditErrorCode string

const (
	auditErrInvalidToken   AuditErrorCode = "invalid_token"
	auditErrMalformedToken AuditErrorCode = "malformed_token"
	auditErrStorageWrite   AuditErrorCode = "storage_write_failed"
	auditErrStorageDelete  AuditErrorCode = "storage_delete_failed"
	auditErrInternal       AuditErrorCode = "internal_error"
)

func auditErrorCode(err error) AuditErrorCode {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidToken):
		return auditErrInvalidToken
	case errors.Is(err, ErrMalformedToken):
		return auditErrMalformedToken
	case errors.Is(err, ErrStorageWrite):
		return auditErrStorageWrite
	case errors.Is(err, ErrStorageDelete):
		return auditErrStorageDelete
	default:
		return auditErrInternal
	}
}

// emitAudit queues an event for st.  Bearer tokens are never part of an
// event.
func (m *Manager) emitAudit(ctx context.Context, eventType string, st State, reason string, err error) {
	if m == nil || m.audit == nil {
		return
	}

	event := AuditEvent{
		Timestamp: m.now().UTC(),
		Type:      eventType,
		Success:   err == nil,
		Reason:    reason,
		Error:     string(auditErrorCode(err)),
	}
	if st.SessionID != uuid.Nil {
		event.SessionID = st.SessionID.String()
	}
	if st.Identity != nil {
		event.UserID = st.Identity.ID
		event.Role = string(st.Identity.Role)
	}
	if !st.ExpiresAt.IsZero() {
		event.Metadata = map[string]string{
			"expires_at": st.ExpiresAt.UTC().Format(time.RFC3339),
		}
	}

	m.audit.Emit(ctx, event)
}

// AuditDropped returns the number of audit events dropped because the
// dispatcher buffer was full or the caller's context ended first.
func (m *Manager) AuditDropped() uint64 {
	if m == nil {
		return 0
	}

	return m.audit.Dropped()
}

// AuditFailed returns the number of audit events the sink rejected.
func (m *Manager) AuditFailed() uint64 {
	if m == nil {
		return 0
	}

	return m.audit.Failed()
}
