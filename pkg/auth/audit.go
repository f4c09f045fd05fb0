package auth

import (
	"context"
	"net/http"
	"time"

	"github.com/tenantgate/tenantgate/pkg/observability"
)

// Audit action constants
const (
	ActionPasswordLogin = "auth.password_login"
	ActionSSOLogin      = "auth.sso_login"
	ActionRegister      = "auth.register"
	ActionUserCreate    = "user.create"
	ActionUserUpdate    = "user.update"
	ActionUserDelete    = "user.delete"
	ActionTenantCreate  = "tenant.create"
)

// Audit status constants
const (
	AuditSuccess = "success"
	AuditFailure = "failure"
	AuditDenied  = "denied"
)

// AuditEvent is one security-relevant action taken against the identity
// boundary.
type AuditEvent struct {
	Action    string
	Status    string
	Email     string
	UserID    int64
	TenantID  int64
	IPAddress string
	UserAgent string
	Error     string
	CreatedAt time.Time
}

// AuditLogger records security audit events as structured log entries. The
// request ID and tenant resolved on the context come along automatically.
type AuditLogger struct{}

// NewAuditLogger creates an audit logger
func NewAuditLogger() *AuditLogger {
	return &AuditLogger{}
}

// Record emits an audit event
func (al *AuditLogger) Record(ctx context.Context, event AuditEvent) {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	log := observability.FromContext(ctx).WithFields(map[string]interface{}{
		"audit":  true,
		"action": event.Action,
		"status": event.Status,
	})
	if event.Email != "" {
		log = log.WithField("email", event.Email)
	}
	if event.UserID != 0 {
		log = log.WithField("user_id", event.UserID)
	}
	if event.TenantID != 0 {
		log = log.WithField("tenant_id", event.TenantID)
	}
	if event.IPAddress != "" {
		log = log.WithField("ip", event.IPAddress)
	}
	if event.UserAgent != "" {
		log = log.WithField("user_agent", event.UserAgent)
	}
	if event.Error != "" {
		log = log.WithField("error", event.Error)
	}

	if event.Status == AuditSuccess {
		log.Info("audit event")
	} else {
		log.Warn("audit event")
	}
}

// RecordRequest emits an audit event enriched with the client address and
// user agent of the originating request.
func (al *AuditLogger) RecordRequest(r *http.Request, event AuditEvent) {
	event.IPAddress = clientIP(r)
	event.UserAgent = r.UserAgent()
	al.Record(r.Context(), event)
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		return forwarded
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}
	return r.RemoteAddr
}
