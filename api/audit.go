package api

import (
	"log/slog"
	"net/http"
	"time"
)

// AuditEvent identifies the type of action being logged.
type AuditEvent string

const (
	AuditCertificateCreated  AuditEvent = "certificate_created"
	AuditCertificateUpdated  AuditEvent = "certificate_updated"
	AuditCertificateIssued   AuditEvent = "certificate_issued"
	AuditCertificateRevoked  AuditEvent = "certificate_revoked"
	AuditRecipientAssigned   AuditEvent = "recipient_assigned"
	AuditArtifactDownloaded  AuditEvent = "artifact_downloaded"
	AuditVerificationChecked AuditEvent = "verification_checked"
	AuditCredentialStored    AuditEvent = "credential_stored"
	AuditCredentialDeleted   AuditEvent = "credential_deleted"
)

// auditLogger wraps slog.Logger for structured audit logging.
type auditLogger struct {
	logger *slog.Logger
}

func newAuditLogger(logger *slog.Logger) *auditLogger {
	return &auditLogger{
		logger: logger.With("component", "audit"),
	}
}

// log writes a structured audit entry. Only stable identifiers go into the
// attributes; never credential secrets or document bytes.
func (al *auditLogger) log(event AuditEvent, r *http.Request, attrs ...slog.Attr) {
	baseAttrs := []slog.Attr{
		slog.String("event", string(event)),
		slog.String("remote_addr", r.RemoteAddr),
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
	}
	baseAttrs = append(baseAttrs, attrs...)
	al.logger.LogAttrs(r.Context(), slog.LevelInfo, "audit", baseAttrs...)
}
