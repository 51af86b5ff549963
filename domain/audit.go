package domain

import (
	"time"

	"github.com/google/uuid"
)

// AuditSeverity separates routine activity from security incidents.
type AuditSeverity string

const (
	AuditInfo     AuditSeverity = "info"
	AuditWarning  AuditSeverity = "warning"
	AuditCritical AuditSeverity = "critical"
)

// AuditEntry is a single audit-trail record tagged with tenant and actor.
type AuditEntry struct {
	ID        string                 `json:"id"`
	TenantID  string                 `json:"tenant_id"`
	ActorID   string                 `json:"actor_id,omitempty"`
	EventType string                 `json:"event_type"`
	Details   map[string]interface{} `json:"details,omitempty"`
	Severity  AuditSeverity          `json:"severity"`
	Signature string                 `json:"signature,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}

// NewAuditEntry builds an entry with generated id and timestamp. Details are
// redacted before the entry ever leaves business logic.
func NewAuditEntry(tenantID, actorID, eventType string, details map[string]interface{}, severity AuditSeverity) AuditEntry {
	return AuditEntry{
		ID:        uuid.NewString(),
		TenantID:  tenantID,
		ActorID:   actorID,
		EventType: eventType,
		Details:   RedactDetails(details),
		Severity:  severity,
		CreatedAt: time.Now().UTC(),
	}
}

// sensitiveFields must never reach the audit store in clear text.
var sensitiveFields = map[string]struct{}{
	"password":    {},
	"token":       {},
	"secret":      {},
	"api_key":     {},
	"credit_card": {},
	"iban":        {},
}

// RedactDetails returns a copy of details with sensitive values masked.
func RedactDetails(details map[string]interface{}) map[string]interface{} {
	if details == nil {
		return nil
	}
	redacted := make(map[string]interface{}, len(details))
	for key, value := range details {
		if _, sensitive := sensitiveFields[key]; sensitive {
			redacted[key] = "[REDACTED]"
			continue
		}
		redacted[key] = value
	}
	return redacted
}
