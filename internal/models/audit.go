package models

import "time"

// AuditAction classifies an audit log entry
type AuditAction string

const (
	AuditActionApprove AuditAction = "APPROVE"
	AuditActionReject  AuditAction = "REJECT"
)

// AuditEntry is one append-only row recording an effected action. One entry
// is written per successfully applied contribution; entries are never
// updated or deleted.
type AuditEntry struct {
	ID         string            `json:"id" db:"id"`
	ActorID    string            `json:"actor_id" db:"actor_id"`
	Action     AuditAction       `json:"action" db:"action"`
	EntityType string            `json:"entity_type" db:"entity_type"`
	EntityID   string            `json:"entity_id" db:"entity_id"`
	EntityName string            `json:"entity_name" db:"entity_name"`
	Metadata   map[string]string `json:"metadata" db:"metadata"`
	CreatedAt  time.Time         `json:"created_at" db:"created_at"`
}
