package model

import "time"

// AuditLog represents an audit log entry
type AuditLog struct {
	ID           string                 `json:"id"`
	Action       string                 `json:"action"`
	ResourceType string                 `json:"resourceType"`
	ResourceID   string                 `json:"resourceId"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt    time.Time              `json:"createdAt"`
}

// Audit action constants
const (
	AuditActionRecipientRemoved      = "recipient.removed"
	AuditActionRecipientUnsubscribed = "recipient.unsubscribed"
)

// AuditResourceRecipient is the resource type for directory entries
const AuditResourceRecipient = "recipient"
