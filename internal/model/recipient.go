package model

import (
	"strings"
	"time"
)

// Recipient is a mailing-list member
type Recipient struct {
	ID        string    `json:"id"`
	UUID      string    `json:"uuid"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NormalizeEmail trims and lower-cases an address. Every write and every
// email filter goes through it.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizeName trims a display name
func NormalizeName(name string) string {
	return strings.TrimSpace(name)
}

// AddInput is one item of an add request
type AddInput struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email"`
}

// UpdateInput is one item of an update request. ID may hold a directory id
// or a stable uuid; Email selects the recipient and is never written.
type UpdateInput struct {
	ID     string            `json:"id,omitempty"`
	Email  string            `json:"email,omitempty"`
	Update UpdateFieldsInput `json:"update"`
}

// UpdateFieldsInput holds the new values of an update. Nil fields are left unchanged.
type UpdateFieldsInput struct {
	Name  *string `json:"name,omitempty"`
	Email *string `json:"email,omitempty"`
}

// RecipientPatch carries the fields an update writes
type RecipientPatch struct {
	Name  *string
	Email *string
}

// ListFilter narrows a directory listing
type ListFilter struct {
	// Email matches exactly after normalization
	Email string
	// Name matches case-insensitively as a substring
	Name string
}

// AddOutcome is the per-item result of an add
type AddOutcome struct {
	Success   bool       `json:"success"`
	Created   bool       `json:"created"`
	Recipient *Recipient `json:"data,omitempty"`
	Input     AddInput   `json:"input"`
	Error     string     `json:"error,omitempty"`
	Code      string     `json:"code,omitempty"`
	Err       error      `json:"-"`
}

// UpdateOutcome is the per-item result of an update
type UpdateOutcome struct {
	Success   bool        `json:"success"`
	Recipient *Recipient  `json:"data,omitempty"`
	Input     UpdateInput `json:"input"`
	Error     string      `json:"error,omitempty"`
	Code      string      `json:"code,omitempty"`
	Err       error       `json:"-"`
}

// RemoveOutcome is the per-item result of a removal
type RemoveOutcome struct {
	Success      bool   `json:"success"`
	DeletedCount int64  `json:"deletedCount"`
	Identifier   string `json:"identifier"`
	Error        string `json:"error,omitempty"`
	Code         string `json:"code,omitempty"`
	Err          error  `json:"-"`
}
