package mailer

import "time"

// Recipient is a mailing-list entry.
type Recipient struct {
	ID        string    `json:"id"`
	UUID      string    `json:"uuid"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// AddRequest adds or refreshes a recipient by email.
type AddRequest struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email"`
}

// UpdateRequest changes a recipient. ID may be a directory id or a uuid;
// without one, Email selects the recipient. Email is never written; set
// Update.Email to change the address.
type UpdateRequest struct {
	ID     string       `json:"id,omitempty"`
	Email  string       `json:"email,omitempty"`
	Update UpdateFields `json:"update"`
}

// UpdateFields holds the new values. Nil fields are left unchanged.
type UpdateFields struct {
	Name  *string `json:"name,omitempty"`
	Email *string `json:"email,omitempty"`
}

// ListOptions filters List. Name matches as a case-insensitive substring.
type ListOptions struct {
	Email string
	Name  string
}

// AddResult is the outcome for one AddRequest.
type AddResult struct {
	Success   bool       `json:"success"`
	Created   bool       `json:"created"`
	Recipient *Recipient `json:"data,omitempty"`
	Input     AddRequest `json:"input"`
	Error     string     `json:"error,omitempty"`
	Code      string     `json:"code,omitempty"`
}

// UpdateResult is the outcome for one UpdateRequest.
type UpdateResult struct {
	Success   bool          `json:"success"`
	Recipient *Recipient    `json:"data,omitempty"`
	Input     UpdateRequest `json:"input"`
	Error     string        `json:"error,omitempty"`
	Code      string        `json:"code,omitempty"`
}

// RemoveResult is the outcome for one identifier.
type RemoveResult struct {
	Success      bool   `json:"success"`
	DeletedCount int64  `json:"deletedCount"`
	Identifier   string `json:"identifier"`
	Error        string `json:"error,omitempty"`
	Code         string `json:"code,omitempty"`
}

// SendAllRequest overrides the default subject and body of a bulk send.
type SendAllRequest struct {
	Subject string `json:"subject,omitempty"`
	Text    string `json:"text,omitempty"`
}

// SendAllResponse is returned once a bulk send has been queued.
type SendAllResponse struct {
	Queued  int    `json:"queued"`
	RunID   string `json:"runId"`
	Message string `json:"message"`
}

// Run is the tracked state of a bulk send.
type Run struct {
	RunID      string     `json:"runId"`
	Status     string     `json:"status"`
	Total      int        `json:"total"`
	Sent       int        `json:"sent"`
	Failed     int        `json:"failed"`
	StartedAt  time.Time  `json:"startedAt"`
	FinishedAt *time.Time `json:"finishedAt,omitempty"`
}
