// Package models provides data model definitions for the inspection service tool.
package models

// Attachment is one file embedded in an outbound email. Content is the
// base64-encoded binary blob (typically a generated PDF report); the
// outbox stores it verbatim and never decodes it.
type Attachment struct {
	Filename string `json:"filename"`
	Content  string `json:"content"`
}

// QueueItem represents one pending outbound email job. Items are
// immutable once enqueued: presence in the store means "not yet
// confirmed delivered", absence means "delivered or never existed".
type QueueItem struct {
	ID          int64        `json:"id"`
	Recipient   string       `json:"to"`
	Subject     string       `json:"subject"`
	HTML        string       `json:"html"`
	Attachments []Attachment `json:"attachments,omitempty"`
	CreatedAt   int64        `json:"createdAt"` // milliseconds since epoch
}

// Collection returns the store collection name for QueueItem.
func (QueueItem) Collection() string {
	return "email_queue"
}
