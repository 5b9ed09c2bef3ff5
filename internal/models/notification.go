package models

// Notification is a milestone message delivered outside the chat.
type Notification struct {
	ID          string          `json:"id"`
	RecipientID string          `json:"recipientId"`
	Email       string          `json:"email,omitempty"`
	Status      ApplicantStatus `json:"status"`
	JobTitle    string          `json:"jobTitle,omitempty"`
	Subject     string          `json:"subject"`
	Body        string          `json:"body"`
	Channel     string          `json:"channel"` // "email"
	SentAt      string          `json:"sentAt,omitempty"`
}

// StatusEvent is published whenever an applicant status changes.
type StatusEvent struct {
	UserID     string          `json:"userId"`
	JobID      string          `json:"jobId,omitempty"`
	OldStatus  ApplicantStatus `json:"oldStatus,omitempty"`
	NewStatus  ApplicantStatus `json:"newStatus"`
	Source     string          `json:"source"` // "screening" or "reviewer"
	OccurredAt string          `json:"occurredAt"`
}
