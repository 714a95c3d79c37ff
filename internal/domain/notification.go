package domain

import "time"

// NotificationType classifies a user-visible notification.
type NotificationType string

const (
	NoteInfo    NotificationType = "info"
	NoteSuccess NotificationType = "success"
	NoteWarning NotificationType = "warning"
	NoteError   NotificationType = "error"
	NoteSystem  NotificationType = "system"
)

// NotificationPriority orders notifications in the inbox.
type NotificationPriority string

const (
	PriorityLow    NotificationPriority = "low"
	PriorityNormal NotificationPriority = "normal"
	PriorityHigh   NotificationPriority = "high"
)

// Notification is a user-visible record created on a terminal task
// transition, or fetched verbatim from the server inbox. It is created
// once and only its IsRead flag may change afterwards.
type Notification struct {
	ID        string               `json:"id"`
	Type      NotificationType     `json:"type"`
	Title     string               `json:"title"`
	Message   string               `json:"message"`
	CreatedAt time.Time            `json:"created_at"`
	IsRead    bool                 `json:"is_read"`
	Priority  NotificationPriority `json:"priority"`
	// Metadata carries a back-reference to the originating job or task id
	// for "view details" actions.
	Metadata map[string]string `json:"metadata,omitempty"`
}
