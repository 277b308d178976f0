package domain

import "time"

// Event types published to the message bus.
const (
	EventCodeIssued      = "resetd.code.issued"
	EventPasswordChanged = "resetd.password.changed"
	EventUserCreated     = "resetd.user.created"
	EventUserDeleted     = "resetd.user.deleted"
)

// CodeIssuedEvent represents the payload for resetd.code.issued messages.
type CodeIssuedEvent struct {
	EventID     string
	Username    string
	MaskedEmail string
	IssuedAt    time.Time
	ExpiresAt   time.Time
	Metadata    map[string]any
}

// PasswordChangedEvent represents the payload for resetd.password.changed messages.
type PasswordChangedEvent struct {
	EventID     string
	Username    string
	MaskedEmail string
	ChangedAt   time.Time
	Metadata    map[string]any
}

// UserLifecycleEvent represents the payload for resetd.user.created and resetd.user.deleted messages.
type UserLifecycleEvent struct {
	EventID     string
	Type        string
	Username    string
	MaskedEmail string
	OccurredAt  time.Time
}
