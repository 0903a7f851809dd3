package notification

import "github.com/google/uuid"

// ChannelAddresses holds where each channel reaches a contact.
type ChannelAddresses struct {
	Phone     string `json:"phone,omitempty"`
	Email     string `json:"email,omitempty"`
	EmailName string `json:"email_name,omitempty"`
	// ToastUserID identifies the in-app session owner toasts are routed to.
	ToastUserID uuid.UUID `json:"toast_user_id,omitempty"`
}

// NotificationContact is a deliverable endpoint: a user's addresses plus the
// severity-by-shift regulation table governing each channel.
type NotificationContact struct {
	ID         uuid.UUID        `json:"id"`
	UserID     uuid.UUID        `json:"user_id"`
	Schedule   TimeShifts       `json:"schedule"`
	Addresses  ChannelAddresses `json:"addresses"`
	TimezoneID string           `json:"timezone_id"`
	Active     bool             `json:"active"`
}

// NotificationGroup is a named set of contacts notified together.
type NotificationGroup struct {
	ID        uuid.UUID   `json:"id"`
	MemberIDs []uuid.UUID `json:"member_ids"`
	Tags      []string    `json:"tags,omitempty"`
	Active    bool        `json:"active"`
}
