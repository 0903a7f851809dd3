package notify

import (
	"context"

	"github.com/google/uuid"
)

// CallProvider places voice calls that read the text aloud.
type CallProvider interface {
	Call(ctx context.Context, phone, text string) error
}

// EmailProvider sends email with plain and optional HTML bodies.
type EmailProvider interface {
	Email(ctx context.Context, address, name, subject, plainText, html string) error
}

// SMSProvider sends text messages.
type SMSProvider interface {
	Text(ctx context.Context, phone, text string) error
}

// ToastProvider pushes in-app notifications to a user's live sessions.
type ToastProvider interface {
	SendToast(ctx context.Context, userID uuid.UUID, subject, details string) error
}
