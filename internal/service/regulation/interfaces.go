package regulation

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/davidleathers/dependable-notify-backend/internal/domain/notification"
	"github.com/davidleathers/dependable-notify-backend/internal/service/digest"
)

// Service is the notification regulation orchestrator: it resolves targets,
// applies the per-channel policy, and dispatches each channel to immediate
// send, the suppression engine, or the digest consolidator.
type Service interface {
	// Notify regulates and delivers one message. It fails fast on precondition
	// violations before any I/O.
	Notify(ctx context.Context, msg *notification.NotificationMessage) error

	// HandleAllowed receives items the suppression engine let through.
	HandleAllowed(ctx context.Context, req notification.SuppressionRequest)

	// HandleSuppressed receives suppressed items that asked to be observed;
	// digest-suppressed items are re-submitted to the consolidator here.
	HandleSuppressed(ctx context.Context, req notification.SuppressionRequest)

	// HandleDigestReady renders and delivers one released digest batch.
	HandleDigestReady(ctx context.Context, batch digest.Batch)
}

// NotificationCore is the opaque provider collaborator performing the real
// channel deliveries.
type NotificationCore interface {
	SendCall(ctx context.Context, phone, text string) error
	// SendEmail requires exactly one of plainText/html to be non-empty.
	SendEmail(ctx context.Context, address, name, subject, plainText, html string) error
	SendText(ctx context.Context, phone, text string) error
	SendToast(ctx context.Context, userID uuid.UUID, subject, details string) error
}

// ContactDirectory resolves notification contacts.
type ContactDirectory interface {
	GetContact(ctx context.Context, id uuid.UUID) (*notification.NotificationContact, error)
}

// GroupDirectory resolves notification groups.
type GroupDirectory interface {
	GetGroup(ctx context.Context, id uuid.UUID) (*notification.NotificationGroup, error)
}

// SuppressionSubmitter is the enqueue side of the suppression engine.
type SuppressionSubmitter interface {
	Submit(ctx context.Context, req notification.SuppressionRequest, forwardQueue, suppressedQueue string) error
}

// Clock abstracts time for shift selection and digest release computation.
type Clock interface {
	Now() time.Time
}

// SystemClock is the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }
