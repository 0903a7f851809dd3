package audit

import (
	"time"

	"github.com/davidleathers/dependable-notify-backend/internal/domain/errors"
	"github.com/davidleathers/dependable-notify-backend/internal/domain/notification"
	"github.com/google/uuid"
)

// Kind classifies what an audit event records.
type Kind string

const (
	// KindDelivered records one immediate send on one channel.
	KindDelivered Kind = "delivered"
	// KindDigest records one flushed digest batch summarized into a single
	// outgoing message.
	KindDigest Kind = "digest"
)

// IsValid reports whether the kind is known.
func (k Kind) IsValid() bool {
	return k == KindDelivered || k == KindDigest
}

// Event is one append-only audit record. Sends and their audit record are not
// transactional: a send can succeed with no audit record if the store is
// unavailable (best-effort by design of the call sites).
type Event struct {
	ID        uuid.UUID             `json:"id"`
	UserID    uuid.UUID             `json:"user_id"`
	TargetID  uuid.UUID             `json:"target_id"`
	Timestamp time.Time             `json:"timestamp"`
	Channel   notification.Channel  `json:"channel"`
	Subject   string                `json:"subject"`
	Body      string                `json:"body"`
	Severity  notification.Severity `json:"severity"`
	Kind      Kind                  `json:"kind"`

	// ItemCount is the number of occurrences a digest event summarizes; 1 for
	// immediate deliveries.
	ItemCount int `json:"item_count"`
}

// NewEvent creates a validated audit event with a fresh id and timestamp.
func NewEvent(kind Kind, userID, targetID uuid.UUID, ch notification.Channel,
	subject, body string, sev notification.Severity, itemCount int) (*Event, error) {
	if !kind.IsValid() {
		return nil, errors.NewValidationError("INVALID_AUDIT_KIND", "audit kind must be delivered or digest")
	}
	if targetID == uuid.Nil {
		return nil, errors.NewValidationError("INVALID_AUDIT_TARGET", "audit target id is required")
	}
	if subject == "" {
		return nil, errors.NewValidationError("INVALID_AUDIT_SUBJECT", "audit subject is required")
	}
	if !ch.IsValid() {
		return nil, errors.NewValidationError("INVALID_AUDIT_CHANNEL", "audit channel is not a known delivery path")
	}
	if itemCount < 1 {
		itemCount = 1
	}
	return &Event{
		ID:        uuid.New(),
		UserID:    userID,
		TargetID:  targetID,
		Timestamp: time.Now().UTC(),
		Channel:   ch,
		Subject:   subject,
		Body:      body,
		Severity:  sev,
		Kind:      kind,
		ItemCount: itemCount,
	}, nil
}
