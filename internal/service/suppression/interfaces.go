package suppression

import (
	"context"
	"time"

	"github.com/davidleathers/dependable-notify-backend/internal/domain/notification"
)

// Persistence is the suppression window store. All window state lives here,
// never in process memory, so multiple engine instances share one logical
// dedup domain. Any store offering exact lookup on the three-part key
// (target id, comparison type, comparison hash) suffices.
type Persistence interface {
	// GetSuppressionInfo returns the window record for the request's key, or
	// nil when no record exists.
	GetSuppressionInfo(ctx context.Context, req notification.SuppressionRequest) (*notification.SuppressedItem, error)

	// SuppressStartingNow creates the window record for the request's key, or
	// resets an existing one so its window starts now.
	SuppressStartingNow(ctx context.Context, req notification.SuppressionRequest) error
}

// Clock abstracts time for the decision core and the emergency pause.
type Clock interface {
	Now() time.Time
}

// SystemClock is the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// Outcome is a suppression decision for one item.
type Outcome string

const (
	OutcomeAllowed    Outcome = "allowed"
	OutcomeSuppressed Outcome = "suppressed"
)

// AllowedFunc receives every item the engine let through, in arrival order on
// the forward destination.
type AllowedFunc func(ctx context.Context, req notification.SuppressionRequest)

// SuppressedFunc receives every item the engine suppressed, when the producer
// asked for a suppressed destination.
type SuppressedFunc func(ctx context.Context, req notification.SuppressionRequest)
