package suppression

import (
	"context"

	"go.uber.org/zap"

	"github.com/davidleathers/dependable-notify-backend/internal/domain/notification"
)

// decisionCore implements the per-key suppression state machine against the
// persistence collaborator:
//
//	No-Record      -> arrival opens a window starting now, item Allowed
//	Active-Window  -> arrival stays inside the window, item Suppressed
//	Expired        -> arrival resets the window to now, item Allowed
//
// Records are filtered by comparison hash and confirmed by the authoritative
// property string, so two keys colliding on the hash never suppress each
// other.
type decisionCore struct {
	persistence Persistence
	pause       *emergencyPause
	clock       Clock
	logger      *zap.Logger
	metrics     *Metrics
}

func newDecisionCore(persistence Persistence, pause *emergencyPause, clock Clock,
	logger *zap.Logger, metrics *Metrics) *decisionCore {
	return &decisionCore{
		persistence: persistence,
		pause:       pause,
		clock:       clock,
		logger:      logger,
		metrics:     metrics,
	}
}

// Evaluate decides one item. A persistence fault trips the emergency pause
// and the item is suppressed; while the pause is active every item is
// suppressed without consulting the store.
func (c *decisionCore) Evaluate(ctx context.Context, req notification.SuppressionRequest) Outcome {
	if c.pause.Active() {
		c.metrics.RecordDecision(OutcomeSuppressed, "pause")
		return OutcomeSuppressed
	}

	record, err := c.persistence.GetSuppressionInfo(ctx, req)
	if err != nil {
		c.tripPause("lookup", req, err)
		return OutcomeSuppressed
	}

	now := c.clock.Now()
	if record != nil && record.Matches(req) && record.ActiveAt(now) {
		c.metrics.RecordDecision(OutcomeSuppressed, "window")
		return OutcomeSuppressed
	}

	// No record, a hash collision with a different key, or an expired
	// window: the item passes and the window (re)starts at its arrival.
	if err := c.persistence.SuppressStartingNow(ctx, req); err != nil {
		c.tripPause("reset", req, err)
		return OutcomeSuppressed
	}

	c.metrics.RecordDecision(OutcomeAllowed, "window")
	return OutcomeAllowed
}

func (c *decisionCore) tripPause(op string, req notification.SuppressionRequest, err error) {
	c.pause.Trip()
	c.metrics.RecordPauseTrip()
	c.metrics.RecordDecision(OutcomeSuppressed, "fault")
	c.logger.Error("suppression persistence fault, entering blanket-suppress pause",
		zap.String("operation", op),
		zap.String("target_id", req.Command.Contact.ID.String()),
		zap.String("comparison_hash", req.Key.Hash()),
		zap.Error(err))
}
