package suppression

import (
	"context"

	"go.uber.org/zap"

	"github.com/davidleathers/dependable-notify-backend/internal/domain/errors"
	"github.com/davidleathers/dependable-notify-backend/internal/domain/notification"
	"github.com/davidleathers/dependable-notify-backend/internal/infrastructure/messaging"
)

// Producer is the enqueue side of the engine. It only talks to the transport;
// persistence I/O happens on the consumer side, so submitting never blocks on
// the store.
type Producer struct {
	publisher     messaging.Publisher
	decisionQueue string
	logger        *zap.Logger
}

// NewProducer creates a producer publishing onto the engine's decision queue.
func NewProducer(publisher messaging.Publisher, decisionQueue string, logger *zap.Logger) *Producer {
	return &Producer{
		publisher:     publisher,
		decisionQueue: decisionQueue,
		logger:        logger,
	}
}

// Submit enqueues an item for a suppression decision. Allowed items are
// republished to forwardQueue; suppressed items go to suppressedQueue when it
// is non-empty and are dropped otherwise.
func (p *Producer) Submit(ctx context.Context, req notification.SuppressionRequest,
	forwardQueue, suppressedQueue string) error {
	if forwardQueue == "" {
		return errors.NewValidationError("NO_FORWARD_QUEUE", "suppression submission requires a forward queue")
	}

	payload, err := Envelope{
		Request:         req,
		ForwardQueue:    forwardQueue,
		SuppressedQueue: suppressedQueue,
	}.marshal()
	if err != nil {
		return err
	}

	if err := p.publisher.Publish(ctx, p.decisionQueue, payload); err != nil {
		return errors.NewExternalError("transport", "failed to submit item for suppression").WithCause(err)
	}

	p.logger.Debug("submitted item for suppression decision",
		zap.String("subject", req.Command.Message.Subject),
		zap.String("channel", req.Command.Channel.String()),
		zap.String("target_id", req.Command.Contact.ID.String()))
	return nil
}
