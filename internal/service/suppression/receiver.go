package suppression

import (
	"context"

	"go.uber.org/zap"

	"github.com/davidleathers/dependable-notify-backend/internal/infrastructure/messaging"
)

// ResultReceiver surfaces engine outcomes to the orchestrator as two
// independent callback streams, one per destination queue. Callbacks are
// handed over at construction so ownership and lifetime are explicit; there
// is no ambient subscribe/unsubscribe.
type ResultReceiver struct {
	transport       messaging.Transport
	forwardQueue    string
	suppressedQueue string
	onAllowed       AllowedFunc
	onSuppressed    SuppressedFunc
	logger          *zap.Logger
}

// NewResultReceiver creates a receiver. onSuppressed may be nil when no
// suppressed destination is consumed.
func NewResultReceiver(transport messaging.Transport, forwardQueue, suppressedQueue string,
	onAllowed AllowedFunc, onSuppressed SuppressedFunc, logger *zap.Logger) *ResultReceiver {
	return &ResultReceiver{
		transport:       transport,
		forwardQueue:    forwardQueue,
		suppressedQueue: suppressedQueue,
		onAllowed:       onAllowed,
		onSuppressed:    onSuppressed,
		logger:          logger,
	}
}

// Start attaches listeners to the forward and (when configured) suppressed
// queues. Listeners stop taking new work once ctx is canceled.
func (r *ResultReceiver) Start(ctx context.Context) error {
	if err := r.transport.Subscribe(ctx, r.forwardQueue, r.handleWith("allowed", r.dispatchAllowed)); err != nil {
		return err
	}
	if r.suppressedQueue != "" && r.onSuppressed != nil {
		if err := r.transport.Subscribe(ctx, r.suppressedQueue, r.handleWith("suppressed", r.dispatchSuppressed)); err != nil {
			return err
		}
	}
	return nil
}

func (r *ResultReceiver) handleWith(stream string, dispatch func(ctx context.Context, payload []byte) error) messaging.Handler {
	return func(ctx context.Context, d messaging.Delivery) {
		if err := dispatch(ctx, d.Payload()); err != nil {
			r.logger.Error("failed to dispatch suppression result",
				zap.String("stream", stream),
				zap.Error(err))
			if err := d.Nack(ctx); err != nil {
				r.logger.Error("failed to nack result delivery", zap.Error(err))
			}
			return
		}
		if err := d.Ack(ctx); err != nil {
			r.logger.Error("failed to ack result delivery", zap.Error(err))
		}
	}
}

func (r *ResultReceiver) dispatchAllowed(ctx context.Context, payload []byte) error {
	req, err := unmarshalRequest(payload)
	if err != nil {
		return err
	}
	r.onAllowed(ctx, req)
	return nil
}

func (r *ResultReceiver) dispatchSuppressed(ctx context.Context, payload []byte) error {
	req, err := unmarshalRequest(payload)
	if err != nil {
		return err
	}
	r.onSuppressed(ctx, req)
	return nil
}
