package suppression

import (
	"context"

	"go.uber.org/zap"

	"github.com/davidleathers/dependable-notify-backend/internal/infrastructure/messaging"
)

// Worker is the decide-and-forward side of the engine: the single logical
// consumer of the decision queue. Deliveries are handled sequentially, which
// serializes per-key decisions; cross-key ordering is not guaranteed.
type Worker struct {
	transport     messaging.Transport
	decisionQueue string
	core          *decisionCore
	logger        *zap.Logger
	metrics       *Metrics
}

func newWorker(transport messaging.Transport, decisionQueue string, core *decisionCore,
	logger *zap.Logger, metrics *Metrics) *Worker {
	return &Worker{
		transport:     transport,
		decisionQueue: decisionQueue,
		core:          core,
		logger:        logger,
		metrics:       metrics,
	}
}

// Start attaches the worker to the decision queue. It stops accepting work
// when ctx is canceled; an in-flight item is never interrupted.
func (w *Worker) Start(ctx context.Context) error {
	return w.transport.Subscribe(ctx, w.decisionQueue, w.handle)
}

func (w *Worker) handle(ctx context.Context, d messaging.Delivery) {
	w.metrics.trackInFlight(1)
	defer w.metrics.trackInFlight(-1)

	envelope, err := unmarshalEnvelope(d.Payload())
	if err != nil {
		// Malformed payloads can never succeed; reject toward dead-letter.
		w.logger.Error("rejecting malformed suppression envelope", zap.Error(err))
		w.nack(ctx, d)
		return
	}

	outcome := w.core.Evaluate(ctx, envelope.Request)

	destination := envelope.ForwardQueue
	if outcome == OutcomeSuppressed {
		destination = envelope.SuppressedQueue
	}

	if destination != "" {
		payload, err := marshalRequest(envelope.Request)
		if err != nil {
			w.logger.Error("failed to marshal suppression result", zap.Error(err))
			w.nack(ctx, d)
			return
		}
		if err := w.transport.Publish(ctx, destination, payload); err != nil {
			// Republish failed: reject so the broker redelivers and the
			// decision is retried.
			w.logger.Error("failed to forward suppression result",
				zap.String("destination", destination),
				zap.Error(err))
			w.nack(ctx, d)
			return
		}
	}

	if err := d.Ack(ctx); err != nil {
		w.logger.Error("failed to ack suppression delivery", zap.Error(err))
	}

	w.logger.Debug("suppression decision",
		zap.String("outcome", string(outcome)),
		zap.String("subject", envelope.Request.Command.Message.Subject),
		zap.String("target_id", envelope.Request.Command.Contact.ID.String()))
}

func (w *Worker) nack(ctx context.Context, d messaging.Delivery) {
	if err := d.Nack(ctx); err != nil {
		w.logger.Error("failed to nack suppression delivery", zap.Error(err))
	}
}
