package messaging

import (
	"context"
)

// Transport is the queue contract the suppression engine rides on: a named
// stream per payload type with a dedicated queue per logical destination.
// Publish accepts an opaque payload; Subscribe delivers each payload with the
// subscription's cancellation signal and an explicit ack-handle. Acknowledge
// removes the message; reject redelivers it (or dead-letters it once the
// transport's delivery limit is hit).
type Transport interface {
	Publisher
	Subscriber

	Close() error
}

// Publisher enqueues payloads onto a named queue.
type Publisher interface {
	Publish(ctx context.Context, queue string, payload []byte) error
}

// Subscriber attaches a single logical consumer to a named queue. The handler
// runs sequentially per queue; no new deliveries are handed out after the
// subscription context is canceled, but an in-flight handler is never
// interrupted mid-item.
type Subscriber interface {
	Subscribe(ctx context.Context, queue string, handler Handler) error
}

// Handler processes one delivery. It must finish with exactly one of
// Delivery.Ack or Delivery.Nack.
type Handler func(ctx context.Context, d Delivery)

// Delivery is one in-flight message with its acknowledge/reject handle.
type Delivery interface {
	Payload() []byte
	// Ack removes the message from the queue.
	Ack(ctx context.Context) error
	// Nack puts the message back for redelivery, or dead-letters it once the
	// transport's delivery limit is exceeded.
	Nack(ctx context.Context) error
}
