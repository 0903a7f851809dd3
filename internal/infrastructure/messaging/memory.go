package messaging

import (
	"context"
	"fmt"
	"sync"
)

// MemoryTransport implements Transport on in-process channels. Used by tests
// and by single-process deployments where the producer and consumer sides of
// the suppression engine share one binary.
type MemoryTransport struct {
	mu      sync.Mutex
	queues  map[string]chan memoryMessage
	size    int
	maxTry  int
	closed  bool
	closeCh chan struct{}
	wg      sync.WaitGroup
}

type memoryMessage struct {
	payload []byte
	attempt int
}

// NewMemoryTransport creates an in-memory transport with the given per-queue
// buffer size.
func NewMemoryTransport(bufferSize int) *MemoryTransport {
	if bufferSize <= 0 {
		bufferSize = 64
	}
	return &MemoryTransport{
		queues:  make(map[string]chan memoryMessage),
		size:    bufferSize,
		maxTry:  5,
		closeCh: make(chan struct{}),
	}
}

func (t *MemoryTransport) queue(name string) chan memoryMessage {
	t.mu.Lock()
	defer t.mu.Unlock()
	q, ok := t.queues[name]
	if !ok {
		q = make(chan memoryMessage, t.size)
		t.queues[name] = q
	}
	return q
}

// Publish enqueues a payload.
func (t *MemoryTransport) Publish(ctx context.Context, queue string, payload []byte) error {
	t.mu.Lock()
	closed := t.closed
	t.mu.Unlock()
	if closed {
		return fmt.Errorf("transport is closed")
	}

	select {
	case t.queue(queue) <- memoryMessage{payload: payload, attempt: 1}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Subscribe runs a single sequential consumer loop for the queue.
func (t *MemoryTransport) Subscribe(ctx context.Context, queue string, handler Handler) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return fmt.Errorf("transport is closed")
	}
	t.wg.Add(1)
	t.mu.Unlock()

	q := t.queue(queue)
	go func() {
		defer t.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.closeCh:
				return
			case msg := <-q:
				handler(ctx, &memoryDelivery{transport: t, queue: queue, msg: msg})
			}
		}
	}()
	return nil
}

// Close stops all consumer loops.
func (t *MemoryTransport) Close() error {
	t.mu.Lock()
	if !t.closed {
		t.closed = true
		close(t.closeCh)
	}
	t.mu.Unlock()
	t.wg.Wait()
	return nil
}

type memoryDelivery struct {
	transport *MemoryTransport
	queue     string
	msg       memoryMessage
}

func (d *memoryDelivery) Payload() []byte {
	return d.msg.payload
}

func (d *memoryDelivery) Ack(ctx context.Context) error {
	return nil
}

func (d *memoryDelivery) Nack(ctx context.Context) error {
	next := d.msg.attempt + 1
	if next > d.transport.maxTry {
		// Dropped after the delivery limit; the in-memory transport has no
		// dead-letter stream.
		return nil
	}
	select {
	case d.transport.queue(d.queue) <- memoryMessage{payload: d.msg.payload, attempt: next}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
