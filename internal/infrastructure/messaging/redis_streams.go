package messaging

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	fieldPayload = "payload"
	fieldAttempt = "attempt"
)

// StreamsConfig configures the Redis Streams transport.
type StreamsConfig struct {
	// Group names the consumer group; every queue gets one group with a
	// single active consumer, which serializes per-queue decisions.
	Group    string
	Consumer string

	// Block bounds each read poll so cancellation is observed promptly.
	Block time.Duration

	// MaxDeliveries is the attempt count after which a rejected message is
	// moved to the queue's dead-letter stream instead of being redelivered.
	MaxDeliveries int

	// DeadLetterSuffix is appended to the queue name for dead-lettered
	// payloads.
	DeadLetterSuffix string
}

// DefaultStreamsConfig returns the default transport configuration.
func DefaultStreamsConfig() StreamsConfig {
	return StreamsConfig{
		Group:            "notify",
		Consumer:         "notify-1",
		Block:            2 * time.Second,
		MaxDeliveries:    5,
		DeadLetterSuffix: ".dead",
	}
}

// StreamsMetrics tracks transport activity.
type StreamsMetrics struct {
	mu          sync.RWMutex
	Published   int64
	Delivered   int64
	Acked       int64
	Nacked      int64
	DeadLetters int64
}

// StreamsTransport implements Transport on Redis Streams: XADD to publish,
// consumer-group XREADGROUP to subscribe, XACK to acknowledge. Rejection
// re-enqueues the payload with an incremented attempt counter and acknowledges
// the original entry, so redelivery survives process restarts without relying
// on pending-entry reclaim.
type StreamsTransport struct {
	client  *redis.Client
	logger  *zap.Logger
	config  StreamsConfig
	metrics *StreamsMetrics

	mu     sync.Mutex
	wg     sync.WaitGroup
	closed bool
}

// NewStreamsTransport creates a Redis Streams transport.
func NewStreamsTransport(client *redis.Client, logger *zap.Logger, config StreamsConfig) *StreamsTransport {
	if config.Block <= 0 {
		config.Block = 2 * time.Second
	}
	if config.MaxDeliveries <= 0 {
		config.MaxDeliveries = 5
	}
	if config.DeadLetterSuffix == "" {
		config.DeadLetterSuffix = ".dead"
	}
	return &StreamsTransport{
		client:  client,
		logger:  logger,
		config:  config,
		metrics: &StreamsMetrics{},
	}
}

// Publish appends a payload to the queue's stream.
func (t *StreamsTransport) Publish(ctx context.Context, queue string, payload []byte) error {
	return t.publish(ctx, queue, payload, 1)
}

func (t *StreamsTransport) publish(ctx context.Context, queue string, payload []byte, attempt int) error {
	err := t.client.XAdd(ctx, &redis.XAddArgs{
		Stream: queue,
		Values: map[string]interface{}{
			fieldPayload: payload,
			fieldAttempt: attempt,
		},
	}).Err()
	if err != nil {
		t.logger.Error("stream publish failed",
			zap.String("queue", queue),
			zap.Error(err))
		return fmt.Errorf("stream publish failed: %w", err)
	}

	t.metrics.mu.Lock()
	t.metrics.Published++
	t.metrics.mu.Unlock()
	return nil
}

// Subscribe attaches the transport's single logical consumer to a queue. The
// read loop runs until the context is canceled; each delivery is handled to
// completion before the next read.
func (t *StreamsTransport) Subscribe(ctx context.Context, queue string, handler Handler) error {
	if err := t.ensureGroup(ctx, queue); err != nil {
		return err
	}

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return fmt.Errorf("transport is closed")
	}
	t.wg.Add(1)
	t.mu.Unlock()

	go func() {
		defer t.wg.Done()
		t.consumeLoop(ctx, queue, handler)
	}()
	return nil
}

func (t *StreamsTransport) ensureGroup(ctx context.Context, queue string) error {
	err := t.client.XGroupCreateMkStream(ctx, queue, t.config.Group, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("creating consumer group for %s: %w", queue, err)
	}
	return nil
}

func (t *StreamsTransport) consumeLoop(ctx context.Context, queue string, handler Handler) {
	logger := t.logger.With(zap.String("queue", queue))
	logger.Info("stream consumer started",
		zap.String("group", t.config.Group),
		zap.String("consumer", t.config.Consumer))

	for {
		select {
		case <-ctx.Done():
			logger.Info("stream consumer stopped")
			return
		default:
		}

		streams, err := t.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    t.config.Group,
			Consumer: t.config.Consumer,
			Streams:  []string{queue, ">"},
			Count:    1,
			Block:    t.config.Block,
		}).Result()
		if err != nil {
			if err == redis.Nil || ctx.Err() != nil {
				continue
			}
			logger.Error("stream read failed", zap.Error(err))
			// Back off briefly so a broken connection does not spin.
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}

		for _, stream := range streams {
			for _, msg := range stream.Messages {
				t.metrics.mu.Lock()
				t.metrics.Delivered++
				t.metrics.mu.Unlock()

				handler(ctx, &streamDelivery{
					transport: t,
					queue:     queue,
					id:        msg.ID,
					payload:   []byte(asString(msg.Values[fieldPayload])),
					attempt:   asInt(msg.Values[fieldAttempt]),
				})
			}
		}
	}
}

// Close waits for all consumer loops to drain. Callers cancel the
// subscription contexts first.
func (t *StreamsTransport) Close() error {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()
	t.wg.Wait()
	return nil
}

// Metrics returns a snapshot of transport counters.
func (t *StreamsTransport) Metrics() map[string]int64 {
	t.metrics.mu.RLock()
	defer t.metrics.mu.RUnlock()
	return map[string]int64{
		"published":    t.metrics.Published,
		"delivered":    t.metrics.Delivered,
		"acked":        t.metrics.Acked,
		"nacked":       t.metrics.Nacked,
		"dead_letters": t.metrics.DeadLetters,
	}
}

// streamDelivery is one in-flight stream entry.
type streamDelivery struct {
	transport *StreamsTransport
	queue     string
	id        string
	payload   []byte
	attempt   int
}

func (d *streamDelivery) Payload() []byte {
	return d.payload
}

func (d *streamDelivery) Ack(ctx context.Context) error {
	err := d.transport.client.XAck(ctx, d.queue, d.transport.config.Group, d.id).Err()
	if err != nil {
		return fmt.Errorf("stream ack failed: %w", err)
	}
	d.transport.metrics.mu.Lock()
	d.transport.metrics.Acked++
	d.transport.metrics.mu.Unlock()
	return nil
}

func (d *streamDelivery) Nack(ctx context.Context) error {
	next := d.attempt + 1
	target := d.queue
	if next > d.transport.config.MaxDeliveries {
		target = d.queue + d.transport.config.DeadLetterSuffix
		d.transport.logger.Warn("dead-lettering message",
			zap.String("queue", d.queue),
			zap.Int("attempt", d.attempt))
		d.transport.metrics.mu.Lock()
		d.transport.metrics.DeadLetters++
		d.transport.metrics.mu.Unlock()
	}

	if err := d.transport.publish(ctx, target, d.payload, next); err != nil {
		return err
	}
	if err := d.transport.client.XAck(ctx, d.queue, d.transport.config.Group, d.id).Err(); err != nil {
		return fmt.Errorf("stream nack ack failed: %w", err)
	}
	d.transport.metrics.mu.Lock()
	d.transport.metrics.Nacked++
	d.transport.metrics.mu.Unlock()
	return nil
}

func asString(v interface{}) string {
	s, _ := v.(string)
	return s
}

func asInt(v interface{}) int {
	switch n := v.(type) {
	case string:
		i, err := strconv.Atoi(n)
		if err != nil {
			return 1
		}
		return i
	case int64:
		return int(n)
	default:
		return 1
	}
}
