package messaging

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestTransport(t *testing.T) (*StreamsTransport, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cfg := DefaultStreamsConfig()
	cfg.Block = 50 * time.Millisecond
	cfg.MaxDeliveries = 2
	return NewStreamsTransport(client, zap.NewNop(), cfg), mr
}

func TestStreamsPublishAndConsume(t *testing.T) {
	transport, _ := newTestTransport(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan []byte, 1)
	err := transport.Subscribe(ctx, "notify.test", func(ctx context.Context, d Delivery) {
		require.NoError(t, d.Ack(ctx))
		received <- d.Payload()
	})
	require.NoError(t, err)

	require.NoError(t, transport.Publish(ctx, "notify.test", []byte(`{"hello":"world"}`)))

	select {
	case payload := <-received:
		assert.JSONEq(t, `{"hello":"world"}`, string(payload))
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for delivery")
	}

	cancel()
	require.NoError(t, transport.Close())
}

func TestStreamsNackRedelivers(t *testing.T) {
	transport, _ := newTestTransport(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var attempts int
	done := make(chan struct{})

	err := transport.Subscribe(ctx, "notify.retry", func(ctx context.Context, d Delivery) {
		mu.Lock()
		attempts++
		first := attempts == 1
		mu.Unlock()

		if first {
			require.NoError(t, d.Nack(ctx))
			return
		}
		require.NoError(t, d.Ack(ctx))
		close(done)
	})
	require.NoError(t, err)

	require.NoError(t, transport.Publish(ctx, "notify.retry", []byte("occurrence")))

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for redelivery")
	}

	mu.Lock()
	assert.Equal(t, 2, attempts)
	mu.Unlock()

	cancel()
	require.NoError(t, transport.Close())
}

func TestStreamsDeadLettersAfterMaxDeliveries(t *testing.T) {
	transport, mr := newTestTransport(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rejected := make(chan int, 4)
	err := transport.Subscribe(ctx, "notify.dlq", func(ctx context.Context, d Delivery) {
		require.NoError(t, d.Nack(ctx))
		rejected <- 1
	})
	require.NoError(t, err)

	require.NoError(t, transport.Publish(ctx, "notify.dlq", []byte("poison")))

	// MaxDeliveries is 2: two rejections, then the payload lands in the
	// dead-letter stream instead of coming back.
	for i := 0; i < 2; i++ {
		select {
		case <-rejected:
		case <-time.After(3 * time.Second):
			t.Fatal("timed out waiting for rejection")
		}
	}

	require.Eventually(t, func() bool {
		return mr.Exists("notify.dlq.dead")
	}, 3*time.Second, 20*time.Millisecond)

	cancel()
	require.NoError(t, transport.Close())
}
