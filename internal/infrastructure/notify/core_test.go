package notify

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type countingProvider struct {
	mu    sync.Mutex
	calls int
	fail  bool
}

func (p *countingProvider) bump() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return fmt.Errorf("provider down")
	}
	p.calls++
	return nil
}

func (p *countingProvider) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func (p *countingProvider) Call(ctx context.Context, phone, text string) error { return p.bump() }
func (p *countingProvider) Email(ctx context.Context, address, name, subject, plainText, html string) error {
	return p.bump()
}
func (p *countingProvider) Text(ctx context.Context, phone, text string) error { return p.bump() }
func (p *countingProvider) SendToast(ctx context.Context, userID uuid.UUID, subject, details string) error {
	return p.bump()
}

func TestCoreDelegatesToProviders(t *testing.T) {
	p := &countingProvider{}
	core := NewCore(p, p, p, p, Limits{}, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, core.SendCall(ctx, "+15550100", "hi"))
	require.NoError(t, core.SendEmail(ctx, "a@b.c", "A", "s", "body", ""))
	require.NoError(t, core.SendText(ctx, "+15550100", "hi"))
	require.NoError(t, core.SendToast(ctx, uuid.New(), "s", "d"))

	assert.Equal(t, 4, p.count())
}

func TestCoreWrapsProviderFailure(t *testing.T) {
	p := &countingProvider{fail: true}
	core := NewCore(p, p, p, p, Limits{}, zap.NewNop())

	err := core.SendText(context.Background(), "+15550100", "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sms delivery failed")
}

func TestCoreRejectsUnconfiguredChannel(t *testing.T) {
	core := NewCore(nil, nil, nil, nil, Limits{}, zap.NewNop())

	err := core.SendEmail(context.Background(), "a@b.c", "A", "s", "body", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no email provider configured")
}

func TestRateLimitDelaysBurstOverflow(t *testing.T) {
	p := &countingProvider{}
	core := NewCore(p, p, p, p, Limits{SMSPerSecond: 20, SMSBurst: 1}, zap.NewNop())
	ctx := context.Background()

	start := time.Now()
	require.NoError(t, core.SendText(ctx, "+15550100", "one"))
	require.NoError(t, core.SendText(ctx, "+15550100", "two"))
	elapsed := time.Since(start)

	// Second send waits for the next token, about 50ms at 20/s.
	assert.GreaterOrEqual(t, elapsed, 30*time.Millisecond)
	assert.Equal(t, 2, p.count())
}

func TestRateLimitWaitHonorsContext(t *testing.T) {
	p := &countingProvider{}
	core := NewCore(p, p, p, p, Limits{SMSPerSecond: 0.001, SMSBurst: 1}, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, core.SendText(ctx, "+15550100", "one"))

	cancelled, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	err := core.SendText(cancelled, "+15550100", "two")
	require.Error(t, err)
	assert.Equal(t, 1, p.count())
}
