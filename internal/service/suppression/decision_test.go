package suppression

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/davidleathers/dependable-notify-backend/internal/domain/notification"
)

// fakeClock is a settable clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(start time.Time) *fakeClock {
	return &fakeClock{now: start}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// fakePersistence keeps windows in a map keyed by the three-part identity and
// can be forced to fail.
type fakePersistence struct {
	mu        sync.Mutex
	records   map[string]notification.SuppressedItem
	clock     *fakeClock
	fail      bool
	failWrite bool
}

func newFakePersistence(clock *fakeClock) *fakePersistence {
	return &fakePersistence{
		records: make(map[string]notification.SuppressedItem),
		clock:   clock,
	}
}

func (p *fakePersistence) key(req notification.SuppressionRequest) string {
	return req.Command.Contact.ID.String() + "|" + notification.ComparisonTypeNotifyCommand + "|" + req.Key.Hash()
}

func (p *fakePersistence) GetSuppressionInfo(ctx context.Context, req notification.SuppressionRequest) (*notification.SuppressedItem, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return nil, errors.New("store unavailable")
	}
	if rec, ok := p.records[p.key(req)]; ok {
		return &rec, nil
	}
	return nil, nil
}

func (p *fakePersistence) SuppressStartingNow(ctx context.Context, req notification.SuppressionRequest) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail || p.failWrite {
		return errors.New("store unavailable")
	}
	p.records[p.key(req)] = notification.NewSuppressedItem(req, p.clock.Now())
	return nil
}

func (p *fakePersistence) setFail(fail bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fail = fail
}

func requestFor(subject string, window time.Duration) notification.SuppressionRequest {
	cmd := notification.ExecuteNotifyCommand{
		Message: &notification.NotificationMessage{
			Subject:   subject,
			CreatorID: uuid.MustParse("0d9f7c30-0000-4000-8000-00000000000a"),
			SMSText:   "body",
			Severity:  notification.SeverityInfo,
		},
		Contact: notification.NotificationContact{
			ID:     uuid.MustParse("0d9f7c30-0000-4000-8000-00000000000b"),
			UserID: uuid.MustParse("0d9f7c30-0000-4000-8000-00000000000c"),
		},
		Channel: notification.ChannelSMS,
	}
	return notification.NewSuppressionRequest(cmd, window)
}

func newTestCore(t *testing.T) (*decisionCore, *fakePersistence, *fakeClock) {
	t.Helper()
	clock := newFakeClock(time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC))
	persistence := newFakePersistence(clock)
	pause := newEmergencyPause(15*time.Minute, clock)
	core := newDecisionCore(persistence, pause, clock, zap.NewNop(), nil)
	return core, persistence, clock
}

func TestFirstOccurrenceIsAllowedAndOpensWindow(t *testing.T) {
	core, persistence, _ := newTestCore(t)
	ctx := context.Background()

	req := requestFor("cpu pegged", time.Hour)
	assert.Equal(t, OutcomeAllowed, core.Evaluate(ctx, req))

	record, err := persistence.GetSuppressionInfo(ctx, req)
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, 60, record.WindowMinutes)
}

func TestOccurrenceInsideWindowIsSuppressed(t *testing.T) {
	core, _, clock := newTestCore(t)
	ctx := context.Background()

	req := requestFor("cpu pegged", time.Hour)
	require.Equal(t, OutcomeAllowed, core.Evaluate(ctx, req))

	clock.Advance(5 * time.Minute)
	assert.Equal(t, OutcomeSuppressed, core.Evaluate(ctx, req))

	clock.Advance(54 * time.Minute)
	assert.Equal(t, OutcomeSuppressed, core.Evaluate(ctx, req))
}

func TestExpiredWindowAllowsAndResets(t *testing.T) {
	core, _, clock := newTestCore(t)
	ctx := context.Background()

	req := requestFor("cpu pegged", time.Hour)
	require.Equal(t, OutcomeAllowed, core.Evaluate(ctx, req))

	// At exactly start+duration the window has ended.
	clock.Advance(time.Hour)
	assert.Equal(t, OutcomeAllowed, core.Evaluate(ctx, req))

	// The second allow reset the window to its own arrival time.
	clock.Advance(30 * time.Minute)
	assert.Equal(t, OutcomeSuppressed, core.Evaluate(ctx, req))
}

func TestHashCollisionNeverSuppressesDifferentKey(t *testing.T) {
	core, persistence, _ := newTestCore(t)
	ctx := context.Background()

	first := requestFor("alpha", time.Hour)
	require.Equal(t, OutcomeAllowed, core.Evaluate(ctx, first))

	// Forge a collision: a different key whose stored record shares the
	// first key's hash slot but carries another property string.
	second := requestFor("beta", time.Hour)
	persistence.mu.Lock()
	collided := notification.NewSuppressedItem(first, persistence.clock.Now())
	persistence.records[persistence.key(second)] = collided
	persistence.mu.Unlock()

	// The property strings differ, so the record must not suppress.
	assert.Equal(t, OutcomeAllowed, core.Evaluate(ctx, second))
}

func TestPersistenceFaultTripsBlanketSuppress(t *testing.T) {
	core, persistence, clock := newTestCore(t)
	ctx := context.Background()

	persistence.setFail(true)
	req := requestFor("store down", time.Hour)
	assert.Equal(t, OutcomeSuppressed, core.Evaluate(ctx, req))

	// Every item is now suppressed, even unrelated first occurrences, and
	// the store is healthy again.
	persistence.setFail(false)
	other := requestFor("unrelated", time.Hour)
	assert.Equal(t, OutcomeSuppressed, core.Evaluate(ctx, other))

	// Normal operation resumes once the pause expires.
	clock.Advance(15*time.Minute + time.Second)
	assert.Equal(t, OutcomeAllowed, core.Evaluate(ctx, other))
}

func TestResetFaultAlsoTripsPause(t *testing.T) {
	core, persistence, _ := newTestCore(t)
	ctx := context.Background()

	// Lookup succeeds (no record) but the window write fails.
	persistence.mu.Lock()
	persistence.failWrite = true
	persistence.mu.Unlock()

	req := requestFor("flaky write", time.Hour)
	assert.Equal(t, OutcomeSuppressed, core.Evaluate(ctx, req))

	// The pause is now active: a healthy store no longer matters.
	persistence.mu.Lock()
	persistence.failWrite = false
	persistence.mu.Unlock()
	assert.Equal(t, OutcomeSuppressed, core.Evaluate(ctx, requestFor("another", time.Hour)))
}
