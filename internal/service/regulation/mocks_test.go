package regulation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/davidleathers/dependable-notify-backend/internal/domain/audit"
	"github.com/davidleathers/dependable-notify-backend/internal/domain/errors"
	"github.com/davidleathers/dependable-notify-backend/internal/domain/notification"
)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

// sentCall records one provider invocation on the fake core.
type sentCall struct {
	channel notification.Channel
	address string
	subject string
	body    string
	userID  uuid.UUID
	html    string
}

// fakeCore records sends and can fail selected channels.
type fakeCore struct {
	mu    sync.Mutex
	sent  []sentCall
	fails map[notification.Channel]error
}

func newFakeCore() *fakeCore {
	return &fakeCore{fails: make(map[notification.Channel]error)}
}

func (c *fakeCore) failChannel(ch notification.Channel) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fails[ch] = fmt.Errorf("provider rejected %s", ch)
}

func (c *fakeCore) record(call sentCall) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.fails[call.channel]; err != nil {
		return err
	}
	c.sent = append(c.sent, call)
	return nil
}

func (c *fakeCore) calls(ch notification.Channel) []sentCall {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []sentCall
	for _, call := range c.sent {
		if call.channel == ch {
			out = append(out, call)
		}
	}
	return out
}

func (c *fakeCore) SendCall(ctx context.Context, phone, text string) error {
	return c.record(sentCall{channel: notification.ChannelCall, address: phone, body: text})
}

func (c *fakeCore) SendEmail(ctx context.Context, address, name, subject, plainText, html string) error {
	return c.record(sentCall{channel: notification.ChannelEmail, address: address, subject: subject, body: plainText, html: html})
}

func (c *fakeCore) SendText(ctx context.Context, phone, text string) error {
	return c.record(sentCall{channel: notification.ChannelSMS, address: phone, body: text})
}

func (c *fakeCore) SendToast(ctx context.Context, userID uuid.UUID, subject, details string) error {
	return c.record(sentCall{channel: notification.ChannelToast, userID: userID, subject: subject, body: details})
}

// fakeDirectory serves contacts and groups from maps.
type fakeDirectory struct {
	mu       sync.Mutex
	contacts map[uuid.UUID]*notification.NotificationContact
	groups   map[uuid.UUID]*notification.NotificationGroup
	lookups  int
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{
		contacts: make(map[uuid.UUID]*notification.NotificationContact),
		groups:   make(map[uuid.UUID]*notification.NotificationGroup),
	}
}

func (d *fakeDirectory) GetContact(ctx context.Context, id uuid.UUID) (*notification.NotificationContact, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.lookups++
	if contact, ok := d.contacts[id]; ok {
		return contact, nil
	}
	return nil, errors.ErrContactNotFound
}

func (d *fakeDirectory) GetGroup(ctx context.Context, id uuid.UUID) (*notification.NotificationGroup, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if group, ok := d.groups[id]; ok {
		return group, nil
	}
	return nil, errors.ErrGroupNotFound
}

// fakeAuditRepo records appended events.
type fakeAuditRepo struct {
	mu     sync.Mutex
	events []*audit.Event
	fail   bool
}

func (r *fakeAuditRepo) Append(ctx context.Context, event *audit.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return fmt.Errorf("audit store unavailable")
	}
	r.events = append(r.events, event)
	return nil
}

func (r *fakeAuditRepo) ListByTarget(ctx context.Context, targetID uuid.UUID, page audit.Page) ([]*audit.Event, int, error) {
	return nil, 0, nil
}

func (r *fakeAuditRepo) ListByUser(ctx context.Context, userID uuid.UUID, page audit.Page) ([]*audit.Event, int, error) {
	return nil, 0, nil
}

func (r *fakeAuditRepo) ListByTimeRange(ctx context.Context, from, to time.Time, page audit.Page) ([]*audit.Event, int, error) {
	return nil, 0, nil
}

func (r *fakeAuditRepo) ListByKind(ctx context.Context, kind audit.Kind, page audit.Page) ([]*audit.Event, int, error) {
	return nil, 0, nil
}

// submission records one producer hand-off.
type submission struct {
	req             notification.SuppressionRequest
	forwardQueue    string
	suppressedQueue string
}

type fakeProducer struct {
	mu          sync.Mutex
	submissions []submission
}

func (p *fakeProducer) Submit(ctx context.Context, req notification.SuppressionRequest, forwardQueue, suppressedQueue string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.submissions = append(p.submissions, submission{req: req, forwardQueue: forwardQueue, suppressedQueue: suppressedQueue})
	return nil
}

type fakeConsolidator struct {
	mu       sync.Mutex
	requests []notification.DigestRequest
}

func (c *fakeConsolidator) Add(ctx context.Context, req notification.DigestRequest) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requests = append(c.requests, req)
	return nil
}
