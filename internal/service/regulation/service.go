package regulation

import (
	"context"
	stderrors "errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/davidleathers/dependable-notify-backend/internal/domain/audit"
	"github.com/davidleathers/dependable-notify-backend/internal/domain/errors"
	"github.com/davidleathers/dependable-notify-backend/internal/domain/notification"
	"github.com/davidleathers/dependable-notify-backend/internal/service/digest"
)

// Defaults applied when a message does not spell out its regulation shape.
const (
	// DefaultSuppressionWindow applies when a message requests suppression
	// without a window length.
	DefaultSuppressionWindow = 60 * time.Minute
	// DefaultDigestHead / DefaultDigestTail bound how many occurrences of a
	// long run are rendered verbatim when the message does not say.
	DefaultDigestHead = 3
	DefaultDigestTail = 2
)

// Config tunes the orchestrator.
type Config struct {
	// ForwardQueue / SuppressedQueue are the engine result destinations this
	// orchestrator listens on.
	ForwardQueue    string
	SuppressedQueue string

	// DigestMaxItems caps how many occurrences a rendered digest lists
	// verbatim on any channel.
	DigestMaxItems int

	// DefaultWindow applies when a message requests suppression without a
	// window length. Zero means DefaultSuppressionWindow.
	DefaultWindow time.Duration

	// DigestHead / DigestTail apply when a message requests a digest without
	// head/tail counts. Zero means DefaultDigestHead / DefaultDigestTail.
	DigestHead int
	DigestTail int
}

// service implements the Service interface
type service struct {
	contacts     ContactDirectory
	groups       GroupDirectory
	core         NotificationCore
	auditRepo    audit.Repository
	producer     SuppressionSubmitter
	consolidator digest.Consolidator
	config       Config
	clock        Clock
	logger       *zap.Logger
}

// NewService creates a new regulation orchestrator.
func NewService(
	contacts ContactDirectory,
	groups GroupDirectory,
	core NotificationCore,
	auditRepo audit.Repository,
	producer SuppressionSubmitter,
	consolidator digest.Consolidator,
	config Config,
	clock Clock,
	logger *zap.Logger,
) Service {
	if clock == nil {
		clock = SystemClock{}
	}
	if config.DigestMaxItems <= 0 {
		config.DigestMaxItems = 20
	}
	if config.DefaultWindow <= 0 {
		config.DefaultWindow = DefaultSuppressionWindow
	}
	if config.DigestHead <= 0 {
		config.DigestHead = DefaultDigestHead
	}
	if config.DigestTail <= 0 {
		config.DigestTail = DefaultDigestTail
	}
	return &service{
		contacts:     contacts,
		groups:       groups,
		core:         core,
		auditRepo:    auditRepo,
		producer:     producer,
		consolidator: consolidator,
		config:       config,
		clock:        clock,
		logger:       logger,
	}
}

// Notify regulates one message: validate, resolve targets, then per contact
// and per populated channel run the policy decision and dispatch.
func (s *service) Notify(ctx context.Context, msg *notification.NotificationMessage) error {
	if msg == nil {
		return errors.NewValidationError("INVALID_REQUEST", "message cannot be nil")
	}
	if err := msg.Validate(); err != nil {
		return err
	}

	contacts, err := s.resolveTargets(ctx, msg)
	if err != nil {
		return err
	}

	if len(contacts) == 1 {
		return s.notifyContact(ctx, msg, contacts[0])
	}

	// Group fan-out: all contacts in parallel, join-all wait, errors joined.
	var wg sync.WaitGroup
	errs := make([]error, len(contacts))
	for i, contact := range contacts {
		wg.Add(1)
		go func(i int, contact *notification.NotificationContact) {
			defer wg.Done()
			errs[i] = s.notifyContact(ctx, msg, contact)
		}(i, contact)
	}
	wg.Wait()
	return stderrors.Join(errs...)
}

// resolveTargets expands the message target to the set of active contacts.
func (s *service) resolveTargets(ctx context.Context, msg *notification.NotificationMessage) ([]*notification.NotificationContact, error) {
	switch {
	case msg.ContactID != nil:
		contact, err := s.contacts.GetContact(ctx, *msg.ContactID)
		if err != nil {
			return nil, err
		}
		if !contact.Active {
			return nil, errors.ErrContactInactive
		}
		return []*notification.NotificationContact{contact}, nil

	case msg.GroupID != nil:
		return s.expandGroups(ctx, []uuid.UUID{*msg.GroupID})

	default:
		return s.expandGroups(ctx, msg.GroupIDs)
	}
}

func (s *service) expandGroups(ctx context.Context, groupIDs []uuid.UUID) ([]*notification.NotificationContact, error) {
	seen := make(map[uuid.UUID]bool)
	var contacts []*notification.NotificationContact

	for _, groupID := range groupIDs {
		group, err := s.groups.GetGroup(ctx, groupID)
		if err != nil {
			return nil, err
		}
		if !group.Active {
			continue
		}
		for _, memberID := range group.MemberIDs {
			if seen[memberID] {
				continue
			}
			seen[memberID] = true

			contact, err := s.contacts.GetContact(ctx, memberID)
			if err != nil {
				return nil, err
			}
			if !contact.Active {
				continue
			}
			contacts = append(contacts, contact)
		}
	}
	return contacts, nil
}

// notifyContact runs the per-channel policy decision for one resolved
// contact. A failure on one channel never prevents sibling channels from
// being attempted; channel errors are joined.
func (s *service) notifyContact(ctx context.Context, msg *notification.NotificationMessage, contact *notification.NotificationContact) error {
	shift, localNow, err := contact.Schedule.ByTime(contact.TimezoneID, s.clock.Now())
	if err != nil {
		return err
	}

	requested := msg.RequestedEscalation()
	var channelErrs []error
	for _, ch := range msg.PopulatedChannels() {
		route := notification.Escalate(shift.PolicyFor(msg.Severity, ch), requested)
		if err := s.dispatch(ctx, msg, contact, ch, route, shift, localNow); err != nil {
			s.logger.Error("channel dispatch failed",
				zap.String("channel", ch.String()),
				zap.String("route", route.String()),
				zap.String("contact_id", contact.ID.String()),
				zap.Error(err))
			channelErrs = append(channelErrs, err)
		}
	}
	return stderrors.Join(channelErrs...)
}

func (s *service) dispatch(ctx context.Context, msg *notification.NotificationMessage,
	contact *notification.NotificationContact, ch notification.Channel,
	route notification.RoutePolicy, shift notification.TimeShift, localNow time.Time) error {

	cmd := notification.ExecuteNotifyCommand{
		Message: msg,
		Contact: *contact,
		Channel: ch,
	}

	switch route {
	case notification.RouteAllow:
		return s.sendNow(ctx, cmd)

	case notification.RouteSuppress:
		req := notification.NewSuppressionRequest(cmd, s.suppressionWindow(msg))
		return s.producer.Submit(ctx, req, s.config.ForwardQueue, "")

	case notification.RouteDigest:
		return s.consolidator.Add(ctx, s.digestRequest(cmd, shift, localNow))

	case notification.RouteDigestSuppressed:
		cmd.DigestSuppressed = true
		req := notification.NewSuppressionRequest(cmd, s.suppressionWindow(msg))
		return s.producer.Submit(ctx, req, s.config.ForwardQueue, s.config.SuppressedQueue)

	default:
		return errors.NewInternalError("unknown route policy")
	}
}

func (s *service) suppressionWindow(msg *notification.NotificationMessage) time.Duration {
	if msg.SuppressionMinutes > 0 {
		return msg.SuppressionWindow()
	}
	return s.config.DefaultWindow
}

// digestRequest derives the digest shape for a command. Without an explicit
// duration the batch flushes at the next shift boundary in contact-local
// time.
func (s *service) digestRequest(cmd notification.ExecuteNotifyCommand,
	shift notification.TimeShift, localNow time.Time) notification.DigestRequest {

	duration := cmd.Message.DigestDuration
	if duration <= 0 {
		if remaining, ok := shift.TimeUntilNextShift(localNow); ok {
			duration = remaining
		} else {
			duration = time.Hour
		}
	}

	head, tail := cmd.Message.DigestHead, cmd.Message.DigestTail
	if head <= 0 {
		head = s.config.DigestHead
	}
	if tail <= 0 {
		tail = s.config.DigestTail
	}

	return notification.NewDigestRequest(cmd, s.clock.Now().Add(duration), head, tail)
}

// HandleAllowed delivers an item the engine let through.
func (s *service) HandleAllowed(ctx context.Context, req notification.SuppressionRequest) {
	if err := s.sendNow(ctx, req.Command); err != nil {
		s.logger.Error("failed to deliver allowed item",
			zap.String("channel", req.Command.Channel.String()),
			zap.String("contact_id", req.Command.Contact.ID.String()),
			zap.Error(err))
	}
}

// HandleSuppressed redirects digest-suppressed items into the consolidator.
// A suppressed occurrence of a DigestSuppressed route is never dropped
// silently.
func (s *service) HandleSuppressed(ctx context.Context, req notification.SuppressionRequest) {
	if !req.Command.DigestSuppressed {
		return
	}

	contact := req.Command.Contact
	shift, localNow, err := contact.Schedule.ByTime(contact.TimezoneID, s.clock.Now())
	if err != nil {
		s.logger.Error("failed to derive digest release for suppressed item", zap.Error(err))
		return
	}
	if err := s.consolidator.Add(ctx, s.digestRequest(req.Command, shift, localNow)); err != nil {
		s.logger.Error("failed to redirect suppressed item into digest", zap.Error(err))
	}
}

// sendNow performs one immediate delivery and appends its audit event. The
// audit write is best-effort: a store fault never unwinds a succeeded send.
func (s *service) sendNow(ctx context.Context, cmd notification.ExecuteNotifyCommand) error {
	msg, contact := cmd.Message, cmd.Contact
	text := msg.ChannelText(cmd.Channel)

	var err error
	switch cmd.Channel {
	case notification.ChannelSMS:
		err = s.core.SendText(ctx, contact.Addresses.Phone, text)
	case notification.ChannelEmail:
		// The core takes exactly one body; the plain text wins when the
		// message carries both, same preference as ChannelText.
		plain, html := msg.EmailText, msg.EmailHTML
		if plain != "" {
			html = ""
		}
		err = s.core.SendEmail(ctx, contact.Addresses.Email, contact.Addresses.EmailName,
			msg.Subject, plain, html)
	case notification.ChannelCall:
		err = s.core.SendCall(ctx, contact.Addresses.Phone, text)
	case notification.ChannelToast:
		err = s.core.SendToast(ctx, s.toastUser(contact), msg.Subject, text)
	default:
		err = errors.NewValidationError("INVALID_CHANNEL", "unknown delivery channel")
	}
	if err != nil {
		return errors.NewExternalError("notification core", "channel delivery failed").WithCause(err)
	}

	s.appendAudit(ctx, audit.KindDelivered, contact, cmd.Channel, msg.Subject, text, msg.Severity, 1)
	return nil
}

func (s *service) toastUser(contact notification.NotificationContact) uuid.UUID {
	if contact.Addresses.ToastUserID != uuid.Nil {
		return contact.Addresses.ToastUserID
	}
	return contact.UserID
}

// HandleDigestReady renders a released batch into one message per channel
// present in it, delivers them, and writes one audit record summarizing the
// whole batch.
func (s *service) HandleDigestReady(ctx context.Context, batch digest.Batch) {
	if len(batch.Items) == 0 {
		return
	}

	contact := batch.Items[0].Contact
	severity := batch.Items[0].Message.Severity
	subject := digestSubject(batch)

	perChannel := make(map[notification.Channel][]notification.ExecuteNotifyCommand)
	for _, item := range batch.Items {
		perChannel[item.Channel] = append(perChannel[item.Channel], item)
	}

	// The audit record names the first channel whose delivery succeeded, with
	// the body that went out on it.
	var delivered bool
	var deliveredChannel notification.Channel
	var deliveredBody string
	for _, ch := range notification.AllChannels() {
		items, ok := perChannel[ch]
		if !ok {
			continue
		}
		body := renderDigestBody(items, ch, batch.Head, batch.Tail, s.config.DigestMaxItems)
		if err := s.deliverDigest(ctx, contact, ch, subject, body); err != nil {
			s.logger.Error("digest delivery failed",
				zap.String("channel", ch.String()),
				zap.String("contact_id", contact.ID.String()),
				zap.Error(err))
			continue
		}
		if !delivered {
			delivered = true
			deliveredChannel = ch
			deliveredBody = body
		}
	}

	if delivered {
		s.appendAudit(ctx, audit.KindDigest, contact, deliveredChannel,
			subject, deliveredBody, severity, len(batch.Items))
	}
}

func (s *service) deliverDigest(ctx context.Context, contact notification.NotificationContact,
	ch notification.Channel, subject, body string) error {
	switch ch {
	case notification.ChannelSMS:
		return s.core.SendText(ctx, contact.Addresses.Phone, body)
	case notification.ChannelEmail:
		return s.core.SendEmail(ctx, contact.Addresses.Email, contact.Addresses.EmailName,
			subject, body, "")
	case notification.ChannelCall:
		return s.core.SendCall(ctx, contact.Addresses.Phone, body)
	case notification.ChannelToast:
		return s.core.SendToast(ctx, s.toastUser(contact), subject, body)
	default:
		return errors.NewValidationError("INVALID_CHANNEL", "unknown delivery channel")
	}
}

func (s *service) appendAudit(ctx context.Context, kind audit.Kind,
	contact notification.NotificationContact, ch notification.Channel,
	subject, body string, severity notification.Severity, itemCount int) {

	event, err := audit.NewEvent(kind, contact.UserID, contact.ID, ch, subject, body, severity, itemCount)
	if err != nil {
		s.logger.Error("failed to build audit event", zap.Error(err))
		return
	}
	if err := s.auditRepo.Append(ctx, event); err != nil {
		s.logger.Error("audit append failed",
			zap.String("kind", string(kind)),
			zap.String("target_id", contact.ID.String()),
			zap.Error(err))
	}
}
