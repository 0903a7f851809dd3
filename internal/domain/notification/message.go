package notification

import (
	"time"

	"github.com/davidleathers/dependable-notify-backend/internal/domain/errors"
	"github.com/google/uuid"
)

// NotificationMessage is the transient request flowing into the regulation
// pipeline. It is never persisted; only audit events survive a Notify call.
type NotificationMessage struct {
	Subject   string    `json:"subject"`
	CreatorID uuid.UUID `json:"creator_id"`

	// Per-channel content. A channel is attempted iff its text is populated.
	// EmailText and EmailHTML are alternatives for the email body.
	SMSText   string `json:"sms_text,omitempty"`
	EmailText string `json:"email_text,omitempty"`
	EmailHTML string `json:"email_html,omitempty"`
	CallText  string `json:"call_text,omitempty"`
	ToastText string `json:"toast_text,omitempty"`

	// Target: exactly one of ContactID, GroupID, GroupIDs must be populated.
	ContactID *uuid.UUID  `json:"contact_id,omitempty"`
	GroupID   *uuid.UUID  `json:"group_id,omitempty"`
	GroupIDs  []uuid.UUID `json:"group_ids,omitempty"`

	Severity Severity `json:"severity"`

	// Requested regulation escalation.
	WantSuppression    bool          `json:"want_suppression"`
	SuppressionMinutes int           `json:"suppression_minutes"`
	WantDigest         bool          `json:"want_digest"`
	DigestDuration     time.Duration `json:"digest_duration"`
	DigestHead         int           `json:"digest_head"`
	DigestTail         int           `json:"digest_tail"`
}

// Validate fails fast on the preconditions the orchestrator requires before
// any I/O: exactly one target and at least one populated channel text.
func (m *NotificationMessage) Validate() error {
	targets := 0
	if m.ContactID != nil {
		targets++
	}
	if m.GroupID != nil {
		targets++
	}
	if len(m.GroupIDs) > 0 {
		targets++
	}
	if targets != 1 {
		return errors.ErrNoTarget
	}
	if len(m.PopulatedChannels()) == 0 {
		return errors.ErrNoChannelText
	}
	if m.Subject == "" {
		return errors.NewValidationError("NO_SUBJECT", "Message subject is required")
	}
	if !m.Severity.IsValid() {
		return errors.NewValidationError("INVALID_SEVERITY", "Message severity is not a known level")
	}
	return nil
}

// PopulatedChannels returns the channels this message carries content for.
func (m *NotificationMessage) PopulatedChannels() []Channel {
	var channels []Channel
	if m.SMSText != "" {
		channels = append(channels, ChannelSMS)
	}
	if m.EmailText != "" || m.EmailHTML != "" {
		channels = append(channels, ChannelEmail)
	}
	if m.CallText != "" {
		channels = append(channels, ChannelCall)
	}
	if m.ToastText != "" {
		channels = append(channels, ChannelToast)
	}
	return channels
}

// ChannelText returns the plain-text content for a channel. Email prefers the
// plain-text body and falls back to the HTML one.
func (m *NotificationMessage) ChannelText(ch Channel) string {
	switch ch {
	case ChannelSMS:
		return m.SMSText
	case ChannelEmail:
		if m.EmailText != "" {
			return m.EmailText
		}
		return m.EmailHTML
	case ChannelCall:
		return m.CallText
	case ChannelToast:
		return m.ToastText
	default:
		return ""
	}
}

// RequestedEscalation derives the route escalation the message itself asks
// for: Suppress if it wants suppression, Digest if it wants digesting,
// DigestSuppressed if both, Allow otherwise.
func (m *NotificationMessage) RequestedEscalation() RoutePolicy {
	switch {
	case m.WantSuppression && m.WantDigest:
		return RouteDigestSuppressed
	case m.WantDigest:
		return RouteDigest
	case m.WantSuppression:
		return RouteSuppress
	default:
		return RouteAllow
	}
}

// SuppressionWindow returns the requested suppression window duration.
func (m *NotificationMessage) SuppressionWindow() time.Duration {
	return time.Duration(m.SuppressionMinutes) * time.Minute
}
