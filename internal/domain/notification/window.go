package notification

import (
	"time"

	"github.com/google/uuid"
)

// SuppressionRequest wraps a command with its correlation key and the length
// of the suppression window it asks for.
type SuppressionRequest struct {
	Command ExecuteNotifyCommand `json:"command"`
	Key     Correlation          `json:"key"`
	Window  time.Duration        `json:"window"`
}

// NewSuppressionRequest builds a suppression request for a command.
func NewSuppressionRequest(cmd ExecuteNotifyCommand, window time.Duration) SuppressionRequest {
	return SuppressionRequest{Command: cmd, Key: CorrelationOf(cmd), Window: window}
}

// DigestRequest wraps a command with its correlation key, the instant the
// accumulated batch is released, and the head/tail counts bounding how many
// items of a long run are rendered verbatim.
type DigestRequest struct {
	Command   ExecuteNotifyCommand `json:"command"`
	Key       Correlation          `json:"key"`
	ReleaseAt time.Time            `json:"release_at"`
	Head      int                  `json:"head"`
	Tail      int                  `json:"tail"`
}

// NewDigestRequest builds a digest request for a command.
func NewDigestRequest(cmd ExecuteNotifyCommand, releaseAt time.Time, head, tail int) DigestRequest {
	return DigestRequest{Command: cmd, Key: CorrelationOf(cmd), ReleaseAt: releaseAt, Head: head, Tail: tail}
}

// SuppressedItem is the persisted suppression window record. It is uniquely
// identified by (TargetID, ComparisonType, ComparisonHash); ComparisonProperty
// resolves hash collisions authoritatively.
type SuppressedItem struct {
	TargetID           uuid.UUID `json:"target_id"`
	ComparisonType     string    `json:"comparison_type"`
	ComparisonHash     string    `json:"comparison_hash"`
	ComparisonProperty string    `json:"comparison_property"`
	StartTime          time.Time `json:"start_time"`
	WindowMinutes      int       `json:"window_minutes"`
}

// NewSuppressedItem opens a window for a request starting at the given time.
func NewSuppressedItem(req SuppressionRequest, start time.Time) SuppressedItem {
	return SuppressedItem{
		TargetID:           req.Command.Contact.ID,
		ComparisonType:     ComparisonTypeNotifyCommand,
		ComparisonHash:     req.Key.Hash(),
		ComparisonProperty: req.Key.PropertyString(),
		StartTime:          start,
		WindowMinutes:      int(req.Window.Minutes()),
	}
}

// ExpiresAt returns the end of the window.
func (s SuppressedItem) ExpiresAt() time.Time {
	return s.StartTime.Add(time.Duration(s.WindowMinutes) * time.Minute)
}

// ActiveAt reports whether now falls inside [start, start+window). An
// occurrence inside the window is suppressed; one at or past the end is
// allowed and resets the window.
func (s SuppressedItem) ActiveAt(now time.Time) bool {
	return !now.Before(s.StartTime) && now.Before(s.ExpiresAt())
}

// Matches reports whether the record belongs to the given request: same
// three-part identity confirmed by the authoritative property string.
func (s SuppressedItem) Matches(req SuppressionRequest) bool {
	return s.TargetID == req.Command.Contact.ID &&
		s.ComparisonType == ComparisonTypeNotifyCommand &&
		s.ComparisonHash == req.Key.Hash() &&
		s.ComparisonProperty == req.Key.PropertyString()
}
