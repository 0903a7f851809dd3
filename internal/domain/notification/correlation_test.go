package notification

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCommand(subject string) ExecuteNotifyCommand {
	return ExecuteNotifyCommand{
		Message: &NotificationMessage{
			Subject:   subject,
			CreatorID: uuid.MustParse("6b1c2a70-0000-4000-8000-000000000001"),
			SMSText:   "text",
			Severity:  SeverityInfo,
		},
		Contact: NotificationContact{
			ID:     uuid.MustParse("6b1c2a70-0000-4000-8000-000000000002"),
			UserID: uuid.MustParse("6b1c2a70-0000-4000-8000-000000000003"),
		},
		Channel: ChannelSMS,
	}
}

func TestCorrelationIsStableAcrossChannels(t *testing.T) {
	a := testCommand("backup failed")
	b := testCommand("backup failed")
	b.Channel = ChannelEmail

	assert.Equal(t, CorrelationOf(a), CorrelationOf(b))
	assert.Equal(t, CorrelationOf(a).Hash(), CorrelationOf(b).Hash())
}

func TestCorrelationDiffersBySubject(t *testing.T) {
	a := CorrelationOf(testCommand("backup failed"))
	b := CorrelationOf(testCommand("backup succeeded"))

	assert.NotEqual(t, a.PropertyString(), b.PropertyString())
	assert.NotEqual(t, a.Hash(), b.Hash())
}

func TestSuppressedItemWindow(t *testing.T) {
	start := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	req := NewSuppressionRequest(testCommand("backup failed"), 60*time.Minute)
	item := NewSuppressedItem(req, start)

	assert.True(t, item.ActiveAt(start))
	assert.True(t, item.ActiveAt(start.Add(59*time.Minute)))
	assert.False(t, item.ActiveAt(start.Add(60*time.Minute)))
	assert.False(t, item.ActiveAt(start.Add(-time.Second)))
	assert.Equal(t, start.Add(time.Hour), item.ExpiresAt())
}

func TestSuppressedItemMatchesChecksPropertyString(t *testing.T) {
	req := NewSuppressionRequest(testCommand("backup failed"), 30*time.Minute)
	item := NewSuppressedItem(req, time.Now())
	require.True(t, item.Matches(req))

	// Same hash field, different authoritative property: never a match.
	other := NewSuppressionRequest(testCommand("backup failed"), 30*time.Minute)
	item.ComparisonProperty = "subject=something else"
	assert.False(t, item.Matches(other))
}
