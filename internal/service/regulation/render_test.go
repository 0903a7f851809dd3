package regulation

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/davidleathers/dependable-notify-backend/internal/domain/notification"
)

func renderItems(bodies ...string) []notification.ExecuteNotifyCommand {
	items := make([]notification.ExecuteNotifyCommand, 0, len(bodies))
	for _, body := range bodies {
		items = append(items, notification.ExecuteNotifyCommand{
			Message: &notification.NotificationMessage{
				Subject:   "s",
				CreatorID: uuid.Nil,
				SMSText:   body,
				Severity:  notification.SeverityInfo,
			},
			Channel: notification.ChannelSMS,
		})
	}
	return items
}

func TestRenderDigestBodyShortRunListsEverything(t *testing.T) {
	body := renderDigestBody(renderItems("a", "b", "c"), notification.ChannelSMS, 2, 1, 10)
	assert.Equal(t, "- a\n- b\n- c", body)
}

func TestRenderDigestBodyTruncatesLongRun(t *testing.T) {
	body := renderDigestBody(renderItems("a", "b", "c", "d", "e", "f"), notification.ChannelSMS, 2, 1, 10)
	lines := strings.Split(body, "\n")
	assert.Len(t, lines, 4)
	assert.Equal(t, "- a", lines[0])
	assert.Equal(t, "- b", lines[1])
	assert.Contains(t, lines[2], "3 similar occurrences omitted")
	assert.Equal(t, "- f", lines[3])
}

func TestRenderDigestBodyHonorsMaxItems(t *testing.T) {
	items := renderItems("a", "b", "c", "d", "e", "f", "g", "h")
	body := renderDigestBody(items, notification.ChannelSMS, 5, 4, 4)
	lines := strings.Split(body, "\n")
	// head+tail shrink to fit under the cap.
	assert.LessOrEqual(t, len(lines), 5)
	assert.Contains(t, body, "omitted")
}
