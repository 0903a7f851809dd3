package regulation

import (
	"fmt"
	"strings"

	"github.com/davidleathers/dependable-notify-backend/internal/domain/notification"
	"github.com/davidleathers/dependable-notify-backend/internal/service/digest"
)

func digestSubject(batch digest.Batch) string {
	return fmt.Sprintf("Digest: %s (%d occurrences)", batch.Key.Subject, len(batch.Items))
}

// renderDigestBody flattens a channel's occurrences into one body. Long runs
// are truncated to head verbatim lines, an elision marker, and tail verbatim
// lines; maxItems bounds the total regardless of head/tail.
func renderDigestBody(items []notification.ExecuteNotifyCommand, ch notification.Channel,
	head, tail, maxItems int) string {

	lines := make([]string, 0, len(items))
	for _, item := range items {
		lines = append(lines, item.Message.ChannelText(ch))
	}

	if head+tail > maxItems {
		head = maxItems - tail
		if head < 1 {
			head = 1
			tail = maxItems - 1
		}
	}

	if len(lines) <= head+tail {
		return bulleted(lines)
	}

	elided := len(lines) - head - tail
	out := make([]string, 0, head+tail+1)
	out = append(out, lines[:head]...)
	out = append(out, fmt.Sprintf("(%d similar occurrences omitted)", elided))
	out = append(out, lines[len(lines)-tail:]...)
	return bulleted(out)
}

func bulleted(lines []string) string {
	var b strings.Builder
	for i, line := range lines {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString("- ")
		b.WriteString(line)
	}
	return b.String()
}
