package notification

import "fmt"

// Channel identifies one delivery path for a notification.
type Channel string

const (
	ChannelSMS   Channel = "sms"
	ChannelEmail Channel = "email"
	ChannelCall  Channel = "call"
	ChannelToast Channel = "toast"
)

// AllChannels returns every delivery channel in a stable order.
func AllChannels() []Channel {
	return []Channel{ChannelSMS, ChannelEmail, ChannelCall, ChannelToast}
}

func (c Channel) String() string {
	return string(c)
}

// IsValid reports whether the channel is one of the known delivery paths.
func (c Channel) IsValid() bool {
	switch c {
	case ChannelSMS, ChannelEmail, ChannelCall, ChannelToast:
		return true
	default:
		return false
	}
}

// ParseChannel converts a string to a Channel
func ParseChannel(s string) (Channel, error) {
	ch := Channel(s)
	if !ch.IsValid() {
		return "", fmt.Errorf("unknown channel: %s", s)
	}
	return ch, nil
}
