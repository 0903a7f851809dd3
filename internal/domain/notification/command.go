package notification

// ExecuteNotifyCommand is the unit flowing through the suppression and digest
// stages: one message, resolved to one contact, narrowed to one channel. It is
// JSON-serialized onto the transport between the producer and consumer sides
// of the suppression engine.
type ExecuteNotifyCommand struct {
	Message *NotificationMessage `json:"message"`
	Contact NotificationContact  `json:"contact"`
	Channel Channel              `json:"channel"`

	// DigestSuppressed marks a command routed RouteDigestSuppressed: if the
	// suppression engine suppresses it, the orchestrator re-submits it to the
	// digest consolidator instead of dropping it.
	DigestSuppressed bool `json:"digest_suppressed"`
}
