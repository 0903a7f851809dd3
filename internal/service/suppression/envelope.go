package suppression

import (
	"encoding/json"
	"fmt"

	"github.com/davidleathers/dependable-notify-backend/internal/domain/notification"
)

// Envelope is the wire unit between the producer and consumer sides of the
// engine: the item plus the destinations the decision routes it to. The
// suppressed destination is optional; without one, suppressed items are
// simply dropped.
type Envelope struct {
	Request         notification.SuppressionRequest `json:"request"`
	ForwardQueue    string                          `json:"forward_queue"`
	SuppressedQueue string                          `json:"suppressed_queue,omitempty"`
}

func (e Envelope) marshal() ([]byte, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshaling suppression envelope: %w", err)
	}
	return payload, nil
}

func unmarshalEnvelope(payload []byte) (Envelope, error) {
	var e Envelope
	if err := json.Unmarshal(payload, &e); err != nil {
		return Envelope{}, fmt.Errorf("unmarshaling suppression envelope: %w", err)
	}
	if e.ForwardQueue == "" {
		return Envelope{}, fmt.Errorf("suppression envelope has no forward queue")
	}
	return e, nil
}

func marshalRequest(req notification.SuppressionRequest) ([]byte, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshaling suppression request: %w", err)
	}
	return payload, nil
}

func unmarshalRequest(payload []byte) (notification.SuppressionRequest, error) {
	var req notification.SuppressionRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return notification.SuppressionRequest{}, fmt.Errorf("unmarshaling suppression request: %w", err)
	}
	return req, nil
}
