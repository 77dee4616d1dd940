package event

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMalformed marks frames that do not match any recognized event shape.
// The dispatcher logs these and keeps consuming; they are never propagated.
var ErrMalformed = errors.New("malformed event frame")

// Decode parses one raw frame from the event stream into a Message.
// Keepalive frames decode to a Message with KindKeepalive and no payload.
func Decode(frame []byte) (*Message, error) {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	if env.Keepalive {
		return &Message{Kind: KindKeepalive}, nil
	}
	if len(env.Data) == 0 {
		return nil, fmt.Errorf("%w: missing data payload", ErrMalformed)
	}

	var b body
	if err := json.Unmarshal(env.Data, &b); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if b.Type == "" {
		return nil, fmt.Errorf("%w: missing event type", ErrMalformed)
	}
	if !Known(b.Type) {
		return nil, fmt.Errorf("%w: unknown event type %q", ErrMalformed, b.Type)
	}

	return &Message{
		Kind:          b.Type,
		InteractionID: b.InteractionID,
		AgentID:       b.AgentID,
		OrgID:         b.OrgID,
		TrackingID:    b.TrackingID,
		Raw:           env.Data,
	}, nil
}

// Contact unmarshals the message payload as a contact lifecycle event.
func (m *Message) Contact() (*AgentContact, error) {
	var c AgentContact
	if err := json.Unmarshal(m.Raw, &c); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return &c, nil
}
