package callengine

import (
	"encoding/json"
	"fmt"
)

// Codec encodes/decodes the signaling envelope and holds the call id currently
// in effect, stamping it onto every outbound message (§4.7). Both peers must
// run the same codec version; this one is JSON, matching the wire format the
// rest of the server already speaks (internal/proto).
type Codec struct {
	callID string
}

// NewCodec builds a codec with no call bound yet.
func NewCodec() *Codec {
	return &Codec{}
}

// SetCallID arms the codec with the call id to stamp onto outbound messages.
func (c *Codec) SetCallID(callID string) {
	c.callID = callID
}

// CallID returns the call id currently held by the codec.
func (c *Codec) CallID() string {
	return c.callID
}

// Reset clears the held call id, e.g. on teardown.
func (c *Codec) Reset() {
	c.callID = ""
}

// Encode stamps the codec's call id onto msg when msg carries none (an
// explicit CallID is kept) and serializes it to a transport payload.
func (c *Codec) Encode(msg CallMessage) (string, error) {
	if msg.CallID == "" {
		msg.CallID = c.callID
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return "", fmt.Errorf("encode call message: %w", err)
	}
	return string(data), nil
}

// Decode parses a transport payload back into a CallMessage.
func (c *Codec) Decode(payload string) (CallMessage, error) {
	var msg CallMessage
	if err := json.Unmarshal([]byte(payload), &msg); err != nil {
		return CallMessage{}, fmt.Errorf("decode call message: %w", err)
	}
	return msg, nil
}
