package relay

import "encoding/json"

// AllChannels is the reserved wildcard channel. Envelopes published there are
// delivered to every connection regardless of the channel it joined.
const AllChannels = "*"

// Envelope is the unit moved through the bus: an optional sender identity
// used to suppress echo, and an opaque payload.
type Envelope struct {
	Sender  string `json:"sender,omitempty"`
	Message string `json:"message"`
}

// DecodeEnvelope parses a bus payload. A payload that does not parse as an
// envelope degrades to a sender-less envelope carrying the raw bytes, so a
// misbehaving producer shows up at clients instead of vanishing. The message
// field is decoded through a pointer so an empty message stays a real
// envelope; only an absent field means the payload is foreign.
func DecodeEnvelope(data []byte) Envelope {
	var wire struct {
		Sender  string  `json:"sender"`
		Message *string `json:"message"`
	}
	if err := json.Unmarshal(data, &wire); err != nil || wire.Message == nil {
		return Envelope{Message: string(data)}
	}
	return Envelope{Sender: wire.Sender, Message: *wire.Message}
}

// Action is the kind of change a webhook notification announces, derived
// from the HTTP verb of the call.
type Action string

const (
	ActionAdd    Action = "add"
	ActionUpdate Action = "update"
	ActionRemove Action = "remove"
)

// Event is the change notification fanned out to every client when the
// system-of-record reports a mutation.
type Event struct {
	Model  string          `json:"model"`
	ID     string          `json:"id"`
	Action Action          `json:"action"`
	Body   json.RawMessage `json:"body"`
}
