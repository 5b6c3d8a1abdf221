package relay

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// Wire event names, client <-> gateway.
const (
	EvSetup      = "setup"
	EvJoinChat   = "join chat"
	EvTyping     = "typing"
	EvStopTyping = "stop typing"
	EvNewMessage = "new message"

	EvConnected       = "connected"
	EvOnlineUsers     = "online-users"
	EvMessageReceived = "message received"
)

// Frame is the JSON envelope every relay event travels in.
type Frame struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

func ParseFrame(raw []byte) (*Frame, error) {
	f := &Frame{}
	if err := json.Unmarshal(raw, f); err != nil {
		return nil, errors.Wrap(err, "unmarshal frame")
	}
	if f.Event == "" {
		return nil, errors.New("frame has no event")
	}
	return f, nil
}

func EncodeFrame(event string, payload any) ([]byte, error) {
	var raw json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, errors.Wrap(err, "marshal payload")
		}
		raw = b
	}
	return json.Marshal(Frame{Event: event, Payload: raw})
}

// UserRef is the subset of a user document the relay needs for routing.
type UserRef struct {
	ID string `json:"_id"`
}

// ChatRef carries the chat id and its membership list for fan-out.
type ChatRef struct {
	ID    string    `json:"_id"`
	Users []UserRef `json:"users"`
}

// MessageEnvelope is the persisted-message payload produced by the HTTP
// layer. The relay routes on Sender/Chat and forwards Raw untouched, so
// fields it does not understand survive the trip.
type MessageEnvelope struct {
	Sender UserRef `json:"sender"`
	Chat   ChatRef `json:"chat"`

	Raw json.RawMessage `json:"-"`
}

func parseEnvelope(raw json.RawMessage) (*MessageEnvelope, error) {
	env := &MessageEnvelope{}
	if err := json.Unmarshal(raw, env); err != nil {
		return nil, errors.Wrap(err, "unmarshal message envelope")
	}
	env.Raw = raw
	return env, nil
}

// EventKind tags the router's inbound event union.
type EventKind int

const (
	EventSetup EventKind = iota
	EventJoinChat
	EventTyping
	EventStopTyping
	EventNewMessage
	EventDisconnect
	// EventRemoteMessage is a new-message envelope that arrived over the
	// cross-instance bridge; it is delivered locally but never re-published.
	EventRemoteMessage
)

// Event is one unit of work for the router loop.
type Event struct {
	Kind     EventKind
	Conn     *Client
	UserID   string           // EventSetup
	ChatID   string           // EventJoinChat / EventTyping / EventStopTyping
	Envelope *MessageEnvelope // EventNewMessage / EventRemoteMessage
}
