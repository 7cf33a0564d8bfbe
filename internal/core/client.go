package core

import "sync"

// Client is a chat participant as seen by the core layer. One Client exists
// per live connection (e.g. one WebSocket); Commands/Events are the only
// channels the transport layer touches.
type Client struct {
	ID       string
	Name     string
	Commands chan *Command
	Events   chan *Event
	Rooms    map[string]struct{}

	// UserID is the stable account id behind this connection, 0 for guests
	// that haven't authenticated. The call engine routes signaling envelopes
	// by UserID rather than by the ephemeral connection ID, so a reconnect
	// keeps the same call addressable.
	UserID int64
	// AutoAcceptCalls skips ringing and immediately accepts inbound calls
	// for this client (used for bots/integration tests, never for humans).
	AutoAcceptCalls bool

	callMu   sync.RWMutex
	callRecv func(payload string)
}

// SetCallReceiver registers the callback a HubTransport invokes when another
// user's call engine sends this client's engine a signaling envelope. Set
// once, when the connection's callengine.Engine is constructed.
func (c *Client) SetCallReceiver(fn func(payload string)) {
	c.callMu.Lock()
	c.callRecv = fn
	c.callMu.Unlock()
}

// deliverCallPayload hands payload to the registered call receiver, if any.
// Reports whether a receiver was present to deliver to.
func (c *Client) deliverCallPayload(payload string) bool {
	c.callMu.RLock()
	fn := c.callRecv
	c.callMu.RUnlock()
	if fn == nil {
		return false
	}
	fn(payload)
	return true
}

// NewClient constructs a client with initialized channels.
func NewClient(id, name string, userID int64, autoAccept bool) *Client {
	if name == "" {
		name = id
	}
	return &Client{
		ID:              id,
		Name:            name,
		Commands:        make(chan *Command, 8),
		Events:          make(chan *Event, 8),
		Rooms:           make(map[string]struct{}),
		UserID:          userID,
		AutoAcceptCalls: autoAccept,
	}
}
