package core

import (
	"context"
	"fmt"
	"strconv"
)

// HubTransport adapts the Hub's user registry into a callengine.SignalingTransport:
// SendMessage looks up the destination user's live connection and hands the
// payload straight to its registered call engine, bypassing room broadcast
// entirely. One HubTransport is constructed per connected user's engine.
type HubTransport struct {
	hub  Hub
	self *Client
}

// NewHubTransport builds a transport for c's call engine, routing through hub.
func NewHubTransport(hub Hub, c *Client) *HubTransport {
	return &HubTransport{hub: hub, self: c}
}

// SendMessage implements callengine.SignalingTransport.
func (t *HubTransport) SendMessage(ctx context.Context, userID string, payload string) error {
	id, err := strconv.ParseInt(userID, 10, 64)
	if err != nil {
		return fmt.Errorf("call transport: invalid user id %q: %w", userID, err)
	}
	target, ok := t.hub.ClientByUserID(id)
	if !ok {
		return fmt.Errorf("call transport: user %d not connected", id)
	}
	if !target.deliverCallPayload(payload) {
		return fmt.Errorf("call transport: user %d has no active call engine", id)
	}
	return nil
}

// OnMessageReceive implements callengine.SignalingTransport.
func (t *HubTransport) OnMessageReceive(fn func(payload string)) {
	t.self.SetCallReceiver(fn)
}
