package callengine

import "context"

// SignalingTransport is the single capability the engine needs from the
// user-to-user messaging layer: send a payload to a user, and be told when one
// arrives (§6). Delivery is assumed reliable and at-most-once, in order
// (§1 Non-goals) — the engine performs no retransmission.
type SignalingTransport interface {
	SendMessage(ctx context.Context, userID string, payload string) error
	OnMessageReceive(func(payload string))
}
