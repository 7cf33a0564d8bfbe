package core

import (
	"context"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/vovakirdan/wirechat-server/internal/callengine"
)

// EngineFactory builds one callengine.Engine per connected, authenticated
// client, wired to the hub's routing table (as its SignalingTransport) and a
// fresh media-adapter session. A nil media constructor means calling is
// disabled (no LiveKit credentials configured): New then returns nil.
type EngineFactory struct {
	hub               Hub
	media             func(userID string) callengine.MediaClient
	log               *zerolog.Logger
	callTimeout       time.Duration
	firstFrameWaitOff bool
}

// NewEngineFactory builds a factory. media may be nil to disable calling.
func NewEngineFactory(hub Hub, media func(userID string) callengine.MediaClient, log *zerolog.Logger, callTimeout time.Duration, firstFrameWaitDisabled bool) *EngineFactory {
	return &EngineFactory{
		hub:               hub,
		media:             media,
		log:               log,
		callTimeout:       callTimeout,
		firstFrameWaitOff: firstFrameWaitDisabled,
	}
}

// New builds and prepares an Engine for c, or returns nil when calling is
// disabled. c.UserID must be a real, authenticated account id.
func (f *EngineFactory) New(c *Client) *callengine.Engine {
	if f.media == nil {
		return nil
	}
	userID := strconv.FormatInt(c.UserID, 10)
	transport := NewHubTransport(f.hub, c)
	media := f.media(userID)

	e := callengine.New(userID, transport, media, f.log, nil)
	_ = e.PrepareForCall(context.Background(), callengine.PrepareConfig{
		CallTimeoutMillisecond:     f.callTimeout,
		FirstFrameWaittingDisabled: callengine.Bool(f.firstFrameWaitOff),
		AutoAccept:                 callengine.Bool(c.AutoAcceptCalls),
	})
	return e
}
