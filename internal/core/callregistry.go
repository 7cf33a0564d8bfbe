package core

import (
	"strconv"
	"sync"

	"github.com/vovakirdan/wirechat-server/internal/callengine"
)

// LiveCall is a snapshot of one in-progress engine-signaled call, as seen by
// CallRegistry.
type LiveCall struct {
	CallID     string
	FromUserID int64
	ToUserID   int64
	State      string
}

// CallRegistry tracks calls that are currently live in some connection's
// callengine.Engine, independent of the persisted store.Call history. Every
// wired engine reports its state transitions here (see wireEngineEvents in
// the http transport package), so ListActiveCalls can answer "what's ringing
// or connected right now" without reaching into any engine's internals.
//
// An entry is added or updated by each calling/connecting/connected
// transition that carries a call id, and removed by the transition back to
// prepared or idle. A caller's own calling transition is emitted before its
// call id is assigned and adds nothing, so an outbound call that is still
// ringing is listed only through the callee's engine.
type CallRegistry struct {
	mu    sync.RWMutex
	calls map[string]LiveCall
}

// NewCallRegistry builds an empty registry.
func NewCallRegistry() *CallRegistry {
	return &CallRegistry{calls: make(map[string]LiveCall)}
}

// Observe updates the registry from one engine's StateChange. Safe to call
// from the engine's emission callback.
func (r *CallRegistry) Observe(sc callengine.StateChange) {
	if sc.CallID == "" {
		return
	}
	switch sc.State {
	case callengine.StateCalling, callengine.StateConnecting, callengine.StateConnected:
		r.mu.Lock()
		r.calls[sc.CallID] = LiveCall{
			CallID:     sc.CallID,
			FromUserID: parseUserIDLoose(sc.FromUser),
			ToUserID:   parseUserIDLoose(sc.RemoteUser),
			State:      sc.State.String(),
		}
		r.mu.Unlock()
	default:
		r.mu.Lock()
		delete(r.calls, sc.CallID)
		r.mu.Unlock()
	}
}

func parseUserIDLoose(s string) int64 {
	id, _ := strconv.ParseInt(s, 10, 64)
	return id
}

// Get returns the live entry for callID, if the registry has one.
func (r *CallRegistry) Get(callID string) (LiveCall, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	lc, ok := r.calls[callID]
	return lc, ok
}

// ListForUser returns every live call involving userID as either party.
func (r *CallRegistry) ListForUser(userID int64) []LiveCall {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]LiveCall, 0, len(r.calls))
	for _, lc := range r.calls {
		if lc.FromUserID == userID || lc.ToUserID == userID {
			out = append(out, lc)
		}
	}
	return out
}
