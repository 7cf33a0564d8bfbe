package callengine

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func newTestEngine(bus *fakeBus, userID string) *Engine {
	var clock int64
	nowMillis := func() int64 { return atomic.AddInt64(&clock, 1) }
	return New(userID, bus.transportFor(userID), bus.mediaFor(userID), nil, nowMillis)
}

// stateRecorder captures every StateChange an engine emits, in order.
type stateRecorder struct {
	ch chan StateChange
}

func newStateRecorder(e *Engine) *stateRecorder {
	r := &stateRecorder{ch: make(chan StateChange, 32)}
	e.OnStateChanged(func(sc StateChange) { r.ch <- sc })
	return r
}

func (r *stateRecorder) awaitState(t *testing.T, state CallState, timeout time.Duration) StateChange {
	t.Helper()
	deadline := time.After(timeout)
	for {
		select {
		case sc := <-r.ch:
			if sc.State == state {
				return sc
			}
		case <-deadline:
			t.Fatalf("timed out waiting for state %s", state)
		}
	}
}

func TestEngineHappyPathFirstFrameWaitingDisabled(t *testing.T) {
	bus := newFakeBus()
	caller := newTestEngine(bus, "alice")
	callee := newTestEngine(bus, "bob")

	callerStates := newStateRecorder(caller)
	calleeStates := newStateRecorder(callee)

	ctx := context.Background()
	cfg := PrepareConfig{FirstFrameWaittingDisabled: Bool(true), LocalView: &fakeView{}, RemoteView: &fakeView{}}
	if err := caller.PrepareForCall(ctx, cfg); err != nil {
		t.Fatalf("caller prepare: %v", err)
	}
	if err := callee.PrepareForCall(ctx, cfg); err != nil {
		t.Fatalf("callee prepare: %v", err)
	}

	go func() {
		if err := caller.Call(ctx, "bob", CallTypeVideo); err != nil {
			t.Errorf("call: %v", err)
		}
	}()

	// callee observes the inbound invite and accepts once in the Calling state.
	calleeStates.awaitState(t, StateCalling, time.Second)
	if err := callee.Accept(ctx, "alice"); err != nil {
		t.Fatalf("accept: %v", err)
	}

	callerStates.awaitState(t, StateConnecting, time.Second)
	callerStates.awaitState(t, StateConnected, time.Second)
	calleeStates.awaitState(t, StateConnected, time.Second)

	if caller.GetCallID() == "" {
		t.Fatal("expected non-empty call id while connected")
	}
	if callee.State() != StateConnected {
		t.Fatalf("expected callee connected, got %s", callee.State())
	}
}

func TestEngineFirstFrameRendezvous(t *testing.T) {
	bus := newFakeBus()
	caller := newTestEngine(bus, "alice")
	callee := newTestEngine(bus, "bob")

	calleeStates := newStateRecorder(callee)
	callerStates := newStateRecorder(caller)

	ctx := context.Background()
	cfg := PrepareConfig{LocalView: &fakeView{}, RemoteView: &fakeView{}}
	_ = caller.PrepareForCall(ctx, cfg)
	_ = callee.PrepareForCall(ctx, cfg)

	go func() { _ = caller.Call(ctx, "bob", CallTypeVideo) }()
	calleeStates.awaitState(t, StateCalling, time.Second)
	if err := callee.Accept(ctx, "alice"); err != nil {
		t.Fatalf("accept: %v", err)
	}

	callerStates.awaitState(t, StateConnecting, time.Second)

	// Without a decoded first frame the caller must stay in Connecting.
	select {
	case sc := <-callerStates.ch:
		if sc.State == StateConnected {
			t.Fatal("connected before first frame decoded")
		}
	case <-time.After(50 * time.Millisecond):
	}

	bus.mu.Lock()
	calleeMedia := bus.media["bob"]
	bus.mu.Unlock()

	var video *fakeTrack
	deadline := time.After(time.Second)
	for video == nil {
		calleeMedia.mu.Lock()
		video = calleeMedia.video
		calleeMedia.mu.Unlock()
		if video != nil {
			break
		}
		select {
		case <-deadline:
			t.Fatal("timed out waiting for callee local video track")
		case <-time.After(5 * time.Millisecond):
		}
	}
	video.triggerFirstFrame()

	callerStates.awaitState(t, StateConnected, time.Second)
}

func TestEngineRemoteRejects(t *testing.T) {
	bus := newFakeBus()
	caller := newTestEngine(bus, "alice")
	callee := newTestEngine(bus, "bob")

	ctx := context.Background()
	_ = caller.PrepareForCall(ctx, PrepareConfig{})
	_ = callee.PrepareForCall(ctx, PrepareConfig{})

	callerStates := newStateRecorder(caller)
	calleeStates := newStateRecorder(callee)

	go func() { _ = caller.Call(ctx, "bob", CallTypeVideo) }()
	calleeStates.awaitState(t, StateCalling, time.Second)

	if err := callee.Reject(ctx, "alice", "declined"); err != nil {
		t.Fatalf("reject: %v", err)
	}

	sc := callerStates.awaitState(t, StatePrepared, time.Second)
	if sc.Reason != ReasonRemoteRejected {
		t.Fatalf("expected remoteRejected reason, got %s", sc.Reason)
	}
	if sc.RejectReason != "declined" {
		t.Fatalf("expected reject reason propagated, got %q", sc.RejectReason)
	}
	if caller.GetCallID() != "" {
		t.Fatal("expected call id cleared after reject")
	}
}

func TestEngineCallerCancels(t *testing.T) {
	bus := newFakeBus()
	caller := newTestEngine(bus, "alice")
	callee := newTestEngine(bus, "bob")

	calleeStates := newStateRecorder(callee)

	ctx := context.Background()
	_ = caller.PrepareForCall(ctx, PrepareConfig{})
	_ = callee.PrepareForCall(ctx, PrepareConfig{})

	go func() { _ = caller.Call(ctx, "bob", CallTypeVideo) }()
	calleeStates.awaitState(t, StateCalling, time.Second)

	if err := caller.CancelCall(ctx); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	sc := calleeStates.awaitState(t, StatePrepared, time.Second)
	if sc.Reason != ReasonRemoteCancel {
		t.Fatalf("expected remoteCancel reason, got %s", sc.Reason)
	}
}

func TestEngineCallingTimeout(t *testing.T) {
	bus := newFakeBus()
	caller := newTestEngine(bus, "alice")
	// No callee registered on the bus: the invite is sent into the void, and
	// the caller's own timer must fire and tear the call back down.

	callerStates := newStateRecorder(caller)

	ctx := context.Background()
	_ = caller.PrepareForCall(ctx, PrepareConfig{CallTimeoutMillisecond: 30 * time.Millisecond})

	go func() { _ = caller.Call(ctx, "ghost", CallTypeVideo) }()
	callerStates.awaitState(t, StateCalling, time.Second)

	sc := callerStates.awaitState(t, StatePrepared, time.Second)
	if sc.Reason != ReasonCallingTimeout {
		t.Fatalf("expected callingTimeout reason, got %s", sc.Reason)
	}
	if caller.GetCallID() != "" {
		t.Fatal("expected call id cleared after timeout teardown")
	}
}

func TestEngineBusyAutoRejects(t *testing.T) {
	bus := newFakeBus()
	alice := newTestEngine(bus, "alice")
	carol := newTestEngine(bus, "carol")

	ctx := context.Background()
	_ = alice.PrepareForCall(ctx, PrepareConfig{})
	_ = carol.PrepareForCall(ctx, PrepareConfig{})

	aliceStates := newStateRecorder(alice)
	// alice is already committed to a call with someone else.
	go func() { _ = alice.Call(ctx, "dave", CallTypeVideo) }()
	aliceStates.awaitState(t, StateCalling, time.Second)

	carolStates := newStateRecorder(carol)
	if err := carol.Call(ctx, "alice", CallTypeVideo); err != nil {
		t.Fatalf("carol call: %v", err)
	}
	carolStates.awaitState(t, StateCalling, time.Second)

	sc := carolStates.awaitState(t, StatePrepared, time.Second)
	if sc.Reason != ReasonRemoteCallBusy {
		t.Fatalf("expected remoteCallBusy reason, got %s", sc.Reason)
	}

	// alice must remain committed to her original call with dave.
	if alice.State() != StateCalling {
		t.Fatalf("expected alice to remain calling dave, got %s", alice.State())
	}
}

func TestEngineDestroyResetsState(t *testing.T) {
	bus := newFakeBus()
	caller := newTestEngine(bus, "alice")
	callee := newTestEngine(bus, "bob")

	calleeStates := newStateRecorder(callee)

	ctx := context.Background()
	_ = caller.PrepareForCall(ctx, PrepareConfig{FirstFrameWaittingDisabled: Bool(true)})
	_ = callee.PrepareForCall(ctx, PrepareConfig{FirstFrameWaittingDisabled: Bool(true)})

	go func() { _ = caller.Call(ctx, "bob", CallTypeVideo) }()
	calleeStates.awaitState(t, StateCalling, time.Second)
	_ = callee.Accept(ctx, "alice")
	time.Sleep(50 * time.Millisecond)

	if err := caller.Destroy(ctx); err != nil {
		t.Fatalf("destroy: %v", err)
	}
	if caller.GetCallID() != "" {
		t.Fatal("expected call id cleared after destroy")
	}
}
