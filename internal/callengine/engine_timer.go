package callengine

import (
	"context"
	"time"
)

// armTimer arms the single cancel/timeout timer (§4.6). Re-arming cancels any
// prior pending timer. Caller must hold e.mu.
func (e *Engine) armTimer(isLocalOriginated bool) {
	e.disarmTimer()

	timeout := e.config.CallTimeoutMillisecond
	if timeout <= 0 {
		timeout = defaultCallTimeout
	}

	stop := make(chan struct{})
	timer := time.AfterFunc(timeout, func() {
		e.onTimerFired(isLocalOriginated)
	})

	e.timerMu.Lock()
	e.timerCancel = func() {
		timer.Stop()
		select {
		case <-stop:
		default:
			close(stop)
		}
	}
	e.timerMu.Unlock()
}

// disarmTimer cancels any pending timer. Safe to call when none is armed.
func (e *Engine) disarmTimer() {
	e.timerMu.Lock()
	cancel := e.timerCancel
	e.timerCancel = nil
	e.timerMu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// onTimerFired implements _autoCancelCall's timeout branch (§4.6).
func (e *Engine) onTimerFired(isLocalOriginated bool) {
	e.mu.Lock()
	if !(e.state == StateCalling || e.state == StateConnecting) {
		e.mu.Unlock()
		return
	}

	remoteUserID := e.remoteUserID
	e.callStateChange(StatePrepared, ReasonCallingTimeout, nil, "", "")
	if isLocalOriginated {
		e.emitEvent(EventCallingTimeout)
	} else {
		e.emitEvent(EventRemoteCallingTimeout)
	}
	msg := CallMessage{
		CallID:               e.codec.CallID(),
		FromUserID:           e.selfUserID,
		RemoteUserID:         remoteUserID,
		MessageAction:        ActionCancel,
		CancelCallByInternal: OriginInternal,
	}
	e.mu.Unlock()

	ctx := context.Background()
	go func() { _ = e.sendSignaling(ctx, "callingTimeout", msg) }()
	go func() { _ = e.teardown(ctx) }()
}
