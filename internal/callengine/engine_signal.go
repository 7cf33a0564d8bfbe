package callengine

import "context"

// handleSignalingMessage decodes an inbound payload and dispatches on
// message_action (§4.2). It is registered as the transport's
// OnMessageReceive callback.
func (e *Engine) handleSignalingMessage(payload string) {
	msg, err := e.codec.Decode(payload)
	if err != nil {
		e.mu.Lock()
		e.emitError(newMessageError("messageReceive", err))
		e.mu.Unlock()
		return
	}

	switch msg.MessageAction {
	case ActionVideoCall:
		e.handleInboundInvite(msg, CallTypeVideo)
	case ActionAudioCall:
		e.handleInboundInvite(msg, CallTypeAudio)
	case ActionAccept:
		e.handleInboundAccept(msg)
	case ActionReject:
		e.handleInboundReject(msg)
	case ActionCancel:
		e.handleInboundCancel(msg)
	case ActionHangup:
		e.handleInboundHangup(msg)
	}
}

// handleInboundInvite handles an inbound VideoCall/AudioCall (§4.2), auto-
// rejecting with busy when the engine is already committed to another peer.
func (e *Engine) handleInboundInvite(msg CallMessage, callType CallType) {
	e.mu.Lock()
	if !e.isCallingUser(msg.FromUserID) {
		e.mu.Unlock()
		reject := CallMessage{
			CallID:           msg.CallID,
			FromUserID:       e.selfUserID,
			RemoteUserID:     msg.FromUserID,
			MessageAction:    ActionReject,
			RejectReason:     "busy",
			RejectByInternal: OriginInternal,
		}
		_ = e.sendSignaling(context.Background(), "videoCall", reject)
		return
	}

	e.callInfo.Reset()
	e.callInfo.Record(MilestoneStart)
	e.codec.SetCallID(msg.CallID)
	e.remoteUserID = msg.FromUserID
	e.callType = callType
	if msg.FromRoomID != "" {
		e.config.RoomID = msg.FromRoomID
	}
	e.armTimer(false)

	reason := ReasonRemoteVideoCall
	if callType == CallTypeAudio {
		reason = ReasonRemoteAudioCall
	}
	e.callStateChange(StateCalling, reason, nil, "", "")
	e.emitEvent(EventOnCalling)
	autoAccept := e.config.autoAccept()
	remoteUserID := e.remoteUserID
	e.mu.Unlock()

	go func() {
		_ = e.rtcJoinAndPublish(context.Background())
		if autoAccept {
			_ = e.Accept(context.Background(), remoteUserID)
		}
	}()
}

func (e *Engine) handleInboundAccept(msg CallMessage) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.callInfo.Record(MilestoneAcceptCall)
	e.emitEvent(EventRemoteAccepted)
	e.callStateChange(StateConnecting, ReasonRemoteAccepted, nil, "", "")
	e.checkAppendView()
}

func (e *Engine) handleInboundReject(msg CallMessage) {
	e.mu.Lock()
	if !e.isCallingUser(msg.FromUserID) {
		e.mu.Unlock()
		return
	}
	e.mu.Unlock()

	_ = e.teardown(context.Background())

	e.mu.Lock()
	reason := ReasonRemoteRejected
	if msg.RejectByInternal == OriginInternal {
		reason = ReasonRemoteCallBusy
	}
	e.callStateChange(StatePrepared, reason, nil, msg.RejectReason, "")
	if reason == ReasonRemoteCallBusy {
		e.emitEvent(EventRemoteCallBusy)
	} else {
		e.emitEvent(EventRemoteRejected)
	}
	e.mu.Unlock()
}

func (e *Engine) handleInboundCancel(msg CallMessage) {
	e.mu.Lock()
	if !e.isCallingUser(msg.FromUserID) {
		e.mu.Unlock()
		return
	}
	e.callStateChange(StatePrepared, ReasonRemoteCancel, nil, "", msg.CancelCallByInternal)
	e.emitEvent(EventRemoteCancelled)
	e.mu.Unlock()

	_ = e.teardown(context.Background())
}

func (e *Engine) handleInboundHangup(msg CallMessage) {
	e.mu.Lock()
	if !e.isCallingUser(msg.FromUserID) {
		e.mu.Unlock()
		return
	}
	e.callStateChange(StatePrepared, ReasonRemoteHangup, nil, "", "")
	e.emitEvent(EventRemoteHangup)
	e.mu.Unlock()

	_ = e.teardown(context.Background())
}
