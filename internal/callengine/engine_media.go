package callengine

import "context"

// rtcJoinAndPublish runs track creation and channel join concurrently, then
// publishes both tracks once both resolve (§4.5). Local video playback starts
// immediately after join, before publish. Any failure emits callError(rtc) and
// is returned, so Call() observes it; the inbound-invite path only emits it.
func (e *Engine) rtcJoinAndPublish(ctx context.Context) error {
	e.mu.Lock()
	cfg := e.config
	selfID := e.selfUserID
	e.mu.Unlock()

	e.emitEventLocked(EventJoinRTCStart)

	type joinResult struct {
		video, audio Track
		err          error
	}
	trackCh := make(chan joinResult, 1)
	go func() {
		v, a, err := e.media.CreateLocalTracks(ctx, cfg.VideoConfig, cfg.AudioConfig)
		trackCh <- joinResult{video: v, audio: a, err: err}
	}()

	joinErr := e.media.Join(ctx, "", cfg.RoomID, cfg.RTCToken, selfID)
	result := <-trackCh

	if joinErr != nil {
		return e.failRTC("joinRTCStart", joinErr)
	}
	if result.err != nil {
		return e.failRTC("joinRTCStart", result.err)
	}

	e.mu.Lock()
	e.rtcJoined = true
	e.localVideo = result.video
	e.localAudio = result.audio
	e.callInfo.Record(MilestoneLocalUserJoinChannel)
	e.mu.Unlock()

	if cfg.LocalView != nil && result.video != nil && !result.video.IsPlaying() {
		_ = result.video.Play(cfg.LocalView)
	}

	if err := e.media.Publish(ctx, []Track{result.video, result.audio}); err != nil {
		return e.failRTC("joinRTCStart", err)
	}

	e.emitEventLocked(EventJoinRTCSuccessed)
	return nil
}

func (e *Engine) failRTC(event string, err error) error {
	ce := newRTCError(event, err)
	e.mu.Lock()
	e.emitError(ce)
	e.mu.Unlock()
	return ce
}

// emitEventLocked acquires the lock briefly to emit an event from a context
// that isn't already holding it (e.g. a concurrently-running goroutine).
func (e *Engine) emitEventLocked(kind EventKind) {
	e.mu.Lock()
	e.emitEvent(kind)
	e.mu.Unlock()
}

// checkAppendView is the view-attach rendezvous (§4.4). Caller must hold e.mu.
func (e *Engine) checkAppendView() {
	if e.state != StateConnecting {
		return
	}
	if !e.config.firstFrameWaitingDisabled() && !e.receivedRemoteFirstFrame {
		return
	}

	e.callStateChange(StateConnected, ReasonRecvRemoteFirstFrame, nil, "", "")

	if e.config.LocalView != nil && e.localVideo != nil && !e.localViewPlaying {
		e.config.LocalView.Clear()
		if err := e.localVideo.Play(e.config.LocalView); err == nil {
			e.localViewPlaying = true
		}
	}
	if e.config.RemoteView != nil && e.remoteVideo != nil && !e.remoteViewPlaying {
		e.config.RemoteView.Clear()
		if err := e.remoteVideo.Play(e.config.RemoteView); err == nil {
			e.remoteViewPlaying = true
		}
	}
	if e.remoteAudio != nil && !e.remoteAudio.IsPlaying() {
		_ = e.remoteAudio.Play(nil)
	}
}

func (e *Engine) handleUserJoined(ev MediaUserJoined) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if ev.User.UID != e.remoteUserID {
		return
	}
	e.callInfo.Record(MilestoneRemoteUserJoinChannel)
	e.emitEvent(EventRemoteJoined)
}

func (e *Engine) handleUserLeft(ev MediaUserLeft) {
	e.mu.Lock()
	if ev.User.UID != e.remoteUserID {
		e.mu.Unlock()
		return
	}
	e.emitEvent(EventRemoteLeft)
	busy := e.state.isBusy()
	e.mu.Unlock()

	if busy {
		_ = e.teardown(context.Background())
		e.mu.Lock()
		e.callStateChange(StatePrepared, ReasonRemoteHangup, nil, "", "")
		e.mu.Unlock()
	}
}

func (e *Engine) handleUserPublished(ev MediaUserPublished) {
	e.mu.Lock()
	if ev.User.UID != e.remoteUserID {
		e.mu.Unlock()
		return
	}
	kind := ev.Kind
	e.mu.Unlock()

	track, err := e.media.Subscribe(context.Background(), ev.User, kind)
	if err != nil {
		e.failRTC("userPublished", err)
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	switch kind {
	case MediaKindVideo:
		e.remoteVideo = track
		track.OnFirstFrameDecoded(e.handleRemoteFirstFrameDecoded)
		if e.config.RemoteView != nil {
			_ = track.Play(e.config.RemoteView)
		}
	case MediaKindAudio:
		e.remoteAudio = track
		if e.state == StateConnected {
			_ = track.Play(nil)
		}
	}
}

func (e *Engine) handleUserUnpublished(ev MediaUserUnpublished) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if ev.User.UID != e.remoteUserID {
		return
	}

	kind := ev.Kind
	_ = e.media.Unsubscribe(context.Background(), ev.User, kind)
	switch kind {
	case MediaKindVideo:
		e.remoteVideo = nil
	case MediaKindAudio:
		e.remoteAudio = nil
	}
}

// handleRemoteFirstFrameDecoded is the first-frame-decoded observer registered
// on the remote video track (§4.3).
func (e *Engine) handleRemoteFirstFrameDecoded() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.callInfo.Record(MilestoneRecvFirstFrame)
	e.receivedRemoteFirstFrame = true
	e.emitEvent(EventRecvRemoteFirstFrame)
	e.infoEmitter.Emit(e.callInfo.Snapshot())
	e.checkAppendView()
}

// teardown releases all engine-owned resources (§4.1 destroy). Idempotent.
func (e *Engine) teardown(ctx context.Context) error {
	e.disarmTimer()

	e.mu.Lock()
	remoteAudio := e.remoteAudio
	localVideo := e.localVideo
	localAudio := e.localAudio
	rtcJoined := e.rtcJoined
	e.mu.Unlock()

	if remoteAudio != nil {
		remoteAudio.Stop()
	}
	if localVideo != nil {
		_ = localVideo.Close()
	}
	if localAudio != nil {
		_ = localAudio.Close()
	}

	var leaveErr error
	if rtcJoined {
		leaveErr = e.media.Leave(ctx)
	}

	e.mu.Lock()
	e.rtcJoined = false
	e.localVideo = nil
	e.localAudio = nil
	e.remoteVideo = nil
	e.remoteAudio = nil
	e.remoteUserID = ""
	e.receivedRemoteFirstFrame = false
	e.localViewPlaying = false
	e.remoteViewPlaying = false
	e.codec.Reset()
	e.callInfo.Record(MilestoneEnd)
	e.callInfo.Reset()
	if leaveErr == nil && rtcJoined {
		e.emitEvent(EventLocalLeft)
	}
	e.mu.Unlock()

	if leaveErr != nil {
		return e.failRTC("destroy", leaveErr)
	}
	return nil
}
