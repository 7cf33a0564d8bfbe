// Package callengine implements a 1-to-1 call signaling and media
// orchestration engine: a deterministic state machine that coordinates two
// peers through invitation, acceptance, media-channel join, first-frame
// rendezvous, and teardown.
package callengine

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// StateChange is the payload of the callStateChanged observation stream (§6).
// CallID is snapshotted at emission time so observers never need to call
// back into the engine (which would deadlock against the lock held during
// emission).
type StateChange struct {
	State      CallState
	Reason     StateReason
	EventKind  *EventKind
	RemoteUser string
	FromUser   string
	RejectReason string
	CancelByInternal Origin
	CallID     string
}

// Event is the payload of the callEventChanged observation stream (§6),
// carrying the call id alongside the event kind for the same reason
// StateChange does.
type Event struct {
	Kind   EventKind
	CallID string
}

// Engine is the call signaling and media orchestration state machine (§4.1).
// One Engine instance serves one local user across a sequence of calls. It is
// not safe for concurrent use from multiple goroutines issuing commands at
// once; the caller (e.g. one WebSocket connection) must serialize entry,
// matching the single-threaded cooperative scheduling model of §5.
type Engine struct {
	log       *zerolog.Logger
	transport SignalingTransport
	media     MediaClient
	codec     *Codec
	nowMillis func() int64

	mu sync.Mutex

	selfUserID string
	config     PrepareConfig

	state        CallState
	remoteUserID string
	callType     CallType

	rtcJoined  bool
	localVideo Track
	localAudio Track
	remoteVideo Track
	remoteAudio Track

	receivedRemoteFirstFrame bool
	localViewPlaying         bool
	remoteViewPlaying        bool

	callInfo *CallInfo

	timerMu     sync.Mutex
	timerCancel func()

	stateEmitter Emitter[StateChange]
	eventEmitter Emitter[Event]
	errorEmitter Emitter[*CallError]
	infoEmitter  Emitter[[]Entry]
}

// New builds an Engine for selfUserID, driven by the given signaling
// transport and media client. nowMillis defaults to wall-clock time; pass a
// deterministic clock in tests.
func New(selfUserID string, transport SignalingTransport, media MediaClient, log *zerolog.Logger, nowMillis func() int64) *Engine {
	if nowMillis == nil {
		nowMillis = func() int64 { return time.Now().UnixMilli() }
	}
	e := &Engine{
		log:        log,
		transport:  transport,
		media:      media,
		codec:      NewCodec(),
		nowMillis:  nowMillis,
		selfUserID: selfUserID,
		state:      StateIdle,
		callInfo:   newCallInfo(nowMillis),
		config:     PrepareConfig{CallTimeoutMillisecond: defaultCallTimeout},
	}
	transport.OnMessageReceive(e.handleSignalingMessage)
	media.OnUserJoined(e.handleUserJoined)
	media.OnUserLeft(e.handleUserLeft)
	media.OnUserPublished(e.handleUserPublished)
	media.OnUserUnpublished(e.handleUserUnpublished)
	return e
}

// OnStateChanged subscribes to the callStateChanged stream.
func (e *Engine) OnStateChanged(fn func(StateChange)) func() { return e.stateEmitter.On(fn) }

// OnEvent subscribes to the callEventChanged stream.
func (e *Engine) OnEvent(fn func(Event)) func() { return e.eventEmitter.On(fn) }

// OnError subscribes to the callError stream.
func (e *Engine) OnError(fn func(*CallError)) func() { return e.errorEmitter.On(fn) }

// OnInfoChanged subscribes to the callInfoChanged stream.
func (e *Engine) OnInfoChanged(fn func([]Entry)) func() { return e.infoEmitter.On(fn) }

// GetCallID returns the non-empty call id iff state is calling/connecting/connected (§8).
func (e *Engine) GetCallID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.state.isBusy() {
		return ""
	}
	return e.codec.CallID()
}

// State returns the current call state.
func (e *Engine) State() CallState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// callStateChange performs the transition and emits, suppressing
// self-transitions (§5). Caller must hold e.mu; the call id is snapshotted
// from e.codec here rather than left for observers to fetch, since an
// observer calling back into GetCallID() while e.mu is held would deadlock.
func (e *Engine) callStateChange(state CallState, reason StateReason, eventKind *EventKind, rejectReason string, cancelByInternal Origin) {
	if e.state == state {
		return
	}
	e.state = state
	sc := StateChange{
		State:            state,
		Reason:           reason,
		EventKind:        eventKind,
		RemoteUser:       e.remoteUserID,
		FromUser:         e.selfUserID,
		RejectReason:     rejectReason,
		CancelByInternal: cancelByInternal,
		CallID:           e.codec.CallID(),
	}
	if e.log != nil {
		e.log.Info().Str("state", state.String()).Str("reason", reason.String()).Str("remote_user_id", redact(e.remoteUserID)).Msg("call state changed")
	}
	e.stateEmitter.Emit(sc)
}

// emitEvent emits onto the callEventChanged stream. Caller must hold e.mu;
// see callStateChange for why CallID is snapshotted rather than fetched by
// the observer.
func (e *Engine) emitEvent(kind EventKind) {
	if e.log != nil {
		e.log.Debug().Str("event", kind.String()).Msg("call event")
	}
	e.eventEmitter.Emit(Event{Kind: kind, CallID: e.codec.CallID()})
}

func (e *Engine) emitError(ce *CallError) {
	if e.log != nil {
		e.log.Error().Str("event", ce.Event).Str("kind", ce.Kind.String()).Err(ce).Msg("call error")
	}
	e.errorEmitter.Emit(ce)
}

func (e *Engine) stateMismatch(command string) error {
	e.emitEvent(EventStateMismatch)
	return &StateMismatchError{Command: command, State: e.state}
}

// redact strips a user id down to a non-identifying shape for log lines,
// matching §7's "sensitive fields must never appear in log payloads" — user
// ids aren't secrets, but tokens and view handles never get this far because
// no code path ever formats them into a log.Str call.
func redact(userID string) string {
	if userID == "" {
		return ""
	}
	if len(userID) <= 4 {
		return "***"
	}
	return userID[:2] + "***" + userID[len(userID)-2:]
}

// isCallingUser implements §4.2's _isCallingUser gate: admits the first
// inbound invite while rejecting interlopers, and (under glare) admits a
// duplicate invite from the peer already bound as remoteUserID.
func (e *Engine) isCallingUser(id string) bool {
	return e.remoteUserID == "" || e.remoteUserID == id
}

// PrepareForCall configures the engine for the next call (§4.1).
func (e *Engine) PrepareForCall(ctx context.Context, partial PrepareConfig) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state.isBusy() {
		return e.stateMismatch("prepareForCall")
	}

	e.config.merge(partial)
	e.callStateChange(StatePrepared, ReasonNone, nil, "", "")
	return nil
}

// Call places an outbound invite to remoteUserID (§4.1).
func (e *Engine) Call(ctx context.Context, remoteUserID string, callType CallType) error {
	e.mu.Lock()
	if e.state != StatePrepared {
		defer e.mu.Unlock()
		return e.stateMismatch("call")
	}

	e.callInfo.Reset()
	e.callInfo.Record(MilestoneStart)
	e.remoteUserID = remoteUserID
	e.callType = callType

	reason := ReasonLocalVideoCall
	if callType == CallTypeAudio {
		reason = ReasonLocalAudioCall
	}
	e.callStateChange(StateCalling, reason, nil, "", "")
	e.emitEvent(EventOnCalling)

	callID := generateCallID()
	e.codec.SetCallID(callID)
	e.armTimer(true)

	action := ActionVideoCall
	if callType == CallTypeAudio {
		action = ActionAudioCall
	}
	msg := CallMessage{
		CallID:        callID,
		FromUserID:    e.selfUserID,
		RemoteUserID:  remoteUserID,
		FromRoomID:    e.config.RoomID,
		MessageAction: action,
	}
	e.mu.Unlock()

	var joinErr, sendErr error
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		joinErr = e.rtcJoinAndPublish(ctx)
	}()
	go func() {
		defer wg.Done()
		sendErr = e.sendSignaling(ctx, "call", msg)
	}()
	wg.Wait()

	e.mu.Lock()
	if sendErr == nil {
		e.callInfo.Record(MilestoneRemoteUserRecvCall)
		e.emitEvent(EventRemoteUserRecvCall)
	}
	e.mu.Unlock()

	if joinErr != nil {
		return joinErr
	}
	return sendErr
}

// CancelCall cancels an in-flight outbound call (§4.1). Callable any time
// after Call(); no precondition check.
func (e *Engine) CancelCall(ctx context.Context) error {
	e.mu.Lock()
	remoteUserID := e.remoteUserID
	e.callStateChange(StatePrepared, ReasonLocalCancel, nil, "", "")
	e.emitEvent(EventLocalCancelled)
	msg := CallMessage{
		CallID:               e.codec.CallID(),
		FromUserID:           e.selfUserID,
		RemoteUserID:         remoteUserID,
		MessageAction:        ActionCancel,
		CancelCallByInternal: OriginExternal,
	}
	e.mu.Unlock()

	var wg sync.WaitGroup
	wg.Add(2)
	var sendErr error
	go func() {
		defer wg.Done()
		sendErr = e.sendSignaling(ctx, "cancelCall", msg)
	}()
	go func() {
		defer wg.Done()
		e.teardown(ctx)
	}()
	wg.Wait()
	return sendErr
}

// Accept accepts an inbound invite from remoteUserID (§4.1).
func (e *Engine) Accept(ctx context.Context, remoteUserID string) error {
	e.mu.Lock()
	if e.state != StateCalling {
		defer e.mu.Unlock()
		return e.stateMismatch("accept")
	}

	e.emitEvent(EventLocalAccepted)
	e.callInfo.Record(MilestoneAcceptCall)
	e.callStateChange(StateConnecting, ReasonLocalAccepted, nil, "", "")
	msg := CallMessage{
		CallID:        e.codec.CallID(),
		FromUserID:    e.selfUserID,
		RemoteUserID:  remoteUserID,
		MessageAction: ActionAccept,
	}
	e.mu.Unlock()

	var wg sync.WaitGroup
	wg.Add(2)
	var sendErr error
	go func() {
		defer wg.Done()
		sendErr = e.sendSignaling(ctx, "accept", msg)
	}()
	go func() {
		defer wg.Done()
		e.mu.Lock()
		e.checkAppendView()
		e.mu.Unlock()
	}()
	wg.Wait()
	return sendErr
}

// Reject rejects an inbound invite (§4.1). No precondition.
func (e *Engine) Reject(ctx context.Context, remoteUserID string, reason string) error {
	e.mu.Lock()
	e.callStateChange(StatePrepared, ReasonLocalRejected, nil, "", "")
	e.emitEvent(EventLocalRejected)
	msg := CallMessage{
		CallID:           e.codec.CallID(),
		FromUserID:       e.selfUserID,
		RemoteUserID:     remoteUserID,
		MessageAction:    ActionReject,
		RejectReason:     reason,
		RejectByInternal: OriginExternal,
	}
	e.mu.Unlock()

	sendErr := e.sendSignaling(ctx, "reject", msg)
	e.teardown(ctx)
	return sendErr
}

// Hangup ends an established or in-progress call (§4.1). No precondition.
func (e *Engine) Hangup(ctx context.Context, remoteUserID string) error {
	e.mu.Lock()
	e.callStateChange(StatePrepared, ReasonLocalHangup, nil, "", "")
	e.emitEvent(EventLocalHangup)
	msg := CallMessage{
		CallID:        e.codec.CallID(),
		FromUserID:    e.selfUserID,
		RemoteUserID:  remoteUserID,
		MessageAction: ActionHangup,
	}
	e.mu.Unlock()

	sendErr := e.sendSignaling(ctx, "hangup", msg)
	e.teardown(ctx)
	return sendErr
}

// Destroy idempotently releases all engine-owned resources (§4.1).
func (e *Engine) Destroy(ctx context.Context) error {
	return e.teardown(ctx)
}

func (e *Engine) sendSignaling(ctx context.Context, event string, msg CallMessage) error {
	payload, err := e.codec.Encode(msg)
	if err != nil {
		ce := newMessageError(event, err)
		e.mu.Lock()
		e.emitError(ce)
		e.mu.Unlock()
		return ce
	}
	if err := e.transport.SendMessage(ctx, msg.RemoteUserID, payload); err != nil {
		ce := newMessageError(event, err)
		e.mu.Lock()
		e.emitError(ce)
		e.mu.Unlock()
		return ce
	}
	return nil
}

func generateCallID() string {
	return newUUID()
}
