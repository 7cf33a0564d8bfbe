package http

import (
	"strconv"

	"github.com/vovakirdan/wirechat-server/internal/callengine"
	"github.com/vovakirdan/wirechat-server/internal/core"
)

// wireEngineEvents subscribes to a connection's call engine and translates
// its state/event/error callbacks into core.Event values pushed onto the
// client's outbound queue, and (when registry is non-nil) feeds every state
// transition into the process-wide CallRegistry. The engine runs its
// callbacks synchronously from whatever goroutine triggered the transition
// (handleCallInbound or the HubTransport delivery path), so sends here must
// never block indefinitely.
func wireEngineEvents(engine *callengine.Engine, client *core.Client, registry *core.CallRegistry) {
	// lastCallID is the id of this engine's latest id-carrying transition. A
	// return to prepared/idle that runs after teardown carries no id, so the
	// registry is told which call it ends.
	var lastCallID string
	engine.OnStateChanged(func(sc callengine.StateChange) {
		if registry != nil {
			obs := sc
			ending := obs.State == callengine.StatePrepared || obs.State == callengine.StateIdle
			if obs.CallID != "" {
				lastCallID = obs.CallID
			} else if ending {
				obs.CallID = lastCallID
			}
			if ending {
				lastCallID = ""
			}
			registry.Observe(obs)
		}
		if ev := stateChangeToEvent(sc); ev != nil {
			pushEvent(client, ev)
		}
	})
	engine.OnEvent(func(evt callengine.Event) {
		if ev := engineEventToEvent(evt); ev != nil {
			pushEvent(client, ev)
		}
	})
	engine.OnError(func(ce *callengine.CallError) {
		pushEvent(client, &core.Event{
			Kind:  core.EventError,
			Error: &core.CoreError{Code: ce.Code, Message: ce.Message},
		})
	})
}

func pushEvent(client *core.Client, ev *core.Event) {
	select {
	case client.Events <- ev:
	default:
	}
}

func parseUserID(s string) int64 {
	id, _ := strconv.ParseInt(s, 10, 64)
	return id
}

// parseCallType maps the browser's "audio"/"video" string to the engine's
// CallType enum, defaulting to video for anything else.
func parseCallType(s string) callengine.CallType {
	if s == "audio" {
		return callengine.CallTypeAudio
	}
	return callengine.CallTypeVideo
}

func stateChangeToEvent(sc callengine.StateChange) *core.Event {
	callEvent := &core.CallEvent{
		CallID:     sc.CallID,
		FromUserID: parseUserID(sc.FromUser),
		ToUserID:   parseUserID(sc.RemoteUser),
		Reason:     sc.RejectReason,
	}

	switch sc.Reason {
	case callengine.ReasonLocalVideoCall, callengine.ReasonLocalAudioCall:
		return &core.Event{Kind: core.EventCallRinging, Call: callEvent}
	case callengine.ReasonRemoteVideoCall, callengine.ReasonRemoteAudioCall:
		return &core.Event{Kind: core.EventCallIncoming, Call: callEvent}
	case callengine.ReasonLocalAccepted, callengine.ReasonRemoteAccepted:
		return &core.Event{Kind: core.EventCallAccepted, Call: callEvent}
	case callengine.ReasonLocalRejected, callengine.ReasonRemoteRejected, callengine.ReasonRemoteCallBusy:
		return &core.Event{Kind: core.EventCallRejected, Call: callEvent}
	case callengine.ReasonLocalCancel, callengine.ReasonRemoteCancel:
		callEvent.Reason = "cancelled"
		return &core.Event{Kind: core.EventCallEnded, Call: callEvent}
	case callengine.ReasonLocalHangup, callengine.ReasonRemoteHangup:
		callEvent.Reason = "hangup"
		return &core.Event{Kind: core.EventCallEnded, Call: callEvent}
	case callengine.ReasonCallingTimeout:
		callEvent.Reason = "timeout"
		return &core.Event{Kind: core.EventCallEnded, Call: callEvent}
	default:
		return nil
	}
}

func engineEventToEvent(evt callengine.Event) *core.Event {
	callEvent := &core.CallEvent{CallID: evt.CallID}
	switch evt.Kind {
	case callengine.EventLocalJoined, callengine.EventRemoteJoined:
		return &core.Event{Kind: core.EventCallParticipantJoined, Call: callEvent}
	case callengine.EventLocalLeft, callengine.EventRemoteLeft:
		return &core.Event{Kind: core.EventCallParticipantLeft, Call: callEvent}
	default:
		return nil
	}
}
