package callengine

// CallState is the coarse-grained state of a call as seen by the application.
type CallState int

const (
	StateIdle CallState = iota
	StatePrepared
	StateCalling
	StateConnecting
	StateConnected
)

func (s CallState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePrepared:
		return "prepared"
	case StateCalling:
		return "calling"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "unknown"
	}
}

// isBusy reports whether the state machine is committed to a call.
func (s CallState) isBusy() bool {
	return s == StateCalling || s == StateConnecting || s == StateConnected
}

// StateReason is attached to every state transition, explaining why it happened.
type StateReason int

const (
	ReasonNone StateReason = iota
	ReasonLocalVideoCall
	ReasonLocalAudioCall
	ReasonRemoteVideoCall
	ReasonRemoteAudioCall
	ReasonLocalAccepted
	ReasonRemoteAccepted
	ReasonLocalRejected
	ReasonRemoteRejected
	ReasonRemoteCallBusy
	ReasonLocalCancel
	ReasonRemoteCancel
	ReasonLocalHangup
	ReasonRemoteHangup
	ReasonRecvRemoteFirstFrame
	ReasonCallingTimeout
)

func (r StateReason) String() string {
	switch r {
	case ReasonNone:
		return "none"
	case ReasonLocalVideoCall:
		return "localVideoCall"
	case ReasonLocalAudioCall:
		return "localAudioCall"
	case ReasonRemoteVideoCall:
		return "remoteVideoCall"
	case ReasonRemoteAudioCall:
		return "remoteAudioCall"
	case ReasonLocalAccepted:
		return "localAccepted"
	case ReasonRemoteAccepted:
		return "remoteAccepted"
	case ReasonLocalRejected:
		return "localRejected"
	case ReasonRemoteRejected:
		return "remoteRejected"
	case ReasonRemoteCallBusy:
		return "remoteCallBusy"
	case ReasonLocalCancel:
		return "localCancel"
	case ReasonRemoteCancel:
		return "remoteCancel"
	case ReasonLocalHangup:
		return "localHangup"
	case ReasonRemoteHangup:
		return "remoteHangup"
	case ReasonRecvRemoteFirstFrame:
		return "recvRemoteFirstFrame"
	case ReasonCallingTimeout:
		return "callingTimeout"
	default:
		return "unknown"
	}
}

// EventKind enumerates the finer-grained events the engine emits, in addition to
// state transitions.
type EventKind int

const (
	EventOnCalling EventKind = iota
	EventRemoteUserRecvCall
	EventLocalAccepted
	EventRemoteAccepted
	EventLocalRejected
	EventRemoteRejected
	EventRemoteCallBusy
	EventLocalCancelled
	EventRemoteCancelled
	EventLocalHangup
	EventRemoteHangup
	EventJoinRTCStart
	EventJoinRTCSuccessed
	EventLocalJoined
	EventRemoteJoined
	EventLocalLeft
	EventRemoteLeft
	EventPublishFirstLocalVideoFrame
	EventRecvRemoteFirstFrame
	EventCallingTimeout
	EventRemoteCallingTimeout
	EventStateMismatch
)

func (e EventKind) String() string {
	switch e {
	case EventOnCalling:
		return "onCalling"
	case EventRemoteUserRecvCall:
		return "remoteUserRecvCall"
	case EventLocalAccepted:
		return "localAccepted"
	case EventRemoteAccepted:
		return "remoteAccepted"
	case EventLocalRejected:
		return "localRejected"
	case EventRemoteRejected:
		return "remoteRejected"
	case EventRemoteCallBusy:
		return "remoteCallBusy"
	case EventLocalCancelled:
		return "localCancelled"
	case EventRemoteCancelled:
		return "remoteCancelled"
	case EventLocalHangup:
		return "localHangup"
	case EventRemoteHangup:
		return "remoteHangup"
	case EventJoinRTCStart:
		return "joinRTCStart"
	case EventJoinRTCSuccessed:
		return "joinRTCSuccessed"
	case EventLocalJoined:
		return "localJoined"
	case EventRemoteJoined:
		return "remoteJoined"
	case EventLocalLeft:
		return "localLeft"
	case EventRemoteLeft:
		return "remoteLeft"
	case EventPublishFirstLocalVideoFrame:
		return "publishFirstLocalVideoFrame"
	case EventRecvRemoteFirstFrame:
		return "recvRemoteFirstFrame"
	case EventCallingTimeout:
		return "callingTimeout"
	case EventRemoteCallingTimeout:
		return "remoteCallingTimeout"
	case EventStateMismatch:
		return "stateMismatch"
	default:
		return "unknown"
	}
}

// ErrorKind classifies the origin of a callError observation.
type ErrorKind int

const (
	ErrorKindNormal ErrorKind = iota
	ErrorKindRTC
	ErrorKindMessage
)

func (k ErrorKind) String() string {
	switch k {
	case ErrorKindNormal:
		return "normal"
	case ErrorKindRTC:
		return "rtc"
	case ErrorKindMessage:
		return "message"
	default:
		return "unknown"
	}
}

// CallType distinguishes video from audio calls. Both travel through the same
// state machine; the only difference is the reason/message action attached.
type CallType int

const (
	CallTypeVideo CallType = iota
	CallTypeAudio
)

func (t CallType) String() string {
	if t == CallTypeAudio {
		return "audio"
	}
	return "video"
}
