package callengine

// MessageAction identifies what a CallMessage envelope is asking the receiver
// to do (§3).
type MessageAction string

const (
	ActionVideoCall MessageAction = "VideoCall"
	ActionAudioCall MessageAction = "AudioCall"
	ActionAccept    MessageAction = "Accept"
	ActionReject    MessageAction = "Reject"
	ActionCancel    MessageAction = "Cancel"
	ActionHangup    MessageAction = "Hangup"
)

// Origin distinguishes whether a Reject/Cancel was produced automatically by
// the engine (busy, timeout) or explicitly by the application (§3, §9).
type Origin string

const (
	OriginExternal Origin = "External"
	OriginInternal Origin = "Internal"
)

// CallMessage is the signaling envelope exchanged between peers (§3).
type CallMessage struct {
	CallID               string        `json:"callId"`
	FromUserID            string        `json:"fromUserId"`
	RemoteUserID          string        `json:"remoteUserId"`
	FromRoomID            string        `json:"fromRoomId,omitempty"`
	MessageAction         MessageAction `json:"message_action"`
	RejectReason          string        `json:"rejectReason,omitempty"`
	RejectByInternal      Origin        `json:"rejectByInternal,omitempty"`
	CancelCallByInternal  Origin        `json:"cancelCallByInternal,omitempty"`
}
