package callengine

import "fmt"

// CallError is the payload carried by the callError observation stream (§7).
// It never carries sensitive fields (tokens, view handles) — see §7.
type CallError struct {
	Event   string
	Kind    ErrorKind
	Code    string
	Message string
	cause   error
}

func (e *CallError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s [%s/%s]: %v", e.Message, e.Kind, e.Code, e.cause)
	}
	return fmt.Sprintf("%s [%s/%s]", e.Message, e.Kind, e.Code)
}

func (e *CallError) Unwrap() error {
	return e.cause
}

func newRTCError(event string, cause error) *CallError {
	return &CallError{Event: event, Kind: ErrorKindRTC, Code: "rtcOccurError", Message: "media operation failed", cause: cause}
}

func newMessageError(event string, cause error) *CallError {
	return &CallError{Event: event, Kind: ErrorKindMessage, Code: "sendMessageFail", Message: "signaling send failed", cause: cause}
}

// StateMismatchError is returned by command handlers when a precondition in
// §4.1 is violated. It is a programmer error, not a runtime fault, so it is
// never wrapped into a CallError (§7).
type StateMismatchError struct {
	Command string
	State   CallState
}

func (e *StateMismatchError) Error() string {
	return fmt.Sprintf("callengine: %s is not valid in state %s", e.Command, e.State)
}
