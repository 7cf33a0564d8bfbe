package callengine

import "github.com/google/uuid"

// newUUID generates a fresh call id. The caller in call() propagates it
// verbatim to the callee's callId slot on receipt of the initial invite (§3).
func newUUID() string {
	return uuid.New().String()
}
