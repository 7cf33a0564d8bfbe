package callengine

import "context"

// RoomProvisioner is the REST-facing surface a call's bookkeeping layer needs
// before any Engine is involved: allocate an external media room for a call
// record, tear it down, and mint join credentials for a participant. It is
// deliberately independent of Engine/MediaClient — a call can be provisioned
// (and its REST join-info endpoint served) before either peer's signaling
// engine ever touches the room.
type RoomProvisioner interface {
	// CreateCall allocates an external room for callID/callType and returns its
	// identifier.
	CreateCall(ctx context.Context, callID, callType string) (externalRoomID string, err error)
	// EndCall releases the external room. Idempotent.
	EndCall(ctx context.Context, externalRoomID string) error
	// GenerateJoinInfo mints join credentials for userID/displayName to join
	// externalRoomID.
	GenerateJoinInfo(ctx context.Context, externalRoomID, userID, displayName string) (*JoinInfo, error)
}
