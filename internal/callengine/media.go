package callengine

import "context"

// MediaKind distinguishes audio from video tracks on the media plane (§6).
type MediaKind string

const (
	MediaKindAudio MediaKind = "audio"
	MediaKindVideo MediaKind = "video"
)

// RemoteUser identifies a participant as seen by the media client (§6).
type RemoteUser struct {
	UID string
}

// Track is a published or subscribed media track (§6).
type Track interface {
	Play(target View) error
	Stop()
	Close() error
	IsPlaying() bool
	// OnFirstFrameDecoded registers a callback fired once for the first decoded
	// frame on a remote video track (§4.3). No-op on tracks that don't support it.
	OnFirstFrameDecoded(func())
}

// MediaUserJoined, MediaUserLeft, MediaUserPublished, MediaUserUnpublished are
// the media-plane event payloads the engine subscribes to (§4.3, §6).
type MediaUserJoined struct{ User RemoteUser }
type MediaUserLeft struct{ User RemoteUser }
type MediaUserPublished struct {
	User RemoteUser
	Kind MediaKind
}
type MediaUserUnpublished struct {
	User RemoteUser
	Kind MediaKind
}

// MediaClient abstracts the real-time media backend: join/leave a channel,
// publish local tracks, subscribe to remote tracks, and emit lifecycle events
// (§6). The engine owns exactly one MediaClient instance, given at
// construction and reused across all of its calls.
type MediaClient interface {
	// Join connects to the media channel. appID is opaque (forwarded to the
	// backend, e.g. a LiveKit project/app identifier); roomID/token/userID come
	// from PrepareConfig.
	Join(ctx context.Context, appID, roomID, token, userID string) error
	// Leave disconnects from the media channel.
	Leave(ctx context.Context) error
	// Publish publishes the given local tracks.
	Publish(ctx context.Context, tracks []Track) error
	// Subscribe subscribes to a remote user's track of the given kind and
	// returns the resulting Track handle.
	Subscribe(ctx context.Context, user RemoteUser, kind MediaKind) (Track, error)
	// Unsubscribe releases a previously subscribed track.
	Unsubscribe(ctx context.Context, user RemoteUser, kind MediaKind) error

	// CreateLocalTracks builds local audio/video tracks per the given configs,
	// ready to Publish.
	CreateLocalTracks(ctx context.Context, video, audio TrackConfig) (videoTrack, audioTrack Track, err error)

	OnUserJoined(func(MediaUserJoined))
	OnUserLeft(func(MediaUserLeft))
	OnUserPublished(func(MediaUserPublished))
	OnUserUnpublished(func(MediaUserUnpublished))
}
