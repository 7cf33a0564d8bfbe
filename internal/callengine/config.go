package callengine

import "time"

// View is an opaque surface handle the application mounts rendered media
// into. In a browser target this would be a DOM container; here it is any
// application-provided "mount point" — see §9 "Opaque view handles."
type View interface {
	Mount(child any)
	Clear()
}

// TrackConfig holds capture parameters for one media kind. Fields are opaque
// to the engine; they are forwarded to the media adapter unexamined.
type TrackConfig struct {
	Width      int
	Height     int
	FrameRate  int
	Bitrate    int
	SampleRate int
}

// PrepareConfig configures the engine before any call is placed (§3). It is
// sticky across calls unless overridden by a later prepareForCall.
//
// AutoAccept and FirstFrameWaittingDisabled are *bool rather than bool so
// merge can tell "caller left this unset" (nil, stays sticky) apart from
// "caller explicitly set it to false" (overrides the sticky value). Use
// Bool(v) to build a non-nil pointer for a literal.
type PrepareConfig struct {
	RoomID                     string
	RTCToken                   string
	LocalView                  View
	RemoteView                 View
	AutoAccept                 *bool
	CallTimeoutMillisecond     time.Duration
	FirstFrameWaittingDisabled *bool
	VideoConfig                TrackConfig
	AudioConfig                TrackConfig
}

// Bool returns a pointer to v, for populating PrepareConfig's tri-state
// boolean fields from a literal.
func Bool(v bool) *bool { return &v }

// merge overlays non-zero fields of other onto c, matching prepareForCall's
// "merges config over existing" semantics (§4.1).
func (c *PrepareConfig) merge(other PrepareConfig) {
	if other.RoomID != "" {
		c.RoomID = other.RoomID
	}
	if other.RTCToken != "" {
		c.RTCToken = other.RTCToken
	}
	if other.LocalView != nil {
		c.LocalView = other.LocalView
	}
	if other.RemoteView != nil {
		c.RemoteView = other.RemoteView
	}
	if other.AutoAccept != nil {
		c.AutoAccept = other.AutoAccept
	}
	if other.CallTimeoutMillisecond != 0 {
		c.CallTimeoutMillisecond = other.CallTimeoutMillisecond
	}
	if other.FirstFrameWaittingDisabled != nil {
		c.FirstFrameWaittingDisabled = other.FirstFrameWaittingDisabled
	}
	if (other.VideoConfig != TrackConfig{}) {
		c.VideoConfig = other.VideoConfig
	}
	if (other.AudioConfig != TrackConfig{}) {
		c.AudioConfig = other.AudioConfig
	}
}

// autoAccept reports the effective AutoAccept value, defaulting to false
// when unset.
func (c *PrepareConfig) autoAccept() bool {
	return c.AutoAccept != nil && *c.AutoAccept
}

// firstFrameWaitingDisabled reports the effective
// FirstFrameWaittingDisabled value, defaulting to false when unset.
func (c *PrepareConfig) firstFrameWaitingDisabled() bool {
	return c.FirstFrameWaittingDisabled != nil && *c.FirstFrameWaittingDisabled
}

const defaultCallTimeout = 45 * time.Second
