// Package livekit adapts a real LiveKit room session to callengine.MediaClient.
package livekit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/livekit/protocol/auth"
	lksdk "github.com/livekit/server-sdk-go/v2"
	"github.com/pion/webrtc/v4"
	"github.com/pion/webrtc/v4/pkg/media"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-server/internal/callengine"
)

// Client is a callengine.MediaClient backed by a LiveKit room. One Client
// serves one Engine across the lifetime of a single joined room.
type Client struct {
	apiKey    string
	apiSecret string
	wsURL     string
	log       *zerolog.Logger

	mu   sync.Mutex
	room *lksdk.Room

	onJoined     func(callengine.MediaUserJoined)
	onLeft       func(callengine.MediaUserLeft)
	onPublished  func(callengine.MediaUserPublished)
	onUnpublished func(callengine.MediaUserUnpublished)
}

// New builds a Client that mints its own room-join tokens from apiKey/apiSecret
// and connects to wsURL on Join.
func New(apiKey, apiSecret, wsURL string, log *zerolog.Logger) *Client {
	return &Client{apiKey: apiKey, apiSecret: apiSecret, wsURL: wsURL, log: log}
}

func (c *Client) OnUserJoined(fn func(callengine.MediaUserJoined))     { c.mu.Lock(); c.onJoined = fn; c.mu.Unlock() }
func (c *Client) OnUserLeft(fn func(callengine.MediaUserLeft))         { c.mu.Lock(); c.onLeft = fn; c.mu.Unlock() }
func (c *Client) OnUserPublished(fn func(callengine.MediaUserPublished)) {
	c.mu.Lock()
	c.onPublished = fn
	c.mu.Unlock()
}
func (c *Client) OnUserUnpublished(fn func(callengine.MediaUserUnpublished)) {
	c.mu.Lock()
	c.onUnpublished = fn
	c.mu.Unlock()
}

// Join connects to the LiveKit room named roomID. token is used verbatim if
// non-empty (e.g. minted by the server per §7); otherwise Client mints its own
// using apiKey/apiSecret, mirroring how the signaling side already does it for
// REST-issued join tokens.
func (c *Client) Join(ctx context.Context, appID, roomID, token, userID string) error {
	if token == "" {
		minted, err := c.mintToken(roomID, userID)
		if err != nil {
			return fmt.Errorf("mint room token: %w", err)
		}
		token = minted
	}

	cb := &lksdk.RoomCallback{
		ParticipantCallback: lksdk.ParticipantCallback{
			OnTrackPublished: func(pub *lksdk.RemoteTrackPublication, rp *lksdk.RemoteParticipant) {
				c.mu.Lock()
				fn := c.onPublished
				c.mu.Unlock()
				if fn != nil {
					fn(callengine.MediaUserPublished{
						User: callengine.RemoteUser{UID: rp.Identity()},
						Kind: kindOf(pub.Kind()),
					})
				}
			},
			OnTrackUnpublished: func(pub *lksdk.RemoteTrackPublication, rp *lksdk.RemoteParticipant) {
				c.mu.Lock()
				fn := c.onUnpublished
				c.mu.Unlock()
				if fn != nil {
					fn(callengine.MediaUserUnpublished{
						User: callengine.RemoteUser{UID: rp.Identity()},
						Kind: kindOf(pub.Kind()),
					})
				}
			},
		},
		OnParticipantConnected: func(rp *lksdk.RemoteParticipant) {
			c.mu.Lock()
			fn := c.onJoined
			c.mu.Unlock()
			if fn != nil {
				fn(callengine.MediaUserJoined{User: callengine.RemoteUser{UID: rp.Identity()}})
			}
		},
		OnParticipantDisconnected: func(rp *lksdk.RemoteParticipant) {
			c.mu.Lock()
			fn := c.onLeft
			c.mu.Unlock()
			if fn != nil {
				fn(callengine.MediaUserLeft{User: callengine.RemoteUser{UID: rp.Identity()}})
			}
		},
	}

	room, err := lksdk.ConnectToRoomWithToken(c.wsURL, token, cb)
	if err != nil {
		return fmt.Errorf("connect to room: %w", err)
	}

	c.mu.Lock()
	c.room = room
	c.mu.Unlock()
	return nil
}

func (c *Client) Leave(context.Context) error {
	c.mu.Lock()
	room := c.room
	c.room = nil
	c.mu.Unlock()
	if room != nil {
		room.Disconnect()
	}
	return nil
}

func (c *Client) Publish(ctx context.Context, tracks []callengine.Track) error {
	c.mu.Lock()
	room := c.room
	c.mu.Unlock()
	if room == nil {
		return fmt.Errorf("publish: not joined")
	}
	for _, t := range tracks {
		lt, ok := t.(*localTrack)
		if !ok || lt == nil {
			continue
		}
		pub, err := room.LocalParticipant.PublishTrack(lt.sample, &lksdk.TrackPublicationOptions{Name: string(lt.kind)})
		if err != nil {
			return fmt.Errorf("publish %s track: %w", lt.kind, err)
		}
		lt.mu.Lock()
		lt.publication = pub
		lt.participant = room.LocalParticipant
		lt.mu.Unlock()
	}
	return nil
}

func (c *Client) Subscribe(ctx context.Context, user callengine.RemoteUser, kind callengine.MediaKind) (callengine.Track, error) {
	c.mu.Lock()
	room := c.room
	c.mu.Unlock()
	if room == nil {
		return nil, fmt.Errorf("subscribe: not joined")
	}
	for _, rp := range room.GetRemoteParticipants() {
		if rp.Identity() != user.UID {
			continue
		}
		for _, pub := range rp.TrackPublications() {
			if kindOf(pub.Kind()) != kind {
				continue
			}
			remotePub, ok := pub.(*lksdk.RemoteTrackPublication)
			if !ok {
				continue
			}
			if !remotePub.IsSubscribed() {
				if err := remotePub.SetSubscribed(true); err != nil {
					return nil, fmt.Errorf("subscribe %s track: %w", kind, err)
				}
			}
			return newRemoteTrack(remotePub), nil
		}
	}
	return nil, fmt.Errorf("subscribe: no %s track from %s", kind, user.UID)
}

func (c *Client) Unsubscribe(ctx context.Context, user callengine.RemoteUser, kind callengine.MediaKind) error {
	c.mu.Lock()
	room := c.room
	c.mu.Unlock()
	if room == nil {
		return nil
	}
	for _, rp := range room.GetRemoteParticipants() {
		if rp.Identity() != user.UID {
			continue
		}
		for _, pub := range rp.TrackPublications() {
			if kindOf(pub.Kind()) != kind {
				continue
			}
			if remotePub, ok := pub.(*lksdk.RemoteTrackPublication); ok {
				return remotePub.SetSubscribed(false)
			}
		}
	}
	return nil
}

// CreateLocalTracks builds synthetic sample tracks via pion/webrtc. This
// engine never encodes real camera/microphone samples (out of scope, §1
// Non-goals); it writes silence/black-frame samples at the configured frame
// rate so the publish/subscribe plumbing and first-frame rendezvous behave
// like a live session end to end.
func (c *Client) CreateLocalTracks(ctx context.Context, video, audio callengine.TrackConfig) (callengine.Track, callengine.Track, error) {
	vTrack, err := webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeVP8}, "video", "callengine")
	if err != nil {
		return nil, nil, fmt.Errorf("create video track: %w", err)
	}
	aTrack, err := webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus}, "audio", "callengine")
	if err != nil {
		return nil, nil, fmt.Errorf("create audio track: %w", err)
	}

	frameRate := video.FrameRate
	if frameRate <= 0 {
		frameRate = 15
	}
	lv := newLocalTrack(vTrack, callengine.MediaKindVideo, time.Second/time.Duration(frameRate))
	la := newLocalTrack(aTrack, callengine.MediaKindAudio, 20*time.Millisecond)
	return lv, la, nil
}

func (c *Client) mintToken(roomID, userID string) (string, error) {
	at := auth.NewAccessToken(c.apiKey, c.apiSecret)
	grant := &auth.VideoGrant{RoomJoin: true, Room: roomID}
	at.SetVideoGrant(grant).SetIdentity(userID).SetValidFor(time.Hour)
	return at.ToJWT()
}

// CreateCall allocates a room name for callID/callType (callengine.RoomProvisioner).
// LiveKit rooms are created on demand by the first participant to join, so
// this just deterministically names the room; no API call is made.
func (c *Client) CreateCall(_ context.Context, callID, callType string) (string, error) {
	return fmt.Sprintf("callengine-%s-%s", callType, callID), nil
}

// EndCall is a no-op in development: LiveKit rooms auto-expire once empty.
// Production deployments would call lksdk.RoomServiceClient.DeleteRoom.
func (c *Client) EndCall(context.Context, string) error { return nil }

// GenerateJoinInfo mints the REST-facing credentials for userID/displayName to
// join roomID, without itself opening a room connection. Used by the calls
// REST surface to hand a client what it needs before the client's own engine
// calls MediaClient.Join.
func (c *Client) GenerateJoinInfo(_ context.Context, roomID, userID, displayName string) (*callengine.JoinInfo, error) {
	at := auth.NewAccessToken(c.apiKey, c.apiSecret)
	grant := &auth.VideoGrant{RoomJoin: true, Room: roomID}
	at.SetVideoGrant(grant).SetIdentity(userID).SetName(displayName).SetValidFor(time.Hour)
	token, err := at.ToJWT()
	if err != nil {
		return nil, fmt.Errorf("generate join info: %w", err)
	}
	return &callengine.JoinInfo{
		URL:      c.wsURL,
		Token:    token,
		RoomName: roomID,
		Identity: userID,
	}, nil
}

func kindOf(kind lksdk.TrackKind) callengine.MediaKind {
	if kind == lksdk.TrackKindAudio {
		return callengine.MediaKindAudio
	}
	return callengine.MediaKindVideo
}

// localTrack wraps a pion sample track plus a background sample-pump
// goroutine standing in for a real camera/microphone capture pipeline.
type localTrack struct {
	sample *webrtc.TrackLocalStaticSample
	kind   callengine.MediaKind
	period time.Duration

	mu          sync.Mutex
	publication *lksdk.LocalTrackPublication
	participant *lksdk.LocalParticipant
	playing     bool
	stopPump    func()
}

func newLocalTrack(sample *webrtc.TrackLocalStaticSample, kind callengine.MediaKind, period time.Duration) *localTrack {
	return &localTrack{sample: sample, kind: kind, period: period}
}

func (t *localTrack) Play(callengine.View) error {
	t.mu.Lock()
	if t.playing {
		t.mu.Unlock()
		return nil
	}
	t.playing = true
	stop := make(chan struct{})
	t.stopPump = func() { close(stop) }
	t.mu.Unlock()

	go t.pump(stop)
	return nil
}

// pump writes empty samples at the configured cadence, keeping the
// publication alive without a real encoder behind it.
func (t *localTrack) pump(stop chan struct{}) {
	ticker := time.NewTicker(t.period)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			_ = t.sample.WriteSample(media.Sample{Data: []byte{0}, Duration: t.period})
		}
	}
}

func (t *localTrack) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.playing && t.stopPump != nil {
		t.stopPump()
	}
	t.playing = false
}

func (t *localTrack) Close() error {
	t.Stop()
	t.mu.Lock()
	pub := t.publication
	participant := t.participant
	t.mu.Unlock()
	if pub != nil && participant != nil {
		return participant.UnpublishTrack(pub.SID())
	}
	return nil
}

func (t *localTrack) IsPlaying() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.playing
}

func (t *localTrack) OnFirstFrameDecoded(func()) {}

// remoteTrack wraps a subscribed LiveKit publication. "First frame decoded"
// (§4.3) is approximated as the first RTP packet observed on the underlying
// track, since this engine does not decode media itself.
type remoteTrack struct {
	pub *lksdk.RemoteTrackPublication

	mu      sync.Mutex
	playing bool
	onFrame func()
	started bool
}

func newRemoteTrack(pub *lksdk.RemoteTrackPublication) *remoteTrack {
	return &remoteTrack{pub: pub}
}

func (t *remoteTrack) Play(callengine.View) error {
	t.mu.Lock()
	t.playing = true
	t.mu.Unlock()
	t.startWatch()
	return nil
}

func (t *remoteTrack) Stop() {
	t.mu.Lock()
	t.playing = false
	t.mu.Unlock()
}

func (t *remoteTrack) Close() error { return nil }

func (t *remoteTrack) IsPlaying() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.playing
}

func (t *remoteTrack) OnFirstFrameDecoded(fn func()) {
	t.mu.Lock()
	t.onFrame = fn
	t.mu.Unlock()
	t.startWatch()
}

// startWatch reads the first RTP packet off the remote track and fires the
// first-frame-decoded callback exactly once, then returns.
func (t *remoteTrack) startWatch() {
	t.mu.Lock()
	if t.started {
		t.mu.Unlock()
		return
	}
	t.started = true
	t.mu.Unlock()

	track := t.pub.Track()
	remote, ok := track.(*webrtc.TrackRemote)
	if !ok || remote == nil {
		return
	}
	go func() {
		if _, _, err := remote.ReadRTP(); err != nil {
			return
		}
		t.mu.Lock()
		fn := t.onFrame
		t.mu.Unlock()
		if fn != nil {
			fn()
		}
	}()
}

var _ callengine.MediaClient = (*Client)(nil)
var _ callengine.RoomProvisioner = (*Client)(nil)
var _ callengine.Track = (*localTrack)(nil)
var _ callengine.Track = (*remoteTrack)(nil)
