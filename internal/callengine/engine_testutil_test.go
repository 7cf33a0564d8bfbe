package callengine

import (
	"context"
	"sync"
)

// fakeBus wires two users' transports and media clients together in-memory so
// tests can run both sides of a call without a real network or SFU.
type fakeBus struct {
	mu         sync.Mutex
	transports map[string]*fakeTransport
	media      map[string]*fakeMedia
}

func newFakeBus() *fakeBus {
	return &fakeBus{
		transports: make(map[string]*fakeTransport),
		media:      make(map[string]*fakeMedia),
	}
}

func (b *fakeBus) transportFor(userID string) *fakeTransport {
	b.mu.Lock()
	defer b.mu.Unlock()
	t := &fakeTransport{bus: b, userID: userID}
	b.transports[userID] = t
	return t
}

func (b *fakeBus) mediaFor(userID string) *fakeMedia {
	b.mu.Lock()
	defer b.mu.Unlock()
	m := &fakeMedia{bus: b, userID: userID}
	b.media[userID] = m
	return m
}

type fakeTransport struct {
	bus      *fakeBus
	userID   string
	mu       sync.Mutex
	onRecv   func(string)
	sent     []string
	failNext bool
}

func (t *fakeTransport) OnMessageReceive(fn func(string)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onRecv = fn
}

func (t *fakeTransport) SendMessage(_ context.Context, userID string, payload string) error {
	t.mu.Lock()
	t.sent = append(t.sent, payload)
	t.mu.Unlock()

	t.bus.mu.Lock()
	dest := t.bus.transports[userID]
	t.bus.mu.Unlock()
	if dest == nil {
		return nil
	}
	dest.mu.Lock()
	handler := dest.onRecv
	dest.mu.Unlock()
	if handler != nil {
		handler(payload)
	}
	return nil
}

// fakeTrack is a no-op Track that can simulate first-frame decode.
type fakeTrack struct {
	mu       sync.Mutex
	playing  bool
	closed   bool
	onFrame  func()
}

func (tr *fakeTrack) Play(View) error {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.playing = true
	return nil
}
func (tr *fakeTrack) Stop() {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.playing = false
}
func (tr *fakeTrack) Close() error {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.closed = true
	tr.playing = false
	return nil
}
func (tr *fakeTrack) IsPlaying() bool {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return tr.playing
}
func (tr *fakeTrack) OnFirstFrameDecoded(fn func()) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.onFrame = fn
}
func (tr *fakeTrack) triggerFirstFrame() {
	tr.mu.Lock()
	fn := tr.onFrame
	tr.mu.Unlock()
	if fn != nil {
		fn()
	}
}

type fakeView struct {
	mu      sync.Mutex
	mounted []any
}

func (v *fakeView) Mount(child any) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.mounted = append(v.mounted, child)
}
func (v *fakeView) Clear() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.mounted = nil
}

type fakeMedia struct {
	bus    *fakeBus
	userID string

	mu        sync.Mutex
	joined    bool
	onJoined  func(MediaUserJoined)
	onLeft    func(MediaUserLeft)
	onPub     func(MediaUserPublished)
	onUnpub   func(MediaUserUnpublished)
	video     *fakeTrack
	audio     *fakeTrack
}

func (m *fakeMedia) OnUserJoined(fn func(MediaUserJoined))         { m.mu.Lock(); m.onJoined = fn; m.mu.Unlock() }
func (m *fakeMedia) OnUserLeft(fn func(MediaUserLeft))             { m.mu.Lock(); m.onLeft = fn; m.mu.Unlock() }
func (m *fakeMedia) OnUserPublished(fn func(MediaUserPublished))   { m.mu.Lock(); m.onPub = fn; m.mu.Unlock() }
func (m *fakeMedia) OnUserUnpublished(fn func(MediaUserUnpublished)) {
	m.mu.Lock()
	m.onUnpub = fn
	m.mu.Unlock()
}

func (m *fakeMedia) peers() []*fakeMedia {
	m.bus.mu.Lock()
	defer m.bus.mu.Unlock()
	var out []*fakeMedia
	for id, p := range m.bus.media {
		if id != m.userID {
			out = append(out, p)
		}
	}
	return out
}

func (m *fakeMedia) Join(_ context.Context, _, _, _, _ string) error {
	m.mu.Lock()
	m.joined = true
	m.mu.Unlock()
	for _, p := range m.peers() {
		p.mu.Lock()
		fn := p.onJoined
		p.mu.Unlock()
		if fn != nil {
			fn(MediaUserJoined{User: RemoteUser{UID: m.userID}})
		}
	}
	return nil
}

func (m *fakeMedia) Leave(context.Context) error {
	m.mu.Lock()
	m.joined = false
	m.mu.Unlock()
	for _, p := range m.peers() {
		p.mu.Lock()
		fn := p.onLeft
		p.mu.Unlock()
		if fn != nil {
			fn(MediaUserLeft{User: RemoteUser{UID: m.userID}})
		}
	}
	return nil
}

func (m *fakeMedia) CreateLocalTracks(_ context.Context, _, _ TrackConfig) (Track, Track, error) {
	v, a := &fakeTrack{}, &fakeTrack{}
	m.mu.Lock()
	m.video, m.audio = v, a
	m.mu.Unlock()
	return v, a, nil
}

func (m *fakeMedia) Publish(_ context.Context, _ []Track) error {
	for _, p := range m.peers() {
		p.mu.Lock()
		fn := p.onPub
		p.mu.Unlock()
		if fn != nil {
			fn(MediaUserPublished{User: RemoteUser{UID: m.userID}, Kind: MediaKindVideo})
			fn(MediaUserPublished{User: RemoteUser{UID: m.userID}, Kind: MediaKindAudio})
		}
	}
	return nil
}

func (m *fakeMedia) Subscribe(_ context.Context, user RemoteUser, kind MediaKind) (Track, error) {
	m.bus.mu.Lock()
	remote := m.bus.media[user.UID]
	m.bus.mu.Unlock()
	if remote == nil {
		return &fakeTrack{}, nil
	}
	remote.mu.Lock()
	defer remote.mu.Unlock()
	if kind == MediaKindVideo {
		return remote.video, nil
	}
	return remote.audio, nil
}

func (m *fakeMedia) Unsubscribe(context.Context, RemoteUser, MediaKind) error { return nil }
