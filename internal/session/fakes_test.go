package session

import (
	"context"
	"sync"

	"avatarcall/internal/domain"

	"github.com/pion/interceptor"
	"github.com/pion/rtp"
	pion "github.com/pion/webrtc/v4"
)

// fakePeer records calls and lets tests fire the peer-connection events.
type fakePeer struct {
	mu sync.Mutex

	onCandidate func(*domain.ICECandidate)
	onState     func(string)
	onTrack     func(domain.TrackEvent)

	offerSDP     string
	offerErr     error
	remoteErr    error
	added        []domain.LocalStream
	constraints  []domain.OfferConstraints
	remoteSDPs   []string
	closeCalls   int
	offerCreated chan struct{}
}

func newFakePeer(offer string) *fakePeer {
	return &fakePeer{offerSDP: offer, offerCreated: make(chan struct{}, 1)}
}

func (p *fakePeer) SetOnICECandidate(fn func(*domain.ICECandidate)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onCandidate = fn
}

func (p *fakePeer) SetOnICEConnectionStateChange(fn func(string)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onState = fn
}

func (p *fakePeer) SetOnTrack(fn func(domain.TrackEvent)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onTrack = fn
}

func (p *fakePeer) AddStream(stream domain.LocalStream) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.added = append(p.added, stream)
	return nil
}

func (p *fakePeer) CreateOffer(c domain.OfferConstraints) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.constraints = append(p.constraints, c)
	if p.offerErr != nil {
		return "", p.offerErr
	}
	p.offerCreated <- struct{}{}
	return p.offerSDP, nil
}

func (p *fakePeer) LocalDescription() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.constraints) == 0 || p.offerErr != nil {
		return ""
	}
	return p.offerSDP
}

func (p *fakePeer) SetRemoteDescription(sdp string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.remoteSDPs = append(p.remoteSDPs, sdp)
	return p.remoteErr
}

func (p *fakePeer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closeCalls++
	return nil
}

func (p *fakePeer) candidate(c *domain.ICECandidate) {
	p.mu.Lock()
	fn := p.onCandidate
	p.mu.Unlock()
	fn(c)
}

func (p *fakePeer) track(evt domain.TrackEvent) {
	p.mu.Lock()
	fn := p.onTrack
	p.mu.Unlock()
	fn(evt)
}

func (p *fakePeer) iceState(state string) {
	p.mu.Lock()
	fn := p.onState
	p.mu.Unlock()
	fn(state)
}

func (p *fakePeer) remote() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.remoteSDPs...)
}

func (p *fakePeer) closed() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closeCalls
}

// peerFactory hands out one fakePeer and counts constructions.
type peerFactory struct {
	mu    sync.Mutex
	peer  *fakePeer
	err   error
	built int
}

func (f *peerFactory) New() (domain.Peer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.built++
	if f.err != nil {
		return nil, f.err
	}
	return f.peer, nil
}

func (f *peerFactory) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.built
}

type stubStream struct {
	mu      sync.Mutex
	stopped int
}

func (s *stubStream) ID() string                { return "stub-stream" }
func (s *stubStream) Tracks() []pion.TrackLocal { return nil }
func (s *stubStream) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped++
}

func (s *stubStream) stops() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

// fakeMedia returns stream, or err. When gate is set it waits for it first.
type fakeMedia struct {
	stream *stubStream
	err    error
	gate   chan struct{}

	mu       sync.Mutex
	requests []domain.MediaRequest
}

func (m *fakeMedia) Acquire(ctx context.Context, req domain.MediaRequest) (domain.LocalStream, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()

	if m.gate != nil {
		select {
		case <-m.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if m.err != nil {
		return nil, m.err
	}
	return m.stream, nil
}

// fakeSignaler answers every exchange with answer/err. When release is set
// it blocks on it, ignoring ctx, to model a late response.
type fakeSignaler struct {
	answer  string
	err     error
	release chan struct{}

	mu     sync.Mutex
	calls  []string
	offers []string
	called chan struct{}
}

func newFakeSignaler(answer string) *fakeSignaler {
	return &fakeSignaler{answer: answer, called: make(chan struct{}, 4)}
}

func (s *fakeSignaler) Exchange(ctx context.Context, destination, offerSDP string) (string, error) {
	s.mu.Lock()
	s.calls = append(s.calls, destination)
	s.offers = append(s.offers, offerSDP)
	s.mu.Unlock()
	s.called <- struct{}{}

	if s.release != nil {
		<-s.release
	}
	return s.answer, s.err
}

func (s *fakeSignaler) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

type fakeRemoteSink struct {
	mu       sync.Mutex
	attached []string
}

func (r *fakeRemoteSink) AttachRemote(streamID string, _ domain.RemoteTrack) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attached = append(r.attached, streamID)
}

func (r *fakeRemoteSink) streams() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.attached...)
}

type fakePreview struct {
	mu     sync.Mutex
	stream string
}

func (p *fakePreview) AttachLocal(stream domain.LocalStream) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stream = stream.ID()
}

func (p *fakePreview) id() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stream
}

type nullTrack struct{}

func (nullTrack) ID() string                     { return "remote-track" }
func (nullTrack) StreamID() string               { return "" }
func (nullTrack) Kind() pion.RTPCodecType        { return pion.RTPCodecTypeVideo }
func (nullTrack) Codec() pion.RTPCodecParameters { return pion.RTPCodecParameters{} }
func (nullTrack) ReadRTP() (*rtp.Packet, interceptor.Attributes, error) {
	return nil, nil, context.Canceled
}
