// Package session drives one call from Start to Stop: local capture, a
// single max-bundle offer, non-trickle ICE gathering, one signaling exchange
// and application of the patched answer.
//
// Every asynchronous step runs under the context created by Start. Stop
// cancels that context, so a step that finishes after Stop does nothing.
// Cancelling the context passed to Start stops the session.
package session

import (
	"context"
	"errors"
	"sync"

	"avatarcall/internal/domain"
	"avatarcall/internal/sdppatch"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Config wires a Session to its collaborators. Preview and Remote may be nil.
type Config struct {
	NewPeer  domain.PeerFactory
	Media    domain.MediaSource
	Signaler domain.Signaler
	Preview  domain.PreviewSink
	Remote   domain.RemoteSink
	Patch    sdppatch.Rules
	Log      *zap.SugaredLogger
}

// Session is one call attempt. It is not reusable: once stopped or failed,
// a new Session is needed.
type Session struct {
	cfg         Config
	log         *zap.SugaredLogger
	constraints domain.OfferConstraints

	mu          sync.Mutex
	dest        string
	state       domain.State
	peer        domain.Peer
	stream      domain.LocalStream
	ctx         context.Context
	cancel      context.CancelFunc
	offerSet    bool
	gathered    bool
	transmitted bool
	done        chan struct{}
}

// New creates a Session in the created state.
func New(cfg Config) *Session {
	log := cfg.Log
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Session{
		cfg:         cfg,
		log:         log.Named("session").With("session", uuid.NewString()),
		constraints: domain.DefaultOfferConstraints(),
		state:       domain.StateCreated,
		done:        make(chan struct{}),
	}
}

// Configure sets the destination used as the routing key of the signaling request.
func (s *Session) Configure(dest string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dest = dest
}

// Destination returns the configured destination.
func (s *Session) Destination() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dest
}

// State returns the current lifecycle state.
func (s *Session) State() domain.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Done is closed once the session is failed or stopped.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Start creates the peer connection and begins capture and negotiation in
// the background, until ctx is cancelled or Stop is called. Progress and failures are reported through logs, State
// and Done. Start fails with domain.ErrAlreadyStarted when a peer connection
// already exists.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.peer != nil {
		return domain.ErrAlreadyStarted
	}
	if s.state.Terminal() {
		return domain.ErrSessionClosed
	}
	if s.dest == "" {
		return domain.ErrNoDestination
	}

	peer, err := s.cfg.NewPeer()
	if err != nil {
		err = &domain.NegotiationError{Op: "create peer connection", Err: err}
		s.log.Errorw("start failed", "error", err)
		s.setStateLocked(domain.StateFailed)
		return err
	}

	peer.SetOnICECandidate(s.onICECandidate)
	peer.SetOnICEConnectionStateChange(s.onICEConnectionState)
	peer.SetOnTrack(s.onTrack)

	s.peer = peer
	s.ctx, s.cancel = context.WithCancel(ctx)
	context.AfterFunc(s.ctx, s.Stop)
	s.setStateLocked(domain.StateAcquiringMedia)

	s.log.Infow("starting getUserMedia", "destination", s.dest)
	go s.acquire(s.ctx, peer)
	return nil
}

// Stop closes the peer connection, stops local capture and cancels any
// outstanding step. It is a no-op when no peer connection exists.
func (s *Session) Stop() {
	s.mu.Lock()
	peer, stream, cancel := s.peer, s.stream, s.cancel
	if peer == nil {
		s.mu.Unlock()
		return
	}
	s.peer, s.stream = nil, nil
	cancel()
	s.setStateLocked(domain.StateStopped)
	s.mu.Unlock()

	if stream != nil {
		stream.Stop()
	}
	if err := peer.Close(); err != nil {
		s.log.Warnw("close peer connection", "error", err)
	}
	s.log.Infow("stopped")
}

func (s *Session) acquire(ctx context.Context, peer domain.Peer) {
	stream, err := s.cfg.Media.Acquire(ctx, domain.MediaRequest{Audio: true, Video: false})
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		var mediaErr *domain.MediaAcquisitionError
		if !errors.As(err, &mediaErr) {
			err = &domain.MediaAcquisitionError{Err: err}
		}
		s.log.Errorw("getUserMedia error", "error", err)
		s.fail(ctx)
		return
	}

	s.mu.Lock()
	if ctx.Err() != nil {
		s.mu.Unlock()
		stream.Stop()
		return
	}
	s.stream = stream
	s.mu.Unlock()

	s.log.Infow("got media", "stream", stream.ID())
	if s.cfg.Preview != nil {
		s.cfg.Preview.AttachLocal(stream)
	}

	if err := peer.AddStream(stream); err != nil {
		s.negotiationFailed(ctx, "add local stream", err)
		return
	}

	s.log.Debugw("creating offer", "constraints", s.constraints)
	if _, err := peer.CreateOffer(s.constraints); err != nil {
		s.negotiationFailed(ctx, "create offer", err)
		return
	}

	s.mu.Lock()
	if ctx.Err() != nil {
		s.mu.Unlock()
		return
	}
	s.offerSet = true
	s.setStateLocked(domain.StateOfferCreated)
	ready := s.claimTransmitLocked()
	dest := s.dest
	s.mu.Unlock()

	if ready {
		go s.transmit(ctx, peer, dest)
	}
}

func (s *Session) onICECandidate(c *domain.ICECandidate) {
	if c != nil {
		s.log.Debugw("ICE candidate", "candidate", c.Candidate, "mid", c.SDPMid, "mline", c.SDPMLineIndex)
		return
	}

	s.log.Infow("ICE candidates completed")

	s.mu.Lock()
	if s.peer == nil || s.gathered {
		s.mu.Unlock()
		return
	}
	s.gathered = true
	ready := s.claimTransmitLocked()
	ctx, peer, dest := s.ctx, s.peer, s.dest
	s.mu.Unlock()

	if ready {
		go s.transmit(ctx, peer, dest)
	}
}

// claimTransmitLocked reports whether the caller should run the signaling
// exchange. It returns true at most once per session, and only after the
// local offer is set and gathering has completed.
func (s *Session) claimTransmitLocked() bool {
	if !s.offerSet || !s.gathered || s.transmitted {
		return false
	}
	if s.state != domain.StateOfferCreated || s.ctx.Err() != nil {
		return false
	}
	s.transmitted = true
	s.setStateLocked(domain.StateICEComplete)
	return true
}

func (s *Session) transmit(ctx context.Context, peer domain.Peer, dest string) {
	offer := peer.LocalDescription()
	if offer == "" {
		s.negotiationFailed(ctx, "read local description", domain.ErrNoLocalDescription)
		return
	}
	s.log.Debugw("offer sdp", "sdp", offer)

	s.mu.Lock()
	if ctx.Err() != nil {
		s.mu.Unlock()
		return
	}
	s.setStateLocked(domain.StateAwaitingAnswer)
	s.mu.Unlock()

	answer, err := s.cfg.Signaler.Exchange(ctx, dest, offer)
	if ctx.Err() != nil {
		s.log.Infow("answer discarded, session stopped")
		return
	}
	if err != nil {
		s.log.Warnw("answer failed", "error", err)
		s.Stop()
		return
	}

	sdp := s.cfg.Patch.Apply(answer)
	s.log.Infow("answer SDP received", "bytes", len(sdp))
	s.log.Debugw("answer sdp", "sdp", sdp)
	if sum, err := sdppatch.Summarize(sdp); err == nil {
		s.log.Debugw("answer media", "media", sum.String())
	}

	if err := peer.SetRemoteDescription(sdp); err != nil {
		s.negotiationFailed(ctx, "set remote description", err)
		return
	}

	s.mu.Lock()
	if ctx.Err() == nil {
		s.setStateLocked(domain.StateConnected)
	}
	s.mu.Unlock()
	s.log.Infow("answer SDP accepted, media starting")
}

func (s *Session) onICEConnectionState(state string) {
	s.log.Infow("ICE connection state", "state", state)
}

func (s *Session) onTrack(evt domain.TrackEvent) {
	if len(evt.Streams) == 0 {
		s.log.Warnw("remote track added without streams", "track", trackID(evt.Track))
		return
	}

	s.mu.Lock()
	live := s.peer != nil
	s.mu.Unlock()
	if !live || s.cfg.Remote == nil {
		return
	}

	s.cfg.Remote.AttachRemote(evt.Streams[0], evt.Track)
	s.log.Infow("attached remote stream", "stream", evt.Streams[0], "track", trackID(evt.Track))
}

func trackID(t domain.RemoteTrack) string {
	if t == nil {
		return ""
	}
	return t.ID()
}

func (s *Session) negotiationFailed(ctx context.Context, op string, err error) {
	if ctx.Err() != nil {
		return
	}
	s.log.Errorw("negotiation failed", "error", &domain.NegotiationError{Op: op, Err: err})
	s.fail(ctx)
}

// fail marks the attempt failed. The peer connection stays open until Stop.
func (s *Session) fail(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ctx.Err() != nil {
		return
	}
	s.setStateLocked(domain.StateFailed)
}

// setStateLocked moves the session forward. Out of a terminal state only
// failed -> stopped is allowed.
func (s *Session) setStateLocked(next domain.State) {
	if next == s.state || next < s.state {
		return
	}
	if s.state.Terminal() && next != domain.StateStopped {
		return
	}
	s.log.Debugw("state", "from", s.state.String(), "to", next.String())
	wasTerminal := s.state.Terminal()
	s.state = next
	if next.Terminal() && !wasTerminal {
		close(s.done)
	}
}
