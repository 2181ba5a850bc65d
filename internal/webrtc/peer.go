package webrtc

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"avatarcall/internal/domain"

	"github.com/pion/interceptor"
	"github.com/pion/interceptor/pkg/intervalpli"
	"github.com/pion/interceptor/pkg/nack"
	"github.com/pion/logging"
	pion "github.com/pion/webrtc/v4"
	"go.uber.org/zap"
)

// Config holds what a Peer needs from the application configuration.
type Config struct {
	ICEServers    []ICEServer
	LoggerFactory logging.LoggerFactory

	// OnDrop, if set, runs once when the connection reaches failed or closed.
	OnDrop func()
}

// ICEServer holds STUN/TURN server configuration.
type ICEServer struct {
	URLs       []string `yaml:"urls"`
	Username   string   `yaml:"username,omitempty"`
	Credential string   `yaml:"credential,omitempty"`
}

// Peer wraps a Pion PeerConnection negotiated with a single max-bundle offer.
type Peer struct {
	pc     *pion.PeerConnection
	log    *zap.SugaredLogger
	onDrop func()

	dropOnce  sync.Once
	closeOnce sync.Once
	closeErr  error
}

// NewPeer creates a PeerConnection with the default codecs plus NACK and
// periodic PLI interceptors. It does not start gathering until CreateOffer.
func NewPeer(cfg Config, log *zap.SugaredLogger) (*Peer, error) {
	m := &pion.MediaEngine{}
	if err := m.RegisterDefaultCodecs(); err != nil {
		return nil, fmt.Errorf("register codecs: %w", err)
	}

	i := &interceptor.Registry{}
	responder, err := nack.NewResponderInterceptor()
	if err != nil {
		return nil, fmt.Errorf("create nack responder: %w", err)
	}
	i.Add(responder)

	generator, err := nack.NewGeneratorInterceptor()
	if err != nil {
		return nil, fmt.Errorf("create nack generator: %w", err)
	}
	i.Add(generator)

	pli, err := intervalpli.NewReceiverInterceptor()
	if err != nil {
		return nil, fmt.Errorf("create pli interceptor: %w", err)
	}
	i.Add(pli)

	s := pion.SettingEngine{}
	if cfg.LoggerFactory != nil {
		s.LoggerFactory = cfg.LoggerFactory
	}

	api := pion.NewAPI(
		pion.WithMediaEngine(m),
		pion.WithInterceptorRegistry(i),
		pion.WithSettingEngine(s),
	)

	var servers []pion.ICEServer
	for _, srv := range cfg.ICEServers {
		servers = append(servers, pion.ICEServer{
			URLs:       srv.URLs,
			Username:   srv.Username,
			Credential: srv.Credential,
		})
	}

	pc, err := api.NewPeerConnection(pion.Configuration{
		ICEServers:   servers,
		BundlePolicy: pion.BundlePolicyMaxBundle,
	})
	if err != nil {
		return nil, fmt.Errorf("create peer connection: %w", err)
	}

	p := &Peer{pc: pc, log: log.Named("webrtc"), onDrop: cfg.OnDrop}

	pc.OnConnectionStateChange(p.connectionStateChanged)
	pc.OnICEGatheringStateChange(func(state pion.ICEGatheringState) {
		p.log.Debugw("ICE gathering state", "state", state.String())
	})

	return p, nil
}

func (p *Peer) connectionStateChanged(state pion.PeerConnectionState) {
	p.log.Debugw("peer connection state", "state", state.String())
	switch state {
	case pion.PeerConnectionStateFailed, pion.PeerConnectionStateClosed:
		if p.onDrop == nil {
			return
		}
		p.dropOnce.Do(func() {
			p.log.Infow("peer connection dropped", "state", state.String())
			p.onDrop()
		})
	}
}

// Factory returns a domain.PeerFactory building peers from cfg.
func Factory(cfg Config, log *zap.SugaredLogger) domain.PeerFactory {
	return func() (domain.Peer, error) {
		return NewPeer(cfg, log)
	}
}

// SetOnICECandidate registers fn for local candidates. fn receives nil once gathering completes.
func (p *Peer) SetOnICECandidate(fn func(c *domain.ICECandidate)) {
	p.pc.OnICECandidate(func(c *pion.ICECandidate) {
		if c == nil {
			fn(nil)
			return
		}

		init := c.ToJSON()
		candidate := &domain.ICECandidate{Candidate: init.Candidate}
		if init.SDPMid != nil {
			candidate.SDPMid = *init.SDPMid
		}
		if init.SDPMLineIndex != nil {
			candidate.SDPMLineIndex = int(*init.SDPMLineIndex)
		}
		if isLoopback(candidate.Candidate) {
			p.log.Debugw("loopback ICE candidate", "candidate", candidate.Candidate)
		}
		fn(candidate)
	})
}

// SetOnICEConnectionStateChange registers fn for ICE connection state changes.
func (p *Peer) SetOnICEConnectionStateChange(fn func(state string)) {
	p.pc.OnICEConnectionStateChange(func(state pion.ICEConnectionState) {
		fn(state.String())
	})
}

// SetOnTrack registers fn for remote tracks. Streams lists the track's msid, if any.
func (p *Peer) SetOnTrack(fn func(evt domain.TrackEvent)) {
	p.pc.OnTrack(func(track *pion.TrackRemote, _ *pion.RTPReceiver) {
		codec := track.Codec()
		p.log.Infow("remote track", "kind", track.Kind().String(), "codec", codec.MimeType, "pt", codec.PayloadType)

		evt := domain.TrackEvent{Track: track}
		if id := track.StreamID(); id != "" {
			evt.Streams = []string{id}
		}
		fn(evt)
	})
}

// AddStream adds every local track of stream as an outbound sender.
func (p *Peer) AddStream(stream domain.LocalStream) error {
	for _, track := range stream.Tracks() {
		sender, err := p.pc.AddTrack(track)
		if err != nil {
			return fmt.Errorf("add %s track: %w", track.Kind(), err)
		}
		go drainRTCP(sender)
	}
	return nil
}

// drainRTCP reads sender RTCP so interceptors (NACK) keep running.
func drainRTCP(sender *pion.RTPSender) {
	buf := make([]byte, 1500)
	for {
		if _, _, err := sender.Read(buf); err != nil {
			return
		}
	}
}

// CreateOffer creates an SDP offer and sets it as the local description.
// Receive constraints are met with recvonly transceivers for kinds that
// have no local sender.
func (p *Peer) CreateOffer(constraints domain.OfferConstraints) (string, error) {
	if constraints.OfferToReceiveAudio {
		if err := p.ensureReceiver(pion.RTPCodecTypeAudio); err != nil {
			return "", err
		}
	}
	if constraints.OfferToReceiveVideo {
		if err := p.ensureReceiver(pion.RTPCodecTypeVideo); err != nil {
			return "", err
		}
	}

	offer, err := p.pc.CreateOffer(&pion.OfferOptions{
		OfferAnswerOptions: pion.OfferAnswerOptions{
			VoiceActivityDetection: constraints.VoiceActivityDetection,
		},
	})
	if err != nil {
		return "", fmt.Errorf("create offer: %w", err)
	}

	if err := p.pc.SetLocalDescription(offer); err != nil {
		return "", fmt.Errorf("set local description: %w", err)
	}

	p.log.Debugw("local SDP offer set", "bytes", len(offer.SDP))
	return offer.SDP, nil
}

func (p *Peer) ensureReceiver(kind pion.RTPCodecType) error {
	for _, t := range p.pc.GetTransceivers() {
		if t.Kind() == kind {
			return nil
		}
	}
	_, err := p.pc.AddTransceiverFromKind(kind, pion.RTPTransceiverInit{
		Direction: pion.RTPTransceiverDirectionRecvonly,
	})
	if err != nil {
		return fmt.Errorf("add %s transceiver: %w", kind, err)
	}
	return nil
}

// LocalDescription returns the current local SDP including gathered candidates.
func (p *Peer) LocalDescription() string {
	desc := p.pc.LocalDescription()
	if desc == nil {
		return ""
	}
	return desc.SDP
}

// SetRemoteDescription applies sdp as the remote answer.
func (p *Peer) SetRemoteDescription(sdp string) error {
	answer := pion.SessionDescription{
		Type: pion.SDPTypeAnswer,
		SDP:  sdp,
	}

	if err := p.pc.SetRemoteDescription(answer); err != nil {
		return fmt.Errorf("set remote description: %w", err)
	}

	p.log.Debugw("remote SDP answer set")
	return nil
}

// Close shuts down the PeerConnection. Later calls return the first result.
func (p *Peer) Close() error {
	p.closeOnce.Do(func() {
		p.closeErr = p.pc.Close()
		if errors.Is(p.closeErr, pion.ErrConnectionClosed) {
			p.closeErr = nil
		}
	})
	return p.closeErr
}

func isLoopback(candidate string) bool {
	return strings.Contains(candidate, "127.0.0.1") || strings.Contains(candidate, "::1 ")
}
