package domain

import (
	"context"

	"github.com/pion/interceptor"
	"github.com/pion/rtp"
	pion "github.com/pion/webrtc/v4"
)

// Signaler performs the one-shot offer/answer exchange with the signaling endpoint.
type Signaler interface {
	Exchange(ctx context.Context, destination, offerSDP string) (answerSDP string, err error)
}

// MediaSource opens local capture devices.
type MediaSource interface {
	Acquire(ctx context.Context, req MediaRequest) (LocalStream, error)
}

// LocalStream is a live local capture. Stop releases the underlying device.
type LocalStream interface {
	ID() string
	Tracks() []pion.TrackLocal
	Stop()
}

// RemoteTrack is an inbound media track. *pion.TrackRemote satisfies it.
type RemoteTrack interface {
	ID() string
	StreamID() string
	Kind() pion.RTPCodecType
	Codec() pion.RTPCodecParameters
	ReadRTP() (*rtp.Packet, interceptor.Attributes, error)
}

// TrackEvent is delivered when the remote side adds a track.
type TrackEvent struct {
	Track   RemoteTrack
	Streams []string
}

// PreviewSink shows the local capture.
type PreviewSink interface {
	AttachLocal(stream LocalStream)
}

// RemoteSink renders remote media.
type RemoteSink interface {
	AttachRemote(streamID string, track RemoteTrack)
}

// Peer manages the WebRTC peer connection.
type Peer interface {
	SetOnICECandidate(fn func(c *ICECandidate))
	SetOnICEConnectionStateChange(fn func(state string))
	SetOnTrack(fn func(evt TrackEvent))
	AddStream(stream LocalStream) error
	CreateOffer(constraints OfferConstraints) (string, error)
	LocalDescription() string
	SetRemoteDescription(sdp string) error
	Close() error
}

// PeerFactory builds a new, unconnected Peer.
type PeerFactory func() (Peer, error)
