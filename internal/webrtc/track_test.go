package webrtc

import (
	"bytes"
	"io"
	"sync"
	"testing"

	"github.com/pion/interceptor"
	"github.com/pion/rtp"
	pion "github.com/pion/webrtc/v4"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

// fakeTrack replays a fixed set of packets and then reports EOF.
type fakeTrack struct {
	kind    pion.RTPCodecType
	mime    string
	mu      sync.Mutex
	packets []*rtp.Packet
}

func (f *fakeTrack) ID() string              { return "track-1" }
func (f *fakeTrack) StreamID() string        { return "remote-stream" }
func (f *fakeTrack) Kind() pion.RTPCodecType { return f.kind }
func (f *fakeTrack) Codec() pion.RTPCodecParameters {
	return pion.RTPCodecParameters{RTPCodecCapability: pion.RTPCodecCapability{MimeType: f.mime}}
}

func (f *fakeTrack) ReadRTP() (*rtp.Packet, interceptor.Attributes, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.packets) == 0 {
		return nil, nil, io.EOF
	}
	pkt := f.packets[0]
	f.packets = f.packets[1:]
	return pkt, nil, nil
}

func packet(seq uint16, payload ...byte) *rtp.Packet {
	return &rtp.Packet{Header: rtp.Header{SequenceNumber: seq}, Payload: payload}
}

func TestTrackWriter_WritesAnnexB(t *testing.T) {
	var out bytes.Buffer
	w := NewTrackWriter(&out, zap.NewNop().Sugar())

	w.AttachRemote("remote-stream", &fakeTrack{
		kind: pion.RTPCodecTypeVideo,
		mime: pion.MimeTypeH264,
		packets: []*rtp.Packet{
			packet(1, 0x67, 0x01),
			packet(2, 0x7C, 0x85, 0xAA),
			packet(3, 0x7C, 0x45, 0xBB),
		},
	})
	w.Wait()

	want := []byte{
		0, 0, 0, 1, 0x67, 0x01,
		0, 0, 0, 1, 0x65, 0xAA, 0xBB,
	}
	assert.Equal(t, want, out.Bytes())
	assert.Equal(t, "remote-stream", w.StreamID())
}

func TestTrackWriter_DrainsAudio(t *testing.T) {
	var out bytes.Buffer
	w := NewTrackWriter(&out, zap.NewNop().Sugar())

	track := &fakeTrack{
		kind:    pion.RTPCodecTypeAudio,
		mime:    pion.MimeTypeOpus,
		packets: []*rtp.Packet{packet(1, 0xf8, 0xff, 0xfe), packet(2, 0xf8, 0xff, 0xfe)},
	}
	w.AttachRemote("remote-stream", track)
	w.Wait()

	assert.Zero(t, out.Len())
	assert.Empty(t, track.packets)
}
