package webrtc

import (
	"io"
	"strings"
	"sync"

	"avatarcall/internal/domain"

	pion "github.com/pion/webrtc/v4"
	"go.uber.org/zap"
)

var annexBStartCode = []byte{0x00, 0x00, 0x00, 0x01}

// TrackWriter is the remote video sink. H264 video is written to out as an
// Annex-B elementary stream; other tracks are read and discarded so their
// RTCP keeps flowing.
type TrackWriter struct {
	out io.Writer
	log *zap.SugaredLogger

	mu       sync.Mutex
	streamID string
	wg       sync.WaitGroup
}

// NewTrackWriter returns a sink writing H264 to out.
func NewTrackWriter(out io.Writer, log *zap.SugaredLogger) *TrackWriter {
	return &TrackWriter{out: out, log: log.Named("webrtc")}
}

// AttachRemote implements domain.RemoteSink.
func (w *TrackWriter) AttachRemote(streamID string, track domain.RemoteTrack) {
	w.mu.Lock()
	w.streamID = streamID
	w.mu.Unlock()

	codec := track.Codec()
	w.wg.Add(1)
	if track.Kind() == pion.RTPCodecTypeVideo && strings.EqualFold(codec.MimeType, pion.MimeTypeH264) {
		go w.readVideo(track)
		return
	}
	w.log.Infow("draining remote track", "stream", streamID, "kind", track.Kind().String(), "codec", codec.MimeType)
	go w.drain(track)
}

// StreamID returns the most recently attached remote stream.
func (w *TrackWriter) StreamID() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.streamID
}

// Wait blocks until every attached track has ended.
func (w *TrackWriter) Wait() {
	w.wg.Wait()
}

func (w *TrackWriter) readVideo(track domain.RemoteTrack) {
	defer w.wg.Done()
	w.log.Infow("reading H264 video track", "track", track.ID())

	depack := NewH264Depacketizer()
	for {
		pkt, _, err := track.ReadRTP()
		if err != nil {
			w.log.Infow("video track ended", "track", track.ID(), "error", err)
			return
		}

		for _, nalu := range depack.Depacketize(pkt.SequenceNumber, pkt.Payload) {
			if len(nalu) == 0 {
				continue
			}
			if err := w.writeNALU(nalu); err != nil {
				w.log.Warnw("write video", "error", err)
				return
			}
		}
	}
}

func (w *TrackWriter) writeNALU(nalu []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := w.out.Write(annexBStartCode); err != nil {
		return err
	}
	_, err := w.out.Write(nalu)
	return err
}

func (w *TrackWriter) drain(track domain.RemoteTrack) {
	defer w.wg.Done()
	for {
		if _, _, err := track.ReadRTP(); err != nil {
			return
		}
	}
}
