// Package media provides the local capture side of a call: an Opus audio
// track fed from an Ogg file or from silence, and the preview sink.
package media

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"avatarcall/internal/domain"

	"github.com/google/uuid"
	pion "github.com/pion/webrtc/v4"
	pionmedia "github.com/pion/webrtc/v4/pkg/media"
	"go.uber.org/zap"
)

const frameDuration = 20 * time.Millisecond

// Capturer opens the local "microphone". Without an audio file it sends
// Opus silence so the remote side still sees a live sender.
type Capturer struct {
	audioFile string
	log       *zap.SugaredLogger
}

// NewCapturer returns a capturer. audioFile may be empty.
func NewCapturer(audioFile string, log *zap.SugaredLogger) *Capturer {
	return &Capturer{audioFile: audioFile, log: log.Named("media")}
}

// Acquire implements domain.MediaSource. Only audio capture is supported.
func (c *Capturer) Acquire(ctx context.Context, req domain.MediaRequest) (domain.LocalStream, error) {
	if err := ctx.Err(); err != nil {
		return nil, &domain.MediaAcquisitionError{Err: err}
	}
	if req.Video {
		return nil, &domain.MediaAcquisitionError{Err: domain.ErrVideoUnsupported}
	}
	if !req.Audio {
		return nil, &domain.MediaAcquisitionError{Err: errors.New("no media kind requested")}
	}

	var src sampleSource = silenceSource{}
	if c.audioFile != "" {
		ogg, err := openOggSource(c.audioFile)
		if err != nil {
			return nil, &domain.MediaAcquisitionError{Err: err}
		}
		src = ogg
	}

	id := uuid.NewString()
	track, err := pion.NewTrackLocalStaticSample(
		pion.RTPCodecCapability{MimeType: pion.MimeTypeOpus, ClockRate: 48000, Channels: 2},
		"audio",
		id,
	)
	if err != nil {
		src.Close()
		return nil, &domain.MediaAcquisitionError{Err: fmt.Errorf("create audio track: %w", err)}
	}

	s := &Stream{
		id:    id,
		audio: track,
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
		log:   c.log.With("stream", id),
	}
	go s.pump(src)

	c.log.Infow("audio capture started", "stream", id, "source", src.Name())
	return s, nil
}

// Stream is a live local capture holding one Opus audio track.
type Stream struct {
	id    string
	audio *pion.TrackLocalStaticSample
	log   *zap.SugaredLogger

	once sync.Once
	stop chan struct{}
	done chan struct{}
}

// ID returns the stream's msid.
func (s *Stream) ID() string { return s.id }

// Tracks returns the stream's local tracks.
func (s *Stream) Tracks() []pion.TrackLocal {
	return []pion.TrackLocal{s.audio}
}

// Stop ends capture and waits for the pump to exit. Safe to call repeatedly.
func (s *Stream) Stop() {
	s.once.Do(func() {
		close(s.stop)
		<-s.done
		s.log.Infow("audio capture stopped")
	})
}

func (s *Stream) pump(src sampleSource) {
	defer close(s.done)
	defer src.Close()

	ticker := time.NewTicker(frameDuration)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
		}

		sample, err := src.Next()
		if err != nil {
			s.log.Warnw("audio source ended", "error", err)
			return
		}
		if err := s.audio.WriteSample(sample); err != nil {
			s.log.Debugw("write sample", "error", err)
		}
	}
}

// sampleSource yields successive Opus frames.
type sampleSource interface {
	Name() string
	Next() (pionmedia.Sample, error)
	Close() error
}

// silenceFrame is a single 20 ms Opus packet carrying digital silence.
var silenceFrame = []byte{0xf8, 0xff, 0xfe}

type silenceSource struct{}

func (silenceSource) Name() string { return "silence" }

func (silenceSource) Next() (pionmedia.Sample, error) {
	return pionmedia.Sample{Data: silenceFrame, Duration: frameDuration}, nil
}

func (silenceSource) Close() error { return nil }
