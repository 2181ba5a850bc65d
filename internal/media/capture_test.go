package media

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"avatarcall/internal/domain"

	"github.com/google/uuid"
	"github.com/pion/rtp"
	pion "github.com/pion/webrtc/v4"
	"github.com/pion/webrtc/v4/pkg/media/oggwriter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestAcquire_SilenceAudio(t *testing.T) {
	c := NewCapturer("", zap.NewNop().Sugar())

	stream, err := c.Acquire(context.Background(), domain.MediaRequest{Audio: true})
	require.NoError(t, err)

	_, err = uuid.Parse(stream.ID())
	assert.NoError(t, err, "stream id is a uuid")

	tracks := stream.Tracks()
	require.Len(t, tracks, 1)
	assert.Equal(t, pion.RTPCodecTypeAudio, tracks[0].Kind())
	assert.Equal(t, stream.ID(), tracks[0].StreamID())

	stream.Stop()
	stream.Stop()
}

func TestAcquire_VideoRejected(t *testing.T) {
	c := NewCapturer("", zap.NewNop().Sugar())

	_, err := c.Acquire(context.Background(), domain.MediaRequest{Audio: true, Video: true})

	var mediaErr *domain.MediaAcquisitionError
	require.True(t, errors.As(err, &mediaErr))
	assert.ErrorIs(t, err, domain.ErrVideoUnsupported)
}

func TestAcquire_NothingRequested(t *testing.T) {
	c := NewCapturer("", zap.NewNop().Sugar())

	_, err := c.Acquire(context.Background(), domain.MediaRequest{})
	assert.Error(t, err)
}

func TestAcquire_CancelledContext(t *testing.T) {
	c := NewCapturer("", zap.NewNop().Sugar())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Acquire(ctx, domain.MediaRequest{Audio: true})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAcquire_MissingFile(t *testing.T) {
	c := NewCapturer(filepath.Join(t.TempDir(), "nope.ogg"), zap.NewNop().Sugar())

	_, err := c.Acquire(context.Background(), domain.MediaRequest{Audio: true})

	var mediaErr *domain.MediaAcquisitionError
	assert.True(t, errors.As(err, &mediaErr))
}

func writeOgg(t *testing.T, packets int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "voice.ogg")

	w, err := oggwriter.New(path, 48000, 2)
	require.NoError(t, err)
	for i := 0; i < packets; i++ {
		err := w.WriteRTP(&rtp.Packet{
			Header: rtp.Header{
				Version:        2,
				SequenceNumber: uint16(i),
				Timestamp:      uint32(i * 960),
			},
			Payload: silenceFrame,
		})
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return path
}

func TestOggSource_ReadsAndLoops(t *testing.T) {
	src, err := openOggSource(writeOgg(t, 3))
	require.NoError(t, err)
	defer src.Close()

	// more reads than pages forces at least one rewind
	for i := 0; i < 7; i++ {
		sample, err := src.Next()
		require.NoError(t, err, "read %d", i)
		assert.Equal(t, silenceFrame, sample.Data)
		assert.Greater(t, sample.Duration.Nanoseconds(), int64(0))
	}
}

func TestAcquire_FromOggFile(t *testing.T) {
	c := NewCapturer(writeOgg(t, 2), zap.NewNop().Sugar())

	stream, err := c.Acquire(context.Background(), domain.MediaRequest{Audio: true})
	require.NoError(t, err)
	stream.Stop()
}

func TestPreview_RecordsStream(t *testing.T) {
	p := NewPreview(zap.NewNop().Sugar())
	assert.Empty(t, p.StreamID())

	stream, err := NewCapturer("", zap.NewNop().Sugar()).Acquire(context.Background(), domain.MediaRequest{Audio: true})
	require.NoError(t, err)
	defer stream.Stop()

	p.AttachLocal(stream)
	assert.Equal(t, stream.ID(), p.StreamID())
}
