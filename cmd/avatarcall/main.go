package main

import (
	"context"
	"fmt"
	"io"
	"os"
	ossignal "os/signal"
	"syscall"

	"avatarcall/internal/config"
	"avatarcall/internal/domain"
	"avatarcall/internal/logging"
	"avatarcall/internal/media"
	"avatarcall/internal/session"
	sigclient "avatarcall/internal/signal"
	"avatarcall/internal/webrtc"

	"go.uber.org/zap"
)

const helpText = `avatarcall - Call a WebRTC avatar endpoint over HTTP signaling

Usage:
  avatarcall [options]

Local audio (an Ogg/Opus file, or silence) is sent to the destination.
The remote H264 video is written to stdout as an Annex-B stream. Pipe it
to ffplay or ffmpeg for playback or recording.

Environment Variables:
  AVATAR_DEST            Destination routing key, e.g. room:alice (required)
  AVATAR_SIGNAL_URL      Signaling endpoint, http(s):// or ws(s):// (default ` + config.DefaultSignalURL + `)
  AVATAR_SIGNAL_TIMEOUT  Offer/answer exchange timeout (default 15s)
  AVATAR_SDP_PATCH       Answer SDP rewrites, from=to[,from=to] or none (default 42001f=42e01f)
  AVATAR_ICE_SERVERS     Comma separated stun:/turn:user:pass@host URLs
  AVATAR_AUDIO_FILE      Ogg/Opus file to send as microphone input
  AVATAR_VIDEO_OUT       File for remote video, - for stdout (default -)
  AVATAR_LOG_LEVEL       debug, info, warn or error (default info)
  AVATAR_CONFIG          Optional YAML file with the same settings

Examples:
  # Live playback
  AVATAR_DEST=room:alice avatarcall | ffplay -f h264 -

  # Record to MP4
  AVATAR_DEST=room:alice avatarcall | ffmpeg -f h264 -i - -c copy output.mp4

Options:
  -h, --help  Show this help message
`

func main() {
	if len(os.Args) > 1 && (os.Args[1] == "-h" || os.Args[1] == "--help") {
		fmt.Print(helpText)
		os.Exit(0)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "avatarcall: %v\n", err)
		os.Exit(2)
	}

	log, err := logging.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "avatarcall: %v\n", err)
		os.Exit(2)
	}
	defer log.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	ossignal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Infow("shutting down", "signal", sig.String())
		cancel()
	}()

	videoOut, closeOut, err := openVideoOut(cfg.VideoOut)
	if err != nil {
		log.Fatalw("open video output", "error", err)
	}
	defer closeOut()

	signaler, err := sigclient.New(cfg.SignalURL,
		sigclient.WithTimeout(cfg.SignalTimeout),
		sigclient.WithLogger(log),
	)
	if err != nil {
		log.Fatalw("signaling endpoint", "error", err)
	}

	remote := webrtc.NewTrackWriter(videoOut, log)
	ctrl := session.NewController(session.Config{
		NewPeer: webrtc.Factory(webrtc.Config{
			ICEServers:    cfg.ICEServers,
			LoggerFactory: logging.NewPionFactory(log),
			OnDrop:        cancel,
		}, log),
		Media:    media.NewCapturer(cfg.AudioFile, log),
		Signaler: signaler,
		Preview:  media.NewPreview(log),
		Remote:   remote,
		Patch:    cfg.SDPPatch,
		Log:      log,
	})
	defer ctrl.Close()

	log.Infow("calling", "destination", cfg.Destination, "signal", cfg.SignalURL, "sdp_patch", cfg.SDPPatch.String())
	s, err := ctrl.Start(ctx, cfg.Destination)
	if err != nil {
		log.Fatalw("start call", "error", err)
	}

	awaitEnd(ctx, s, log)

	ctrl.Close()
	remote.Wait()
	log.Infow("done")
}

// call is the part of a session main waits on.
type call interface {
	Done() <-chan struct{}
	State() domain.State
}

// awaitEnd blocks until ctx is cancelled or the call stops. A failed call
// keeps its transport, so the process stays up until interrupted or dropped.
func awaitEnd(ctx context.Context, c call, log *zap.SugaredLogger) {
	select {
	case <-ctx.Done():
		return
	case <-c.Done():
	}

	if c.State() != domain.StateFailed {
		log.Warnw("call ended", "state", c.State().String())
		return
	}
	log.Warnw("call failed, waiting for interrupt", "state", c.State().String())
	<-ctx.Done()
}

func openVideoOut(path string) (io.Writer, func(), error) {
	if path == "" || path == "-" {
		return os.Stdout, func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { f.Close() }, nil
}
