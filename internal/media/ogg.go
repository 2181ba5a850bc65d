package media

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	pionmedia "github.com/pion/webrtc/v4/pkg/media"
	"github.com/pion/webrtc/v4/pkg/media/oggreader"
)

// oggSource plays an Ogg/Opus file page by page and loops at EOF.
type oggSource struct {
	path        string
	f           *os.File
	reader      *oggreader.OggReader
	lastGranule uint64
}

func openOggSource(path string) (*oggSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open audio file: %w", err)
	}

	s := &oggSource{path: path, f: f}
	if err := s.rewind(); err != nil {
		f.Close()
		return nil, err
	}
	return s, nil
}

func (s *oggSource) Name() string { return s.path }

func (s *oggSource) rewind() error {
	if _, err := s.f.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("seek audio file: %w", err)
	}
	reader, header, err := oggreader.NewWith(s.f)
	if err != nil {
		return fmt.Errorf("read ogg header: %w", err)
	}
	if header.SampleRate == 0 {
		return fmt.Errorf("ogg header: zero sample rate")
	}
	s.reader = reader
	s.lastGranule = 0
	return nil
}

// Next returns the next Opus page, restarting the file at EOF.
func (s *oggSource) Next() (pionmedia.Sample, error) {
	for attempts := 0; attempts < 2; {
		page, header, err := s.reader.ParseNextPage()
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			attempts++
			if err := s.rewind(); err != nil {
				return pionmedia.Sample{}, err
			}
			continue
		}
		if err != nil {
			return pionmedia.Sample{}, fmt.Errorf("parse ogg page: %w", err)
		}
		if bytes.HasPrefix(page, []byte("OpusTags")) {
			continue
		}

		// granule positions count 48 kHz samples
		duration := frameDuration
		if header.GranulePosition > s.lastGranule {
			samples := header.GranulePosition - s.lastGranule
			if d := time.Duration(samples) * time.Second / 48000; d > 0 {
				duration = d
			}
		}
		s.lastGranule = header.GranulePosition

		return pionmedia.Sample{Data: page, Duration: duration}, nil
	}
	return pionmedia.Sample{}, fmt.Errorf("%s: no audio pages", s.path)
}

func (s *oggSource) Close() error {
	return s.f.Close()
}
