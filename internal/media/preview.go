package media

import (
	"sync"

	"avatarcall/internal/domain"

	"go.uber.org/zap"
)

// Preview is the local preview sink. A terminal client has nothing to
// render, so it records which stream is attached and logs its tracks.
type Preview struct {
	log *zap.SugaredLogger

	mu       sync.Mutex
	streamID string
}

// NewPreview returns an empty preview sink.
func NewPreview(log *zap.SugaredLogger) *Preview {
	return &Preview{log: log.Named("preview")}
}

// AttachLocal implements domain.PreviewSink.
func (p *Preview) AttachLocal(stream domain.LocalStream) {
	p.mu.Lock()
	p.streamID = stream.ID()
	p.mu.Unlock()

	for _, t := range stream.Tracks() {
		p.log.Infow("attached local track", "stream", stream.ID(), "track", t.ID(), "kind", t.Kind().String())
	}
}

// StreamID returns the attached stream, or "" if none.
func (p *Preview) StreamID() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.streamID
}
