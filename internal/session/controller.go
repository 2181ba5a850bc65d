package session

import (
	"context"
	"strings"
	"sync"

	"avatarcall/internal/domain"

	"go.uber.org/zap"
)

// ValidDestination reports whether dest has the shape the signaling
// endpoint routes on (a non-empty string containing ':').
func ValidDestination(dest string) bool {
	return strings.Contains(dest, ":")
}

// Controller owns the current Session and exposes the start/end/unload
// lifecycle the user drives.
type Controller struct {
	cfg Config
	log *zap.SugaredLogger

	mu      sync.Mutex
	current *Session
}

// NewController returns a Controller that builds every Session from cfg.
func NewController(cfg Config) *Controller {
	log := cfg.Log
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Controller{cfg: cfg, log: log.Named("controller")}
}

// Start begins a new call to dest. A live call must be stopped first; a
// call that already failed or stopped is released and replaced.
func (c *Controller) Start(ctx context.Context, dest string) (*Session, error) {
	if !ValidDestination(dest) {
		return nil, domain.ErrInvalidDestination
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current != nil {
		if !c.current.State().Terminal() {
			return nil, domain.ErrAlreadyStarted
		}
		c.current.Stop()
		c.current = nil
	}

	s := New(c.cfg)
	s.Configure(dest)
	if err := s.Start(ctx); err != nil {
		return nil, err
	}
	c.current = s
	c.log.Infow("call started", "destination", dest)
	return s, nil
}

// Stop ends the current call, if any.
func (c *Controller) Stop() {
	c.mu.Lock()
	s := c.current
	c.current = nil
	c.mu.Unlock()

	if s != nil {
		s.Stop()
		c.log.Infow("call ended", "destination", s.Destination())
	}
}

// Close is the shutdown hook; it ends the current call.
func (c *Controller) Close() {
	c.Stop()
}

// Current returns the current Session, or nil.
func (c *Controller) Current() *Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}
