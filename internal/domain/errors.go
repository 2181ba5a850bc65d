package domain

import (
	"errors"
	"fmt"
)

var (
	ErrAlreadyStarted     = errors.New("session already started")
	ErrSessionClosed      = errors.New("session is stopped or failed")
	ErrInvalidDestination = errors.New("invalid destination")
	ErrNoDestination      = errors.New("destination not configured")
	ErrVideoUnsupported   = errors.New("video capture is not supported")
	ErrEmptyAnswer        = errors.New("empty answer body")
	ErrNoLocalDescription = errors.New("no local description")
)

// MediaAcquisitionError reports that the microphone or camera could not be opened.
type MediaAcquisitionError struct {
	Err error
}

func (e *MediaAcquisitionError) Error() string {
	return fmt.Sprintf("media acquisition: %v", e.Err)
}

func (e *MediaAcquisitionError) Unwrap() error { return e.Err }

// NegotiationError reports a failure creating or applying a session description.
type NegotiationError struct {
	Op  string
	Err error
}

func (e *NegotiationError) Error() string {
	return fmt.Sprintf("negotiation: %s: %v", e.Op, e.Err)
}

func (e *NegotiationError) Unwrap() error { return e.Err }

// SignalingTransportError reports a failed offer/answer exchange with the signaling endpoint.
type SignalingTransportError struct {
	Endpoint string
	Err      error
}

func (e *SignalingTransportError) Error() string {
	return fmt.Sprintf("signaling %s: %v", e.Endpoint, e.Err)
}

func (e *SignalingTransportError) Unwrap() error { return e.Err }
