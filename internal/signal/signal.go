// Package signal implements the one-shot, non-trickle offer/answer exchange
// with a remote signaling endpoint.
package signal

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"avatarcall/internal/domain"

	"go.uber.org/zap"
)

// ContentTypeSDP is the media type of both request and response bodies.
const ContentTypeSDP = "application/sdp"

// maxAnswerSize caps how much of a response body is read.
const maxAnswerSize = 1 << 20

// DefaultTimeout bounds one exchange when the caller's context has no deadline.
const DefaultTimeout = 15 * time.Second

type options struct {
	timeout time.Duration
	log     *zap.SugaredLogger
}

// Option configures an exchanger.
type Option func(*options)

// WithTimeout bounds each exchange. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// WithLogger sets the logger. The exchanger logs under the "signal" name.
func WithLogger(log *zap.SugaredLogger) Option {
	return func(o *options) { o.log = log }
}

func buildOptions(opts []Option) options {
	o := options{timeout: DefaultTimeout, log: zap.NewNop().Sugar()}
	for _, opt := range opts {
		opt(&o)
	}
	o.log = o.log.Named("signal")
	return o
}

// New returns an exchanger for endpoint, chosen by URL scheme:
// http/https use HTTP POST, ws/wss use a WebSocket.
func New(endpoint string, opts ...Option) (domain.Signaler, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse signaling endpoint: %w", err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("signaling endpoint %q has no host", endpoint)
	}

	switch u.Scheme {
	case "http", "https":
		return NewHTTPExchanger(endpoint, opts...), nil
	case "ws", "wss":
		return NewWSExchanger(endpoint, opts...), nil
	default:
		return nil, fmt.Errorf("unsupported signaling scheme %q", u.Scheme)
	}
}

// queryUnescaper restores the characters RFC 3986 allows verbatim in a query,
// so room:alice is sent as written.
var queryUnescaper = strings.NewReplacer("%3A", ":", "%40", "@", "%2F", "/")

// destinationURL appends the destination query parameter to endpoint.
func destinationURL(endpoint, destination string) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("parse signaling endpoint: %w", err)
	}
	param := "destination=" + queryUnescaper.Replace(url.QueryEscape(destination))
	if u.RawQuery == "" {
		u.RawQuery = param
	} else {
		u.RawQuery += "&" + param
	}
	return u.String(), nil
}

// StatusError is returned when the endpoint answers with a non-200 status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("http %d", e.StatusCode)
	}
	return fmt.Sprintf("http %d: %s", e.StatusCode, e.Body)
}

func transportError(endpoint string, err error) error {
	return &domain.SignalingTransportError{Endpoint: endpoint, Err: err}
}
