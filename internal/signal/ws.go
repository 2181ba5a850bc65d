package signal

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"avatarcall/internal/domain"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// WSExchanger performs the same one-shot exchange over a WebSocket: the
// offer goes out as a single text frame and the first text frame back is the answer.
type WSExchanger struct {
	endpoint string
	dialer   *websocket.Dialer
	opts     options
	log      *zap.SugaredLogger
}

// NewWSExchanger creates an exchanger for a ws(s) endpoint.
func NewWSExchanger(endpoint string, opts ...Option) *WSExchanger {
	o := buildOptions(opts)
	return &WSExchanger{
		endpoint: endpoint,
		dialer:   websocket.DefaultDialer,
		opts:     o,
		log:      o.log,
	}
}

// Exchange implements domain.Signaler.
func (e *WSExchanger) Exchange(ctx context.Context, destination, offerSDP string) (string, error) {
	target, err := destinationURL(e.endpoint, destination)
	if err != nil {
		return "", transportError(e.endpoint, err)
	}

	if e.opts.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.opts.timeout)
		defer cancel()
	}

	header := http.Header{}
	header.Set("Content-Type", ContentTypeSDP)

	e.log.Infow("connecting", "url", target)
	conn, resp, err := e.dialer.DialContext(ctx, target, header)
	if err != nil {
		if resp != nil && resp.StatusCode != http.StatusSwitchingProtocols {
			err = &StatusError{StatusCode: resp.StatusCode}
		}
		return "", transportError(target, fmt.Errorf("websocket dial: %w", err))
	}
	defer conn.Close()

	// Unblock the read below when the context ends; closing the socket is
	// the only way to interrupt gorilla's ReadMessage.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetReadDeadline(deadline)
		_ = conn.SetWriteDeadline(deadline)
	}
	conn.SetReadLimit(maxAnswerSize)

	e.log.Debugw("sending offer", "bytes", len(offerSDP))
	if err := conn.WriteMessage(websocket.TextMessage, []byte(offerSDP)); err != nil {
		return "", transportError(target, e.ctxErr(ctx, fmt.Errorf("write offer: %w", err)))
	}

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			return "", transportError(target, e.ctxErr(ctx, fmt.Errorf("read answer: %w", err)))
		}
		if msgType != websocket.TextMessage {
			e.log.Debugw("ignoring non-text frame", "type", msgType)
			continue
		}
		if len(data) == 0 {
			return "", transportError(target, domain.ErrEmptyAnswer)
		}

		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		e.log.Debugw("answer received", "bytes", len(data))
		return string(data), nil
	}
}

// ctxErr prefers the context's error when it caused err.
func (e *WSExchanger) ctxErr(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%w (%v)", ctxErr, err)
	}
	return err
}
