package signal

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"avatarcall/internal/domain"

	"go.uber.org/zap"
)

// HTTPExchanger POSTs the offer to the endpoint and reads the answer from the response body.
type HTTPExchanger struct {
	endpoint string
	client   *http.Client
	opts     options
	log      *zap.SugaredLogger
}

// NewHTTPExchanger creates an exchanger for an http(s) endpoint such as
// https://signaling.example/sdp.
func NewHTTPExchanger(endpoint string, opts ...Option) *HTTPExchanger {
	o := buildOptions(opts)
	return &HTTPExchanger{
		endpoint: endpoint,
		client:   &http.Client{},
		opts:     o,
		log:      o.log,
	}
}

// Exchange implements domain.Signaler.
func (e *HTTPExchanger) Exchange(ctx context.Context, destination, offerSDP string) (string, error) {
	target, err := destinationURL(e.endpoint, destination)
	if err != nil {
		return "", transportError(e.endpoint, err)
	}

	if e.opts.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.opts.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, strings.NewReader(offerSDP))
	if err != nil {
		return "", transportError(target, fmt.Errorf("create http request: %w", err))
	}
	req.Header.Set("Content-Type", ContentTypeSDP)
	req.Header.Set("Accept", ContentTypeSDP)

	e.log.Infow("posting offer", "url", target, "bytes", len(offerSDP))

	resp, err := e.client.Do(req)
	if err != nil {
		return "", transportError(target, fmt.Errorf("http request: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxAnswerSize+1))
	if err != nil {
		return "", transportError(target, fmt.Errorf("read response: %w", err))
	}
	if len(body) > maxAnswerSize {
		return "", transportError(target, fmt.Errorf("response exceeds %d bytes", maxAnswerSize))
	}

	if resp.StatusCode != http.StatusOK {
		return "", transportError(target, &StatusError{
			StatusCode: resp.StatusCode,
			Body:       truncate(string(body), 256),
		})
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return "", transportError(target, domain.ErrEmptyAnswer)
	}

	e.log.Debugw("answer received", "status", resp.StatusCode, "bytes", len(body))
	return string(body), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
