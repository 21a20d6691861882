package httpretry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Defaults tolerate a cold-starting backend: six attempts, each with its
// own 12s deadline, separated by a fixed 1.5s pause.
const (
	DefaultAttempts      = 6
	DefaultBackoff       = 1500 * time.Millisecond
	DefaultPerTryTimeout = 12 * time.Second
)

// StatusError is a completed HTTP exchange with a non-2xx status. The
// backend's {"error": ...} message, when present, is preserved.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("unexpected status %d", e.Code)
}

type Request struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
}

type Client struct {
	http      *http.Client
	log       *zap.Logger
	attempts  int
	backoff   time.Duration
	perTry    time.Duration
	onPending func(bool)
}

type Option func(*Client)

func WithAttempts(n int) Option              { return func(c *Client) { c.attempts = n } }
func WithBackoff(d time.Duration) Option     { return func(c *Client) { c.backoff = d } }
func WithPerTryTimeout(d time.Duration) Option { return func(c *Client) { c.perTry = d } }
func WithHTTPClient(h *http.Client) Option   { return func(c *Client) { c.http = h } }

// WithPendingFunc registers a notifier flipped to true while attempts are
// outstanding and back to false once Do returns.
func WithPendingFunc(fn func(bool)) Option { return func(c *Client) { c.onPending = fn } }

func New(log *zap.Logger, opts ...Option) *Client {
	c := &Client{
		http:     &http.Client{},
		log:      log.Named("httpretry"),
		attempts: DefaultAttempts,
		backoff:  DefaultBackoff,
		perTry:   DefaultPerTryTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Do performs req, retrying failed attempts with a fixed backoff until an
// attempt yields a 2xx response or the attempt budget runs out, in which
// case the last failure is returned. Every retry re-sends the request
// verbatim, so non-idempotent requests may be applied more than once when
// a response is lost in transit; callers accept that for create.
func (c *Client) Do(ctx context.Context, req Request) ([]byte, int, error) {
	if c.onPending != nil {
		c.onPending(true)
		defer c.onPending(false)
	}

	var lastErr error
	for attempt := 1; attempt <= c.attempts; attempt++ {
		body, code, err := c.once(ctx, req)
		if err == nil {
			return body, code, nil
		}
		lastErr = err
		c.log.Warn("attempt failed",
			zap.String("method", req.Method),
			zap.String("url", req.URL),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		if attempt == c.attempts {
			break
		}
		select {
		case <-time.After(c.backoff):
		case <-ctx.Done():
			return nil, 0, ctx.Err()
		}
	}
	return nil, 0, lastErr
}

func (c *Client) once(ctx context.Context, req Request) ([]byte, int, error) {
	tryCtx, cancel := context.WithTimeout(ctx, c.perTry)
	defer cancel()

	var rd io.Reader
	if req.Body != nil {
		rd = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(tryCtx, req.Method, req.URL, rd)
	if err != nil {
		return nil, 0, errors.Wrap(err, "build request")
	}
	for k, vv := range req.Header {
		for _, v := range vv {
			httpReq.Header.Add(k, v)
		}
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, errors.Wrap(err, "read body")
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, resp.StatusCode, &StatusError{Code: resp.StatusCode, Message: errorMessage(data)}
	}
	return data, resp.StatusCode, nil
}

func errorMessage(data []byte) string {
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return ""
	}
	if body.Error != "" {
		return body.Error
	}
	return body.Message
}
