package postback

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"surveypulse/internal/config"
)

// Delivery errors distinguishable with errors.Is.
var (
	ErrTimeout        = errors.New("timeout")
	ErrConnection     = errors.New("connection_error")
	ErrInvalidRequest = errors.New("invalid_request")
)

// Request is one outbound postback call.
type Request struct {
	Method string
	URL    string
	Body   []byte // JSON, POST only
}

// Response is what came back from the partner.
type Response struct {
	StatusCode int
	Snippet    string
}

// Sender performs an outbound call. Errors wrap ErrTimeout, ErrConnection
// or ErrInvalidRequest; a non-2xx status is not an error.
type Sender interface {
	Send(ctx context.Context, req Request) (*Response, error)
}

// HTTPSender is the net/http implementation of Sender.
type HTTPSender struct {
	client      *http.Client
	userAgent   string
	snippetSize int64
}

// NewHTTPSender creates an HTTPSender using the postback timeout.
func NewHTTPSender(cfg config.PostbackConfig) *HTTPSender {
	return &HTTPSender{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		userAgent:   cfg.UserAgent,
		snippetSize: int64(cfg.SnippetSize),
	}
}

// Send issues the request and reads at most snippetSize bytes of the reply.
func (s *HTTPSender) Send(ctx context.Context, r Request) (*Response, error) {
	var body io.Reader
	if len(r.Body) > 0 {
		body = bytes.NewReader(r.Body)
	}

	req, err := http.NewRequestWithContext(ctx, r.Method, r.URL, body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.userAgent != "" {
		req.Header.Set("User-Agent", s.userAgent)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, classify(err)
	}
	defer resp.Body.Close()

	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, s.snippetSize))
	_, _ = io.Copy(io.Discard, resp.Body)

	return &Response{StatusCode: resp.StatusCode, Snippet: string(snippet)}, nil
}

func classify(err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return fmt.Errorf("%w: %v", ErrConnection, err)
}

// ErrorCode is the short error string recorded for a failed delivery.
func ErrorCode(statusCode int, err error) string {
	switch {
	case errors.Is(err, ErrTimeout):
		return ErrTimeout.Error()
	case errors.Is(err, ErrConnection):
		return ErrConnection.Error()
	case errors.Is(err, ErrInvalidRequest):
		return ErrInvalidRequest.Error()
	case err != nil:
		return ErrConnection.Error()
	case statusCode < 200 || statusCode > 299:
		return "http_" + strconv.Itoa(statusCode)
	}
	return ""
}

func durationMS(d time.Duration) int64 {
	return d.Milliseconds()
}
