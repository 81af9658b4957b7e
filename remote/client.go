package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/eringen/folio/content"
	"github.com/eringen/folio/logging"
)

const (
	DefaultTimeout   = 30 * time.Second
	DefaultRateLimit = 5 // requests per second
	maxErrorBody     = 4 << 10
)

// Client is the rate-limited HTTP client shared by the bin, git and hosted
// blob integrations.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *logging.Logger
}

// ClientOption configures the client.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithRateLimit sets the sustained request rate.
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

// WithTimeout sets the HTTP timeout.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithLogger sets the logger.
func WithLogger(logger *logging.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a client with the default timeout and rate limit.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: DefaultTimeout},
		limiter:    rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		logger:     logging.NewSilent(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// APIError is a non-2xx answer from a remote endpoint.
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s (status %d)", e.Endpoint, e.Message, e.StatusCode)
}

// Temporary reports whether retrying later could succeed.
func (e *APIError) Temporary() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

// Request describes one outbound call.
type Request struct {
	Method      string
	URL         string
	Header      http.Header
	Body        io.Reader
	ContentType string
}

// JSONRequest builds a request with a JSON body.
func JSONRequest(method, url string, body any) (Request, error) {
	req := Request{Method: method, URL: url, Header: http.Header{}}
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return req, fmt.Errorf("encode request body: %w", err)
		}
		req.Body = bytes.NewReader(raw)
		req.ContentType = "application/json"
	}
	return req, nil
}

// Do performs a rate-limited request and returns the response body. A
// transport failure wraps content.ErrRemoteUnavailable; a non-2xx status is
// returned as *APIError for the caller to classify.
func (c *Client) Do(ctx context.Context, r Request) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: rate limit wait: %v", content.ErrRemoteUnavailable, err)
	}
	req, err := http.NewRequestWithContext(ctx, r.Method, r.URL, r.Body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	for k, vs := range r.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if r.ContentType != "" {
		req.Header.Set("Content-Type", r.ContentType)
	}

	endpoint := req.URL.Host + req.URL.Path
	c.logger.Debug().Str("method", r.Method).Str("endpoint", endpoint).Msg("remote request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %v", content.ErrRemoteUnavailable, r.Method, endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", content.ErrRemoteUnavailable, endpoint, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    errorMessage(body, resp.Status),
			Endpoint:   endpoint,
		}
	}
	return body, nil
}

// errorMessage pulls a human message out of an error body. JSON APIs
// usually answer {"message": ...}; Cloudinary nests it under "error".
func errorMessage(body []byte, fallback string) string {
	var parsed struct {
		Message string `json:"message"`
		Error   struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &parsed) == nil {
		if parsed.Message != "" {
			return parsed.Message
		}
		if parsed.Error.Message != "" {
			return parsed.Error.Message
		}
	}
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		return fallback
	}
	if len(msg) > maxErrorBody {
		msg = msg[:maxErrorBody]
	}
	return msg
}

// unavailable wraps any error from a backend call as ErrRemoteUnavailable
// unless it is already classified.
func unavailable(op string, err error) error {
	if isClassified(err) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%w: %s: %v", content.ErrRemoteUnavailable, op, err)
}

func isClassified(err error) bool {
	for _, target := range []error{
		content.ErrRemoteUnavailable,
		content.ErrRemoteConflict,
		content.ErrRemoteNotConfigured,
		content.ErrUnsupported,
		content.ErrInvalid,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
