package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Iron-Ham/stepcheck/internal/errors"
	"github.com/Iron-Ham/stepcheck/internal/logging"
)

const (
	// DefaultURL is the classifier endpoint used when none is configured.
	DefaultURL = "http://localhost:5000/check_piece"

	// DefaultTimeout bounds a single classifier round trip.
	DefaultTimeout = 30 * time.Second

	// maxResponseBytes caps the response body, annotated images included.
	maxResponseBytes = 32 << 20
)

// Checker submits a frame to a classifier.
type Checker interface {
	Check(ctx context.Context, req Request) (DetectionResult, error)
}

// Client is an HTTP Checker.
type Client struct {
	url        string
	httpClient *http.Client
	logger     *logging.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithTimeout sets the HTTP client timeout.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithLogger sets the logger used for request diagnostics.
func WithLogger(l *logging.Logger) ClientOption {
	return func(c *Client) {
		c.logger = l
	}
}

// NewClient creates a classifier client for url. An empty url selects DefaultURL.
func NewClient(url string, opts ...ClientOption) *Client {
	if url == "" {
		url = DefaultURL
	}
	c := &Client{
		url:        url,
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logging.OrNop(c.logger).WithComponent("classifier")
	return c
}

// URL returns the endpoint the client posts to.
func (c *Client) URL() string { return c.url }

// Check posts req and decodes the answer. Failures are *errors.VerificationError
// values with kind transport (unreachable, non-2xx or success=false), parse
// (undecodable body) or invalid_response (null body).
func (c *Client) Check(ctx context.Context, req Request) (DetectionResult, error) {
	reqBytes, err := json.Marshal(req.Encode())
	if err != nil {
		return DetectionResult{}, errors.NewVerificationError(errors.KindParse, "marshal request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(reqBytes))
	if err != nil {
		return DetectionResult{}, errors.NewVerificationError(errors.KindTransport, "create request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return DetectionResult{}, errors.NewVerificationError(errors.KindTransport, "send request", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return DetectionResult{}, errors.NewVerificationError(errors.KindTransport, "read response", err)
	}

	c.logger.Debug("classifier responded",
		"status", resp.StatusCode,
		"bytes", len(body),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return DetectionResult{}, errors.NewVerificationError(errors.KindTransport,
			fmt.Sprintf("classifier returned status %d", resp.StatusCode), nil)
	}

	var wire *CheckResponse
	if err := json.Unmarshal(body, &wire); err != nil {
		return DetectionResult{}, errors.NewVerificationError(errors.KindParse, "unmarshal response", err)
	}
	if wire == nil {
		return DetectionResult{}, errors.NewVerificationError(errors.KindInvalidResponse, "classifier returned an empty result", nil)
	}

	det, err := wire.Decode()
	if err != nil {
		return DetectionResult{}, err
	}
	if !det.Success {
		msg := det.ErrorMessage
		if msg == "" {
			msg = "classifier reported failure"
		}
		return det, errors.NewVerificationError(errors.KindTransport, msg, nil)
	}
	return det, nil
}
