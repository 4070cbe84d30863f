// Package inference is an HTTP adapter to an external object-detection model.
//
// The model service accepts a multipart upload of a JPEG in the "file" field
// and answers with
//
//	{"detections": [{"class": "bolt", "confidence": 0.91,
//	                 "box": [x1, y1, x2, y2], "keypoints": [[x, y], ...]}]}
//
// Coordinates are pixels of the uploaded image.
package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"

	"github.com/Iron-Ham/stepcheck/internal/geometry"
	"github.com/Iron-Ham/stepcheck/internal/logging"
)

// DefaultTimeout bounds a single detection request.
const DefaultTimeout = 30 * time.Second

// Detection is one object found by the model.
type Detection struct {
	Class      string             `json:"class"`
	Confidence float64            `json:"confidence"`
	Box        [4]float64         `json:"box"` // x1, y1, x2, y2
	Keypoints  []geometry.Point2D `json:"-"`
}

// Center returns the mean of the keypoints, or the box centre when the model
// produced none. Callers cannot tell the two apart.
func (d Detection) Center() geometry.Point2D {
	if c, ok := geometry.Centroid(d.Keypoints); ok {
		return c
	}
	return geometry.Point2D{X: (d.Box[0] + d.Box[2]) / 2, Y: (d.Box[1] + d.Box[3]) / 2}
}

// UnmarshalJSON decodes keypoints given as [x, y] pairs.
func (d *Detection) UnmarshalJSON(data []byte) error {
	type plain Detection
	var raw struct {
		plain
		Keypoints [][]float64 `json:"keypoints"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*d = Detection(raw.plain)
	d.Keypoints = nil
	for i, kp := range raw.Keypoints {
		if len(kp) < 2 {
			return fmt.Errorf("keypoint %d: want [x, y], got %d values", i, len(kp))
		}
		d.Keypoints = append(d.Keypoints, geometry.Point2D{X: kp[0], Y: kp[1]})
	}
	return nil
}

// MarshalJSON encodes keypoints as [x, y] pairs.
func (d Detection) MarshalJSON() ([]byte, error) {
	type plain Detection
	kps := make([][2]float64, len(d.Keypoints))
	for i, kp := range d.Keypoints {
		kps[i] = [2]float64{kp.X, kp.Y}
	}
	return json.Marshal(struct {
		plain
		Keypoints [][2]float64 `json:"keypoints,omitempty"`
	}{plain(d), kps})
}

// Client calls the model service.
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

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) ClientOption {
	return func(c *Client) {
		c.logger = l
	}
}

// NewClient creates a client posting to inferenceURL.
func NewClient(inferenceURL string, opts ...ClientOption) *Client {
	c := &Client{
		url:        inferenceURL,
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logging.OrNop(c.logger).WithComponent("inference")
	return c
}

// Detect uploads a JPEG and returns the model's detections.
func (c *Client) Detect(ctx context.Context, jpeg []byte) ([]Detection, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", "image.jpg")
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(jpeg); err != nil {
		return nil, fmt.Errorf("copy image data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("inference failed with status %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}

	var result struct {
		Detections []Detection `json:"detections"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	c.logger.Debug("inference complete",
		"detections", len(result.Detections),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return result.Detections, nil
}

// CheckHealth reports whether the model service answers on /health.
func (c *Client) CheckHealth(ctx context.Context) error {
	u, err := url.Parse(c.url)
	if err != nil {
		return fmt.Errorf("parse inference url: %w", err)
	}
	u.Path = "/health"
	u.RawQuery = ""

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ml service unhealthy: %d", resp.StatusCode)
	}
	return nil
}
