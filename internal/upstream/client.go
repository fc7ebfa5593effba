package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"amlaw-directory/internal/metrics"
)

// maxBodyBytes caps how much of an upstream body is read into memory.
const maxBodyBytes = 10 << 20

var (
	// ErrBuildRequest marks failures to construct an upstream request. They point
	// at broken configuration rather than an unavailable upstream.
	ErrBuildRequest = errors.New("upstream: cannot build request")

	// ErrBodyTooLarge is returned instead of a truncated body.
	ErrBodyTooLarge = errors.New("upstream: response body too large")
)

// Client issues GET requests against the attorney search API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	metrics    *metrics.Metrics
	maxBody    int64
}

// Response is a fully read upstream response.
type Response struct {
	Status      int
	ContentType string
	Body        []byte
}

// NewClient creates a client for baseURL. A zero timeout leaves the transport
// without a client-side deadline; request contexts still apply.
func NewClient(baseURL string, timeout time.Duration, m *metrics.Metrics) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: base url: %v", ErrBuildRequest, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: base url %q is not absolute", ErrBuildRequest, baseURL)
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		metrics: m,
		maxBody: maxBodyBytes,
	}, nil
}

// Get requests path with the given query parameters. endpoint labels metrics.
func (c *Client) Get(ctx context.Context, endpoint, path string, query url.Values) (*Response, error) {
	return c.GetRaw(ctx, endpoint, path, query.Encode())
}

// GetRaw requests path with rawQuery forwarded verbatim.
func (c *Client) GetRaw(ctx context.Context, endpoint, path, rawQuery string) (*Response, error) {
	target := c.baseURL + path
	if rawQuery != "" {
		target += "?" + rawQuery
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBuildRequest, err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.ObserveUpstream(endpoint, metrics.OutcomeNetworkFail, time.Since(start))
		return nil, fmt.Errorf("upstream %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		c.metrics.ObserveUpstream(endpoint, metrics.OutcomeNetworkFail, time.Since(start))
		return nil, fmt.Errorf("upstream %s: read body: %w", endpoint, err)
	}
	if int64(len(body)) > c.maxBody {
		c.metrics.ObserveUpstream(endpoint, metrics.OutcomeTooLarge, time.Since(start))
		return nil, fmt.Errorf("upstream %s: %w (limit %d bytes)", endpoint, ErrBodyTooLarge, c.maxBody)
	}

	outcome := metrics.OutcomeOK
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		outcome = metrics.OutcomeStatus
	}
	c.metrics.ObserveUpstream(endpoint, outcome, time.Since(start))

	return &Response{
		Status:      resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}

// HealthCheck verifies the upstream answers on path with a 2xx status.
func (c *Client) HealthCheck(ctx context.Context, path string) error {
	resp, err := c.GetRaw(ctx, "health", path, "")
	if err != nil {
		return fmt.Errorf("failed to connect to upstream at %s: %w", c.baseURL, err)
	}
	if !resp.OK() {
		return &StatusError{Endpoint: "health", Status: resp.Status}
	}
	return nil
}

// BaseURL returns the configured base URL without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// OK reports a 2xx status.
func (r *Response) OK() bool {
	return r.Status >= 200 && r.Status <= 299
}

// IsJSON reports whether the content type is JSON. A missing content type
// counts as JSON.
func (r *Response) IsJSON() bool {
	if r.ContentType == "" {
		return true
	}
	mt, _, err := mime.ParseMediaType(r.ContentType)
	if err != nil {
		return false
	}
	return mt == "application/json" || strings.HasSuffix(mt, "+json")
}

// ContentTypeOrDefault returns the upstream content type, defaulting to JSON.
func (r *Response) ContentTypeOrDefault() string {
	if r.ContentType == "" {
		return "application/json"
	}
	return r.ContentType
}

// JSON decodes the body, keeping numbers as json.Number.
func (r *Response) JSON() (any, error) {
	dec := json.NewDecoder(bytes.NewReader(r.Body))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("decode upstream body: %w", err)
	}
	return v, nil
}

// StatusError reports a non-2xx upstream status.
type StatusError struct {
	Endpoint string
	Status   int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream %s: status %d", e.Endpoint, e.Status)
}
