package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cmlabs-hris/campaign-attendance-go/internal/domain/attendance"
	"github.com/cmlabs-hris/campaign-attendance-go/internal/domain/hierarchy"
)

// maxErrorBody bounds how much of an upstream error body is kept in APIError.
const maxErrorBody = 4 << 10

var ErrMissingBaseURL = errors.New("source base URL is not configured")

// Client talks to the Raw Attendance Source over HTTP. It never retries.
type Client struct {
	httpClient *http.Client
	baseURL    string
	timeout    time.Duration
}

var (
	_ attendance.Source      = (*Client)(nil)
	_ hierarchy.OptionSource = (*Client)(nil)
)

// NewClient creates a Client. baseURL is used when an Endpoint does not carry its own.
// timeout bounds each JSON call end to end. Exports only wait timeout for response
// headers; their body streams for as long as the caller's context allows.
func NewClient(baseURL string, timeout time.Duration) *Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.ResponseHeaderTimeout = timeout

	return &Client{
		httpClient: &http.Client{Transport: transport},
		baseURL:    strings.TrimRight(baseURL, "/"),
		timeout:    timeout,
	}
}

// APIError is a non-2xx answer from the Source.
type APIError struct {
	StatusCode int
	Path       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("source API error [%d] %s: %s", e.StatusCode, e.Path, e.Message)
}

func (c *Client) newRequest(ctx context.Context, ep attendance.Endpoint, path string, params url.Values) (*http.Request, error) {
	base := strings.TrimRight(ep.BaseURL, "/")
	if base == "" {
		base = c.baseURL
	}
	if base == "" {
		return nil, ErrMissingBaseURL
	}

	target := base + "/" + strings.TrimLeft(path, "/")
	if len(params) > 0 {
		target += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	if ep.Token != "" {
		req.Header.Set("Authorization", "Bearer "+ep.Token)
	}
	return req, nil
}

// do sends req and returns the response when the status is 2xx. The caller owns the body.
func (c *Client) do(req *http.Request) (*http.Response, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s failed: %w", req.URL.Path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Path:       req.URL.Path,
			Message:    errorMessage(body, resp.Status),
		}
	}

	return resp, nil
}

func (c *Client) getJSON(ctx context.Context, ep attendance.Endpoint, path string, params url.Values, out any) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := c.newRequest(ctx, ep, path, params)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return nil
}

// errorMessage prefers a "message" or "error" field of a JSON error body.
func errorMessage(body []byte, fallback string) string {
	var payload struct {
		Message string `json:"message"`
		Error   any    `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Message != "" {
			return payload.Message
		}
		switch v := payload.Error.(type) {
		case string:
			if v != "" {
				return v
			}
		case map[string]any:
			if msg, ok := v["message"].(string); ok && msg != "" {
				return msg
			}
		}
	}
	if text := strings.TrimSpace(string(body)); text != "" {
		return text
	}
	return fallback
}
