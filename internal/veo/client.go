package veo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// Static errors for Veo client operations.
var (
	// ErrAPIKeyNotSet is returned when no API key is provided.
	ErrAPIKeyNotSet = errors.New("veo: API key is required")
	// ErrOperationNameRequired is returned when the operation name is not provided.
	ErrOperationNameRequired = errors.New("veo: operation name is required")
	// ErrNoOperationReturned is returned when the predict response has no operation name.
	ErrNoOperationReturned = errors.New("veo: predict failed: no operation returned")
	// ErrNoVideoReturned is returned when a done operation has no sample.
	ErrNoVideoReturned = errors.New("veo: operation finished without a video")
	// ErrUnauthorized is returned when the server rejects the credentials.
	ErrUnauthorized = errors.New("veo: unauthorized")
	// ErrRateLimited is returned when the server returns a 429 status code.
	ErrRateLimited = errors.New("veo: rate limited")
	// ErrQuotaExceeded is returned when the project quota is exhausted.
	ErrQuotaExceeded = errors.New("veo: quota exceeded")
	// ErrInvalidRequest is returned when the server rejects the request shape.
	ErrInvalidRequest = errors.New("veo: invalid request")
	// ErrServerError is returned when the server returns a 5xx status code.
	ErrServerError = errors.New("veo: server error")
)

// Client defines the interface for interacting with the Veo API.
type Client interface {
	// Predict submits a generation or extension request and returns the
	// operation name to poll.
	Predict(ctx context.Context, model string, req PredictRequest) (operationName string, err error)

	// GetOperation fetches the current state of an operation.
	GetOperation(ctx context.Context, operationName string) (Operation, error)

	// DownloadVideo fetches the rendered bytes behind a video URI.
	DownloadVideo(ctx context.Context, uri string) ([]byte, error)
}

// HTTPClient is the HTTP implementation of the Veo Client interface.
// Individual calls are single-shot; retry policy belongs to the caller.
type HTTPClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// ClientOption is a function that configures an HTTPClient.
type ClientOption func(*HTTPClient)

// WithAPIKey sets the API key for authentication.
func WithAPIKey(key string) ClientOption {
	return func(hc *HTTPClient) {
		hc.apiKey = key
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(hc *HTTPClient) {
		hc.httpClient = c
	}
}

// WithBaseURL sets a custom base URL for the Veo API.
func WithBaseURL(url string) ClientOption {
	return func(hc *HTTPClient) {
		hc.baseURL = url
	}
}

// NewClient creates a new Veo HTTP client. The API key can be set via the
// WithAPIKey option; if not provided, it is read from the VEO_API_KEY
// environment variable.
func NewClient(opts ...ClientOption) (*HTTPClient, error) {
	c := &HTTPClient{
		baseURL:    "https://generativelanguage.googleapis.com/v1beta",
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.apiKey == "" {
		c.apiKey = os.Getenv("VEO_API_KEY")
	}
	if c.apiKey == "" {
		return nil, ErrAPIKeyNotSet
	}

	return c, nil
}

// Predict submits a generation or extension request.
func (c *HTTPClient) Predict(ctx context.Context, model string, req PredictRequest) (string, error) {
	url := fmt.Sprintf("%s/models/%s:predictLongRunning", c.baseURL, model)

	var resp PredictResponse
	if err := c.doRequest(ctx, http.MethodPost, url, req, &resp); err != nil {
		return "", err
	}
	if resp.Name == "" {
		return "", ErrNoOperationReturned
	}
	return resp.Name, nil
}

// GetOperation fetches the current state of an operation.
func (c *HTTPClient) GetOperation(ctx context.Context, operationName string) (Operation, error) {
	if operationName == "" {
		return Operation{}, ErrOperationNameRequired
	}

	var op Operation
	if err := c.doRequest(ctx, http.MethodGet, c.baseURL+"/"+operationName, nil, &op); err != nil {
		return Operation{}, err
	}
	return op, nil
}

// DownloadVideo fetches the rendered bytes behind a video URI. The fetch
// happens once per job; the converted result is cached by the caller.
func (c *HTTPClient) DownloadVideo(ctx context.Context, uri string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, fmt.Errorf("veo: create download request: %w", err)
	}
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("veo: download failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, c.mapHTTPError(resp.StatusCode, body)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("veo: read download: %w", err)
	}
	return data, nil
}

// doRequest performs a single HTTP request and maps non-2xx responses to
// the package's sentinel errors.
func (c *HTTPClient) doRequest(ctx context.Context, method, url string, body, result any) error {
	var bodyReader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("veo: marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return fmt.Errorf("veo: create request: %w", err)
	}

	req.Header.Set("x-goog-api-key", c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("veo: request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("veo: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.mapHTTPError(resp.StatusCode, respBody)
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("veo: unmarshal response: %w", err)
		}
	}

	return nil
}

// mapHTTPError converts an API error response to a sentinel error.
// Quota exhaustion arrives as 429 with status RESOURCE_EXHAUSTED, which
// is terminal, unlike plain rate limiting.
func (c *HTTPClient) mapHTTPError(status int, body []byte) error {
	var apiErr errorBody
	_ = json.Unmarshal(body, &apiErr)
	detail := apiErr.Error.Message
	if detail == "" {
		detail = string(body)
	}

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("%w: %s", ErrUnauthorized, detail)
	case status == http.StatusTooManyRequests:
		if apiErr.Error.Status == "RESOURCE_EXHAUSTED" {
			return fmt.Errorf("%w: %s", ErrQuotaExceeded, detail)
		}
		return fmt.Errorf("%w: %s", ErrRateLimited, detail)
	case status >= 500:
		return fmt.Errorf("%w %d: %s", ErrServerError, status, detail)
	default:
		return fmt.Errorf("%w with status %d: %s", ErrInvalidRequest, status, detail)
	}
}
