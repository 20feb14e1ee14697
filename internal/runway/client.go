package runway

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

// Static errors for Runway client operations.
var (
	// ErrAPIKeyNotSet is returned when no API key is provided.
	ErrAPIKeyNotSet = errors.New("runway: API key is required")
	// ErrTaskIDRequired is returned when the task ID is not provided.
	ErrTaskIDRequired = errors.New("runway: task ID is required")
	// ErrNoTaskIDReturned is returned when the create response contains no task ID.
	ErrNoTaskIDReturned = errors.New("runway: create failed: no task ID returned")
	// ErrUnauthorized is returned when the server rejects the credentials.
	ErrUnauthorized = errors.New("runway: unauthorized")
	// ErrRateLimited is returned when the server returns a 429 status code.
	ErrRateLimited = errors.New("runway: rate limited")
	// ErrQuotaExceeded is returned when the account has no credits left.
	ErrQuotaExceeded = errors.New("runway: quota exceeded")
	// ErrInvalidRequest is returned when the server rejects the request shape.
	ErrInvalidRequest = errors.New("runway: invalid request")
	// ErrServerError is returned when the server returns a 5xx status code.
	ErrServerError = errors.New("runway: server error")
)

// Client defines the interface for interacting with the Runway task API.
type Client interface {
	// CreateTask submits an image-to-video task and returns the task ID.
	CreateTask(ctx context.Context, req CreateTaskRequest) (taskID string, err error)

	// GetTask fetches the current state of a task.
	GetTask(ctx context.Context, taskID string) (Task, error)

	// CancelTask cancels a running task, best-effort.
	CancelTask(ctx context.Context, taskID string) error
}

// HTTPClient is the HTTP implementation of the Runway Client interface.
// Individual calls are single-shot; retry policy belongs to the caller.
type HTTPClient struct {
	apiKey     string
	baseURL    string
	apiVersion string
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

// WithBaseURL sets a custom base URL for the Runway API.
func WithBaseURL(url string) ClientOption {
	return func(hc *HTTPClient) {
		hc.baseURL = url
	}
}

// NewClient creates a new Runway HTTP client. The API key can be set via
// the WithAPIKey option; if not provided, it is read from the
// RUNWAY_API_KEY environment variable.
func NewClient(opts ...ClientOption) (*HTTPClient, error) {
	c := &HTTPClient{
		baseURL:    "https://api.dev.runwayml.com/v1",
		apiVersion: "2024-11-06",
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.apiKey == "" {
		c.apiKey = os.Getenv("RUNWAY_API_KEY")
	}
	if c.apiKey == "" {
		return nil, ErrAPIKeyNotSet
	}

	return c, nil
}

// CreateTask submits an image-to-video task and returns the task ID.
func (c *HTTPClient) CreateTask(ctx context.Context, req CreateTaskRequest) (string, error) {
	if req.Model == "" {
		req.Model = "gen4_turbo"
	}

	var resp CreateTaskResponse
	if err := c.doRequest(ctx, http.MethodPost, c.baseURL+"/image_to_video", req, &resp); err != nil {
		return "", err
	}
	if resp.ID == "" {
		return "", ErrNoTaskIDReturned
	}
	return resp.ID, nil
}

// GetTask fetches the current state of a task.
func (c *HTTPClient) GetTask(ctx context.Context, taskID string) (Task, error) {
	if taskID == "" {
		return Task{}, ErrTaskIDRequired
	}

	var task Task
	if err := c.doRequest(ctx, http.MethodGet, c.baseURL+"/tasks/"+taskID, nil, &task); err != nil {
		return Task{}, err
	}
	return task, nil
}

// CancelTask cancels a running task, best-effort.
func (c *HTTPClient) CancelTask(ctx context.Context, taskID string) error {
	if taskID == "" {
		return ErrTaskIDRequired
	}
	return c.doRequest(ctx, http.MethodDelete, c.baseURL+"/tasks/"+taskID, nil, nil)
}

// doRequest performs a single HTTP request and maps non-2xx responses to
// the package's sentinel errors.
func (c *HTTPClient) doRequest(ctx context.Context, method, url string, body, result any) error {
	var bodyReader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("runway: marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return fmt.Errorf("runway: create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("X-Runway-Version", c.apiVersion)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("runway: request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("runway: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.mapHTTPError(resp.StatusCode, respBody)
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("runway: unmarshal response: %w", err)
		}
	}

	return nil
}

// mapHTTPError converts an API error response to a sentinel error.
func (c *HTTPClient) mapHTTPError(status int, body []byte) error {
	var apiErr errorResponse
	_ = json.Unmarshal(body, &apiErr)
	detail := apiErr.Error
	if detail == "" {
		detail = string(body)
	}

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("%w: %s", ErrUnauthorized, detail)
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", ErrRateLimited, detail)
	case status == http.StatusPaymentRequired:
		return fmt.Errorf("%w: %s", ErrQuotaExceeded, detail)
	case status >= 500:
		return fmt.Errorf("%w %d: %s", ErrServerError, status, detail)
	default:
		return fmt.Errorf("%w with status %d: %s", ErrInvalidRequest, status, detail)
	}
}
