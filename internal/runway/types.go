// Package runway provides an HTTP client for a Runway-style video
// generation task API: single clips up to ten seconds, poll-based task
// status, remote cancellation, no extension support.
package runway

// TaskStatus represents the status of a Runway task.
type TaskStatus string

// Task statuses aligned with the Runway task API.
const (
	StatusPending   TaskStatus = "PENDING"
	StatusThrottled TaskStatus = "THROTTLED"
	StatusRunning   TaskStatus = "RUNNING"
	StatusSucceeded TaskStatus = "SUCCEEDED"
	StatusFailed    TaskStatus = "FAILED"
	StatusCancelled TaskStatus = "CANCELLED"
)

// IsTerminal returns true if the status is a terminal state.
func (s TaskStatus) IsTerminal() bool {
	switch s {
	case StatusSucceeded, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// CreateTaskRequest is the request body for the image_to_video endpoint.
type CreateTaskRequest struct {
	Model       string `json:"model"`
	PromptText  string `json:"promptText"`
	PromptImage string `json:"promptImage,omitempty"`
	Ratio       string `json:"ratio"`
	Duration    int    `json:"duration"`
	Seed        *int64 `json:"seed,omitempty"`
}

// CreateTaskResponse is the response from the image_to_video endpoint.
type CreateTaskResponse struct {
	ID string `json:"id"`
}

// Task is the response from the task status endpoint.
type Task struct {
	ID          string     `json:"id"`
	Status      TaskStatus `json:"status"`
	Progress    float64    `json:"progress,omitempty"` // 0.0-1.0 while running
	Output      []string   `json:"output,omitempty"`   // result URLs when succeeded
	Failure     string     `json:"failure,omitempty"`
	FailureCode string     `json:"failureCode,omitempty"` // e.g. "SAFETY.OUTPUT.VIDEO"
}

// errorResponse is the API's error body for non-2xx responses.
type errorResponse struct {
	Error string `json:"error,omitempty"`
}
