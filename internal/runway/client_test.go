package runway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*HTTPClient, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(WithAPIKey("test-key"), WithBaseURL(server.URL))
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	return client, server
}

func TestNewClientRequiresAPIKey(t *testing.T) {
	t.Setenv("RUNWAY_API_KEY", "")
	if _, err := NewClient(); !errors.Is(err, ErrAPIKeyNotSet) {
		t.Fatalf("NewClient() error = %v, want ErrAPIKeyNotSet", err)
	}
}

func TestNewClientReadsKeyFromEnv(t *testing.T) {
	t.Setenv("RUNWAY_API_KEY", "env-key")
	client, err := NewClient()
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	if client.apiKey != "env-key" {
		t.Errorf("apiKey = %q, want env-key", client.apiKey)
	}
}

func TestCreateTask(t *testing.T) {
	var captured CreateTaskRequest
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/image_to_video" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q", got)
		}
		if got := r.Header.Get("X-Runway-Version"); got != "2024-11-06" {
			t.Errorf("X-Runway-Version = %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(CreateTaskResponse{ID: "task-123"})
	})

	taskID, err := client.CreateTask(context.Background(), CreateTaskRequest{
		PromptText: "a sailboat in a storm",
		Ratio:      "1280:720",
		Duration:   10,
	})
	if err != nil {
		t.Fatalf("CreateTask() error = %v", err)
	}
	if taskID != "task-123" {
		t.Errorf("taskID = %q, want task-123", taskID)
	}
	if captured.Model != "gen4_turbo" {
		t.Errorf("model = %q, want default gen4_turbo", captured.Model)
	}
}

func TestCreateTaskWithoutTaskID(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(CreateTaskResponse{})
	})

	_, err := client.CreateTask(context.Background(), CreateTaskRequest{PromptText: "x"})
	if !errors.Is(err, ErrNoTaskIDReturned) {
		t.Fatalf("CreateTask() error = %v, want ErrNoTaskIDReturned", err)
	}
}

func TestGetTask(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/tasks/task-123" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(Task{
			ID:     "task-123",
			Status: StatusSucceeded,
			Output: []string{"https://cdn.example.com/out.mp4"},
		})
	})

	task, err := client.GetTask(context.Background(), "task-123")
	if err != nil {
		t.Fatalf("GetTask() error = %v", err)
	}
	if task.Status != StatusSucceeded || len(task.Output) != 1 {
		t.Errorf("GetTask() = %+v", task)
	}
}

func TestGetTaskRequiresID(t *testing.T) {
	client, _ := newTestClient(t, func(http.ResponseWriter, *http.Request) {
		t.Error("no request expected")
	})
	if _, err := client.GetTask(context.Background(), ""); !errors.Is(err, ErrTaskIDRequired) {
		t.Fatalf("GetTask() error = %v, want ErrTaskIDRequired", err)
	}
}

func TestCancelTask(t *testing.T) {
	cancelled := false
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete || r.URL.Path != "/tasks/task-123" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		cancelled = true
		w.WriteHeader(http.StatusNoContent)
	})

	if err := client.CancelTask(context.Background(), "task-123"); err != nil {
		t.Fatalf("CancelTask() error = %v", err)
	}
	if !cancelled {
		t.Error("cancel request never reached the server")
	}
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{"unauthorized", http.StatusUnauthorized, ErrUnauthorized},
		{"forbidden", http.StatusForbidden, ErrUnauthorized},
		{"rate limited", http.StatusTooManyRequests, ErrRateLimited},
		{"quota exceeded", http.StatusPaymentRequired, ErrQuotaExceeded},
		{"bad request", http.StatusBadRequest, ErrInvalidRequest},
		{"server error", http.StatusInternalServerError, ErrServerError},
		{"bad gateway", http.StatusBadGateway, ErrServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_ = json.NewEncoder(w).Encode(errorResponse{Error: "detail"})
			})

			_, err := client.GetTask(context.Background(), "task-123")
			if !errors.Is(err, tt.want) {
				t.Fatalf("GetTask() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestTaskStatusIsTerminal(t *testing.T) {
	terminal := []TaskStatus{StatusSucceeded, StatusFailed, StatusCancelled}
	for _, s := range terminal {
		if !s.IsTerminal() {
			t.Errorf("%s.IsTerminal() = false, want true", s)
		}
	}
	live := []TaskStatus{StatusPending, StatusThrottled, StatusRunning}
	for _, s := range live {
		if s.IsTerminal() {
			t.Errorf("%s.IsTerminal() = true, want false", s)
		}
	}
}
