package provider

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/adreel/adreel-api/internal/id"
	"github.com/adreel/adreel-api/internal/registry"
	"github.com/adreel/adreel-api/internal/runway"
)

// runwayCapabilities is the static descriptor for the Runway-style
// backend: short single clips, remote cancel, no extension primitive.
var runwayCapabilities = Capabilities{
	Name:                            "runway",
	MaxClipSeconds:                  10,
	AspectRatios:                    []string{"16:9", "9:16", "1:1"},
	SupportsReferenceImage:          true,
	SupportsExtension:               false,
	SupportsCancel:                  true,
	EstimatedSecondsPerOutputSecond: 8,
}

// runwayRatios maps caller aspect ratios to the API's pixel ratios.
var runwayRatios = map[string]string{
	"16:9": "1280:720",
	"9:16": "720:1280",
	"1:1":  "960:960",
}

// RunwayAdapter adapts the Runway client to the Provider interface.
// Completed tasks expose their output URL directly as a URL-backed
// playable; no binary is fetched or held in memory.
type RunwayAdapter struct {
	client runway.Client
	reg    *registry.Registry
}

// NewRunwayAdapter creates a new Runway provider adapter.
func NewRunwayAdapter(client runway.Client, reg *registry.Registry) *RunwayAdapter {
	return &RunwayAdapter{client: client, reg: reg}
}

// Capabilities returns the Runway capability descriptor.
func (a *RunwayAdapter) Capabilities() Capabilities {
	return runwayCapabilities
}

// Generate submits an image-to-video task.
func (a *RunwayAdapter) Generate(ctx context.Context, req GenerationRequest) (Submission, error) {
	if err := validateGeneration(req, runwayCapabilities); err != nil {
		return Submission{}, err
	}

	prompt := req.Prompt
	if req.NegativePrompt != "" {
		// The task API has no negative prompt field.
		prompt += ". Avoid: " + req.NegativePrompt
	}

	taskReq := runway.CreateTaskRequest{
		PromptText: prompt,
		Ratio:      runwayRatios[req.AspectRatio],
		Duration:   req.DurationSeconds,
		Seed:       req.Seed,
	}
	if req.FirstFrameB64 != "" {
		taskReq.PromptImage = "data:image/png;base64," + req.FirstFrameB64
	} else if req.ReferenceImageB64 != "" {
		taskReq.PromptImage = "data:image/png;base64," + req.ReferenceImageB64
	}

	taskID, err := a.client.CreateTask(ctx, taskReq)
	if err != nil {
		return Submission{}, mapRunwayError(err)
	}

	jobID := id.Generate("job")
	a.reg.Put(registry.Entry{
		JobID:     jobID,
		Provider:  runwayCapabilities.Name,
		Handle:    taskID,
		StartedAt: time.Now(),
		Status:    string(StatusPending),
	})

	return Submission{
		JobID:            jobID,
		EstimatedSeconds: int(float64(req.DurationSeconds) * runwayCapabilities.EstimatedSecondsPerOutputSecond),
		Seed:             req.Seed,
	}, nil
}

// Extend is not supported by this backend; callers must branch on
// Capabilities().SupportsExtension before calling.
func (a *RunwayAdapter) Extend(_ context.Context, _ ExtensionRequest) (Submission, error) {
	return Submission{}, NewError(ReasonValidation, "provider %q does not support extension", runwayCapabilities.Name)
}

// Status polls a task. Terminal results are served from the registry
// cache without touching the backend again.
func (a *RunwayAdapter) Status(ctx context.Context, jobID string) (StatusResult, error) {
	entry, ok := a.reg.Get(jobID)
	if !ok {
		return StatusResult{}, NewError(ReasonValidation, "unknown job %q", jobID)
	}
	if cached, ok := cachedResult(entry); ok {
		return cached, nil
	}

	task, err := a.client.GetTask(ctx, entry.Handle)
	if err != nil {
		return StatusResult{}, mapRunwayError(err)
	}

	switch task.Status {
	case runway.StatusSucceeded:
		if len(task.Output) == 0 {
			failure := NewError(ReasonInternal, "task succeeded without output")
			storeFailure(a.reg, entry, failure)
			return StatusResult{Status: StatusFailed, Failure: failure}, nil
		}
		playable := NewURLPlayable(task.Output[0], "video/mp4")
		entry.Status = string(StatusCompleted)
		entry.Progress = 100
		entry.Playable = playable
		entry.CompletedAt = time.Now()
		a.reg.Put(entry)
		return StatusResult{Status: StatusCompleted, Progress: 100, Playable: playable}, nil

	case runway.StatusFailed:
		failure := classifyRunwayFailure(task)
		storeFailure(a.reg, entry, failure)
		return StatusResult{Status: StatusFailed, Failure: failure}, nil

	case runway.StatusCancelled:
		entry.Status = string(StatusCancelled)
		entry.CompletedAt = time.Now()
		a.reg.Put(entry)
		return StatusResult{Status: StatusCancelled}, nil

	case runway.StatusRunning:
		progress := int(task.Progress * 100)
		entry.Status = string(StatusProcessing)
		entry.Progress = progress
		a.reg.Put(entry)
		return StatusResult{Status: StatusProcessing, Progress: progress}, nil

	default: // PENDING, THROTTLED
		entry.Status = string(StatusPending)
		a.reg.Put(entry)
		return StatusResult{Status: StatusPending}, nil
	}
}

// Cancel cancels the remote task and stops local tracking.
func (a *RunwayAdapter) Cancel(ctx context.Context, jobID string) error {
	entry, ok := a.reg.Get(jobID)
	if !ok {
		return nil
	}
	err := a.client.CancelTask(ctx, entry.Handle)
	a.reg.Delete(jobID)
	if err != nil {
		return mapRunwayError(err)
	}
	return nil
}

// classifyRunwayFailure maps a failed task to the error taxonomy. Safety
// failure codes become content-filtered errors with a category, so the
// caller can present a specific message instead of a retry prompt.
func classifyRunwayFailure(task runway.Task) *Error {
	code := strings.ToUpper(task.FailureCode)
	if strings.HasPrefix(code, "SAFETY") {
		category := FilterGeneric
		switch {
		case strings.Contains(code, "MINOR") || strings.Contains(code, "CHILD"):
			category = FilterMinors
		case strings.Contains(code, "VIOLENCE"):
			category = FilterViolence
		case strings.Contains(code, "ADULT") || strings.Contains(code, "SEXUAL"):
			category = FilterAdult
		case strings.Contains(code, "COPYRIGHT") || strings.Contains(code, "IP"):
			category = FilterCopyright
		}
		return NewContentFiltered(category, "generation filtered: %s", task.Failure)
	}
	return NewError(ReasonInternal, "task failed: %s", task.Failure)
}

// mapRunwayError classifies client errors into the provider taxonomy.
func mapRunwayError(err error) error {
	switch {
	case errors.Is(err, runway.ErrUnauthorized), errors.Is(err, runway.ErrAPIKeyNotSet):
		return WrapError(ReasonConfiguration, err, "runway credentials rejected")
	case errors.Is(err, runway.ErrRateLimited):
		return WrapError(ReasonRateLimited, err, "runway rate limit hit")
	case errors.Is(err, runway.ErrQuotaExceeded):
		return WrapError(ReasonQuotaExceeded, err, "runway quota exhausted")
	case errors.Is(err, runway.ErrInvalidRequest), errors.Is(err, runway.ErrTaskIDRequired):
		return WrapError(ReasonValidation, err, "runway rejected the request")
	case errors.Is(err, runway.ErrServerError):
		return WrapError(ReasonNetwork, err, "runway server error")
	default:
		return WrapError(ReasonNetwork, err, "runway call failed")
	}
}

var _ Provider = (*RunwayAdapter)(nil)
