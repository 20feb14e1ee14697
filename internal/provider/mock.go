package provider

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/adreel/adreel-api/internal/id"
	"github.com/adreel/adreel-api/internal/registry"
)

// Mock is a deterministic in-process provider used when no backend
// credentials are configured, and by tests. It renders nothing: jobs
// advance a fixed progress step on every status poll and complete with
// synthetic media. Extension is supported so the full chaining path can
// run without network access.
type Mock struct {
	caps Capabilities
	reg  *registry.Registry

	mu          sync.Mutex
	jobs        map[string]*mockJob
	submissions int
	failAt      int    // 1-based submission index that should fail; 0 = never
	failWith    *Error // classified failure injected at failAt

	progressStep int
}

type mockJob struct {
	prompt    string
	duration  int
	progress  int
	sourceRef string
	failure   *Error
	done      bool
}

// MockOption configures a Mock provider.
type MockOption func(*Mock)

// WithMockCapabilities overrides the default capability descriptor.
func WithMockCapabilities(caps Capabilities) MockOption {
	return func(m *Mock) { m.caps = caps }
}

// WithMockProgressStep sets the progress gained per status poll.
func WithMockProgressStep(step int) MockOption {
	return func(m *Mock) {
		if step > 0 {
			m.progressStep = step
		}
	}
}

// WithMockFailure makes the nth submitted job (1-based) fail with the
// given classified error once polled.
func WithMockFailure(n int, err *Error) MockOption {
	return func(m *Mock) {
		m.failAt = n
		m.failWith = err
	}
}

// NewMock creates a mock provider backed by the given registry.
func NewMock(reg *registry.Registry, opts ...MockOption) *Mock {
	m := &Mock{
		caps: Capabilities{
			Name:                            "mock",
			MaxClipSeconds:                  8,
			AspectRatios:                    []string{"16:9", "9:16", "1:1"},
			SupportsReferenceImage:          true,
			SupportsExtension:               true,
			SupportsCancel:                  true,
			MaxTotalSeconds:                 60,
			ExtendIncrementSeconds:          8,
			MinExtendSeconds:                4,
			EstimatedSecondsPerOutputSecond: 0,
		},
		reg:          reg,
		jobs:         make(map[string]*mockJob),
		progressStep: 50,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Capabilities returns the mock's capability descriptor.
func (m *Mock) Capabilities() Capabilities {
	return m.caps
}

// Generate submits a synthetic generation job.
func (m *Mock) Generate(_ context.Context, req GenerationRequest) (Submission, error) {
	if req.Prompt == "" {
		return Submission{}, NewError(ReasonValidation, "prompt is required")
	}
	if req.AspectRatio != "" && !m.caps.SupportsAspectRatio(req.AspectRatio) {
		return Submission{}, NewError(ReasonValidation, "unsupported aspect ratio %q", req.AspectRatio)
	}
	if req.DurationSeconds <= 0 || req.DurationSeconds > m.caps.MaxClipSeconds {
		return Submission{}, NewError(ReasonValidation, "duration %ds outside 1-%ds", req.DurationSeconds, m.caps.MaxClipSeconds)
	}
	return m.submit(req.Prompt, req.DurationSeconds), nil
}

// Extend submits a synthetic extension job. The source reference must
// have been issued by a prior completed mock job.
func (m *Mock) Extend(_ context.Context, req ExtensionRequest) (Submission, error) {
	if req.SourceRef == "" {
		return Submission{}, NewError(ReasonValidation, "source reference is required")
	}
	duration := req.DurationSeconds
	if duration == 0 {
		duration = m.caps.ExtendIncrementSeconds
	}
	if duration < m.caps.MinExtendSeconds || duration > m.caps.ExtendIncrementSeconds {
		return Submission{}, NewError(ReasonValidation,
			"extension of %ds outside provider %q range %d-%ds",
			duration, m.caps.Name, m.caps.MinExtendSeconds, m.caps.ExtendIncrementSeconds)
	}
	m.mu.Lock()
	known := false
	for _, j := range m.jobs {
		if j.done && j.sourceRef == req.SourceRef {
			known = true
			break
		}
	}
	m.mu.Unlock()
	if !known {
		// An expired or foreign reference is terminal, not retryable.
		return Submission{}, NewError(ReasonValidation, "unknown source reference %q", req.SourceRef)
	}
	return m.submit(req.Prompt, duration), nil
}

func (m *Mock) submit(prompt string, duration int) Submission {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.submissions++
	jobID := id.Generate("mock")
	j := &mockJob{prompt: prompt, duration: duration}
	if m.failAt > 0 && m.submissions == m.failAt {
		j.failure = m.failWith
	}
	m.jobs[jobID] = j

	if m.reg != nil {
		m.reg.Put(registry.Entry{
			JobID:     jobID,
			Provider:  m.caps.Name,
			Handle:    jobID,
			StartedAt: time.Now(),
			Status:    string(StatusPending),
		})
	}

	return Submission{JobID: jobID, EstimatedSeconds: duration}
}

// Status advances the job by one progress step and reports its state.
func (m *Mock) Status(_ context.Context, jobID string) (StatusResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	j, ok := m.jobs[jobID]
	if !ok {
		return StatusResult{}, NewError(ReasonValidation, "unknown job %q", jobID)
	}

	if j.done {
		if j.failure != nil {
			return StatusResult{Status: StatusFailed, Failure: j.failure}, nil
		}
		return StatusResult{
			Status:    StatusCompleted,
			Progress:  100,
			Playable:  NewInlinePlayable([]byte("mock-video:"+j.sourceRef), "video/mp4"),
			SourceRef: j.sourceRef,
		}, nil
	}

	j.progress += m.progressStep
	if j.progress < 100 {
		return StatusResult{Status: StatusProcessing, Progress: j.progress}, nil
	}

	j.done = true
	if j.failure != nil {
		return StatusResult{Status: StatusFailed, Failure: j.failure}, nil
	}
	j.progress = 100
	j.sourceRef = fmt.Sprintf("mock-src-%s", jobID)
	result := StatusResult{
		Status:    StatusCompleted,
		Progress:  100,
		Playable:  NewInlinePlayable([]byte("mock-video:"+j.sourceRef), "video/mp4"),
		SourceRef: j.sourceRef,
	}

	if m.reg != nil {
		if entry, ok := m.reg.Get(jobID); ok {
			entry.Status = string(StatusCompleted)
			entry.Progress = 100
			entry.SourceRef = j.sourceRef
			entry.Playable = result.Playable
			entry.CompletedAt = time.Now()
			m.reg.Put(entry)
		}
	}

	return result, nil
}

// Cancel stops tracking a job.
func (m *Mock) Cancel(_ context.Context, jobID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.jobs, jobID)
	if m.reg != nil {
		m.reg.Delete(jobID)
	}
	return nil
}

var _ Provider = (*Mock)(nil)
