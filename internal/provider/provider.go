// Package provider defines the common contract for video generation
// backends. Each backend adapter implements the Provider interface and
// advertises its limits through a static Capabilities descriptor, so
// callers can plan segment splits and branch on extension/cancel support
// without probing for behavior at runtime.
package provider

import "context"

// JobStatus represents the status of a generation job.
type JobStatus string

// Common job statuses across providers.
const (
	StatusPending    JobStatus = "PENDING"    // Job submitted but not yet running
	StatusProcessing JobStatus = "PROCESSING" // Job is currently rendering
	StatusCompleted  JobStatus = "COMPLETED"  // Job finished successfully
	StatusFailed     JobStatus = "FAILED"     // Job failed with a classified error
	StatusCancelled  JobStatus = "CANCELLED"  // Job was cancelled
)

// IsTerminal returns true if the status represents a final state.
func (s JobStatus) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// Capabilities describes the static limits and features of a backend.
// One immutable instance exists per provider; the segment planner and the
// HTTP capability endpoint both consume it without any network call.
type Capabilities struct {
	// Name identifies the backend ("mock", "runway", "veo").
	Name string
	// MaxClipSeconds is the longest single clip the backend can generate.
	MaxClipSeconds int
	// AspectRatios lists the supported aspect ratios (e.g. "16:9").
	AspectRatios []string
	// SupportsReferenceImage reports whether first/last/reference frames
	// may be attached to a generation request.
	SupportsReferenceImage bool
	// SupportsExtension reports whether the backend can continue a
	// previously generated clip from its durable source reference.
	SupportsExtension bool
	// SupportsCancel reports whether the backend has a remote cancel
	// endpoint. Providers without one simply stop local tracking.
	SupportsCancel bool
	// MaxTotalSeconds bounds the total extended duration. Zero means the
	// backend cannot exceed MaxClipSeconds.
	MaxTotalSeconds int
	// ExtendIncrementSeconds is the longest single extension.
	ExtendIncrementSeconds int
	// MinExtendSeconds is the shortest extension the backend accepts.
	MinExtendSeconds int
	// EstimatedSecondsPerOutputSecond is the rough wall-clock cost of
	// rendering one second of output, used for UI estimates.
	EstimatedSecondsPerOutputSecond float64
}

// SupportsAspectRatio reports whether the given ratio is supported.
func (c Capabilities) SupportsAspectRatio(ratio string) bool {
	for _, r := range c.AspectRatios {
		if r == ratio {
			return true
		}
	}
	return false
}

// TotalLimitSeconds returns the effective cap on total output duration.
func (c Capabilities) TotalLimitSeconds() int {
	if c.SupportsExtension && c.MaxTotalSeconds > 0 {
		return c.MaxTotalSeconds
	}
	return c.MaxClipSeconds
}

// GenerationRequest describes a single initial clip generation.
// Created per segment and consumed once.
type GenerationRequest struct {
	// Prompt is the visual description for the clip.
	Prompt string
	// NegativePrompt describes content to avoid (optional).
	NegativePrompt string
	// DurationSeconds is the requested clip length.
	DurationSeconds int
	// AspectRatio is the requested aspect ratio (e.g. "16:9").
	AspectRatio string
	// Resolution is an optional resolution hint (e.g. "720p").
	Resolution string
	// FirstFrameB64 is an optional base64-encoded first-frame image.
	FirstFrameB64 string
	// LastFrameB64 is an optional base64-encoded last-frame image.
	LastFrameB64 string
	// ReferenceImageB64 is an optional base64-encoded style reference.
	ReferenceImageB64 string
	// Seed optionally pins the generation for reproducibility.
	Seed *int64
}

// ExtensionRequest describes the continuation of a previously generated
// clip. Valid only against a provider whose Capabilities report
// SupportsExtension, and only while the source reference is still live.
type ExtensionRequest struct {
	// Prompt is the visual description for the extension.
	Prompt string
	// SourceRef is the durable source reference of the prior clip.
	SourceRef string
	// AspectRatio must match the source clip's aspect ratio.
	AspectRatio string
	// Resolution is an optional resolution hint.
	Resolution string
	// DurationSeconds optionally overrides the extension length.
	DurationSeconds int
	// Seed optionally pins the generation for reproducibility.
	Seed *int64
}

// Submission is the result of accepting a generation or extension request.
type Submission struct {
	// JobID is the caller-facing opaque job identifier.
	JobID string
	// EstimatedSeconds is the expected wall-clock rendering time.
	EstimatedSeconds int
	// Seed is the seed the backend actually used, when reported.
	Seed *int64
}

// StatusResult is the outcome of a single status poll. Polls are
// idempotent: once a job is terminal, repeated calls return the cached
// result without touching the backend again.
type StatusResult struct {
	// Status is the job's current state.
	Status JobStatus
	// Progress is the backend-reported completion percentage (0-100)
	// while processing; 100 when completed.
	Progress int
	// Playable is the locally consumable media reference, set once the
	// job completes. Never valid as extension input.
	Playable *Playable
	// SourceRef is the durable provider-issued reference to the
	// completed clip, usable as input to a future Extend call.
	SourceRef string
	// Failure carries the classified error when Status is StatusFailed.
	Failure *Error
}

// Provider is the polymorphic contract over generation backends.
//
// Extend and Cancel are part of the interface but optional capabilities:
// callers must branch on Capabilities().SupportsExtension and
// Capabilities().SupportsCancel rather than calling blindly. Providers
// without a capability return a validation error when it is invoked.
type Provider interface {
	// Capabilities returns the backend's static capability descriptor.
	Capabilities() Capabilities

	// Generate submits an initial clip generation request.
	Generate(ctx context.Context, req GenerationRequest) (Submission, error)

	// Status polls a job. Safe to call repeatedly.
	Status(ctx context.Context, jobID string) (StatusResult, error)

	// Cancel stops a job, best-effort.
	Cancel(ctx context.Context, jobID string) error

	// Extend submits a continuation of a previously completed clip.
	Extend(ctx context.Context, req ExtensionRequest) (Submission, error)
}
