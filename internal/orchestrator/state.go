// Package orchestrator drives a planned script through a generation
// provider as one continuous video: segment 0 is generated, every later
// segment extends the previous one from its durable source reference,
// and per-segment plus overall progress is exposed through read-only
// state snapshots.
package orchestrator

import (
	"github.com/adreel/adreel-api/internal/provider"
)

// Phase is the overall state of one orchestration run.
type Phase string

// Run phases. A run moves initial → generating → extending → completed;
// failed is reachable from any non-terminal phase, including via
// cancellation.
const (
	PhaseInitial    Phase = "initial"
	PhaseGenerating Phase = "generating"
	PhaseExtending  Phase = "extending"
	PhaseCompleted  Phase = "completed"
	PhaseFailed     Phase = "failed"
)

// IsTerminal returns true once the run can no longer make progress.
func (p Phase) IsTerminal() bool {
	return p == PhaseCompleted || p == PhaseFailed
}

// SegmentStatus is the state of one planned segment.
type SegmentStatus string

// Segment statuses.
const (
	SegmentPending    SegmentStatus = "pending"
	SegmentGenerating SegmentStatus = "generating"
	SegmentExtending  SegmentStatus = "extending"
	SegmentCompleted  SegmentStatus = "completed"
	SegmentFailed     SegmentStatus = "failed"
)

// SegmentInfo tracks one segment's progress through the run. Completed
// segments keep their results even when a later segment fails, so
// partial progress stays visible for diagnostics.
type SegmentInfo struct {
	// Index is the segment's position in the plan.
	Index int
	// DurationSeconds is the segment's target length.
	DurationSeconds int
	// Prompt is the composed prompt submitted for the segment.
	Prompt string
	// Status is the segment's current state.
	Status SegmentStatus
	// JobID is the provider job id, once submitted.
	JobID string
	// Playable is the segment's rendered media reference, once
	// completed. Intermediate segments may have been released already.
	Playable *provider.Playable
	// SourceRef is the durable reference used to chain the next
	// segment's extension.
	SourceRef string
}

// ErrorInfo is the classified failure attached to a failed run: a stable
// localization key plus the preserved backend message. Raw transport
// errors never reach the caller.
type ErrorInfo struct {
	// Key is the localization key (e.g. "quotaExceeded",
	// "contentFilteredAdult", "cancelled").
	Key string
	// Message is the preserved error detail.
	Message string
}

// State is the caller-observable snapshot of one run. Mutation happens
// only inside the run's own sequential loop; callers always receive a
// deep copy.
type State struct {
	// RunID identifies the run.
	RunID string
	// Segments is the ordered plan with per-segment progress.
	Segments []SegmentInfo
	// CurrentIndex is the segment currently in flight.
	CurrentIndex int
	// Phase is the overall run phase.
	Phase Phase
	// Progress is the overall completion percentage, 0-100. It is
	// monotonically non-decreasing while the run is live and reaches
	// 100 only when Phase is PhaseCompleted.
	Progress int
	// TargetSeconds is the requested total duration.
	TargetSeconds int
	// Video is the final continuous video's playable reference.
	Video *provider.Playable
	// VideoURL is the persisted location of the final video, when a
	// store is configured or the provider returned a URL handle.
	VideoURL string
	// SourceRef is the final segment's durable reference, exposed so
	// the caller may request a further manual extension later.
	SourceRef string
	// Error describes the failure when Phase is PhaseFailed.
	Error *ErrorInfo
}

// clone returns a deep copy safe to hand to callers.
func (s State) clone() State {
	out := s
	out.Segments = make([]SegmentInfo, len(s.Segments))
	copy(out.Segments, s.Segments)
	if s.Error != nil {
		errCopy := *s.Error
		out.Error = &errCopy
	}
	return out
}
