package orchestrator

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/adreel/adreel-api/internal/id"
	"github.com/adreel/adreel-api/internal/planner"
	"github.com/adreel/adreel-api/internal/provider"
	"github.com/adreel/adreel-api/internal/registry"
	"github.com/adreel/adreel-api/internal/retry"
	"github.com/adreel/adreel-api/internal/storage"
)

// Defaults bounding one segment's wall-clock wait: 200 polls at 3s is
// ten minutes per segment before the run is failed as timed out.
const (
	DefaultPollInterval = 3 * time.Second
	DefaultMaxPolls     = 200
)

// Input is a finalized script plus the generation settings shared by
// every segment of the run.
type Input struct {
	// Scenes is the ordered script: a prompt and a duration per scene.
	Scenes []planner.Scene
	// AspectRatio is the requested aspect ratio (e.g. "16:9").
	AspectRatio string
	// Resolution is an optional resolution hint.
	Resolution string
	// NegativePrompt describes content to avoid (optional).
	NegativePrompt string
	// FirstFrameB64 optionally seeds segment 0's first frame.
	FirstFrameB64 string
	// LastFrameB64 optionally pins segment 0's last frame.
	LastFrameB64 string
	// ReferenceImageB64 is an optional style reference for segment 0.
	ReferenceImageB64 string
	// CameraMotion is a fixed camera directive appended to every
	// segment's prompt, extensions included, so extended segments do
	// not drift from the intended camera behavior.
	CameraMotion string
	// Seed optionally pins the generation for reproducibility.
	Seed *int64
}

// Orchestrator turns scripts into continuous videos against a single
// provider. It is safe for concurrent use: each Start call owns its own
// run state, and the operation registry is the only shared resource.
type Orchestrator struct {
	prov   provider.Provider
	reg    *registry.Registry
	store  storage.Store
	logger *slog.Logger

	pollInterval time.Duration
	maxPolls     int
	retryOpts    []retry.Option
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithPollInterval sets the delay between status polls.
func WithPollInterval(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.pollInterval = d
		}
	}
}

// WithMaxPolls bounds the number of polls per segment.
func WithMaxPolls(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.maxPolls = n
		}
	}
}

// WithStore persists completed inline videos so they survive registry
// eviction.
func WithStore(store storage.Store) Option {
	return func(o *Orchestrator) { o.store = store }
}

// WithRetryOptions overrides the retry budget for submit calls.
func WithRetryOptions(opts ...retry.Option) Option {
	return func(o *Orchestrator) { o.retryOpts = opts }
}

// New creates an Orchestrator for the given provider and registry.
func New(prov provider.Provider, reg *registry.Registry, logger *slog.Logger, opts ...Option) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	o := &Orchestrator{
		prov:         prov,
		reg:          reg,
		logger:       logger,
		pollInterval: DefaultPollInterval,
		maxPolls:     DefaultMaxPolls,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run is one live orchestration session. Its state is mutated only by
// the run's own sequential loop; Snapshot returns read-only copies.
type Run struct {
	mu        sync.RWMutex
	state     State
	cancelled atomic.Bool
	done      chan struct{}
}

// Snapshot returns a deep copy of the run's current state.
func (r *Run) Snapshot() State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state.clone()
}

// Cancel requests cooperative cancellation. The run observes the flag at
// the top of its next poll tick and terminates without waiting for the
// backend; no further generate or extend calls are issued. A cancelled
// run is terminal and cannot be resumed.
func (r *Run) Cancel() {
	r.cancelled.Store(true)
}

// Done is closed when the run reaches a terminal phase.
func (r *Run) Done() <-chan struct{} {
	return r.done
}

// ID returns the run identifier.
func (r *Run) ID() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state.RunID
}

// Start plans the script and launches the run. Planning happens before
// any network call: a plan failure returns a run already in the failed
// phase, and the provider is never contacted.
func (o *Orchestrator) Start(ctx context.Context, input Input) *Run {
	run := &Run{
		done: make(chan struct{}),
		state: State{
			RunID: id.Generate("run"),
			Phase: PhaseInitial,
		},
	}

	segments, err := planner.Plan(input.Scenes, o.prov.Capabilities())
	if err != nil {
		o.logger.Warn("planning failed",
			slog.String("run_id", run.state.RunID),
			slog.String("error", err.Error()),
		)
		run.state.Error = &ErrorInfo{Key: provider.KeyOf(err), Message: err.Error()}
		run.state.Phase = PhaseFailed
		close(run.done)
		return run
	}

	total := 0
	infos := make([]SegmentInfo, len(segments))
	for i, seg := range segments {
		total += seg.DurationSeconds
		infos[i] = SegmentInfo{
			Index:           seg.Index,
			DurationSeconds: seg.DurationSeconds,
			Prompt:          composePrompt(seg.Prompt, input.CameraMotion),
			Status:          SegmentPending,
		}
	}
	run.state.Segments = infos
	run.state.TargetSeconds = total

	o.logger.Info("run started",
		slog.String("run_id", run.state.RunID),
		slog.String("provider", o.prov.Capabilities().Name),
		slog.Int("segments", len(infos)),
		slog.Int("target_seconds", total),
	)

	go o.execute(ctx, run, input)
	return run
}

// execute is the run's sequential loop. Segments are strictly ordered:
// each extension depends on the previous segment's durable reference, so
// there is no intra-run parallelism.
func (o *Orchestrator) execute(ctx context.Context, run *Run, input Input) {
	defer close(run.done)

	n := len(run.state.Segments)
	prevSourceRef := ""
	prevJobID := ""

	for i := 0; i < n; i++ {
		if run.cancelled.Load() {
			o.fail(run, i, provider.NewError(provider.ReasonCancelled, "run cancelled by caller"))
			return
		}

		submission, err := o.submitSegment(ctx, run, i, input, prevSourceRef)
		if err != nil {
			o.fail(run, i, err)
			return
		}

		result, err := o.pollSegment(ctx, run, i, submission.JobID)
		if err != nil {
			o.fail(run, i, err)
			return
		}

		run.mu.Lock()
		run.state.Segments[i].Status = SegmentCompleted
		run.state.Segments[i].Playable = result.Playable
		run.state.Segments[i].SourceRef = result.SourceRef
		o.setProgressLocked(run, (i+1)*100/n)
		run.mu.Unlock()

		// The previous segment's registry entry has been consumed as
		// extension input; drop it so its buffer is released before the
		// sweep would get to it.
		if prevJobID != "" {
			o.reg.Delete(prevJobID)
		}
		prevSourceRef = result.SourceRef
		prevJobID = submission.JobID
	}

	o.complete(ctx, run)
}

// submitSegment issues the segment's generate or extend call through the
// retry wrapper.
func (o *Orchestrator) submitSegment(ctx context.Context, run *Run, i int, input Input, prevSourceRef string) (provider.Submission, error) {
	run.mu.Lock()
	segment := run.state.Segments[i]
	run.state.CurrentIndex = i
	if i == 0 {
		run.state.Segments[i].Status = SegmentGenerating
		run.state.Phase = PhaseGenerating
	} else {
		run.state.Segments[i].Status = SegmentExtending
		run.state.Phase = PhaseExtending
	}
	n := len(run.state.Segments)
	o.setProgressLocked(run, i*100/n)
	run.mu.Unlock()

	o.logger.Info("submitting segment",
		slog.String("run_id", run.ID()),
		slog.Int("segment", i),
		slog.Int("duration_seconds", segment.DurationSeconds),
	)

	if i > 0 && !o.prov.Capabilities().SupportsExtension {
		return provider.Submission{}, provider.NewError(provider.ReasonValidation,
			"provider %q does not support extension", o.prov.Capabilities().Name)
	}

	var submission provider.Submission
	submitErr := retry.Do(ctx, func(ctx context.Context) error {
		var err error
		if i == 0 {
			submission, err = o.prov.Generate(ctx, provider.GenerationRequest{
				Prompt:            segment.Prompt,
				NegativePrompt:    input.NegativePrompt,
				DurationSeconds:   segment.DurationSeconds,
				AspectRatio:       input.AspectRatio,
				Resolution:        input.Resolution,
				FirstFrameB64:     input.FirstFrameB64,
				LastFrameB64:      input.LastFrameB64,
				ReferenceImageB64: input.ReferenceImageB64,
				Seed:              input.Seed,
			})
		} else {
			submission, err = o.prov.Extend(ctx, provider.ExtensionRequest{
				Prompt:          segment.Prompt,
				SourceRef:       prevSourceRef,
				AspectRatio:     input.AspectRatio,
				Resolution:      input.Resolution,
				DurationSeconds: segment.DurationSeconds,
				Seed:            input.Seed,
			})
		}
		return err
	}, o.retryOptions()...)
	if submitErr != nil {
		return provider.Submission{}, submitErr
	}

	run.mu.Lock()
	run.state.Segments[i].JobID = submission.JobID
	run.mu.Unlock()
	return submission, nil
}

// pollSegment polls the job at a fixed interval until it is terminal,
// the caller cancels, or the poll budget is exhausted. The cancellation
// flag is checked first on every tick, so no further backend calls
// happen once cancellation is observed.
func (o *Orchestrator) pollSegment(ctx context.Context, run *Run, i int, jobID string) (provider.StatusResult, error) {
	n := len(run.state.Segments)

	for poll := 0; poll < o.maxPolls; poll++ {
		if run.cancelled.Load() {
			o.cancelRemote(ctx, jobID)
			return provider.StatusResult{}, provider.NewError(provider.ReasonCancelled, "run cancelled by caller")
		}

		result, err := o.prov.Status(ctx, jobID)
		if err != nil {
			if !provider.IsRetryable(err) {
				return provider.StatusResult{}, err
			}
			// Transient poll failure: the tick still counts against the
			// budget, the next tick retries.
			o.logger.Warn("status poll failed",
				slog.String("run_id", run.ID()),
				slog.String("job_id", jobID),
				slog.String("error", err.Error()),
			)
		} else {
			switch result.Status {
			case provider.StatusCompleted:
				return result, nil
			case provider.StatusFailed:
				failure := result.Failure
				if failure == nil {
					failure = provider.NewError(provider.ReasonInternal, "job failed without detail")
				}
				return provider.StatusResult{}, failure
			case provider.StatusCancelled:
				return provider.StatusResult{}, provider.NewError(provider.ReasonCancelled, "job cancelled by backend")
			default:
				run.mu.Lock()
				o.setProgressLocked(run, (i*100+result.Progress)/n)
				run.mu.Unlock()
			}
		}

		select {
		case <-ctx.Done():
			return provider.StatusResult{}, provider.WrapError(provider.ReasonCancelled, ctx.Err(), "run context cancelled")
		case <-time.After(o.pollInterval):
		}
	}

	return provider.StatusResult{}, provider.NewError(provider.ReasonTimeout,
		"segment %d did not finish within %d polls", i, o.maxPolls)
}

// complete publishes the final segment's result as the run's outcome.
func (o *Orchestrator) complete(ctx context.Context, run *Run) {
	run.mu.Lock()
	last := run.state.Segments[len(run.state.Segments)-1]
	run.state.Video = last.Playable
	run.state.SourceRef = last.SourceRef
	run.mu.Unlock()

	videoURL := ""
	if last.Playable != nil {
		switch last.Playable.Kind() {
		case provider.PlayableURL:
			videoURL = last.Playable.URL()
		case provider.PlayableInline:
			if o.store != nil {
				url, err := o.store.SaveVideo(ctx, run.ID(), bytes.NewReader(last.Playable.Bytes()))
				if err != nil {
					o.logger.Error("persisting final video failed",
						slog.String("run_id", run.ID()),
						slog.String("error", err.Error()),
					)
				} else {
					videoURL = url
				}
			}
		}
	}

	run.mu.Lock()
	run.state.VideoURL = videoURL
	run.state.Phase = PhaseCompleted
	run.state.Progress = 100
	run.mu.Unlock()

	o.logger.Info("run completed",
		slog.String("run_id", run.ID()),
		slog.Int("segments", len(run.state.Segments)),
		slog.String("video_url", videoURL),
	)
}

// fail moves the run to the terminal failed phase, preserving the
// classified error and all completed segment results.
func (o *Orchestrator) fail(run *Run, i int, err error) {
	run.mu.Lock()
	if i < len(run.state.Segments) {
		run.state.Segments[i].Status = SegmentFailed
	}
	run.state.Phase = PhaseFailed
	run.state.Error = &ErrorInfo{Key: provider.KeyOf(err), Message: err.Error()}
	run.mu.Unlock()

	o.logger.Warn("run failed",
		slog.String("run_id", run.ID()),
		slog.Int("segment", i),
		slog.String("reason", provider.KeyOf(err)),
		slog.String("error", err.Error()),
	)
}

// cancelRemote issues a best-effort remote cancel when the backend has
// one.
func (o *Orchestrator) cancelRemote(ctx context.Context, jobID string) {
	if !o.prov.Capabilities().SupportsCancel {
		return
	}
	if err := o.prov.Cancel(ctx, jobID); err != nil {
		o.logger.Warn("remote cancel failed",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()),
		)
	}
}

// setProgressLocked raises overall progress, keeping it monotonic and
// below 100 until the run completes. Callers hold run.mu.
func (o *Orchestrator) setProgressLocked(run *Run, progress int) {
	if progress > 99 {
		progress = 99
	}
	if progress > run.state.Progress && run.state.Phase != PhaseFailed {
		run.state.Progress = progress
	}
}

func (o *Orchestrator) retryOptions() []retry.Option {
	opts := []retry.Option{retry.WithRetryIf(provider.IsRetryable)}
	return append(opts, o.retryOpts...)
}

// composePrompt appends the camera-motion directive to a segment prompt.
func composePrompt(prompt, cameraMotion string) string {
	if cameraMotion == "" {
		return prompt
	}
	if prompt == "" {
		return cameraMotion
	}
	return strings.TrimRight(prompt, ". ") + ". " + cameraMotion
}
