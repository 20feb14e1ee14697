package orchestrator

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/adreel/adreel-api/internal/planner"
	"github.com/adreel/adreel-api/internal/provider"
	"github.com/adreel/adreel-api/internal/registry"
	"github.com/adreel/adreel-api/internal/retry"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fastOptions() []Option {
	return []Option{
		WithPollInterval(time.Millisecond),
		WithRetryOptions(
			retry.WithRetryIf(provider.IsRetryable),
			retry.WithDelays([]time.Duration{time.Millisecond}),
		),
	}
}

func waitDone(t *testing.T, run *Run) State {
	t.Helper()
	select {
	case <-run.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("run did not finish in time")
	}
	return run.Snapshot()
}

// countingProvider wraps a provider and records every submit call.
type countingProvider struct {
	provider.Provider

	mu         sync.Mutex
	generates  int
	extends    int
	sourceRefs []string
	failGen    int
	genErr     error
}

func (c *countingProvider) Generate(ctx context.Context, req provider.GenerationRequest) (provider.Submission, error) {
	c.mu.Lock()
	c.generates++
	n := c.generates
	c.mu.Unlock()
	if c.genErr != nil && n <= c.failGen {
		return provider.Submission{}, c.genErr
	}
	return c.Provider.Generate(ctx, req)
}

func (c *countingProvider) Extend(ctx context.Context, req provider.ExtensionRequest) (provider.Submission, error) {
	c.mu.Lock()
	c.extends++
	c.sourceRefs = append(c.sourceRefs, req.SourceRef)
	c.mu.Unlock()
	return c.Provider.Extend(ctx, req)
}

func TestRunGeneratesAndExtendsToTarget(t *testing.T) {
	reg := registry.New()
	counting := &countingProvider{Provider: provider.NewMock(reg)}
	orch := New(counting, reg, testLogger(), fastOptions()...)

	run := orch.Start(context.Background(), Input{
		Scenes:      []planner.Scene{{Prompt: "a river winding through a canyon", DurationSeconds: 20}},
		AspectRatio: "16:9",
	})

	state := waitDone(t, run)
	if state.Phase != PhaseCompleted {
		t.Fatalf("phase = %s, error = %+v, want completed", state.Phase, state.Error)
	}
	if state.Progress != 100 {
		t.Errorf("progress = %d, want 100", state.Progress)
	}
	if state.TargetSeconds != 20 {
		t.Errorf("target = %d, want 20", state.TargetSeconds)
	}

	// 20s against an 8s clip with 8s/4s extension bounds plans three
	// segments: one generation and two extensions.
	if len(state.Segments) != 3 {
		t.Fatalf("segments = %d, want 3", len(state.Segments))
	}
	if counting.generates != 1 || counting.extends != 2 {
		t.Errorf("generates = %d, extends = %d, want 1 and 2", counting.generates, counting.extends)
	}

	// Each extension must chain from the previous segment's durable
	// reference, never from a playable.
	if counting.sourceRefs[0] != state.Segments[0].SourceRef {
		t.Errorf("extension 1 used ref %q, want segment 0's %q", counting.sourceRefs[0], state.Segments[0].SourceRef)
	}
	if counting.sourceRefs[1] != state.Segments[1].SourceRef {
		t.Errorf("extension 2 used ref %q, want segment 1's %q", counting.sourceRefs[1], state.Segments[1].SourceRef)
	}

	for i, seg := range state.Segments {
		if seg.Status != SegmentCompleted {
			t.Errorf("segment %d status = %s, want completed", i, seg.Status)
		}
	}
	if state.SourceRef != state.Segments[2].SourceRef {
		t.Errorf("run source ref = %q, want final segment's %q", state.SourceRef, state.Segments[2].SourceRef)
	}
	if state.Video == nil {
		t.Error("completed run has no video")
	}

	// Intermediate segments were consumed as extension input; only the
	// final segment's entry stays for the sweep to evict later.
	if reg.Len() != 1 {
		t.Errorf("registry has %d entries after run, want 1", reg.Len())
	}
}

func TestRunProgressIsMonotonic(t *testing.T) {
	reg := registry.New()
	orch := New(provider.NewMock(reg, provider.WithMockProgressStep(25)), reg, testLogger(), fastOptions()...)

	run := orch.Start(context.Background(), Input{
		Scenes: []planner.Scene{{Prompt: "x", DurationSeconds: 16}},
	})

	var observed []int
	for {
		state := run.Snapshot()
		observed = append(observed, state.Progress)
		if state.Phase.IsTerminal() {
			break
		}
		time.Sleep(time.Millisecond)
	}
	waitDone(t, run)

	for i := 1; i < len(observed); i++ {
		if observed[i] < observed[i-1] {
			t.Fatalf("progress went backwards: %v", observed)
		}
	}
	final := run.Snapshot()
	if final.Phase != PhaseCompleted || final.Progress != 100 {
		t.Errorf("final = %s/%d, want completed/100", final.Phase, final.Progress)
	}
}

func TestRunFailsOnContentFilterAndKeepsEarlierSegments(t *testing.T) {
	reg := registry.New()
	mock := provider.NewMock(reg, provider.WithMockFailure(2,
		provider.NewContentFiltered(provider.FilterAdult, "prompt rejected by content policy")))
	counting := &countingProvider{Provider: mock}
	orch := New(counting, reg, testLogger(), fastOptions()...)

	run := orch.Start(context.Background(), Input{
		Scenes: []planner.Scene{{Prompt: "x", DurationSeconds: 20}},
	})

	state := waitDone(t, run)
	if state.Phase != PhaseFailed {
		t.Fatalf("phase = %s, want failed", state.Phase)
	}
	if state.Error == nil || state.Error.Key != "contentFilteredAdult" {
		t.Fatalf("error = %+v, want key contentFilteredAdult", state.Error)
	}

	// The first segment's result survives the later failure.
	if state.Segments[0].Status != SegmentCompleted || state.Segments[0].SourceRef == "" {
		t.Errorf("segment 0 = %+v, want completed with source ref", state.Segments[0])
	}
	if state.Segments[1].Status != SegmentFailed {
		t.Errorf("segment 1 status = %s, want failed", state.Segments[1].Status)
	}
	if state.Segments[2].Status != SegmentPending || state.Segments[2].JobID != "" {
		t.Errorf("segment 2 = %+v: nothing may be submitted after a terminal failure", state.Segments[2])
	}
	if counting.extends != 1 {
		t.Errorf("extends = %d, want 1", counting.extends)
	}
	if state.Progress >= 100 {
		t.Errorf("failed run progress = %d, must stay below 100", state.Progress)
	}
}

func TestRunRetriesTransientSubmitFailures(t *testing.T) {
	reg := registry.New()
	counting := &countingProvider{
		Provider: provider.NewMock(reg),
		failGen:  2,
		genErr:   provider.NewError(provider.ReasonNetwork, "connection reset"),
	}
	orch := New(counting, reg, testLogger(), fastOptions()...)

	run := orch.Start(context.Background(), Input{
		Scenes: []planner.Scene{{Prompt: "x", DurationSeconds: 8}},
	})

	state := waitDone(t, run)
	if state.Phase != PhaseCompleted {
		t.Fatalf("phase = %s, error = %+v, want completed after retries", state.Phase, state.Error)
	}
	if counting.generates != 3 {
		t.Errorf("generate attempts = %d, want 3", counting.generates)
	}
}

func TestRunDoesNotRetryTerminalSubmitFailures(t *testing.T) {
	reg := registry.New()
	counting := &countingProvider{
		Provider: provider.NewMock(reg),
		failGen:  3,
		genErr:   provider.NewError(provider.ReasonConfiguration, "invalid api key"),
	}
	orch := New(counting, reg, testLogger(), fastOptions()...)

	run := orch.Start(context.Background(), Input{
		Scenes: []planner.Scene{{Prompt: "x", DurationSeconds: 8}},
	})

	state := waitDone(t, run)
	if state.Phase != PhaseFailed {
		t.Fatalf("phase = %s, want failed", state.Phase)
	}
	if state.Error == nil || state.Error.Key != "invalidCredentials" {
		t.Errorf("error = %+v, want key invalidCredentials", state.Error)
	}
	if counting.generates != 1 {
		t.Errorf("generate attempts = %d, want 1: terminal errors are not retried", counting.generates)
	}
}

func TestRunCancellationStopsPromptly(t *testing.T) {
	reg := registry.New()
	// One progress point per poll keeps the first segment in flight long
	// enough to observe cancellation mid-run.
	counting := &countingProvider{Provider: provider.NewMock(reg, provider.WithMockProgressStep(1))}
	orch := New(counting, reg, testLogger(), fastOptions()...)

	run := orch.Start(context.Background(), Input{
		Scenes: []planner.Scene{{Prompt: "x", DurationSeconds: 20}},
	})

	time.Sleep(5 * time.Millisecond)
	run.Cancel()

	state := waitDone(t, run)
	if state.Phase != PhaseFailed {
		t.Fatalf("phase = %s, want failed", state.Phase)
	}
	if state.Error == nil || state.Error.Key != "cancelled" {
		t.Errorf("error = %+v, want key cancelled", state.Error)
	}
	if counting.extends != 0 {
		t.Errorf("extends = %d: no extension may be submitted after cancellation", counting.extends)
	}
}

func TestStartFailsSynchronouslyOnPlanRejection(t *testing.T) {
	reg := registry.New()
	counting := &countingProvider{Provider: provider.NewMock(reg)}
	orch := New(counting, reg, testLogger(), fastOptions()...)

	run := orch.Start(context.Background(), Input{})

	select {
	case <-run.Done():
	default:
		t.Fatal("plan rejection must return an already finished run")
	}
	state := run.Snapshot()
	if state.Phase != PhaseFailed {
		t.Errorf("phase = %s, want failed", state.Phase)
	}
	if state.Error == nil || state.Error.Key != "invalidArgument" {
		t.Errorf("error = %+v, want key invalidArgument", state.Error)
	}
	if counting.generates != 0 {
		t.Errorf("generates = %d: provider must not be contacted for an invalid script", counting.generates)
	}
}

func TestCameraMotionIsAppendedToEverySegment(t *testing.T) {
	reg := registry.New()
	orch := New(provider.NewMock(reg), reg, testLogger(), fastOptions()...)

	run := orch.Start(context.Background(), Input{
		Scenes:       []planner.Scene{{Prompt: "a lighthouse at dusk", DurationSeconds: 20}},
		CameraMotion: "slow dolly forward",
	})

	state := waitDone(t, run)
	if state.Phase != PhaseCompleted {
		t.Fatalf("phase = %s, want completed", state.Phase)
	}
	for i, seg := range state.Segments {
		if want := "a lighthouse at dusk. slow dolly forward"; seg.Prompt != want {
			t.Errorf("segment %d prompt = %q, want %q", i, seg.Prompt, want)
		}
	}
}

func TestComposePrompt(t *testing.T) {
	tests := []struct {
		prompt string
		motion string
		want   string
	}{
		{"a beach.", "pan left", "a beach. pan left"},
		{"a beach", "pan left", "a beach. pan left"},
		{"a beach", "", "a beach"},
		{"", "pan left", "pan left"},
	}
	for _, tt := range tests {
		if got := composePrompt(tt.prompt, tt.motion); got != tt.want {
			t.Errorf("composePrompt(%q, %q) = %q, want %q", tt.prompt, tt.motion, got, tt.want)
		}
	}
}
