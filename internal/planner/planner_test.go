package planner

import (
	"testing"

	"github.com/adreel/adreel-api/internal/provider"
)

func extendingCaps() provider.Capabilities {
	return provider.Capabilities{
		Name:                   "mock",
		MaxClipSeconds:         8,
		SupportsExtension:      true,
		MaxTotalSeconds:        60,
		ExtendIncrementSeconds: 8,
		MinExtendSeconds:       4,
	}
}

func durations(segments []Segment) []int {
	out := make([]int, len(segments))
	for i, s := range segments {
		out[i] = s.DurationSeconds
	}
	return out
}

func TestPlanSplitsWithinProviderLimits(t *testing.T) {
	tests := []struct {
		name  string
		total int
		want  []int
	}{
		{name: "fits in one clip", total: 6, want: []int{6}},
		{name: "exactly max clip", total: 8, want: []int{8}},
		{name: "one full extension", total: 16, want: []int{8, 8}},
		{name: "initial plus two extensions", total: 20, want: []int{8, 8, 4}},
		{name: "undersized remainder borrows from previous", total: 11, want: []int{7, 4}},
		{name: "remainder one borrows three", total: 17, want: []int{8, 5, 4}},
		{name: "max total", total: 60, want: []int{8, 8, 8, 8, 8, 8, 8, 4}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			segments, err := Plan([]Scene{{Prompt: "a drone shot over a coastline", DurationSeconds: tt.total}}, extendingCaps())
			if err != nil {
				t.Fatalf("Plan() error = %v", err)
			}

			got := durations(segments)
			if len(got) != len(tt.want) {
				t.Fatalf("Plan() durations = %v, want %v", got, tt.want)
			}
			sum := 0
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("Plan() durations = %v, want %v", got, tt.want)
				}
				sum += got[i]
			}
			if sum != tt.total {
				t.Errorf("Plan() durations sum = %d, want %d", sum, tt.total)
			}
			for i, s := range segments {
				if s.Index != i {
					t.Errorf("segment %d has Index %d", i, s.Index)
				}
			}
			for _, s := range segments[1:] {
				if s.DurationSeconds < 4 {
					t.Errorf("extension segment %d is %ds, below the 4s minimum", s.Index, s.DurationSeconds)
				}
			}
		})
	}
}

func TestPlanRejectsInvalidScripts(t *testing.T) {
	tests := []struct {
		name   string
		scenes []Scene
		caps   provider.Capabilities
	}{
		{
			name:   "empty script",
			scenes: nil,
			caps:   extendingCaps(),
		},
		{
			name:   "non-positive scene duration",
			scenes: []Scene{{Prompt: "x", DurationSeconds: 0}},
			caps:   extendingCaps(),
		},
		{
			name:   "exceeds max total",
			scenes: []Scene{{Prompt: "x", DurationSeconds: 61}},
			caps:   extendingCaps(),
		},
		{
			name:   "needs extension but provider has none",
			scenes: []Scene{{Prompt: "x", DurationSeconds: 12}},
			caps: provider.Capabilities{
				Name:           "runway",
				MaxClipSeconds: 10,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			segments, err := Plan(tt.scenes, tt.caps)
			if err == nil {
				t.Fatalf("Plan() = %v, want error", segments)
			}
			if got := provider.ReasonOf(err); got != provider.ReasonValidation {
				t.Errorf("ReasonOf(err) = %q, want %q", got, provider.ReasonValidation)
			}
			if segments != nil {
				t.Errorf("Plan() returned partial plan %v alongside error", segments)
			}
		})
	}
}

func TestPlanComposesPromptsFromOverlappingScenes(t *testing.T) {
	scenes := []Scene{
		{Prompt: "opening shot of the city at dawn", DurationSeconds: 8},
		{Prompt: "cut to a crowded market", DurationSeconds: 6},
		{Prompt: "closing aerial pullback", DurationSeconds: 6},
	}

	segments, err := Plan(scenes, extendingCaps())
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}
	if len(segments) != 3 {
		t.Fatalf("Plan() produced %d segments, want 3", len(segments))
	}

	if segments[0].Prompt != "opening shot of the city at dawn" {
		t.Errorf("segment 0 prompt = %q", segments[0].Prompt)
	}
	// Window [8,16) covers the whole market scene and the first two
	// seconds of the aerial scene.
	if segments[1].Prompt != "cut to a crowded market closing aerial pullback" {
		t.Errorf("segment 1 prompt = %q", segments[1].Prompt)
	}
	if segments[2].Prompt != "closing aerial pullback" {
		t.Errorf("segment 2 prompt = %q", segments[2].Prompt)
	}
}

func TestPlanBorrowCascadesPastExtensionDonors(t *testing.T) {
	// With an increment shorter than two minimum extensions the previous
	// segment cannot cover the whole deficit alone: a 14s script would
	// otherwise plan a 2s extension. Borrowing must cascade into the
	// initial segment instead.
	caps := provider.Capabilities{
		Name:                   "veo",
		MaxClipSeconds:         8,
		SupportsExtension:      true,
		MaxTotalSeconds:        60,
		ExtendIncrementSeconds: 5,
		MinExtendSeconds:       4,
	}

	segments, err := Plan([]Scene{{Prompt: "x", DurationSeconds: 14}}, caps)
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}

	got := durations(segments)
	want := []int{6, 4, 4}
	if len(got) != len(want) {
		t.Fatalf("Plan() durations = %v, want %v", got, want)
	}
	sum := 0
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Plan() durations = %v, want %v", got, want)
		}
		sum += got[i]
	}
	if sum != 14 {
		t.Errorf("Plan() durations sum = %d, want 14", sum)
	}
	if segments[0].DurationSeconds < 1 || segments[0].DurationSeconds > caps.MaxClipSeconds {
		t.Errorf("initial segment is %ds, outside 1-%ds", segments[0].DurationSeconds, caps.MaxClipSeconds)
	}
	for _, s := range segments[1:] {
		if s.DurationSeconds < caps.MinExtendSeconds || s.DurationSeconds > caps.ExtendIncrementSeconds {
			t.Errorf("extension segment %d is %ds, outside %d-%ds",
				s.Index, s.DurationSeconds, caps.MinExtendSeconds, caps.ExtendIncrementSeconds)
		}
	}
}

func TestPlanDefaultsIncrementToMaxClip(t *testing.T) {
	caps := extendingCaps()
	caps.ExtendIncrementSeconds = 0

	segments, err := Plan([]Scene{{Prompt: "x", DurationSeconds: 24}}, caps)
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}
	got := durations(segments)
	want := []int{8, 8, 8}
	if len(got) != len(want) {
		t.Fatalf("Plan() durations = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Plan() durations = %v, want %v", got, want)
		}
	}
}
