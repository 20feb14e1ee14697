// Package planner splits a script of arbitrary total duration into an
// ordered sequence of provider-bounded segments: segment 0 is an initial
// generation, segments 1..N are extensions. Planning is purely
// deterministic, so orchestration behavior is reproducible and testable
// without network calls.
package planner

import (
	"strings"

	"github.com/adreel/adreel-api/internal/provider"
)

// Scene is one entry of a finalized script: a visual description and how
// long it should run.
type Scene struct {
	// Prompt is the scene's visual description.
	Prompt string
	// DurationSeconds is the scene's length in the final video.
	DurationSeconds int
}

// Segment is one planned unit of generation within provider limits.
type Segment struct {
	// Index is the segment's position; 0 is the initial generation,
	// everything after is an extension of the previous segment.
	Index int
	// DurationSeconds is the segment's target length.
	DurationSeconds int
	// Prompt is composed from the scenes overlapping the segment's time
	// window.
	Prompt string
}

// Plan splits the script into segments within the provider's limits.
//
// Segment 0 is min(total, max clip). Each following segment takes up to
// the extension increment, clamped to the provider's declared extension
// bounds. A trailing remainder below the minimum extension is not emitted
// undersized: the missing seconds are borrowed from earlier segments,
// without pushing any donor below its own lower bound, so every segment
// in the plan survives provider validation.
//
// Plan returns an error, never a partial plan, when the script is empty,
// a scene duration is not positive, the total exceeds the provider's max
// extended duration, or the split would need an extension the provider
// does not support.
func Plan(scenes []Scene, caps provider.Capabilities) ([]Segment, error) {
	if len(scenes) == 0 {
		return nil, provider.NewError(provider.ReasonValidation, "script has no scenes")
	}

	total := 0
	for i, scene := range scenes {
		if scene.DurationSeconds <= 0 {
			return nil, provider.NewError(provider.ReasonValidation, "scene %d has non-positive duration %ds", i, scene.DurationSeconds)
		}
		total += scene.DurationSeconds
	}

	if limit := caps.TotalLimitSeconds(); total > limit {
		return nil, provider.NewError(provider.ReasonValidation,
			"total duration %ds exceeds provider %q limit of %ds", total, caps.Name, limit)
	}

	durations, err := splitDurations(total, caps)
	if err != nil {
		return nil, err
	}

	segments := make([]Segment, len(durations))
	offset := 0
	for i, d := range durations {
		segments[i] = Segment{
			Index:           i,
			DurationSeconds: d,
			Prompt:          promptForWindow(scenes, offset, offset+d),
		}
		offset += d
	}
	return segments, nil
}

// splitDurations produces the per-segment durations summing exactly to
// total.
func splitDurations(total int, caps provider.Capabilities) ([]int, error) {
	first := total
	if first > caps.MaxClipSeconds {
		first = caps.MaxClipSeconds
	}
	durations := []int{first}
	remaining := total - first

	if remaining > 0 && !caps.SupportsExtension {
		return nil, provider.NewError(provider.ReasonValidation,
			"provider %q cannot extend beyond %ds", caps.Name, caps.MaxClipSeconds)
	}

	increment := caps.ExtendIncrementSeconds
	if increment <= 0 {
		increment = caps.MaxClipSeconds
	}

	for remaining > 0 {
		step := remaining
		if step > increment {
			step = increment
		}
		if step < caps.MinExtendSeconds {
			// Undersized remainder: borrow from earlier segments, newest
			// first, so the trailing extension meets the provider minimum.
			// Donors keep their own lower bound: the extension minimum for
			// segments 1..N, one second for the initial segment.
			deficit := caps.MinExtendSeconds - step
			for i := len(durations) - 1; i >= 0 && deficit > 0; i-- {
				floor := caps.MinExtendSeconds
				if i == 0 {
					floor = 1
				}
				give := durations[i] - floor
				if give <= 0 {
					continue
				}
				if give > deficit {
					give = deficit
				}
				durations[i] -= give
				remaining += give
				deficit -= give
			}
			if deficit > 0 {
				return nil, provider.NewError(provider.ReasonValidation,
					"cannot split %ds into segments within provider %q limits", total, caps.Name)
			}
			step = caps.MinExtendSeconds
		}
		durations = append(durations, step)
		remaining -= step
	}

	return durations, nil
}

// promptForWindow joins the prompts of all scenes overlapping the
// half-open window [start, end) on the script timeline.
func promptForWindow(scenes []Scene, start, end int) string {
	var parts []string
	offset := 0
	for _, scene := range scenes {
		sceneStart := offset
		sceneEnd := offset + scene.DurationSeconds
		offset = sceneEnd
		if sceneEnd <= start || sceneStart >= end {
			continue
		}
		if scene.Prompt != "" {
			parts = append(parts, scene.Prompt)
		}
	}
	return strings.Join(parts, " ")
}
