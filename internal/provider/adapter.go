package provider

import (
	"errors"
	"time"

	"github.com/adreel/adreel-api/internal/registry"
)

// validateGeneration checks a generation request against a provider's
// static limits before any network call is made.
func validateGeneration(req GenerationRequest, caps Capabilities) error {
	if req.Prompt == "" {
		return NewError(ReasonValidation, "prompt is required")
	}
	if req.DurationSeconds <= 0 || req.DurationSeconds > caps.MaxClipSeconds {
		return NewError(ReasonValidation,
			"duration %ds outside provider %q range 1-%ds", req.DurationSeconds, caps.Name, caps.MaxClipSeconds)
	}
	if req.AspectRatio != "" && !caps.SupportsAspectRatio(req.AspectRatio) {
		return NewError(ReasonValidation,
			"aspect ratio %q not supported by provider %q", req.AspectRatio, caps.Name)
	}
	if !caps.SupportsReferenceImage && (req.FirstFrameB64 != "" || req.LastFrameB64 != "" || req.ReferenceImageB64 != "") {
		return NewError(ReasonValidation, "provider %q does not accept reference imagery", caps.Name)
	}
	return nil
}

// cachedResult reconstructs a terminal StatusResult from a registry
// entry, so repeated polls after completion never re-fetch from the
// backend.
func cachedResult(entry registry.Entry) (StatusResult, bool) {
	switch JobStatus(entry.Status) {
	case StatusCompleted:
		playable, _ := entry.Playable.(*Playable)
		return StatusResult{
			Status:    StatusCompleted,
			Progress:  100,
			Playable:  playable,
			SourceRef: entry.SourceRef,
		}, true
	case StatusFailed:
		return StatusResult{Status: StatusFailed, Failure: asProviderError(entry.Failure)}, true
	case StatusCancelled:
		return StatusResult{Status: StatusCancelled}, true
	default:
		return StatusResult{}, false
	}
}

// storeFailure caches a terminal failure on the entry so follow-up polls
// stay idempotent.
func storeFailure(reg *registry.Registry, entry registry.Entry, failure *Error) {
	entry.Status = string(StatusFailed)
	entry.Failure = failure
	entry.CompletedAt = time.Now()
	reg.Put(entry)
}

// asProviderError coerces a cached error back to the classified type.
func asProviderError(err error) *Error {
	if err == nil {
		return nil
	}
	var pe *Error
	if errors.As(err, &pe) {
		return pe
	}
	return WrapError(ReasonInternal, err, "generation failed")
}
