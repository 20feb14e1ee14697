package provider

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/adreel/adreel-api/internal/id"
	"github.com/adreel/adreel-api/internal/registry"
	"github.com/adreel/adreel-api/internal/veo"
)

// veoCapabilities is the static descriptor for the Veo-style backend:
// eight-second clips, chainable extensions of four to seven seconds, no
// remote cancel endpoint.
var veoCapabilities = Capabilities{
	Name:                            "veo",
	MaxClipSeconds:                  8,
	AspectRatios:                    []string{"16:9", "9:16"},
	SupportsReferenceImage:          true,
	SupportsExtension:               true,
	SupportsCancel:                  false,
	MaxTotalSeconds:                 60,
	ExtendIncrementSeconds:          7,
	MinExtendSeconds:                4,
	EstimatedSecondsPerOutputSecond: 12,
}

// defaultVeoModel is the model used when none is configured.
const defaultVeoModel = "veo-2.0-generate-001"

// VeoAdapter adapts the Veo client to the Provider interface.
//
// On the first poll that finds the operation done, the adapter fetches
// the rendered binary exactly once, converts it to an inline playable and
// caches the conversion in the registry; repeated polls return the cached
// result. The operation's raw video URI is preserved separately as the
// durable source reference, because only that URI is valid input to a
// future extension; the playable conversion is a leaf artifact.
type VeoAdapter struct {
	client veo.Client
	reg    *registry.Registry
	model  string
}

// VeoOption configures a VeoAdapter.
type VeoOption func(*VeoAdapter)

// WithVeoModel overrides the model identifier.
func WithVeoModel(model string) VeoOption {
	return func(a *VeoAdapter) {
		if model != "" {
			a.model = model
		}
	}
}

// NewVeoAdapter creates a new Veo provider adapter.
func NewVeoAdapter(client veo.Client, reg *registry.Registry, opts ...VeoOption) *VeoAdapter {
	a := &VeoAdapter{client: client, reg: reg, model: defaultVeoModel}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Capabilities returns the Veo capability descriptor.
func (a *VeoAdapter) Capabilities() Capabilities {
	return veoCapabilities
}

// Generate submits an initial clip generation.
func (a *VeoAdapter) Generate(ctx context.Context, req GenerationRequest) (Submission, error) {
	if err := validateGeneration(req, veoCapabilities); err != nil {
		return Submission{}, err
	}

	instance := veo.Instance{Prompt: req.Prompt}
	if req.FirstFrameB64 != "" {
		instance.Image = &veo.MediaRef{BytesBase64Encoded: req.FirstFrameB64, MimeType: "image/png"}
	} else if req.ReferenceImageB64 != "" {
		instance.Image = &veo.MediaRef{BytesBase64Encoded: req.ReferenceImageB64, MimeType: "image/png"}
	}

	predictReq := veo.PredictRequest{
		Instances: []veo.Instance{instance},
		Parameters: veo.Parameters{
			AspectRatio:     req.AspectRatio,
			DurationSeconds: req.DurationSeconds,
			NegativePrompt:  req.NegativePrompt,
			Resolution:      req.Resolution,
			Seed:            req.Seed,
		},
	}

	return a.submit(ctx, predictReq, req.DurationSeconds, req.Seed)
}

// Extend submits a continuation of a completed clip, referencing its
// durable source URI.
func (a *VeoAdapter) Extend(ctx context.Context, req ExtensionRequest) (Submission, error) {
	if req.SourceRef == "" {
		return Submission{}, NewError(ReasonValidation, "source reference is required for extension")
	}
	if req.Prompt == "" {
		return Submission{}, NewError(ReasonValidation, "prompt is required")
	}
	duration := req.DurationSeconds
	if duration == 0 {
		duration = veoCapabilities.ExtendIncrementSeconds
	}
	if duration < veoCapabilities.MinExtendSeconds || duration > veoCapabilities.ExtendIncrementSeconds {
		return Submission{}, NewError(ReasonValidation,
			"extension of %ds outside provider %q range %d-%ds",
			duration, veoCapabilities.Name, veoCapabilities.MinExtendSeconds, veoCapabilities.ExtendIncrementSeconds)
	}

	predictReq := veo.PredictRequest{
		Instances: []veo.Instance{{
			Prompt: req.Prompt,
			Video:  &veo.MediaRef{URI: req.SourceRef},
		}},
		Parameters: veo.Parameters{
			AspectRatio:     req.AspectRatio,
			DurationSeconds: duration,
			Resolution:      req.Resolution,
			Seed:            req.Seed,
		},
	}

	return a.submit(ctx, predictReq, duration, req.Seed)
}

func (a *VeoAdapter) submit(ctx context.Context, req veo.PredictRequest, duration int, seed *int64) (Submission, error) {
	operationName, err := a.client.Predict(ctx, a.model, req)
	if err != nil {
		return Submission{}, mapVeoError(err)
	}

	jobID := id.Generate("job")
	a.reg.Put(registry.Entry{
		JobID:     jobID,
		Provider:  veoCapabilities.Name,
		Handle:    operationName,
		StartedAt: time.Now(),
		Status:    string(StatusPending),
	})

	return Submission{
		JobID:            jobID,
		EstimatedSeconds: int(float64(duration) * veoCapabilities.EstimatedSecondsPerOutputSecond),
		Seed:             seed,
	}, nil
}

// Status polls the operation. Terminal results are served from the
// registry cache without touching the backend again.
func (a *VeoAdapter) Status(ctx context.Context, jobID string) (StatusResult, error) {
	entry, ok := a.reg.Get(jobID)
	if !ok {
		return StatusResult{}, NewError(ReasonValidation, "unknown job %q", jobID)
	}
	if cached, ok := cachedResult(entry); ok {
		return cached, nil
	}

	op, err := a.client.GetOperation(ctx, entry.Handle)
	if err != nil {
		return StatusResult{}, mapVeoError(err)
	}

	if !op.Done {
		progress := entry.Progress
		if op.Metadata != nil && op.Metadata.ProgressPercent > progress {
			progress = op.Metadata.ProgressPercent
		} else if progress < 90 {
			// The API reports no progress for most operations; creep so
			// callers still see movement between polls.
			progress += 5
		}
		entry.Status = string(StatusProcessing)
		entry.Progress = progress
		a.reg.Put(entry)
		return StatusResult{Status: StatusProcessing, Progress: progress}, nil
	}

	if op.Error != nil {
		failure := classifyVeoOperationError(op.Error)
		storeFailure(a.reg, entry, failure)
		return StatusResult{Status: StatusFailed, Failure: failure}, nil
	}

	result, failure := a.completeOperation(ctx, op)
	if failure != nil {
		storeFailure(a.reg, entry, failure)
		return StatusResult{Status: StatusFailed, Failure: failure}, nil
	}

	entry.Status = string(StatusCompleted)
	entry.Progress = 100
	entry.Playable = result.Playable
	entry.SourceRef = result.SourceRef
	entry.CompletedAt = time.Now()
	a.reg.Put(entry)
	return result, nil
}

// completeOperation converts a done operation into a completed status,
// fetching the rendered binary once.
func (a *VeoAdapter) completeOperation(ctx context.Context, op veo.Operation) (StatusResult, *Error) {
	if op.Response == nil || op.Response.GenerateVideoResponse == nil {
		return StatusResult{}, NewError(ReasonInternal, "operation finished without a response")
	}
	gvr := op.Response.GenerateVideoResponse

	if len(gvr.GeneratedSamples) == 0 {
		if gvr.RAIMediaFilteredCount > 0 {
			reason := strings.Join(gvr.RAIMediaFilteredReasons, "; ")
			return StatusResult{}, NewContentFiltered(classifyFilterReason(reason), "generation filtered: %s", reason)
		}
		return StatusResult{}, NewError(ReasonInternal, "operation finished without a video")
	}

	sourceRef := gvr.GeneratedSamples[0].Video.URI
	data, err := a.client.DownloadVideo(ctx, sourceRef)
	if err != nil {
		return StatusResult{}, asProviderError(mapVeoError(err))
	}

	return StatusResult{
		Status:    StatusCompleted,
		Progress:  100,
		Playable:  NewInlinePlayable(data, "video/mp4"),
		SourceRef: sourceRef,
	}, nil
}

// Cancel has no remote endpoint on this backend; tracking simply stops.
func (a *VeoAdapter) Cancel(_ context.Context, jobID string) error {
	a.reg.Delete(jobID)
	return nil
}

// classifyFilterReason maps the backend's filter reason text to a
// category for localized messaging.
func classifyFilterReason(reason string) FilterCategory {
	lower := strings.ToLower(reason)
	switch {
	case strings.Contains(lower, "minor") || strings.Contains(lower, "child"):
		return FilterMinors
	case strings.Contains(lower, "violence") || strings.Contains(lower, "dangerous"):
		return FilterViolence
	case strings.Contains(lower, "sexual") || strings.Contains(lower, "adult"):
		return FilterAdult
	case strings.Contains(lower, "copyright") || strings.Contains(lower, "celebrity"):
		return FilterCopyright
	default:
		return FilterGeneric
	}
}

// classifyVeoOperationError maps a done operation's error to the
// taxonomy using its canonical status string.
func classifyVeoOperationError(opErr *veo.OperationError) *Error {
	switch opErr.Status {
	case "INVALID_ARGUMENT", "FAILED_PRECONDITION", "NOT_FOUND":
		// An expired source reference surfaces here and is terminal.
		return NewError(ReasonValidation, "operation rejected: %s", opErr.Message)
	case "RESOURCE_EXHAUSTED":
		return NewError(ReasonQuotaExceeded, "operation rejected: %s", opErr.Message)
	case "UNAUTHENTICATED", "PERMISSION_DENIED":
		return NewError(ReasonConfiguration, "operation rejected: %s", opErr.Message)
	default:
		return NewError(ReasonInternal, "operation failed: %s", opErr.Message)
	}
}

// mapVeoError classifies client errors into the provider taxonomy.
func mapVeoError(err error) error {
	switch {
	case errors.Is(err, veo.ErrUnauthorized), errors.Is(err, veo.ErrAPIKeyNotSet):
		return WrapError(ReasonConfiguration, err, "veo credentials rejected")
	case errors.Is(err, veo.ErrRateLimited):
		return WrapError(ReasonRateLimited, err, "veo rate limit hit")
	case errors.Is(err, veo.ErrQuotaExceeded):
		return WrapError(ReasonQuotaExceeded, err, "veo quota exhausted")
	case errors.Is(err, veo.ErrInvalidRequest), errors.Is(err, veo.ErrOperationNameRequired):
		return WrapError(ReasonValidation, err, "veo rejected the request")
	case errors.Is(err, veo.ErrServerError):
		return WrapError(ReasonNetwork, err, "veo server error")
	default:
		return WrapError(ReasonNetwork, err, "veo call failed")
	}
}

var _ Provider = (*VeoAdapter)(nil)
