// Package server provides the HTTP server for the AdReel API.
// It includes handlers, middleware, routes, and DTOs separated from
// domain types.
package server

// SceneRequest is one scene of a submitted script.
type SceneRequest struct {
	// Prompt is the scene's visual description.
	Prompt string `json:"prompt" validate:"required"`
	// DurationSeconds is the scene's length in the final video.
	DurationSeconds int `json:"duration_seconds" validate:"required,min=1,max=600"`
}

// CreateRunRequest is the HTTP request body for starting a generation run.
type CreateRunRequest struct {
	// Scenes is the finalized script.
	Scenes []SceneRequest `json:"scenes" validate:"required,min=1,dive"`
	// AspectRatio is the requested aspect ratio.
	AspectRatio string `json:"aspect_ratio" validate:"required"`
	// Resolution is an optional resolution hint (e.g. "720p").
	Resolution string `json:"resolution,omitempty"`
	// NegativePrompt describes content to avoid.
	NegativePrompt string `json:"negative_prompt,omitempty"`
	// FirstFrameBase64 optionally seeds the first frame.
	FirstFrameBase64 string `json:"first_frame_base64,omitempty" validate:"omitempty,base64"`
	// LastFrameBase64 optionally pins the last frame.
	LastFrameBase64 string `json:"last_frame_base64,omitempty" validate:"omitempty,base64"`
	// ReferenceImageBase64 is an optional style reference.
	ReferenceImageBase64 string `json:"reference_image_base64,omitempty" validate:"omitempty,base64"`
	// CameraMotion is appended to every segment prompt.
	CameraMotion string `json:"camera_motion,omitempty"`
	// Seed optionally pins the generation for reproducibility.
	Seed *int64 `json:"seed,omitempty"`
}

// CreateRunResponse is the HTTP response after starting a run.
type CreateRunResponse struct {
	// ID is the unique identifier for the created run.
	ID string `json:"id"`
	// Phase is the initial run phase.
	Phase string `json:"phase"`
}

// SegmentResponse is one segment's progress within a run.
type SegmentResponse struct {
	Index           int    `json:"index"`
	DurationSeconds int    `json:"duration_seconds"`
	Status          string `json:"status"`
	JobID           string `json:"job_id,omitempty"`
	SourceRef       string `json:"source_ref,omitempty"`
}

// RunErrorResponse is the classified failure attached to a failed run.
type RunErrorResponse struct {
	// Key is the localization key for user-facing messaging.
	Key string `json:"key"`
	// Message is the preserved error detail.
	Message string `json:"message"`
}

// RunResponse is the HTTP response for run status polls.
type RunResponse struct {
	ID             string            `json:"id"`
	Phase          string            `json:"phase"`
	Progress       int               `json:"progress"`
	TargetSeconds  int               `json:"target_seconds"`
	CurrentSegment int               `json:"current_segment"`
	Segments       []SegmentResponse `json:"segments"`
	VideoURL       string            `json:"video_url,omitempty"`
	SourceRef      string            `json:"source_ref,omitempty"`
	Error          *RunErrorResponse `json:"error,omitempty"`
}

// CapabilitiesResponse describes the active provider for UI estimators.
type CapabilitiesResponse struct {
	Name                            string   `json:"name"`
	MaxClipSeconds                  int      `json:"max_clip_seconds"`
	AspectRatios                    []string `json:"aspect_ratios"`
	SupportsReferenceImage          bool     `json:"supports_reference_image"`
	SupportsExtension               bool     `json:"supports_extension"`
	SupportsCancel                  bool     `json:"supports_cancel"`
	MaxTotalSeconds                 int      `json:"max_total_seconds,omitempty"`
	ExtendIncrementSeconds          int      `json:"extend_increment_seconds,omitempty"`
	MinExtendSeconds                int      `json:"min_extend_seconds,omitempty"`
	EstimatedSecondsPerOutputSecond float64  `json:"estimated_seconds_per_output_second,omitempty"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	// Error is the human-readable error message.
	Error string `json:"error"`
	// Code is the error code for programmatic handling.
	Code string `json:"code"`
}

// HealthResponse is the HTTP response for the health check endpoint.
type HealthResponse struct {
	// Status is the health status of the service.
	Status string `json:"status"`
}
