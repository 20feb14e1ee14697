// Package veo provides an HTTP client for a Veo-style video generation
// API built on long-running operations: a predict call returns an
// operation name, the operation is polled until done, and completed
// operations carry the rendered video's URI. Extension is supported by
// submitting a new predict call that references a prior operation's
// video URI.
package veo

// PredictRequest is the request body for the predictLongRunning endpoint.
type PredictRequest struct {
	Instances  []Instance `json:"instances"`
	Parameters Parameters `json:"parameters"`
}

// Instance describes one generation input. For an initial generation the
// optional Image seeds the first frame; for an extension the Video
// references the clip being continued.
type Instance struct {
	Prompt string    `json:"prompt"`
	Image  *MediaRef `json:"image,omitempty"`
	Video  *MediaRef `json:"video,omitempty"`
}

// MediaRef is either inline base64 media or a server-side URI.
type MediaRef struct {
	BytesBase64Encoded string `json:"bytesBase64Encoded,omitempty"`
	MimeType           string `json:"mimeType,omitempty"`
	URI                string `json:"uri,omitempty"`
}

// Parameters holds generation tuning shared by generate and extend.
type Parameters struct {
	AspectRatio     string `json:"aspectRatio,omitempty"`
	DurationSeconds int    `json:"durationSeconds,omitempty"`
	NegativePrompt  string `json:"negativePrompt,omitempty"`
	Resolution      string `json:"resolution,omitempty"`
	Seed            *int64 `json:"seed,omitempty"`
}

// PredictResponse is the response from the predictLongRunning endpoint.
type PredictResponse struct {
	Name string `json:"name"`
}

// Operation is the state of a long-running generation operation.
type Operation struct {
	Name     string             `json:"name"`
	Done     bool               `json:"done"`
	Error    *OperationError    `json:"error,omitempty"`
	Response *OperationResponse `json:"response,omitempty"`
	Metadata *OperationMetadata `json:"metadata,omitempty"`
}

// OperationError is the structured failure attached to a done operation.
type OperationError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

// OperationMetadata carries server-side progress for in-flight operations.
type OperationMetadata struct {
	ProgressPercent int `json:"progressPercent,omitempty"`
}

// OperationResponse wraps the generation result of a done operation.
type OperationResponse struct {
	GenerateVideoResponse *GenerateVideoResponse `json:"generateVideoResponse,omitempty"`
}

// GenerateVideoResponse holds the generated samples and any content
// policy filtering that occurred.
type GenerateVideoResponse struct {
	GeneratedSamples        []GeneratedSample `json:"generatedSamples,omitempty"`
	RAIMediaFilteredCount   int               `json:"raiMediaFilteredCount,omitempty"`
	RAIMediaFilteredReasons []string          `json:"raiMediaFilteredReasons,omitempty"`
}

// GeneratedSample is one rendered video.
type GeneratedSample struct {
	Video MediaRef `json:"video"`
}

// errorBody is the API's error envelope for non-2xx responses.
type errorBody struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}
