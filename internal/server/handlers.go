package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/adreel/adreel-api/internal/orchestrator"
	"github.com/adreel/adreel-api/internal/planner"
	"github.com/adreel/adreel-api/internal/provider"
)

// Handlers contains the HTTP handlers for the API.
type Handlers struct {
	orch      *orchestrator.Orchestrator
	prov      provider.Provider
	validator *validator.Validate
	logger    *slog.Logger

	mu   sync.RWMutex
	runs map[string]*orchestrator.Run
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(orch *orchestrator.Orchestrator, prov provider.Provider, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{
		orch:      orch,
		prov:      prov,
		validator: validator.New(),
		logger:    logger,
		runs:      make(map[string]*orchestrator.Run),
	}
}

// Health handles GET /health requests.
func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// Capabilities handles GET /provider requests, exposing the active
// backend's static descriptor for UI estimators.
func (h *Handlers) Capabilities(w http.ResponseWriter, _ *http.Request) {
	caps := h.prov.Capabilities()
	writeJSON(w, http.StatusOK, CapabilitiesResponse{
		Name:                            caps.Name,
		MaxClipSeconds:                  caps.MaxClipSeconds,
		AspectRatios:                    caps.AspectRatios,
		SupportsReferenceImage:          caps.SupportsReferenceImage,
		SupportsExtension:               caps.SupportsExtension,
		SupportsCancel:                  caps.SupportsCancel,
		MaxTotalSeconds:                 caps.MaxTotalSeconds,
		ExtendIncrementSeconds:          caps.ExtendIncrementSeconds,
		MinExtendSeconds:                caps.MinExtendSeconds,
		EstimatedSecondsPerOutputSecond: caps.EstimatedSecondsPerOutputSecond,
	})
}

// CreateRun handles POST /runs requests.
func (h *Handlers) CreateRun(w http.ResponseWriter, r *http.Request) {
	var req CreateRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("failed to decode request body",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, "invalid JSON body", "INVALID_JSON")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		h.logger.Warn("request validation failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, err.Error(), "VALIDATION_ERROR")
		return
	}

	scenes := make([]planner.Scene, len(req.Scenes))
	for i, s := range req.Scenes {
		scenes[i] = planner.Scene{Prompt: s.Prompt, DurationSeconds: s.DurationSeconds}
	}

	// Detach from the request context so the run outlives the request.
	run := h.orch.Start(context.WithoutCancel(r.Context()), orchestrator.Input{
		Scenes:            scenes,
		AspectRatio:       req.AspectRatio,
		Resolution:        req.Resolution,
		NegativePrompt:    req.NegativePrompt,
		FirstFrameB64:     req.FirstFrameBase64,
		LastFrameB64:      req.LastFrameBase64,
		ReferenceImageB64: req.ReferenceImageBase64,
		CameraMotion:      req.CameraMotion,
		Seed:              req.Seed,
	})

	h.mu.Lock()
	h.runs[run.ID()] = run
	h.mu.Unlock()

	snapshot := run.Snapshot()
	if snapshot.Phase == orchestrator.PhaseFailed {
		// Planning failed before any backend call; surface it as a bad
		// request instead of making the caller poll for the failure.
		writeError(w, http.StatusBadRequest, snapshot.Error.Message, "PLAN_REJECTED")
		return
	}

	h.logger.Info("run created",
		slog.String("run_id", run.ID()),
		slog.Int("segments", len(snapshot.Segments)),
	)

	writeJSON(w, http.StatusAccepted, CreateRunResponse{
		ID:    run.ID(),
		Phase: string(snapshot.Phase),
	})
}

// GetRun handles GET /runs/{id} requests.
func (h *Handlers) GetRun(w http.ResponseWriter, r *http.Request) {
	run, ok := h.lookupRun(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "run not found", "RUN_NOT_FOUND")
		return
	}
	writeJSON(w, http.StatusOK, runToResponse(run.Snapshot()))
}

// CancelRun handles DELETE /runs/{id} requests. Cancellation is
// cooperative: the run observes the flag at its next poll tick. A DELETE
// on an already terminal run discards the session, so finished state does
// not outlive the caller's interest in it.
func (h *Handlers) CancelRun(w http.ResponseWriter, r *http.Request) {
	run, ok := h.lookupRun(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "run not found", "RUN_NOT_FOUND")
		return
	}

	snapshot := run.Snapshot()
	if snapshot.Phase.IsTerminal() {
		h.mu.Lock()
		delete(h.runs, run.ID())
		h.mu.Unlock()
		h.logger.Info("run discarded",
			slog.String("run_id", run.ID()),
			slog.String("phase", string(snapshot.Phase)),
		)
		writeJSON(w, http.StatusOK, runToResponse(snapshot))
		return
	}

	run.Cancel()
	h.logger.Info("run cancellation requested",
		slog.String("run_id", run.ID()),
	)
	writeJSON(w, http.StatusAccepted, runToResponse(run.Snapshot()))
}

func (h *Handlers) lookupRun(runID string) (*orchestrator.Run, bool) {
	if runID == "" {
		return nil, false
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	run, ok := h.runs[runID]
	return run, ok
}

// runToResponse converts a state snapshot to the wire DTO.
func runToResponse(state orchestrator.State) RunResponse {
	segments := make([]SegmentResponse, len(state.Segments))
	for i, seg := range state.Segments {
		segments[i] = SegmentResponse{
			Index:           seg.Index,
			DurationSeconds: seg.DurationSeconds,
			Status:          string(seg.Status),
			JobID:           seg.JobID,
			SourceRef:       seg.SourceRef,
		}
	}

	resp := RunResponse{
		ID:             state.RunID,
		Phase:          string(state.Phase),
		Progress:       state.Progress,
		TargetSeconds:  state.TargetSeconds,
		CurrentSegment: state.CurrentIndex,
		Segments:       segments,
		VideoURL:       state.VideoURL,
		SourceRef:      state.SourceRef,
	}
	if resp.VideoURL == "" && state.Video != nil && state.Video.Kind() == provider.PlayableURL {
		resp.VideoURL = state.Video.URL()
	}
	if state.Error != nil {
		resp.Error = &RunErrorResponse{Key: state.Error.Key, Message: state.Error.Message}
	}
	return resp
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
	}
}

// writeError writes an error response in the standard format.
func writeError(w http.ResponseWriter, status int, message, code string) {
	writeJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}
