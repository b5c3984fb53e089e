package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/jonathan/foodtruck-agent/internal/pipeline"
)

// PipelineRequest is the body of /pipeline/run and /pipeline/stream.
type PipelineRequest struct {
	URL     string `json:"url,omitempty" validate:"omitempty,url"`
	RawText string `json:"raw_text,omitempty"`
	DryRun  bool   `json:"dry_run"`
}

// Validate checks that exactly one usable input is present.
func (r *PipelineRequest) Validate() error {
	if strings.TrimSpace(r.URL) == "" && strings.TrimSpace(r.RawText) == "" {
		return &ErrValidation{Field: "url", Message: "either url or raw_text is required"}
	}
	return validator.New().Struct(r)
}

func (r *PipelineRequest) toPipeline() pipeline.Request {
	return pipeline.Request{URL: r.URL, RawText: r.RawText, DryRun: r.DryRun}
}

func (s *Server) decodePipelineRequest(w http.ResponseWriter, r *http.Request) (*PipelineRequest, bool) {
	var req PipelineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return nil, false
	}
	if err := req.Validate(); err != nil {
		s.errorFrom(w, err)
		return nil, false
	}
	return &req, true
}

// handlePipelineRun runs Fetch, Extract and Persist synchronously.
func (s *Server) handlePipelineRun(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodePipelineRequest(w, r)
	if !ok {
		return
	}

	result, err := s.deps.Pipeline.Run(r.Context(), req.toPipeline(), nil)
	if err != nil {
		s.errorFrom(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, result)
}

type pipelineOutcome struct {
	result *pipeline.Result
	err    error
}

// handlePipelineStream runs the pipeline and streams each stage result as an SSE
// "stage" event, followed by "complete" or "error". The run continues on a
// detached context when the client goes away.
func (s *Server) handlePipelineStream(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodePipelineRequest(w, r)
	if !ok {
		return
	}

	sse, err := NewSSEWriter(w)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusOK)
	sse.flusher.Flush()

	logger := s.logger.With(zap.String("url", req.URL))
	logger.Info("Starting streaming pipeline run", zap.Bool("dry_run", req.DryRun))

	// At most one event per stage is produced; the buffer keeps the runner from
	// blocking once nobody is reading.
	events := make(chan pipeline.StageResult, 8)
	done := make(chan pipelineOutcome, 1)
	runCtx := context.WithoutCancel(r.Context())
	go func() {
		result, err := s.deps.Pipeline.Run(runCtx, req.toPipeline(), func(sr pipeline.StageResult) {
			events <- sr
		})
		done <- pipelineOutcome{result: result, err: err}
	}()

	ticker := time.NewTicker(s.heartbeat)
	defer ticker.Stop()

	writeStage := func(sr pipeline.StageResult) {
		if err := sse.WriteEvent("stage", sr); err != nil {
			logger.Warn("Failed to write SSE event", zap.Error(err))
		}
	}

	for {
		select {
		case <-r.Context().Done():
			logger.Info("Client disconnected; pipeline continues in background")
			return
		case sr := <-events:
			writeStage(sr)
		case <-ticker.C:
			if err := sse.WriteComment("heartbeat"); err != nil {
				logger.Warn("Failed to write SSE heartbeat", zap.Error(err))
			}
		case out := <-done:
			for drained := false; !drained; {
				select {
				case sr := <-events:
					writeStage(sr)
				default:
					drained = true
				}
			}
			if out.err != nil {
				logger.Warn("Streaming pipeline run failed", zap.Error(out.err))
				sse.WriteError(out.err.Error())
				return
			}
			sse.WriteComplete(out.result)
			logger.Info("Streaming pipeline run completed", zap.String("status", string(out.result.OverallStatus)))
			return
		}
	}
}
