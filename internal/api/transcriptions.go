package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/mhartmann/telestats/internal/transcription"
	"github.com/rs/zerolog"
)

// TranscriptionHandler provides REST endpoints for call-recording transcription
type TranscriptionHandler struct {
	client *transcription.Client
	logger zerolog.Logger
}

// NewTranscriptionHandler creates a new TranscriptionHandler
func NewTranscriptionHandler(client *transcription.Client, logger zerolog.Logger) *TranscriptionHandler {
	return &TranscriptionHandler{
		client: client,
		logger: logger.With().Str("component", "transcription_handler").Logger(),
	}
}

// Submit starts a transcription job for a call recording
// POST /api/transcriptions {"audioUrl": "..."}
func (h *TranscriptionHandler) Submit(w http.ResponseWriter, r *http.Request) {
	if !h.client.Configured() {
		http.Error(w, "transcription service not configured", http.StatusServiceUnavailable)
		return
	}

	var req struct {
		AudioURL string `json:"audioUrl"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.AudioURL == "" {
		http.Error(w, "audioUrl is required", http.StatusBadRequest)
		return
	}

	job, err := h.client.Submit(r.Context(), req.AudioURL)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to submit transcription job")
		http.Error(w, "failed to submit transcription job", http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(job)
}

// Get returns the current state of a transcription job
// GET /api/transcriptions/{jobId}
func (h *TranscriptionHandler) Get(w http.ResponseWriter, r *http.Request) {
	if !h.client.Configured() {
		http.Error(w, "transcription service not configured", http.StatusServiceUnavailable)
		return
	}

	jobID := chi.URLParam(r, "jobId")
	if jobID == "" {
		http.Error(w, "jobId is required", http.StatusBadRequest)
		return
	}

	job, err := h.client.Poll(r.Context(), jobID)
	if err != nil {
		h.logger.Error().Err(err).Str("job_id", jobID).Msg("failed to poll transcription job")
		http.Error(w, "failed to retrieve transcription job", http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(job)
}
