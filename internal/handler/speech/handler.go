package speech

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	speechmodel "github.com/voicelayer/aria/internal/model/speech"
	speechsvc "github.com/voicelayer/aria/internal/service/speech"
	"github.com/voicelayer/aria/pkg/utils"
)

// maxUploadBytes caps one-shot transcription uploads.
const maxUploadBytes = 25 << 20

// Handler serves the one-shot speech endpoints that sit beside the
// streaming websocket pipeline.
type Handler struct {
	speech *speechsvc.Service
}

// New creates the speech handler.
func New(speech *speechsvc.Service) *Handler {
	return &Handler{speech: speech}
}

// RegisterRoutes mounts the one-shot speech routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/transcribe", h.handleTranscribe)
	r.Post("/tts/generate", h.handleGenerate)
}

// handleTranscribe accepts a raw audio body and returns the transcript once
// the engine's async job settles.
func (h *Handler) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session_id")

	audio, err := io.ReadAll(io.LimitReader(r.Body, maxUploadBytes))
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, "failed to read audio body")
		return
	}
	if len(audio) == 0 {
		utils.RespondError(w, http.StatusBadRequest, "audio body is empty")
		return
	}

	resp, err := h.speech.TranscribeBuffer(r.Context(), speechmodel.TranscribeRequest{
		SessionID: sessionID,
		AudioData: audio,
		Format:    r.Header.Get("Content-Type"),
	})
	if err != nil {
		utils.RespondError(w, engineStatus(err), err.Error())
		return
	}

	utils.RespondJSON(w, http.StatusOK, resp)
}

// handleGenerate runs a one-shot synthesis and returns the hosted audio URL.
func (h *Handler) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var payload speechmodel.SynthesizeRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if payload.Text == "" {
		utils.RespondError(w, http.StatusBadRequest, "text is required")
		return
	}

	resp, err := h.speech.SynthesizeToURL(r.Context(), payload)
	if err != nil {
		utils.RespondError(w, engineStatus(err), err.Error())
		return
	}

	utils.RespondJSON(w, http.StatusOK, resp)
}

// engineStatus maps speech service failures to a status code: a missing
// engine credential is a deployment problem (503), anything else is the
// upstream engine misbehaving (502).
func engineStatus(err error) int {
	if errors.Is(err, speechsvc.ErrNotConfigured) {
		return http.StatusServiceUnavailable
	}
	return http.StatusBadGateway
}
