package chat

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/voicelayer/aria/internal/model/persona"
	"github.com/voicelayer/aria/internal/service/session"
	"github.com/voicelayer/aria/pkg/utils"
)

// Handler serves session lifecycle, conversation history, and per-session
// credential overrides.
type Handler struct {
	sessions *session.Store
	personas persona.Store
}

// New creates the chat handler.
func New(sessions *session.Store, personas persona.Store) *Handler {
	return &Handler{sessions: sessions, personas: personas}
}

// RegisterRoutes mounts the session routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/sessions", h.handleCreateSession)
	r.Get("/sessions/{sessionID}/history", h.handleHistory)
	r.Put("/sessions/{sessionID}/credentials", h.handleSetCredentials)
}

func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		PersonaID string `json:"personaId"`
	}

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if payload.PersonaID == "" {
		payload.PersonaID = persona.DefaultID
	}
	if _, ok := h.personas.FindByID(payload.PersonaID); !ok {
		utils.RespondError(w, http.StatusBadRequest, "persona not found")
		return
	}

	sess, err := h.sessions.Create(r.Context(), payload.PersonaID)
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	utils.RespondJSON(w, http.StatusCreated, sess)
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	messages, err := h.sessions.History(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			utils.RespondError(w, http.StatusNotFound, "session not found")
			return
		}
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"session_id": sessionID,
		"messages":   messages,
		"count":      len(messages),
	})
}

// handleSetCredentials stores engine credential overrides scoped to one
// session. An empty value clears the override.
func (h *Handler) handleSetCredentials(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var payload map[string]string
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(payload) == 0 {
		utils.RespondError(w, http.StatusBadRequest, "no credentials provided")
		return
	}

	for name, value := range payload {
		if err := h.sessions.SetCredential(r.Context(), sessionID, name, value); err != nil {
			if errors.Is(err, session.ErrSessionNotFound) {
				utils.RespondError(w, http.StatusNotFound, "session not found")
				return
			}
			utils.RespondError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}

	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"session_id": sessionID,
		"updated":    len(payload),
	})
}
