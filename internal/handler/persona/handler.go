package persona

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/voicelayer/aria/internal/model/persona"
	"github.com/voicelayer/aria/internal/service/session"
	"github.com/voicelayer/aria/pkg/utils"
)

// Handler serves the persona catalog and per-session persona selection.
type Handler struct {
	personas persona.Store
	sessions *session.Store
}

// New creates the persona handler.
func New(personas persona.Store, sessions *session.Store) *Handler {
	return &Handler{personas: personas, sessions: sessions}
}

// RegisterRoutes mounts the persona routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/personas", h.handleList)
	r.Get("/personas/{sessionID}", h.handleGetSelection)
	r.Post("/personas/{sessionID}/{personaID}", h.handleSetSelection)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.personas.List())
}

// handleGetSelection returns the persona currently bound to a session.
func (h *Handler) handleGetSelection(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	sess, err := h.sessions.Get(r.Context(), sessionID)
	if err != nil {
		utils.RespondError(w, http.StatusNotFound, "session not found")
		return
	}

	p, ok := h.personas.FindByID(sess.PersonaID)
	if !ok {
		utils.RespondError(w, http.StatusNotFound, "persona not found")
		return
	}

	utils.RespondJSON(w, http.StatusOK, p)
}

// handleSetSelection switches the session's persona. The next turn picks up
// the new persona's prompt and voice.
func (h *Handler) handleSetSelection(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	personaID := chi.URLParam(r, "personaID")

	p, ok := h.personas.FindByID(personaID)
	if !ok {
		utils.RespondError(w, http.StatusBadRequest, "persona not found")
		return
	}

	if err := h.sessions.SetPersona(r.Context(), sessionID, personaID); err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			utils.RespondError(w, http.StatusNotFound, "session not found")
			return
		}
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"session_id": sessionID,
		"persona":    p,
	})
}
