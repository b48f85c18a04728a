package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	chathandler "github.com/voicelayer/aria/internal/handler/chat"
	personahandler "github.com/voicelayer/aria/internal/handler/persona"
	speechhandler "github.com/voicelayer/aria/internal/handler/speech"
	voicehandler "github.com/voicelayer/aria/internal/handler/voice"
	middlewarePkg "github.com/voicelayer/aria/internal/middleware"
	personaModel "github.com/voicelayer/aria/internal/model/persona"
	"github.com/voicelayer/aria/internal/service/ai"
	"github.com/voicelayer/aria/internal/service/session"
	speechService "github.com/voicelayer/aria/internal/service/speech"
	"github.com/voicelayer/aria/pkg/utils"
)

// NewRouter wires HTTP routes to core services. generator may be nil when
// the generation engine is not configured.
func NewRouter(personas personaModel.Store, sessions *session.Store, generator *ai.Generator, speechSvc *speechService.Service, relay *speechService.Relay, conns *voicehandler.Registry) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	personaHandler := personahandler.New(personas, sessions)
	chatHandler := chathandler.New(sessions, personas)
	speechHandler := speechhandler.New(speechSvc)
	voiceHandler := voicehandler.NewHandler(personas, sessions, generator, speechSvc, relay, conns)

	r.Route("/api", func(api chi.Router) {
		api.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			utils.RespondJSON(w, http.StatusOK, map[string]any{
				"status":      "ok",
				"connections": conns.Count(),
			})
		})

		personaHandler.RegisterRoutes(api)
		chatHandler.RegisterRoutes(api)
		speechHandler.RegisterRoutes(api)
	})

	voiceHandler.RegisterRoutes(r)

	return r
}
