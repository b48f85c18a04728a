package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/voicelayer/aria/internal/config"
	"github.com/voicelayer/aria/internal/handler"
	voicehandler "github.com/voicelayer/aria/internal/handler/voice"
	"github.com/voicelayer/aria/internal/model/persona"
	"github.com/voicelayer/aria/internal/service/ai"
	"github.com/voicelayer/aria/internal/service/session"
	"github.com/voicelayer/aria/internal/service/skill"
	"github.com/voicelayer/aria/internal/service/speech"
	"github.com/voicelayer/aria/internal/service/voice"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	personaStore := persona.NewMemoryStore(persona.Seed())
	sessionStore := session.NewStore()

	skills := skill.NewRegistry(
		skill.NewWebSearch(cfg.Skills),
		skill.NewWeather(cfg.Skills),
	)

	var generator *ai.Generator
	if cfg.AI.Enabled() {
		generator, err = ai.NewGenerator(ctx, cfg.AI, skills)
		if err != nil {
			log.Printf("warning: failed to initialize generation engine: %v", err)
			log.Println("continuing without generation, voice turns will fail")
		} else {
			log.Println("generation engine initialized")
		}
	} else {
		log.Println("generation credentials not configured, skipping generation engine")
	}

	speechService := speech.NewService(cfg.Speech)
	if !cfg.Speech.STTEnabled() {
		log.Println("transcription credentials not configured, voice input disabled")
	}
	if !cfg.Speech.TTSEnabled() {
		log.Println("synthesis credentials not configured, voice output disabled")
	}

	catalog := voice.NewCatalog(cfg.Speech)
	resolver := voice.NewResolver(catalog, cfg.Speech.DefaultVoice)
	relay := speech.NewRelay(speechService.Synthesizer(), resolver)

	conns := voicehandler.NewRegistry()
	router := handler.NewRouter(personaStore, sessionStore, generator, speechService, relay, conns)

	startServer(ctx, cfg.Server, router, conns)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler, conns *voicehandler.Registry) {
	srv := &http.Server{
		Addr:              serverCfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("aria voice backend listening on %s", serverCfg.Addr)
	if err := runServer(ctx, srv, conns); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func runServer(ctx context.Context, srv *http.Server, conns *voicehandler.Registry) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		conns.CloseAll()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
