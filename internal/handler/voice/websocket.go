package voice

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/voicelayer/aria/internal/model/persona"
	"github.com/voicelayer/aria/internal/service/ai"
	"github.com/voicelayer/aria/internal/service/session"
	"github.com/voicelayer/aria/internal/service/skill"
	speechsvc "github.com/voicelayer/aria/internal/service/speech"
	"github.com/voicelayer/aria/internal/service/turn"
)

// Handler owns the live voice session: one client websocket carrying inbound
// audio frames and the "done" signal, and outbound prefix:payload text frames
// for transcripts, assistant text, and audio chunks.
type Handler struct {
	personas  persona.Store
	sessions  *session.Store
	generator *ai.Generator
	speech    *speechsvc.Service
	relay     *speechsvc.Relay
	conns     *Registry
	upgrader  websocket.Upgrader
}

// NewHandler wires the websocket voice handler. generator may be nil when the
// generation engine is not configured; turns then fail with an error frame
// instead of refusing the connection.
func NewHandler(personas persona.Store, sessions *session.Store, generator *ai.Generator, speech *speechsvc.Service, relay *speechsvc.Relay, conns *Registry) *Handler {
	return &Handler{
		personas:  personas,
		sessions:  sessions,
		generator: generator,
		speech:    speech,
		relay:     relay,
		conns:     conns,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes mounts the websocket endpoint.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/ws/{sessionID}", h.handleWebSocket)
}

func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		http.Error(w, "sessionID is required", http.StatusBadRequest)
		return
	}

	// Clients pick their own session ids; the first connection creates the
	// session with the default persona.
	if _, err := h.sessions.Ensure(r.Context(), sessionID, persona.DefaultID); err != nil {
		http.Error(w, "session unavailable", http.StatusInternalServerError)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[voice] upgrade failed session=%s: %v", sessionID, err)
		return
	}
	defer conn.Close()

	h.conns.Add(sessionID, conn)
	defer h.conns.Remove(sessionID, conn)

	log.Printf("[voice] connected session=%s", sessionID)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	sink := newSink(sessionID, conn)
	defer sink.markClosed()

	stream, err := h.speech.Transcriber().Open(ctx, sessionID)
	if err != nil {
		log.Printf("[voice] transcription unavailable session=%s: %v", sessionID, err)
		sink.Error(fmt.Sprintf("transcription unavailable: %v", err))
		return
	}
	defer stream.Close()

	sched := turn.NewScheduler(sessionID, h.sessions, sink, func(transcript string) {
		go h.runTurn(ctx, sink, sessionID, transcript)
	})

	go func() {
		for ev := range stream.Events() {
			sched.HandleEvent(ctx, ev)
		}
	}()

	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})
	go h.pingLoop(ctx, sink)

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[voice] read error session=%s: %v", sessionID, err)
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))

		switch msgType {
		case websocket.BinaryMessage:
			if err := stream.Send(data); err != nil {
				log.Printf("[voice] audio forward failed session=%s: %v", sessionID, err)
				sink.Error("transcription stream lost")
				return
			}
		case websocket.TextMessage:
			if strings.EqualFold(strings.TrimSpace(string(data)), "done") {
				// A done after the turn already started is a no-op.
				sched.HandleDone(ctx)
			} else {
				sink.Error("unsupported message")
			}
		}
	}
}

// runTurn executes one generation pipeline in the background: generate with
// tools, persist the exchange, deliver the text reply, then stream audio.
// The turn flag is released whatever happens so the session returns to idle.
func (h *Handler) runTurn(ctx context.Context, sink *wsSink, sessionID, transcript string) {
	defer h.sessions.EndTurn(context.Background(), sessionID)

	if h.generator == nil {
		sink.Error("generation engine not configured")
		return
	}

	sess, err := h.sessions.Get(ctx, sessionID)
	if err != nil {
		sink.Error("session not found")
		return
	}

	p, ok := h.personas.FindByID(sess.PersonaID)
	if !ok {
		p, ok = h.personas.FindByID(persona.DefaultID)
		if !ok {
			sink.Error("persona not found")
			return
		}
	}

	history, err := h.sessions.History(ctx, sessionID)
	if err != nil {
		sink.Error("session not found")
		return
	}

	var creds map[string]string
	if key := h.sessions.Credential(ctx, sessionID, skill.CredentialTavilyKey); key != "" {
		creds = map[string]string{skill.CredentialTavilyKey: key}
	}

	outcome, err := h.generator.Generate(ctx, &p, history, transcript, creds)
	if err != nil {
		var maxErr *ai.MaxToolCallsError
		if errors.As(err, &maxErr) {
			log.Printf("[voice] tool budget exhausted session=%s calls=%d", sessionID, len(maxErr.Records))
		}
		sink.Error(fmt.Sprintf("generation failed: %v", err))
		return
	}

	sink.AssistantText(outcome.Text)

	if err := h.sessions.AppendExchange(context.Background(), sessionID, transcript, outcome.Text); err != nil {
		log.Printf("[voice] history append failed session=%s: %v", sessionID, err)
	}

	// The relay emits its own terminal signal, audio_complete or audio_error.
	_ = h.relay.Run(ctx, sink, outcome.Text, p.VoiceID)
}

func (h *Handler) pingLoop(ctx context.Context, sink *wsSink) {
	ticker := time.NewTicker(54 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !sink.ping() {
				return
			}
		}
	}
}
