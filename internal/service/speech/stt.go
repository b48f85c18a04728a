package speech

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/voicelayer/aria/internal/config"
	speechmodel "github.com/voicelayer/aria/internal/model/speech"
)

// Transcriber opens streaming transcription sessions against the STT engine.
type Transcriber struct {
	cfg    config.SpeechConfig
	dialer *websocket.Dialer
}

// NewTranscriber creates the streaming transcriber client.
func NewTranscriber(cfg config.SpeechConfig) *Transcriber {
	return &Transcriber{
		cfg: cfg,
		dialer: &websocket.Dialer{
			HandshakeTimeout: 30 * time.Second,
		},
	}
}

// sttServerMessage is the engine's event envelope.
type sttServerMessage struct {
	Type       string `json:"type"`
	Transcript string `json:"transcript"`
	EndOfTurn  bool   `json:"end_of_turn"`
	Error      string `json:"error,omitempty"`
}

// sttTerminate is the client's end-of-stream message.
type sttTerminate struct {
	Type string `json:"type"`
}

// TranscriptStream is one live transcription session. Audio frames go in via
// Send in arrival order; transcript events come out of Events until the
// stream terminates, after which the channel is closed.
type TranscriptStream struct {
	sessionID string
	conn      *websocket.Conn
	events    chan speechmodel.TranscriptEvent

	writeMu   sync.Mutex
	closeOnce sync.Once
}

// Open dials the STT engine and starts the event reader.
func (t *Transcriber) Open(ctx context.Context, sessionID string) (*TranscriptStream, error) {
	if !t.cfg.STTEnabled() {
		return nil, fmt.Errorf("transcription: %w", ErrNotConfigured)
	}

	wsURL := fmt.Sprintf("%s?sample_rate=%d", t.cfg.STTURL, t.cfg.SampleRate)

	header := http.Header{}
	header.Set("Authorization", t.cfg.STTAPIKey)

	conn, resp, err := t.dialer.DialContext(ctx, wsURL, header)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to STT websocket: %w", err)
	}
	if resp != nil && resp.Header.Get("X-Request-Id") != "" {
		log.Printf("[stt] connected session=%s request=%s", sessionID, resp.Header.Get("X-Request-Id"))
	}

	stream := &TranscriptStream{
		sessionID: sessionID,
		conn:      conn,
		events:    make(chan speechmodel.TranscriptEvent, 16),
	}
	go stream.readLoop(ctx)

	return stream, nil
}

// Send forwards one binary audio frame to the engine. Frames are written in
// call order; the caller must not reorder them.
func (s *TranscriptStream) Send(frame []byte) error {
	if len(frame) == 0 {
		return nil
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
		return fmt.Errorf("failed to send audio frame: %w", err)
	}
	return nil
}

// Events returns the transcript event channel. It is closed when the engine
// terminates the stream or the connection drops.
func (s *TranscriptStream) Events() <-chan speechmodel.TranscriptEvent {
	return s.events
}

// Close tells the engine the input is over and tears down the connection.
// Safe to call more than once.
func (s *TranscriptStream) Close() {
	s.closeOnce.Do(func() {
		s.writeMu.Lock()
		_ = s.conn.WriteJSON(sttTerminate{Type: "Terminate"})
		s.writeMu.Unlock()
		_ = s.conn.Close()
	})
}

// readLoop decodes engine events and pushes them onto the event channel.
func (s *TranscriptStream) readLoop(ctx context.Context) {
	defer close(s.events)

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("[stt] read error session=%s: %v", s.sessionID, err)
			}
			return
		}

		var msg sttServerMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Printf("[stt] malformed event session=%s: %v", s.sessionID, err)
			continue
		}

		var event speechmodel.TranscriptEvent
		switch msg.Type {
		case "Begin":
			continue
		case "Partial":
			event = speechmodel.TranscriptEvent{
				SessionID: s.sessionID,
				Text:      msg.Transcript,
				Partial:   true,
			}
		case "Turn":
			event = speechmodel.TranscriptEvent{
				SessionID: s.sessionID,
				Text:      msg.Transcript,
				EndOfTurn: msg.EndOfTurn,
			}
		case "Termination":
			return
		default:
			if msg.Error != "" {
				log.Printf("[stt] engine error session=%s: %s", s.sessionID, msg.Error)
				return
			}
			continue
		}

		select {
		case s.events <- event:
		case <-ctx.Done():
			return
		}
	}
}
