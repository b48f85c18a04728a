package voice

import (
	"log"
	"strconv"
	"sync"

	"github.com/gorilla/websocket"
)

// wsSink serializes all outbound text frames for one client connection.
// Frames are "prefix:payload" text messages. Once a write fails the sink
// marks itself closed and every later send becomes a no-op, so background
// tasks can keep signaling after the client disconnected.
type wsSink struct {
	sessionID string
	conn      *websocket.Conn

	mu     sync.Mutex
	closed bool
}

func newSink(sessionID string, conn *websocket.Conn) *wsSink {
	return &wsSink{sessionID: sessionID, conn: conn}
}

func (s *wsSink) send(prefix, payload string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	if err := s.conn.WriteMessage(websocket.TextMessage, []byte(prefix+":"+payload)); err != nil {
		log.Printf("[relay] client write failed session=%s prefix=%s: %v", s.sessionID, prefix, err)
		s.closed = true
	}
}

// ping sends a keepalive frame under the write lock. It reports whether the
// connection is still writable.
func (s *wsSink) ping() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}
	if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
		s.closed = true
		return false
	}
	return true
}

// markClosed stops further writes once the connection handler returns.
func (s *wsSink) markClosed() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

// Scheduler notifications.

func (s *wsSink) Partial(text string) { s.send("partial", text) }
func (s *wsSink) Final(text string)   { s.send("final", text) }
func (s *wsSink) TurnEnd(text string) { s.send("turn_end", text) }

// Turn pipeline signals.

func (s *wsSink) AssistantText(text string) { s.send("assistant_text", text) }
func (s *wsSink) Error(message string)      { s.send("error", message) }

// Synthesis relay signals.

func (s *wsSink) AudioStart(message string)  { s.send("audio_start", message) }
func (s *wsSink) AudioStatus(message string) { s.send("audio_status", message) }
func (s *wsSink) AudioComplete(count int)    { s.send("audio_complete", strconv.Itoa(count)) }
func (s *wsSink) AudioError(message string)  { s.send("audio_error", message) }

// AudioChunk always reports success: a disconnected client is a no-op
// destination, not a reason to abort the synthesis stream.
func (s *wsSink) AudioChunk(data string) error {
	s.send("audio_chunk", data)
	return nil
}
