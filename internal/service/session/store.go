package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/voicelayer/aria/internal/model/chat"
)

var (
	ErrPersonaRequired = errors.New("persona id is required")
	ErrSessionNotFound = errors.New("session not found")
)

// state holds everything the pipeline tracks for one session. The turn flag
// is the single piece of state shared between the ingestion loop and the
// background generation task, so all access goes through the store mutex.
type state struct {
	session     chat.Session
	messages    []chat.Message
	lastSeen    string
	lastFinal   string
	turnStarted bool
	credentials map[string]string
}

// Store keeps per-session conversation state in memory.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*state
}

// NewStore bootstraps the in-memory session store.
func NewStore() *Store {
	return &Store{sessions: make(map[string]*state)}
}

// Create provisions a session bound to a persona.
func (s *Store) Create(_ context.Context, personaID string) (chat.Session, error) {
	if personaID == "" {
		return chat.Session{}, ErrPersonaRequired
	}

	session := chat.Session{
		ID:        uuid.NewString(),
		PersonaID: personaID,
		CreatedAt: time.Now().UTC(),
	}

	s.mu.Lock()
	s.sessions[session.ID] = &state{
		session:  session,
		messages: make([]chat.Message, 0, 16),
	}
	s.mu.Unlock()

	return session, nil
}

// Ensure returns the session with the given id, creating it with the supplied
// persona when it does not exist yet. Clients may connect with ids they chose
// themselves, so the first websocket for an id creates the session.
func (s *Store) Ensure(_ context.Context, sessionID, personaID string) (chat.Session, error) {
	if sessionID == "" {
		return chat.Session{}, ErrSessionNotFound
	}
	if personaID == "" {
		return chat.Session{}, ErrPersonaRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if st, ok := s.sessions[sessionID]; ok {
		return st.session, nil
	}

	session := chat.Session{
		ID:        sessionID,
		PersonaID: personaID,
		CreatedAt: time.Now().UTC(),
	}
	s.sessions[sessionID] = &state{
		session:  session,
		messages: make([]chat.Message, 0, 16),
	}
	return session, nil
}

// Get retrieves a session by identifier.
func (s *Store) Get(_ context.Context, sessionID string) (chat.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.sessions[sessionID]
	if !ok {
		return chat.Session{}, ErrSessionNotFound
	}
	return st.session, nil
}

// SetPersona switches the persona for an existing session.
func (s *Store) SetPersona(_ context.Context, sessionID, personaID string) error {
	if personaID == "" {
		return ErrPersonaRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.sessions[sessionID]
	if !ok {
		return ErrSessionNotFound
	}
	st.session.PersonaID = personaID
	return nil
}

// History returns a copy of the stored messages for the session.
func (s *Store) History(_ context.Context, sessionID string) ([]chat.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}

	copied := make([]chat.Message, len(st.messages))
	copy(copied, st.messages)
	return copied, nil
}

// AppendExchange appends one user message and one assistant message in a
// single step. History only ever grows by this pair, so a turn that fails
// anywhere before the assistant reply leaves the history untouched.
func (s *Store) AppendExchange(_ context.Context, sessionID, userText, assistantText string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.sessions[sessionID]
	if !ok {
		return ErrSessionNotFound
	}

	now := time.Now().UTC()
	st.messages = append(st.messages,
		chat.Message{
			ID:        uuid.NewString(),
			SessionID: sessionID,
			Role:      chat.RoleUser,
			Text:      userText,
			CreatedAt: now,
		},
		chat.Message{
			ID:        uuid.NewString(),
			SessionID: sessionID,
			Role:      chat.RoleAssistant,
			Text:      assistantText,
			CreatedAt: now,
		},
	)
	return nil
}

// RecordTranscript stores the latest transcript seen for the session. Every
// transcript updates lastSeen; final ones additionally update lastFinal.
func (s *Store) RecordTranscript(_ context.Context, sessionID, text string, final bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.sessions[sessionID]
	if !ok {
		return
	}
	st.lastSeen = text
	if final {
		st.lastFinal = text
	}
}

// Transcripts returns (lastFinal, lastSeen) for the session.
func (s *Store) Transcripts(_ context.Context, sessionID string) (string, string) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.sessions[sessionID]
	if !ok {
		return "", ""
	}
	return st.lastFinal, st.lastSeen
}

// TryBeginTurn flips the single-flight turn flag false->true. It returns
// false when a turn is already in flight, making the second trigger source
// for the same turn a no-op.
func (s *Store) TryBeginTurn(_ context.Context, sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.sessions[sessionID]
	if !ok {
		return false
	}
	if st.turnStarted {
		return false
	}
	st.turnStarted = true
	return true
}

// EndTurn resets the turn flag once the pipeline terminated, successfully or
// not, and clears the transcript buffers for the next turn.
func (s *Store) EndTurn(_ context.Context, sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.sessions[sessionID]
	if !ok {
		return
	}
	st.turnStarted = false
	st.lastSeen = ""
	st.lastFinal = ""
}

// TurnInFlight reports whether a generation pipeline is currently running.
func (s *Store) TurnInFlight(_ context.Context, sessionID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.sessions[sessionID]
	if !ok {
		return false
	}
	return st.turnStarted
}

// SetCredential stores a per-session engine credential override.
func (s *Store) SetCredential(_ context.Context, sessionID, name, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.sessions[sessionID]
	if !ok {
		return ErrSessionNotFound
	}
	if st.credentials == nil {
		st.credentials = make(map[string]string)
	}
	if value == "" {
		delete(st.credentials, name)
		return nil
	}
	st.credentials[name] = value
	return nil
}

// Credential returns the per-session override for a named credential, or ""
// when none is set; callers fall back to process-wide configuration.
func (s *Store) Credential(_ context.Context, sessionID, name string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.sessions[sessionID]
	if !ok {
		return ""
	}
	return st.credentials[name]
}
