package turn

import (
	"context"
	"log"
	"sync"

	speechmodel "github.com/voicelayer/aria/internal/model/speech"
	"github.com/voicelayer/aria/internal/service/session"
)

// PlaceholderPrompt stands in for the user's utterance when "done" arrives
// before any transcript was captured. Generation still runs so the client
// gets some response.
const PlaceholderPrompt = "The user pressed done without saying anything audible. Greet them briefly and invite them to speak."

// Notifier relays transcript notices to the client connection.
type Notifier interface {
	Partial(text string)
	Final(text string)
	TurnEnd(text string)
}

// Scheduler decides when a turn is complete and triggers generation at most
// once per turn. Transcript events arrive from the STT pump goroutine and
// "done" signals from the ingestion loop; the session store's turn flag is
// the only state shared between them, so both trigger paths funnel through
// its compare-and-swap.
type Scheduler struct {
	sessionID string
	store     *session.Store
	notify    Notifier
	launch    func(transcript string)

	// TriggerOnInterimTurn starts generation on the first transcript of a
	// turn event even when the engine has not flagged end-of-turn yet. This
	// trades a small risk of truncated input against latency.
	TriggerOnInterimTurn bool

	mu       sync.Mutex
	launched bool
}

// NewScheduler creates a scheduler for one session. launch is invoked at
// most once per turn with the transcript to generate from; it must not
// block and must eventually call the store's EndTurn.
func NewScheduler(sessionID string, store *session.Store, notify Notifier, launch func(transcript string)) *Scheduler {
	return &Scheduler{
		sessionID:            sessionID,
		store:                store,
		notify:               notify,
		launch:               launch,
		TriggerOnInterimTurn: true,
	}
}

// HandleEvent consumes one transcriber event.
//
// Partial events are informational: relayed to the client and recorded as
// last-seen, never a trigger. Turn events are recorded as both last-seen and
// last-final; an end-of-turn flag triggers generation, and an interim turn
// event triggers optimistically when the policy knob allows it.
func (s *Scheduler) HandleEvent(ctx context.Context, ev speechmodel.TranscriptEvent) {
	if ev.Partial {
		s.store.RecordTranscript(ctx, s.sessionID, ev.Text, false)
		if ev.Text != "" {
			s.notify.Partial(ev.Text)
		}
		return
	}

	s.store.RecordTranscript(ctx, s.sessionID, ev.Text, true)
	s.notify.Final(ev.Text)

	if ev.EndOfTurn {
		s.notify.TurnEnd(ev.Text)
		s.trigger(ctx, ev.Text)
		return
	}

	if s.TriggerOnInterimTurn {
		s.trigger(ctx, ev.Text)
	}
}

// HandleDone consumes the client's explicit end-of-input signal, falling
// back through last-final, then last-seen, then the canned placeholder. It
// reports whether it started generation; a "done" after the turn already
// triggered is a no-op close signal.
func (s *Scheduler) HandleDone(ctx context.Context) bool {
	lastFinal, lastSeen := s.store.Transcripts(ctx, s.sessionID)

	transcript := lastFinal
	if transcript == "" {
		transcript = lastSeen
	}
	if transcript == "" {
		// A completed turn leaves the transcript buffers empty again, so a
		// late done looks like "nothing was ever said". Only speak unprompted
		// before the first turn; afterwards it is a close signal.
		if s.hasLaunched() {
			return false
		}
		transcript = PlaceholderPrompt
	}

	return s.trigger(ctx, transcript)
}

// trigger starts generation if no turn is in flight. The store's CAS
// guarantees that of the two possible trigger sources exactly one wins.
func (s *Scheduler) trigger(ctx context.Context, transcript string) bool {
	if !s.store.TryBeginTurn(ctx, s.sessionID) {
		return false
	}

	s.mu.Lock()
	s.launched = true
	s.mu.Unlock()

	log.Printf("[turn] starting generation session=%s transcript_len=%d", s.sessionID, len(transcript))
	s.launch(transcript)
	return true
}

func (s *Scheduler) hasLaunched() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.launched
}
