package turn_test

import (
	"context"
	"sync"
	"testing"

	speechmodel "github.com/voicelayer/aria/internal/model/speech"
	"github.com/voicelayer/aria/internal/service/session"
	"github.com/voicelayer/aria/internal/service/turn"
)

type recordingNotifier struct {
	mu       sync.Mutex
	partials []string
	finals   []string
	turnEnds []string
}

func (n *recordingNotifier) Partial(text string) {
	n.mu.Lock()
	n.partials = append(n.partials, text)
	n.mu.Unlock()
}

func (n *recordingNotifier) Final(text string) {
	n.mu.Lock()
	n.finals = append(n.finals, text)
	n.mu.Unlock()
}

func (n *recordingNotifier) TurnEnd(text string) {
	n.mu.Lock()
	n.turnEnds = append(n.turnEnds, text)
	n.mu.Unlock()
}

type fixture struct {
	store     *session.Store
	sessionID string
	notifier  *recordingNotifier
	sched     *turn.Scheduler

	mu       sync.Mutex
	launches []string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		store:    session.NewStore(),
		notifier: &recordingNotifier{},
	}
	sess, err := f.store.Create(context.Background(), "pirate")
	if err != nil {
		t.Fatalf("Create err: %v", err)
	}
	f.sessionID = sess.ID
	f.sched = turn.NewScheduler(sess.ID, f.store, f.notifier, func(transcript string) {
		f.mu.Lock()
		f.launches = append(f.launches, transcript)
		f.mu.Unlock()
	})
	return f
}

func (f *fixture) launchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.launches)
}

func event(text string, partial, endOfTurn bool) speechmodel.TranscriptEvent {
	return speechmodel.TranscriptEvent{Text: text, Partial: partial, EndOfTurn: endOfTurn}
}

func TestPartialEventsNeverTrigger(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.sched.HandleEvent(ctx, event("hel", true, false))
	f.sched.HandleEvent(ctx, event("hello th", true, false))

	if f.launchCount() != 0 {
		t.Fatalf("partials triggered generation: %d launches", f.launchCount())
	}
	if len(f.notifier.partials) != 2 {
		t.Fatalf("expected 2 partial notices, got %d", len(f.notifier.partials))
	}
}

func TestEndOfTurnTriggersOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.sched.HandleEvent(ctx, event("what is the weather", false, true))

	if f.launchCount() != 1 {
		t.Fatalf("expected 1 launch, got %d", f.launchCount())
	}
	if f.launches[0] != "what is the weather" {
		t.Fatalf("unexpected transcript: %q", f.launches[0])
	}
	if len(f.notifier.turnEnds) != 1 {
		t.Fatalf("expected 1 turn_end notice, got %d", len(f.notifier.turnEnds))
	}

	// The done signal for the same turn is a no-op.
	if f.sched.HandleDone(ctx) {
		t.Fatal("HandleDone should not trigger a second generation")
	}
	if f.launchCount() != 1 {
		t.Fatalf("expected 1 launch after done, got %d", f.launchCount())
	}
}

func TestDoneThenEndOfTurnTriggersOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.sched.HandleEvent(ctx, event("tell me a story", false, false))

	// Optimistic start on the interim turn event.
	if f.launchCount() != 1 {
		t.Fatalf("expected 1 launch, got %d", f.launchCount())
	}

	f.sched.HandleEvent(ctx, event("tell me a story", false, true))
	if f.sched.HandleDone(ctx) {
		t.Fatal("HandleDone should be a no-op while the turn is in flight")
	}

	if f.launchCount() != 1 {
		t.Fatalf("expected 1 launch total, got %d", f.launchCount())
	}
}

func TestInterimTriggerDisabled(t *testing.T) {
	f := newFixture(t)
	f.sched.TriggerOnInterimTurn = false
	ctx := context.Background()

	f.sched.HandleEvent(ctx, event("tell me a story", false, false))
	if f.launchCount() != 0 {
		t.Fatalf("interim event triggered with knob off: %d launches", f.launchCount())
	}

	f.sched.HandleEvent(ctx, event("tell me a story", false, true))
	if f.launchCount() != 1 {
		t.Fatalf("expected 1 launch, got %d", f.launchCount())
	}
}

func TestDoneFallsBackToLastSeen(t *testing.T) {
	f := newFixture(t)
	f.sched.TriggerOnInterimTurn = false
	ctx := context.Background()

	f.sched.HandleEvent(ctx, event("half a sent", true, false))

	if !f.sched.HandleDone(ctx) {
		t.Fatal("HandleDone should trigger from the partial transcript")
	}
	if f.launches[0] != "half a sent" {
		t.Fatalf("expected lastSeen fallback, got %q", f.launches[0])
	}
}

func TestDonePrefersLastFinal(t *testing.T) {
	f := newFixture(t)
	f.sched.TriggerOnInterimTurn = false
	ctx := context.Background()

	f.sched.HandleEvent(ctx, event("the whole sentence", false, false))
	f.sched.HandleEvent(ctx, event("trailing frag", true, false))

	if !f.sched.HandleDone(ctx) {
		t.Fatal("HandleDone should trigger")
	}
	if f.launches[0] != "the whole sentence" {
		t.Fatalf("expected lastFinal, got %q", f.launches[0])
	}
}

func TestDoneWithoutTranscriptUsesPlaceholder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if !f.sched.HandleDone(ctx) {
		t.Fatal("HandleDone should still trigger generation")
	}
	if f.launches[0] != turn.PlaceholderPrompt {
		t.Fatalf("expected placeholder prompt, got %q", f.launches[0])
	}
}

func TestDoneAfterCompletedTurnIsNoOp(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.sched.HandleEvent(ctx, event("hello there", false, true))
	f.store.EndTurn(ctx, f.sessionID)

	// EndTurn cleared the transcript buffers; a late done must not make the
	// agent speak unprompted.
	if f.sched.HandleDone(ctx) {
		t.Fatal("HandleDone should not trigger after a completed turn")
	}
	if f.launchCount() != 1 {
		t.Fatalf("expected 1 launch, got %d: %v", f.launchCount(), f.launches)
	}
}

func TestNextTurnAfterEndTurn(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.sched.HandleEvent(ctx, event("first question", false, true))
	f.store.EndTurn(ctx, f.sessionID)
	f.sched.HandleEvent(ctx, event("second question", false, true))

	if f.launchCount() != 2 {
		t.Fatalf("expected 2 launches across turns, got %d", f.launchCount())
	}
	if f.launches[1] != "second question" {
		t.Fatalf("unexpected second transcript: %q", f.launches[1])
	}
}
