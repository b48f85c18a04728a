package speech

import (
	"context"
	"sync"
	"testing"

	"github.com/voicelayer/aria/internal/config"
	"github.com/voicelayer/aria/internal/service/voice"
)

type recordingSink struct {
	mu        sync.Mutex
	starts    []string
	statuses  []string
	chunks    []string
	completes []int
	errors    []string
}

func (s *recordingSink) AudioStart(message string) {
	s.mu.Lock()
	s.starts = append(s.starts, message)
	s.mu.Unlock()
}

func (s *recordingSink) AudioStatus(message string) {
	s.mu.Lock()
	s.statuses = append(s.statuses, message)
	s.mu.Unlock()
}

func (s *recordingSink) AudioChunk(data string) error {
	s.mu.Lock()
	s.chunks = append(s.chunks, data)
	s.mu.Unlock()
	return nil
}

func (s *recordingSink) AudioComplete(count int) {
	s.mu.Lock()
	s.completes = append(s.completes, count)
	s.mu.Unlock()
}

func (s *recordingSink) AudioError(message string) {
	s.mu.Lock()
	s.errors = append(s.errors, message)
	s.mu.Unlock()
}

type fixedCatalog struct {
	entries []voice.Entry
}

func (c fixedCatalog) Voices(_ context.Context) []voice.Entry {
	return append([]voice.Entry(nil), c.entries...)
}

func TestRelayRunSuccess(t *testing.T) {
	srv := ttsEngine(t, []ttsServerMessage{
		{Audio: "YQ=="},
		{Audio: "Yg==", Final: true},
	}, nil)
	defer srv.Close()

	synth := NewSynthesizer(config.SpeechConfig{
		TTSAPIKey:    "k",
		TTSStreamURL: wsURL(srv),
		Timeout:      5,
	})
	resolver := voice.NewResolver(fixedCatalog{entries: []voice.Entry{
		{ID: "en-US-davis", Locale: "en-US"},
	}}, "en-US-davis")

	sink := &recordingSink{}
	relay := NewRelay(synth, resolver)

	if err := relay.Run(context.Background(), sink, "ahoy matey", "en-US-davis"); err != nil {
		t.Fatalf("Run err: %v", err)
	}

	if len(sink.starts) != 1 {
		t.Fatalf("expected 1 audio_start, got %d", len(sink.starts))
	}
	if len(sink.chunks) != 2 || sink.chunks[0] != "YQ==" {
		t.Fatalf("unexpected chunks: %v", sink.chunks)
	}
	if len(sink.completes) != 1 || sink.completes[0] != 2 {
		t.Fatalf("unexpected completes: %v", sink.completes)
	}
	if len(sink.errors) != 0 {
		t.Fatalf("unexpected errors: %v", sink.errors)
	}
}

func TestRelayRunSynthesisFailure(t *testing.T) {
	srv := ttsEngine(t, []ttsServerMessage{
		{Error: "engine offline"},
	}, nil)
	defer srv.Close()

	synth := NewSynthesizer(config.SpeechConfig{
		TTSAPIKey:    "k",
		TTSStreamURL: wsURL(srv),
		Timeout:      5,
	})
	resolver := voice.NewResolver(fixedCatalog{}, "")

	sink := &recordingSink{}
	relay := NewRelay(synth, resolver)

	if err := relay.Run(context.Background(), sink, "hello", "en-US-davis"); err == nil {
		t.Fatal("expected error from failed synthesis")
	}

	// Exactly one terminal signal, the error.
	if len(sink.errors) != 1 {
		t.Fatalf("expected 1 audio_error, got %d", len(sink.errors))
	}
	if len(sink.completes) != 0 {
		t.Fatalf("audio_complete must not follow audio_error: %v", sink.completes)
	}
}

func TestRelayResolvesVoiceBeforeStart(t *testing.T) {
	var gotVoice string
	srv := ttsEngine(t, []ttsServerMessage{
		{Audio: "YQ==", Final: true},
	}, &gotVoice)
	defer srv.Close()

	synth := NewSynthesizer(config.SpeechConfig{
		TTSAPIKey:    "k",
		TTSStreamURL: wsURL(srv),
		Timeout:      5,
	})
	resolver := voice.NewResolver(fixedCatalog{entries: []voice.Entry{
		{ID: "en-US-natalie", Locale: "en-US"},
	}}, "en-US-natalie")

	sink := &recordingSink{}
	relay := NewRelay(synth, resolver)

	if err := relay.Run(context.Background(), sink, "hello", "en-US-retired"); err != nil {
		t.Fatalf("Run err: %v", err)
	}
	if gotVoice != "en-US-natalie" {
		t.Fatalf("engine saw unresolved voice %q", gotVoice)
	}
	if len(sink.statuses) != 1 {
		t.Fatalf("expected a fallback status notice, got %v", sink.statuses)
	}
}
