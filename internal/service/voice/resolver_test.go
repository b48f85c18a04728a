package voice

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/voicelayer/aria/internal/config"
)

type staticCatalog struct {
	entries []Entry
}

func (c staticCatalog) Voices(_ context.Context) []Entry {
	return append([]Entry(nil), c.entries...)
}

func TestResolveDesiredInCatalog(t *testing.T) {
	r := NewResolver(staticCatalog{entries: []Entry{
		{ID: "en-US-davis", Locale: "en-US"},
		{ID: "en-US-natalie", Locale: "en-US"},
	}}, "en-US-natalie")

	if got := r.Resolve(context.Background(), "en-US-davis"); got != "en-US-davis" {
		t.Fatalf("expected desired voice kept, got %q", got)
	}
}

func TestResolveFallsBackToDefault(t *testing.T) {
	r := NewResolver(staticCatalog{entries: []Entry{
		{ID: "en-US-natalie", Locale: "en-US"},
	}}, "en-US-natalie")

	if got := r.Resolve(context.Background(), "en-US-missing"); got != "en-US-natalie" {
		t.Fatalf("expected default fallback, got %q", got)
	}
}

func TestResolveFallsBackToCanonical(t *testing.T) {
	r := NewResolver(staticCatalog{entries: []Entry{
		{ID: CanonicalFallbackVoice, Locale: "en-US"},
		{ID: "fr-FR-someone", Locale: "fr-FR"},
	}}, "en-US-missing-default")

	if got := r.Resolve(context.Background(), "en-US-missing"); got != CanonicalFallbackVoice {
		t.Fatalf("expected canonical fallback, got %q", got)
	}
}

func TestResolveFallsBackToLocale(t *testing.T) {
	r := NewResolver(staticCatalog{entries: []Entry{
		{ID: "fr-FR-someone", Locale: "fr-FR"},
		{ID: "en-US-ruby", Locale: "en-US"},
	}}, "")

	if got := r.Resolve(context.Background(), "en-US-missing"); got != "en-US-ruby" {
		t.Fatalf("expected first en-US voice, got %q", got)
	}
}

func TestResolveEmptyCatalogKeepsDesired(t *testing.T) {
	r := NewResolver(staticCatalog{}, "en-US-natalie")

	if got := r.Resolve(context.Background(), "en-US-davis"); got != "en-US-davis" {
		t.Fatalf("empty catalog should keep desired, got %q", got)
	}
}

func TestResolveCaseInsensitiveMatch(t *testing.T) {
	r := NewResolver(staticCatalog{entries: []Entry{
		{ID: "en-US-Davis", Locale: "en-US"},
	}}, "")

	if got := r.Resolve(context.Background(), "en-us-davis"); got != "en-us-davis" {
		t.Fatalf("case-insensitive match should keep desired id, got %q", got)
	}
}

func TestCatalogFetchAndCache(t *testing.T) {
	fetches := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/speech/voices" {
			http.NotFound(w, r)
			return
		}
		fetches++
		_ = json.NewEncoder(w).Encode([]Entry{
			{ID: "en-US-natalie", Locale: "en-US"},
		})
	}))
	defer srv.Close()

	catalog := NewCatalog(config.SpeechConfig{TTSBaseURL: srv.URL, TTSAPIKey: "k", Timeout: 5})

	first := catalog.Voices(context.Background())
	second := catalog.Voices(context.Background())

	if len(first) != 1 || len(second) != 1 {
		t.Fatalf("unexpected voice counts: %d, %d", len(first), len(second))
	}
	if fetches != 1 {
		t.Fatalf("expected a single fetch, got %d", fetches)
	}
}

func TestCatalogFetchFailureDegrades(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	catalog := NewCatalog(config.SpeechConfig{TTSBaseURL: srv.URL, TTSAPIKey: "k", Timeout: 5})

	if voices := catalog.Voices(context.Background()); voices != nil {
		t.Fatalf("expected nil on fetch failure, got %v", voices)
	}
}
