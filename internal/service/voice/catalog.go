package voice

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/voicelayer/aria/internal/config"
)

// Entry is one synthesis voice supported by the TTS engine.
type Entry struct {
	ID     string `json:"voiceId"`
	Locale string `json:"locale"`
}

// Catalog caches the TTS engine's supported voices for the process lifetime.
// The cache is populated lazily on first use; an empty cache is a valid,
// degraded state and a later call may attempt the fetch again. Once
// populated the catalog is read-only.
type Catalog struct {
	baseURL string
	apiKey  string
	client  *http.Client

	mu      sync.Mutex
	entries []Entry
}

// NewCatalog creates a catalog backed by the TTS engine's voice listing.
func NewCatalog(cfg config.SpeechConfig) *Catalog {
	return &Catalog{
		baseURL: cfg.TTSBaseURL,
		apiKey:  cfg.TTSAPIKey,
		client:  &http.Client{Timeout: time.Duration(cfg.Timeout) * time.Second},
	}
}

// Voices returns the cached voice list, fetching it on first use. A failed
// fetch leaves the catalog empty rather than returning an error; callers
// must behave sensibly with an empty catalog.
func (c *Catalog) Voices(ctx context.Context) []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.entries) > 0 {
		return append([]Entry(nil), c.entries...)
	}

	entries, err := c.fetch(ctx)
	if err != nil {
		log.Printf("[voice] catalog fetch failed: %v", err)
		return nil
	}

	c.entries = entries
	log.Printf("[voice] catalog populated with %d voices", len(entries))
	return append([]Entry(nil), c.entries...)
}

func (c *Catalog) fetch(ctx context.Context) ([]Entry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/speech/voices", nil)
	if err != nil {
		return nil, fmt.Errorf("build voices request: %w", err)
	}
	req.Header.Set("api-key", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("voices request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("voices endpoint returned status %d", resp.StatusCode)
	}

	var entries []Entry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, fmt.Errorf("decode voices response: %w", err)
	}
	return entries, nil
}
