package voice

import (
	"context"
	"log"
	"strings"
)

const (
	// CanonicalFallbackVoice is the last known-good voice id tried before
	// falling back to locale matching.
	CanonicalFallbackVoice = "en-US-terrell"

	// PreferredLocale picks the final fallback entry from the catalog.
	PreferredLocale = "en-US"
)

// lister is the catalog surface the resolver needs.
type lister interface {
	Voices(ctx context.Context) []Entry
}

// Resolver maps a desired voice id to a guaranteed-usable one via a fallback
// cascade over the catalog.
type Resolver struct {
	catalog      lister
	defaultVoice string
}

// NewResolver creates a resolver over the supplied catalog.
func NewResolver(catalog lister, defaultVoice string) *Resolver {
	return &Resolver{catalog: catalog, defaultVoice: defaultVoice}
}

// Resolve returns the first usable voice id in the cascade:
// desired → configured default → canonical fallback → first preferred-locale
// entry. When the catalog is empty or nothing matches, the desired id is
// returned unchanged and the engine's own error surfaces at synthesis time.
func (r *Resolver) Resolve(ctx context.Context, desired string) string {
	voices := r.catalog.Voices(ctx)
	if len(voices) == 0 {
		return desired
	}

	if desired != "" && containsVoice(voices, desired) {
		return desired
	}

	if r.defaultVoice != "" && containsVoice(voices, r.defaultVoice) {
		log.Printf("[voice] %q not in catalog, using default %q", desired, r.defaultVoice)
		return r.defaultVoice
	}

	if containsVoice(voices, CanonicalFallbackVoice) {
		log.Printf("[voice] %q not in catalog, using canonical fallback %q", desired, CanonicalFallbackVoice)
		return CanonicalFallbackVoice
	}

	for _, v := range voices {
		if strings.EqualFold(v.Locale, PreferredLocale) {
			log.Printf("[voice] %q not in catalog, using first %s voice %q", desired, PreferredLocale, v.ID)
			return v.ID
		}
	}

	return desired
}

func containsVoice(voices []Entry, id string) bool {
	for _, v := range voices {
		if strings.EqualFold(v.ID, id) {
			return true
		}
	}
	return false
}
