package speech

import (
	"context"
	"fmt"
	"log"

	speechmodel "github.com/voicelayer/aria/internal/model/speech"
	"github.com/voicelayer/aria/internal/service/voice"
)

// ClientSink receives synthesis lifecycle signals destined for the client
// connection. Implementations must tolerate a closed client: sends after
// disconnect are no-ops, never errors that unwind the relay.
type ClientSink interface {
	AudioStart(message string)
	AudioStatus(message string)
	AudioChunk(data string) error
	AudioComplete(count int)
	AudioError(message string)
}

// Relay takes final generated text, resolves the persona's voice, opens a
// synthesis stream, and forwards ordered audio chunks to the client.
type Relay struct {
	synth    *Synthesizer
	resolver *voice.Resolver
}

// NewRelay wires the relay over a synthesizer and a voice resolver.
func NewRelay(synth *Synthesizer, resolver *voice.Resolver) *Relay {
	return &Relay{synth: synth, resolver: resolver}
}

// Run streams synthesized audio for text to the sink. Exactly one terminal
// signal is emitted: audio_complete with the chunk count on success, or a
// single audio_error on any failure.
func (r *Relay) Run(ctx context.Context, sink ClientSink, text, desiredVoice string) error {
	voiceID := r.resolver.Resolve(ctx, desiredVoice)

	sink.AudioStart(fmt.Sprintf("synthesizing with voice %s", voiceID))
	if voiceID != desiredVoice {
		log.Printf("[relay] voice %q resolved to %q", desiredVoice, voiceID)
		sink.AudioStatus(fmt.Sprintf("voice %s unavailable, using %s", desiredVoice, voiceID))
	}

	count, err := r.synth.Stream(ctx, voiceID, text, func(chunk speechmodel.AudioChunk) error {
		return sink.AudioChunk(chunk.Data)
	})
	if err != nil {
		log.Printf("[relay] synthesis failed voice=%s: %v", voiceID, err)
		sink.AudioError(fmt.Sprintf("synthesis failed: %v", err))
		return err
	}

	sink.AudioComplete(count)
	return nil
}
