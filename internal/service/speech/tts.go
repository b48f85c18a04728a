package speech

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/voicelayer/aria/internal/config"
	speechmodel "github.com/voicelayer/aria/internal/model/speech"
)

// Synthesizer streams synthesized speech from the TTS engine.
type Synthesizer struct {
	cfg    config.SpeechConfig
	dialer *websocket.Dialer
}

// NewSynthesizer creates the streaming synthesis client.
func NewSynthesizer(cfg config.SpeechConfig) *Synthesizer {
	return &Synthesizer{
		cfg: cfg,
		dialer: &websocket.Dialer{
			HandshakeTimeout: 30 * time.Second,
		},
	}
}

type ttsVoiceConfig struct {
	VoiceConfig struct {
		VoiceID string `json:"voiceId"`
		Style   string `json:"style,omitempty"`
	} `json:"voice_config"`
}

type ttsTextInput struct {
	Text string `json:"text"`
	End  bool   `json:"end"`
}

type ttsServerMessage struct {
	Audio string `json:"audio,omitempty"`
	Final bool   `json:"final,omitempty"`
	Error string `json:"error,omitempty"`
}

// Stream synthesizes text with the given voice, invoking onChunk for every
// audio chunk in arrival order, and returns the total chunk count. The
// engine receives one voice-configuration message followed by the full text
// with an end-of-input marker; the stream ends when the final-chunk flag
// arrives. Any connection or callback failure aborts the stream; chunks
// already delivered are not retracted.
func (s *Synthesizer) Stream(ctx context.Context, voiceID, text string, onChunk func(chunk speechmodel.AudioChunk) error) (int, error) {
	if strings.TrimSpace(text) == "" {
		return 0, fmt.Errorf("synthesis text is empty")
	}
	if !s.cfg.TTSEnabled() {
		return 0, fmt.Errorf("synthesis: %w", ErrNotConfigured)
	}

	query := url.Values{}
	query.Set("api-key", s.cfg.TTSAPIKey)
	query.Set("sample_rate", "44100")
	query.Set("format", "MP3")

	conn, _, err := s.dialer.DialContext(ctx, s.cfg.TTSStreamURL+"?"+query.Encode(), nil)
	if err != nil {
		return 0, fmt.Errorf("failed to connect to TTS websocket: %w", err)
	}
	defer conn.Close()

	var cfgMsg ttsVoiceConfig
	cfgMsg.VoiceConfig.VoiceID = voiceID
	cfgMsg.VoiceConfig.Style = "Conversational"
	if err := conn.WriteJSON(cfgMsg); err != nil {
		return 0, fmt.Errorf("failed to send voice config: %w", err)
	}

	if err := conn.WriteJSON(ttsTextInput{Text: text, End: true}); err != nil {
		return 0, fmt.Errorf("failed to send synthesis text: %w", err)
	}

	readTimeout := time.Duration(s.cfg.Timeout) * time.Second
	chunks := 0
	for {
		select {
		case <-ctx.Done():
			return chunks, ctx.Err()
		default:
		}

		_ = conn.SetReadDeadline(time.Now().Add(readTimeout))

		var msg ttsServerMessage
		if err := conn.ReadJSON(&msg); err != nil {
			return chunks, fmt.Errorf("failed to read synthesis response: %w", err)
		}

		if msg.Error != "" {
			return chunks, fmt.Errorf("synthesis engine error: %s", msg.Error)
		}

		if msg.Audio != "" {
			chunks++
			if err := onChunk(speechmodel.AudioChunk{Data: msg.Audio, Final: msg.Final}); err != nil {
				return chunks, fmt.Errorf("audio chunk delivery failed: %w", err)
			}
		}

		if msg.Final {
			log.Printf("[tts] synthesis complete voice=%s chunks=%d", voiceID, chunks)
			return chunks, nil
		}
	}
}
