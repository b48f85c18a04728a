package speech

import "time"

// TranscribeResponse is the result of a one-shot transcription.
type TranscribeResponse struct {
	SessionID  string    `json:"sessionId"`
	Text       string    `json:"text"`
	Confidence float64   `json:"confidence"`
	CreatedAt  time.Time `json:"createdAt"`
}

// SynthesizeResponse is the result of a one-shot synthesis.
type SynthesizeResponse struct {
	SessionID string    `json:"sessionId"`
	AudioURL  string    `json:"audioUrl"`
	VoiceID   string    `json:"voiceId"`
	CreatedAt time.Time `json:"createdAt"`
}
