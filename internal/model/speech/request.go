package speech

// TranscribeRequest is a one-shot speech-to-text request.
type TranscribeRequest struct {
	SessionID string `json:"sessionId"`
	AudioData []byte `json:"-"`
	Format    string `json:"format"` // wav, webm, pcm, ...
}

// SynthesizeRequest is a one-shot text-to-speech request.
type SynthesizeRequest struct {
	SessionID string `json:"sessionId"`
	Text      string `json:"text"`
	VoiceID   string `json:"voiceId"`
}
