package speech

// TranscriptEvent is one event emitted by the streaming transcriber.
//
// Partial is true for in-progress transcripts that may still change; those
// are informational only. A non-partial event closes out a chunk of speech
// and carries EndOfTurn when the engine detected the end of the utterance.
type TranscriptEvent struct {
	SessionID string `json:"sessionId"`
	Text      string `json:"text"`
	Partial   bool   `json:"partial"`
	EndOfTurn bool   `json:"endOfTurn"`
}

// AudioChunk is one ordered synthesized audio segment.
type AudioChunk struct {
	// Data is the base64-encoded audio payload exactly as received from the
	// synthesis engine; it is relayed to the client without re-encoding.
	Data  string `json:"data"`
	Final bool   `json:"final"`
}
