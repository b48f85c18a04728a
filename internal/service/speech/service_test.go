package speech

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/voicelayer/aria/internal/config"
	speechmodel "github.com/voicelayer/aria/internal/model/speech"
)

func TestTranscribeBuffer(t *testing.T) {
	polls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/v2/upload":
			if r.Header.Get("Authorization") == "" {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]string{"upload_url": "https://cdn.example/audio-1"})
		case r.Method == http.MethodPost && r.URL.Path == "/v2/transcript":
			var req map[string]string
			_ = json.NewDecoder(r.Body).Decode(&req)
			if req["audio_url"] != "https://cdn.example/audio-1" {
				http.Error(w, "bad audio_url", http.StatusBadRequest)
				return
			}
			_ = json.NewEncoder(w).Encode(transcriptJob{ID: "job-1", Status: "queued"})
		case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/v2/transcript/"):
			polls++
			status := "processing"
			text := ""
			if polls >= 2 {
				status = "completed"
				text = " hello world "
			}
			_ = json.NewEncoder(w).Encode(transcriptJob{ID: "job-1", Status: status, Text: text})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	svc := NewService(config.SpeechConfig{STTAPIKey: "k", STTBaseURL: srv.URL, Timeout: 10})

	resp, err := svc.TranscribeBuffer(context.Background(), speechmodel.TranscribeRequest{
		SessionID: "sess-1",
		AudioData: []byte("pcm"),
	})
	if err != nil {
		t.Fatalf("TranscribeBuffer err: %v", err)
	}
	if resp.Text != "hello world" {
		t.Fatalf("unexpected transcript: %q", resp.Text)
	}
	if resp.SessionID != "sess-1" {
		t.Fatalf("unexpected session id: %q", resp.SessionID)
	}
}

func TestTranscribeBufferJobError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/v2/upload":
			_ = json.NewEncoder(w).Encode(map[string]string{"upload_url": "https://cdn.example/a"})
		case r.URL.Path == "/v2/transcript":
			_ = json.NewEncoder(w).Encode(transcriptJob{ID: "job-1", Status: "error", Error: "unsupported codec"})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	svc := NewService(config.SpeechConfig{STTAPIKey: "k", STTBaseURL: srv.URL, Timeout: 10})

	_, err := svc.TranscribeBuffer(context.Background(), speechmodel.TranscribeRequest{
		SessionID: "sess-1",
		AudioData: []byte("pcm"),
	})
	if err == nil || !strings.Contains(err.Error(), "unsupported codec") {
		t.Fatalf("expected job error, got %v", err)
	}
}

func TestTranscribeBufferEmptyAudio(t *testing.T) {
	svc := NewService(config.SpeechConfig{STTAPIKey: "k", STTBaseURL: "http://unused", Timeout: 10})

	if _, err := svc.TranscribeBuffer(context.Background(), speechmodel.TranscribeRequest{SessionID: "sess-1"}); err == nil {
		t.Fatal("expected error for empty audio")
	}
}

func TestSynthesizeToURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/speech/generate" {
			http.NotFound(w, r)
			return
		}
		var req generateSpeechRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.VoiceID == "" {
			http.Error(w, "missing voice", http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode(generateSpeechResponse{AudioFile: "https://cdn.example/out.mp3"})
	}))
	defer srv.Close()

	svc := NewService(config.SpeechConfig{
		TTSAPIKey:    "k",
		TTSBaseURL:   srv.URL,
		DefaultVoice: "en-US-natalie",
		Timeout:      10,
	})

	// Empty voice falls back to the configured default.
	resp, err := svc.SynthesizeToURL(context.Background(), speechmodel.SynthesizeRequest{
		SessionID: "sess-1",
		Text:      "hello",
	})
	if err != nil {
		t.Fatalf("SynthesizeToURL err: %v", err)
	}
	if resp.AudioURL != "https://cdn.example/out.mp3" {
		t.Fatalf("unexpected audio URL: %q", resp.AudioURL)
	}
	if resp.VoiceID != "en-US-natalie" {
		t.Fatalf("expected default voice, got %q", resp.VoiceID)
	}
}

func TestSynthesizeToURLEmptyText(t *testing.T) {
	svc := NewService(config.SpeechConfig{TTSAPIKey: "k", TTSBaseURL: "http://unused", Timeout: 10})

	req := speechmodel.SynthesizeRequest{SessionID: "sess-1", Text: "  ", VoiceID: "v"}
	if _, err := svc.SynthesizeToURL(context.Background(), req); err == nil {
		t.Fatal("expected error for empty text")
	}
}
