package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/voicelayer/aria/internal/config"
	speechmodel "github.com/voicelayer/aria/internal/model/speech"
)

// ErrNotConfigured reports that the engine credential a request needs is
// missing from the environment. Handlers use it to tell a deployment gap
// apart from an upstream engine failure.
var ErrNotConfigured = errors.New("engine API key not configured")

// Service bundles the speech engine clients plus the one-shot REST glue used
// by the non-streaming endpoints.
type Service struct {
	cfg    config.SpeechConfig
	client *http.Client

	transcriber *Transcriber
	synthesizer *Synthesizer
}

// NewService creates the speech service.
func NewService(cfg config.SpeechConfig) *Service {
	return &Service{
		cfg:         cfg,
		client:      &http.Client{Timeout: time.Duration(cfg.Timeout) * time.Second},
		transcriber: NewTranscriber(cfg),
		synthesizer: NewSynthesizer(cfg),
	}
}

// Transcriber returns the streaming transcription client.
func (s *Service) Transcriber() *Transcriber { return s.transcriber }

// Synthesizer returns the streaming synthesis client.
func (s *Service) Synthesizer() *Synthesizer { return s.synthesizer }

type uploadResponse struct {
	UploadURL string `json:"upload_url"`
}

type transcriptJob struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Text   string `json:"text"`
	Error  string `json:"error"`
}

// TranscribeBuffer runs a one-shot transcription of an uploaded audio
// buffer: upload, submit, then poll until the job settles or the configured
// timeout elapses.
func (s *Service) TranscribeBuffer(ctx context.Context, req speechmodel.TranscribeRequest) (*speechmodel.TranscribeResponse, error) {
	if !s.cfg.STTEnabled() {
		return nil, fmt.Errorf("transcription: %w", ErrNotConfigured)
	}
	if len(req.AudioData) == 0 {
		return nil, fmt.Errorf("audio payload is empty")
	}

	uploadURL, err := s.uploadAudio(ctx, req.AudioData)
	if err != nil {
		return nil, err
	}

	job, err := s.submitTranscript(ctx, uploadURL)
	if err != nil {
		return nil, err
	}

	deadline := time.Now().Add(time.Duration(s.cfg.Timeout) * time.Second)
	for {
		switch job.Status {
		case "completed":
			return &speechmodel.TranscribeResponse{
				SessionID: req.SessionID,
				Text:      strings.TrimSpace(job.Text),
				CreatedAt: time.Now().UTC(),
			}, nil
		case "error":
			return nil, fmt.Errorf("transcription failed: %s", job.Error)
		}

		if time.Now().After(deadline) {
			return nil, fmt.Errorf("transcription timed out after %ds", s.cfg.Timeout)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Second):
		}

		job, err = s.pollTranscript(ctx, job.ID)
		if err != nil {
			return nil, err
		}
	}
}

func (s *Service) uploadAudio(ctx context.Context, audio []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.STTBaseURL+"/v2/upload", bytes.NewReader(audio))
	if err != nil {
		return "", fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Authorization", s.cfg.STTAPIKey)
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("upload endpoint returned status %d", resp.StatusCode)
	}

	var decoded uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("decode upload response: %w", err)
	}
	if decoded.UploadURL == "" {
		return "", fmt.Errorf("upload endpoint returned no URL")
	}
	return decoded.UploadURL, nil
}

func (s *Service) submitTranscript(ctx context.Context, audioURL string) (*transcriptJob, error) {
	payload, err := json.Marshal(map[string]string{"audio_url": audioURL})
	if err != nil {
		return nil, fmt.Errorf("encode transcript request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.STTBaseURL+"/v2/transcript", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build transcript request: %w", err)
	}
	req.Header.Set("Authorization", s.cfg.STTAPIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("transcript request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("transcript endpoint returned status %d", resp.StatusCode)
	}

	var job transcriptJob
	if err := json.NewDecoder(resp.Body).Decode(&job); err != nil {
		return nil, fmt.Errorf("decode transcript response: %w", err)
	}
	return &job, nil
}

func (s *Service) pollTranscript(ctx context.Context, id string) (*transcriptJob, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.cfg.STTBaseURL+"/v2/transcript/"+id, nil)
	if err != nil {
		return nil, fmt.Errorf("build poll request: %w", err)
	}
	req.Header.Set("Authorization", s.cfg.STTAPIKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("poll request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("poll endpoint returned status %d", resp.StatusCode)
	}

	var job transcriptJob
	if err := json.NewDecoder(resp.Body).Decode(&job); err != nil {
		return nil, fmt.Errorf("decode poll response: %w", err)
	}
	return &job, nil
}

type generateSpeechRequest struct {
	Text    string `json:"text"`
	VoiceID string `json:"voiceId"`
}

type generateSpeechResponse struct {
	AudioFile string `json:"audioFile"`
	Message   string `json:"message"`
}

// SynthesizeToURL runs a one-shot synthesis and returns the hosted audio URL.
func (s *Service) SynthesizeToURL(ctx context.Context, req speechmodel.SynthesizeRequest) (*speechmodel.SynthesizeResponse, error) {
	if !s.cfg.TTSEnabled() {
		return nil, fmt.Errorf("synthesis: %w", ErrNotConfigured)
	}
	if strings.TrimSpace(req.Text) == "" {
		return nil, fmt.Errorf("synthesis text is empty")
	}

	voiceID := req.VoiceID
	if voiceID == "" {
		voiceID = s.cfg.DefaultVoice
	}

	payload, err := json.Marshal(generateSpeechRequest{Text: req.Text, VoiceID: voiceID})
	if err != nil {
		return nil, fmt.Errorf("encode synthesis request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.TTSBaseURL+"/v1/speech/generate", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build synthesis request: %w", err)
	}
	httpReq.Header.Set("api-key", s.cfg.TTSAPIKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("synthesis request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("synthesis endpoint returned status %d", resp.StatusCode)
	}

	var decoded generateSpeechResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode synthesis response: %w", err)
	}
	if decoded.AudioFile == "" {
		return nil, fmt.Errorf("synthesis endpoint returned no audio URL: %s", decoded.Message)
	}

	return &speechmodel.SynthesizeResponse{
		SessionID: req.SessionID,
		AudioURL:  decoded.AudioFile,
		VoiceID:   voiceID,
		CreatedAt: time.Now().UTC(),
	}, nil
}
