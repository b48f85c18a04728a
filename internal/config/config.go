package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
)

// Config aggregates every subsystem's configuration.
type Config struct {
	Server ServerConfig
	AI     AIConfig
	Speech SpeechConfig
	Skills SkillConfig
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	ai, err := loadAIConfig()
	if err != nil {
		return nil, err
	}

	speech, err := loadSpeechConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Server: server,
		AI:     ai,
		Speech: speech,
		Skills: loadSkillConfig(),
	}, nil
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Addr string
}

func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// Allow ":8080" or "127.0.0.1:8080" directly.
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

// AIConfig describes the text generation engine.
type AIConfig struct {
	APIKey       string
	AccessKey    string
	SecretKey    string
	Model        string
	BaseURL      string
	Region       string
	Temperature  *float64
	TopP         *float64
	MaxTokens    *int
	MaxToolCalls int
	HistoryLimit int
}

// Enabled reports whether the required generation credentials are present.
func (c AIConfig) Enabled() bool {
	return c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
}

// NewChatModel creates a chat model instance from the configuration.
func (c AIConfig) NewChatModel(ctx context.Context) (model.ChatModel, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("generation engine credentials missing: set ARK_API_KEY (or AK/SK) and MODEL")
	}

	var temperature *float32
	if c.Temperature != nil {
		val := float32(*c.Temperature)
		temperature = &val
	}

	var topP *float32
	if c.TopP != nil {
		val := float32(*c.TopP)
		topP = &val
	}

	cfg := &ark.ChatModelConfig{
		BaseURL:     c.BaseURL,
		Region:      c.Region,
		APIKey:      c.APIKey,
		AccessKey:   c.AccessKey,
		SecretKey:   c.SecretKey,
		Model:       c.Model,
		MaxTokens:   c.MaxTokens,
		Temperature: temperature,
		TopP:        topP,
	}

	return ark.NewChatModel(ctx, cfg)
}

func loadAIConfig() (AIConfig, error) {
	temperature, err := parseOptionalFloatEnv("ARK_TEMPERATURE")
	if err != nil {
		return AIConfig{}, err
	}

	topP, err := parseOptionalFloatEnv("ARK_TOP_P")
	if err != nil {
		return AIConfig{}, err
	}

	maxTokens, err := parseOptionalIntEnv("ARK_MAX_TOKENS")
	if err != nil {
		return AIConfig{}, err
	}

	maxToolCalls := 3
	if override, err := parseOptionalIntEnv("AI_MAX_TOOL_CALLS"); err != nil {
		return AIConfig{}, err
	} else if override != nil && *override > 0 {
		maxToolCalls = *override
	}

	historyLimit := 10
	if override, err := parseOptionalIntEnv("AI_HISTORY_LIMIT"); err != nil {
		return AIConfig{}, err
	} else if override != nil && *override > 0 {
		historyLimit = *override
	}

	return AIConfig{
		APIKey:       strings.TrimSpace(os.Getenv("ARK_API_KEY")),
		AccessKey:    strings.TrimSpace(os.Getenv("ARK_ACCESS_KEY")),
		SecretKey:    strings.TrimSpace(os.Getenv("ARK_SECRET_KEY")),
		Model:        strings.TrimSpace(os.Getenv("MODEL")),
		BaseURL:      getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
		Region:       getEnvOrDefault("ARK_REGION", "cn-beijing"),
		Temperature:  temperature,
		TopP:         topP,
		MaxTokens:    maxTokens,
		MaxToolCalls: maxToolCalls,
		HistoryLimit: historyLimit,
	}, nil
}

// SpeechConfig describes the speech-to-text and text-to-speech engines.
type SpeechConfig struct {
	// Speech-to-text (streaming + REST one-shot).
	STTAPIKey  string
	STTURL     string
	STTBaseURL string
	SampleRate int

	// Text-to-speech (streaming + REST catalog/one-shot).
	TTSAPIKey    string
	TTSStreamURL string
	TTSBaseURL   string
	DefaultVoice string

	Timeout int // seconds, per engine call
}

// STTEnabled reports whether the transcription engine is configured.
func (c SpeechConfig) STTEnabled() bool { return c.STTAPIKey != "" }

// TTSEnabled reports whether the synthesis engine is configured.
func (c SpeechConfig) TTSEnabled() bool { return c.TTSAPIKey != "" }

func loadSpeechConfig() (SpeechConfig, error) {
	timeout := 30
	if override, err := parseOptionalIntEnv("SPEECH_TIMEOUT"); err != nil {
		return SpeechConfig{}, err
	} else if override != nil && *override > 0 {
		timeout = *override
	}

	sampleRate := 16000
	if override, err := parseOptionalIntEnv("STT_SAMPLE_RATE"); err != nil {
		return SpeechConfig{}, err
	} else if override != nil && *override > 0 {
		sampleRate = *override
	}

	return SpeechConfig{
		STTAPIKey:    strings.TrimSpace(os.Getenv("ASSEMBLYAI_API_KEY")),
		STTURL:       getEnvOrDefault("STT_STREAM_URL", "wss://streaming.assemblyai.com/v3/ws"),
		STTBaseURL:   getEnvOrDefault("STT_BASE_URL", "https://api.assemblyai.com"),
		SampleRate:   sampleRate,
		TTSAPIKey:    strings.TrimSpace(os.Getenv("MURF_API_KEY")),
		TTSStreamURL: getEnvOrDefault("TTS_STREAM_URL", "wss://api.murf.ai/v1/speech/stream-input"),
		TTSBaseURL:   getEnvOrDefault("TTS_BASE_URL", "https://api.murf.ai"),
		DefaultVoice: getEnvOrDefault("TTS_DEFAULT_VOICE", "en-US-natalie"),
		Timeout:      timeout,
	}, nil
}

// SkillConfig describes the callable skill engines.
type SkillConfig struct {
	TavilyAPIKey  string
	TavilyBaseURL string
	GeocodeURL    string
	WeatherURL    string
	Timeout       int // seconds, per engine call
}

func loadSkillConfig() SkillConfig {
	timeout := 20
	if raw := strings.TrimSpace(os.Getenv("SKILL_TIMEOUT")); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			timeout = parsed
		}
	}

	return SkillConfig{
		TavilyAPIKey:  strings.TrimSpace(os.Getenv("TAVILY_API_KEY")),
		TavilyBaseURL: getEnvOrDefault("TAVILY_BASE_URL", "https://api.tavily.com"),
		GeocodeURL:    getEnvOrDefault("GEOCODE_URL", "https://nominatim.openstreetmap.org/search"),
		WeatherURL:    getEnvOrDefault("WEATHER_URL", "https://api.open-meteo.com/v1/forecast"),
		Timeout:       timeout,
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseOptionalFloatEnv(key string) (*float64, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}
