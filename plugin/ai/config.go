package ai

import (
	"errors"

	"github.com/eduloop/eduloop/internal/profile"
)

// Config represents AI configuration.
type Config struct {
	Enabled bool

	LLM    LLMConfig
	Speech SpeechConfig
	Video  VideoConfig
}

// LLMConfig represents text-generation configuration.
type LLMConfig struct {
	APIKey      string
	BaseURL     string // OpenAI-compatible endpoint, e.g. https://api.minimax.io/v1
	Model       string
	MaxTokens   int     // default: 4096
	Temperature float32 // default: 0.7
}

// SpeechConfig represents text-to-speech configuration.
type SpeechConfig struct {
	APIKey  string
	BaseURL string
	Model   string // speech-2.8-hd
}

// VideoConfig represents video generation configuration.
type VideoConfig struct {
	APIKey  string
	BaseURL string
	Model   string // MiniMax-Hailuo-2.3
}

// NewConfigFromProfile creates AI config from profile.
func NewConfigFromProfile(p *profile.Profile) *Config {
	cfg := &Config{
		Enabled: p.IsAIEnabled(),
	}
	if !cfg.Enabled {
		return cfg
	}

	cfg.LLM = LLMConfig{
		APIKey:      p.AIAPIKey,
		BaseURL:     p.AIBaseURL,
		Model:       p.AITextModel,
		MaxTokens:   p.AIMaxTokens,
		Temperature: p.AITemperature,
	}
	if cfg.LLM.MaxTokens <= 0 {
		cfg.LLM.MaxTokens = 4096
	}

	cfg.Speech = SpeechConfig{
		APIKey:  p.AIAPIKey,
		BaseURL: p.AIBaseURL,
		Model:   p.AISpeechModel,
	}

	cfg.Video = VideoConfig{
		APIKey:  p.AIAPIKey,
		BaseURL: p.AIBaseURL,
		Model:   p.AIVideoModel,
	}

	return cfg
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.LLM.APIKey == "" {
		return errors.New("LLM API key is required")
	}
	if c.LLM.Model == "" {
		return errors.New("LLM model is required")
	}
	return nil
}
