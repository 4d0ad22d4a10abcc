package profile

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Profile is the configuration to start the main server.
type Profile struct {
	// Mode can be "prod" or "dev" or "demo"
	Mode string
	// Addr is the binding address for server
	Addr string
	// Port is the binding port for server
	Port int
	// Data is the data directory
	Data string
	// DSN points to where eduloop stores its own data
	DSN string
	// Driver is the database driver (sqlite or postgres)
	Driver string
	// Version is the current version of server
	Version string

	// AI Configuration
	AIAPIKey       string  // EDULOOP_AI_API_KEY
	AIBaseURL      string  // EDULOOP_AI_BASE_URL (default: https://api.minimax.io/v1)
	AITextModel    string  // EDULOOP_AI_TEXT_MODEL (default: MiniMax-Text-01)
	AISpeechModel  string  // EDULOOP_AI_SPEECH_MODEL (default: speech-2.8-hd)
	AIVideoModel   string  // EDULOOP_AI_VIDEO_MODEL (default: MiniMax-Hailuo-2.3)
	AIMaxTokens    int     // EDULOOP_AI_MAX_TOKENS (default: 4096)
	AITemperature  float32 // EDULOOP_AI_TEMPERATURE (default: 0.7)
	AIEmbeddingDim int     // EDULOOP_AI_EMBEDDING_DIM (default: 1024, postgres driver only)

	// Learning loop configuration
	MasteryThreshold float64 // EDULOOP_MASTERY_THRESHOLD (default: 0.85)
	RetrievalTopN    int     // EDULOOP_RETRIEVAL_TOP_N (default: 5)
	SessionRetention int     // EDULOOP_SESSION_RETENTION_DAYS (default: 30)
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// IsAIEnabled returns true if an API key is configured.
func (p *Profile) IsAIEnabled() bool {
	return p.AIAPIKey != ""
}

// getEnvOrDefault returns the environment variable value or the default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

// FromEnv loads configuration from EDULOOP_* environment variables.
// Values already set on the profile win over defaults but lose to env.
func (p *Profile) FromEnv() {
	p.Mode = getEnvOrDefault("EDULOOP_MODE", p.Mode)
	p.Addr = getEnvOrDefault("EDULOOP_ADDR", p.Addr)
	p.Port = getEnvInt("EDULOOP_PORT", p.Port)
	p.Data = getEnvOrDefault("EDULOOP_DATA", p.Data)
	p.DSN = getEnvOrDefault("EDULOOP_DSN", p.DSN)
	p.Driver = getEnvOrDefault("EDULOOP_DRIVER", p.Driver)

	p.AIAPIKey = getEnvOrDefault("EDULOOP_AI_API_KEY", p.AIAPIKey)
	p.AIBaseURL = getEnvOrDefault("EDULOOP_AI_BASE_URL", "https://api.minimax.io/v1")
	p.AITextModel = getEnvOrDefault("EDULOOP_AI_TEXT_MODEL", "MiniMax-Text-01")
	p.AISpeechModel = getEnvOrDefault("EDULOOP_AI_SPEECH_MODEL", "speech-2.8-hd")
	p.AIVideoModel = getEnvOrDefault("EDULOOP_AI_VIDEO_MODEL", "MiniMax-Hailuo-2.3")
	p.AIMaxTokens = getEnvInt("EDULOOP_AI_MAX_TOKENS", 4096)
	if t := getEnvFloat("EDULOOP_AI_TEMPERATURE", 0.7); t >= 0 && t <= 2 {
		p.AITemperature = float32(t)
	}
	p.AIEmbeddingDim = getEnvInt("EDULOOP_AI_EMBEDDING_DIM", 1024)

	p.MasteryThreshold = getEnvFloat("EDULOOP_MASTERY_THRESHOLD", 0.85)
	p.RetrievalTopN = getEnvInt("EDULOOP_RETRIEVAL_TOP_N", 5)
	p.SessionRetention = getEnvInt("EDULOOP_SESSION_RETENTION_DAYS", 30)
}

// Validate validates the profile and fills in derived defaults.
func (p *Profile) Validate() error {
	if p.Mode != "demo" && p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "demo"
	}

	if p.Mode == "prod" && p.Data == "" {
		p.Data = "/var/opt/eduloop"
	}

	if p.Driver == "" {
		p.Driver = "sqlite"
	}
	if p.Driver != "sqlite" && p.Driver != "postgres" {
		return errors.Errorf("unsupported database driver: %s", p.Driver)
	}

	if p.Driver == "sqlite" && p.DSN == "" {
		if p.Data == "" {
			p.Data = "."
		}
		dataDir, err := filepath.Abs(p.Data)
		if err != nil {
			return errors.Wrap(err, "failed to resolve data directory")
		}
		if _, err := os.Stat(dataDir); err != nil {
			if err := os.MkdirAll(dataDir, 0o755); err != nil {
				return errors.Wrapf(err, "failed to create data directory %q", dataDir)
			}
		}
		p.Data = dataDir
		p.DSN = filepath.Join(dataDir, fmt.Sprintf("eduloop_%s.db", p.Mode))
	}

	if p.Driver == "postgres" && p.DSN == "" {
		return errors.New("DSN is required for postgres driver")
	}

	if p.MasteryThreshold <= 0 || p.MasteryThreshold > 1 {
		p.MasteryThreshold = 0.85
	}
	if p.RetrievalTopN <= 0 {
		p.RetrievalTopN = 5
	}

	return nil
}

// ListenAddr returns the address the server binds to.
func (p *Profile) ListenAddr() string {
	addr := p.Addr
	if strings.TrimSpace(addr) == "" {
		addr = "0.0.0.0"
	}
	return fmt.Sprintf("%s:%d", addr, p.Port)
}
