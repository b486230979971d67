package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Load reads the .env file specified by NOEMA_ENV (or .env by default),
// then loads the corresponding .secret file if it exists.
// All config is flat env vars read via os.Getenv after loading.
func Load() error {
	envFile := os.Getenv("NOEMA_ENV")
	if envFile == "" {
		envFile = ".env"
	}

	// Load main env file (ignore error if file doesn't exist)
	_ = godotenv.Load(envFile)

	// Load secret sidecar if it exists
	_ = godotenv.Load(envFile + ".secret")

	return nil
}

func ServerPort() int {
	port, err := strconv.Atoi(os.Getenv("SERVER_PORT"))
	if err != nil {
		return 8080
	}
	return port
}

func ServerAddr() string {
	return fmt.Sprintf(":%d", ServerPort())
}

func DatabaseURL() string {
	return os.Getenv("DATABASE_URL")
}

func OpenAIAPIKey() string {
	return os.Getenv("OPENAI_API_KEY")
}

func AnthropicAPIKey() string {
	return os.Getenv("ANTHROPIC_API_KEY")
}

// ExtractionProvider returns the configured knowledge-extraction provider.
// Defaults to "openai" if not set.
// Valid values: openai, anthropic, mock
func ExtractionProvider() string {
	p := os.Getenv("EXTRACTION_PROVIDER")
	if p == "" {
		return "openai"
	}
	return p
}

// ExtractionAPIKey returns the API key for the configured extraction provider.
func ExtractionAPIKey() string {
	switch ExtractionProvider() {
	case "anthropic":
		return AnthropicAPIKey()
	case "mock":
		return ""
	default:
		return OpenAIAPIKey()
	}
}

// APIKey returns the static bearer key protecting the /v1 routes.
// When empty, authentication is disabled.
func APIKey() string {
	return os.Getenv("API_KEY")
}

// PipelineConcurrency returns the number of pipeline workers.
// Zero means the pipeline default.
func PipelineConcurrency() int {
	n, err := strconv.Atoi(os.Getenv("PIPELINE_CONCURRENCY"))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// MaxActiveChains caps the number of simultaneously active thought chains.
// Zero means the service default.
func MaxActiveChains() int {
	n, err := strconv.Atoi(os.Getenv("MAX_ACTIVE_CHAINS"))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// ChainDormancy returns how long a chain may sit unextended before it is
// swept dormant. Zero means the service default.
func ChainDormancy() time.Duration {
	return minutesEnv("CHAIN_DORMANCY_MINUTES")
}

// SessionIdle returns how long a session may sit idle before new input
// rolls over to a fresh session. Zero means the service default.
func SessionIdle() time.Duration {
	return minutesEnv("SESSION_IDLE_MINUTES")
}

func minutesEnv(key string) time.Duration {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil || n <= 0 {
		return 0
	}
	return time.Duration(n) * time.Minute
}

// UseCapabilityCheck enables the extraction-client fallback when comparing
// claims for contradiction.
func UseCapabilityCheck() bool {
	return os.Getenv("USE_CAPABILITY_CHECK") == "true"
}

// RateLimitRPS returns requests per second limit.
// Defaults to 100 if not set.
func RateLimitRPS() float64 {
	rps, err := strconv.ParseFloat(os.Getenv("RATE_LIMIT_RPS"), 64)
	if err != nil || rps <= 0 {
		return 100
	}
	return rps
}

// RateLimitBurst returns the burst size for rate limiting.
// Defaults to 20 if not set.
func RateLimitBurst() int {
	burst, err := strconv.Atoi(os.Getenv("RATE_LIMIT_BURST"))
	if err != nil || burst <= 0 {
		return 20
	}
	return burst
}

// LogLevel returns the log level (debug, info, warn, error).
// Defaults to "info" if not set.
func LogLevel() string {
	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		return "info"
	}
	return level
}
