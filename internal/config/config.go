package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Load reads the .env file specified by RELAY_ENV (or .env by default),
// then loads the corresponding .secret file if it exists.
// All config is flat env vars read via os.Getenv after loading.
func Load() error {
	envFile := os.Getenv("RELAY_ENV")
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

func GroqAPIKey() string {
	return os.Getenv("GROQ_API_KEY")
}

func SerperAPIKey() string {
	return os.Getenv("SERPER_API_KEY")
}

func NotionToken() string {
	return os.Getenv("NOTION_TOKEN")
}

func NotionPageID() string {
	return os.Getenv("NOTION_PAGE_ID")
}

func OCRAPIURL() string {
	return os.Getenv("OCR_API_URL")
}

// LLMProvider returns the configured chat completion provider.
// Valid values: openai, groq, mock. Defaults to "openai".
func LLMProvider() string {
	p := os.Getenv("LLM_PROVIDER")
	if p == "" {
		return "openai"
	}
	return p
}

// LLMAPIKey returns the API key for the configured LLM provider.
func LLMAPIKey() string {
	switch LLMProvider() {
	case "groq":
		return GroqAPIKey()
	case "mock":
		return ""
	default:
		return OpenAIAPIKey()
	}
}

// EmbeddingProvider returns the configured embedding provider.
// Valid values: openai, mock. Defaults to "openai".
func EmbeddingProvider() string {
	p := os.Getenv("EMBEDDING_PROVIDER")
	if p == "" {
		return "openai"
	}
	return p
}

// EmbeddingAPIKey returns the API key for the configured embedding provider.
func EmbeddingAPIKey() string {
	switch EmbeddingProvider() {
	case "mock":
		return ""
	default:
		return OpenAIAPIKey()
	}
}

// VectorStoreBackend selects the vector store implementation.
// Valid values: chromem (embedded, default), pgvector.
func VectorStoreBackend() string {
	b := os.Getenv("VECTOR_STORE")
	if b == "" {
		return "chromem"
	}
	return b
}

// EmbeddingDimension is the vector size agreed between the embedding
// provider and the store schema. A mismatch is a fatal startup error.
func EmbeddingDimension() int {
	dim, err := strconv.Atoi(os.Getenv("EMBEDDING_DIMENSION"))
	if err != nil || dim <= 0 {
		return 1536
	}
	return dim
}

// ShortTermMaxSize is the short-term memory window, in messages.
func ShortTermMaxSize() int {
	n, err := strconv.Atoi(os.Getenv("SHORT_TERM_MAX_SIZE"))
	if err != nil || n <= 0 {
		return 50
	}
	return n
}

// SimilarityThreshold is the default (narrow) retrieval cutoff.
func SimilarityThreshold() float64 {
	t, err := strconv.ParseFloat(os.Getenv("SIMILARITY_THRESHOLD"), 64)
	if err != nil {
		return 0.7
	}
	return t
}

// BroadSimilarityThreshold is the looser cutoff the dispatcher uses for
// pre-handler recall, where wide context beats precision.
func BroadSimilarityThreshold() float64 {
	t, err := strconv.ParseFloat(os.Getenv("BROAD_SIMILARITY_THRESHOLD"), 64)
	if err != nil {
		return 0.3
	}
	return t
}

// MaxSearchResults caps long-term retrieval result counts.
func MaxSearchResults() int {
	n, err := strconv.Atoi(os.Getenv("MAX_SEARCH_RESULTS"))
	if err != nil || n <= 0 {
		return 10
	}
	return n
}

// SessionIdleTimeoutMinutes controls when idle sessions are swept.
func SessionIdleTimeoutMinutes() int {
	n, err := strconv.Atoi(os.Getenv("SESSION_IDLE_TIMEOUT_MINUTES"))
	if err != nil || n <= 0 {
		return 60
	}
	return n
}

// RateLimitRPS returns requests per second limit. Defaults to 100.
func RateLimitRPS() float64 {
	rps, err := strconv.ParseFloat(os.Getenv("RATE_LIMIT_RPS"), 64)
	if err != nil || rps <= 0 {
		return 100
	}
	return rps
}

// RateLimitBurst returns the burst size for rate limiting. Defaults to 20.
func RateLimitBurst() int {
	burst, err := strconv.Atoi(os.Getenv("RATE_LIMIT_BURST"))
	if err != nil || burst <= 0 {
		return 20
	}
	return burst
}

// LogLevel returns the log level (debug, info, warn, error). Defaults to "info".
func LogLevel() string {
	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		return "info"
	}
	return level
}
