package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type VectorBackend string

const (
	BackendQdrant   VectorBackend = "qdrant"
	BackendPgvector VectorBackend = "pgvector"
	BackendMemory   VectorBackend = "memory"
)

type ProviderName string

const (
	ProviderGemini ProviderName = "gemini"
	ProviderOpenAI ProviderName = "openai"
	ProviderOllama ProviderName = "ollama"
)

// Env is everything read from the process environment at start up. Runtime tunables live in Settings.
type Env struct {
	IsProd     bool
	LogLevel   string
	ListenAddr string
	AuthToken  string

	RedisAddr     string
	RedisPassword string

	VectorBackend      VectorBackend
	QdrantHost         string
	QdrantPort         int
	QdrantAPIKey       string
	PostgresDSN        string
	MemoryIndexPath    string
	EmbeddingDimension int

	EmbeddingProvider  ProviderName
	EmbeddingModel     string
	GenerationProvider ProviderName
	GoogleAPIKey       string
	OpenAIAPIKey       string
	OpenAIBaseURL      string
	OllamaServerURL    string

	SettingsFile string
}

// LoadEnv reads an optional .env file and then the real environment, which always wins.
func LoadEnv(files ...string) (Env, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Env{}, err
		}
	}

	env := Env{
		IsProd:             strings.EqualFold(os.Getenv("APP_ENV"), "prod"),
		LogLevel:           os.Getenv("LOG_LEVEL"),
		ListenAddr:         getString("LISTEN_ADDR", ServerListenAddr),
		AuthToken:          os.Getenv("AUTH_TOKEN"),
		RedisAddr:          getString("REDIS_ADDR", RedisAddr),
		RedisPassword:      os.Getenv("REDIS_PASSWORD"),
		VectorBackend:      VectorBackend(strings.ToLower(getString("VECTOR_BACKEND", string(BackendQdrant)))),
		QdrantHost:         getString("QDRANT_HOST", QdrantHost),
		QdrantPort:         getInt("QDRANT_PORT", QdrantGrpcPort),
		QdrantAPIKey:       os.Getenv("QDRANT_API_KEY"),
		PostgresDSN:        os.Getenv("POSTGRES_DSN"),
		MemoryIndexPath:    os.Getenv("MEMORY_INDEX_PATH"),
		EmbeddingDimension: getInt("EMBEDDING_DIMENSION", int(EmbeddingOutputDimensionality)),
		EmbeddingProvider:  ProviderName(strings.ToLower(getString("EMBEDDING_PROVIDER", string(ProviderGemini)))),
		EmbeddingModel:     os.Getenv("EMBEDDING_MODEL"),
		GenerationProvider: ProviderName(strings.ToLower(getString("GENERATION_PROVIDER", string(ProviderGemini)))),
		GoogleAPIKey:       os.Getenv("GOOGLE_API_KEY"),
		OpenAIAPIKey:       os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:      os.Getenv("OPENAI_BASE_URL"),
		OllamaServerURL:    getString("OLLAMA_SERVER_URL", OllamaServerURL),
		SettingsFile:       getString("SETTINGS_FILE", "settings.yaml"),
	}
	return env, env.validate()
}

func (e Env) validate() error {
	switch e.VectorBackend {
	case BackendQdrant, BackendMemory:
	case BackendPgvector:
		if e.PostgresDSN == "" {
			return errors.New("POSTGRES_DSN is required for the pgvector backend")
		}
	default:
		return errors.New("unknown VECTOR_BACKEND: " + string(e.VectorBackend))
	}
	if e.EmbeddingDimension <= 0 {
		return errors.New("EMBEDDING_DIMENSION must be positive")
	}
	for _, p := range []ProviderName{e.EmbeddingProvider, e.GenerationProvider} {
		switch p {
		case ProviderGemini, ProviderOpenAI, ProviderOllama:
		default:
			return errors.New("unknown provider: " + string(p))
		}
	}
	return nil
}

// EmbeddingModelName falls back to the provider default when EMBEDDING_MODEL is unset.
func (e Env) EmbeddingModelName() string {
	if e.EmbeddingModel != "" {
		return e.EmbeddingModel
	}
	switch e.EmbeddingProvider {
	case ProviderOpenAI:
		return OpenAIEmbeddingModel
	case ProviderOllama:
		return OllamaEmbeddingModel
	default:
		return GoogleEmbeddingModel
	}
}

func getString(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key)))
	if err != nil {
		return fallback
	}
	return v
}
