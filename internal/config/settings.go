package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Settings is the runtime tunable configuration. It is handed to the pipeline by value, one snapshot per
// request, and changed only through settings.Store.
type Settings struct {
	Retrieval  RetrievalSettings  `json:"retrieval" yaml:"retrieval"`
	Cache      CacheSettings      `json:"cache" yaml:"cache"`
	Generation GenerationSettings `json:"generation" yaml:"generation"`
	Ingestion  IngestionSettings  `json:"ingestion" yaml:"ingestion"`
}

type RetrievalSettings struct {
	TopK           int     `json:"top_k" yaml:"top_k"`
	ScoreThreshold float64 `json:"score_threshold" yaml:"score_threshold"`
}

type CacheSettings struct {
	Enabled             bool    `json:"enabled" yaml:"enabled"`
	SimilarityThreshold float64 `json:"similarity_threshold" yaml:"similarity_threshold"`
	TTLSeconds          int     `json:"ttl_seconds" yaml:"ttl_seconds"`
}

type GenerationSettings struct {
	Model                string  `json:"model" yaml:"model"`
	Temperature          float64 `json:"temperature" yaml:"temperature"`
	MaxTokens            int     `json:"max_tokens" yaml:"max_tokens"`
	SystemPromptTemplate string  `json:"system_prompt_template" yaml:"system_prompt_template"`
	NoDocsPromptTemplate string  `json:"no_docs_prompt_template" yaml:"no_docs_prompt_template"`
}

type IngestionSettings struct {
	ChunkSize    int `json:"chunk_size" yaml:"chunk_size"`
	ChunkOverlap int `json:"chunk_overlap" yaml:"chunk_overlap"`
}

func DefaultSettings() Settings {
	return Settings{
		Retrieval: RetrievalSettings{
			TopK:           DefaultTopK,
			ScoreThreshold: DefaultScoreThreshold,
		},
		Cache: CacheSettings{
			Enabled:             DefaultCacheEnabled,
			SimilarityThreshold: DefaultCacheSimilarityThreshold,
			TTLSeconds:          DefaultCacheTTLSeconds,
		},
		Generation: GenerationSettings{
			Model:                DefaultGenerationModel,
			Temperature:          DefaultTemperature,
			MaxTokens:            DefaultMaxTokens,
			SystemPromptTemplate: DefaultSystemPrompt,
			NoDocsPromptTemplate: DefaultNoDocsPrompt,
		},
		Ingestion: IngestionSettings{
			ChunkSize:    DefaultChunkSize,
			ChunkOverlap: DefaultChunkOverlap,
		},
	}
}

func (s Settings) Validate() error {
	var errs []error
	if s.Retrieval.TopK < 1 {
		errs = append(errs, errors.New("retrieval.top_k must be >= 1"))
	}
	if s.Retrieval.ScoreThreshold < 0 || s.Retrieval.ScoreThreshold > 1 {
		errs = append(errs, errors.New("retrieval.score_threshold must be within [0,1]"))
	}
	if s.Cache.SimilarityThreshold < 0 || s.Cache.SimilarityThreshold > 1 {
		errs = append(errs, errors.New("cache.similarity_threshold must be within [0,1]"))
	}
	if s.Cache.TTLSeconds < 0 {
		errs = append(errs, errors.New("cache.ttl_seconds must not be negative"))
	}
	if strings.TrimSpace(s.Generation.Model) == "" {
		errs = append(errs, errors.New("generation.model is required"))
	}
	if s.Generation.Temperature < 0 || s.Generation.Temperature > 2 {
		errs = append(errs, errors.New("generation.temperature must be within [0,2]"))
	}
	if s.Generation.MaxTokens < 1 {
		errs = append(errs, errors.New("generation.max_tokens must be >= 1"))
	}
	if strings.TrimSpace(s.Generation.SystemPromptTemplate) == "" {
		errs = append(errs, errors.New("generation.system_prompt_template is required"))
	}
	if strings.TrimSpace(s.Generation.NoDocsPromptTemplate) == "" {
		errs = append(errs, errors.New("generation.no_docs_prompt_template is required"))
	}
	if s.Ingestion.ChunkSize < 1 {
		errs = append(errs, errors.New("ingestion.chunk_size must be >= 1"))
	}
	if s.Ingestion.ChunkOverlap < 0 || s.Ingestion.ChunkOverlap >= s.Ingestion.ChunkSize {
		errs = append(errs, errors.New("ingestion.chunk_overlap must be within [0, chunk_size)"))
	}
	return errors.Join(errs...)
}

// LoadSettingsFile overlays a YAML file on the defaults. A missing file is not an error.
func LoadSettingsFile(path string) (Settings, error) {
	settings := DefaultSettings()
	if path == "" {
		return settings, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return settings, nil
		}
		return settings, err
	}
	if err := yaml.Unmarshal(data, &settings); err != nil {
		return DefaultSettings(), fmt.Errorf("parse settings file %s: %w", path, err)
	}
	if err := settings.Validate(); err != nil {
		return DefaultSettings(), fmt.Errorf("invalid settings file %s: %w", path, err)
	}
	return settings, nil
}
