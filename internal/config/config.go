package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Config holds all configuration for CreditExplain
type Config struct {
	LLM       LLMConfig       `json:"llm"`
	Embedding EmbeddingConfig `json:"embedding"`
	Rerank    RerankConfig    `json:"rerank"`
	Pipeline  PipelineConfig  `json:"pipeline"`
	Database  DatabaseConfig  `json:"database"`
	Audit     AuditConfig     `json:"audit"`
	Documents DocumentsConfig `json:"documents"`
	Server    ServerConfig    `json:"server"`
}

// LLMConfig holds the Groq (OpenAI-compatible) chat API configuration.
// Critic and generator share the endpoint but may use different models.
type LLMConfig struct {
	URL            string `json:"url"`
	APIKey         string `json:"api_key"`
	CriticModel    string `json:"critic_model"`
	GeneratorModel string `json:"generator_model"`
	MaxTokens      int    `json:"max_tokens"`
}

// EmbeddingConfig holds embedding API configuration
type EmbeddingConfig struct {
	URL        string `json:"url"`
	APIKey     string `json:"api_key"`
	Model      string `json:"model"`
	Dimensions int    `json:"dimensions"`
}

// RerankConfig holds cross-encoder reranker configuration
type RerankConfig struct {
	URL    string `json:"url"`
	APIKey string `json:"api_key"`
	Model  string `json:"model"`
}

// PipelineConfig holds the orchestrator tuning knobs
type PipelineConfig struct {
	TopK             int     `json:"top_k"`
	TopN             int     `json:"top_n"`
	SupportThreshold float64 `json:"support_threshold"`
}

// DatabaseConfig selects the vector index backend: a PostgreSQL URL enables
// pgvector; otherwise the file-backed index under VectorstoreDir is used.
type DatabaseConfig struct {
	PostgresURL    string `json:"postgres_url"`
	VectorstoreDir string `json:"vectorstore_dir"`
}

// AuditConfig holds audit trail configuration
type AuditConfig struct {
	Dir string `json:"dir"`
}

// DocumentsConfig holds uploaded document storage configuration
type DocumentsConfig struct {
	UploadDir string `json:"upload_dir"`
}

// ServerConfig holds API server configuration
type ServerConfig struct {
	Host        string   `json:"host"`
	Port        int      `json:"port"`
	CORSOrigins []string `json:"cors_origins"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()
	dataDir := filepath.Join(homeDir, ".creditexplain")

	return &Config{
		LLM: LLMConfig{
			URL:            "https://api.groq.com/openai/v1",
			APIKey:         "",
			CriticModel:    "llama-3.3-70b-versatile",
			GeneratorModel: "llama-3.3-70b-versatile",
			MaxTokens:      1024,
		},
		Embedding: EmbeddingConfig{
			URL:        "http://localhost:11434/v1",
			APIKey:     "",
			Model:      "all-MiniLM-L6-v2",
			Dimensions: 384,
		},
		Rerank: RerankConfig{
			URL:    "http://localhost:8085",
			APIKey: "",
			Model:  "cross-encoder/ms-marco-MiniLM-L-6-v2",
		},
		Pipeline: PipelineConfig{
			TopK:             50,
			TopN:             6,
			SupportThreshold: 0.7,
		},
		Database: DatabaseConfig{
			PostgresURL:    "",
			VectorstoreDir: filepath.Join(dataDir, "vectorstore"),
		},
		Audit: AuditConfig{
			Dir: filepath.Join(dataDir, "audit"),
		},
		Documents: DocumentsConfig{
			UploadDir: filepath.Join(dataDir, "raw"),
		},
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
			CORSOrigins: []string{
				"http://localhost:5173",
				"http://127.0.0.1:5173",
			},
		},
	}
}

// envString loads a string environment variable into the target pointer if set
func envString(key string, target *string) {
	if v := os.Getenv(key); v != "" {
		*target = v
	}
}

// envInt loads an integer environment variable into the target pointer if set and valid
func envInt(key string, target *int) {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			*target = i
		}
	}
}

// envFloat loads a float64 environment variable into the target pointer if set and valid
func envFloat(key string, target *float64) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*target = f
		}
	}
}

// envStringSlice loads a comma-separated environment variable into a string slice
func envStringSlice(key string, target *[]string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, part := range parts {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			*target = result
		}
	}
}

// Load loads configuration from environment variables and an optional config file
func Load() (*Config, error) {
	cfg := DefaultConfig()

	configPath := getConfigPath()
	if data, err := os.ReadFile(configPath); err == nil {
		if err := json.Unmarshal(data, cfg); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to parse config file %s: %v\n", configPath, err)
		}
	}

	envString("GROQ_BASE_URL", &cfg.LLM.URL)
	envString("GROQ_API_KEY", &cfg.LLM.APIKey)
	envString("CRITIC_MODEL", &cfg.LLM.CriticModel)
	envString("GENERATOR_MODEL", &cfg.LLM.GeneratorModel)
	envInt("GENERATOR_MAX_TOKENS", &cfg.LLM.MaxTokens)

	envString("EMBEDDING_BASE_URL", &cfg.Embedding.URL)
	envString("EMBEDDING_API_KEY", &cfg.Embedding.APIKey)
	envString("EMBED_MODEL", &cfg.Embedding.Model)
	envInt("EMBED_DIMENSIONS", &cfg.Embedding.Dimensions)

	envString("RERANK_BASE_URL", &cfg.Rerank.URL)
	envString("RERANK_API_KEY", &cfg.Rerank.APIKey)
	envString("RERANK_MODEL", &cfg.Rerank.Model)

	envInt("TOP_K", &cfg.Pipeline.TopK)
	envInt("TOP_N", &cfg.Pipeline.TopN)
	envFloat("SUPPORT_THRESHOLD", &cfg.Pipeline.SupportThreshold)

	envString("DATABASE_URL", &cfg.Database.PostgresURL)
	envString("VECTORSTORE_DIR", &cfg.Database.VectorstoreDir)
	envString("AUDIT_DIR", &cfg.Audit.Dir)
	envString("UPLOAD_DIR", &cfg.Documents.UploadDir)

	envString("HOST", &cfg.Server.Host)
	envInt("PORT", &cfg.Server.Port)
	envStringSlice("CORS_ALLOWED_ORIGINS", &cfg.Server.CORSOrigins)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// UsesPostgres reports whether the pgvector backend is configured
func (c *Config) UsesPostgres() bool {
	return c.Database.PostgresURL != ""
}

// isValidURL validates that a URL has proper format
func isValidURL(urlStr string) bool {
	u, err := url.Parse(urlStr)
	return err == nil && u.Scheme != "" && u.Host != ""
}

// Validate checks that the configuration has valid values
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, "server port must be between 1 and 65535")
	}

	if c.LLM.URL == "" {
		errs = append(errs, "LLM URL is required")
	} else if !isValidURL(c.LLM.URL) {
		errs = append(errs, "LLM URL must be a valid URL")
	}
	if c.LLM.CriticModel == "" {
		errs = append(errs, "critic model is required")
	}
	if c.LLM.GeneratorModel == "" {
		errs = append(errs, "generator model is required")
	}
	if c.LLM.MaxTokens < 1 {
		errs = append(errs, "generator max_tokens must be positive")
	}

	if c.Embedding.URL != "" {
		if !isValidURL(c.Embedding.URL) {
			errs = append(errs, "embedding URL must be a valid URL")
		}
		if c.Embedding.Dimensions < 1 {
			errs = append(errs, "embedding dimensions must be positive when URL is set")
		}
	}

	if c.Rerank.URL != "" && !isValidURL(c.Rerank.URL) {
		errs = append(errs, "rerank URL must be a valid URL")
	}

	if c.Pipeline.TopK < 1 {
		errs = append(errs, "top_k must be at least 1")
	}
	if c.Pipeline.TopN < 1 {
		errs = append(errs, "top_n must be at least 1")
	}
	if c.Pipeline.TopN > c.Pipeline.TopK {
		errs = append(errs, "top_n must not exceed top_k")
	}
	if c.Pipeline.SupportThreshold < 0 || c.Pipeline.SupportThreshold > 1 {
		errs = append(errs, "support threshold must be between 0 and 1")
	}

	if c.Database.PostgresURL != "" && !isValidURL(c.Database.PostgresURL) {
		errs = append(errs, "PostgreSQL URL must be a valid URL")
	}
	if c.Database.PostgresURL == "" && c.Database.VectorstoreDir == "" {
		errs = append(errs, "either a PostgreSQL URL or a vectorstore directory is required")
	}

	if c.Audit.Dir == "" {
		errs = append(errs, "audit directory is required")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

// getConfigPath returns the path to the config file
func getConfigPath() string {
	if path := os.Getenv("CREDITEXPLAIN_CONFIG"); path != "" {
		return path
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "config.json"
	}
	return filepath.Join(homeDir, ".config", "creditexplain", "config.json")
}
