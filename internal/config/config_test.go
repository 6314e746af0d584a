package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Pipeline.TopK != 50 {
		t.Errorf("expected default top_k 50, got %d", cfg.Pipeline.TopK)
	}
	if cfg.Pipeline.TopN != 6 {
		t.Errorf("expected default top_n 6, got %d", cfg.Pipeline.TopN)
	}
	if cfg.Pipeline.SupportThreshold != 0.7 {
		t.Errorf("expected default support threshold 0.7, got %f", cfg.Pipeline.SupportThreshold)
	}
	if cfg.LLM.CriticModel != "llama-3.3-70b-versatile" {
		t.Errorf("unexpected default critic model: %s", cfg.LLM.CriticModel)
	}
	if len(cfg.Server.CORSOrigins) != 2 {
		t.Errorf("expected 2 default CORS origins, got %d", len(cfg.Server.CORSOrigins))
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should be valid: %v", err)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("CREDITEXPLAIN_CONFIG", filepath.Join(t.TempDir(), "missing.json"))
	t.Setenv("GROQ_API_KEY", "test-key")
	t.Setenv("GROQ_BASE_URL", "https://example.com/openai/v1")
	t.Setenv("CRITIC_MODEL", "critic-x")
	t.Setenv("GENERATOR_MODEL", "gen-x")
	t.Setenv("TOP_K", "20")
	t.Setenv("TOP_N", "4")
	t.Setenv("SUPPORT_THRESHOLD", "0.55")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.LLM.APIKey != "test-key" {
		t.Errorf("api key override not applied: %q", cfg.LLM.APIKey)
	}
	if cfg.LLM.URL != "https://example.com/openai/v1" {
		t.Errorf("base URL override not applied: %q", cfg.LLM.URL)
	}
	if cfg.LLM.CriticModel != "critic-x" || cfg.LLM.GeneratorModel != "gen-x" {
		t.Errorf("model overrides not applied: %q / %q", cfg.LLM.CriticModel, cfg.LLM.GeneratorModel)
	}
	if cfg.Pipeline.TopK != 20 || cfg.Pipeline.TopN != 4 {
		t.Errorf("pipeline overrides not applied: %d / %d", cfg.Pipeline.TopK, cfg.Pipeline.TopN)
	}
	if cfg.Pipeline.SupportThreshold != 0.55 {
		t.Errorf("support threshold override not applied: %f", cfg.Pipeline.SupportThreshold)
	}
	want := []string{"https://a.example", "https://b.example"}
	if len(cfg.Server.CORSOrigins) != len(want) {
		t.Fatalf("expected %d CORS origins, got %v", len(want), cfg.Server.CORSOrigins)
	}
	for i, origin := range want {
		if cfg.Server.CORSOrigins[i] != origin {
			t.Errorf("CORS origin %d: expected %q, got %q", i, origin, cfg.Server.CORSOrigins[i])
		}
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	data := `{"pipeline": {"top_k": 30, "top_n": 5, "support_threshold": 0.8}}`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CREDITEXPLAIN_CONFIG", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Pipeline.TopK != 30 || cfg.Pipeline.TopN != 5 {
		t.Errorf("config file values not applied: %d / %d", cfg.Pipeline.TopK, cfg.Pipeline.TopN)
	}
	if cfg.Pipeline.SupportThreshold != 0.8 {
		t.Errorf("config file threshold not applied: %f", cfg.Pipeline.SupportThreshold)
	}
	// Environment still wins over the file.
	t.Setenv("TOP_K", "40")
	cfg, err = Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Pipeline.TopK != 40 {
		t.Errorf("env should override config file, got %d", cfg.Pipeline.TopK)
	}
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{
			name:   "bad port",
			mutate: func(c *Config) { c.Server.Port = 0 },
			want:   "server port",
		},
		{
			name:   "missing LLM URL",
			mutate: func(c *Config) { c.LLM.URL = "" },
			want:   "LLM URL is required",
		},
		{
			name:   "invalid LLM URL",
			mutate: func(c *Config) { c.LLM.URL = "not-a-url" },
			want:   "valid URL",
		},
		{
			name:   "missing critic model",
			mutate: func(c *Config) { c.LLM.CriticModel = "" },
			want:   "critic model is required",
		},
		{
			name:   "top_n exceeds top_k",
			mutate: func(c *Config) { c.Pipeline.TopN = 100 },
			want:   "top_n must not exceed top_k",
		},
		{
			name:   "threshold out of range",
			mutate: func(c *Config) { c.Pipeline.SupportThreshold = 1.5 },
			want:   "support threshold",
		},
		{
			name: "no vector backend",
			mutate: func(c *Config) {
				c.Database.PostgresURL = ""
				c.Database.VectorstoreDir = ""
			},
			want: "vectorstore directory",
		},
		{
			name:   "missing audit dir",
			mutate: func(c *Config) { c.Audit.Dir = "" },
			want:   "audit directory is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error containing %q, got %q", tt.want, err.Error())
			}
		})
	}
}

func TestValidateCollectsAllErrors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Server.Port = -1
	cfg.LLM.URL = ""
	cfg.Pipeline.TopK = 0

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	msg := err.Error()
	for _, want := range []string{"server port", "LLM URL", "top_k"} {
		if !strings.Contains(msg, want) {
			t.Errorf("expected combined error to contain %q, got %q", want, msg)
		}
	}
}

func TestUsesPostgres(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.UsesPostgres() {
		t.Error("default config should not use postgres")
	}
	cfg.Database.PostgresURL = "postgres://localhost:5432/creditexplain"
	if !cfg.UsesPostgres() {
		t.Error("config with postgres URL should use postgres")
	}
}
