package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/longregen/creditexplain/internal/config"
)

var cfg *config.Config

func main() {
	rootCmd := &cobra.Command{
		Use:   "creditexplain",
		Short: "CreditExplain - self-reflective RAG for financial compliance",
		Long: `CreditExplain answers financial-compliance questions with cited,
audited explanations grounded in an indexed regulatory corpus.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			return nil
		},
	}

	rootCmd.AddCommand(
		serveCmd(),
		ingestCmd(),
		configCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// configCmd shows current configuration
func configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println("Current configuration:")
			fmt.Println()

			fmt.Println("LLM:")
			fmt.Printf("  URL:             %s\n", cfg.LLM.URL)
			fmt.Printf("  Critic Model:    %s\n", cfg.LLM.CriticModel)
			fmt.Printf("  Generator Model: %s\n", cfg.LLM.GeneratorModel)
			fmt.Printf("  Max Tokens:      %d\n", cfg.LLM.MaxTokens)
			fmt.Printf("  API Key:         %s\n", maskSecret(cfg.LLM.APIKey))
			fmt.Println()

			fmt.Println("Embedding:")
			fmt.Printf("  URL:        %s\n", cfg.Embedding.URL)
			fmt.Printf("  Model:      %s\n", cfg.Embedding.Model)
			fmt.Printf("  Dimensions: %d\n", cfg.Embedding.Dimensions)
			fmt.Println()

			fmt.Println("Rerank:")
			fmt.Printf("  URL:   %s\n", cfg.Rerank.URL)
			fmt.Printf("  Model: %s\n", cfg.Rerank.Model)
			fmt.Println()

			fmt.Println("Pipeline:")
			fmt.Printf("  Top K:             %d\n", cfg.Pipeline.TopK)
			fmt.Printf("  Top N:             %d\n", cfg.Pipeline.TopN)
			fmt.Printf("  Support Threshold: %.2f\n", cfg.Pipeline.SupportThreshold)
			fmt.Println()

			fmt.Println("Storage:")
			fmt.Printf("  PostgreSQL:      %s\n", maskSecret(cfg.Database.PostgresURL))
			fmt.Printf("  Vectorstore Dir: %s\n", cfg.Database.VectorstoreDir)
			fmt.Printf("  Audit Dir:       %s\n", cfg.Audit.Dir)
			fmt.Printf("  Upload Dir:      %s\n", cfg.Documents.UploadDir)
			fmt.Println()

			fmt.Println("Server:")
			fmt.Printf("  Host: %s\n", cfg.Server.Host)
			fmt.Printf("  Port: %d\n", cfg.Server.Port)

			return nil
		},
	}
}

func maskSecret(s string) string {
	if s == "" {
		return "(not set)"
	}
	if len(s) <= 8 {
		return "****"
	}
	return s[:4] + "****" + s[len(s)-4:]
}
