package main

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/longregen/creditexplain/internal/adapters/embedding"
	"github.com/longregen/creditexplain/internal/adapters/id"
	"github.com/longregen/creditexplain/internal/ingest"
)

// ingestCmd loads regulatory documents into the vector index
func ingestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ingest <path>...",
		Short: "Ingest regulatory documents into the vector index",
		Long: `Load PDF, JSON, CSV, or HTML documents, redact PII, chunk them,
and index the chunks for retrieval. Each argument may be a file or a
directory; directories are walked for every supported file type.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			index, cleanup, err := buildIndex(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			embedder := embedding.NewClient(cfg.Embedding.URL, cfg.Embedding.APIKey, cfg.Embedding.Model, cfg.Embedding.Dimensions)
			indexer := ingest.NewIndexer(embedder, index, id.New())

			total := 0
			for _, path := range args {
				n, err := indexer.IngestPath(ctx, path)
				if err != nil {
					return fmt.Errorf("ingest %s: %w", path, err)
				}
				log.Printf("Ingested %s: %d chunks", path, n)
				total += n
			}

			stats := indexer.Redactor().Stats()
			if len(stats) > 0 {
				log.Printf("PII redactions: %v", stats)
			}

			count, err := index.Count(ctx)
			if err != nil {
				return fmt.Errorf("count indexed chunks: %w", err)
			}
			fmt.Printf("Indexed %d chunks (%d total in index)\n", total, count)
			return nil
		},
	}
}
