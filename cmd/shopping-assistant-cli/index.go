package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/spherical-ai/spherical/libs/shopping-assistant/internal/catalog"
	"github.com/spherical-ai/spherical/libs/shopping-assistant/internal/embedding"
)

func newIndexCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "index",
		Short: "Verify the catalog and embedding service batch by batch",
		RunE: func(cmd *cobra.Command, args []string) error {
			embedder, err := embedding.NewClient(embedding.Config{
				APIKey:    cfg.Embedding.APIKey,
				Model:     cfg.Embedding.Model,
				BaseURL:   cfg.Embedding.BaseURL,
				Dimension: cfg.Embedding.Dimension,
				Timeout:   cfg.Embedding.Timeout,
			})
			if err != nil {
				return fmt.Errorf("create embedding client: %w", err)
			}

			products, err := catalog.LoadProducts(cfg.Catalog.Path)
			if err != nil {
				return fmt.Errorf("load catalog: %w", err)
			}

			batchSize := cfg.Embedding.BatchSize
			bar := NewProgressBar(int64(len(products)), "Embedding catalog")

			dimension := 0
			for start := 0; start < len(products); start += batchSize {
				end := start + batchSize
				if end > len(products) {
					end = len(products)
				}

				texts := make([]string, 0, end-start)
				for _, p := range products[start:end] {
					texts = append(texts, p.EmbeddingText())
				}

				vectors, err := embedder.Embed(cmd.Context(), texts)
				if err != nil {
					return fmt.Errorf("embed batch %d-%d: %w", start, end, err)
				}

				for i, v := range vectors {
					if len(v) == 0 {
						return fmt.Errorf("empty embedding for product %d", products[start+i].ID)
					}
					dimension = len(v)
				}

				_ = bar.Set64(int64(end))
			}
			_ = bar.Finish()

			ui.Success("Embedded %d products (dimension %d, model %s)", len(products), dimension, embedder.Model())
			return nil
		},
	}
}
