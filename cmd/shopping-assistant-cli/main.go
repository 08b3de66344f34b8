// Package main provides the shopping assistant CLI entrypoint.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/spherical-ai/spherical/libs/shopping-assistant/internal/assistant"
	"github.com/spherical-ai/spherical/libs/shopping-assistant/internal/catalog"
	"github.com/spherical-ai/spherical/libs/shopping-assistant/internal/config"
	"github.com/spherical-ai/spherical/libs/shopping-assistant/internal/embedding"
	"github.com/spherical-ai/spherical/libs/shopping-assistant/internal/llm"
	"github.com/spherical-ai/spherical/libs/shopping-assistant/internal/observability"
)

var (
	cfgFile string
	noColor bool
	verbose bool

	cfg    *config.Config
	logger *observability.Logger
	ui     *UI
)

var rootCmd = &cobra.Command{
	Use:   "shopping-assistant-cli",
	Short: "Shopping assistant CLI for chat, catalog search, and index checks",
	Long: `Shopping assistant CLI provides commands for working with the
catalog-grounded shopping assistant.

Use this tool to:
- Chat with the assistant from the terminal
- Find products similar to a catalog product
- Verify the catalog and embedding service before deployment`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load()

		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		level := cfg.Observability.LogLevel
		if !verbose {
			level = "error"
		}

		logger = observability.NewLogger(observability.LogConfig{
			Level:       level,
			Format:      "console",
			ServiceName: "shopping-assistant-cli",
		})

		ui = NewUI(noColor)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (default: uses env vars)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")

	rootCmd.AddCommand(newChatCmd())
	rootCmd.AddCommand(newSimilarCmd())
	rootCmd.AddCommand(newIndexCmd())
	rootCmd.AddCommand(newVersionCmd())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// buildIndex loads the catalog and embeds it, with a spinner for feedback.
func buildIndex(ctx context.Context) (*catalog.Index, error) {
	embedder, err := embedding.NewClient(embedding.Config{
		APIKey:    cfg.Embedding.APIKey,
		Model:     cfg.Embedding.Model,
		BaseURL:   cfg.Embedding.BaseURL,
		Dimension: cfg.Embedding.Dimension,
		Timeout:   cfg.Embedding.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("create embedding client: %w", err)
	}

	products, err := catalog.LoadProducts(cfg.Catalog.Path)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}

	sp := NewSpinner(fmt.Sprintf("Embedding %d products...", len(products)))
	index, err := catalog.BuildIndex(ctx, products, embedder, catalog.IndexConfig{
		BatchSize: cfg.Embedding.BatchSize,
		Logger:    logger,
	})
	sp.Stop()
	if err != nil {
		return nil, fmt.Errorf("build catalog index: %w", err)
	}

	return index, nil
}

// buildCoordinator wires the full conversational pipeline.
func buildCoordinator(ctx context.Context) (*assistant.Coordinator, error) {
	index, err := buildIndex(ctx)
	if err != nil {
		return nil, err
	}

	completer, err := llm.NewClient(llm.Config{
		APIKey:  cfg.LLM.APIKey,
		Model:   cfg.LLM.Model,
		BaseURL: cfg.LLM.BaseURL,
		Timeout: cfg.LLM.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("create llm client: %w", err)
	}

	return assistant.NewCoordinator(
		assistant.NewClassifier(completer, logger),
		assistant.NewRetriever(index, logger),
		assistant.NewGrounder(completer, logger),
		logger,
	), nil
}
