// Package cmd provides the CLI commands for docdex.
package cmd

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/docdex/docdex/internal/config"
	"github.com/docdex/docdex/internal/embed"
	"github.com/docdex/docdex/internal/logging"
	"github.com/docdex/docdex/internal/search"
	"github.com/docdex/docdex/internal/store"
	"github.com/docdex/docdex/pkg/version"
)

// Persistent flags shared across subcommands.
var (
	configPath string
	formatFlag string
	offline    bool
)

// Execute runs the root command with signal-aware cancellation.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return NewRootCmd().ExecuteContext(ctx)
}

// NewRootCmd creates the root command for the docdex CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "docdex",
		Short: "Lexical, semantic, and concept-algebra search over your documents",
		Long: `Docdex indexes a folder of documents (txt, md, pdf, docx) into a
local SQLite corpus and answers queries in five modes:

  keyword   BM25 full-text matching
  semantic  embedding cosine similarity
  hybrid    keyword candidates re-ranked by a lexical/semantic blend
  concept   weighted mixes of stored concept vectors
  debias    a concept with another concept's direction removed

Embeddings come from an OpenAI-compatible API (OPENAI_API_KEY), or from
a deterministic local embedder with --offline.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	cmd.SetVersionTemplate("docdex version {{.Version}}\n")

	cmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default docdex.yaml in the working directory)")
	cmd.PersistentFlags().StringVar(&formatFlag, "format", "auto", "Output format: text, json, auto")
	cmd.PersistentFlags().BoolVar(&offline, "offline", false, "Use deterministic local embeddings (no API calls)")

	cmd.AddCommand(newIndexCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newConceptCmd())
	cmd.AddCommand(newListCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newCleanCmd())
	cmd.AddCommand(newWatchCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// loadEnv loads the configuration and installs the default logger.
// The returned cleanup closes the log file.
func loadEnv() (config.Config, func(), error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return config.Config{}, nil, err
	}

	logger, cleanup, err := logging.Setup(logging.Config{
		Level:    cfg.Logging.Level,
		FilePath: cfg.LogFilePath(),
	})
	if err != nil {
		return config.Config{}, nil, err
	}
	slog.SetDefault(logger)

	return cfg, cleanup, nil
}

// openStore opens the corpus database.
func openStore(cfg config.Config) (*store.Store, error) {
	return store.New(cfg.DatabasePath)
}

// newEmbedder builds the configured embedding provider, or the static
// embedder when --offline is set.
func newEmbedder(cfg config.Config) (embed.Embedder, error) {
	if offline {
		return embed.NewStaticEmbedder(), nil
	}
	return embed.NewOpenAIEmbedder(embed.OpenAIConfig{
		APIKey:            cfg.Embedding.APIKey,
		BaseURL:           cfg.Embedding.BaseURL,
		Model:             cfg.Embedding.Model,
		Dimensions:        cfg.Embedding.Dimensions,
		BatchSize:         cfg.Embedding.BatchSize,
		RequestsPerSecond: cfg.Embedding.RequestsPerSecond,
	})
}

// newEngine builds a search engine with the configured hybrid weights.
func newEngine(cfg config.Config, s *store.Store, e embed.Embedder) *search.Engine {
	return search.NewEngineWithWeights(s, e, search.Weights{
		Lexical:     cfg.Search.LexicalWeight,
		Semantic:    cfg.Search.SemanticWeight,
		BM25Divisor: cfg.Search.BM25Divisor,
	})
}

// resolveFormat picks the output format: the explicit flag value, or
// TTY detection when set to auto (text on a terminal, JSON otherwise).
func resolveFormat(w io.Writer) string {
	switch formatFlag {
	case "text", "json":
		return formatFlag
	}
	if f, ok := w.(*os.File); ok {
		if isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()) {
			return "text"
		}
	}
	return "json"
}

// printJSON writes v as indented JSON.
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func closeQuietly(s *store.Store) {
	if err := s.Close(); err != nil {
		slog.Warn("failed to close store", slog.String("error", err.Error()))
	}
}
