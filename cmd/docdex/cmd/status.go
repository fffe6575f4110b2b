package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show corpus statistics and last sync time",
		Args:  cobra.NoArgs,
		RunE:  runStatus,
	}
}

func runStatus(cmd *cobra.Command, _ []string) error {
	cfg, cleanup, err := loadEnv()
	if err != nil {
		return err
	}
	defer cleanup()

	s, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer closeQuietly(s)

	stats, err := s.GetStats(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if resolveFormat(out) == "json" {
		return printJSON(out, map[string]any{
			"documents":        stats.DocumentCount,
			"embeddings":       stats.EmbeddingCount,
			"concepts":         stats.ConceptCount,
			"last_sync":        stats.LastSync,
			"database_size_mb": stats.DatabaseSizeMB,
			"database_path":    cfg.DatabasePath,
		})
	}

	fmt.Fprintf(out, "Database:   %s (%.2f MB)\n", cfg.DatabasePath, stats.DatabaseSizeMB)
	fmt.Fprintf(out, "Documents:  %d\n", stats.DocumentCount)
	fmt.Fprintf(out, "Embeddings: %d\n", stats.EmbeddingCount)
	fmt.Fprintf(out, "Concepts:   %d\n", stats.ConceptCount)
	if stats.LastSync.IsZero() {
		fmt.Fprintln(out, "Last sync:  never")
	} else {
		fmt.Fprintf(out, "Last sync:  %s\n", stats.LastSync.Format("2006-01-02 15:04:05 MST"))
	}
	return nil
}
