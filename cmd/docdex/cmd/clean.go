package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/docdex/docdex/internal/embed"
	"github.com/docdex/docdex/internal/extract"
	"github.com/docdex/docdex/internal/indexer"
)

func newCleanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clean",
		Short: "Remove documents whose files no longer exist on disk",
		Args:  cobra.NoArgs,
		RunE:  runClean,
	}
}

func runClean(cmd *cobra.Command, _ []string) error {
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

	// Reconciliation never embeds.
	ix := indexer.New(s, embed.NewStaticEmbedder(), extract.NewRegistry(), indexer.Options{
		LockPath: cfg.LockPath(),
	})

	removed, err := ix.RemoveDeletedDocuments(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if resolveFormat(out) == "json" {
		return printJSON(out, map[string]int{"removed": removed})
	}
	fmt.Fprintf(out, "Removed %d document(s)\n", removed)
	return nil
}
