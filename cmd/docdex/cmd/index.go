package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/docdex/docdex/internal/async"
	"github.com/docdex/docdex/internal/config"
	"github.com/docdex/docdex/internal/embed"
	"github.com/docdex/docdex/internal/extract"
	"github.com/docdex/docdex/internal/indexer"
	"github.com/docdex/docdex/internal/store"
)

// indexOptions holds CLI flags for index.
type indexOptions struct {
	force  bool
	dryRun bool
	folder string
}

func newIndexCmd() *cobra.Command {
	var opts indexOptions

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Sync the documents folder into the corpus",
		Long: `Sync the documents folder into the corpus.

Unchanged files (by content hash) are skipped without extraction or
embedding. One file's failure never aborts the run; it lands in the
summary's error list instead.

Examples:
  docdex index
  docdex index --force
  docdex index --dry-run
  docdex index --folder ~/notes`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIndex(cmd, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.force, "force", false, "Reprocess files even when unchanged")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Estimate embedding cost without writing anything")
	cmd.Flags().StringVar(&opts.folder, "folder", "", "Documents folder (overrides config)")

	return cmd
}

func runIndex(cmd *cobra.Command, opts indexOptions) error {
	cfg, cleanup, err := loadEnv()
	if err != nil {
		return err
	}
	defer cleanup()
	if opts.folder != "" {
		cfg.DocumentsFolder = opts.folder
	}

	s, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer closeQuietly(s)

	if opts.dryRun {
		return runIndexDryRun(cmd, cfg, s, opts.force)
	}

	embedder, err := newEmbedder(cfg)
	if err != nil {
		return err
	}
	ix := indexer.New(s, embedder, extract.NewRegistry(), indexer.Options{
		LockPath: cfg.LockPath(),
	})

	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	format := resolveFormat(out)

	tracker := async.NewSyncTracker(uuid.NewString())
	if paths, err := ix.FindDocuments(cfg.DocumentsFolder); err == nil {
		tracker.SetTotal(len(paths))
	}

	progress := func(current, total int, path string) {
		tracker.Update(current, path)
		if format == "text" {
			fmt.Fprintf(out, "[%d/%d] %s\n", current, total, filepath.Base(path))
		}
	}

	summary, err := ix.SyncFolder(ctx, cfg.DocumentsFolder, opts.force, progress)
	if err != nil {
		tracker.Fail(err.Error())
		return err
	}
	tracker.Complete()

	if format == "json" {
		return printJSON(out, summary)
	}

	fmt.Fprintf(out, "Indexed %s: %d added, %d updated, %d unchanged, %d errors\n",
		cfg.DocumentsFolder, summary.Added, summary.Updated, summary.Unchanged, len(summary.Errors))
	for _, e := range summary.Errors {
		fmt.Fprintf(out, "  error: %s: %s\n", e.File, e.Error)
	}
	return nil
}

// runIndexDryRun reports which files a sync would embed and what that
// would cost, without writing anything.
func runIndexDryRun(cmd *cobra.Command, cfg config.Config, s *store.Store, force bool) error {
	// The embedder is never invoked on this path.
	ix := indexer.New(s, embed.NewStaticEmbedder(), extract.NewRegistry(), indexer.Options{})

	texts, err := ix.PendingTexts(cmd.Context(), cfg.DocumentsFolder, force)
	if err != nil {
		return err
	}

	tokens := 0
	for _, t := range texts {
		tokens += embed.EstimateTokens(t)
	}
	cost := embed.EstimateCost(texts, cfg.Embedding.UnitPrice)

	out := cmd.OutOrStdout()
	if resolveFormat(out) == "json" {
		return printJSON(out, map[string]any{
			"pending_files":    len(texts),
			"estimated_tokens": tokens,
			"estimated_cost":   cost,
		})
	}

	fmt.Fprintf(out, "Pending files: %d\n", len(texts))
	fmt.Fprintf(out, "Estimated tokens: %d\n", tokens)
	fmt.Fprintf(out, "Estimated cost: $%.6f\n", cost)
	return nil
}
