package cmd

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/docdex/docdex/internal/extract"
	"github.com/docdex/docdex/internal/indexer"
)

func newWatchCmd() *cobra.Command {
	var folder string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch the documents folder and resync on changes",
		Long: `Watch the documents folder and resync on changes.

Filesystem events are debounced: a resync runs after the configured
quiet period (watch.debounce) following the last event. Runs until
interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, folder)
		},
	}

	cmd.Flags().StringVar(&folder, "folder", "", "Documents folder (overrides config)")

	return cmd
}

func runWatch(cmd *cobra.Command, folder string) error {
	cfg, cleanup, err := loadEnv()
	if err != nil {
		return err
	}
	defer cleanup()
	if folder != "" {
		cfg.DocumentsFolder = folder
	}

	debounce, err := cfg.Watch.DebounceDuration()
	if err != nil {
		return err
	}

	s, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer closeQuietly(s)

	embedder, err := newEmbedder(cfg)
	if err != nil {
		return err
	}
	ix := indexer.New(s, embedder, extract.NewRegistry(), indexer.Options{
		LockPath: cfg.LockPath(),
	})

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watchRecursive(watcher, cfg.DocumentsFolder); err != nil {
		return err
	}

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	resync := func() {
		summary, err := ix.SyncFolder(ctx, cfg.DocumentsFolder, false, nil)
		if err != nil {
			fmt.Fprintf(out, "sync failed: %v\n", err)
			return
		}
		if removed, err := ix.RemoveDeletedDocuments(ctx); err == nil && removed > 0 {
			fmt.Fprintf(out, "removed %d deleted document(s)\n", removed)
		}
		fmt.Fprintf(out, "synced: %d added, %d updated, %d unchanged, %d errors\n",
			summary.Added, summary.Updated, summary.Unchanged, len(summary.Errors))
	}

	fmt.Fprintf(out, "Watching %s (debounce %s)\n", cfg.DocumentsFolder, debounce)
	resync()

	// The timer stays stopped until an event arrives, then every event
	// pushes the resync out by the full debounce window.
	timer := time.NewTimer(debounce)
	if !timer.Stop() {
		<-timer.C
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() && watchableDir(filepath.Base(event.Name)) {
					_ = watchRecursive(watcher, event.Name)
				}
			}
			timer.Reset(debounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(out, "watch error: %v\n", err)

		case <-timer.C:
			resync()
		}
	}
}

// watchRecursive registers root and every non-hidden, non-junk
// subdirectory with the watcher.
func watchRecursive(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && !watchableDir(d.Name()) {
			return filepath.SkipDir
		}
		return watcher.Add(path)
	})
}

// watchableDir mirrors the indexer's discovery exclusions.
func watchableDir(name string) bool {
	if strings.HasPrefix(name, ".") {
		return false
	}
	return name != "node_modules" && name != "__pycache__"
}
