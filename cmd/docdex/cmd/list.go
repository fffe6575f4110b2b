package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// listOptions holds CLI flags for list.
type listOptions struct {
	limit  int
	offset int
	search string
}

func newListCmd() *cobra.Command {
	var opts listOptions

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List indexed documents, most recently modified first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 50, "Maximum number of documents")
	cmd.Flags().IntVar(&opts.offset, "offset", 0, "Number of documents to skip")
	cmd.Flags().StringVar(&opts.search, "search", "", "Filter by full-text match")

	return cmd
}

func runList(cmd *cobra.Command, opts listOptions) error {
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

	docs, err := s.ListDocuments(cmd.Context(), opts.limit, opts.offset, opts.search)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if resolveFormat(out) == "json" {
		type docInfo struct {
			ID         string `json:"id"`
			Title      string `json:"title"`
			FilePath   string `json:"filepath"`
			WordCount  int    `json:"word_count"`
			ModifiedAt string `json:"modified_at"`
		}
		infos := make([]docInfo, len(docs))
		for i, d := range docs {
			infos[i] = docInfo{
				ID:         d.ID,
				Title:      d.Title,
				FilePath:   d.FilePath,
				WordCount:  d.WordCount,
				ModifiedAt: d.ModifiedAt.Format("2006-01-02T15:04:05Z07:00"),
			}
		}
		return printJSON(out, infos)
	}

	if len(docs) == 0 {
		fmt.Fprintln(out, "No documents indexed")
		return nil
	}
	for _, d := range docs {
		fmt.Fprintf(out, "%-40s %6d words  %s\n", d.Title, d.WordCount, d.FilePath)
	}
	return nil
}
