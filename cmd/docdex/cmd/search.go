package cmd

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/docdex/docdex/internal/embed"
	"github.com/docdex/docdex/internal/search"
)

// searchOptions holds CLI flags for search.
type searchOptions struct {
	mode  string
	limit int
}

func newSearchCmd() *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Query the corpus",
		Long: `Query the corpus in one of five modes.

keyword, semantic, and hybrid take a free-text query. concept takes
one or more stored concept names, each optionally weighted as
name:weight (default weight 1). debias takes exactly two concept
names: the main concept and the direction to remove.

Examples:
  docdex search "transformer architectures"
  docdex search --mode keyword "machine learning"
  docdex search --mode concept ai hype:-0.5
  docdex search --mode debias technology food`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.mode, "mode", "m", "hybrid", "Query mode: keyword, semantic, hybrid, concept, debias")
	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 10, "Maximum number of results")

	return cmd
}

func runSearch(cmd *cobra.Command, args []string, opts searchOptions) error {
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

	// keyword, concept, and debias modes never embed; skip provider
	// construction so they work without a credential.
	var embedder embed.Embedder
	switch opts.mode {
	case "semantic", "hybrid":
		embedder, err = newEmbedder(cfg)
		if err != nil {
			return err
		}
	default:
		embedder = embed.NewStaticEmbedder()
	}

	engine := newEngine(cfg, s, embedder)
	ctx := cmd.Context()

	var resp *search.Response
	switch opts.mode {
	case "keyword":
		resp, err = engine.Keyword(ctx, strings.Join(args, " "), opts.limit)
	case "semantic":
		resp, err = engine.Semantic(ctx, strings.Join(args, " "), opts.limit)
	case "hybrid":
		resp, err = engine.Hybrid(ctx, strings.Join(args, " "), opts.limit)
	case "concept":
		mix, perr := parseConceptMix(args)
		if perr != nil {
			return perr
		}
		resp, err = engine.Concept(ctx, mix, opts.limit)
	case "debias":
		if len(args) != 2 {
			return fmt.Errorf("debias mode takes exactly two concept names, got %d", len(args))
		}
		resp, err = engine.Debias(ctx, args[0], args[1], opts.limit)
	default:
		return fmt.Errorf("unknown mode %q (want keyword, semantic, hybrid, concept, or debias)", opts.mode)
	}
	if err != nil {
		return err
	}

	return writeResponse(cmd.OutOrStdout(), resp)
}

// parseConceptMix parses name[:weight] arguments into a concept mix.
// An omitted weight defaults to 1.
func parseConceptMix(args []string) (map[string]float64, error) {
	mix := make(map[string]float64, len(args))
	for _, arg := range args {
		name, weightStr, hasWeight := strings.Cut(arg, ":")
		if name == "" {
			return nil, fmt.Errorf("invalid concept spec %q", arg)
		}

		weight := 1.0
		if hasWeight {
			w, err := strconv.ParseFloat(weightStr, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid weight in concept spec %q", arg)
			}
			weight = w
		}
		mix[name] = weight
	}
	return mix, nil
}

func writeResponse(w io.Writer, resp *search.Response) error {
	if resolveFormat(w) == "json" {
		return printJSON(w, resp)
	}

	d := resp.ExecutionDetails
	fmt.Fprintf(w, "%s: %d of %d candidates in %.1fms\n", d.Mode, d.Returned, d.TotalCandidates, d.ProcessingTimeMS)
	if d.Diagnostic != "" {
		fmt.Fprintf(w, "  %s\n", d.Diagnostic)
	}

	for i, r := range resp.Results {
		fmt.Fprintf(w, "\n%2d. %s (score %.4f)\n", i+1, r.Title, r.Score)
		fmt.Fprintf(w, "    %s\n", r.FilePath)
		if r.Snippet != "" {
			fmt.Fprintf(w, "    %s\n", r.Snippet)
		}
	}
	return nil
}
