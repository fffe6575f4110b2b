package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newConceptCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "concept",
		Short: "Manage stored concept vectors",
		Long: `Manage stored concept vectors.

A concept is a named embedding of descriptive text, reusable in
concept and debias search modes.

Examples:
  docdex concept store ai "artificial intelligence and machine learning"
  docdex concept list
  docdex concept delete ai`,
	}

	cmd.AddCommand(newConceptStoreCmd())
	cmd.AddCommand(newConceptListCmd())
	cmd.AddCommand(newConceptDeleteCmd())

	return cmd
}

func newConceptStoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "store <name> <text>...",
		Short: "Embed text and store it as a named concept",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConceptStore(cmd, args[0], strings.Join(args[1:], " "))
		},
	}
}

func runConceptStore(cmd *cobra.Command, name, text string) error {
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

	embedder, err := newEmbedder(cfg)
	if err != nil {
		return err
	}

	summary, err := newEngine(cfg, s, embedder).StoreConcept(cmd.Context(), name, text)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if resolveFormat(out) == "json" {
		return printJSON(out, summary)
	}
	fmt.Fprintf(out, "Stored concept %q (%.1fms)\n", summary.Name, summary.ProcessingTimeMS)
	return nil
}

func newConceptListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored concepts",
		Args:  cobra.NoArgs,
		RunE:  runConceptList,
	}
}

func runConceptList(cmd *cobra.Command, _ []string) error {
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

	concepts, err := s.ListConcepts(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if resolveFormat(out) == "json" {
		type conceptInfo struct {
			Name       string `json:"name"`
			SourceText string `json:"source_text"`
			Dimensions int    `json:"dimensions"`
		}
		infos := make([]conceptInfo, len(concepts))
		for i, c := range concepts {
			infos[i] = conceptInfo{Name: c.Name, SourceText: c.SourceText, Dimensions: len(c.Vector)}
		}
		return printJSON(out, infos)
	}

	if len(concepts) == 0 {
		fmt.Fprintln(out, "No concepts stored")
		return nil
	}
	for _, c := range concepts {
		text := c.SourceText
		if len(text) > 60 {
			text = text[:60] + "..."
		}
		fmt.Fprintf(out, "%-20s %s\n", c.Name, text)
	}
	return nil
}

func newConceptDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a stored concept",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConceptDelete(cmd, args[0])
		},
	}
}

func runConceptDelete(cmd *cobra.Command, name string) error {
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

	if err := s.DeleteConcept(cmd.Context(), name); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted concept %q\n", name)
	return nil
}
