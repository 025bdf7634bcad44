package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cdhutch/cnsf/pkg/merge"
	"github.com/cdhutch/cnsf/pkg/tsv"
)

var (
	mergeBase     string
	mergeAfter    string
	mergeOut      string
	mergeMarkdown bool
	mergeStrict   bool
)

var mergeCmd = &cobra.Command{
	Use:   "merge",
	Short: "Join a base export with extracted AFTER content by note_id",
	Long: `Every base row is kept in order. Rows without extracted content are
listed as missing; pass --strict to fail when any row is missing.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		base, err := tsv.ReadFile(mergeBase)
		if err != nil {
			fatal("Failed to read base table", err)
		}
		after, err := tsv.ReadFile(mergeAfter)
		if err != nil {
			fatal("Failed to read AFTER table", err)
		}
		opts := merge.DefaultOptions()
		if mergeMarkdown {
			opts = merge.MarkdownOptions()
		}
		if missing := base.Missing(opts.Columns...); len(missing) > 0 {
			fatal("Invalid base table", fmt.Errorf("missing columns: %s", strings.Join(missing, ", ")))
		}

		res := merge.Merge(base, after, opts)
		if err := tsv.WriteFile(mergeOut, res.Table); err != nil {
			fatal("Failed to write merged table", err)
		}
		printMergeResult(res, mergeOut)
		if mergeStrict && !res.Complete() {
			os.Exit(exitData)
		}
	},
}

func printMergeResult(res merge.Result, out string) {
	fmt.Printf("OK: wrote %d row(s) to %s\n", res.Table.Len(), out)
	fmt.Printf("base rows: %d, revision rows: %d, missing: %d\n", res.BaseRows, res.RevisionRows, len(res.Missing))
	for _, id := range res.Missing {
		fmt.Printf("  missing: %s\n", id)
	}
}

func init() {
	rootCmd.AddCommand(mergeCmd)
	mergeCmd.Flags().StringVar(&mergeBase, "base", "", "Base export TSV")
	mergeCmd.Flags().StringVar(&mergeAfter, "after", "", "Extracted AFTER TSV")
	mergeCmd.Flags().StringVar(&mergeOut, "out", "", "Merged output TSV")
	mergeCmd.Flags().BoolVar(&mergeMarkdown, "md", false, "Merge after_md into answer_md instead of after_html into answer_html")
	mergeCmd.Flags().BoolVar(&mergeStrict, "strict", false, "Exit 1 when any base row has no content")
	mergeCmd.MarkFlagRequired("base")
	mergeCmd.MarkFlagRequired("after")
	mergeCmd.MarkFlagRequired("out")
}
