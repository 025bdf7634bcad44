package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cdhutch/cnsf/pkg/merge"
	"github.com/cdhutch/cnsf/pkg/reconcile"
	"github.com/cdhutch/cnsf/pkg/tsv"
)

var (
	updateIn     string
	updateField  string
	updateColumn string
	updateDryRun bool
	updateLimit  int
)

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Write merged answers into existing Anki notes",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		t, err := tsv.ReadFile(updateIn)
		if err != nil {
			fatal("Failed to read merged table", usageError("%v", err))
		}
		rows, err := reconcile.AnswerRows(t, updateColumn)
		if err != nil {
			fatal("Invalid merged table", usageError("%v", err))
		}

		ws := openWorkspace()
		report, err := ws.Reconciler().UpdateAnswers(cmd.Context(), rows, reconcile.AnswerOptions{
			Field:  updateField,
			DryRun: updateDryRun,
			Limit:  updateLimit,
		})
		printAnswerReport(report, updateDryRun)
		if err != nil {
			fatal("Update stopped", err)
		}
	},
}

func printAnswerReport(report reconcile.AnswerReport, dryRun bool) {
	for _, s := range report.Skipped {
		fmt.Printf("SKIP %s: %s\n", s.NoteID, s.Reason)
	}
	fmt.Printf("Prepared updates: %d\nSkipped: %d\n", len(report.Updates), len(report.Skipped))
	if dryRun {
		for i, u := range report.Updates {
			if i == 3 {
				break
			}
			preview := u.Value
			if len(preview) > 120 {
				preview = preview[:120]
			}
			fmt.Printf("DRY RUN: noteId=%d field=%s value[:120]=%s\n", u.RemoteID, u.Field, strings.ReplaceAll(preview, "\n", `\n`))
		}
		fmt.Println("Dry-run complete (no changes sent).")
		return
	}
	fmt.Fprintf(os.Stdout, "Applied: %d\n", report.Applied)
}

func init() {
	rootCmd.AddCommand(updateCmd)
	updateCmd.Flags().StringVar(&updateIn, "in", "", "Merged TSV (e.g. __import_html.tsv)")
	updateCmd.Flags().StringVar(&updateField, "field", "", "Target Anki field (default: auto-detect)")
	updateCmd.Flags().StringVar(&updateColumn, "column", merge.DefaultOptions().OutputColumn, "Column holding the answer content")
	updateCmd.Flags().BoolVar(&updateDryRun, "dry-run", false, "Show what would change without writing")
	updateCmd.Flags().IntVar(&updateLimit, "limit", 0, "Only process the first N rows (0 = all)")
	updateCmd.MarkFlagRequired("in")
}
