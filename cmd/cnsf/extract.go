package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cdhutch/cnsf/pkg/revision"
	"github.com/cdhutch/cnsf/pkg/tsv"
)

var (
	extractIn  string
	extractOut string
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract AFTER blocks from a reviewed corpus document",
}

var extractMDCmd = &cobra.Command{
	Use:   "md",
	Short: "Markdown corpus -> note_id/after_md table",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		data, err := os.ReadFile(extractIn)
		if err != nil {
			fatal("Failed to read input", usageError("%v", err))
		}
		blocks := revision.ExtractMarkdown(string(data))
		writeBlocks(blocks, revision.ColumnMarkdown)
	},
}

var extractHTMLCmd = &cobra.Command{
	Use:   "html",
	Short: "Rendered HTML corpus -> note_id/after_html table",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		f, err := os.Open(extractIn)
		if err != nil {
			fatal("Failed to read input", usageError("%v", err))
		}
		defer f.Close()
		blocks, err := revision.ExtractHTML(f)
		if err != nil {
			fatal("Failed to parse HTML", err)
		}
		writeBlocks(blocks, revision.ColumnHTML)
	},
}

func writeBlocks(blocks []revision.Block, column string) {
	t := revision.Table(blocks, column)
	if extractOut == "" || extractOut == "-" {
		if err := tsv.Write(os.Stdout, t); err != nil {
			fatal("Failed to write table", err)
		}
		return
	}
	if err := tsv.WriteFile(extractOut, t); err != nil {
		fatal("Failed to write table", err)
	}
	ids := make([]string, len(blocks))
	for i, b := range blocks {
		ids[i] = b.NoteID
	}
	fmt.Fprintf(os.Stderr, "OK: wrote %d row(s) to %s (%s)\n", len(blocks), extractOut, strings.Join(ids, ", "))
}

func init() {
	rootCmd.AddCommand(extractCmd)
	extractCmd.PersistentFlags().StringVar(&extractIn, "in", "", "Input corpus document")
	extractCmd.PersistentFlags().StringVar(&extractOut, "out", "", "Output TSV (default: stdout)")
	extractCmd.MarkPersistentFlagRequired("in")
	extractCmd.AddCommand(extractMDCmd, extractHTMLCmd)
}
