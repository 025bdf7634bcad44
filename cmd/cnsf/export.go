package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cdhutch/cnsf/pkg/core"
	"github.com/cdhutch/cnsf/pkg/export"
	"github.com/cdhutch/cnsf/pkg/idmap"
	"github.com/cdhutch/cnsf/pkg/tsv"
)

var (
	exportOut        string
	exportMap        string
	exportProvenance bool
)

var exportCmd = &cobra.Command{
	Use:   "export [files...]",
	Short: "Build a sync import table from note files",
	Run: func(cmd *cobra.Command, args []string) {
		ws := openWorkspace()
		ctx := cmd.Context()
		r, err := ws.Renderer()
		if err != nil {
			fatal("Renderer unavailable", err)
		}

		var notes []core.Note
		for _, path := range notePaths(ctx, ws, args) {
			note, err := ws.Repository().Read(ctx, path)
			if err != nil {
				fatal("Failed to read note", err)
			}
			notes = append(notes, *note)
		}

		mapPath := exportMap
		if mapPath == "" && ws.Config.MapFile != "" {
			mapPath = ws.Path(ws.Config.MapFile)
		}
		var mapping idmap.Mapping
		if mapPath != "" {
			if mapping, err = idmap.Load(mapPath); err != nil {
				fatal("Failed to read identity mapping", err)
			}
		}

		rows, err := export.Rows(ctx, r, notes, export.Options{Mapping: mapping, Provenance: exportProvenance})
		if err != nil {
			fatal("Export failed", err)
		}
		t, err := export.Table(rows)
		if err != nil {
			fatal("Export failed", err)
		}
		if err := tsv.WriteFile(exportOut, t); err != nil {
			fatal("Failed to write table", err)
		}
		fmt.Printf("OK: wrote %d row(s) to %s\n", len(rows), exportOut)
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVar(&exportOut, "out", "", "Output import TSV")
	exportCmd.Flags().StringVar(&exportMap, "map", "", "Identity mapping used to prefill noteId (default: map_file from cnsf.yaml)")
	exportCmd.Flags().BoolVar(&exportProvenance, "provenance", false, "Keep the renderer comment in HTML cells")
	exportCmd.MarkFlagRequired("out")
}
