package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cdhutch/cnsf/pkg/core"
	"github.com/cdhutch/cnsf/pkg/render"
)

var renderOut string

var renderCmd = &cobra.Command{
	Use:   "render [files...]",
	Short: "Render note sections to HTML fragments",
	Long: `Writes <note_id>__front.html and <note_id>__back.html for each note,
each prefixed with a comment naming the renderer. Without arguments every
note of the project is rendered.`,
	Run: func(cmd *cobra.Command, args []string) {
		ws := openWorkspace()
		ctx := cmd.Context()
		r, err := ws.Renderer()
		if err != nil {
			fatal("Renderer unavailable", err)
		}
		out := renderOut
		if out == "" {
			out = ws.Path(ws.Config.Generated)
		}

		failed := false
		for _, path := range notePaths(ctx, ws, args) {
			note, err := ws.Repository().Read(ctx, path)
			if err != nil {
				fmt.Printf("ERROR: %v\n", err)
				failed = true
				continue
			}
			frag, err := render.RenderNote(ctx, r, *note)
			if err != nil {
				if core.IsConfigError(err) {
					fatal("Renderer failed", err)
				}
				fmt.Printf("ERROR: %v\n", err)
				failed = true
				continue
			}
			if err := render.WriteFragments(out, frag); err != nil {
				fatal("Failed to write fragments", err)
			}
			front, back := render.FragmentPaths(out, frag.NoteID)
			fmt.Printf("OK: %s, %s\n", front, back)
		}
		if failed {
			os.Exit(exitData)
		}
	},
}

func init() {
	rootCmd.AddCommand(renderCmd)
	renderCmd.Flags().StringVar(&renderOut, "out", "", "Output directory (default: the configured generated directory)")
}
