package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cdhutch/cnsf/pkg/pipeline"
	"github.com/cdhutch/cnsf/pkg/reconcile"
)

var (
	pipelineSlug         string
	pipelineField        string
	pipelineDryRun       bool
	pipelinePreserveTags bool
	pipelineStrict       bool
)

var pipelineCmd = &cobra.Command{
	Use:   "pipeline <stage>",
	Short: "Run one stage of a dataset pipeline",
	Long: `Stages, in order:

  html        sources/<slug>__canonical.md -> generated/<slug>__canonical.html
  after-md    canonical markdown -> exports/<slug>__after.tsv
  after-html  canonical HTML -> exports/<slug>__after_html.tsv
  merge       base + after tables -> exports/<slug>__import.tsv and __import_html.tsv
  update      __import_html.tsv -> answer fields of existing Anki notes
  export      sources/<slug>/ note files -> exports/<slug>__sync.tsv
  sync        __sync.tsv -> create or update Anki notes`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: pipeline.Stages,
	Run: func(cmd *cobra.Command, args []string) {
		ws := openWorkspace()
		ctx := cmd.Context()
		p, err := ws.Pipeline(pipelineSlug)
		if err != nil {
			fatal("Failed to set up pipeline", err)
		}

		switch args[0] {
		case pipeline.StageHTML:
			if err := p.HTML(ctx); err != nil {
				fatal("html stage failed", err)
			}
			fmt.Printf("OK: wrote %s\n", p.Paths.CanonicalHTML)

		case pipeline.StageAfterMD:
			n, err := p.AfterMarkdown(ctx)
			if err != nil {
				fatal("after-md stage failed", err)
			}
			fmt.Printf("OK: wrote %d row(s) to %s\n", n, p.Paths.AfterMDTSV)

		case pipeline.StageAfterHTML:
			n, err := p.AfterHTML(ctx)
			if err != nil {
				fatal("after-html stage failed", err)
			}
			fmt.Printf("OK: wrote %d row(s) to %s\n", n, p.Paths.AfterHTMLTSV)

		case pipeline.StageMerge:
			incomplete := false
			for _, html := range []bool{false, true} {
				res, err := p.Merge(ctx, html)
				if err != nil {
					fatal("merge stage failed", err)
				}
				out := p.Paths.ImportMDTSV
				if html {
					out = p.Paths.ImportHTMLTSV
				}
				printMergeResult(res, out)
				incomplete = incomplete || !res.Complete()
			}
			if pipelineStrict && incomplete {
				os.Exit(exitData)
			}

		case pipeline.StageUpdate:
			report, err := p.Update(ctx, ws.Reconciler(), reconcile.AnswerOptions{Field: pipelineField, DryRun: pipelineDryRun})
			printAnswerReport(report, pipelineDryRun)
			if err != nil {
				fatal("update stage failed", err)
			}

		case pipeline.StageExport:
			n, err := p.Export(ctx)
			if err != nil {
				fatal("export stage failed", err)
			}
			fmt.Printf("OK: wrote %d row(s) to %s\n", n, p.Paths.SyncTSV)

		case pipeline.StageSync:
			if pipelineDryRun {
				rows, err := p.SyncRows()
				if err != nil {
					fatal("sync stage failed", err)
				}
				os.Exit(planRows(rows))
			}
			rc := ws.Reconciler(reconcile.WithPreserveUserTags(pipelinePreserveTags))
			report, err := p.Sync(ctx, rc)
			printSyncReport(report)
			if err != nil {
				fatal("sync stage failed", err)
			}
			if report.Failed() {
				os.Exit(exitData)
			}

		default:
			fatal("Unknown stage", usageError("%q (expected one of %s)", args[0], strings.Join(pipeline.Stages, ", ")))
		}
	},
}

func init() {
	rootCmd.AddCommand(pipelineCmd)
	pipelineCmd.Flags().StringVar(&pipelineSlug, "slug", "", "Dataset slug, e.g. systems-electrical")
	pipelineCmd.Flags().StringVar(&pipelineField, "field", "", "update: target Anki field (default: auto-detect)")
	pipelineCmd.Flags().BoolVar(&pipelineDryRun, "dry-run", false, "update, sync: do not write to Anki")
	pipelineCmd.Flags().BoolVar(&pipelinePreserveTags, "preserve-user-tags", false, "sync: only replace tags in managed namespaces")
	pipelineCmd.Flags().BoolVar(&pipelineStrict, "strict", false, "merge: exit 1 when any base row has no content")
	pipelineCmd.MarkFlagRequired("slug")
}
