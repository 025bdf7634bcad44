package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cdhutch/cnsf"
	"github.com/cdhutch/cnsf/pkg/idmap"
	"github.com/cdhutch/cnsf/pkg/reconcile"
	"github.com/cdhutch/cnsf/pkg/tsv"
)

var (
	syncIn           string
	syncDryRun       bool
	syncCheck        bool
	syncMapIn        string
	syncMapOut       string
	syncPreserveTags bool
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Create or update Anki notes from an import table",
	Long: `Each row is created when it has no noteId and updated otherwise. A
duplicate on create is resolved by looking the note up by its identity
field and adopting it. Created and adopted notes are appended to the
identity mapping log.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		t, err := tsv.ReadFile(syncIn)
		if err != nil {
			fatal("Failed to read import table", usageError("%v", err))
		}
		rows, err := reconcile.ParseRows(t)
		if err != nil {
			fatal("Invalid import table", usageError("%v", err))
		}

		if syncMapIn != "" {
			mapping, err := idmap.Load(syncMapIn)
			if err != nil {
				fatal("Failed to read identity mapping", err)
			}
			n := mapping.Apply(len(rows),
				func(i int) (string, string) { return rows[i].NoteID, rows[i].RemoteID },
				func(i int, remote string) { rows[i].RemoteID = remote },
			)
			fmt.Printf("Prefilled %d noteId(s) from %s\n", n, syncMapIn)
		}

		if syncDryRun || syncCheck {
			os.Exit(planRows(rows))
		}

		var extra []cnsf.Option
		if cmd.Flags().Changed("map-out") {
			extra = append(extra, cnsf.WithMappingFile(syncMapOut))
		}
		ws := openWorkspace(extra...)
		rc := ws.Reconciler(reconcile.WithPreserveUserTags(syncPreserveTags))

		report, err := rc.Sync(cmd.Context(), rows)
		printSyncReport(report)
		if err != nil {
			fatal("Sync stopped", err)
		}
		if report.Failed() {
			os.Exit(exitData)
		}
	},
}

// planRows reports the offline plan. It returns a non-zero exit code when
// a row is malformed, or in check mode when a row would be created.
func planRows(rows []reconcile.Row) int {
	code := exitOK
	for _, row := range rows {
		if err := row.Check(); err != nil {
			fmt.Printf("INVALID: %v\n", err)
			code = exitData
		}
	}
	plan := reconcile.Check(rows)
	fmt.Printf("Rows: %d, would create: %d, would update: %d\n", len(rows), len(plan.Creates), len(plan.Updates))
	if syncCheck && len(plan.Creates) > 0 {
		for _, id := range plan.Creates {
			fmt.Printf("  would create: %s\n", id)
		}
		code = exitData
	}
	return code
}

func printSyncReport(report reconcile.Report) {
	for _, res := range report.Results {
		if res.Err != nil {
			fmt.Printf("%-8s %s: %v\n", res.Action, res.NoteID, res.Err)
			continue
		}
		fmt.Printf("%-8s %s -> %s\n", res.Action, res.NoteID, res.RemoteID)
	}
	fmt.Printf("created: %d, updated: %d, adopted: %d, failed: %d\n",
		report.Count(reconcile.ActionCreated),
		report.Count(reconcile.ActionUpdated),
		report.Count(reconcile.ActionAdopted),
		report.Count(reconcile.ActionFailed))
}

func init() {
	rootCmd.AddCommand(syncCmd)
	syncCmd.Flags().StringVar(&syncIn, "in", "", "Import TSV")
	syncCmd.Flags().BoolVar(&syncDryRun, "dry-run", false, "Parse and validate rows without contacting Anki")
	syncCmd.Flags().BoolVar(&syncCheck, "check", false, "Fail if any row would be created")
	syncCmd.Flags().StringVar(&syncMapIn, "map-in", "", "Prefill missing noteIds from this identity mapping")
	syncCmd.Flags().StringVar(&syncMapOut, "map-out", "", "Append created/adopted notes to this identity mapping (overrides cnsf.yaml)")
	syncCmd.Flags().BoolVar(&syncPreserveTags, "preserve-user-tags", false, "Only replace tags in managed namespaces")
	syncCmd.MarkFlagRequired("in")
}
