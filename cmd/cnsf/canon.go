package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/cdhutch/cnsf"
	lifecycleadapter "github.com/cdhutch/cnsf/pkg/adapters/lifecycle"
	"github.com/cdhutch/cnsf/pkg/canon"
	"github.com/cdhutch/cnsf/pkg/core"
	"github.com/cdhutch/cnsf/pkg/git"
)

var (
	canonDiff     bool
	canonStaged   bool
	canonLockWait time.Duration
)

var canonCmd = &cobra.Command{
	Use:   "canon",
	Short: "Check or rewrite note files in canonical form",
	Long: `Canonical form fixes the front matter key order, applies legacy
migrations and normalizes the body layout. Without arguments every note
file of the project is processed.`,
}

var canonCheckCmd = &cobra.Command{
	Use:   "check [files...]",
	Short: "Fail when a note drifts from canonical form",
	Run: func(cmd *cobra.Command, args []string) {
		ws := openWorkspace()
		ctx := cmd.Context()
		paths := notePaths(ctx, ws, args)

		report, err := ws.Canonicalizer(canon.WithDiff(canonDiff)).Check(ctx, paths)
		if err != nil {
			fatal("Check failed", err)
		}
		printCanonReport(report)
		if report.Failed() {
			os.Exit(exitData)
		}
	},
}

var canonWriteCmd = &cobra.Command{
	Use:   "write [files...]",
	Short: "Rewrite notes in canonical form",
	Run: func(cmd *cobra.Command, args []string) {
		ws := openWorkspace()
		ctx := cmd.Context()
		paths := notePaths(ctx, ws, args)

		report, err := writeCanonical(ctx, ws, paths, canonStaged)
		printCanonReport(report)
		if err != nil {
			fatal("Write failed", err)
		}
		if report.Failed() {
			os.Exit(exitData)
		}
	},
}

// writeCanonical rewrites paths in canonical form. With stage set it holds
// the work tree lock and re-stages the files it changed; the lock is
// released before returning, whatever the outcome.
func writeCanonical(ctx context.Context, ws *cnsf.Workspace, paths []string, stage bool) (canon.Report, error) {
	var client *git.Client
	if stage {
		client = git.NewClient(ws.Root, nil)
		lockCtx, cancel := context.WithTimeout(ctx, canonLockWait)
		unlock, err := client.Lock(lockCtx)
		cancel()
		if err != nil {
			return canon.Report{}, fmt.Errorf("failed to lock work tree (remove %s if no other run is active): %w", git.LockFile, err)
		}
		defer unlock()
	}

	report, err := ws.Canonicalizer().Write(ctx, paths)
	if err != nil {
		return report, err
	}
	if client != nil {
		var changed []string
		for _, res := range report.Results {
			if res.Status == canon.StatusChanged {
				changed = append(changed, res.Path)
			}
		}
		if err := client.Add(ctx, changed...); err != nil {
			return report, fmt.Errorf("failed to re-stage canonicalized files: %w", err)
		}
	}
	return report, nil
}

var canonWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Re-check notes as they change",
	Run: func(cmd *cobra.Command, args []string) {
		ws := openWorkspace()
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		src := lifecycleadapter.NewSource(ws.Repository())
		if err := src.Start(ctx); err != nil {
			fatal("Failed to start watcher", err)
		}
		c := ws.Canonicalizer()
		fmt.Printf("Watching %s (Ctrl+C to stop)\n", ws.Root)

		for ev := range src.Events() {
			e, ok := ev.(core.Event)
			if !ok || e.Type == core.EventDelete {
				continue
			}
			fmt.Println(c.CheckFile(filepath.Join(ws.Root, e.ID)).String())
		}
	},
}

func init() {
	rootCmd.AddCommand(canonCmd)
	canonCmd.PersistentFlags().BoolVar(&canonStaged, "staged", false, "Only process note files staged in git")
	canonWriteCmd.Flags().DurationVar(&canonLockWait, "lock-timeout", 30*time.Second, "How long --staged waits for the work tree lock")
	canonCheckCmd.Flags().BoolVar(&canonDiff, "diff", false, "Print a unified diff for drifting files")
	canonCmd.AddCommand(canonCheckCmd, canonWriteCmd, canonWatchCmd)
}

// notePaths resolves the files a canon command operates on: explicit
// arguments, the staged note files, or every note of the project.
func notePaths(ctx context.Context, ws *cnsf.Workspace, args []string) []string {
	if len(args) > 0 {
		paths := make([]string, len(args))
		for i, a := range args {
			abs, err := filepath.Abs(a)
			if err != nil {
				fatal("Invalid path", usageError("%v", err))
			}
			paths[i] = abs
		}
		return paths
	}
	if canonStaged {
		staged, err := git.NewClient(ws.Root, nil).StagedFiles(ctx)
		if err != nil {
			fatal("Failed to list staged files", err)
		}
		var paths []string
		for _, p := range staged {
			rel, err := filepath.Rel(ws.Root, p)
			if err == nil && ws.Repository().Match(rel) {
				paths = append(paths, p)
			}
		}
		return paths
	}
	paths, err := ws.Repository().List(ctx)
	if err != nil {
		fatal("Failed to list notes", err)
	}
	return paths
}

func printCanonReport(report canon.Report) {
	for _, res := range report.Results {
		fmt.Println(res.String())
		if res.Diff != "" {
			fmt.Print(res.Diff)
		}
	}
	fmt.Printf("%d file(s): %d unchanged, %d changed, %d order drift, %d content drift, %d error(s)\n",
		len(report.Results),
		report.Count(canon.StatusUnchanged),
		report.Count(canon.StatusChanged),
		report.Count(canon.StatusOrderDrift),
		report.Count(canon.StatusContentDrift),
		report.Count(canon.StatusError))
}
