package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cdhutch/cnsf/pkg/adapters/fs"
	"github.com/cdhutch/cnsf/pkg/lint"
)

var (
	lintFix    bool
	lintStrict bool
)

var lintCmd = &cobra.Command{
	Use:   "lint <file>...",
	Short: "Check AFTER block formatting in reviewed corpus documents",
	Long: `Reports Unicode bullet glyphs and lists without a preceding blank line
inside AFTER blocks. --fix converts bullet glyphs to "- "; blank lines are
never inserted. Issues are warnings unless --strict is set.`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		failed := false
		for _, path := range args {
			res := lintFile(path)
			for _, issue := range res.Issues {
				fmt.Println(issue.String())
				fmt.Printf("    %s\n", issue.Context)
			}
			if len(res.Issues) == 0 {
				fmt.Printf("OK: %s\n", path)
			}
			failed = failed || res.Failed(lintStrict)
		}
		if failed {
			os.Exit(exitData)
		}
	},
}

func lintFile(path string) lint.Result {
	info, err := os.Stat(path)
	if err != nil {
		fatal("Failed to read input", usageError("%v", err))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		fatal("Failed to read input", err)
	}
	text := string(data)
	res := lint.Result{Path: path}
	if lintFix {
		fixed, n := lint.Fix(text)
		if n > 0 {
			if err := fs.WriteFileAtomic(path, []byte(fixed), info.Mode().Perm()); err != nil {
				fatal("Failed to write fixes", err)
			}
			fmt.Printf("OK: applied %d safe fix(es) to %s\n", n, path)
			text = fixed
		}
		res.Fixed = n
	}
	res.Issues = lint.Validate(path, text)
	return res
}

func init() {
	rootCmd.AddCommand(lintCmd)
	lintCmd.Flags().BoolVar(&lintFix, "fix", false, "Apply safe fixes in place")
	lintCmd.Flags().BoolVar(&lintStrict, "strict", false, "Exit 1 if any issue remains")
}
