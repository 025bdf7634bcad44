package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/cdhutch/cnsf"
)

var (
	verbose  bool
	rootDir  string
	ankiURL  string
	renderer string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "cnsf",
	Short: "Canonical note tooling for Anki-backed study decks",
	Long: `cnsf keeps CNSF note files canonical, extracts reviewed AFTER blocks,
merges them into tabular exports and reconciles the result with Anki
through AnkiConnect.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}

		opts := &slog.HandlerOptions{
			Level: level,
		}
		logger := slog.New(slog.NewTextHandler(os.Stderr, opts))
		slog.SetDefault(logger)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitConfig)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&rootDir, "root", "", "Project root (default: found by walking up from the working directory)")
	rootCmd.PersistentFlags().StringVar(&ankiURL, "anki-url", "", "AnkiConnect URL (overrides cnsf.yaml)")
	rootCmd.PersistentFlags().StringVar(&renderer, "renderer", "", "Rendering engine: goldmark, multimarkdown or pandoc (overrides cnsf.yaml)")
}

// openWorkspace opens the project the command operates on.
func openWorkspace(extra ...cnsf.Option) *cnsf.Workspace {
	opts := []cnsf.Option{cnsf.WithLogger(slog.Default())}
	if ankiURL != "" {
		opts = append(opts, cnsf.WithAnkiURL(ankiURL))
	}
	if renderer != "" {
		opts = append(opts, cnsf.WithRenderer(renderer))
	}
	opts = append(opts, extra...)

	var (
		ws  *cnsf.Workspace
		err error
	)
	if rootDir != "" {
		ws, err = cnsf.New(rootDir, opts...)
	} else {
		cwd, cerr := os.Getwd()
		if cerr != nil {
			fatal("Failed to get CWD", cerr)
		}
		ws, err = cnsf.Open(cwd, opts...)
	}
	if err != nil {
		fatal("Failed to open project", usageError("%v", err))
	}
	return ws
}
