package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/cdhutch/cnsf"
)

const noteTemplate = `---
schema: cnsf/v0
domain: bench
note_type: system
note_id: bench_%05d
anki:
  model: Structured
  deck: Bench
tags:
  - benchmark
fields:
  Verification Notes: ""
---

# front_md

Question %d?

# back_md

Answer %d.
`

func main() {
	count := flag.Int("count", 1000, "Number of notes to generate")
	keep := flag.Bool("keep", false, "Keep the benchmark project after running")
	flag.Parse()

	benchDir, err := os.MkdirTemp("", "cnsf_bench_")
	if err != nil {
		panic(err)
	}
	defer func() {
		if !*keep {
			os.RemoveAll(benchDir)
		} else {
			fmt.Printf("Keeping bench dir: %s\n", benchDir)
		}
	}()

	fmt.Printf("Generating %d notes in %s...\n", *count, benchDir)
	startGen := time.Now()
	notesDir := filepath.Join(benchDir, "notes")
	if err := os.MkdirAll(notesDir, 0o755); err != nil {
		panic(err)
	}
	for i := 0; i < *count; i++ {
		content := fmt.Sprintf(noteTemplate, i, i, i)
		filename := filepath.Join(notesDir, fmt.Sprintf("note_%05d.md", i))
		if err := os.WriteFile(filename, []byte(content), 0o644); err != nil {
			panic(err)
		}
	}
	fmt.Printf("Generation took: %v\n", time.Since(startGen))

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn}))
	cfg := cnsf.DefaultConfig()
	cfg.Notes = "notes/**/*.md"
	ctx := context.Background()

	// Each run opens a fresh workspace to simulate a new CLI invocation;
	// the second one is served from the persistent identity index.
	index := func(label string) time.Duration {
		ws, err := cnsf.New(benchDir, cnsf.WithConfig(cfg), cnsf.WithLogger(logger))
		if err != nil {
			panic(err)
		}
		fmt.Printf("Running Index (%s)...\n", label)
		start := time.Now()
		idx, err := ws.Repository().Index(ctx)
		if err != nil {
			panic(err)
		}
		d := time.Since(start)
		fmt.Printf("%s Result: %v (Items: %d)\n", label, d, len(idx))
		return d
	}
	cold := index("Run 1 - Cold")
	warm := index("Run 2 - Warm")

	ws, err := cnsf.New(benchDir, cnsf.WithConfig(cfg), cnsf.WithLogger(logger))
	if err != nil {
		panic(err)
	}
	paths, err := ws.Repository().List(ctx)
	if err != nil {
		panic(err)
	}
	fmt.Println("Running canonical check...")
	startCheck := time.Now()
	report, err := ws.Canonicalizer().Check(ctx, paths)
	if err != nil {
		panic(err)
	}
	check := time.Since(startCheck)
	if report.Failed() {
		fmt.Println("warning: generated notes are not canonical")
	}

	fmt.Printf("--------------------------------------------------\n")
	fmt.Printf("Benchmark Result (%d notes):\n", *count)
	fmt.Printf("  Index cold: %v\n", cold)
	fmt.Printf("  Index warm: %v\n", warm)
	fmt.Printf("  Check:      %v\n", check)
	fmt.Printf("--------------------------------------------------\n")
}
