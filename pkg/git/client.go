// Package git runs the few git commands needed to canonicalize notes
// before a commit.
package git

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// LockFile is created in the work tree while staged files are rewritten.
const LockFile = ".cnsf.lock"

// Client executes git in a work tree.
type Client struct {
	WorkDir string
	Logger  *slog.Logger
}

// NewClient creates a client for workDir. A nil logger discards debug output.
func NewClient(workDir string, logger *slog.Logger) *Client {
	return &Client{WorkDir: workDir, Logger: logger}
}

// Lock acquires the work tree lock, polling until it is free or ctx ends.
func (c *Client) Lock(ctx context.Context) (func(), error) {
	path := filepath.Join(c.WorkDir, LockFile)
	for {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL, 0o666)
		if err == nil {
			f.Close()
			return func() { os.Remove(path) }, nil
		}
		if !os.IsExist(err) {
			return nil, fmt.Errorf("failed to acquire lock: %w", err)
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("waiting for %s: %w", LockFile, ctx.Err())
		case <-time.After(10 * time.Millisecond):
		}
	}
}

// Run executes git with args in the work tree and returns trimmed output.
func (c *Client) Run(ctx context.Context, args ...string) (string, error) {
	if c.Logger != nil {
		c.Logger.Debug("executing git", "args", args, "dir", c.WorkDir)
	}
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = c.WorkDir

	out, err := cmd.CombinedOutput()
	if err != nil {
		return string(out), fmt.Errorf("git %s failed: %w\nOutput: %s", args[0], err, out)
	}
	return strings.TrimSpace(string(out)), nil
}

// Init creates a repository in the work tree. Re-running it is harmless.
func (c *Client) Init(ctx context.Context) error {
	_, err := c.Run(ctx, "init")
	return err
}

// TopLevel returns the absolute root of the work tree.
func (c *Client) TopLevel(ctx context.Context) (string, error) {
	return c.Run(ctx, "rev-parse", "--show-toplevel")
}

// StagedFiles lists files added, copied or modified in the index, as
// absolute paths. Deleted files are excluded.
func (c *Client) StagedFiles(ctx context.Context) ([]string, error) {
	top, err := c.TopLevel(ctx)
	if err != nil {
		return nil, err
	}
	out, err := c.Run(ctx, "diff", "--cached", "--name-only", "--diff-filter=ACM")
	if err != nil {
		return nil, err
	}
	var files []string
	for _, line := range strings.Split(out, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			files = append(files, filepath.Join(top, filepath.FromSlash(line)))
		}
	}
	return files, nil
}

// Add stages files.
func (c *Client) Add(ctx context.Context, files ...string) error {
	if len(files) == 0 {
		return nil
	}
	_, err := c.Run(ctx, append([]string{"add", "--"}, files...)...)
	return err
}
