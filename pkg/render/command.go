package render

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"github.com/cdhutch/cnsf/pkg/core"
)

// CommandRenderer runs an external engine that reads markdown on stdin and
// writes HTML on stdout.
type CommandRenderer struct {
	Path string
	Args []string
	// VersionArgs, when set, are used once to describe the engine in Name.
	VersionArgs []string

	nameOnce sync.Once
	name     string
}

// NewCommandRenderer resolves the first of candidates found on PATH.
func NewCommandRenderer(candidates []string, args ...string) (*CommandRenderer, error) {
	for _, c := range candidates {
		if p, err := exec.LookPath(c); err == nil {
			return &CommandRenderer{Path: p, Args: args}, nil
		}
	}
	return nil, &core.ConfigError{
		Component: "renderer",
		Err:       fmt.Errorf("none of %s found on PATH", strings.Join(candidates, ", ")),
	}
}

// Multimarkdown returns the MultiMarkdown engine.
func Multimarkdown() (*CommandRenderer, error) {
	r, err := NewCommandRenderer([]string{"multimarkdown", "mmd"})
	if err != nil {
		return nil, err
	}
	r.VersionArgs = []string{"--version"}
	return r, nil
}

// Pandoc returns the pandoc engine converting markdown to HTML.
func Pandoc() (*CommandRenderer, error) {
	r, err := NewCommandRenderer([]string{"pandoc"}, "-f", "markdown", "-t", "html")
	if err != nil {
		return nil, err
	}
	r.VersionArgs = []string{"--version"}
	return r, nil
}

// Render pipes markdown through the engine. A failing engine is a
// configuration problem, not a data error, so it yields *core.ConfigError.
func (c *CommandRenderer) Render(ctx context.Context, markdown []byte) ([]byte, error) {
	cmd := exec.CommandContext(ctx, c.Path, c.Args...)
	cmd.Stdin = bytes.NewReader(markdown)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = strings.TrimSpace(stdout.String())
		}
		return nil, &core.ConfigError{
			Component: "renderer " + filepath.Base(c.Path),
			Err:       fmt.Errorf("%w: %s", err, msg),
		}
	}
	return stdout.Bytes(), nil
}

// Name returns the first line of the engine's version output, or the
// executable name.
func (c *CommandRenderer) Name() string {
	c.nameOnce.Do(func() {
		c.name = filepath.Base(c.Path)
		if len(c.VersionArgs) == 0 {
			return
		}
		out, err := exec.Command(c.Path, c.VersionArgs...).CombinedOutput()
		if err != nil {
			return
		}
		if line, _, _ := strings.Cut(strings.TrimSpace(string(out)), "\n"); line != "" {
			c.name = strings.TrimSpace(line)
		}
	})
	return c.name
}
