package render

import (
	"bytes"
	"context"
	"fmt"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
)

// GoldmarkRenderer is the built-in engine. It is stateless and safe for
// concurrent use.
type GoldmarkRenderer struct {
	engine goldmark.Markdown
}

// NewGoldmarkRenderer builds a renderer with GFM extensions, heading ids,
// and raw HTML passed through.
func NewGoldmarkRenderer() *GoldmarkRenderer {
	return &GoldmarkRenderer{
		engine: goldmark.New(
			goldmark.WithExtensions(extension.GFM, extension.Footnote),
			goldmark.WithParserOptions(parser.WithAutoHeadingID()),
			goldmark.WithRendererOptions(html.WithUnsafe()),
		),
	}
}

// Render converts markdown to HTML.
func (g *GoldmarkRenderer) Render(ctx context.Context, markdown []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := g.engine.Convert(markdown, &buf); err != nil {
		return nil, fmt.Errorf("markdown render: %w", err)
	}
	return buf.Bytes(), nil
}

// Name implements Renderer.
func (g *GoldmarkRenderer) Name() string {
	return EngineGoldmark
}
