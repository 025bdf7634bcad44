package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/cdhutch/cnsf/pkg/adapters/fs"
	"github.com/cdhutch/cnsf/pkg/core"
	"github.com/cdhutch/cnsf/pkg/export"
	"github.com/cdhutch/cnsf/pkg/idmap"
	"github.com/cdhutch/cnsf/pkg/merge"
	"github.com/cdhutch/cnsf/pkg/reconcile"
	"github.com/cdhutch/cnsf/pkg/render"
	"github.com/cdhutch/cnsf/pkg/revision"
	"github.com/cdhutch/cnsf/pkg/tsv"
)

// Stage names, in the order a full run executes them.
const (
	StageHTML      = "html"
	StageAfterMD   = "after-md"
	StageAfterHTML = "after-html"
	StageMerge     = "merge"
	StageUpdate    = "update"
	StageExport    = "export"
	StageSync      = "sync"
)

// Stages lists every stage name.
var Stages = []string{StageHTML, StageAfterMD, StageAfterHTML, StageMerge, StageUpdate, StageExport, StageSync}

// Pipeline runs stages over one dataset.
type Pipeline struct {
	Paths    Paths
	renderer render.Renderer
	mapping  string
	logger   *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithRenderer sets the markdown engine. Default is goldmark.
func WithRenderer(r render.Renderer) Option {
	return func(p *Pipeline) {
		p.renderer = r
	}
}

// WithMappingFile prefills remote ids from an identity mapping on export.
func WithMappingFile(path string) Option {
	return func(p *Pipeline) {
		p.mapping = path
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// New creates a pipeline over paths.
func New(paths Paths, opts ...Option) *Pipeline {
	p := &Pipeline{
		Paths:    paths,
		renderer: render.NewGoldmarkRenderer(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// HTML renders the canonical corpus document to HTML.
func (p *Pipeline) HTML(ctx context.Context) error {
	if err := requireFile("canonical markdown", p.Paths.CanonicalMD); err != nil {
		return err
	}
	src, err := os.ReadFile(p.Paths.CanonicalMD)
	if err != nil {
		return err
	}
	out, err := p.renderer.Render(ctx, src)
	if err != nil {
		return err
	}
	doc := append([]byte(render.Provenance(p.renderer)+"\n"), out...)
	if err := p.Paths.Ensure(); err != nil {
		return err
	}
	if err := fs.WriteFileAtomic(p.Paths.CanonicalHTML, doc, 0o644); err != nil {
		return err
	}
	p.logger.Info("rendered corpus", "path", p.Paths.CanonicalHTML, "renderer", p.renderer.Name())
	return nil
}

// AfterMarkdown extracts AFTER blocks from the canonical markdown.
func (p *Pipeline) AfterMarkdown(ctx context.Context) (int, error) {
	if err := requireFile("canonical markdown", p.Paths.CanonicalMD); err != nil {
		return 0, err
	}
	src, err := os.ReadFile(p.Paths.CanonicalMD)
	if err != nil {
		return 0, err
	}
	blocks := revision.ExtractMarkdown(string(src))
	return len(blocks), p.writeTable(p.Paths.AfterMDTSV, revision.Table(blocks, revision.ColumnMarkdown))
}

// AfterHTML extracts AFTER blocks from the rendered corpus.
func (p *Pipeline) AfterHTML(ctx context.Context) (int, error) {
	if err := requireFile("canonical HTML", p.Paths.CanonicalHTML); err != nil {
		return 0, err
	}
	f, err := os.Open(p.Paths.CanonicalHTML)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	blocks, err := revision.ExtractHTML(f)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", p.Paths.CanonicalHTML, err)
	}
	return len(blocks), p.writeTable(p.Paths.AfterHTMLTSV, revision.Table(blocks, revision.ColumnHTML))
}

// Merge joins the base export with extracted AFTER content. html selects
// the after_html/answer_html pair, otherwise after_md/answer_md.
func (p *Pipeline) Merge(ctx context.Context, html bool) (merge.Result, error) {
	after, out, opts := p.Paths.AfterMDTSV, p.Paths.ImportMDTSV, merge.MarkdownOptions()
	if html {
		after, out, opts = p.Paths.AfterHTMLTSV, p.Paths.ImportHTMLTSV, merge.DefaultOptions()
	}
	if err := requireFile("base export", p.Paths.BaseTSV); err != nil {
		return merge.Result{}, err
	}
	if err := requireFile("extracted AFTER table", after); err != nil {
		return merge.Result{}, err
	}
	base, err := tsv.ReadFile(p.Paths.BaseTSV)
	if err != nil {
		return merge.Result{}, err
	}
	rev, err := tsv.ReadFile(after)
	if err != nil {
		return merge.Result{}, err
	}
	res := merge.Merge(base, rev, opts)
	if err := p.writeTable(out, res.Table); err != nil {
		return res, err
	}
	if !res.Complete() {
		p.logger.Warn("merged table is incomplete", "missing", len(res.Missing), "base_rows", res.BaseRows)
	}
	return res, nil
}

// Update writes merged HTML answers into existing remote notes.
func (p *Pipeline) Update(ctx context.Context, rc *reconcile.Reconciler, opts reconcile.AnswerOptions) (reconcile.AnswerReport, error) {
	if err := requireFile("merged HTML table", p.Paths.ImportHTMLTSV); err != nil {
		return reconcile.AnswerReport{}, err
	}
	t, err := tsv.ReadFile(p.Paths.ImportHTMLTSV)
	if err != nil {
		return reconcile.AnswerReport{}, err
	}
	rows, err := reconcile.AnswerRows(t, merge.DefaultOptions().OutputColumn)
	if err != nil {
		return reconcile.AnswerReport{}, fmt.Errorf("%s: %w", p.Paths.ImportHTMLTSV, err)
	}
	return rc.UpdateAnswers(ctx, rows, opts)
}

// Export renders the dataset's note files into the sync import table.
func (p *Pipeline) Export(ctx context.Context) (int, error) {
	repo := fs.NewRepository(fs.Config{Root: p.Paths.NotesDir, Logger: p.logger})
	loaded, err := repo.Load(ctx)
	if err != nil {
		return 0, err
	}
	notes := make([]core.Note, 0, len(loaded))
	for _, n := range loaded {
		notes = append(notes, *n)
	}

	var mapping idmap.Mapping
	if p.mapping != "" {
		if mapping, err = idmap.Load(p.mapping); err != nil {
			return 0, err
		}
	}
	rows, err := export.Rows(ctx, p.renderer, notes, export.Options{Mapping: mapping})
	if err != nil {
		return 0, err
	}
	t, err := export.Table(rows)
	if err != nil {
		return 0, err
	}
	return len(rows), p.writeTable(p.Paths.SyncTSV, t)
}

// SyncRows loads the sync import table. When a mapping file is configured,
// rows without a noteId are filled from it so notes created by an earlier
// run are updated rather than created again.
func (p *Pipeline) SyncRows() ([]reconcile.Row, error) {
	if err := requireFile("sync import table", p.Paths.SyncTSV); err != nil {
		return nil, err
	}
	t, err := tsv.ReadFile(p.Paths.SyncTSV)
	if err != nil {
		return nil, err
	}
	rows, err := reconcile.ParseRows(t)
	if err != nil {
		return nil, err
	}
	if p.mapping == "" {
		return rows, nil
	}
	mapping, err := idmap.Load(p.mapping)
	if err != nil {
		return nil, err
	}
	n := mapping.Apply(len(rows),
		func(i int) (string, string) { return rows[i].NoteID, rows[i].RemoteID },
		func(i int, remote string) { rows[i].RemoteID = remote },
	)
	p.logger.Debug("prefilled remote ids", "path", p.mapping, "rows", n)
	return rows, nil
}

// Sync pushes the sync import table through rc.
func (p *Pipeline) Sync(ctx context.Context, rc *reconcile.Reconciler) (reconcile.Report, error) {
	rows, err := p.SyncRows()
	if err != nil {
		return reconcile.Report{}, err
	}
	return rc.Sync(ctx, rows)
}

func (p *Pipeline) writeTable(path string, t *tsv.Table) error {
	if err := p.Paths.Ensure(); err != nil {
		return err
	}
	if err := tsv.WriteFile(path, t); err != nil {
		return err
	}
	p.logger.Info("wrote table", "path", path, "rows", t.Len())
	return nil
}
