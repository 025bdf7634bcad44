package platform

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/aretw0/introspection"

	"github.com/cdhutch/cnsf/pkg/adapters/fs"
	"github.com/cdhutch/cnsf/pkg/ankiconnect"
	"github.com/cdhutch/cnsf/pkg/canon"
	"github.com/cdhutch/cnsf/pkg/idmap"
	"github.com/cdhutch/cnsf/pkg/pipeline"
	"github.com/cdhutch/cnsf/pkg/reconcile"
	"github.com/cdhutch/cnsf/pkg/render"
)

// CorpusExclude keeps reviewed corpus documents out of the note set.
const CorpusExclude = "**/*__canonical.md"

// Workspace binds a project root to its configuration and builds the
// components that operate on it.
type Workspace struct {
	Root   string
	Config Config

	repo   *fs.Repository
	opts   *options
	logger *slog.Logger

	mu       sync.Mutex
	renderer render.Renderer
}

// New opens the workspace at root. The configuration is read from
// root/cnsf.yaml unless WithConfig is given; option overrides apply last.
func New(root string, opts ...Option) (*Workspace, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if o.config != nil {
		cfg = *o.config
	} else if cfg, err = LoadConfig(abs); err != nil {
		return nil, err
	}
	if o.renderer != "" {
		cfg.Renderer = o.renderer
	}
	if o.ankiURL != "" {
		cfg.AnkiURL = o.ankiURL
	}
	if o.mapFile != nil {
		cfg.MapFile = *o.mapFile
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger := o.logger
	if logger == nil {
		logger = slog.Default()
	}

	w := &Workspace{Root: abs, Config: cfg, opts: o, logger: logger}
	w.repo = fs.NewRepository(fs.Config{
		Root:         abs,
		Pattern:      cfg.Notes,
		Exclude:      []string{CorpusExclude},
		NoCache:      o.noCache,
		Logger:       logger,
		ErrorHandler: o.watcherErrors,
	})
	return w, nil
}

// Open finds the project root above startDir and opens it.
func Open(startDir string, opts ...Option) (*Workspace, error) {
	root, err := FindRoot(startDir)
	if err != nil {
		return nil, err
	}
	return New(root, opts...)
}

// Path resolves a configured path against the root.
func (w *Workspace) Path(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(w.Root, filepath.FromSlash(p))
}

// Repository returns the note repository.
func (w *Workspace) Repository() *fs.Repository {
	return w.repo
}

// Renderer returns the configured engine, resolving it on first use.
// An unavailable external engine is a *core.ConfigError.
func (w *Workspace) Renderer() (render.Renderer, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.renderer != nil {
		return w.renderer, nil
	}
	r, err := render.ByName(w.Config.Renderer)
	if err != nil {
		return nil, err
	}
	w.renderer = r
	return r, nil
}

// Canonicalizer returns a canonicalizer logging through the workspace logger.
func (w *Workspace) Canonicalizer(opts ...canon.Option) *canon.Canonicalizer {
	return canon.New(append([]canon.Option{canon.WithLogger(w.logger)}, opts...)...)
}

// Client returns an AnkiConnect client for the configured endpoint.
func (w *Workspace) Client() *ankiconnect.Client {
	opts := []ankiconnect.Option{ankiconnect.WithLogger(w.logger)}
	if w.opts.httpClient != nil {
		opts = append(opts, ankiconnect.WithHTTPClient(w.opts.httpClient))
	}
	return ankiconnect.New(w.Config.AnkiURL, opts...)
}

// MappingLog returns the identity mapping log, or nil when none is configured.
func (w *Workspace) MappingLog() *idmap.Log {
	if w.Config.MapFile == "" {
		return nil
	}
	return idmap.NewLog(w.Path(w.Config.MapFile))
}

// Reconciler builds a sync reconciler against the configured store.
// Extra options are applied after the workspace defaults.
func (w *Workspace) Reconciler(opts ...reconcile.Option) *reconcile.Reconciler {
	base := []reconcile.Option{
		reconcile.WithLogger(w.logger),
		reconcile.WithIdentityField(w.Config.IdentityField),
	}
	if log := w.MappingLog(); log != nil {
		base = append(base, reconcile.WithMappingLog(log))
	}
	return reconcile.New(w.Client(), append(base, opts...)...)
}

// Pipeline builds the stage runner for a dataset slug.
func (w *Workspace) Pipeline(slug string) (*pipeline.Pipeline, error) {
	paths, err := pipeline.NewPaths(w.Root, w.Config.Sources, w.Config.Exports, w.Config.Generated, slug)
	if err != nil {
		return nil, err
	}
	r, err := w.Renderer()
	if err != nil {
		return nil, err
	}
	opts := []pipeline.Option{pipeline.WithLogger(w.logger), pipeline.WithRenderer(r)}
	if w.Config.MapFile != "" {
		opts = append(opts, pipeline.WithMappingFile(w.Path(w.Config.MapFile)))
	}
	return pipeline.New(paths, opts...), nil
}

// WorkspaceState exposes internal state for observability.
type WorkspaceState struct {
	Root       string `json:"root"`
	Config     Config `json:"config"`
	Renderer   string `json:"renderer,omitempty"`
	Repository any    `json:"repository"`
}

// State implements introspection.Introspectable.
func (w *Workspace) State() any {
	w.mu.Lock()
	name := ""
	if w.renderer != nil {
		name = w.renderer.Name()
	}
	w.mu.Unlock()
	return WorkspaceState{
		Root:       w.Root,
		Config:     w.Config,
		Renderer:   name,
		Repository: w.repo.State(),
	}
}

// ComponentType implements introspection.Component.
func (w *Workspace) ComponentType() string {
	return "workspace"
}

var _ introspection.Introspectable = (*Workspace)(nil)
var _ introspection.Component = (*Workspace)(nil)
