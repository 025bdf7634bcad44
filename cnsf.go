package cnsf

import (
	"log/slog"
	"net/http"

	"github.com/cdhutch/cnsf/internal/platform"
)

// Version is the release of the module and its CLI.
const Version = "0.4.0"

// --- Types ---

// Workspace binds a project root to its configuration.
type Workspace = platform.Workspace

// Config is the cnsf.yaml project configuration.
type Config = platform.Config

// --- Configuration ---

// Option defines a functional option for opening a Workspace.
type Option = platform.Option

// DefaultConfig returns the built-in configuration.
func DefaultConfig() Config {
	return platform.DefaultConfig()
}

// WithConfig uses cfg instead of reading cnsf.yaml.
func WithConfig(cfg Config) Option {
	return platform.WithConfig(cfg)
}

// WithLogger sets the logger for every component.
func WithLogger(logger *slog.Logger) Option {
	return platform.WithLogger(logger)
}

// WithRenderer overrides the rendering engine by name.
func WithRenderer(engine string) Option {
	return platform.WithRenderer(engine)
}

// WithAnkiURL overrides the AnkiConnect endpoint.
func WithAnkiURL(url string) Option {
	return platform.WithAnkiURL(url)
}

// WithMappingFile overrides the identity mapping log path.
func WithMappingFile(path string) Option {
	return platform.WithMappingFile(path)
}

// WithNoCache disables the persistent note identity index.
func WithNoCache(disabled bool) Option {
	return platform.WithNoCache(disabled)
}

// WithHTTPClient sets the transport used to reach the remote store.
func WithHTTPClient(c *http.Client) Option {
	return platform.WithHTTPClient(c)
}

// WithWatcherErrorHandler registers a callback for watch loop failures.
func WithWatcherErrorHandler(fn func(error)) Option {
	return platform.WithWatcherErrorHandler(fn)
}

// --- Factory ---

// New opens the workspace rooted at root.
func New(root string, opts ...Option) (*Workspace, error) {
	return platform.New(root, opts...)
}

// Open finds the project root above dir and opens it.
func Open(dir string, opts ...Option) (*Workspace, error) {
	return platform.Open(dir, opts...)
}

// FindRoot returns the project root above dir.
func FindRoot(dir string) (string, error) {
	return platform.FindRoot(dir)
}
