package platform

import (
	"log/slog"
	"net/http"
)

// options holds the internal configuration for a Workspace.
type options struct {
	config        *Config
	logger        *slog.Logger
	renderer      string
	ankiURL       string
	mapFile       *string
	noCache       bool
	httpClient    *http.Client
	watcherErrors func(error)
}

// Option defines a functional option for configuring a Workspace.
type Option func(*options)

func defaultOptions() *options {
	return &options{}
}

// WithConfig uses cfg instead of reading cnsf.yaml.
func WithConfig(cfg Config) Option {
	return func(o *options) {
		o.config = &cfg
	}
}

// WithLogger sets the logger handed to every component.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithRenderer overrides the configured rendering engine by name.
func WithRenderer(engine string) Option {
	return func(o *options) {
		o.renderer = engine
	}
}

// WithAnkiURL overrides the configured AnkiConnect endpoint.
func WithAnkiURL(url string) Option {
	return func(o *options) {
		o.ankiURL = url
	}
}

// WithMappingFile overrides the identity mapping log path. An empty path
// disables the log.
func WithMappingFile(path string) Option {
	return func(o *options) {
		o.mapFile = &path
	}
}

// WithNoCache disables the persistent identity index of the note repository.
func WithNoCache(disabled bool) Option {
	return func(o *options) {
		o.noCache = disabled
	}
}

// WithHTTPClient sets the transport used to reach the remote store.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) {
		o.httpClient = c
	}
}

// WithWatcherErrorHandler registers a callback for errors raised inside the
// watch loop, which are otherwise only logged.
func WithWatcherErrorHandler(fn func(error)) Option {
	return func(o *options) {
		o.watcherErrors = fn
	}
}
