package platform

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/cdhutch/cnsf/pkg/ankiconnect"
	"github.com/cdhutch/cnsf/pkg/pipeline"
	"github.com/cdhutch/cnsf/pkg/reconcile"
	"github.com/cdhutch/cnsf/pkg/render"
)

// ConfigFile is the optional project file at the repository root.
const ConfigFile = "cnsf.yaml"

// Config is the project configuration. Directories are relative to the
// repository root unless absolute.
type Config struct {
	Sources   string `yaml:"sources" validate:"required"`
	Exports   string `yaml:"exports" validate:"required"`
	Generated string `yaml:"generated" validate:"required"`
	// Notes is a doublestar pattern, relative to the root, selecting note files.
	Notes         string `yaml:"notes" validate:"required"`
	AnkiURL       string `yaml:"anki_url" validate:"required,url"`
	Renderer      string `yaml:"renderer" validate:"oneof=goldmark multimarkdown pandoc"`
	IdentityField string `yaml:"identity_field" validate:"required,alphanum"`
	// MapFile is the identity mapping log. Empty disables logging.
	MapFile string `yaml:"map_file"`
}

var configValidate = validator.New()

// DefaultConfig returns the built-in configuration.
func DefaultConfig() Config {
	return Config{
		Sources:       pipeline.DefaultSourcesDir,
		Exports:       pipeline.DefaultExportsDir,
		Generated:     pipeline.DefaultGeneratedDir,
		Notes:         pipeline.DefaultSourcesDir + "/**/*.md",
		AnkiURL:       ankiconnect.DefaultURL,
		Renderer:      render.EngineGoldmark,
		IdentityField: reconcile.DefaultIdentityField,
	}
}

// LoadConfig reads root/cnsf.yaml over the defaults. A missing file yields
// the defaults. Unknown keys are rejected.
func LoadConfig(root string) (Config, error) {
	cfg := DefaultConfig()
	path := filepath.Join(root, ConfigFile)
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, err
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks every field.
func (c Config) Validate() error {
	err := configValidate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s: invalid value %q (%s)", fe.Field(), fmt.Sprint(fe.Value()), fe.Tag()))
	}
	return errors.New(strings.Join(msgs, "; "))
}

// Marshal renders the configuration as YAML.
func (c Config) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
