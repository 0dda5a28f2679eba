// Package config loads the optional project configuration file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/sokinpui/markpatch/internal/marker"
	"github.com/sokinpui/markpatch/model"
)

// FileNames are searched in order in the project directory.
var FileNames = []string{".markpatch.yaml", ".markpatch.yml", ".markpatch.toml"}

// DefaultManifest is the project manifest file name.
const DefaultManifest = ".projassist.json"

// FileConfig mirrors the configuration file. Pointer fields distinguish an
// absent key from a zero value.
type FileConfig struct {
	ContextLines     *int   `yaml:"context_lines" toml:"context_lines"`
	IgnoreWhitespace *bool  `yaml:"ignore_whitespace" toml:"ignore_whitespace"`
	IgnoreCase       *bool  `yaml:"ignore_case" toml:"ignore_case"`
	LockMarkers      *bool  `yaml:"lock_markers" toml:"lock_markers"`
	Manifest         string `yaml:"manifest" toml:"manifest"`

	Git struct {
		Enabled     *bool  `yaml:"enabled" toml:"enabled"`
		Push        *bool  `yaml:"push" toml:"push"`
		Remote      string `yaml:"remote" toml:"remote"`
		AuthorName  string `yaml:"author_name" toml:"author_name"`
		AuthorEmail string `yaml:"author_email" toml:"author_email"`
	} `yaml:"git" toml:"git"`

	Dialects struct {
		Styles map[string]struct {
			Prefix string `yaml:"prefix" toml:"prefix"`
			Suffix string `yaml:"suffix" toml:"suffix"`
		} `yaml:"styles" toml:"styles"`
		Extensions map[string]string `yaml:"extensions" toml:"extensions"`
		Markup     []string          `yaml:"markup" toml:"markup"`
		Default    string            `yaml:"default" toml:"default"`
	} `yaml:"dialects" toml:"dialects"`
}

// GitConfig controls the version-control sink.
type GitConfig struct {
	Enabled     bool
	Push        bool
	Remote      string
	AuthorName  string
	AuthorEmail string
}

// Config is the resolved configuration.
type Config struct {
	ContextLines     int
	IgnoreWhitespace bool
	IgnoreCase       bool
	LockMarkers      bool
	Manifest         string
	Git              GitConfig
	Table            marker.Table
	// Source is the file the values were read from, empty for defaults.
	Source string
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		ContextLines: model.DefaultContextLines,
		Manifest:     DefaultManifest,
		Git: GitConfig{
			Enabled: true,
			Remote:  "origin",
		},
		Table: marker.DefaultTable(),
	}
}

// Find returns the first configuration file present in dir, or "".
func Find(dir string) string {
	for _, name := range FileNames {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// LoadDir loads the configuration file found in dir, or the defaults.
func LoadDir(dir string) (*Config, error) {
	return Load(Find(dir))
}

// Load reads path over the defaults. An empty path yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var fc FileConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		err = toml.Unmarshal(data, &fc)
	default:
		err = yaml.Unmarshal(data, &fc)
	}
	if err != nil {
		return nil, fmt.Errorf("error parsing config file %s: %w", path, err)
	}

	if err := cfg.overlay(&fc); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	cfg.Source = path
	return cfg, nil
}

func (c *Config) overlay(fc *FileConfig) error {
	if fc.ContextLines != nil {
		c.ContextLines = max(*fc.ContextLines, 0)
	}
	if fc.IgnoreWhitespace != nil {
		c.IgnoreWhitespace = *fc.IgnoreWhitespace
	}
	if fc.IgnoreCase != nil {
		c.IgnoreCase = *fc.IgnoreCase
	}
	if fc.LockMarkers != nil {
		c.LockMarkers = *fc.LockMarkers
	}
	if fc.Manifest != "" {
		c.Manifest = fc.Manifest
	}

	if fc.Git.Enabled != nil {
		c.Git.Enabled = *fc.Git.Enabled
	}
	if fc.Git.Push != nil {
		c.Git.Push = *fc.Git.Push
	}
	if fc.Git.Remote != "" {
		c.Git.Remote = fc.Git.Remote
	}
	if fc.Git.AuthorName != "" {
		c.Git.AuthorName = fc.Git.AuthorName
	}
	if fc.Git.AuthorEmail != "" {
		c.Git.AuthorEmail = fc.Git.AuthorEmail
	}

	table := c.Table
	for name, s := range fc.Dialects.Styles {
		table = table.WithStyle(name, marker.Style{Prefix: s.Prefix, Suffix: s.Suffix})
	}
	exts := make([]string, 0, len(fc.Dialects.Extensions))
	for ext := range fc.Dialects.Extensions {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	for _, ext := range exts {
		var err error
		if table, err = table.WithExtension(ext, fc.Dialects.Extensions[ext]); err != nil {
			return err
		}
	}
	if len(fc.Dialects.Markup) > 0 {
		table = table.WithMarkup(fc.Dialects.Markup...)
	}
	if fc.Dialects.Default != "" {
		var err error
		if table, err = table.WithDefault(fc.Dialects.Default); err != nil {
			return err
		}
	}
	c.Table = table
	return nil
}
