// Package config holds the settings of the editor core, read from YAML.
package config

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the full editor configuration.
type Config struct {
	Headings HeadingsConfig `yaml:"headings"`
	Links    LinksConfig    `yaml:"links"`
	Media    MediaConfig    `yaml:"media"`
	Paste    PasteConfig    `yaml:"paste"`
	Output   OutputConfig   `yaml:"output"`
}

// HeadingsConfig limits the heading levels offered by the editor.
type HeadingsConfig struct {
	MaxLevel int `yaml:"max_level"`
}

// LinksConfig configures the link modal.
type LinksConfig struct {
	DefaultTarget  string   `yaml:"default_target"`
	AllowedTargets []string `yaml:"allowed_targets"`
}

// MediaConfig lists the hosts serving platform media. Pasted images from
// other hosts are tagged for upload.
type MediaConfig struct {
	Hosts []string `yaml:"hosts"`
}

// PasteConfig configures the paste normalizer.
type PasteConfig struct {
	// Parse plain text pastes as Markdown.
	Markdown bool `yaml:"markdown"`
}

// OutputConfig configures the serialized markup.
type OutputConfig struct {
	Minify bool `yaml:"minify"`
}

// MaxHeadingLevel is the deepest heading the post schema supports.
const MaxHeadingLevel = 3

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Headings: HeadingsConfig{MaxLevel: MaxHeadingLevel},
		Links: LinksConfig{
			AllowedTargets: []string{"", "_blank", "_self"},
		},
		Paste: PasteConfig{Markdown: true},
	}
}

// Parse reads a YAML configuration. Missing keys keep their default value.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks that the values are usable.
func (c *Config) Validate() error {
	if c.Headings.MaxLevel < 1 || c.Headings.MaxLevel > MaxHeadingLevel {
		return fmt.Errorf("headings.max_level must be between 1 and %d, got %d", MaxHeadingLevel, c.Headings.MaxLevel)
	}
	if !c.TargetAllowed(c.Links.DefaultTarget) {
		return fmt.Errorf("links.default_target %q is not in links.allowed_targets", c.Links.DefaultTarget)
	}
	for i, host := range c.Media.Hosts {
		if host == "" || strings.ContainsAny(host, "/: ") {
			return fmt.Errorf("media.hosts[%d]: %q is not a host name", i, host)
		}
	}
	return nil
}

// TargetAllowed tells whether a link target can be set by the link modal.
// An empty list allows any target.
func (c *Config) TargetAllowed(target string) bool {
	if len(c.Links.AllowedTargets) == 0 {
		return true
	}
	return slices.Contains(c.Links.AllowedTargets, target)
}
