package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultConfigFile is the policy file looked up in the current directory.
	DefaultConfigFile = ".exposcan.yaml"

	// XDGConfigFile is the policy file name inside the XDG config directory.
	XDGConfigFile = "config.yaml"
)

// File is the YAML policy file. Pointer and nil-slice fields distinguish
// "not set" from a zero value so that Apply only overrides what is present.
type File struct {
	MaxDepth              *int     `yaml:"max_depth,omitempty"`
	LinkDepth             *int     `yaml:"link_depth,omitempty"`
	RequestTimeoutSeconds *int     `yaml:"request_timeout_seconds,omitempty"`
	ConcurrencyLimit      *int     `yaml:"concurrency_limit,omitempty"`
	RateLimit             *float64 `yaml:"rate_limit,omitempty"`
	ForbiddenPorts        []int    `yaml:"forbidden_ports,omitempty"`
	SensitiveExtensions   []string `yaml:"sensitive_extensions,omitempty"`
	SensitivePathPatterns []string `yaml:"sensitive_path_patterns,omitempty"`
	IgnoreExtensions      []string `yaml:"ignore_extensions,omitempty"`
	UserAgents            []string `yaml:"user_agents,omitempty"`
	MaxBodySize           *int64   `yaml:"max_body_size,omitempty"`
	DedupCapacity         *uint    `yaml:"dedup_capacity,omitempty"`
	DedupErrorRate        *float64 `yaml:"dedup_error_rate,omitempty"`
	OutputDir             *string  `yaml:"output_dir,omitempty"`
	Format                *string  `yaml:"format,omitempty"`
}

// LoadConfigFile reads a policy file. Unknown keys are rejected so that a
// typo does not silently fall back to a default.
// A missing file returns ErrConfigNotFound.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidConfigFile, path, err)
	}

	return &f, nil
}

// Apply overlays every value set in the file onto c.
func (f *File) Apply(c *Config) {
	if f.MaxDepth != nil {
		c.MaxDepth = *f.MaxDepth
	}
	if f.LinkDepth != nil {
		c.LinkDepth = *f.LinkDepth
	}
	if f.RequestTimeoutSeconds != nil {
		c.RequestTimeout = time.Duration(*f.RequestTimeoutSeconds) * time.Second
	}
	if f.ConcurrencyLimit != nil {
		c.Concurrency = *f.ConcurrencyLimit
	}
	if f.RateLimit != nil {
		c.RateLimit = *f.RateLimit
	}
	if f.ForbiddenPorts != nil {
		c.ForbiddenPorts = f.ForbiddenPorts
	}
	if f.SensitiveExtensions != nil {
		c.SensitiveExtensions = f.SensitiveExtensions
	}
	if f.SensitivePathPatterns != nil {
		c.SensitivePathPatterns = f.SensitivePathPatterns
	}
	if f.IgnoreExtensions != nil {
		c.IgnoreExtensions = f.IgnoreExtensions
	}
	if f.UserAgents != nil {
		c.UserAgents = f.UserAgents
	}
	if f.MaxBodySize != nil {
		c.MaxBodySize = *f.MaxBodySize
	}
	if f.DedupCapacity != nil {
		c.DedupCapacity = *f.DedupCapacity
	}
	if f.DedupErrorRate != nil {
		c.DedupErrorRate = *f.DedupErrorRate
	}
	if f.OutputDir != nil {
		c.OutputDir = *f.OutputDir
	}
	if f.Format != nil {
		c.Format = *f.Format
	}
}

// FindConfigFile searches for the policy file in the following order:
//  1. configPath, when given
//  2. .exposcan.yaml in the current directory
//  3. config.yaml in the XDG config directory
//
// It returns an empty string when nothing is found.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	if cwd, err := os.Getwd(); err == nil {
		cwdConfig := filepath.Join(cwd, DefaultConfigFile)
		if _, err := os.Stat(cwdConfig); err == nil {
			return cwdConfig
		}
	}

	xdgConfig := filepath.Join(XDGConfigDir(), XDGConfigFile)
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig
	}

	return ""
}
