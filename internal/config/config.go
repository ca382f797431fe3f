package config

import (
	"fmt"
	"path/filepath"
	"slices"
	"time"

	"github.com/adrg/xdg"
)

const (
	// AppName is the application name used for XDG directory paths.
	AppName = "exposcan"

	// DefaultMaxDepth is the deepest crawl level; seeds are depth 0.
	DefaultMaxDepth = 3

	// DefaultLinkDepth is the deepest level whose pages are parsed for links.
	DefaultLinkDepth = 0

	// DefaultRequestTimeout bounds each request and each child subtree.
	DefaultRequestTimeout = 25 * time.Second

	// DefaultConcurrency is the number of requests allowed in flight.
	DefaultConcurrency = 200

	// MinConcurrency and MaxConcurrency bound the configured concurrency.
	MinConcurrency = 30
	MaxConcurrency = 200

	// DefaultMaxBodySize caps how much of a response is read.
	DefaultMaxBodySize int64 = 10 * 1024 * 1024

	// DefaultDedupCapacity is the initial capacity of the dedup filter.
	DefaultDedupCapacity uint = 10000

	// DefaultDedupErrorRate is the target false positive rate of the dedup filter.
	DefaultDedupErrorRate = 0.001

	// DefaultFormat is the report format.
	DefaultFormat = "csv"
)

// Formats lists the supported report formats.
var Formats = []string{"csv", "markdown", "json"}

// Default policy lists. NewConfig copies them so callers can modify a
// Config freely.
var (
	DefaultForbiddenPorts = []int{22, 3306, 3389}

	DefaultSensitiveExtensions = []string{
		"config", "ini", "env", "zip", "bak", "key", "conf", "properties",
		"sql", "db", "dbf", "pem", "crt", "jks", "p12", "audit",
	}

	DefaultSensitivePathPatterns = []string{
		`/(backup|archive)/`,
		`\.(git|svn)/`,
	}

	DefaultIgnoreExtensions = []string{"png", "jpg", "jpeg", "gif"}
)

// Config holds every option of a scan run. It is passed explicitly to the
// components that need it; there is no global configuration.
type Config struct {
	// MaxDepth is the deepest level a discovered URL is considered at.
	MaxDepth int

	// LinkDepth is the deepest level whose HTML is parsed for links.
	LinkDepth int

	// RequestTimeout bounds a single request and a whole child subtree.
	RequestTimeout time.Duration

	// Concurrency is the number of requests allowed in flight.
	// ClampConcurrency brings it into [MinConcurrency, MaxConcurrency].
	Concurrency int

	// RateLimit caps request starts per second. 0 means unlimited.
	RateLimit float64

	// ForbiddenPorts are ports a URL may never target.
	ForbiddenPorts []int

	// SensitiveExtensions, SensitivePathPatterns and IgnoreExtensions drive
	// the classifier.
	SensitiveExtensions   []string
	SensitivePathPatterns []string
	IgnoreExtensions      []string

	// UserAgents is the pool one User-Agent per run is drawn from.
	// Empty uses the built-in browser pool.
	UserAgents []string

	// MaxBodySize caps how many bytes of a response are read.
	MaxBodySize int64

	// DedupCapacity and DedupErrorRate size the dedup filter.
	DedupCapacity  uint
	DedupErrorRate float64

	// OutputDir is where the report file is written.
	OutputDir string

	// Format is the report format: csv, markdown or json.
	Format string

	// Verbose enables debug logging.
	Verbose bool

	// ShowProgress enables the live progress line on a terminal.
	ShowProgress bool

	// SaveHistory stores the run in the SQLite history database.
	SaveHistory bool

	// DBDir is the directory of the history database.
	DBDir string

	// ConfigFilePath is an explicit policy file path. Empty means search.
	ConfigFilePath string
}

// NewConfig returns a Config populated with defaults.
func NewConfig() *Config {
	return &Config{
		MaxDepth:              DefaultMaxDepth,
		LinkDepth:             DefaultLinkDepth,
		RequestTimeout:        DefaultRequestTimeout,
		Concurrency:           DefaultConcurrency,
		ForbiddenPorts:        slices.Clone(DefaultForbiddenPorts),
		SensitiveExtensions:   slices.Clone(DefaultSensitiveExtensions),
		SensitivePathPatterns: slices.Clone(DefaultSensitivePathPatterns),
		IgnoreExtensions:      slices.Clone(DefaultIgnoreExtensions),
		MaxBodySize:           DefaultMaxBodySize,
		DedupCapacity:         DefaultDedupCapacity,
		DedupErrorRate:        DefaultDedupErrorRate,
		OutputDir:             ".",
		Format:                DefaultFormat,
		ShowProgress:          true,
		SaveHistory:           true,
		DBDir:                 XDGDataDir(),
	}
}

// XDGDataDir returns the XDG data directory for exposcan, where the run
// history database lives.
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for exposcan.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// ClampConcurrency brings Concurrency into [MinConcurrency, MaxConcurrency]
// and reports whether it had to change.
func (c *Config) ClampConcurrency() bool {
	clamped := min(max(c.Concurrency, MinConcurrency), MaxConcurrency)
	if clamped == c.Concurrency {
		return false
	}
	c.Concurrency = clamped
	return true
}

// Validate returns the first invalid option it finds.
func (c *Config) Validate() error {
	if c.MaxDepth < 0 {
		return ErrInvalidDepth
	}
	if c.LinkDepth < 0 {
		return ErrInvalidLinkDepth
	}
	if c.RequestTimeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.Concurrency <= 0 {
		return ErrInvalidConcurrency
	}
	if c.RateLimit < 0 {
		return ErrInvalidRateLimit
	}
	if c.MaxBodySize <= 0 {
		return ErrInvalidMaxBodySize
	}
	if c.DedupCapacity == 0 || c.DedupErrorRate <= 0 || c.DedupErrorRate >= 1 {
		return ErrInvalidDedup
	}
	for _, p := range c.ForbiddenPorts {
		if p < 1 || p > 65535 {
			return fmt.Errorf("%w: %d", ErrInvalidPort, p)
		}
	}
	if !slices.Contains(Formats, c.Format) {
		return fmt.Errorf("%w: %q", ErrUnknownFormat, c.Format)
	}
	return nil
}
