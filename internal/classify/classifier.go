// Package classify decides whether a normalized URL points at a sensitive
// resource. Classification is a pure function of the URL path: it never
// performs I/O, so a confirmed hit can be reported without being fetched.
package classify

import (
	"fmt"
	"path"
	"regexp"
	"strings"

	"github.com/nao1215/exposcan/internal/model"
	"github.com/nao1215/exposcan/internal/target"
)

// DefaultExtensions are file extensions that indicate configuration,
// credentials, certificates, backups or database content.
var DefaultExtensions = []string{
	"config", "ini", "env", "zip", "bak", "key", "conf", "properties",
	"sql", "db", "dbf", "pem", "crt", "jks", "p12", "audit",
}

// DefaultPathPatterns match backup/archive directories and exposed
// version-control metadata.
var DefaultPathPatterns = []string{
	`/(backup|archive)/`,
	`\.(git|svn)/`,
}

// DefaultIgnoreExtensions are static image assets that are never worth fetching.
var DefaultIgnoreExtensions = []string{"png", "jpg", "jpeg", "gif"}

// Classification is the result of classifying one URL.
type Classification struct {
	// Sensitive is true when a rule matched.
	Sensitive bool

	// Rule is the rule that matched. Empty when Sensitive is false.
	Rule model.Rule

	// Reason explains the match, e.g. "sensitive extension: env".
	Reason string
}

// Clean is the classification of a URL that matched no rule.
var Clean = Classification{}

// pathPattern keeps the source text next to the compiled expression so the
// reason can quote the pattern as configured.
type pathPattern struct {
	source string
	re     *regexp.Regexp
}

// Classifier applies the sensitive-resource rules. It is immutable after
// construction and safe for concurrent use.
type Classifier struct {
	extensions       map[string]struct{}
	patterns         []pathPattern
	ignoreExtensions map[string]struct{}
}

// Option configures a Classifier.
type Option func(*Classifier) error

// WithExtensions replaces the sensitive extension set.
// Extensions are matched without the leading dot, case-insensitively.
func WithExtensions(exts ...string) Option {
	return func(c *Classifier) error {
		c.extensions = toSet(exts)
		return nil
	}
}

// WithPathPatterns replaces the path pattern list. Each pattern is compiled
// case-insensitively; an invalid pattern makes New fail.
func WithPathPatterns(patterns ...string) Option {
	return func(c *Classifier) error {
		compiled := make([]pathPattern, 0, len(patterns))
		for _, p := range patterns {
			re, err := regexp.Compile("(?i)" + p)
			if err != nil {
				return fmt.Errorf("invalid path pattern %q: %w", p, err)
			}
			compiled = append(compiled, pathPattern{source: p, re: re})
		}
		c.patterns = compiled
		return nil
	}
}

// WithIgnoreExtensions replaces the static-asset extension set.
func WithIgnoreExtensions(exts ...string) Option {
	return func(c *Classifier) error {
		c.ignoreExtensions = toSet(exts)
		return nil
	}
}

// New creates a Classifier with the default rules, then applies opts.
func New(opts ...Option) (*Classifier, error) {
	c := &Classifier{}

	defaults := []Option{
		WithExtensions(DefaultExtensions...),
		WithPathPatterns(DefaultPathPatterns...),
		WithIgnoreExtensions(DefaultIgnoreExtensions...),
	}
	for _, opt := range append(defaults, opts...) {
		if err := opt(c); err != nil {
			return nil, err
		}
	}

	return c, nil
}

// Classify checks the URL path against the rules in order and returns the
// first match:
//  1. the final extension is sensitive (reported as a compound archive when
//     the extension before it is sensitive too, e.g. db.sql.zip)
//  2. a path pattern matches
//  3. one of the last two dot-segments of a multi-dot path is sensitive
func (c *Classifier) Classify(u target.URL) Classification {
	p := strings.ToLower(u.Path())
	parts := strings.Split(p, ".")
	n := len(parts)

	if ext := parts[n-1]; c.isSensitive(ext) {
		if n > 2 && c.isSensitive(parts[n-2]) {
			return compound(parts[n-2], ext)
		}
		return Classification{
			Sensitive: true,
			Rule:      model.RuleExtension,
			Reason:    "sensitive extension: " + ext,
		}
	}

	for _, pat := range c.patterns {
		if pat.re.MatchString(p) {
			return Classification{
				Sensitive: true,
				Rule:      model.RulePathPattern,
				Reason:    "path pattern: " + pat.source,
			}
		}
	}

	if n > 2 && (c.isSensitive(parts[n-2]) || c.isSensitive(parts[n-1])) {
		return compound(parts[n-2], parts[n-1])
	}

	return Clean
}

// Ignored reports whether the URL is a static asset that should not be fetched.
// It does not change the sensitivity of the URL.
func (c *Classifier) Ignored(u target.URL) bool {
	ext := strings.TrimPrefix(path.Ext(strings.ToLower(u.Path())), ".")
	if ext == "" {
		return false
	}
	_, ok := c.ignoreExtensions[ext]
	return ok
}

func (c *Classifier) isSensitive(ext string) bool {
	_, ok := c.extensions[ext]
	return ok
}

func compound(first, second string) Classification {
	return Classification{
		Sensitive: true,
		Rule:      model.RuleCompoundArchive,
		Reason:    "compound archive: " + first + "+" + second,
	}
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		v = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(v), "."))
		if v != "" {
			set[v] = struct{}{}
		}
	}
	return set
}
