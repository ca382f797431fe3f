package target

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// DefaultForbiddenPorts are the ports the scanner never connects to:
// SSH, MySQL and RDP.
var DefaultForbiddenPorts = []int{22, 3306, 3389}

// trackingPrefix marks query parameters that are stripped during normalization.
const trackingPrefix = "utm_"

// Normalizer canonicalizes raw strings into URLs. It is safe for
// concurrent use once constructed.
type Normalizer struct {
	forbiddenPorts map[int]struct{}
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithForbiddenPorts replaces the forbidden port set.
func WithForbiddenPorts(ports ...int) Option {
	return func(n *Normalizer) {
		n.forbiddenPorts = make(map[int]struct{}, len(ports))
		for _, p := range ports {
			n.forbiddenPorts[p] = struct{}{}
		}
	}
}

// NewNormalizer creates a Normalizer with DefaultForbiddenPorts.
func NewNormalizer(opts ...Option) *Normalizer {
	n := &Normalizer{}
	WithForbiddenPorts(DefaultForbiddenPorts...)(n)

	for _, opt := range opts {
		opt(n)
	}

	return n
}

// IsForbiddenPort reports whether port is in the forbidden set.
func (n *Normalizer) IsForbiddenPort(port int) bool {
	_, ok := n.forbiddenPorts[port]
	return ok
}

// Normalize converts raw into a canonical URL.
//
// It fails with ErrForbiddenPort when the port is forbidden and with
// ErrMalformedURL when the input cannot be parsed into an http(s) URL.
// The operation is pure and idempotent on its own output.
func (n *Normalizer) Normalize(raw string) (URL, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return URL{}, fmt.Errorf("%w: empty input", ErrMalformedURL)
	}

	if !strings.HasPrefix(s, "http://") && !strings.HasPrefix(s, "https://") {
		if strings.Contains(s, "://") {
			return URL{}, fmt.Errorf("%w: unsupported scheme in %q", ErrMalformedURL, s)
		}
		s = "http://" + s
	}

	parsed, err := url.Parse(s)
	if err != nil {
		return URL{}, fmt.Errorf("%w: %v", ErrMalformedURL, err)
	}
	if parsed.Hostname() == "" {
		return URL{}, fmt.Errorf("%w: missing host in %q", ErrMalformedURL, s)
	}

	port := parsed.Port()
	if port != "" {
		p, err := strconv.Atoi(port)
		if err != nil || p < 1 || p > 65535 {
			return URL{}, fmt.Errorf("%w: invalid port %q", ErrMalformedURL, port)
		}
		if n.IsForbiddenPort(p) {
			return URL{}, fmt.Errorf("%w: %d in %s", ErrForbiddenPort, p, parsed.Redacted())
		}
	} else if strings.HasSuffix(parsed.Host, ":") {
		// "host:" carries an empty port; drop it so "host:" and "host" compare equal.
		parsed.Host = strings.TrimSuffix(parsed.Host, ":")
	}

	rawPath := parsed.RawPath
	if rawPath != "" {
		rawPath = strings.TrimRight(rawPath, "/")
	}

	return URL{
		scheme:   parsed.Scheme,
		userinfo: parsed.User,
		host:     parsed.Hostname(),
		port:     port,
		path:     strings.TrimRight(parsed.Path, "/"),
		rawPath:  rawPath,
		query:    cleanQuery(parsed.RawQuery),
		fragment: parsed.Fragment,
	}, nil
}

// cleanQuery drops tracking parameters and repeated keys while keeping the
// original order and encoding of what remains.
func cleanQuery(rawQuery string) string {
	if rawQuery == "" {
		return ""
	}

	seen := make(map[string]struct{})
	kept := make([]string, 0)
	for _, pair := range strings.Split(rawQuery, "&") {
		if pair == "" {
			continue
		}
		key, _, _ := strings.Cut(pair, "=")
		decoded, err := url.QueryUnescape(key)
		if err != nil {
			decoded = key
		}
		if strings.HasPrefix(decoded, trackingPrefix) {
			continue
		}
		if _, dup := seen[decoded]; dup {
			continue
		}
		seen[decoded] = struct{}{}
		kept = append(kept, pair)
	}

	return strings.Join(kept, "&")
}
