package target

import (
	"net/url"
	"strings"
)

// URL is a normalized target URL. It is immutable: the zero value is not
// useful and instances are only produced by Normalizer.Normalize.
type URL struct {
	scheme   string
	userinfo *url.Userinfo
	host     string
	port     string
	path     string
	rawPath  string
	query    string
	fragment string
}

// Scheme returns "http" or "https".
func (u URL) Scheme() string { return u.scheme }

// Host returns the host name without the port.
func (u URL) Host() string { return u.host }

// Port returns the explicit port, or "" when none was given.
func (u URL) Port() string { return u.port }

// Path returns the decoded path. The root path is empty.
func (u URL) Path() string { return u.path }

// Query returns the cleaned raw query string without the leading "?".
func (u URL) Query() string { return u.query }

// Fragment returns the fragment without the leading "#".
func (u URL) Fragment() string { return u.fragment }

// IsZero reports whether u was never normalized.
func (u URL) IsZero() bool { return u.scheme == "" }

// String returns the canonical form used for comparison and fetching.
// Percent-escapes are lowercased like every other character so that the
// output normalizes to itself.
func (u URL) String() string {
	host := u.host
	if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	if u.port != "" {
		host += ":" + u.port
	}
	out := &url.URL{
		Scheme:   u.scheme,
		User:     u.userinfo,
		Host:     host,
		Path:     u.path,
		RawPath:  u.rawPath,
		RawQuery: u.query,
		Fragment: u.fragment,
	}
	return strings.ToLower(out.String())
}

// Equal reports whether two URLs have the same canonical form.
func (u URL) Equal(other URL) bool {
	return u.String() == other.String()
}

// Resolve resolves a possibly relative reference against u and returns the
// absolute result as a string, ready to be normalized again.
func (u URL) Resolve(ref string) (string, error) {
	base, err := url.Parse(u.String())
	if err != nil {
		return "", err
	}
	r, err := url.Parse(ref)
	if err != nil {
		return "", err
	}
	return base.ResolveReference(r).String(), nil
}
