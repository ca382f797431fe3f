package log

import (
	"net/url"
	"regexp"
	"strings"
)

// urlPattern finds http(s) URLs embedded in a longer string such as an
// error message.
var urlPattern = regexp.MustCompile(`(?i)https?://[^\s"'<>]+`)

// sensitiveQueryKeys are query parameters masked in addition to the
// sensitive attribute keys.
var sensitiveQueryKeys = map[string]bool{
	"key":       true,
	"sig":       true,
	"signature": true,
	"code":      true,
	"pass":      true,
	"pwd":       true,
}

// redactURLs masks userinfo passwords and credential query values of every
// URL in s. It reports whether anything was masked.
func redactURLs(s string) (string, bool) {
	if !strings.Contains(s, "://") {
		return s, false
	}

	changed := false
	out := urlPattern.ReplaceAllStringFunc(s, func(raw string) string {
		redacted, ok := redactURL(raw)
		if ok {
			changed = true
		}
		return redacted
	})
	return out, changed
}

func redactURL(raw string) (string, bool) {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw, false
	}

	changed := false
	if u.User != nil {
		if _, ok := u.User.Password(); ok {
			u.User = url.UserPassword(u.User.Username(), MaskValue)
			changed = true
		}
	}

	if u.RawQuery != "" {
		pairs := strings.Split(u.RawQuery, "&")
		for i, pair := range pairs {
			k, _, found := strings.Cut(pair, "=")
			if !found {
				continue
			}
			name, err := url.QueryUnescape(k)
			if err != nil {
				name = k
			}
			name = strings.ToLower(name)
			if isSensitiveKey(name) || sensitiveQueryKeys[name] {
				pairs[i] = k + "=" + MaskValue
				changed = true
			}
		}
		u.RawQuery = strings.Join(pairs, "&")
	}

	if !changed {
		return raw, false
	}
	return u.String(), true
}
