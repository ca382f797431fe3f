// Package target turns raw, operator- or page-supplied strings into
// canonical URLs that are safe to compare and to fetch.
//
// Normalization lowercases the input, adds a missing http:// scheme,
// refuses forbidden ports before any network access, removes utm_*
// tracking parameters and trailing slashes. Two strings that refer to the
// same resource normalize to equal URL values, which is what the dedup set
// relies on.
//
// # Usage
//
//	n := target.NewNormalizer()
//	u, err := n.Normalize("Example.com/Admin/?utm_source=x&id=1")
//	// u.String() == "http://example.com/admin?id=1"
package target
