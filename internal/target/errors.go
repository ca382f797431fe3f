package target

import "errors"

// Normalization errors.
var (
	// ErrForbiddenPort is returned when the URL names a port in the
	// forbidden set. It is a policy rejection, not a transport error.
	ErrForbiddenPort = errors.New("forbidden port")

	// ErrMalformedURL is returned when the input cannot be turned into an
	// http or https URL with a host.
	ErrMalformedURL = errors.New("malformed URL")
)

// IsPolicyRejection reports whether err is a policy rejection.
// Policy rejections are benign skips and are not logged as errors.
func IsPolicyRejection(err error) bool {
	return errors.Is(err, ErrForbiddenPort)
}
