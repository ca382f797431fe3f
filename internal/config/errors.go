package config

import "errors"

// Configuration errors returned by Validate and the file loader.
var (
	// ErrInvalidDepth is returned when the max depth is negative.
	ErrInvalidDepth = errors.New("invalid max depth: must be non-negative")

	// ErrInvalidLinkDepth is returned when the link depth is negative.
	ErrInvalidLinkDepth = errors.New("invalid link depth: must be non-negative")

	// ErrInvalidTimeout is returned when the request timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidConcurrency is returned when the concurrency is not positive.
	ErrInvalidConcurrency = errors.New("invalid concurrency: must be positive")

	// ErrInvalidRateLimit is returned when the rate limit is negative.
	ErrInvalidRateLimit = errors.New("invalid rate limit: must be non-negative (0 disables it)")

	// ErrInvalidMaxBodySize is returned when the max body size is not positive.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be positive")

	// ErrInvalidDedup is returned when the dedup filter cannot be sized.
	ErrInvalidDedup = errors.New("invalid dedup settings: capacity must be positive and error rate in (0, 1)")

	// ErrInvalidPort is returned when a forbidden port is out of range.
	ErrInvalidPort = errors.New("invalid forbidden port")

	// ErrUnknownFormat is returned for an unsupported report format.
	ErrUnknownFormat = errors.New("unknown report format (use csv, markdown or json)")

	// ErrConfigNotFound is returned when the configuration file does not exist.
	ErrConfigNotFound = errors.New("configuration file not found")

	// ErrInvalidConfigFile is returned when the configuration file cannot be decoded.
	ErrInvalidConfigFile = errors.New("invalid configuration file")
)
