package crawler

import "errors"

var (
	// ErrNoSeeds is returned by Run when every seed is blank.
	ErrNoSeeds = errors.New("no seed URLs to scan")

	// ErrTransport wraps connection, TLS, and read failures.
	ErrTransport = errors.New("transport failure")

	// ErrBranchTimeout marks a child subtree abandoned at its deadline.
	ErrBranchTimeout = errors.New("branch timed out")

	// errStopped is returned by visit when shutdown tripped before the
	// request was issued.
	errStopped = errors.New("scan stopped")
)
