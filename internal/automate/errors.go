package automate

import "errors"

var (
	// ErrNoTargets is returned when a run is started without detail links.
	ErrNoTargets = errors.New("no detail links on the listing")
	// ErrNoPagination is returned when the listing has no active page control.
	ErrNoPagination = errors.New("no pagination found")
	// ErrNextPageNotFound is returned when the control of the next page is
	// missing or cannot be invoked.
	ErrNextPageNotFound = errors.New("next page not found")
	// ErrChannelUnavailable is returned when the navigation tab can neither
	// be opened nor redirected.
	ErrChannelUnavailable = errors.New("navigation channel unavailable")
	// ErrNotStarted is returned when there is no active run.
	ErrNotStarted = errors.New("no active run")
)
