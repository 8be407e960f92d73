package decision

import "errors"

var (
	// ErrPendingNotFound means the attempt ID is unknown or the pending
	// PIN challenge already expired.
	ErrPendingNotFound = errors.New("pending decision not found")
)
