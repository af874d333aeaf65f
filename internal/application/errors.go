package application

import "errors"

var (
	// ErrUnrecognizedEvent marks a raw record whose shape or state
	// descriptor did not match the backend contract. Never retried.
	ErrUnrecognizedEvent = errors.New("unrecognized event shape")

	// ErrNotFound marks an id-scoped lookup that yielded nothing. Callers
	// act on a state they believe exists, so an empty result is a hard
	// failure for that call.
	ErrNotFound = errors.New("transaction not found")

	// ErrBackendRejected marks an explicit error from the ledger backend
	// for a single-item operation.
	ErrBackendRejected = errors.New("backend rejected operation")
)

var errNilGateway = errors.New("gateway is required")

// BatchFailure records one failed id from a multi-id mutation. Successes
// from the same call are still returned; the batch as a whole does not
// fail.
type BatchFailure struct {
	Origin string `json:"origin"`
	Reason string `json:"reason"`
}
