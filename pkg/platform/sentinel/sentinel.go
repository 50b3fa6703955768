package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Object stores and upstream clients
// return these (optionally wrapped) so services can translate them into
// domain errors:
//   - ErrNotFound: the identifier is not held by the store
//   - ErrConflict: a write raced with another write to the same identifier
//   - ErrUnavailable: the backing service could not be reached
//   - ErrCorrupt: stored bytes could not be decoded into an object
var (
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrUnavailable = errors.New("unavailable")
	ErrCorrupt     = errors.New("corrupt record")
)
