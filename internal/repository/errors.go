package repository

import (
	"fmt"

	"dor/pkg/platform/sentinel"
)

// DuplicateSourceIDError is returned by a store when a registration reuses
// a source ID held by another object.
type DuplicateSourceIDError struct {
	SourceID   string
	ExistingID string
}

func (e *DuplicateSourceIDError) Error() string {
	return fmt.Sprintf("An object with the source ID '%s' has already been registered.", e.SourceID)
}

func (e *DuplicateSourceIDError) Unwrap() error {
	return sentinel.ErrConflict
}
