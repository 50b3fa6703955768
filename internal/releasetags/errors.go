package releasetags

import (
	"fmt"
	"strings"
)

// CycleError reports a collection membership loop longer than a direct
// self reference. Path ends with the repeated identifier.
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("collection membership cycle: %s", strings.Join(e.Path, " -> "))
}

// DepthExceededError reports an ancestor chain deeper than the configured limit.
type DepthExceededError struct {
	Limit int
	Path  []string
}

func (e *DepthExceededError) Error() string {
	return fmt.Sprintf("collection ancestry deeper than %d: %s", e.Limit, strings.Join(e.Path, " -> "))
}
