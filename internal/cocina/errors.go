package cocina

import "fmt"

// UnsupportedObjectTypeError is returned for an object variant the mapper
// has no branch for.
type UnsupportedObjectTypeError struct {
	Variant string
}

func (e *UnsupportedObjectTypeError) Error() string {
	return fmt.Sprintf("Unknown type for %s", e.Variant)
}
