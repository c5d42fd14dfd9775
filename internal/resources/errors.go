package resources

import (
	"fmt"
	"strings"
)

// NotFoundError reports a missing resource id or an unknown category.
// Exactly one of ID or Category is set.
type NotFoundError struct {
	ID       int
	Category string
	Valid    []string
}

func (e *NotFoundError) Error() string {
	if e.Category != "" {
		return fmt.Sprintf("no category %q, valid categories: %s", e.Category, strings.Join(e.Valid, ", "))
	}
	return fmt.Sprintf("no resource with id %d", e.ID)
}

// InvalidFieldError reports a field outside the update allow-list.
type InvalidFieldError struct {
	Field   string
	Allowed []string
}

func (e *InvalidFieldError) Error() string {
	return fmt.Sprintf("invalid field %q, valid fields: %s", e.Field, strings.Join(e.Allowed, ", "))
}
