package events

import (
	"fmt"
	"strings"
)

// NotFoundError reports an id with no matching event.
type NotFoundError struct {
	ID int
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no event with id %d", e.ID)
}

// InvalidFieldError reports a field outside the update allow-list.
type InvalidFieldError struct {
	Field   string
	Allowed []string
}

func (e *InvalidFieldError) Error() string {
	return fmt.Sprintf("invalid field %q, valid fields: %s", e.Field, strings.Join(e.Allowed, ", "))
}
