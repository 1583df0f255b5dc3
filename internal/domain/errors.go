package domain

import (
	"fmt"
	"strings"
)

// SchemaError reports structurally unusable input: a source missing required
// columns, or a model artifact referencing feature columns the assembled
// dataset does not expose. It maps to a 400 at the HTTP boundary; the
// missing names are enumerated so the caller can fix the file.
type SchemaError struct {
	Source  string
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s: missing required columns: %s", e.Source, strings.Join(e.Missing, ", "))
}
