package dax

import (
	"errors"
	"fmt"
)

// Custom errors.
var (
	ErrCycle      = errors.New("workflow graph contains a cycle")
	ErrUnknownJob = errors.New("edge references an undeclared job")
)

// MalformedInputError is returned when a DAX element or a DAG record lacks an
// expected attribute or carries a value that cannot be used.
type MalformedInputError struct {
	Element string
	Attr    string
	Value   string
	Line    int // DAG records only
}

func (e *MalformedInputError) Error() string {
	var where string
	if e.Line > 0 {
		where = fmt.Sprintf("line %d: ", e.Line)
	}

	if e.Value == "" {
		return fmt.Sprintf("%smalformed %s: missing %s", where, e.Element, e.Attr)
	}

	return fmt.Sprintf("%smalformed %s: invalid %s %q", where, e.Element, e.Attr, e.Value)
}
