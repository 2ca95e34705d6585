package simlog

import (
	"errors"
	"fmt"
)

// Custom errors.
var (
	ErrUnknownGanttMode = errors.New("unknown gantt mode")
	ErrInvalidSettings  = errors.New("invalid settings line")
)

// TruncatedLogError is returned when the record count of a section does not
// match the number of records that follow it.
type TruncatedLogError struct {
	Section   Section
	Declared  int // -1 when the count line itself is missing
	Available int
}

func (e *TruncatedLogError) Error() string {
	if e.Declared == -1 {
		return fmt.Sprintf("truncated log: missing record count of section %s", e.Section)
	}

	return fmt.Sprintf(
		"truncated log: section %s declares %d records but %d follow",
		e.Section, e.Declared, e.Available,
	)
}

// MalformedInputError is returned when a log line cannot be decoded into its
// record type.
type MalformedInputError struct {
	Line    int // 1-based
	Section Section
	Field   string
	Value   string
}

func (e *MalformedInputError) Error() string {
	return fmt.Sprintf("malformed log line %d in section %s: invalid %s %q", e.Line, e.Section, e.Field, e.Value)
}
