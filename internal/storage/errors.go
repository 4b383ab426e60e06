package storage

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidHeader is returned when the table header is missing, malformed
	// or violates the SIZE/TOP/QTDE/STATUS contract.
	ErrInvalidHeader = errors.New("invalid table header")

	// ErrTruncatedTable is returned when the table ends before the declared
	// number of records.
	ErrTruncatedTable = errors.New("truncated table")

	// ErrMalformedRecord is returned when a data line does not split into
	// exactly six fields.
	ErrMalformedRecord = errors.New("malformed record")

	// ErrInvalidQueryField is returned for attribute names outside the
	// searchable set.
	ErrInvalidQueryField = errors.New("invalid query field")
)

// RecordError reports a record that failed to decode, with the 1-based line
// number it was read from.
type RecordError struct {
	Line int
	Err  error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}
