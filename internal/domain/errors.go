package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrSourceUnreadable means a file is missing or cannot be decoded. Fatal for the run.
	ErrSourceUnreadable = errors.New("source unreadable")

	// ErrSchemaColumnMissing means a column required by the reader is absent from the file header.
	ErrSchemaColumnMissing = errors.New("schema column missing")

	// ErrRowMalformed marks a row that could not be split into fields. Rows are skipped, not fatal.
	ErrRowMalformed = errors.New("row malformed")

	// ErrFieldUnparseable marks a date or amount that did not match its format. The field becomes unset.
	ErrFieldUnparseable = errors.New("field unparseable")
)

// SourceError names the source whose contribution aborted the run.
type SourceError struct {
	Source Source
	Path   string
	Err    error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("%s source %q: %v", e.Source, e.Path, e.Err)
}

func (e *SourceError) Unwrap() error {
	return e.Err
}

// NewSourceError wraps err for the given source and path.
func NewSourceError(source Source, path string, err error) *SourceError {
	return &SourceError{Source: source, Path: path, Err: err}
}
