package pipeline

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyFile    = errors.New("file is empty")
	ErrNoSheets     = errors.New("workbook has no readable sheets")
	ErrNoHeader     = errors.New("no header row found")
	ErrFileTooLarge = errors.New("file exceeds size limit")
)

// ReadError wraps a failure inside one of the format readers.
type ReadError struct {
	Format string
	Stage  string
	Err    error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Format, e.Stage, e.Err)
}

func (e *ReadError) Unwrap() error {
	return e.Err
}
