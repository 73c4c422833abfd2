// Package storage persists the CLI's local state in SQLite.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Validation errors.
var (
	ErrNilContext    = errors.New("context cannot be nil")
	ErrEmptyString   = errors.New("string parameter cannot be empty")
	ErrInvalidExport = errors.New("invalid export record")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

func validateExport(rec ExportRecord) error {
	switch {
	case strings.TrimSpace(rec.Entity) == "":
		return fmt.Errorf("%w: missing entity", ErrInvalidExport)
	case strings.TrimSpace(rec.Name) == "":
		return fmt.Errorf("%w: missing name", ErrInvalidExport)
	case strings.TrimSpace(rec.Location) == "":
		return fmt.Errorf("%w: missing location", ErrInvalidExport)
	case rec.Rows < 0:
		return fmt.Errorf("%w: negative row count", ErrInvalidExport)
	}
	return nil
}
