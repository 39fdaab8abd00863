// Package records defines where report input comes from.
package records

import (
	"context"
	"errors"

	"finreport/internal/core"
)

var (
	ErrInvalidDump = errors.New("invalid records dump")
	ErrDuplicateID = errors.New("duplicate record id")
)

// Ports for record sources.
type (
	// Source returns a consistent snapshot of every record. Implementations
	// must not hand out slices they later mutate.
	Source interface {
		Snapshot(ctx context.Context) (core.Snapshot, error)
	}

	// Importer replaces the stored records with the given snapshot.
	Importer interface {
		Import(ctx context.Context, snap core.Snapshot) (ImportStats, error)
	}

	// Store is a source that can also be loaded.
	Store interface {
		Source
		Importer
	}

	ImportStats struct {
		Users    int    `json:"users"`
		Expenses int    `json:"expenses"`
		Incomes  int    `json:"incomes"`
		Version  string `json:"version"`
	}
)
