// Package store defines the record store port and the tabular row layout
// shared by the file and spreadsheet adapters.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/felipesemedo05/parcelas-servico/internal/core"
)

var (
	// ErrRead marks a store that could not be read at all. Individual bad
	// cells never produce it; they degrade to zero values.
	ErrRead = errors.New("store read failed")
	// ErrWrite marks a failed save. The previous contents are left in place
	// whenever the adapter can guarantee it.
	ErrWrite = errors.New("store write failed")
)

// Ports for outbound adapters.
type (
	// Store holds every installment record. Save always rewrites the full set.
	Store interface {
		Load(ctx context.Context) ([]core.Installment, error)
		Save(ctx context.Context, recs []core.Installment) error
	}

	// Appender is implemented by mirrors that can add rows without a full rewrite.
	Appender interface {
		Append(ctx context.Context, recs []core.Installment) error
	}
)

// ReadError wraps err so that errors.Is(err, ErrRead) holds.
func ReadError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrRead, err)
}

// WriteError wraps err so that errors.Is(err, ErrWrite) holds.
func WriteError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrWrite, err)
}
