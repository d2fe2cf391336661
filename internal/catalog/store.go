// Copyright (c) 2026 Hemeroteca. All rights reserved.

package catalog

import (
	"context"
)

// Repository defines the data access contract for the magazine catalog.
type Repository interface {
	// List returns the whole catalog ordered by magazine name.
	List(ctx context.Context) ([]Revista, error)

	// Recent returns the n most recently added magazines.
	Recent(ctx context.Context, n int) ([]Revista, error)

	// Distinct returns the distinct values of a facet column, ascending.
	// The column must be one of the fixed facet columns; it is never
	// taken from client input.
	Distinct(ctx context.Context, column string) ([]string, error)

	// Insert persists a new magazine from an allow-listed field map and
	// returns the stored row.
	Insert(ctx context.Context, fields map[string]any) (*Revista, error)

	// UpdateFields patches an existing magazine with an allow-listed
	// field map and returns the stored row.
	//
	// Returns [apperr.NotFound] if no magazine carries the ID.
	UpdateFields(ctx context.Context, id int, fields map[string]any) (*Revista, error)

	// SetCover records the cover image filename of a magazine.
	SetCover(ctx context.Context, id int, filename string) (*Revista, error)
}
