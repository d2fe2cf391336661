// Copyright (c) 2026 Hemeroteca. All rights reserved.

package catalog

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"hemeroteca/internal/platform/apperr"
	"hemeroteca/internal/platform/dberr"
)

// PostgresRepository implements the Repository interface using pgx.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL implementation of the Repository.
func NewRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const revistaColumns = `
	id, revista, area_conocimiento, indice, idioma, editorial, periodicidad,
	formato, estado, issn_digital, issn_impreso, deposito_legal_digital,
	deposito_legal_impreso, correo_revista, correo_editor, url, portada,
	created_at`

// scanRevista maps one row onto a [Revista].
func scanRevista(row pgx.Row) (*Revista, error) {
	revista := &Revista{}
	err := row.Scan(
		&revista.ID,
		&revista.Revista,
		&revista.AreaConocimiento,
		&revista.Indice,
		&revista.Idioma,
		&revista.Editorial,
		&revista.Periodicidad,
		&revista.Formato,
		&revista.Estado,
		&revista.ISSNDigital,
		&revista.ISSNImpreso,
		&revista.DepositoLegalDigital,
		&revista.DepositoLegalImpreso,
		&revista.CorreoRevista,
		&revista.CorreoEditor,
		&revista.URL,
		&revista.Portada,
		&revista.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return revista, nil
}

// collectRevistas drains a result set into a slice.
func collectRevistas(rows pgx.Rows) ([]Revista, error) {
	defer rows.Close()

	var revistas []Revista
	for rows.Next() {
		revista, err := scanRevista(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres_catalog_repo_scan_failed: %w", err)
		}
		revistas = append(revistas, *revista)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres_catalog_repo_rows_failed: %w", err)
	}
	return revistas, nil
}

// List returns the whole catalog ordered by magazine name.
func (repository *PostgresRepository) List(ctx context.Context) ([]Revista, error) {
	query := "SELECT " + revistaColumns + " FROM revistas ORDER BY revista"

	rows, err := repository.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("postgres_catalog_repo_list_failed: %w", err)
	}
	return collectRevistas(rows)
}

// Recent returns the n most recently added magazines.
func (repository *PostgresRepository) Recent(ctx context.Context, n int) ([]Revista, error) {
	query := "SELECT " + revistaColumns + " FROM revistas ORDER BY created_at DESC LIMIT $1"

	rows, err := repository.pool.Query(ctx, query, n)
	if err != nil {
		return nil, fmt.Errorf("postgres_catalog_repo_recent_failed: %w", err)
	}
	return collectRevistas(rows)
}

// Distinct returns the distinct non-null values of a facet column.
//
// The column name is validated against the fixed facet set before being
// placed in the query text; it never comes from client input.
func (repository *PostgresRepository) Distinct(ctx context.Context, column string) ([]string, error) {
	if !facetColumns[column] {
		return nil, apperr.Internal(fmt.Errorf("postgres_catalog_repo_unknown_facet: %q", column))
	}

	query := fmt.Sprintf(
		"SELECT DISTINCT %s FROM revistas WHERE %s IS NOT NULL ORDER BY %s ASC",
		column, column, column,
	)

	rows, err := repository.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("postgres_catalog_repo_distinct_failed: %w", err)
	}
	defer rows.Close()

	var values []string
	for rows.Next() {
		var value string
		if err := rows.Scan(&value); err != nil {
			return nil, fmt.Errorf("postgres_catalog_repo_scan_failed: %w", err)
		}
		values = append(values, value)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres_catalog_repo_rows_failed: %w", err)
	}

	return values, nil
}

// Insert persists a new magazine built from an allow-listed field map.
//
// Column names in the map have already passed the allow-list, so joining
// them into the statement is safe; values always travel as parameters.
func (repository *PostgresRepository) Insert(ctx context.Context, fields map[string]any) (*Revista, error) {
	columns, values := splitFields(fields)

	placeholders := make([]string, len(columns))
	for i := range columns {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}

	query := fmt.Sprintf(
		"INSERT INTO revistas (%s) VALUES (%s) RETURNING "+revistaColumns,
		strings.Join(columns, ", "),
		strings.Join(placeholders, ", "),
	)

	revista, err := scanRevista(repository.pool.QueryRow(ctx, query, values...))
	if err != nil {
		return nil, dberr.Wrap(fmt.Errorf("postgres_catalog_repo_insert_failed: %w", err), "insert revista")
	}
	return revista, nil
}

// UpdateFields patches a magazine with an allow-listed field map.
func (repository *PostgresRepository) UpdateFields(ctx context.Context, id int, fields map[string]any) (*Revista, error) {
	columns, values := splitFields(fields)

	assignments := make([]string, len(columns))
	for i, column := range columns {
		assignments[i] = fmt.Sprintf("%s = $%d", column, i+1)
	}
	values = append(values, id)

	query := fmt.Sprintf(
		"UPDATE revistas SET %s WHERE id = $%d RETURNING "+revistaColumns,
		strings.Join(assignments, ", "),
		len(values),
	)

	revista, err := scanRevista(repository.pool.QueryRow(ctx, query, values...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Revista")
		}
		return nil, dberr.Wrap(fmt.Errorf("postgres_catalog_repo_update_failed: %w", err), "update revista")
	}
	return revista, nil
}

// SetCover records the cover image filename of a magazine.
func (repository *PostgresRepository) SetCover(ctx context.Context, id int, filename string) (*Revista, error) {
	query := "UPDATE revistas SET portada = $1 WHERE id = $2 RETURNING " + revistaColumns

	revista, err := scanRevista(repository.pool.QueryRow(ctx, query, filename, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Revista")
		}
		return nil, fmt.Errorf("postgres_catalog_repo_set_cover_failed: %w", err)
	}
	return revista, nil
}

// splitFields flattens a field map into parallel column and value slices,
// sorted by column name so the generated SQL is deterministic.
func splitFields(fields map[string]any) ([]string, []any) {
	columns := make([]string, 0, len(fields))
	for column := range fields {
		columns = append(columns, column)
	}
	sort.Strings(columns)

	values := make([]any, len(columns))
	for i, column := range columns {
		values[i] = fields[column]
	}
	return columns, values
}
