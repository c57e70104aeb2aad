// Package store persists dataset records in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/vegasq/tabq/dataset"
)

const datasetsTable = `
CREATE TABLE IF NOT EXISTS datasets (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	file_path TEXT NOT NULL,
	transformations TEXT NOT NULL DEFAULT '[]',
	measures TEXT NOT NULL DEFAULT '[]',
	uploaded_at DATETIME NOT NULL
);
`

// SQLiteStore implements dataset.Store on a SQLite database file.
type SQLiteStore struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and ensures the
// schema exists.
func Open(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if _, err := db.Exec(datasetsTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (*dataset.Dataset, error) {
	var ds dataset.Dataset
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, file_path, transformations, measures, uploaded_at FROM datasets WHERE id = ?`, id).
		Scan(&ds.ID, &ds.Name, &ds.FilePath, &ds.Transformations, &ds.Measures, &ds.UploadedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", dataset.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &ds, nil
}

func (s *SQLiteStore) Create(ctx context.Context, ds *dataset.Dataset) error {
	uploadedAt := ds.UploadedAt
	if uploadedAt.IsZero() {
		uploadedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO datasets (id, name, file_path, transformations, measures, uploaded_at) VALUES (?, ?, ?, ?, ?, ?)`,
		ds.ID, ds.Name, ds.FilePath, orEmptyList(ds.Transformations), orEmptyList(ds.Measures), uploadedAt.UTC())
	return err
}

// List returns every dataset, most recently uploaded first.
func (s *SQLiteStore) List(ctx context.Context) ([]*dataset.Dataset, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, file_path, transformations, measures, uploaded_at FROM datasets ORDER BY uploaded_at DESC, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var datasets []*dataset.Dataset
	for rows.Next() {
		var ds dataset.Dataset
		if err := rows.Scan(&ds.ID, &ds.Name, &ds.FilePath, &ds.Transformations, &ds.Measures, &ds.UploadedAt); err != nil {
			return nil, err
		}
		datasets = append(datasets, &ds)
	}
	return datasets, rows.Err()
}

func (s *SQLiteStore) UpdateTransformations(ctx context.Context, id, transformations string) error {
	return s.update(ctx, `UPDATE datasets SET transformations = ? WHERE id = ?`, id, transformations)
}

func (s *SQLiteStore) UpdateMeasures(ctx context.Context, id, measures string) error {
	return s.update(ctx, `UPDATE datasets SET measures = ? WHERE id = ?`, id, measures)
}

func (s *SQLiteStore) update(ctx context.Context, query, id, value string) error {
	res, err := s.db.ExecContext(ctx, query, value, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", dataset.ErrNotFound, id)
	}
	return nil
}

func orEmptyList(text string) string {
	if text == "" {
		return "[]"
	}
	return text
}
