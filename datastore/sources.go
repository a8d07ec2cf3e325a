package datastore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/coreybb/newsfeeds/models"
)

// SourceRepository handles database operations for news sources.
type SourceRepository struct {
	db *sql.DB
}

func NewSourceRepository(db *sql.DB) *SourceRepository {
	return &SourceRepository{db: db}
}

// CreateSource inserts a new source; ErrDuplicateName when taken.
func (r *SourceRepository) CreateSource(ctx context.Context, name string) (*models.Source, error) {
	if name == "" {
		return nil, fmt.Errorf("source name cannot be empty")
	}

	var source models.Source
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO sources (name) VALUES ($1)
		ON CONFLICT (name) DO NOTHING
		RETURNING id, name
	`, name).Scan(&source.ID, &source.Name)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("source %q: %w", name, ErrDuplicateName)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to insert source %q: %w", name, err)
	}
	return &source, nil
}

// GetSources returns all sources ordered by name.
func (r *SourceRepository) GetSources(ctx context.Context) ([]models.Source, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name FROM sources ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query sources: %w", err)
	}
	defer rows.Close()

	sources := []models.Source{}
	for rows.Next() {
		var s models.Source
		if err := rows.Scan(&s.ID, &s.Name); err != nil {
			return nil, fmt.Errorf("failed to scan source row: %w", err)
		}
		sources = append(sources, s)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating source rows: %w", err)
	}
	return sources, nil
}

// GetSourceByID returns the source or ErrNotFound.
func (r *SourceRepository) GetSourceByID(ctx context.Context, id int) (*models.Source, error) {
	var s models.Source
	err := r.db.QueryRowContext(ctx, `SELECT id, name FROM sources WHERE id = $1`, id).Scan(&s.ID, &s.Name)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get source %d: %w", id, err)
	}
	return &s, nil
}

// DeleteSource removes the source; associations cascade.
func (r *SourceRepository) DeleteSource(ctx context.Context, id int) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sources WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete source %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
