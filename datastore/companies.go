package datastore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/coreybb/newsfeeds/models"
)

// CompanyRepository handles database operations for companies and their
// source associations.
type CompanyRepository struct {
	db *sql.DB
}

func NewCompanyRepository(db *sql.DB) *CompanyRepository {
	return &CompanyRepository{db: db}
}

// ListCompanySourcePairs returns the flattened (company, source)
// projection the scheduler iterates: one row per association.
func (r *CompanyRepository) ListCompanySourcePairs(ctx context.Context) ([]models.WorkItem, error) {
	query := `
		SELECT c.name, s.name
		FROM companies c
		JOIN company_source cs ON cs.company_id = c.id
		JOIN sources s ON s.id = cs.source_id
		ORDER BY c.name ASC, s.name ASC
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query company/source pairs: %w", err)
	}
	defer rows.Close()

	pairs := []models.WorkItem{}
	for rows.Next() {
		var item models.WorkItem
		if err := rows.Scan(&item.Company, &item.Source); err != nil {
			return nil, fmt.Errorf("failed to scan company/source pair: %w", err)
		}
		pairs = append(pairs, item)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating company/source pairs: %w", err)
	}
	return pairs, nil
}

// CreateCompany inserts a company and associates the named sources,
// creating any source that does not exist yet. Returns ErrDuplicateName
// when the company name is taken.
func (r *CompanyRepository) CreateCompany(ctx context.Context, name string, sourceNames []string) (*models.Company, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var existing int
	err = tx.QueryRowContext(ctx, `SELECT id FROM companies WHERE name = $1`, name).Scan(&existing)
	if err == nil {
		return nil, fmt.Errorf("company %q: %w", name, ErrDuplicateName)
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to check for existing company: %w", err)
	}

	var companyID int
	err = tx.QueryRowContext(ctx, `INSERT INTO companies (name) VALUES ($1) RETURNING id`, name).Scan(&companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to insert company %q: %w", name, err)
	}

	if err := associateSources(ctx, tx, companyID, sourceNames); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit company creation: %w", err)
	}

	return r.GetCompanyByID(ctx, companyID)
}

// UpsertCompanyWithSources inserts or reuses the company and each named
// source, then ensures the associations exist. Running it repeatedly
// never duplicates rows; used by the seeder.
func (r *CompanyRepository) UpsertCompanyWithSources(ctx context.Context, name string, sourceNames []string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var companyID int
	err = tx.QueryRowContext(ctx, `
		INSERT INTO companies (name) VALUES ($1)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id
	`, name).Scan(&companyID)
	if err != nil {
		return fmt.Errorf("failed to upsert company %q: %w", name, err)
	}

	if err := associateSources(ctx, tx, companyID, sourceNames); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit upsert for %q: %w", name, err)
	}
	return nil
}

// associateSources upserts each source by name and links it to the
// company, skipping links that already exist.
func associateSources(ctx context.Context, tx *sql.Tx, companyID int, sourceNames []string) error {
	for _, sourceName := range sourceNames {
		var sourceID int
		err := tx.QueryRowContext(ctx, `
			INSERT INTO sources (name) VALUES ($1)
			ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
			RETURNING id
		`, sourceName).Scan(&sourceID)
		if err != nil {
			return fmt.Errorf("failed to upsert source %q: %w", sourceName, err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO company_source (company_id, source_id)
			VALUES ($1, $2)
			ON CONFLICT DO NOTHING
		`, companyID, sourceID)
		if err != nil {
			return fmt.Errorf("failed to associate source %q: %w", sourceName, err)
		}
	}
	return nil
}

// GetCompanyByID returns the company with its associated sources, or
// ErrNotFound.
func (r *CompanyRepository) GetCompanyByID(ctx context.Context, id int) (*models.Company, error) {
	var company models.Company
	err := r.db.QueryRowContext(ctx, `SELECT id, name FROM companies WHERE id = $1`, id).
		Scan(&company.ID, &company.Name)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get company %d: %w", id, err)
	}

	sources, err := r.sourcesForCompany(ctx, id)
	if err != nil {
		return nil, err
	}
	company.Sources = sources
	return &company, nil
}

// GetCompanies returns every company with its associated sources.
func (r *CompanyRepository) GetCompanies(ctx context.Context) ([]models.Company, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name FROM companies ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query companies: %w", err)
	}
	defer rows.Close()

	companies := []models.Company{}
	for rows.Next() {
		var c models.Company
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, fmt.Errorf("failed to scan company row: %w", err)
		}
		companies = append(companies, c)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating company rows: %w", err)
	}

	for i := range companies {
		sources, err := r.sourcesForCompany(ctx, companies[i].ID)
		if err != nil {
			return nil, err
		}
		companies[i].Sources = sources
	}
	return companies, nil
}

// UpdateCompany renames a company and/or replaces its full source
// association set. Nil arguments leave the corresponding aspect alone.
func (r *CompanyRepository) UpdateCompany(ctx context.Context, id int, name *string, sourceNames *[]string) (*models.Company, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var currentName string
	err = tx.QueryRowContext(ctx, `SELECT name FROM companies WHERE id = $1`, id).Scan(&currentName)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load company %d: %w", id, err)
	}

	if name != nil && *name != currentName {
		var conflict int
		err = tx.QueryRowContext(ctx, `SELECT id FROM companies WHERE name = $1 AND id <> $2`, *name, id).Scan(&conflict)
		if err == nil {
			return nil, fmt.Errorf("company %q: %w", *name, ErrDuplicateName)
		}
		if err != sql.ErrNoRows {
			return nil, fmt.Errorf("failed to check rename conflict: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `UPDATE companies SET name = $1 WHERE id = $2`, *name, id); err != nil {
			return nil, fmt.Errorf("failed to rename company %d: %w", id, err)
		}
	}

	if sourceNames != nil {
		if _, err := tx.ExecContext(ctx, `DELETE FROM company_source WHERE company_id = $1`, id); err != nil {
			return nil, fmt.Errorf("failed to clear source associations: %w", err)
		}
		if err := associateSources(ctx, tx, id, *sourceNames); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit company update: %w", err)
	}
	return r.GetCompanyByID(ctx, id)
}

// DeleteCompany removes the company; associations cascade.
func (r *CompanyRepository) DeleteCompany(ctx context.Context, id int) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM companies WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete company %d: %w", id, err)
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

func (r *CompanyRepository) sourcesForCompany(ctx context.Context, companyID int) ([]models.Source, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT s.id, s.name
		FROM sources s
		JOIN company_source cs ON cs.source_id = s.id
		WHERE cs.company_id = $1
		ORDER BY s.name ASC
	`, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query sources for company %d: %w", companyID, err)
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
