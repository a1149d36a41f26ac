package roommate

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/fkhayef/roommate-ledger/internal/domain"
)

// Repository handles roommate persistence in the persons table
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new roommate repository with database dependency injected
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const personColumns = `id, name, archived_at, created_at`

// Create inserts a new person
func (r *Repository) Create(ctx context.Context, name string) (*domain.Person, error) {
	query := `
		INSERT INTO persons (name)
		VALUES ($1)
		RETURNING ` + personColumns

	p, err := scanPerson(r.db.QueryRowContext(ctx, query, name))
	if err != nil {
		return nil, fmt.Errorf("failed to create roommate: %w", err)
	}
	return p, nil
}

// GetByID retrieves a person by ID, archived or not
func (r *Repository) GetByID(ctx context.Context, id domain.PersonID) (*domain.Person, error) {
	query := `SELECT ` + personColumns + ` FROM persons WHERE id = $1`

	p, err := scanPerson(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get roommate: %w", err)
	}
	return p, nil
}

// List retrieves active persons with pagination
func (r *Repository) List(ctx context.Context, limit, offset int) ([]*domain.Person, int, error) {
	var total int
	countQuery := `SELECT COUNT(*) FROM persons WHERE archived_at IS NULL`
	if err := r.db.QueryRowContext(ctx, countQuery).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count roommates: %w", err)
	}

	query := `
		SELECT ` + personColumns + `
		FROM persons
		WHERE archived_at IS NULL
		ORDER BY id
		LIMIT $1 OFFSET $2
	`

	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list roommates: %w", err)
	}
	defer rows.Close()

	people, err := scanPeople(rows)
	if err != nil {
		return nil, 0, err
	}
	return people, total, nil
}

// ListAll retrieves every person, including archived ones
func (r *Repository) ListAll(ctx context.Context) ([]domain.Person, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+personColumns+` FROM persons ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list roommates: %w", err)
	}
	defer rows.Close()

	people, err := scanPeople(rows)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Person, len(people))
	for i, p := range people {
		out[i] = *p
	}
	return out, nil
}

// Rename changes a person's display name
func (r *Repository) Rename(ctx context.Context, id domain.PersonID, name string) (*domain.Person, error) {
	query := `
		UPDATE persons
		SET name = $2
		WHERE id = $1
		RETURNING ` + personColumns

	p, err := scanPerson(r.db.QueryRowContext(ctx, query, id, name))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to rename roommate: %w", err)
	}
	return p, nil
}

// Archive marks a person as archived
func (r *Repository) Archive(ctx context.Context, id domain.PersonID, at time.Time) error {
	query := `UPDATE persons SET archived_at = $2 WHERE id = $1 AND archived_at IS NULL`

	result, err := r.db.ExecContext(ctx, query, id, at)
	if err != nil {
		return fmt.Errorf("failed to archive roommate: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrRoommateNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPerson(row rowScanner) (*domain.Person, error) {
	p := &domain.Person{}
	var archivedAt sql.NullTime
	if err := row.Scan(&p.ID, &p.Name, &archivedAt, &p.CreatedAt); err != nil {
		return nil, err
	}
	if archivedAt.Valid {
		at := archivedAt.Time
		p.ArchivedAt = &at
	}
	return p, nil
}

func scanPeople(rows *sql.Rows) ([]*domain.Person, error) {
	var people []*domain.Person
	for rows.Next() {
		p, err := scanPerson(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan roommate: %w", err)
		}
		people = append(people, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read roommates: %w", err)
	}
	return people, nil
}
