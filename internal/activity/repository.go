package activity

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

// Repository handles activity persistence
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new activity repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Save inserts an activity
func (r *Repository) Save(ctx context.Context, a Activity) error {
	query := `
		INSERT INTO activities (id, recipient_id, type, message, entity_type, entity_id, is_read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.ExecContext(ctx, query,
		a.ID.String(), a.RecipientID, string(a.Type), a.Message, a.EntityType, a.EntityID, a.IsRead, a.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save activity: %w", err)
	}
	return nil
}

// GetByID retrieves an activity by its ID
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Activity, error) {
	query := `
		SELECT id, recipient_id, type, message, entity_type, entity_id, is_read, created_at
		FROM activities
		WHERE id = $1
	`

	a, err := scanActivity(r.db.QueryRowContext(ctx, query, id.String()))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get activity: %w", err)
	}
	return a, nil
}

// ListByRecipientID retrieves a page of a person's feed, newest first
func (r *Repository) ListByRecipientID(ctx context.Context, recipientID int64, limit, offset int, unreadOnly bool) ([]*Activity, int, error) {
	var total int
	countQuery := `SELECT COUNT(*) FROM activities WHERE recipient_id = $1 AND (NOT $2 OR is_read = false)`
	if err := r.db.QueryRowContext(ctx, countQuery, recipientID, unreadOnly).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count activities: %w", err)
	}

	query := `
		SELECT id, recipient_id, type, message, entity_type, entity_id, is_read, created_at
		FROM activities
		WHERE recipient_id = $1 AND (NOT $2 OR is_read = false)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`

	rows, err := r.db.QueryContext(ctx, query, recipientID, unreadOnly, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list activities: %w", err)
	}
	defer rows.Close()

	var activities []*Activity
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan activity: %w", err)
		}
		activities = append(activities, a)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to list activities: %w", err)
	}

	return activities, total, nil
}

// MarkAsRead marks one activity as read
func (r *Repository) MarkAsRead(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE activities SET is_read = true WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id.String()); err != nil {
		return fmt.Errorf("failed to mark activity as read: %w", err)
	}
	return nil
}

// MarkAllAsRead marks a person's whole feed as read
func (r *Repository) MarkAllAsRead(ctx context.Context, recipientID int64) error {
	query := `UPDATE activities SET is_read = true WHERE recipient_id = $1 AND is_read = false`
	if _, err := r.db.ExecContext(ctx, query, recipientID); err != nil {
		return fmt.Errorf("failed to mark all activities as read: %w", err)
	}
	return nil
}

// GetUnreadCount counts a person's unread activities
func (r *Repository) GetUnreadCount(ctx context.Context, recipientID int64) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM activities WHERE recipient_id = $1 AND is_read = false`
	if err := r.db.QueryRowContext(ctx, query, recipientID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count unread activities: %w", err)
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanActivity(row rowScanner) (*Activity, error) {
	var (
		a        Activity
		id       string
		typ      string
		entityID sql.NullInt64
	)
	if err := row.Scan(&id, &a.RecipientID, &typ, &a.Message, &a.EntityType, &entityID, &a.IsRead, &a.CreatedAt); err != nil {
		return nil, err
	}

	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid activity id %q: %w", id, err)
	}
	a.ID = parsed
	a.Type = Type(typ)
	if entityID.Valid {
		a.EntityID = &entityID.Int64
	}
	return &a, nil
}
