package settlement

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/fkhayef/roommate-ledger/internal/database"
	"github.com/fkhayef/roommate-ledger/internal/domain"
	"github.com/fkhayef/roommate-ledger/internal/money"
)

// Repository handles settlement data persistence
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new settlement repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const settlementColumns = `id, payer_id, receiver_id, amount_cents, settlement_date, note, created_by, created_at`

// Create inserts a new settlement into the database
func (r *Repository) Create(ctx context.Context, s *domain.Settlement) (*domain.Settlement, error) {
	query := `
		INSERT INTO settlements (payer_id, receiver_id, amount_cents, settlement_date, note, created_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`

	created := *s
	err := r.db.QueryRowContext(ctx, query,
		int64(s.PayerID),
		int64(s.ReceiverID),
		s.Amount,
		s.Date.Format(domain.DateLayout),
		s.Note,
		int64(s.CreatedBy),
	).Scan(&created.ID, &created.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create settlement: %w", database.Classify(err))
	}

	return &created, nil
}

// GetByID retrieves a settlement by its ID
func (r *Repository) GetByID(ctx context.Context, id int64) (*domain.Settlement, error) {
	query := `SELECT ` + settlementColumns + ` FROM settlements WHERE id = $1`

	s, err := scanSettlement(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get settlement: %w", err)
	}

	return s, nil
}

// ListForPerson retrieves the settlements a person paid or received, newest first
func (r *Repository) ListForPerson(ctx context.Context, personID int64, f Filter, limit, offset int) ([]*domain.Settlement, int, error) {
	where := []string{"(payer_id = $1 OR receiver_id = $1)"}
	args := []any{personID}
	if f.From != nil {
		args = append(args, f.From.Format(domain.DateLayout))
		where = append(where, fmt.Sprintf("settlement_date >= $%d", len(args)))
	}
	if f.To != nil {
		args = append(args, f.To.Format(domain.DateLayout))
		where = append(where, fmt.Sprintf("settlement_date <= $%d", len(args)))
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM settlements WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count settlements: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM settlements
		WHERE %s
		ORDER BY settlement_date DESC, id DESC
		LIMIT $%d OFFSET $%d
	`, settlementColumns, cond, len(args)+1, len(args)+2)

	rows, err := r.db.QueryContext(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list settlements: %w", err)
	}
	defer rows.Close()

	var settlements []*domain.Settlement
	for rows.Next() {
		s, err := scanSettlement(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan settlement: %w", err)
		}
		settlements = append(settlements, s)
	}

	return settlements, total, rows.Err()
}

// TotalsForPerson sums what a person received and paid across their settlements
func (r *Repository) TotalsForPerson(ctx context.Context, personID int64) (received, paid money.Money, err error) {
	query := `
		SELECT
			COALESCE(SUM(CASE WHEN receiver_id = $1 THEN amount_cents ELSE 0 END), 0)::BIGINT,
			COALESCE(SUM(CASE WHEN payer_id = $1 THEN amount_cents ELSE 0 END), 0)::BIGINT
		FROM settlements
		WHERE payer_id = $1 OR receiver_id = $1
	`
	if err := r.db.QueryRowContext(ctx, query, personID).Scan(&received, &paid); err != nil {
		return money.Zero, money.Zero, fmt.Errorf("failed to total settlements: %w", err)
	}
	return received, paid, nil
}

// ListAll retrieves every settlement in id order
func (r *Repository) ListAll(ctx context.Context) ([]domain.Settlement, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+settlementColumns+` FROM settlements ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list settlements: %w", err)
	}
	defer rows.Close()

	var settlements []domain.Settlement
	for rows.Next() {
		s, err := scanSettlement(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan settlement: %w", err)
		}
		settlements = append(settlements, *s)
	}
	return settlements, rows.Err()
}

// Delete removes a settlement
func (r *Repository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM settlements WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete settlement: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrSettlementNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSettlement(row rowScanner) (*domain.Settlement, error) {
	var (
		s                   domain.Settlement
		payer, receiver, by int64
		date                time.Time
	)
	if err := row.Scan(&s.ID, &payer, &receiver, &s.Amount, &date, &s.Note, &by, &s.CreatedAt); err != nil {
		return nil, err
	}
	s.PayerID = domain.PersonID(payer)
	s.ReceiverID = domain.PersonID(receiver)
	s.CreatedBy = domain.PersonID(by)
	s.Date = time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	return &s, nil
}
