package expense

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/fkhayef/roommate-ledger/internal/database"
	"github.com/fkhayef/roommate-ledger/internal/domain"
	"github.com/fkhayef/roommate-ledger/internal/money"
)

// Repository handles expense persistence. An expense is one expenses row plus
// its ordered payer and share lines.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new expense repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts an expense with its lines in one transaction and returns it
// with ID and CreatedAt set
func (r *Repository) Create(ctx context.Context, e *domain.Expense) (*domain.Expense, error) {
	created := *e
	err := database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		query := `
			INSERT INTO expenses (description, amount_cents, expense_date, split_policy, created_by)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id, created_at
		`
		if err := tx.QueryRowContext(ctx, query,
			e.Description,
			e.Amount,
			e.Date.Format(domain.DateLayout),
			string(e.Policy),
			int64(e.CreatedBy),
		).Scan(&created.ID, &created.CreatedAt); err != nil {
			return err
		}
		return insertLines(ctx, tx, created.ID, e)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create expense: %w", database.Classify(err))
	}
	return &created, nil
}

// Replace overwrites an expense and its lines in one transaction
func (r *Repository) Replace(ctx context.Context, e *domain.Expense) error {
	err := database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		query := `
			UPDATE expenses
			SET description = $2, amount_cents = $3, expense_date = $4, split_policy = $5
			WHERE id = $1
		`
		result, err := tx.ExecContext(ctx, query,
			e.ID,
			e.Description,
			e.Amount,
			e.Date.Format(domain.DateLayout),
			string(e.Policy),
		)
		if err != nil {
			return err
		}
		if n, err := result.RowsAffected(); err != nil {
			return err
		} else if n == 0 {
			return ErrExpenseNotFound
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM expense_payers WHERE expense_id = $1`, e.ID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM expense_shares WHERE expense_id = $1`, e.ID); err != nil {
			return err
		}
		return insertLines(ctx, tx, e.ID, e)
	})
	if err != nil {
		return fmt.Errorf("failed to replace expense: %w", database.Classify(err))
	}
	return nil
}

func insertLines(ctx context.Context, tx *sql.Tx, expenseID int64, e *domain.Expense) error {
	for i, p := range e.Payers {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO expense_payers (expense_id, person_id, amount_cents, position) VALUES ($1, $2, $3, $4)`,
			expenseID, int64(p.PersonID), p.Amount, i,
		); err != nil {
			return err
		}
	}
	for i, s := range e.Shares {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO expense_shares (expense_id, person_id, amount_cents, position) VALUES ($1, $2, $3, $4)`,
			expenseID, int64(s.PersonID), s.Amount, i,
		); err != nil {
			return err
		}
	}
	return nil
}

const expenseColumns = `id, description, amount_cents, expense_date, split_policy, created_by, created_at`

// GetByID retrieves an expense with its lines
func (r *Repository) GetByID(ctx context.Context, id int64) (*domain.Expense, error) {
	query := `SELECT ` + expenseColumns + ` FROM expenses WHERE id = $1`

	e, err := scanExpense(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get expense: %w", err)
	}
	if err := r.loadLines(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

// ListForPerson retrieves the expenses a person paid for or shares in, newest first
func (r *Repository) ListForPerson(ctx context.Context, personID int64, limit, offset int) ([]*domain.Expense, int, error) {
	involved := `
		id IN (
			SELECT expense_id FROM expense_payers WHERE person_id = $1
			UNION
			SELECT expense_id FROM expense_shares WHERE person_id = $1
		)
	`

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM expenses WHERE `+involved, personID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count expenses: %w", err)
	}

	query := `
		SELECT ` + expenseColumns + `
		FROM expenses
		WHERE ` + involved + `
		ORDER BY expense_date DESC, id DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.QueryContext(ctx, query, personID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list expenses: %w", err)
	}

	var expenses []*domain.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			rows.Close()
			return nil, 0, fmt.Errorf("failed to scan expense: %w", err)
		}
		expenses = append(expenses, e)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to list expenses: %w", err)
	}

	for _, e := range expenses {
		if err := r.loadLines(ctx, e); err != nil {
			return nil, 0, err
		}
	}
	return expenses, total, nil
}

// ListAll retrieves every expense with its lines in id order
func (r *Repository) ListAll(ctx context.Context) ([]domain.Expense, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+expenseColumns+` FROM expenses ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}
	var expenses []domain.Expense
	index := make(map[int64]int)
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		index[e.ID] = len(expenses)
		expenses = append(expenses, *e)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}

	err = r.eachLine(ctx, `SELECT expense_id, person_id, amount_cents FROM expense_payers ORDER BY expense_id, position`,
		func(expenseID int64, id domain.PersonID, amount money.Money) {
			if i, ok := index[expenseID]; ok {
				expenses[i].Payers = append(expenses[i].Payers, domain.Payment{PersonID: id, Amount: amount})
			}
		})
	if err != nil {
		return nil, err
	}
	err = r.eachLine(ctx, `SELECT expense_id, person_id, amount_cents FROM expense_shares ORDER BY expense_id, position`,
		func(expenseID int64, id domain.PersonID, amount money.Money) {
			if i, ok := index[expenseID]; ok {
				expenses[i].Shares = append(expenses[i].Shares, domain.Share{PersonID: id, Amount: amount})
			}
		})
	if err != nil {
		return nil, err
	}
	return expenses, nil
}

// Delete removes an expense; its lines go with it
func (r *Repository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM expenses WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete expense: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrExpenseNotFound
	}
	return nil
}

func (r *Repository) loadLines(ctx context.Context, e *domain.Expense) error {
	e.Payers = nil
	e.Shares = nil
	err := r.eachLine(ctx,
		`SELECT expense_id, person_id, amount_cents FROM expense_payers WHERE expense_id = $1 ORDER BY position`,
		func(_ int64, id domain.PersonID, amount money.Money) {
			e.Payers = append(e.Payers, domain.Payment{PersonID: id, Amount: amount})
		}, e.ID)
	if err != nil {
		return err
	}
	return r.eachLine(ctx,
		`SELECT expense_id, person_id, amount_cents FROM expense_shares WHERE expense_id = $1 ORDER BY position`,
		func(_ int64, id domain.PersonID, amount money.Money) {
			e.Shares = append(e.Shares, domain.Share{PersonID: id, Amount: amount})
		}, e.ID)
}

func (r *Repository) eachLine(ctx context.Context, query string, fn func(expenseID int64, id domain.PersonID, amount money.Money), args ...any) error {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to load expense lines: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			expenseID int64
			personID  int64
			amount    money.Money
		)
		if err := rows.Scan(&expenseID, &personID, &amount); err != nil {
			return fmt.Errorf("failed to scan expense line: %w", err)
		}
		fn(expenseID, domain.PersonID(personID), amount)
	}
	return rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExpense(row rowScanner) (*domain.Expense, error) {
	var (
		e         domain.Expense
		policy    string
		createdBy int64
		date      time.Time
	)
	if err := row.Scan(&e.ID, &e.Description, &e.Amount, &date, &policy, &createdBy, &e.CreatedAt); err != nil {
		return nil, err
	}
	e.Date = time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	e.Policy = domain.SplitPolicy(policy)
	e.CreatedBy = domain.PersonID(createdBy)
	return &e, nil
}
