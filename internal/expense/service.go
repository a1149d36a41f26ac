package expense

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/fkhayef/roommate-ledger/internal/activity"
	"github.com/fkhayef/roommate-ledger/internal/domain"
)

// Common errors
var (
	ErrExpenseNotFound = errors.New("expense not found")
	ErrNotInvolved     = errors.New("you are not part of this expense")
)

// Store is the persistence the expense service needs
type Store interface {
	Create(ctx context.Context, e *domain.Expense) (*domain.Expense, error)
	GetByID(ctx context.Context, id int64) (*domain.Expense, error)
	ListForPerson(ctx context.Context, personID int64, limit, offset int) ([]*domain.Expense, int, error)
	Replace(ctx context.Context, e *domain.Expense) error
	Delete(ctx context.Context, id int64) error
}

// Ledger is the part of the balance engine that accepts expenses
type Ledger interface {
	PrepareExpense(d *domain.ExpenseDraft) (*domain.Expense, error)
	RecordExpense(e *domain.Expense) error
	ReplaceExpense(e *domain.Expense) error
	RemoveExpense(id int64) error
}

// Service handles expense business logic
type Service struct {
	repo   Store
	ledger Ledger
	feed   activity.Publisher
}

// NewService creates a new expense service with dependencies injected
func NewService(repo Store, ledger Ledger, feed activity.Publisher) *Service {
	return &Service{repo: repo, ledger: ledger, feed: feed}
}

// Create validates and allocates the expense, stores it and folds it into the
// balances
func (s *Service) Create(ctx context.Context, actorID int64, req *CreateExpenseRequest) (*domain.Expense, error) {
	draft, err := req.ToDraft(actorID)
	if err != nil {
		return nil, err
	}

	prepared, err := s.ledger.PrepareExpense(draft)
	if err != nil {
		return nil, err
	}

	e, err := s.repo.Create(ctx, prepared)
	if err != nil {
		return nil, err
	}

	if err := s.ledger.RecordExpense(e); err != nil {
		slog.Error("expense stored but not applied, removing", "expense_id", e.ID, "error", err)
		if derr := s.repo.Delete(ctx, e.ID); derr != nil {
			slog.Error("failed to remove unapplied expense", "expense_id", e.ID, "error", derr)
		}
		return nil, fmt.Errorf("failed to apply expense: %w", err)
	}

	slog.Info("expense created", "expense_id", e.ID, "amount", e.Amount.String(), "by", actorID)
	s.notify(e, actorID, activity.TypeExpenseAdded, "added")

	return e, nil
}

// Get retrieves an expense the viewer paid for, shares in or created
func (s *Service) Get(ctx context.Context, viewerID, id int64) (*domain.Expense, error) {
	e, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, ErrExpenseNotFound
	}
	if !canView(e, viewerID) {
		return nil, ErrNotInvolved
	}
	return e, nil
}

// List retrieves the viewer's expenses with pagination
func (s *Service) List(ctx context.Context, viewerID int64, page, perPage int) ([]*domain.Expense, int, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	offset := (page - 1) * perPage
	return s.repo.ListForPerson(ctx, viewerID, perPage, offset)
}

// Update replaces an expense. Shares are reallocated from the new request and
// the balances move from the old contribution to the new one.
func (s *Service) Update(ctx context.Context, viewerID, id int64, req *CreateExpenseRequest) (*domain.Expense, error) {
	old, err := s.Get(ctx, viewerID, id)
	if err != nil {
		return nil, err
	}

	draft, err := req.ToDraft(int64(old.CreatedBy))
	if err != nil {
		return nil, err
	}
	e, err := s.ledger.PrepareExpense(draft)
	if err != nil {
		return nil, err
	}
	e.ID = old.ID
	e.CreatedAt = old.CreatedAt

	if err := s.repo.Replace(ctx, e); err != nil {
		return nil, err
	}
	if err := s.ledger.ReplaceExpense(e); err != nil {
		slog.Error("expense replaced but not applied, restoring", "expense_id", id, "error", err)
		if rerr := s.repo.Replace(ctx, old); rerr != nil {
			slog.Error("failed to restore expense", "expense_id", id, "error", rerr)
		}
		return nil, fmt.Errorf("failed to apply expense: %w", err)
	}

	slog.Info("expense updated", "expense_id", id, "by", viewerID)
	s.notify(e, viewerID, activity.TypeExpenseUpdated, "updated")

	return e, nil
}

// Delete removes an expense and retracts it from the balances
func (s *Service) Delete(ctx context.Context, viewerID, id int64) error {
	e, err := s.Get(ctx, viewerID, id)
	if err != nil {
		return err
	}

	if err := s.ledger.RemoveExpense(id); err != nil {
		return fmt.Errorf("failed to retract expense: %w", err)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if rerr := s.ledger.RecordExpense(e); rerr != nil {
			slog.Error("failed to re-apply expense", "expense_id", id, "error", rerr)
		}
		return err
	}

	slog.Info("expense deleted", "expense_id", id, "by", viewerID)
	s.notify(e, viewerID, activity.TypeExpenseDeleted, "deleted")

	return nil
}

func canView(e *domain.Expense, viewerID int64) bool {
	return e.Involves(domain.PersonID(viewerID)) || int64(e.CreatedBy) == viewerID
}

// notify tells everyone involved except the actor, each with their own share.
func (s *Service) notify(e *domain.Expense, actorID int64, typ activity.Type, verb string) {
	seen := map[domain.PersonID]bool{domain.PersonID(actorID): true}
	recipients := make([]domain.PersonID, 0, len(e.Payers)+len(e.Shares))
	for _, p := range e.Payers {
		recipients = append(recipients, p.PersonID)
	}
	for _, sh := range e.Shares {
		recipients = append(recipients, sh.PersonID)
	}

	for _, id := range recipients {
		if seen[id] {
			continue
		}
		seen[id] = true
		msg := fmt.Sprintf("Expense %q (%s) was %s. Your share: %s",
			e.Description, e.Amount, verb, e.ShareOf(id))
		s.feed.Publish(activity.New(int64(id), typ, msg,
			activity.WithEntity(activity.EntityExpense, e.ID)))
	}
}
