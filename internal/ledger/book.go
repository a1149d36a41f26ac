package ledger

import (
	"errors"
	"fmt"

	"github.com/fkhayef/roommate-ledger/internal/domain"
	"github.com/fkhayef/roommate-ledger/internal/expense/split"
	"github.com/fkhayef/roommate-ledger/internal/metrics"
	"github.com/fkhayef/roommate-ledger/internal/validation"
)

// Book is the entry point to the balance engine. Prepare* validates a draft
// and allocates shares without touching balances; Record*, Replace* and
// Remove* fold the persisted result in.
type Book struct {
	agg       *Aggregator
	validator *validation.Validator
	splitter  *split.Factory
}

// NewBook returns a book over an empty aggregator.
func NewBook() *Book {
	agg := NewAggregator()
	return &Book{
		agg:       agg,
		validator: validation.NewValidator(agg),
		splitter:  split.NewSplitStrategyFactory(),
	}
}

// Directory exposes which persons may appear in new entries.
func (b *Book) Directory() validation.Directory {
	return b.agg
}

// AddPerson registers a roommate.
func (b *Book) AddPerson(id domain.PersonID) {
	b.agg.Register(id)
	metrics.SetKnownPersons(b.agg.Count())
}

// ArchivePerson deactivates a roommate who is settled with everybody.
func (b *Book) ArchivePerson(id domain.PersonID) error {
	return b.agg.Archive(id)
}

// PrepareExpense validates a draft and returns the expense with its shares
// allocated. The returned expense has no ID yet.
func (b *Book) PrepareExpense(d *domain.ExpenseDraft) (*domain.Expense, error) {
	if err := b.validator.ValidateExpense(d); err != nil {
		countIssues(err)
		return nil, err
	}

	shares, err := b.splitter.Allocate(d.Amount, d.Policy, d.Participants, d.CustomShares)
	if err != nil {
		return nil, fmt.Errorf("allocate shares: %w", err)
	}

	return &domain.Expense{
		Description: d.Description,
		Amount:      d.Amount,
		Date:        d.Date,
		Policy:      d.Policy,
		Payers:      append([]domain.Payment(nil), d.Payers...),
		Shares:      shares,
		CreatedBy:   d.CreatedBy,
	}, nil
}

// RecordExpense folds a persisted expense in.
func (b *Book) RecordExpense(e *domain.Expense) error {
	if err := b.agg.Apply(ExpenseRef(e.ID), ExpenseDeltas(e)); err != nil {
		return err
	}
	metrics.EntryApplied(string(KindExpense))
	return nil
}

// ReplaceExpense swaps the contribution of an already recorded expense.
func (b *Book) ReplaceExpense(e *domain.Expense) error {
	if err := b.agg.Replace(ExpenseRef(e.ID), ExpenseDeltas(e)); err != nil {
		return err
	}
	metrics.EntryRetracted(string(KindExpense))
	metrics.EntryApplied(string(KindExpense))
	return nil
}

// RemoveExpense retracts a recorded expense.
func (b *Book) RemoveExpense(id int64) error {
	if _, err := b.agg.Retract(ExpenseRef(id)); err != nil {
		return err
	}
	metrics.EntryRetracted(string(KindExpense))
	return nil
}

// PrepareSettlement validates a draft settlement.
func (b *Book) PrepareSettlement(d *domain.SettlementDraft) (*domain.Settlement, error) {
	if err := b.validator.ValidateSettlement(d); err != nil {
		countIssues(err)
		return nil, err
	}
	return &domain.Settlement{
		PayerID:    d.PayerID,
		ReceiverID: d.ReceiverID,
		Amount:     d.Amount,
		Date:       d.Date,
		Note:       d.Note,
		CreatedBy:  d.CreatedBy,
	}, nil
}

// RecordSettlement folds a persisted settlement in.
func (b *Book) RecordSettlement(s *domain.Settlement) error {
	if err := b.agg.Apply(SettlementRef(s.ID), SettlementDeltas(s)); err != nil {
		return err
	}
	metrics.EntryApplied(string(KindSettlement))
	return nil
}

// RemoveSettlement retracts a recorded settlement.
func (b *Book) RemoveSettlement(id int64) error {
	if _, err := b.agg.Retract(SettlementRef(id)); err != nil {
		return err
	}
	metrics.EntryRetracted(string(KindSettlement))
	return nil
}

// Snapshot returns a copy of the current balances.
func (b *Book) Snapshot() *Snapshot {
	return b.agg.Snapshot()
}

// Rebuild replaces all state with the fold of the given stream. Expenses are
// applied before settlements, each in the order given. On error the previous
// state is kept.
func (b *Book) Rebuild(persons []domain.Person, expenses []domain.Expense, settlements []domain.Settlement) error {
	fresh := NewAggregator()
	for _, p := range persons {
		fresh.setPerson(p.ID, p.Active())
	}

	var errs []error
	for i := range expenses {
		e := &expenses[i]
		if err := b.validator.CheckExpense(e); err != nil {
			errs = append(errs, fmt.Errorf("expense %d: %w", e.ID, err))
			continue
		}
		if err := fresh.Apply(ExpenseRef(e.ID), ExpenseDeltas(e)); err != nil {
			errs = append(errs, fmt.Errorf("expense %d: %w", e.ID, err))
		}
	}
	for i := range settlements {
		s := &settlements[i]
		if err := fresh.Apply(SettlementRef(s.ID), SettlementDeltas(s)); err != nil {
			errs = append(errs, fmt.Errorf("settlement %d: %w", s.ID, err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("rebuild ledger: %w", err)
	}

	b.agg.adopt(fresh)
	metrics.SetKnownPersons(b.agg.Count())
	return nil
}

func countIssues(err error) {
	var ve *validation.ValidationError
	if errors.As(err, &ve) {
		for _, is := range ve.Issues {
			metrics.ValidationFailed(string(is.Kind))
		}
	}
}
