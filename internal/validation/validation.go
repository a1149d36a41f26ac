// Package validation checks expenses and settlements before they reach the
// ledger and reports every violated rule at once.
package validation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/fkhayef/roommate-ledger/internal/domain"
	"github.com/fkhayef/roommate-ledger/internal/expense/split"
	"github.com/fkhayef/roommate-ledger/internal/money"
	"github.com/fkhayef/roommate-ledger/pkg/response"
)

// IssueKind classifies a violated rule.
type IssueKind string

const (
	KindUnknownPerson        IssueKind = "unknown_person"
	KindNoPayers             IssueKind = "no_payers"
	KindNoParticipants       IssueKind = "no_participants"
	KindDuplicatePayer       IssueKind = "duplicate_payer"
	KindDuplicateParticipant IssueKind = "duplicate_participant"
	KindInvalidAmount        IssueKind = "invalid_amount"
	KindPaidMismatch         IssueKind = "paid_mismatch"
	KindShareMismatch        IssueKind = "share_mismatch"
	KindMissingShare         IssueKind = "missing_share"
	KindUnexpectedShare      IssueKind = "unexpected_share"
	KindInvalidPolicy        IssueKind = "invalid_policy"
	KindSelfSettlement       IssueKind = "self_settlement"
	KindMissingDescription   IssueKind = "missing_description"
	KindInvalidDate          IssueKind = "invalid_date"
)

var (
	ErrNoPayers           = errors.New("at least one payer is required")
	ErrDuplicatePayer     = errors.New("payer listed more than once")
	ErrNonPositiveAmount  = errors.New("amount must be positive")
	ErrPaidMismatch       = errors.New("paid amounts must sum to total amount")
	ErrSelfSettlement     = errors.New("payer and receiver must differ")
	ErrMissingDescription = errors.New("description is required")
	ErrMissingDate        = errors.New("date is required")
)

// Issue is one violated rule.
type Issue struct {
	Kind   IssueKind `json:"kind"`
	Detail string    `json:"detail"`
	Err    error     `json:"-"`
}

// ValidationError lists every rule an expense or settlement broke.
type ValidationError struct {
	Issues []Issue
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Issues))
	for i, is := range e.Issues {
		parts[i] = is.Detail
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Unwrap exposes the underlying sentinels to errors.Is.
func (e *ValidationError) Unwrap() []error {
	errs := make([]error, 0, len(e.Issues))
	for _, is := range e.Issues {
		if is.Err != nil {
			errs = append(errs, is.Err)
		}
	}
	return errs
}

// Has reports whether any issue has the given kind.
func (e *ValidationError) Has(kind IssueKind) bool {
	for _, is := range e.Issues {
		if is.Kind == kind {
			return true
		}
	}
	return false
}

// Details lists the issues in the shape of an API error.
func (e *ValidationError) Details() []response.ErrorDetail {
	details := make([]response.ErrorDetail, len(e.Issues))
	for i, is := range e.Issues {
		details[i] = response.ErrorDetail{Kind: string(is.Kind), Message: is.Detail}
	}
	return details
}

// Directory answers whether a person may appear in a new entry.
type Directory interface {
	Active(id domain.PersonID) bool
}

// Validator checks drafts against a person directory.
type Validator struct {
	dir     Directory
	factory *split.Factory
}

func NewValidator(dir Directory) *Validator {
	return &Validator{dir: dir, factory: split.NewSplitStrategyFactory()}
}

// collector accumulates issues and drops exact repeats.
type collector struct {
	issues []Issue
	seen   map[string]bool
}

func (c *collector) add(kind IssueKind, err error) {
	if c.seen == nil {
		c.seen = make(map[string]bool)
	}
	key := string(kind) + "|" + err.Error()
	if c.seen[key] {
		return
	}
	c.seen[key] = true
	c.issues = append(c.issues, Issue{Kind: kind, Detail: err.Error(), Err: err})
}

func (c *collector) err() error {
	if len(c.issues) == 0 {
		return nil
	}
	return &ValidationError{Issues: c.issues}
}

// ValidateExpense checks a draft expense, including the custom split rules.
func (v *Validator) ValidateExpense(d *domain.ExpenseDraft) error {
	var c collector

	if strings.TrimSpace(d.Description) == "" {
		c.add(KindMissingDescription, ErrMissingDescription)
	}
	if d.Date.IsZero() {
		c.add(KindInvalidDate, ErrMissingDate)
	}
	if !d.Amount.IsPositive() {
		c.add(KindInvalidAmount, fmt.Errorf("%w: total is %s", ErrNonPositiveAmount, d.Amount))
	}

	v.checkPayers(&c, d.Amount, d.Payers)

	for _, id := range uniqueIDs(d.Participants) {
		v.checkPerson(&c, id)
	}
	for id := range d.CustomShares {
		v.checkPerson(&c, id)
	}

	strategy, err := v.factory.Create(d.Policy)
	if err != nil {
		c.add(KindInvalidPolicy, err)
		return c.err()
	}
	addSplitErrors(&c, strategy.Validate(d.Amount, d.Participants, d.CustomShares))

	return c.err()
}

// CheckExpense re-checks the structural invariants of an allocated expense.
// Person activity is not checked, so historical entries of archived persons
// pass.
func (v *Validator) CheckExpense(e *domain.Expense) error {
	var c collector

	if !e.Amount.IsPositive() {
		c.add(KindInvalidAmount, fmt.Errorf("%w: total is %s", ErrNonPositiveAmount, e.Amount))
	}
	if len(e.Payers) == 0 {
		c.add(KindNoPayers, ErrNoPayers)
	}
	if len(e.Shares) == 0 {
		c.add(KindNoParticipants, split.ErrNoParticipants)
	}

	paid := money.Zero
	payers := make(map[domain.PersonID]bool)
	for _, p := range e.Payers {
		if payers[p.PersonID] {
			c.add(KindDuplicatePayer, fmt.Errorf("%w: %d", ErrDuplicatePayer, p.PersonID))
		}
		payers[p.PersonID] = true
		paid = paid.Add(p.Amount)
	}
	if len(e.Payers) > 0 && !paid.Equal(e.Amount) {
		c.add(KindPaidMismatch, fmt.Errorf("%w: paid %s, total is %s", ErrPaidMismatch, paid, e.Amount))
	}

	owed := money.Zero
	participants := make(map[domain.PersonID]bool)
	for _, s := range e.Shares {
		if participants[s.PersonID] {
			c.add(KindDuplicateParticipant, fmt.Errorf("%w: %d", split.ErrDuplicateParticipant, s.PersonID))
		}
		if s.Amount.IsNegative() {
			c.add(KindInvalidAmount, fmt.Errorf("%w: participant %d has %s", split.ErrNegativeAmount, s.PersonID, s.Amount))
		}
		participants[s.PersonID] = true
		owed = owed.Add(s.Amount)
	}
	if len(e.Shares) > 0 && !owed.Equal(e.Amount) {
		c.add(KindShareMismatch, fmt.Errorf("%w: shares sum to %s, total is %s", split.ErrShareMismatch, owed, e.Amount))
	}

	return c.err()
}

// ValidateSettlement checks a draft settlement.
func (v *Validator) ValidateSettlement(d *domain.SettlementDraft) error {
	var c collector

	if !d.Amount.IsPositive() {
		c.add(KindInvalidAmount, fmt.Errorf("%w: settlement is %s", ErrNonPositiveAmount, d.Amount))
	}
	if d.PayerID == d.ReceiverID {
		c.add(KindSelfSettlement, fmt.Errorf("%w: person %d", ErrSelfSettlement, d.PayerID))
	}
	if d.Date.IsZero() {
		c.add(KindInvalidDate, ErrMissingDate)
	}
	v.checkPerson(&c, d.PayerID)
	v.checkPerson(&c, d.ReceiverID)

	return c.err()
}

func (v *Validator) checkPayers(c *collector, total money.Money, payers []domain.Payment) {
	if len(payers) == 0 {
		c.add(KindNoPayers, ErrNoPayers)
		return
	}

	paid := money.Zero
	seen := make(map[domain.PersonID]bool, len(payers))
	for _, p := range payers {
		if seen[p.PersonID] {
			c.add(KindDuplicatePayer, fmt.Errorf("%w: %d", ErrDuplicatePayer, p.PersonID))
			continue
		}
		seen[p.PersonID] = true
		v.checkPerson(c, p.PersonID)
		if !p.Amount.IsPositive() {
			c.add(KindInvalidAmount, fmt.Errorf("%w: payer %d paid %s", ErrNonPositiveAmount, p.PersonID, p.Amount))
		}
		paid = paid.Add(p.Amount)
	}
	if !paid.Equal(total) {
		c.add(KindPaidMismatch, fmt.Errorf("%w: paid %s, total is %s", ErrPaidMismatch, paid, total))
	}
}

func (v *Validator) checkPerson(c *collector, id domain.PersonID) {
	if v.dir == nil || !v.dir.Active(id) {
		c.add(KindUnknownPerson, fmt.Errorf("%w: %d", domain.ErrUnknownPerson, id))
	}
}

// addSplitErrors turns the allocator's joined errors into issues.
func addSplitErrors(c *collector, err error) {
	if err == nil {
		return
	}
	var errs []error
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		errs = joined.Unwrap()
	} else {
		errs = []error{err}
	}

	for _, e := range errs {
		switch {
		case errors.Is(e, split.ErrNoParticipants):
			c.add(KindNoParticipants, e)
		case errors.Is(e, split.ErrDuplicateParticipant):
			c.add(KindDuplicateParticipant, e)
		case errors.Is(e, split.ErrMissingShare):
			c.add(KindMissingShare, e)
		case errors.Is(e, split.ErrUnexpectedShare):
			c.add(KindUnexpectedShare, e)
		case errors.Is(e, split.ErrShareMismatch):
			c.add(KindShareMismatch, e)
		case errors.Is(e, split.ErrNegativeAmount):
			c.add(KindInvalidAmount, e)
		default:
			c.add(KindInvalidPolicy, e)
		}
	}
}

func uniqueIDs(ids []domain.PersonID) []domain.PersonID {
	seen := make(map[domain.PersonID]bool, len(ids))
	out := make([]domain.PersonID, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
