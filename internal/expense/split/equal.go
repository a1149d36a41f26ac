package split

import (
	"errors"

	"github.com/fkhayef/roommate-ledger/internal/domain"
	"github.com/fkhayef/roommate-ledger/internal/money"
)

// =============================================================================
// EQUAL SPLIT STRATEGY
// Divides the expense evenly; leftover cents go to the first participants
// =============================================================================

// EqualStrategy implements the Strategy interface for equal splits
type EqualStrategy struct{}

// Policy returns the split policy identifier
func (s *EqualStrategy) Policy() domain.SplitPolicy {
	return domain.SplitEqual
}

// Validate checks if the inputs are valid for an equal split
func (s *EqualStrategy) Validate(total money.Money, participants []domain.PersonID, custom map[domain.PersonID]money.Money) error {
	errs := checkParticipants(participants)
	if total.IsNegative() {
		errs = append(errs, ErrNegativeAmount)
	}
	if len(custom) > 0 {
		errs = append(errs, ErrUnexpectedShare)
	}
	return errors.Join(errs...)
}

// Allocate gives every participant floor(total/n) cents, then one extra cent
// to each of the first total%n participants in the given order.
func (s *EqualStrategy) Allocate(total money.Money, participants []domain.PersonID, custom map[domain.PersonID]money.Money) ([]domain.Share, error) {
	if err := s.Validate(total, participants, custom); err != nil {
		return nil, err
	}

	n := int64(len(participants))
	base := total.Cents() / n
	remainder := total.Cents() - base*n

	shares := make([]domain.Share, len(participants))
	for i, id := range participants {
		cents := base
		if int64(i) < remainder {
			cents++
		}
		shares[i] = domain.Share{PersonID: id, Amount: money.FromCents(cents)}
	}

	return shares, nil
}
