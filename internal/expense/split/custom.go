package split

import (
	"errors"
	"fmt"

	"github.com/fkhayef/roommate-ledger/internal/domain"
	"github.com/fkhayef/roommate-ledger/internal/money"
)

// =============================================================================
// CUSTOM SPLIT STRATEGY
// Each participant owes an explicit amount; the amounts must sum to the total
// =============================================================================

// CustomStrategy implements the Strategy interface for explicit share amounts
type CustomStrategy struct{}

// Policy returns the split policy identifier
func (s *CustomStrategy) Policy() domain.SplitPolicy {
	return domain.SplitCustom
}

// Validate checks that every participant has a non-negative share and that the
// shares sum to the total exactly, to the cent.
func (s *CustomStrategy) Validate(total money.Money, participants []domain.PersonID, custom map[domain.PersonID]money.Money) error {
	errs := checkParticipants(participants)

	listed := make(map[domain.PersonID]bool, len(participants))
	sum := money.Zero
	for _, id := range participants {
		if listed[id] {
			continue
		}
		listed[id] = true

		amount, ok := custom[id]
		if !ok {
			errs = append(errs, fmt.Errorf("%w: participant %d", ErrMissingShare, id))
			continue
		}
		if amount.IsNegative() {
			errs = append(errs, fmt.Errorf("%w: participant %d has %s", ErrNegativeAmount, id, amount))
		}
		sum = sum.Add(amount)
	}

	for id := range custom {
		if !listed[id] {
			errs = append(errs, fmt.Errorf("%w: person %d", ErrUnexpectedShare, id))
		}
	}

	if len(participants) > 0 && !sum.Equal(total) {
		errs = append(errs, fmt.Errorf("%w: shares sum to %s, total is %s", ErrShareMismatch, sum, total))
	}

	return errors.Join(errs...)
}

// Allocate returns the supplied amounts verbatim, in participant order
func (s *CustomStrategy) Allocate(total money.Money, participants []domain.PersonID, custom map[domain.PersonID]money.Money) ([]domain.Share, error) {
	if err := s.Validate(total, participants, custom); err != nil {
		return nil, err
	}

	shares := make([]domain.Share, len(participants))
	for i, id := range participants {
		shares[i] = domain.Share{PersonID: id, Amount: custom[id]}
	}

	return shares, nil
}
