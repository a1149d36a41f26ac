package split

import (
	"errors"
	"fmt"

	"github.com/fkhayef/roommate-ledger/internal/domain"
	"github.com/fkhayef/roommate-ledger/internal/money"
)

// Strategy is the interface that all split strategies must implement
type Strategy interface {
	// Policy returns the split policy this strategy implements
	Policy() domain.SplitPolicy

	// Validate checks the inputs and reports every problem found, joined
	Validate(total money.Money, participants []domain.PersonID, custom map[domain.PersonID]money.Money) error

	// Allocate computes each participant's share, in participant order.
	// The shares always sum to total.
	Allocate(total money.Money, participants []domain.PersonID, custom map[domain.PersonID]money.Money) ([]domain.Share, error)
}

// Factory creates split strategies based on the requested policy
type Factory struct{}

// NewSplitStrategyFactory creates a new factory instance
func NewSplitStrategyFactory() *Factory {
	return &Factory{}
}

// Create returns the strategy implementation for the policy
func (f *Factory) Create(policy domain.SplitPolicy) (Strategy, error) {
	switch policy {
	case domain.SplitEqual:
		return &EqualStrategy{}, nil
	case domain.SplitCustom:
		return &CustomStrategy{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownPolicy, policy)
	}
}

// CreateFromString creates a strategy from a string policy (useful for API requests)
func (f *Factory) CreateFromString(policy string) (Strategy, error) {
	return f.Create(domain.SplitPolicy(policy))
}

// Allocate is a shortcut for Create followed by Strategy.Allocate.
func (f *Factory) Allocate(total money.Money, policy domain.SplitPolicy, participants []domain.PersonID, custom map[domain.PersonID]money.Money) ([]domain.Share, error) {
	strategy, err := f.Create(policy)
	if err != nil {
		return nil, err
	}
	return strategy.Allocate(total, participants, custom)
}

// Allocate computes shares with the default factory.
func Allocate(total money.Money, policy domain.SplitPolicy, participants []domain.PersonID, custom map[domain.PersonID]money.Money) ([]domain.Share, error) {
	return NewSplitStrategyFactory().Allocate(total, policy, participants, custom)
}

var (
	ErrNoParticipants       = errors.New("at least one participant is required")
	ErrDuplicateParticipant = errors.New("participant listed more than once")
	ErrNegativeAmount       = errors.New("amounts cannot be negative")
	ErrMissingShare         = errors.New("custom share required for every participant")
	ErrUnexpectedShare      = errors.New("custom share given for a non-participant")
	ErrShareMismatch        = errors.New("custom shares must sum to total amount")
	ErrUnknownPolicy        = errors.New("unknown split type")
)

// checkParticipants reports an empty or duplicated participant list.
func checkParticipants(participants []domain.PersonID) []error {
	if len(participants) == 0 {
		return []error{ErrNoParticipants}
	}
	var errs []error
	seen := make(map[domain.PersonID]bool, len(participants))
	for _, id := range participants {
		if seen[id] {
			errs = append(errs, fmt.Errorf("%w: %d", ErrDuplicateParticipant, id))
			continue
		}
		seen[id] = true
	}
	return errs
}
