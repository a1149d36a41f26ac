package balance

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/fkhayef/roommate-ledger/internal/domain"
	"github.com/fkhayef/roommate-ledger/internal/ledger"
	"github.com/fkhayef/roommate-ledger/internal/money"
)

// Common errors
var (
	ErrPersonNotFound = errors.New("roommate not found")
	ErrSelfBalance    = errors.New("cannot compute a balance with yourself")
)

// Ledger gives read access to the balance engine
type Ledger interface {
	Snapshot() *ledger.Snapshot
}

// Roster resolves person names, archived persons included
type Roster interface {
	ListAll(ctx context.Context) ([]domain.Person, error)
}

// Service answers balance queries from ledger snapshots
type Service struct {
	ledger Ledger
	roster Roster
}

// NewService creates a new balance service
func NewService(ledger Ledger, roster Roster) *Service {
	return &Service{ledger: ledger, roster: roster}
}

func (s *Service) names(ctx context.Context) (map[domain.PersonID]string, error) {
	people, err := s.roster.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load roommates: %w", err)
	}
	names := make(map[domain.PersonID]string, len(people))
	for _, p := range people {
		names[p.ID] = p.Name
	}
	return names, nil
}

func nameOf(names map[domain.PersonID]string, id domain.PersonID) string {
	if n, ok := names[id]; ok {
		return n
	}
	return fmt.Sprintf("Roommate %d", id)
}

func message(name string, amount money.Money) string {
	switch amount.Sign() {
	case 1:
		return fmt.Sprintf("You owe %s $%s", name, amount)
	case -1:
		return fmt.Sprintf("%s owes you $%s", name, amount.Abs())
	default:
		return fmt.Sprintf("You and %s are settled up", name)
	}
}

// Balances returns the viewer's position against every other roommate
func (s *Service) Balances(ctx context.Context, viewerID int64) (*BalancesResponse, error) {
	names, err := s.names(ctx)
	if err != nil {
		return nil, err
	}

	relative := s.ledger.Snapshot().RelativeTo(domain.PersonID(viewerID))
	ids := make([]domain.PersonID, 0, len(relative))
	for id := range relative {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	resp := &BalancesResponse{
		Balances: make(map[domain.PersonID]string, len(ids)),
		Items:    make([]*NetBalanceResponse, 0, len(ids)),
	}
	for _, id := range ids {
		amount := relative[id]
		resp.Balances[id] = amount.String()
		resp.Items = append(resp.Items, &NetBalanceResponse{
			PersonID: int64(id),
			Name:     nameOf(names, id),
			Amount:   amount.String(),
			Message:  message(nameOf(names, id), amount),
		})
	}
	return resp, nil
}

// Summary totals what others owe the viewer and what the viewer owes
func (s *Service) Summary(viewerID int64) *SummaryResponse {
	owed, owes := money.Zero, money.Zero
	for _, amount := range s.ledger.Snapshot().RelativeTo(domain.PersonID(viewerID)) {
		if amount.IsNegative() {
			owed = owed.Add(amount.Abs())
		} else {
			owes = owes.Add(amount)
		}
	}
	return &SummaryResponse{
		TotalOwed:    owed.String(),
		TotalOwes:    owes.String(),
		TotalBalance: owed.Sub(owes).String(),
	}
}

// With returns the viewer's position against one roommate
func (s *Service) With(ctx context.Context, viewerID, personID int64) (*NetBalanceResponse, error) {
	if viewerID == personID {
		return nil, ErrSelfBalance
	}
	snap := s.ledger.Snapshot()
	if _, ok := snap.People[domain.PersonID(personID)]; !ok {
		return nil, ErrPersonNotFound
	}

	names, err := s.names(ctx)
	if err != nil {
		return nil, err
	}
	amount := snap.Between(domain.PersonID(personID), domain.PersonID(viewerID))
	name := nameOf(names, domain.PersonID(personID))
	return &NetBalanceResponse{
		PersonID: personID,
		Name:     name,
		Amount:   amount.String(),
		Message:  message(name, amount),
	}, nil
}

// Suggestions proposes payments that would settle the whole household
func (s *Service) Suggestions(ctx context.Context) ([]*TransferResponse, error) {
	names, err := s.names(ctx)
	if err != nil {
		return nil, err
	}

	transfers := s.ledger.Snapshot().Suggestions()
	out := make([]*TransferResponse, len(transfers))
	for i, t := range transfers {
		out[i] = &TransferResponse{
			FromID:   int64(t.From),
			FromName: nameOf(names, t.From),
			ToID:     int64(t.To),
			ToName:   nameOf(names, t.To),
			Amount:   t.Amount.String(),
		}
	}
	return out, nil
}

// Ledger returns every global balance and their total
func (s *Service) Ledger() *LedgerResponse {
	snap := s.ledger.Snapshot()
	balances := make(map[domain.PersonID]string, len(snap.Balances))
	for id, amount := range snap.Balances {
		balances[id] = amount.String()
	}
	return &LedgerResponse{
		Balances: balances,
		Total:    snap.Total().String(),
		Entries:  snap.Entries,
	}
}
