package ledger

import (
	"sort"

	"github.com/fkhayef/roommate-ledger/internal/domain"
	"github.com/fkhayef/roommate-ledger/internal/money"
)

// BalanceMap maps a person to a signed amount.
type BalanceMap map[domain.PersonID]money.Money

// Snapshot is a point-in-time copy of the aggregator. Changing it does not
// affect the aggregator.
type Snapshot struct {
	People   map[domain.PersonID]bool
	Balances BalanceMap
	Pairs    map[domain.PersonID]map[domain.PersonID]money.Money
	Entries  int
}

// Of returns the global balance of id: positive when id is owed money.
func (s *Snapshot) Of(id domain.PersonID) money.Money {
	return s.Balances[id]
}

// Between returns a's position against b: positive when b owes a.
func (s *Snapshot) Between(a, b domain.PersonID) money.Money {
	return s.Pairs[a][b]
}

// RelativeTo returns every other person's position against viewer.
// Negative means the person owes viewer; positive means viewer owes them.
// Archived persons are left out once settled.
func (s *Snapshot) RelativeTo(viewer domain.PersonID) BalanceMap {
	out := make(BalanceMap)
	for id, active := range s.People {
		if id == viewer {
			continue
		}
		m := s.Between(id, viewer)
		if !active && m.IsZero() {
			continue
		}
		out[id] = m
	}
	return out
}

// Total sums every global balance. It is zero whenever the ledger is
// consistent.
func (s *Snapshot) Total() money.Money {
	total := money.Zero
	for _, m := range s.Balances {
		total = total.Add(m)
	}
	return total
}

// Suggestions proposes payments that would settle everybody.
func (s *Snapshot) Suggestions() []Transfer {
	return SimplifyDebts(s.Balances)
}

// IDs returns the known person ids in ascending order.
func (s *Snapshot) IDs() []domain.PersonID {
	ids := make([]domain.PersonID, 0, len(s.People))
	for id := range s.People {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
