package ledger

import (
	"errors"
	"fmt"
	"sync"

	"github.com/fkhayef/roommate-ledger/internal/domain"
	"github.com/fkhayef/roommate-ledger/internal/money"
)

var (
	ErrUnknownPerson      = domain.ErrUnknownPerson
	ErrAlreadyApplied     = errors.New("entry already applied")
	ErrNotApplied         = errors.New("entry not applied")
	ErrUnbalanced         = errors.New("entry deltas do not sum to zero")
	ErrOutstandingBalance = errors.New("person has an outstanding balance")
)

// Aggregator folds ledger entries into per-person balances.
//
// It keeps two views: the global balance of each person (paid minus owed) and
// a pairwise view where pairs[p][q] > 0 means q owes p. Both are updated
// together under one lock, so a reader never sees half an entry.
type Aggregator struct {
	mu       sync.RWMutex
	people   map[domain.PersonID]bool // value is the active flag
	balances map[domain.PersonID]money.Money
	pairs    map[domain.PersonID]map[domain.PersonID]money.Money
	applied  map[EntryRef][]Delta
}

// NewAggregator returns an empty aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{
		people:   make(map[domain.PersonID]bool),
		balances: make(map[domain.PersonID]money.Money),
		pairs:    make(map[domain.PersonID]map[domain.PersonID]money.Money),
		applied:  make(map[EntryRef][]Delta),
	}
}

// Register makes id known and active. Registering an archived person
// reactivates it.
func (a *Aggregator) Register(id domain.PersonID) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.setPerson(id, true)
}

func (a *Aggregator) setPerson(id domain.PersonID, active bool) {
	a.people[id] = active
	if _, ok := a.balances[id]; !ok {
		a.balances[id] = money.Zero
	}
}

// Archive deactivates id. It fails unless the person is fully settled with
// everybody.
func (a *Aggregator) Archive(id domain.PersonID) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, ok := a.people[id]; !ok {
		return fmt.Errorf("%w: %d", ErrUnknownPerson, id)
	}
	if !a.balances[id].IsZero() || len(a.pairs[id]) > 0 {
		return fmt.Errorf("%w: person %d has %s", ErrOutstandingBalance, id, a.balances[id])
	}
	a.people[id] = false
	return nil
}

// Known reports whether id has been registered, archived or not.
func (a *Aggregator) Known(id domain.PersonID) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	_, ok := a.people[id]
	return ok
}

// Active reports whether id is registered and not archived.
func (a *Aggregator) Active(id domain.PersonID) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.people[id]
}

// Count returns the number of known persons.
func (a *Aggregator) Count() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.people)
}

// Applied reports whether ref is currently folded in.
func (a *Aggregator) Applied(ref EntryRef) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	_, ok := a.applied[ref]
	return ok
}

// Apply folds an entry's deltas in. Nothing changes if any check fails.
func (a *Aggregator) Apply(ref EntryRef, deltas []Delta) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, ok := a.applied[ref]; ok {
		return fmt.Errorf("%w: %s %d", ErrAlreadyApplied, ref.Kind, ref.ID)
	}
	if err := a.check(deltas); err != nil {
		return err
	}

	a.fold(deltas, false)
	a.applied[ref] = append([]Delta(nil), deltas...)
	return nil
}

// Retract removes a previously applied entry and returns the deltas that were
// undone.
func (a *Aggregator) Retract(ref EntryRef) ([]Delta, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	deltas, ok := a.applied[ref]
	if !ok {
		return nil, fmt.Errorf("%w: %s %d", ErrNotApplied, ref.Kind, ref.ID)
	}
	a.fold(deltas, true)
	delete(a.applied, ref)
	return deltas, nil
}

// Replace swaps the deltas of an applied entry in one step. On error the old
// entry stays in place.
func (a *Aggregator) Replace(ref EntryRef, deltas []Delta) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	old, ok := a.applied[ref]
	if !ok {
		return fmt.Errorf("%w: %s %d", ErrNotApplied, ref.Kind, ref.ID)
	}
	if err := a.check(deltas); err != nil {
		return err
	}

	a.fold(old, true)
	a.fold(deltas, false)
	a.applied[ref] = append([]Delta(nil), deltas...)
	return nil
}

func (a *Aggregator) check(deltas []Delta) error {
	var errs []error
	seen := make(map[domain.PersonID]bool)
	for _, d := range deltas {
		if _, ok := a.people[d.PersonID]; !ok && !seen[d.PersonID] {
			seen[d.PersonID] = true
			errs = append(errs, fmt.Errorf("%w: %d", ErrUnknownPerson, d.PersonID))
		}
	}
	if total := Total(deltas); !total.IsZero() {
		errs = append(errs, fmt.Errorf("%w: off by %s", ErrUnbalanced, total))
	}
	return errors.Join(errs...)
}

// fold adds deltas to both views, or subtracts them when undo is set.
// The pairwise transfers are derived from the original deltas either way so
// undo is exact.
func (a *Aggregator) fold(deltas []Delta, undo bool) {
	sign := func(m money.Money) money.Money {
		if undo {
			return m.Neg()
		}
		return m
	}

	for _, d := range deltas {
		a.balances[d.PersonID] = a.balances[d.PersonID].Add(sign(d.Amount))
	}
	for _, t := range Transfers(deltas) {
		a.addPair(t.To, t.From, sign(t.Amount))
		a.addPair(t.From, t.To, sign(t.Amount).Neg())
	}
}

func (a *Aggregator) addPair(p, q domain.PersonID, amount money.Money) {
	row := a.pairs[p]
	if row == nil {
		row = make(map[domain.PersonID]money.Money)
		a.pairs[p] = row
	}
	next := row[q].Add(amount)
	if next.IsZero() {
		delete(row, q)
		if len(row) == 0 {
			delete(a.pairs, p)
		}
		return
	}
	row[q] = next
}

// Snapshot returns a deep copy of the current state.
func (a *Aggregator) Snapshot() *Snapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()

	s := &Snapshot{
		People:   make(map[domain.PersonID]bool, len(a.people)),
		Balances: make(map[domain.PersonID]money.Money, len(a.balances)),
		Pairs:    make(map[domain.PersonID]map[domain.PersonID]money.Money, len(a.pairs)),
		Entries:  len(a.applied),
	}
	for id, active := range a.people {
		s.People[id] = active
	}
	for id, m := range a.balances {
		s.Balances[id] = m
	}
	for p, row := range a.pairs {
		cp := make(map[domain.PersonID]money.Money, len(row))
		for q, m := range row {
			cp[q] = m
		}
		s.Pairs[p] = cp
	}
	return s
}

// adopt takes over the state of other, which must not be used afterwards.
func (a *Aggregator) adopt(other *Aggregator) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.people = other.people
	a.balances = other.balances
	a.pairs = other.pairs
	a.applied = other.applied
}
