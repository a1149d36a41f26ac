// Package ledger turns expenses and settlements into signed balance deltas and
// folds them into per-person balances.
package ledger

import (
	"github.com/fkhayef/roommate-ledger/internal/domain"
	"github.com/fkhayef/roommate-ledger/internal/money"
)

// Delta is a signed adjustment to one person's balance.
// Positive means the person is owed more; negative means they owe more.
type Delta struct {
	PersonID domain.PersonID
	Amount   money.Money
}

// EntryKind names the kind of event an applied entry came from.
type EntryKind string

const (
	KindExpense    EntryKind = "expense"
	KindSettlement EntryKind = "settlement"
)

// EntryRef identifies an applied entry.
type EntryRef struct {
	Kind EntryKind
	ID   int64
}

func ExpenseRef(id int64) EntryRef    { return EntryRef{Kind: KindExpense, ID: id} }
func SettlementRef(id int64) EntryRef { return EntryRef{Kind: KindSettlement, ID: id} }

// ExpenseDeltas credits each payer with what they paid and debits each
// participant with their share. Payers come first, in payment order.
func ExpenseDeltas(e *domain.Expense) []Delta {
	deltas := make([]Delta, 0, len(e.Payers)+len(e.Shares))
	for _, p := range e.Payers {
		deltas = append(deltas, Delta{PersonID: p.PersonID, Amount: p.Amount})
	}
	for _, s := range e.Shares {
		deltas = append(deltas, Delta{PersonID: s.PersonID, Amount: s.Amount.Neg()})
	}
	return deltas
}

// SettlementDeltas credits the payer and debits the receiver.
func SettlementDeltas(s *domain.Settlement) []Delta {
	return []Delta{
		{PersonID: s.PayerID, Amount: s.Amount},
		{PersonID: s.ReceiverID, Amount: s.Amount.Neg()},
	}
}

// Net sums deltas per person, keeping first-appearance order.
func Net(deltas []Delta) []Delta {
	index := make(map[domain.PersonID]int, len(deltas))
	var out []Delta
	for _, d := range deltas {
		i, ok := index[d.PersonID]
		if !ok {
			index[d.PersonID] = len(out)
			out = append(out, d)
			continue
		}
		out[i].Amount = out[i].Amount.Add(d.Amount)
	}
	return out
}

// Total sums every delta. A well formed entry totals zero.
func Total(deltas []Delta) money.Money {
	total := money.Zero
	for _, d := range deltas {
		total = total.Add(d.Amount)
	}
	return total
}

// Inverse negates every delta.
func Inverse(deltas []Delta) []Delta {
	out := make([]Delta, len(deltas))
	for i, d := range deltas {
		out[i] = Delta{PersonID: d.PersonID, Amount: d.Amount.Neg()}
	}
	return out
}
