package ledger

import (
	"sort"

	"github.com/fkhayef/roommate-ledger/internal/domain"
	"github.com/fkhayef/roommate-ledger/internal/money"
)

// Transfer says From owes To the amount.
type Transfer struct {
	From   domain.PersonID `json:"from"`
	To     domain.PersonID `json:"to"`
	Amount money.Money     `json:"amount"`
}

// Transfers matches debtors to creditors for one entry's deltas.
// Both sides are visited in first-appearance order so the result is stable.
func Transfers(deltas []Delta) []Transfer {
	var debtors, creditors []Delta
	for _, d := range Net(deltas) {
		switch d.Amount.Sign() {
		case -1:
			debtors = append(debtors, Delta{PersonID: d.PersonID, Amount: d.Amount.Neg()})
		case 1:
			creditors = append(creditors, d)
		}
	}
	return match(debtors, creditors)
}

// SimplifyDebts proposes a short list of payments that brings every balance
// to zero. Larger balances are matched first; ties break on the lower id.
func SimplifyDebts(balances map[domain.PersonID]money.Money) []Transfer {
	var debtors, creditors []Delta
	for id, amount := range balances {
		switch amount.Sign() {
		case -1:
			debtors = append(debtors, Delta{PersonID: id, Amount: amount.Neg()})
		case 1:
			creditors = append(creditors, Delta{PersonID: id, Amount: amount})
		}
	}
	byAmount := func(list []Delta) {
		sort.Slice(list, func(i, j int) bool {
			if c := list[i].Amount.Cmp(list[j].Amount); c != 0 {
				return c > 0
			}
			return list[i].PersonID < list[j].PersonID
		})
	}
	byAmount(debtors)
	byAmount(creditors)
	return match(debtors, creditors)
}

// match pairs positive debts with positive credits until one side runs out.
func match(debtors, creditors []Delta) []Transfer {
	var out []Transfer
	i, j := 0, 0
	for i < len(debtors) && j < len(creditors) {
		amount := money.Min(debtors[i].Amount, creditors[j].Amount)
		out = append(out, Transfer{From: debtors[i].PersonID, To: creditors[j].PersonID, Amount: amount})

		debtors[i].Amount = debtors[i].Amount.Sub(amount)
		creditors[j].Amount = creditors[j].Amount.Sub(amount)
		if debtors[i].Amount.IsZero() {
			i++
		}
		if creditors[j].Amount.IsZero() {
			j++
		}
	}
	return out
}
