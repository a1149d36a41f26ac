// Package domain holds the ledger's core records shared by the engine and the
// feature packages.
package domain

import (
	"errors"
	"time"

	"github.com/fkhayef/roommate-ledger/internal/money"
)

// ErrUnknownPerson is returned when an entry names a person the ledger does
// not know.
var ErrUnknownPerson = errors.New("unknown person")

// PersonID identifies a roommate (the logged-in user is a person too).
type PersonID int64

// Person is a roommate taking part in the shared ledger.
type Person struct {
	ID         PersonID   `json:"id"`
	Name       string     `json:"name"`
	ArchivedAt *time.Time `json:"archived_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// Active reports whether the person can take part in new entries.
func (p *Person) Active() bool {
	return p.ArchivedAt == nil
}

// SplitPolicy defines how an expense total is divided among participants
type SplitPolicy string

const (
	SplitEqual  SplitPolicy = "EQUAL"
	SplitCustom SplitPolicy = "CUSTOM"
)

// Payment is what one payer put towards an expense.
type Payment struct {
	PersonID PersonID    `json:"person_id"`
	Amount   money.Money `json:"amount"`
}

// Share is what one participant owes for an expense.
type Share struct {
	PersonID PersonID    `json:"person_id"`
	Amount   money.Money `json:"amount"`
}

// ExpenseDraft is an expense as requested, before shares are allocated.
// Payers and Participants are ordered; order decides who absorbs remainder cents.
type ExpenseDraft struct {
	Description  string
	Amount       money.Money
	Date         time.Time
	Policy       SplitPolicy
	Payers       []Payment
	Participants []PersonID
	CustomShares map[PersonID]money.Money // CUSTOM only
	CreatedBy    PersonID
}

// Expense is an accepted expense with its allocated shares.
type Expense struct {
	ID          int64       `json:"id"`
	Description string      `json:"description"`
	Amount      money.Money `json:"amount"`
	Date        time.Time   `json:"date"`
	Policy      SplitPolicy `json:"split_type"`
	Payers      []Payment   `json:"payers"`
	Shares      []Share     `json:"shares"`
	CreatedBy   PersonID    `json:"created_by"`
	CreatedAt   time.Time   `json:"created_at"`
}

// Involves reports whether id paid for or shares in the expense.
func (e *Expense) Involves(id PersonID) bool {
	for _, p := range e.Payers {
		if p.PersonID == id {
			return true
		}
	}
	for _, s := range e.Shares {
		if s.PersonID == id {
			return true
		}
	}
	return false
}

// ShareOf returns what id owes for the expense.
func (e *Expense) ShareOf(id PersonID) money.Money {
	for _, s := range e.Shares {
		if s.PersonID == id {
			return s.Amount
		}
	}
	return money.Zero
}

// SettlementDraft is a settlement as requested.
type SettlementDraft struct {
	PayerID    PersonID
	ReceiverID PersonID
	Amount     money.Money
	Date       time.Time
	Note       string
	CreatedBy  PersonID
}

// Settlement records a real-world payment from payer to receiver.
type Settlement struct {
	ID         int64       `json:"id"`
	PayerID    PersonID    `json:"payer_id"`
	ReceiverID PersonID    `json:"receiver_id"`
	Amount     money.Money `json:"amount"`
	Date       time.Time   `json:"date"`
	Note       string      `json:"note,omitempty"`
	CreatedBy  PersonID    `json:"created_by"`
	CreatedAt  time.Time   `json:"created_at"`
}

// HasParty reports whether id paid or received the settlement.
func (s *Settlement) HasParty(id PersonID) bool {
	return s.PayerID == id || s.ReceiverID == id
}

// DateLayout is the wire format of expense and settlement dates.
const DateLayout = "2006-01-02"
