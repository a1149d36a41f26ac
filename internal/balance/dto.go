package balance

import "github.com/fkhayef/roommate-ledger/internal/domain"

// NetBalanceResponse is the caller's position against one roommate.
// Amount is positive when the caller owes them and negative when they owe the caller.
type NetBalanceResponse struct {
	PersonID int64  `json:"person_id"`
	Name     string `json:"name"`
	Amount   string `json:"amount" example:"-20.00"`
	Message  string `json:"message" example:"Alice owes you $20.00"`
}

// BalancesResponse is the caller's view of every roommate
type BalancesResponse struct {
	Balances map[domain.PersonID]string `json:"balances"`
	Items    []*NetBalanceResponse      `json:"items"`
}

// SummaryResponse totals the caller's position
type SummaryResponse struct {
	TotalOwed    string `json:"total_owed" example:"40.00"`
	TotalOwes    string `json:"total_owes" example:"0.00"`
	TotalBalance string `json:"total_balance" example:"40.00"`
}

// TransferResponse is one suggested payment
type TransferResponse struct {
	FromID   int64  `json:"from_id"`
	FromName string `json:"from_name"`
	ToID     int64  `json:"to_id"`
	ToName   string `json:"to_name"`
	Amount   string `json:"amount" example:"20.00"`
}

// LedgerResponse is the household-wide state
type LedgerResponse struct {
	Balances map[domain.PersonID]string `json:"balances"`
	Total    string                     `json:"total" example:"0.00"`
	Entries  int                        `json:"entries"`
}
