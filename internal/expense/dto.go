package expense

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fkhayef/roommate-ledger/internal/domain"
	"github.com/fkhayef/roommate-ledger/internal/money"
)

var ErrInvalidDate = errors.New("date must be formatted as YYYY-MM-DD")

// PayerInput is one payer of an expense. Amount may be omitted when there is
// a single payer, who then paid the whole total.
type PayerInput struct {
	PersonID int64        `json:"person_id"`
	Amount   *money.Money `json:"amount,omitempty" swaggertype:"string" example:"60.00"`
}

// CreateExpenseRequest represents the request to create or replace an expense
type CreateExpenseRequest struct {
	Description  string                `json:"description" example:"Groceries"`
	Amount       money.Money           `json:"amount" swaggertype:"string" example:"60.00"`
	Date         string                `json:"date" example:"2024-03-01"`
	SplitType    string                `json:"split_type" enums:"EQUAL,CUSTOM"`
	PaidBy       []PayerInput          `json:"paid_by"`
	SplitWith    []int64               `json:"split_with"`
	SplitDetails map[int64]money.Money `json:"split_details,omitempty" swaggertype:"object,string"`
}

// ToDraft converts the request into an expense draft created by creatorID
func (req *CreateExpenseRequest) ToDraft(creatorID int64) (*domain.ExpenseDraft, error) {
	var date time.Time
	if s := strings.TrimSpace(req.Date); s != "" {
		d, err := time.Parse(domain.DateLayout, s)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidDate, req.Date)
		}
		date = d
	}

	payers := make([]domain.Payment, len(req.PaidBy))
	for i, p := range req.PaidBy {
		amount := money.Zero
		switch {
		case p.Amount != nil:
			amount = *p.Amount
		case len(req.PaidBy) == 1:
			amount = req.Amount
		}
		payers[i] = domain.Payment{PersonID: domain.PersonID(p.PersonID), Amount: amount}
	}

	participants := make([]domain.PersonID, len(req.SplitWith))
	for i, id := range req.SplitWith {
		participants[i] = domain.PersonID(id)
	}

	var custom map[domain.PersonID]money.Money
	if len(req.SplitDetails) > 0 {
		custom = make(map[domain.PersonID]money.Money, len(req.SplitDetails))
		for id, amount := range req.SplitDetails {
			custom[domain.PersonID(id)] = amount
		}
	}

	return &domain.ExpenseDraft{
		Description:  strings.TrimSpace(req.Description),
		Amount:       req.Amount,
		Date:         date,
		Policy:       domain.SplitPolicy(strings.ToUpper(strings.TrimSpace(req.SplitType))),
		Payers:       payers,
		Participants: participants,
		CustomShares: custom,
		CreatedBy:    domain.PersonID(creatorID),
	}, nil
}

// LineResponse is one payer or participant line
type LineResponse struct {
	PersonID int64  `json:"person_id"`
	Amount   string `json:"amount" example:"20.00"`
}

// ExpenseResponse represents the response for an expense
type ExpenseResponse struct {
	ID          int64          `json:"id"`
	Description string         `json:"description"`
	Amount      string         `json:"amount" example:"60.00"`
	Date        string         `json:"date" example:"2024-03-01"`
	SplitType   string         `json:"split_type"`
	Payers      []LineResponse `json:"payers"`
	Shares      []LineResponse `json:"shares"`
	YourShare   string         `json:"your_share" example:"20.00"`
	YourNet     string         `json:"your_net" example:"40.00"`
	CreatedBy   int64          `json:"created_by"`
	CreatedAt   string         `json:"created_at"`
}

// ToResponse converts an expense to an ExpenseResponse as seen by viewerID
func ToResponse(e *domain.Expense, viewerID int64) *ExpenseResponse {
	viewer := domain.PersonID(viewerID)
	paid := money.Zero

	payers := make([]LineResponse, len(e.Payers))
	for i, p := range e.Payers {
		payers[i] = LineResponse{PersonID: int64(p.PersonID), Amount: p.Amount.String()}
		if p.PersonID == viewer {
			paid = paid.Add(p.Amount)
		}
	}
	shares := make([]LineResponse, len(e.Shares))
	for i, s := range e.Shares {
		shares[i] = LineResponse{PersonID: int64(s.PersonID), Amount: s.Amount.String()}
	}
	share := e.ShareOf(viewer)

	return &ExpenseResponse{
		ID:          e.ID,
		Description: e.Description,
		Amount:      e.Amount.String(),
		Date:        e.Date.Format(domain.DateLayout),
		SplitType:   string(e.Policy),
		Payers:      payers,
		Shares:      shares,
		YourShare:   share.String(),
		YourNet:     paid.Sub(share).String(),
		CreatedBy:   int64(e.CreatedBy),
		CreatedAt:   e.CreatedAt.UTC().Format(time.RFC3339),
	}
}
