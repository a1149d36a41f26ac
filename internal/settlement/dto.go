package settlement

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fkhayef/roommate-ledger/internal/domain"
	"github.com/fkhayef/roommate-ledger/internal/money"
)

var ErrInvalidDate = errors.New("date must be formatted as YYYY-MM-DD")

// CreateSettlementRequest represents the request to record a settlement.
// Without an amount the payer settles everything they owe the receiver.
type CreateSettlementRequest struct {
	PayerID    int64        `json:"payer_id"`
	ReceiverID int64        `json:"receiver_id"`
	Amount     *money.Money `json:"amount,omitempty" swaggertype:"string" example:"25.00"`
	Date       string       `json:"date" example:"2024-03-05"`
	Note       string       `json:"note,omitempty" example:"Venmo"`
}

// ToDraft converts the request into a settlement draft. amount is used when
// the request carries none.
func (req *CreateSettlementRequest) ToDraft(creatorID int64, amount money.Money) (*domain.SettlementDraft, error) {
	date, err := parseDate(req.Date)
	if err != nil {
		return nil, err
	}
	if req.Amount != nil {
		amount = *req.Amount
	}
	return &domain.SettlementDraft{
		PayerID:    domain.PersonID(req.PayerID),
		ReceiverID: domain.PersonID(req.ReceiverID),
		Amount:     amount,
		Date:       date,
		Note:       strings.TrimSpace(req.Note),
		CreatedBy:  domain.PersonID(creatorID),
	}, nil
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	d, err := time.Parse(domain.DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return d, nil
}

// Filter narrows a settlement listing to a date range, both ends inclusive
type Filter struct {
	From *time.Time
	To   *time.Time
}

// ParseFilter reads the optional from and to query values
func ParseFilter(from, to string) (Filter, error) {
	var f Filter
	for _, p := range []struct {
		raw string
		dst **time.Time
	}{{from, &f.From}, {to, &f.To}} {
		d, err := parseDate(p.raw)
		if err != nil {
			return Filter{}, err
		}
		if !d.IsZero() {
			*p.dst = &d
		}
	}
	return f, nil
}

// SettlementResponse represents the response for a settlement
type SettlementResponse struct {
	ID         int64  `json:"id"`
	PayerID    int64  `json:"payer_id"`
	ReceiverID int64  `json:"receiver_id"`
	Amount     string `json:"amount" example:"25.00"`
	Date       string `json:"date" example:"2024-03-05"`
	Note       string `json:"note,omitempty"`
	Direction  string `json:"direction" enums:"PAID,RECEIVED"`
	CreatedBy  int64  `json:"created_by"`
	CreatedAt  string `json:"created_at"`
}

// ToResponse converts a settlement to a SettlementResponse as seen by viewerID
func ToResponse(s *domain.Settlement, viewerID int64) *SettlementResponse {
	direction := "RECEIVED"
	if int64(s.PayerID) == viewerID {
		direction = "PAID"
	}
	return &SettlementResponse{
		ID:         s.ID,
		PayerID:    int64(s.PayerID),
		ReceiverID: int64(s.ReceiverID),
		Amount:     s.Amount.String(),
		Date:       s.Date.Format(domain.DateLayout),
		Note:       s.Note,
		Direction:  direction,
		CreatedBy:  int64(s.CreatedBy),
		CreatedAt:  s.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// TotalSettledResponse totals the caller's settlements
type TotalSettledResponse struct {
	TotalReceived string `json:"total_received" example:"40.00"`
	TotalPaid     string `json:"total_paid" example:"15.00"`
	Net           string `json:"net" example:"25.00"`
}
