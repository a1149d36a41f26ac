package settlement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/fkhayef/roommate-ledger/internal/activity"
	"github.com/fkhayef/roommate-ledger/internal/domain"
	"github.com/fkhayef/roommate-ledger/internal/ledger"
	"github.com/fkhayef/roommate-ledger/internal/money"
)

// Common errors
var (
	ErrSettlementNotFound = errors.New("settlement not found")
	ErrNotParty           = errors.New("you must be the payer or the receiver")
	ErrAlreadySettled     = errors.New("already settled up, nothing is owed")
)

// Store is the persistence the settlement service needs
type Store interface {
	Create(ctx context.Context, s *domain.Settlement) (*domain.Settlement, error)
	GetByID(ctx context.Context, id int64) (*domain.Settlement, error)
	ListForPerson(ctx context.Context, personID int64, f Filter, limit, offset int) ([]*domain.Settlement, int, error)
	TotalsForPerson(ctx context.Context, personID int64) (received, paid money.Money, err error)
	Delete(ctx context.Context, id int64) error
}

// Ledger is the part of the balance engine that accepts settlements
type Ledger interface {
	PrepareSettlement(d *domain.SettlementDraft) (*domain.Settlement, error)
	RecordSettlement(s *domain.Settlement) error
	RemoveSettlement(id int64) error
	Snapshot() *ledger.Snapshot
}

// Service handles settlement business logic
type Service struct {
	repo   Store
	ledger Ledger
	feed   activity.Publisher
}

// NewService creates a new settlement service
func NewService(repo Store, ledger Ledger, feed activity.Publisher) *Service {
	return &Service{repo: repo, ledger: ledger, feed: feed}
}

// Create records a payment between two roommates. The actor must be one of
// them. Without an amount the payer's whole debt to the receiver is settled.
func (s *Service) Create(ctx context.Context, actorID int64, req *CreateSettlementRequest) (*domain.Settlement, error) {
	if req.PayerID != actorID && req.ReceiverID != actorID {
		return nil, ErrNotParty
	}

	amount := money.Zero
	if req.Amount == nil && req.PayerID != req.ReceiverID {
		// positive when the payer owes the receiver
		amount = s.ledger.Snapshot().Between(domain.PersonID(req.ReceiverID), domain.PersonID(req.PayerID))
		if !amount.IsPositive() {
			return nil, ErrAlreadySettled
		}
	}

	draft, err := req.ToDraft(actorID, amount)
	if err != nil {
		return nil, err
	}
	prepared, err := s.ledger.PrepareSettlement(draft)
	if err != nil {
		return nil, err
	}

	st, err := s.repo.Create(ctx, prepared)
	if err != nil {
		return nil, err
	}
	if err := s.ledger.RecordSettlement(st); err != nil {
		slog.Error("settlement stored but not applied, removing", "settlement_id", st.ID, "error", err)
		if derr := s.repo.Delete(ctx, st.ID); derr != nil {
			slog.Error("failed to remove unapplied settlement", "settlement_id", st.ID, "error", derr)
		}
		return nil, fmt.Errorf("failed to apply settlement: %w", err)
	}

	slog.Info("settlement recorded", "settlement_id", st.ID, "amount", st.Amount.String(), "by", actorID)
	activity.Fanout(s.feed, actorID, []int64{int64(st.PayerID), int64(st.ReceiverID)},
		activity.TypeSettlementRecorded,
		fmt.Sprintf("Settlement of %s recorded between roommates %d and %d", st.Amount, st.PayerID, st.ReceiverID),
		activity.WithEntity(activity.EntitySettlement, st.ID))

	return st, nil
}

// GetByID retrieves a settlement the viewer is party to
func (s *Service) GetByID(ctx context.Context, viewerID, id int64) (*domain.Settlement, error) {
	st, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if st == nil {
		return nil, ErrSettlementNotFound
	}
	if !st.HasParty(domain.PersonID(viewerID)) {
		return nil, ErrNotParty
	}
	return st, nil
}

// List retrieves the viewer's settlements with pagination
func (s *Service) List(ctx context.Context, viewerID int64, f Filter, page, perPage int) ([]*domain.Settlement, int, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	offset := (page - 1) * perPage
	return s.repo.ListForPerson(ctx, viewerID, f, perPage, offset)
}

// TotalSettled reports what the viewer received and paid in settlements.
// Net is received minus paid.
func (s *Service) TotalSettled(ctx context.Context, viewerID int64) (*TotalSettledResponse, error) {
	received, paid, err := s.repo.TotalsForPerson(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	return &TotalSettledResponse{
		TotalReceived: received.String(),
		TotalPaid:     paid.String(),
		Net:           received.Sub(paid).String(),
	}, nil
}

// Delete removes a settlement and retracts it from the balances
func (s *Service) Delete(ctx context.Context, viewerID, id int64) error {
	st, err := s.GetByID(ctx, viewerID, id)
	if err != nil {
		return err
	}

	if err := s.ledger.RemoveSettlement(id); err != nil {
		return fmt.Errorf("failed to retract settlement: %w", err)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if rerr := s.ledger.RecordSettlement(st); rerr != nil {
			slog.Error("failed to re-apply settlement", "settlement_id", id, "error", rerr)
		}
		return err
	}

	slog.Info("settlement deleted", "settlement_id", id, "by", viewerID)
	activity.Fanout(s.feed, viewerID, []int64{int64(st.PayerID), int64(st.ReceiverID)},
		activity.TypeSettlementDeleted,
		fmt.Sprintf("Settlement of %s on %s was deleted", st.Amount, st.Date.Format(domain.DateLayout)),
		activity.WithEntity(activity.EntitySettlement, st.ID))

	return nil
}
