package activity

import (
	"time"

	"github.com/google/uuid"
)

// Activity is one entry in a person's feed
type Activity struct {
	ID          uuid.UUID `json:"id"`
	RecipientID int64     `json:"recipient_id"`
	Type        Type      `json:"type"`
	Message     string    `json:"message"`
	EntityType  string    `json:"entity_type,omitempty"` // "EXPENSE", "SETTLEMENT" or "ROOMMATE"
	EntityID    *int64    `json:"entity_id,omitempty"`
	IsRead      bool      `json:"is_read"`
	CreatedAt   time.Time `json:"created_at"`
}

// Type represents the kind of activity
type Type string

const (
	TypeExpenseAdded       Type = "EXPENSE_ADDED"
	TypeExpenseUpdated     Type = "EXPENSE_UPDATED"
	TypeExpenseDeleted     Type = "EXPENSE_DELETED"
	TypeSettlementRecorded Type = "SETTLEMENT_RECORDED"
	TypeSettlementDeleted  Type = "SETTLEMENT_DELETED"
	TypeRoommateAdded      Type = "ROOMMATE_ADDED"
	TypeRoommateArchived   Type = "ROOMMATE_ARCHIVED"
)

// Entity types
const (
	EntityExpense    = "EXPENSE"
	EntitySettlement = "SETTLEMENT"
	EntityRoommate   = "ROOMMATE"
)

type Option func(*Activity)

func WithEntity(entityType string, id int64) Option {
	return func(a *Activity) {
		a.EntityType = entityType
		a.EntityID = &id
	}
}

// New builds an unread activity with a fresh id
func New(recipientID int64, typ Type, message string, opts ...Option) Activity {
	a := Activity{
		ID:          uuid.New(),
		RecipientID: recipientID,
		Type:        typ,
		Message:     message,
		CreatedAt:   time.Now().UTC(),
	}
	for _, opt := range opts {
		opt(&a)
	}
	return a
}

// Publisher accepts activities for asynchronous delivery
type Publisher interface {
	Publish(a Activity)
}

// Fanout publishes the same message to every recipient except the actor.
func Fanout(p Publisher, actor int64, recipients []int64, typ Type, message string, opts ...Option) {
	seen := make(map[int64]bool, len(recipients))
	for _, id := range recipients {
		if id == actor || seen[id] {
			continue
		}
		seen[id] = true
		p.Publish(New(id, typ, message, opts...))
	}
}
