package activity

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// Common errors
var (
	ErrActivityNotFound = errors.New("activity not found")
	ErrNotRecipient     = errors.New("not the recipient of this activity")
)

// Store is the persistence the feed service needs
type Store interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Activity, error)
	ListByRecipientID(ctx context.Context, recipientID int64, limit, offset int, unreadOnly bool) ([]*Activity, int, error)
	MarkAsRead(ctx context.Context, id uuid.UUID) error
	MarkAllAsRead(ctx context.Context, recipientID int64) error
	GetUnreadCount(ctx context.Context, recipientID int64) (int, error)
}

// Service handles activity feed business logic
type Service struct {
	repo Store
}

// NewService creates a new activity service
func NewService(repo Store) *Service {
	return &Service{repo: repo}
}

// ListByRecipientID retrieves a page of a person's feed
func (s *Service) ListByRecipientID(ctx context.Context, recipientID int64, page, perPage int, unreadOnly bool) ([]*Activity, int, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	offset := (page - 1) * perPage
	return s.repo.ListByRecipientID(ctx, recipientID, perPage, offset, unreadOnly)
}

// MarkAsRead marks an activity as read; only its recipient may do so
func (s *Service) MarkAsRead(ctx context.Context, id uuid.UUID, userID int64) error {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if a == nil {
		return ErrActivityNotFound
	}
	if a.RecipientID != userID {
		return ErrNotRecipient
	}

	return s.repo.MarkAsRead(ctx, id)
}

// MarkAllAsRead marks all activities as read for a person
func (s *Service) MarkAllAsRead(ctx context.Context, userID int64) error {
	return s.repo.MarkAllAsRead(ctx, userID)
}

// GetUnreadCount returns the count of unread activities
func (s *Service) GetUnreadCount(ctx context.Context, userID int64) (int, error) {
	return s.repo.GetUnreadCount(ctx, userID)
}
