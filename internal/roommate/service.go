package roommate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/fkhayef/roommate-ledger/internal/activity"
	"github.com/fkhayef/roommate-ledger/internal/domain"
)

// Common errors
var (
	ErrRoommateNotFound = errors.New("roommate not found")
	ErrInvalidName      = errors.New("name must be 1 to 100 characters")
	ErrAlreadyArchived  = errors.New("roommate is already archived")
)

const maxNameLength = 100

// Store is the persistence the roommate service needs
type Store interface {
	Create(ctx context.Context, name string) (*domain.Person, error)
	GetByID(ctx context.Context, id domain.PersonID) (*domain.Person, error)
	List(ctx context.Context, limit, offset int) ([]*domain.Person, int, error)
	Rename(ctx context.Context, id domain.PersonID, name string) (*domain.Person, error)
	Archive(ctx context.Context, id domain.PersonID, at time.Time) error
}

// Ledger is the part of the balance engine that tracks persons
type Ledger interface {
	AddPerson(id domain.PersonID)
	ArchivePerson(id domain.PersonID) error
}

// Service handles roommate business logic
type Service struct {
	repo   Store
	ledger Ledger
	feed   activity.Publisher
}

// NewService creates a new roommate service
func NewService(repo Store, ledger Ledger, feed activity.Publisher) *Service {
	return &Service{repo: repo, ledger: ledger, feed: feed}
}

func normalizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > maxNameLength {
		return "", ErrInvalidName
	}
	return name, nil
}

// Create adds a roommate and makes it available to the ledger
func (s *Service) Create(ctx context.Context, actorID int64, req *CreateRoommateRequest) (*domain.Person, error) {
	name, err := normalizeName(req.Name)
	if err != nil {
		return nil, err
	}

	p, err := s.repo.Create(ctx, name)
	if err != nil {
		return nil, err
	}
	s.ledger.AddPerson(p.ID)

	slog.Info("roommate added", "person_id", p.ID, "by", actorID)
	s.feed.Publish(activity.New(int64(p.ID), activity.TypeRoommateAdded,
		fmt.Sprintf("You were added as a roommate as %s", p.Name),
		activity.WithEntity(activity.EntityRoommate, int64(p.ID))))

	return p, nil
}

// GetByID retrieves a roommate, archived or not
func (s *Service) GetByID(ctx context.Context, id domain.PersonID) (*domain.Person, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrRoommateNotFound
	}
	return p, nil
}

// List retrieves active roommates with pagination
func (s *Service) List(ctx context.Context, page, perPage int) ([]*domain.Person, int, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	offset := (page - 1) * perPage
	return s.repo.List(ctx, perPage, offset)
}

// Rename changes a roommate's display name
func (s *Service) Rename(ctx context.Context, id domain.PersonID, req *UpdateRoommateRequest) (*domain.Person, error) {
	name, err := normalizeName(req.Name)
	if err != nil {
		return nil, err
	}

	p, err := s.repo.Rename(ctx, id, name)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrRoommateNotFound
	}
	return p, nil
}

// Archive removes a roommate from new entries. The roommate must be settled
// with everybody; history keeps referring to them.
func (s *Service) Archive(ctx context.Context, actorID int64, id domain.PersonID) error {
	p, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !p.Active() {
		return ErrAlreadyArchived
	}

	// the ledger check and the flag flip happen under the ledger lock
	if err := s.ledger.ArchivePerson(id); err != nil {
		return err
	}
	if err := s.repo.Archive(ctx, id, time.Now().UTC()); err != nil {
		s.ledger.AddPerson(id)
		return err
	}

	slog.Info("roommate archived", "person_id", id, "by", actorID)
	if int64(id) != actorID {
		s.feed.Publish(activity.New(int64(id), activity.TypeRoommateArchived,
			"You were removed from the roommate list",
			activity.WithEntity(activity.EntityRoommate, int64(id))))
	}
	return nil
}
