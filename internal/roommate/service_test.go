package roommate

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/fkhayef/roommate-ledger/internal/activity"
	"github.com/fkhayef/roommate-ledger/internal/domain"
	"github.com/fkhayef/roommate-ledger/internal/ledger"
	"github.com/fkhayef/roommate-ledger/internal/money"
)

type memoryStore struct {
	people map[domain.PersonID]*domain.Person
	nextID domain.PersonID
	failOn string
}

func newMemoryStore() *memoryStore {
	return &memoryStore{people: make(map[domain.PersonID]*domain.Person)}
}

func (m *memoryStore) Create(ctx context.Context, name string) (*domain.Person, error) {
	m.nextID++
	p := &domain.Person{ID: m.nextID, Name: name, CreatedAt: time.Now()}
	m.people[p.ID] = p
	cp := *p
	return &cp, nil
}

func (m *memoryStore) GetByID(ctx context.Context, id domain.PersonID) (*domain.Person, error) {
	p, ok := m.people[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (m *memoryStore) List(ctx context.Context, limit, offset int) ([]*domain.Person, int, error) {
	var out []*domain.Person
	for id := domain.PersonID(1); id <= m.nextID; id++ {
		if p, ok := m.people[id]; ok && p.Active() {
			out = append(out, p)
		}
	}
	return out, len(out), nil
}

func (m *memoryStore) Rename(ctx context.Context, id domain.PersonID, name string) (*domain.Person, error) {
	p, ok := m.people[id]
	if !ok {
		return nil, nil
	}
	p.Name = name
	return p, nil
}

func (m *memoryStore) Archive(ctx context.Context, id domain.PersonID, at time.Time) error {
	if m.failOn == "archive" {
		return errors.New("database unavailable")
	}
	m.people[id].ArchivedAt = &at
	return nil
}

type collector struct{ got []activity.Activity }

func (c *collector) Publish(a activity.Activity) { c.got = append(c.got, a) }

func TestService_CreateAndRename(t *testing.T) {
	book := ledger.NewBook()
	feed := &collector{}
	svc := NewService(newMemoryStore(), book, feed)
	ctx := context.Background()

	p, err := svc.Create(ctx, 1, &CreateRoommateRequest{Name: "  Alice  "})
	if err != nil {
		t.Fatalf("Create error = %v", err)
	}
	if p.Name != "Alice" {
		t.Errorf("Name = %q, want trimmed", p.Name)
	}
	if !book.Directory().Active(p.ID) {
		t.Error("new roommate not registered with the ledger")
	}
	if len(feed.got) != 1 || feed.got[0].RecipientID != int64(p.ID) {
		t.Errorf("activities = %+v", feed.got)
	}

	for _, name := range []string{"", "   ", strings.Repeat("x", 101)} {
		if _, err := svc.Create(ctx, 1, &CreateRoommateRequest{Name: name}); !errors.Is(err, ErrInvalidName) {
			t.Errorf("Create(%q) error = %v, want ErrInvalidName", name, err)
		}
	}

	if _, err := svc.Rename(ctx, 99, &UpdateRoommateRequest{Name: "Bob"}); !errors.Is(err, ErrRoommateNotFound) {
		t.Errorf("Rename(missing) error = %v, want ErrRoommateNotFound", err)
	}
	renamed, err := svc.Rename(ctx, p.ID, &UpdateRoommateRequest{Name: "Alicia"})
	if err != nil || renamed.Name != "Alicia" {
		t.Errorf("Rename = %+v, %v", renamed, err)
	}
}

func TestService_ArchiveRequiresZeroBalance(t *testing.T) {
	book := ledger.NewBook()
	store := newMemoryStore()
	svc := NewService(store, book, &collector{})
	ctx := context.Background()

	you, _ := svc.Create(ctx, 1, &CreateRoommateRequest{Name: "You"})
	alice, _ := svc.Create(ctx, 1, &CreateRoommateRequest{Name: "Alice"})
	bob, _ := svc.Create(ctx, 1, &CreateRoommateRequest{Name: "Bob"})

	e, err := book.PrepareExpense(&domain.ExpenseDraft{
		Description:  "Pizza",
		Amount:       money.MustParse("20.00"),
		Date:         time.Now(),
		Policy:       domain.SplitEqual,
		Payers:       []domain.Payment{{PersonID: you.ID, Amount: money.MustParse("20.00")}},
		Participants: []domain.PersonID{you.ID, alice.ID},
	})
	if err != nil {
		t.Fatalf("PrepareExpense error = %v", err)
	}
	e.ID = 1
	if err := book.RecordExpense(e); err != nil {
		t.Fatalf("RecordExpense error = %v", err)
	}

	if err := svc.Archive(ctx, int64(you.ID), alice.ID); !errors.Is(err, ledger.ErrOutstandingBalance) {
		t.Errorf("Archive(alice) error = %v, want ErrOutstandingBalance", err)
	}
	if store.people[alice.ID].ArchivedAt != nil {
		t.Error("alice archived in the store despite outstanding balance")
	}

	if err := svc.Archive(ctx, int64(you.ID), bob.ID); err != nil {
		t.Fatalf("Archive(bob) error = %v", err)
	}
	if book.Directory().Active(bob.ID) || store.people[bob.ID].ArchivedAt == nil {
		t.Error("bob not archived")
	}
	if err := svc.Archive(ctx, int64(you.ID), bob.ID); !errors.Is(err, ErrAlreadyArchived) {
		t.Errorf("second Archive error = %v, want ErrAlreadyArchived", err)
	}
	if err := svc.Archive(ctx, int64(you.ID), 42); !errors.Is(err, ErrRoommateNotFound) {
		t.Errorf("Archive(missing) error = %v, want ErrRoommateNotFound", err)
	}
}

func TestService_ArchiveRollsBackLedgerOnStoreFailure(t *testing.T) {
	book := ledger.NewBook()
	store := newMemoryStore()
	svc := NewService(store, book, &collector{})
	ctx := context.Background()

	p, _ := svc.Create(ctx, 1, &CreateRoommateRequest{Name: "Carol"})
	store.failOn = "archive"

	if err := svc.Archive(ctx, 1, p.ID); err == nil {
		t.Fatal("Archive error = nil, want store error")
	}
	if !book.Directory().Active(p.ID) {
		t.Error("ledger left the person archived after the store failed")
	}
}
