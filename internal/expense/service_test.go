package expense

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/fkhayef/roommate-ledger/internal/activity"
	"github.com/fkhayef/roommate-ledger/internal/domain"
	"github.com/fkhayef/roommate-ledger/internal/ledger"
	"github.com/fkhayef/roommate-ledger/internal/money"
	"github.com/fkhayef/roommate-ledger/internal/validation"
)

type memoryStore struct {
	expenses map[int64]*domain.Expense
	nextID   int64
	failOn   string
}

func newMemoryStore() *memoryStore {
	return &memoryStore{expenses: make(map[int64]*domain.Expense)}
}

func clone(e *domain.Expense) *domain.Expense {
	cp := *e
	cp.Payers = append([]domain.Payment(nil), e.Payers...)
	cp.Shares = append([]domain.Share(nil), e.Shares...)
	return &cp
}

func (m *memoryStore) Create(ctx context.Context, e *domain.Expense) (*domain.Expense, error) {
	m.nextID++
	created := clone(e)
	created.ID = m.nextID
	created.CreatedAt = time.Now().UTC()
	m.expenses[created.ID] = created
	return clone(created), nil
}

func (m *memoryStore) GetByID(ctx context.Context, id int64) (*domain.Expense, error) {
	e, ok := m.expenses[id]
	if !ok {
		return nil, nil
	}
	return clone(e), nil
}

func (m *memoryStore) ListForPerson(ctx context.Context, personID int64, limit, offset int) ([]*domain.Expense, int, error) {
	var out []*domain.Expense
	for _, e := range m.expenses {
		if e.Involves(domain.PersonID(personID)) {
			out = append(out, clone(e))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	total := len(out)
	if offset >= len(out) {
		return nil, total, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, total, nil
}

func (m *memoryStore) Replace(ctx context.Context, e *domain.Expense) error {
	if _, ok := m.expenses[e.ID]; !ok {
		return ErrExpenseNotFound
	}
	m.expenses[e.ID] = clone(e)
	return nil
}

func (m *memoryStore) Delete(ctx context.Context, id int64) error {
	if m.failOn == "delete" {
		return errors.New("database unavailable")
	}
	if _, ok := m.expenses[id]; !ok {
		return ErrExpenseNotFound
	}
	delete(m.expenses, id)
	return nil
}

type collector struct{ got []activity.Activity }

func (c *collector) Publish(a activity.Activity) { c.got = append(c.got, a) }

const (
	you   = 1
	alice = 2
	bob   = 3
	carol = 4
)

func newFixture(t *testing.T) (*Service, *ledger.Book, *memoryStore, *collector) {
	t.Helper()
	book := ledger.NewBook()
	for _, id := range []domain.PersonID{you, alice, bob, carol} {
		book.AddPerson(id)
	}
	store := newMemoryStore()
	feed := &collector{}
	return NewService(store, book, feed), book, store, feed
}

func dinner() *CreateExpenseRequest {
	return &CreateExpenseRequest{
		Description: "Dinner",
		Amount:      money.MustParse("60.00"),
		Date:        "2024-03-01",
		SplitType:   "equal",
		PaidBy:      []PayerInput{{PersonID: you}},
		SplitWith:   []int64{you, alice, bob},
	}
}

func TestService_CreateUpdatesBalances(t *testing.T) {
	svc, book, _, feed := newFixture(t)

	e, err := svc.Create(context.Background(), you, dinner())
	if err != nil {
		t.Fatalf("Create error = %v", err)
	}
	if e.ID == 0 || e.Policy != domain.SplitEqual {
		t.Errorf("expense = %+v", e)
	}
	if got := e.Payers[0].Amount; !got.Equal(money.MustParse("60.00")) {
		t.Errorf("single payer paid %s, want the total", got)
	}

	snap := book.Snapshot()
	want := map[domain.PersonID]string{you: "40.00", alice: "-20.00", bob: "-20.00"}
	for id, amount := range want {
		if got := snap.Of(id); !got.Equal(money.MustParse(amount)) {
			t.Errorf("balance[%d] = %s, want %s", id, got, amount)
		}
	}

	if len(feed.got) != 2 {
		t.Fatalf("activities = %d, want 2 (actor excluded)", len(feed.got))
	}
	for _, a := range feed.got {
		if a.RecipientID == you || a.Type != activity.TypeExpenseAdded {
			t.Errorf("unexpected activity %+v", a)
		}
	}
}

func TestService_CreateRejectsInvalid(t *testing.T) {
	svc, book, store, _ := newFixture(t)

	req := dinner()
	req.SplitType = "CUSTOM"
	req.SplitDetails = map[int64]money.Money{
		you:   money.MustParse("20.00"),
		alice: money.MustParse("20.00"),
		bob:   money.MustParse("19.99"),
	}
	_, err := svc.Create(context.Background(), you, req)

	var ve *validation.ValidationError
	if !errors.As(err, &ve) || !ve.Has(validation.KindShareMismatch) {
		t.Fatalf("Create error = %v, want share mismatch", err)
	}
	if len(store.expenses) != 0 {
		t.Error("invalid expense was stored")
	}
	if !book.Snapshot().Of(you).IsZero() {
		t.Error("invalid expense changed balances")
	}

	req = dinner()
	req.Date = "03/01/2024"
	if _, err := svc.Create(context.Background(), you, req); !errors.Is(err, ErrInvalidDate) {
		t.Errorf("Create error = %v, want ErrInvalidDate", err)
	}
}

func TestService_GetRequiresInvolvement(t *testing.T) {
	svc, _, _, _ := newFixture(t)
	ctx := context.Background()

	e, err := svc.Create(ctx, you, dinner())
	if err != nil {
		t.Fatalf("Create error = %v", err)
	}

	if _, err := svc.Get(ctx, alice, e.ID); err != nil {
		t.Errorf("Get(alice) error = %v", err)
	}
	if _, err := svc.Get(ctx, carol, e.ID); !errors.Is(err, ErrNotInvolved) {
		t.Errorf("Get(carol) error = %v, want ErrNotInvolved", err)
	}
	if _, err := svc.Get(ctx, you, 999); !errors.Is(err, ErrExpenseNotFound) {
		t.Errorf("Get(missing) error = %v, want ErrExpenseNotFound", err)
	}
}

func TestService_UpdateMovesBalances(t *testing.T) {
	svc, book, _, _ := newFixture(t)
	ctx := context.Background()

	e, err := svc.Create(ctx, you, dinner())
	if err != nil {
		t.Fatalf("Create error = %v", err)
	}

	req := dinner()
	req.Amount = money.MustParse("30.00")
	req.SplitWith = []int64{you, carol}
	updated, err := svc.Update(ctx, alice, e.ID, req)
	if err != nil {
		t.Fatalf("Update error = %v", err)
	}
	if updated.CreatedBy != you {
		t.Errorf("CreatedBy = %d, want the original creator", updated.CreatedBy)
	}

	snap := book.Snapshot()
	if !snap.Of(alice).IsZero() || !snap.Of(bob).IsZero() {
		t.Errorf("old shares not retracted: alice %s bob %s", snap.Of(alice), snap.Of(bob))
	}
	if got := snap.Of(carol); !got.Equal(money.MustParse("-15.00")) {
		t.Errorf("carol = %s, want -15.00", got)
	}
	if !snap.Total().IsZero() {
		t.Errorf("total = %s, want 0", snap.Total())
	}

	// alice is no longer involved
	if _, err := svc.Update(ctx, alice, e.ID, req); !errors.Is(err, ErrNotInvolved) {
		t.Errorf("second Update error = %v, want ErrNotInvolved", err)
	}
}

func TestService_DeleteRetracts(t *testing.T) {
	svc, book, store, _ := newFixture(t)
	ctx := context.Background()

	before := book.Snapshot()
	e, err := svc.Create(ctx, you, dinner())
	if err != nil {
		t.Fatalf("Create error = %v", err)
	}

	store.failOn = "delete"
	if err := svc.Delete(ctx, you, e.ID); err == nil {
		t.Fatal("Delete error = nil, want store error")
	}
	if got := book.Snapshot().Of(you); !got.Equal(money.MustParse("40.00")) {
		t.Errorf("balance after failed delete = %s, want 40.00", got)
	}

	store.failOn = ""
	if err := svc.Delete(ctx, carol, e.ID); !errors.Is(err, ErrNotInvolved) {
		t.Errorf("Delete(carol) error = %v, want ErrNotInvolved", err)
	}
	if err := svc.Delete(ctx, you, e.ID); err != nil {
		t.Fatalf("Delete error = %v", err)
	}
	after := book.Snapshot()
	for _, id := range []domain.PersonID{you, alice, bob} {
		if !after.Of(id).Equal(before.Of(id)) {
			t.Errorf("balance[%d] = %s after delete, want %s", id, after.Of(id), before.Of(id))
		}
	}
}

func TestService_ListPaginates(t *testing.T) {
	svc, _, _, _ := newFixture(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := svc.Create(ctx, you, dinner()); err != nil {
			t.Fatalf("Create error = %v", err)
		}
	}

	page, total, err := svc.List(ctx, alice, 1, 2)
	if err != nil {
		t.Fatalf("List error = %v", err)
	}
	if total != 3 || len(page) != 2 {
		t.Errorf("List = %d items of %d, want 2 of 3", len(page), total)
	}
	if page, total, _ := svc.List(ctx, carol, 0, 0); total != 0 || len(page) != 0 {
		t.Errorf("carol sees %d expenses", total)
	}
}
