package ledger

import (
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/fkhayef/roommate-ledger/internal/domain"
	"github.com/fkhayef/roommate-ledger/internal/money"
	"github.com/fkhayef/roommate-ledger/internal/validation"
)

const (
	you   domain.PersonID = 1
	alice domain.PersonID = 2
	bob   domain.PersonID = 3
	carol domain.PersonID = 4
)

var day = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

func newTestBook(t *testing.T, people ...domain.PersonID) *Book {
	t.Helper()
	b := NewBook()
	for _, id := range people {
		b.AddPerson(id)
	}
	return b
}

func recordExpense(t *testing.T, b *Book, id int64, d *domain.ExpenseDraft) *domain.Expense {
	t.Helper()
	e, err := b.PrepareExpense(d)
	if err != nil {
		t.Fatalf("PrepareExpense error = %v", err)
	}
	e.ID = id
	if err := b.RecordExpense(e); err != nil {
		t.Fatalf("RecordExpense error = %v", err)
	}
	return e
}

func groceries(amount string, payer domain.PersonID, participants ...domain.PersonID) *domain.ExpenseDraft {
	total := money.MustParse(amount)
	return &domain.ExpenseDraft{
		Description:  "Groceries",
		Amount:       total,
		Date:         day,
		Policy:       domain.SplitEqual,
		Payers:       []domain.Payment{{PersonID: payer, Amount: total}},
		Participants: participants,
		CreatedBy:    payer,
	}
}

func assertZeroSum(t *testing.T, s *Snapshot) {
	t.Helper()
	if !s.Total().IsZero() {
		t.Fatalf("balances sum to %s, want 0.00", s.Total())
	}
	// the pairwise view must agree with the global one
	for id, bal := range s.Balances {
		row := money.Zero
		for _, m := range s.Pairs[id] {
			row = row.Add(m)
		}
		if !row.Equal(bal) {
			t.Fatalf("person %d: pairwise sum %s, global %s", id, row, bal)
		}
	}
}

func TestExpenseDeltas_SumToZero(t *testing.T) {
	e := &domain.Expense{
		Amount: money.FromCents(1000),
		Payers: []domain.Payment{{PersonID: you, Amount: money.FromCents(600)}, {PersonID: alice, Amount: money.FromCents(400)}},
		Shares: []domain.Share{{PersonID: you, Amount: money.FromCents(334)}, {PersonID: alice, Amount: money.FromCents(333)}, {PersonID: bob, Amount: money.FromCents(333)}},
	}
	deltas := ExpenseDeltas(e)
	if len(deltas) != 5 {
		t.Fatalf("got %d deltas, want 5", len(deltas))
	}
	if !Total(deltas).IsZero() {
		t.Errorf("deltas total %s", Total(deltas))
	}
	if deltas[0] != (Delta{PersonID: you, Amount: money.FromCents(600)}) {
		t.Errorf("first delta = %+v", deltas[0])
	}
	if deltas[4] != (Delta{PersonID: bob, Amount: money.FromCents(-333)}) {
		t.Errorf("last delta = %+v", deltas[4])
	}
}

func TestSettlementDeltas(t *testing.T) {
	s := &domain.Settlement{PayerID: alice, ReceiverID: you, Amount: money.FromCents(2000)}
	want := []Delta{{PersonID: alice, Amount: money.FromCents(2000)}, {PersonID: you, Amount: money.FromCents(-2000)}}
	if got := SettlementDeltas(s); !reflect.DeepEqual(got, want) {
		t.Errorf("SettlementDeltas = %+v, want %+v", got, want)
	}
}

func TestSixtyDollarsThreeWays(t *testing.T) {
	b := newTestBook(t, you, alice, bob)
	e := recordExpense(t, b, 1, groceries("60.00", you, you, alice, bob))

	for _, s := range e.Shares {
		if s.Amount.Cents() != 2000 {
			t.Errorf("share of %d = %d, want 2000", s.PersonID, s.Amount.Cents())
		}
	}

	snap := b.Snapshot()
	assertZeroSum(t, snap)

	rel := snap.RelativeTo(you)
	if rel[alice].Cents() != -2000 || rel[bob].Cents() != -2000 {
		t.Errorf("relative to you: alice=%s bob=%s, want -20.00 each", rel[alice], rel[bob])
	}
	if _, ok := rel[you]; ok {
		t.Error("viewer appears in its own balance map")
	}
	if snap.Of(you).Cents() != 4000 {
		t.Errorf("global balance of you = %s, want 40.00", snap.Of(you))
	}
	if got := snap.RelativeTo(alice)[you]; got.Cents() != 2000 {
		t.Errorf("relative to alice: you = %s, want 20.00", got)
	}
	if got := snap.Between(alice, bob); !got.IsZero() {
		t.Errorf("alice vs bob = %s, want 0.00", got)
	}
}

func TestSettlementRoundTrip(t *testing.T) {
	b := newTestBook(t, you, alice, bob)
	recordExpense(t, b, 1, groceries("60.00", you, you, alice, bob))
	before := b.Snapshot()

	s, err := b.PrepareSettlement(&domain.SettlementDraft{PayerID: alice, ReceiverID: you, Amount: money.MustParse("20.00"), Date: day})
	if err != nil {
		t.Fatalf("PrepareSettlement error = %v", err)
	}
	s.ID = 1
	if err := b.RecordSettlement(s); err != nil {
		t.Fatalf("RecordSettlement error = %v", err)
	}

	after := b.Snapshot()
	assertZeroSum(t, after)
	if got := after.RelativeTo(you)[alice]; !got.IsZero() {
		t.Errorf("alice after settling = %s, want 0.00", got)
	}
	if got := after.RelativeTo(you)[bob]; got.Cents() != -2000 {
		t.Errorf("bob after alice settles = %s, want -20.00", got)
	}

	if err := b.RemoveSettlement(1); err != nil {
		t.Fatalf("RemoveSettlement error = %v", err)
	}
	if restored := b.Snapshot(); !reflect.DeepEqual(restored, before) {
		t.Errorf("after retract = %+v, want %+v", restored, before)
	}
}

func TestRetractRestoresPriorState(t *testing.T) {
	b := newTestBook(t, you, alice, bob, carol)
	recordExpense(t, b, 1, groceries("10.00", alice, you, alice, bob))

	entries := []*domain.ExpenseDraft{
		groceries("0.02", bob, you, alice, bob),
		groceries("123.45", carol, carol, alice),
		{
			Description:  "Rent",
			Amount:       money.MustParse("1500.00"),
			Date:         day,
			Policy:       domain.SplitCustom,
			Payers:       []domain.Payment{{PersonID: you, Amount: money.MustParse("1000.00")}, {PersonID: bob, Amount: money.MustParse("500.00")}},
			Participants: []domain.PersonID{you, alice, bob, carol},
			CustomShares: map[domain.PersonID]money.Money{
				you:   money.MustParse("600.00"),
				alice: money.MustParse("300.00"),
				bob:   money.MustParse("300.00"),
				carol: money.MustParse("300.00"),
			},
		},
	}

	for i, d := range entries {
		before := b.Snapshot()
		id := int64(100 + i)
		recordExpense(t, b, id, d)
		assertZeroSum(t, b.Snapshot())

		if err := b.RemoveExpense(id); err != nil {
			t.Fatalf("RemoveExpense error = %v", err)
		}
		if after := b.Snapshot(); !reflect.DeepEqual(after, before) {
			t.Errorf("entry %d: retract did not restore state\n got %+v\nwant %+v", i, after, before)
		}
	}
}

func TestZeroSumAcrossSequence(t *testing.T) {
	b := newTestBook(t, you, alice, bob, carol)
	recordExpense(t, b, 1, groceries("99.99", you, you, alice, bob, carol))
	recordExpense(t, b, 2, groceries("7.01", alice, bob, carol))
	recordExpense(t, b, 3, groceries("0.01", carol, you, alice))
	assertZeroSum(t, b.Snapshot())

	for i, d := range []domain.SettlementDraft{
		{PayerID: bob, ReceiverID: you, Amount: money.MustParse("10.00"), Date: day},
		{PayerID: carol, ReceiverID: alice, Amount: money.MustParse("3.33"), Date: day},
		{PayerID: you, ReceiverID: bob, Amount: money.MustParse("50.00"), Date: day},
	} {
		s, err := b.PrepareSettlement(&d)
		if err != nil {
			t.Fatalf("PrepareSettlement error = %v", err)
		}
		s.ID = int64(i + 1)
		if err := b.RecordSettlement(s); err != nil {
			t.Fatalf("RecordSettlement error = %v", err)
		}
		assertZeroSum(t, b.Snapshot())
	}

	if err := b.RemoveExpense(2); err != nil {
		t.Fatalf("RemoveExpense error = %v", err)
	}
	assertZeroSum(t, b.Snapshot())
}

func TestSnapshotIsNotAliased(t *testing.T) {
	b := newTestBook(t, you, alice)
	recordExpense(t, b, 1, groceries("10.00", you, you, alice))

	snap := b.Snapshot()
	snap.Balances[you] = money.FromCents(1)
	snap.Pairs[you][alice] = money.FromCents(1)
	delete(snap.People, alice)

	fresh := b.Snapshot()
	if fresh.Of(you).Cents() != 500 {
		t.Errorf("balance changed through snapshot: %s", fresh.Of(you))
	}
	if fresh.Between(you, alice).Cents() != 500 {
		t.Errorf("pair changed through snapshot: %s", fresh.Between(you, alice))
	}
	if _, ok := fresh.People[alice]; !ok {
		t.Error("person removed through snapshot")
	}
}

func TestAggregator_RejectsWithoutMutating(t *testing.T) {
	a := NewAggregator()
	a.Register(you)
	a.Register(alice)

	ok := []Delta{{PersonID: you, Amount: money.FromCents(100)}, {PersonID: alice, Amount: money.FromCents(-100)}}
	if err := a.Apply(ExpenseRef(1), ok); err != nil {
		t.Fatalf("Apply error = %v", err)
	}
	before := a.Snapshot()

	if err := a.Apply(ExpenseRef(1), ok); !errors.Is(err, ErrAlreadyApplied) {
		t.Errorf("second Apply error = %v, want ErrAlreadyApplied", err)
	}
	unknown := []Delta{{PersonID: you, Amount: money.FromCents(100)}, {PersonID: 99, Amount: money.FromCents(-100)}}
	if err := a.Apply(ExpenseRef(2), unknown); !errors.Is(err, ErrUnknownPerson) {
		t.Errorf("Apply(unknown) error = %v, want ErrUnknownPerson", err)
	}
	unbalanced := []Delta{{PersonID: you, Amount: money.FromCents(100)}, {PersonID: alice, Amount: money.FromCents(-99)}}
	if err := a.Apply(ExpenseRef(3), unbalanced); !errors.Is(err, ErrUnbalanced) {
		t.Errorf("Apply(unbalanced) error = %v, want ErrUnbalanced", err)
	}
	if err := a.Replace(ExpenseRef(1), unbalanced); !errors.Is(err, ErrUnbalanced) {
		t.Errorf("Replace(unbalanced) error = %v, want ErrUnbalanced", err)
	}
	if _, err := a.Retract(SettlementRef(1)); !errors.Is(err, ErrNotApplied) {
		t.Errorf("Retract(missing) error = %v, want ErrNotApplied", err)
	}

	if after := a.Snapshot(); !reflect.DeepEqual(after, before) {
		t.Errorf("state changed by rejected operations: %+v", after)
	}
}

func TestReplaceExpense(t *testing.T) {
	b := newTestBook(t, you, alice, bob)
	e := recordExpense(t, b, 1, groceries("60.00", you, you, alice, bob))

	next, err := b.PrepareExpense(groceries("30.00", you, you, alice))
	if err != nil {
		t.Fatalf("PrepareExpense error = %v", err)
	}
	next.ID = e.ID
	if err := b.ReplaceExpense(next); err != nil {
		t.Fatalf("ReplaceExpense error = %v", err)
	}

	rel := b.Snapshot().RelativeTo(you)
	if rel[alice].Cents() != -1500 || !rel[bob].IsZero() {
		t.Errorf("after replace alice=%s bob=%s, want -15.00 and 0.00", rel[alice], rel[bob])
	}
}

func TestPrepareExpense_Invalid(t *testing.T) {
	b := newTestBook(t, you, alice)
	d := groceries("10.00", you, you, alice, bob)

	_, err := b.PrepareExpense(d)
	var ve *validation.ValidationError
	if !errors.As(err, &ve) || !ve.Has(validation.KindUnknownPerson) {
		t.Errorf("PrepareExpense error = %v, want unknown person issue", err)
	}
	if b.Snapshot().Entries != 0 {
		t.Error("rejected expense was applied")
	}
}

func TestSelfSettlementRejected(t *testing.T) {
	b := newTestBook(t, you, alice)
	_, err := b.PrepareSettlement(&domain.SettlementDraft{PayerID: alice, ReceiverID: alice, Amount: money.FromCents(100), Date: day})
	var ve *validation.ValidationError
	if !errors.As(err, &ve) || !ve.Has(validation.KindSelfSettlement) {
		t.Errorf("PrepareSettlement error = %v, want self_settlement", err)
	}
}

func TestArchivePerson(t *testing.T) {
	b := newTestBook(t, you, alice, bob)
	recordExpense(t, b, 1, groceries("10.00", you, you, alice))

	if err := b.ArchivePerson(alice); !errors.Is(err, ErrOutstandingBalance) {
		t.Errorf("ArchivePerson(alice) error = %v, want ErrOutstandingBalance", err)
	}
	if err := b.ArchivePerson(bob); err != nil {
		t.Fatalf("ArchivePerson(bob) error = %v", err)
	}
	if b.Directory().Active(bob) {
		t.Error("bob still active after archive")
	}
	if _, ok := b.Snapshot().RelativeTo(you)[bob]; ok {
		t.Error("settled archived person still listed")
	}
	if _, err := b.PrepareExpense(groceries("5.00", you, you, bob)); err == nil {
		t.Error("expense with archived participant accepted")
	}
}

func TestRebuild(t *testing.T) {
	b := newTestBook(t, you, alice, bob)
	e1 := recordExpense(t, b, 1, groceries("60.00", you, you, alice, bob))
	e2 := recordExpense(t, b, 2, groceries("9.99", bob, alice, bob))
	s := &domain.Settlement{ID: 1, PayerID: alice, ReceiverID: you, Amount: money.MustParse("20.00"), Date: day}
	if err := b.RecordSettlement(s); err != nil {
		t.Fatalf("RecordSettlement error = %v", err)
	}
	want := b.Snapshot()

	rebuilt := NewBook()
	persons := []domain.Person{{ID: you, Name: "You"}, {ID: alice, Name: "Alice"}, {ID: bob, Name: "Bob"}}
	if err := rebuilt.Rebuild(persons, []domain.Expense{*e1, *e2}, []domain.Settlement{*s}); err != nil {
		t.Fatalf("Rebuild error = %v", err)
	}
	if got := rebuilt.Snapshot(); !reflect.DeepEqual(got, want) {
		t.Errorf("rebuilt = %+v\nwant %+v", got, want)
	}

	broken := *e2
	broken.ID = 3
	broken.Shares = []domain.Share{{PersonID: alice, Amount: money.FromCents(1)}}
	if err := rebuilt.Rebuild(persons, []domain.Expense{*e1, broken}, nil); err == nil {
		t.Error("Rebuild accepted an expense whose shares do not reconcile")
	}
	if got := rebuilt.Snapshot(); !reflect.DeepEqual(got, want) {
		t.Error("failed Rebuild changed state")
	}
}

func TestSimplifyDebts_SettlesEverybody(t *testing.T) {
	b := newTestBook(t, you, alice, bob, carol)
	recordExpense(t, b, 1, groceries("100.00", you, you, alice, bob, carol))
	recordExpense(t, b, 2, groceries("33.33", alice, alice, carol))
	recordExpense(t, b, 3, groceries("12.00", carol, you, bob))

	snap := b.Snapshot()
	balances := make(map[domain.PersonID]money.Money)
	for id, m := range snap.Balances {
		balances[id] = m
	}
	for _, tr := range snap.Suggestions() {
		if !tr.Amount.IsPositive() {
			t.Fatalf("non-positive transfer %+v", tr)
		}
		balances[tr.From] = balances[tr.From].Add(tr.Amount)
		balances[tr.To] = balances[tr.To].Sub(tr.Amount)
	}
	for id, m := range balances {
		if !m.IsZero() {
			t.Errorf("person %d left with %s", id, m)
		}
	}
}

func TestAggregator_ConcurrentAccess(t *testing.T) {
	b := newTestBook(t, you, alice, bob)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(id int64) {
			defer wg.Done()
			e, err := b.PrepareExpense(groceries("3.01", you, you, alice, bob))
			if err != nil {
				t.Errorf("PrepareExpense error = %v", err)
				return
			}
			e.ID = id
			if err := b.RecordExpense(e); err != nil {
				t.Errorf("RecordExpense error = %v", err)
			}
		}(int64(i + 1))
		go func() {
			defer wg.Done()
			if s := b.Snapshot(); !s.Total().IsZero() {
				t.Errorf("snapshot total %s", s.Total())
			}
		}()
	}
	wg.Wait()

	snap := b.Snapshot()
	if snap.Entries != 50 {
		t.Errorf("entries = %d, want 50", snap.Entries)
	}
	assertZeroSum(t, snap)
}
