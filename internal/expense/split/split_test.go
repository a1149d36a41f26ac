package split

import (
	"errors"
	"testing"

	"github.com/fkhayef/roommate-ledger/internal/domain"
	"github.com/fkhayef/roommate-ledger/internal/money"
)

func ids(n int) []domain.PersonID {
	out := make([]domain.PersonID, n)
	for i := range out {
		out[i] = domain.PersonID(i + 1)
	}
	return out
}

func centsOf(shares []domain.Share) []int64 {
	out := make([]int64, len(shares))
	for i, s := range shares {
		out[i] = s.Amount.Cents()
	}
	return out
}

func TestEqual_RemainderGoesToFirstParticipants(t *testing.T) {
	cases := []struct {
		name  string
		total int64
		n     int
		want  []int64
	}{
		{"ten dollars three ways", 1000, 3, []int64{334, 333, 333}},
		{"two cents three ways", 2, 3, []int64{1, 1, 0}},
		{"sixty dollars three ways", 6000, 3, []int64{2000, 2000, 2000}},
		{"single participant", 999, 1, []int64{999}},
		{"zero total", 0, 2, []int64{0, 0}},
		{"one cent four ways", 1, 4, []int64{1, 0, 0, 0}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			shares, err := Allocate(money.FromCents(tc.total), domain.SplitEqual, ids(tc.n), nil)
			if err != nil {
				t.Fatalf("Allocate error = %v", err)
			}
			got := centsOf(shares)
			if len(got) != len(tc.want) {
				t.Fatalf("got %d shares, want %d", len(got), len(tc.want))
			}
			for i := range got {
				if got[i] != tc.want[i] {
					t.Errorf("share[%d] = %d, want %d", i, got[i], tc.want[i])
				}
			}
		})
	}
}

func TestEqual_FollowsParticipantOrder(t *testing.T) {
	participants := []domain.PersonID{7, 3, 5}
	shares, err := Allocate(money.FromCents(1000), domain.SplitEqual, participants, nil)
	if err != nil {
		t.Fatalf("Allocate error = %v", err)
	}
	if shares[0].PersonID != 7 || shares[0].Amount.Cents() != 334 {
		t.Errorf("first share = %+v, want person 7 with 334", shares[0])
	}
	if shares[2].PersonID != 5 || shares[2].Amount.Cents() != 333 {
		t.Errorf("last share = %+v, want person 5 with 333", shares[2])
	}
}

func TestEqual_Reconciles(t *testing.T) {
	totals := []int64{0, 1, 2, 7, 99, 100, 101, 1000, 6001, 123457, 99999999}
	for _, total := range totals {
		for n := 1; n <= 13; n++ {
			shares, err := Allocate(money.FromCents(total), domain.SplitEqual, ids(n), nil)
			if err != nil {
				t.Fatalf("Allocate(%d, n=%d) error = %v", total, n, err)
			}

			var sum, lo, hi int64
			lo, hi = shares[0].Amount.Cents(), shares[0].Amount.Cents()
			for _, s := range shares {
				c := s.Amount.Cents()
				sum += c
				lo = min(lo, c)
				hi = max(hi, c)
			}
			if sum != total {
				t.Errorf("Allocate(%d, n=%d) sums to %d", total, n, sum)
			}
			if hi-lo > 1 {
				t.Errorf("Allocate(%d, n=%d) spread %d..%d exceeds one cent", total, n, lo, hi)
			}
		}
	}
}

func TestEqual_Rejects(t *testing.T) {
	cases := []struct {
		name         string
		total        int64
		participants []domain.PersonID
		custom       map[domain.PersonID]money.Money
		want         error
	}{
		{"no participants", 100, nil, nil, ErrNoParticipants},
		{"duplicate participant", 100, []domain.PersonID{1, 2, 1}, nil, ErrDuplicateParticipant},
		{"negative total", -100, ids(2), nil, ErrNegativeAmount},
		{"custom shares given", 100, ids(2), map[domain.PersonID]money.Money{1: money.FromCents(100)}, ErrUnexpectedShare},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Allocate(money.FromCents(tc.total), domain.SplitEqual, tc.participants, tc.custom)
			if !errors.Is(err, tc.want) {
				t.Errorf("error = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestCustom_UsesSharesVerbatim(t *testing.T) {
	custom := map[domain.PersonID]money.Money{
		1: money.MustParse("12.50"),
		2: money.MustParse("7.25"),
		3: money.MustParse("0.25"),
	}
	shares, err := Allocate(money.MustParse("20.00"), domain.SplitCustom, []domain.PersonID{3, 1, 2}, custom)
	if err != nil {
		t.Fatalf("Allocate error = %v", err)
	}
	want := []int64{25, 1250, 725}
	for i, c := range centsOf(shares) {
		if c != want[i] {
			t.Errorf("share[%d] = %d, want %d", i, c, want[i])
		}
	}
}

func TestCustom_RejectsOneCentMismatch(t *testing.T) {
	for _, delta := range []int64{-1, 1} {
		custom := map[domain.PersonID]money.Money{
			1: money.FromCents(500),
			2: money.FromCents(500 + delta),
		}
		_, err := Allocate(money.FromCents(1000), domain.SplitCustom, ids(2), custom)
		if !errors.Is(err, ErrShareMismatch) {
			t.Errorf("delta %d: error = %v, want ErrShareMismatch", delta, err)
		}
	}
}

func TestCustom_ReportsEveryProblem(t *testing.T) {
	custom := map[domain.PersonID]money.Money{
		1: money.FromCents(-50),
		9: money.FromCents(50),
	}
	err := (&CustomStrategy{}).Validate(money.FromCents(1000), []domain.PersonID{1, 2, 2}, custom)
	for _, want := range []error{ErrNegativeAmount, ErrMissingShare, ErrUnexpectedShare, ErrDuplicateParticipant, ErrShareMismatch} {
		if !errors.Is(err, want) {
			t.Errorf("error %v does not include %v", err, want)
		}
	}
}

func TestFactory_UnknownPolicy(t *testing.T) {
	f := NewSplitStrategyFactory()
	if _, err := f.CreateFromString("PERCENTAGE"); !errors.Is(err, ErrUnknownPolicy) {
		t.Errorf("CreateFromString(PERCENTAGE) error = %v, want ErrUnknownPolicy", err)
	}

	s, err := f.CreateFromString("CUSTOM")
	if err != nil {
		t.Fatalf("CreateFromString(CUSTOM) error = %v", err)
	}
	if s.Policy() != domain.SplitCustom {
		t.Errorf("Policy() = %s, want CUSTOM", s.Policy())
	}
}
