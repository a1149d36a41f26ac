package database

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

func TestClassify(t *testing.T) {
	plain := errors.New("boom")

	cases := []struct {
		name string
		err  error
		want error
	}{
		{"pgx unique", fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"}), ErrConflict},
		{"pgx foreign key", &pgconn.PgError{Code: "23503"}, ErrReferenced},
		{"pq unique", &pq.Error{Code: "23505"}, ErrConflict},
		{"pq foreign key", fmt.Errorf("delete: %w", &pq.Error{Code: "23503"}), ErrReferenced},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Classify(tc.err)
			if !errors.Is(got, tc.want) {
				t.Errorf("Classify = %v, want %v", got, tc.want)
			}
			if !errors.Is(got, tc.err) {
				t.Error("original error dropped from chain")
			}
		})
	}

	if got := Classify(plain); got != plain {
		t.Errorf("Classify(plain) = %v, want unchanged", got)
	}
	if got := Classify(&pq.Error{Code: "22001"}); errors.Is(got, ErrConflict) || errors.Is(got, ErrReferenced) {
		t.Errorf("Classify(other code) = %v, want unclassified", got)
	}
	if Classify(nil) != nil {
		t.Error("Classify(nil) != nil")
	}
}
