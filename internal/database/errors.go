package database

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

var (
	ErrConflict   = errors.New("conflicting record")
	ErrReferenced = errors.New("record is referenced")
)

// Postgres SQLSTATE codes we classify.
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
)

// Classify maps constraint violations from either driver to ErrConflict or
// ErrReferenced, keeping the original error in the chain. Other errors are
// returned unchanged.
func Classify(err error) error {
	if err == nil {
		return nil
	}

	var code string
	var pgErr *pgconn.PgError
	var pqErr *pq.Error
	switch {
	case errors.As(err, &pgErr):
		code = pgErr.Code
	case errors.As(err, &pqErr):
		code = string(pqErr.Code)
	default:
		return err
	}

	switch code {
	case codeUniqueViolation:
		return errors.Join(ErrConflict, err)
	case codeForeignKeyViolation:
		return errors.Join(ErrReferenced, err)
	}
	return err
}
