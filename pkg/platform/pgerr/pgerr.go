// Package pgerr maps postgres driver errors to infrastructure sentinels.
package pgerr

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

// IsUniqueViolation reports whether err is a postgres unique-constraint
// violation. Stores use it to return sentinel.ErrConflict so two concurrent
// inserts of the same email resolve to exactly one success and one conflict.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
