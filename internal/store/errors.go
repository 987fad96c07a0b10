package store

import (
	"errors"

	"github.com/lib/pq"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicateEmail is returned when the contacts email unique index rejects a write.
var ErrDuplicateEmail = errors.New("duplicate email")

// ErrDuplicateUsername is returned when the users username unique index rejects a write.
var ErrDuplicateUsername = errors.New("duplicate username")

const uniqueViolation = pq.ErrorCode("23505")

func isUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	if pqErr.Code != uniqueViolation {
		return false
	}
	return constraint == "" || pqErr.Constraint == constraint
}
