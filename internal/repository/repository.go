package repository

import (
	"errors"

	"github.com/lib/pq"
)

// pg unique_violation
const uniqueViolationCode = "23505"

// IsUniqueViolation reports whether err is a Postgres unique-constraint
// violation. Duplicate enrollments, reviews and favorites are resolved
// this way rather than by check-then-insert, so concurrent writers race
// on the constraint instead of on application state.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == uniqueViolationCode
	}
	return false
}
