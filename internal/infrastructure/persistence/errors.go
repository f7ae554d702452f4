package persistence

import "strings"

// isUniqueViolation reports whether err is a unique-constraint failure.
// Matched by message because the production driver (pgx) and the sqlite
// driver used in tests surface different error types.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}
