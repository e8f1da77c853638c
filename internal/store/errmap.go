package store

import (
	"database/sql"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// Postgres error classification. The store surfaces raw driver errors; the
// service layer uses these predicates to map constraint violations and
// row-level denials into the workflow taxonomy.

const (
	pgUniqueViolation       = "23505"
	pgInsufficientPrivilege = "42501"
	pgRaisedException       = "P0001"
)

// IsNotFound reports whether err means the row does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// IsUniqueViolation reports whether err is a unique-constraint violation,
// optionally on a specific constraint name.
func IsUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != pgUniqueViolation {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}

// IsPermissionDenied reports whether the store itself refused the mutation.
// Row-level security denials surface as 42501 or as raised exceptions whose
// message names row-level security.
func IsPermissionDenied(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	if pgErr.Code == pgInsufficientPrivilege {
		return true
	}
	message := strings.ToLower(pgErr.Message)
	return strings.Contains(message, "row-level security") || strings.Contains(message, "permission denied")
}

// IsRaisedGuard reports whether a database trigger rejected the mutation
// with a message containing the given marker.
func IsRaisedGuard(err error, marker string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != pgRaisedException {
		return false
	}
	return strings.Contains(pgErr.Message, marker)
}
