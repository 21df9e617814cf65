package database

import (
	"context"
	"database/sql/driver"
	"errors"
	"io"
	"net"
	"strings"

	"github.com/lib/pq"

	apperrors "github.com/agrotrace/agrotrace-backend/pkg/errors"
)

// PQCode extracts the PostgreSQL error code from an error, or "" if the
// error did not originate from the server.
func PQCode(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	return ""
}

// IsConfigurationFault reports whether the error is a configuration or
// permission fault: the server-side primitive is missing or the role may
// not execute it. Retrying cannot change the outcome.
func IsConfigurationFault(err error) bool {
	switch PQCode(err) {
	case "42883", // undefined_function
		"42P01", // undefined_table
		"42501", // insufficient_privilege
		"28000", // invalid_authorization_specification
		"28P01", // invalid_password
		"3D000": // invalid_catalog_name
		return true
	}
	return false
}

// IsTransientFault reports whether the error is a transport-level fault
// worth a bounded retry: connection loss, timeout, pool exhaustion.
func IsTransientFault(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	code := PQCode(err)
	if strings.HasPrefix(code, "08") { // connection exception class
		return true
	}
	switch code {
	case "53300", // too_many_connections
		"57P03", // cannot_connect_now
		"57014": // query_canceled (statement timeout)
		return true
	}
	return false
}

// MapPQError converts a PostgreSQL constraint error to an AppError with a
// meaningful message. Errors without a mapping pass through unchanged.
func MapPQError(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}

	switch pqErr.Code {
	// Unique constraint violation (23505)
	case "23505":
		return apperrors.Conflict(formatConstraintMessage(pqErr))

	// Foreign key violation (23503)
	case "23503":
		return apperrors.BadRequest("referenced record does not exist")

	// Not null violation (23502)
	case "23502":
		col := pqErr.Column
		if col == "" {
			col = "required field"
		}
		return apperrors.Validation(map[string]string{
			col: "must not be empty",
		})

	// Check constraint violation (23514)
	case "23514":
		return mapCheckConstraint(pqErr)

	default:
		return err
	}
}

// mapCheckConstraint maps specific CHECK constraint names to user-friendly messages.
func mapCheckConstraint(pqErr *pq.Error) *apperrors.AppError {
	constraint := pqErr.Constraint

	switch {
	case strings.Contains(constraint, "status_valid"):
		return apperrors.Validation(map[string]string{
			"status": "must be one of: Pending, Gross Weight, Unloading, Loading, Tare Weight, Completed",
		})

	case strings.Contains(constraint, "quantity_non_negative"):
		return apperrors.Validation(map[string]string{
			"quantity": "must not be negative",
		})

	default:
		return apperrors.BadRequest("data validation failed: " + constraint)
	}
}

// formatConstraintMessage creates a user-friendly message for unique constraint violations.
func formatConstraintMessage(pqErr *pq.Error) string {
	constraint := pqErr.Constraint

	switch {
	case strings.Contains(constraint, "lot_code"):
		return "a record with this lot code already exists"
	case strings.Contains(constraint, "ticket"):
		return "a record with this ticket number already exists"
	case strings.Contains(constraint, "warehouse_product"):
		return "a balance row for this warehouse and product already exists"
	default:
		return "a record with these values already exists"
	}
}
