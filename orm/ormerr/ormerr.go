// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package ormerr maps the core's error conditions onto [apperr.AppError], so a
caller embedding this ORM in an HTTP service gets the same errors.As-friendly,
HTTP-status-aware error type the rest of the platform already uses.

Every error code named by the aggregate persistence engine's contract lives
here as a small constructor: ParameterMissing, MappingNotFound, NoPrimaryKey,
InvariantViolation, BackendError, TransactionStateError.
*/
package ormerr

import (
	"fmt"
	"net/http"

	"github.com/taibuivan/orm1go/internal/platform/apperr"
)

// ParameterMissing reports a :name placeholder with no corresponding value
// in the supplied parameter mapping. Raised at parse time, before any
// statement reaches the backend.
func ParameterMissing(name string) *apperr.AppError {
	return &apperr.AppError{
		Code:       "PARAMETER_MISSING",
		Message:    fmt.Sprintf("no value supplied for parameter %q", name),
		HTTPStatus: http.StatusBadRequest,
	}
}

// MappingNotFound reports that the session was asked to operate on a type
// with no registered [mapping.Mapping].
func MappingNotFound(typeName string) *apperr.AppError {
	return &apperr.AppError{
		Code:       "MAPPING_NOT_FOUND",
		Message:    fmt.Sprintf("no mapping registered for type %q", typeName),
		HTTPStatus: http.StatusInternalServerError,
	}
}

// NoPrimaryKey reports an entity mapping with an empty primary key
// projection, which violates the mapping model's invariants.
func NoPrimaryKey(typeName string) *apperr.AppError {
	return &apperr.AppError{
		Code:       "NO_PRIMARY_KEY",
		Message:    fmt.Sprintf("mapping %q declares no primary key", typeName),
		HTTPStatus: http.StatusInternalServerError,
	}
}

// InvariantViolation reports an assertion-level failure in the engine — a
// condition that indicates caller misuse or corrupted mapping metadata, not
// a recoverable runtime condition. Examples: an INSERT ... RETURNING that
// produced no row for some input, a primary key absent during save.
func InvariantViolation(msg string) *apperr.AppError {
	return &apperr.AppError{
		Code:       "INVARIANT_VIOLATION",
		Message:    msg,
		HTTPStatus: http.StatusInternalServerError,
	}
}

// BackendError wraps a fault surfaced by the database driver.
func BackendError(cause error) *apperr.AppError {
	return &apperr.AppError{
		Code:       "BACKEND_ERROR",
		Message:    "the database backend reported an error",
		HTTPStatus: http.StatusInternalServerError,
		Cause:      cause,
	}
}

// TransactionStateError reports a commit or rollback issued with no active
// transaction.
func TransactionStateError(msg string) *apperr.AppError {
	return &apperr.AppError{
		Code:       "TRANSACTION_STATE_ERROR",
		Message:    msg,
		HTTPStatus: http.StatusInternalServerError,
	}
}
