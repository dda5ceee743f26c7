package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/tavola-pos/backoffice/internal/inventory"
)

// ErrorKind classifies a service error for callers that map it onto a
// transport status.
type ErrorKind string

const (
	KindNotFound               ErrorKind = "not_found"
	KindInsufficientStock      ErrorKind = "insufficient_stock"
	KindAlreadyBilled          ErrorKind = "already_billed"
	KindInvalidStateTransition ErrorKind = "invalid_state_transition"
	KindDuplicateID            ErrorKind = "duplicate_id"
	KindConcurrencyConflict    ErrorKind = "concurrency_conflict"
	KindValidation             ErrorKind = "validation"
	KindTableUnavailable       ErrorKind = "table_unavailable"
	KindInternal               ErrorKind = "internal"
)

// Base errors, one per kind.
var (
	ErrNotFound               = errors.New("not found")
	ErrInsufficientStock      = inventory.ErrInsufficientStock
	ErrAlreadyBilled          = errors.New("order already billed")
	ErrInvalidStateTransition = errors.New("invalid state transition")
	ErrDuplicateID            = errors.New("duplicate id")
	ErrConcurrencyConflict    = errors.New("concurrent update, retry")
	ErrValidation             = errors.New("validation failed")
	ErrTableUnavailable       = errors.New("table unavailable")
)

// Errors returned by the services. Each wraps one of the base errors above.
var (
	ErrItemNotFound        = fmt.Errorf("inventory item %w", ErrNotFound)
	ErrTransactionNotFound = fmt.Errorf("stock transaction %w", ErrNotFound)
	ErrRecipeNotFound      = fmt.Errorf("recipe %w", ErrNotFound)
	ErrOrderNotFound       = fmt.Errorf("order %w", ErrNotFound)
	ErrCouponNotFound      = fmt.Errorf("coupon %w", ErrNotFound)
	ErrTableNotFound       = fmt.Errorf("table %w", ErrNotFound)

	ErrEmptyItems        = fmt.Errorf("%w: items are required", ErrValidation)
	ErrInvalidQuantity   = fmt.Errorf("%w: quantity must be > 0", ErrValidation)
	ErrInvalidMultiplier = fmt.Errorf("%w: multiplier must be > 0", ErrValidation)
	ErrInvalidServing    = fmt.Errorf("%w: serving_size must be > 0", ErrValidation)
	ErrNoIngredients     = fmt.Errorf("%w: at least one ingredient is required", ErrValidation)
	ErrInvalidTaxRate    = fmt.Errorf("%w: tax rate must be >= 0", ErrValidation)
	ErrInvalidStatus     = fmt.Errorf("%w: invalid status", ErrValidation)
	ErrMissingPayment    = fmt.Errorf("%w: payment_method is required", ErrValidation)
)

// ShortageError is returned when stock cannot cover a request. It satisfies
// errors.Is(err, ErrInsufficientStock).
type ShortageError struct {
	Shortages []inventory.Shortage
}

func (e *ShortageError) Error() string {
	parts := make([]string, 0, len(e.Shortages))
	for _, s := range e.Shortages {
		parts = append(parts, fmt.Sprintf("%s (need %s %s, have %s)",
			s.Name, s.Required.String(), s.Unit, s.Available.String()))
	}
	return "insufficient stock: " + strings.Join(parts, "; ")
}

func (e *ShortageError) Is(target error) bool {
	return target == ErrInsufficientStock
}

// Kind maps err onto the error taxonomy. Anything unrecognised is internal.
func Kind(err error) ErrorKind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrInsufficientStock):
		return KindInsufficientStock
	case errors.Is(err, ErrAlreadyBilled):
		return KindAlreadyBilled
	case errors.Is(err, ErrInvalidStateTransition):
		return KindInvalidStateTransition
	case errors.Is(err, ErrDuplicateID):
		return KindDuplicateID
	case errors.Is(err, ErrConcurrencyConflict):
		return KindConcurrencyConflict
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrTableUnavailable):
		return KindTableUnavailable
	}
	return KindInternal
}

// isUniqueViolation checks for pgconn error code 23505, optionally on a
// specific constraint.
func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" && (constraint == "" || pgErr.ConstraintName == constraint)
	}
	return false
}

// isForeignKeyViolation checks for pgconn error code 23503.
func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23503"
	}
	return false
}
