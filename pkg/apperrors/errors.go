package apperrors

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrNotFound              = errors.New("not found")
	ErrCityNotFound          = errors.New("city is not present in the database")
	ErrServiceTypeNotFound   = errors.New("service type is not present in the database")
	ErrMissingRequiredField  = errors.New("missing required field")
	ErrInvalidGeometry       = errors.New("invalid geometry")
	ErrInvalidCoordinates    = errors.New("invalid latitude/longitude")
	ErrAddressPrefixMismatch = errors.New("address does not start with any of the valid prefixes")
	ErrMatchAmbiguity        = errors.New("more than one object matches the record geometry")
	ErrCapacityOutOfBounds   = errors.New("capacity is out of the service type bounds")
)

// RowError attaches a human-readable reason to a row-level failure. Row
// errors degrade a single row to the rejected outcome and never abort the
// batch.
type RowError struct {
	Reason string
	Err    error
}

func (e *RowError) Error() string {
	if e.Err != nil {
		return e.Reason + ": " + e.Err.Error()
	}
	return e.Reason
}

func (e *RowError) Unwrap() error { return e.Err }

// NewRowError wraps err with a reason suitable for the per-row result table.
func NewRowError(reason string, err error) *RowError {
	return &RowError{Reason: reason, Err: err}
}

// IsRowError reports whether err is scoped to a single row.
func IsRowError(err error) bool {
	var re *RowError
	return errors.As(err, &re)
}

// IsConstraintViolation reports whether err is a Postgres integrity
// constraint violation (SQLSTATE class 23). Such failures reject the row
// but keep the batch alive.
func IsConstraintViolation(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return len(pgErr.Code) >= 2 && pgErr.Code[:2] == "23"
}

// IsTransactionFault reports whether err invalidates the whole batch
// transaction: connection failures (class 08), serialization failures
// (40001), deadlocks (40P01), administrative shutdown (57P01), a closed
// transaction or a cancelled context. The caller must roll back and report
// the document as failed with no partial commits.
func IsTransactionFault(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, pgx.ErrTxClosed) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if len(pgErr.Code) >= 2 && pgErr.Code[:2] == "08" {
			return true
		}
		switch pgErr.Code {
		case "40001", "40P01", "57P01":
			return true
		}
	}
	return false
}
