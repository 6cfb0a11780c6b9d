package database

import (
	"github.com/foodtrack/foodtrack-backend/pkg/errors"
	"github.com/lib/pq"
)

// Postgres error codes that indicate lock or serialization contention.
const (
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgLockNotAvailable     = "55P03"
)

// TranslateError maps driver-level contention failures onto the
// ConcurrencyConflict kind. Application errors pass through untouched so
// their kind survives the transaction boundary.
func TranslateError(err error) error {
	if err == nil {
		return nil
	}

	var appErr *errors.AppError
	if errors.As(err, &appErr) {
		return err
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch string(pqErr.Code) {
		case pgSerializationFailure, pgDeadlockDetected, pgLockNotAvailable:
			return errors.ConcurrencyConflict("database contention, retry the operation").WithDetails(
				map[string]string{"pg_code": string(pqErr.Code)},
			)
		}
	}

	return err
}
