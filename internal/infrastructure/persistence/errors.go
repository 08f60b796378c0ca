package persistence

import (
	"errors"
	"fmt"

	"github.com/freightmarket/backend/internal/domain/shared"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// SQLSTATE codes Postgres raises when it aborts one side of a race.
const (
	sqlStateSerializationFailure = "40001"
	sqlStateDeadlockDetected     = "40P01"
)

// translateError maps GORM sentinel errors onto domain errors for resource.
// Anything else is returned unchanged.
func translateError(err error, resource string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return shared.NewNotFoundError(resource)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return shared.NewConflictError(fmt.Sprintf("%s already exists", resource))
	}
	return err
}

// concurrencyConflict reports a version-checked update that matched no row.
func concurrencyConflict(resource string) error {
	return shared.NewDomainError(shared.CodeConcurrencyConflict,
		fmt.Sprintf("%s was modified by another request", resource))
}

// translateTxError maps a transaction aborted by the database to break a
// deadlock or a serialization failure onto a concurrency conflict. The losing
// request sees the same error as a version mismatch.
func translateTxError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case sqlStateSerializationFailure, sqlStateDeadlockDetected:
			return shared.NewDomainError(shared.CodeConcurrencyConflict,
				"The request conflicted with a concurrent update, please retry")
		}
	}
	return err
}

// statusStrings converts typed statuses to query arguments.
func statusStrings[S ~string](statuses []S) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

// orderBySequence preloads append-only child rows in log order.
func orderBySequence(db *gorm.DB) *gorm.DB {
	return db.Order("sequence ASC")
}
