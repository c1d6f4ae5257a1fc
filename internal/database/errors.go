package database

import (
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrNotFound            = errors.New("postgresql: record not found")
	ErrDuplicateAffiliate  = errors.New("postgresql: telegram id already registered")
	ErrInvalidTransition   = errors.New("postgresql: status is already terminal")
	ErrInsufficientBalance = errors.New("postgresql: not enough balance")
	ErrContention          = errors.New("postgresql: row lock contention, retry")
)

// classifyError folds driver-level failures into the ledger error kinds.
// Lock timeouts, serialization failures and deadlocks all surface as
// ErrContention, the only retryable kind. A foreign key violation means the
// referenced affiliate vanished between statements, which callers see as
// NotFound.
func classifyError(err error) error {
	var pgError *pgconn.PgError
	if errors.As(err, &pgError) {
		switch pgError.Code {
		case pgerrcode.UniqueViolation:
			return ErrDuplicateAffiliate
		case pgerrcode.ForeignKeyViolation:
			return ErrNotFound
		case pgerrcode.LockNotAvailable, pgerrcode.SerializationFailure, pgerrcode.DeadlockDetected:
			return ErrContention
		}
	}
	return err
}
