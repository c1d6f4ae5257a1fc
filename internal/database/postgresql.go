package database

import (
	"context"
	"database/sql"

	"github.com/01030959804/affiliate-ledger/internal/logger"
	"github.com/01030959804/affiliate-ledger/internal/utils"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose"
)

// Every transaction that takes row locks runs under a bounded lock wait so
// that contention surfaces as a retryable error instead of a hang.
const setLockTimeoutQuery = `SET LOCAL lock_timeout = '3s';`

type PostgresqlDB struct {
	db  *sql.DB
	log *logger.Logger
}

func NewPostgresqlDB(configDBString string, l *logger.Logger) (*PostgresqlDB, error) {
	db, err := sql.Open("pgx", configDBString)
	if err != nil {
		l.Sugar().Errorf("Failed to open a database: %s", err)
		return &PostgresqlDB{db: db, log: l}, err
	}

	pathToMigrations := utils.SiblingDir("migrations")

	err = goose.Up(db, pathToMigrations)
	if err != nil {
		l.Sugar().Fatalf("goose.Up: %v", err)
	}

	return &PostgresqlDB{db: db, log: l}, nil
}

// beginLedgerTx opens a transaction with the bounded lock wait applied.
func (postgresqlDB *PostgresqlDB) beginLedgerTx(ctx context.Context) (*sql.Tx, error) {
	tx, err := postgresqlDB.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, setLockTimeoutQuery); err != nil {
		tx.Rollback()
		postgresqlDB.log.Sugar().Errorf("Failed to execute a query setLockTimeoutQuery: %s", err)
		return nil, classifyError(err)
	}
	return tx, nil
}

func (postgresqlDB *PostgresqlDB) Close() {
	if postgresqlDB.db != nil {
		postgresqlDB.db.Close()
	}
}
