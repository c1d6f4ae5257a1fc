package database

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"

	"github.com/01030959804/affiliate-ledger/internal/models"
)

const (
	affiliateExistsQuery = `SELECT EXISTS (SELECT 1 FROM content.affiliates WHERE affiliate_id = $1);`

	createWithdrawalQuery = `INSERT INTO content.withdrawals (affiliate_id, amount, phone, status)
		VALUES ($1, $2, $3, 'pending') RETURNING withdrawal_id, requested_at;`

	lockWithdrawalQuery = `SELECT affiliate_id, amount, status FROM content.withdrawals WHERE withdrawal_id = $1 FOR UPDATE;`

	settleWithdrawalQuery = `UPDATE content.withdrawals SET status = $1, processed_at = now() WHERE withdrawal_id = $2 RETURNING processed_at;`

	listWithdrawalsQuery = `SELECT withdrawal_id, affiliate_id, amount, phone, status, requested_at, processed_at
		FROM content.withdrawals`
)

// RequestWithdrawal records a pending withdrawal. The balance is not checked
// here; sufficiency is decided at approval time under the affiliate row lock.
func (postgresqlDB *PostgresqlDB) RequestWithdrawal(ctx context.Context, affiliateID int, withdrawRequest models.WithdrawRequest) (withdrawal models.Withdrawal, err error) {
	var exists bool
	if err = postgresqlDB.db.QueryRowContext(ctx, affiliateExistsQuery, affiliateID).Scan(&exists); err != nil {
		postgresqlDB.log.Sugar().Errorf("Failed to execute a query affiliateExistsQuery: %s", err)
		return withdrawal, err
	}
	if !exists {
		return withdrawal, ErrNotFound
	}

	withdrawal = models.Withdrawal{
		AffiliateID: affiliateID,
		Amount:      withdrawRequest.Amount,
		Phone:       withdrawRequest.Phone,
		Status:      models.WithdrawalPending,
	}
	err = postgresqlDB.db.QueryRowContext(ctx, createWithdrawalQuery,
		affiliateID, withdrawRequest.Amount, withdrawRequest.Phone).
		Scan(&withdrawal.ID, &withdrawal.RequestedAt)
	if err != nil {
		postgresqlDB.log.Sugar().Errorf("Failed to execute a query createWithdrawalQuery: %s", err)
		return withdrawal, classifyError(err)
	}
	return withdrawal, nil
}

// ApproveWithdrawal debits the balance and marks the withdrawal approved in
// one transaction. An insufficient balance leaves the withdrawal pending.
func (postgresqlDB *PostgresqlDB) ApproveWithdrawal(ctx context.Context, withdrawalID int) (err error) {
	tx, err := postgresqlDB.beginLedgerTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var affiliateID int
	var amount float64
	var status string
	err = tx.QueryRowContext(ctx, lockWithdrawalQuery, withdrawalID).Scan(&affiliateID, &amount, &status)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		postgresqlDB.log.Sugar().Errorf("Failed to execute a query lockWithdrawalQuery: %s", err)
		return classifyError(err)
	}

	if status != string(models.WithdrawalPending) {
		return ErrInvalidTransition
	}

	if err = postgresqlDB.debitAffiliate(ctx, tx, affiliateID, amount); err != nil {
		return err
	}

	var processedAt sql.NullTime
	if err = tx.QueryRowContext(ctx, settleWithdrawalQuery, string(models.WithdrawalApproved), withdrawalID).Scan(&processedAt); err != nil {
		postgresqlDB.log.Sugar().Errorf("Failed to execute a query settleWithdrawalQuery: %s", err)
		return classifyError(err)
	}

	return tx.Commit()
}

func (postgresqlDB *PostgresqlDB) RejectWithdrawal(ctx context.Context, withdrawalID int) (err error) {
	tx, err := postgresqlDB.beginLedgerTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var affiliateID int
	var amount float64
	var status string
	err = tx.QueryRowContext(ctx, lockWithdrawalQuery, withdrawalID).Scan(&affiliateID, &amount, &status)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		postgresqlDB.log.Sugar().Errorf("Failed to execute a query lockWithdrawalQuery: %s", err)
		return classifyError(err)
	}

	if status != string(models.WithdrawalPending) {
		return ErrInvalidTransition
	}

	var processedAt sql.NullTime
	if err = tx.QueryRowContext(ctx, settleWithdrawalQuery, string(models.WithdrawalRejected), withdrawalID).Scan(&processedAt); err != nil {
		postgresqlDB.log.Sugar().Errorf("Failed to execute a query settleWithdrawalQuery: %s", err)
		return classifyError(err)
	}

	return tx.Commit()
}

func (postgresqlDB *PostgresqlDB) ListWithdrawals(ctx context.Context, filter models.WithdrawalFilter) (withdrawals []models.Withdrawal, err error) {
	query, args := buildListWithdrawalsQuery(filter)
	rows, err := postgresqlDB.db.QueryContext(ctx, query, args...)
	if err != nil {
		postgresqlDB.log.Sugar().Errorf("Failed to execute a query listWithdrawalsQuery: %s", err)
		return withdrawals, err
	}
	defer rows.Close()

	for rows.Next() {
		var withdrawal models.Withdrawal
		var processedAt sql.NullTime
		if err := rows.Scan(&withdrawal.ID, &withdrawal.AffiliateID, &withdrawal.Amount, &withdrawal.Phone,
			&withdrawal.Status, &withdrawal.RequestedAt, &processedAt); err != nil {
			postgresqlDB.log.Sugar().Errorf("Failed to scan withdrawal information in ListWithdrawals method: %s", err)
			return withdrawals, err
		}
		if processedAt.Valid {
			withdrawal.ProcessedAt = &processedAt.Time
		}
		withdrawals = append(withdrawals, withdrawal)
	}

	if err := rows.Err(); err != nil {
		postgresqlDB.log.Sugar().Errorf("The last error encountered by Rows.Scan in ListWithdrawals method: %s", err)
		return withdrawals, err
	}

	return withdrawals, nil
}

func buildListWithdrawalsQuery(filter models.WithdrawalFilter) (string, []any) {
	var conditions []string
	var args []any

	if filter.AffiliateID != 0 {
		args = append(args, filter.AffiliateID)
		conditions = append(conditions, "affiliate_id = $"+strconv.Itoa(len(args)))
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		conditions = append(conditions, "status = $"+strconv.Itoa(len(args)))
	}
	if !filter.From.IsZero() {
		args = append(args, filter.From)
		conditions = append(conditions, "requested_at >= $"+strconv.Itoa(len(args)))
	}
	if !filter.To.IsZero() {
		args = append(args, filter.To)
		conditions = append(conditions, "requested_at <= $"+strconv.Itoa(len(args)))
	}

	query := listWithdrawalsQuery
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY requested_at DESC;"
	return query, args
}
