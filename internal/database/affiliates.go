package database

import (
	"context"
	"database/sql"
	"errors"

	"github.com/01030959804/affiliate-ledger/internal/models"
)

const (
	createAffiliateQuery = `INSERT INTO content.affiliates (telegram_id, affiliate_name, phone, store_name) VALUES ($1, $2, $3, $4) RETURNING affiliate_id;`

	getAffiliateQuery = `SELECT affiliate_id, telegram_id, affiliate_name, phone, store_name, balance, total_sales, total_orders
		FROM content.affiliates WHERE affiliate_id = $1;`
	getAffiliateByTelegramIDQuery = `SELECT affiliate_id, telegram_id, affiliate_name, phone, store_name, balance, total_sales, total_orders
		FROM content.affiliates WHERE telegram_id = $1;`

	lockAffiliateQuery = `SELECT balance FROM content.affiliates WHERE affiliate_id = $1 FOR UPDATE;`

	creditAffiliateQuery = `UPDATE content.affiliates SET balance = balance + $1, total_sales = total_sales + $2 WHERE affiliate_id = $3;`
	debitAffiliateQuery  = `UPDATE content.affiliates SET balance = balance - $1 WHERE affiliate_id = $2;`

	listAffiliateStatsQuery = `SELECT a.affiliate_id, a.telegram_id, a.affiliate_name, a.phone, a.store_name, a.balance, a.total_sales, a.total_orders,
		COUNT(o.order_id) FILTER (WHERE o.status = 'confirmed') AS confirmed_orders
		FROM content.affiliates a
		LEFT JOIN content.orders o ON o.affiliate_id = a.affiliate_id
		GROUP BY a.affiliate_id
		ORDER BY a.total_sales DESC;`

	deleteAffiliateOrdersQuery      = `DELETE FROM content.orders WHERE affiliate_id = $1;`
	deleteAffiliateWithdrawalsQuery = `DELETE FROM content.withdrawals WHERE affiliate_id = $1;`
	deleteAffiliateQuery            = `DELETE FROM content.affiliates WHERE affiliate_id = $1;`

	ledgerReportQuery = `SELECT a.affiliate_id, a.balance,
		COALESCE(SUM(o.commission) FILTER (WHERE o.status = 'confirmed'), 0) AS confirmed_total,
		COALESCE((SELECT SUM(w.amount) FROM content.withdrawals w WHERE w.affiliate_id = a.affiliate_id AND w.status = 'approved'), 0) AS withdrawn_total
		FROM content.affiliates a
		LEFT JOIN content.orders o ON o.affiliate_id = a.affiliate_id
		GROUP BY a.affiliate_id;`
)

func (postgresqlDB *PostgresqlDB) CreateAffiliate(ctx context.Context, registerRequest models.RegisterRequest) (affiliateID int, err error) {
	err = postgresqlDB.db.QueryRowContext(ctx, createAffiliateQuery,
		registerRequest.TelegramID, registerRequest.Name, registerRequest.Phone, registerRequest.StoreName).Scan(&affiliateID)
	if err != nil {
		postgresqlDB.log.Sugar().Errorf("Failed to execute a query createAffiliateQuery: %s", err)
		return affiliateID, classifyError(err)
	}
	return affiliateID, nil
}

func (postgresqlDB *PostgresqlDB) GetAffiliate(ctx context.Context, affiliateID int) (affiliate models.Affiliate, err error) {
	err = postgresqlDB.db.QueryRowContext(ctx, getAffiliateQuery, affiliateID).Scan(
		&affiliate.ID, &affiliate.TelegramID, &affiliate.Name, &affiliate.Phone,
		&affiliate.StoreName, &affiliate.Balance, &affiliate.TotalSales, &affiliate.TotalOrders)
	if errors.Is(err, sql.ErrNoRows) {
		return affiliate, ErrNotFound
	}
	if err != nil {
		postgresqlDB.log.Sugar().Errorf("Failed to execute a query getAffiliateQuery: %s", err)
		return affiliate, err
	}
	return affiliate, nil
}

func (postgresqlDB *PostgresqlDB) GetAffiliateByTelegramID(ctx context.Context, telegramID int64) (affiliate models.Affiliate, err error) {
	err = postgresqlDB.db.QueryRowContext(ctx, getAffiliateByTelegramIDQuery, telegramID).Scan(
		&affiliate.ID, &affiliate.TelegramID, &affiliate.Name, &affiliate.Phone,
		&affiliate.StoreName, &affiliate.Balance, &affiliate.TotalSales, &affiliate.TotalOrders)
	if errors.Is(err, sql.ErrNoRows) {
		return affiliate, ErrNotFound
	}
	if err != nil {
		postgresqlDB.log.Sugar().Errorf("Failed to execute a query getAffiliateByTelegramIDQuery: %s", err)
		return affiliate, err
	}
	return affiliate, nil
}

func (postgresqlDB *PostgresqlDB) ListAffiliateStats(ctx context.Context) (stats []models.AffiliateStats, err error) {
	rows, err := postgresqlDB.db.QueryContext(ctx, listAffiliateStatsQuery)
	if err != nil {
		postgresqlDB.log.Sugar().Errorf("Failed to execute a query listAffiliateStatsQuery: %s", err)
		return stats, err
	}
	defer rows.Close()

	for rows.Next() {
		var s models.AffiliateStats
		if err := rows.Scan(&s.ID, &s.TelegramID, &s.Name, &s.Phone, &s.StoreName,
			&s.Balance, &s.TotalSales, &s.TotalOrders, &s.ConfirmedOrders); err != nil {
			postgresqlDB.log.Sugar().Errorf("Failed to scan affiliate information in ListAffiliateStats method: %s", err)
			return stats, err
		}
		stats = append(stats, s)
	}

	if err := rows.Err(); err != nil {
		postgresqlDB.log.Sugar().Errorf("The last error encountered by Rows.Scan in ListAffiliateStats method: %s", err)
		return stats, err
	}

	return stats, nil
}

// DeleteAffiliate removes the affiliate and every order and withdrawal it
// owns within one transaction. The cascade is orchestrated here instead of
// relying on engine-level ON DELETE behavior.
func (postgresqlDB *PostgresqlDB) DeleteAffiliate(ctx context.Context, affiliateID int) (err error) {
	tx, err := postgresqlDB.beginLedgerTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var balance float64
	err = tx.QueryRowContext(ctx, lockAffiliateQuery, affiliateID).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		postgresqlDB.log.Sugar().Errorf("Failed to execute a query lockAffiliateQuery: %s", err)
		return classifyError(err)
	}

	for _, query := range []string{deleteAffiliateOrdersQuery, deleteAffiliateWithdrawalsQuery, deleteAffiliateQuery} {
		if _, err = tx.ExecContext(ctx, query, affiliateID); err != nil {
			postgresqlDB.log.Sugar().Errorf("Failed to execute a cascade delete query: %s", err)
			return classifyError(err)
		}
	}

	return tx.Commit()
}

// LedgerReports re-derives every affiliate balance from order and withdrawal
// history. Read-only; used by the auditor.
func (postgresqlDB *PostgresqlDB) LedgerReports(ctx context.Context) (reports []models.LedgerReport, err error) {
	rows, err := postgresqlDB.db.QueryContext(ctx, ledgerReportQuery)
	if err != nil {
		postgresqlDB.log.Sugar().Errorf("Failed to execute a query ledgerReportQuery: %s", err)
		return reports, err
	}
	defer rows.Close()

	for rows.Next() {
		var report models.LedgerReport
		if err := rows.Scan(&report.AffiliateID, &report.Balance, &report.ConfirmedTotal, &report.WithdrawnTotal); err != nil {
			postgresqlDB.log.Sugar().Errorf("Failed to scan ledger report in LedgerReports method: %s", err)
			return reports, err
		}
		report.DerivedBalance = report.ConfirmedTotal - report.WithdrawnTotal
		reports = append(reports, report)
	}

	if err := rows.Err(); err != nil {
		postgresqlDB.log.Sugar().Errorf("The last error encountered by Rows.Scan in LedgerReports method: %s", err)
		return reports, err
	}

	return reports, nil
}

// creditAffiliate adds an order's commission to the balance and its price to
// total_sales. Must run inside the order-confirmation transaction; the row
// lock makes the increment atomic against concurrent debits.
func (postgresqlDB *PostgresqlDB) creditAffiliate(ctx context.Context, tx *sql.Tx, affiliateID int, commission, price float64) error {
	var balance float64
	err := tx.QueryRowContext(ctx, lockAffiliateQuery, affiliateID).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		postgresqlDB.log.Sugar().Errorf("Failed to execute a query lockAffiliateQuery: %s", err)
		return classifyError(err)
	}

	if _, err = tx.ExecContext(ctx, creditAffiliateQuery, commission, price, affiliateID); err != nil {
		postgresqlDB.log.Sugar().Errorf("Failed to execute a query creditAffiliateQuery: %s", err)
		return classifyError(err)
	}
	return nil
}

// debitAffiliate checks sufficiency and decrements the balance under the same
// row lock, so two concurrent debits can never both observe the pre-decrement
// balance.
func (postgresqlDB *PostgresqlDB) debitAffiliate(ctx context.Context, tx *sql.Tx, affiliateID int, amount float64) error {
	var balance float64
	err := tx.QueryRowContext(ctx, lockAffiliateQuery, affiliateID).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		postgresqlDB.log.Sugar().Errorf("Failed to execute a query lockAffiliateQuery: %s", err)
		return classifyError(err)
	}

	if balance < amount {
		return ErrInsufficientBalance
	}

	if _, err = tx.ExecContext(ctx, debitAffiliateQuery, amount, affiliateID); err != nil {
		postgresqlDB.log.Sugar().Errorf("Failed to execute a query debitAffiliateQuery: %s", err)
		return classifyError(err)
	}
	return nil
}
