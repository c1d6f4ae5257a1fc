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
	bumpTotalOrdersQuery = `UPDATE content.affiliates SET total_orders = total_orders + 1 WHERE affiliate_id = $1;`

	createOrderQuery = `INSERT INTO content.orders (affiliate_id, customer_name, customer_phone, city, country, product, product_code, price, commission, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 'pending') RETURNING order_id, created_at;`

	lockOrderQuery = `SELECT affiliate_id, price, commission, status FROM content.orders WHERE order_id = $1 FOR UPDATE;`

	setOrderStatusQuery = `UPDATE content.orders SET status = $1 WHERE order_id = $2;`

	listOrdersQuery = `SELECT order_id, affiliate_id, customer_name, customer_phone, city, country, product, product_code, price, commission, status, created_at
		FROM content.orders`
)

func (postgresqlDB *PostgresqlDB) CreateOrder(ctx context.Context, affiliateID int, orderRequest models.OrderRequest) (order models.Order, err error) {
	tx, err := postgresqlDB.beginLedgerTx(ctx)
	if err != nil {
		return order, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, bumpTotalOrdersQuery, affiliateID)
	if err != nil {
		postgresqlDB.log.Sugar().Errorf("Failed to execute a query bumpTotalOrdersQuery: %s", err)
		return order, classifyError(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return order, err
	}
	if affected == 0 {
		return order, ErrNotFound
	}

	order = models.Order{
		AffiliateID:   affiliateID,
		CustomerName:  orderRequest.CustomerName,
		CustomerPhone: orderRequest.CustomerPhone,
		City:          orderRequest.City,
		Country:       orderRequest.Country,
		Product:       orderRequest.Product,
		ProductCode:   orderRequest.ProductCode,
		Price:         orderRequest.Price,
		Commission:    orderRequest.Commission,
		Status:        models.OrderPending,
	}
	err = tx.QueryRowContext(ctx, createOrderQuery,
		affiliateID, orderRequest.CustomerName, orderRequest.CustomerPhone, orderRequest.City,
		orderRequest.Country, orderRequest.Product, orderRequest.ProductCode, orderRequest.Price, orderRequest.Commission).
		Scan(&order.ID, &order.CreatedAt)
	if err != nil {
		postgresqlDB.log.Sugar().Errorf("Failed to execute a query createOrderQuery: %s", err)
		return order, classifyError(err)
	}

	return order, tx.Commit()
}

// ConfirmOrder moves a pending order to confirmed and credits the commission
// in the same transaction. Confirming an already-confirmed or cancelled order
// returns ErrInvalidTransition without touching the balance.
func (postgresqlDB *PostgresqlDB) ConfirmOrder(ctx context.Context, orderID int) (err error) {
	tx, err := postgresqlDB.beginLedgerTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var affiliateID int
	var price, commission float64
	var status string
	err = tx.QueryRowContext(ctx, lockOrderQuery, orderID).Scan(&affiliateID, &price, &commission, &status)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		postgresqlDB.log.Sugar().Errorf("Failed to execute a query lockOrderQuery: %s", err)
		return classifyError(err)
	}

	if status != string(models.OrderPending) {
		return ErrInvalidTransition
	}

	if err = postgresqlDB.creditAffiliate(ctx, tx, affiliateID, commission, price); err != nil {
		return err
	}

	if _, err = tx.ExecContext(ctx, setOrderStatusQuery, string(models.OrderConfirmed), orderID); err != nil {
		postgresqlDB.log.Sugar().Errorf("Failed to execute a query setOrderStatusQuery: %s", err)
		return classifyError(err)
	}

	return tx.Commit()
}

func (postgresqlDB *PostgresqlDB) CancelOrder(ctx context.Context, orderID int) (err error) {
	tx, err := postgresqlDB.beginLedgerTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var affiliateID int
	var price, commission float64
	var status string
	err = tx.QueryRowContext(ctx, lockOrderQuery, orderID).Scan(&affiliateID, &price, &commission, &status)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		postgresqlDB.log.Sugar().Errorf("Failed to execute a query lockOrderQuery: %s", err)
		return classifyError(err)
	}

	if status != string(models.OrderPending) {
		return ErrInvalidTransition
	}

	if _, err = tx.ExecContext(ctx, setOrderStatusQuery, string(models.OrderCancelled), orderID); err != nil {
		postgresqlDB.log.Sugar().Errorf("Failed to execute a query setOrderStatusQuery: %s", err)
		return classifyError(err)
	}

	return tx.Commit()
}

func (postgresqlDB *PostgresqlDB) ListOrders(ctx context.Context, filter models.OrderFilter) (orders []models.Order, err error) {
	query, args := buildListOrdersQuery(filter)
	rows, err := postgresqlDB.db.QueryContext(ctx, query, args...)
	if err != nil {
		postgresqlDB.log.Sugar().Errorf("Failed to execute a query listOrdersQuery: %s", err)
		return orders, err
	}
	defer rows.Close()

	for rows.Next() {
		var order models.Order
		if err := rows.Scan(&order.ID, &order.AffiliateID, &order.CustomerName, &order.CustomerPhone,
			&order.City, &order.Country, &order.Product, &order.ProductCode, &order.Price, &order.Commission,
			&order.Status, &order.CreatedAt); err != nil {
			postgresqlDB.log.Sugar().Errorf("Failed to scan order information in ListOrders method: %s", err)
			return orders, err
		}
		orders = append(orders, order)
	}

	if err := rows.Err(); err != nil {
		postgresqlDB.log.Sugar().Errorf("The last error encountered by Rows.Scan in ListOrders method: %s", err)
		return orders, err
	}

	return orders, nil
}

func buildListOrdersQuery(filter models.OrderFilter) (string, []any) {
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
		conditions = append(conditions, "created_at >= $"+strconv.Itoa(len(args)))
	}
	if !filter.To.IsZero() {
		args = append(args, filter.To)
		conditions = append(conditions, "created_at <= $"+strconv.Itoa(len(args)))
	}

	query := listOrdersQuery
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC;"
	return query, args
}
