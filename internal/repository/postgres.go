package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tm-acme-shop/acme-shop-checkout-service/internal/errors"
	"github.com/tm-acme-shop/acme-shop-checkout-service/internal/logging"
	"github.com/tm-acme-shop/acme-shop-checkout-service/internal/models"
)

// Schema is applied by the migration job in deployed environments and by the service
// itself when APP_ENV=development.
const Schema = `
CREATE TABLE IF NOT EXISTS checkout_orders (
	id                   TEXT PRIMARY KEY,
	takeapp_order_id     TEXT,
	takeapp_order_number TEXT,
	customer_name        TEXT NOT NULL,
	customer_phone       TEXT NOT NULL,
	customer_email       TEXT,
	items                JSONB NOT NULL,
	items_text           TEXT NOT NULL,
	total_amount         NUMERIC(12, 2) NOT NULL,
	remark               TEXT,
	status               TEXT NOT NULL,
	payment_url          TEXT,
	payment_screenshot   TEXT,
	created_at           TIMESTAMPTZ NOT NULL,
	updated_at           TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS checkout_orders_takeapp_idx ON checkout_orders (takeapp_order_id);
CREATE INDEX IF NOT EXISTS checkout_orders_created_idx ON checkout_orders (created_at DESC);
`

const orderColumns = `
	id, takeapp_order_id, takeapp_order_number, customer_name, customer_phone,
	customer_email, items, items_text, total_amount, remark, status,
	payment_url, payment_screenshot, created_at, updated_at
`

// PostgresOrderRepository implements OrderRepository using PostgreSQL.
type PostgresOrderRepository struct {
	db     *sql.DB
	logger *logging.LoggerV2
	now    func() time.Time
}

func NewPostgresOrderRepository(db *sql.DB, logger *logging.LoggerV2) *PostgresOrderRepository {
	return &PostgresOrderRepository{
		db:     db,
		logger: logger,
		now:    time.Now,
	}
}

// Create inserts a new ledger row.
func (r *PostgresOrderRepository) Create(ctx context.Context, order *models.LocalOrder) error {
	r.logger.Debug("Recording order", logging.Fields{"order_id": order.ID})

	itemsJSON, err := json.Marshal(order.Items)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO checkout_orders (` + orderColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	_, err = r.db.ExecContext(ctx, query,
		order.ID,
		nullString(order.TakeAppOrderID),
		nullString(order.TakeAppOrderNumber),
		order.CustomerName,
		order.CustomerPhone,
		nullString(order.CustomerEmail),
		itemsJSON,
		order.ItemsText,
		order.TotalAmount.String(),
		nullString(order.Remark),
		string(order.Status),
		nullString(order.PaymentURL),
		nullString(order.PaymentScreenshot),
		order.CreatedAt,
		order.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to record order", logging.Fields{
			"order_id": order.ID,
			"error":    err.Error(),
		})
		return err
	}

	r.logger.Info("Order recorded", logging.Fields{
		"order_id":         order.ID,
		"takeapp_order_id": order.TakeAppOrderID,
		"total":            order.TotalAmount.String(),
	})
	return nil
}

func (r *PostgresOrderRepository) GetByID(ctx context.Context, id string) (*models.LocalOrder, error) {
	query := `SELECT ` + orderColumns + ` FROM checkout_orders WHERE id = $1`
	return r.getOne(ctx, query, id)
}

func (r *PostgresOrderRepository) GetByTakeAppID(ctx context.Context, takeAppOrderID string) (*models.LocalOrder, error) {
	query := `SELECT ` + orderColumns + ` FROM checkout_orders WHERE takeapp_order_id = $1`
	return r.getOne(ctx, query, takeAppOrderID)
}

// List returns orders newest first.
func (r *PostgresOrderRepository) List(ctx context.Context, limit, offset int) ([]*models.LocalOrder, error) {
	r.logger.Debug("Listing orders", logging.Fields{"limit": limit, "offset": offset})

	query := `SELECT ` + orderColumns + ` FROM checkout_orders ORDER BY created_at DESC LIMIT $1 OFFSET $2`
	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := make([]*models.LocalOrder, 0)
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, rows.Err()
}

// UpdateStatus moves a pending order to paid or cancelled.
func (r *PostgresOrderRepository) UpdateStatus(ctx context.Context, id string, status models.OrderStatus) (*models.LocalOrder, error) {
	r.logger.Debug("Updating order status", logging.Fields{
		"order_id":   id,
		"new_status": status,
	})

	query := `
		UPDATE checkout_orders
		SET status = $2, updated_at = $3
		WHERE id = $1 AND status = $4
		RETURNING ` + orderColumns

	order, err := r.getOne(ctx, query, id, string(status), r.now(), string(models.OrderStatusPending))
	if errors.Is(err, errors.ErrNotFound) {
		current, getErr := r.GetByID(ctx, id)
		if getErr != nil {
			return nil, getErr
		}
		return nil, invalidTransition(current.Status, status)
	}
	if err != nil {
		return nil, err
	}

	r.logger.Info("Order status updated", logging.Fields{
		"order_id":   id,
		"new_status": status,
	})
	return order, nil
}

func (r *PostgresOrderRepository) SetPaymentScreenshot(ctx context.Context, id, screenshotURL string) (*models.LocalOrder, error) {
	query := `
		UPDATE checkout_orders
		SET payment_screenshot = $2, updated_at = $3
		WHERE id = $1
		RETURNING ` + orderColumns

	order, err := r.getOne(ctx, query, id, screenshotURL, r.now())
	if err != nil {
		return nil, err
	}

	r.logger.Info("Payment screenshot attached", logging.Fields{"order_id": id})
	return order, nil
}

func (r *PostgresOrderRepository) getOne(ctx context.Context, query string, args ...interface{}) (*models.LocalOrder, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, errors.ErrNotFound
	}
	return scanOrder(rows)
}

func scanOrder(rows *sql.Rows) (*models.LocalOrder, error) {
	var order models.LocalOrder
	var itemsJSON []byte
	var total, status string
	var takeAppID, takeAppNumber, email, remark, paymentURL, screenshot sql.NullString

	err := rows.Scan(
		&order.ID,
		&takeAppID,
		&takeAppNumber,
		&order.CustomerName,
		&order.CustomerPhone,
		&email,
		&itemsJSON,
		&order.ItemsText,
		&total,
		&remark,
		&status,
		&paymentURL,
		&screenshot,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(itemsJSON, &order.Items); err != nil {
		return nil, err
	}
	if order.TotalAmount, err = decimal.NewFromString(total); err != nil {
		return nil, err
	}

	order.Status = models.OrderStatus(status)
	order.TakeAppOrderID = takeAppID.String
	order.TakeAppOrderNumber = takeAppNumber.String
	order.CustomerEmail = email.String
	order.Remark = remark.String
	order.PaymentURL = paymentURL.String
	order.PaymentScreenshot = screenshot.String
	return &order, nil
}

func invalidTransition(from, to models.OrderStatus) error {
	return errors.NewValidationError("status", fmt.Sprintf("cannot move order from %s to %s", from, to))
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
