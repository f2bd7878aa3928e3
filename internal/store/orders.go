package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/safar/storefront/internal/database"
	"github.com/safar/storefront/internal/models"
)

const orderColumns = `id, user_id, order_number, status, subtotal, tax, shipping_cost, total,
		       shipping_address_id, shipping_method, payment_method, payment_status,
		       idempotency_key, created_at, updated_at, version`

const orderColumnsAliased = `o.id, o.user_id, o.order_number, o.status, o.subtotal, o.tax, o.shipping_cost, o.total,
		       o.shipping_address_id, o.shipping_method, o.payment_method, o.payment_status,
		       o.idempotency_key, o.created_at, o.updated_at, o.version`

// InsertOrder writes the order header and fills in the generated id,
// timestamps and version.
func InsertOrder(ctx context.Context, q sqlx.QueryerContext, order *models.Order) error {
	query := `
		INSERT INTO orders (user_id, order_number, status, subtotal, tax, shipping_cost, total,
		                    shipping_address_id, shipping_method, payment_method, payment_status,
		                    idempotency_key, created_at, updated_at, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW(), NOW(), 1)
		RETURNING id, created_at, updated_at, version`

	err := q.QueryRowxContext(ctx, query,
		order.UserID, order.OrderNumber, order.Status,
		order.Subtotal, order.Tax, order.ShippingCost, order.Total,
		order.ShippingAddressID, order.ShippingMethod, order.PaymentMethod, order.PaymentStatus,
		order.IdempotencyKey,
	).Scan(&order.ID, &order.CreatedAt, &order.UpdatedAt, &order.Version)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	return nil
}

func InsertOrderLine(ctx context.Context, q sqlx.QueryerContext, line *models.OrderLine) error {
	query := `
		INSERT INTO order_items (order_id, product_id, variant_id, quantity, unit_price, total_price, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		RETURNING id, created_at`

	err := q.QueryRowxContext(ctx, query,
		line.OrderID, line.ProductID, line.VariantID, line.Quantity, line.UnitPrice, line.TotalPrice,
	).Scan(&line.ID, &line.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert order item: %w", err)
	}

	return nil
}

func FindOrderByIdempotencyKey(ctx context.Context, q sqlx.QueryerContext, userID int64, key string) (*models.Order, error) {
	order := &models.Order{}

	query := `SELECT ` + orderColumns + `
		FROM orders
		WHERE user_id = $1 AND idempotency_key = $2`

	if err := sqlx.GetContext(ctx, q, order, query, userID, key); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrOrderNotFound
		}
		return nil, fmt.Errorf("find order by idempotency key: %w", err)
	}

	return order, nil
}

// GetOrder loads an order with its lines and shipping address.
func GetOrder(ctx context.Context, q sqlx.QueryerContext, id int64) (*models.Order, error) {
	order := &models.Order{}

	query := `SELECT ` + orderColumns + `
		FROM orders
		WHERE id = $1`

	if err := sqlx.GetContext(ctx, q, order, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	items, err := GetOrderLines(ctx, q, id)
	if err != nil {
		return nil, err
	}
	order.Items = items

	addr, err := GetAddress(ctx, q, order.ShippingAddressID)
	if err != nil && !errors.Is(err, database.ErrAddressNotFound) {
		return nil, err
	}
	order.ShippingAddress = addr

	return order, nil
}

// GetOrderLines returns the order's lines with the product name and the
// variant size and color.
func GetOrderLines(ctx context.Context, q sqlx.QueryerContext, orderID int64) ([]models.OrderLine, error) {
	query := `
		SELECT oi.id, oi.order_id, oi.product_id, oi.variant_id, oi.quantity,
		       oi.unit_price, oi.total_price, oi.created_at,
		       p.name AS product_name, pv.size, pv.color
		FROM order_items oi
		JOIN products p ON p.id = oi.product_id
		LEFT JOIN product_variants pv ON pv.id = oi.variant_id
		WHERE oi.order_id = $1
		ORDER BY oi.id`

	var items []models.OrderLine
	if err := sqlx.SelectContext(ctx, q, &items, query, orderID); err != nil {
		return nil, fmt.Errorf("get order items: %w", err)
	}

	return items, nil
}

// ListOrdersCursor pages through a user's orders newest first using keyset
// pagination on (created_at, id). Each order carries its shipping city and
// country.
func ListOrdersCursor(ctx context.Context, q sqlx.QueryerContext, userID int64, cursor string, limit int) (*CursorPage[models.Order], error) {
	cursorData, err := DecodeCursor(cursor)
	if err != nil {
		return nil, err
	}

	query := `SELECT ` + orderColumnsAliased + `,
		       COALESCE(a.city, '') AS shipping_city, COALESCE(a.country, '') AS shipping_country
		FROM orders o
		LEFT JOIN addresses a ON a.id = o.shipping_address_id
		WHERE o.user_id = $1`
	args := []interface{}{userID}

	if cursorData != nil {
		query += ` AND (o.created_at, o.id) < ($2, $3)`
		args = append(args, cursorData.CreatedAt, cursorData.ID)
	}
	query += fmt.Sprintf(` ORDER BY o.created_at DESC, o.id DESC LIMIT $%d`, len(args)+1)
	args = append(args, limit+1)

	var orders []models.Order
	if err := sqlx.SelectContext(ctx, q, &orders, query, args...); err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}

	hasMore := len(orders) > limit
	if hasMore {
		orders = orders[:limit]
	}

	var nextCursor string
	if hasMore && len(orders) > 0 {
		lastOrder := orders[len(orders)-1]
		nextCursor = EncodeCursor(OrderCursor{
			CreatedAt: lastOrder.CreatedAt,
			ID:        lastOrder.ID,
		})
	}

	if orders == nil {
		orders = []models.Order{}
	}

	return &CursorPage[models.Order]{
		Items:      orders,
		NextCursor: nextCursor,
		HasMore:    hasMore,
	}, nil
}

// ListOrders returns one page of all orders, optionally filtered by status,
// with the customer's email and name on each order.
func ListOrders(ctx context.Context, q sqlx.QueryerContext, status models.OrderStatus, page, pageSize int) (*OffsetPage[models.Order], error) {
	where := ""
	args := []interface{}{}
	if status != "" {
		where = ` WHERE o.status = $1`
		args = append(args, status)
	}

	var total int64
	if err := sqlx.GetContext(ctx, q, &total, `SELECT COUNT(*) FROM orders o`+where, args...); err != nil {
		return nil, fmt.Errorf("count orders: %w", err)
	}

	query := `SELECT ` + orderColumnsAliased + `,
		       u.email AS customer_email, u.first_name AS customer_first_name, u.last_name AS customer_last_name
		FROM orders o
		JOIN users u ON u.id = o.user_id` + where +
		fmt.Sprintf(` ORDER BY o.created_at DESC, o.id DESC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, pageSize, (page-1)*pageSize)

	var orders []models.Order
	if err := sqlx.SelectContext(ctx, q, &orders, query, args...); err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}

	return NewOffsetPage(orders, total, page, pageSize), nil
}

// UpdateOrderStatus moves an order to a new status if nobody changed it
// since version was read.
func UpdateOrderStatus(ctx context.Context, q sqlx.QueryerContext, id int64, status models.OrderStatus, version int) (*models.Order, error) {
	order := &models.Order{}

	query := `
		UPDATE orders
		SET status = $1,
		    updated_at = NOW(),
		    version = version + 1
		WHERE id = $2 AND version = $3
		RETURNING ` + orderColumns

	if err := sqlx.GetContext(ctx, q, order, query, status, id, version); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrOptimisticLockFailed
		}
		return nil, fmt.Errorf("update order status: %w", err)
	}

	return order, nil
}
