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

func GetProduct(ctx context.Context, q sqlx.QueryerContext, id int64) (*models.Product, error) {
	product := &models.Product{}

	query := `
		SELECT id, sku, name, price, stock_quantity, created_at, updated_at
		FROM products
		WHERE id = $1`

	if err := sqlx.GetContext(ctx, q, product, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrProductNotFound
		}
		return nil, fmt.Errorf("get product: %w", err)
	}

	return product, nil
}

func GetVariant(ctx context.Context, q sqlx.QueryerContext, id int64) (*models.Variant, error) {
	variant := &models.Variant{}

	query := `
		SELECT id, product_id, sku, size, color, price_adjustment, stock_quantity, created_at, updated_at
		FROM product_variants
		WHERE id = $1`

	if err := sqlx.GetContext(ctx, q, variant, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrVariantNotFound
		}
		return nil, fmt.Errorf("get variant: %w", err)
	}

	return variant, nil
}

// DecrementProductStock takes quantity off the product counter only if
// enough stock remains. The check and the write are one statement, so
// concurrent callers can never drive the counter below zero.
func DecrementProductStock(ctx context.Context, q sqlx.ExecerContext, productID int64, quantity int) error {
	return decrementStock(ctx, q, "products", productID, quantity)
}

func DecrementVariantStock(ctx context.Context, q sqlx.ExecerContext, variantID int64, quantity int) error {
	return decrementStock(ctx, q, "product_variants", variantID, quantity)
}

func decrementStock(ctx context.Context, q sqlx.ExecerContext, table string, id int64, quantity int) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET stock_quantity = stock_quantity - $1,
		    updated_at = NOW()
		WHERE id = $2
		  AND stock_quantity >= $1`, table)

	result, err := q.ExecContext(ctx, query, quantity, id)
	if err != nil {
		return fmt.Errorf("decrement %s stock: %w", table, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return database.ErrInsufficientStock
	}

	return nil
}
