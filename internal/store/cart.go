package store

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/safar/storefront/internal/models"
)

// GetCartLines returns the user's cart joined with the current product price
// and variant price adjustment. A line whose variant belongs to a different
// product gets no adjustment and is flagged ForeignVariant.
func GetCartLines(ctx context.Context, q sqlx.QueryerContext, userID int64) ([]models.CartLine, error) {
	query := `
		SELECT ci.id, ci.product_id, ci.variant_id, ci.quantity,
		       p.price, COALESCE(pv.price_adjustment, 0) AS price_adjustment,
		       (ci.variant_id IS NOT NULL AND pv.id IS NULL) AS foreign_variant
		FROM cart_items ci
		JOIN products p ON p.id = ci.product_id
		LEFT JOIN product_variants pv ON pv.id = ci.variant_id AND pv.product_id = ci.product_id
		WHERE ci.user_id = $1
		ORDER BY ci.id`

	var lines []models.CartLine
	if err := sqlx.SelectContext(ctx, q, &lines, query, userID); err != nil {
		return nil, fmt.Errorf("get cart lines: %w", err)
	}

	return lines, nil
}

func ClearCart(ctx context.Context, q sqlx.ExecerContext, userID int64) (int64, error) {
	result, err := q.ExecContext(ctx, `DELETE FROM cart_items WHERE user_id = $1`, userID)
	if err != nil {
		return 0, fmt.Errorf("clear cart: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("get rows affected: %w", err)
	}

	return rowsAffected, nil
}
