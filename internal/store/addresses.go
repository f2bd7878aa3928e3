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

func InsertAddress(ctx context.Context, q sqlx.QueryerContext, addr *models.Address) error {
	query := `
		INSERT INTO addresses (user_id, address_line1, address_line2, city, state, postal_code, country, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		RETURNING id, created_at`

	err := q.QueryRowxContext(ctx, query,
		addr.UserID, addr.AddressLine1, addr.AddressLine2, addr.City, addr.State, addr.PostalCode, addr.Country,
	).Scan(&addr.ID, &addr.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert address: %w", err)
	}

	return nil
}

func GetAddress(ctx context.Context, q sqlx.QueryerContext, id int64) (*models.Address, error) {
	addr := &models.Address{}

	query := `
		SELECT id, user_id, address_line1, address_line2, city, state, postal_code, country, created_at
		FROM addresses
		WHERE id = $1`

	if err := sqlx.GetContext(ctx, q, addr, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrAddressNotFound
		}
		return nil, fmt.Errorf("get address: %w", err)
	}

	return addr, nil
}

func AddressOwnedBy(ctx context.Context, q sqlx.QueryerContext, addressID, userID int64) (bool, error) {
	var owned bool
	err := q.QueryRowxContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM addresses WHERE id = $1 AND user_id = $2)`,
		addressID, userID).Scan(&owned)
	if err != nil {
		return false, fmt.Errorf("check address owner: %w", err)
	}

	return owned, nil
}
