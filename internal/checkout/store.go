package checkout

import (
	"context"

	"github.com/safar/storefront/internal/models"
	"github.com/safar/storefront/internal/store"
)

type CartReader interface {
	CartLines(ctx context.Context, userID int64) ([]models.CartLine, error)
	ClearCart(ctx context.Context, userID int64) (int64, error)
}

type Catalog interface {
	GetProduct(ctx context.Context, id int64) (*models.Product, error)
	GetVariant(ctx context.Context, id int64) (*models.Variant, error)
	DecrementProductStock(ctx context.Context, productID int64, quantity int) error
	DecrementVariantStock(ctx context.Context, variantID int64, quantity int) error
}

type Ledger interface {
	FindOrderByIdempotencyKey(ctx context.Context, userID int64, key string) (*models.Order, error)
	InsertOrder(ctx context.Context, order *models.Order) error
	InsertOrderLine(ctx context.Context, line *models.OrderLine) error
	InsertAddress(ctx context.Context, addr *models.Address) error
	AddressOwnedBy(ctx context.Context, addressID, userID int64) (bool, error)
}

// Tx is everything a checkout touches, bound to one transaction.
type Tx interface {
	CartReader
	Catalog
	Ledger
}

// Store runs fn atomically. fn may run more than once and must not keep
// state across attempts.
type Store interface {
	InTx(ctx context.Context, fn func(Tx) error) error
}

type PostgresStore struct {
	pg *store.Postgres
}

func NewPostgresStore(pg *store.Postgres) *PostgresStore {
	return &PostgresStore{pg: pg}
}

func (s *PostgresStore) InTx(ctx context.Context, fn func(Tx) error) error {
	return s.pg.InTx(ctx, func(tx *store.Tx) error {
		return fn(tx)
	})
}
