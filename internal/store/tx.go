package store

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/safar/storefront/internal/database"
	"github.com/safar/storefront/internal/models"
)

// Postgres runs units of work against the database, retrying transient
// failures according to opts.
type Postgres struct {
	db   *sqlx.DB
	opts database.TxOptions
}

func NewPostgres(db *sqlx.DB, opts database.TxOptions) *Postgres {
	return &Postgres{db: db, opts: opts}
}

func (p *Postgres) DB() *sqlx.DB {
	return p.db
}

// InTx runs fn inside a transaction. fn may be called more than once.
func (p *Postgres) InTx(ctx context.Context, fn func(*Tx) error) error {
	return database.WithRetry(ctx, p.db, p.opts, func(tx *sqlx.Tx) error {
		return fn(&Tx{tx: tx})
	})
}

// ReadOnly runs fn in a single read-only repeatable-read transaction so
// multi-statement reads see one snapshot.
func (p *Postgres) ReadOnly(ctx context.Context, fn func(*sqlx.Tx) error) error {
	opts := p.opts
	opts.ReadOnly = true
	opts.IsolationLevel = sql.LevelRepeatableRead
	return database.WithTransaction(ctx, p.db, opts, fn)
}

// Tx binds the store functions to one open transaction.
type Tx struct {
	tx *sqlx.Tx
}

func (t *Tx) CartLines(ctx context.Context, userID int64) ([]models.CartLine, error) {
	return GetCartLines(ctx, t.tx, userID)
}

func (t *Tx) ClearCart(ctx context.Context, userID int64) (int64, error) {
	return ClearCart(ctx, t.tx, userID)
}

func (t *Tx) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	return GetProduct(ctx, t.tx, id)
}

func (t *Tx) GetVariant(ctx context.Context, id int64) (*models.Variant, error) {
	return GetVariant(ctx, t.tx, id)
}

func (t *Tx) DecrementProductStock(ctx context.Context, productID int64, quantity int) error {
	return DecrementProductStock(ctx, t.tx, productID, quantity)
}

func (t *Tx) DecrementVariantStock(ctx context.Context, variantID int64, quantity int) error {
	return DecrementVariantStock(ctx, t.tx, variantID, quantity)
}

func (t *Tx) FindOrderByIdempotencyKey(ctx context.Context, userID int64, key string) (*models.Order, error) {
	return FindOrderByIdempotencyKey(ctx, t.tx, userID, key)
}

func (t *Tx) InsertOrder(ctx context.Context, order *models.Order) error {
	return InsertOrder(ctx, t.tx, order)
}

func (t *Tx) InsertOrderLine(ctx context.Context, line *models.OrderLine) error {
	return InsertOrderLine(ctx, t.tx, line)
}

func (t *Tx) InsertAddress(ctx context.Context, addr *models.Address) error {
	return InsertAddress(ctx, t.tx, addr)
}

func (t *Tx) AddressOwnedBy(ctx context.Context, addressID, userID int64) (bool, error) {
	return AddressOwnedBy(ctx, t.tx, addressID, userID)
}

func (t *Tx) GetOrder(ctx context.Context, id int64) (*models.Order, error) {
	return GetOrder(ctx, t.tx, id)
}

func (t *Tx) UpdateOrderStatus(ctx context.Context, id int64, status models.OrderStatus, version int) (*models.Order, error) {
	return UpdateOrderStatus(ctx, t.tx, id, status, version)
}
