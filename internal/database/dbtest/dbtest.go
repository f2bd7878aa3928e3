// Package dbtest starts throwaway Postgres and Redis containers for tests.
// Both helpers skip the calling test under -short.
package dbtest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/safar/storefront/migrations"
	"github.com/shopspring/decimal"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// NewPostgres returns a connection to a migrated, empty database.
func NewPostgres(t *testing.T) *sqlx.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:14-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "testuser",
			"POSTGRES_PASSWORD": "testpass",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	postgres, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start postgres container: %v", err)
	}
	t.Cleanup(func() {
		if err := postgres.Terminate(context.Background()); err != nil {
			t.Logf("Failed to terminate container: %v", err)
		}
	})

	host, err := postgres.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := postgres.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	dsn := fmt.Sprintf("postgres://testuser:testpass@%s:%s/testdb?sslmode=disable", host, port.Port())

	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		t.Fatalf("Failed to connect to database: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Logf("Failed to close database: %v", err)
		}
	})

	if _, err := migrations.Run(ctx, db, migrations.Up); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	return db
}

// NewRedis returns the address of a fresh Redis server.
func NewRedis(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	ctx := context.Background()

	redis, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("Failed to start redis container: %v", err)
	}
	t.Cleanup(func() {
		if err := redis.Terminate(context.Background()); err != nil {
			t.Logf("Failed to terminate container: %v", err)
		}
	})

	endpoint, err := redis.Endpoint(ctx, "")
	if err != nil {
		t.Fatalf("Failed to get redis endpoint: %v", err)
	}

	return endpoint
}

func CreateUser(t *testing.T, db *sqlx.DB, email string) int64 {
	t.Helper()
	var id int64
	err := db.QueryRowx(`INSERT INTO users (email) VALUES ($1) RETURNING id`, email).Scan(&id)
	if err != nil {
		t.Fatalf("Create user: %v", err)
	}
	return id
}

func CreateProduct(t *testing.T, db *sqlx.DB, sku string, price decimal.Decimal, stock int) int64 {
	t.Helper()
	var id int64
	err := db.QueryRowx(
		`INSERT INTO products (sku, name, price, stock_quantity) VALUES ($1, $1, $2, $3) RETURNING id`,
		sku, price, stock).Scan(&id)
	if err != nil {
		t.Fatalf("Create product: %v", err)
	}
	return id
}

func CreateVariant(t *testing.T, db *sqlx.DB, productID int64, sku string, adjustment decimal.Decimal, stock int) int64 {
	t.Helper()
	var id int64
	err := db.QueryRowx(
		`INSERT INTO product_variants (product_id, sku, price_adjustment, stock_quantity)
		 VALUES ($1, $2, $3, $4) RETURNING id`,
		productID, sku, adjustment, stock).Scan(&id)
	if err != nil {
		t.Fatalf("Create variant: %v", err)
	}
	return id
}

func CreateAddress(t *testing.T, db *sqlx.DB, userID int64) int64 {
	t.Helper()
	var id int64
	err := db.QueryRowx(
		`INSERT INTO addresses (user_id, address_line1, city, state, postal_code, country)
		 VALUES ($1, '1 Main St', 'Springfield', 'IL', '62701', 'US') RETURNING id`,
		userID).Scan(&id)
	if err != nil {
		t.Fatalf("Create address: %v", err)
	}
	return id
}

// AddToCart inserts a cart row. variantID may be nil.
func AddToCart(t *testing.T, db *sqlx.DB, userID, productID int64, variantID *int64, quantity int) {
	t.Helper()
	_, err := db.Exec(
		`INSERT INTO cart_items (user_id, product_id, variant_id, quantity) VALUES ($1, $2, $3, $4)`,
		userID, productID, variantID, quantity)
	if err != nil {
		t.Fatalf("Add to cart: %v", err)
	}
}

func Stock(t *testing.T, db *sqlx.DB, table string, id int64) int {
	t.Helper()
	var stock int
	if err := db.Get(&stock, fmt.Sprintf(`SELECT stock_quantity FROM %s WHERE id = $1`, table), id); err != nil {
		t.Fatalf("Read stock: %v", err)
	}
	return stock
}

func CartSize(t *testing.T, db *sqlx.DB, userID int64) int {
	t.Helper()
	var n int
	if err := db.Get(&n, `SELECT COUNT(*) FROM cart_items WHERE user_id = $1`, userID); err != nil {
		t.Fatalf("Count cart: %v", err)
	}
	return n
}
