package store

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/safar/storefront/internal/database/dbtest"
	"github.com/shopspring/decimal"
)

func TestClearCartReportsRemovedRows(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectExec("DELETE FROM cart_items").
		WithArgs(int64(4)).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := ClearCart(context.Background(), db, 4)
	if err != nil {
		t.Fatalf("ClearCart: %v", err)
	}
	if n != 3 {
		t.Errorf("Expected 3 rows removed, got %d", n)
	}
}

func TestGetCartLinesJoinsPrices(t *testing.T) {
	db := dbtest.NewPostgres(t)
	ctx := context.Background()

	userID := dbtest.CreateUser(t, db, "cart@example.com")
	shirt := dbtest.CreateProduct(t, db, "SHIRT", decimal.NewFromInt(50), 10)
	large := dbtest.CreateVariant(t, db, shirt, "SHIRT-L", decimal.NewFromInt(10), 5)
	mug := dbtest.CreateProduct(t, db, "MUG", decimal.RequireFromString("12.50"), 10)

	dbtest.AddToCart(t, db, userID, shirt, &large, 2)
	dbtest.AddToCart(t, db, userID, mug, nil, 1)

	lines, err := GetCartLines(ctx, db, userID)
	if err != nil {
		t.Fatalf("GetCartLines: %v", err)
	}
	if len(lines) != 2 {
		t.Fatalf("Expected 2 lines, got %d", len(lines))
	}

	if lines[0].VariantID == nil || *lines[0].VariantID != large {
		t.Errorf("Expected variant %d on first line, got %v", large, lines[0].VariantID)
	}
	if !lines[0].EffectivePrice().Equal(decimal.NewFromInt(60)) {
		t.Errorf("Expected effective price 60, got %s", lines[0].EffectivePrice())
	}
	if lines[0].ForeignVariant || lines[1].ForeignVariant {
		t.Error("Matching lines must not be flagged")
	}
	if lines[1].VariantID != nil {
		t.Errorf("Expected no variant on second line, got %d", *lines[1].VariantID)
	}
	if !lines[1].PriceAdjustment.IsZero() {
		t.Errorf("Expected zero adjustment, got %s", lines[1].PriceAdjustment)
	}

	n, err := ClearCart(ctx, db, userID)
	if err != nil {
		t.Fatalf("ClearCart: %v", err)
	}
	if n != 2 || dbtest.CartSize(t, db, userID) != 0 {
		t.Errorf("Expected cart emptied, removed %d", n)
	}
}

func TestGetCartLinesFlagsForeignVariant(t *testing.T) {
	db := dbtest.NewPostgres(t)
	ctx := context.Background()

	userID := dbtest.CreateUser(t, db, "foreign@example.com")
	shirt := dbtest.CreateProduct(t, db, "SHIRT", decimal.NewFromInt(50), 10)
	large := dbtest.CreateVariant(t, db, shirt, "SHIRT-L", decimal.NewFromInt(10), 5)
	mug := dbtest.CreateProduct(t, db, "MUG", decimal.NewFromInt(12), 10)

	dbtest.AddToCart(t, db, userID, mug, &large, 1)

	lines, err := GetCartLines(ctx, db, userID)
	if err != nil {
		t.Fatalf("GetCartLines: %v", err)
	}
	if len(lines) != 1 {
		t.Fatalf("Expected 1 line, got %d", len(lines))
	}
	if !lines[0].ForeignVariant {
		t.Error("Expected line to be flagged as foreign variant")
	}
	if !lines[0].PriceAdjustment.IsZero() {
		t.Errorf("Foreign variant adjustment must not apply, got %s", lines[0].PriceAdjustment)
	}
}
