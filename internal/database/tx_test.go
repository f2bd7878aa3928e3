package database

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create mock database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "sqlmock"), mock
}

func TestWithTransactionCommits(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM cart_items").WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	err := WithTransaction(context.Background(), db, DefaultTxOptions(), func(tx *sqlx.Tx) error {
		_, err := tx.Exec("DELETE FROM cart_items WHERE user_id = $1", 1)
		return err
	})
	if err != nil {
		t.Fatalf("WithTransaction: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Database expectations were not met: %v", err)
	}
}

func TestWithTransactionRollsBackOnError(t *testing.T) {
	db, mock := newMockDB(t)
	boom := errors.New("boom")

	mock.ExpectBegin()
	mock.ExpectRollback()

	err := WithTransaction(context.Background(), db, DefaultTxOptions(), func(tx *sqlx.Tx) error {
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Expected original error, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Database expectations were not met: %v", err)
	}
}

func TestWithRetryRetriesDeadlock(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectBegin()
	mock.ExpectRollback()
	mock.ExpectBegin()
	mock.ExpectCommit()

	attempts := 0
	var retried []int
	opts := DefaultTxOptions()
	opts.OnRetry = func(attempt int, err error) { retried = append(retried, attempt) }

	err := WithRetry(context.Background(), db, opts, func(tx *sqlx.Tx) error {
		attempts++
		if attempts == 1 {
			return &pq.Error{Code: "40P01"}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithRetry: %v", err)
	}

	if attempts != 2 {
		t.Errorf("Expected 2 attempts, got %d", attempts)
	}
	if len(retried) != 1 || retried[0] != 0 {
		t.Errorf("Expected one OnRetry call for attempt 0, got %v", retried)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Database expectations were not met: %v", err)
	}
}

func TestWithRetryStopsOnPermanentError(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectBegin()
	mock.ExpectRollback()

	attempts := 0
	err := WithRetry(context.Background(), db, DefaultTxOptions(), func(tx *sqlx.Tx) error {
		attempts++
		return ErrInsufficientStock
	})
	if !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("Expected insufficient stock, got %v", err)
	}
	if attempts != 1 {
		t.Errorf("Permanent errors must not be retried, got %d attempts", attempts)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Database expectations were not met: %v", err)
	}
}

func TestWithRetryGivesUp(t *testing.T) {
	db, mock := newMockDB(t)

	opts := DefaultTxOptions()
	opts.MaxRetries = 1

	for i := 0; i <= opts.MaxRetries; i++ {
		mock.ExpectBegin()
		mock.ExpectRollback()
	}

	err := WithRetry(context.Background(), db, opts, func(tx *sqlx.Tx) error {
		return &pq.Error{Code: "40001"}
	})
	if err == nil {
		t.Fatal("Expected error after exhausting retries")
	}
	if ClassifyError(err) != ErrorClassSerialization {
		t.Errorf("Expected the serialization failure to stay wrapped, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Database expectations were not met: %v", err)
	}
}

func TestWithRetryHonorsCancelledContext(t *testing.T) {
	db, _ := newMockDB(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := WithRetry(ctx, db, DefaultTxOptions(), func(tx *sqlx.Tx) error {
		t.Fatal("fn must not run with a cancelled context")
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestWithRetryNegativeMaxRetriesRunsOnce(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectBegin()
	mock.ExpectCommit()

	opts := DefaultTxOptions()
	opts.MaxRetries = -1

	attempts := 0
	err := WithRetry(context.Background(), db, opts, func(tx *sqlx.Tx) error {
		attempts++
		return nil
	})
	if err != nil {
		t.Fatalf("WithRetry: %v", err)
	}
	if attempts != 1 {
		t.Errorf("Expected fn to run once, got %d attempts", attempts)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Database expectations were not met: %v", err)
	}
}
