// Package orders serves order history to customers and status changes to
// admins.
package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/safar/storefront/internal/database"
	"github.com/safar/storefront/internal/models"
	"github.com/safar/storefront/internal/store"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

var (
	ErrInvalidStatus     = errors.New("invalid order status")
	ErrInvalidTransition = errors.New("order status transition not allowed")
)

type Service struct {
	pg     *store.Postgres
	logger *zap.Logger
	tracer trace.Tracer
}

func NewService(pg *store.Postgres, logger *zap.Logger) *Service {
	return &Service{pg: pg, logger: logger, tracer: otel.Tracer("storefront/orders")}
}

// Get returns the order only if it belongs to userID.
func (s *Service) Get(ctx context.Context, userID, orderID int64) (*models.Order, error) {
	ctx, span := s.tracer.Start(ctx, "orders.Get")
	defer span.End()
	span.SetAttributes(attribute.Int64("order.id", orderID))

	var order *models.Order
	err := s.pg.ReadOnly(ctx, func(tx *sqlx.Tx) error {
		var err error
		order, err = store.GetOrder(ctx, tx, orderID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, database.ErrOrderNotFound
	}
	return order, nil
}

func (s *Service) ListForUser(ctx context.Context, userID int64, cursor string, limit int) (*store.CursorPage[models.Order], error) {
	ctx, span := s.tracer.Start(ctx, "orders.ListForUser")
	defer span.End()

	return store.ListOrdersCursor(ctx, s.pg.DB(), userID, cursor, clampLimit(limit))
}

// ListAll pages through every order. An empty status lists all statuses.
func (s *Service) ListAll(ctx context.Context, status models.OrderStatus, page, pageSize int) (*store.OffsetPage[models.Order], error) {
	ctx, span := s.tracer.Start(ctx, "orders.ListAll")
	defer span.End()

	if status != "" && !status.Valid() {
		return nil, ErrInvalidStatus
	}
	if page < 1 {
		page = 1
	}

	var result *store.OffsetPage[models.Order]
	err := s.pg.ReadOnly(ctx, func(tx *sqlx.Tx) error {
		var err error
		result, err = store.ListOrders(ctx, tx, status, page, clampLimit(pageSize))
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// UpdateStatus moves an order along the status machine. A concurrent change
// between read and write yields database.ErrOptimisticLockFailed.
func (s *Service) UpdateStatus(ctx context.Context, orderID int64, status models.OrderStatus) (*models.Order, error) {
	ctx, span := s.tracer.Start(ctx, "orders.UpdateStatus")
	defer span.End()
	span.SetAttributes(attribute.Int64("order.id", orderID), attribute.String("order.status", string(status)))

	if !status.Valid() {
		return nil, ErrInvalidStatus
	}

	var updated *models.Order
	err := s.pg.InTx(ctx, func(tx *store.Tx) error {
		current, err := tx.GetOrder(ctx, orderID)
		if err != nil {
			return err
		}
		if current.Status.Terminal() {
			return fmt.Errorf("%w: order is already %s", ErrInvalidTransition, current.Status)
		}
		if !current.Status.CanTransitionTo(status) {
			return fmt.Errorf("%w: %s to %s", ErrInvalidTransition, current.Status, status)
		}

		updated, err = tx.UpdateOrderStatus(ctx, orderID, status, current.Version)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Order status updated",
		zap.Int64("order_id", orderID),
		zap.String("status", string(status)),
		zap.Int("version", updated.Version),
	)
	return updated, nil
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLimit
	case limit > MaxLimit:
		return MaxLimit
	}
	return limit
}
