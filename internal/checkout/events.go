package checkout

import (
	"context"
	"strconv"
	"time"

	"github.com/safar/storefront/internal/models"
	"github.com/shopspring/decimal"
)

const EventOrderCreated = "order_created"

type OrderEvent struct {
	EventType   string             `json:"event_type"`
	OrderID     int64              `json:"order_id"`
	OrderNumber string             `json:"order_number"`
	UserID      int64              `json:"user_id"`
	Status      models.OrderStatus `json:"status"`
	Total       decimal.Decimal    `json:"total"`
	OccurredAt  time.Time          `json:"occurred_at"`
}

func (e OrderEvent) Key() string {
	return strconv.FormatInt(e.OrderID, 10)
}

// Publisher delivers order events after commit. Delivery failures never
// undo an order.
type Publisher interface {
	Publish(ctx context.Context, key string, event any) error
}

type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, any) error { return nil }
