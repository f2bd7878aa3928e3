// Package checkout turns a user's cart into an order in one transaction.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/safar/storefront/internal/database"
	"github.com/safar/storefront/internal/models"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const maxIdempotencyKeyLen = 100

type AddressInput struct {
	AddressLine1 string  `json:"address_line1"`
	AddressLine2 *string `json:"address_line2,omitempty"`
	City         string  `json:"city"`
	State        string  `json:"state"`
	PostalCode   string  `json:"postal_code"`
	Country      string  `json:"country"`
}

// PlaceOrderRequest needs either ShippingAddressID or ShippingAddress.
type PlaceOrderRequest struct {
	UserID            int64
	ShippingAddressID int64
	ShippingAddress   *AddressInput
	ShippingMethod    models.ShippingMethod
	PaymentMethod     string
	IdempotencyKey    string
}

type Receipt struct {
	OrderID     int64
	OrderNumber string
	Total       decimal.Decimal
	Replayed    bool
}

type Service struct {
	store          Store
	locker         Locker
	publisher      Publisher
	logger         *zap.Logger
	tracer         trace.Tracer
	now            func() time.Time
	newOrderNumber func(time.Time) string
}

type Option func(*Service)

func WithLocker(l Locker) Option {
	return func(s *Service) { s.locker = l }
}

func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithOrderNumbers(gen func(time.Time) string) Option {
	return func(s *Service) { s.newOrderNumber = gen }
}

func NewService(store Store, logger *zap.Logger, opts ...Option) *Service {
	s := &Service{
		store:          store,
		locker:         NopLocker{},
		publisher:      NopPublisher{},
		logger:         logger,
		tracer:         otel.Tracer("storefront/checkout"),
		now:            time.Now,
		newOrderNumber: NewOrderNumber,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PlaceOrder converts the user's cart into a pending order. Either every
// effect (order, lines, stock, cart) is applied or none is.
func (s *Service) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*Receipt, error) {
	ctx, span := s.tracer.Start(ctx, "checkout.PlaceOrder")
	defer span.End()
	span.SetAttributes(attribute.Int64("user.id", req.UserID))

	start := time.Now()
	receipt, err := s.placeOrder(ctx, req)
	recordCheckout(outcomeOf(receipt, err), time.Since(start))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(
		attribute.Int64("order.id", receipt.OrderID),
		attribute.String("order.number", receipt.OrderNumber),
		attribute.Bool("order.replayed", receipt.Replayed),
	)
	return receipt, nil
}

func (s *Service) placeOrder(ctx context.Context, req PlaceOrderRequest) (*Receipt, error) {
	if req.ShippingMethod == "" {
		req.ShippingMethod = models.ShippingStandard
	}
	if err := validate(req); err != nil {
		return nil, err
	}

	unlock, ok, err := s.locker.TryLock(ctx, lockKey(req.UserID))
	switch {
	case err != nil:
		s.logger.Warn("Checkout lock unavailable, relying on database guarantees",
			zap.Int64("user_id", req.UserID), zap.Error(err))
	case !ok:
		return nil, ErrCheckoutInProgress
	default:
		defer func() {
			if err := unlock(context.Background()); err != nil {
				s.logger.Warn("Failed to release checkout lock", zap.Int64("user_id", req.UserID), zap.Error(err))
			}
		}()
	}

	var (
		receipt *Receipt
		placed  *models.Order
	)
	err = s.store.InTx(ctx, func(tx Tx) error {
		receipt, placed = nil, nil

		if req.IdempotencyKey != "" {
			existing, err := tx.FindOrderByIdempotencyKey(ctx, req.UserID, req.IdempotencyKey)
			if err == nil {
				receipt = &Receipt{
					OrderID:     existing.ID,
					OrderNumber: existing.OrderNumber,
					Total:       existing.Total,
					Replayed:    true,
				}
				return nil
			}
			if !errors.Is(err, database.ErrOrderNotFound) {
				return err
			}
		}

		order, err := s.writeOrder(ctx, tx, req)
		if err != nil {
			return err
		}

		placed = order
		receipt = &Receipt{OrderID: order.ID, OrderNumber: order.OrderNumber, Total: order.Total}
		return nil
	})
	if err == nil && receipt == nil {
		err = errors.New("transaction committed without an order")
	}
	if err != nil {
		return nil, s.classify(req, err)
	}

	if receipt.Replayed {
		s.logger.Info("Replayed order for idempotency key",
			zap.Int64("user_id", req.UserID),
			zap.Int64("order_id", receipt.OrderID),
		)
		return receipt, nil
	}

	s.logger.Info("Order placed",
		zap.Int64("user_id", req.UserID),
		zap.Int64("order_id", placed.ID),
		zap.String("order_number", placed.OrderNumber),
		zap.String("total", placed.Total.String()),
		zap.Int("lines", len(placed.Items)),
	)
	s.publishCreated(ctx, placed)

	return receipt, nil
}

func (s *Service) writeOrder(ctx context.Context, tx Tx, req PlaceOrderRequest) (*models.Order, error) {
	lines, err := tx.CartLines(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}
	if err := validateLines(lines); err != nil {
		return nil, err
	}

	quote, err := Price(lines, req.ShippingMethod)
	if err != nil {
		return nil, err
	}

	addressID, err := s.resolveAddress(ctx, tx, req)
	if err != nil {
		return nil, err
	}

	order := &models.Order{
		UserID:            req.UserID,
		OrderNumber:       s.newOrderNumber(s.now()),
		Status:            models.OrderStatusPending,
		Subtotal:          quote.Subtotal,
		Tax:               quote.Tax,
		ShippingCost:      quote.Shipping,
		Total:             quote.Total,
		ShippingAddressID: addressID,
		ShippingMethod:    req.ShippingMethod,
		PaymentMethod:     req.PaymentMethod,
		PaymentStatus:     models.PaymentStatusPending,
	}
	if req.IdempotencyKey != "" {
		key := req.IdempotencyKey
		order.IdempotencyKey = &key
	}

	if err := tx.InsertOrder(ctx, order); err != nil {
		return nil, err
	}

	for _, pl := range quote.Lines {
		line := &models.OrderLine{
			OrderID:    order.ID,
			ProductID:  pl.Line.ProductID,
			VariantID:  pl.Line.VariantID,
			Quantity:   pl.Line.Quantity,
			UnitPrice:  pl.UnitPrice,
			TotalPrice: pl.TotalPrice,
		}
		if err := tx.InsertOrderLine(ctx, line); err != nil {
			return nil, err
		}

		if pl.Line.VariantID != nil {
			err = tx.DecrementVariantStock(ctx, *pl.Line.VariantID, pl.Line.Quantity)
		} else {
			err = tx.DecrementProductStock(ctx, pl.Line.ProductID, pl.Line.Quantity)
		}
		if errors.Is(err, database.ErrInsufficientStock) {
			return nil, s.stockExhausted(ctx, tx, pl.Line)
		}
		if err != nil {
			return nil, err
		}

		order.Items = append(order.Items, *line)
	}

	if _, err := tx.ClearCart(ctx, req.UserID); err != nil {
		return nil, err
	}

	return order, nil
}

func (s *Service) resolveAddress(ctx context.Context, tx Tx, req PlaceOrderRequest) (int64, error) {
	if req.ShippingAddressID > 0 {
		owned, err := tx.AddressOwnedBy(ctx, req.ShippingAddressID, req.UserID)
		if err != nil {
			return 0, err
		}
		if !owned {
			verr := &ValidationError{}
			verr.add("shipping_address_id", "address not found")
			return 0, verr
		}
		return req.ShippingAddressID, nil
	}

	in := req.ShippingAddress
	addr := &models.Address{
		UserID:       req.UserID,
		AddressLine1: in.AddressLine1,
		AddressLine2: in.AddressLine2,
		City:         in.City,
		State:        in.State,
		PostalCode:   in.PostalCode,
		Country:      in.Country,
	}
	if err := tx.InsertAddress(ctx, addr); err != nil {
		return 0, err
	}
	return addr.ID, nil
}

// stockExhausted builds the error for line, filling in the stock left at
// the moment the decrement was refused.
func (s *Service) stockExhausted(ctx context.Context, tx Tx, line models.CartLine) error {
	serr := &StockExhaustedError{
		ProductID: line.ProductID,
		VariantID: line.VariantID,
		Requested: line.Quantity,
	}

	if line.VariantID != nil {
		if v, err := tx.GetVariant(ctx, *line.VariantID); err == nil {
			serr.Available = v.StockQuantity
		}
	} else if p, err := tx.GetProduct(ctx, line.ProductID); err == nil {
		serr.Available = p.StockQuantity
	}

	return serr
}

func (s *Service) classify(req PlaceOrderRequest, err error) error {
	var verr *ValidationError
	var serr *StockExhaustedError
	switch {
	case errors.As(err, &verr), errors.Is(err, ErrEmptyCart):
		return err
	case database.IsForeignKeyViolation(err):
		s.logger.Info("Checkout refused, cart references a removed row",
			zap.Int64("user_id", req.UserID), zap.Error(err))
		verr = &ValidationError{}
		verr.add("cart", "references a product, variant or address that no longer exists")
		return verr
	case errors.As(err, &serr):
		s.logger.Info("Checkout refused, stock exhausted",
			zap.Int64("user_id", req.UserID),
			zap.Int64("product_id", serr.ProductID),
			zap.Int("requested", serr.Requested),
			zap.Int("available", serr.Available),
		)
		return serr
	}

	s.logger.Error("Failed to create order", zap.Int64("user_id", req.UserID), zap.Error(err))
	return &OrderCreationFailed{Err: err}
}

func (s *Service) publishCreated(ctx context.Context, order *models.Order) {
	event := OrderEvent{
		EventType:   EventOrderCreated,
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		UserID:      order.UserID,
		Status:      order.Status,
		Total:       order.Total,
		OccurredAt:  s.now().UTC(),
	}
	if err := s.publisher.Publish(ctx, event.Key(), event); err != nil {
		s.logger.Error("Failed to publish order_created event",
			zap.Int64("order_id", order.ID),
			zap.Error(err),
		)
	}
}

func validate(req PlaceOrderRequest) error {
	verr := &ValidationError{}

	if req.UserID <= 0 {
		verr.add("user_id", "must be positive")
	}
	if req.PaymentMethod == "" {
		verr.add("payment_method", "is required")
	}
	if _, ok := ShippingCost(req.ShippingMethod); !ok {
		verr.add("shipping_method", "must be one of standard, express, pickup")
	}
	if len(req.IdempotencyKey) > maxIdempotencyKeyLen {
		verr.add("idempotency_key", "must be at most 100 characters")
	}

	switch {
	case req.ShippingAddressID > 0:
	case req.ShippingAddress == nil:
		verr.add("shipping_address", "shipping_address_id or shipping address fields are required")
	default:
		addr := req.ShippingAddress
		required := map[string]string{
			"address_line1": addr.AddressLine1,
			"city":          addr.City,
			"state":         addr.State,
			"postal_code":   addr.PostalCode,
			"country":       addr.Country,
		}
		for field, value := range required {
			if value == "" {
				verr.add(field, "is required")
			}
		}
	}

	return verr.orNil()
}

func validateLines(lines []models.CartLine) error {
	verr := &ValidationError{}
	for _, line := range lines {
		if line.ForeignVariant {
			verr.add(fmt.Sprintf("cart_items[%d].variant_id", line.ID),
				fmt.Sprintf("variant %d does not belong to product %d", *line.VariantID, line.ProductID))
		}
	}
	return verr.orNil()
}

func outcomeOf(receipt *Receipt, err error) string {
	var verr *ValidationError
	var serr *StockExhaustedError
	switch {
	case err == nil && receipt.Replayed:
		return outcomeReplayed
	case err == nil:
		return outcomeCreated
	case errors.As(err, &verr):
		return outcomeValidation
	case errors.Is(err, ErrEmptyCart):
		return outcomeEmptyCart
	case errors.As(err, &serr):
		return outcomeStockExhausted
	case errors.Is(err, ErrCheckoutInProgress):
		return outcomeBusy
	default:
		return outcomeFailed
	}
}
