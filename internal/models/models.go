package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID            int64           `db:"id" json:"id"`
	SKU           string          `db:"sku" json:"sku"`
	Name          string          `db:"name" json:"name"`
	Price         decimal.Decimal `db:"price" json:"price"`
	StockQuantity int             `db:"stock_quantity" json:"stock_quantity"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at" json:"updated_at"`
}

type Variant struct {
	ID              int64           `db:"id" json:"id"`
	ProductID       int64           `db:"product_id" json:"product_id"`
	SKU             string          `db:"sku" json:"sku"`
	Size            *string         `db:"size" json:"size,omitempty"`
	Color           *string         `db:"color" json:"color,omitempty"`
	PriceAdjustment decimal.Decimal `db:"price_adjustment" json:"price_adjustment"`
	StockQuantity   int             `db:"stock_quantity" json:"stock_quantity"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at" json:"updated_at"`
}

// CartLine is a cart row joined with the price data needed at checkout.
type CartLine struct {
	ID              int64           `db:"id" json:"id"`
	ProductID       int64           `db:"product_id" json:"product_id"`
	VariantID       *int64          `db:"variant_id" json:"variant_id,omitempty"`
	Quantity        int             `db:"quantity" json:"quantity"`
	UnitPrice       decimal.Decimal `db:"price" json:"unit_price"`
	PriceAdjustment decimal.Decimal `db:"price_adjustment" json:"price_adjustment"`
	// ForeignVariant is set when VariantID names a variant of another product.
	ForeignVariant  bool            `db:"foreign_variant" json:"-"`
}

// EffectivePrice is the per-unit price charged for the line.
func (l CartLine) EffectivePrice() decimal.Decimal {
	return l.UnitPrice.Add(l.PriceAdjustment)
}

type Address struct {
	ID           int64     `db:"id" json:"id"`
	UserID       int64     `db:"user_id" json:"user_id"`
	AddressLine1 string    `db:"address_line1" json:"address_line1"`
	AddressLine2 *string   `db:"address_line2" json:"address_line2,omitempty"`
	City         string    `db:"city" json:"city"`
	State        string    `db:"state" json:"state"`
	PostalCode   string    `db:"postal_code" json:"postal_code"`
	Country      string    `db:"country" json:"country"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

type Order struct {
	ID                int64           `db:"id" json:"id"`
	UserID            int64           `db:"user_id" json:"user_id"`
	OrderNumber       string          `db:"order_number" json:"order_number"`
	Status            OrderStatus     `db:"status" json:"status"`
	Subtotal          decimal.Decimal `db:"subtotal" json:"subtotal"`
	Tax               decimal.Decimal `db:"tax" json:"tax"`
	ShippingCost      decimal.Decimal `db:"shipping_cost" json:"shipping_cost"`
	Total             decimal.Decimal `db:"total" json:"total"`
	ShippingAddressID int64           `db:"shipping_address_id" json:"shipping_address_id"`
	ShippingMethod    ShippingMethod  `db:"shipping_method" json:"shipping_method"`
	PaymentMethod     string          `db:"payment_method" json:"payment_method"`
	PaymentStatus     PaymentStatus   `db:"payment_status" json:"payment_status"`
	IdempotencyKey    *string         `db:"idempotency_key" json:"-"`
	CreatedAt         time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time       `db:"updated_at" json:"updated_at"`
	Version           int             `db:"version" json:"version"`
	CustomerEmail     string          `db:"customer_email" json:"customer_email,omitempty"`
	CustomerFirstName string          `db:"customer_first_name" json:"customer_first_name,omitempty"`
	CustomerLastName  string          `db:"customer_last_name" json:"customer_last_name,omitempty"`
	ShippingCity      string          `db:"shipping_city" json:"shipping_city,omitempty"`
	ShippingCountry   string          `db:"shipping_country" json:"shipping_country,omitempty"`
	Items             []OrderLine     `db:"-" json:"items,omitempty"`
	ShippingAddress   *Address        `db:"-" json:"shipping_address,omitempty"`
}

// OrderLine carries the product name and variant attributes only when read
// back through GetOrderLines.
type OrderLine struct {
	ID          int64           `db:"id" json:"id"`
	OrderID     int64           `db:"order_id" json:"order_id"`
	ProductID   int64           `db:"product_id" json:"product_id"`
	VariantID   *int64          `db:"variant_id" json:"variant_id,omitempty"`
	Quantity    int             `db:"quantity" json:"quantity"`
	UnitPrice   decimal.Decimal `db:"unit_price" json:"unit_price"`
	TotalPrice  decimal.Decimal `db:"total_price" json:"total_price"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
	ProductName string          `db:"product_name" json:"product_name,omitempty"`
	Size        *string         `db:"size" json:"size,omitempty"`
	Color       *string         `db:"color" json:"color,omitempty"`
}
