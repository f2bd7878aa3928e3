package checkout

import (
	"fmt"
	"sort"

	"github.com/safar/storefront/internal/models"
	"github.com/shopspring/decimal"
)

var TaxRate = decimal.RequireFromString("0.10")

var shippingRates = map[models.ShippingMethod]decimal.Decimal{
	models.ShippingStandard: decimal.NewFromInt(10),
	models.ShippingExpress:  decimal.NewFromInt(20),
	models.ShippingPickup:   decimal.Zero,
}

func ShippingCost(method models.ShippingMethod) (decimal.Decimal, bool) {
	cost, ok := shippingRates[method]
	return cost, ok
}

type PricedLine struct {
	Line       models.CartLine
	UnitPrice  decimal.Decimal
	TotalPrice decimal.Decimal
}

type Quote struct {
	Lines    []PricedLine
	Subtotal decimal.Decimal
	Tax      decimal.Decimal
	Shipping decimal.Decimal
	Total    decimal.Decimal
}

// Price computes the order totals for lines. No rounding is applied. The
// returned lines are ordered by (variant id, product id) so that stock rows
// are always locked in the same order.
func Price(lines []models.CartLine, method models.ShippingMethod) (*Quote, error) {
	shipping, ok := ShippingCost(method)
	if !ok {
		return nil, fmt.Errorf("unknown shipping method %q", method)
	}

	q := &Quote{Lines: make([]PricedLine, 0, len(lines)), Shipping: shipping}
	for _, line := range lines {
		unit := line.EffectivePrice()
		total := unit.Mul(decimal.NewFromInt(int64(line.Quantity)))
		q.Lines = append(q.Lines, PricedLine{Line: line, UnitPrice: unit, TotalPrice: total})
		q.Subtotal = q.Subtotal.Add(total)
	}

	sort.SliceStable(q.Lines, func(i, j int) bool {
		vi, vj := variantKey(q.Lines[i].Line.VariantID), variantKey(q.Lines[j].Line.VariantID)
		if vi != vj {
			return vi < vj
		}
		return q.Lines[i].Line.ProductID < q.Lines[j].Line.ProductID
	})

	q.Tax = q.Subtotal.Mul(TaxRate)
	q.Total = q.Subtotal.Add(q.Tax).Add(q.Shipping)
	return q, nil
}

func variantKey(id *int64) int64 {
	if id == nil {
		return 0
	}
	return *id
}
