package checkout

import (
	"context"
	"sync"
	"time"

	"github.com/lib/pq"
	"github.com/safar/storefront/internal/database"
	"github.com/safar/storefront/internal/models"
)

type memState struct {
	products  map[int64]*models.Product
	variants  map[int64]*models.Variant
	addresses map[int64]*models.Address
	carts     map[int64][]models.CartLine
	orders    []*models.Order
	lines     []*models.OrderLine
	nextID    int64
}

func (s *memState) clone() *memState {
	c := &memState{
		products:  map[int64]*models.Product{},
		variants:  map[int64]*models.Variant{},
		addresses: map[int64]*models.Address{},
		carts:     map[int64][]models.CartLine{},
		orders:    append([]*models.Order(nil), s.orders...),
		lines:     append([]*models.OrderLine(nil), s.lines...),
		nextID:    s.nextID,
	}
	for id, p := range s.products {
		cp := *p
		c.products[id] = &cp
	}
	for id, v := range s.variants {
		cv := *v
		c.variants[id] = &cv
	}
	for id, a := range s.addresses {
		ca := *a
		c.addresses[id] = &ca
	}
	for id, lines := range s.carts {
		c.carts[id] = append([]models.CartLine(nil), lines...)
	}
	return c
}

// fakeStore commits a copy of its state only when fn succeeds and re-runs
// fn on retryable errors, like database.WithRetry.
type fakeStore struct {
	mu      sync.Mutex
	state   *memState
	retries int
	calls   int
	failOn  string
	failErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		state: &memState{
			products:  map[int64]*models.Product{},
			variants:  map[int64]*models.Variant{},
			addresses: map[int64]*models.Address{},
			carts:     map[int64][]models.CartLine{},
			nextID:    1000,
		},
		retries: 3,
	}
}

func (f *fakeStore) InTx(ctx context.Context, fn func(Tx) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	var err error
	for attempt := 0; attempt <= f.retries; attempt++ {
		f.calls++
		work := f.state.clone()
		err = fn(&fakeTx{store: f, s: work})
		if err == nil {
			f.state = work
			return nil
		}
		if !database.IsRetryable(err) {
			return err
		}
	}
	return err
}

type fakeTx struct {
	store *fakeStore
	s     *memState
}

func (t *fakeTx) fail(op string) error {
	if t.store.failOn == op {
		return t.store.failErr
	}
	return nil
}

func (t *fakeTx) id() int64 {
	t.s.nextID++
	return t.s.nextID
}

func (t *fakeTx) CartLines(_ context.Context, userID int64) ([]models.CartLine, error) {
	if err := t.fail("CartLines"); err != nil {
		return nil, err
	}
	var out []models.CartLine
	for _, line := range t.s.carts[userID] {
		p := t.s.products[line.ProductID]
		line.UnitPrice = p.Price
		if line.VariantID != nil {
			if v, ok := t.s.variants[*line.VariantID]; ok && v.ProductID == line.ProductID {
				line.PriceAdjustment = v.PriceAdjustment
			} else {
				line.ForeignVariant = true
			}
		}
		out = append(out, line)
	}
	return out, nil
}

func (t *fakeTx) ClearCart(_ context.Context, userID int64) (int64, error) {
	if err := t.fail("ClearCart"); err != nil {
		return 0, err
	}
	n := int64(len(t.s.carts[userID]))
	delete(t.s.carts, userID)
	return n, nil
}

func (t *fakeTx) GetProduct(_ context.Context, id int64) (*models.Product, error) {
	p, ok := t.s.products[id]
	if !ok {
		return nil, database.ErrProductNotFound
	}
	cp := *p
	return &cp, nil
}

func (t *fakeTx) GetVariant(_ context.Context, id int64) (*models.Variant, error) {
	v, ok := t.s.variants[id]
	if !ok {
		return nil, database.ErrVariantNotFound
	}
	cv := *v
	return &cv, nil
}

func (t *fakeTx) DecrementProductStock(_ context.Context, productID int64, quantity int) error {
	p, ok := t.s.products[productID]
	if !ok || p.StockQuantity < quantity {
		return database.ErrInsufficientStock
	}
	p.StockQuantity -= quantity
	return nil
}

func (t *fakeTx) DecrementVariantStock(_ context.Context, variantID int64, quantity int) error {
	v, ok := t.s.variants[variantID]
	if !ok || v.StockQuantity < quantity {
		return database.ErrInsufficientStock
	}
	v.StockQuantity -= quantity
	return nil
}

func (t *fakeTx) FindOrderByIdempotencyKey(_ context.Context, userID int64, key string) (*models.Order, error) {
	for _, o := range t.s.orders {
		if o.UserID == userID && o.IdempotencyKey != nil && *o.IdempotencyKey == key {
			return o, nil
		}
	}
	return nil, database.ErrOrderNotFound
}

func (t *fakeTx) InsertOrder(_ context.Context, order *models.Order) error {
	if err := t.fail("InsertOrder"); err != nil {
		return err
	}
	for _, o := range t.s.orders {
		if o.OrderNumber == order.OrderNumber {
			return &pq.Error{Code: "23505", Constraint: "orders_order_number_key"}
		}
	}
	order.ID = t.id()
	order.Version = 1
	order.CreatedAt = time.Now()
	order.UpdatedAt = order.CreatedAt
	stored := *order
	t.s.orders = append(t.s.orders, &stored)
	return nil
}

func (t *fakeTx) InsertOrderLine(_ context.Context, line *models.OrderLine) error {
	line.ID = t.id()
	stored := *line
	t.s.lines = append(t.s.lines, &stored)
	return nil
}

func (t *fakeTx) InsertAddress(_ context.Context, addr *models.Address) error {
	addr.ID = t.id()
	stored := *addr
	t.s.addresses[addr.ID] = &stored
	return nil
}

func (t *fakeTx) AddressOwnedBy(_ context.Context, addressID, userID int64) (bool, error) {
	a, ok := t.s.addresses[addressID]
	return ok && a.UserID == userID, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []OrderEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, _ string, event any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if e, ok := event.(OrderEvent); ok {
		p.events = append(p.events, e)
	}
	return p.err
}

type busyLocker struct{}

func (busyLocker) TryLock(context.Context, string) (func(context.Context) error, bool, error) {
	return nil, false, nil
}
