package checkout

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/sync/errgroup"

	"pawmart/apperr"
	"pawmart/cart"
	"pawmart/localcache"
	"pawmart/models"
	"pawmart/remstore"
	"pawmart/stock"
)

type fixture struct {
	remote *remstore.Memory
	carts  *cart.Store
	guard  *stock.Guard
	orch   *Orchestrator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	remote := remstore.NewMemory()
	guard := stock.NewGuard(remote)
	carts := cart.NewStore(remote, localcache.NewMemory(), guard, nil, time.Hour)
	return &fixture{
		remote: remote,
		carts:  carts,
		guard:  guard,
		orch:   NewOrchestrator(remote, guard, carts, nil),
	}
}

func (f *fixture) seedProduct(t *testing.T, id, name string, price float64, stockCount int) {
	t.Helper()
	product := models.Product{ProductID: id, Name: name, Price: price, Stock: stockCount}
	if err := f.remote.Set(context.Background(), remstore.Products, id, product); err != nil {
		t.Fatalf("seed product: %v", err)
	}
}

func (f *fixture) startCart(t *testing.T, deviceID, userID string) {
	t.Helper()
	if _, err := f.carts.Initialize(context.Background(), deviceID, userID); err != nil {
		t.Fatalf("initialize cart: %v", err)
	}
}

func (f *fixture) addToCart(t *testing.T, deviceID, productID string, qty int) {
	t.Helper()
	if err := f.carts.AddItem(context.Background(), deviceID, productID, qty); err != nil {
		t.Fatalf("add %s: %v", productID, err)
	}
}

func (f *fixture) stockOf(t *testing.T, productID string) int {
	t.Helper()
	product, err := f.guard.Product(context.Background(), productID)
	if err != nil {
		t.Fatalf("read product %s: %v", productID, err)
	}
	return product.Stock
}

func (f *fixture) ordersOf(t *testing.T, userID string) []models.Order {
	t.Helper()
	var orders []models.Order
	if err := f.remote.QueryEqual(context.Background(), remstore.Orders, "userid", userID, &orders); err != nil {
		t.Fatalf("query orders: %v", err)
	}
	return orders
}

func TestCheckoutHappyPath(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedProduct(t, "p1", "Collar", 50, 3)
	f.seedProduct(t, "p2", "Crate", 100, 2)
	f.startCart(t, "d1", "u1")
	f.addToCart(t, "d1", "p1", 2)
	f.addToCart(t, "d1", "p2", 1)

	order, err := f.orch.Checkout(ctx, "d1", "u1", []string{"p1", "p2"}, "cod")
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}

	if order.Total != 200 {
		t.Errorf("total = %.2f, want 200", order.Total)
	}
	if order.Status != models.StatusPending {
		t.Errorf("status = %q, want %q", order.Status, models.StatusPending)
	}
	if len(order.Items) != 2 {
		t.Errorf("order has %d items, want 2", len(order.Items))
	}

	if got := f.stockOf(t, "p1"); got != 1 {
		t.Errorf("p1 stock = %d, want 1", got)
	}
	if got := f.stockOf(t, "p2"); got != 1 {
		t.Errorf("p2 stock = %d, want 1", got)
	}

	var stored models.Order
	if err := f.remote.Get(ctx, remstore.Orders, order.OrderID, &stored); err != nil {
		t.Fatalf("order not persisted: %v", err)
	}

	if lines := f.carts.Lines("d1"); len(lines) != 0 {
		t.Errorf("selected lines must be pruned, got %+v", lines)
	}
	var doc models.CartDoc
	if err := f.remote.Get(ctx, remstore.Carts, "u1", &doc); err != nil {
		t.Fatalf("get remote cart: %v", err)
	}
	if len(doc.Items) != 0 {
		t.Errorf("remote cart must be pruned immediately, got %+v", doc.Items)
	}
}

func TestCheckoutKeepsUnselectedLines(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedProduct(t, "p1", "Collar", 50, 3)
	f.seedProduct(t, "p2", "Crate", 100, 2)
	f.startCart(t, "d1", "u1")
	f.addToCart(t, "d1", "p1", 1)
	f.addToCart(t, "d1", "p2", 1)

	if _, err := f.orch.Checkout(ctx, "d1", "u1", []string{"p1"}, "cod"); err != nil {
		t.Fatalf("checkout: %v", err)
	}

	lines := f.carts.Lines("d1")
	if len(lines) != 1 || lines[0].ProductID != "p2" {
		t.Fatalf("unselected line must survive checkout: %+v", lines)
	}
	if got := f.stockOf(t, "p2"); got != 2 {
		t.Errorf("unselected product stock = %d, want 2", got)
	}
}

func TestCheckoutEmptySelection(t *testing.T) {
	f := newFixture(t)
	f.startCart(t, "d1", "u1")

	_, err := f.orch.Checkout(context.Background(), "d1", "u1", []string{"p1"}, "cod")
	if !errors.Is(err, apperr.ErrEmptySelection) {
		t.Fatalf("expected ErrEmptySelection, got %v", err)
	}
}

func TestCheckoutInsufficientStockAborts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedProduct(t, "p1", "Collar", 50, 2)
	f.startCart(t, "d1", "u1")
	f.addToCart(t, "d1", "p1", 2)

	// Stock drops behind the cart's back before checkout runs.
	f.seedProduct(t, "p1", "Collar", 50, 1)

	_, err := f.orch.Checkout(ctx, "d1", "u1", []string{"p1"}, "cod")
	if !errors.Is(err, apperr.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}

	if got := f.stockOf(t, "p1"); got != 1 {
		t.Errorf("validation failure must not write stock, got %d", got)
	}
	if orders := f.ordersOf(t, "u1"); len(orders) != 0 {
		t.Errorf("validation failure must not record an order, got %d", len(orders))
	}
	if lines := f.carts.Lines("d1"); len(lines) != 1 {
		t.Errorf("cart must be untouched after a failed checkout: %+v", lines)
	}
}

func TestCheckoutRejectsSecondInFlight(t *testing.T) {
	f := newFixture(t)
	f.seedProduct(t, "p1", "Collar", 50, 2)
	f.startCart(t, "d1", "u1")
	f.addToCart(t, "d1", "p1", 1)

	if !f.orch.acquire("d1") {
		t.Fatal("acquire should succeed on an idle session")
	}
	defer f.orch.release("d1")

	_, err := f.orch.Checkout(context.Background(), "d1", "u1", []string{"p1"}, "cod")
	if !errors.Is(err, apperr.ErrCheckoutInFlight) {
		t.Fatalf("expected ErrCheckoutInFlight, got %v", err)
	}
	if got := f.stockOf(t, "p1"); got != 2 {
		t.Errorf("rejected checkout must not touch stock, got %d", got)
	}
}

func TestConcurrentCheckoutsSellLastUnitOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedProduct(t, "p1", "Collar", 50, 1)
	f.startCart(t, "d1", "u1")
	f.startCart(t, "d2", "u2")
	f.addToCart(t, "d1", "p1", 1)
	f.addToCart(t, "d2", "p1", 1)

	results := make([]error, 2)
	var g errgroup.Group
	g.Go(func() error {
		_, results[0] = f.orch.Checkout(ctx, "d1", "u1", []string{"p1"}, "cod")
		return nil
	})
	g.Go(func() error {
		_, results[1] = f.orch.Checkout(ctx, "d2", "u2", []string{"p1"}, "cod")
		return nil
	})
	g.Wait()

	wins := 0
	for _, err := range results {
		if err == nil {
			wins++
		} else if !errors.Is(err, apperr.ErrOutOfStock) && !errors.Is(err, apperr.ErrInsufficientStock) {
			t.Errorf("loser must fail on stock, got %v", err)
		}
	}
	if wins != 1 {
		t.Fatalf("exactly one checkout may win the last unit, got %d", wins)
	}
	if got := f.stockOf(t, "p1"); got != 0 {
		t.Fatalf("final stock = %d, want 0", got)
	}
}

func TestCheckoutPaymentDeclined(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedProduct(t, "p1", "Collar", 50, 2)
	f.startCart(t, "d1", "u1")
	f.addToCart(t, "d1", "p1", 1)

	_, err := f.orch.Checkout(ctx, "d1", "u1", []string{"p1"}, "gcash")
	if !errors.Is(err, apperr.ErrPaymentFailed) {
		t.Fatalf("expected ErrPaymentFailed, got %v", err)
	}
	if got := f.stockOf(t, "p1"); got != 2 {
		t.Errorf("declined payment must not touch stock, got %d", got)
	}
	if orders := f.ordersOf(t, "u1"); len(orders) != 0 {
		t.Errorf("declined payment must not record an order, got %d", len(orders))
	}
}

// The order insert and the per-line decrements are separate writes. When the
// store dies between them the order must stay recorded, decremented lines
// must stay decremented, and the cart must stay intact, with the failure
// surfaced to the caller.
func TestCheckoutPartialDecrementFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedProduct(t, "p1", "Collar", 50, 3)
	f.seedProduct(t, "p2", "Crate", 100, 2)
	f.startCart(t, "d1", "u1")
	f.addToCart(t, "d1", "p1", 1)
	f.addToCart(t, "d1", "p2", 1)

	// Products traffic during the run: two validation reads, the first
	// decrement, its follow-up read, then the second decrement. Let the
	// first four through and kill the fifth.
	f.remote.FailAfterOn(remstore.Products, 4, errors.New("primary stepped down"))

	_, err := f.orch.Checkout(ctx, "d1", "u1", []string{"p1", "p2"}, "cod")
	if err == nil {
		t.Fatal("expected a partial-failure error")
	}
	if !apperr.IsTransport(err) {
		t.Fatalf("expected a transport error, got %v", err)
	}

	orders := f.ordersOf(t, "u1")
	if len(orders) != 1 {
		t.Fatalf("order must remain recorded, got %d orders", len(orders))
	}
	if got := f.stockOf(t, "p1"); got != 2 {
		t.Errorf("first line stayed decremented: p1 stock = %d, want 2", got)
	}
	if got := f.stockOf(t, "p2"); got != 2 {
		t.Errorf("second line must be untouched: p2 stock = %d, want 2", got)
	}
	if lines := f.carts.Lines("d1"); len(lines) != 2 {
		t.Errorf("pruning must not run after a failed decrement: %+v", lines)
	}
}
