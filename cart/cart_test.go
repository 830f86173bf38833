package cart

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"pawmart/apperr"
	"pawmart/localcache"
	"pawmart/models"
	"pawmart/remstore"
	"pawmart/stock"
)

// countingStore counts remote cart writes so the debounce behavior is
// observable.
type countingStore struct {
	*remstore.Memory
	mu       sync.Mutex
	cartSets int
}

func (c *countingStore) Set(ctx context.Context, collection, id string, doc any) error {
	if collection == remstore.Carts {
		c.mu.Lock()
		c.cartSets++
		c.mu.Unlock()
	}
	return c.Memory.Set(ctx, collection, id, doc)
}

func (c *countingStore) cartWriteCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cartSets
}

type fixture struct {
	remote *countingStore
	local  *localcache.Memory
	store  *Store
}

func newFixture(t *testing.T, debounce time.Duration) *fixture {
	t.Helper()
	remote := &countingStore{Memory: remstore.NewMemory()}
	local := localcache.NewMemory()
	guard := stock.NewGuard(remote)
	return &fixture{
		remote: remote,
		local:  local,
		store:  NewStore(remote, local, guard, nil, debounce),
	}
}

func (f *fixture) seedProduct(t *testing.T, id, name string, price float64, stockCount int) {
	t.Helper()
	product := models.Product{ProductID: id, Name: name, Price: price, Stock: stockCount}
	if err := f.remote.Set(context.Background(), remstore.Products, id, product); err != nil {
		t.Fatalf("seed product: %v", err)
	}
}

func TestInitializeSignedInCreatesEmptyRemoteCart(t *testing.T) {
	f := newFixture(t, time.Hour)
	ctx := context.Background()

	lines, err := f.store.Initialize(ctx, "d1", "u1")
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if len(lines) != 0 {
		t.Fatalf("expected empty cart, got %d lines", len(lines))
	}

	var doc models.CartDoc
	if err := f.remote.Get(ctx, remstore.Carts, "u1", &doc); err != nil {
		t.Fatalf("remote cart document was not created: %v", err)
	}
}

func TestInitializeSignedInLoadsRemoteCart(t *testing.T) {
	f := newFixture(t, time.Hour)
	ctx := context.Background()

	doc := models.CartDoc{UserID: "u1", Items: []models.CartLine{
		{ProductID: "p1", Name: "Collar", Price: 20, Quantity: 2},
	}}
	if err := f.remote.Set(ctx, remstore.Carts, "u1", doc); err != nil {
		t.Fatalf("seed cart: %v", err)
	}

	lines, err := f.store.Initialize(ctx, "d1", "u1")
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if len(lines) != 1 || lines[0].ProductID != "p1" || lines[0].Quantity != 2 {
		t.Fatalf("remote cart did not replace memory: %+v", lines)
	}

	// The local mirror must match immediately.
	cached, _ := f.local.ReadCart("d1")
	if len(cached) != 1 || cached[0].ProductID != "p1" {
		t.Fatalf("local cache not mirrored on initialize: %+v", cached)
	}
}

func TestInitializeAnonymousUsesLocalCacheOnly(t *testing.T) {
	f := newFixture(t, 10*time.Millisecond)
	ctx := context.Background()

	if err := f.local.WriteCart("d1", []models.CartLine{{ProductID: "p9", Name: "Bowl", Price: 5, Quantity: 1}}); err != nil {
		t.Fatalf("seed local: %v", err)
	}
	f.seedProduct(t, "p1", "Collar", 20, 5)

	lines, err := f.store.Initialize(ctx, "d1", "")
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if len(lines) != 1 || lines[0].ProductID != "p9" {
		t.Fatalf("anonymous cart must come from local cache: %+v", lines)
	}

	if err := f.store.AddItem(ctx, "d1", "p1", 1); err != nil {
		t.Fatalf("add item: %v", err)
	}
	time.Sleep(50 * time.Millisecond)

	if got := f.remote.cartWriteCount(); got != 0 {
		t.Fatalf("anonymous sessions must never write remote carts, saw %d writes", got)
	}
}

func TestAddItemOutOfStock(t *testing.T) {
	f := newFixture(t, time.Hour)
	ctx := context.Background()
	f.seedProduct(t, "p1", "Collar", 20, 0)
	f.store.Initialize(ctx, "d1", "u1")

	err := f.store.AddItem(ctx, "d1", "p1", 1)
	if !errors.Is(err, apperr.ErrOutOfStock) {
		t.Fatalf("expected ErrOutOfStock, got %v", err)
	}
	if lines := f.store.Lines("d1"); len(lines) != 0 {
		t.Fatalf("cart must be unchanged after rejection: %+v", lines)
	}
}

func TestAddItemRespectsStockCeiling(t *testing.T) {
	f := newFixture(t, time.Hour)
	ctx := context.Background()
	f.seedProduct(t, "p1", "Collar", 20, 2)
	f.store.Initialize(ctx, "d1", "u1")

	if err := f.store.AddItem(ctx, "d1", "p1", 1); err != nil {
		t.Fatalf("first add: %v", err)
	}
	if err := f.store.AddItem(ctx, "d1", "p1", 1); err != nil {
		t.Fatalf("second add: %v", err)
	}

	err := f.store.AddItem(ctx, "d1", "p1", 1)
	if !errors.Is(err, apperr.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}
	lines := f.store.Lines("d1")
	if len(lines) != 1 || lines[0].Quantity != 2 {
		t.Fatalf("line must stay at the ceiling: %+v", lines)
	}
}

func TestAddItemCapsNewLineAtStock(t *testing.T) {
	f := newFixture(t, time.Hour)
	ctx := context.Background()
	f.seedProduct(t, "p1", "Collar", 20, 3)
	f.store.Initialize(ctx, "d1", "u1")

	if err := f.store.AddItem(ctx, "d1", "p1", 5); err != nil {
		t.Fatalf("add: %v", err)
	}
	lines := f.store.Lines("d1")
	if len(lines) != 1 || lines[0].Quantity != 3 {
		t.Fatalf("new line must be capped at stock: %+v", lines)
	}
}

func TestAddItemSnapshotsPrice(t *testing.T) {
	f := newFixture(t, time.Hour)
	ctx := context.Background()
	f.seedProduct(t, "p1", "Collar", 20, 5)
	f.store.Initialize(ctx, "d1", "u1")

	if err := f.store.AddItem(ctx, "d1", "p1", 1); err != nil {
		t.Fatalf("add: %v", err)
	}
	// A later price change must not reach the existing line.
	f.seedProduct(t, "p1", "Collar", 35, 5)
	if err := f.store.AddItem(ctx, "d1", "p1", 1); err != nil {
		t.Fatalf("add again: %v", err)
	}

	lines := f.store.Lines("d1")
	if lines[0].Price != 20 {
		t.Fatalf("price must be a snapshot from the first add, got %.2f", lines[0].Price)
	}
}

func TestUpdateQuantityRemovesOnZero(t *testing.T) {
	f := newFixture(t, time.Hour)
	ctx := context.Background()
	f.seedProduct(t, "p1", "Collar", 20, 5)
	f.store.Initialize(ctx, "d1", "u1")
	f.store.AddItem(ctx, "d1", "p1", 2)

	if err := f.store.UpdateQuantity(ctx, "d1", "p1", -2); err != nil {
		t.Fatalf("update: %v", err)
	}
	if lines := f.store.Lines("d1"); len(lines) != 0 {
		t.Fatalf("quantity zero must remove the line: %+v", lines)
	}
}

func TestUpdateQuantityRemovesBelowZero(t *testing.T) {
	f := newFixture(t, time.Hour)
	ctx := context.Background()
	f.seedProduct(t, "p1", "Collar", 20, 5)
	f.store.Initialize(ctx, "d1", "u1")
	f.store.AddItem(ctx, "d1", "p1", 1)

	if err := f.store.UpdateQuantity(ctx, "d1", "p1", -3); err != nil {
		t.Fatalf("update: %v", err)
	}
	if lines := f.store.Lines("d1"); len(lines) != 0 {
		t.Fatalf("negative result must remove the line: %+v", lines)
	}
}

func TestUpdateQuantityRevalidatesIncrease(t *testing.T) {
	f := newFixture(t, time.Hour)
	ctx := context.Background()
	f.seedProduct(t, "p1", "Collar", 20, 2)
	f.store.Initialize(ctx, "d1", "u1")
	f.store.AddItem(ctx, "d1", "p1", 2)

	err := f.store.UpdateQuantity(ctx, "d1", "p1", 1)
	if !errors.Is(err, apperr.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}
	if lines := f.store.Lines("d1"); lines[0].Quantity != 2 {
		t.Fatalf("rejected increase must leave quantity, got %d", lines[0].Quantity)
	}
}

func TestRemoveItemIdempotent(t *testing.T) {
	f := newFixture(t, time.Hour)
	ctx := context.Background()
	f.seedProduct(t, "p1", "Collar", 20, 5)
	f.store.Initialize(ctx, "d1", "u1")
	f.store.AddItem(ctx, "d1", "p1", 1)

	f.store.RemoveItem("d1", "p1")
	f.store.RemoveItem("d1", "p1")
	if lines := f.store.Lines("d1"); len(lines) != 0 {
		t.Fatalf("expected empty cart, got %+v", lines)
	}
}

func TestLocalCacheWrittenSynchronously(t *testing.T) {
	f := newFixture(t, time.Hour)
	ctx := context.Background()
	f.seedProduct(t, "p1", "Collar", 20, 5)
	f.store.Initialize(ctx, "d1", "u1")

	if err := f.store.AddItem(ctx, "d1", "p1", 1); err != nil {
		t.Fatalf("add: %v", err)
	}

	cached, _ := f.local.ReadCart("d1")
	if len(cached) != 1 || cached[0].ProductID != "p1" {
		t.Fatalf("local cache must reflect the mutation immediately: %+v", cached)
	}
}

func TestDebounceCoalescesRemoteWrites(t *testing.T) {
	f := newFixture(t, 40*time.Millisecond)
	ctx := context.Background()
	f.seedProduct(t, "p1", "Collar", 20, 10)
	f.seedProduct(t, "p2", "Bowl", 5, 10)
	f.seedProduct(t, "p3", "Leash", 15, 10)
	f.store.Initialize(ctx, "d1", "u1")

	before := f.remote.cartWriteCount()
	f.store.AddItem(ctx, "d1", "p1", 1)
	f.store.AddItem(ctx, "d1", "p2", 1)
	f.store.AddItem(ctx, "d1", "p3", 1)
	f.store.UpdateQuantity(ctx, "d1", "p1", 1)

	time.Sleep(150 * time.Millisecond)

	if got := f.remote.cartWriteCount() - before; got != 1 {
		t.Fatalf("expected 1 coalesced remote write, got %d", got)
	}

	var doc models.CartDoc
	if err := f.remote.Get(ctx, remstore.Carts, "u1", &doc); err != nil {
		t.Fatalf("get remote cart: %v", err)
	}
	if len(doc.Items) != 3 {
		t.Fatalf("remote write must carry the full line list, got %+v", doc.Items)
	}
}

func TestDebouncedSyncSwallowsTransportError(t *testing.T) {
	f := newFixture(t, 20*time.Millisecond)
	ctx := context.Background()
	f.seedProduct(t, "p1", "Collar", 20, 5)
	f.store.Initialize(ctx, "d1", "u1")

	f.remote.FailNextOn(remstore.Carts, errors.New("network down"))
	if err := f.store.AddItem(ctx, "d1", "p1", 1); err != nil {
		t.Fatalf("local mutation must succeed regardless of remote health: %v", err)
	}

	time.Sleep(80 * time.Millisecond)

	// The session keeps working; the next sync reconciles.
	if lines := f.store.Lines("d1"); len(lines) != 1 {
		t.Fatalf("in-memory cart lost after failed sync: %+v", lines)
	}
	if err := f.store.SyncNow(ctx, "d1"); err != nil {
		t.Fatalf("follow-up sync: %v", err)
	}
	var doc models.CartDoc
	if err := f.remote.Get(ctx, remstore.Carts, "u1", &doc); err != nil || len(doc.Items) != 1 {
		t.Fatalf("remote cart not reconciled: %+v err=%v", doc.Items, err)
	}
}

func TestPruneSelectedKeepsUnselectedLines(t *testing.T) {
	f := newFixture(t, time.Hour)
	ctx := context.Background()
	f.seedProduct(t, "p1", "Collar", 20, 5)
	f.seedProduct(t, "p2", "Bowl", 5, 5)
	f.store.Initialize(ctx, "d1", "u1")
	f.store.AddItem(ctx, "d1", "p1", 1)
	f.store.AddItem(ctx, "d1", "p2", 1)

	if err := f.store.PruneSelected(ctx, "d1", []string{"p1"}); err != nil {
		t.Fatalf("prune: %v", err)
	}

	lines := f.store.Lines("d1")
	if len(lines) != 1 || lines[0].ProductID != "p2" {
		t.Fatalf("unselected lines must survive pruning: %+v", lines)
	}

	var doc models.CartDoc
	if err := f.remote.Get(ctx, remstore.Carts, "u1", &doc); err != nil {
		t.Fatalf("get remote cart: %v", err)
	}
	if len(doc.Items) != 1 || doc.Items[0].ProductID != "p2" {
		t.Fatalf("pruning must sync remote immediately: %+v", doc.Items)
	}
}
