// Package stock is the sole authority over Product.stock. Every decrement
// goes through a conditional remote update, so concurrent sessions can never
// drive stock negative even though no cross-step lock exists.
package stock

import (
	"context"
	"fmt"
	"log"

	"pawmart/apperr"
	"pawmart/models"
	"pawmart/remstore"
)

type Guard struct {
	store remstore.Store
}

func NewGuard(store remstore.Store) *Guard {
	return &Guard{store: store}
}

// Product is the read path for catalog lookups that need current stock.
func (g *Guard) Product(ctx context.Context, productID string) (models.Product, error) {
	var product models.Product
	err := g.store.Get(ctx, remstore.Products, productID, &product)
	if err == remstore.ErrNotFound {
		return models.Product{}, apperr.ErrProductNotFound
	}
	if err != nil {
		return models.Product{}, apperr.Transport("stock.product", err)
	}
	return product, nil
}

// CheckAvailable reports whether wanted units are purchasable right now and
// how many exist. Point-in-time only: it reserves nothing.
func (g *Guard) CheckAvailable(ctx context.Context, productID string, wanted int) (bool, int, error) {
	product, err := g.Product(ctx, productID)
	if err != nil {
		return false, 0, err
	}
	return product.Stock >= wanted, product.Stock, nil
}

// Decrement takes qty units, or fails without writing. The guard predicate
// and the subtraction are a single atomic remote operation.
func (g *Guard) Decrement(ctx context.Context, productID string, qty int) error {
	if qty <= 0 {
		return fmt.Errorf("decrement quantity must be positive, got %d", qty)
	}

	ok, err := g.store.IncrementWhere(ctx, remstore.Products, productID, "stock", -qty, qty)
	if err != nil {
		return apperr.Transport("stock.decrement", err)
	}
	if !ok {
		// Guard miss: either the product is gone or another session got
		// there first. Re-read to produce a specific rejection.
		product, perr := g.Product(ctx, productID)
		if perr != nil {
			return perr
		}
		if product.Stock <= 0 {
			return fmt.Errorf("%s is out of stock: %w", product.Name, apperr.ErrOutOfStock)
		}
		return fmt.Errorf("%s: only %d left, wanted %d: %w", product.Name, product.Stock, qty, apperr.ErrInsufficientStock)
	}

	g.broadcastRemaining(ctx, productID)
	return nil
}

// Restore puts qty units back, unconditionally. Restoring stock for a product
// that no longer exists has no well-defined target, so that case is logged
// and dropped.
func (g *Guard) Restore(ctx context.Context, productID string, qty int) error {
	if qty <= 0 {
		return nil
	}

	err := g.store.Increment(ctx, remstore.Products, productID, "stock", qty)
	if err == remstore.ErrNotFound {
		log.Printf("stock anomaly: restore of %d units for missing product %s dropped", qty, productID)
		return nil
	}
	if err != nil {
		return apperr.Transport("stock.restore", err)
	}

	g.broadcastRemaining(ctx, productID)
	return nil
}

func (g *Guard) broadcastRemaining(ctx context.Context, productID string) {
	product, err := g.Product(ctx, productID)
	if err != nil {
		return
	}
	BroadcastStockUpdate(productID, product.Stock)
}
