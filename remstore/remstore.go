// Package remstore abstracts the remote document store. Every call is a
// suspension point: between a read and the next write another session may
// have changed the document, so the only safe stock mutation is the
// conditional IncrementWhere.
package remstore

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("document not found")

// Collection names shared by the storefront.
const (
	Products = "products"
	Carts    = "carts"
	Orders   = "orders"
)

type Store interface {
	// Get decodes the document with the given id into out, or returns
	// ErrNotFound.
	Get(ctx context.Context, collection, id string, out any) error

	// Set writes the full document under id, creating it if absent.
	Set(ctx context.Context, collection, id string, doc any) error

	// UpdateFields sets individual fields on an existing document.
	UpdateFields(ctx context.Context, collection, id string, fields map[string]any) error

	// Increment adds delta to a numeric field unconditionally. Returns
	// ErrNotFound if no such document exists.
	Increment(ctx context.Context, collection, id, field string, delta int) error

	// IncrementWhere adds delta to a numeric field only if its current value
	// is at least min. Returns (false, nil) when the guard fails, which is
	// how callers distinguish a lost race from a transport error.
	IncrementWhere(ctx context.Context, collection, id, field string, delta, min int) (bool, error)

	// QueryEqual decodes every document whose field equals value into out,
	// which must be a pointer to a slice.
	QueryEqual(ctx context.Context, collection, field string, value any, out any) error

	// Delete removes the document; deleting a missing document is not an
	// error.
	Delete(ctx context.Context, collection, id string) error
}
