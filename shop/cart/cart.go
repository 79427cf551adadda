// Package cart keeps per-session shopping carts. Carts are keyed by the
// user's session id and never shared across sessions; entries preserve
// insertion order and never hold a non-positive quantity.
package cart

import (
	"context"
	"fmt"

	"log/slog"

	"github.com/m3rciful/shopbot/core/logger"
	"github.com/m3rciful/shopbot/shop/catalog"
)

// Line is a raw cart entry as stored.
type Line struct {
	ProductID int64 `json:"product_id"`
	Qty       int   `json:"qty"`
}

// Item is a cart entry resolved against the catalog, ready for rendering
// and checkout.
type Item struct {
	Product catalog.Product
	Qty     int
}

// Sum returns the item total.
func (i Item) Sum() int64 {
	return i.Product.Price * int64(i.Qty)
}

// Store persists raw cart lines per session.
type Store interface {
	Get(ctx context.Context, sessionID int64) ([]Line, error)
	Put(ctx context.Context, sessionID int64, lines []Line) error
	Clear(ctx context.Context, sessionID int64) error
}

// Service applies cart mutations and resolves snapshots against the catalog.
type Service struct {
	store   Store
	catalog *catalog.Store
}

// NewService builds a cart service on top of a line store.
func NewService(store Store, cat *catalog.Store) *Service {
	return &Service{store: store, catalog: cat}
}

// Add increments the quantity of a product by one, appending a new entry
// when the product is not in the cart yet.
func (s *Service) Add(ctx context.Context, sessionID, productID int64) error {
	return s.adjust(ctx, sessionID, productID, +1, true)
}

// Increment bumps an existing entry by one. A product missing from the cart
// is ignored: the +/- buttons on the cart screen only exist for entries that
// were rendered, so a miss means the entry was removed by a racing tap.
func (s *Service) Increment(ctx context.Context, sessionID, productID int64) error {
	return s.adjust(ctx, sessionID, productID, +1, false)
}

// Decrement lowers an entry by one and removes it once the quantity would
// drop to zero or below.
func (s *Service) Decrement(ctx context.Context, sessionID, productID int64) error {
	return s.adjust(ctx, sessionID, productID, -1, false)
}

func (s *Service) adjust(ctx context.Context, sessionID, productID int64, delta int, create bool) error {
	lines, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	found := false
	out := lines[:0]
	for _, l := range lines {
		if l.ProductID == productID {
			found = true
			l.Qty += delta
			if l.Qty <= 0 {
				continue
			}
		}
		out = append(out, l)
	}
	if !found {
		if !create || delta <= 0 {
			return nil
		}
		out = append(out, Line{ProductID: productID, Qty: delta})
	}
	if err := s.store.Put(ctx, sessionID, out); err != nil {
		return err
	}
	logger.Debug(ctx, "service.cart", "cart.adjust",
		slog.String("status", "ok"),
		slog.Int64("user_id", sessionID),
		slog.Int64("product_id", productID),
		slog.Int("delta", delta),
	)
	return nil
}

// Snapshot returns the cart resolved against the catalog in insertion order.
// Entries whose product no longer resolves are silently skipped; the raw
// lines are left untouched so the policy stays visible in one place.
func (s *Service) Snapshot(ctx context.Context, sessionID int64) ([]Item, error) {
	lines, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	items := make([]Item, 0, len(lines))
	for _, l := range lines {
		p, err := s.catalog.ProductByID(ctx, l.ProductID)
		if err != nil {
			if err == catalog.ErrNotFound {
				continue
			}
			return nil, fmt.Errorf("cart: resolve product %d: %w", l.ProductID, err)
		}
		items = append(items, Item{Product: p, Qty: l.Qty})
	}
	return items, nil
}

// Total sums quantity times unit price over resolvable entries.
func (s *Service) Total(ctx context.Context, sessionID int64) (int64, error) {
	items, err := s.Snapshot(ctx, sessionID)
	if err != nil {
		return 0, err
	}
	var total int64
	for _, it := range items {
		total += it.Sum()
	}
	return total, nil
}

// Clear empties the cart after a confirmed order.
func (s *Service) Clear(ctx context.Context, sessionID int64) error {
	return s.store.Clear(ctx, sessionID)
}
