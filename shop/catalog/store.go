package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"log/slog"

	"github.com/m3rciful/shopbot/core/logger"
)

// Store reads and writes products through sqlx. Queries use ? placeholders
// and are rebound for the active driver, so the store works on both
// postgres and sqlite.
type Store struct {
	db *sqlx.DB
}

// NewStore wraps the shared database handle.
func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// Categories returns the distinct category tags currently in the catalog.
func (s *Store) Categories(ctx context.Context) ([]string, error) {
	start := time.Now()
	var cats []string
	q := s.db.Rebind("SELECT DISTINCT category FROM products ORDER BY category")
	if err := s.db.SelectContext(ctx, &cats, q); err != nil {
		return nil, fmt.Errorf("catalog: list categories: %w", err)
	}
	logger.Debug(ctx, "service.catalog", "categories.list",
		slog.String("status", "ok"),
		slog.Int("count", len(cats)),
		slog.Duration("duration", logger.Took(start)),
	)
	return cats, nil
}

// ProductsByCategory returns products of one category in id order.
func (s *Store) ProductsByCategory(ctx context.Context, category string) ([]Product, error) {
	var products []Product
	q := s.db.Rebind(`SELECT id, name, price, description, image_ref, category
		FROM products WHERE category = ? ORDER BY id`)
	if err := s.db.SelectContext(ctx, &products, q, category); err != nil {
		return nil, fmt.Errorf("catalog: list products for %q: %w", category, err)
	}
	return products, nil
}

// ProductByID resolves a single product. Returns ErrNotFound for unknown ids.
func (s *Store) ProductByID(ctx context.Context, id int64) (Product, error) {
	var p Product
	q := s.db.Rebind(`SELECT id, name, price, description, image_ref, category
		FROM products WHERE id = ?`)
	if err := s.db.GetContext(ctx, &p, q, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Product{}, ErrNotFound
		}
		return Product{}, fmt.Errorf("catalog: get product %d: %w", id, err)
	}
	return p, nil
}

// AddProduct persists a new product and returns it with the store-assigned id.
func (s *Store) AddProduct(ctx context.Context, draft Draft) (Product, error) {
	if draft.Price < 0 {
		return Product{}, fmt.Errorf("catalog: negative price %d", draft.Price)
	}
	q := s.db.Rebind(`INSERT INTO products (name, price, description, image_ref, category)
		VALUES (?, ?, ?, ?, ?) RETURNING id`)
	var id int64
	if err := s.db.QueryRowxContext(ctx, q,
		draft.Name, draft.Price, draft.Description, draft.ImageRef, draft.Category,
	).Scan(&id); err != nil {
		return Product{}, fmt.Errorf("catalog: add product: %w", err)
	}
	p := Product{
		ID:          id,
		Name:        draft.Name,
		Price:       draft.Price,
		Description: draft.Description,
		ImageRef:    draft.ImageRef,
		Category:    draft.Category,
	}
	logger.Info(ctx, "service.catalog", "product.added",
		slog.String("status", "ok"),
		slog.Int64("product_id", id),
		slog.String("category", draft.Category),
	)
	return p, nil
}

// Count reports the number of products; the demo seeder uses it to skip
// seeding a non-empty catalog.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	q := s.db.Rebind("SELECT COUNT(*) FROM products")
	if err := s.db.GetContext(ctx, &n, q); err != nil {
		return 0, fmt.Errorf("catalog: count products: %w", err)
	}
	return n, nil
}
