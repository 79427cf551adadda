package orders

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

// Store persists users and orders through sqlx.
type Store struct {
	db *sqlx.DB
}

// NewStore wraps the shared database handle.
func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// ProfileBySession returns the saved buyer profile for a session, or
// ErrNoProfile when the user never completed a checkout form.
func (s *Store) ProfileBySession(ctx context.Context, sessionID int64) (Profile, error) {
	var p Profile
	q := s.db.Rebind("SELECT id, session_id, name, phone, address FROM users WHERE session_id = ?")
	if err := s.db.GetContext(ctx, &p, q, sessionID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Profile{}, ErrNoProfile
		}
		return Profile{}, fmt.Errorf("orders: get profile %d: %w", sessionID, err)
	}
	return p, nil
}

// UpsertProfile saves or replaces the buyer data for a session.
func (s *Store) UpsertProfile(ctx context.Context, sessionID int64, name, phone, address string) error {
	res, err := s.db.ExecContext(ctx,
		s.db.Rebind("UPDATE users SET name = ?, phone = ?, address = ? WHERE session_id = ?"),
		name, phone, address, sessionID,
	)
	if err != nil {
		return fmt.Errorf("orders: update profile %d: %w", sessionID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		logger.Debug(ctx, "service.orders", "profile.updated",
			slog.String("status", "ok"),
			slog.Int64("user_id", sessionID),
		)
		return nil
	}
	if _, err := s.db.ExecContext(ctx,
		s.db.Rebind("INSERT INTO users (session_id, name, phone, address) VALUES (?, ?, ?, ?)"),
		sessionID, name, phone, address,
	); err != nil {
		return fmt.Errorf("orders: insert profile %d: %w", sessionID, err)
	}
	logger.Debug(ctx, "service.orders", "profile.created",
		slog.String("status", "ok"),
		slog.Int64("user_id", sessionID),
	)
	return nil
}

// CreateOrder persists an order snapshot with its lines in one transaction
// and returns the store-assigned order id. The order starts in StatusNew.
func (s *Store) CreateOrder(ctx context.Context, profile Profile, lines []Line, total int64) (int64, error) {
	if len(lines) == 0 {
		return 0, fmt.Errorf("orders: empty line list")
	}
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("orders: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var orderID int64
	q := tx.Rebind(`INSERT INTO orders (user_id, name, phone, address, total, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?) RETURNING id`)
	if err := tx.QueryRowxContext(ctx, q,
		profile.ID, profile.Name, profile.Phone, profile.Address,
		total, StatusNew, time.Now().UTC(),
	).Scan(&orderID); err != nil {
		return 0, fmt.Errorf("orders: insert order: %w", err)
	}

	itemQ := tx.Rebind(`INSERT INTO order_items (order_id, product_id, name, price, qty)
		VALUES (?, ?, ?, ?, ?)`)
	for _, l := range lines {
		if _, err := tx.ExecContext(ctx, itemQ, orderID, l.ProductID, l.Name, l.Price, l.Qty); err != nil {
			return 0, fmt.Errorf("orders: insert line %d: %w", l.ProductID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("orders: commit order: %w", err)
	}
	logger.Info(ctx, "service.orders", "order.created",
		slog.String("status", "ok"),
		slog.Int64("order_id", orderID),
		slog.Int("items", len(lines)),
		slog.Int64("total", total),
	)
	return orderID, nil
}

// RecentOrders returns the newest orders of a session, most recent first.
// A session without a profile has no orders by construction.
func (s *Store) RecentOrders(ctx context.Context, sessionID int64, limit int) ([]Summary, error) {
	if limit <= 0 {
		limit = 5
	}
	var summaries []Summary
	q := s.db.Rebind(`SELECT o.id, o.total, o.status, o.created_at
		FROM orders o JOIN users u ON u.id = o.user_id
		WHERE u.session_id = ? ORDER BY o.id DESC LIMIT ?`)
	if err := s.db.SelectContext(ctx, &summaries, q, sessionID, limit); err != nil {
		return nil, fmt.Errorf("orders: recent for %d: %w", sessionID, err)
	}
	lineQ := s.db.Rebind(`SELECT product_id, name, price, qty FROM order_items
		WHERE order_id = ? ORDER BY id`)
	for i := range summaries {
		if err := s.db.SelectContext(ctx, &summaries[i].Lines, lineQ, summaries[i].ID); err != nil {
			return nil, fmt.Errorf("orders: lines for %d: %w", summaries[i].ID, err)
		}
	}
	return summaries, nil
}

// OrderByID loads one order with its lines.
func (s *Store) OrderByID(ctx context.Context, orderID int64) (Order, error) {
	var o Order
	q := s.db.Rebind(`SELECT id, user_id, name, phone, address, total, status, created_at
		FROM orders WHERE id = ?`)
	if err := s.db.GetContext(ctx, &o, q, orderID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Order{}, ErrNotFound
		}
		return Order{}, fmt.Errorf("orders: get order %d: %w", orderID, err)
	}
	lineQ := s.db.Rebind(`SELECT product_id, name, price, qty FROM order_items
		WHERE order_id = ? ORDER BY id`)
	if err := s.db.SelectContext(ctx, &o.Lines, lineQ, orderID); err != nil {
		return Order{}, fmt.Errorf("orders: lines for %d: %w", orderID, err)
	}
	return o, nil
}

// SetStatus performs the terminal New -> Accepted|Declined transition.
// It fails with ErrNotFound when the order does not exist or was already
// decided, so a double tap on the review buttons cannot flip a decision.
func (s *Store) SetStatus(ctx context.Context, orderID int64, status string) error {
	if status != StatusAccepted && status != StatusDeclined {
		return fmt.Errorf("orders: invalid status %q", status)
	}
	res, err := s.db.ExecContext(ctx,
		s.db.Rebind("UPDATE orders SET status = ? WHERE id = ? AND status = ?"),
		status, orderID, StatusNew,
	)
	if err != nil {
		return fmt.Errorf("orders: set status %d: %w", orderID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("orders: rows affected %d: %w", orderID, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	logger.Info(ctx, "service.orders", "order.status",
		slog.String("status", "ok"),
		slog.Int64("order_id", orderID),
		slog.String("outcome", "ok"),
		slog.String("order_status", status),
	)
	return nil
}
