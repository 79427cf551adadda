// Package orders persists buyer profiles and order snapshots.
package orders

import (
	"errors"
	"time"
)

// Order status lifecycle: StatusNew is assigned on creation; an authorized
// reviewer moves it to exactly one of StatusAccepted or StatusDeclined.
const (
	StatusNew      = "new"
	StatusAccepted = "accepted"
	StatusDeclined = "declined"
)

var (
	// ErrNotFound is returned for unknown order ids and for status updates
	// on orders that already left the "new" state.
	ErrNotFound = errors.New("orders: order not found")
	// ErrNoProfile is returned when a session has no saved buyer profile.
	ErrNoProfile = errors.New("orders: profile not found")
)

// Profile is the last-confirmed buyer data for one session, reused to skip
// re-entry on repeat checkout.
type Profile struct {
	ID        int64  `db:"id"`
	SessionID int64  `db:"session_id"`
	Name      string `db:"name"`
	Phone     string `db:"phone"`
	Address   string `db:"address"`
}

// Line is one order line item, snapshotted at checkout time so later catalog
// edits cannot change a placed order.
type Line struct {
	ProductID int64  `db:"product_id"`
	Name      string `db:"name"`
	Price     int64  `db:"price"`
	Qty       int    `db:"qty"`
}

// Sum returns the line total.
func (l Line) Sum() int64 {
	return l.Price * int64(l.Qty)
}

// Order is an immutable snapshot of a confirmed checkout; only Status mutates.
type Order struct {
	ID        int64     `db:"id"`
	UserID    int64     `db:"user_id"`
	Name      string    `db:"name"`
	Phone     string    `db:"phone"`
	Address   string    `db:"address"`
	Total     int64     `db:"total"`
	Status    string    `db:"status"`
	CreatedAt time.Time `db:"created_at"`
	Lines     []Line
}

// Summary is the order-history projection shown to the user.
type Summary struct {
	ID        int64     `db:"id"`
	Total     int64     `db:"total"`
	Status    string    `db:"status"`
	CreatedAt time.Time `db:"created_at"`
	Lines     []Line
}
