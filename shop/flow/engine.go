// Package flow implements the storefront conversation engine. Every user
// intent is a method returning a Screen descriptor; the transport layer
// renders screens and records navigable ones in the history stack after a
// successful render.
package flow

import (
	"context"
	"sync"

	"log/slog"

	"github.com/m3rciful/shopbot/core/logger"
	"github.com/m3rciful/shopbot/core/telegram/state"
	"github.com/m3rciful/shopbot/shop/cart"
	"github.com/m3rciful/shopbot/shop/catalog"
	"github.com/m3rciful/shopbot/shop/navigation"
	"github.com/m3rciful/shopbot/shop/orders"
)

// Options configures a new Engine.
type Options struct {
	Catalog *catalog.Store
	Orders  *orders.Store
	Carts   *cart.Service
	Nav     *navigation.Stack
	Forms   state.Manager
	// AdminID is the chat id allowed to add products and review orders.
	AdminID int64
	// HistoryLimit caps the number of orders shown by History.
	HistoryLimit int
}

// Engine drives the storefront conversation. Methods are safe for
// concurrent use; events of the same session are serialized.
type Engine struct {
	catalog *catalog.Store
	orders  *orders.Store
	carts   *cart.Service
	nav     *navigation.Stack
	forms   state.Manager

	adminID      int64
	historyLimit int

	lockMu sync.Mutex
	locks  map[int64]*sync.Mutex
}

// New builds an Engine from its collaborators.
func New(opts Options) *Engine {
	limit := opts.HistoryLimit
	if limit <= 0 {
		limit = 5
	}
	return &Engine{
		catalog:      opts.Catalog,
		orders:       opts.Orders,
		carts:        opts.Carts,
		nav:          opts.Nav,
		forms:        opts.Forms,
		adminID:      opts.AdminID,
		historyLimit: limit,
		locks:        make(map[int64]*sync.Mutex),
	}
}

// lockSession serializes events of one session. Interleaved updates from
// the same chat otherwise race on the cart document and the form state.
func (e *Engine) lockSession(sessionID int64) func() {
	e.lockMu.Lock()
	mu, ok := e.locks[sessionID]
	if !ok {
		mu = &sync.Mutex{}
		e.locks[sessionID] = mu
	}
	e.lockMu.Unlock()
	mu.Lock()
	return mu.Unlock
}

// Present renders a screen via the supplied callback and, on success,
// notes it in the session's navigation history. Render and push happen
// under the session lock, so the stack top always matches the message the
// user last saw. Non-navigable screens render without being recorded;
// re-recording the current frame is a no-op, so replays do not grow the
// stack. A failed render leaves the history untouched.
func (e *Engine) Present(sessionID int64, s Screen, render func() error) error {
	unlock := e.lockSession(sessionID)
	defer unlock()

	if err := render(); err != nil {
		return err
	}
	if frame, ok := s.Frame(); ok {
		e.nav.Push(sessionID, frame)
	}
	return nil
}

// IsAdmin reports whether the session belongs to the configured admin.
func (e *Engine) IsAdmin(sessionID int64) bool {
	return sessionID == e.adminID
}

// Start resets the session to the main menu: navigation history and any
// in-flight form are discarded. The cart survives.
func (e *Engine) Start(ctx context.Context, sessionID int64) (Screen, error) {
	unlock := e.lockSession(sessionID)
	defer unlock()

	e.nav.Clear(sessionID)
	e.forms.Clear(sessionID)
	return Screen{Kind: ScreenHome}, nil
}

// Home returns to the main menu, dropping navigation history and any
// in-flight form.
func (e *Engine) Home(ctx context.Context, sessionID int64) (Screen, error) {
	return e.Start(ctx, sessionID)
}

// Categories lists the catalog categories.
func (e *Engine) Categories(ctx context.Context, sessionID int64) (Screen, error) {
	unlock := e.lockSession(sessionID)
	defer unlock()
	return e.categories(ctx)
}

func (e *Engine) categories(ctx context.Context) (Screen, error) {
	cats, err := e.catalog.Categories(ctx)
	if err != nil {
		return Screen{}, err
	}
	if len(cats) == 0 {
		return Screen{Kind: ScreenNotice, Notice: NoticeCatalogEmpty}, nil
	}
	return Screen{Kind: ScreenCategories, Categories: cats}, nil
}

// ProductsIn lists the products of one category.
func (e *Engine) ProductsIn(ctx context.Context, sessionID int64, category string) (Screen, error) {
	unlock := e.lockSession(sessionID)
	defer unlock()
	return e.productsIn(ctx, category)
}

func (e *Engine) productsIn(ctx context.Context, category string) (Screen, error) {
	products, err := e.catalog.ProductsByCategory(ctx, category)
	if err != nil {
		return Screen{}, err
	}
	if len(products) == 0 {
		return Screen{Kind: ScreenNotice, Notice: NoticeCategoryEmpty}, nil
	}
	return Screen{Kind: ScreenProducts, Category: category, Products: products}, nil
}

// Product shows a single product card. Category is carried along so Back
// from the card returns to the right listing.
func (e *Engine) Product(ctx context.Context, sessionID, productID int64, category string) (Screen, error) {
	unlock := e.lockSession(sessionID)
	defer unlock()
	return e.product(ctx, productID, category)
}

func (e *Engine) product(ctx context.Context, productID int64, category string) (Screen, error) {
	p, err := e.catalog.ProductByID(ctx, productID)
	if err != nil {
		if err == catalog.ErrNotFound {
			return Screen{}, ErrNotFound
		}
		return Screen{}, err
	}
	if category == "" {
		category = p.Category
	}
	return Screen{Kind: ScreenProduct, Product: p, Category: category}, nil
}

// AddToCart puts one unit of the product into the cart. The product must
// still exist in the catalog.
func (e *Engine) AddToCart(ctx context.Context, sessionID, productID int64) (Screen, error) {
	unlock := e.lockSession(sessionID)
	defer unlock()

	if _, err := e.catalog.ProductByID(ctx, productID); err != nil {
		if err == catalog.ErrNotFound {
			return Screen{}, ErrNotFound
		}
		return Screen{}, err
	}
	if err := e.carts.Add(ctx, sessionID, productID); err != nil {
		return Screen{}, err
	}
	logger.Debug(ctx, "service.cart", "cart.item.added",
		slog.Int64("user_id", sessionID),
		slog.Int64("product_id", productID),
	)
	return Screen{Kind: ScreenNotice, Notice: NoticeAddedToCart}, nil
}

// Cart shows the cart contents. An empty cart still yields a cart screen;
// the renderer shows the empty state.
func (e *Engine) Cart(ctx context.Context, sessionID int64) (Screen, error) {
	unlock := e.lockSession(sessionID)
	defer unlock()
	return e.cartScreen(ctx, sessionID)
}

func (e *Engine) cartScreen(ctx context.Context, sessionID int64) (Screen, error) {
	items, err := e.carts.Snapshot(ctx, sessionID)
	if err != nil {
		return Screen{}, err
	}
	var total int64
	for _, it := range items {
		total += it.Sum()
	}
	return Screen{Kind: ScreenCart, Items: items, Total: total}, nil
}

// AdjustQuantity changes a cart line by one unit in either direction and
// returns the refreshed cart screen. Dropping to zero removes the line.
func (e *Engine) AdjustQuantity(ctx context.Context, sessionID, productID int64, delta int) (Screen, error) {
	unlock := e.lockSession(sessionID)
	defer unlock()

	var err error
	if delta > 0 {
		err = e.carts.Increment(ctx, sessionID, productID)
	} else {
		err = e.carts.Decrement(ctx, sessionID, productID)
	}
	if err != nil {
		return Screen{}, err
	}
	logger.Debug(ctx, "service.cart", "cart.item.adjusted",
		slog.Int64("user_id", sessionID),
		slog.Int64("product_id", productID),
		slog.Int("delta", delta),
	)
	return e.cartScreen(ctx, sessionID)
}

// History lists the session's most recent orders, newest first.
func (e *Engine) History(ctx context.Context, sessionID int64) (Screen, error) {
	unlock := e.lockSession(sessionID)
	defer unlock()
	return e.history(ctx, sessionID)
}

func (e *Engine) history(ctx context.Context, sessionID int64) (Screen, error) {
	recent, err := e.orders.RecentOrders(ctx, sessionID, e.historyLimit)
	if err != nil {
		return Screen{}, err
	}
	return Screen{Kind: ScreenHistory, Orders: recent}, nil
}

// Back pops the current frame and re-renders the one below it. With fewer
// than two frames the history is cleared and the main menu is shown.
func (e *Engine) Back(ctx context.Context, sessionID int64) (Screen, error) {
	unlock := e.lockSession(sessionID)
	defer unlock()

	frame, ok := e.nav.Pop(sessionID)
	if !ok {
		return Screen{Kind: ScreenHome}, nil
	}
	return e.replay(ctx, sessionID, frame)
}

// replay rebuilds the screen a frame describes from current data. Frames
// whose subject has since disappeared, and unknown frame kinds, fall back
// to the main menu.
func (e *Engine) replay(ctx context.Context, sessionID int64, frame navigation.Frame) (Screen, error) {
	switch frame.Kind {
	case navigation.KindCategories:
		return e.categories(ctx)
	case navigation.KindProducts:
		return e.productsIn(ctx, frame.Category)
	case navigation.KindProduct:
		s, err := e.product(ctx, frame.ProductID, frame.Category)
		if err == ErrNotFound {
			e.nav.Clear(sessionID)
			return Screen{Kind: ScreenHome}, nil
		}
		return s, err
	case navigation.KindCart:
		return e.cartScreen(ctx, sessionID)
	case navigation.KindCheckout:
		return e.checkout(ctx, sessionID)
	case navigation.KindHistory:
		return e.history(ctx, sessionID)
	}
	e.nav.Clear(sessionID)
	return Screen{Kind: ScreenHome}, nil
}
