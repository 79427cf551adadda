package flow_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/shopbot/core/telegram/state"
	"github.com/m3rciful/shopbot/shop/cart"
	"github.com/m3rciful/shopbot/shop/catalog"
	"github.com/m3rciful/shopbot/shop/flow"
	"github.com/m3rciful/shopbot/shop/navigation"
	"github.com/m3rciful/shopbot/shop/orders"
	"github.com/m3rciful/shopbot/shop/shoptest"
)

const (
	adminID = int64(99)
	buyerID = int64(7)
)

type fixture struct {
	engine  *flow.Engine
	catalog *catalog.Store
	orders  *orders.Store
	nav     *navigation.Stack
	forms   state.Manager
	db      *sqlx.DB
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := shoptest.OpenDB(t)
	cat := catalog.NewStore(db)
	ord := orders.NewStore(db)
	nav := navigation.NewStack()
	forms := state.NewMemoryManager()
	eng := flow.New(flow.Options{
		Catalog:      cat,
		Orders:       ord,
		Carts:        cart.NewService(cart.NewMemoryStore(), cat),
		Nav:          nav,
		Forms:        forms,
		AdminID:      adminID,
		HistoryLimit: 5,
	})
	return &fixture{engine: eng, catalog: cat, orders: ord, nav: nav, forms: forms, db: db}
}

func (f *fixture) seed(t *testing.T, drafts ...catalog.Draft) []catalog.Product {
	t.Helper()
	var out []catalog.Product
	for _, d := range drafts {
		p, err := f.catalog.AddProduct(context.Background(), d)
		require.NoError(t, err)
		out = append(out, p)
	}
	return out
}

// show mimics the transport layer: present the screen with a render that
// always succeeds, so navigable screens land in the history.
func (f *fixture) show(t *testing.T, fn func(context.Context, int64) (flow.Screen, error)) flow.Screen {
	t.Helper()
	s, err := fn(context.Background(), buyerID)
	require.NoError(t, err)
	require.NoError(t, f.engine.Present(buyerID, s, func() error { return nil }))
	return s
}

func TestBrowseAndBackUnwinds(t *testing.T) {
	f := newFixture(t)
	ps := f.seed(t,
		catalog.Draft{Name: "Tee", Price: 1200, Category: "Apparel"},
		catalog.Draft{Name: "Hoodie", Price: 3500, Category: "Apparel"},
	)
	s := f.show(t, f.engine.Categories)
	assert.Equal(t, flow.ScreenCategories, s.Kind)
	assert.Equal(t, []string{"Apparel"}, s.Categories)

	s = f.show(t, func(ctx context.Context, sid int64) (flow.Screen, error) {
		return f.engine.ProductsIn(ctx, sid, "Apparel")
	})
	assert.Equal(t, flow.ScreenProducts, s.Kind)
	assert.Len(t, s.Products, 2)

	s = f.show(t, func(ctx context.Context, sid int64) (flow.Screen, error) {
		return f.engine.Product(ctx, sid, ps[0].ID, "Apparel")
	})
	assert.Equal(t, flow.ScreenProduct, s.Kind)
	assert.Equal(t, "Tee", s.Product.Name)

	s = f.show(t, f.engine.Back)
	assert.Equal(t, flow.ScreenProducts, s.Kind)
	assert.Equal(t, "Apparel", s.Category)

	s = f.show(t, f.engine.Back)
	assert.Equal(t, flow.ScreenCategories, s.Kind)

	s = f.show(t, f.engine.Back)
	assert.Equal(t, flow.ScreenHome, s.Kind)
}

func TestPresentingSameScreenTwiceDoesNotGrowHistory(t *testing.T) {
	f := newFixture(t)
	f.seed(t, catalog.Draft{Name: "Tee", Price: 1200, Category: "Apparel"})

	f.show(t, f.engine.Categories)
	s := f.show(t, func(ctx context.Context, sid int64) (flow.Screen, error) {
		return f.engine.ProductsIn(ctx, sid, "Apparel")
	})
	// A replayed render presents the same frame again.
	require.NoError(t, f.engine.Present(buyerID, s, func() error { return nil }))
	require.NoError(t, f.engine.Present(buyerID, s, func() error { return nil }))

	s = f.show(t, f.engine.Back)
	assert.Equal(t, flow.ScreenCategories, s.Kind)
}

func TestPresentFailedRenderLeavesHistoryUntouched(t *testing.T) {
	f := newFixture(t)
	f.seed(t, catalog.Draft{Name: "Tee", Price: 1200, Category: "Apparel"})

	f.show(t, f.engine.Categories)
	depth := f.nav.Depth(buyerID)

	s, err := f.engine.ProductsIn(context.Background(), buyerID, "Apparel")
	require.NoError(t, err)
	renderErr := errors.New("telegram: 502")
	err = f.engine.Present(buyerID, s, func() error { return renderErr })
	assert.ErrorIs(t, err, renderErr)

	assert.Equal(t, depth, f.nav.Depth(buyerID))
	top, ok := f.nav.Current(buyerID)
	require.True(t, ok)
	assert.Equal(t, navigation.KindCategories, top.Kind)
}

func TestPresentKeepsHistoryInStepWithRenders(t *testing.T) {
	f := newFixture(t)
	f.seed(t, catalog.Draft{Name: "Tee", Price: 1200, Category: "Apparel"})
	ctx := context.Background()

	cats, err := f.engine.Categories(ctx, buyerID)
	require.NoError(t, err)
	prods, err := f.engine.ProductsIn(ctx, buyerID, "Apparel")
	require.NoError(t, err)

	// Renders append under their own lock; the session lock spans the
	// render and the push, so the order of appends is the order of pushes.
	var mu sync.Mutex
	var rendered []flow.Screen
	present := func(s flow.Screen) {
		_ = f.engine.Present(buyerID, s, func() error {
			mu.Lock()
			rendered = append(rendered, s)
			mu.Unlock()
			return nil
		})
	}

	var wg sync.WaitGroup
	for i := 0; i < 25; i++ {
		wg.Add(2)
		go func() { defer wg.Done(); present(cats) }()
		go func() { defer wg.Done(); present(prods) }()
	}
	wg.Wait()

	require.Len(t, rendered, 50)
	frame, ok := rendered[len(rendered)-1].Frame()
	require.True(t, ok)
	top, ok := f.nav.Current(buyerID)
	require.True(t, ok)
	assert.Equal(t, frame, top)
}

func TestConcurrentAdjustKeepsQuantityExact(t *testing.T) {
	f := newFixture(t)
	ps := f.seed(t, catalog.Draft{Name: "Tee", Price: 1200, Category: "Apparel"})
	ctx := context.Background()

	// Seed the line high enough that no decrement can empty it mid-run;
	// balanced adjustments must then cancel out exactly.
	for i := 0; i < 51; i++ {
		_, err := f.engine.AddToCart(ctx, buyerID, ps[0].ID)
		require.NoError(t, err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := f.engine.AdjustQuantity(ctx, buyerID, ps[0].ID, 1)
			assert.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			_, err := f.engine.AdjustQuantity(ctx, buyerID, ps[0].ID, -1)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	s, err := f.engine.Cart(ctx, buyerID)
	require.NoError(t, err)
	require.Len(t, s.Items, 1)
	assert.Equal(t, 51, s.Items[0].Qty)
}

func TestConcurrentDecrementNeverGoesNegative(t *testing.T) {
	f := newFixture(t)
	ps := f.seed(t, catalog.Draft{Name: "Tee", Price: 1200, Category: "Apparel"})
	ctx := context.Background()

	_, err := f.engine.AddToCart(ctx, buyerID, ps[0].ID)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s, err := f.engine.AdjustQuantity(ctx, buyerID, ps[0].ID, -1)
			assert.NoError(t, err)
			for _, it := range s.Items {
				assert.Greater(t, it.Qty, 0)
			}
		}()
	}
	wg.Wait()

	s, err := f.engine.Cart(ctx, buyerID)
	require.NoError(t, err)
	assert.Empty(t, s.Items)
}

func TestBackFromVanishedProductFallsHome(t *testing.T) {
	f := newFixture(t)
	ps := f.seed(t, catalog.Draft{Name: "Tee", Price: 1200, Category: "Apparel"})
	ctx := context.Background()

	f.show(t, f.engine.Categories)
	f.show(t, func(ctx context.Context, sid int64) (flow.Screen, error) {
		return f.engine.Product(ctx, sid, ps[0].ID, "Apparel")
	})
	f.show(t, f.engine.Cart)

	_, err := f.db.Exec("DELETE FROM products WHERE id = ?", ps[0].ID)
	require.NoError(t, err)

	s, err := f.engine.Back(ctx, buyerID)
	require.NoError(t, err)
	assert.Equal(t, flow.ScreenHome, s.Kind)
}

func TestAddToCartUnknownProduct(t *testing.T) {
	f := newFixture(t)
	_, err := f.engine.AddToCart(context.Background(), buyerID, 12345)
	assert.ErrorIs(t, err, flow.ErrNotFound)
}

func TestCheckoutWithEmptyCart(t *testing.T) {
	f := newFixture(t)
	_, err := f.engine.Checkout(context.Background(), buyerID)
	assert.ErrorIs(t, err, flow.ErrEmptyCart)
}

func TestCheckoutFormHappyPath(t *testing.T) {
	f := newFixture(t)
	ps := f.seed(t, catalog.Draft{Name: "Tee", Price: 1200, Category: "Apparel"})
	ctx := context.Background()

	s, err := f.engine.AddToCart(ctx, buyerID, ps[0].ID)
	require.NoError(t, err)
	assert.Equal(t, flow.NoticeAddedToCart, s.Notice)

	s, err = f.engine.Checkout(ctx, buyerID)
	require.NoError(t, err)
	require.Equal(t, flow.ScreenPrompt, s.Kind)
	assert.Equal(t, flow.PromptName, s.Prompt)

	s, err = f.engine.SubmitText(ctx, buyerID, "Alice")
	require.NoError(t, err)
	assert.Equal(t, flow.PromptPhone, s.Prompt)

	// Invalid numbers re-prompt without advancing the form.
	for _, bad := range []string{"12345", "+7999123456", "+7999123456789", "+89991234567"} {
		s, err = f.engine.SubmitText(ctx, buyerID, bad)
		require.NoError(t, err)
		assert.Equal(t, flow.PromptPhone, s.Prompt)
		assert.True(t, s.Invalid, "number %q must be rejected", bad)
	}

	s, err = f.engine.SubmitText(ctx, buyerID, "+79991234567")
	require.NoError(t, err)
	assert.Equal(t, flow.PromptAddress, s.Prompt)
	assert.False(t, s.Invalid)

	s, err = f.engine.SubmitText(ctx, buyerID, "Street 1")
	require.NoError(t, err)
	require.Equal(t, flow.ScreenConfirm, s.Kind)
	assert.Equal(t, "Alice", s.Profile.Name)
	assert.Equal(t, "+79991234567", s.Profile.Phone)
	require.Len(t, s.Items, 1)
	assert.Equal(t, int64(1200), s.Total)

	placed, ping, err := f.engine.ConfirmOrder(ctx, buyerID)
	require.NoError(t, err)
	require.NotNil(t, ping)
	assert.Equal(t, flow.ScreenOrderPlaced, placed.Kind)
	assert.Equal(t, ping.OrderID, placed.OrderID)
	assert.Equal(t, int64(1200), ping.Total)
	assert.Equal(t, "Alice", ping.Profile.Name)

	// The cart is consumed by the successful order.
	cartScreen, err := f.engine.Cart(ctx, buyerID)
	require.NoError(t, err)
	assert.Empty(t, cartScreen.Items)

	history, err := f.engine.History(ctx, buyerID)
	require.NoError(t, err)
	require.Len(t, history.Orders, 1)
	assert.Equal(t, ping.OrderID, history.Orders[0].ID)
	assert.Equal(t, orders.StatusNew, history.Orders[0].Status)
}

func TestCheckoutOffersSavedProfile(t *testing.T) {
	f := newFixture(t)
	ps := f.seed(t, catalog.Draft{Name: "Tee", Price: 1200, Category: "Apparel"})
	ctx := context.Background()

	require.NoError(t, f.orders.UpsertProfile(ctx, buyerID, "Alice", "+79991234567", "Street 1"))
	_, err := f.engine.AddToCart(ctx, buyerID, ps[0].ID)
	require.NoError(t, err)

	s, err := f.engine.Checkout(ctx, buyerID)
	require.NoError(t, err)
	require.Equal(t, flow.ScreenCheckout, s.Kind)
	assert.Equal(t, "Alice", s.Profile.Name)

	s, err = f.engine.UseSavedProfile(ctx, buyerID)
	require.NoError(t, err)
	assert.Equal(t, flow.ScreenConfirm, s.Kind)

	// Re-entering the data is always possible.
	s, err = f.engine.EditProfile(ctx, buyerID)
	require.NoError(t, err)
	assert.Equal(t, flow.PromptName, s.Prompt)
}

func TestConfirmOrderWithEmptyCart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.orders.UpsertProfile(ctx, buyerID, "Alice", "+79991234567", "Street 1"))
	f.show(t, f.engine.Cart)

	_, _, err := f.engine.ConfirmOrder(ctx, buyerID)
	assert.ErrorIs(t, err, flow.ErrEmptyCart)

	// The rejected confirm disturbs neither the history nor any form.
	assert.Equal(t, 1, f.nav.Depth(buyerID))
	top, ok := f.nav.Current(buyerID)
	require.True(t, ok)
	assert.Equal(t, navigation.KindCart, top.Kind)
	assert.False(t, f.forms.InProgress(buyerID))
}

func TestConfirmOrderWithoutProfile(t *testing.T) {
	f := newFixture(t)
	s, ping, err := f.engine.ConfirmOrder(context.Background(), buyerID)
	require.NoError(t, err)
	assert.Nil(t, ping)
	assert.Equal(t, flow.NoticeProfileMissing, s.Notice)
}

func TestReviewRequiresAdmin(t *testing.T) {
	f := newFixture(t)
	_, err := f.engine.Review(context.Background(), buyerID, 1, true)
	assert.ErrorIs(t, err, flow.ErrUnauthorized)
}

func TestReviewDecidesOnce(t *testing.T) {
	f := newFixture(t)
	ps := f.seed(t, catalog.Draft{Name: "Tee", Price: 1200, Category: "Apparel"})
	ctx := context.Background()

	require.NoError(t, f.orders.UpsertProfile(ctx, buyerID, "Alice", "+79991234567", "Street 1"))
	_, err := f.engine.AddToCart(ctx, buyerID, ps[0].ID)
	require.NoError(t, err)
	_, ping, err := f.engine.ConfirmOrder(ctx, buyerID)
	require.NoError(t, err)

	s, err := f.engine.Review(ctx, adminID, ping.OrderID, true)
	require.NoError(t, err)
	assert.Equal(t, flow.ScreenReviewed, s.Kind)
	assert.Equal(t, orders.StatusAccepted, s.Decision)

	_, err = f.engine.Review(ctx, adminID, ping.OrderID, false)
	assert.ErrorIs(t, err, flow.ErrNotFound)
}

func TestProductEntryRequiresAdmin(t *testing.T) {
	f := newFixture(t)
	_, err := f.engine.BeginProductEntry(context.Background(), buyerID)
	assert.ErrorIs(t, err, flow.ErrUnauthorized)
}

func TestProductEntryFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	s, err := f.engine.BeginProductEntry(ctx, adminID)
	require.NoError(t, err)
	assert.Equal(t, flow.PromptProductName, s.Prompt)

	s, err = f.engine.SubmitText(ctx, adminID, "Widget")
	require.NoError(t, err)
	assert.Equal(t, flow.PromptProductDesc, s.Prompt)

	s, err = f.engine.SubmitText(ctx, adminID, "A fine widget.")
	require.NoError(t, err)
	assert.Equal(t, flow.PromptProductPrice, s.Prompt)

	for _, bad := range []string{"abc", "-5", "12.50", ""} {
		s, err = f.engine.SubmitText(ctx, adminID, bad)
		require.NoError(t, err)
		assert.Equal(t, flow.PromptProductPrice, s.Prompt)
		assert.True(t, s.Invalid, "price %q must be rejected", bad)
	}

	s, err = f.engine.SubmitText(ctx, adminID, "500")
	require.NoError(t, err)
	assert.Equal(t, flow.PromptProductCategory, s.Prompt)

	s, err = f.engine.SubmitText(ctx, adminID, "Tools")
	require.NoError(t, err)
	assert.Equal(t, flow.PromptProductPhoto, s.Prompt)

	// The token is case-insensitive.
	s, err = f.engine.SubmitText(ctx, adminID, "NONE")
	require.NoError(t, err)
	require.Equal(t, flow.NoticeProductAdded, s.Notice)
	assert.Equal(t, "Widget", s.Product.Name)
	assert.Equal(t, int64(500), s.Product.Price)
	assert.Empty(t, s.Product.ImageRef)

	got, err := f.catalog.ProductsByCategory(ctx, "Tools")
	require.NoError(t, err)
	require.Len(t, got, 1)
}

func TestProductEntryWithPhoto(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.engine.BeginProductEntry(ctx, adminID)
	require.NoError(t, err)
	for _, step := range []string{"Widget", "A fine widget.", "500", "Tools"} {
		_, err = f.engine.SubmitText(ctx, adminID, step)
		require.NoError(t, err)
	}

	s, err := f.engine.SubmitPhoto(ctx, adminID, "file-id-123")
	require.NoError(t, err)
	require.Equal(t, flow.NoticeProductAdded, s.Notice)
	assert.Equal(t, "file-id-123", s.Product.ImageRef)
}

func TestSubmitPhotoOutsideFormIsIgnored(t *testing.T) {
	f := newFixture(t)
	s, err := f.engine.SubmitPhoto(context.Background(), buyerID, "file-id-123")
	require.NoError(t, err)
	assert.Equal(t, flow.ScreenNone, s.Kind)
}

func TestSubmitTextOutsideFormIsIgnored(t *testing.T) {
	f := newFixture(t)
	s, err := f.engine.SubmitText(context.Background(), buyerID, "hello")
	require.NoError(t, err)
	assert.Equal(t, flow.ScreenNone, s.Kind)
}
