package cart_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/shopbot/shop/cart"
	"github.com/m3rciful/shopbot/shop/catalog"
	"github.com/m3rciful/shopbot/shop/shoptest"
)

func newFixture(t *testing.T) (*cart.Service, *catalog.Store, []catalog.Product) {
	t.Helper()
	db := shoptest.OpenDB(t)
	cat := catalog.NewStore(db)

	ctx := context.Background()
	var products []catalog.Product
	for _, d := range []catalog.Draft{
		{Name: "Tee", Price: 1200, Category: "Apparel"},
		{Name: "Mug", Price: 700, Category: "Accessories"},
	} {
		p, err := cat.AddProduct(ctx, d)
		require.NoError(t, err)
		products = append(products, p)
	}
	return cart.NewService(cart.NewMemoryStore(), cat), cat, products
}

func TestAddAndSnapshotPreservesOrder(t *testing.T) {
	svc, _, ps := newFixture(t)
	ctx := context.Background()

	require.NoError(t, svc.Add(ctx, 1, ps[0].ID))
	require.NoError(t, svc.Add(ctx, 1, ps[1].ID))
	require.NoError(t, svc.Add(ctx, 1, ps[0].ID))

	items, err := svc.Snapshot(ctx, 1)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, ps[0].ID, items[0].Product.ID)
	assert.Equal(t, 2, items[0].Qty)
	assert.Equal(t, ps[1].ID, items[1].Product.ID)
	assert.Equal(t, 1, items[1].Qty)

	total, err := svc.Total(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2*1200+700), total)
}

func TestDecrementRemovesLineAtZero(t *testing.T) {
	svc, _, ps := newFixture(t)
	ctx := context.Background()

	require.NoError(t, svc.Add(ctx, 1, ps[0].ID))
	require.NoError(t, svc.Increment(ctx, 1, ps[0].ID))
	require.NoError(t, svc.Decrement(ctx, 1, ps[0].ID))

	items, err := svc.Snapshot(ctx, 1)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 1, items[0].Qty)

	require.NoError(t, svc.Decrement(ctx, 1, ps[0].ID))
	items, err = svc.Snapshot(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestAdjustMissingLineIsNoop(t *testing.T) {
	svc, _, ps := newFixture(t)
	ctx := context.Background()

	require.NoError(t, svc.Increment(ctx, 1, ps[0].ID))
	require.NoError(t, svc.Decrement(ctx, 1, ps[1].ID))

	items, err := svc.Snapshot(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestSnapshotSkipsVanishedProducts(t *testing.T) {
	db := shoptest.OpenDB(t)
	cat := catalog.NewStore(db)
	svc := cart.NewService(cart.NewMemoryStore(), cat)
	ctx := context.Background()

	p, err := cat.AddProduct(ctx, catalog.Draft{Name: "Tee", Price: 1200, Category: "Apparel"})
	require.NoError(t, err)
	require.NoError(t, svc.Add(ctx, 1, p.ID))

	_, err = db.Exec("DELETE FROM products WHERE id = ?", p.ID)
	require.NoError(t, err)

	items, err := svc.Snapshot(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, items)

	total, err := svc.Total(ctx, 1)
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestCartsAreIsolatedPerSession(t *testing.T) {
	svc, _, ps := newFixture(t)
	ctx := context.Background()

	require.NoError(t, svc.Add(ctx, 1, ps[0].ID))
	require.NoError(t, svc.Add(ctx, 2, ps[1].ID))
	require.NoError(t, svc.Clear(ctx, 1))

	items, err := svc.Snapshot(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, items)

	items, err = svc.Snapshot(ctx, 2)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, ps[1].ID, items[0].Product.ID)
}
