package catalog_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/shopbot/shop/catalog"
	"github.com/m3rciful/shopbot/shop/shoptest"
)

func TestAddProductRoundtrip(t *testing.T) {
	store := catalog.NewStore(shoptest.OpenDB(t))
	ctx := context.Background()

	created, err := store.AddProduct(ctx, catalog.Draft{
		Name:        "Classic Tee",
		Price:       1200,
		Description: "Plain cotton tee.",
		Category:    "Apparel",
	})
	require.NoError(t, err)
	require.NotZero(t, created.ID)

	got, err := store.ProductByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, got)
}

func TestAddProductRejectsNegativePrice(t *testing.T) {
	store := catalog.NewStore(shoptest.OpenDB(t))

	_, err := store.AddProduct(context.Background(), catalog.Draft{
		Name: "Broken", Price: -1, Category: "Misc",
	})
	require.Error(t, err)
}

func TestProductByIDNotFound(t *testing.T) {
	store := catalog.NewStore(shoptest.OpenDB(t))

	_, err := store.ProductByID(context.Background(), 12345)
	assert.ErrorIs(t, err, catalog.ErrNotFound)
}

func TestCategoriesDistinctAndSorted(t *testing.T) {
	store := catalog.NewStore(shoptest.OpenDB(t))
	ctx := context.Background()

	for _, d := range []catalog.Draft{
		{Name: "Mug", Price: 700, Category: "Accessories"},
		{Name: "Tee", Price: 1200, Category: "Apparel"},
		{Name: "Hoodie", Price: 3500, Category: "Apparel"},
	} {
		_, err := store.AddProduct(ctx, d)
		require.NoError(t, err)
	}

	cats, err := store.Categories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Accessories", "Apparel"}, cats)
}

func TestProductsByCategory(t *testing.T) {
	store := catalog.NewStore(shoptest.OpenDB(t))
	ctx := context.Background()

	tee, err := store.AddProduct(ctx, catalog.Draft{Name: "Tee", Price: 1200, Category: "Apparel"})
	require.NoError(t, err)
	hoodie, err := store.AddProduct(ctx, catalog.Draft{Name: "Hoodie", Price: 3500, Category: "Apparel"})
	require.NoError(t, err)
	_, err = store.AddProduct(ctx, catalog.Draft{Name: "Mug", Price: 700, Category: "Accessories"})
	require.NoError(t, err)

	got, err := store.ProductsByCategory(ctx, "Apparel")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, tee.ID, got[0].ID)
	assert.Equal(t, hoodie.ID, got[1].ID)

	empty, err := store.ProductsByCategory(ctx, "Nope")
	require.NoError(t, err)
	assert.Empty(t, empty)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}
