package orders_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/shopbot/shop/orders"
	"github.com/m3rciful/shopbot/shop/shoptest"
)

func TestProfileUpsert(t *testing.T) {
	store := orders.NewStore(shoptest.OpenDB(t))
	ctx := context.Background()

	_, err := store.ProfileBySession(ctx, 100)
	assert.ErrorIs(t, err, orders.ErrNoProfile)

	require.NoError(t, store.UpsertProfile(ctx, 100, "Alice", "+79991234567", "Street 1"))

	p, err := store.ProfileBySession(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, "Alice", p.Name)
	assert.Equal(t, int64(100), p.SessionID)

	// Re-running the form replaces the stored data in place.
	require.NoError(t, store.UpsertProfile(ctx, 100, "Alice B", "+79990000000", "Street 2"))

	updated, err := store.ProfileBySession(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, p.ID, updated.ID)
	assert.Equal(t, "Alice B", updated.Name)
	assert.Equal(t, "+79990000000", updated.Phone)
	assert.Equal(t, "Street 2", updated.Address)
}

func placeOrder(t *testing.T, store *orders.Store, sessionID int64, total int64) int64 {
	t.Helper()
	ctx := context.Background()
	p, err := store.ProfileBySession(ctx, sessionID)
	require.NoError(t, err)
	id, err := store.CreateOrder(ctx, p, []orders.Line{
		{ProductID: 1, Name: "Tee", Price: total, Qty: 1},
	}, total)
	require.NoError(t, err)
	return id
}

func TestCreateOrderAndLoad(t *testing.T) {
	store := orders.NewStore(shoptest.OpenDB(t))
	ctx := context.Background()
	require.NoError(t, store.UpsertProfile(ctx, 100, "Alice", "+79991234567", "Street 1"))

	id := placeOrder(t, store, 100, 1200)

	o, err := store.OrderByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, orders.StatusNew, o.Status)
	assert.Equal(t, int64(1200), o.Total)
	assert.Equal(t, "Alice", o.Name)
	require.Len(t, o.Lines, 1)
	assert.Equal(t, "Tee", o.Lines[0].Name)

	_, err = store.OrderByID(ctx, id+1)
	assert.ErrorIs(t, err, orders.ErrNotFound)
}

func TestSetStatusDecidesOnce(t *testing.T) {
	store := orders.NewStore(shoptest.OpenDB(t))
	ctx := context.Background()
	require.NoError(t, store.UpsertProfile(ctx, 100, "Alice", "+79991234567", "Street 1"))
	id := placeOrder(t, store, 100, 1200)

	require.NoError(t, store.SetStatus(ctx, id, orders.StatusAccepted))

	o, err := store.OrderByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, orders.StatusAccepted, o.Status)

	// A second decision, even the opposite one, no longer applies.
	assert.ErrorIs(t, store.SetStatus(ctx, id, orders.StatusDeclined), orders.ErrNotFound)
	assert.ErrorIs(t, store.SetStatus(ctx, id+1, orders.StatusAccepted), orders.ErrNotFound)

	assert.Error(t, store.SetStatus(ctx, id, "shipped"))
}

func TestRecentOrdersNewestFirst(t *testing.T) {
	store := orders.NewStore(shoptest.OpenDB(t))
	ctx := context.Background()
	require.NoError(t, store.UpsertProfile(ctx, 100, "Alice", "+79991234567", "Street 1"))
	require.NoError(t, store.UpsertProfile(ctx, 200, "Bob", "+79995556677", "Street 9"))

	var ids []int64
	for i := 0; i < 7; i++ {
		ids = append(ids, placeOrder(t, store, 100, int64(100*(i+1))))
	}
	placeOrder(t, store, 200, 500)

	recent, err := store.RecentOrders(ctx, 100, 5)
	require.NoError(t, err)
	require.Len(t, recent, 5)
	assert.Equal(t, ids[6], recent[0].ID)
	assert.Equal(t, ids[2], recent[4].ID)
	for _, s := range recent {
		assert.NotEmpty(t, s.Lines)
	}

	none, err := store.RecentOrders(ctx, 300, 5)
	require.NoError(t, err)
	assert.Empty(t, none)
}
