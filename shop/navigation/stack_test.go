package navigation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPushPopUnwindsInOrder(t *testing.T) {
	st := NewStack()
	st.Push(1, Frame{Kind: KindCategories})
	st.Push(1, Frame{Kind: KindProducts, Category: "Apparel"})
	st.Push(1, Frame{Kind: KindProduct, Category: "Apparel", ProductID: 7})
	require.Equal(t, 3, st.Depth(1))

	f, ok := st.Pop(1)
	require.True(t, ok)
	assert.Equal(t, Frame{Kind: KindProducts, Category: "Apparel"}, f)

	f, ok = st.Pop(1)
	require.True(t, ok)
	assert.Equal(t, Frame{Kind: KindCategories}, f)

	_, ok = st.Pop(1)
	assert.False(t, ok, "last frame pops to the main menu")
	assert.Equal(t, 0, st.Depth(1))
}

func TestPopOnEmptyHistory(t *testing.T) {
	st := NewStack()
	_, ok := st.Pop(42)
	assert.False(t, ok)
}

func TestPushDeduplicatesCurrentFrame(t *testing.T) {
	st := NewStack()
	st.Push(1, Frame{Kind: KindCategories})
	st.Push(1, Frame{Kind: KindCart})
	st.Push(1, Frame{Kind: KindCart})
	st.Push(1, Frame{Kind: KindCart})
	require.Equal(t, 2, st.Depth(1))

	f, ok := st.Pop(1)
	require.True(t, ok)
	assert.Equal(t, KindCategories, f.Kind)
}

func TestSessionsAreIsolated(t *testing.T) {
	st := NewStack()
	st.Push(1, Frame{Kind: KindCategories})
	st.Push(2, Frame{Kind: KindCart})

	st.Clear(1)
	assert.Equal(t, 0, st.Depth(1))
	assert.Equal(t, 1, st.Depth(2))

	cur, ok := st.Current(2)
	require.True(t, ok)
	assert.Equal(t, KindCart, cur.Kind)
}
