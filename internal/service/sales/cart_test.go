package sales

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/comedor/internal/domain/apperr"
	"github.com/mamadbah2/comedor/internal/domain/models"
)

func TestCartRemoveAndClear(t *testing.T) {
	store := NewCartStore()
	cart := store.Create()

	_, err := store.AddItem(cart.ID, models.NewSaleItem("a", "Pan", 1, dec("10"), dec("4")))
	require.NoError(t, err)
	_, err = store.AddItem(cart.ID, models.NewSaleItem("b", "Sopa", 2, dec("5"), dec("2")))
	require.NoError(t, err)

	got, err := store.RemoveItem(cart.ID, 0)
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "b", got.Items[0].DishID)
	assert.True(t, got.TotalAmount.Equal(dec("10")))

	_, err = store.RemoveItem(cart.ID, 5)
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	got, err = store.Clear(cart.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Items)
	assert.True(t, got.TotalAmount.IsZero())
}

func TestCartDeleteRespectsBusyFlag(t *testing.T) {
	store := NewCartStore()
	cart := store.Create()

	_, err := store.acquire(cart.ID)
	require.NoError(t, err)
	assert.ErrorIs(t, store.Delete(cart.ID), ErrSaleInFlight)

	store.release(cart.ID, false)
	require.NoError(t, store.Delete(cart.ID))

	_, err = store.Get(cart.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}
