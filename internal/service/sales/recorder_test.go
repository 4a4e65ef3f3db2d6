package sales

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/comedor/internal/domain/apperr"
	"github.com/mamadbah2/comedor/internal/domain/models"
	"github.com/mamadbah2/comedor/internal/service/notify"
)

func dec(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func priceOf(v string) *decimal.Decimal {
	d := dec(v)
	return &d
}

type collected struct {
	mu   sync.Mutex
	seen []models.Notification
}

func (c *collected) Notify(_ context.Context, n models.Notification) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seen = append(c.seen, n)
}

type fixture struct {
	recorder *Recorder
	sales    *memSales
	ledger   *fakeLedger
	notes    *collected
}

func newFixture() fixture {
	dishes := dishMap{
		"bread": {ID: "bread", Name: "Pan", Price: dec("50"), Cost: dec("20"), Profit: dec("30")},
		"soup":  {ID: "soup", Name: "Sopa", Price: dec("15"), Cost: dec("6.5"), Profit: dec("8.5")},
	}
	f := fixture{sales: newMemSales(), ledger: &fakeLedger{}, notes: &collected{}}
	f.recorder = NewRecorder(nil, f.sales, dishes, f.ledger, notify.Multi{f.notes}, time.UTC, nil)
	f.recorder.now = func() time.Time { return time.Date(2026, 3, 14, 12, 30, 0, 0, time.UTC) }
	return f
}

func TestBreadSaleCreditsLedger(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	cart := f.recorder.Carts().Create()

	_, err := f.recorder.AddToCart(ctx, cart.ID, AddItemInput{DishID: "bread", Quantity: 3, Price: priceOf("50")})
	require.NoError(t, err)

	sale, err := f.recorder.Finalize(ctx, cart.ID)
	require.NoError(t, err)

	assert.True(t, sale.TotalAmount.Equal(dec("150")))
	assert.True(t, sale.TotalCost.Equal(dec("60")))
	assert.True(t, sale.TotalProfit.Equal(dec("90")))
	assert.Equal(t, models.SaleStatusActive, sale.Status)
	assert.True(t, f.ledger.capital.Equal(dec("60")))
	assert.True(t, f.ledger.profit.Equal(dec("90")))

	after, err := f.recorder.Carts().Get(cart.ID)
	require.NoError(t, err)
	assert.Empty(t, after.Items)

	require.Len(t, f.notes.seen, 2)
	assert.Equal(t, models.NotificationSaleRecorded, f.notes.seen[0].Kind)
	assert.Equal(t, models.NotificationComanda, f.notes.seen[1].Kind)
	assert.Equal(t, "3x Pan", f.notes.seen[1].Message)
	assert.Equal(t, "Nueva comanda #"+sale.Number(), f.notes.seen[1].Title)
}

func TestAddToCartMergesByDish(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	cart := f.recorder.Carts().Create()

	_, err := f.recorder.AddToCart(ctx, cart.ID, AddItemInput{DishID: "bread", Quantity: 1})
	require.NoError(t, err)
	_, err = f.recorder.AddToCart(ctx, cart.ID, AddItemInput{DishID: "soup", Quantity: 2})
	require.NoError(t, err)
	got, err := f.recorder.AddToCart(ctx, cart.ID, AddItemInput{DishID: "bread", Quantity: 2, Price: priceOf("45")})
	require.NoError(t, err)

	require.Len(t, got.Items, 2)
	bread := got.Items[0]
	assert.Equal(t, 3, bread.Quantity)
	assert.True(t, bread.Price.Equal(dec("45")))
	assert.True(t, bread.TotalPrice.Equal(dec("135")))
	assert.True(t, bread.TotalCost.Equal(dec("60")))
	assert.True(t, bread.Profit.Equal(dec("75")))
	assert.True(t, got.TotalAmount.Equal(dec("165")))
	assert.True(t, got.TotalCost.Equal(dec("73")))
}

func TestAddToCartDefaultsToCatalogPrice(t *testing.T) {
	f := newFixture()
	cart := f.recorder.Carts().Create()

	got, err := f.recorder.AddToCart(context.Background(), cart.ID, AddItemInput{DishID: "soup", Quantity: 1})
	require.NoError(t, err)
	assert.True(t, got.Items[0].Price.Equal(dec("15")))
	assert.True(t, got.Items[0].Cost.Equal(dec("6.5")))
}

func TestAddToCartRejectsBadInput(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	cart := f.recorder.Carts().Create()

	_, err := f.recorder.AddToCart(ctx, cart.ID, AddItemInput{DishID: "ghost", Quantity: 1})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = f.recorder.AddToCart(ctx, cart.ID, AddItemInput{DishID: "bread", Quantity: 0})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	assert.Equal(t, map[string]string{"quantity": "gt"}, apperr.FieldsOf(err))

	_, err = f.recorder.AddToCart(ctx, cart.ID, AddItemInput{DishID: "bread", Quantity: 1, Price: priceOf("-1")})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	assert.Equal(t, map[string]string{"price": "gte"}, apperr.FieldsOf(err))

	_, err = f.recorder.AddToCart(ctx, cart.ID, AddItemInput{DishID: "  ", Quantity: 1})
	assert.Equal(t, map[string]string{"dishId": "notblank"}, apperr.FieldsOf(err))

	_, err = f.recorder.AddToCart(ctx, "missing", AddItemInput{DishID: "bread", Quantity: 1})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestFinalizeEmptyCartPersistsNothing(t *testing.T) {
	f := newFixture()
	cart := f.recorder.Carts().Create()

	_, err := f.recorder.Finalize(context.Background(), cart.ID)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	assert.Zero(t, f.sales.creates)
	assert.Zero(t, f.ledger.credits)
	assert.True(t, f.ledger.capital.IsZero())

	// The busy flag is released after a rejected finalize.
	_, err = f.recorder.AddToCart(context.Background(), cart.ID, AddItemInput{DishID: "bread", Quantity: 1})
	assert.NoError(t, err)
}

func TestFinalizeIsExclusivePerCart(t *testing.T) {
	f := newFixture()
	f.ledger.block = make(chan struct{})
	f.ledger.entered = make(chan struct{}, 1)
	ctx := context.Background()
	cart := f.recorder.Carts().Create()
	_, err := f.recorder.AddToCart(ctx, cart.ID, AddItemInput{DishID: "bread", Quantity: 1})
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := f.recorder.Finalize(ctx, cart.ID)
		done <- err
	}()
	<-f.ledger.entered

	_, err = f.recorder.Finalize(ctx, cart.ID)
	assert.ErrorIs(t, err, ErrSaleInFlight)
	_, err = f.recorder.AddToCart(ctx, cart.ID, AddItemInput{DishID: "soup", Quantity: 1})
	assert.ErrorIs(t, err, ErrSaleInFlight)

	close(f.ledger.block)
	require.NoError(t, <-done)
	assert.Equal(t, 1, f.sales.creates)
	assert.Equal(t, 1, f.ledger.credits)
}

func TestFinalizePersistenceFailureKeepsCart(t *testing.T) {
	f := newFixture()
	f.sales.createErr = errStore
	ctx := context.Background()
	cart := f.recorder.Carts().Create()
	_, err := f.recorder.AddToCart(ctx, cart.ID, AddItemInput{DishID: "bread", Quantity: 1})
	require.NoError(t, err)

	_, err = f.recorder.Finalize(ctx, cart.ID)
	assert.True(t, apperr.Is(err, apperr.KindPersistence))
	assert.Zero(t, f.ledger.credits)

	got, err := f.recorder.Carts().Get(cart.ID)
	require.NoError(t, err)
	assert.Len(t, got.Items, 1)
	assert.False(t, got.Saving)
	require.NotEmpty(t, f.notes.seen)
	assert.Equal(t, models.NotificationError, f.notes.seen[0].Kind)
}

func TestFinalizeCreditFailureKeepsSale(t *testing.T) {
	f := newFixture()
	f.ledger.creditErr = errStore
	ctx := context.Background()
	cart := f.recorder.Carts().Create()
	_, err := f.recorder.AddToCart(ctx, cart.ID, AddItemInput{DishID: "bread", Quantity: 1})
	require.NoError(t, err)

	sale, err := f.recorder.Finalize(ctx, cart.ID)
	assert.True(t, apperr.Is(err, apperr.KindPersistence))
	assert.NotEmpty(t, sale.ID)
	assert.Len(t, f.sales.sales, 1)

	got, err := f.recorder.Carts().Get(cart.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Items)
}

func TestDeleteReversesCredit(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	cart := f.recorder.Carts().Create()
	_, err := f.recorder.AddToCart(ctx, cart.ID, AddItemInput{DishID: "bread", Quantity: 3})
	require.NoError(t, err)
	sale, err := f.recorder.Finalize(ctx, cart.ID)
	require.NoError(t, err)

	err = f.recorder.Delete(ctx, sale.ID, false)
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	assert.Len(t, f.sales.sales, 1)

	require.NoError(t, f.recorder.Delete(ctx, sale.ID, true))
	assert.True(t, f.ledger.capital.IsZero())
	assert.True(t, f.ledger.profit.IsZero())
	assert.Empty(t, f.sales.sales)

	err = f.recorder.Delete(ctx, sale.ID, true)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestDeleteLegacySaleDebitsStoredAmounts(t *testing.T) {
	f := newFixture()
	legacy := models.SaleDocument{
		ID:        "old",
		DishID:    "bread",
		DishName:  "Pan",
		Quantity:  2,
		Price:     dec("50"),
		Total:     dec("100"),
		Cost:      dec("40"),
		Profit:    dec("60"),
		CreatedAt: time.Date(2025, 1, 2, 10, 0, 0, 0, time.UTC),
	}
	f.sales.sales["old"] = legacy.Canonical()

	require.NoError(t, f.recorder.Delete(context.Background(), "old", true))
	assert.True(t, f.ledger.capital.Equal(dec("-40")))
	assert.True(t, f.ledger.profit.Equal(dec("-60")))
}

func TestCompleteAndComandas(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	cart := f.recorder.Carts().Create()
	_, err := f.recorder.AddToCart(ctx, cart.ID, AddItemInput{DishID: "soup", Quantity: 1})
	require.NoError(t, err)
	sale, err := f.recorder.Finalize(ctx, cart.ID)
	require.NoError(t, err)

	active, err := f.recorder.Comandas(ctx)
	require.NoError(t, err)
	assert.Len(t, active, 1)

	done, err := f.recorder.Complete(ctx, sale.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SaleStatusCompleted, done.Status)
	require.NotNil(t, done.CompletedAt)

	again, err := f.recorder.Complete(ctx, sale.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SaleStatusCompleted, again.Status)

	active, err = f.recorder.Comandas(ctx)
	require.NoError(t, err)
	assert.Empty(t, active)

	_, err = f.recorder.Complete(ctx, "missing")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestTodayUsesCalendarDay(t *testing.T) {
	f := newFixture()
	f.sales.sales["yesterday"] = models.Sale{ID: "yesterday", CreatedAt: time.Date(2026, 3, 13, 23, 59, 0, 0, time.UTC)}
	f.sales.sales["morning"] = models.Sale{ID: "morning", CreatedAt: time.Date(2026, 3, 14, 8, 0, 0, 0, time.UTC)}
	f.sales.sales["tomorrow"] = models.Sale{ID: "tomorrow", CreatedAt: time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)}

	today, err := f.recorder.Today(context.Background())
	require.NoError(t, err)
	require.Len(t, today, 1)
	assert.Equal(t, "morning", today[0].ID)
}

func TestDeleteAndCompleteAreNotified(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	cart := f.recorder.Carts().Create()
	_, err := f.recorder.AddToCart(ctx, cart.ID, AddItemInput{DishID: "soup", Quantity: 1})
	require.NoError(t, err)
	sale, err := f.recorder.Finalize(ctx, cart.ID)
	require.NoError(t, err)
	f.notes.seen = nil

	_, err = f.recorder.Complete(ctx, sale.ID)
	require.NoError(t, err)
	require.NoError(t, f.recorder.Delete(ctx, sale.ID, true))

	require.Len(t, f.notes.seen, 2)
	assert.Equal(t, "Orden marcada como completada", f.notes.seen[0].Title)
	assert.Equal(t, models.NotificationSaleDeleted, f.notes.seen[1].Kind)
	assert.Equal(t, "Venta y comanda eliminadas correctamente", f.notes.seen[1].Title)
	assert.Equal(t, models.LevelSuccess, f.notes.seen[1].Level)
}

func TestDeleteFailureIsNotified(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.sales.sales["s1"] = models.Sale{ID: "s1", TotalCost: dec("6.5"), TotalProfit: dec("8.5"), CreatedAt: time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)}
	f.ledger.debitErr = errStore

	err := f.recorder.Delete(ctx, "s1", true)
	assert.True(t, apperr.Is(err, apperr.KindPersistence))
	assert.Len(t, f.sales.sales, 1, "the sale stays when the debit fails")

	require.Len(t, f.notes.seen, 1)
	assert.Equal(t, "Error al eliminar la venta", f.notes.seen[0].Title)
	assert.Equal(t, models.LevelError, f.notes.seen[0].Level)

	err = f.recorder.Delete(ctx, "s1", false)
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	assert.Len(t, f.notes.seen, 1, "an unconfirmed delete is not broadcast")
}
