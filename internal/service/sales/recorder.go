// Package sales captures carts, records them as sales and keeps the ledger in step with
// sale creation and deletion.
package sales

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mamadbah2/comedor/internal/domain/apperr"
	"github.com/mamadbah2/comedor/internal/domain/models"
	"github.com/mamadbah2/comedor/internal/domain/validation"
	"github.com/mamadbah2/comedor/internal/service/notify"
	"github.com/mamadbah2/comedor/pkg/money"
)

// Repository persists sales.
type Repository interface {
	CreateSale(ctx context.Context, sale models.Sale) (models.Sale, error)
	GetSale(ctx context.Context, id string) (models.Sale, error)
	ListSales(ctx context.Context, from, to time.Time) ([]models.Sale, error)
	ListSalesByStatus(ctx context.Context, status models.SaleStatus) ([]models.Sale, error)
	UpdateSaleStatus(ctx context.Context, id string, status models.SaleStatus, at time.Time) error
	DeleteSale(ctx context.Context, id string) error
}

// DishReader resolves the dish a cart line refers to.
type DishReader interface {
	GetDish(ctx context.Context, id string) (models.Dish, error)
}

// Ledger receives the cash effect of sales.
type Ledger interface {
	CreditSale(ctx context.Context, saleID string, cost, profit decimal.Decimal) error
	DebitSale(ctx context.Context, saleID string, recordedAt time.Time, cost, profit decimal.Decimal) error
}

// AddItemInput is one dish added to a cart. Price defaults to the dish catalog price.
type AddItemInput struct {
	DishID   string           `json:"dishId" validate:"required,notblank"`
	Quantity int              `json:"quantity" validate:"gt=0"`
	Price    *decimal.Decimal `json:"price,omitempty" validate:"omitempty,gte=0"`
}

// Recorder turns carts into sales.
type Recorder struct {
	carts    *CartStore
	repo     Repository
	dishes   DishReader
	ledger   Ledger
	notifier notify.Notifier
	logger   *zap.Logger
	loc      *time.Location
	now      func() time.Time
}

// NewRecorder wires a recorder. Days are cut in loc.
func NewRecorder(carts *CartStore, repo Repository, dishes DishReader, ledger Ledger, notifier notify.Notifier, loc *time.Location, logger *zap.Logger) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	if notifier == nil {
		notifier = notify.Nop{}
	}
	if loc == nil {
		loc = time.Local
	}
	if carts == nil {
		carts = NewCartStore()
	}
	return &Recorder{
		carts:    carts,
		repo:     repo,
		dishes:   dishes,
		ledger:   ledger,
		notifier: notifier,
		logger:   logger,
		loc:      loc,
		now:      time.Now,
	}
}

// Carts exposes the cart store.
func (r *Recorder) Carts() *CartStore {
	return r.carts
}

// CreateCart opens an empty cart.
func (r *Recorder) CreateCart() Cart {
	return r.carts.Create()
}

// GetCart returns a cart.
func (r *Recorder) GetCart(id string) (Cart, error) {
	return r.carts.Get(id)
}

// RemoveFromCart drops the line at index.
func (r *Recorder) RemoveFromCart(id string, index int) (Cart, error) {
	return r.carts.RemoveItem(id, index)
}

// ClearCart empties a cart.
func (r *Recorder) ClearCart(id string) (Cart, error) {
	return r.carts.Clear(id)
}

// DiscardCart deletes a cart.
func (r *Recorder) DiscardCart(id string) error {
	return r.carts.Delete(id)
}

// AddToCart resolves the dish and merges the line into the cart. The unit cost is the
// dish's stored cost.
func (r *Recorder) AddToCart(ctx context.Context, cartID string, in AddItemInput) (Cart, error) {
	const op = "add to cart"
	if err := validation.Struct(op, in); err != nil {
		return Cart{}, err
	}

	dish, err := r.dishes.GetDish(ctx, in.DishID)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) || errors.Is(err, apperr.ErrRecordNotFound) {
			return Cart{}, apperr.Validation(op, "Plato no encontrado")
		}
		return Cart{}, apperr.Persistence(op, err)
	}

	price := dish.Price
	if in.Price != nil {
		price = *in.Price
	}

	return r.carts.AddItem(cartID, models.NewSaleItem(dish.ID, dish.Name, in.Quantity, price, dish.Cost))
}

// Finalize records the cart as a sale and credits the ledger with its cost and profit.
// Only one finalize per cart runs at a time; concurrent calls get ErrSaleInFlight. When
// the credit fails the sale stays recorded, the cart is still cleared and a Persistence
// error is returned; the ledger reconcile job repairs the missing credit.
func (r *Recorder) Finalize(ctx context.Context, cartID string) (models.Sale, error) {
	const op = "finalize sale"

	items, err := r.carts.acquire(cartID)
	if err != nil {
		return models.Sale{}, err
	}
	recorded := false
	defer func() { r.carts.release(cartID, recorded) }()

	if len(items) == 0 {
		return models.Sale{}, apperr.Validation(op, "El carrito está vacío")
	}

	sale, err := r.repo.CreateSale(ctx, models.NewSale(items, r.now()))
	if err != nil {
		r.fail(ctx, "Error al registrar la venta", err)
		return models.Sale{}, apperr.Persistence(op, err)
	}
	recorded = true

	cost, profit := sale.LedgerAmounts()
	if err := r.ledger.CreditSale(ctx, sale.ID, cost, profit); err != nil {
		r.logger.Error("sale recorded without ledger credit", zap.String("sale_id", sale.ID), zap.Error(err))
		r.fail(ctx, "Venta registrada, pero la caja no se actualizó", err)
		return sale, apperr.Persistence(op, fmt.Errorf("credit ledger for sale %s: %w", sale.ID, err))
	}

	r.logger.Info("sale recorded",
		zap.String("sale_id", sale.ID),
		zap.String("total", sale.TotalAmount.StringFixed(money.Places)),
		zap.Int("items", sale.ItemCount),
	)
	r.announce(ctx, sale)
	return sale, nil
}

// Delete debits the ledger by the sale's original effect and removes the sale.
func (r *Recorder) Delete(ctx context.Context, id string, confirmed bool) error {
	const op = "delete sale"
	if !confirmed {
		return apperr.Validation(op, "deletion must be confirmed")
	}

	sale, err := r.repo.GetSale(ctx, id)
	if err != nil {
		err = apperr.FromStore(op, "sale", id, err)
		r.fail(ctx, "Error al eliminar la venta", err)
		return err
	}

	cost, profit := sale.LedgerAmounts()
	if err := r.ledger.DebitSale(ctx, sale.ID, sale.CreatedAt, cost, profit); err != nil {
		err = apperr.Persistence(op, err)
		r.fail(ctx, "Error al eliminar la venta", err)
		return err
	}
	if err := r.repo.DeleteSale(ctx, sale.ID); err != nil {
		err = apperr.FromStore(op, "sale", id, err)
		r.fail(ctx, "Error al eliminar la venta", err)
		return err
	}

	r.logger.Info("sale deleted", zap.String("sale_id", sale.ID), zap.String("shape", string(sale.Shape)))
	notify.Success(ctx, r.notifier, models.NotificationSaleDeleted, "Venta y comanda eliminadas correctamente", "Venta #"+sale.Number())
	return nil
}

// Complete marks a comanda as served. Completing a completed sale is a no-op.
func (r *Recorder) Complete(ctx context.Context, id string) (models.Sale, error) {
	const op = "complete sale"

	sale, err := r.repo.GetSale(ctx, id)
	if err != nil {
		return models.Sale{}, apperr.FromStore(op, "sale", id, err)
	}
	if sale.Status == models.SaleStatusCompleted {
		return sale, nil
	}

	at := r.now()
	if err := r.repo.UpdateSaleStatus(ctx, id, models.SaleStatusCompleted, at); err != nil {
		err = apperr.FromStore(op, "sale", id, err)
		r.fail(ctx, "Error al completar la orden", err)
		return models.Sale{}, err
	}
	sale.Status = models.SaleStatusCompleted
	sale.CompletedAt = &at
	notify.Success(ctx, r.notifier, models.NotificationComanda, "Orden marcada como completada", "Comanda #"+sale.Number())
	return sale, nil
}

// Get loads one sale.
func (r *Recorder) Get(ctx context.Context, id string) (models.Sale, error) {
	sale, err := r.repo.GetSale(ctx, id)
	if err != nil {
		return models.Sale{}, apperr.FromStore("get sale", "sale", id, err)
	}
	return sale, nil
}

// List returns sales created in [from, to), newest first.
func (r *Recorder) List(ctx context.Context, from, to time.Time) ([]models.Sale, error) {
	sales, err := r.repo.ListSales(ctx, from, to)
	if err != nil {
		return nil, apperr.Persistence("list sales", err)
	}
	return sales, nil
}

// Today returns today's sales, newest first.
func (r *Recorder) Today(ctx context.Context) ([]models.Sale, error) {
	now := r.now().In(r.loc)
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, r.loc)
	return r.List(ctx, start, start.AddDate(0, 0, 1))
}

// Comandas returns the sales still waiting in the kitchen, oldest first.
func (r *Recorder) Comandas(ctx context.Context) ([]models.Sale, error) {
	sales, err := r.repo.ListSalesByStatus(ctx, models.SaleStatusActive)
	if err != nil {
		return nil, apperr.Persistence("list comandas", err)
	}
	return sales, nil
}

func (r *Recorder) announce(ctx context.Context, sale models.Sale) {
	data := map[string]string{
		"saleId": sale.ID,
		"total":  sale.TotalAmount.StringFixed(money.Places),
	}
	r.notifier.Notify(ctx, models.Notification{
		Kind:      models.NotificationSaleRecorded,
		Level:     models.LevelSuccess,
		Title:     "Venta registrada correctamente",
		Message:   fmt.Sprintf("Venta #%s por %s", sale.Number(), money.Format(sale.TotalAmount)),
		Data:      data,
		CreatedAt: sale.CreatedAt,
	})
	r.notifier.Notify(ctx, models.Notification{
		Kind:      models.NotificationComanda,
		Level:     models.LevelInfo,
		Title:     "Nueva comanda #" + sale.Number(),
		Message:   sale.Summary(),
		Data:      data,
		CreatedAt: sale.CreatedAt,
	})
}

func (r *Recorder) fail(ctx context.Context, title string, err error) {
	notify.Failure(ctx, r.notifier, title, err)
}
