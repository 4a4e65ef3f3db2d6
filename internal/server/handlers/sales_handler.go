package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/comedor/internal/domain/models"
	"github.com/mamadbah2/comedor/internal/service/sales"
)

// SalesService is the cart and sale API.
type SalesService interface {
	CreateCart() sales.Cart
	GetCart(id string) (sales.Cart, error)
	RemoveFromCart(id string, index int) (sales.Cart, error)
	ClearCart(id string) (sales.Cart, error)
	DiscardCart(id string) error
	AddToCart(ctx context.Context, cartID string, in sales.AddItemInput) (sales.Cart, error)
	Finalize(ctx context.Context, cartID string) (models.Sale, error)

	Delete(ctx context.Context, id string, confirmed bool) error
	Complete(ctx context.Context, id string) (models.Sale, error)
	Get(ctx context.Context, id string) (models.Sale, error)
	List(ctx context.Context, from, to time.Time) ([]models.Sale, error)
	Today(ctx context.Context) ([]models.Sale, error)
	Comandas(ctx context.Context) ([]models.Sale, error)
}

// PeriodRanger turns a period and reference date into a window.
type PeriodRanger interface {
	Range(period models.Period, ref time.Time) (time.Time, time.Time)
	Location() *time.Location
}

// SalesHandler serves carts, sales and comandas.
type SalesHandler struct {
	svc    SalesService
	ranger PeriodRanger
	logger *zap.Logger
}

// NewSalesHandler constructs the sales handler.
func NewSalesHandler(svc SalesService, ranger PeriodRanger, logger *zap.Logger) *SalesHandler {
	return &SalesHandler{svc: svc, ranger: ranger, logger: defaultLogger(logger)}
}

// CreateCart opens a cart for the calling device.
func (h *SalesHandler) CreateCart(c *gin.Context) {
	c.JSON(http.StatusCreated, h.svc.CreateCart())
}

// GetCart returns a cart with its running totals.
func (h *SalesHandler) GetCart(c *gin.Context) {
	cart, err := h.svc.GetCart(c.Param("id"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, cart)
}

// DiscardCart deletes a cart.
func (h *SalesHandler) DiscardCart(c *gin.Context) {
	if err := h.svc.DiscardCart(c.Param("id")); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// AddItem adds a dish to the cart, merging with an existing line of the same dish.
func (h *SalesHandler) AddItem(c *gin.Context) {
	var req sales.AddItemInput
	if !bindAndValidate(c, &req) {
		return
	}
	cart, err := h.svc.AddToCart(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, cart)
}

// RemoveItem drops the line at :index.
func (h *SalesHandler) RemoveItem(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Detail: "índice inválido"})
		return
	}
	cart, err := h.svc.RemoveFromCart(c.Param("id"), index)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, cart)
}

// ClearCart empties the cart.
func (h *SalesHandler) ClearCart(c *gin.Context) {
	cart, err := h.svc.ClearCart(c.Param("id"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, cart)
}

// Finalize records the cart as a sale.
func (h *SalesHandler) Finalize(c *gin.Context) {
	sale, err := h.svc.Finalize(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, sale)
}

// ListSales returns the sales of ?period= around ?date=.
func (h *SalesHandler) ListSales(c *gin.Context) {
	period, ref, ok := periodQuery(c, h.ranger.Location())
	if !ok {
		return
	}
	from, to := h.ranger.Range(period, ref)
	items, err := h.svc.List(c.Request.Context(), from, to)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

// TodaySales returns today's sales, newest first.
func (h *SalesHandler) TodaySales(c *gin.Context) {
	items, err := h.svc.Today(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

// GetSale returns one sale.
func (h *SalesHandler) GetSale(c *gin.Context) {
	sale, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, sale)
}

// DeleteSale reverses the ledger effect of a sale and removes it. Requires ?confirm=true.
func (h *SalesHandler) DeleteSale(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id"), confirmed(c)); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// CompleteSale marks a comanda as served.
func (h *SalesHandler) CompleteSale(c *gin.Context) {
	sale, err := h.svc.Complete(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, sale)
}

// Comandas returns the active sales, oldest first.
func (h *SalesHandler) Comandas(c *gin.Context) {
	items, err := h.svc.Comandas(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, items)
}
