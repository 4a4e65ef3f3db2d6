package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/comedor/internal/domain/models"
	"github.com/mamadbah2/comedor/internal/service/ledger"
)

// LedgerService is the cash API.
type LedgerService interface {
	Balances(ctx context.Context) (models.Balances, error)
	Movements(ctx context.Context) ([]models.CashMovement, error)
	RecordMovement(ctx context.Context, in ledger.MovementInput) (models.CashMovement, error)
	DeleteMovement(ctx context.Context, id string, confirmed bool) error
	Entries(ctx context.Context) ([]models.LedgerEntry, error)
	Reconcile(ctx context.Context) (ledger.ReconcileResult, error)
}

// CashHandler serves /api/cash.
type CashHandler struct {
	svc    LedgerService
	logger *zap.Logger
}

// NewCashHandler constructs the cash handler.
func NewCashHandler(svc LedgerService, logger *zap.Logger) *CashHandler {
	return &CashHandler{svc: svc, logger: defaultLogger(logger)}
}

// Balances returns the Capital and Ganancia balances.
func (h *CashHandler) Balances(c *gin.Context) {
	b, err := h.svc.Balances(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// ListMovements returns the movement log, newest first.
func (h *CashHandler) ListMovements(c *gin.Context) {
	items, err := h.svc.Movements(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

// RecordMovement applies a manual income or expense.
func (h *CashHandler) RecordMovement(c *gin.Context) {
	var req ledger.MovementInput
	if !bindAndValidate(c, &req) {
		return
	}
	m, err := h.svc.RecordMovement(c.Request.Context(), req)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, m)
}

// DeleteMovement reverses and removes a movement. Requires ?confirm=true.
func (h *CashHandler) DeleteMovement(c *gin.Context) {
	if err := h.svc.DeleteMovement(c.Request.Context(), c.Param("id"), confirmed(c)); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Entries returns the ledger entry log.
func (h *CashHandler) Entries(c *gin.Context) {
	items, err := h.svc.Entries(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

// Reconcile repairs missing entries and rewrites the balances from the entry log.
func (h *CashHandler) Reconcile(c *gin.Context) {
	res, err := h.svc.Reconcile(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
