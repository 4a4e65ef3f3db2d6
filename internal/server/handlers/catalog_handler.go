package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/comedor/internal/domain/models"
	"github.com/mamadbah2/comedor/internal/service/catalog"
)

// CatalogService is the ingredient and dish API.
type CatalogService interface {
	CreateIngredient(ctx context.Context, in catalog.IngredientInput) (catalog.IngredientResult, error)
	UpdateIngredient(ctx context.Context, id string, in catalog.IngredientInput) (catalog.IngredientResult, error)
	DeleteIngredient(ctx context.Context, id string, confirmed bool) (int, error)
	GetIngredient(ctx context.Context, id string) (models.Ingredient, error)
	ListIngredients(ctx context.Context) ([]models.Ingredient, error)

	CreateDish(ctx context.Context, in catalog.DishInput) (models.Dish, error)
	UpdateDish(ctx context.Context, id string, in catalog.DishInput) (models.Dish, error)
	DeleteDish(ctx context.Context, id string, confirmed bool) error
	GetDish(ctx context.Context, id string) (models.Dish, error)
	ListDishes(ctx context.Context) ([]models.Dish, error)
}

// CatalogHandler serves /api/ingredients and /api/dishes.
type CatalogHandler struct {
	svc    CatalogService
	logger *zap.Logger
}

// NewCatalogHandler constructs the catalog handler.
func NewCatalogHandler(svc CatalogService, logger *zap.Logger) *CatalogHandler {
	return &CatalogHandler{svc: svc, logger: defaultLogger(logger)}
}

// ListIngredients returns every ingredient.
func (h *CatalogHandler) ListIngredients(c *gin.Context) {
	items, err := h.svc.ListIngredients(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

// GetIngredient returns one ingredient.
func (h *CatalogHandler) GetIngredient(c *gin.Context) {
	item, err := h.svc.GetIngredient(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

// CreateIngredient stores an ingredient and reports the dishes it was pushed into.
func (h *CatalogHandler) CreateIngredient(c *gin.Context) {
	var req catalog.IngredientInput
	if !bindAndValidate(c, &req) {
		return
	}
	res, err := h.svc.CreateIngredient(c.Request.Context(), req)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

// UpdateIngredient edits an ingredient and cascades the new cost into its dishes.
func (h *CatalogHandler) UpdateIngredient(c *gin.Context) {
	var req catalog.IngredientInput
	if !bindAndValidate(c, &req) {
		return
	}
	res, err := h.svc.UpdateIngredient(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// DeleteIngredient removes an ingredient. Requires ?confirm=true.
func (h *CatalogHandler) DeleteIngredient(c *gin.Context) {
	touched, err := h.svc.DeleteIngredient(c.Request.Context(), c.Param("id"), confirmed(c))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"dishesUpdated": touched})
}

// ListDishes returns every dish.
func (h *CatalogHandler) ListDishes(c *gin.Context) {
	items, err := h.svc.ListDishes(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

// GetDish returns one dish.
func (h *CatalogHandler) GetDish(c *gin.Context) {
	dish, err := h.svc.GetDish(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, dish)
}

// CreateDish compiles and stores a dish.
func (h *CatalogHandler) CreateDish(c *gin.Context) {
	var req catalog.DishInput
	if !bindAndValidate(c, &req) {
		return
	}
	dish, err := h.svc.CreateDish(c.Request.Context(), req)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, dish)
}

// UpdateDish recompiles and stores a dish.
func (h *CatalogHandler) UpdateDish(c *gin.Context) {
	var req catalog.DishInput
	if !bindAndValidate(c, &req) {
		return
	}
	dish, err := h.svc.UpdateDish(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, dish)
}

// DeleteDish removes a dish. Requires ?confirm=true.
func (h *CatalogHandler) DeleteDish(c *gin.Context) {
	if err := h.svc.DeleteDish(c.Request.Context(), c.Param("id"), confirmed(c)); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}
