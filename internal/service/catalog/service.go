package catalog

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mamadbah2/comedor/internal/domain/apperr"
	"github.com/mamadbah2/comedor/internal/domain/models"
	"github.com/mamadbah2/comedor/internal/domain/validation"
	"github.com/mamadbah2/comedor/internal/service/notify"
)

// Repository is the persistence the catalog needs.
type Repository interface {
	CreateIngredient(ctx context.Context, ing models.Ingredient) (models.Ingredient, error)
	UpdateIngredient(ctx context.Context, ing models.Ingredient) error
	DeleteIngredient(ctx context.Context, id string) error
	GetIngredient(ctx context.Context, id string) (models.Ingredient, error)
	ListIngredients(ctx context.Context) ([]models.Ingredient, error)

	CreateDish(ctx context.Context, dish models.Dish) (models.Dish, error)
	UpdateDish(ctx context.Context, dish models.Dish) error
	DeleteDish(ctx context.Context, id string) error
	GetDish(ctx context.Context, id string) (models.Dish, error)
	ListDishes(ctx context.Context) ([]models.Dish, error)
	ListDishesUsing(ctx context.Context, ingredientID string) ([]models.Dish, error)
}

// IngredientInput is the editable part of an ingredient.
type IngredientInput struct {
	Name      string          `json:"name" validate:"required,notblank"`
	Price     decimal.Decimal `json:"price" validate:"gte=0"`
	Portions  int             `json:"portions" validate:"gt=0"`
	Remaining *int            `json:"remaining,omitempty" validate:"omitempty,gte=0"`
}

// LineInput is one recipe line of a dish.
type LineInput struct {
	IngredientID string          `json:"ingredientId" validate:"required"`
	Portions     decimal.Decimal `json:"portions" validate:"gt=0"`
}

// DishInput is the editable part of a dish.
type DishInput struct {
	Name        string          `json:"name" validate:"required,notblank"`
	Price       decimal.Decimal `json:"price" validate:"gte=0"`
	Ingredients []LineInput     `json:"ingredients" validate:"required,min=1,dive"`
}

// IngredientResult reports a saved ingredient and the dishes its change was pushed into.
type IngredientResult struct {
	Ingredient    models.Ingredient `json:"ingredient"`
	DishesUpdated int               `json:"dishesUpdated"`
	Warnings      []string          `json:"warnings,omitempty"`
}

// Service owns ingredients and dishes and keeps stored dish costs current.
type Service struct {
	repo     Repository
	index    *Index
	notifier notify.Notifier
	logger   *zap.Logger
	now      func() time.Time
}

// NewService wires a catalog service. A nil index starts empty; call Warm to fill it.
func NewService(repo Repository, index *Index, notifier notify.Notifier, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if index == nil {
		index = NewIndex()
	}
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &Service{repo: repo, index: index, notifier: notifier, logger: logger, now: time.Now}
}

// Index exposes the reverse index so dish snapshots can rebuild it.
func (s *Service) Index() *Index {
	return s.index
}

// Warm loads every dish into the reverse index.
func (s *Service) Warm(ctx context.Context) error {
	dishes, err := s.repo.ListDishes(ctx)
	if err != nil {
		return apperr.Persistence("warm dish index", err)
	}
	s.index.Rebuild(dishes)
	s.logger.Info("dish index warmed", zap.Int("dishes", len(dishes)))
	return nil
}

// CreateIngredient stores a new ingredient and pushes it into dishes that already
// reference its id.
func (s *Service) CreateIngredient(ctx context.Context, in IngredientInput) (IngredientResult, error) {
	const op = "create ingredient"
	if err := validation.Struct(op, in); err != nil {
		return IngredientResult{}, err
	}

	now := s.now()
	ing := models.Ingredient{
		Name:           strings.TrimSpace(in.Name),
		Price:          in.Price,
		Portions:       in.Portions,
		CostPerPortion: models.CostPerPortion(in.Price, in.Portions),
		Remaining:      in.Portions,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if in.Remaining != nil {
		ing.Remaining = *in.Remaining
	}

	saved, err := s.repo.CreateIngredient(ctx, ing)
	if err != nil {
		err = apperr.Persistence(op, err)
		notify.Failure(ctx, s.notifier, "Error al guardar el ingrediente", err)
		return IngredientResult{}, err
	}

	s.logger.Info("ingredient created", zap.String("ingredient_id", saved.ID), zap.String("name", saved.Name))
	notify.Success(ctx, s.notifier, models.NotificationCatalog, "Ingrediente agregado correctamente", saved.Name)
	return s.cascadeResult(ctx, saved), nil
}

// UpdateIngredient rewrites an ingredient, recomputes its cost per portion and cascades
// the new cost into every dish that uses it. Remaining stock is kept unless supplied.
func (s *Service) UpdateIngredient(ctx context.Context, id string, in IngredientInput) (IngredientResult, error) {
	const op = "update ingredient"
	if err := validation.Struct(op, in); err != nil {
		return IngredientResult{}, err
	}

	ing, err := s.repo.GetIngredient(ctx, id)
	if err != nil {
		err = apperr.FromStore(op, "ingredient", id, err)
		notify.Failure(ctx, s.notifier, "Error al guardar el ingrediente", err)
		return IngredientResult{}, err
	}

	ing.Name = strings.TrimSpace(in.Name)
	ing.Price = in.Price
	ing.Portions = in.Portions
	ing.CostPerPortion = models.CostPerPortion(in.Price, in.Portions)
	if in.Remaining != nil {
		ing.Remaining = *in.Remaining
	}
	ing.UpdatedAt = s.now()

	if err := s.repo.UpdateIngredient(ctx, ing); err != nil {
		err = apperr.FromStore(op, "ingredient", id, err)
		notify.Failure(ctx, s.notifier, "Error al guardar el ingrediente", err)
		return IngredientResult{}, err
	}

	s.logger.Info("ingredient updated", zap.String("ingredient_id", id), zap.String("cost_per_portion", ing.CostPerPortion.String()))
	notify.Success(ctx, s.notifier, models.NotificationCatalog, "Ingrediente actualizado correctamente", ing.Name)
	return s.cascadeResult(ctx, ing), nil
}

// DeleteIngredient removes an ingredient after explicit confirmation. Dishes that used it
// are recomputed so their stored cost drops the missing line.
func (s *Service) DeleteIngredient(ctx context.Context, id string, confirmed bool) (int, error) {
	const op = "delete ingredient"
	if !confirmed {
		return 0, apperr.Validation(op, "deletion must be confirmed")
	}

	if err := s.repo.DeleteIngredient(ctx, id); err != nil {
		err = apperr.FromStore(op, "ingredient", id, err)
		notify.Failure(ctx, s.notifier, "Error al eliminar el ingrediente", err)
		return 0, err
	}
	notify.Success(ctx, s.notifier, models.NotificationCatalog, "Ingrediente eliminado correctamente", "")

	touched, err := s.CascadeIngredient(ctx, id)
	if err != nil {
		s.logger.Warn("cascade after ingredient delete incomplete", zap.String("ingredient_id", id), zap.Error(err))
	}
	return touched, nil
}

// GetIngredient loads one ingredient.
func (s *Service) GetIngredient(ctx context.Context, id string) (models.Ingredient, error) {
	ing, err := s.repo.GetIngredient(ctx, id)
	if err != nil {
		return models.Ingredient{}, apperr.FromStore("get ingredient", "ingredient", id, err)
	}
	return ing, nil
}

// ListIngredients returns every ingredient.
func (s *Service) ListIngredients(ctx context.Context) ([]models.Ingredient, error) {
	list, err := s.repo.ListIngredients(ctx)
	if err != nil {
		return nil, apperr.Persistence("list ingredients", err)
	}
	return list, nil
}

// CreateDish compiles and stores a new dish.
func (s *Service) CreateDish(ctx context.Context, in DishInput) (models.Dish, error) {
	const op = "create dish"
	if err := validation.Struct(op, in); err != nil {
		return models.Dish{}, err
	}

	compiled, err := s.compileInput(ctx, op, in)
	if err != nil {
		return models.Dish{}, err
	}

	now := s.now()
	dish := models.Dish{
		Name:        strings.TrimSpace(in.Name),
		Price:       in.Price,
		Ingredients: compiled.Lines,
		Cost:        compiled.Cost,
		Profit:      compiled.Profit,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	saved, err := s.repo.CreateDish(ctx, dish)
	if err != nil {
		err = apperr.Persistence(op, err)
		notify.Failure(ctx, s.notifier, "Error al guardar el plato", err)
		return models.Dish{}, err
	}
	s.index.Put(saved)

	s.logger.Info("dish created", zap.String("dish_id", saved.ID), zap.String("cost", saved.Cost.String()))
	notify.Success(ctx, s.notifier, models.NotificationCatalog, "Plato agregado correctamente", saved.Name)
	return saved, nil
}

// UpdateDish recompiles and rewrites a dish.
func (s *Service) UpdateDish(ctx context.Context, id string, in DishInput) (models.Dish, error) {
	const op = "update dish"
	if err := validation.Struct(op, in); err != nil {
		return models.Dish{}, err
	}

	dish, err := s.repo.GetDish(ctx, id)
	if err != nil {
		err = apperr.FromStore(op, "dish", id, err)
		notify.Failure(ctx, s.notifier, "Error al guardar el plato", err)
		return models.Dish{}, err
	}

	compiled, err := s.compileInput(ctx, op, in)
	if err != nil {
		return models.Dish{}, err
	}

	dish.Name = strings.TrimSpace(in.Name)
	dish.Price = in.Price
	dish.Ingredients = compiled.Lines
	dish.Cost = compiled.Cost
	dish.Profit = compiled.Profit
	dish.UpdatedAt = s.now()

	if err := s.repo.UpdateDish(ctx, dish); err != nil {
		err = apperr.FromStore(op, "dish", id, err)
		notify.Failure(ctx, s.notifier, "Error al guardar el plato", err)
		return models.Dish{}, err
	}
	s.index.Put(dish)
	notify.Success(ctx, s.notifier, models.NotificationCatalog, "Plato actualizado correctamente", dish.Name)
	return dish, nil
}

// DeleteDish removes a dish after explicit confirmation.
func (s *Service) DeleteDish(ctx context.Context, id string, confirmed bool) error {
	const op = "delete dish"
	if !confirmed {
		return apperr.Validation(op, "deletion must be confirmed")
	}
	if err := s.repo.DeleteDish(ctx, id); err != nil {
		err = apperr.FromStore(op, "dish", id, err)
		notify.Failure(ctx, s.notifier, "Error al eliminar el plato", err)
		return err
	}
	s.index.Remove(id)
	notify.Success(ctx, s.notifier, models.NotificationCatalog, "Plato eliminado correctamente", "")
	return nil
}

// GetDish loads one dish.
func (s *Service) GetDish(ctx context.Context, id string) (models.Dish, error) {
	dish, err := s.repo.GetDish(ctx, id)
	if err != nil {
		return models.Dish{}, apperr.FromStore("get dish", "dish", id, err)
	}
	return dish, nil
}

// ListDishes returns every dish.
func (s *Service) ListDishes(ctx context.Context) ([]models.Dish, error) {
	list, err := s.repo.ListDishes(ctx)
	if err != nil {
		return nil, apperr.Persistence("list dishes", err)
	}
	return list, nil
}

// CascadeIngredient recomputes the full cost of every dish that references the ingredient
// and persists it. It keeps going when a dish fails and returns how many were written.
func (s *Service) CascadeIngredient(ctx context.Context, ingredientID string) (int, error) {
	const op = "cascade ingredient"

	dishIDs := s.dishesUsing(ctx, ingredientID)
	if len(dishIDs) == 0 {
		return 0, nil
	}

	ingredients, err := s.repo.ListIngredients(ctx)
	if err != nil {
		return 0, apperr.Persistence(op, err)
	}
	byID := indexIngredients(ingredients)

	var (
		touched int
		errs    []error
	)
	for _, dishID := range dishIDs {
		dish, err := s.repo.GetDish(ctx, dishID)
		if errors.Is(err, apperr.ErrRecordNotFound) {
			s.index.Remove(dishID)
			continue
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("load dish %s: %w", dishID, err))
			continue
		}

		compiled := Compile(dish.Ingredients, byID, dish.Price)
		dish.Ingredients = compiled.Lines
		dish.Cost = compiled.Cost
		dish.Profit = compiled.Profit
		dish.UpdatedAt = s.now()

		if err := s.repo.UpdateDish(ctx, dish); err != nil {
			errs = append(errs, fmt.Errorf("persist dish %s: %w", dishID, err))
			continue
		}
		s.index.Put(dish)
		touched++
	}

	s.logger.Info("ingredient cascade finished",
		zap.String("ingredient_id", ingredientID),
		zap.Int("dishes_updated", touched),
		zap.Int("dishes_failed", len(errs)))

	if touched > 0 {
		notify.Success(ctx, s.notifier, models.NotificationCatalog,
			fmt.Sprintf("Se actualizaron %d platos con el nuevo costo del ingrediente", touched), "")
	}
	if len(errs) > 0 {
		err := apperr.Persistence(op, errors.Join(errs...))
		notify.Failure(ctx, s.notifier, "Error al actualizar los platos", err)
		return touched, err
	}
	return touched, nil
}

// dishesUsing merges the reverse index with a store query so a stale index snapshot
// cannot hide a dish from the cascade. Dishes found only in the store are put back into
// the index.
func (s *Service) dishesUsing(ctx context.Context, ingredientID string) []string {
	ids := make(map[string]struct{})
	for _, id := range s.index.DishesUsing(ingredientID) {
		ids[id] = struct{}{}
	}

	stored, err := s.repo.ListDishesUsing(ctx, ingredientID)
	if err != nil {
		s.logger.Warn("dish lookup by ingredient failed, using index only",
			zap.String("ingredient_id", ingredientID), zap.Error(err))
	}
	for _, dish := range stored {
		if _, ok := ids[dish.ID]; !ok {
			s.index.Put(dish)
			ids[dish.ID] = struct{}{}
		}
	}

	out := make([]string, 0, len(ids))
	for id := range ids {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (s *Service) cascadeResult(ctx context.Context, ing models.Ingredient) IngredientResult {
	result := IngredientResult{Ingredient: ing}
	touched, err := s.CascadeIngredient(ctx, ing.ID)
	result.DishesUpdated = touched
	if err != nil {
		s.logger.Warn("ingredient cascade incomplete", zap.String("ingredient_id", ing.ID), zap.Error(err))
		result.Warnings = append(result.Warnings, err.Error())
	}
	return result
}

func (s *Service) compileInput(ctx context.Context, op string, in DishInput) (Compiled, error) {
	ingredients, err := s.repo.ListIngredients(ctx)
	if err != nil {
		return Compiled{}, apperr.Persistence(op, err)
	}

	lines := make([]models.DishIngredient, 0, len(in.Ingredients))
	for _, line := range in.Ingredients {
		lines = append(lines, models.DishIngredient{IngredientID: line.IngredientID, Portions: line.Portions})
	}
	return Compile(lines, indexIngredients(ingredients), in.Price), nil
}
