package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mamadbah2/comedor/internal/domain/models"
)

// CreateIngredient inserts an ingredient, assigning an id when missing.
func (s *Store) CreateIngredient(ctx context.Context, ing models.Ingredient) (models.Ingredient, error) {
	if ing.ID == "" {
		ing.ID = newID()
	}
	if _, err := s.collection(CollectionIngredients).InsertOne(ctx, ing); err != nil {
		return models.Ingredient{}, fmt.Errorf("insert ingredient: %w", err)
	}
	return ing, nil
}

// UpdateIngredient writes the editable and derived fields of an ingredient.
func (s *Store) UpdateIngredient(ctx context.Context, ing models.Ingredient) error {
	return s.setFields(ctx, CollectionIngredients, ing.ID, bson.M{
		"name":           ing.Name,
		"price":          ing.Price,
		"portions":       ing.Portions,
		"costPerPortion": ing.CostPerPortion,
		"remaining":      ing.Remaining,
		"updatedAt":      ing.UpdatedAt,
	})
}

// DeleteIngredient removes an ingredient.
func (s *Store) DeleteIngredient(ctx context.Context, id string) error {
	return s.deleteOne(ctx, CollectionIngredients, id)
}

// GetIngredient loads one ingredient.
func (s *Store) GetIngredient(ctx context.Context, id string) (models.Ingredient, error) {
	var ing models.Ingredient
	if err := s.findOne(ctx, CollectionIngredients, id, &ing); err != nil {
		return models.Ingredient{}, err
	}
	return ing, nil
}

// ListIngredients returns every ingredient ordered by name.
func (s *Store) ListIngredients(ctx context.Context) ([]models.Ingredient, error) {
	out := []models.Ingredient{}
	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})
	if err := s.findAll(ctx, CollectionIngredients, bson.M{}, &out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateDish inserts a dish, assigning an id when missing.
func (s *Store) CreateDish(ctx context.Context, dish models.Dish) (models.Dish, error) {
	if dish.ID == "" {
		dish.ID = newID()
	}
	if _, err := s.collection(CollectionDishes).InsertOne(ctx, dish); err != nil {
		return models.Dish{}, fmt.Errorf("insert dish: %w", err)
	}
	return dish, nil
}

// UpdateDish writes the recipe, price and derived cost of a dish.
func (s *Store) UpdateDish(ctx context.Context, dish models.Dish) error {
	return s.setFields(ctx, CollectionDishes, dish.ID, bson.M{
		"name":        dish.Name,
		"price":       dish.Price,
		"ingredients": dish.Ingredients,
		"cost":        dish.Cost,
		"profit":      dish.Profit,
		"updatedAt":   dish.UpdatedAt,
	})
}

// DeleteDish removes a dish.
func (s *Store) DeleteDish(ctx context.Context, id string) error {
	return s.deleteOne(ctx, CollectionDishes, id)
}

// GetDish loads one dish.
func (s *Store) GetDish(ctx context.Context, id string) (models.Dish, error) {
	var dish models.Dish
	if err := s.findOne(ctx, CollectionDishes, id, &dish); err != nil {
		return models.Dish{}, err
	}
	return dish, nil
}

// ListDishes returns every dish ordered by name.
func (s *Store) ListDishes(ctx context.Context) ([]models.Dish, error) {
	out := []models.Dish{}
	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})
	if err := s.findAll(ctx, CollectionDishes, bson.M{}, &out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

// ListDishesUsing returns the dishes whose recipe references the ingredient.
func (s *Store) ListDishesUsing(ctx context.Context, ingredientID string) ([]models.Dish, error) {
	out := []models.Dish{}
	if err := s.findAll(ctx, CollectionDishes, bson.M{"ingredients.ingredientId": ingredientID}, &out); err != nil {
		return nil, err
	}
	return out, nil
}
