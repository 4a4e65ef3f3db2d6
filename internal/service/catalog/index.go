package catalog

import (
	"sort"
	"sync"

	"github.com/mamadbah2/comedor/internal/domain/models"
)

// Index maps ingredient ids to the dishes whose recipe uses them.
type Index struct {
	mu           sync.RWMutex
	byIngredient map[string]map[string]struct{}
	byDish       map[string][]string
}

// NewIndex returns an empty index.
func NewIndex() *Index {
	return &Index{
		byIngredient: make(map[string]map[string]struct{}),
		byDish:       make(map[string][]string),
	}
}

// Put records or replaces the references of a dish.
func (x *Index) Put(dish models.Dish) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.remove(dish.ID)

	ids := dish.IngredientIDs()
	x.byDish[dish.ID] = ids
	for _, ingID := range ids {
		dishes, ok := x.byIngredient[ingID]
		if !ok {
			dishes = make(map[string]struct{})
			x.byIngredient[ingID] = dishes
		}
		dishes[dish.ID] = struct{}{}
	}
}

// Remove forgets a dish.
func (x *Index) Remove(dishID string) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.remove(dishID)
}

// Rebuild replaces the whole index with the given dishes.
func (x *Index) Rebuild(dishes []models.Dish) {
	next := NewIndex()
	for _, dish := range dishes {
		next.Put(dish)
	}

	x.mu.Lock()
	defer x.mu.Unlock()
	x.byIngredient = next.byIngredient
	x.byDish = next.byDish
}

// DishesUsing returns the ids of the dishes that reference the ingredient, sorted.
func (x *Index) DishesUsing(ingredientID string) []string {
	x.mu.RLock()
	defer x.mu.RUnlock()

	dishes := x.byIngredient[ingredientID]
	ids := make([]string, 0, len(dishes))
	for id := range dishes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len is the number of indexed dishes.
func (x *Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.byDish)
}

func (x *Index) remove(dishID string) {
	for _, ingID := range x.byDish[dishID] {
		dishes := x.byIngredient[ingID]
		delete(dishes, dishID)
		if len(dishes) == 0 {
			delete(x.byIngredient, ingID)
		}
	}
	delete(x.byDish, dishID)
}
