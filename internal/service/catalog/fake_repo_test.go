package catalog

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/mamadbah2/comedor/internal/domain/apperr"
	"github.com/mamadbah2/comedor/internal/domain/models"
)

// memRepo is an in-memory Repository.
type memRepo struct {
	mu          sync.Mutex
	ingredients map[string]models.Ingredient
	dishes      map[string]models.Dish
	seq         int
	writes      int
	failDish    map[string]bool
	failUsing   bool
}

func newMemRepo() *memRepo {
	return &memRepo{
		ingredients: make(map[string]models.Ingredient),
		dishes:      make(map[string]models.Dish),
		failDish:    make(map[string]bool),
	}
}

func (r *memRepo) nextID(prefix string) string {
	r.seq++
	return fmt.Sprintf("%s-%d", prefix, r.seq)
}

func (r *memRepo) CreateIngredient(_ context.Context, ing models.Ingredient) (models.Ingredient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ing.ID == "" {
		ing.ID = r.nextID("ing")
	}
	r.ingredients[ing.ID] = ing
	r.writes++
	return ing, nil
}

func (r *memRepo) UpdateIngredient(_ context.Context, ing models.Ingredient) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.ingredients[ing.ID]; !ok {
		return apperr.ErrRecordNotFound
	}
	r.ingredients[ing.ID] = ing
	r.writes++
	return nil
}

func (r *memRepo) DeleteIngredient(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.ingredients[id]; !ok {
		return apperr.ErrRecordNotFound
	}
	delete(r.ingredients, id)
	r.writes++
	return nil
}

func (r *memRepo) GetIngredient(_ context.Context, id string) (models.Ingredient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ing, ok := r.ingredients[id]
	if !ok {
		return models.Ingredient{}, apperr.ErrRecordNotFound
	}
	return ing, nil
}

func (r *memRepo) ListIngredients(_ context.Context) ([]models.Ingredient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.Ingredient, 0, len(r.ingredients))
	for _, ing := range r.ingredients {
		out = append(out, ing)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memRepo) CreateDish(_ context.Context, dish models.Dish) (models.Dish, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if dish.ID == "" {
		dish.ID = r.nextID("dish")
	}
	r.dishes[dish.ID] = dish
	r.writes++
	return dish, nil
}

func (r *memRepo) UpdateDish(_ context.Context, dish models.Dish) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failDish[dish.ID] {
		return errors.New("write timeout")
	}
	if _, ok := r.dishes[dish.ID]; !ok {
		return apperr.ErrRecordNotFound
	}
	r.dishes[dish.ID] = dish
	r.writes++
	return nil
}

func (r *memRepo) DeleteDish(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.dishes[id]; !ok {
		return apperr.ErrRecordNotFound
	}
	delete(r.dishes, id)
	r.writes++
	return nil
}

func (r *memRepo) GetDish(_ context.Context, id string) (models.Dish, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	dish, ok := r.dishes[id]
	if !ok {
		return models.Dish{}, apperr.ErrRecordNotFound
	}
	return dish, nil
}

func (r *memRepo) ListDishes(_ context.Context) ([]models.Dish, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.Dish, 0, len(r.dishes))
	for _, dish := range r.dishes {
		out = append(out, dish)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memRepo) ListDishesUsing(_ context.Context, ingredientID string) ([]models.Dish, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failUsing {
		return nil, errors.New("query timeout")
	}
	var out []models.Dish
	for _, dish := range r.dishes {
		for _, line := range dish.Ingredients {
			if line.IngredientID == ingredientID {
				out = append(out, dish)
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// collected keeps every notification it receives.
type collected struct {
	mu   sync.Mutex
	seen []models.Notification
}

func (c *collected) Notify(_ context.Context, n models.Notification) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seen = append(c.seen, n)
}

func (c *collected) titles() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.seen))
	for _, n := range c.seen {
		out = append(out, n.Title)
	}
	return out
}
