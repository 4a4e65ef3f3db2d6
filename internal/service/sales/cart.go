package sales

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mamadbah2/comedor/internal/domain/apperr"
	"github.com/mamadbah2/comedor/internal/domain/models"
)

// ErrSaleInFlight is returned while a cart is being finalized.
var ErrSaleInFlight = errors.New("sale already being saved")

// Cart is a read-only view of an in-progress sale.
type Cart struct {
	ID          string            `json:"id"`
	Items       []models.SaleItem `json:"items"`
	TotalAmount decimal.Decimal   `json:"totalAmount"`
	TotalCost   decimal.Decimal   `json:"totalCost"`
	TotalProfit decimal.Decimal   `json:"totalProfit"`
	Saving      bool              `json:"saving"`
	CreatedAt   time.Time         `json:"createdAt"`
	UpdatedAt   time.Time         `json:"updatedAt"`
}

type cartState struct {
	items     []models.SaleItem
	busy      bool
	createdAt time.Time
	updatedAt time.Time
}

// CartStore keeps the open carts of every device in memory.
type CartStore struct {
	mu    sync.Mutex
	carts map[string]*cartState
	now   func() time.Time
}

// NewCartStore returns an empty store.
func NewCartStore() *CartStore {
	return &CartStore{carts: make(map[string]*cartState), now: time.Now}
}

// Create opens an empty cart.
func (s *CartStore) Create() Cart {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.NewString()
	now := s.now()
	state := &cartState{createdAt: now, updatedAt: now}
	s.carts[id] = state
	return view(id, state)
}

// Get returns the cart.
func (s *CartStore) Get(id string) (Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.lookup("get cart", id)
	if err != nil {
		return Cart{}, err
	}
	return view(id, state), nil
}

// AddItem appends a line, or merges it into the line of the same dish: quantities add up
// and the line takes the latest price and cost.
func (s *CartStore) AddItem(id string, item models.SaleItem) (Cart, error) {
	return s.mutate("add cart item", id, func(state *cartState) error {
		for i, existing := range state.items {
			if existing.DishID != item.DishID {
				continue
			}
			merged := existing
			merged.DishName = item.DishName
			merged.Price = item.Price
			merged.Cost = item.Cost
			state.items[i] = merged.WithQuantity(existing.Quantity + item.Quantity)
			return nil
		}
		state.items = append(state.items, item)
		return nil
	})
}

// RemoveItem drops the line at index.
func (s *CartStore) RemoveItem(id string, index int) (Cart, error) {
	return s.mutate("remove cart item", id, func(state *cartState) error {
		if index < 0 || index >= len(state.items) {
			return apperr.Validation("remove cart item", "item index out of range")
		}
		state.items = append(state.items[:index], state.items[index+1:]...)
		return nil
	})
}

// Clear empties the cart.
func (s *CartStore) Clear(id string) (Cart, error) {
	return s.mutate("clear cart", id, func(state *cartState) error {
		state.items = nil
		return nil
	})
}

// Delete discards the cart.
func (s *CartStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.lookup("delete cart", id)
	if err != nil {
		return err
	}
	if state.busy {
		return ErrSaleInFlight
	}
	delete(s.carts, id)
	return nil
}

// acquire marks the cart busy and returns a copy of its lines.
func (s *CartStore) acquire(id string) ([]models.SaleItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.lookup("finalize sale", id)
	if err != nil {
		return nil, err
	}
	if state.busy {
		return nil, ErrSaleInFlight
	}
	state.busy = true
	return append([]models.SaleItem(nil), state.items...), nil
}

// release clears the busy flag, emptying the cart when the sale was recorded.
func (s *CartStore) release(id string, recorded bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.carts[id]
	if !ok {
		return
	}
	state.busy = false
	if recorded {
		state.items = nil
		state.updatedAt = s.now()
	}
}

func (s *CartStore) mutate(op, id string, fn func(*cartState) error) (Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.lookup(op, id)
	if err != nil {
		return Cart{}, err
	}
	if state.busy {
		return Cart{}, ErrSaleInFlight
	}
	if err := fn(state); err != nil {
		return Cart{}, err
	}
	state.updatedAt = s.now()
	return view(id, state), nil
}

func (s *CartStore) lookup(op, id string) (*cartState, error) {
	state, ok := s.carts[id]
	if !ok {
		return nil, apperr.NotFound(op, "cart", id)
	}
	return state, nil
}

func view(id string, state *cartState) Cart {
	preview := models.NewSale(state.items, state.createdAt)
	if preview.Items == nil {
		preview.Items = []models.SaleItem{}
	}
	return Cart{
		ID:          id,
		Items:       preview.Items,
		TotalAmount: preview.TotalAmount,
		TotalCost:   preview.TotalCost,
		TotalProfit: preview.TotalProfit,
		Saving:      state.busy,
		CreatedAt:   state.createdAt,
		UpdatedAt:   state.updatedAt,
	}
}
