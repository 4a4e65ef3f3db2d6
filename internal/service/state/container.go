// Package state keeps the in-memory mirror of every synchronized entity set and publishes
// the derived dashboard whenever one of them is replaced.
package state

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/comedor/internal/domain/models"
	"github.com/mamadbah2/comedor/internal/service/notify"
)

const listenerBuffer = 16

// RemoteSaleMessage is the toast raised when another device records a sale.
const RemoteSaleMessage = "Nueva venta registrada en otro dispositivo"

// EventType identifies what an Event carries.
type EventType string

const (
	EventDashboard    EventType = "dashboard"
	EventNotification EventType = "notification"
)

// Event is pushed to stream listeners.
type Event struct {
	Type         EventType            `json:"type"`
	Dashboard    *models.Dashboard    `json:"dashboard,omitempty"`
	Notification *models.Notification `json:"notification,omitempty"`
}

// DashboardBuilder derives the dashboard from a full snapshot.
type DashboardBuilder func(models.Snapshot) models.Dashboard

// Option customizes a Container.
type Option func(*Container)

// WithDishHook runs fn with every dish snapshot, after the container is updated.
func WithDishHook(fn func([]models.Dish)) Option {
	return func(c *Container) { c.onDishes = fn }
}

// WithForward sends every notification raised by the container to n as well as to
// stream listeners.
func WithForward(n notify.Notifier) Option {
	return func(c *Container) { c.forward = n }
}

// Container is the single update entry point per entity set.
type Container struct {
	mu        sync.RWMutex
	snapshot  models.Snapshot
	dashboard models.Dashboard

	salesSeen     bool
	lastSaleCount int

	build    DashboardBuilder
	onDishes func([]models.Dish)
	forward  notify.Notifier
	logger   *zap.Logger
	now      func() time.Time

	listenersMu sync.Mutex
	listeners   map[int]chan Event
	nextID      int
}

// NewContainer creates an empty container.
func NewContainer(build DashboardBuilder, logger *zap.Logger, opts ...Option) *Container {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Container{
		build:     build,
		logger:    logger,
		now:       time.Now,
		listeners: make(map[int]chan Event),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ReplaceIngredients swaps the ingredient set.
func (c *Container) ReplaceIngredients(items []models.Ingredient) {
	c.replace(func(s *models.Snapshot) { s.Ingredients = items })
}

// ReplaceDishes swaps the dish set.
func (c *Container) ReplaceDishes(items []models.Dish) {
	c.replace(func(s *models.Snapshot) { s.Dishes = items })
	if c.onDishes != nil {
		c.onDishes(items)
	}
}

// ReplaceMovements swaps the cash movement log.
func (c *Container) ReplaceMovements(items []models.CashMovement) {
	c.replace(func(s *models.Snapshot) { s.Movements = items })
}

// ReplaceBalances swaps the ledger balances.
func (c *Container) ReplaceBalances(b models.Balances) {
	c.replace(func(s *models.Snapshot) { s.Balances = b })
}

// ReplaceSales swaps the sale set. A notification is raised only when the count grows
// past the last seen count; the first snapshot only sets the baseline.
func (c *Container) ReplaceSales(items []models.Sale) {
	var grew bool
	c.replace(func(s *models.Snapshot) {
		s.Sales = items
		grew = c.salesSeen && len(items) > 0 && len(items) > c.lastSaleCount
		c.salesSeen = true
		c.lastSaleCount = len(items)
	})

	if grew {
		c.Notify(context.Background(), models.Notification{
			Kind:    models.NotificationRemoteSale,
			Level:   models.LevelInfo,
			Title:   "Ventas",
			Message: RemoteSaleMessage,
		})
	}
}

func (c *Container) replace(apply func(*models.Snapshot)) {
	c.mu.Lock()
	apply(&c.snapshot)
	if c.build != nil {
		c.dashboard = c.build(c.snapshot)
	}
	dashboard := c.dashboard
	c.mu.Unlock()

	c.publish(Event{Type: EventDashboard, Dashboard: &dashboard})
}

// Snapshot returns the current entity sets. Slices are shared and must not be modified.
func (c *Container) Snapshot() models.Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshot
}

// Dashboard returns the last derived dashboard.
func (c *Container) Dashboard() models.Dashboard {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.dashboard
}

// Notify broadcasts a toast to stream listeners. It implements notify.Notifier.
func (c *Container) Notify(ctx context.Context, n models.Notification) {
	if n.CreatedAt.IsZero() {
		n.CreatedAt = c.now()
	}
	c.publish(Event{Type: EventNotification, Notification: &n})
	if c.forward != nil {
		c.forward.Notify(ctx, n)
	}
}

// Subscribe registers a stream listener. Events are dropped for listeners that fall
// behind. The returned cancel closes the channel.
func (c *Container) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, listenerBuffer)

	c.listenersMu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = ch
	c.listenersMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.listenersMu.Lock()
			delete(c.listeners, id)
			c.listenersMu.Unlock()
			close(ch)
		})
	}
}

func (c *Container) publish(ev Event) {
	c.listenersMu.Lock()
	defer c.listenersMu.Unlock()

	for id, ch := range c.listeners {
		select {
		case ch <- ev:
		default:
			c.logger.Debug("stream listener lagging, event dropped", zap.Int("listener", id), zap.String("type", string(ev.Type)))
		}
	}
}
