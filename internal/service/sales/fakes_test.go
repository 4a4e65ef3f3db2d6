package sales

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mamadbah2/comedor/internal/domain/apperr"
	"github.com/mamadbah2/comedor/internal/domain/models"
)

type memSales struct {
	mu        sync.Mutex
	sales     map[string]models.Sale
	seq       int
	creates   int
	createErr error
}

func newMemSales() *memSales {
	return &memSales{sales: make(map[string]models.Sale)}
}

func (m *memSales) CreateSale(_ context.Context, sale models.Sale) (models.Sale, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creates++
	if m.createErr != nil {
		return models.Sale{}, m.createErr
	}
	m.seq++
	sale.ID = fmt.Sprintf("sale-%07d", m.seq)
	m.sales[sale.ID] = sale
	return sale, nil
}

func (m *memSales) GetSale(_ context.Context, id string) (models.Sale, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sale, ok := m.sales[id]
	if !ok {
		return models.Sale{}, apperr.ErrRecordNotFound
	}
	return sale, nil
}

func (m *memSales) ListSales(_ context.Context, from, to time.Time) ([]models.Sale, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Sale
	for _, s := range m.sales {
		if (from.IsZero() || !s.CreatedAt.Before(from)) && (to.IsZero() || s.CreatedAt.Before(to)) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memSales) ListSalesByStatus(_ context.Context, status models.SaleStatus) ([]models.Sale, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Sale
	for _, s := range m.sales {
		if s.Status == status {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *memSales) UpdateSaleStatus(_ context.Context, id string, status models.SaleStatus, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	sale, ok := m.sales[id]
	if !ok {
		return apperr.ErrRecordNotFound
	}
	sale.Status = status
	sale.CompletedAt = &at
	m.sales[id] = sale
	return nil
}

func (m *memSales) DeleteSale(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sales[id]; !ok {
		return apperr.ErrRecordNotFound
	}
	delete(m.sales, id)
	return nil
}

type dishMap map[string]models.Dish

func (d dishMap) GetDish(_ context.Context, id string) (models.Dish, error) {
	dish, ok := d[id]
	if !ok {
		return models.Dish{}, apperr.NotFound("get dish", "dish", id)
	}
	return dish, nil
}

type fakeLedger struct {
	mu        sync.Mutex
	capital   decimal.Decimal
	profit    decimal.Decimal
	credits   int
	creditErr error
	debitErr  error
	block     chan struct{}
	entered   chan struct{}
}

func (l *fakeLedger) CreditSale(_ context.Context, _ string, cost, profit decimal.Decimal) error {
	if l.entered != nil {
		l.entered <- struct{}{}
	}
	if l.block != nil {
		<-l.block
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.credits++
	if l.creditErr != nil {
		return l.creditErr
	}
	l.capital = l.capital.Add(cost)
	l.profit = l.profit.Add(profit)
	return nil
}

func (l *fakeLedger) DebitSale(_ context.Context, _ string, _ time.Time, cost, profit decimal.Decimal) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.debitErr != nil {
		return l.debitErr
	}
	l.capital = l.capital.Sub(cost)
	l.profit = l.profit.Sub(profit)
	return nil
}

var errStore = errors.New("store unavailable")
