package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mamadbah2/comedor/pkg/money"
)

// SaleStatus tracks the kitchen lifecycle of a sale.
type SaleStatus string

const (
	SaleStatusActive    SaleStatus = "active"
	SaleStatusCompleted SaleStatus = "completed"
)

// SaleShape records which stored layout a sale was loaded from.
type SaleShape string

const (
	SaleShapeMultiItem  SaleShape = "multi"
	SaleShapeSingleItem SaleShape = "legacy"
)

// SaleItem is one cart line. Cost is the dish's stored unit cost when the line was added.
type SaleItem struct {
	DishID     string          `bson:"dishId" json:"dishId"`
	DishName   string          `bson:"dishName" json:"dishName"`
	Quantity   int             `bson:"quantity" json:"quantity"`
	Price      decimal.Decimal `bson:"price" json:"price"`
	Cost       decimal.Decimal `bson:"cost" json:"cost"`
	TotalPrice decimal.Decimal `bson:"totalPrice" json:"totalPrice"`
	TotalCost  decimal.Decimal `bson:"totalCost" json:"totalCost"`
	Profit     decimal.Decimal `bson:"profit" json:"profit"`
}

// NewSaleItem builds a line and its totals.
func NewSaleItem(dishID, dishName string, quantity int, price, cost decimal.Decimal) SaleItem {
	item := SaleItem{
		DishID:   dishID,
		DishName: dishName,
		Price:    price,
		Cost:     cost,
	}
	return item.WithQuantity(quantity)
}

// WithQuantity returns the line with a new quantity and recomputed totals.
func (i SaleItem) WithQuantity(quantity int) SaleItem {
	q := decimal.NewFromInt(int64(quantity))
	i.Quantity = quantity
	i.TotalPrice = money.Round(i.Price.Mul(q))
	i.TotalCost = money.Round(i.Cost.Mul(q))
	i.Profit = i.TotalPrice.Sub(i.TotalCost)
	return i
}

// Sale is the canonical in-memory sale, whatever layout it was stored in.
type Sale struct {
	ID          string          `bson:"_id" json:"id"`
	Items       []SaleItem      `bson:"items" json:"items"`
	TotalAmount decimal.Decimal `bson:"totalAmount" json:"totalAmount"`
	TotalCost   decimal.Decimal `bson:"totalCost" json:"totalCost"`
	TotalProfit decimal.Decimal `bson:"totalProfit" json:"totalProfit"`
	ItemCount   int             `bson:"itemCount" json:"itemCount"`
	Status      SaleStatus      `bson:"status" json:"status"`
	CreatedAt   time.Time       `bson:"createdAt" json:"createdAt"`
	CompletedAt *time.Time      `bson:"completedAt,omitempty" json:"completedAt,omitempty"`
	Shape       SaleShape       `bson:"-" json:"shape"`
}

// NewSale aggregates lines into an active sale.
func NewSale(items []SaleItem, createdAt time.Time) Sale {
	sale := Sale{
		Items:     append([]SaleItem(nil), items...),
		ItemCount: len(items),
		Status:    SaleStatusActive,
		CreatedAt: createdAt,
		Shape:     SaleShapeMultiItem,
	}
	for _, item := range items {
		sale.TotalAmount = sale.TotalAmount.Add(item.TotalPrice)
		sale.TotalCost = sale.TotalCost.Add(item.TotalCost)
	}
	sale.TotalProfit = sale.TotalAmount.Sub(sale.TotalCost)
	return sale
}

// LedgerAmounts returns the (cost, profit) pair the sale credited to the ledger.
func (s Sale) LedgerAmounts() (decimal.Decimal, decimal.Decimal) {
	return s.TotalCost, s.TotalProfit
}

// Units sums the quantities of every line.
func (s Sale) Units() int {
	total := 0
	for _, item := range s.Items {
		total += item.Quantity
	}
	return total
}

// Number is the short ticket number shown on receipts and comandas.
func (s Sale) Number() string {
	if len(s.ID) <= 6 {
		return s.ID
	}
	return s.ID[len(s.ID)-6:]
}

// Summary lists the lines as "2x Pan, 1x Sopa".
func (s Sale) Summary() string {
	parts := make([]string, 0, len(s.Items))
	for _, item := range s.Items {
		parts = append(parts, fmt.Sprintf("%dx %s", item.Quantity, item.DishName))
	}
	return strings.Join(parts, ", ")
}

// SaleDocument is the stored layout of a sale. It covers the current multi-item layout and
// the older single-item one written as {dishId, dishName, quantity, price, total, cost, profit}.
type SaleDocument struct {
	ID          string          `bson:"_id"`
	Items       []SaleItem      `bson:"items,omitempty"`
	TotalAmount decimal.Decimal `bson:"totalAmount,omitempty"`
	TotalCost   decimal.Decimal `bson:"totalCost,omitempty"`
	TotalProfit decimal.Decimal `bson:"totalProfit,omitempty"`
	ItemCount   int             `bson:"itemCount,omitempty"`
	Status      SaleStatus      `bson:"status,omitempty"`
	CreatedAt   time.Time       `bson:"createdAt"`
	CompletedAt *time.Time      `bson:"completedAt,omitempty"`

	DishID   string          `bson:"dishId,omitempty"`
	DishName string          `bson:"dishName,omitempty"`
	Quantity int             `bson:"quantity,omitempty"`
	Price    decimal.Decimal `bson:"price,omitempty"`
	Total    decimal.Decimal `bson:"total,omitempty"`
	Cost     decimal.Decimal `bson:"cost,omitempty"`
	Profit   decimal.Decimal `bson:"profit,omitempty"`
}

// Shape tells which layout the document uses.
func (d SaleDocument) Shape() SaleShape {
	if len(d.Items) == 0 && (d.DishID != "" || !d.Total.IsZero()) {
		return SaleShapeSingleItem
	}
	return SaleShapeMultiItem
}

// Canonical resolves the document into a Sale. Stored totals are snapshots and are kept
// as written; they are only derived from the lines when the document lacks them.
func (d SaleDocument) Canonical() Sale {
	status := d.Status
	if status == "" {
		status = SaleStatusActive
	}

	sale := Sale{
		ID:          d.ID,
		Status:      status,
		CreatedAt:   d.CreatedAt,
		CompletedAt: d.CompletedAt,
		Shape:       d.Shape(),
	}

	if sale.Shape == SaleShapeSingleItem {
		quantity := d.Quantity
		if quantity <= 0 {
			quantity = 1
		}
		name := d.DishName
		if name == "" {
			name = "Plato"
		}
		total := d.Total
		if total.IsZero() {
			total = money.Round(d.Price.Mul(decimal.NewFromInt(int64(quantity))))
		}
		// Legacy cost and profit are line totals already.
		unitCost := d.Cost.Div(decimal.NewFromInt(int64(quantity)))
		sale.Items = []SaleItem{{
			DishID:     d.DishID,
			DishName:   name,
			Quantity:   quantity,
			Price:      d.Price,
			Cost:       unitCost,
			TotalPrice: total,
			TotalCost:  d.Cost,
			Profit:     d.Profit,
		}}
		sale.TotalAmount = total
		sale.TotalCost = d.Cost
		sale.TotalProfit = d.Profit
		sale.ItemCount = 1
		return sale
	}

	sale.Items = d.Items
	sale.ItemCount = d.ItemCount
	if sale.ItemCount == 0 {
		sale.ItemCount = len(d.Items)
	}
	sale.TotalAmount = d.TotalAmount
	sale.TotalCost = d.TotalCost
	sale.TotalProfit = d.TotalProfit
	if sale.TotalAmount.IsZero() && sale.TotalCost.IsZero() && len(d.Items) > 0 {
		derived := NewSale(d.Items, d.CreatedAt)
		sale.TotalAmount = derived.TotalAmount
		sale.TotalCost = derived.TotalCost
		sale.TotalProfit = derived.TotalProfit
	}
	return sale
}
