package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Ingredient is a purchased input whose price is spread across the portions it yields.
type Ingredient struct {
	ID             string          `bson:"_id" json:"id"`
	Name           string          `bson:"name" json:"name"`
	Price          decimal.Decimal `bson:"price" json:"price"`
	Portions       int             `bson:"portions" json:"portions"`
	CostPerPortion decimal.Decimal `bson:"costPerPortion" json:"costPerPortion"`
	Remaining      int             `bson:"remaining" json:"remaining"`
	CreatedAt      time.Time       `bson:"createdAt" json:"createdAt"`
	UpdatedAt      time.Time       `bson:"updatedAt,omitempty" json:"updatedAt,omitempty"`
}

// UnitCost returns the stored cost per portion, falling back to price/portions when the
// derived field was never written.
func (i Ingredient) UnitCost() decimal.Decimal {
	if !i.CostPerPortion.IsZero() {
		return i.CostPerPortion
	}
	return CostPerPortion(i.Price, i.Portions)
}

// CostPerPortion divides a purchase price across its portions. Zero portions yield zero.
func CostPerPortion(price decimal.Decimal, portions int) decimal.Decimal {
	if portions <= 0 {
		return decimal.Zero
	}
	return price.Div(decimal.NewFromInt(int64(portions)))
}
