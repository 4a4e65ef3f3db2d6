package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DishIngredient is one recipe line: how many portions of an ingredient a dish uses,
// with the cost-per-portion snapshot taken at the last recompute.
type DishIngredient struct {
	IngredientID   string          `bson:"ingredientId" json:"ingredientId"`
	Name           string          `bson:"name" json:"name"`
	Portions       decimal.Decimal `bson:"portions" json:"portions"`
	CostPerPortion decimal.Decimal `bson:"costPerPortion" json:"costPerPortion"`

	// Older clients stored the portions under "quantity".
	LegacyQuantity decimal.Decimal `bson:"quantity,omitempty" json:"-"`
}

// PortionsUsed returns the portions of the line, reading the legacy field when needed.
func (l DishIngredient) PortionsUsed() decimal.Decimal {
	if l.Portions.IsZero() && !l.LegacyQuantity.IsZero() {
		return l.LegacyQuantity
	}
	return l.Portions
}

// Dish is a sellable item composed of ingredient lines. Cost and Profit are derived and
// stored; they are rewritten whenever a referenced ingredient changes.
type Dish struct {
	ID          string           `bson:"_id" json:"id"`
	Name        string           `bson:"name" json:"name"`
	Price       decimal.Decimal  `bson:"price" json:"price"`
	Ingredients []DishIngredient `bson:"ingredients" json:"ingredients"`
	Cost        decimal.Decimal  `bson:"cost" json:"cost"`
	Profit      decimal.Decimal  `bson:"profit" json:"profit"`
	CreatedAt   time.Time        `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time        `bson:"updatedAt,omitempty" json:"updatedAt,omitempty"`
}

// IngredientIDs lists the distinct ingredient identities the dish references.
func (d Dish) IngredientIDs() []string {
	seen := make(map[string]struct{}, len(d.Ingredients))
	ids := make([]string, 0, len(d.Ingredients))
	for _, line := range d.Ingredients {
		if line.IngredientID == "" {
			continue
		}
		if _, ok := seen[line.IngredientID]; ok {
			continue
		}
		seen[line.IngredientID] = struct{}{}
		ids = append(ids, line.IngredientID)
	}
	return ids
}
