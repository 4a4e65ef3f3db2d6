package catalog

import (
	"github.com/shopspring/decimal"

	"github.com/mamadbah2/comedor/internal/domain/models"
	"github.com/mamadbah2/comedor/pkg/money"
)

// Compiled is the derived part of a dish.
type Compiled struct {
	Cost   decimal.Decimal
	Profit decimal.Decimal
	Lines  []models.DishIngredient
}

// Compile derives cost and profit from recipe lines against the current ingredients.
// Lines pointing at unknown ingredients contribute nothing and are returned unchanged;
// the others get the ingredient's name and current cost-per-portion as snapshot.
func Compile(lines []models.DishIngredient, ingredients map[string]models.Ingredient, price decimal.Decimal) Compiled {
	cost := decimal.Zero
	refreshed := make([]models.DishIngredient, 0, len(lines))

	for _, line := range lines {
		portions := line.PortionsUsed()
		line.Portions = portions
		line.LegacyQuantity = decimal.Zero

		ing, ok := ingredients[line.IngredientID]
		if !ok {
			refreshed = append(refreshed, line)
			continue
		}

		unit := ing.UnitCost()
		line.CostPerPortion = unit
		line.Name = ing.Name
		cost = cost.Add(unit.Mul(portions))
		refreshed = append(refreshed, line)
	}

	cost = money.Round(cost)
	return Compiled{
		Cost:   cost,
		Profit: price.Sub(cost),
		Lines:  refreshed,
	}
}

func indexIngredients(list []models.Ingredient) map[string]models.Ingredient {
	byID := make(map[string]models.Ingredient, len(list))
	for _, ing := range list {
		byID[ing.ID] = ing
	}
	return byID
}
