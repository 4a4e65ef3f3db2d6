package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Period selects the window of a sales report.
type Period string

const (
	PeriodDaily   Period = "daily"
	PeriodWeekly  Period = "weekly"
	PeriodMonthly Period = "monthly"
	PeriodYearly  Period = "yearly"
)

// ParsePeriod accepts the English names and their Spanish equivalents.
func ParsePeriod(raw string) (Period, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "daily", "diario", "hoy":
		return PeriodDaily, nil
	case "weekly", "semanal", "semana":
		return PeriodWeekly, nil
	case "monthly", "mensual", "mes":
		return PeriodMonthly, nil
	case "yearly", "anual", "año", "ano":
		return PeriodYearly, nil
	default:
		return "", fmt.Errorf("unknown period %q", raw)
	}
}

// Bucket is one point of a trend series.
type Bucket struct {
	Label  string          `json:"label"`
	Sales  decimal.Decimal `json:"sales"`
	Profit decimal.Decimal `json:"profit"`
}

// DishRank is a dish with the units sold in the period.
type DishRank struct {
	DishName string `json:"dishName"`
	Quantity int    `json:"quantity"`
}

// PeriodReport aggregates the sales of a window.
type PeriodReport struct {
	Period      Period          `json:"period"`
	From        time.Time       `json:"from"`
	To          time.Time       `json:"to"`
	SalesCount  int             `json:"salesCount"`
	TotalSales  decimal.Decimal `json:"totalSales"`
	TotalCosts  decimal.Decimal `json:"totalCosts"`
	TotalProfit decimal.Decimal `json:"totalProfit"`
	TotalItems  int             `json:"totalItems"`
	AverageSale decimal.Decimal `json:"averageSale"`
	TopDishes   []DishRank      `json:"topDishes"`
	DayOfWeek   []Bucket        `json:"dayOfWeek"`
	Trend       []Bucket        `json:"trend"`
	Sales       []Sale          `json:"sales,omitempty"`
}

// FinancialSummary is the end-of-day cash view.
type FinancialSummary struct {
	TotalSales  decimal.Decimal `json:"totalSales"`
	TotalCost   decimal.Decimal `json:"totalCost"`
	TotalProfit decimal.Decimal `json:"totalProfit"`
	SalesCount  int             `json:"salesCount"`
	AverageSale decimal.Decimal `json:"averageSale"`
}

// Dashboard is the derived view every device renders.
type Dashboard struct {
	TotalIngredients int              `json:"totalIngredients"`
	TotalDishes      int              `json:"totalDishes"`
	TodayTotal       decimal.Decimal  `json:"todayTotal"`
	TodayProfit      decimal.Decimal  `json:"todayProfit"`
	RecentSales      []Sale           `json:"recentSales"`
	TodaySales       []Sale           `json:"todaySales"`
	Summary          FinancialSummary `json:"summary"`
	Balances         Balances         `json:"balances"`
	GeneratedAt      time.Time        `json:"generatedAt"`
}

// Snapshot is the full in-memory copy of every synchronized entity set.
type Snapshot struct {
	Ingredients []Ingredient
	Dishes      []Dish
	Sales       []Sale
	Movements   []CashMovement
	Balances    Balances
}

// DailyReport is the closing record stored once per day.
type DailyReport struct {
	Date        time.Time       `bson:"date" json:"date"`
	SalesCount  int             `bson:"sales_count" json:"sales_count"`
	TotalSales  decimal.Decimal `bson:"total_sales" json:"total_sales"`
	TotalCost   decimal.Decimal `bson:"total_cost" json:"total_cost"`
	TotalProfit decimal.Decimal `bson:"total_profit" json:"total_profit"`
	AverageSale decimal.Decimal `bson:"average_sale" json:"average_sale"`
	TopDish     string          `bson:"top_dish,omitempty" json:"top_dish,omitempty"`
	Capital     decimal.Decimal `bson:"capital" json:"capital"`
	Profit      decimal.Decimal `bson:"profit" json:"profit"`
	CreatedAt   time.Time       `bson:"created_at" json:"created_at"`
}
