package reporting

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mamadbah2/comedor/internal/domain/models"
	"github.com/mamadbah2/comedor/pkg/money"
)

const (
	dateLayout   = "2006-01-02"
	topDishLimit = 5
	recentLimit  = 5
)

var (
	dayNames   = [7]string{"Dom", "Lun", "Mar", "Mié", "Jue", "Vie", "Sáb"}
	monthNames = [12]string{"Ene", "Feb", "Mar", "Abr", "May", "Jun", "Jul", "Ago", "Sep", "Oct", "Nov", "Dic"}
)

// PeriodRange returns the half-open window [from, to) of the period containing ref. Weeks
// start on Sunday.
func PeriodRange(period models.Period, ref time.Time, loc *time.Location) (time.Time, time.Time) {
	ref = ref.In(loc)
	day := time.Date(ref.Year(), ref.Month(), ref.Day(), 0, 0, 0, 0, loc)

	switch period {
	case models.PeriodWeekly:
		start := day.AddDate(0, 0, -int(day.Weekday()))
		return start, start.AddDate(0, 0, 7)
	case models.PeriodMonthly:
		start := time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, loc)
		return start, start.AddDate(0, 1, 0)
	case models.PeriodYearly:
		start := time.Date(ref.Year(), time.January, 1, 0, 0, 0, 0, loc)
		return start, start.AddDate(1, 0, 0)
	default:
		return day, day.AddDate(0, 0, 1)
	}
}

// BuildPeriodReport aggregates sales already filtered to [from, to).
func BuildPeriodReport(period models.Period, from, to time.Time, sales []models.Sale, loc *time.Location) models.PeriodReport {
	report := models.PeriodReport{
		Period:     period,
		From:       from,
		To:         to,
		SalesCount: len(sales),
		DayOfWeek:  labelled(dayNames[:]),
		Trend:      trendBuckets(period, from.In(loc)),
		Sales:      sales,
	}

	units := make(map[string]int)
	for _, sale := range sales {
		report.TotalSales = report.TotalSales.Add(sale.TotalAmount)
		report.TotalCosts = report.TotalCosts.Add(sale.TotalCost)
		report.TotalProfit = report.TotalProfit.Add(sale.TotalProfit)
		report.TotalItems += itemsOf(sale)

		for _, item := range sale.Items {
			units[item.DishName] += item.Quantity
		}

		at := sale.CreatedAt.In(loc)
		add(&report.DayOfWeek[at.Weekday()], sale)
		if i := trendIndex(period, at); i >= 0 && i < len(report.Trend) {
			add(&report.Trend[i], sale)
		}
	}

	report.AverageSale = money.Average(report.TotalSales, report.SalesCount)
	report.TopDishes = topDishes(units, topDishLimit)
	return report
}

// Summarize computes the financial summary of a set of sales.
func Summarize(sales []models.Sale) models.FinancialSummary {
	var summary models.FinancialSummary
	for _, sale := range sales {
		summary.TotalSales = summary.TotalSales.Add(sale.TotalAmount)
		summary.TotalCost = summary.TotalCost.Add(sale.TotalCost)
		summary.TotalProfit = summary.TotalProfit.Add(sale.TotalProfit)
	}
	summary.SalesCount = len(sales)
	summary.AverageSale = money.Average(summary.TotalSales, summary.SalesCount)
	return summary
}

// BuildDashboard derives the dashboard of the day containing now from a full snapshot.
func BuildDashboard(snapshot models.Snapshot, now time.Time, loc *time.Location) models.Dashboard {
	from, to := PeriodRange(models.PeriodDaily, now, loc)

	today := make([]models.Sale, 0)
	for _, sale := range snapshot.Sales {
		if !sale.CreatedAt.Before(from) && sale.CreatedAt.Before(to) {
			today = append(today, sale)
		}
	}
	sort.SliceStable(today, func(i, j int) bool { return today[i].CreatedAt.After(today[j].CreatedAt) })

	summary := Summarize(today)
	recent := today
	if len(recent) > recentLimit {
		recent = recent[:recentLimit]
	}

	return models.Dashboard{
		TotalIngredients: len(snapshot.Ingredients),
		TotalDishes:      len(snapshot.Dishes),
		TodayTotal:       summary.TotalSales,
		TodayProfit:      summary.TotalProfit,
		RecentSales:      recent,
		TodaySales:       today,
		Summary:          summary,
		Balances:         snapshot.Balances,
		GeneratedAt:      now,
	}
}

// itemsOf counts lines for multi-item sales and units for the legacy layout.
func itemsOf(sale models.Sale) int {
	if sale.Shape == models.SaleShapeSingleItem {
		if units := sale.Units(); units > 0 {
			return units
		}
		return 1
	}
	if sale.ItemCount > 0 {
		return sale.ItemCount
	}
	return 1
}

func add(b *models.Bucket, sale models.Sale) {
	b.Sales = b.Sales.Add(sale.TotalAmount)
	b.Profit = b.Profit.Add(sale.TotalProfit)
}

func labelled(labels []string) []models.Bucket {
	buckets := make([]models.Bucket, len(labels))
	for i, label := range labels {
		buckets[i] = models.Bucket{Label: label, Sales: decimal.Zero, Profit: decimal.Zero}
	}
	return buckets
}

func trendBuckets(period models.Period, from time.Time) []models.Bucket {
	switch period {
	case models.PeriodWeekly:
		return labelled(dayNames[:])
	case models.PeriodMonthly:
		days := from.AddDate(0, 1, -from.Day()).Day()
		labels := make([]string, days)
		for i := range labels {
			labels[i] = fmt.Sprintf("%d", i+1)
		}
		return labelled(labels)
	case models.PeriodYearly:
		return labelled(monthNames[:])
	default:
		labels := make([]string, 24)
		for i := range labels {
			labels[i] = fmt.Sprintf("%d:00", i)
		}
		return labelled(labels)
	}
}

func trendIndex(period models.Period, at time.Time) int {
	switch period {
	case models.PeriodWeekly:
		return int(at.Weekday())
	case models.PeriodMonthly:
		return at.Day() - 1
	case models.PeriodYearly:
		return int(at.Month()) - 1
	default:
		return at.Hour()
	}
}

func topDishes(units map[string]int, limit int) []models.DishRank {
	ranks := make([]models.DishRank, 0, len(units))
	for name, qty := range units {
		ranks = append(ranks, models.DishRank{DishName: name, Quantity: qty})
	}
	sort.Slice(ranks, func(i, j int) bool {
		if ranks[i].Quantity != ranks[j].Quantity {
			return ranks[i].Quantity > ranks[j].Quantity
		}
		return ranks[i].DishName < ranks[j].DishName
	})
	if len(ranks) > limit {
		ranks = ranks[:limit]
	}
	return ranks
}
