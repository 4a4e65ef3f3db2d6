// Package reporting aggregates recorded sales into period reports, the dashboard, text
// summaries for messaging and the daily close.
package reporting

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/comedor/internal/domain/apperr"
	"github.com/mamadbah2/comedor/internal/domain/models"
	"github.com/mamadbah2/comedor/pkg/money"
)

// SaleSource lists sales created in [from, to).
type SaleSource interface {
	ListSales(ctx context.Context, from, to time.Time) ([]models.Sale, error)
}

// BalanceReader reads the ledger balances.
type BalanceReader interface {
	Balances(ctx context.Context) (models.Balances, error)
}

// ReportStore keeps daily close records.
type ReportStore interface {
	SaveDailyReport(ctx context.Context, report models.DailyReport) error
}

// Service builds reports from the stored sales.
type Service struct {
	sales    SaleSource
	balances BalanceReader
	reports  ReportStore
	logger   *zap.Logger
	loc      *time.Location
	now      func() time.Time
}

// NewService wires a reporting service. Periods are cut in loc.
func NewService(sales SaleSource, balances BalanceReader, reports ReportStore, loc *time.Location, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.Local
	}
	return &Service{
		sales:    sales,
		balances: balances,
		reports:  reports,
		logger:   logger,
		loc:      loc,
		now:      time.Now,
	}
}

// Location is the time zone reports are cut in.
func (s *Service) Location() *time.Location {
	return s.loc
}

// Range returns the window of period around ref; a zero ref means now.
func (s *Service) Range(period models.Period, ref time.Time) (time.Time, time.Time) {
	if ref.IsZero() {
		ref = s.now()
	}
	return PeriodRange(period, ref, s.loc)
}

// PeriodReport aggregates the sales of the period containing ref.
func (s *Service) PeriodReport(ctx context.Context, period models.Period, ref time.Time) (models.PeriodReport, error) {
	from, to := s.Range(period, ref)
	sales, err := s.sales.ListSales(ctx, from, to)
	if err != nil {
		return models.PeriodReport{}, apperr.Persistence("period report", err)
	}
	return BuildPeriodReport(period, from, to, sales, s.loc), nil
}

// Dashboard derives the dashboard from a snapshot at the current time.
func (s *Service) Dashboard(snapshot models.Snapshot) models.Dashboard {
	return BuildDashboard(snapshot, s.now(), s.loc)
}

// Export writes the period report as an xlsx workbook.
func (s *Service) Export(ctx context.Context, period models.Period, ref time.Time, w io.Writer) error {
	report, err := s.PeriodReport(ctx, period, ref)
	if err != nil {
		return err
	}
	if err := WriteWorkbook(w, report, s.loc); err != nil {
		return fmt.Errorf("export %s report: %w", period, err)
	}
	return nil
}

// DailyClose builds and stores the closing report of the day containing day.
func (s *Service) DailyClose(ctx context.Context, day time.Time) (models.DailyReport, error) {
	const op = "daily close"

	report, err := s.PeriodReport(ctx, models.PeriodDaily, day)
	if err != nil {
		return models.DailyReport{}, err
	}
	balances, err := s.balances.Balances(ctx)
	if err != nil {
		return models.DailyReport{}, apperr.Persistence(op, err)
	}

	daily := models.DailyReport{
		Date:        report.From,
		SalesCount:  report.SalesCount,
		TotalSales:  report.TotalSales,
		TotalCost:   report.TotalCosts,
		TotalProfit: report.TotalProfit,
		AverageSale: report.AverageSale,
		Capital:     balances.Capital,
		Profit:      balances.Profit,
		CreatedAt:   s.now(),
	}
	if len(report.TopDishes) > 0 {
		daily.TopDish = report.TopDishes[0].DishName
	}

	if s.reports != nil {
		if err := s.reports.SaveDailyReport(ctx, daily); err != nil {
			return models.DailyReport{}, apperr.Persistence(op, err)
		}
	}

	s.logger.Info("daily close stored",
		zap.String("date", daily.Date.Format(dateLayout)),
		zap.Int("sales", daily.SalesCount),
		zap.String("total", daily.TotalSales.StringFixed(money.Places)),
	)
	return daily, nil
}

// TodaySummary renders today's sales for a chat reply.
func (s *Service) TodaySummary(ctx context.Context) (string, error) {
	report, err := s.PeriodReport(ctx, models.PeriodDaily, time.Time{})
	if err != nil {
		return "", err
	}
	return FormatPeriod("Ventas de hoy", report), nil
}

// PeriodSummary renders a period report for a chat reply.
func (s *Service) PeriodSummary(ctx context.Context, period models.Period) (string, error) {
	report, err := s.PeriodReport(ctx, period, time.Time{})
	if err != nil {
		return "", err
	}
	return FormatPeriod("Reporte "+periodTitle(period), report), nil
}

// CashSummary renders the ledger balances.
func (s *Service) CashSummary(ctx context.Context) (string, error) {
	balances, err := s.balances.Balances(ctx)
	if err != nil {
		return "", apperr.Persistence("cash summary", err)
	}
	return FormatBalances(balances), nil
}

// FormatPeriod renders a report as a WhatsApp message.
func FormatPeriod(title string, r models.PeriodReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*%s* (%s", title, r.From.Format(dateLayout))
	if last := r.To.AddDate(0, 0, -1); !sameDay(last, r.From) {
		fmt.Fprintf(&b, " a %s", last.Format(dateLayout))
	}
	b.WriteString(")\n")

	if r.SalesCount == 0 {
		b.WriteString("Sin ventas registradas.")
		return b.String()
	}

	fmt.Fprintf(&b, "Ventas: %d\n", r.SalesCount)
	fmt.Fprintf(&b, "Total: %s\n", money.Format(r.TotalSales))
	fmt.Fprintf(&b, "Costo: %s\n", money.Format(r.TotalCosts))
	fmt.Fprintf(&b, "Ganancia: %s\n", money.Format(r.TotalProfit))
	fmt.Fprintf(&b, "Promedio: %s", money.Format(r.AverageSale))
	if len(r.TopDishes) > 0 {
		b.WriteString("\nMás vendidos:")
		for i, dish := range r.TopDishes {
			fmt.Fprintf(&b, "\n%d. %s (%d)", i+1, dish.DishName, dish.Quantity)
		}
	}
	return b.String()
}

// FormatBalances renders both ledger accounts and their sum.
func FormatBalances(b models.Balances) string {
	return fmt.Sprintf("*Caja*\n%s: %s\n%s: %s\nTotal: %s",
		models.AccountCapital, money.Format(b.Capital),
		models.AccountProfit, money.Format(b.Profit),
		money.Format(b.Total()),
	)
}

// FormatDailyReport renders the daily close for the manager.
func FormatDailyReport(r models.DailyReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*Cierre del día %s*\n", r.Date.Format(dateLayout))
	fmt.Fprintf(&b, "Ventas: %d\n", r.SalesCount)
	fmt.Fprintf(&b, "Total: %s\n", money.Format(r.TotalSales))
	fmt.Fprintf(&b, "Costo: %s\n", money.Format(r.TotalCost))
	fmt.Fprintf(&b, "Ganancia: %s\n", money.Format(r.TotalProfit))
	fmt.Fprintf(&b, "Promedio: %s\n", money.Format(r.AverageSale))
	if r.TopDish != "" {
		fmt.Fprintf(&b, "Plato estrella: %s\n", r.TopDish)
	}
	fmt.Fprintf(&b, "%s: %s | %s: %s", models.AccountCapital, money.Format(r.Capital), models.AccountProfit, money.Format(r.Profit))
	return b.String()
}

func periodTitle(p models.Period) string {
	switch p {
	case models.PeriodWeekly:
		return "semanal"
	case models.PeriodMonthly:
		return "mensual"
	case models.PeriodYearly:
		return "anual"
	default:
		return "diario"
	}
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
