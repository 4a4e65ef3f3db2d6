package reporting

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/mamadbah2/comedor/internal/domain/models"
)

const (
	summarySheet = "Resumen"
	salesSheet   = "Ventas"
	trendSheet   = "Tendencia"
)

// WriteWorkbook renders the report as a workbook with a summary, the sale list and the
// trend buckets.
func WriteWorkbook(w io.Writer, report models.PeriodReport, loc *time.Location) error {
	f := excelize.NewFile()
	defer f.Close()

	f.SetSheetName("Sheet1", summarySheet)
	if _, err := f.NewSheet(salesSheet); err != nil {
		return fmt.Errorf("create sales sheet: %w", err)
	}
	if _, err := f.NewSheet(trendSheet); err != nil {
		return fmt.Errorf("create trend sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	summary := [][]interface{}{
		{"Periodo", periodTitle(report.Period)},
		{"Desde", report.From.In(loc).Format(dateLayout)},
		{"Hasta", report.To.In(loc).AddDate(0, 0, -1).Format(dateLayout)},
		{"Ventas", report.SalesCount},
		{"Total vendido", report.TotalSales.InexactFloat64()},
		{"Costo total", report.TotalCosts.InexactFloat64()},
		{"Ganancia total", report.TotalProfit.InexactFloat64()},
		{"Platos vendidos", report.TotalItems},
		{"Venta promedio", report.AverageSale.InexactFloat64()},
	}
	if err := writeRows(f, summarySheet, 1, summary); err != nil {
		return err
	}
	if err := f.SetCellStyle(summarySheet, "A1", fmt.Sprintf("A%d", len(summary)), bold); err != nil {
		return fmt.Errorf("style summary: %w", err)
	}

	row := len(summary) + 2
	if err := writeRows(f, summarySheet, row, [][]interface{}{{"Plato", "Cantidad"}}); err != nil {
		return err
	}
	if err := f.SetCellStyle(summarySheet, fmt.Sprintf("A%d", row), fmt.Sprintf("B%d", row), bold); err != nil {
		return fmt.Errorf("style top dishes: %w", err)
	}
	for i, dish := range report.TopDishes {
		if err := writeRows(f, summarySheet, row+1+i, [][]interface{}{{dish.DishName, dish.Quantity}}); err != nil {
			return err
		}
	}

	sales := [][]interface{}{{"Venta", "Fecha", "Platos", "Total", "Costo", "Ganancia", "Estado"}}
	for _, sale := range report.Sales {
		sales = append(sales, []interface{}{
			sale.Number(),
			sale.CreatedAt.In(loc).Format("2006-01-02 15:04"),
			sale.Summary(),
			sale.TotalAmount.InexactFloat64(),
			sale.TotalCost.InexactFloat64(),
			sale.TotalProfit.InexactFloat64(),
			string(sale.Status),
		})
	}
	if err := writeRows(f, salesSheet, 1, sales); err != nil {
		return err
	}
	if err := f.SetCellStyle(salesSheet, "A1", "G1", bold); err != nil {
		return fmt.Errorf("style sales header: %w", err)
	}

	trend := [][]interface{}{{"Etiqueta", "Ventas", "Ganancia"}}
	for _, b := range report.Trend {
		trend = append(trend, []interface{}{b.Label, b.Sales.InexactFloat64(), b.Profit.InexactFloat64()})
	}
	if err := writeRows(f, trendSheet, 1, trend); err != nil {
		return err
	}
	if err := f.SetCellStyle(trendSheet, "A1", "C1", bold); err != nil {
		return fmt.Errorf("style trend header: %w", err)
	}

	if err := f.SetColWidth(summarySheet, "A", "B", 20); err != nil {
		return fmt.Errorf("size summary columns: %w", err)
	}
	if err := f.SetColWidth(salesSheet, "B", "C", 28); err != nil {
		return fmt.Errorf("size sales columns: %w", err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeRows(f *excelize.File, sheet string, startRow int, rows [][]interface{}) error {
	for r, values := range rows {
		for c, value := range values {
			cell, err := excelize.CoordinatesToCellName(c+1, startRow+r)
			if err != nil {
				return fmt.Errorf("cell name: %w", err)
			}
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				return fmt.Errorf("set %s!%s: %w", sheet, cell, err)
			}
		}
	}
	return nil
}
