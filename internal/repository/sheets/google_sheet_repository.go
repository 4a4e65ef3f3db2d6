// Package sheets mirrors daily close reports into a Google spreadsheet.
package sheets

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"github.com/mamadbah2/comedor/internal/config"
	"github.com/mamadbah2/comedor/internal/domain/models"
)

// DailyCloseRange is where daily close rows are appended.
const DailyCloseRange = "CierreDiario!A:J"

// RowWriter appends a row to a sheet range.
type RowWriter interface {
	WriteRow(ctx context.Context, sheetRange string, values []interface{}) error
}

// GoogleSheetRepository implements RowWriter using the official Google Sheets API.
type GoogleSheetRepository struct {
	service       *sheetsapi.Service
	spreadsheetID string
	logger        *zap.Logger
}

// NewGoogleSheetRepository builds a Google Sheets backed repository instance.
func NewGoogleSheetRepository(ctx context.Context, cfg config.SheetsConfig, logger *zap.Logger) (*GoogleSheetRepository, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	service, err := sheetsapi.NewService(ctx, option.WithCredentialsFile(cfg.CredentialsPath), option.WithScopes(sheetsapi.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize sheets client: %w", err)
	}

	return &GoogleSheetRepository{
		service:       service,
		spreadsheetID: cfg.SpreadsheetID,
		logger:        logger,
	}, nil
}

// WriteRow appends the provided values to the supplied sheet range.
func (r *GoogleSheetRepository) WriteRow(ctx context.Context, sheetRange string, values []interface{}) error {
	if sheetRange == "" {
		return fmt.Errorf("sheetRange must not be empty")
	}

	payload := &sheetsapi.ValueRange{Values: [][]interface{}{values}}

	call := r.service.Spreadsheets.Values.Append(r.spreadsheetID, sheetRange, payload).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx)

	if _, err := call.Do(); err != nil {
		return fmt.Errorf("append row into range %s: %w", sheetRange, err)
	}

	r.logger.Debug("row appended to sheet", zap.String("range", sheetRange))
	return nil
}

// DailyCloseExporter appends daily reports as spreadsheet rows.
type DailyCloseExporter struct {
	writer RowWriter
}

// NewDailyCloseExporter wraps a row writer.
func NewDailyCloseExporter(writer RowWriter) *DailyCloseExporter {
	return &DailyCloseExporter{writer: writer}
}

// AppendDailyReport writes one row per closed day.
func (e *DailyCloseExporter) AppendDailyReport(ctx context.Context, report models.DailyReport) error {
	return e.writer.WriteRow(ctx, DailyCloseRange, DailyReportRow(report))
}

// DailyReportRow lays a report out in the column order of the CierreDiario sheet.
func DailyReportRow(r models.DailyReport) []interface{} {
	return []interface{}{
		r.Date.Format("2006-01-02"),
		r.SalesCount,
		r.TotalSales.StringFixed(2),
		r.TotalCost.StringFixed(2),
		r.TotalProfit.StringFixed(2),
		r.AverageSale.StringFixed(2),
		r.TopDish,
		r.Capital.StringFixed(2),
		r.Profit.StringFixed(2),
		r.CreatedAt.Format("2006-01-02 15:04:05"),
	}
}
