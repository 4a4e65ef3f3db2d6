package handlers

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/comedor/internal/domain/models"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ReportService builds period reports and their xlsx export.
type ReportService interface {
	Location() *time.Location
	PeriodReport(ctx context.Context, period models.Period, ref time.Time) (models.PeriodReport, error)
	Export(ctx context.Context, period models.Period, ref time.Time, w io.Writer) error
}

// DashboardSource returns the dashboard derived from the synchronized snapshot.
type DashboardSource interface {
	Dashboard() models.Dashboard
}

// ReportHandler serves reports and the dashboard.
type ReportHandler struct {
	svc       ReportService
	dashboard DashboardSource
	logger    *zap.Logger
}

// NewReportHandler constructs the report handler.
func NewReportHandler(svc ReportService, dashboard DashboardSource, logger *zap.Logger) *ReportHandler {
	return &ReportHandler{svc: svc, dashboard: dashboard, logger: defaultLogger(logger)}
}

// Report returns the aggregated report of ?period= around ?date=.
func (h *ReportHandler) Report(c *gin.Context) {
	period, ref, ok := periodQuery(c, h.svc.Location())
	if !ok {
		return
	}
	report, err := h.svc.PeriodReport(c.Request.Context(), period, ref)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// Export downloads the period report as an xlsx workbook.
func (h *ReportHandler) Export(c *gin.Context) {
	period, ref, ok := periodQuery(c, h.svc.Location())
	if !ok {
		return
	}

	// Buffered so a failed export still gets a JSON error instead of a truncated file.
	var buf bytes.Buffer
	if err := h.svc.Export(c.Request.Context(), period, ref, &buf); err != nil {
		writeError(c, h.logger, err)
		return
	}

	day := ref
	if day.IsZero() {
		day = time.Now().In(h.svc.Location())
	}
	name := fmt.Sprintf("ventas-%s-%s.xlsx", period, day.Format(dateLayout))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// Dashboard returns today's totals and recent sales.
func (h *ReportHandler) Dashboard(c *gin.Context) {
	c.JSON(http.StatusOK, h.dashboard.Dashboard())
}
