package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/comedor/internal/domain/apperr"
	"github.com/mamadbah2/comedor/internal/domain/models"
	"github.com/mamadbah2/comedor/internal/domain/validation"
	"github.com/mamadbah2/comedor/internal/service/sales"
)

const dateLayout = "2006-01-02"

// ErrorResponse is the envelope of every 4xx/5xx response.
type ErrorResponse struct {
	Detail string            `json:"detail"`
	Fields map[string]string `json:"fields,omitempty"`
}

// bindAndValidate binds the JSON body and runs the validator tags. It writes the error
// response and returns false when the request is rejected.
func bindAndValidate(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Detail: "JSON inválido: " + err.Error()})
		return false
	}
	if err := validation.Struct("request", req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Detail: "Error de validación", Fields: apperr.FieldsOf(err)})
		return false
	}
	return true
}

// writeError maps service errors to status codes.
func writeError(c *gin.Context, logger *zap.Logger, err error) {
	if errors.Is(err, sales.ErrSaleInFlight) {
		c.JSON(http.StatusConflict, ErrorResponse{Detail: "La venta ya se está guardando"})
		return
	}

	kind, _ := apperr.KindOf(err)
	switch kind {
	case apperr.KindValidation:
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Detail: err.Error(), Fields: apperr.FieldsOf(err)})
	case apperr.KindNotFound:
		c.JSON(http.StatusNotFound, ErrorResponse{Detail: err.Error()})
	case apperr.KindPersistence:
		logger.Error("persistence failure", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusBadGateway, ErrorResponse{Detail: err.Error()})
	default:
		logger.Error("unexpected failure", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Detail: "error interno"})
	}
}

// confirmed reads the ?confirm=true flag destructive routes require.
func confirmed(c *gin.Context) bool {
	ok, _ := strconv.ParseBool(c.Query("confirm"))
	return ok
}

// periodQuery reads ?period= and ?date= (YYYY-MM-DD in loc). A missing date is the zero
// time, which services read as now.
func periodQuery(c *gin.Context, loc *time.Location) (models.Period, time.Time, bool) {
	period, err := models.ParsePeriod(c.Query("period"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Detail: err.Error()})
		return "", time.Time{}, false
	}

	var ref time.Time
	if raw := c.Query("date"); raw != "" {
		ref, err = time.ParseInLocation(dateLayout, raw, loc)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Detail: "fecha inválida, use AAAA-MM-DD"})
			return "", time.Time{}, false
		}
	}
	return period, ref, true
}

func defaultLogger(logger *zap.Logger) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}
