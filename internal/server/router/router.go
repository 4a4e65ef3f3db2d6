package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mamadbah2/comedor/internal/server/handlers"
)

const requestIDHeader = "X-Request-ID"

// Handlers groups the HTTP adapters. Webhook is nil when WhatsApp is not configured.
type Handlers struct {
	Catalog *handlers.CatalogHandler
	Sales   *handlers.SalesHandler
	Cash    *handlers.CashHandler
	Reports *handlers.ReportHandler
	Stream  *handlers.StreamHandler
	Webhook *handlers.WebhookHandler
}

// New wires the Gin engine with required routes and middlewares.
func New(h Handlers, logger *zap.Logger) *gin.Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestIDMiddleware())
	r.Use(zapLoggerMiddleware(logger))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")

	ingredients := api.Group("/ingredients")
	ingredients.GET("", h.Catalog.ListIngredients)
	ingredients.POST("", h.Catalog.CreateIngredient)
	ingredients.GET("/:id", h.Catalog.GetIngredient)
	ingredients.PUT("/:id", h.Catalog.UpdateIngredient)
	ingredients.DELETE("/:id", h.Catalog.DeleteIngredient)

	dishes := api.Group("/dishes")
	dishes.GET("", h.Catalog.ListDishes)
	dishes.POST("", h.Catalog.CreateDish)
	dishes.GET("/:id", h.Catalog.GetDish)
	dishes.PUT("/:id", h.Catalog.UpdateDish)
	dishes.DELETE("/:id", h.Catalog.DeleteDish)

	carts := api.Group("/carts")
	carts.POST("", h.Sales.CreateCart)
	carts.GET("/:id", h.Sales.GetCart)
	carts.DELETE("/:id", h.Sales.DiscardCart)
	carts.POST("/:id/items", h.Sales.AddItem)
	carts.DELETE("/:id/items/:index", h.Sales.RemoveItem)
	carts.POST("/:id/clear", h.Sales.ClearCart)
	carts.POST("/:id/finalize", h.Sales.Finalize)

	sales := api.Group("/sales")
	sales.GET("", h.Sales.ListSales)
	sales.GET("/today", h.Sales.TodaySales)
	sales.GET("/:id", h.Sales.GetSale)
	sales.DELETE("/:id", h.Sales.DeleteSale)
	sales.POST("/:id/complete", h.Sales.CompleteSale)
	api.GET("/comandas", h.Sales.Comandas)

	cash := api.Group("/cash")
	cash.GET("/balances", h.Cash.Balances)
	cash.GET("/movements", h.Cash.ListMovements)
	cash.POST("/movements", h.Cash.RecordMovement)
	cash.DELETE("/movements/:id", h.Cash.DeleteMovement)
	cash.GET("/entries", h.Cash.Entries)
	cash.POST("/reconcile", h.Cash.Reconcile)

	api.GET("/dashboard", h.Reports.Dashboard)
	api.GET("/reports", h.Reports.Report)
	api.GET("/reports/export", h.Reports.Export)
	api.GET("/stream", h.Stream.Events)

	if h.Webhook != nil {
		r.GET("/webhook", h.Webhook.Verify)
		r.POST("/webhook", h.Webhook.Receive)
		r.POST("/send-message", h.Webhook.SendMessage)
	}

	logger.Info("router initialized", zap.Bool("whatsapp", h.Webhook != nil))
	return r
}

// requestIDMiddleware keeps an incoming X-Request-ID or assigns a new one.
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Info("request completed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
			zap.String("request_id", c.GetString("request_id")))
	}
}
