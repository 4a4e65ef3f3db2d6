package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/comedor/internal/domain/apperr"
	"github.com/mamadbah2/comedor/internal/domain/models"
	"github.com/mamadbah2/comedor/internal/service/catalog"
	"github.com/mamadbah2/comedor/internal/service/ledger"
	"github.com/mamadbah2/comedor/internal/service/sales"
	"github.com/mamadbah2/comedor/internal/service/state"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func perform(r http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

type fakeCatalog struct {
	CatalogService
	created   catalog.IngredientInput
	confirmed bool
	err       error
}

func (f *fakeCatalog) CreateIngredient(_ context.Context, in catalog.IngredientInput) (catalog.IngredientResult, error) {
	f.created = in
	if f.err != nil {
		return catalog.IngredientResult{}, f.err
	}
	return catalog.IngredientResult{Ingredient: models.Ingredient{ID: "ing-1", Name: in.Name}}, nil
}

func (f *fakeCatalog) GetDish(_ context.Context, id string) (models.Dish, error) {
	return models.Dish{}, apperr.NotFound("get dish", "dish", id)
}

func (f *fakeCatalog) DeleteIngredient(_ context.Context, _ string, confirmed bool) (int, error) {
	f.confirmed = confirmed
	if !confirmed {
		return 0, apperr.Validation("delete ingredient", "confirmation required")
	}
	return 2, nil
}

func (f *fakeCatalog) ListDishes(context.Context) ([]models.Dish, error) {
	return nil, apperr.Persistence("list dishes", errors.New("connection reset"))
}

func catalogRouter(svc CatalogService) *gin.Engine {
	h := NewCatalogHandler(svc, nil)
	r := gin.New()
	r.POST("/api/ingredients", h.CreateIngredient)
	r.DELETE("/api/ingredients/:id", h.DeleteIngredient)
	r.GET("/api/dishes", h.ListDishes)
	r.GET("/api/dishes/:id", h.GetDish)
	r.POST("/api/dishes", h.CreateDish)
	return r
}

func TestCreateIngredient(t *testing.T) {
	svc := &fakeCatalog{}
	w := perform(catalogRouter(svc), http.MethodPost, "/api/ingredients", `{"name":"Harina","price":100,"portions":50}`)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "Harina", svc.created.Name)
	assert.True(t, decimal.NewFromInt(100).Equal(svc.created.Price))
	assert.Equal(t, 50, svc.created.Portions)
}

func TestCreateIngredientValidation(t *testing.T) {
	svc := &fakeCatalog{}
	r := catalogRouter(svc)

	w := perform(r, http.MethodPost, "/api/ingredients", `{"name":"","price":10,"portions":0}`)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	resp := decodeError(t, w)
	assert.Equal(t, "required", resp.Fields["name"])
	assert.Equal(t, "gt", resp.Fields["portions"])

	w = perform(r, http.MethodPost, "/api/ingredients", `{"name":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateDishRejectsNonPositivePortions(t *testing.T) {
	r := catalogRouter(&fakeCatalog{})
	w := perform(r, http.MethodPost, "/api/dishes", `{"name":"Pan","price":5,"ingredients":[{"ingredientId":"ing-1","portions":0}]}`)

	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, decodeError(t, w).Fields, "ingredients[0].portions")
}

func TestErrorKindsMapToStatus(t *testing.T) {
	r := catalogRouter(&fakeCatalog{})

	w := perform(r, http.MethodGet, "/api/dishes/missing", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = perform(r, http.MethodGet, "/api/dishes", "")
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, decodeError(t, w).Detail, "connection reset")
}

func TestDeleteIngredientNeedsConfirmation(t *testing.T) {
	svc := &fakeCatalog{}
	r := catalogRouter(svc)

	w := perform(r, http.MethodDelete, "/api/ingredients/ing-1", "")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = perform(r, http.MethodDelete, "/api/ingredients/ing-1?confirm=true", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"dishesUpdated":2}`, w.Body.String())
}

type fakeSales struct {
	SalesService
	added     sales.AddItemInput
	finalize  error
	listFrom  time.Time
	listTo    time.Time
	removeIdx int
}

func (f *fakeSales) AddToCart(_ context.Context, cartID string, in sales.AddItemInput) (sales.Cart, error) {
	f.added = in
	return sales.Cart{ID: cartID, Items: []models.SaleItem{}}, nil
}

func (f *fakeSales) RemoveFromCart(id string, index int) (sales.Cart, error) {
	f.removeIdx = index
	return sales.Cart{ID: id, Items: []models.SaleItem{}}, nil
}

func (f *fakeSales) Finalize(context.Context, string) (models.Sale, error) {
	if f.finalize != nil {
		return models.Sale{}, f.finalize
	}
	return models.Sale{ID: "sale-1", Status: models.SaleStatusActive}, nil
}

func (f *fakeSales) List(_ context.Context, from, to time.Time) ([]models.Sale, error) {
	f.listFrom, f.listTo = from, to
	return []models.Sale{}, nil
}

type fixedRanger struct{ loc *time.Location }

func (r fixedRanger) Location() *time.Location { return r.loc }

func (r fixedRanger) Range(_ models.Period, ref time.Time) (time.Time, time.Time) {
	return ref, ref.AddDate(0, 0, 1)
}

func salesRouter(svc SalesService) *gin.Engine {
	h := NewSalesHandler(svc, fixedRanger{loc: time.UTC}, nil)
	r := gin.New()
	r.POST("/api/carts/:id/items", h.AddItem)
	r.DELETE("/api/carts/:id/items/:index", h.RemoveItem)
	r.POST("/api/carts/:id/finalize", h.Finalize)
	r.GET("/api/sales", h.ListSales)
	return r
}

func TestAddItemBindsInput(t *testing.T) {
	svc := &fakeSales{}
	w := perform(salesRouter(svc), http.MethodPost, "/api/carts/c1/items", `{"dishId":"d1","quantity":2,"price":"7.5"}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "d1", svc.added.DishID)
	assert.Equal(t, 2, svc.added.Quantity)
	require.NotNil(t, svc.added.Price)
	assert.Equal(t, "7.5", svc.added.Price.String())
}

func TestAddItemRejectsZeroQuantity(t *testing.T) {
	w := perform(salesRouter(&fakeSales{}), http.MethodPost, "/api/carts/c1/items", `{"dishId":"d1","quantity":0}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestRemoveItemParsesIndex(t *testing.T) {
	svc := &fakeSales{}
	r := salesRouter(svc)

	w := perform(r, http.MethodDelete, "/api/carts/c1/items/abc", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = perform(r, http.MethodDelete, "/api/carts/c1/items/3", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 3, svc.removeIdx)
}

func TestFinalizeStatuses(t *testing.T) {
	svc := &fakeSales{}
	r := salesRouter(svc)

	w := perform(r, http.MethodPost, "/api/carts/c1/finalize", "")
	assert.Equal(t, http.StatusCreated, w.Code)

	svc.finalize = sales.ErrSaleInFlight
	w = perform(r, http.MethodPost, "/api/carts/c1/finalize", "")
	assert.Equal(t, http.StatusConflict, w.Code)

	svc.finalize = apperr.Validation("finalize sale", "El carrito está vacío")
	w = perform(r, http.MethodPost, "/api/carts/c1/finalize", "")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestListSalesPeriodQuery(t *testing.T) {
	svc := &fakeSales{}
	r := salesRouter(svc)

	w := perform(r, http.MethodGet, "/api/sales?period=semanal&date=2024-03-05", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), svc.listFrom)

	w = perform(r, http.MethodGet, "/api/sales?period=quincenal", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = perform(r, http.MethodGet, "/api/sales?date=05/03/2024", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

type fakeLedger struct {
	LedgerService
	recorded ledger.MovementInput
}

func (f *fakeLedger) RecordMovement(_ context.Context, in ledger.MovementInput) (models.CashMovement, error) {
	f.recorded = in
	return models.CashMovement{ID: "mov-1"}, nil
}

func (f *fakeLedger) Reconcile(context.Context) (ledger.ReconcileResult, error) {
	return ledger.ReconcileResult{RepairedSales: []string{"sale-1"}, Entries: 4}, nil
}

func TestRecordMovement(t *testing.T) {
	svc := &fakeLedger{}
	h := NewCashHandler(svc, nil)
	r := gin.New()
	r.POST("/api/cash/movements", h.RecordMovement)
	r.POST("/api/cash/reconcile", h.Reconcile)

	w := perform(r, http.MethodPost, "/api/cash/movements", `{"type":"expense","source":"capital","amount":50,"description":"Gas"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, models.MovementType("expense"), svc.recorded.Type)
	assert.True(t, decimal.NewFromInt(50).Equal(svc.recorded.Amount))

	w = perform(r, http.MethodPost, "/api/cash/movements", `{"type":"gift","source":"capital","amount":50,"description":"x"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "oneof", decodeError(t, w).Fields["type"])

	w = perform(r, http.MethodPost, "/api/cash/reconcile", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"repairedSales":["sale-1"]`)
}

type fakeReports struct {
	ReportService
	exportErr error
}

func (f *fakeReports) Location() *time.Location { return time.UTC }

func (f *fakeReports) Export(_ context.Context, _ models.Period, _ time.Time, w io.Writer) error {
	if f.exportErr != nil {
		return f.exportErr
	}
	_, err := w.Write([]byte("xlsx"))
	return err
}

type staticDashboard models.Dashboard

func (d staticDashboard) Dashboard() models.Dashboard { return models.Dashboard(d) }

func TestExportWorkbook(t *testing.T) {
	svc := &fakeReports{}
	h := NewReportHandler(svc, staticDashboard{TotalDishes: 3}, nil)
	r := gin.New()
	r.GET("/api/reports/export", h.Export)
	r.GET("/api/dashboard", h.Dashboard)

	w := perform(r, http.MethodGet, "/api/reports/export?period=monthly&date=2024-03-05", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="ventas-monthly-2024-03-05.xlsx"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "xlsx", w.Body.String())

	svc.exportErr = apperr.Persistence("period report", errors.New("timeout"))
	w = perform(r, http.MethodGet, "/api/reports/export?period=monthly", "")
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Empty(t, w.Header().Get("Content-Disposition"))

	w = perform(r, http.MethodGet, "/api/dashboard", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"totalDishes":3`)
}

type fakeEvents struct {
	events    chan state.Event
	cancelled bool
}

func (f *fakeEvents) Dashboard() models.Dashboard { return models.Dashboard{TotalIngredients: 7} }

func (f *fakeEvents) Subscribe() (<-chan state.Event, func()) {
	return f.events, func() { f.cancelled = true }
}

// closeNotifyingRecorder adds the CloseNotifier gin's Stream needs.
type closeNotifyingRecorder struct {
	*httptest.ResponseRecorder
	closed chan bool
}

func (r *closeNotifyingRecorder) CloseNotify() <-chan bool { return r.closed }

func TestStreamSendsDashboardThenEvents(t *testing.T) {
	source := &fakeEvents{events: make(chan state.Event, 2)}
	source.events <- state.Event{
		Type:         state.EventNotification,
		Notification: &models.Notification{Kind: models.NotificationRemoteSale, Message: state.RemoteSaleMessage},
	}
	close(source.events)

	h := NewStreamHandler(source, nil)
	r := gin.New()
	r.GET("/api/stream", h.Events)

	w := &closeNotifyingRecorder{ResponseRecorder: httptest.NewRecorder(), closed: make(chan bool)}
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/stream", nil))

	body := w.Body.String()
	dash := strings.Index(body, "event:dashboard")
	note := strings.Index(body, "event:notification")
	require.GreaterOrEqual(t, dash, 0)
	require.Greater(t, note, dash)
	assert.Contains(t, body, `"totalIngredients":7`)
	assert.Contains(t, body, state.RemoteSaleMessage)
	assert.True(t, source.cancelled)
}

type fakeMessaging struct {
	handled int
	sent    models.OutboundMessageRequest
	err     error
}

func (f *fakeMessaging) VerifyWebhookToken(mode, token, challenge string) (string, error) {
	if mode == "subscribe" && token == "secret" {
		return challenge, nil
	}
	return "", errors.New("invalid verify token")
}

func (f *fakeMessaging) HandleWebhook(context.Context, models.WebhookPayload) error {
	f.handled++
	return f.err
}

func (f *fakeMessaging) SendOutbound(_ context.Context, req models.OutboundMessageRequest) error {
	f.sent = req
	return nil
}

func TestWebhook(t *testing.T) {
	svc := &fakeMessaging{}
	h := NewWebhookHandler(svc, nil)
	r := gin.New()
	r.GET("/webhook", h.Verify)
	r.POST("/webhook", h.Receive)
	r.POST("/send-message", h.SendMessage)

	w := perform(r, http.MethodGet, "/webhook?hub.mode=subscribe&hub.verify_token=secret&hub.challenge=42", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "42", w.Body.String())

	w = perform(r, http.MethodGet, "/webhook?hub.mode=subscribe&hub.verify_token=nope&hub.challenge=42", "")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = perform(r, http.MethodPost, "/webhook", `{"object":"whatsapp_business_account","entry":[]}`)
	assert.Equal(t, http.StatusOK, w.Code)

	svc.err = errors.New("send failed")
	w = perform(r, http.MethodPost, "/webhook", `{"object":"whatsapp_business_account","entry":[]}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code, "a failed delivery is redelivered by Meta")
	assert.Equal(t, 2, svc.handled)
	svc.err = nil

	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(models.OutboundMessageRequest{To: "591700", Message: "hola"}))
	w = perform(r, http.MethodPost, "/send-message", buf.String())
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, "591700", svc.sent.To)
}
