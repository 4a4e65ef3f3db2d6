package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"go.uber.org/zap"

	"github.com/mamadbah2/comedor/internal/config"
	"github.com/mamadbah2/comedor/internal/domain/models"
	"github.com/mamadbah2/comedor/internal/realtime"
	"github.com/mamadbah2/comedor/internal/repository/mongodb"
	"github.com/mamadbah2/comedor/internal/repository/sheets"
	"github.com/mamadbah2/comedor/internal/scheduler"
	"github.com/mamadbah2/comedor/internal/server/handlers"
	"github.com/mamadbah2/comedor/internal/server/router"
	catalogsvc "github.com/mamadbah2/comedor/internal/service/catalog"
	commandsvc "github.com/mamadbah2/comedor/internal/service/commands"
	ledgersvc "github.com/mamadbah2/comedor/internal/service/ledger"
	"github.com/mamadbah2/comedor/internal/service/notify"
	reportingsvc "github.com/mamadbah2/comedor/internal/service/reporting"
	salessvc "github.com/mamadbah2/comedor/internal/service/sales"
	"github.com/mamadbah2/comedor/internal/service/state"
	whatsappsvc "github.com/mamadbah2/comedor/internal/service/whatsapp"
	whatsappclient "github.com/mamadbah2/comedor/pkg/clients/whatsapp"
	"github.com/mamadbah2/comedor/pkg/logger"
)

const startupTimeout = 30 * time.Second

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}

	baseLogger := logger.Must(logger.New(cfg.Server.Env))
	defer func() { _ = baseLogger.Sync() }()

	zap.ReplaceGlobals(baseLogger)

	loc, err := cfg.Reporting.Location()
	if err != nil {
		baseLogger.Fatal("invalid timezone", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	startCtx, cancelStart := context.WithTimeout(ctx, startupTimeout)
	defer cancelStart()

	store, err := mongodb.NewStore(startCtx, cfg.MongoDB, baseLogger.Named("repo.mongodb"))
	if err != nil {
		baseLogger.Fatal("failed to init mongodb store", zap.Error(err))
	}
	defer func() {
		if err := store.Close(context.Background()); err != nil {
			baseLogger.Error("failed to close mongodb connection", zap.Error(err))
		}
	}()
	if err := store.EnsureIndexes(startCtx); err != nil {
		baseLogger.Fatal("failed to ensure indexes", zap.Error(err))
	}

	// The services are built before the container that fans notifications out, so they
	// notify through the slice assigned below.
	var notifiers notify.Multi
	deferred := notify.Func(func(ctx context.Context, n models.Notification) { notifiers.Notify(ctx, n) })

	catalog := catalogsvc.NewService(store, catalogsvc.NewIndex(), deferred, baseLogger.Named("svc.catalog"))
	if err := catalog.Warm(startCtx); err != nil {
		baseLogger.Fatal("failed to warm dish index", zap.Error(err))
	}

	ledger := ledgersvc.NewService(store, store, deferred, baseLogger.Named("svc.ledger"))
	if err := ledger.Bootstrap(startCtx); err != nil {
		baseLogger.Fatal("failed to bootstrap cash accounts", zap.Error(err))
	}

	reporting := reportingsvc.NewService(store, ledger, store, loc, baseLogger.Named("svc.reporting"))

	container := state.NewContainer(reporting.Dashboard, baseLogger.Named("state"),
		state.WithDishHook(catalog.Index().Rebuild),
		state.WithForward(notify.NewLog(baseLogger.Named("notify"))),
	)
	notifiers = notify.Multi{container}

	var whatsClient *whatsappclient.APIClient
	if cfg.WhatsApp.Enabled() {
		whatsClient = whatsappclient.NewClient(cfg.WhatsApp)
		if cfg.WhatsApp.ManagerID != "" {
			alerts := notify.NewWhatsApp(whatsClient, cfg.WhatsApp.ManagerID, baseLogger.Named("notify.whatsapp"))
			notifiers = append(notifiers, notify.Filter(alerts, notify.OfKind(models.NotificationError)))
		}
	} else {
		baseLogger.Warn("whatsapp not configured, manager commands disabled")
	}

	if cfg.Firebase.Enabled() {
		sender, err := notify.NewFirebaseSender(startCtx, cfg.Firebase.CredentialsPath)
		if err != nil {
			baseLogger.Fatal("failed to init firebase messaging", zap.Error(err))
		}
		push := notify.NewPush(sender, cfg.Firebase.ComandaTopic, baseLogger.Named("notify.push"))
		notifiers = append(notifiers, notify.Filter(push, notify.OfKind(models.NotificationComanda)))
		baseLogger.Info("comanda push enabled", zap.String("topic", cfg.Firebase.ComandaTopic))
	}

	recorder := salessvc.NewRecorder(salessvc.NewCartStore(), store, store, ledger, notifiers, loc, baseLogger.Named("svc.sales"))

	var feed realtime.Feed = store
	if cfg.Sync.Mode == config.SyncModePoll {
		feed = realtime.NewPollingFeed(cfg.Sync.PollInterval)
	}
	hub := realtime.NewHub(feed, baseLogger.Named("realtime"))
	defer hub.Close()
	subscribe(hub, store, container)

	var webhookHandler *handlers.WebhookHandler
	var schedOpts []scheduler.Option
	if whatsClient != nil {
		dispatcher := commandsvc.NewService(reporting, baseLogger.Named("svc.commands"))
		messaging := whatsappsvc.NewMetaWhatsAppService(cfg.WhatsApp, whatsClient, dispatcher, baseLogger.Named("svc.whatsapp"))
		webhookHandler = handlers.NewWebhookHandler(messaging, baseLogger.Named("handlers.whatsapp"))
		if cfg.WhatsApp.ManagerID != "" {
			schedOpts = append(schedOpts, scheduler.WithManagerMessages(messaging, cfg.WhatsApp.ManagerID))
		}
	}

	if cfg.Sheets.Enabled() {
		sheetsRepo, err := sheets.NewGoogleSheetRepository(startCtx, cfg.Sheets, baseLogger.Named("repo.sheets"))
		if err != nil {
			baseLogger.Fatal("failed to init sheets repository", zap.Error(err))
		}
		schedOpts = append(schedOpts, scheduler.WithExporter(sheets.NewDailyCloseExporter(sheetsRepo)))
	}

	sched := scheduler.NewScheduler(cfg.Reporting, loc, reporting, ledger, baseLogger.Named("scheduler"), schedOpts...)
	if err := sched.Start(); err != nil {
		baseLogger.Fatal("failed to start scheduler", zap.Error(err))
	}
	defer sched.Stop()

	engine := router.New(router.Handlers{
		Catalog: handlers.NewCatalogHandler(catalog, baseLogger.Named("handlers.catalog")),
		Sales:   handlers.NewSalesHandler(recorder, reporting, baseLogger.Named("handlers.sales")),
		Cash:    handlers.NewCashHandler(ledger, baseLogger.Named("handlers.cash")),
		Reports: handlers.NewReportHandler(reporting, container, baseLogger.Named("handlers.reports")),
		Stream:  handlers.NewStreamHandler(container, baseLogger.Named("handlers.stream")),
		Webhook: webhookHandler,
	}, baseLogger.Named("router"))

	// No WriteTimeout: /api/stream holds its response open.
	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		baseLogger.Info("server starting", zap.String("port", cfg.Server.Port), zap.String("sync_mode", cfg.Sync.Mode))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			baseLogger.Fatal("http server crashed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	baseLogger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		baseLogger.Error("graceful shutdown failed", zap.Error(err))
	}
}

// subscribe keeps the container in sync with every collection the devices share.
func subscribe(hub *realtime.Hub, store *mongodb.Store, container *state.Container) {
	realtime.Subscribe(hub, mongodb.CollectionIngredients, store.ListIngredients, container.ReplaceIngredients, nil)
	realtime.Subscribe(hub, mongodb.CollectionDishes, store.ListDishes, container.ReplaceDishes, nil)
	realtime.Subscribe(hub, mongodb.CollectionSales,
		func(ctx context.Context) ([]models.Sale, error) {
			return store.ListSales(ctx, time.Time{}, time.Time{})
		},
		container.ReplaceSales, nil)
	realtime.Subscribe(hub, mongodb.CollectionCashMovements, store.ListMovements, container.ReplaceMovements, nil)
	realtime.Subscribe(hub, mongodb.CollectionCashAccounts,
		func(ctx context.Context) ([]models.Balances, error) {
			b, err := store.ReadBalances(ctx)
			if err != nil {
				return nil, err
			}
			return []models.Balances{b}, nil
		},
		func(items []models.Balances) {
			container.ReplaceBalances(items[0])
		}, nil)
}
