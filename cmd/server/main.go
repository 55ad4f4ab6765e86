package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fareast/internal/agent"
	"fareast/internal/broadcast"
	"fareast/internal/config"
	"fareast/internal/database"
	"fareast/internal/logging"
	"fareast/internal/menu"
	"fareast/internal/models"
	"fareast/internal/monitoring"
	"fareast/internal/orders"
	"fareast/internal/pricing"
	"fareast/internal/relay"
	"fareast/internal/telephony"

	"github.com/gin-gonic/gin"
	"github.com/jinzhu/gorm"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

var (
	configFile = flag.String("config", "configs/config.yaml", "Path to configuration file")
	addr       = flag.String("addr", "", "Call server address (overrides config)")
)

func main() {
	flag.Parse()
	_ = godotenv.Load()

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if !cfg.Log.Development {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatalw("Server stopped", "error", err)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *zap.SugaredLogger) error {
	db, err := initializeDB(cfg, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	catalog, err := menu.Load(db)
	if err != nil {
		return err
	}
	logger.Infow("Menu loaded", "items", catalog.Len())

	metrics := monitoring.NewMetricsCollector()

	// kitchen displays
	hub := broadcast.NewHub(metrics, logger)
	if cfg.Relay.AMQPURL != "" {
		r, err := relay.Dial(relay.Config{URL: cfg.Relay.AMQPURL, Queue: cfg.Relay.Queue}, logger)
		if err != nil {
			logger.Warnw("Order events will not be relayed", "error", err)
		} else {
			defer r.Close()
			hub.SetMirror(r)
			defer hub.Close()
			logger.Infow("Relaying order events", "queue", r.Queue())
		}
	}

	repo := orders.NewRepository(db, orders.PolicyFor(cfg.Orders.StrictTransitions))
	pipeline := orders.NewPipeline(
		repo,
		orders.NewNumberer(repo, cfg.Location()),
		pricing.NewResolver(catalog),
		hub,
		metrics,
		logger,
	)

	// calls
	controller := telephony.NewTwilioController(cfg.Twilio.AccountSID, cfg.Twilio.AuthToken)
	terminator := telephony.NewTerminator(controller, cfg.Twilio.HangupGrace, metrics, logger)
	calls := agent.NewCalls(pipeline, terminator, logger)

	callRouter := gin.New()
	callRouter.Use(gin.Recovery())
	callRouter.POST("/incoming-call", telephony.NewWebhook(cfg.Server.PublicHost, logger).HandleIncomingCall)
	callRouter.GET(telephony.StreamPath, telephony.NewMediaStream(calls, metrics, logger).HandleStream)
	callRouter.POST("/calls/:streamSid/tools/:tool", calls.HandleToolCall)
	callRouter.GET("/health", healthHandler(metrics, hub, calls))

	kitchen := broadcast.NewKitchenServer(hub, repo, metrics, logger)

	servers := []*http.Server{
		{Addr: cfg.Server.Addr, Handler: callRouter},
		{Addr: cfg.Server.KitchenAddr, Handler: kitchen.Router()},
		{Addr: cfg.Server.MetricsAddr, Handler: metricsRouter(metrics)},
	}

	errCh := make(chan error, len(servers))
	for _, srv := range servers {
		go func(srv *http.Server) {
			logger.Infow("Starting server", "addr", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("server %s: %w", srv.Addr, err)
			}
		}(srv)
	}

	select {
	case <-ctx.Done():
		logger.Info("Shutting down servers...")
	case err := <-errCh:
		logger.Errorw("Server failed", "error", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	for _, srv := range servers {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warnw("Server shutdown error", "addr", srv.Addr, "error", err)
		}
	}
	return nil
}

func initializeDB(cfg *config.Config, logger *zap.SugaredLogger) (*gorm.DB, error) {
	db, err := database.Open(database.Config{
		Driver: cfg.Database.Driver,
		DSN:    cfg.Database.DSN,
		Debug:  cfg.Database.Debug,
	})
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	var items []models.MenuItem
	if cfg.Menu.SeedFile != "" {
		items, err = menu.SeedFile(cfg.Menu.SeedFile)
	} else {
		items, err = menu.DefaultSeed()
	}
	if err != nil {
		db.Close()
		return nil, err
	}

	n, err := menu.Seed(db, items)
	if err != nil {
		db.Close()
		return nil, err
	}
	if n > 0 {
		logger.Infow("Seeded menu", "items", n)
	}
	return db, nil
}

func healthHandler(metrics *monitoring.MetricsCollector, hub *broadcast.Hub, calls *agent.Calls) gin.HandlerFunc {
	return func(c *gin.Context) {
		snapshot := metrics.Monitor().GetMetrics()
		snapshot["status"] = "ok"
		snapshot["connected_clients"] = hub.ClientCount()
		snapshot["live_calls"] = calls.Len()
		c.JSON(http.StatusOK, snapshot)
	}
}

func metricsRouter(metrics *monitoring.MetricsCollector) http.Handler {
	router := gin.New()
	router.GET("/metrics", gin.WrapH(metrics.Handler()))
	return router
}
