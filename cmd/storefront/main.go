// Package main Storefront API
//
// Order and payment lifecycle engine for the storefront. Creates checkout
// sessions with the payment gateway, processes its callbacks and exposes
// admin payment operations.
//
//	@title			Storefront API
//	@version		1.0
//	@description	Order and payment lifecycle engine
//
//	@host		localhost:8443
//	@BasePath	/
//	@schemes	https http
//
//	@securityDefinitions.apikey	ApiKeyAuth
//	@in							header
//	@name						Authorization
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "storefront/docs/swagger"
	"storefront/internal/gateway"
	"storefront/internal/orders/adapters"
	"storefront/internal/orders/application"
	"storefront/internal/orders/infrastructure"
	"storefront/internal/orders/ports"
	"storefront/pkg/config"
	"storefront/pkg/db"
	"storefront/pkg/events"
	"storefront/pkg/logger"
	"storefront/pkg/metrics"
	"storefront/pkg/middleware"
	"storefront/pkg/rabbitmq"
	pkgtls "storefront/pkg/tls"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	log := logger.New(cfg.ServiceName, cfg.LogLevel)
	defer log.Sync()

	log.Info("starting storefront service")

	// Connect to database
	dbConn, err := db.NewConnection(cfg.DSN(), cfg.DBTimeout)
	if err != nil {
		log.Fatal("failed to connect to database: " + err.Error())
	}
	log.Info("connected to database")

	// Initialize repository and run migrations
	repo := adapters.NewPostgresOrderRepository(dbConn)
	if err := repo.Migrate(); err != nil {
		log.Fatal("failed to migrate database: " + err.Error())
	}

	// Connect to RabbitMQ for outbound notifications
	var notifier *adapters.RabbitMQNotifier
	rabbitConn, err := rabbitmq.NewConnection(cfg.RabbitMQURL, log)
	if err != nil {
		log.Warn("failed to connect to RabbitMQ, notifications will be disabled: " + err.Error())
	} else {
		defer rabbitConn.Close()

		pub, err := rabbitmq.NewPublisher(rabbitConn, events.ExchangeOrders, log)
		if err != nil {
			log.Warn("failed to create publisher: " + err.Error())
		} else {
			notifier = adapters.NewRabbitMQNotifier(pub, log)
		}
	}

	// Gateway client with a cached access token, optionally shared via redis
	var tokenCache gateway.TokenCache
	if cfg.RedisAddr != "" {
		redisCache := gateway.NewRedisTokenCache(cfg.RedisAddr, cfg.ServiceName)
		defer redisCache.Close()
		tokenCache = redisCache
		log.Info("gateway token cache backed by redis")
	}

	gatewayClient := gateway.NewClient(gateway.Config{
		BaseURL:         cfg.GatewayBaseURL,
		ClientID:        cfg.GatewayClientID,
		ClientSecret:    cfg.GatewayClientSecret,
		SubscriptionKey: cfg.GatewaySubscriptionKey,
		MerchantSerial:  cfg.GatewayMerchantSerial,
		Timeout:         cfg.GatewayTimeout,
	}, tokenCache, log)

	catalog := adapters.NewHTTPCatalogClient(cfg.CatalogBaseURL, cfg.CatalogTimeout)

	// Metrics
	m := metrics.New("orders")

	// Application services
	var notifierPort ports.Notifier
	if notifier != nil {
		notifierPort = notifier
	}

	checkoutSvc := application.NewCheckoutService(repo, gatewayClient, catalog, application.CheckoutConfig{
		CallbackBaseURL: cfg.CallbackBaseURL,
		Currency:        cfg.Currency,
		PriceTolerance:  cfg.PriceToleranceMinor,
	}, log, nil)
	webhookSvc := application.NewWebhookService(repo, gatewayClient, notifierPort, m, log, nil)
	paymentSvc := application.NewPaymentService(repo, gatewayClient, m, log, nil)
	reaperSvc := application.NewReaperService(repo, m, log, nil)

	// Reaper schedule
	scheduler := cron.New(cron.WithSeconds())
	_, err = scheduler.AddFunc(cfg.ReaperCronSpec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.DBTimeout)
		defer cancel()
		if _, err := reaperSvc.Sweep(ctx, cfg.ReaperMaxAge); err != nil {
			log.Error("abandoned order sweep failed: " + err.Error())
		}
	})
	if err != nil {
		log.Fatal("invalid reaper cron spec: " + err.Error())
	}
	scheduler.Start()
	defer scheduler.Stop()
	log.Info("reaper scheduled with spec " + cfg.ReaperCronSpec)

	// Setup Gin router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(middleware.TraceID())
	router.Use(middleware.RequestLogger(log))
	router.Use(middleware.ErrorHandler(log))
	router.Use(middleware.Metrics(m))
	router.Use(middleware.CORS())

	httpHandler := infrastructure.NewHTTPHandler(checkoutSvc, webhookSvc, paymentSvc, reaperSvc, cfg.ReaperMaxAge, log)
	api := router.Group("/api/v1")
	httpHandler.RegisterRoutes(api, middleware.AdminAuth(cfg.AdminJWTSecret))

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Metrics and health
	router.GET("/metrics", gin.WrapH(metrics.Handler()))
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	server := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  cfg.HTTPTimeout,
		WriteTimeout: cfg.HTTPTimeout,
	}

	if cfg.TLSEnabled {
		tlsConfig, err := pkgtls.ServerConfig(cfg.TLSCertFile, cfg.TLSKeyFile)
		if err != nil {
			log.Fatal("failed to load TLS config: " + err.Error())
		}
		server.Addr = ":" + cfg.HTTPSPort
		server.TLSConfig = tlsConfig
	}

	go func() {
		log.Info("HTTP server listening on " + server.Addr)
		var err error
		if cfg.TLSEnabled {
			err = server.ListenAndServeTLS("", "")
		} else {
			err = server.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server error: " + err.Error())
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP shutdown error: " + err.Error())
	}

	log.Info("server stopped")
}
