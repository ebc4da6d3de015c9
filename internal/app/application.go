package app

import (
	"net/http"
	"time"

	"github.com/ak/pos/internal/app/middleware"
	"github.com/ak/pos/internal/domain/services"
	"github.com/ak/pos/internal/infrastructure/cache"
	"github.com/ak/pos/internal/infrastructure/config"
	"github.com/ak/pos/internal/infrastructure/database"
	"github.com/ak/pos/internal/infrastructure/events"
	"github.com/ak/pos/internal/infrastructure/repositories"
	"github.com/ak/pos/internal/pkg/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Application holds all application dependencies and services
type Application struct {
	config   *config.Config
	logger   *logger.Logger
	mongodb  *database.Manager
	attempts *cache.RedisAttemptStore
	repos    *repositories.Provider
	router   *gin.Engine
	handlers *Handlers
}

// New creates a new Application instance
func New(cfg *config.Config, log *logger.Logger, mongodb *database.Manager) (*Application, error) {
	repos := repositories.NewProvider()
	attempts := cache.NewRedisAttemptStore(cfg.Redis)
	issuer := middleware.NewIssuer(middleware.JWTConfig{
		Secret:         cfg.JWT.Secret,
		Issuer:         cfg.JWT.Issuer,
		AccessTokenTTL: cfg.JWT.AccessTokenTTL,
	})
	checker := services.NewRoleChecker()

	// Order events go to Kafka when brokers are configured, otherwise they
	// are dropped.
	var publisher services.EventPublisher = services.NopPublisher{}
	if len(cfg.Kafka.Brokers) > 0 {
		publisher = events.NewKafkaPublisher(cfg.Kafka, log)
	} else {
		log.Warn("Kafka brokers not configured, order events disabled")
	}

	costs := services.NewCostEngine(repos.Recipe)
	pricing := services.NewPricingEngine(repos.Recipe, costs)
	ledger := services.NewLedger(repos.Inventory)
	numbers := services.NewOrderNumbers(repos.Counter)

	auth := services.NewAuthService(repos.Staff, attempts, issuer,
		cfg.POS.PinPepper, cfg.POS.PinMaxAttempts, cfg.POS.PinLockTime, log)
	tills := services.NewTillService(repos.Till, repos.Terminal, repos.Order, checker, issuer, log)
	orders := services.NewOrderService(repos.Order, repos.Menu, repos.Branch, repos.Terminal,
		repos.Till, repos.Recipe, pricing, ledger, numbers, checker, publisher, log)

	app := &Application{
		config:   cfg,
		logger:   log,
		mongodb:  mongodb,
		attempts: attempts,
		repos:    repos,
	}
	app.handlers = NewHandlers(repos, auth, tills, orders, ledger, checker, log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	app.router = gin.New()
	app.router.Use(gin.Recovery())
	app.router.Use(app.loggerMiddleware())
	app.router.Use(app.corsMiddleware())

	app.setupRoutes()

	return app, nil
}

// Router returns the HTTP handler
func (a *Application) Router() http.Handler {
	return a.router
}

// Close releases infrastructure connections held by the application.
func (a *Application) Close() error {
	return a.attempts.Close()
}

// setupRoutes configures all application routes
func (a *Application) setupRoutes() {
	jwtConfig := middleware.JWTConfig{
		Secret:         a.config.JWT.Secret,
		Issuer:         a.config.JWT.Issuer,
		AccessTokenTTL: a.config.JWT.AccessTokenTTL,
	}

	// Health check endpoints
	a.router.GET("/health", a.healthCheck)
	a.router.GET("/ready", a.readinessCheck)

	v1 := a.router.Group("/api/v1")

	// PIN login carries no token yet; the tenant comes from the header.
	public := v1.Group("")
	public.Use(middleware.TenantResolver(a.mongodb))
	{
		public.POST("/auth/pin-login", a.handlers.pinLogin)
	}

	authed := v1.Group("")
	authed.Use(middleware.JWTMiddleware(jwtConfig))
	authed.Use(middleware.TenantResolver(a.mongodb))
	{
		authed.GET("/auth/me", a.handlers.whoami)
		authed.PUT("/staff/:id/pin", a.handlers.setPin)

		tills := authed.Group("/till-sessions")
		{
			tills.POST("", a.handlers.openTill)
			tills.GET("", a.handlers.listTills)
			tills.GET("/:id", a.handlers.getTill)
			tills.POST("/:id/close", a.handlers.closeTill)
		}

		orders := authed.Group("/orders")
		{
			orders.POST("", a.handlers.commitOrder)
			orders.GET("", a.handlers.listOrders)
			orders.GET("/:id", a.handlers.getOrder)
			orders.POST("/:id/void", a.handlers.voidOrder)
			orders.POST("/:id/refund", a.handlers.refundOrder)
		}

		menu := authed.Group("/menu")
		{
			menu.GET("/branch", a.handlers.listBranchMenu)
			menu.GET("/items/:id", a.handlers.getMenuItem)
		}

		inventory := authed.Group("/inventory")
		{
			inventory.GET("/stock", a.handlers.listBranchStock)
			inventory.GET("/transactions", a.handlers.listInventoryTransactions)
			inventory.POST("/receipts", a.handlers.receiveStock)
			inventory.POST("/waste", a.handlers.wasteStock)
		}

		authed.GET("/branches/:id", a.handlers.getBranch)
		authed.GET("/terminals", a.handlers.listTerminals)
	}
}

// Health endpoints

func (a *Application) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": a.config.App.Name,
	})
}

func (a *Application) readinessCheck(c *gin.Context) {
	if err := a.mongodb.Health(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"mongo":  err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

// Middleware

func (a *Application) loggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Skip logging for health checks
		if c.Request.URL.Path == "/health" || c.Request.URL.Path == "/ready" {
			c.Next()
			return
		}

		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		if raw != "" {
			path = path + "?" + raw
		}

		a.logger.Info("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

func (a *Application) corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}

		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Tenant-ID")
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
