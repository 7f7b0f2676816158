package api

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"trade-journal/config"
	"trade-journal/internal/auth"
	"trade-journal/internal/billing"
	"trade-journal/internal/cache"
	"trade-journal/internal/database"
	"trade-journal/internal/email"
	"trade-journal/internal/events"
	"trade-journal/internal/ledger"
	"trade-journal/internal/logging"
	"trade-journal/internal/quote"
)

// Server is the HTTP edge: routing, auth, and JSON marshalling around the
// ledger, quote, and billing services
type Server struct {
	router     *gin.Engine
	httpServer *http.Server
	cfg        config.ServerConfig
	logger     *logging.Logger

	repo        *database.Repository
	bus         *events.EventBus
	jwtManager  *auth.JWTManager
	authHandler *auth.Handlers
	authService *auth.Service
	ledger      *ledger.Service
	stockCache  *quote.Cache
	forexCache  *quote.Cache
	billing     *billing.Service
	email       *email.Service
	settings    *cache.SettingsCache
	hub         *WSHub
}

// NewServer creates the API server and wires all routes
func NewServer(
	cfg config.ServerConfig,
	repo *database.Repository,
	bus *events.EventBus,
	jwtManager *auth.JWTManager,
	authService *auth.Service,
	ledgerService *ledger.Service,
	stockCache *quote.Cache,
	forexCache *quote.Cache,
	billingService *billing.Service,
	emailService *email.Service,
	settings *cache.SettingsCache,
) *Server {
	if cfg.ProductionMode {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	if cfg.AllowedOrigins == "*" {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = []string{cfg.AllowedOrigins}
		corsConfig.AllowCredentials = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	router.Use(cors.New(corsConfig))

	server := &Server{
		router:      router,
		cfg:         cfg,
		logger:      logging.WithComponent("api"),
		repo:        repo,
		bus:         bus,
		jwtManager:  jwtManager,
		authHandler: auth.NewHandlers(authService),
		authService: authService,
		ledger:      ledgerService,
		stockCache:  stockCache,
		forexCache:  forexCache,
		billing:     billingService,
		email:       emailService,
		settings:    settings,
		hub:         NewWSHub(),
	}

	server.setupRoutes()
	go server.hub.Run()
	server.hub.AttachBus(bus)

	return server
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)
	s.router.GET("/ws", s.handleWebSocket)

	public := s.router.Group("/api")
	protected := s.router.Group("/api")
	protected.Use(auth.Middleware(s.jwtManager))

	s.authHandler.RegisterRoutes(public, protected)

	// User profile and preferences
	protected.GET("/user/profile", s.handleProfile)
	protected.POST("/user/email-alerts", s.handleEmailAlerts)
	protected.POST("/user/test-email", s.handleTestEmail)
	protected.GET("/user/billing-status", s.handleBillingStatus)

	// Strategies
	protected.GET("/user/strategies", s.handleListStrategies)
	protected.POST("/user/strategies", s.handleCreateStrategy)
	protected.PUT("/user/strategies/:id", s.handleRenameStrategy)
	protected.DELETE("/user/strategies/:id", s.handleDeleteStrategy)
	protected.DELETE("/user/strategies", s.handleDeleteAllStrategies)

	// Ledger reads and anchor writes
	protected.GET("/user/capital", s.handleGetCapital)
	protected.POST("/user/capital", s.handleSetCapital)
	protected.GET("/user/capital-history", s.handleCapitalHistory)
	protected.GET("/user/strategies/capital-histories", s.handleCapitalHistories)

	// Trades
	protected.GET("/trades", s.handleListTrades)
	protected.GET("/trades/date/:date", s.handleTradesByDate)
	protected.GET("/trades/dates", s.handleTradeDates)
	protected.GET("/trades/stock-codes", s.handleStockCodes)
	protected.GET("/trades/stock/:code", s.handleTradesByCode)
	protected.POST("/trades", s.handleCreateTrade)
	protected.PUT("/trades/:id", s.handleUpdateTrade)
	protected.DELETE("/trades/clear-all", s.handleClearAllTrades)
	protected.DELETE("/trades/:id", s.handleDeleteTrade)

	// Positions
	protected.GET("/positions", s.handleListPositions)
	protected.PUT("/positions/:id", s.handleUpdatePosition)
	protected.POST("/positions/:id/take-profit", s.handleTakeProfit)
	protected.POST("/positions/:id/stop-loss", s.handleStopLoss)

	// Prices
	protected.GET("/price/:code", s.handleGetPrice)
	protected.POST("/price/batch", s.handleBatchPrices)

	// Forex mirror of the stock surface
	forex := protected.Group("/forex")
	{
		forex.GET("/account", s.handleForexAccount)
		forex.POST("/account/initial", s.handleForexSetInitial)
		forex.POST("/account/reset", s.handleForexReset)
		forex.GET("/trades", s.handleForexListTrades)
		forex.POST("/trades", s.handleCreateTrade)
		forex.PUT("/trades/:id", s.handleUpdateTrade)
		forex.DELETE("/trades/clear-all", s.handleClearAllTrades)
		forex.DELETE("/trades/:id", s.handleDeleteTrade)
		forex.POST("/trades/:id/close", s.handleForexClose)
		forex.GET("/positions", s.handleListPositions)
		forex.GET("/capital-history", s.handleCapitalHistory)
		forex.GET("/quotes", s.handleForexQuotes)
	}

	// Billing
	protected.GET("/billing/orders", s.handleListOrders)
	protected.POST("/billing/orders", s.handleCreateOrder)
	protected.POST("/billing/orders/:id/cancel", s.handleCancelOrder)

	// Admin
	admin := protected.Group("/admin")
	admin.Use(auth.RequireAdmin())
	{
		admin.GET("/users", s.handleAdminListUsers)
		admin.GET("/settings", s.handleAdminGetSettings)
		admin.PUT("/settings", s.handleAdminPutSettings)
		admin.DELETE("/settings/:key", s.handleAdminDeleteSetting)
		admin.GET("/orders/pending", s.handleAdminPendingOrders)
		admin.POST("/orders/:id/confirm", s.handleAdminConfirmOrder)
	}

	// Static web UI, if built
	if s.cfg.StaticFilesPath != "" {
		if _, err := os.Stat(s.cfg.StaticFilesPath); err == nil {
			s.router.Static("/assets", s.cfg.StaticFilesPath+"/assets")
			s.router.StaticFile("/", s.cfg.StaticFilesPath+"/index.html")
			s.router.NoRoute(func(c *gin.Context) {
				c.File(s.cfg.StaticFilesPath + "/index.html")
			})
		}
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := "ok"
	code := http.StatusOK
	if err := s.repo.HealthCheck(ctx); err != nil {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{
		"status":        status,
		"cache_healthy": s.settings.CacheHealthy(),
		"time":          time.Now().UTC(),
	})
}

// Start runs the HTTP server until it fails or Shutdown is called
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.cfg.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(s.cfg.WriteTimeout) * time.Second,
	}

	s.logger.Info("HTTP server listening", "address", addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops the HTTP server gracefully
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// ---- request helpers ----

func strategyIDFrom(c *gin.Context) (int64, error) {
	raw := c.Query("strategy_id")
	if raw == "" {
		return 0, fmt.Errorf("strategy_id is required")
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("strategy_id must be a positive integer")
	}
	return id, nil
}

func pathID(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("id must be a positive integer")
	}
	return id, nil
}

func marketFrom(c *gin.Context) string {
	if c.Query("market") == database.MarketForex {
		return database.MarketForex
	}
	return database.MarketStock
}
