package api

import (
	"context"
	"fmt"
	"net/http"

	"parkly/internal/cache"
	"parkly/internal/config"
	"parkly/internal/database"
	"parkly/internal/external"
	"parkly/internal/handlers"
	"parkly/internal/logger"
	"parkly/internal/messaging"
	"parkly/internal/middleware"
	"parkly/internal/repository"
	"parkly/internal/search"
	"parkly/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server wires the HTTP API together: database, NATS, cache, gateway client
// and the service layer behind the gin router.
type Server struct {
	router   *gin.Engine
	config   *config.Config
	db       *database.DB
	nats     *messaging.NATSClient
	valkey   *cache.ValkeyClient
	services *service.Services
	repos    *repository.Repositories
}

func NewServer(cfg *config.Config) (*Server, error) {
	gin.SetMode(cfg.GinMode)

	db, err := database.Connect(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.RunMigrations(); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	natsClient, err := messaging.NewNATSClient(cfg.NATS)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	// The whitelist cache is optional; check-in falls through to SQL when
	// Valkey is unreachable.
	valkeyClient, err := cache.NewValkeyClient(cfg.Cache)
	if err != nil {
		logger.Get().Warn("Valkey unavailable, whitelist caching disabled", "error", err)
		valkeyClient = nil
	}

	// Session history search is optional and only wired when configured.
	var index service.SessionIndexer
	if cfg.Elasticsearch.URL != "" {
		esClient, err := search.NewElasticsearchClient(cfg.Elasticsearch)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to Elasticsearch: %w", err)
		}
		index = esClient
	}

	storageClient, err := external.NewStorageClient(context.Background(), cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to init storage client: %w", err)
	}

	gatewayClient := external.NewGatewayClient(cfg.Payment)

	repos := repository.NewRepositories(db)

	services := service.NewServices(service.Deps{
		Sessions:      repos.Sessions,
		GuestSessions: repos.GuestSessions,
		Schedules:     repos.Schedules,
		Lots:          repos.Lots,
		Whitelist:     cache.NewWhitelistCache(repos.Lots, valkeyClient),
		Vehicles:      repos.Vehicles,
		Storage:       storageClient,
		Gateway:       gatewayClient,
		Events:        natsClient,
		Index:         index,
	})

	router := gin.New()
	router.Use(middleware.Recovery())
	router.Use(middleware.CORS())
	router.Use(middleware.Logger())
	router.Use(middleware.Metrics())

	server := &Server{
		router:   router,
		config:   cfg,
		db:       db,
		nats:     natsClient,
		valkey:   valkeyClient,
		services: services,
		repos:    repos,
	}

	server.setupRoutes()

	return server, nil
}

func (s *Server) setupRoutes() {
	h := handlers.NewHandlers(s.services)

	api := s.router.Group("/api")
	api.Use(middleware.JWTAuth(s.config.JWTSecret))
	{
		sessions := api.Group("/sessions")
		{
			sessions.POST("/check-in", middleware.RequireRole("staff", "owner"), h.CheckIn)
			sessions.PATCH("/check-out", h.CheckOut)
			sessions.PATCH("/finish", middleware.RequireRole("staff", "owner"), h.Finish)
			sessions.PATCH("/force-finish", middleware.RequireRole("staff", "owner"), h.ForceFinish)
			sessions.GET("/open", middleware.RequireRole("staff", "owner"), h.ListOpen)
			sessions.GET("/current", h.CurrentSession)
			sessions.GET("/history", middleware.RequireRole("staff", "owner"), h.SearchHistory)
			sessions.GET("/payment", middleware.RequireRole("staff", "owner"), h.GetPaymentInfoByStaff)
			sessions.GET("/:id/payment", h.GetPaymentInfo)
			sessions.GET("/:id/payment/status", middleware.RequireRole("staff", "owner"), h.GetPaymentStatus)
			sessions.DELETE("/:id/payment", middleware.RequireRole("staff", "owner"), h.CancelPayment)
		}

		guests := api.Group("/guests")
		guests.Use(middleware.RequireRole("staff", "owner"))
		{
			guests.POST("/check-in", h.GuestCheckIn)
			guests.PATCH("/finish", h.GuestFinish)
			guests.GET("/open", h.ListOpenGuests)
		}

		schedules := api.Group("/schedules")
		{
			schedules.POST("", middleware.RequireRole("owner"), h.CreateSchedule)
			schedules.PATCH("/:id", middleware.RequireRole("owner"), h.UpdateSchedule)
			schedules.GET("", h.ListSchedules)
		}
	}

	// The gateway authenticates itself via the payload signature, not a
	// bearer token, so the webhook sits outside the auth group.
	s.router.POST("/api/payments/webhook", h.OnPaymentWebhook)

	s.router.GET("/health", s.healthCheck)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

func (s *Server) healthCheck(c *gin.Context) {
	hc := s.db.HealthCheck(c.Request.Context())
	status := http.StatusOK
	if hc.Status != "healthy" {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{
		"status":   hc.Status,
		"service":  "parkly-api",
		"database": hc,
	})
}

// Router exposes the underlying gin engine, mainly for tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

func (s *Server) Run() error {
	addr := ":" + s.config.Port
	logger.Get().Info("Starting HTTP server", "addr", addr)
	return s.router.Run(addr)
}

// Close releases the server's external connections.
func (s *Server) Close() {
	if s.valkey != nil {
		if err := s.valkey.Close(); err != nil {
			logger.Get().Error("Failed to close Valkey client", "error", err)
		}
	}
	if s.nats != nil {
		if err := s.nats.Close(); err != nil {
			logger.Get().Error("Failed to close NATS connection", "error", err)
		}
	}
	if err := s.db.Close(); err != nil {
		logger.Get().Error("Failed to close database", "error", err)
	}
}
