package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"

	"github.com/kitchenlane/catering-ops/internal/auth"
	"github.com/kitchenlane/catering-ops/internal/clients"
	"github.com/kitchenlane/catering-ops/internal/config"
	"github.com/kitchenlane/catering-ops/internal/database"
	"github.com/kitchenlane/catering-ops/internal/handlers"
	"github.com/kitchenlane/catering-ops/internal/models"
	"github.com/kitchenlane/catering-ops/internal/outbox"
	"github.com/kitchenlane/catering-ops/internal/projection"
	"github.com/kitchenlane/catering-ops/internal/refresh"
	"github.com/kitchenlane/catering-ops/internal/repository"
	"github.com/kitchenlane/catering-ops/internal/service"
	"github.com/kitchenlane/catering-ops/pkg/kafka"
	"github.com/kitchenlane/catering-ops/pkg/logger"
	"github.com/kitchenlane/catering-ops/pkg/middleware"
)

// Server wires the order store, the lifecycle services, the outbox pipeline
// and the view refreshers behind the HTTP API.
type Server struct {
	config     *config.Config
	logger     logger.Logger
	router     *mux.Router
	httpServer *http.Server

	db          *database.Database
	redisClient *redis.Client

	orderService   *service.OrderService
	catalogService *service.CatalogService
	fleetService   *service.FleetService

	outboxProcessor *outbox.Processor
	kafkaProducer   *kafka.Producer
	kafkaConsumer   *kafka.Consumer

	refreshRegistry *refresh.Registry
	snapshotCache   *projection.SnapshotCache

	authMiddleware *auth.Middleware
	rateLimiter    *middleware.RateLimiterMiddleware
}

// NewServer creates a new API server with the given configuration and logger.
func NewServer(cfg *config.Config, log logger.Logger) (*Server, error) {
	db, err := database.New(cfg, log)

	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.RunMigrations(); err != nil {
		return nil, fmt.Errorf("failed to run database migrations: %w", err)
	}

	outboxRepo := repository.NewOutboxRepository(db, log)
	fleetRepo := repository.NewFleetRepository(db, log)
	orderRepo := repository.NewOrderRepository(db, outboxRepo, fleetRepo, log)
	productRepo := repository.NewProductRepository(db, log)

	orderService := service.NewOrderService(orderRepo, productRepo, log)
	catalogService := service.NewCatalogService(productRepo, log)
	fleetService := service.NewFleetService(fleetRepo, log)

	kafkaProducer, err := kafka.NewProducer(cfg.Kafka.Brokers, log)

	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}

	outboxProcessor := outbox.NewProcessor(outboxRepo, outbox.ProcessorConfig{
		PollingInterval: 5 * time.Second,
		BatchSize:       10,
		MaxRetries:      3,
	}, log)

	kafkaHandler := outbox.NewKafkaHandler(kafkaProducer, cfg.Kafka.EventsTopic, log)
	for _, eventType := range []string{
		models.EventOrderCreated,
		models.EventOrderUpdated,
		models.EventOrderStatusChanged,
		models.EventOrderDeleted,
		models.EventDriverAssigned,
	} {
		outboxProcessor.RegisterHandler(eventType, kafkaHandler)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	// The TTL matches the poll interval so a cached snapshot can never
	// outlive the next scheduled refresh, even if an invalidation is lost.
	snapshotCache := projection.NewSnapshotCache(redisClient, cfg.Refresh.Interval, log)

	refreshRegistry := buildRefreshers(cfg, orderRepo, log)

	var pushClient *clients.PushGatewayClient
	if cfg.Push.Enabled {
		pushClient = clients.NewPushGatewayClient(cfg.Push.BaseURL, log)
	}

	kafkaConsumer, err := kafka.NewConsumer(&kafka.ConsumerConfig{
		Brokers:       cfg.Kafka.Brokers,
		Topics:        []string{cfg.Kafka.EventsTopic},
		ConsumerGroup: cfg.Kafka.ConsumerGroup,
	}, log)

	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka consumer: %w", err)
	}

	eventsHandler := handlers.NewOrderEventsHandler(refreshRegistry, snapshotCache, pushClient, log)
	kafkaConsumer.RegisterHandler(cfg.Kafka.EventsTopic, eventsHandler)

	rateLimiter := middleware.NewRateLimiterMiddleware(&middleware.RateLimiterConfig{
		GlobalMaxTokens:   200,
		GlobalRefillRate:  100,
		IPMaxTokens:       20,
		IPRefillRate:      10,
		TrustForwardedFor: cfg.Env != "development",
	}, log)

	server := &Server{
		config:          cfg,
		logger:          log,
		router:          mux.NewRouter(),
		db:              db,
		redisClient:     redisClient,
		orderService:    orderService,
		catalogService:  catalogService,
		fleetService:    fleetService,
		outboxProcessor: outboxProcessor,
		kafkaProducer:   kafkaProducer,
		kafkaConsumer:   kafkaConsumer,
		refreshRegistry: refreshRegistry,
		snapshotCache:   snapshotCache,
		authMiddleware:  auth.NewMiddleware(cfg.Auth.JWTSecret, log),
		rateLimiter:     rateLimiter,
	}

	server.setupRoutes()

	corsHandler := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPut,
			http.MethodPatch, http.MethodDelete, http.MethodOptions,
		},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	})

	server.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      corsHandler.Handler(server.router),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	outboxProcessor.Start()
	refreshRegistry.Start()

	if err := kafkaConsumer.Start(); err != nil {
		// The poll tick still refreshes views without the consumer
		log.Error("Failed to start Kafka consumer", "error", err)
	}

	return server, nil
}

// buildRefreshers registers one refresher per active view, each fetching the
// full order list and projecting it.
func buildRefreshers(cfg *config.Config, orderRepo *repository.OrderRepository, log logger.Logger) *refresh.Registry {
	registry := refresh.NewRegistry(log)

	refreshCfg := refresh.Config{
		Interval: cfg.Refresh.Interval,
		Debounce: cfg.Refresh.Debounce,
	}

	project := func(fn func([]*models.Order) interface{}) refresh.FetchFunc {
		return func(ctx context.Context) (interface{}, error) {
			orders, err := orderRepo.GetAll(ctx)
			if err != nil {
				return nil, err
			}
			return fn(orders), nil
		}
	}

	registry.Register(refresh.NewRefresher(viewKitchenQueue, project(func(orders []*models.Order) interface{} {
		return projection.KitchenQueue(orders)
	}), refreshCfg, log))

	registry.Register(refresh.NewRefresher(viewKitchenHistory, project(func(orders []*models.Order) interface{} {
		return projection.KitchenHistory(orders)
	}), refreshCfg, log))

	registry.Register(refresh.NewRefresher(viewDriverTasks, project(func(orders []*models.Order) interface{} {
		return projection.DriverTasks(orders)
	}), refreshCfg, log))

	registry.Register(refresh.NewRefresher(viewDriverHistory, project(func(orders []*models.Order) interface{} {
		return projection.DriverHistory(orders)
	}), refreshCfg, log))

	registry.Register(refresh.NewRefresher(viewDashboard, project(func(orders []*models.Order) interface{} {
		return projection.Dashboard(orders, 10)
	}), refreshCfg, log))

	return registry
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.Info("Starting HTTP server", "port", s.config.Port, "env", s.config.Env)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server and its background loops.
func (s *Server) Shutdown(ctx context.Context) error {
	s.outboxProcessor.Stop()
	s.refreshRegistry.Stop()
	s.rateLimiter.Stop()

	if s.kafkaConsumer != nil {
		if err := s.kafkaConsumer.Stop(); err != nil {
			s.logger.Error("Error stopping Kafka consumer", "error", err)
		}
	}

	if s.kafkaProducer != nil {
		if err := s.kafkaProducer.Close(); err != nil {
			s.logger.Error("Error closing Kafka producer", "error", err)
		}
	}

	if s.redisClient != nil {
		if err := s.redisClient.Close(); err != nil {
			s.logger.Error("Error closing Redis client", "error", err)
		}
	}

	if err := s.db.Close(); err != nil {
		s.logger.Error("Error closing database connection", "error", err)
	}

	return s.httpServer.Shutdown(ctx)
}

// setupRoutes configures all the routes for our API.
func (s *Server) setupRoutes() {
	s.router.Use(s.loggingMiddleware)
	s.router.Use(s.rateLimiter.Middleware)
	s.router.Use(middleware.Metrics)

	s.router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	api := s.router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/health", s.healthCheckHandler).Methods(http.MethodGet)

	// Everything below requires a verified token
	authed := api.NewRoute().Subrouter()
	authed.Use(s.authMiddleware.Handler)

	authed.HandleFunc("/orders", s.getOrdersHandler).Methods(http.MethodGet)
	authed.HandleFunc("/orders", s.createOrderHandler).Methods(http.MethodPost)
	authed.HandleFunc("/orders/{id}", s.getOrderByIDHandler).Methods(http.MethodGet)
	authed.HandleFunc("/orders/{id}", s.updateOrderHandler).Methods(http.MethodPut)
	authed.HandleFunc("/orders/{id}", s.deleteOrderHandler).Methods(http.MethodDelete)
	authed.HandleFunc("/orders/{id}/status", s.updateOrderStatusHandler).Methods(http.MethodPost)
	authed.HandleFunc("/orders/{id}/assign", s.assignDriverHandler).Methods(http.MethodPost)

	authed.HandleFunc("/products", s.getProductsHandler).Methods(http.MethodGet)
	authed.HandleFunc("/products", s.createProductHandler).Methods(http.MethodPost)
	authed.HandleFunc("/products/{id}", s.getProductByIDHandler).Methods(http.MethodGet)
	authed.HandleFunc("/products/{id}", s.updateProductHandler).Methods(http.MethodPut)
	authed.HandleFunc("/products/{id}", s.deleteProductHandler).Methods(http.MethodDelete)

	authed.HandleFunc("/drivers", s.getDriversHandler).Methods(http.MethodGet)
	authed.HandleFunc("/drivers/{id}", s.getDriverByIDHandler).Methods(http.MethodGet)
	authed.HandleFunc("/drivers/{id}/status", s.setDriverStatusHandler).Methods(http.MethodPost)

	authed.HandleFunc("/vehicles", s.getVehiclesHandler).Methods(http.MethodGet)
	authed.HandleFunc("/vehicles", s.createVehicleHandler).Methods(http.MethodPost)
	authed.HandleFunc("/vehicles/{id}", s.getVehicleByIDHandler).Methods(http.MethodGet)
	authed.HandleFunc("/vehicles/{id}", s.updateVehicleHandler).Methods(http.MethodPut)
	authed.HandleFunc("/vehicles/{id}", s.deleteVehicleHandler).Methods(http.MethodDelete)
	authed.HandleFunc("/vehicles/{id}/declare", s.declareVehicleHandler).Methods(http.MethodPost)
	authed.HandleFunc("/vehicles/{id}/release", s.releaseVehicleHandler).Methods(http.MethodPost)

	authed.HandleFunc("/views/kitchen/queue", s.kitchenQueueHandler).Methods(http.MethodGet)
	authed.HandleFunc("/views/kitchen/history", s.kitchenHistoryHandler).Methods(http.MethodGet)
	authed.HandleFunc("/views/driver/tasks", s.driverTasksHandler).Methods(http.MethodGet)
	authed.HandleFunc("/views/driver/history", s.driverHistoryHandler).Methods(http.MethodGet)
	authed.HandleFunc("/dashboard/stats", s.dashboardStatsHandler).Methods(http.MethodGet)
}

// loggingMiddleware logs requests after they complete.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		next.ServeHTTP(w, r)

		s.logger.Info("Request processed",
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start),
			"remoteAddr", r.RemoteAddr,
		)
	})
}
