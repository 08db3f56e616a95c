package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"

	"github.com/mkarlin/storefront-api/internal/auth"
	"github.com/mkarlin/storefront-api/internal/config"
	"github.com/mkarlin/storefront-api/internal/handler"
	"github.com/mkarlin/storefront-api/internal/middleware"
	"github.com/mkarlin/storefront-api/internal/repository"
	"github.com/mkarlin/storefront-api/internal/service"
	"github.com/mkarlin/storefront-api/internal/worker"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Error("load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// PostgreSQL
	poolCfg, err := pgxpool.ParseConfig(cfg.DB.DSN())
	if err != nil {
		log.Error("parse db config", "error", err)
		os.Exit(1)
	}
	poolCfg.MaxConns = cfg.DB.MaxConns

	dbPool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		log.Error("connect to database", "error", err)
		os.Exit(1)
	}
	defer dbPool.Close()

	if err := dbPool.Ping(ctx); err != nil {
		log.Error("ping database", "error", err)
		os.Exit(1)
	}
	log.Info("connected to PostgreSQL")

	// Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Error("connect to Redis", "error", err)
		os.Exit(1)
	}
	log.Info("connected to Redis")

	// RabbitMQ
	amqpConn, err := amqp.Dial(cfg.RabbitMQ.URL)
	if err != nil {
		log.Error("connect to RabbitMQ", "error", err)
		os.Exit(1)
	}
	defer amqpConn.Close()

	amqpCh, err := amqpConn.Channel()
	if err != nil {
		log.Error("open RabbitMQ channel", "error", err)
		os.Exit(1)
	}
	defer amqpCh.Close()

	if err := worker.SetupRabbitMQ(amqpCh); err != nil {
		log.Error("setup RabbitMQ", "error", err)
		os.Exit(1)
	}
	log.Info("connected to RabbitMQ")

	// Firebase
	fbClient, err := auth.NewClient(ctx, cfg.Firebase)
	if err != nil {
		log.Error("init firebase", "error", err)
		os.Exit(1)
	}
	log.Info("initialized Firebase auth")

	// Repositories
	userRepo := repository.NewUserRepository(dbPool)
	categoryRepo := repository.NewCategoryRepository(dbPool)
	productRepo := repository.NewProductRepository(dbPool)
	cartRepo := repository.NewCartRepository(dbPool)
	orderRepo := repository.NewOrderRepository(dbPool)

	// Services
	authSvc := service.NewAuthService(userRepo, fbClient, cfg.Session.Secret, cfg.Session.Expiration)
	productSvc := service.NewProductService(productRepo, categoryRepo, redisClient)
	cartSvc := service.NewCartService(cartRepo, productRepo, userRepo)
	orderSvc := service.NewOrderService(orderRepo, cartRepo, productRepo, userRepo, amqpCh)

	// Handlers
	authH := handler.NewAuthHandler(authSvc)
	productH := handler.NewProductHandler(productSvc)
	cartH := handler.NewCartHandler(cartSvc)
	orderH := handler.NewOrderHandler(orderSvc)
	healthH := handler.NewHealthHandler(dbPool, redisClient, amqpConn)

	// Worker
	confirmWorker := worker.NewConfirmationWorker(amqpCh, orderRepo, redisClient, log)

	// Router
	router := gin.Default()
	router.GET("/healthz", healthH.Healthz)
	router.GET("/readyz", healthH.Readyz)

	api := router.Group("/api")
	{
		api.GET("/public/hello", healthH.Hello)
		api.POST("/auth/login", authH.Login)

		products := api.Group("/products")
		products.GET("", productH.List)
		products.GET("/:id", productH.GetByID)

		authed := api.Group("", middleware.AuthMiddleware(cfg.Session.Secret))
		authed.GET("/profile", authH.Profile)

		cart := authed.Group("/cart")
		cart.GET("", cartH.GetCart)
		cart.POST("/items", cartH.AddItem)
		cart.DELETE("/items/:id", cartH.RemoveItem)

		orders := authed.Group("/orders")
		orders.POST("/checkout", orderH.Checkout)
		orders.GET("", orderH.ListOrders)
		orders.GET("/:id", orderH.GetOrder)

		admin := authed.Group("/admin", middleware.AdminOnly())
		admin.POST("/products", productH.Create)
		admin.GET("/products", productH.List)
		admin.GET("/products/:id", productH.GetByID)
		admin.PUT("/products/:id", productH.Update)
		admin.DELETE("/products/:id", productH.Delete)
		admin.POST("/users/role", authH.SetRole)
	}

	if err := confirmWorker.Start(ctx); err != nil {
		log.Error("start confirmation worker", "error", err)
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info("starting HTTP server", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown", "error", err)
	}

	confirmWorker.Stop()
	time.Sleep(500 * time.Millisecond)
	cancel()
	log.Info("server stopped")
}
