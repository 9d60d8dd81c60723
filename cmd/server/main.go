package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"picstream/pkg/cache"
	"picstream/pkg/config"
	"picstream/pkg/database"
	"picstream/pkg/jwt"
	"picstream/pkg/logger"
	"picstream/pkg/mediastore"
	"picstream/pkg/middleware"
	authhandlers "picstream/services/auth/handlers"
	authrepo "picstream/services/auth/repository"
	feedhandlers "picstream/services/feed/handlers"
	posthandlers "picstream/services/post/handlers"
	postrepo "picstream/services/post/repository"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "picstream/docs" // Swagger docs
)

// @title           Picstream API
// @version         1.0
// @description     Media sharing backend: upload, feed, ownership-scoped delete

// @host      localhost:8080
// @BasePath  /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	if cfg.JWTSecret == "your-secret-key-change-in-production" || cfg.JWTSecret == "" {
		panic("JWT_SECRET must be set in environment variables")
	}

	log := logger.New()

	db, err := database.NewPostgresDB(cfg)
	if err != nil {
		log.Error("Failed to connect to database: %v", err)
		panic(err)
	}

	// Migrations are handled by goose - see cmd/migrate/main.go

	redisClient, err := cache.NewRedisClient(cfg)
	if err != nil {
		log.Error("Failed to connect to redis: %v", err)
		panic(err)
	}

	// One long-lived media store handle for the whole process
	store, err := mediastore.NewClient(cfg)
	if err != nil {
		log.Error("Failed to create media store client: %v", err)
		panic(err)
	}

	jwtService := jwt.NewService(cfg.JWTSecret)
	userRepo := authrepo.NewUserRepository(db)
	postRepo := postrepo.NewPostRepository(db)

	authHandler := authhandlers.NewAuthHandler(userRepo, jwtService, log)
	postHandler := posthandlers.NewPostHandler(postRepo, store, log)
	feedHandler := feedhandlers.NewFeedHandler(postRepo, userRepo, log)

	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000", "http://127.0.0.1:3000"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Swagger documentation
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Public auth routes
	r.POST("/auth/register", authHandler.Register)
	r.POST("/auth/login", authHandler.Login)

	// Authenticated routes
	api := r.Group("/")
	api.Use(middleware.AuthMiddleware(jwtService))
	api.Use(middleware.RateLimitMiddleware(redisClient, 100, time.Minute)) // 100 requests per minute

	{
		api.POST("/upload", postHandler.Upload)
		api.GET("/feed", feedHandler.GetFeed)
		api.DELETE("/posts/:post_id", postHandler.Delete)
		api.GET("/users/me", authHandler.Me)
		api.PATCH("/users/me", authHandler.UpdateMe)
	}

	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: r,
	}

	go func() {
		log.Info("Picstream server starting on port %s", cfg.ServerPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Failed to start server: %v", err)
			panic(err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	// The context is used to inform the server it has 5 seconds to finish
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sqlDB, err := db.DB()
	if err == nil {
		if err := sqlDB.Close(); err != nil {
			log.Error("Error closing database: %v", err)
		}
	}

	if err := redisClient.Close(); err != nil {
		log.Error("Error closing Redis: %v", err)
	}

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown: %v", err)
		panic(err)
	}

	log.Info("Server exited")
}
