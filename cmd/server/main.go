package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/tagithq/tagit/internal/api"
	"github.com/tagithq/tagit/internal/audit"
	"github.com/tagithq/tagit/internal/auth"
	"github.com/tagithq/tagit/internal/config"
	"github.com/tagithq/tagit/internal/database"
	"github.com/tagithq/tagit/internal/document"
	"github.com/tagithq/tagit/internal/encryption"
	"github.com/tagithq/tagit/internal/notify"
	"github.com/tagithq/tagit/internal/profile"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("Error loading .env file: %v", err)
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Security settings (key rotation period etc.) come through viper
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Warning: unable to read config for viper: %v", err)
	}

	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}

	// Initialize logger
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	// Initialize PostgreSQL connection
	pgPort, err := strconv.Atoi(os.Getenv("POSTGRES_PORT"))
	if err != nil {
		logger.Fatal("Failed to get PostgreSQL port", zap.Error(err))
	}

	postgresConfig := database.PostgresConfig{
		Host:        os.Getenv("POSTGRES_HOST"),
		Port:        pgPort,
		Database:    os.Getenv("POSTGRES_DB"),
		User:        os.Getenv("POSTGRES_USER"),
		Password:    os.Getenv("POSTGRES_PASSWORD"),
		SSLMode:     os.Getenv("POSTGRES_SSLMODE"),
		MaxPoolSize: 10,
		ConnTimeout: 5 * time.Second,
	}

	ctx := context.Background()
	db, err := database.Connect(ctx, postgresConfig)
	if err != nil {
		logger.Fatal("Failed to connect to PostgreSQL", zap.Error(err))
	}
	defer database.Disconnect(db)

	// Initialize MongoDB connection for the document sub-store
	mongoConfig := &database.MongoConfig{
		URI:                    os.Getenv("MONGO_URI"),
		Database:               os.Getenv("MONGO_DB"),
		MaxPoolSize:            20,
		MinPoolSize:            2,
		ConnectTimeout:         5 * time.Second,
		ServerSelectionTimeout: 5 * time.Second,
	}
	mongoClient, err := database.NewMongoClient(ctx, mongoConfig)
	if err != nil {
		logger.Fatal("Failed to connect to MongoDB", zap.Error(err))
	}
	defer mongoClient.Disconnect(ctx)

	// Initialize encryption service for at-rest medical fields
	encryptService, err := encryption.NewService()
	if err != nil {
		logger.Fatal("Failed to initialize encryption service", zap.Error(err))
	}
	encryption.StartKeyRotation(encryptService)

	// Initialize Elasticsearch client for the audit trail
	cfgElastic := elasticsearch.Config{
		Addresses: []string{os.Getenv("ELASTICSEARCH_URL")},
		Username:  os.Getenv("ELASTICSEARCH_USERNAME"),
		Password:  os.Getenv("ELASTICSEARCH_PASSWORD"),
	}
	esClient, err := elasticsearch.NewClient(cfgElastic)
	if err != nil {
		logger.Fatal("Failed to connect to Elasticsearch", zap.Error(err))
	}
	auditService := audit.NewService(esClient)

	// Initialize auth service
	authService := auth.NewService(db, auditService, auth.ServiceConfig{
		JWTSecret:   os.Getenv("JWT_SECRET"),
		TokenExpiry: 24 * time.Hour,
	})
	if err := authService.Initialize(ctx); err != nil {
		logger.Fatal("Failed to initialize auth service", zap.Error(err))
	}

	// Initialize core services
	profileService := profile.NewService(profile.NewPostgresStore(db), encryptService, auditService)
	documentService := document.NewService(
		document.NewMongoStore(mongoClient.Database(mongoConfig.Database)),
		cfg.Storage.PublicBaseURL,
		auditService,
	)
	dispatcher := notify.NewDispatcher(
		notify.NewSMSGateway(cfg.SMS.GatewayURL, cfg.SMS.APIKey),
		logger,
	)

	// Initialize handler and router
	handler := api.NewHandler(authService, profileService, documentService, dispatcher, auditService)
	router := api.NewRouter(handler, authService)
	engine := router.SetupRouter(logger)

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: engine,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Starting server on %s:%d", cfg.Server.Host, cfg.Server.Port)
		if cfg.Server.TLS.Enabled {
			if err := srv.ListenAndServeTLS(cfg.Server.TLS.CertFile, cfg.Server.TLS.KeyFile); err != nil && err != http.ErrServerClosed {
				log.Fatalf("Failed to start server: %v", err)
			}
		} else {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("Failed to start server: %v", err)
			}
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exiting")
}
