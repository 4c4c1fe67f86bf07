package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gitlab.com/irisiot/iot.telemetry_server/src/production/IOT.ApiService/controllers"
	broker "gitlab.com/irisiot/iot.telemetry_server/src/production/IOT.Broker"
	container "gitlab.com/irisiot/iot.telemetry_server/src/production/IOT.Container"
	realtime "gitlab.com/irisiot/iot.telemetry_server/src/production/IOT.Realtime"
	implementation "gitlab.com/irisiot/iot.telemetry_server/src/production/IOT.Repository/Implementation"

	jwt "gitlab.com/irisiot/iot.telemetry_server/src/production/IOT.ApiService/implementation/jwt"
	authMiddleware "gitlab.com/irisiot/iot.telemetry_server/src/production/IOT.ApiService/middleware"
	api_models "gitlab.com/irisiot/iot.telemetry_server/src/production/IOT.Models/api"
)

func main() {
	// Initialize dependency injection container
	ctr, err := container.NewContainer()
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize container: %v", err))
	}
	defer ctr.Shutdown(context.Background())

	logger := ctr.GetLogger()
	logger.Info("Starting telemetry server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Connect to the document store
	db, err := ctr.GetDatabase()
	if err != nil {
		logger.FatalWithError(err, "Failed to connect to document store")
	}
	mongoClient, err := ctr.GetMongoClient()
	if err != nil {
		logger.FatalWithError(err, "Failed to get mongo client")
	}

	// Get configuration
	config := ctr.GetConfig()

	// Create repositories
	telemetryRepo := implementation.NewMongoTelemetryRepository(db, config.Mongo.QueryTimeout)
	deviceRepo := implementation.NewMongoDeviceRepository(db, config.Mongo.QueryTimeout)
	userRepo := implementation.NewMongoUserRepository(db, config.Mongo.QueryTimeout)

	if err := deviceRepo.EnsureIndexes(ctx); err != nil {
		logger.FatalWithError(err, "Failed to create device indexes")
	}

	// Initialize JWT service for token validation
	jwtConfig := api_models.Config{
		SecretKey:           config.Auth.JWTSecretKey,
		AccessTokenDuration: config.Auth.AccessTokenDuration,
		Issuer:              config.Auth.JWTIssuer,
	}
	jwtService := jwt.NewService(jwtConfig)

	// Create auth middleware
	authMiddlewareInstance := authMiddleware.NewAuthMiddleware(jwtService, authMiddleware.DefaultConfig())

	// Realtime hub, fed by the broker consumer
	hubCtx, hubCancel := context.WithCancel(context.Background())
	defer hubCancel()
	hub := realtime.NewHub(logger)
	go hub.Run(hubCtx)

	// Broker client: register subscriptions before connecting so the
	// OnConnect hook installs them on the initial session too.
	brokerClient := ctr.GetBrokerClient()
	consumer := broker.NewConsumer(brokerClient, deviceRepo, telemetryRepo, hub, logger)
	consumer.Register(brokerClient)
	if err := brokerClient.Connect(); err != nil {
		logger.FatalWithError(err, "Failed to connect to MQTT broker")
	}

	dispatcher := broker.NewDispatcher(brokerClient, logger)

	// Initialize Gin router
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	// Configure CORS from config
	corsConfig := cors.Config{
		AllowOrigins:     config.CORS.AllowedOrigins,
		AllowMethods:     config.CORS.AllowedMethods,
		AllowHeaders:     config.CORS.AllowedHeaders,
		ExposeHeaders:    config.CORS.ExposedHeaders,
		AllowCredentials: config.CORS.AllowCredentials,
		MaxAge:           time.Duration(config.CORS.MaxAge) * time.Second,
	}
	router.Use(cors.New(corsConfig))

	// Create controllers and register routes
	dataController := controllers.NewDataController(telemetryRepo, deviceRepo, dispatcher, logger, authMiddlewareInstance)
	deviceController := controllers.NewDeviceController(deviceRepo, logger, authMiddlewareInstance)
	userController := controllers.NewUserController(userRepo, logger, authMiddlewareInstance)
	healthController := controllers.NewHealthController(mongoClient, brokerClient, logger)
	gateway := realtime.NewGateway(hub, jwtService, logger)

	dataController.RegisterRoutes(router)
	deviceController.RegisterRoutes(router)
	userController.RegisterRoutes(router)
	healthController.RegisterRoutes(router)
	gateway.RegisterRoutes(router)

	// Get port from configuration
	port := config.Server.Port

	// Create HTTP server with timeouts
	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  config.Server.ReadTimeout,
		WriteTimeout: config.Server.WriteTimeout,
		IdleTimeout:  config.Server.IdleTimeout,
	}

	// Start HTTP server in a goroutine
	go func() {
		logger.Info("HTTP server starting on port " + port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.FatalWithError(err, "Failed to start HTTP server")
		}
	}()

	logger.Info("Telemetry server running... press Ctrl+C to stop")

	// Wait for shutdown signal
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	logger.Info("Shutting down...")

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	hubCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.ErrorWithError(err, "Server forced to shutdown")
	}
}
