package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	logger "gitlab.com/irisiot/iot.telemetry_server/src/production/IOT.Logger"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// BrokerStatus reports the liveness of the message broker connection.
type BrokerStatus interface {
	IsConnected() bool
}

// HealthController handles health requests
type HealthController struct {
	mongoClient *mongo.Client
	broker      BrokerStatus
	logger      *logger.Logger
}

// NewHealthController creates a new health controller
func NewHealthController(mongoClient *mongo.Client, broker BrokerStatus, logger *logger.Logger) *HealthController {
	return &HealthController{
		mongoClient: mongoClient,
		broker:      broker,
		logger:      logger,
	}
}

// RegisterRoutes registers the health routes with Gin
func (c *HealthController) RegisterRoutes(router *gin.Engine) {
	router.GET("/health/live", c.HealthLive)
	router.GET("/health/ready", c.HealthReady)
}

func (c *HealthController) HealthLive(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

func (c *HealthController) HealthReady(ctx *gin.Context) {
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	dbUp := c.mongoClient.Ping(pingCtx, readpref.Primary()) == nil
	brokerUp := c.broker.IsConnected()

	status := http.StatusOK
	if !dbUp || !brokerUp {
		status = http.StatusServiceUnavailable
	}

	ctx.JSON(status, gin.H{
		"status": "ready",
		"db":     dbUp,
		"mqtt":   brokerUp,
	})
}
