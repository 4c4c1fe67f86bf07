package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gitlab.com/irisiot/iot.telemetry_server/src/production/IOT.ApiService/middleware"
	broker "gitlab.com/irisiot/iot.telemetry_server/src/production/IOT.Broker"
	logger "gitlab.com/irisiot/iot.telemetry_server/src/production/IOT.Logger"
	iotmodels "gitlab.com/irisiot/iot.telemetry_server/src/production/IOT.Models"
	api_models "gitlab.com/irisiot/iot.telemetry_server/src/production/IOT.Models/api"
	implementation "gitlab.com/irisiot/iot.telemetry_server/src/production/IOT.Repository/Implementation"
	interfaces "gitlab.com/irisiot/iot.telemetry_server/src/production/IOT.Repository/Interfaces"
)

// DataController handles telemetry query and device command requests
type DataController struct {
	telemetryRepo  interfaces.TelemetryRepository
	deviceRepo     interfaces.DeviceRepository
	dispatcher     *broker.Dispatcher
	logger         *logger.Logger
	authMiddleware *middleware.AuthMiddleware
}

// NewDataController creates a new data controller
func NewDataController(telemetryRepo interfaces.TelemetryRepository, deviceRepo interfaces.DeviceRepository, dispatcher *broker.Dispatcher, logger *logger.Logger, authMiddleware *middleware.AuthMiddleware) *DataController {
	return &DataController{
		telemetryRepo:  telemetryRepo,
		deviceRepo:     deviceRepo,
		dispatcher:     dispatcher,
		logger:         logger,
		authMiddleware: authMiddleware,
	}
}

// RegisterRoutes registers the data routes with Gin
func (c *DataController) RegisterRoutes(router *gin.Engine) {
	data := router.Group("/api/data", c.authMiddleware.Authenticate())
	{
		data.POST("/index", c.Index)
		data.POST("/mac", c.FindByMac)

		// Device commands, one route per command channel
		data.POST("/dht11", c.command(broker.CommandDHT11))
		data.POST("/led", c.command(broker.CommandLED))
		data.POST("/camera", c.command(broker.CommandCamera))

		// Admin only - manual record management
		data.POST("/create", c.authMiddleware.RequireAdmin(), c.CreateRecord)
		data.POST("/delete", c.authMiddleware.RequireAdmin(), c.DeleteRecord)
	}
}

// Index runs the multi-stage aggregation query
func (c *DataController) Index(ctx *gin.Context) {
	var query iotmodels.TelemetryQuery
	if err := ctx.ShouldBindJSON(&query); err != nil {
		ctx.JSON(http.StatusBadRequest, api_models.Fail(err.Error()))
		return
	}

	result, err := c.telemetryRepo.Aggregate(ctx, query)
	if err != nil {
		respondError(ctx, c.logger, err)
		return
	}

	ctx.JSON(http.StatusOK, api_models.OK(result))
}

// FindByMac lists records for one device address, newest first
func (c *DataController) FindByMac(ctx *gin.Context) {
	var query iotmodels.MacQuery
	if err := ctx.ShouldBindJSON(&query); err != nil {
		ctx.JSON(http.StatusBadRequest, api_models.Fail(err.Error()))
		return
	}

	result, err := c.telemetryRepo.FindByMac(ctx, query)
	if err != nil {
		respondError(ctx, c.logger, err)
		return
	}

	ctx.JSON(http.StatusOK, api_models.OK(result))
}

type CommandRequest struct {
	MacAddress string `json:"macAddress" binding:"required"`
	Status     bool   `json:"status"`
}

// command returns a handler dispatching start/stop messages on one
// command channel. Publishing is fire-and-forget; success means the
// message was handed to the broker, not that the device reacted.
func (c *DataController) command(cmd broker.Command) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		var req CommandRequest
		if err := ctx.ShouldBindJSON(&req); err != nil {
			ctx.JSON(http.StatusBadRequest, api_models.Fail(err.Error()))
			return
		}

		if err := c.dispatcher.Dispatch(cmd, req.MacAddress, req.Status); err != nil {
			respondError(ctx, c.logger, err)
			return
		}

		ctx.JSON(http.StatusOK, api_models.OK(nil))
	}
}

type CreateRecordRequest struct {
	MacAddress string      `json:"macAddress" binding:"required"`
	Data       interface{} `json:"data" binding:"required"`
}

// CreateRecord inserts a telemetry record on behalf of a device
func (c *DataController) CreateRecord(ctx *gin.Context) {
	var req CreateRecordRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, api_models.Fail(err.Error()))
		return
	}

	device, err := c.deviceRepo.FindByMac(ctx, req.MacAddress)
	if err != nil {
		respondError(ctx, c.logger, err)
		return
	}

	record := iotmodels.TelemetryRecord{
		MacAddress: device.MacAddress,
		CreatedBy:  device.ID,
		Data:       req.Data,
		Flag:       false,
	}
	if err := c.telemetryRepo.Insert(ctx, record); err != nil {
		respondError(ctx, c.logger, err)
		return
	}

	ctx.JSON(http.StatusOK, api_models.OK(nil))
}

type DeleteRecordRequest struct {
	ID string `json:"id" binding:"required"`
}

// DeleteRecord marks a record deleted without removing the document
func (c *DataController) DeleteRecord(ctx *gin.Context) {
	var req DeleteRecordRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, api_models.Fail(err.Error()))
		return
	}

	id, err := implementation.ParseObjectID(req.ID)
	if err != nil {
		respondError(ctx, c.logger, err)
		return
	}

	if err := c.telemetryRepo.SoftDelete(ctx, id); err != nil {
		respondError(ctx, c.logger, err)
		return
	}

	ctx.JSON(http.StatusOK, api_models.OK(nil))
}
