package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gitlab.com/irisiot/iot.telemetry_server/src/production/IOT.ApiService/middleware"
	logger "gitlab.com/irisiot/iot.telemetry_server/src/production/IOT.Logger"
	iotmodels "gitlab.com/irisiot/iot.telemetry_server/src/production/IOT.Models"
	api_models "gitlab.com/irisiot/iot.telemetry_server/src/production/IOT.Models/api"
	implementation "gitlab.com/irisiot/iot.telemetry_server/src/production/IOT.Repository/Implementation"
	interfaces "gitlab.com/irisiot/iot.telemetry_server/src/production/IOT.Repository/Interfaces"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DeviceController handles device registration requests
type DeviceController struct {
	deviceRepo     interfaces.DeviceRepository
	logger         *logger.Logger
	authMiddleware *middleware.AuthMiddleware
}

// NewDeviceController creates a new device controller
func NewDeviceController(deviceRepo interfaces.DeviceRepository, logger *logger.Logger, authMiddleware *middleware.AuthMiddleware) *DeviceController {
	return &DeviceController{
		deviceRepo:     deviceRepo,
		logger:         logger,
		authMiddleware: authMiddleware,
	}
}

// RegisterRoutes registers the device routes with Gin
func (c *DeviceController) RegisterRoutes(router *gin.Engine) {
	devices := router.Group("/api/device", c.authMiddleware.Authenticate())
	{
		devices.POST("/index", c.Index)
		devices.POST("/create", c.Create)
		devices.POST("/read", c.Read)
		devices.POST("/update", c.Update)
		devices.POST("/delete", c.Delete)
	}
}

// currentUserID resolves the authenticated user's ObjectID from context.
func currentUserID(ctx *gin.Context) (primitive.ObjectID, bool) {
	userID, err := middleware.GetUserFromGinContext(ctx)
	if err != nil {
		return primitive.NilObjectID, false
	}
	id, err := implementation.ParseObjectID(userID)
	if err != nil {
		return primitive.NilObjectID, false
	}
	return id, true
}

type DeviceListRequest struct {
	Filter    string `json:"filter"`
	SortField string `json:"sortField"`
	SortOrder string `json:"sortOrder"`
	PageNum   int64  `json:"pagenum" binding:"required"`
	PageRow   int64  `json:"pagerow" binding:"required"`
}

// Index pages through the authenticated user's devices
func (c *DeviceController) Index(ctx *gin.Context) {
	var req DeviceListRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, api_models.Fail(err.Error()))
		return
	}

	userID, ok := currentUserID(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, api_models.Fail("authentication required"))
		return
	}

	result, err := c.deviceRepo.ListByUser(ctx, interfaces.DeviceListQuery{
		UserID:    userID,
		Filter:    req.Filter,
		SortField: req.SortField,
		SortOrder: req.SortOrder,
		PageNum:   req.PageNum,
		PageRow:   req.PageRow,
	})
	if err != nil {
		respondError(ctx, c.logger, err)
		return
	}

	ctx.JSON(http.StatusOK, api_models.OK(result))
}

type CreateDeviceRequest struct {
	Name       string `json:"name" binding:"required"`
	Type       string `json:"type" binding:"required"`
	MacAddress string `json:"macAddress" binding:"required"`
	Status     bool   `json:"status"`
}

// Create registers a new device owned by the authenticated user
func (c *DeviceController) Create(ctx *gin.Context) {
	var req CreateDeviceRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, api_models.Fail(err.Error()))
		return
	}

	userID, ok := currentUserID(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, api_models.Fail("authentication required"))
		return
	}

	device := iotmodels.Device{
		Name:       req.Name,
		Type:       req.Type,
		MacAddress: req.MacAddress,
		Status:     req.Status,
		CreatedBy:  userID,
	}
	if err := c.deviceRepo.Create(ctx, &device); err != nil {
		respondError(ctx, c.logger, err)
		return
	}

	ctx.JSON(http.StatusOK, api_models.OK(device))
}

type ReadDeviceRequest struct {
	ID string `json:"id" binding:"required"`
}

// Read returns one device by ID
func (c *DeviceController) Read(ctx *gin.Context) {
	var req ReadDeviceRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, api_models.Fail(err.Error()))
		return
	}

	id, err := implementation.ParseObjectID(req.ID)
	if err != nil {
		respondError(ctx, c.logger, err)
		return
	}

	device, err := c.deviceRepo.FindByID(ctx, id)
	if err != nil {
		respondError(ctx, c.logger, err)
		return
	}

	ctx.JSON(http.StatusOK, api_models.OK(device))
}

type UpdateDeviceRequest struct {
	ID         string `json:"id" binding:"required"`
	Name       string `json:"name" binding:"required"`
	Type       string `json:"type" binding:"required"`
	MacAddress string `json:"macAddress" binding:"required"`
	Status     bool   `json:"status"`
}

// Update mutates a device owned by the authenticated user
func (c *DeviceController) Update(ctx *gin.Context) {
	var req UpdateDeviceRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, api_models.Fail(err.Error()))
		return
	}

	userID, ok := currentUserID(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, api_models.Fail("authentication required"))
		return
	}

	id, err := implementation.ParseObjectID(req.ID)
	if err != nil {
		respondError(ctx, c.logger, err)
		return
	}

	device, err := c.deviceRepo.Update(ctx, userID, iotmodels.Device{
		ID:         id,
		Name:       req.Name,
		Type:       req.Type,
		MacAddress: req.MacAddress,
		Status:     req.Status,
	})
	if err != nil {
		respondError(ctx, c.logger, err)
		return
	}

	ctx.JSON(http.StatusOK, api_models.OK(device))
}

type DeleteDeviceRequest struct {
	ID string `json:"id" binding:"required"`
}

// Delete removes a device owned by the authenticated user. Stored
// telemetry referencing the device is kept.
func (c *DeviceController) Delete(ctx *gin.Context) {
	var req DeleteDeviceRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, api_models.Fail(err.Error()))
		return
	}

	userID, ok := currentUserID(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, api_models.Fail("authentication required"))
		return
	}

	id, err := implementation.ParseObjectID(req.ID)
	if err != nil {
		respondError(ctx, c.logger, err)
		return
	}

	device, err := c.deviceRepo.Delete(ctx, userID, id)
	if err != nil {
		respondError(ctx, c.logger, err)
		return
	}

	ctx.JSON(http.StatusOK, api_models.OK(device))
}
