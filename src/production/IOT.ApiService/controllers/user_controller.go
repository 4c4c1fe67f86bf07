package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gitlab.com/irisiot/iot.telemetry_server/src/production/IOT.ApiService/middleware"
	logger "gitlab.com/irisiot/iot.telemetry_server/src/production/IOT.Logger"
	api_models "gitlab.com/irisiot/iot.telemetry_server/src/production/IOT.Models/api"
	interfaces "gitlab.com/irisiot/iot.telemetry_server/src/production/IOT.Repository/Interfaces"
)

// UserController handles user account requests
type UserController struct {
	userRepo       interfaces.UserRepository
	logger         *logger.Logger
	authMiddleware *middleware.AuthMiddleware
}

// NewUserController creates a new user controller
func NewUserController(userRepo interfaces.UserRepository, logger *logger.Logger, authMiddleware *middleware.AuthMiddleware) *UserController {
	return &UserController{
		userRepo:       userRepo,
		logger:         logger,
		authMiddleware: authMiddleware,
	}
}

// RegisterRoutes registers the user routes with Gin
func (c *UserController) RegisterRoutes(router *gin.Engine) {
	users := router.Group("/api/user", c.authMiddleware.Authenticate())
	{
		users.POST("/index", c.authMiddleware.RequireAdmin(), c.Index)
		users.POST("/read", c.Read)
	}
}

type UserListRequest struct {
	Filter    string `json:"filter"`
	SortField string `json:"sortField"`
	SortOrder string `json:"sortOrder"`
	PageNum   int64  `json:"pagenum" binding:"required"`
	PageRow   int64  `json:"pagerow" binding:"required"`
}

// Index pages through all accounts, admin only
func (c *UserController) Index(ctx *gin.Context) {
	var req UserListRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, api_models.Fail(err.Error()))
		return
	}

	result, err := c.userRepo.List(ctx, interfaces.UserListQuery{
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

// Read returns the authenticated user's own profile
func (c *UserController) Read(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, api_models.Fail("authentication required"))
		return
	}

	user, err := c.userRepo.FindByID(ctx, userID)
	if err != nil {
		respondError(ctx, c.logger, err)
		return
	}

	ctx.JSON(http.StatusOK, api_models.OK(user))
}
