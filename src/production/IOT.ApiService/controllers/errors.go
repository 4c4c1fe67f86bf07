package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	logger "gitlab.com/irisiot/iot.telemetry_server/src/production/IOT.Logger"
	iotmodels "gitlab.com/irisiot/iot.telemetry_server/src/production/IOT.Models"
	api_models "gitlab.com/irisiot/iot.telemetry_server/src/production/IOT.Models/api"
)

// respondError maps repository errors onto HTTP statuses with the shared
// failure envelope. Unexpected errors are logged and hidden from clients.
func respondError(ctx *gin.Context, log *logger.Logger, err error) {
	switch {
	case errors.Is(err, iotmodels.ErrValidation):
		ctx.JSON(http.StatusBadRequest, api_models.Fail(err.Error()))
	case errors.Is(err, iotmodels.ErrNotFound):
		ctx.JSON(http.StatusNotFound, api_models.Fail(err.Error()))
	case errors.Is(err, iotmodels.ErrConflict):
		ctx.JSON(http.StatusConflict, api_models.Fail(err.Error()))
	default:
		log.ErrorWithError(err, "request failed")
		ctx.JSON(http.StatusInternalServerError, api_models.Fail("internal error"))
	}
}
