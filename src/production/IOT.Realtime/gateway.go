package realtime

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	logger "gitlab.com/irisiot/iot.telemetry_server/src/production/IOT.Logger"
	api_models "gitlab.com/irisiot/iot.telemetry_server/src/production/IOT.Models/api"
)

// TokenValidator verifies an access token and returns its claims.
type TokenValidator interface {
	ValidateAccessToken(tokenString string) (*api_models.AccessClaims, error)
}

// Gateway upgrades authenticated HTTP requests to websocket connections
// attached to the hub.
type Gateway struct {
	hub      *Hub
	tokens   TokenValidator
	upgrader websocket.Upgrader
	log      *logger.Logger
}

func NewGateway(hub *Hub, tokens TokenValidator, log *logger.Logger) *Gateway {
	return &Gateway{
		hub:    hub,
		tokens: tokens,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		log: log.WithComponent("realtime"),
	}
}

// RegisterRoutes mounts the websocket endpoint.
func (g *Gateway) RegisterRoutes(router *gin.Engine) {
	router.GET("/ws", g.Handle)
}

// Handle authenticates the request, upgrades it, and hands the connection
// to the hub. Browsers cannot set headers on websocket requests, so the
// token is also accepted as a query parameter.
func (g *Gateway) Handle(c *gin.Context) {
	tokenString := c.Query("token")
	if tokenString == "" {
		header := c.GetHeader("Authorization")
		if strings.HasPrefix(header, "Bearer ") {
			tokenString = strings.TrimPrefix(header, "Bearer ")
		}
	}
	if tokenString == "" {
		c.JSON(http.StatusUnauthorized, api_models.Fail("missing access token"))
		return
	}

	claims, err := g.tokens.ValidateAccessToken(tokenString)
	if err != nil {
		c.JSON(http.StatusUnauthorized, api_models.Fail("invalid access token"))
		return
	}

	conn, err := g.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error response.
		g.log.ErrorWithError(err, "websocket upgrade failed")
		return
	}

	client := newClient(g.hub, conn, claims.UserID)
	g.hub.register <- client
	client.Start()
}
