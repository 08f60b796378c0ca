package handler

import (
	"net/http"
	"slices"

	"github.com/freightmarket/backend/internal/infrastructure/logger"
	"github.com/freightmarket/backend/internal/infrastructure/notification"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// NotificationHandler upgrades authenticated requests to the notification stream
type NotificationHandler struct {
	BaseHandler
	hub      *notification.Hub
	upgrader websocket.Upgrader
}

// NewNotificationHandler creates a new NotificationHandler.
// Browser upgrades are accepted from allowedOrigins; "*" accepts any origin.
func NewNotificationHandler(hub *notification.Hub, allowedOrigins []string) *NotificationHandler {
	return &NotificationHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				return slices.Contains(allowedOrigins, "*") || slices.Contains(allowedOrigins, origin)
			},
		},
	}
}

// Stream godoc
// @ID           streamNotifications
// @Summary      Subscribe to notifications
// @Description  Upgrades to a websocket that pushes JSON notifications for the caller.
// @Description  Browsers may pass the access token as the access_token query parameter.
// @Tags         notifications
// @Param        access_token query string false "Access token"
// @Success      101
// @Failure      401 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /ws/notifications [get]
func (h *NotificationHandler) Stream(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already written the HTTP error
		logger.GetGinLogger(c).Debug("Websocket upgrade failed", zap.Error(err))
		return
	}
	h.hub.Serve(c.Request.Context(), actor.ID, conn)
}
