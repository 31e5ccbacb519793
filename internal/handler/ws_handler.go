package handler

import (
	ws "marketplace/internal/websocket"

	"github.com/gin-gonic/gin"
)

type WebsocketHandler struct {
	hub *ws.Hub
}

func NewWebsocketHandler(hub *ws.Hub) *WebsocketHandler {
	return &WebsocketHandler{hub: hub}
}

func (h *WebsocketHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/ws", h.Serve)
}

// Serve subscribes the connection to the caller's cart events
// @Summary      Cart events
// @Description  Upgrades to a WebSocket that receives cart.updated events for the current session or user
// @Tags         cart
// @Router       /ws [get]
func (h *WebsocketHandler) Serve(c *gin.Context) {
	sess, ok := requireSession(c)
	if !ok {
		return
	}
	ws.ServeWs(h.hub, c, sess.Channel())
}
