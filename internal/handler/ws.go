package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/flicky/premium-store/internal/middleware"
)

type SocketServer interface {
	Serve(w http.ResponseWriter, r *http.Request, userID uuid.UUID) error
}

type WSHandler struct {
	hub SocketServer
}

func NewWSHandler(hub SocketServer) *WSHandler {
	return &WSHandler{hub: hub}
}

// Connect upgrades the request. The upgrader writes its own error response.
func (h *WSHandler) Connect(c *gin.Context) {
	if err := h.hub.Serve(c.Writer, c.Request, middleware.GetUserID(c)); err != nil {
		slog.WarnContext(c.Request.Context(), "websocket upgrade", "error", err)
	}
}
