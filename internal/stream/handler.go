package stream

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/Durgaprasad40/mira-nearby/internal/session"
	"github.com/Durgaprasad40/mira-nearby/pkg/logger"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // In production, validate origin properly
	},
}

type Handler struct {
	hub      *Hub
	sessions session.SessionService
	logger   logger.Logger
}

func NewHandler(hub *Hub, sessions session.SessionService, log logger.Logger) *Handler {
	return &Handler{
		hub:      hub,
		sessions: sessions,
		logger:   log,
	}
}

func (h *Handler) HandleWebSocket(c *gin.Context) {
	sessionID := c.Query("session_id")
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "session_id required"})
		return
	}

	sess, err := h.sessions.Get(c.Request.Context(), sessionID)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid session"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("failed to upgrade connection", "error", err)
		return
	}

	// Fresh salt per socket: a reconnecting viewer sees a new noise layout.
	client := NewClient(h.hub, conn, sessionID, sess.UserID, uuid.New().String())

	h.hub.register <- client

	go client.WritePump()
	client.ReadPump()
}
