// server/internal/api/handlers/websocket_handler.go
package handlers

import (
	"errors"
	"net/http"
	"time"

	"mediradar-api-server/internal/auth"
	"mediradar-api-server/internal/service"
	"mediradar-api-server/internal/socket"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Maximum wait for any frame from the client, pongs included.
const pongWait = 60 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type WebSocketHandler struct {
	Hub      *socket.Hub
	Requests *service.RequestService
	Resolver auth.Resolver
	Log      *zap.Logger
}

// RequestStatus subscribes the caller to one request's events, identified by ?token=.
func (h *WebSocketHandler) RequestStatus(c *gin.Context) {
	r, err := h.Requests.Lookup(c.Request.Context(), c.Query("token"))
	if err != nil {
		abortWithError(c, h.Log, err)
		return
	}
	h.serve(c, socket.RequestTopic(r.ID))
}

// Pharmacy subscribes a signed-in pharmacy user to new requests. Browsers cannot set headers on
// websocket upgrades, so the access token comes from ?access_token=.
func (h *WebSocketHandler) Pharmacy(c *gin.Context) {
	token := c.Query("access_token")
	if token == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing_token"})
		return
	}
	if h.Resolver == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "config_error"})
		return
	}
	if _, err := h.Resolver.Resolve(c.Request.Context(), token); err != nil {
		if !errors.Is(err, auth.ErrInvalidToken) {
			h.Log.Warn("token resolution failed", zap.Error(err))
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid_token"})
		return
	}
	h.serve(c, socket.PharmacyTopic)
}

func (h *WebSocketHandler) serve(c *gin.Context, topic string) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.Log.Warn("failed to upgrade connection", zap.Error(err))
		return
	}

	client := h.Hub.Register(topic, conn)
	defer h.Hub.Unregister(client)

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	conn.SetPingHandler(func(data string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		err := conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(time.Second))
		if errors.Is(err, websocket.ErrCloseSent) {
			return nil
		}
		return err
	})

	// Read loop; inbound messages are ignored, it only drives control frames.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.Log.Debug("websocket closed unexpectedly", zap.String("topic", topic), zap.Error(err))
			}
			return
		}
	}
}
