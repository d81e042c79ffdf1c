package handler

import (
	"fmt"
	"net/http"
	"time"

	"friendlink/backend/internal/auth"
	"friendlink/backend/internal/hub"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	keepaliveInterval = 30 * time.Second
	writeWait         = 10 * time.Second
	pongWait          = 60 * time.Second
	pingPeriod        = (pongWait * 9) / 10
)

// RealtimeTokenResponse is the body of POST /realtime/token.
type RealtimeTokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// RealtimeHandler streams hub events to browsers over SSE or WebSocket.
type RealtimeHandler struct {
	hub      *hub.Hub
	tokens   *hub.TokenIssuer
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

// NewRealtimeHandler creates a RealtimeHandler. An empty allowedOrigins
// accepts any WebSocket origin.
func NewRealtimeHandler(h *hub.Hub, tokens *hub.TokenIssuer, allowedOrigins []string, logger *zap.Logger) *RealtimeHandler {
	return &RealtimeHandler{
		hub:    h,
		tokens: tokens,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				if len(allowedOrigins) == 0 {
					return true
				}
				origin := r.Header.Get("Origin")
				for _, o := range allowedOrigins {
					if o == origin {
						return true
					}
				}
				return false
			},
		},
	}
}

// IssueToken godoc
// @Summary      Issue a realtime token
// @Description  Returns a short-lived token that opens one realtime subscription.
// @Tags         realtime
// @Produce      json
// @Security     BearerAuth
// @Success      201  {object}  RealtimeTokenResponse
// @Failure      401  {object}  ErrorResponse
// @Failure      500  {object}  ErrorResponse
// @Router       /realtime/token [post]
func (h *RealtimeHandler) IssueToken(c *gin.Context) {
	userID, ok := auth.CurrentUser(c)
	if !ok {
		unauthorized(c, "User not authenticated")
		return
	}

	token, expiresAt, err := h.tokens.Issue(userID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, RealtimeTokenResponse{Token: token, ExpiresAt: expiresAt})
}

// open redeems the token query parameter. It writes the 401 itself.
func (h *RealtimeHandler) open(c *gin.Context) (*hub.Subscription, bool) {
	token := c.Query("token")
	if token == "" {
		unauthorized(c, "missing token")
		return nil, false
	}
	sub, err := h.hub.Open(token)
	if err != nil {
		unauthorized(c, "invalid or expired token")
		return nil, false
	}
	return sub, true
}

// ServeSSE godoc
// @Summary      Subscribe over server-sent events
// @Description  Streams pending_count_changed and friend_accepted events for the token's user.
// @Tags         realtime
// @Produce      text/event-stream
// @Param        token  query  string  true  "Realtime token"
// @Success      200
// @Failure      401  {object}  ErrorResponse
// @Router       /realtime/sse [get]
func (h *RealtimeHandler) ServeSSE(c *gin.Context) {
	sub, ok := h.open(c)
	if !ok {
		return
	}
	defer h.hub.Close(sub)

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	fmt.Fprintf(c.Writer, "event: connected\ndata: {}\n\n")
	c.Writer.Flush()

	ticker := time.NewTicker(keepaliveInterval)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-sub.Messages():
			if !ok {
				return
			}
			fmt.Fprintf(c.Writer, "data: %s\n\n", msg)
			c.Writer.Flush()

		case <-ticker.C:
			fmt.Fprintf(c.Writer, ": keepalive\n\n")
			c.Writer.Flush()

		case <-c.Request.Context().Done():
			return
		}
	}
}

// ServeWS godoc
// @Summary      Subscribe over WebSocket
// @Description  Same stream as the SSE endpoint, one JSON event per text message.
// @Tags         realtime
// @Param        token  query  string  true  "Realtime token"
// @Success      101
// @Failure      401  {object}  ErrorResponse
// @Router       /realtime/ws [get]
func (h *RealtimeHandler) ServeWS(c *gin.Context) {
	sub, ok := h.open(c)
	if !ok {
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.hub.Close(sub)
		h.logger.Warn("ws upgrade failed", zap.Error(err))
		return
	}

	done := make(chan struct{})
	go h.readPump(conn, sub, done)
	h.writePump(conn, sub, done)
}

// readPump discards client frames and notices when the peer goes away.
func (h *RealtimeHandler) readPump(conn *websocket.Conn, sub *hub.Subscription, done chan<- struct{}) {
	defer close(done)

	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				h.logger.Debug("ws unexpected close", zap.Uint("user_id", sub.UserID), zap.Error(err))
			}
			return
		}
	}
}

func (h *RealtimeHandler) writePump(conn *websocket.Conn, sub *hub.Subscription, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		h.hub.Close(sub)
		conn.Close()
	}()

	for {
		select {
		case msg, ok := <-sub.Messages():
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
