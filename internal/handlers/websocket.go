package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"wager-engine-backend/internal/ledger"
	"wager-engine-backend/internal/models"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type WebSocketHandler struct {
	ledger ledger.Ledger
	logger *slog.Logger
	hub    *WebSocketHub
}

// WebSocketHub fans engine events out to connected clients. It satisfies
// services.Broadcaster; the engine never blocks on it because all sends go
// through the buffered broadcast channel.
type WebSocketHub struct {
	clients    map[int64]*websocket.Conn
	register   chan *Client
	unregister chan *Client
	broadcast  chan *Message
}

type Client struct {
	UserID int64
	Conn   *websocket.Conn
}

type Message struct {
	Type   string      `json:"type"`
	UserID int64       `json:"user_id,omitempty"`
	Data   interface{} `json:"data"`
}

func NewWebSocketHandler(l ledger.Ledger, logger *slog.Logger) *WebSocketHandler {
	hub := &WebSocketHub{
		clients:    make(map[int64]*websocket.Conn),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *Message, 100),
	}

	go hub.run(logger)

	return &WebSocketHandler{
		ledger: l,
		logger: logger,
		hub:    hub,
	}
}

func (h *WebSocketHandler) Hub() *WebSocketHub { return h.hub }

func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	userID := c.GetInt64("user_id")

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "user_id", userID, "error", err)
		return
	}

	client := &Client{UserID: userID, Conn: conn}
	h.hub.register <- client

	defer func() {
		h.hub.unregister <- client
		conn.Close()
	}()

	h.sendBalance(c, client)

	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Warn("websocket read failed", "user_id", userID, "error", err)
			}
			break
		}

		if msg.Type == "PING" {
			h.hub.broadcast <- &Message{
				Type:   "PONG",
				UserID: client.UserID,
				Data:   gin.H{"timestamp": time.Now().Unix()},
			}
		}
	}
}

func (h *WebSocketHandler) sendBalance(c *gin.Context, client *Client) {
	wallet, err := h.ledger.Wallet(c.Request.Context(), client.UserID)
	if err != nil {
		h.logger.Error("failed to get wallet for websocket hello", "user_id", client.UserID, "error", err)
		return
	}

	client.Conn.WriteJSON(Message{
		Type: "BALANCE_UPDATE",
		Data: gin.H{
			"balance":       wallet.Balance,
			"total_wagered": wallet.TotalWagered,
			"total_won":     wallet.TotalWon,
		},
	})
}

func (hub *WebSocketHub) run(logger *slog.Logger) {
	for {
		select {
		case client := <-hub.register:
			hub.clients[client.UserID] = client.Conn
			logger.Info("websocket client connected", "user_id", client.UserID)

		case client := <-hub.unregister:
			if hub.clients[client.UserID] == client.Conn {
				delete(hub.clients, client.UserID)
				logger.Info("websocket client disconnected", "user_id", client.UserID)
			}

		case message := <-hub.broadcast:
			if message.UserID != 0 {
				if conn, ok := hub.clients[message.UserID]; ok {
					conn.WriteJSON(message)
				}
			} else {
				for _, conn := range hub.clients {
					conn.WriteJSON(message)
				}
			}
		}
	}
}

func (hub *WebSocketHub) send(msg *Message) {
	select {
	case hub.broadcast <- msg:
	default:
		// A full buffer drops the update rather than stalling a settlement.
	}
}

func (hub *WebSocketHub) BroadcastSessionUpdate(userID int64, sessionID string, multiplier float64) {
	hub.send(&Message{
		Type:   "SESSION_UPDATE",
		UserID: userID,
		Data: gin.H{
			"session_id": sessionID,
			"multiplier": multiplier,
			"timestamp":  time.Now().Unix(),
		},
	})
}

func (hub *WebSocketHub) BroadcastSettlement(userID int64, session *models.GameSession) {
	hub.send(&Message{
		Type:   "SESSION_SETTLED",
		UserID: userID,
		Data: gin.H{
			"session_id": session.ID,
			"game_type":  session.GameType,
			"status":     session.Status,
			"multiplier": session.Multiplier,
			"payout":     session.Payout,
			"timestamp":  time.Now().Unix(),
		},
	})
}
