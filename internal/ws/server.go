// Package ws exposes the broker over a websocket endpoint with
// subscribe/unsubscribe framing.
package ws

import (
	"net/http"
	"regexp"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"dexstream/internal/broker"
)

// Channel names clients may subscribe to. Pool ids are 32-byte hex
// hashes.
var channelPattern = regexp.MustCompile(`^pool:0x[0-9a-fA-F]{64}:(price|trades|candle:(1m|5m|15m|1h|4h|1d))$`)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 50 * time.Second
)

type clientRequest struct {
	Action  string `json:"action"`
	Channel string `json:"channel"`
}

type serverReply struct {
	Type    string `json:"type"`
	Channel string `json:"channel,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Server upgrades HTTP requests to websocket connections and bridges
// them to broker subscriptions.
type Server struct {
	broker   *broker.Broker
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

func NewServer(b *broker.Broker, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		broker: b,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: logger,
	}
}

// ValidChannel reports whether clients are allowed to subscribe to the
// channel.
func ValidChannel(channel string) bool {
	return channelPattern.MatchString(channel)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	sub := s.broker.Subscribe()
	client := &client{conn: conn, sub: sub, logger: s.logger}
	go client.writeLoop()
	client.readLoop()
}

// client is one websocket connection. The write mutex serializes
// broadcast deliveries with replies written from the read loop.
type client struct {
	conn   *websocket.Conn
	sub    *broker.Subscription
	logger *zap.Logger

	writeMu sync.Mutex
}

func (c *client) writeJSON(v any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(v)
}

func (c *client) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-c.sub.C():
			if !ok {
				return
			}
			if err := c.writeJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			c.writeMu.Lock()
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			err := c.conn.WriteMessage(websocket.PingMessage, nil)
			c.writeMu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

func (c *client) readLoop() {
	defer func() {
		c.sub.Close()
		_ = c.conn.Close()
	}()

	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var req clientRequest
		if err := c.conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Debug("websocket closed", zap.Error(err))
			}
			return
		}

		switch req.Action {
		case "subscribe":
			if !ValidChannel(req.Channel) {
				_ = c.writeJSON(serverReply{Type: "error", Channel: req.Channel, Error: "unknown channel"})
				continue
			}
			c.sub.Add(req.Channel)
			_ = c.writeJSON(serverReply{Type: "subscribed", Channel: req.Channel})
		case "unsubscribe":
			c.sub.Remove(req.Channel)
			_ = c.writeJSON(serverReply{Type: "unsubscribed", Channel: req.Channel})
		default:
			_ = c.writeJSON(serverReply{Type: "error", Error: "unknown action"})
		}
	}
}
