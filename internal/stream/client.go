package stream

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

// Client is one live map connection. The salt is minted when the socket
// opens and lives exactly as long as the connection, so every reconnect
// redraws the fuzzed positions.
type Client struct {
	hub        *Hub
	conn       *websocket.Conn
	send       chan *Message
	sessionID  string
	userID     string
	salt       string
	latitude   float64
	longitude  float64
	zoomBucket int
	area       string
	ctx        context.Context
	cancel     context.CancelFunc
}

func NewClient(hub *Hub, conn *websocket.Conn, sessionID, userID, salt string) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		hub:       hub,
		conn:      conn,
		send:      make(chan *Message, 256),
		sessionID: sessionID,
		userID:    userID,
		salt:      salt,
		ctx:       ctx,
		cancel:    cancel,
	}
}

func (c *Client) ReadPump() {
	defer func() {
		c.signalUnregister()
		c.conn.Close()
		c.cancel()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Debug("websocket read error", "session_id", c.sessionID, "error", err)
			}
			break
		}

		var msg IncomingMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.SendError("Invalid message format", "INVALID_FORMAT")
			continue
		}

		switch msg.Type {
		case MessageTypeViewport:
			c.hub.viewport <- viewportUpdate{client: c, msg: msg}
		case MessageTypePing:
			c.send <- &Message{
				Type:      MessageTypePong,
				Timestamp: time.Now().Unix(),
			}
		}
	}
}

func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			data, err := json.Marshal(message)
			if err != nil {
				continue
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.ctx.Done():
			return
		}
	}
}

// signalUnregister hands the client back to the hub. Once the hub has shut
// down nobody drains the channel, so give up when its context is done.
func (c *Client) signalUnregister() {
	select {
	case c.hub.unregister <- c:
	case <-c.hub.ctx.Done():
	}
}

func (c *Client) SendError(errMsg, code string) {
	select {
	case c.send <- NewErrorMessage(errMsg, code):
	default:
	}
}
