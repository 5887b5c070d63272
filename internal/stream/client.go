package stream

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1024
	sendBufferSize = 64
)

// Client is one websocket connection subscribed to zero or more session
// ids, grounded on internal/infrastructure/websocket.Client's read/write
// pump pair.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan *Event

	id   string
	subs map[string]bool
}

// NewClient wraps an already-upgraded websocket connection.
func NewClient(id string, hub *Hub, conn *websocket.Conn) *Client {
	return &Client{
		hub:  hub,
		conn: conn,
		send: make(chan *Event, sendBufferSize),
		id:   id,
		subs: make(map[string]bool),
	}
}

// Run registers the client with its hub and starts the read/write pumps;
// it blocks until the connection closes. Call in its own goroutine per
// accepted connection.
func (c *Client) Run() {
	c.hub.register <- c
	done := make(chan struct{})
	go func() {
		c.writePump()
		close(done)
	}()
	c.readPump()
	<-done
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var cmd Command
		if err := json.Unmarshal(raw, &cmd); err != nil {
			continue
		}
		switch cmd.Action {
		case CmdSubscribe:
			c.hub.Subscribe(c, cmd.SessionID)
		case CmdUnsubscribe:
			c.hub.Unsubscribe(c, cmd.SessionID)
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			payload, err := json.Marshal(event)
			if err != nil {
				continue
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
