package chat

import (
	"time"

	"CSProject/logger"

	"github.com/gorilla/websocket"
)

const (
	sendQueueSize = 256
	writeTimeout  = 5 * time.Second
)

// Client is one authenticated websocket connection. Writes go through
// the Send queue and a single write pump; gorilla conns cannot be
// written concurrently.
type Client struct {
	ID     string
	UserID string
	ws     *websocket.Conn
	Send   chan []byte
	done   chan struct{}
}

func NewClient(id, userID string, ws *websocket.Conn) *Client {
	return &Client{
		ID:     id,
		UserID: userID,
		ws:     ws,
		Send:   make(chan []byte, sendQueueSize),
		done:   make(chan struct{}),
	}
}

// WritePump drains Send onto the socket until Close or a write error.
func (c *Client) WritePump() {
	for {
		select {
		case <-c.done:
			return
		case data, ok := <-c.Send:
			if !ok {
				return
			}
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				logger.Infof("[WS] write failed conn_id=%s err=%v", c.ID, err)
				return
			}
		}
	}
}

// Enqueue queues a frame without blocking; a full queue drops the
// frame (slow client, it will re-converge by polling).
func (c *Client) Enqueue(data []byte) {
	if len(data) == 0 {
		return
	}
	select {
	case c.Send <- data:
	default:
		logger.Warnf("[WS] send queue full, dropping frame conn_id=%s", c.ID)
	}
}

func (c *Client) Close() {
	select {
	case <-c.done:
	default:
		close(c.done)
	}
	_ = c.ws.Close()
}
