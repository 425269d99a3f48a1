package ws

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1024 * 1024
	sendQueueSize  = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

var errSendQueueFull = errors.New("send queue full")

// EventSink consumes inbound activity from clients. Implemented by the
// message router.
type EventSink interface {
	// SubmitFrame hands one raw inbound frame to the processing loop.
	// Blocks while the inbound queue is full; that is the backpressure on
	// this connection's read pump.
	SubmitFrame(login string, purpose Purpose, data []byte)
	// SessionUp and SessionDown report registry attachment changes.
	SessionUp(login string, purpose Purpose)
	SessionDown(login string, purpose Purpose)
}

// Client is one websocket connection bound to a login and purpose.
type Client struct {
	login    string
	purpose  Purpose
	conn     *websocket.Conn
	send     chan []byte
	registry *Registry
	sink     EventSink
	log      zerolog.Logger
}

// Send queues data for the write pump. A slow client fills its queue and
// gets an error, which the registry treats as a dead transport.
func (c *Client) Send(data []byte) error {
	select {
	case c.send <- data:
		return nil
	default:
		return errSendQueueFull
	}
}

func (c *Client) Close() error {
	return c.conn.Close()
}

// ServeWs upgrades the request, registers the client for its purpose and
// runs the pumps. login is already authenticated by the caller.
func ServeWs(registry *Registry, sink EventSink, w http.ResponseWriter, r *http.Request, login string, purpose Purpose, log zerolog.Logger) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := &Client{
		login:    login,
		purpose:  purpose,
		conn:     conn,
		send:     make(chan []byte, sendQueueSize),
		registry: registry,
		sink:     sink,
		log:      log.With().Str("login", login).Str("purpose", string(purpose)).Logger(),
	}

	registry.Attach(login, purpose, client)
	sink.SessionUp(login, purpose)

	go client.writePump()
	go client.readPump()
}

// readPump reads frames until the transport closes, then detaches. Frames
// are handed to the sink one at a time; no further events are accepted once
// the read loop exits.
func (c *Client) readPump() {
	defer func() {
		c.registry.Detach(c.login, c.purpose, c)
		c.sink.SessionDown(c.login, c.purpose)
		close(c.send)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Debug().Err(err).Msg("websocket read error")
			}
			return
		}
		c.sink.SubmitFrame(c.login, c.purpose, data)
	}
}

// writePump drains the send queue and keeps the connection alive with
// pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
