// Package handlers/client.go
package handlers

import (
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 25 * time.Second
	maxMessageSize = 1 << 20
	sendBuffer     = 16
	drainPeriod    = 100 * time.Millisecond
)

// Client is one websocket connection. It remembers the guids it registered so
// they can be left when the socket closes.
type Client struct {
	ID    string
	Conn  *websocket.Conn
	Send  chan []byte
	Mutex sync.Mutex

	messageQueue *MessageQueue
	guids        map[string]struct{}
	broadcasting bool
	done         chan struct{}
	closeOnce    sync.Once
}

func NewClient(conn *websocket.Conn, id string, messageQueue *MessageQueue) *Client {
	return &Client{
		ID:           id,
		Conn:         conn,
		Send:         make(chan []byte, sendBuffer),
		messageQueue: messageQueue,
		guids:        make(map[string]struct{}),
		done:         make(chan struct{}),
	}
}

// ReadPump hands every text frame to handle until the connection fails or is
// closed, then closes the client.
func (c *Client) ReadPump(handle func(c *Client, message []byte)) {
	defer c.Close()

	c.Conn.SetReadLimit(maxMessageSize)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		messageType, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[ws] client %s: %v", c.ID, err)
			}
			return
		}
		_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		if messageType == websocket.TextMessage {
			handle(c, message)
		}
	}
}

// WritePump is the only writer on the connection and closes it on exit. Queued
// frames are newer than anything in Send, so the queue is drained only once
// Send is empty.
func (c *Client) WritePump() {
	ping := time.NewTicker(pingPeriod)
	drain := time.NewTicker(drainPeriod)
	defer func() {
		ping.Stop()
		drain.Stop()
		c.Close()
		c.Conn.Close()
	}()

	for {
		select {
		case <-c.done:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.Conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case message := <-c.Send:
			if err := c.write(websocket.TextMessage, message); err != nil {
				log.Printf("[ws] error writing to client %s: %v", c.ID, err)
				return
			}
			if len(c.Send) > 0 {
				continue
			}
			if err := c.drainQueue(); err != nil {
				log.Printf("[ws] error writing to client %s: %v", c.ID, err)
				return
			}
		case <-drain.C:
			if len(c.Send) > 0 {
				continue
			}
			if err := c.drainQueue(); err != nil {
				log.Printf("[ws] error writing to client %s: %v", c.ID, err)
				return
			}
		case <-ping.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) write(messageType int, message []byte) error {
	_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.Conn.WriteMessage(messageType, message)
}

func (c *Client) drainQueue() error {
	for {
		message, err := c.messageQueue.Dequeue(c.ID)
		if err != nil {
			return nil
		}
		if err := c.write(websocket.TextMessage, message); err != nil {
			return err
		}
	}
}

// SendMessage never blocks. A frame that does not fit the send buffer, or that
// would overtake frames already queued, goes to the overflow queue.
func (c *Client) SendMessage(message []byte) {
	c.Mutex.Lock()
	defer c.Mutex.Unlock()
	if c.closed() {
		return
	}
	if c.messageQueue.QueueSize(c.ID) == 0 {
		select {
		case c.Send <- message:
			return
		default:
		}
	}
	if dropped := c.messageQueue.Enqueue(c.ID, message); dropped {
		log.Printf("[ws] send buffer is full, dropped oldest frame for client %s", c.ID)
	}
}

// Close stops both pumps. WritePump sends the close frame and closes the
// socket. It is safe to call more than once.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.messageQueue.ClearQueue(c.ID)
	})
}

// Done is closed once the client is closed.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

func (c *Client) closed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

func (c *Client) register(guid string) {
	c.Mutex.Lock()
	defer c.Mutex.Unlock()
	c.guids[guid] = struct{}{}
}

func (c *Client) unregister(guid string) {
	c.Mutex.Lock()
	defer c.Mutex.Unlock()
	delete(c.guids, guid)
}

func (c *Client) owns(guid string) bool {
	c.Mutex.Lock()
	defer c.Mutex.Unlock()
	_, ok := c.guids[guid]
	return ok
}

// Guids returns the guids registered through this connection.
func (c *Client) Guids() []string {
	c.Mutex.Lock()
	defer c.Mutex.Unlock()
	out := make([]string, 0, len(c.guids))
	for g := range c.guids {
		out = append(out, g)
	}
	return out
}

// startBroadcast reports true exactly once per client.
func (c *Client) startBroadcast() bool {
	c.Mutex.Lock()
	defer c.Mutex.Unlock()
	if c.broadcasting {
		return false
	}
	c.broadcasting = true
	return true
}
