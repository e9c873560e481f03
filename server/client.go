package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	maxMsgSize = 1 << 20
)

// Client represents a single WebSocket connection.
type Client struct {
	ID    string
	Name  string
	Color string

	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	done chan struct{}

	// The room this client is currently in (nil if not joined).
	mu   sync.Mutex
	room *Room
}

var (
	adjectives = []string{"Red", "Blue", "Green", "Gold", "Silver", "Purple", "Orange", "Teal", "Coral", "Jade"}
	animals    = []string{"Fox", "Owl", "Bear", "Wolf", "Hawk", "Deer", "Lynx", "Crow", "Dove", "Seal"}
	colors     = []string{"#e74c3c", "#3498db", "#2ecc71", "#f39c12", "#9b59b6", "#1abc9c", "#e67e22", "#00bcd4", "#ff5722", "#8bc34a"}
)

func newClient(hub *Hub, conn *websocket.Conn) *Client {
	return &Client{
		ID:    uuid.NewString(),
		Name:  adjectives[rand.Intn(len(adjectives))] + " " + animals[rand.Intn(len(animals))],
		Color: colors[rand.Intn(len(colors))],
		hub:   hub,
		conn:  conn,
		send:  make(chan []byte, 256),
		done:  make(chan struct{}),
	}
}

func (c *Client) currentRoom() *Room {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.room
}

func (c *Client) setRoom(r *Room) {
	c.mu.Lock()
	c.room = r
	c.mu.Unlock()
}

// clearRoom forgets r unless the client has moved on to another room.
func (c *Client) clearRoom(r *Room) {
	c.mu.Lock()
	if c.room == r {
		c.room = nil
	}
	c.mu.Unlock()
}

// ReadPump reads commands from the WebSocket and runs them.
func (c *Client) ReadPump() {
	defer func() {
		if r := c.currentRoom(); r != nil {
			r.leave <- c
		}
		close(c.done)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMsgSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Warn("client: read error", "client", c.ID, "error", err)
			}
			return
		}

		var cmd Command
		if err := json.Unmarshal(data, &cmd); err != nil {
			c.sendMsg(failure("", errors.New("invalid message format")))
			continue
		}
		c.handle(cmd)
	}
}

func (c *Client) handle(cmd Command) {
	switch cmd.Type {
	case CmdJoin:
		if err := cmd.Validate(); err != nil {
			c.sendMsg(failure(cmd.ID, err))
			return
		}
		if r := c.currentRoom(); r != nil && r.key() != keyOf(cmd) {
			r.leave <- c
		}
		c.hub.joinRoom <- joinRequest{client: c, cmd: cmd}
	case CmdLeave:
		r := c.currentRoom()
		if r == nil {
			c.sendMsg(failure(cmd.ID, errors.New("not in a room")))
			return
		}
		r.leave <- c
		c.sendMsg(success(cmd.ID, map[string]any{"status": "left", "fileId": r.fileID}))
	default:
		c.sendMsg(c.hub.Execute(context.Background(), c, cmd))
	}
}

// WritePump writes messages from the send channel to the WebSocket.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, nil)
			return
		}
	}
}

type encoder interface {
	Encode() []byte
}

func (c *Client) sendMsg(msg encoder) {
	select {
	case c.send <- msg.Encode():
	default:
		// Client too slow, drop message.
		slog.Warn("client: send buffer full, dropping message", "client", c.ID)
	}
}

func (c *Client) Info() ClientInfo {
	return ClientInfo{ID: c.ID, Name: c.Name, Color: c.Color}
}
