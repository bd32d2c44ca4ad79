package websocket

import (
	"context"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// the terminal UI connects from localhost; origin is not enforced
		return true
	},
}

// Hub fans settlement and export events out to the connected terminal
// UIs, keyed by terminal id.
type Hub struct {
	connections map[int64]map[*Connection]bool

	register   chan *Connection
	unregister chan *Connection

	broadcast chan *Message

	mu sync.RWMutex
}

type Connection struct {
	ws         *websocket.Conn
	terminalID int64
	send       chan *Message
	hub        *Hub
}

type Message struct {
	TerminalID int64       `json:"terminal_id,omitempty"`
	Type       string      `json:"type"`
	Channel    string      `json:"channel,omitempty"`
	Data       interface{} `json:"data"`
}

func NewHub() *Hub {
	return &Hub{
		connections: make(map[int64]map[*Connection]bool),
		register:    make(chan *Connection),
		unregister:  make(chan *Connection),
		broadcast:   make(chan *Message, 256),
	}
}

func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			// On shutdown close the underlying websockets so read/write
			// pumps get errors and unregister themselves.
			h.mu.RLock()
			var conns []*Connection
			for _, m := range h.connections {
				for c := range m {
					conns = append(conns, c)
				}
			}
			h.mu.RUnlock()

			// Close outside the lock so unregister logic can acquire mu.
			for _, c := range conns {
				_ = c.ws.Close()
			}

			return
		case conn := <-h.register:
			h.mu.Lock()
			if h.connections[conn.terminalID] == nil {
				h.connections[conn.terminalID] = make(map[*Connection]bool)
			}
			h.connections[conn.terminalID][conn] = true
			h.mu.Unlock()

		case conn := <-h.unregister:
			h.mu.Lock()
			if connections, ok := h.connections[conn.terminalID]; ok {
				if _, exists := connections[conn]; exists {
					delete(connections, conn)
					close(conn.send)
					if len(connections) == 0 {
						delete(h.connections, conn.terminalID)
					}
				}
			}
			h.mu.Unlock()

		case message := <-h.broadcast:
			h.mu.RLock()
			if message.TerminalID != 0 {
				h.deliverLocked(h.connections[message.TerminalID], message)
			} else {
				for _, connections := range h.connections {
					h.deliverLocked(connections, message)
				}
			}
			h.mu.RUnlock()
		}
	}
}

func (h *Hub) deliverLocked(connections map[*Connection]bool, message *Message) {
	for conn := range connections {
		select {
		case conn.send <- message:
		default:
			close(conn.send)
			delete(connections, conn)
		}
	}
}

// Broadcast sends a message to every connection of one terminal.
func (h *Hub) Broadcast(terminalID int64, message *Message) {
	message.TerminalID = terminalID
	select {
	case h.broadcast <- message:
	default:
		log.Printf("Hub broadcast channel is full, dropping message for terminal %d", terminalID)
	}
}

// BroadcastAll sends a message to every connected terminal; installment
// list views on any terminal refresh when a settlement completes.
func (h *Hub) BroadcastAll(message *Message) {
	message.TerminalID = 0
	select {
	case h.broadcast <- message:
	default:
		log.Printf("Hub broadcast channel is full, dropping broadcast message")
	}
}

func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request, terminalID int64) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}

	conn := &Connection{
		ws:         ws,
		terminalID: terminalID,
		send:       make(chan *Message, 256),
		hub:        h,
	}

	h.register <- conn

	go conn.writePump()
	go conn.readPump()
}

const (
	writeWait = 10 * time.Second

	pongWait = 60 * time.Second

	pingPeriod = (pongWait * 9) / 10
)

func (c *Connection) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.ws.Close()
	}()

	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, _, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}
	}
}

func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.ws.WriteJSON(message); err != nil {
				log.Printf("WebSocket write error: %v", err)
				return
			}

		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
