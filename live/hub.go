package live

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"crumble/middleware"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
)

// Client is one websocket subscriber watching a single order.
type Client struct {
	Conn   *websocket.Conn
	Send   chan []byte
	Room   string // order id
	UserID string
}

type broadcastMsg struct {
	Room string
	Data []byte
}

// Hub fans order-status updates out to subscribed clients, one room per
// order id.
type Hub struct {
	rooms      map[string]map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan broadcastMsg
	stop       chan struct{}
	mu         sync.Mutex
}

func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan broadcastMsg),
		stop:       make(chan struct{}),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			if h.rooms[c.Room] == nil {
				h.rooms[c.Room] = make(map[*Client]bool)
			}
			h.rooms[c.Room][c] = true
			h.mu.Unlock()

		case c := <-h.unregister:
			h.mu.Lock()
			if conns := h.rooms[c.Room]; conns != nil {
				delete(conns, c)
				close(c.Send)
			}
			h.mu.Unlock()

		case m := <-h.broadcast:
			h.mu.Lock()
			for c := range h.rooms[m.Room] {
				select {
				case c.Send <- m.Data:
				default:
					close(c.Send)
					delete(h.rooms[m.Room], c)
				}
			}
			h.mu.Unlock()

		case <-h.stop:
			h.mu.Lock()
			for room, conns := range h.rooms {
				for c := range conns {
					close(c.Send)
					if c.Conn != nil {
						c.Conn.Close()
					}
				}
				delete(h.rooms, room)
			}
			h.mu.Unlock()
			return
		}
	}
}

func (h *Hub) Stop() {
	close(h.stop)
}

// StatusUpdate is the payload broadcast whenever an order changes status.
type StatusUpdate struct {
	OrderID   string `json:"orderId"`
	Status    string `json:"status"`
	Timestamp int64  `json:"timestamp"`
}

// BroadcastStatus pushes a status change to everyone watching the order.
// Safe to call during shutdown: once the hub has stopped the update is
// dropped instead of blocking the caller.
func (h *Hub) BroadcastStatus(orderID, status string) {
	update := StatusUpdate{OrderID: orderID, Status: status, Timestamp: time.Now().Unix()}
	data, err := json.Marshal(update)
	if err != nil {
		return
	}
	select {
	case h.broadcast <- broadcastMsg{Room: orderID, Data: data}:
	case <-h.stop:
	}
}

var upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

// OrderFeedHandler upgrades the connection and subscribes the caller to one
// order's status feed. The token rides in the query string because browser
// websockets cannot set headers.
func OrderFeedHandler(hub *Hub) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		claims, err := middleware.ValidateJWT(r.URL.Query().Get("token"))
		if err != nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Println("upgrade:", err)
			return
		}
		client := &Client{
			Conn:   conn,
			Send:   make(chan []byte, 256),
			Room:   ps.ByName("orderId"),
			UserID: claims.UserID,
		}

		hub.register <- client
		go writePump(client)
		go readPump(client, hub)
	}
}

func writePump(c *Client) {
	defer c.Conn.Close()
	for msg := range c.Send {
		if err := c.Conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			break
		}
	}
}

func readPump(c *Client, hub *Hub) {
	defer func() {
		hub.unregister <- c
		c.Conn.Close()
	}()
	for {
		// subscribers only listen; reads just detect disconnects
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			break
		}
	}
}
