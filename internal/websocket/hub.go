package websocket

import (
	"encoding/json"
	"sync"

	"github.com/gofiber/websocket/v2"
)

// Client is one connected websocket subscriber.
type Client struct {
	Conn *websocket.Conn
	Mu   sync.Mutex
}

// TaskEvent is the JSON payload broadcast on task lifecycle changes.
type TaskEvent struct {
	Event  string `json:"event"` // task_created, task_updated, task_deleted
	TaskID int    `json:"task_id"`
	UserID int    `json:"user_id"`
	Title  string `json:"title,omitempty"`
}

// Hub manages websocket subscribers to the task event feed.
type Hub struct {
	Clients    map[*Client]bool
	Broadcast  chan []byte
	Register   chan *Client
	Unregister chan *Client
}

func NewHub() *Hub {
	return &Hub{
		Clients:    make(map[*Client]bool),
		Broadcast:  make(chan []byte, 64),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
	}
}

// Publish queues a task event for broadcast. Best effort: a full queue
// drops the event rather than blocking the request that produced it.
func (h *Hub) Publish(ev TaskEvent) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return
	}
	select {
	case h.Broadcast <- payload:
	default:
	}
}

// Run drives the register/unregister/broadcast loop.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.Clients[client] = true
		case client := <-h.Unregister:
			if _, ok := h.Clients[client]; ok {
				delete(h.Clients, client)
				client.Conn.Close()
			}
		case message := <-h.Broadcast:
			for client := range h.Clients {
				client.Mu.Lock()
				err := client.Conn.WriteMessage(websocket.TextMessage, message)
				client.Mu.Unlock()
				if err != nil {
					delete(h.Clients, client)
					client.Conn.Close()
				}
			}
		}
	}
}
