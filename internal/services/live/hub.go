// Package live рассылает события о сменах подписчикам группы по websocket.
package live

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/evn/shiftbot/internal/models"
	"github.com/gorilla/websocket"
)

const (
	sendBuffer   = 64
	pingInterval = 30 * time.Second
	writeWait    = 10 * time.Second
)

type Client struct {
	Conn    *websocket.Conn
	Send    chan []byte
	GroupID int64
	UserID  int64
}

func NewClient(conn *websocket.Conn, groupID, userID int64) *Client {
	return &Client{Conn: conn, Send: make(chan []byte, sendBuffer), GroupID: groupID, UserID: userID}
}

// Event — сообщение ленты.
type Event struct {
	Type      string       `json:"type"`
	GroupID   int64        `json:"group_id"`
	Shift     models.Shift `json:"shift"`
	Timestamp time.Time    `json:"timestamp"`
}

type envelope struct {
	groupID int64
	data    []byte
}

// Hub держит подписчиков по группам. События одной группы не попадают в другую.
type Hub struct {
	clients    map[int64]map[*Client]bool
	broadcast  chan envelope
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	closeOnce  sync.Once
	mu         sync.RWMutex
}

func NewHub() *Hub {
	h := &Hub{
		clients:    make(map[int64]map[*Client]bool),
		broadcast:  make(chan envelope, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
	go h.run()
	return h
}

func (h *Hub) Register(c *Client) {
	select {
	case h.register <- c:
	case <-h.done:
	}
}

func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Close останавливает рассылку и закрывает каналы всех клиентов.
func (h *Hub) Close() {
	h.closeOnce.Do(func() { close(h.done) })
}

// Publish ставит событие в очередь рассылки. Не блокирует: при переполненной
// очереди событие теряется, лента не является источником данных.
func (h *Hub) Publish(groupID int64, event string, s models.Shift) {
	data, err := json.Marshal(Event{Type: event, GroupID: groupID, Shift: s, Timestamp: time.Now().UTC()})
	if err != nil {
		log.Printf("live: marshal event: %v", err)
		return
	}
	select {
	case h.broadcast <- envelope{groupID: groupID, data: data}:
	case <-h.done:
	default:
		log.Printf("live: ⚠️ broadcast queue full, dropping %s for group %d", event, groupID)
	}
}

// ClientCount возвращает число подписчиков группы.
func (h *Hub) ClientCount(groupID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[groupID])
}

func (h *Hub) run() {
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			if h.clients[c.GroupID] == nil {
				h.clients[c.GroupID] = make(map[*Client]bool)
			}
			h.clients[c.GroupID][c] = true
			h.mu.Unlock()
		case c := <-h.unregister:
			h.mu.Lock()
			h.remove(c)
			h.mu.Unlock()
		case msg := <-h.broadcast:
			h.mu.Lock()
			for c := range h.clients[msg.groupID] {
				select {
				case c.Send <- msg.data:
				default:
					h.remove(c)
				}
			}
			h.mu.Unlock()
		case <-h.done:
			h.mu.Lock()
			for _, group := range h.clients {
				for c := range group {
					h.remove(c)
				}
			}
			h.mu.Unlock()
			return
		}
	}
}

// remove вызывается под h.mu.
func (h *Hub) remove(c *Client) {
	group := h.clients[c.GroupID]
	if _, ok := group[c]; !ok {
		return
	}
	delete(group, c)
	close(c.Send)
	if len(group) == 0 {
		delete(h.clients, c.GroupID)
	}
}

// ReadPump читает входящие кадры только чтобы заметить закрытие соединения.
func (h *Hub) ReadPump(c *Client) {
	defer func() {
		h.Unregister(c)
		c.Conn.Close()
	}()
	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) WritePump(c *Client) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
