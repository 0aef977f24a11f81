package websocket

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"peoplecounter/internal/logger"
)

const (
	broadcastBuffer = 32
	writeTimeout    = 5 * time.Second
)

// Event is published whenever an upload has been processed. It is delivered
// only to the feed connections of the user who uploaded.
type Event struct {
	UserID            int64     `json:"-"`
	Username          string    `json:"username"`
	AnnotatedFilename string    `json:"annotated_filename"`
	PeopleCount       int       `json:"people_count"`
	ProcessedAt       time.Time `json:"processed_at"`
}

type viewer struct {
	conn   *websocket.Conn
	userID int64
}

type outgoing struct {
	userID  int64
	message []byte
}

// HubService fans processed-upload events out to the uploader's feed viewers.
type HubService struct {
	clients    map[*websocket.Conn]int64
	broadcast  chan outgoing
	register   chan viewer
	unregister chan *websocket.Conn
	done       chan struct{}
	mutex      sync.RWMutex
	logger     *logger.Logger
}

func NewHubService(logger *logger.Logger) *HubService {
	return &HubService{
		clients:    make(map[*websocket.Conn]int64),
		broadcast:  make(chan outgoing, broadcastBuffer),
		register:   make(chan viewer),
		unregister: make(chan *websocket.Conn),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run serves register, unregister and broadcast requests until Stop is called.
func (h *HubService) Run() {
	for {
		select {
		case v := <-h.register:
			h.mutex.Lock()
			h.clients[v.conn] = v.userID
			h.mutex.Unlock()
			h.logger.Info("Feed viewer connected. Total: %d", h.GetClientCount())

		case client := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.Close()
			}
			h.mutex.Unlock()
			h.logger.Info("Feed viewer disconnected. Total: %d", h.GetClientCount())

		case out := <-h.broadcast:
			h.mutex.Lock()
			for client, userID := range h.clients {
				if userID != out.userID {
					continue
				}
				client.SetWriteDeadline(time.Now().Add(writeTimeout))
				if err := client.WriteMessage(websocket.TextMessage, out.message); err != nil {
					h.logger.Error("Error sending feed event: %v", err)
					delete(h.clients, client)
					client.Close()
				}
			}
			h.mutex.Unlock()

		case <-h.done:
			h.mutex.Lock()
			for client := range h.clients {
				client.Close()
				delete(h.clients, client)
			}
			h.mutex.Unlock()
			return
		}
	}
}

// Stop ends Run and closes every viewer connection.
func (h *HubService) Stop() {
	close(h.done)
}

// Register adds a viewer owned by userID. After Stop the connection is closed instead.
func (h *HubService) Register(client *websocket.Conn, userID int64) {
	select {
	case h.register <- viewer{conn: client, userID: userID}:
	case <-h.done:
		client.Close()
	}
}

func (h *HubService) Unregister(client *websocket.Conn) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Publish queues an event for the viewers of event.UserID. It never blocks the
// caller; events are dropped while the queue is full.
func (h *HubService) Publish(event Event) {
	message, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("Failed to encode feed event: %v", err)
		return
	}

	select {
	case h.broadcast <- outgoing{userID: event.UserID, message: message}:
	default:
		h.logger.Warning("Feed queue full, dropping event for %s", event.AnnotatedFilename)
	}
}

func (h *HubService) GetClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}
