package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/bitrust/admin-backend/internal/entities"
)

// Feed fans change events out to connected admin sessions. Delivery is
// best-effort: a connection that cannot keep up is dropped, never buffered.
type Feed struct {
	logger   *slog.Logger
	upgrader websocket.Upgrader

	mu          sync.Mutex
	subscribers map[*websocket.Conn]bool
}

func NewFeed(logger *slog.Logger) *Feed {
	return &Feed{
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Origin checks are handled by the CORS layer in front of the router.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		subscribers: make(map[*websocket.Conn]bool),
	}
}

func (f *Feed) Upgrade(w http.ResponseWriter, r *http.Request) (*websocket.Conn, error) {
	return f.upgrader.Upgrade(w, r, nil)
}

func (f *Feed) Subscribe(conn *websocket.Conn) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subscribers[conn] = true
}

func (f *Feed) Unsubscribe(conn *websocket.Conn) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.subscribers, conn)
}

// Publish sends the event to every subscriber as one JSON frame.
func (f *Feed) Publish(event entities.ChangeEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		f.logger.Error("Failed to encode change event", "error", err)
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	for conn := range f.subscribers {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			f.logger.Warn("Dropping slow feed subscriber", "error", err)
			conn.Close()
			delete(f.subscribers, conn)
		}
	}
}
